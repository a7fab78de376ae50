package models

// Status is the outcome code carried by every response envelope.
// The string values are part of the wire contract and must not change.
type Status string

const (
	StatusOK                           Status = "OK"
	StatusJWTInvalid                   Status = "JWT_INVALID"
	StatusJWTExpired                   Status = "JWT_EXPIRED"
	StatusInvalidSignature             Status = "INVALID_SIGNATURE"
	StatusForbidden                    Status = "FORBIDDEN"
	StatusConstraintViolation          Status = "CONSTRAINT_VIOLATION"
	StatusSQLError                     Status = "SQL_ERROR"
	StatusProcedureError               Status = "PROCEDURE_ERROR"
	StatusInternalContractViolation    Status = "INTERNAL_CONTRACT_VIOLATION"
	StatusThirdPartyServiceUnavailable Status = "THIRD_PARTY_SERVICE_UNAVAILABLE"
	StatusOperationFailed              Status = "OPERATION_FAILED"
)

// String returns the wire representation
func (s Status) String() string {
	return string(s)
}

// IsOK reports whether the status denotes success
func (s Status) IsOK() bool {
	return s == StatusOK
}

// IsSecurityEvent reports whether an outcome with this status is recorded
// as a security event in addition to ordinary request handling.
func (s Status) IsSecurityEvent() bool {
	switch s {
	case StatusJWTInvalid, StatusInvalidSignature, StatusForbidden:
		return true
	default:
		return false
	}
}

// DegradesService reports whether the status signals an external dependency outage.
func (s Status) DegradesService() bool {
	return s == StatusThirdPartyServiceUnavailable
}
