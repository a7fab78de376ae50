package services

import (
	"errors"
	"fmt"

	"github.com/upb/entitybus/models"
)

// Constraint classes reported with CONSTRAINT_VIOLATION
const (
	ConstraintNotNull    = "not null"
	ConstraintForeignKey = "foreign key"
	ConstraintUnique     = "unique"
	ConstraintCheck      = "check"
)

// DomainError is an error that carries the response status it maps to
type DomainError struct {
	Status  models.Status
	Message string
	Err     error

	// Details is copied into the response. Empty for errors that must not
	// disclose anything to the caller.
	Details string

	// Constraint is set for CONSTRAINT_VIOLATION errors
	Constraint string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Status, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Status == t.Status
}

// NewDomainError creates a new domain error whose details equal its message
func NewDomainError(status models.Status, message string, err error) *DomainError {
	return &DomainError{
		Status:  status,
		Message: message,
		Err:     err,
		Details: message,
	}
}

// ConstraintViolation reports a violated data constraint of the given class
func ConstraintViolation(message, constraint string) *DomainError {
	e := NewDomainError(models.StatusConstraintViolation, message, nil)
	e.Constraint = constraint
	return e
}

// Forbidden reports a refused operation. details may be empty.
func Forbidden(details string, err error) *DomainError {
	return &DomainError{
		Status:  models.StatusForbidden,
		Message: "operation forbidden",
		Err:     err,
		Details: details,
	}
}

// SqlError wraps a failed query
func SqlError(message string, err error) *DomainError {
	return NewDomainError(models.StatusSQLError, message, err)
}

// ProcedureError reports a stored procedure failure that is neither a
// constraint violation nor a permission failure.
func ProcedureError(message string, err error) *DomainError {
	return NewDomainError(models.StatusProcedureError, message, err)
}

// ContractViolation reports a request or configuration that breaks the message contract
func ContractViolation(message string) *DomainError {
	return NewDomainError(models.StatusInternalContractViolation, message, nil)
}

// ThirdPartyUnavailable reports an unreachable external dependency
func ThirdPartyUnavailable(message string, err error) *DomainError {
	return NewDomainError(models.StatusThirdPartyServiceUnavailable, message, err)
}

// Domain error variables
var (
	ErrInvalidToken     = NewDomainError(models.StatusJWTInvalid, "invalid access token", nil)
	ErrTokenExpired     = NewDomainError(models.StatusJWTExpired, "access token expired", nil)
	ErrInvalidSignature = NewDomainError(models.StatusInvalidSignature, "invalid digital signature", nil)
	ErrForbidden        = Forbidden("", nil)
	ErrConstraint       = ConstraintViolation("constraint violation", "")
	ErrSQL              = SqlError("query failed", nil)
	ErrProcedure        = ProcedureError("stored procedure failed", nil)
	ErrContract         = ContractViolation("contract violation")
	ErrThirdParty       = ThirdPartyUnavailable("third party service unavailable", nil)
)

// Error type checking helper functions

// IsForbiddenError checks if an error is a forbidden error
func IsForbiddenError(err error) bool {
	return StatusOf(err) == models.StatusForbidden
}

// IsConstraintViolation checks if an error is a constraint violation
func IsConstraintViolation(err error) bool {
	return StatusOf(err) == models.StatusConstraintViolation
}

// IsThirdPartyError checks if an error is an external dependency failure
func IsThirdPartyError(err error) bool {
	return StatusOf(err) == models.StatusThirdPartyServiceUnavailable
}

// StatusOf returns the status of a domain error, or empty string if err is not one
func StatusOf(err error) models.Status {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status
	}
	return ""
}

// ConstraintOf returns the constraint class of a constraint violation
func ConstraintOf(err error) string {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Constraint
	}
	return ""
}

// WrapThirdParty wraps an error as an external dependency failure
func WrapThirdParty(message string, err error) error {
	return ThirdPartyUnavailable(message, err)
}
