package postgres

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/upb/entitybus/services"
)

// SQLSTATE codes with a dedicated classification
const (
	codeNotNullViolation    = "23502"
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeCheckViolation      = "23514"
	codeInsufficientPrivs   = "42501"
)

// classifyError maps a failed procedure call to a domain error. Raw driver
// errors never leave this package.
func classifyError(op string, err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return services.ProcedureError(fmt.Sprintf("%s failed", op), err)
	}

	switch string(pqErr.Code) {
	case codeNotNullViolation:
		return constraint(pqErr, services.ConstraintNotNull)
	case codeForeignKeyViolation:
		return constraint(pqErr, services.ConstraintForeignKey)
	case codeUniqueViolation:
		return constraint(pqErr, services.ConstraintUnique)
	case codeCheckViolation:
		return constraint(pqErr, services.ConstraintCheck)
	case codeInsufficientPrivs:
		return services.Forbidden("", err)
	default:
		return services.ProcedureError(fmt.Sprintf("%s failed: %s", op, pqErr.Message), err)
	}
}

func constraint(pqErr *pq.Error, class string) error {
	e := services.ConstraintViolation(pqErr.Message, class)
	e.Err = pqErr
	return e
}
