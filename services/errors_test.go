package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/entitybus/models"
)

func TestNewDomainError(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := NewDomainError(models.StatusSQLError, "query failed", baseErr)

	assert.Equal(t, models.StatusSQLError, domainErr.Status)
	assert.Equal(t, "query failed", domainErr.Message)
	assert.Equal(t, "query failed", domainErr.Details)
	assert.Equal(t, baseErr, domainErr.Err)
}

func TestDomainError_Error(t *testing.T) {
	tests := []struct {
		name    string
		err     *DomainError
		wantMsg string
	}{
		{
			name:    "error with wrapped error",
			err:     SqlError("query failed", errors.New("db error")),
			wantMsg: "SQL_ERROR: query failed (db error)",
		},
		{
			name:    "error without wrapped error",
			err:     ContractViolation("missing content key"),
			wantMsg: "INTERNAL_CONTRACT_VIOLATION: missing content key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantMsg, tt.err.Error())
		})
	}
}

func TestDomainError_Unwrap(t *testing.T) {
	baseErr := errors.New("base error")
	domainErr := ProcedureError("procedure failed", baseErr)

	assert.Equal(t, baseErr, errors.Unwrap(domainErr))
	assert.ErrorIs(t, domainErr, baseErr)
}

func TestDomainError_Is(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"same status", Forbidden("no", nil), ErrForbidden, true},
		{"different status", SqlError("x", nil), ErrForbidden, false},
		{"wrapped domain error", fmt.Errorf("outer: %w", ConstraintViolation("x", ConstraintNotNull)), ErrConstraint, true},
		{"plain error", errors.New("boom"), ErrForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errors.Is(tt.err, tt.target))
		})
	}
}

func TestConstraintViolation(t *testing.T) {
	err := ConstraintViolation("No entity ID for update", ConstraintNotNull)

	assert.True(t, IsConstraintViolation(err))
	assert.Equal(t, "not null", ConstraintOf(err))
	assert.Equal(t, "No entity ID for update", err.Details)
}

func TestForbidden_NoDetails(t *testing.T) {
	err := Forbidden("", errors.New("permission denied"))

	assert.True(t, IsForbiddenError(err))
	assert.Empty(t, err.Details)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, models.StatusThirdPartyServiceUnavailable, StatusOf(WrapThirdParty("redis down", errors.New("dial"))))
	assert.Equal(t, models.Status(""), StatusOf(errors.New("plain")))
	assert.True(t, IsThirdPartyError(fmt.Errorf("ctx: %w", ErrThirdParty)))

	var domainErr *DomainError
	require.True(t, errors.As(fmt.Errorf("wrap: %w", ErrInvalidSignature), &domainErr))
	assert.Equal(t, models.StatusInvalidSignature, domainErr.Status)
}
