package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/services"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	logger := zap.NewNop()

	tests := []struct {
		name            string
		err             error
		expectedStatus  models.Status
		expectedDetails string
	}{
		{
			name:            "constraint violation",
			err:             services.ConstraintViolation("No entity ID for update", services.ConstraintNotNull),
			expectedStatus:  models.StatusConstraintViolation,
			expectedDetails: "No entity ID for update",
		},
		{
			name:            "forbidden discloses nothing",
			err:             services.Forbidden("", errors.New("permission denied for function f_row_delete")),
			expectedStatus:  models.StatusForbidden,
			expectedDetails: "",
		},
		{
			name:            "wrapped domain error",
			err:             fmt.Errorf("reading parcel: %w", services.SqlError("failed to read parcel", errors.New("conn reset"))),
			expectedStatus:  models.StatusSQLError,
			expectedDetails: "failed to read parcel",
		},
		{
			name:            "procedure error",
			err:             services.ProcedureError("insert procedure returned no row", nil),
			expectedStatus:  models.StatusProcedureError,
			expectedDetails: "insert procedure returned no row",
		},
		{
			name:            "third party",
			err:             services.ThirdPartyUnavailable("signature store unavailable", nil),
			expectedStatus:  models.StatusThirdPartyServiceUnavailable,
			expectedDetails: "signature store unavailable",
		},
		{
			name:            "token expired",
			err:             services.ErrTokenExpired,
			expectedStatus:  models.StatusJWTExpired,
			expectedDetails: "access token expired",
		},
		{
			name:            "unknown error",
			err:             errors.New("nil pointer somewhere"),
			expectedStatus:  models.StatusOperationFailed,
			expectedDetails: "update operation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleServiceError(tt.err, "update", logger)

			assert.Equal(t, tt.expectedStatus, resp.Status)
			assert.Equal(t, tt.expectedDetails, resp.Details)
			assert.Nil(t, resp.Payload)
		})
	}
}

func TestStatusFor(t *testing.T) {
	status, details := StatusFor(errors.New("boom"))
	assert.Equal(t, models.StatusOperationFailed, status)
	assert.Empty(t, details)

	status, details = StatusFor(services.ContractViolation("missing content key"))
	assert.Equal(t, models.StatusInternalContractViolation, status)
	assert.Equal(t, "missing content key", details)
}
