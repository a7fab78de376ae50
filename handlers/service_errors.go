package handlers

import (
	"errors"
	"fmt"

	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/services"
	"go.uber.org/zap"
)

// StatusFor maps err to the response status and the details shown to the
// caller. Errors that are not domain errors map to OPERATION_FAILED with
// no details.
func StatusFor(err error) (models.Status, string) {
	var domainErr *services.DomainError
	if errors.As(err, &domainErr) && domainErr.Status != "" {
		return domainErr.Status, domainErr.Details
	}
	return models.StatusOperationFailed, ""
}

// HandleServiceError builds the failed response for an error returned while
// handling operation op.
func HandleServiceError(err error, op string, logger *zap.Logger) *models.Response {
	status, details := StatusFor(err)

	switch {
	case status == models.StatusOperationFailed:
		// Unknown error type - log with full detail, answer with a generic message
		logger.Error("unhandled error type",
			zap.String("operation", op),
			zap.Error(err))
		details = fmt.Sprintf("%s operation failed", op)

	case status.DegradesService():
		logger.Warn("external dependency unavailable",
			zap.String("operation", op),
			zap.Error(err))

	case status.IsSecurityEvent():
		logger.Info("request rejected",
			zap.String("operation", op),
			zap.String("status", status.String()),
			zap.Error(err))

	default:
		logger.Debug("handled service error",
			zap.String("operation", op),
			zap.String("status", status.String()),
			zap.String("details", details),
			zap.Error(err))
	}

	return models.Failed(status, details)
}
