// Package overflow turns responses into outbound envelopes and moves
// payloads that are too large for the bus into the blob store.
package overflow

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"go.uber.org/zap"
)

// Envelope is an outbound message ready for the transport
type Envelope struct {
	Value   []byte
	Headers map[string]string

	// Status is the status actually sent, which differs from the response
	// status when offloading failed.
	Status models.Status
}

// Config holds configuration for Assembler
type Config struct {
	Bucket         string
	ThresholdBytes int
	KeyPrefix      string
}

// Assembler serializes responses and offloads oversized ones
type Assembler struct {
	cfg    Config
	blobs  repositories.BlobStore
	logger *zap.Logger
}

// NewAssembler creates a response assembler
func NewAssembler(cfg Config, blobs repositories.BlobStore, logger *zap.Logger) *Assembler {
	return &Assembler{cfg: cfg, blobs: blobs, logger: logger}
}

// Assemble builds the envelope for resp. A serialized response at or above
// the threshold is stored in the blob store; the envelope then carries an
// empty response and the storage key in the X-Content-Key header.
func (a *Assembler) Assemble(ctx context.Context, correlationID string, resp *models.Response) Envelope {
	env := Envelope{
		Headers: map[string]string{models.HeaderCorrelationID: correlationID},
		Status:  resp.Status,
	}

	body, err := json.Marshal(resp)
	if err != nil {
		a.logger.Error("failed to serialize response",
			zap.String("correlation_id", correlationID),
			zap.Error(err))
		return a.failed(env, models.StatusOperationFailed, "response serialization failed")
	}

	if a.cfg.ThresholdBytes <= 0 || len(body) < a.cfg.ThresholdBytes {
		env.Value = body
		return env
	}

	if a.cfg.Bucket == "" || a.blobs == nil {
		a.logger.Error("response exceeds threshold but no overflow bucket is configured",
			zap.String("correlation_id", correlationID),
			zap.Int("size", len(body)))
		return a.failed(env, models.StatusInternalContractViolation, "overflow store not configured")
	}

	key := a.cfg.KeyPrefix + uuid.NewString()
	if err := a.blobs.PutContent(ctx, a.cfg.Bucket, key, string(body)); err != nil {
		a.logger.Error("failed to offload response",
			zap.String("correlation_id", correlationID),
			zap.String("key", key),
			zap.Int("size", len(body)),
			zap.Error(err))
		return a.failed(env, models.StatusThirdPartyServiceUnavailable, "overflow store unavailable")
	}

	a.logger.Debug("response offloaded",
		zap.String("correlation_id", correlationID),
		zap.String("key", key),
		zap.Int("size", len(body)))

	env.Value, _ = json.Marshal(models.Response{})
	env.Headers[models.HeaderContentKey] = key
	return env
}

// failed replaces the original response, which is dropped
func (a *Assembler) failed(env Envelope, status models.Status, details string) Envelope {
	env.Value, _ = json.Marshal(models.Failed(status, details))
	env.Status = status
	return env
}
