// Package validation runs the checks every inbound message must pass
// before it reaches an entity handler.
package validation

import (
	"context"
	"errors"

	"github.com/upb/entitybus/keycloak"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/services"
	"go.uber.org/zap"
)

// Input is what the checks look at. Checks never modify it.
type Input struct {
	ContentKey string
	Security   models.SecurityContext
	Payload    []byte
}

// Result is the outcome of a check or of the whole chain
type Result struct {
	Valid   bool
	Status  models.Status
	Claims  models.Claims
	Details string
}

// Err converts a failed result to a domain error. It returns nil for valid results.
func (r Result) Err() error {
	if r.Valid {
		return nil
	}
	return services.NewDomainError(r.Status, r.Details, nil)
}

func valid() Result {
	return Result{Valid: true, Status: models.StatusOK}
}

func invalid(err *services.DomainError) Result {
	return Result{Status: err.Status, Details: err.Details}
}

// Check is one validation step
type Check interface {
	Name() string
	Run(ctx context.Context, in Input) Result
}

// TokenValidator verifies access tokens and extracts the caller's claims
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (models.Claims, error)
}

// SignatureVerifier verifies a payload against a reference signature
type SignatureVerifier interface {
	Verify(ctx context.Context, content []byte, reference string) (bool, error)
}

// Chain runs checks in order and stops at the first failure
type Chain struct {
	checks []Check
	logger *zap.Logger
}

// NewChain creates a chain. The order of checks is the order they run in.
func NewChain(logger *zap.Logger, checks ...Check) *Chain {
	return &Chain{checks: checks, logger: logger}
}

// Validate runs every check. The claims of the first check that produced
// any are carried in the result.
func (c *Chain) Validate(ctx context.Context, in Input) Result {
	out := valid()
	for _, check := range c.checks {
		r := check.Run(ctx, in)
		if !r.Valid {
			c.logger.Info("validation failed",
				zap.String("check", check.Name()),
				zap.String("status", r.Status.String()),
				zap.String("details", r.Details),
			)
			return Result{Status: r.Status, Details: r.Details}
		}
		if out.Claims.UserID == "" && r.Claims.UserID != "" {
			out.Claims = r.Claims
		}
	}
	return out
}

// TokenCheck validates the access token
type TokenCheck struct {
	validator TokenValidator
	logger    *zap.Logger
}

// NewTokenCheck creates a token check
func NewTokenCheck(validator TokenValidator, logger *zap.Logger) *TokenCheck {
	return &TokenCheck{validator: validator, logger: logger}
}

// Name implements Check
func (t *TokenCheck) Name() string { return "token" }

// Run implements Check
func (t *TokenCheck) Run(ctx context.Context, in Input) Result {
	if in.Security.AccessToken == "" {
		return invalid(services.ErrInvalidToken)
	}

	claims, err := t.validator.ValidateToken(ctx, in.Security.AccessToken)
	if err != nil {
		switch {
		case errors.Is(err, keycloak.ErrJWKSFetchFailed):
			t.logger.Warn("token issuer keys unavailable", zap.Error(err))
			return invalid(services.ThirdPartyUnavailable("token issuer unavailable", err))
		case errors.Is(err, keycloak.ErrTokenExpired):
			return invalid(services.ErrTokenExpired)
		default:
			t.logger.Debug("token rejected", zap.Error(err))
			return invalid(services.ErrInvalidToken)
		}
	}

	return Result{Valid: true, Status: models.StatusOK, Claims: claims}
}

// SignatureCheck verifies the payload against the reference signature
// stored under the message content key.
type SignatureCheck struct {
	enabled  bool
	bucket   string
	blobs    repositories.BlobStore
	verifier SignatureVerifier
	logger   *zap.Logger
}

// SignatureCheckConfig holds configuration for SignatureCheck
type SignatureCheckConfig struct {
	Enabled bool
	Bucket  string
}

// NewSignatureCheck creates a signature check
func NewSignatureCheck(cfg SignatureCheckConfig, blobs repositories.BlobStore, verifier SignatureVerifier, logger *zap.Logger) *SignatureCheck {
	return &SignatureCheck{
		enabled:  cfg.Enabled,
		bucket:   cfg.Bucket,
		blobs:    blobs,
		verifier: verifier,
		logger:   logger,
	}
}

// Name implements Check
func (s *SignatureCheck) Name() string { return "signature" }

// Run implements Check
func (s *SignatureCheck) Run(ctx context.Context, in Input) Result {
	if !s.enabled {
		return valid()
	}
	if s.bucket == "" {
		return invalid(services.ContractViolation("signature bucket not configured"))
	}
	if in.ContentKey == "" {
		return invalid(services.ContractViolation("missing content key"))
	}

	reference, found, err := s.blobs.GetContent(ctx, s.bucket, in.ContentKey)
	if err != nil {
		s.logger.Warn("signature store unavailable", zap.String("content_key", in.ContentKey), zap.Error(err))
		return invalid(services.ThirdPartyUnavailable("signature store unavailable", err))
	}
	if !found || reference == "" {
		return invalid(services.ContractViolation("reference signature not found"))
	}

	ok, err := s.verifier.Verify(ctx, in.Payload, reference)
	if err != nil {
		s.logger.Warn("signature verifier unavailable", zap.Error(err))
		return invalid(services.ThirdPartyUnavailable("signature verifier unavailable", err))
	}
	if !ok {
		return invalid(services.ErrInvalidSignature)
	}
	return valid()
}
