package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/upb/entitybus/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestContextKey is the context key for the provenance of the message being handled
	RequestContextKey contextKey = "request_context"

	// ClaimsKey is the context key for the caller's claims
	ClaimsKey contextKey = "claims"

	// OperationKey is the context key for the dispatched operation name
	OperationKey contextKey = "operation"
)

// NewCorrelationID generates an id for messages that arrive without one
func NewCorrelationID() string {
	return uuid.NewString()
}

// GetRequestContextFromContext retrieves message provenance from context
func GetRequestContextFromContext(ctx context.Context) models.RequestContext {
	if val := ctx.Value(RequestContextKey); val != nil {
		if rc, ok := val.(models.RequestContext); ok {
			return rc
		}
	}
	return models.RequestContext{}
}

// WithRequestContext adds message provenance to the context
func WithRequestContext(ctx context.Context, rc models.RequestContext) context.Context {
	return context.WithValue(ctx, RequestContextKey, rc)
}

// GetCorrelationIDFromContext retrieves the correlation id from context
func GetCorrelationIDFromContext(ctx context.Context) string {
	return GetRequestContextFromContext(ctx).CorrelationID
}

// GetClaimsFromContext retrieves the caller's claims from context
func GetClaimsFromContext(ctx context.Context) (models.Claims, bool) {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(models.Claims); ok {
			return claims, true
		}
	}
	return models.Claims{}, false
}

// WithClaims adds the caller's claims to the context
func WithClaims(ctx context.Context, claims models.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetOperationFromContext retrieves the operation name from context
func GetOperationFromContext(ctx context.Context) string {
	if val := ctx.Value(OperationKey); val != nil {
		if op, ok := val.(string); ok {
			return op
		}
	}
	return ""
}

// WithOperation adds the operation name to the context
func WithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, OperationKey, op)
}
