package middleware

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/upb/entitybus/models"
)

func TestRequestContext(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, models.RequestContext{}, GetRequestContextFromContext(ctx))
	assert.Empty(t, GetCorrelationIDFromContext(ctx))

	rc := models.RequestContext{SourceSystem: "crm", CorrelationID: "c-1"}
	ctx = WithRequestContext(ctx, rc)

	assert.Equal(t, rc, GetRequestContextFromContext(ctx))
	assert.Equal(t, "c-1", GetCorrelationIDFromContext(ctx))
}

func TestClaims(t *testing.T) {
	_, ok := GetClaimsFromContext(context.Background())
	assert.False(t, ok)

	claims := models.Claims{UserID: "u", Roles: []string{"r"}}
	got, ok := GetClaimsFromContext(WithClaims(context.Background(), claims))
	assert.True(t, ok)
	assert.Equal(t, claims, got)
}

func TestOperation(t *testing.T) {
	assert.Empty(t, GetOperationFromContext(context.Background()))
	assert.Equal(t, "create", GetOperationFromContext(WithOperation(context.Background(), "create")))
}

func TestNewCorrelationID(t *testing.T) {
	id := NewCorrelationID()
	_, err := uuid.Parse(id)
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewCorrelationID())
}
