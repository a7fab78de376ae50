package validation

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/entitybus/keycloak"
	"github.com/upb/entitybus/models"
	"github.com/upb/entitybus/repositories"
	"github.com/upb/entitybus/repositories/memory"
	"go.uber.org/zap"
)

type MockTokenValidator struct {
	mock.Mock
}

func (m *MockTokenValidator) ValidateToken(ctx context.Context, token string) (models.Claims, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(models.Claims), args.Error(1)
}

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(ctx context.Context, content []byte, reference string) (bool, error) {
	args := m.Called(ctx, content, reference)
	return args.Bool(0), args.Error(1)
}

type failingBlobStore struct{}

func (failingBlobStore) PutContent(context.Context, string, string, string) error {
	return repositories.ErrBlobUnavailable
}

func (failingBlobStore) GetContent(context.Context, string, string) (string, bool, error) {
	return "", false, fmt.Errorf("%w: connection refused", repositories.ErrBlobUnavailable)
}

var testClaims = models.Claims{UserID: "user", DisplayName: "User", Roles: []string{"editor"}}

func TestTokenCheck(t *testing.T) {
	tests := []struct {
		name       string
		token      string
		err        error
		wantValid  bool
		wantStatus models.Status
	}{
		{name: "valid", token: "t", wantValid: true, wantStatus: models.StatusOK},
		{name: "missing", token: "", wantStatus: models.StatusJWTInvalid},
		{name: "invalid", token: "t", err: keycloak.ErrInvalidToken, wantStatus: models.StatusJWTInvalid},
		{name: "unknown realm", token: "t", err: fmt.Errorf("%w: %w", keycloak.ErrInvalidToken, keycloak.ErrUnknownRealm), wantStatus: models.StatusJWTInvalid},
		{name: "expired", token: "t", err: keycloak.ErrTokenExpired, wantStatus: models.StatusJWTExpired},
		{name: "issuer unreachable", token: "t", err: keycloak.ErrJWKSFetchFailed, wantStatus: models.StatusThirdPartyServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			validator := new(MockTokenValidator)
			if tt.token != "" {
				claims := models.Claims{}
				if tt.err == nil {
					claims = testClaims
				}
				validator.On("ValidateToken", mock.Anything, tt.token).Return(claims, tt.err)
			}

			check := NewTokenCheck(validator, zap.NewNop())
			r := check.Run(context.Background(), Input{Security: models.SecurityContext{AccessToken: tt.token}})

			assert.Equal(t, tt.wantValid, r.Valid)
			assert.Equal(t, tt.wantStatus, r.Status)
			if tt.wantValid {
				assert.Equal(t, testClaims, r.Claims)
			} else {
				assert.Empty(t, r.Claims.UserID)
			}
			validator.AssertExpectations(t)
		})
	}
}

func TestSignatureCheck(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"name":"a"}`)

	store := memory.NewBlobStore()
	require.NoError(t, store.PutContent(ctx, "signatures", "seal-1", "ref"))

	tests := []struct {
		name       string
		cfg        SignatureCheckConfig
		blobs      repositories.BlobStore
		contentKey string
		verify     func(m *MockVerifier)
		wantValid  bool
		wantStatus models.Status
	}{
		{
			name:       "disabled",
			cfg:        SignatureCheckConfig{Enabled: false},
			blobs:      store,
			wantValid:  true,
			wantStatus: models.StatusOK,
		},
		{
			name:       "missing content key",
			cfg:        SignatureCheckConfig{Enabled: true, Bucket: "signatures"},
			blobs:      store,
			wantStatus: models.StatusInternalContractViolation,
		},
		{
			name:       "reference not stored",
			cfg:        SignatureCheckConfig{Enabled: true, Bucket: "signatures"},
			blobs:      store,
			contentKey: "seal-404",
			wantStatus: models.StatusInternalContractViolation,
		},
		{
			name:       "no bucket",
			cfg:        SignatureCheckConfig{Enabled: true},
			blobs:      store,
			contentKey: "seal-1",
			wantStatus: models.StatusInternalContractViolation,
		},
		{
			name:       "store unavailable",
			cfg:        SignatureCheckConfig{Enabled: true, Bucket: "signatures"},
			blobs:      failingBlobStore{},
			contentKey: "seal-1",
			wantStatus: models.StatusThirdPartyServiceUnavailable,
		},
		{
			name:       "verifier unavailable",
			cfg:        SignatureCheckConfig{Enabled: true, Bucket: "signatures"},
			blobs:      store,
			contentKey: "seal-1",
			verify: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, payload, "ref").Return(false, errors.New("connection refused"))
			},
			wantStatus: models.StatusThirdPartyServiceUnavailable,
		},
		{
			name:       "invalid",
			cfg:        SignatureCheckConfig{Enabled: true, Bucket: "signatures"},
			blobs:      store,
			contentKey: "seal-1",
			verify: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, payload, "ref").Return(false, nil)
			},
			wantStatus: models.StatusInvalidSignature,
		},
		{
			name:       "valid",
			cfg:        SignatureCheckConfig{Enabled: true, Bucket: "signatures"},
			blobs:      store,
			contentKey: "seal-1",
			verify: func(m *MockVerifier) {
				m.On("Verify", mock.Anything, payload, "ref").Return(true, nil)
			},
			wantValid:  true,
			wantStatus: models.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verifier := new(MockVerifier)
			if tt.verify != nil {
				tt.verify(verifier)
			}

			check := NewSignatureCheck(tt.cfg, tt.blobs, verifier, zap.NewNop())
			r := check.Run(ctx, Input{ContentKey: tt.contentKey, Payload: payload})

			assert.Equal(t, tt.wantValid, r.Valid)
			assert.Equal(t, tt.wantStatus, r.Status)
			verifier.AssertExpectations(t)
		})
	}
}

type stubCheck struct {
	name   string
	result Result
	calls  int
}

func (s *stubCheck) Name() string { return s.name }

func (s *stubCheck) Run(context.Context, Input) Result {
	s.calls++
	return s.result
}

func TestChain_ShortCircuits(t *testing.T) {
	first := &stubCheck{name: "token", result: Result{Status: models.StatusJWTExpired, Details: "access token expired"}}
	second := &stubCheck{name: "signature", result: valid()}

	r := NewChain(zap.NewNop(), first, second).Validate(context.Background(), Input{})

	assert.False(t, r.Valid)
	assert.Equal(t, models.StatusJWTExpired, r.Status)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)

	err := r.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_EXPIRED")
}

func TestChain_CarriesClaims(t *testing.T) {
	first := &stubCheck{name: "token", result: Result{Valid: true, Status: models.StatusOK, Claims: testClaims}}
	second := &stubCheck{name: "signature", result: valid()}

	r := NewChain(zap.NewNop(), first, second).Validate(context.Background(), Input{})

	assert.True(t, r.Valid)
	assert.Equal(t, models.StatusOK, r.Status)
	assert.Equal(t, testClaims, r.Claims)
	assert.NoError(t, r.Err())
	assert.Equal(t, 1, second.calls)
}

func TestChain_SignatureFailureDropsClaims(t *testing.T) {
	first := &stubCheck{name: "token", result: Result{Valid: true, Status: models.StatusOK, Claims: testClaims}}
	second := &stubCheck{name: "signature", result: Result{Status: models.StatusInvalidSignature}}

	r := NewChain(zap.NewNop(), first, second).Validate(context.Background(), Input{})

	assert.False(t, r.Valid)
	assert.Equal(t, models.StatusInvalidSignature, r.Status)
	assert.Empty(t, r.Claims.UserID)
}
