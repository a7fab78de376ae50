package keycloak

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/upb/entitybus/models"
)

var (
	// ErrInvalidToken is returned when the token is missing, malformed or fails verification
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired is returned when the token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrUnknownRealm is returned when the issuer is not one of the configured realms
	ErrUnknownRealm = errors.New("unknown realm")

	// ErrJWKSFetchFailed is returned when the realm keys cannot be retrieved
	ErrJWKSFetchFailed = errors.New("failed to fetch JWKS")
)

// JWKS represents the JSON Web Key Set
type JWKS struct {
	Keys []JWK `json:"keys"`
}

// JWK represents a JSON Web Key
type JWK struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// Claims are the Keycloak access token claims this service reads
type Claims struct {
	jwt.RegisteredClaims
	PreferredUsername string   `json:"preferred_username"`
	Name              string   `json:"name"`
	Roles             []string `json:"roles"`
	RealmAccess       struct {
		Roles []string `json:"roles"`
	} `json:"realm_access"`
}

// ToModel converts token claims to request claims
func (c *Claims) ToModel() models.Claims {
	display := c.Name
	if display == "" {
		display = c.PreferredUsername
	}
	return models.NewClaims(c.Subject, display, c.Roles, c.RealmAccess.Roles)
}

// Config holds configuration for Validator
type Config struct {
	BaseURL     string
	Realms      []string
	CacheTTL    time.Duration
	HTTPTimeout time.Duration
}

type jwksEntry struct {
	jwks    *JWKS
	expires time.Time
}

// Validator validates access tokens issued by any of the configured realms
type Validator struct {
	baseURL    string
	realms     map[string]struct{}
	httpClient *http.Client

	jwksCache    map[string]jwksEntry // by realm
	jwksCacheTTL time.Duration
	cacheMu      sync.RWMutex

	keyCache   map[string]*rsa.PublicKey // by realm + ":" + kid
	keyCacheMu sync.RWMutex
}

// NewValidator creates a new realm-aware token validator
func NewValidator(config Config) *Validator {
	if config.CacheTTL == 0 {
		config.CacheTTL = 1 * time.Hour
	}
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}

	realms := make(map[string]struct{}, len(config.Realms))
	for _, r := range config.Realms {
		realms[r] = struct{}{}
	}

	return &Validator{
		baseURL:      strings.TrimSuffix(config.BaseURL, "/"),
		realms:       realms,
		jwksCacheTTL: config.CacheTTL,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		jwksCache: make(map[string]jwksEntry),
		keyCache:  make(map[string]*rsa.PublicKey),
	}
}

// ValidateToken verifies tokenString and returns the caller's claims.
// A "Bearer " prefix is accepted.
func (v *Validator) ValidateToken(ctx context.Context, tokenString string) (models.Claims, error) {
	tokenString = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(tokenString), "Bearer "))
	if tokenString == "" {
		return models.Claims{}, fmt.Errorf("%w: missing token", ErrInvalidToken)
	}

	realm, err := v.realmOf(tokenString)
	if err != nil {
		return models.Claims{}, err
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512"}),
		jwt.WithIssuer(v.issuer(realm)),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, errors.New("kid header not found")
		}
		return v.getPublicKey(ctx, realm, kid)
	})

	if err != nil {
		switch {
		case errors.Is(err, ErrJWKSFetchFailed):
			return models.Claims{}, fmt.Errorf("%w: realm %s: %v", ErrJWKSFetchFailed, realm, err)
		case errors.Is(err, jwt.ErrTokenExpired):
			return models.Claims{}, ErrTokenExpired
		default:
			return models.Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
		}
	}
	if !token.Valid {
		return models.Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return models.Claims{}, fmt.Errorf("%w: missing sub", ErrInvalidToken)
	}

	return claims.ToModel(), nil
}

func (v *Validator) issuer(realm string) string {
	return v.baseURL + "/realms/" + realm
}

// realmOf reads the issuer from the unverified token and checks it names a configured realm
func (v *Validator) realmOf(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	unverified := &Claims{}
	if _, _, err := parser.ParseUnverified(tokenString, unverified); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	prefix := v.baseURL + "/realms/"
	if !strings.HasPrefix(unverified.Issuer, prefix) {
		return "", fmt.Errorf("%w: %w: issuer %q", ErrInvalidToken, ErrUnknownRealm, unverified.Issuer)
	}
	realm := strings.TrimPrefix(unverified.Issuer, prefix)
	if _, ok := v.realms[realm]; !ok {
		return "", fmt.Errorf("%w: %w: %q", ErrInvalidToken, ErrUnknownRealm, realm)
	}
	return realm, nil
}

// FetchJWKS fetches the key set of realm, using the cache while it is fresh
func (v *Validator) FetchJWKS(ctx context.Context, realm string) (*JWKS, error) {
	v.cacheMu.RLock()
	if e, ok := v.jwksCache[realm]; ok && time.Now().Before(e.expires) {
		v.cacheMu.RUnlock()
		return e.jwks, nil
	}
	v.cacheMu.RUnlock()

	url := v.issuer(realm) + "/protocol/openid-connect/certs"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrJWKSFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status code %d", ErrJWKSFetchFailed, resp.StatusCode)
	}

	var jwks JWKS
	if err := json.NewDecoder(resp.Body).Decode(&jwks); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrJWKSFetchFailed, err)
	}

	v.cacheMu.Lock()
	v.jwksCache[realm] = jwksEntry{jwks: &jwks, expires: time.Now().Add(v.jwksCacheTTL)}
	v.cacheMu.Unlock()

	return &jwks, nil
}

// getPublicKey retrieves the public key for kid. An unknown kid triggers
// one refetch of the realm key set to pick up rotated keys.
func (v *Validator) getPublicKey(ctx context.Context, realm, kid string) (*rsa.PublicKey, error) {
	cacheKey := realm + ":" + kid

	v.keyCacheMu.RLock()
	if key, exists := v.keyCache[cacheKey]; exists {
		v.keyCacheMu.RUnlock()
		return key, nil
	}
	v.keyCacheMu.RUnlock()

	jwk, err := v.findKey(ctx, realm, kid)
	if err != nil {
		return nil, err
	}
	if jwk == nil {
		v.invalidateRealm(realm)
		if jwk, err = v.findKey(ctx, realm, kid); err != nil {
			return nil, err
		}
	}
	if jwk == nil {
		return nil, fmt.Errorf("key with kid %s not found in JWKS of realm %s", kid, realm)
	}

	publicKey, err := jwkToRSAPublicKey(jwk)
	if err != nil {
		return nil, fmt.Errorf("failed to convert JWK to RSA public key: %w", err)
	}

	v.keyCacheMu.Lock()
	v.keyCache[cacheKey] = publicKey
	v.keyCacheMu.Unlock()

	return publicKey, nil
}

func (v *Validator) findKey(ctx context.Context, realm, kid string) (*JWK, error) {
	jwks, err := v.FetchJWKS(ctx, realm)
	if err != nil {
		return nil, err
	}
	for i := range jwks.Keys {
		if jwks.Keys[i].Kid == kid {
			return &jwks.Keys[i], nil
		}
	}
	return nil, nil
}

func (v *Validator) invalidateRealm(realm string) {
	v.cacheMu.Lock()
	defer v.cacheMu.Unlock()
	delete(v.jwksCache, realm)
}

// jwkToRSAPublicKey converts a JWK to an RSA public key
func jwkToRSAPublicKey(jwk *JWK) (*rsa.PublicKey, error) {
	if jwk.Kty != "" && jwk.Kty != "RSA" {
		return nil, fmt.Errorf("unsupported key type %s", jwk.Kty)
	}

	nBytes, err := base64.RawURLEncoding.DecodeString(jwk.N)
	if err != nil {
		return nil, fmt.Errorf("failed to decode modulus: %w", err)
	}

	eBytes, err := base64.RawURLEncoding.DecodeString(jwk.E)
	if err != nil {
		return nil, fmt.Errorf("failed to decode exponent: %w", err)
	}

	var e int
	for _, b := range eBytes {
		e = e*256 + int(b)
	}

	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(nBytes),
		E: e,
	}, nil
}

// InvalidateCache drops all cached key sets and keys
func (v *Validator) InvalidateCache() {
	v.cacheMu.Lock()
	v.jwksCache = make(map[string]jwksEntry)
	v.cacheMu.Unlock()

	v.keyCacheMu.Lock()
	v.keyCache = make(map[string]*rsa.PublicKey)
	v.keyCacheMu.Unlock()
}

// CacheStats reports how many realms and keys are cached
func (v *Validator) CacheStats() (realms, keys int) {
	v.cacheMu.RLock()
	realms = len(v.jwksCache)
	v.cacheMu.RUnlock()

	v.keyCacheMu.RLock()
	keys = len(v.keyCache)
	v.keyCacheMu.RUnlock()
	return realms, keys
}
