// Package signature calls the remote service that verifies digital seals
// over request payloads.
package signature

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// ErrVerifierUnavailable is returned when the verification service cannot
// be reached or answers with a server error.
var ErrVerifierUnavailable = errors.New("signature verifier unavailable")

// VerifyRequest is the body posted to the verification service
type VerifyRequest struct {
	Content   string `json:"content"`
	Signature string `json:"signature"`
}

// VerifyResponse is the verification service answer
type VerifyResponse struct {
	Valid   bool   `json:"valid"`
	Message string `json:"message,omitempty"`
}

// Config holds configuration for Client
type Config struct {
	URL     string
	Timeout time.Duration
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("signature: verifier URL is required")
	}
	return nil
}

// Client verifies payloads against reference signatures
type Client struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a verification client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		url:        cfg.URL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}, nil
}

// Verify reports whether reference is a valid signature over content.
// A 4xx answer other than 404 is read as "invalid"; transport failures and
// 5xx answers return ErrVerifierUnavailable.
func (c *Client) Verify(ctx context.Context, content []byte, reference string) (bool, error) {
	body, err := json.Marshal(VerifyRequest{Content: string(content), Signature: reference})
	if err != nil {
		return false, fmt.Errorf("signature: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("signature: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrVerifierUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= http.StatusInternalServerError, resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, fmt.Errorf("%w: HTTP %d", ErrVerifierUnavailable, resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug("signature rejected by verifier", zap.Int("status_code", resp.StatusCode))
		return false, nil
	}

	var out VerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("%w: failed to decode response: %v", ErrVerifierUnavailable, err)
	}
	if !out.Valid {
		c.logger.Debug("signature invalid", zap.String("message", out.Message))
	}
	return out.Valid, nil
}
