package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPVerifier validates tokens against the platform session service.
type HTTPVerifier struct {
	verifyURL string
	client    *http.Client
}

// NewHTTPVerifier creates a verifier that calls verifyURL.
func NewHTTPVerifier(verifyURL string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		verifyURL: verifyURL,
		client:    &http.Client{Timeout: timeout},
	}
}

// Verify implements Verifier. Any non-200 from the session service is an
// invalid token; transport failures are returned as-is so they surface as
// internal errors rather than 401s.
func (v *HTTPVerifier) Verify(ctx context.Context, token string) (Caller, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.verifyURL, nil)
	if err != nil {
		return Caller{}, fmt.Errorf("verify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return Caller{}, fmt.Errorf("session service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Caller{}, ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Caller{}, fmt.Errorf("session service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Caller{}, fmt.Errorf("session service decode: %w", err)
	}
	if out.UserID == "" {
		return Caller{}, ErrInvalidToken
	}
	return Caller{ID: out.UserID}, nil
}
