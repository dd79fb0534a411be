package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPKeyStore reads stored caller credentials from the platform key
// service. The service holds keys encrypted at rest and returns them
// decrypted over an internal, authenticated channel.
type HTTPKeyStore struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPKeyStore creates a key service client.
func NewHTTPKeyStore(baseURL, token string, timeout time.Duration) *HTTPKeyStore {
	return &HTTPKeyStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// GetDecryptedKey implements KeyStore. A 404 from the service is the normal
// "no stored key" state.
func (ks *HTTPKeyStore) GetDecryptedKey(ctx context.Context, callerID string) (string, error) {
	u := ks.baseURL + "/internal/keys/" + url.PathEscape(callerID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("key service request: %w", err)
	}
	if ks.token != "" {
		req.Header.Set("Authorization", "Bearer "+ks.token)
	}

	resp, err := ks.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("key service: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return "", ErrNoKey
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("key service status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("key service decode: %w", err)
	}
	if out.Key == "" {
		return "", ErrNoKey
	}
	return out.Key, nil
}
