// Package gateway - errors.go maps internal failures onto the public error
// taxonomy.
//
// DESIGN: Every error leaving the gateway is one of a fixed set of kinds so
// clients can branch on kind instead of parsing messages. Upstream provider
// failures collapse to rate_limited (with retry metadata) or upstream_error;
// provider detail never leaks to callers. Metering write failures are not
// part of the taxonomy at all: the completion already happened, so they are
// logged and the response proceeds.
package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/auth"
	"github.com/satmarket/assistant-gateway/internal/metering"
	"github.com/satmarket/assistant-gateway/internal/relay"
)

// ErrorKind is the public error discriminator.
type ErrorKind string

const (
	ErrUnauthenticated ErrorKind = "unauthenticated"
	ErrInvalidRequest  ErrorKind = "invalid_request"
	ErrRateLimited     ErrorKind = "rate_limited"
	ErrQuotaExceeded   ErrorKind = "quota_exceeded"
	ErrNoCredential    ErrorKind = "no_credential_configured"
	ErrUpstream        ErrorKind = "upstream_error"
	ErrInternal        ErrorKind = "internal_error"
)

func (k ErrorKind) status() int {
	switch k {
	case ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrInvalidRequest:
		return http.StatusBadRequest
	case ErrRateLimited, ErrQuotaExceeded:
		return http.StatusTooManyRequests
	case ErrNoCredential:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// apiError is a classified failure ready for rendering.
type apiError struct {
	Kind    ErrorKind
	Message string

	// RetryAfter is set for rate_limited.
	RetryAfter time.Duration
	// Quota is set for quota_exceeded.
	Quota *metering.QuotaStatus
}

func (e *apiError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func errInvalid(format string, args ...any) *apiError {
	return &apiError{Kind: ErrInvalidRequest, Message: fmt.Sprintf(format, args...)}
}

// classifyError normalizes any error from the chat pipeline into an apiError.
func classifyError(err error) *apiError {
	var ae *apiError
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, auth.ErrInvalidToken) {
		return &apiError{Kind: ErrUnauthenticated, Message: "invalid or missing token"}
	}
	if errors.Is(err, relay.ErrTimeout) {
		return &apiError{Kind: ErrUpstream, Message: "model provider timed out"}
	}
	var ue *relay.UpstreamError
	if errors.As(err, &ue) {
		if ue.StatusCode == http.StatusTooManyRequests {
			return &apiError{
				Kind:       ErrRateLimited,
				Message:    "model provider is rate limiting, retry shortly",
				RetryAfter: 30 * time.Second,
			}
		}
		return &apiError{Kind: ErrUpstream, Message: "model provider request failed"}
	}
	return &apiError{Kind: ErrInternal, Message: "internal error"}
}

// errorBody is the flat JSON error shape: message, machine code, and
// optional quota details.
type errorBody struct {
	Error   string      `json:"error"`
	Code    ErrorKind   `json:"code"`
	Details *quotaField `json:"details,omitempty"`
}

type quotaField struct {
	DailyLimit int    `json:"dailyLimit"`
	Remaining  int    `json:"remaining"`
	ResetAt    string `json:"resetAt"`
}

func renderError(err error) (int, errorBody, http.Header) {
	ae := classifyError(err)
	headers := http.Header{}

	body := errorBody{Error: ae.Message, Code: ae.Kind}
	switch {
	case ae.Kind == ErrQuotaExceeded && ae.Quota != nil:
		q := ae.Quota
		body.Details = &quotaField{
			DailyLimit: q.DailyLimit,
			Remaining:  q.Remaining,
			ResetAt:    q.ResetAt.Format(time.RFC3339),
		}
		headers.Set("X-RateLimit-Limit", strconv.Itoa(q.DailyLimit))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(q.ResetAt.Unix(), 10))
		headers.Set("Retry-After", strconv.FormatInt(int64(time.Until(q.ResetAt).Seconds())+1, 10))
	case ae.Kind == ErrRateLimited && ae.RetryAfter > 0:
		headers.Set("Retry-After", strconv.FormatInt(int64(ae.RetryAfter.Seconds()), 10))
	}

	return ae.Kind.status(), body, headers
}

// writeError renders err as a JSON error response.
func (g *Gateway) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body, headers := renderError(err)

	if status >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	}

	for k, vs := range headers {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
