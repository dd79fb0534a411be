package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// ErrorWriter renders an auth failure in the transport's error format.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Middleware verifies the request's bearer token and attaches the caller to
// the context. Missing and invalid tokens are both reported as
// ErrInvalidToken through onError; verifier transport failures pass through
// unchanged.
func Middleware(verifier Verifier, onError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				onError(w, r, ErrInvalidToken)
				return
			}
			caller, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if !errors.Is(err, ErrInvalidToken) {
					log.Error().Err(err).Msg("token verification failed")
				}
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithCaller(r.Context(), caller)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
