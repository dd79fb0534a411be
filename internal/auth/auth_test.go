package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionService(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Header.Get("Authorization") {
		case "Bearer good-token":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"user_id": "caller-1"}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
		}
	}))
}

func TestHTTPVerifier_ValidToken(t *testing.T) {
	srv := sessionService(t)
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, 2*time.Second)
	caller, err := v.Verify(context.Background(), "good-token")
	require.NoError(t, err)
	assert.Equal(t, "caller-1", caller.ID)
}

func TestHTTPVerifier_InvalidToken(t *testing.T) {
	srv := sessionService(t)
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, 2*time.Second)
	_, err := v.Verify(context.Background(), "bad-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestHTTPVerifier_ServiceDownIsNotInvalidToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	v := NewHTTPVerifier(srv.URL, 2*time.Second)
	_, err := v.Verify(context.Background(), "good-token")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidToken)
}

type staticVerifier struct{ caller Caller }

func (s staticVerifier) Verify(_ context.Context, token string) (Caller, error) {
	if token == "good-token" {
		return s.caller, nil
	}
	return Caller{}, ErrInvalidToken
}

func TestMiddleware_AttachesCaller(t *testing.T) {
	var got Caller
	handler := Middleware(staticVerifier{Caller{ID: "caller-1"}}, func(w http.ResponseWriter, _ *http.Request, _ error) {
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = CallerFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/assistant/chat", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "caller-1", got.ID)
}

func TestMiddleware_MissingTokenRejected(t *testing.T) {
	handler := Middleware(staticVerifier{}, func(w http.ResponseWriter, _ *http.Request, err error) {
		assert.ErrorIs(t, err, ErrInvalidToken)
		w.WriteHeader(http.StatusUnauthorized)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run without a caller")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/assistant/chat", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
