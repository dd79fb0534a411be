// Package auth resolves the calling user from request credentials.
//
// DESIGN: The gateway never mints identity itself; tokens are verified
// against the platform's session service. Verification results are opaque to
// the rest of the gateway: downstream code only ever sees a Caller.
package auth

import (
	"context"
	"errors"
)

// Caller is the verified identity attached to a request.
type Caller struct {
	ID string
}

// ErrInvalidToken means the credential was present but did not verify.
var ErrInvalidToken = errors.New("auth: invalid token")

// Verifier checks a bearer token and returns the caller it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (Caller, error)
}

type callerKey struct{}

// WithCaller returns ctx with the caller attached.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller attached to ctx, if any.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
