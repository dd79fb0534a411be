// Package credentials decides which upstream credential funds a call.
//
// DESIGN: Per-request transient keys always outrank stored ones, and a
// transient key skips the storage lookup entirely. Stored keys live behind
// the KeyStore interface; this subsystem only ever reads them. Having no key
// at all is a normal state, not an error — it routes the call onto the
// shared platform credential and activates quota enforcement downstream.
package credentials

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/satmarket/assistant-gateway/internal/utils"
)

// ErrNoKey is returned by KeyStore implementations when the caller has no
// stored credential.
var ErrNoKey = errors.New("credentials: no stored key")

// KeyStore looks up a caller's stored provider credential, decrypted.
// Encryption at rest is the collaborator's concern.
type KeyStore interface {
	GetDecryptedKey(ctx context.Context, callerID string) (string, error)
}

// Source records where a resolved credential came from.
type Source string

const (
	SourceTransient Source = "transient"
	SourceStored    Source = "stored"
	SourceNone      Source = "none"
)

// Resolution is the outcome of credential resolution for one request.
type Resolution struct {
	// Key is the upstream API key to present, empty when none.
	Key string
	// Personal is true when the caller funds the call themselves (BYOK).
	Personal bool
	Source   Source
}

// Resolver resolves the funding credential for a request.
type Resolver struct {
	store KeyStore
}

// NewResolver creates a resolver over store. A nil store means no stored
// credentials exist (every caller is platform-funded unless they send a
// transient key).
func NewResolver(store KeyStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve picks the credential for this request. A non-empty transientKey
// wins immediately and is never persisted.
func (r *Resolver) Resolve(ctx context.Context, callerID, transientKey string) (Resolution, error) {
	if transientKey != "" {
		log.Debug().
			Str("caller", callerID).
			Str("key", utils.MaskKey(transientKey)).
			Msg("using transient credential")
		return Resolution{Key: transientKey, Personal: true, Source: SourceTransient}, nil
	}

	if r.store == nil {
		return Resolution{Source: SourceNone}, nil
	}

	key, err := r.store.GetDecryptedKey(ctx, callerID)
	if errors.Is(err, ErrNoKey) {
		return Resolution{Source: SourceNone}, nil
	}
	if err != nil {
		return Resolution{}, err
	}
	if key == "" {
		return Resolution{Source: SourceNone}, nil
	}
	return Resolution{Key: key, Personal: true, Source: SourceStored}, nil
}
