// Package config - defaults.go centralizes magic numbers and default values.
//
// DESIGN: All default values that appear in multiple places should be defined
// here. This makes configuration more maintainable and auditable.
package config

import "time"

// =============================================================================
// TOKEN ESTIMATION
// =============================================================================

// TokenEstimateRatio is the approximate number of characters per token.
// Used for rough token counting when the tokenizer is unavailable.
const TokenEstimateRatio = 4

// =============================================================================
// QUOTA DEFAULTS
// =============================================================================

// DefaultFreeMessagesPerDay is the daily request allowance for callers
// funded by the shared platform credential.
const DefaultFreeMessagesPerDay = 10

// DefaultFreeTokensPerDay caps total tokens per day for platform-funded
// callers. Zero disables the token cap (request cap still applies).
const DefaultFreeTokensPerDay = 0

// =============================================================================
// RATE LIMITING
// =============================================================================

// DefaultRateLimitPerMinute is chat requests per minute per caller.
const DefaultRateLimitPerMinute = 20

// MaxRateLimitBuckets prevents memory exhaustion from too many caller buckets.
const MaxRateLimitBuckets = 10000

// =============================================================================
// HTTP AND NETWORKING
// =============================================================================

// MaxRequestBodySize is the maximum allowed request body (64KB is generous
// for a 10k-char message plus envelope).
const MaxRequestBodySize = 64 * 1024

// MaxMessageLength is the maximum chat message length in characters.
const MaxMessageLength = 10000

// DefaultUpstreamTimeout bounds a single upstream completion call.
const DefaultUpstreamTimeout = 120 * time.Second

// DefaultServerReadTimeout for the HTTP server.
const DefaultServerReadTimeout = 30 * time.Second

// DefaultServerWriteTimeout for the HTTP server (safe for streaming).
const DefaultServerWriteTimeout = 10 * time.Minute

// DefaultShutdownTimeout bounds graceful shutdown.
const DefaultShutdownTimeout = 10 * time.Second

// =============================================================================
// CONTEXT ASSEMBLY
// =============================================================================

// DefaultContextTokenBudget bounds the rendered caller-document block.
const DefaultContextTokenBudget = 1500

// DefaultContextMaxDocuments caps how many documents are rendered.
const DefaultContextMaxDocuments = 20

// =============================================================================
// COMPLETION DEFAULTS
// =============================================================================

// DefaultTemperature for upstream completion calls.
const DefaultTemperature = 0.7

// DefaultMaxHistoryTurns caps how many prior turns a request may carry.
const DefaultMaxHistoryTurns = 20

// AutoModelSentinel asks the gateway to pick a model on the caller's behalf.
const AutoModelSentinel = "auto"

// TransientKeyHeader carries a request-scoped upstream credential.
// Keys arriving this way are never persisted.
const TransientKeyHeader = "X-Provider-Key"
