// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes:  Total and successful chat calls
//   - streamed:            Calls served over a streaming transport
//   - quota_rejections:    Calls blocked by the daily free quota
//   - byok:                Calls funded by a caller credential
//   - actions:             Suggestions extracted from model output
//   - tokens:              Billed input/output token totals
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	// Request counters
	requests        atomic.Int64
	successes       atomic.Int64
	streamed        atomic.Int64
	quotaRejections atomic.Int64
	byokCalls       atomic.Int64

	// Outcome counters
	actionsExtracted atomic.Int64
	costSats         atomic.Int64

	// Token counters from upstream usage reports
	totalInputTokens  atomic.Int64
	totalOutputTokens atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		startedAt: time.Now(),
	}
}

// RecordRequest records one chat call.
func (mc *MetricsCollector) RecordRequest(success, streamed, byok bool) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
	if streamed {
		mc.streamed.Add(1)
	}
	if byok {
		mc.byokCalls.Add(1)
	}
}

// RecordQuotaRejection records a call blocked by the daily quota.
func (mc *MetricsCollector) RecordQuotaRejection() { mc.quotaRejections.Add(1) }

// RecordActions records extracted action suggestions.
func (mc *MetricsCollector) RecordActions(n int) { mc.actionsExtracted.Add(int64(n)) }

// RecordUsage records billed token usage and its satoshi cost.
func (mc *MetricsCollector) RecordUsage(inputTokens, outputTokens int, costSats int64) {
	mc.totalInputTokens.Add(int64(inputTokens))
	mc.totalOutputTokens.Add(int64(outputTokens))
	mc.costSats.Add(costSats)
}

// StartedAt returns when the metrics collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// FullStats returns all metrics in a structured format for the /stats endpoint.
func (mc *MetricsCollector) FullStats() StatsResponse {
	uptime := time.Since(mc.startedAt)
	requests := mc.requests.Load()
	successes := mc.successes.Load()

	return StatsResponse{
		Uptime:        formatDuration(uptime),
		UptimeSeconds: int64(uptime.Seconds()),
		StartedAt:     mc.startedAt.Format(time.RFC3339),
		Requests: RequestStats{
			Total:           requests,
			Successful:      successes,
			Failed:          requests - successes,
			Streamed:        mc.streamed.Load(),
			QuotaRejections: mc.quotaRejections.Load(),
			ByokCalls:       mc.byokCalls.Load(),
		},
		Tokens: TokenStats{
			InputTokens:  mc.totalInputTokens.Load(),
			OutputTokens: mc.totalOutputTokens.Load(),
			CostSats:     mc.costSats.Load(),
		},
		Actions: ActionStats{
			Extracted: mc.actionsExtracted.Load(),
		},
	}
}

// StatsResponse is the structured response for the /stats endpoint.
type StatsResponse struct {
	Uptime        string       `json:"uptime"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartedAt     string       `json:"started_at"`
	Requests      RequestStats `json:"requests"`
	Tokens        TokenStats   `json:"tokens"`
	Actions       ActionStats  `json:"actions"`
}

// RequestStats holds request count metrics.
type RequestStats struct {
	Total           int64 `json:"total"`
	Successful      int64 `json:"successful"`
	Failed          int64 `json:"failed"`
	Streamed        int64 `json:"streamed"`
	QuotaRejections int64 `json:"quota_rejections"`
	ByokCalls       int64 `json:"byok_calls"`
}

// TokenStats holds billed token totals.
type TokenStats struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	CostSats     int64 `json:"cost_sats"`
}

// ActionStats holds suggestion extraction metrics.
type ActionStats struct {
	Extracted int64 `json:"extracted"`
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
