// Package monitoring - telemetry.go records events to JSONL files.
//
// DESIGN: Tracker writes one JSON object per line, appended immediately after
// each event so the file is tailable in real time. Telemetry never carries
// message content or credentials; it is identifiers, counters, and outcomes.
package monitoring

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RequestEvent is one chat call through the gateway.
type RequestEvent struct {
	Timestamp       time.Time `json:"timestamp"`
	RequestID       string    `json:"request_id"`
	CallerID        string    `json:"caller_id"`
	Model           string    `json:"model"`
	RequestedModel  string    `json:"requested_model,omitempty"`
	Streamed        bool      `json:"streamed"`
	UsedByok        bool      `json:"used_byok"`
	InputTokens     int       `json:"input_tokens"`
	OutputTokens    int       `json:"output_tokens"`
	EstimatedUsage  bool      `json:"estimated_usage,omitempty"`
	CostSats        int64     `json:"cost_sats"`
	ActionCount     int       `json:"action_count"`
	DurationMS      int64     `json:"duration_ms"`
	Success         bool      `json:"success"`
	ErrorKind       string    `json:"error_kind,omitempty"`
	QuotaRemaining  int       `json:"quota_remaining"`
	ContextIncluded bool      `json:"context_included"`
}

// Tracker handles telemetry event recording to a JSONL file.
type Tracker struct {
	path  string
	count int
	mu    sync.Mutex
}

// NewTracker creates a tracker writing to path. An empty path disables
// telemetry.
func NewTracker(path string) (*Tracker, error) {
	t := &Tracker{path: path}
	if path == "" {
		return t, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if f, err := os.Create(path); err == nil {
			_ = f.Close()
		}
	}
	return t, nil
}

// appendJSONL appends a single JSON object as a line to the file.
func appendJSONL(path string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	_, err = f.Write(data)
	return err
}

// RecordRequest records a request event.
func (t *Tracker) RecordRequest(event *RequestEvent) {
	if t.path == "" || event == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := appendJSONL(t.path, event); err != nil {
		log.Error().Err(err).Str("path", t.path).Msg("telemetry: failed to write request event")
	} else {
		t.count++
	}
}

// Close logs a session summary.
func (t *Tracker) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.path != "" && t.count > 0 {
		log.Info().
			Str("path", t.path).
			Int("events", t.count).
			Msg("telemetry: session complete")
	}
	return nil
}
