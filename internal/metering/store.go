// Package metering tracks per-caller daily usage for platform-funded calls.
//
// DESIGN: One sqlite row per (caller, UTC day). CheckQuota is a plain read;
// Consume is a single UPSERT increment, so concurrent consumes never
// under-count. The check/consume pair is deliberately non-transactional:
// concurrent requests from one caller can slightly over-admit, which fails
// safe toward stricter enforcement. Counters only grow within a day; a new
// day starts a new row.
package metering

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS usage_daily (
	caller_id  TEXT NOT NULL,
	day        TEXT NOT NULL,
	requests   INTEGER NOT NULL DEFAULT 0,
	tokens     INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (caller_id, day)
);`

// Limits are the daily allowances for platform-funded callers.
// TokensPerDay of zero disables the token cap.
type Limits struct {
	MessagesPerDay int
	TokensPerDay   int
}

// QuotaStatus answers "can this caller call again" plus the metadata the
// gateway reports in headers and userStatus.
type QuotaStatus struct {
	Allowed    bool
	DailyLimit int
	Remaining  int
	UsedTokens int
	ResetAt    time.Time
}

// Store is the sqlite-backed usage metering store.
type Store struct {
	db     *sql.DB
	limits Limits

	// now is swappable for tests.
	now func() time.Time
}

// Open opens (creating if needed) the metering database at path.
// Use ":memory:" for tests.
func Open(path string, limits Limits) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metering db: %w", err)
	}
	// modernc sqlite serializes best over a single connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("configure metering db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init metering schema: %w", err)
	}

	return &Store{db: db, limits: limits, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Limits returns the configured daily limits.
func (s *Store) Limits() Limits {
	return s.limits
}

// CheckQuota reports whether callerID may make another platform-funded call
// today. It never mutates state.
func (s *Store) CheckQuota(ctx context.Context, callerID string) (QuotaStatus, error) {
	now := s.now().UTC()
	status := QuotaStatus{
		DailyLimit: s.limits.MessagesPerDay,
		ResetAt:    nextUTCMidnight(now),
	}

	requests, tokens, err := s.usageForDay(ctx, callerID, dayKey(now))
	if err != nil {
		return status, err
	}

	status.UsedTokens = tokens
	status.Remaining = s.limits.MessagesPerDay - requests
	if status.Remaining < 0 {
		status.Remaining = 0
	}

	status.Allowed = requests < s.limits.MessagesPerDay
	if s.limits.TokensPerDay > 0 && tokens >= s.limits.TokensPerDay {
		status.Allowed = false
	}
	return status, nil
}

// Consume records requests and tokens against today's counters. Called only
// after a successful upstream response, with actual reported token counts.
func (s *Store) Consume(ctx context.Context, callerID string, requests, tokens int) error {
	if requests < 0 || tokens < 0 {
		return errors.New("metering: negative consumption")
	}
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_daily (caller_id, day, requests, tokens, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(caller_id, day) DO UPDATE SET
			requests   = requests + excluded.requests,
			tokens     = tokens + excluded.tokens,
			updated_at = excluded.updated_at`,
		callerID, dayKey(now), requests, tokens, now.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("metering consume: %w", err)
	}
	return nil
}

// UsageToday returns today's counters for callerID.
func (s *Store) UsageToday(ctx context.Context, callerID string) (requests, tokens int, err error) {
	return s.usageForDay(ctx, callerID, dayKey(s.now().UTC()))
}

func (s *Store) usageForDay(ctx context.Context, callerID, day string) (int, int, error) {
	var requests, tokens int
	err := s.db.QueryRowContext(ctx,
		`SELECT requests, tokens FROM usage_daily WHERE caller_id = ? AND day = ?`,
		callerID, day).Scan(&requests, &tokens)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("metering read: %w", err)
	}
	return requests, tokens, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func nextUTCMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}
