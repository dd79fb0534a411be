package monitoring

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountsAggregate(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordRequest(true, false, false)
	mc.RecordRequest(true, true, true)
	mc.RecordRequest(false, false, false)
	mc.RecordQuotaRejection()
	mc.RecordActions(2)
	mc.RecordUsage(100, 40, 7)
	mc.RecordUsage(50, 10, 0)

	stats := mc.FullStats()
	assert.Equal(t, int64(3), stats.Requests.Total)
	assert.Equal(t, int64(2), stats.Requests.Successful)
	assert.Equal(t, int64(1), stats.Requests.Failed)
	assert.Equal(t, int64(1), stats.Requests.Streamed)
	assert.Equal(t, int64(1), stats.Requests.QuotaRejections)
	assert.Equal(t, int64(1), stats.Requests.ByokCalls)
	assert.Equal(t, int64(150), stats.Tokens.InputTokens)
	assert.Equal(t, int64(50), stats.Tokens.OutputTokens)
	assert.Equal(t, int64(7), stats.Tokens.CostSats)
	assert.Equal(t, int64(2), stats.Actions.Extracted)
}

func TestTracker_WritesJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry", "requests.jsonl")
	tr, err := NewTracker(path)
	require.NoError(t, err)

	tr.RecordRequest(&RequestEvent{RequestID: "req-1", CallerID: "caller-1", Model: "m", Success: true})
	tr.RecordRequest(&RequestEvent{RequestID: "req-2", CallerID: "caller-1", Model: "m", ErrorKind: "quota_exceeded"})
	require.NoError(t, tr.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	var events []RequestEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var ev RequestEvent
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &ev))
		events = append(events, ev)
	}
	require.Len(t, events, 2)
	assert.Equal(t, "req-1", events[0].RequestID)
	assert.True(t, events[0].Success)
	assert.WithinDuration(t, time.Now().UTC(), events[0].Timestamp, time.Minute)
	assert.Equal(t, "quota_exceeded", events[1].ErrorKind)
}

func TestTracker_DisabledWithoutPath(t *testing.T) {
	tr, err := NewTracker("")
	require.NoError(t, err)
	tr.RecordRequest(&RequestEvent{RequestID: "req-1"})
	assert.NoError(t, tr.Close())
}
