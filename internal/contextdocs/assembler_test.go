package contextdocs

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satmarket/assistant-gateway/internal/utils"
)

type fakeDocs struct {
	docs []Document
	err  error
}

func (f *fakeDocs) ListDocuments(_ context.Context, _ string, limit int) ([]Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.docs) > limit {
		return f.docs[:limit], nil
	}
	return f.docs, nil
}

func TestBuild_EmptyWhenNoDocuments(t *testing.T) {
	a := NewAssembler(&fakeDocs{}, 1500, 20)
	assert.Empty(t, a.Build(context.Background(), "caller-1"))
}

func TestBuild_NilStoreDisabled(t *testing.T) {
	a := NewAssembler(nil, 1500, 20)
	assert.Empty(t, a.Build(context.Background(), "caller-1"))
}

func TestBuild_RendersTitlesAndContent(t *testing.T) {
	a := NewAssembler(&fakeDocs{docs: []Document{
		{ID: "d1", Title: "Shipping policy", Content: "Orders ship within 2 days."},
		{ID: "d2", Title: "Returns", Content: "30 day returns."},
	}}, 1500, 20)

	out := a.Build(context.Background(), "caller-1")
	assert.Contains(t, out, "### Shipping policy")
	assert.Contains(t, out, "Orders ship within 2 days.")
	assert.Contains(t, out, "### Returns")
}

func TestBuild_RespectsTokenBudget(t *testing.T) {
	big := strings.Repeat("lorem ipsum dolor sit amet ", 400)
	a := NewAssembler(&fakeDocs{docs: []Document{
		{ID: "d1", Title: "Huge", Content: big},
		{ID: "d2", Title: "Tail", Content: "should not appear"},
	}}, 200, 20)

	out := a.Build(context.Background(), "caller-1")
	assert.LessOrEqual(t, utils.EstimateTokens(out), 210, "budget overshoot")
	assert.NotContains(t, out, "should not appear")
}

func TestBuild_StorageErrorDegrades(t *testing.T) {
	a := NewAssembler(&fakeDocs{err: errors.New("disk gone")}, 1500, 20)
	assert.Empty(t, a.Build(context.Background(), "caller-1"))
}

func TestSQLiteStore_RoundTripAndOrdering(t *testing.T) {
	s, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	older := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 0, 10)
	require.NoError(t, s.PutDocument(ctx, "caller-1", Document{ID: "d1", Title: "Old", Content: "a", UpdatedAt: older}))
	require.NoError(t, s.PutDocument(ctx, "caller-1", Document{ID: "d2", Title: "New", Content: "b", UpdatedAt: newer}))
	require.NoError(t, s.PutDocument(ctx, "caller-2", Document{ID: "d3", Title: "Other", Content: "c", UpdatedAt: newer}))

	docs, err := s.ListDocuments(ctx, "caller-1", 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "New", docs[0].Title, "newest first")
	assert.Equal(t, "Old", docs[1].Title)
}

func TestSQLiteStore_UpsertReplaces(t *testing.T) {
	s, err := OpenSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.PutDocument(ctx, "caller-1", Document{ID: "d1", Title: "v1", Content: "x", UpdatedAt: now}))
	require.NoError(t, s.PutDocument(ctx, "caller-1", Document{ID: "d1", Title: "v2", Content: "y", UpdatedAt: now}))

	docs, err := s.ListDocuments(ctx, "caller-1", 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v2", docs[0].Title)
}
