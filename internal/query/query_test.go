package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/rblogdb/rblog/internal/idgen"
	"github.com/rblogdb/rblog/internal/spacelock"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/internal/write"
	"github.com/rblogdb/rblog/model"
	"github.com/stretchr/testify/require"
)

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func newTestEngine(t *testing.T) (*Engine, *write.Pipeline) {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/query.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := &write.Pipeline{
		Store:       s,
		Locks:       spacelock.New(),
		IDGenerator: idgen.Counter("evt"),
	}
	return &Engine{Store: s}, p
}

func writeN(t *testing.T, p *write.Pipeline, spaceID string, n int, typ model.EventType) []model.Event {
	t.Helper()
	ctx := context.Background()
	events := make([]model.Event, 0, n)
	for i := 0; i < n; i++ {
		evt, err := p.WriteEvent(ctx, model.EventInput{
			Type:      typ,
			SpaceID:   spaceID,
			Timestamp: fmt.Sprintf("2026-02-%02dT00:00:00Z", i+1),
			Version:   1,
			Payload:   map[string]any{"n": i},
		})
		require.NoError(t, err)
		events = append(events, evt)
	}
	return events
}

func TestQueryBySpace_HappyPath(t *testing.T) {
	e, p := newTestEngine(t)
	writeN(t, p, "s1", 3, model.EventStateChanged)
	writeN(t, p, "s2", 2, model.EventStateChanged)

	result, err := e.QueryBySpace(context.Background(), "s1", model.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	require.Equal(t, int64(3), result.Total)
	require.Empty(t, result.NextCursor)
}

func TestQueryBySpace_CursorContinuation(t *testing.T) {
	e, p := newTestEngine(t)
	writeN(t, p, "s1", 5, model.EventStateChanged)
	ctx := context.Background()

	first, err := e.QueryBySpace(ctx, "s1", model.QueryOptions{Limit: intPtr(2)})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	require.Equal(t, int64(1), first.Items[0].SequenceNumber)
	require.Equal(t, int64(2), first.Items[1].SequenceNumber)

	second, err := e.QueryBySpace(ctx, "s1", model.QueryOptions{Limit: intPtr(2), Cursor: strPtr(first.NextCursor)})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.Equal(t, int64(3), second.Items[0].SequenceNumber)
	require.Equal(t, int64(4), second.Items[1].SequenceNumber)

	third, err := e.QueryBySpace(ctx, "s1", model.QueryOptions{Limit: intPtr(2), Cursor: strPtr(second.NextCursor)})
	require.NoError(t, err)
	require.Len(t, third.Items, 1)
	require.Equal(t, int64(5), third.Items[0].SequenceNumber)
	require.Empty(t, third.NextCursor)
}

func TestQueryBySpace_DescendingOrder(t *testing.T) {
	e, p := newTestEngine(t)
	writeN(t, p, "s1", 3, model.EventStateChanged)

	result, err := e.QueryBySpace(context.Background(), "s1", model.QueryOptions{Order: model.OrderDesc})
	require.NoError(t, err)
	require.Len(t, result.Items, 3)
	require.Equal(t, int64(3), result.Items[0].SequenceNumber)
	require.Equal(t, int64(2), result.Items[1].SequenceNumber)
	require.Equal(t, int64(1), result.Items[2].SequenceNumber)
}

func TestQueryByType_HappyPathAndCursor(t *testing.T) {
	e, p := newTestEngine(t)
	ctx := context.Background()
	writeN(t, p, "s1", 2, model.EventStateChanged)
	writeN(t, p, "s1", 2, model.EventSystemEvent)

	result, err := e.QueryByType(ctx, model.EventStateChanged, model.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	require.Equal(t, int64(2), result.Total)
	for _, evt := range result.Items {
		require.Equal(t, model.EventStateChanged, evt.Type)
	}

	page, err := e.QueryByType(ctx, model.EventStateChanged, model.QueryOptions{Limit: intPtr(1)})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NotEmpty(t, page.NextCursor)

	rest, err := e.QueryByType(ctx, model.EventStateChanged, model.QueryOptions{Limit: intPtr(1), Cursor: strPtr(page.NextCursor)})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	require.NotEqual(t, page.Items[0].ID, rest.Items[0].ID)
}

func TestQueryByTime_HappyPath(t *testing.T) {
	e, p := newTestEngine(t)
	writeN(t, p, "s1", 4, model.EventStateChanged)

	result, err := e.QueryByTime(context.Background(), "2026-02-01T00:00:00Z", "2026-02-03T00:00:00Z", model.QueryOptions{})
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
}

func TestQueryByTime_InvalidBounds(t *testing.T) {
	e, _ := newTestEngine(t)
	ctx := context.Background()

	_, err := e.QueryByTime(ctx, "not-a-time", "2026-02-03T00:00:00Z", model.QueryOptions{})
	require.Error(t, err)
	require.ErrorAs(t, err, new(*model.InvalidQuery))

	_, err = e.QueryByTime(ctx, "2026-02-01T00:00:00Z", "also-not-a-time", model.QueryOptions{})
	require.Error(t, err)
	require.ErrorAs(t, err, new(*model.InvalidQuery))
}

func TestQueryBySpace_LimitClamping(t *testing.T) {
	e, p := newTestEngine(t)
	writeN(t, p, "s1", 3, model.EventStateChanged)

	result, err := e.QueryBySpace(context.Background(), "s1", model.QueryOptions{Limit: intPtr(-5)})
	require.NoError(t, err)
	require.Len(t, result.Items, 1)
	require.NotEmpty(t, result.NextCursor)
}
