package reconstruct

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rblogdb/rblog/internal/idgen"
	"github.com/rblogdb/rblog/internal/snapshot"
	"github.com/rblogdb/rblog/internal/spacelock"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/internal/write"
	"github.com/rblogdb/rblog/model"
)

func lastWriteWins(_ any, e model.Event) any {
	return e.Payload
}

func newHarness(t *testing.T) (*Reconstructor, *write.Pipeline, *snapshot.Manager) {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/reconstruct.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := &write.Pipeline{
		Store:       s,
		Locks:       spacelock.New(),
		IDGenerator: idgen.Counter("evt"),
	}
	mgr := &snapshot.Manager{Store: s, Reducer: lastWriteWins, IDGenerator: idgen.Counter("snap")}
	r := &Reconstructor{Store: s, Reducer: lastWriteWins}
	return r, p, mgr
}

func write1(t *testing.T, p *write.Pipeline, spaceID, timestamp string, n int) {
	t.Helper()
	_, err := p.WriteEvent(context.Background(), model.EventInput{
		Type: model.EventStateChanged, SpaceID: spaceID, Timestamp: timestamp,
		Version: 1, Payload: map[string]any{"n": n},
	})
	require.NoError(t, err)
}

func TestReconstructState_NoSnapshot(t *testing.T) {
	r, p, _ := newHarness(t)
	write1(t, p, "s", "2026-02-14T00:00:00Z", 1)
	write1(t, p, "s", "2026-02-14T00:00:01Z", 2)

	state, err := r.ReconstructState(context.Background(), "s", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"n": float64(2)}, state)
}

func TestReconstructState_WithSnapshot(t *testing.T) {
	r, p, mgr := newHarness(t)
	write1(t, p, "s", "2026-02-14T00:00:00Z", 1)
	write1(t, p, "s", "2026-02-14T00:00:01Z", 2)

	_, err := mgr.CreateSnapshot(context.Background(), "s")
	require.NoError(t, err)

	write1(t, p, "s", "2026-02-14T00:00:02Z", 3)

	state, err := r.ReconstructState(context.Background(), "s", nil)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"n": float64(3)}, state)
}

func TestReconstructState_EmptySpace(t *testing.T) {
	r, _, _ := newHarness(t)

	_, err := r.ReconstructState(context.Background(), "empty", nil)
	require.Error(t, err)
	var qErr *model.InvalidQuery
	require.ErrorAs(t, err, &qErr)
	require.Equal(t, "spaceId", qErr.Field)
}

func TestReconstructState_AtTimestamp_PredatesEvents(t *testing.T) {
	r, p, _ := newHarness(t)
	write1(t, p, "s", "2026-02-14T00:00:05Z", 1)

	before := "2026-02-14T00:00:00Z"
	_, err := r.ReconstructState(context.Background(), "s", &before)
	require.Error(t, err)
	var qErr *model.InvalidQuery
	require.ErrorAs(t, err, &qErr)
	require.Equal(t, "atTimestamp", qErr.Field)
	require.Equal(t, "predates events", qErr.Reason)
}

func TestReconstructState_AtTimestamp_Cutoff(t *testing.T) {
	r, p, _ := newHarness(t)
	write1(t, p, "s", "2026-02-14T00:00:00Z", 1)
	write1(t, p, "s", "2026-02-14T00:00:01Z", 2)
	write1(t, p, "s", "2026-02-14T00:00:02Z", 3)

	at := "2026-02-14T00:00:01Z"
	state, err := r.ReconstructState(context.Background(), "s", &at)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"n": float64(2)}, state)
}

func TestReconstructState_AtTimestamp_InvalidFormat(t *testing.T) {
	r, p, _ := newHarness(t)
	write1(t, p, "s", "2026-02-14T00:00:00Z", 1)

	bad := "not-a-timestamp"
	_, err := r.ReconstructState(context.Background(), "s", &bad)
	require.Error(t, err)
	var qErr *model.InvalidQuery
	require.ErrorAs(t, err, &qErr)
	require.Equal(t, "atTimestamp", qErr.Field)
}

func TestReconstructState_AtTimestamp_ChoosesNearestSnapshot(t *testing.T) {
	r, p, mgr := newHarness(t)
	write1(t, p, "s", "2026-02-14T00:00:00Z", 1)
	write1(t, p, "s", "2026-02-14T00:00:01Z", 2)

	_, err := mgr.CreateSnapshot(context.Background(), "s")
	require.NoError(t, err)

	write1(t, p, "s", "2026-02-14T00:00:02Z", 3)

	at := "2026-02-14T00:00:02Z"
	state, err := r.ReconstructState(context.Background(), "s", &at)
	require.NoError(t, err)
	require.Equal(t, map[string]any{"n": float64(3)}, state)
}
