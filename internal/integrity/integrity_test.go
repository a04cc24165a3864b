package integrity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rblogdb/rblog/internal/idgen"
	"github.com/rblogdb/rblog/internal/spacelock"
	"github.com/rblogdb/rblog/internal/store"
	"github.com/rblogdb/rblog/internal/write"
	"github.com/rblogdb/rblog/model"
)

func newTestVerifier(t *testing.T) (*Verifier, *write.Pipeline, *store.Store) {
	t.Helper()
	s, err := store.Open(t.TempDir() + "/integrity.db")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	p := &write.Pipeline{
		Store:       s,
		Locks:       spacelock.New(),
		IDGenerator: idgen.Counter("evt"),
	}
	return &Verifier{Store: s}, p, s
}

func writeN(t *testing.T, p *write.Pipeline, spaceID string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := p.WriteEvent(context.Background(), model.EventInput{
			Type:      model.EventStateChanged,
			SpaceID:   spaceID,
			Timestamp: "2026-02-14T00:00:00Z",
			Version:   1,
			Payload:   map[string]any{"n": i},
		})
		require.NoError(t, err)
	}
}

func TestVerifySpace_Valid(t *testing.T) {
	v, p, _ := newTestVerifier(t)
	writeN(t, p, "s", 5)

	report, err := v.VerifySpace(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Equal(t, int64(5), report.EventsChecked)
	require.Nil(t, report.FirstBrokenLink)
}

func TestVerifySpace_EmptySpace(t *testing.T) {
	v, _, _ := newTestVerifier(t)

	report, err := v.VerifySpace(context.Background(), "empty")
	require.NoError(t, err)
	require.True(t, report.Valid)
	require.Equal(t, int64(0), report.EventsChecked)
}

func TestVerifySpace_TamperedHash(t *testing.T) {
	v, p, s := newTestVerifier(t)
	writeN(t, p, "s", 5)

	events, err := s.EventsBySpace(context.Background(), "s")
	require.NoError(t, err)
	target := events[2]

	err = s.Exec(context.Background(), `UPDATE events SET hash = 'TAMPERED' WHERE id = ?`, target.ID)
	require.NoError(t, err)

	report, err := v.VerifySpace(context.Background(), "s")
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.NotNil(t, report.FirstBrokenLink)
	require.Equal(t, target.ID, report.FirstBrokenLink.EventID)
}

func TestVerifySpace_TamperedPreviousHash(t *testing.T) {
	v, p, s := newTestVerifier(t)
	writeN(t, p, "s", 5)

	events, err := s.EventsBySpace(context.Background(), "s")
	require.NoError(t, err)
	target := events[2]

	err = s.Exec(context.Background(), `UPDATE events SET previous_hash = 'BROKEN' WHERE id = ?`, target.ID)
	require.NoError(t, err)

	report, err := v.VerifySpace(context.Background(), "s")
	require.NoError(t, err)
	require.False(t, report.Valid)
	require.Equal(t, target.ID, report.FirstBrokenLink.EventID)
	require.Equal(t, events[1].Hash, report.FirstBrokenLink.Expected)
	require.Equal(t, "BROKEN", report.FirstBrokenLink.Actual)
}

func TestVerifyAll_StopsAtFirstBrokenSpace(t *testing.T) {
	v, p, s := newTestVerifier(t)
	writeN(t, p, "a", 3)
	writeN(t, p, "b", 3)

	events, err := s.EventsBySpace(context.Background(), "b")
	require.NoError(t, err)
	err = s.Exec(context.Background(), `UPDATE events SET hash = 'TAMPERED' WHERE id = ?`, events[0].ID)
	require.NoError(t, err)

	report, err := v.VerifyAll(context.Background())
	require.NoError(t, err)
	require.False(t, report.Valid)
}

func TestVerify_DispatchesOnSpaceID(t *testing.T) {
	v, p, _ := newTestVerifier(t)
	writeN(t, p, "s", 2)

	byID, err := v.Verify(context.Background(), "s")
	require.NoError(t, err)
	require.True(t, byID.Valid)

	all, err := v.Verify(context.Background(), "")
	require.NoError(t, err)
	require.True(t, all.Valid)
}
