package window_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eve-counter/internal/store"
	"eve-counter/internal/window"
)

func newAggregate(t *testing.T, lifetime time.Duration) (*window.Aggregate, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	r := store.NewRedis(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = r.Close() })
	return window.NewAggregate(r, lifetime), mr
}

func TestSnapshotSumsLiveValues(t *testing.T) {
	agg, mr := newAggregate(t, 10*time.Second)
	ctx := context.Background()

	require.NoError(t, agg.Ingest(ctx, 1, 100))
	mr.FastForward(6 * time.Second)
	require.NoError(t, agg.Ingest(ctx, 2, -30))
	require.NoError(t, agg.Ingest(ctx, 3, 5))

	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(75), snap.Total)
	assert.Equal(t, []int64{100, -30, 5}, snap.Values)

	// id 1 is now older than the lifetime
	mr.FastForward(5 * time.Second)
	snap, err = agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(-25), snap.Total)
	assert.Equal(t, []int64{-30, 5}, snap.Values)
}

func TestSnapshotOrdersByKillmailID(t *testing.T) {
	agg, _ := newAggregate(t, time.Hour)
	ctx := context.Background()

	for _, id := range []int64{10, 2, 100, 1} {
		require.NoError(t, agg.Ingest(ctx, id, id))
	}
	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 10, 100}, snap.Values)
}

func TestIngestSameIDReplaces(t *testing.T) {
	agg, _ := newAggregate(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, agg.Ingest(ctx, 7, 100))
	require.NoError(t, agg.Ingest(ctx, 7, 250))

	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(250), snap.Total)
	assert.Len(t, snap.Values, 1)
}

func TestSnapshotEmpty(t *testing.T) {
	agg, _ := newAggregate(t, time.Hour)

	snap, err := agg.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Zero(t, snap.Total)
	assert.Empty(t, snap.Values)
}

func TestReset(t *testing.T) {
	agg, mr := newAggregate(t, time.Hour)
	ctx := context.Background()
	require.NoError(t, agg.Ingest(ctx, 1, 10))
	require.NoError(t, agg.Reset(ctx))

	assert.Empty(t, mr.Keys())
	snap, err := agg.Snapshot(ctx)
	require.NoError(t, err)
	assert.Zero(t, snap.Total)
}

func TestIngestSetsLifetime(t *testing.T) {
	agg, mr := newAggregate(t, 86400*time.Second)
	require.NoError(t, agg.Ingest(context.Background(), 99, 1))
	assert.Equal(t, 24*time.Hour, mr.TTL(window.Key(99)))
}

// vanishingStore lists a key that is gone by the time it is read.
type vanishingStore struct {
	keys []string
	vals []*int64
	err  error
}

func (s *vanishingStore) SetWithTTL(context.Context, string, int64, time.Duration) error {
	return s.err
}
func (s *vanishingStore) Keys(context.Context, string) ([]string, error) { return s.keys, s.err }
func (s *vanishingStore) MGet(context.Context, []string) ([]*int64, error) {
	return s.vals, s.err
}
func (s *vanishingStore) Flush(context.Context) error { return s.err }

func TestSnapshotToleratesExpiryMidRead(t *testing.T) {
	v := int64(40)
	st := &vanishingStore{
		keys: []string{"killmail:1", "killmail:2"},
		vals: []*int64{nil, &v},
	}
	snap, err := window.NewAggregate(st, time.Hour).Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(40), snap.Total)
	assert.Equal(t, []int64{40}, snap.Values)
}

func TestStoreErrorsAreWrapped(t *testing.T) {
	boom := errors.New("connection refused")
	agg := window.NewAggregate(&vanishingStore{err: boom}, time.Hour)
	ctx := context.Background()

	err := agg.Ingest(ctx, 1, 1)
	assert.ErrorIs(t, err, window.ErrStore)
	assert.ErrorIs(t, err, boom)

	_, err = agg.Snapshot(ctx)
	assert.ErrorIs(t, err, window.ErrStore)

	assert.ErrorIs(t, agg.Reset(ctx), window.ErrStore)
}
