package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourcePriorityResolver(t *testing.T) {
	ctx := context.Background()
	live := []domain.RemainsRecord{remains(key("A", 1), "Коледино", 3)}
	cached := []domain.RemainsRecord{remains(key("A", 1), "Тула", 9)}
	totals := []domain.TotalsRecord{{Key: key("A", 1), Stock: 12}}

	t.Run("live feed wins and refreshes the cache", func(t *testing.T) {
		clock := newFakeClock()
		store := newFakeStore()
		r := NewSourcePriorityResolver(store, time.Hour, clock.Now, &nopLogger)

		res := r.Resolve(ctx, "t1", LiveRemains{Records: live}, totals)

		assert.Equal(t, domain.QualityRealDetailed, res.Quality)
		assert.False(t, res.Degraded())
		assert.Equal(t, live, res.Remains)
		assert.Nil(t, res.Totals)
		assert.Empty(t, res.Reasons)
		require.Contains(t, store.snapshots, "t1")
		assert.Equal(t, clock.Now(), store.snapshots["t1"].FetchedAt)
	})

	t.Run("failed live feed uses fresh cache", func(t *testing.T) {
		clock := newFakeClock()
		store := newFakeStore()
		store.snapshots["t1"] = &domain.RemainsSnapshot{Records: cached, FetchedAt: clock.Now().Add(-30 * time.Minute)}
		r := NewSourcePriorityResolver(store, time.Hour, clock.Now, &nopLogger)

		res := r.Resolve(ctx, "t1", LiveRemains{Err: errors.New("429 too many requests")}, totals)

		assert.Equal(t, domain.QualityCachedDetailed, res.Quality)
		assert.True(t, res.Degraded())
		assert.Equal(t, cached, res.Remains)
		assert.Equal(t, 30*time.Minute, res.SnapshotAge)
		require.Len(t, res.Reasons, 1)
		assert.Contains(t, res.Reasons[0], "429")
		assert.Equal(t, 0, store.puts, "cached data is never written back")
	})

	t.Run("skipped or empty live feed counts as unavailable", func(t *testing.T) {
		clock := newFakeClock()
		store := newFakeStore()
		store.snapshots["t1"] = &domain.RemainsSnapshot{Records: cached, FetchedAt: clock.Now()}
		r := NewSourcePriorityResolver(store, time.Hour, clock.Now, &nopLogger)

		assert.Equal(t, domain.QualityCachedDetailed, r.Resolve(ctx, "t1", LiveRemains{Skipped: true, Records: live}, nil).Quality)
		assert.Equal(t, domain.QualityCachedDetailed, r.Resolve(ctx, "t1", LiveRemains{}, nil).Quality)
	})

	t.Run("expired cache falls back to totals", func(t *testing.T) {
		clock := newFakeClock()
		store := newFakeStore()
		store.snapshots["t1"] = &domain.RemainsSnapshot{Records: cached, FetchedAt: clock.Now().Add(-2 * time.Hour)}
		r := NewSourcePriorityResolver(store, time.Hour, clock.Now, &nopLogger)

		res := r.Resolve(ctx, "t1", LiveRemains{Skipped: true}, totals)

		assert.Equal(t, domain.QualityTotalsOnly, res.Quality)
		assert.Nil(t, res.Remains)
		assert.Equal(t, totals, res.Totals)
		assert.Len(t, res.Reasons, 2)
	})

	t.Run("store errors degrade instead of failing", func(t *testing.T) {
		clock := newFakeClock()
		store := newFakeStore()
		store.getErr = errors.New("connection refused")
		r := NewSourcePriorityResolver(store, time.Hour, clock.Now, &nopLogger)

		res := r.Resolve(ctx, "t1", LiveRemains{Err: errors.New("timeout")}, totals)
		assert.Equal(t, domain.QualityTotalsOnly, res.Quality)
		assert.Contains(t, res.Reasons[1], "connection refused")

		store.putErr = errors.New("read only")
		res = r.Resolve(ctx, "t1", LiveRemains{Records: live}, totals)
		assert.Equal(t, domain.QualityRealDetailed, res.Quality)
	})

	t.Run("no store", func(t *testing.T) {
		r := NewSourcePriorityResolver(nil, 0, nil, &nopLogger)

		res := r.Resolve(ctx, "t1", LiveRemains{Skipped: true}, nil)

		assert.Equal(t, domain.QualityTotalsOnly, res.Quality)
		assert.Contains(t, res.Reasons, "snapshot cache disabled")
		assert.Contains(t, res.Reasons, "totals feed empty")
	})

	t.Run("tenants are isolated", func(t *testing.T) {
		clock := newFakeClock()
		store := newFakeStore()
		r := NewSourcePriorityResolver(store, time.Hour, clock.Now, &nopLogger)
		r.Resolve(ctx, "t1", LiveRemains{Records: live}, nil)

		res := r.Resolve(ctx, "t2", LiveRemains{Skipped: true}, totals)

		assert.Equal(t, domain.QualityTotalsOnly, res.Quality)
	})
}
