package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockrecon/internal/domain"
	"github.com/rs/zerolog"
)

const DefaultSnapshotTTL = 24 * time.Hour

// SnapshotStore keeps the last real detailed remains per tenant.
type SnapshotStore interface {
	Get(ctx context.Context, tenant string) (*domain.RemainsSnapshot, bool, error)
	Put(ctx context.Context, tenant string, snapshot *domain.RemainsSnapshot) error
}

// LiveRemains is the outcome of the primary detailed remains fetch.
type LiveRemains struct {
	Records []domain.RemainsRecord
	Err     error
	Skipped bool
}

func (l LiveRemains) ok() bool {
	return l.Err == nil && !l.Skipped && len(l.Records) > 0
}

// Resolution is the source chosen for a run.
type Resolution struct {
	Quality     domain.DataQuality
	Remains     []domain.RemainsRecord
	Totals      []domain.TotalsRecord
	FetchedAt   time.Time
	SnapshotAge time.Duration
	// Reasons explains every degradation step taken, oldest first.
	Reasons []string
}

// Degraded reports whether the run lost per-warehouse fidelity.
func (r Resolution) Degraded() bool {
	return r.Quality != domain.QualityRealDetailed
}

// SourcePriorityResolver picks live detailed remains, then a cached
// snapshot, then totals. It only ever moves down that list within a run.
type SourcePriorityResolver struct {
	store SnapshotStore
	ttl   time.Duration
	now   Clock
	log   zerolog.Logger
}

// NewSourcePriorityResolver creates a resolver. A nil store disables the
// cached-detailed level.
func NewSourcePriorityResolver(store SnapshotStore, ttl time.Duration, clock Clock, log *zerolog.Logger) *SourcePriorityResolver {
	if ttl <= 0 {
		ttl = DefaultSnapshotTTL
	}
	if clock == nil {
		clock = time.Now
	}
	return &SourcePriorityResolver{
		store: store,
		ttl:   ttl,
		now:   clock,
		log:   loggerOrDefault(log).With().Str("component", "source_resolver").Logger(),
	}
}

// Resolve chooses the remains source for tenant. Store failures degrade the
// result and are never returned.
func (r *SourcePriorityResolver) Resolve(ctx context.Context, tenant string, live LiveRemains, totals []domain.TotalsRecord) Resolution {
	now := r.now()

	if live.ok() {
		res := Resolution{
			Quality:   domain.QualityRealDetailed,
			Remains:   live.Records,
			FetchedAt: now,
		}
		if r.store != nil {
			snap := &domain.RemainsSnapshot{Records: live.Records, FetchedAt: now}
			if err := r.store.Put(ctx, tenant, snap); err != nil {
				r.log.Warn().Err(err).Str("tenant", tenant).Msg("failed to refresh remains snapshot cache")
			}
		}
		return res
	}

	var reasons []string
	switch {
	case live.Err != nil:
		reasons = append(reasons, fmt.Sprintf("live remains failed: %v", live.Err))
	case live.Skipped:
		reasons = append(reasons, "live remains skipped")
	default:
		reasons = append(reasons, "live remains empty")
	}

	if r.store != nil {
		snap, ok, err := r.store.Get(ctx, tenant)
		switch {
		case err != nil:
			reasons = append(reasons, fmt.Sprintf("snapshot cache unavailable: %v", err))
		case !ok || snap == nil || len(snap.Records) == 0:
			reasons = append(reasons, "no cached snapshot")
		default:
			age := now.Sub(snap.FetchedAt)
			if age < 0 {
				age = 0
			}
			if age < r.ttl {
				r.log.Warn().
					Str("tenant", tenant).
					Dur("age", age).
					Strs("reasons", reasons).
					Msg("using cached detailed remains")
				return Resolution{
					Quality:     domain.QualityCachedDetailed,
					Remains:     snap.Records,
					FetchedAt:   snap.FetchedAt,
					SnapshotAge: age,
					Reasons:     reasons,
				}
			}
			reasons = append(reasons, fmt.Sprintf("cached snapshot expired (age %s)", age.Truncate(time.Second)))
		}
	} else {
		reasons = append(reasons, "snapshot cache disabled")
	}

	if len(totals) == 0 {
		reasons = append(reasons, "totals feed empty")
	}
	r.log.Warn().
		Str("tenant", tenant).
		Int("totals", len(totals)).
		Strs("reasons", reasons).
		Msg("falling back to totals-only remains")
	return Resolution{
		Quality:   domain.QualityTotalsOnly,
		Totals:    totals,
		FetchedAt: now,
		Reasons:   reasons,
	}
}
