package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"sales-dashboard/internal/metrics"
	"sales-dashboard/internal/models"
	"sales-dashboard/internal/observability"
)

// RecordSource loads the full order table. Implementations do no caching.
type RecordSource interface {
	Fetch(ctx context.Context) ([]models.OrderRecord, error)
}

// snapshot is one fetched record set. It is never mutated after it is
// stored; a refresh swaps in a new one.
type snapshot struct {
	records   []models.OrderRecord
	fetchedAt time.Time
}

// Analytics caches the fetched order table in memory and derives the
// dashboard from it on every call. The cache is filled on a miss and
// cleared by Refresh.
type Analytics struct {
	source       RecordSource
	logger       *slog.Logger
	fetchTimeout time.Duration

	mu      sync.RWMutex
	current *snapshot
	// generation increases on every Refresh so a fetch that started before
	// the refresh does not repopulate the cache with stale rows.
	generation uint64

	group        singleflight.Group
	fetches      atomic.Int64
	fetchErrors  atomic.Int64
	invalidated  atomic.Int64
	lastFetchErr atomic.Value
}

func NewAnalytics(source RecordSource) *Analytics {
	return &Analytics{
		source: source,
		logger: slog.Default(),
	}
}

// WithLogger sets the logger used for cache events.
func (a *Analytics) WithLogger(logger *slog.Logger) *Analytics {
	a.logger = logger
	return a
}

// WithFetchTimeout bounds each shared fetch. Zero leaves it to the source.
func (a *Analytics) WithFetchTimeout(d time.Duration) *Analytics {
	a.fetchTimeout = d
	return a
}

// SetRecords replaces the cached record set without fetching.
func (a *Analytics) SetRecords(records []models.OrderRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current = &snapshot{records: records, fetchedAt: time.Now()}
}

// Records returns the cached records, fetching them on a miss. Concurrent
// misses share a single fetch, which runs detached from any one caller so a
// cancelled request only abandons its own wait. A failed fetch leaves the
// cache empty.
func (a *Analytics) Records(ctx context.Context) ([]models.OrderRecord, time.Time, error) {
	a.mu.RLock()
	snap, gen := a.current, a.generation
	a.mu.RUnlock()

	if snap != nil {
		return snap.records, snap.fetchedAt, nil
	}

	ch := a.group.DoChan(strconv.FormatUint(gen, 10), func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		if a.fetchTimeout > 0 {
			var cancel context.CancelFunc
			fetchCtx, cancel = context.WithTimeout(fetchCtx, a.fetchTimeout)
			defer cancel()
		}
		return a.fetch(fetchCtx, gen)
	})

	select {
	case <-ctx.Done():
		return nil, time.Time{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, time.Time{}, res.Err
		}
		if res.Shared {
			a.logger.DebugContext(ctx, "joined in-flight fetch")
		}
		snap = res.Val.(*snapshot)
		return snap.records, snap.fetchedAt, nil
	}
}

func (a *Analytics) fetch(ctx context.Context, gen uint64) (*snapshot, error) {
	a.fetches.Add(1)
	start := time.Now()

	records, err := a.source.Fetch(ctx)
	if err != nil {
		a.fetchErrors.Add(1)
		a.lastFetchErr.Store(err.Error())
		a.logger.ErrorContext(ctx, "fetch failed",
			"error", err,
			"request_id", observability.GetRequestID(ctx),
		)
		return nil, err
	}
	a.lastFetchErr.Store("")

	snap := &snapshot{records: records, fetchedAt: time.Now()}

	a.mu.Lock()
	if a.generation == gen {
		a.current = snap
	}
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "records cached",
		"records", len(records),
		"duration", time.Since(start),
	)
	return snap, nil
}

// Dashboard derives all aggregate views from the current record set. When
// the records cannot be loaded no views are computed.
func (a *Analytics) Dashboard(ctx context.Context) (*models.Dashboard, error) {
	records, fetchedAt, err := a.Records(ctx)
	if err != nil {
		return nil, err
	}

	ctx, span := observability.StartSpan(ctx, "metrics.derive")
	span.SetTag("records", strconv.Itoa(len(records)))
	d := metrics.Derive(records)
	d.RecordsFetchedAt = fetchedAt
	span.End(ctx, a.logger)

	return d, nil
}

// Refresh drops the cached record set so the next call fetches again.
func (a *Analytics) Refresh() {
	a.mu.Lock()
	a.current = nil
	a.generation++
	a.mu.Unlock()

	a.invalidated.Add(1)
	a.logger.Info("record cache invalidated")
}

// Stats reports the cache state for monitoring.
func (a *Analytics) Stats() map[string]any {
	a.mu.RLock()
	snap := a.current
	gen := a.generation
	a.mu.RUnlock()

	stats := map[string]any{
		"cached":        snap != nil,
		"generation":    gen,
		"fetches":       a.fetches.Load(),
		"fetch_errors":  a.fetchErrors.Load(),
		"invalidations": a.invalidated.Load(),
	}
	if snap != nil {
		stats["record_count"] = len(snap.records)
		stats["fetched_at"] = snap.fetchedAt
	}
	if msg, _ := a.lastFetchErr.Load().(string); msg != "" {
		stats["last_fetch_error"] = msg
	}
	return stats
}
