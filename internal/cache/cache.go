// Package cache memoizes pivoted query results by query text.
package cache

import (
	"context"
	"fmt"
	"popmetrics/internal/engine"
	"popmetrics/internal/models"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL     = 10 * time.Minute
	DefaultTimeout = 60 * time.Second
)

// Executor runs a query against the warehouse.
type Executor interface {
	Run(ctx context.Context, query string) ([]models.RawRow, error)
}

// Snapshot is a cached table together with when its query was issued.
type Snapshot struct {
	Table       *engine.WideTable
	FetchedAt   time.Time
	Fingerprint uint64
}

// Stats counts cache activity since creation.
type Stats struct {
	Hits    int
	Misses  int
	Fetches int
	Entries int
}

// Cache maps query text to its pivoted result. Entries go stale after the
// TTL. Concurrent misses for the same query share one executor call.
type Cache struct {
	exec    Executor
	ttl     time.Duration
	timeout time.Duration
	now     func() time.Time
	logger  *zap.Logger

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]*Snapshot
	stats   Stats
}

// Option configures a Cache.
type Option func(*Cache)

func WithTTL(d time.Duration) Option {
	return func(c *Cache) { c.ttl = d }
}

// WithTimeout bounds every executor call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Cache) { c.timeout = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

func New(exec Executor, opts ...Option) *Cache {
	c := &Cache{
		exec:    exec,
		ttl:     DefaultTTL,
		timeout: DefaultTimeout,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: make(map[string]*Snapshot),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetTable returns the wide table for query, running the query only when
// no fresh entry exists.
func (c *Cache) GetTable(ctx context.Context, query string) (*engine.WideTable, error) {
	snap, err := c.Get(ctx, query)
	if err != nil {
		return nil, err
	}
	return snap.Table, nil
}

// Get is GetTable with fetch metadata.
func (c *Cache) Get(ctx context.Context, query string) (*Snapshot, error) {
	c.mu.Lock()
	if snap, ok := c.fresh(query); ok {
		c.stats.Hits++
		c.mu.Unlock()
		return snap, nil
	}
	c.stats.Misses++
	c.mu.Unlock()

	return c.load(ctx, query, false)
}

// Refresh fetches query again even if the cached entry is fresh.
// A refresh already in flight is joined rather than repeated.
func (c *Cache) Refresh(ctx context.Context, query string) (*Snapshot, error) {
	return c.load(ctx, query, true)
}

// Invalidate drops the entry for query.
func (c *Cache) Invalidate(query string) {
	c.mu.Lock()
	delete(c.entries, query)
	c.mu.Unlock()
}

func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Entries = len(c.entries)
	return s
}

// fresh must be called with mu held.
func (c *Cache) fresh(query string) (*Snapshot, bool) {
	snap, ok := c.entries[query]
	if !ok {
		return nil, false
	}
	if c.now().Sub(snap.FetchedAt) >= c.ttl {
		return nil, false
	}
	return snap, true
}

func (c *Cache) load(ctx context.Context, query string, force bool) (*Snapshot, error) {
	key := query
	if force {
		key = "refresh\x00" + query
	}
	// The shared fetch outlives any single caller; only c.timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if !force {
			// another caller may have filled it while we queued
			c.mu.Lock()
			snap, ok := c.fresh(query)
			c.mu.Unlock()
			if ok {
				return snap, nil
			}
		}
		return c.fetch(fetchCtx, query)
	})

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for indicators: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.Debug("joined in-flight query", zap.Uint64("query", xxh3.HashString(query)))
		}
		return res.Val.(*Snapshot), nil
	}
}

func (c *Cache) fetch(ctx context.Context, query string) (*Snapshot, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := c.now()
	c.mu.Lock()
	c.stats.Fetches++
	c.mu.Unlock()

	rows, err := c.exec.Run(ctx, query)
	if err != nil {
		c.logger.Error("warehouse query failed", zap.Uint64("query", xxh3.HashString(query)), zap.Error(err))
		return nil, fmt.Errorf("fetch indicators: %w", err)
	}

	table, err := engine.Pivot(rows)
	if err != nil {
		c.logger.Error("pivot failed", zap.Int("rows", len(rows)), zap.Error(err))
		return nil, fmt.Errorf("reshape indicators: %w", err)
	}

	// stamped with the start time: the data is as old as the query
	snap := &Snapshot{
		Table:       table,
		FetchedAt:   start,
		Fingerprint: fingerprint(query, start),
	}

	// a refresh and an expired Get may overlap; the one started last wins
	c.mu.Lock()
	if cur, ok := c.entries[query]; ok && cur.FetchedAt.After(snap.FetchedAt) {
		snap = cur
	} else {
		c.entries[query] = snap
	}
	c.mu.Unlock()

	c.logger.Info("indicators loaded",
		zap.Int("raw_rows", len(rows)),
		zap.Int("table_rows", table.Len()),
		zap.Int("indicators", len(table.Indicators)),
		zap.Duration("took", c.now().Sub(start)),
	)
	return snap, nil
}

func fingerprint(query string, at time.Time) uint64 {
	h := xxh3.New()
	_, _ = h.WriteString(query)
	_, _ = h.WriteString(at.UTC().Format(time.RFC3339Nano))
	return h.Sum64()
}
