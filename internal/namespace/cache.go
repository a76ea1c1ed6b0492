// Package namespace keeps a TTL-bounded snapshot of every fully-qualified
// table name in the workspace and answers fuzzy searches over it.
package namespace

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/singleflight"

	"github.com/revodata/databricks-mcp-server/metrics"
	"github.com/revodata/databricks-mcp-server/tracing"
)

const (
	// DefaultTTL is how long a non-empty snapshot is served without a walk
	DefaultTTL = 10 * time.Minute

	// DefaultLimit is the number of matches FindTables returns by default
	DefaultLimit = 10

	refreshKey = "namespace"
)

// Lister walks the namespace and returns catalog.schema.table names
type Lister interface {
	ListTableNames(ctx context.Context) ([]string, error)
}

// Snapshot is one complete listing of the namespace. It is never modified
// after it is published.
type Snapshot struct {
	Tables    []string
	FetchedAt time.Time
	Digest    uint64
}

// Match is one search result
type Match struct {
	Table string  `json:"table"`
	Score float64 `json:"score"`
}

// Status describes the current snapshot
type Status struct {
	Tables     int        `json:"tables"`
	FetchedAt  *time.Time `json:"fetched_at,omitempty"`
	AgeSeconds float64    `json:"age_seconds"`
	TTLSeconds float64    `json:"ttl_seconds"`
	Fresh      bool       `json:"fresh"`
	Digest     string     `json:"digest,omitempty"`
}

// Cache serves table names from a snapshot that is replaced wholesale on
// refresh. Reads are lock-free; concurrent refreshes are coalesced into one
// walk.
type Cache struct {
	lister Lister
	ttl    time.Duration
	now    func() time.Time
	logger *slog.Logger

	snapshot atomic.Pointer[Snapshot]
	group    singleflight.Group
}

// Option configures the Cache
type Option func(*Cache)

// WithTTL sets the freshness window
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// NewCache creates an empty cache over lister
func NewCache(lister Lister, opts ...Option) *Cache {
	c := &Cache{
		lister: lister,
		ttl:    DefaultTTL,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current snapshot, or nil before the first refresh
func (c *Cache) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// isFresh reports whether s can be served without a walk. Empty snapshots
// are never fresh.
func (c *Cache) isFresh(s *Snapshot) bool {
	return s != nil &&
		!s.FetchedAt.IsZero() &&
		len(s.Tables) > 0 &&
		c.now().Sub(s.FetchedAt) < c.ttl
}

// Tables returns every known table name, walking the namespace first when the
// snapshot is stale, empty or forceRefresh is set. It never fails: a failed
// walk is logged and replaces the snapshot with an empty one.
func (c *Cache) Tables(ctx context.Context, forceRefresh bool) []string {
	if s := c.snapshot.Load(); !forceRefresh && c.isFresh(s) {
		metrics.RecordCacheAccess(true)
		return s.Tables
	}
	metrics.RecordCacheAccess(false)

	s := c.refresh(ctx, forceRefresh)
	if s == nil {
		return []string{}
	}
	return s.Tables
}

// refresh runs one shared walk. The walk is detached from the caller's
// cancellation so that one impatient caller cannot fail it for the others.
// A failed walk still publishes an empty snapshot.
func (c *Cache) refresh(ctx context.Context, force bool) *Snapshot {
	walkCtx := context.WithoutCancel(ctx)

	ch := c.group.DoChan(refreshKey, func() (any, error) {
		if s := c.snapshot.Load(); !force && c.isFresh(s) {
			return s, nil
		}
		return c.walk(walkCtx), nil
	})

	select {
	case res := <-ch:
		return res.Val.(*Snapshot)
	case <-ctx.Done():
		c.logger.Warn("Namespace lookup abandoned while refreshing", "error", ctx.Err())
		return nil
	}
}

func (c *Cache) walk(ctx context.Context) *Snapshot {
	ctx, span := tracing.StartSpan(ctx, "namespace.refresh")
	defer span.End()

	start := time.Now()
	names, err := c.lister.ListTableNames(ctx)
	duration := time.Since(start)
	metrics.RecordRefresh(duration.Seconds(), err == nil)

	if err != nil {
		tracing.RecordError(span, err)
		c.logger.Error("Namespace refresh failed",
			"error", err,
			"duration", duration)
		// An empty snapshot is never fresh, so the next lookup walks again
		names = nil
	}
	if names == nil {
		names = []string{}
	}

	next := &Snapshot{
		Tables:    names,
		FetchedAt: c.now(),
		Digest:    digest(names),
	}
	prev := c.snapshot.Swap(next)
	changed := prev == nil || prev.Digest != next.Digest
	metrics.SetCacheSize(int64(len(names)))
	tracing.AddNamespaceAttributes(span, len(names), changed)

	if err == nil {
		c.logger.Info("Namespace refreshed",
			"tables", len(names),
			"duration", duration,
			"changed", changed)
	}
	return next
}

// FindTables scores every table name against term and returns the best
// matches in descending score order. Ties keep namespace order. limit <= 0
// means DefaultLimit.
func (c *Cache) FindTables(ctx context.Context, term string, limit int, forceRefresh bool) []Match {
	if limit <= 0 {
		limit = DefaultLimit
	}

	tables := c.Tables(ctx, forceRefresh)
	matches := make([]Match, len(tables))
	for i, table := range tables {
		matches[i] = Match{Table: table, Score: Score(term, table)}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// Status reports on the current snapshot without refreshing it
func (c *Cache) Status() Status {
	st := Status{
		TTLSeconds: c.ttl.Seconds(),
	}
	s := c.snapshot.Load()
	if s == nil {
		return st
	}

	fetchedAt := s.FetchedAt
	st.Tables = len(s.Tables)
	st.FetchedAt = &fetchedAt
	st.AgeSeconds = c.now().Sub(s.FetchedAt).Seconds()
	st.Fresh = c.isFresh(s)
	st.Digest = fmt.Sprintf("%016x", s.Digest)
	return st
}

func digest(names []string) uint64 {
	h := xxhash.New()
	for _, name := range names {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
	}
	return h.Sum64()
}
