// Package karma keeps the per-user reputation ledger credited when an item is
// returned to its owner.
package karma

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"github.com/campuslf/lostfound/internal/apperr"
	"github.com/campuslf/lostfound/internal/model"
	"github.com/campuslf/lostfound/internal/store"
)

// DefaultPoints is credited per returned item.
const DefaultPoints = 50

// Leaderboard page size bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type cachedValue struct {
	value     any
	timestamp time.Time
}

// Ledger awards and reads karma. Reads go through an optional LRU cache which
// must be invalidated after every committed award.
type Ledger struct {
	db     *sql.DB
	points int
	cache  *lru.Cache
	ttl    time.Duration

	// gen advances on every Invalidate; fills read under an older gen are dropped.
	mu  sync.Mutex
	gen uint64
}

// Options configures a Ledger.
type Options struct {
	Points    int
	CacheSize int
	CacheTTL  time.Duration
}

// NewLedger creates a ledger. A CacheSize of zero disables caching.
func NewLedger(db *sql.DB, opts Options) *Ledger {
	l := &Ledger{db: db, points: opts.Points, ttl: opts.CacheTTL}
	if l.points <= 0 {
		l.points = DefaultPoints
	}
	if opts.CacheSize > 0 {
		cache, err := lru.New(opts.CacheSize)
		if err != nil {
			slog.Warn("karma cache disabled", "error", err)
		} else {
			l.cache = cache
		}
	}
	return l
}

// Points is the amount credited per returned item.
func (l *Ledger) Points() int {
	return l.points
}

// Award credits points to a user inside the caller's transaction. Call
// Invalidate once the transaction has committed.
func (l *Ledger) Award(ctx context.Context, q store.DBTX, userID int64, points int) error {
	if points < 0 {
		return apperr.Validation("karma points must not be negative")
	}
	if err := store.AddKarma(ctx, q, userID, points); err != nil {
		return apperr.Wrap(err, "awarding karma")
	}
	return nil
}

// Invalidate drops cached reads after an award.
func (l *Ledger) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	if l.cache != nil {
		l.cache.Purge()
	}
}

// Profile returns a user's karma profile, creating an empty one on first read.
func (l *Ledger) Profile(ctx context.Context, userID int64) (*model.KarmaProfile, error) {
	key := fmt.Sprintf("profile:%d", userID)
	if v, ok := l.cached(key); ok {
		p := v.(model.KarmaProfile)
		return &p, nil
	}
	gen := l.generation()

	user, err := store.GetUser(ctx, l.db, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading user")
	}
	if user == nil {
		return nil, apperr.NotFound("user")
	}

	if err := store.EnsureKarmaProfile(ctx, l.db, userID); err != nil {
		return nil, apperr.Wrap(err, "loading karma profile")
	}
	p, err := store.GetKarmaProfile(ctx, l.db, userID)
	if err != nil {
		return nil, apperr.Wrap(err, "loading karma profile")
	}
	if p == nil {
		return nil, apperr.NotFound("karma profile")
	}

	l.store(key, *p, gen)
	return p, nil
}

// Rank is 1 plus the number of profiles with strictly more points.
func (l *Ledger) Rank(ctx context.Context, userID int64) (int, error) {
	p, err := l.Profile(ctx, userID)
	if err != nil {
		return 0, err
	}
	above, err := store.CountAboveKarma(ctx, l.db, p.KarmaPoints)
	if err != nil {
		return 0, apperr.Wrap(err, "ranking karma")
	}
	return above + 1, nil
}

// Leaderboard returns the top profiles ordered by points, then user ID.
// limit is clamped to 1..MaxLimit; zero means DefaultLimit.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]model.KarmaProfile, error) {
	switch {
	case limit == 0:
		limit = DefaultLimit
	case limit < 1:
		limit = 1
	case limit > MaxLimit:
		limit = MaxLimit
	}

	key := fmt.Sprintf("leaderboard:%d", limit)
	if v, ok := l.cached(key); ok {
		return append([]model.KarmaProfile{}, v.([]model.KarmaProfile)...), nil
	}
	gen := l.generation()

	profiles, err := store.ListTopKarma(ctx, l.db, limit)
	if err != nil {
		return nil, apperr.Wrap(err, "loading leaderboard")
	}
	if profiles == nil {
		profiles = []model.KarmaProfile{}
	}

	l.store(key, append([]model.KarmaProfile{}, profiles...), gen)
	return profiles, nil
}

// Stats returns aggregate leaderboard figures.
func (l *Ledger) Stats(ctx context.Context) (*model.KarmaStats, error) {
	stats, err := store.GetKarmaStats(ctx, l.db)
	if err != nil {
		return nil, apperr.Wrap(err, "loading karma stats")
	}
	return stats, nil
}

func (l *Ledger) cached(key string) (any, bool) {
	if l.cache == nil {
		return nil, false
	}
	v, ok := l.cache.Get(key)
	if !ok {
		return nil, false
	}
	entry := v.(cachedValue)
	if l.ttl > 0 && time.Since(entry.timestamp) > l.ttl {
		l.cache.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (l *Ledger) generation() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gen
}

func (l *Ledger) store(key string, value any, gen uint64) {
	if l.cache == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if gen != l.gen {
		return
	}
	l.cache.Add(key, cachedValue{value: value, timestamp: time.Now()})
}
