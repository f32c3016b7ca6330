package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-showroom/internal/obs"
	"github.com/noah-isme/backend-showroom/internal/resilience"
)

// ErrNotLoaded is returned while no snapshot could be obtained from the cache or the database.
var ErrNotLoaded = errors.New("catalog: snapshot not loaded")

// Service owns the process-wide catalog snapshot. Refreshes are last-write-wins
// by generation, so a slow fetch that started earlier never replaces a newer one.
type Service struct {
	fetcher       Fetcher
	cache         *Cache
	policy        resilience.Policy
	checkInterval time.Duration
	logger        zerolog.Logger
	now           func() time.Time

	mu        sync.RWMutex
	current   Snapshot
	loaded    bool
	checkedAt time.Time
	lastGen   int64
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Fetcher            Fetcher
	Cache              *Cache
	Policy             resilience.Policy
	CacheCheckInterval time.Duration
	Logger             *zerolog.Logger
	Now                func() time.Time
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("catalog: fetcher is required")
	}
	interval := cfg.CacheCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "catalog").Logger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		fetcher:       cfg.Fetcher,
		cache:         cfg.Cache,
		policy:        cfg.Policy,
		checkInterval: interval,
		logger:        logger,
		now:           now,
		current:       Snapshot{}.Normalize(),
	}, nil
}

// Current returns the newest known snapshot. The shared Redis copy is consulted
// at most once per check interval; the database is only hit when nothing is
// loaded yet.
func (s *Service) Current(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	snap, loaded, checkedAt := s.current, s.loaded, s.checkedAt
	s.mu.RUnlock()
	if loaded && s.now().Sub(checkedAt) < s.checkInterval {
		return snap, nil
	}

	if s.cache != nil {
		cached, ok, err := s.cache.GetSnapshot(ctx)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("catalog_cache_read_failed")
		case ok:
			s.install(cached)
			obs.RecordCatalogRefresh("cache", "ok")
		}
	}
	s.mu.Lock()
	s.checkedAt = s.now()
	snap, loaded = s.current, s.loaded
	s.mu.Unlock()
	if loaded {
		return snap, nil
	}
	return s.Refresh(ctx)
}

// Peek returns the in-memory snapshot without any I/O.
func (s *Service) Peek() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current, s.loaded
}

// Refresh fetches a new snapshot from the database, installs it when it is the
// newest generation and publishes it to the shared cache.
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	gen := s.nextGeneration()
	fetched, err := resilience.Call(ctx, s.policy, s.fetcher.FetchCatalog)
	if err != nil {
		obs.RecordCatalogRefresh("database", "error")
		s.logger.Error().Err(err).Int64("generation", gen).Msg("catalog_refresh_failed")
		if current, ok := s.Peek(); ok {
			return current, fmt.Errorf("refresh catalog: %w", err)
		}
		return Snapshot{}.Normalize(), fmt.Errorf("%w: %w", ErrNotLoaded, err)
	}
	fetched = fetched.Normalize()
	fetched.Generation = gen
	fetched.FetchedAt = s.now().UTC()

	if !s.install(fetched) {
		obs.RecordCatalogRefresh("database", "superseded")
		s.logger.Info().Int64("generation", gen).Msg("catalog_refresh_superseded")
	} else {
		obs.RecordCatalogRefresh("database", "ok")
		s.logger.Info().
			Int64("generation", gen).
			Int("models", len(fetched.Models)).
			Int("promotions", len(fetched.Promotions)).
			Int("fees", len(fetched.Fees)).
			Msg("catalog_refreshed")
		if s.cache != nil {
			if err := s.cache.SetSnapshot(ctx, fetched); err != nil {
				s.logger.Warn().Err(err).Msg("catalog_cache_write_failed")
			}
		}
	}
	current, _ := s.Peek()
	return current, nil
}

// install swaps in snap if it is not older than the current snapshot.
func (s *Service) install(snap Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded && snap.Generation < s.current.Generation {
		return false
	}
	s.current = snap
	s.loaded = true
	if snap.Generation > s.lastGen {
		s.lastGen = snap.Generation
	}
	return true
}

func (s *Service) nextGeneration() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	gen := s.now().UnixNano()
	if gen <= s.lastGen {
		gen = s.lastGen + 1
	}
	s.lastGen = gen
	return gen
}
