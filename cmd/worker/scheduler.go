package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/events"
	"github.com/noah-isme/backend-showroom/internal/lock"
)

type catalogRefresher interface {
	Refresh(ctx context.Context) (catalog.Snapshot, error)
}

type eventPurger interface {
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type emitter interface {
	Emit(ctx context.Context, topic, sessionID string, payload any) (events.Event, error)
}

// scheduler runs the periodic catalog refresh and the event retention sweep.
// Both jobs are guarded by TryLock so that only one worker replica runs them
// per interval.
type scheduler struct {
	Locker    lock.Locker
	Catalog   catalogRefresher
	Events    emitter
	Purger    eventPurger
	Retention time.Duration
	Logger    *zerolog.Logger
	Now       func() time.Time
}

const purgeLockKey = "lock:quote_events:purge"

// Run refreshes immediately and then every interval until ctx is cancelled.
// The purge runs alongside each refresh.
func (s scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	s.tick(ctx, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx, interval)
		}
	}
}

func (s scheduler) tick(ctx context.Context, interval time.Duration) {
	logger := s.logger()
	if err := s.RefreshCatalog(ctx, interval); err != nil && !errors.Is(err, lock.ErrNotAcquired) {
		logger.Error().Err(err).Msg("catalog refresh job failed")
	}
	if err := s.PurgeEvents(ctx, interval); err != nil && !errors.Is(err, lock.ErrNotAcquired) {
		logger.Error().Err(err).Msg("event purge job failed")
	}
}

// RefreshCatalog reloads the catalog and records a catalog.refreshed event
// carrying the new generation.
func (s scheduler) RefreshCatalog(ctx context.Context, hold time.Duration) error {
	if s.Catalog == nil {
		return errors.New("worker: catalog not configured")
	}
	return s.Locker.TryLock(ctx, lock.CatalogRefreshKey, lockHold(hold), func(ctx context.Context) error {
		snap, err := s.Catalog.Refresh(ctx)
		if err != nil {
			return err
		}
		if s.Events == nil {
			return nil
		}
		payload := map[string]any{
			"generation": snap.Generation,
			"models":     len(snap.Models),
			"promotions": len(snap.Promotions),
		}
		if _, err := s.Events.Emit(ctx, events.TopicCatalogRefreshed, events.CatalogSubject, payload); err != nil {
			s.logger().Warn().Err(err).Int64("generation", snap.Generation).Msg("record catalog refresh")
		}
		return nil
	})
}

// PurgeEvents deletes events older than the retention window.
func (s scheduler) PurgeEvents(ctx context.Context, hold time.Duration) error {
	if s.Purger == nil || s.Retention <= 0 {
		return nil
	}
	return s.Locker.TryLock(ctx, purgeLockKey, lockHold(hold), func(ctx context.Context) error {
		cutoff := s.now().Add(-s.Retention)
		deleted, err := s.Purger.PurgeBefore(ctx, cutoff)
		if err != nil {
			return err
		}
		if deleted > 0 {
			s.logger().Info().Int64("deleted", deleted).Time("cutoff", cutoff).Msg("quote events purged")
		}
		return nil
	})
}

// lockHold keeps the lock for slightly less than one interval so the next
// tick can take it again.
func lockHold(interval time.Duration) time.Duration {
	hold := interval - interval/10
	if hold <= 0 {
		return time.Second
	}
	return hold
}

func (s scheduler) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s scheduler) logger() *zerolog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	nop := zerolog.Nop()
	return &nop
}
