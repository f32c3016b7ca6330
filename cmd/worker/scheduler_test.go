package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/events"
	"github.com/noah-isme/backend-showroom/internal/lock"
)

type stubRefresher struct {
	calls int
	gen   int64
	err   error
}

func (s *stubRefresher) Refresh(context.Context) (catalog.Snapshot, error) {
	s.calls++
	if s.err != nil {
		return catalog.Snapshot{}, s.err
	}
	return catalog.Snapshot{Generation: s.gen, Models: []catalog.VehicleModel{{ID: "vf8"}}}, nil
}

type stubEmitter struct {
	topics   []string
	subjects []string
}

func (s *stubEmitter) Emit(_ context.Context, topic, sessionID string, _ any) (events.Event, error) {
	s.topics = append(s.topics, topic)
	s.subjects = append(s.subjects, sessionID)
	return events.Event{Topic: topic, SessionID: sessionID}, nil
}

type stubPurger struct {
	cutoffs []time.Time
}

func (s *stubPurger) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.cutoffs = append(s.cutoffs, cutoff)
	return 3, nil
}

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestRefreshCatalogRunsOncePerInterval(t *testing.T) {
	locker, mr := newLocker(t)
	refresher := &stubRefresher{gen: 42}
	emitter := &stubEmitter{}
	s := scheduler{Locker: locker, Catalog: refresher, Events: emitter}

	require.NoError(t, s.RefreshCatalog(context.Background(), time.Minute))
	require.ErrorIs(t, s.RefreshCatalog(context.Background(), time.Minute), lock.ErrNotAcquired)
	require.Equal(t, 1, refresher.calls)
	require.Equal(t, []string{events.TopicCatalogRefreshed}, emitter.topics)
	require.Equal(t, []string{events.CatalogSubject}, emitter.subjects)

	mr.FastForward(time.Minute)
	require.NoError(t, s.RefreshCatalog(context.Background(), time.Minute))
	require.Equal(t, 2, refresher.calls)
}

func TestRefreshCatalogFailureSkipsEvent(t *testing.T) {
	locker, _ := newLocker(t)
	refresher := &stubRefresher{err: errors.New("db down")}
	emitter := &stubEmitter{}
	s := scheduler{Locker: locker, Catalog: refresher, Events: emitter}

	require.Error(t, s.RefreshCatalog(context.Background(), time.Minute))
	require.Empty(t, emitter.topics)
}

func TestPurgeEventsUsesRetention(t *testing.T) {
	locker, _ := newLocker(t)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	purger := &stubPurger{}
	s := scheduler{
		Locker:    locker,
		Purger:    purger,
		Retention: 48 * time.Hour,
		Now:       func() time.Time { return now },
	}

	require.NoError(t, s.PurgeEvents(context.Background(), time.Minute))
	require.Equal(t, []time.Time{now.Add(-48 * time.Hour)}, purger.cutoffs)

	s.Retention = 0
	require.NoError(t, s.PurgeEvents(context.Background(), time.Minute))
	require.Len(t, purger.cutoffs, 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	locker, _ := newLocker(t)
	refresher := &stubRefresher{gen: 1}
	s := scheduler{Locker: locker, Catalog: refresher}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Run(ctx, time.Hour)
	require.ErrorIs(t, err, context.Canceled)
}

func TestLockHold(t *testing.T) {
	require.Equal(t, 54*time.Second, lockHold(time.Minute))
	require.Equal(t, time.Second, lockHold(0))
}
