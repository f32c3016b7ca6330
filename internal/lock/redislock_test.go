package lock_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-showroom/internal/lock"
)

func newLocker(t *testing.T) (lock.Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond}, mr
}

func TestWithLockSerialisesSessionEdits(t *testing.T) {
	locker, _ := newLocker(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var inside, overlaps int32
	edit := func(context.Context) error {
		if atomic.AddInt32(&inside, 1) > 1 {
			atomic.AddInt32(&overlaps, 1)
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&inside, -1)
		return nil
	}

	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		go func() { errs <- locker.WithLock(ctx, lock.SessionKey("s-1"), time.Second, edit) }()
	}
	for i := 0; i < 4; i++ {
		require.NoError(t, <-errs)
	}
	require.Zero(t, atomic.LoadInt32(&overlaps))
}

func TestWithLockReleasesOnError(t *testing.T) {
	locker, mr := newLocker(t)
	boom := errors.New("boom")

	err := locker.WithLock(context.Background(), lock.SessionKey("s-2"), time.Minute, func(context.Context) error { return boom })
	require.ErrorIs(t, err, boom)
	require.False(t, mr.Exists(lock.SessionKey("s-2")))
}

func TestWithLockLeavesForeignHolder(t *testing.T) {
	locker, mr := newLocker(t)
	key := lock.SessionKey("s-3")

	err := locker.WithLock(context.Background(), key, time.Minute, func(context.Context) error {
		// simulate our ttl lapsing and another process taking over
		return mr.Set(key, "successor")
	})
	require.NoError(t, err)
	got, err := mr.Get(key)
	require.NoError(t, err)
	require.Equal(t, "successor", got)
}

func TestWithLockGivesUpWhenContextEnds(t *testing.T) {
	locker, mr := newLocker(t)
	require.NoError(t, mr.Set(lock.SessionKey("busy"), "someone-else"))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	called := false
	err := locker.WithLock(ctx, lock.SessionKey("busy"), time.Second, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, called)
}

func TestWithLockStopsAfterMaxWait(t *testing.T) {
	locker, mr := newLocker(t)
	locker.MaxWait = 20 * time.Millisecond
	require.NoError(t, mr.Set(lock.SessionKey("busy"), "someone-else"))

	err := locker.WithLock(context.Background(), lock.SessionKey("busy"), time.Second, func(context.Context) error {
		t.Fatal("callback must not run")
		return nil
	})
	require.ErrorIs(t, err, lock.ErrNotAcquired)
}

func TestTryLockSkipsWhileHeld(t *testing.T) {
	locker, mr := newLocker(t)
	runs := 0
	run := func(context.Context) error {
		runs++
		return nil
	}
	ctx := context.Background()

	require.NoError(t, locker.TryLock(ctx, lock.CatalogRefreshKey, time.Minute, run))
	require.ErrorIs(t, locker.TryLock(ctx, lock.CatalogRefreshKey, time.Minute, run), lock.ErrNotAcquired)
	require.Equal(t, 1, runs)

	mr.FastForward(2 * time.Minute)
	require.NoError(t, locker.TryLock(ctx, lock.CatalogRefreshKey, time.Minute, run))
	require.Equal(t, 2, runs)
}

func TestLockerWithoutClient(t *testing.T) {
	err := lock.Locker{}.TryLock(context.Background(), "k", time.Second, func(context.Context) error { return nil })
	require.ErrorContains(t, err, "not configured")
}
