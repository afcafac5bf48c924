package scheduler

import (
    "context"
    "errors"
    "sync/atomic"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/config"
    "github.com/iliyamo/seat-inventory/internal/service"
)

type countingSweeper struct{ calls atomic.Int32 }

func (c *countingSweeper) SweepExpired(context.Context) (int64, error) {
    c.calls.Add(1)
    return 0, nil
}

type countingExpirer struct{ calls atomic.Int32 }

func (c *countingExpirer) ExpireStalePending(context.Context) (int, error) {
    c.calls.Add(1)
    return 0, errors.New("database unavailable")
}

type countingSync struct{ calls atomic.Int32 }

func (c *countingSync) SynchronizeAll(context.Context) (service.Summary, error) {
    c.calls.Add(1)
    return service.Summary{}, nil
}

func newRedis(t *testing.T) *redis.Client {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb
}

func TestStartRunsEnabledJobs(t *testing.T) {
    sweeper, expirer, syncer := &countingSweeper{}, &countingExpirer{}, &countingSync{}
    s, err := Start(config.JobsConfig{
        SweepInterval:     20 * time.Millisecond,
        PendingInterval:   20 * time.Millisecond,
        ReconcileInterval: 0,
    }, Jobs{Sweeper: sweeper, Pending: expirer, Reconcile: syncer}, nil, zap.NewNop())
    require.NoError(t, err)
    defer func() { _ = s.Shutdown() }()

    assert.Len(t, s.Jobs(), 2)
    assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)
    assert.Eventually(t, func() bool { return expirer.calls.Load() >= 2 }, 2*time.Second, 10*time.Millisecond,
        "a failing job keeps its schedule")
    assert.Zero(t, syncer.calls.Load())
}

func TestStartWithRedisLocker(t *testing.T) {
    rdb := newRedis(t)
    sweeper := &countingSweeper{}
    s, err := Start(config.JobsConfig{SweepInterval: 20 * time.Millisecond},
        Jobs{Sweeper: sweeper}, NewRedisLocker(rdb, "seatinv:jobs", 10*time.Millisecond), zap.NewNop())
    require.NoError(t, err)
    defer func() { _ = s.Shutdown() }()

    assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestRedisLocker(t *testing.T) {
    rdb := newRedis(t)
    ctx := context.Background()
    locker := NewRedisLocker(rdb, "seatinv:jobs", time.Minute)

    lock, err := locker.Lock(ctx, "sweep-expired-holds")
    require.NoError(t, err)
    ttl, err := rdb.TTL(ctx, "seatinv:jobs:sweep-expired-holds").Result()
    require.NoError(t, err)
    assert.Greater(t, ttl, time.Duration(0))

    _, err = locker.Lock(ctx, "sweep-expired-holds")
    assert.ErrorIs(t, err, ErrLockHeld)

    other, err := locker.Lock(ctx, "reconcile-schedules")
    require.NoError(t, err)
    require.NoError(t, other.Unlock(ctx))

    require.NoError(t, lock.Unlock(ctx))
    again, err := locker.Lock(ctx, "sweep-expired-holds")
    require.NoError(t, err)

    // a stale owner cannot release the current lock
    require.NoError(t, lock.Unlock(ctx))
    _, err = locker.Lock(ctx, "sweep-expired-holds")
    assert.ErrorIs(t, err, ErrLockHeld)
    require.NoError(t, again.Unlock(ctx))
}
