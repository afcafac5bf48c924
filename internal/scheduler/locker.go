package scheduler

import (
    "context"
    "errors"
    "time"

    "github.com/go-co-op/gocron/v2"
    "github.com/google/uuid"
    "github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another instance owns the job lock.
var ErrLockHeld = errors.New("job lock held by another instance")

// releaseScript deletes the lock only if it still carries our token, so an
// instance whose lock expired cannot release the next owner's lock.
var releaseScript = redis.NewScript(`
    if redis.call('GET', KEYS[1]) == ARGV[1] then
        return redis.call('DEL', KEYS[1])
    end
    return 0
`)

// RedisLocker is a gocron distributed locker on SET NX with expiry.  The
// TTL bounds how long a crashed instance can keep a job from running
// elsewhere.
type RedisLocker struct {
    rdb    *redis.Client
    prefix string
    ttl    time.Duration
}

// NewRedisLocker returns a locker storing keys under prefix.
func NewRedisLocker(rdb *redis.Client, prefix string, ttl time.Duration) *RedisLocker {
    if ttl <= 0 {
        ttl = time.Minute
    }
    return &RedisLocker{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Lock implements gocron.Locker.
func (l *RedisLocker) Lock(ctx context.Context, key string) (gocron.Lock, error) {
    token := uuid.NewString()
    full := l.prefix + ":" + key
    ok, err := l.rdb.SetNX(ctx, full, token, l.ttl).Result()
    if err != nil {
        return nil, err
    }
    if !ok {
        return nil, ErrLockHeld
    }
    return &redisLock{rdb: l.rdb, key: full, token: token}, nil
}

type redisLock struct {
    rdb   *redis.Client
    key   string
    token string
}

// Unlock implements gocron.Lock.
func (l *redisLock) Unlock(ctx context.Context) error {
    return releaseScript.Run(ctx, l.rdb, []string{l.key}, l.token).Err()
}
