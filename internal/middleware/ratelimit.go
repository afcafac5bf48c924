package middleware

import (
    "context"
    "fmt"
    "math"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "go.uber.org/zap"

    "github.com/iliyamo/seat-inventory/internal/config"
)

// Key strategies for the seat limiter.
const (
    KeyUserSchedule = "user_schedule"
    KeyUser         = "user"
    KeyIP           = "ip"
    KeySchedule     = "schedule"
)

// takeToken refills the bucket in KEYS[1] for the whole intervals that
// elapsed and spends one token.  Returns {allowed, tokens_left, retry_ms}.
var takeToken = redis.NewScript(`
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local every = tonumber(ARGV[4])

local tokens = tonumber(redis.call('HGET', KEYS[1], 'tokens'))
local stamp = tonumber(redis.call('HGET', KEYS[1], 'stamp'))
if tokens == nil or stamp == nil then
    tokens = capacity
    stamp = now
end

local steps = math.floor(math.max(0, now - stamp) / every)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    stamp = stamp + steps * every
end

local retry = 0
local ok = 0
if tokens > 0 then
    ok = 1
    tokens = tokens - 1
else
    retry = math.max(0, every - (now - stamp))
end

redis.call('HSET', KEYS[1], 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', KEYS[1], tonumber(ARGV[5]))
return {ok, tokens, retry}
`)

type bucketState struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// NewTokenBucket limits how fast callers can take seats.  Each bucket lives
// in Redis and by default belongs to one user on one schedule.  Redis
// failures let the request through.  Without a Redis client, or when
// disabled, the middleware is a no-op.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
    if log == nil {
        log = zap.NewNop()
    }
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
    }
    every := cfg.RefillInterval
    if every <= 0 {
        every = time.Second
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            st, err := spend(c.Request().Context(), rdb, key, cfg, every)
            if err != nil {
                log.Warn("rate limit unavailable", zap.String("key", key), zap.Error(err))
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(st.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if st.allowed {
                return next(c)
            }

            secs := int(math.Ceil(st.retry.Seconds()))
            h.Set("Retry-After", strconv.Itoa(secs))
            if cfg.Debug {
                log.Info("seat request throttled", zap.String("key", key), zap.Duration("retry", st.retry))
            }
            return c.JSON(http.StatusTooManyRequests, echo.Map{
                "error":       "too_many_requests",
                "message":     "too many seat requests, slow down",
                "retry_after": secs,
            })
        }
    }
}

func spend(ctx context.Context, rdb *redis.Client, key string, cfg config.RateLimitConfig, every time.Duration) (bucketState, error) {
    vals, err := takeToken.Run(ctx, rdb, []string{key},
        time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, every.Milliseconds(), int64(cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return bucketState{}, err
    }
    if len(vals) != 3 {
        return bucketState{}, fmt.Errorf("unexpected limiter reply %v", vals)
    }
    return bucketState{
        allowed:   vals[0] == 1,
        remaining: vals[1],
        retry:     time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

// rateKey names the bucket for a request.  Routes without a schedule, such
// as releasing a session, share the caller's "none" schedule bucket.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    schedule := c.Param("schedule_id")
    if schedule == "" {
        schedule = "none"
    }
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case KeyUser:
        parts = append(parts, "user", userID(c))
    case KeyIP:
        parts = append(parts, "ip", ip)
    case KeySchedule:
        parts = append(parts, "schedule", schedule)
    default:
        parts = append(parts, "user", userID(c), "schedule", schedule)
    }
    return strings.Join(parts, ":")
}
