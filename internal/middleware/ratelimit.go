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
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/wild-pasta-booking/internal/config"
)

// tokenBucketScript refills and takes one token atomically.  It returns
// {allowed, tokens_left, retry_after_ms}.
var tokenBucketScript = redis.NewScript(`
    local key = KEYS[1]
    local now_ms = tonumber(ARGV[1])
    local capacity = tonumber(ARGV[2])
    local refill_tokens = tonumber(ARGV[3])
    local interval_ms = tonumber(ARGV[4])
    local ttl_seconds = tonumber(ARGV[5])

    local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
    local tokens = tonumber(state[1])
    local last_refill = tonumber(state[2])

    if tokens == nil or last_refill == nil then
        tokens = capacity
        last_refill = now_ms
    end

    if interval_ms > 0 and refill_tokens > 0 then
        local elapsed = math.max(0, now_ms - last_refill)
        local intervals = math.floor(elapsed / interval_ms)
        if intervals > 0 then
            tokens = math.min(capacity, tokens + (intervals * refill_tokens))
            last_refill = last_refill + (intervals * interval_ms)
        end
    end

    local allowed = 0
    local retry_after_ms = 0
    if tokens > 0 then
        allowed = 1
        tokens = tokens - 1
    else
        retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
    end

    redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
    redis.call('EXPIRE', key, ttl_seconds)

    return { allowed, tokens, retry_after_ms }
`)

type bucketDecision struct {
    allowed   bool
    remaining int64
    retry     time.Duration
}

// NewTokenBucket limits requests per key built from cfg.KeyStrategy.  Redis
// failures let the request through; the limiter only sheds abusive clients
// and must never take ordering down with it.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *logrus.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passthrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := buildRateKey(cfg, c)
            d, err := take(c.Request().Context(), rdb, cfg, key, time.Now())
            if err != nil {
                log.WithError(err).WithField("key", key).Warn("rate limiter unavailable")
                return next(c)
            }

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
            if cfg.Debug {
                h.Set("X-RateLimit-Key", key)
            }
            if !d.allowed {
                secs := int(math.Ceil(d.retry.Seconds()))
                h.Set("Retry-After", strconv.Itoa(secs))
                log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Debug("rate limited")
                return c.JSON(http.StatusTooManyRequests, echo.Map{
                    "code":        "too_many_requests",
                    "error":       "rate limit exceeded",
                    "retry_after": secs,
                })
            }
            return next(c)
        }
    }
}

func take(ctx context.Context, rdb *redis.Client, cfg config.RateLimitConfig, key string, now time.Time) (bucketDecision, error) {
    vals, err := tokenBucketScript.Run(ctx, rdb, []string{key},
        now.UnixMilli(),
        cfg.Capacity,
        cfg.RefillTokens,
        cfg.RefillInterval.Milliseconds(),
        int64(cfg.TTL/time.Second),
    ).Int64Slice()
    if err != nil {
        return bucketDecision{}, err
    }
    if len(vals) != 3 {
        return bucketDecision{}, fmt.Errorf("unexpected limiter reply %v", vals)
    }
    return bucketDecision{
        allowed:   vals[0] == 1,
        remaining: vals[1],
        retry:     time.Duration(vals[2]) * time.Millisecond,
    }, nil
}

func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
    ip := c.RealIP()
    if ip == "" {
        ip = "unknown"
    }
    uid := rateIdentity(c)
    route := c.Request().Method + " " + c.Path()

    parts := []string{cfg.Prefix}
    switch strings.ToLower(cfg.KeyStrategy) {
    case "ip":
        parts = append(parts, "ip", ip)
    case "user":
        parts = append(parts, "user", uid)
    case "route":
        parts = append(parts, "route", route)
    case "ip_user":
        parts = append(parts, "ip", ip, "user", uid)
    case "user_route":
        parts = append(parts, "user", uid, "route", route)
    case "ip_user_route":
        parts = append(parts, "ip", ip, "user", uid, "route", route)
    default: // ip_route
        parts = append(parts, "ip", ip, "route", route)
    }
    return strings.Join(parts, ":")
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }
