package config

// Redis backs three optional concerns: the rate limiter, the availability
// response cache and the asynq seeding queue.  When the server cannot be
// reached at startup the HTTP side degrades by disabling the first two.

import (
    "context"
    "crypto/tls"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig holds connection parameters.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads:
//   REDIS_HOST and REDIS_PORT – hostname and port of the Redis server
//   REDIS_ADDR – host:port shorthand, used when host/port are not both set
//   REDIS_PASSWORD – optional password
//   REDIS_DB – database number (default 0)
//   REDIS_TLS – enable TLS when "true" or "1"
func LoadRedisConfig() RedisConfig {
    host := os.Getenv("REDIS_HOST")
    port := os.Getenv("REDIS_PORT")
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// TLSConfig returns the client TLS settings, or nil when TLS is off.
func (c RedisConfig) TLSConfig() *tls.Config {
    if !c.TLS {
        return nil
    }
    return &tls.Config{MinVersion: tls.VersionTLS12}
}

// NewRedisClient connects and pings with a short timeout.  It returns nil
// when the server is unreachable so callers can run without Redis.
func NewRedisClient(cfg RedisConfig) *redis.Client {
    client := redis.NewClient(&redis.Options{
        Addr:      cfg.Addr,
        Password:  cfg.Password,
        DB:        cfg.DB,
        TLSConfig: cfg.TLSConfig(),
    })
    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
