package config

import "time"

// RateLimitConfig configures the redis token bucket in front of public
// mutating endpoints.  Each key holds Capacity tokens and regains
// RefillTokens every RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    KeyStrategy    string
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.  RATE_LIMIT_BURST and
// RATE_LIMIT_REFILL_EVERY are shorthands for capacity and a one-token refill.
func LoadRateLimitConfig() RateLimitConfig {
    def := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_route"),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "wildpasta:rl"),
        Debug:          envBool("RATE_LIMIT_DEBUG", false),
    }
    if b := envInt("RATE_LIMIT_BURST", -1); b > 0 {
        def.Capacity = b
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        def.RefillTokens = 1
        def.RefillInterval = every
    }
    if def.Capacity < 1 {
        def.Capacity = 1
    }
    if def.RefillTokens < 1 {
        def.RefillTokens = 1
    }
    if def.RefillInterval <= 0 {
        def.RefillInterval = time.Second
    }
    minTTL := 5 * def.RefillInterval
    if def.TTL < minTTL {
        def.TTL = minTTL
    }
    return def
}
