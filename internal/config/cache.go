package config

import (
    "strings"
    "time"
)

// CacheConfig defines settings for the availability response cache.  The
// cache only serves display reads; admission never consults it, so a short
// TTL bounds how stale a shown count can be.
//
// Methods lists the HTTP methods to cache.  KeyStrategy picks which parts of
// the request form the key: route, method_route, method_route_query or the
// default route_query.  MaxBodyBytes caps what is stored.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool
    TTL          time.Duration
    KeyStrategy  string
    Prefix       string
    MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables with defaults.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
        TTL:          envDur("CACHE_TTL", 5*time.Second),
        KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
        Prefix:       envStr("CACHE_PREFIX", "wildpasta:cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 256<<10),
    }
}

func parseMethods(s string) map[string]bool {
    m := map[string]bool{}
    for _, p := range strings.Split(s, ",") {
        p = strings.TrimSpace(strings.ToUpper(p))
        if p != "" {
            m[p] = true
        }
    }
    return m
}
