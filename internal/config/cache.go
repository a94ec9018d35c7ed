package config

import (
    "os"
    "time"
)

// CacheConfig defines settings for the pass list read cache.  Backend is
// "local" (process memory) or "redis"; a redis backend without a reachable
// server falls back to local.  TTL bounds how long a list stays visible
// after it was written.  Prefix namespaces the Redis keys.
type CacheConfig struct {
    Enabled bool
    Backend string
    TTL     time.Duration
    Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.  Defaults
// are used when variables are not set.
func LoadCacheConfig() CacheConfig {
    return CacheConfig{
        Enabled: envBool("CACHE_ENABLED", true),
        Backend: getenv("CACHE_BACKEND", "local"),
        TTL:     parseDur(getenv("CACHE_TTL", "30s")),
        Prefix:  getenv("CACHE_PREFIX", "passd"),
    }
}

// Helper functions reused from redis.go and ratelimit.go
func getenv(key, def string) string {
    if v := os.Getenv(key); v != "" {
        return v
    }
    return def
}

func parseDur(s string) time.Duration {
    d, err := time.ParseDuration(s)
    if err != nil {
        return time.Second
    }
    return d
}
