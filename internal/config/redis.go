package config

import (
    "context"
    "crypto/tls"
    "fmt"
    "net"
    "os"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig describes the optional Redis server backing the rate
// limiter and, with CACHE_BACKEND=redis, the shared pass list cache.
//
//   REDIS_ADDR      host:port, or REDIS_HOST and REDIS_PORT (default localhost:6379)
//   REDIS_PASSWORD  optional password
//   REDIS_DB        database number
//   REDIS_TLS       dial with TLS
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
}

// LoadRedisConfig reads the REDIS_* variables.
func LoadRedisConfig() RedisConfig {
    addr := getenv("REDIS_ADDR", "localhost:6379")
    if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
        addr = net.JoinHostPort(host, port)
    }
    return RedisConfig{
        Addr:     addr,
        Password: os.Getenv("REDIS_PASSWORD"),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
    }
}

// NewRedisClient dials Redis and pings it with a short timeout.  Callers
// treat an error as "run without Redis": no rate limiting and an
// in-process cache.
func NewRedisClient(cfg RedisConfig) (*redis.Client, error) {
    opts := &redis.Options{
        Addr:     cfg.Addr,
        Password: cfg.Password,
        DB:       cfg.DB,
    }
    if cfg.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil, fmt.Errorf("redis %s: %w", cfg.Addr, err)
    }
    return client, nil
}
