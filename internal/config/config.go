// Package config loads runtime settings from the environment.
package config

import (
    "log"
    "os"
    "time"

    "github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The cache, rate limit and Redis settings are
// loaded separately by LoadCacheConfig, LoadRateLimitConfig and
// LoadRedisConfig.
type Config struct {
    Env          string // application environment (e.g. "dev", "prod")
    Port         string // HTTP port to listen on
    DBDriver     string // "mysql" or "sqlite"
    DBUser       string // database username (mysql)
    DBPass       string // database password (optional)
    DBHost       string // database host address (mysql)
    DBPort       string // database port number (mysql)
    DBName       string // database name (mysql)
    SQLitePath   string // database file (sqlite)
    JWTSecret    string // secret used to verify operator JWTs
    AccessTTLMin int    // access token time‑to‑live in minutes

    AutoActivationEnabled  bool          // run the leave scheduler inside serve
    AutoActivationInterval time.Duration // scheduler tick period
    Timezone               string        // IANA zone leave windows are evaluated in

    AMQPURL         string // RabbitMQ URL; empty disables the broker
    ActivityQueue   string // queue receiving pass activity events
    ActivityLogPath string // file the activity consumer appends to

    LogLevel string // zap level: debug, info, warn, error
    LogDir   string // optional directory for log files
}

// LoadDotEnv loads .env (or the given files) when present.  Variables
// already set in the environment win.
func LoadDotEnv(files ...string) {
    if len(files) == 0 {
        if _, err := os.Stat(".env"); err != nil {
            return
        }
    }
    if err := godotenv.Load(files...); err != nil {
        log.Printf("config: could not load env file: %v", err)
    }
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  MySQL connection
// variables are required only when DB_DRIVER is mysql.
func Load() Config {
    cfg := Config{
        Env:          getenv("APP_ENV", "dev"),
        Port:         getenv("APP_PORT", "8080"),
        DBDriver:     getenv("DB_DRIVER", "mysql"),
        DBPass:       os.Getenv("DB_PASS"), // empty allowed
        SQLitePath:   getenv("SQLITE_PATH", "passes.db"),
        JWTSecret:    must("JWT_SECRET"),
        AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),

        AutoActivationEnabled:  envBool("AUTO_ACTIVATION_ENABLED", true),
        AutoActivationInterval: envDur("AUTO_ACTIVATION_INTERVAL", time.Minute),
        Timezone:               getenv("TIMEZONE", "Local"),

        AMQPURL:         firstEnv("RABBITMQ_URL", "AMQP_URL"),
        ActivityQueue:   getenv("ACTIVITY_QUEUE", "pass.activity"),
        ActivityLogPath: getenv("ACTIVITY_LOG_PATH", "logs/activity.log"),

        LogLevel: getenv("LOG_LEVEL", "info"),
        LogDir:   os.Getenv("LOG_DIR"),
    }
    if cfg.DBDriver == "mysql" {
        cfg.DBUser = must("DB_USER")
        cfg.DBHost = must("DB_HOST")
        cfg.DBPort = must("DB_PORT")
        cfg.DBName = must("DB_NAME")
    }
    return cfg
}

// Location resolves Timezone, falling back to time.Local when the zone is
// unknown.
func (c Config) Location() *time.Location {
    loc, err := time.LoadLocation(c.Timezone)
    if err != nil {
        log.Printf("config: unknown TIMEZONE %q, using local time", c.Timezone)
        return time.Local
    }
    return loc
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
    for _, k := range keys {
        if v := os.Getenv(k); v != "" {
            return v
        }
    }
    return ""
}
