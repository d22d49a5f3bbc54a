package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Lock backends.
const (
	LockRedis = "redis"
	LockLocal = "local"
	LockNone  = "none"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string
	UserID    string

	// Database
	DatabaseURL    string
	DatabaseDriver string
	SQLitePath     string
	LocalMode      bool

	// Locking
	RedisURL    string
	LockBackend string
	LockTTL     time.Duration
	LockWait    time.Duration

	// RabbitMQ
	RabbitMQURL string

	// Outbox
	OutboxPollInterval     time.Duration
	OutboxBatchSize        int
	OutboxMaxRetries       int
	OutboxStatsInterval    time.Duration
	OutboxRetentionDays    int
	OutboxCleanupInterval  time.Duration
	OutboxProcessorEnabled bool
	OutboxBacklogLimit     int64

	// Circuit breaker around the broker
	BreakerFailureThreshold uint32
	BreakerMaxRequests      uint32
	BreakerInterval         time.Duration
	BreakerTimeout          time.Duration

	// Worker
	WorkerHealthAddr string

	// Listing
	DefaultPageSize int
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		UserID:    getEnv("TASKLIST_USER_ID", "00000000-0000-0000-0000-000000000001"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  os.Getenv("SQLITE_PATH"),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		LockBackend: strings.ToLower(getEnv("LOCK_BACKEND", "")),
		LockTTL:     getDurationEnv("LOCK_TTL", 10*time.Second),
		LockWait:    getDurationEnv("LOCK_WAIT", 5*time.Second),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxStatsInterval:    getDurationEnv("OUTBOX_STATS_INTERVAL", 30*time.Second),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 7),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),
		OutboxBacklogLimit:     int64(getIntEnv("OUTBOX_BACKLOG_LIMIT", 1000)),

		BreakerFailureThreshold: getUint32Env("BREAKER_FAILURE_THRESHOLD", 5),
		BreakerMaxRequests:      getUint32Env("BREAKER_MAX_REQUESTS", 1),
		BreakerInterval:         getDurationEnv("BREAKER_INTERVAL", time.Minute),
		BreakerTimeout:          getDurationEnv("BREAKER_TIMEOUT", 30*time.Second),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),

		DefaultPageSize: getIntEnv("DEFAULT_PAGE_SIZE", 5),
	}

	// Local mode: SQLite file, no broker or shared lock needed.
	// Enabled when asked for or when no PostgreSQL URL is configured.
	cfg.LocalMode = getBoolEnv("TASKLIST_LOCAL_MODE", false) || cfg.DatabaseURL == ""
	cfg.DatabaseDriver = strings.ToLower(getEnv("DATABASE_DRIVER", ""))
	if cfg.DatabaseDriver == "" || getBoolEnv("TASKLIST_LOCAL_MODE", false) {
		if cfg.LocalMode {
			cfg.DatabaseDriver = DriverSQLite
		} else {
			cfg.DatabaseDriver = DriverPostgres
		}
	}

	if cfg.LockBackend == "" {
		if cfg.LocalMode {
			cfg.LockBackend = LockLocal
		} else {
			cfg.LockBackend = LockRedis
		}
	}

	return cfg, nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// IsLocalMode returns true when running against a local SQLite file.
func (c *Config) IsLocalMode() bool {
	return c.LocalMode
}

// IsSQLite returns true if the SQLite driver is selected.
func (c *Config) IsSQLite() bool {
	return c.DatabaseDriver == DriverSQLite
}

// IsPostgres returns true if the PostgreSQL driver is selected.
func (c *Config) IsPostgres() bool {
	return c.DatabaseDriver == DriverPostgres
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getUint32Env(key string, defaultValue uint32) uint32 {
	if value := os.Getenv(key); value != "" {
		if u, err := strconv.ParseUint(value, 10, 32); err == nil {
			return uint32(u)
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
