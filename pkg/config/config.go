package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	// Application
	AppEnv    string
	LogLevel  string
	LogFormat string
	UserID    string

	// Database
	LocalMode      bool
	DatabaseDriver string // auto, postgres, sqlite
	DatabaseURL    string
	SQLitePath     string

	// Redis
	RedisURL string

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

	// Worker
	WorkerHealthAddr string
	SweepSchedule    string

	// Metering
	UsageCacheTTL          time.Duration
	MeteringBreakerTimeout time.Duration

	// Library access
	FreeAccessStart time.Time
	FreeAccessEnd   time.Time
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	databaseURL := getEnv("DATABASE_URL", "")
	localMode := getBoolEnv("MODULUS_LOCAL_MODE", databaseURL == "")

	driver := getEnv("DATABASE_DRIVER", "auto")
	if localMode && driver == "auto" {
		driver = "sqlite"
	}

	cfg := &Config{
		AppEnv:    getEnv("APP_ENV", "development"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		UserID:    getEnv("MODULUS_USER_ID", "00000000-0000-0000-0000-000000000001"),

		LocalMode:      localMode,
		DatabaseDriver: driver,
		DatabaseURL:    databaseURL,
		SQLitePath:     getEnv("SQLITE_PATH", getDefaultSQLitePath()),

		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL: getEnv("RABBITMQ_URL", ""),

		OutboxPollInterval:     getDurationEnv("OUTBOX_POLL_INTERVAL", 100*time.Millisecond),
		OutboxBatchSize:        getIntEnv("OUTBOX_BATCH_SIZE", 100),
		OutboxMaxRetries:       getIntEnv("OUTBOX_MAX_RETRIES", 5),
		OutboxStatsInterval:    getDurationEnv("OUTBOX_STATS_INTERVAL", 30*time.Second),
		OutboxRetentionDays:    getIntEnv("OUTBOX_RETENTION_DAYS", 14),
		OutboxCleanupInterval:  getDurationEnv("OUTBOX_CLEANUP_INTERVAL", 24*time.Hour),
		OutboxProcessorEnabled: getBoolEnv("OUTBOX_PROCESSOR_ENABLED", true),

		WorkerHealthAddr: getEnv("WORKER_HEALTH_ADDR", "0.0.0.0:8081"),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "*/5 * * * *"),

		UsageCacheTTL:          getDurationEnv("USAGE_CACHE_TTL", 5*time.Minute),
		MeteringBreakerTimeout: getDurationEnv("METERING_BREAKER_TIMEOUT", 30*time.Second),

		FreeAccessStart: getTimeEnv("FREE_ACCESS_START"),
		FreeAccessEnd:   getTimeEnv("FREE_ACCESS_END"),
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

// IsLocalMode returns true when running against local storage without
// external infrastructure.
func (c *Config) IsLocalMode() bool {
	return c.LocalMode
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

// getTimeEnv parses an RFC 3339 timestamp, or a bare date taken as
// midnight UTC. Returns the zero time when unset or unparseable.
func getTimeEnv(key string) time.Time {
	value := os.Getenv(key)
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t
	}
	return time.Time{}
}

func getDefaultSQLitePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".modulus/data.db"
	}
	return home + "/.modulus/data.db"
}
