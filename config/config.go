package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	HTTPAddr   string
	CronSecret string

	// Postgres configuration
	DatabaseURL      string
	DatabaseMaxConns int

	// Redis configuration
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration
	MemcacheAddr string
	HostCooldown time.Duration

	// Collection pipeline
	RateLimit        time.Duration
	ScrapeTimeout    time.Duration
	ScrapeMaxRetries int
	ScrapeBackoff    time.Duration
	UserAgent        string
	MinPrice         decimal.Decimal
	MaxPrice         decimal.Decimal
	DuplicateWindow  time.Duration
	DefaultBatchSize int
	DefaultCurrency  string

	// Environment
	Environment string
}

// SchedulerConfig configures the external scheduler that triggers collection runs
type SchedulerConfig struct {
	TargetURL string
	CronKey   string
	Slots     int
	BatchSize int
	Interval  time.Duration
}

// DefaultUserAgent is sent when SCRAPE_USER_AGENT is not set
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122 Safari/537.36"

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		CronSecret:           os.Getenv("CRON_SECRET"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		DatabaseMaxConns:     getEnvInt("DATABASE_MAX_CONNS", 4),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisDB:              getEnvInt("REDIS_DB", 0),
		RedisStream:          getEnv("REDIS_STREAM", "price_observations"),
		RedisStreamMaxLength: getEnvInt("REDIS_STREAM_MAX_LENGTH", 10000),
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		HostCooldown:         time.Duration(getEnvInt("HOST_COOLDOWN_SECONDS", 300)) * time.Second,
		RateLimit:            time.Duration(getEnvInt("RATE_LIMIT_MS", 15000)) * time.Millisecond,
		ScrapeTimeout:        time.Duration(getEnvInt("SCRAPE_TIMEOUT_MS", 12000)) * time.Millisecond,
		ScrapeMaxRetries:     getEnvInt("SCRAPE_MAX_RETRIES", 2),
		ScrapeBackoff:        time.Duration(getEnvInt("SCRAPE_BACKOFF_MS", 800)) * time.Millisecond,
		UserAgent:            getEnv("SCRAPE_USER_AGENT", DefaultUserAgent),
		MinPrice:             getEnvDecimal("SCRAPE_MIN_PRICE", decimal.NewFromInt(50)),
		MaxPrice:             getEnvDecimal("SCRAPE_MAX_PRICE", decimal.NewFromInt(200000)),
		DuplicateWindow:      time.Duration(getEnvInt("ALLOW_DUPLICATE_MINUTES", 60)) * time.Minute,
		DefaultBatchSize:     getEnvInt("CRON_BATCH_SIZE", 10),
		DefaultCurrency:      getEnv("DEFAULT_CURRENCY", "BRL"),
		Environment:          getEnv("TRACKER_ENVIRONMENT", "development"),
	}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("RATE_LIMIT_MS must not be negative")
	}
	if c.ScrapeTimeout <= 0 {
		return fmt.Errorf("SCRAPE_TIMEOUT_MS must be positive")
	}
	if c.ScrapeMaxRetries < 0 {
		return fmt.Errorf("SCRAPE_MAX_RETRIES must not be negative")
	}
	if c.ScrapeBackoff < 0 {
		return fmt.Errorf("SCRAPE_BACKOFF_MS must not be negative")
	}
	if !c.MinPrice.LessThan(c.MaxPrice) {
		return fmt.Errorf("SCRAPE_MIN_PRICE (%s) must be lower than SCRAPE_MAX_PRICE (%s)", c.MinPrice, c.MaxPrice)
	}
	if c.DuplicateWindow < 0 {
		return fmt.Errorf("ALLOW_DUPLICATE_MINUTES must not be negative")
	}
	if c.DefaultBatchSize < 1 {
		return fmt.Errorf("CRON_BATCH_SIZE must be at least 1")
	}
	if len(c.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3 letter code, got %q", c.DefaultCurrency)
	}
	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// LoadSchedulerConfig loads the scheduler configuration from environment variables
func LoadSchedulerConfig() *SchedulerConfig {
	return &SchedulerConfig{
		TargetURL: os.Getenv("TARGET_URL"),
		CronKey:   os.Getenv("CRON_KEY"),
		Slots:     max(1, getEnvInt("SLOTS", 6)),
		BatchSize: max(1, getEnvInt("BATCH_SIZE", 10)),
		Interval:  time.Duration(getEnvInt("SCHEDULE_INTERVAL_SECONDS", 60)) * time.Second,
	}
}

// Validate checks that the scheduler configuration is usable
func (c *SchedulerConfig) Validate() error {
	if c.TargetURL == "" {
		return fmt.Errorf("TARGET_URL must be set")
	}
	if _, err := url.ParseRequestURI(c.TargetURL); err != nil {
		return fmt.Errorf("TARGET_URL is not a valid url: %w", err)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("SCHEDULE_INTERVAL_SECONDS must be positive")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	v, err := decimal.NewFromString(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return v
}
