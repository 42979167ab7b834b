package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	Scrape   ScrapeConfig
	Import   ImportConfig
	Rehost   RehostConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Logging  LoggingConfig
	API      APIConfig
}

type ServerConfig struct {
	Port            int
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type ScrapeConfig struct {
	APIKey       string
	BaseURL      string
	WaitFor      time.Duration
	Timeout      time.Duration
	RateLimitMin time.Duration
	RateLimitMax time.Duration
}

type ImportConfig struct {
	// MaxChain caps the number of provider calls one import may issue
	// while walking the fallback-URL chain.
	MaxChain         int
	PlaceholderStats bool
	ResolveTimeout   time.Duration
}

type RehostConfig struct {
	Concurrency     int
	DownloadTimeout time.Duration
	PathPrefix      string
}

type StorageConfig struct {
	Bucket        string
	Region        string
	PublicBaseURL string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	MaxConns int32
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	Stream   string
}

type LoggingConfig struct {
	Level  string
	Format string
}

type APIConfig struct {
	// ImportToken, when set, is required as a bearer token on the
	// import endpoint. Real authentication lives upstream.
	ImportToken string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvInt("PORT", 8085),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:     getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Scrape: ScrapeConfig{
			APIKey:       getEnv("FIRECRAWL_API_KEY", ""),
			BaseURL:      getEnv("FIRECRAWL_BASE_URL", "https://api.firecrawl.dev"),
			WaitFor:      getEnvDuration("SCRAPE_WAIT_FOR", 10*time.Second),
			Timeout:      getEnvDuration("SCRAPE_TIMEOUT", 90*time.Second),
			RateLimitMin: getEnvDuration("SCRAPE_RATE_LIMIT_MIN", 0),
			RateLimitMax: getEnvDuration("SCRAPE_RATE_LIMIT_MAX", 0),
		},
		Import: ImportConfig{
			MaxChain:         getEnvInt("IMPORT_MAX_CHAIN", 4),
			PlaceholderStats: getEnvBool("EXTRACT_PLACEHOLDER_STATS", true),
			ResolveTimeout:   getEnvDuration("IMPORT_RESOLVE_TIMEOUT", 15*time.Second),
		},
		Rehost: RehostConfig{
			Concurrency:     getEnvInt("REHOST_CONCURRENCY", 5),
			DownloadTimeout: getEnvDuration("REHOST_DOWNLOAD_TIMEOUT", 30*time.Second),
			PathPrefix:      getEnv("REHOST_PATH_PREFIX", "products"),
		},
		Storage: StorageConfig{
			Bucket:        getEnv("S3_BUCKET", ""),
			Region:        getEnv("AWS_REGION", "eu-west-1"),
			PublicBaseURL: getEnv("S3_PUBLIC_BASE_URL", ""),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvBool("DB_ENABLED", true),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Name:     getEnv("DB_NAME", "lurebay_catalog"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Stream:   getEnv("REDIS_IMPORT_STREAM", "stream:catalog_imports"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		API: APIConfig{
			ImportToken: getEnv("IMPORT_API_TOKEN", ""),
		},
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Scrape.APIKey == "" {
		return fmt.Errorf("FIRECRAWL_API_KEY is required")
	}

	if c.Import.MaxChain < 1 {
		return fmt.Errorf("IMPORT_MAX_CHAIN must be at least 1")
	}

	if c.Rehost.Concurrency < 1 {
		return fmt.Errorf("REHOST_CONCURRENCY must be at least 1")
	}

	if c.Scrape.RateLimitMin > c.Scrape.RateLimitMax {
		return fmt.Errorf("SCRAPE_RATE_LIMIT_MIN cannot be greater than SCRAPE_RATE_LIMIT_MAX")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
