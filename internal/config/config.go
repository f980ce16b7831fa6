package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configurations
// All sensitive values are loaded from .env
type Config struct {
	// Server Configuration
	Environment string
	ServerPort  string
	LogLevel    string
	LogFile     string

	// Storage: "postgres" or "memory"
	StorageDriver string

	// DB configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis configuration
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	LinkCacheTTL     time.Duration
	NegativeCacheTTL time.Duration

	// Application settings
	BaseURL            string            // Base URL for generating short links
	ShortCodeLength    int               // Length of generated short codes
	RateLimitPerMinute int               // Rate limit per IP address
	RequestTimeout     time.Duration     // Upper bound for a single request
	CORSOrigins        []string          // Allowed browser origins for the API
	APIKeys            map[string]string // API key -> owner ID

	// Redirect gateway. Enable only behind a proxy that overwrites the
	// client IP and country headers.
	TrustProxyHeaders bool

	// Geo resolution
	GeoDBPath          string
	GeoDefaultCountry  string
	GeoDefaultRegion   string
	GeoDefaultTimezone string
	GeoCacheSize       int
	GeoCacheTTL        time.Duration

	// Click analytics
	FingerprintSalt    string
	FingerprintWindow  time.Duration // 0 = a visitor is unique once per link, forever
	AnalyticsWorkers   int
	AnalyticsQueueSize int
	AnalyticsTimeout   time.Duration

	// Click event stream (disabled when no brokers are set)
	KafkaBrokers []string
	KafkaTopic   string
}

// LoadConfig loads configuration from environment variables
// Returns error if required environment variables are missing
func LoadConfig() (*Config, error) {
	cfg := &Config{
		// Server defaults
		Environment: getEnv("ENVIRONMENT", "development"),
		ServerPort:  getEnv("SERVER_PORT", "8081"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFile:     getEnv("LOG_FILE", ""),

		StorageDriver: strings.ToLower(getEnv("STORAGE_DRIVER", "postgres")),

		// Database configuration
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "linkgate"),
		DBSSLMode:  getEnv("DB_SSL_MODE", "disable"),

		// Redis configuration
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		LinkCacheTTL:     getEnvAsDuration("LINK_CACHE_TTL", 10*time.Minute),
		NegativeCacheTTL: getEnvAsDuration("NEGATIVE_CACHE_TTL", 30*time.Second),

		// Application settings
		BaseURL:            strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:8081"), "/"),
		ShortCodeLength:    getEnvAsInt("SHORT_CODE_LENGTH", 7),
		RateLimitPerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 120),
		RequestTimeout:     getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second),
		CORSOrigins:        getEnvAsList("CORS_ORIGINS", []string{"*"}),

		TrustProxyHeaders: getEnvAsBool("TRUST_PROXY_HEADERS", false),

		GeoDBPath:          getEnv("GEO_DB_PATH", ""),
		GeoDefaultCountry:  strings.ToUpper(getEnv("GEO_DEFAULT_COUNTRY", "")),
		GeoDefaultRegion:   getEnv("GEO_DEFAULT_REGION", ""),
		GeoDefaultTimezone: getEnv("GEO_DEFAULT_TIMEZONE", "UTC"),
		GeoCacheSize:       getEnvAsInt("GEO_CACHE_SIZE", 10000),
		GeoCacheTTL:        getEnvAsDuration("GEO_CACHE_TTL", time.Hour),

		FingerprintSalt:    getEnv("FINGERPRINT_SALT", ""),
		FingerprintWindow:  getEnvAsDuration("FINGERPRINT_WINDOW", 0),
		AnalyticsWorkers:   getEnvAsInt("ANALYTICS_WORKERS", 4),
		AnalyticsQueueSize: getEnvAsInt("ANALYTICS_QUEUE_SIZE", 1024),
		AnalyticsTimeout:   getEnvAsDuration("ANALYTICS_TIMEOUT", 5*time.Second),

		KafkaBrokers: getEnvAsList("KAFKA_BROKERS", nil),
		KafkaTopic:   getEnv("KAFKA_TOPIC", "link-clicks"),
	}

	apiKeys, err := parseAPIKeys(getEnv("API_KEYS", ""))
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg.APIKeys = apiKeys

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration is present and valid
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("STORAGE_DRIVER must be postgres or memory, got %q", c.StorageDriver)
	}

	// Validate database password in production
	if c.IsProduction() && c.StorageDriver == "postgres" && c.DBPassword == "" {
		return fmt.Errorf("DB_PASSWORD is required in production")
	}

	// Fingerprints from a known salt can be reversed by brute force over IPs
	if c.IsProduction() && c.FingerprintSalt == "" {
		return fmt.Errorf("FINGERPRINT_SALT is required in production")
	}

	// Validate short code length (must be between 4 and 12)
	if c.ShortCodeLength < 4 || c.ShortCodeLength > 12 {
		return fmt.Errorf("SHORT_CODE_LENGTH must be between 4 and 12, got %d", c.ShortCodeLength)
	}

	if c.BaseURL == "" {
		return fmt.Errorf("BASE_URL is required")
	}

	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.RateLimitPerMinute)
	}

	if c.GeoDefaultCountry != "" && len(c.GeoDefaultCountry) != 2 {
		return fmt.Errorf("GEO_DEFAULT_COUNTRY must be a two-letter code, got %q", c.GeoDefaultCountry)
	}

	if c.FingerprintWindow < 0 {
		return fmt.Errorf("FINGERPRINT_WINDOW must not be negative")
	}
	if c.FingerprintWindow > 0 && c.FingerprintWindow < time.Minute {
		return fmt.Errorf("FINGERPRINT_WINDOW must be 0 or at least 1m, got %s", c.FingerprintWindow)
	}

	if c.AnalyticsWorkers < 1 {
		return fmt.Errorf("ANALYTICS_WORKERS must be at least 1, got %d", c.AnalyticsWorkers)
	}
	if c.AnalyticsQueueSize < 1 {
		return fmt.Errorf("ANALYTICS_QUEUE_SIZE must be at least 1, got %d", c.AnalyticsQueueSize)
	}
	if c.AnalyticsTimeout <= 0 {
		return fmt.Errorf("ANALYTICS_TIMEOUT must be positive")
	}

	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// KafkaEnabled reports whether click events are streamed
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// parseAPIKeys reads "key:owner,key2:owner2"
func parseAPIKeys(raw string) (map[string]string, error) {
	keys := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, owner, ok := strings.Cut(pair, ":")
		key, owner = strings.TrimSpace(key), strings.TrimSpace(owner)
		if !ok || key == "" || owner == "" {
			return nil, fmt.Errorf("API_KEYS entry %q must look like key:owner", pair)
		}
		keys[key] = owner
	}
	return keys, nil
}

// Helper functions for reading environment variables

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer or returns default
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBool reads an environment variable as boolean or returns default
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDuration reads a Go duration ("30s", "24h") or returns default
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsList reads a comma separated list or returns default
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
