// Package config loads acs-harvest settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/acs-harvest/pkg/catalog"
	"github.com/Sternrassler/acs-harvest/pkg/client"
	"github.com/Sternrassler/acs-harvest/pkg/export"
	"github.com/Sternrassler/acs-harvest/pkg/harvest"
	"github.com/Sternrassler/acs-harvest/pkg/logging"
)

// Config holds all configuration for one harvest run.
type Config struct {
	// Census API
	BaseURL     string
	APIKey      string
	Geography   string
	UserAgent   string
	Timeout     time.Duration
	RateLimit   float64
	MaxAttempts int

	// Harvest
	States          []string
	FieldsPerQuery  int
	CatalogFile     string
	Join            harvest.JoinMode
	Concurrency     int
	ParallelBatches bool
	ScopeTimeout    time.Duration

	// Output
	Output string
	Format export.Format

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// Metrics
	MetricsAddr string

	// Publish (optional, enabled by S3Bucket)
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3Region    string

	// Logging
	LogLevel  logging.LogLevel
	LogPretty bool
}

// LoadFromEnv reads configuration from environment variables with defaults.
// All malformed values are reported together.
func LoadFromEnv() (Config, error) {
	p := &parser{}

	cfg := Config{
		BaseURL:     getEnv("ACS_BASE_URL", client.DefaultBaseURL),
		APIKey:      getEnv("ACS_API_KEY", ""),
		Geography:   getEnv("ACS_GEOGRAPHY", client.GeographyBlockGroup),
		UserAgent:   getEnv("ACS_USER_AGENT", "acs-harvest/0.1.0"),
		Timeout:     p.getDuration("ACS_TIMEOUT", 60*time.Second),
		RateLimit:   p.getFloat("ACS_RATE_LIMIT", 5),
		MaxAttempts: p.getInt("ACS_MAX_ATTEMPTS", 1),

		States:          splitList(getEnv("ACS_STATES", "")),
		FieldsPerQuery:  p.getInt("ACS_FIELDS_PER_QUERY", catalog.DefaultBatchSize),
		CatalogFile:     getEnv("ACS_CATALOG_FILE", ""),
		Concurrency:     p.getInt("ACS_CONCURRENCY", 1),
		ParallelBatches: p.getBool("ACS_PARALLEL_BATCHES", false),
		ScopeTimeout:    p.getDuration("ACS_SCOPE_TIMEOUT", 0),

		Output: getEnv("ACS_OUTPUT", "data/census_data.csv"),

		RedisURL: getEnv("REDIS_URL", ""),
		CacheTTL: p.getDuration("ACS_CACHE_TTL", 24*time.Hour),

		MetricsAddr: getEnv("METRICS_ADDR", ""),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", ""),
		S3Prefix:    getEnv("S3_PREFIX", "acs"),
		S3Region:    getEnv("S3_REGION", ""),

		LogLevel:  logging.LogLevel(getEnv("LOG_LEVEL", string(logging.LevelInfo))),
		LogPretty: p.getBool("LOG_PRETTY", false),
	}

	join, err := harvest.ParseJoinMode(getEnv("ACS_JOIN", ""))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("ACS_JOIN: %w", err))
	}
	cfg.Join = join

	format, err := export.ParseFormat(getEnv("ACS_FORMAT", ""))
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("ACS_FORMAT: %w", err))
	}
	cfg.Format = format

	if err := errors.Join(p.errs...); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and combinations.
func (c Config) Validate() error {
	var errs []error

	if c.BaseURL == "" {
		errs = append(errs, errors.New("ACS_BASE_URL must not be empty"))
	}
	if !client.SupportedGeography(c.Geography) {
		errs = append(errs, fmt.Errorf("ACS_GEOGRAPHY: unsupported geography %q", c.Geography))
	}
	if c.UserAgent == "" {
		errs = append(errs, errors.New("ACS_USER_AGENT must not be empty"))
	}
	if c.Timeout <= 0 {
		errs = append(errs, errors.New("ACS_TIMEOUT must be positive"))
	}
	if c.RateLimit < 0 {
		errs = append(errs, errors.New("ACS_RATE_LIMIT must not be negative"))
	}
	if c.MaxAttempts < 1 {
		errs = append(errs, errors.New("ACS_MAX_ATTEMPTS must be at least 1"))
	}
	if c.FieldsPerQuery < 1 || c.FieldsPerQuery > 49 {
		// The API accepts 50 variables per query and NAME takes one slot.
		errs = append(errs, errors.New("ACS_FIELDS_PER_QUERY must be between 1 and 49"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, errors.New("ACS_CONCURRENCY must be at least 1"))
	}
	if c.ScopeTimeout < 0 {
		errs = append(errs, errors.New("ACS_SCOPE_TIMEOUT must not be negative"))
	}
	if c.Output == "" {
		errs = append(errs, errors.New("ACS_OUTPUT must not be empty"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("ACS_CACHE_TTL must be positive"))
	}
	if c.S3Bucket != "" && (c.S3Endpoint == "" || c.S3AccessKey == "" || c.S3SecretKey == "") {
		errs = append(errs, errors.New("S3_BUCKET requires S3_ENDPOINT, S3_ACCESS_KEY and S3_SECRET_KEY"))
	}

	return errors.Join(errs...)
}

// PublishEnabled reports whether the output should be uploaded.
func (c Config) PublishEnabled() bool {
	return c.S3Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parser collects conversion errors so all bad variables surface at once.
type parser struct {
	errs []error
}

func (p *parser) getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid integer %q", key, value))
		return defaultValue
	}
	return parsed
}

func (p *parser) getFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid number %q", key, value))
		return defaultValue
	}
	return parsed
}

func (p *parser) getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid boolean %q", key, value))
		return defaultValue
	}
	return parsed
}

func (p *parser) getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: invalid duration %q", key, value))
		return defaultValue
	}
	return parsed
}
