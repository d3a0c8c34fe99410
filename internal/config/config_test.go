package config

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/acs-harvest/pkg/export"
	"github.com/Sternrassler/acs-harvest/pkg/harvest"
)

var allKeys = []string{
	"ACS_BASE_URL", "ACS_API_KEY", "ACS_GEOGRAPHY", "ACS_USER_AGENT", "ACS_TIMEOUT",
	"ACS_RATE_LIMIT", "ACS_MAX_ATTEMPTS", "ACS_STATES", "ACS_FIELDS_PER_QUERY",
	"ACS_CATALOG_FILE", "ACS_JOIN", "ACS_CONCURRENCY", "ACS_PARALLEL_BATCHES", "ACS_SCOPE_TIMEOUT",
	"ACS_OUTPUT", "ACS_FORMAT", "REDIS_URL", "ACS_CACHE_TTL", "METRICS_ADDR",
	"S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY", "S3_BUCKET", "S3_PREFIX",
	"S3_REGION", "LOG_LEVEL", "LOG_PRETTY",
}

// clearEnv blanks every variable LoadFromEnv reads; empty counts as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if cfg.BaseURL != "https://api.census.gov/data/2022/acs/acs5" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.Geography != "block group" {
		t.Errorf("Geography = %q, want block group", cfg.Geography)
	}
	if cfg.FieldsPerQuery != 48 {
		t.Errorf("FieldsPerQuery = %d, want 48", cfg.FieldsPerQuery)
	}
	if cfg.Concurrency != 1 || cfg.MaxAttempts != 1 {
		t.Errorf("Concurrency = %d, MaxAttempts = %d, want 1 and 1", cfg.Concurrency, cfg.MaxAttempts)
	}
	if cfg.Join != harvest.JoinPosition {
		t.Errorf("Join = %q, want position", cfg.Join)
	}
	if cfg.Format != export.FormatCSV {
		t.Errorf("Format = %q, want csv", cfg.Format)
	}
	if cfg.Output != "data/census_data.csv" {
		t.Errorf("Output = %q", cfg.Output)
	}
	if cfg.CacheTTL != 24*time.Hour {
		t.Errorf("CacheTTL = %v, want 24h", cfg.CacheTTL)
	}
	if cfg.ScopeTimeout != 0 {
		t.Errorf("ScopeTimeout = %v, want 0 (no limit)", cfg.ScopeTimeout)
	}
	if cfg.PublishEnabled() {
		t.Error("PublishEnabled() = true without S3_BUCKET")
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("ACS_API_KEY", "secret")
	t.Setenv("ACS_GEOGRAPHY", "tract")
	t.Setenv("ACS_STATES", "06, 41,,53")
	t.Setenv("ACS_JOIN", "key")
	t.Setenv("ACS_CONCURRENCY", "4")
	t.Setenv("ACS_PARALLEL_BATCHES", "true")
	t.Setenv("ACS_FORMAT", "parquet")
	t.Setenv("ACS_TIMEOUT", "90s")
	t.Setenv("ACS_RATE_LIMIT", "2.5")
	t.Setenv("ACS_SCOPE_TIMEOUT", "10m")
	t.Setenv("S3_BUCKET", "census")
	t.Setenv("S3_ENDPOINT", "localhost:9000")
	t.Setenv("S3_ACCESS_KEY", "minio")
	t.Setenv("S3_SECRET_KEY", "minio123")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}

	if !reflect.DeepEqual(cfg.States, []string{"06", "41", "53"}) {
		t.Errorf("States = %v", cfg.States)
	}
	if cfg.Join != harvest.JoinKey || cfg.Format != export.FormatParquet {
		t.Errorf("Join = %q, Format = %q", cfg.Join, cfg.Format)
	}
	if cfg.Concurrency != 4 || !cfg.ParallelBatches {
		t.Errorf("Concurrency = %d, ParallelBatches = %v", cfg.Concurrency, cfg.ParallelBatches)
	}
	if cfg.Timeout != 90*time.Second || cfg.RateLimit != 2.5 {
		t.Errorf("Timeout = %v, RateLimit = %v", cfg.Timeout, cfg.RateLimit)
	}
	if cfg.ScopeTimeout != 10*time.Minute {
		t.Errorf("ScopeTimeout = %v, want 10m", cfg.ScopeTimeout)
	}
	if !cfg.PublishEnabled() {
		t.Error("PublishEnabled() = false with S3_BUCKET set")
	}
}

func TestLoadFromEnv_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"bad integer", map[string]string{"ACS_CONCURRENCY": "many"}, "ACS_CONCURRENCY"},
		{"bad duration", map[string]string{"ACS_TIMEOUT": "soon"}, "ACS_TIMEOUT"},
		{"bad join", map[string]string{"ACS_JOIN": "fuzzy"}, "ACS_JOIN"},
		{"bad format", map[string]string{"ACS_FORMAT": "xlsx"}, "ACS_FORMAT"},
		{"too many fields", map[string]string{"ACS_FIELDS_PER_QUERY": "50"}, "ACS_FIELDS_PER_QUERY"},
		{"zero attempts", map[string]string{"ACS_MAX_ATTEMPTS": "0"}, "ACS_MAX_ATTEMPTS"},
		{"bad geography", map[string]string{"ACS_GEOGRAPHY": "place"}, "ACS_GEOGRAPHY"},
		{"negative scope timeout", map[string]string{"ACS_SCOPE_TIMEOUT": "-1s"}, "ACS_SCOPE_TIMEOUT"},
		{"bucket without credentials", map[string]string{"S3_BUCKET": "census"}, "S3_BUCKET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadFromEnv()
			if err == nil {
				t.Fatal("LoadFromEnv() expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("LoadFromEnv() error = %q, want mention of %s", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoadFromEnv_ReportsAllErrors(t *testing.T) {
	clearEnv(t)
	t.Setenv("ACS_CONCURRENCY", "x")
	t.Setenv("ACS_CACHE_TTL", "y")

	_, err := LoadFromEnv()
	if err == nil {
		t.Fatal("LoadFromEnv() expected error")
	}
	for _, key := range []string{"ACS_CONCURRENCY", "ACS_CACHE_TTL"} {
		if !strings.Contains(err.Error(), key) {
			t.Errorf("error %q does not mention %s", err.Error(), key)
		}
	}
}
