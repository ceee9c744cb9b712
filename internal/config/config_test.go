package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("expected host 0.0.0.0, got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.SearchIndex.APIVersion != "2025-09-01" {
		t.Errorf("expected api version 2025-09-01, got %s", cfg.SearchIndex.APIVersion)
	}
	if cfg.SearchIndex.IndexName != "stocks-static" {
		t.Errorf("expected index name stocks-static, got %s", cfg.SearchIndex.IndexName)
	}
	if cfg.Redis.TTL.SearchResults != 2*time.Minute {
		t.Errorf("expected search results TTL 2m, got %v", cfg.Redis.TTL.SearchResults)
	}
	if cfg.Redis.TTL.Quotes != 15*time.Second {
		t.Errorf("expected quotes TTL 15s, got %v", cfg.Redis.TTL.Quotes)
	}
	if cfg.ClickHouse.Database != "stocks_dynamic" {
		t.Errorf("expected clickhouse db stocks_dynamic, got %s", cfg.ClickHouse.Database)
	}
	if cfg.Kafka.TopicTicks != "stocks.ticks" {
		t.Errorf("expected ticks topic stocks.ticks, got %s", cfg.Kafka.TopicTicks)
	}
	if cfg.Search.CircuitBreaker.FailureThreshold != 5 {
		t.Errorf("expected failure threshold 5, got %d", cfg.Search.CircuitBreaker.FailureThreshold)
	}
	if cfg.Search.Retry.MaxAttempts != 2 {
		t.Errorf("expected 2 retry attempts, got %d", cfg.Search.Retry.MaxAttempts)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.SearchIndex.Endpoint = "https://example.search.windows.net"
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"missing endpoint", func(c *Config) { c.SearchIndex.Endpoint = "" }},
		{"missing index name", func(c *Config) { c.SearchIndex.IndexName = "" }},
		{"no redis", func(c *Config) { c.Redis.Addresses = nil }},
		{"no kafka", func(c *Config) { c.Kafka.Brokers = nil }},
		{"zero query timeout", func(c *Config) { c.Search.QueryTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
server:
  port: 9091
search_index:
  endpoint: https://example.search.windows.net
  index_name: stocks-static
  api_key: secret
search:
  query_timeout: 5s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 9091 {
		t.Errorf("expected port 9091, got %d", cfg.Server.Port)
	}
	if cfg.SearchIndex.Endpoint != "https://example.search.windows.net" {
		t.Errorf("unexpected endpoint %s", cfg.SearchIndex.Endpoint)
	}
	if cfg.Search.QueryTimeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %v", cfg.Search.QueryTimeout)
	}
	// Defaults survive for unspecified sections
	if cfg.Kafka.TopicTicks != "stocks.ticks" {
		t.Errorf("expected default ticks topic, got %s", cfg.Kafka.TopicTicks)
	}
}

func TestLoad_EnvExpansion(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	t.Setenv("SEARCH_API_KEY", "from-env")

	content := `
search_index:
  endpoint: https://example.search.windows.net
  index_name: stocks-static
  api_key: ${SEARCH_API_KEY}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.SearchIndex.APIKey != "from-env" {
		t.Errorf("expected env-expanded api key, got %q", cfg.SearchIndex.APIKey)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("expected error for missing file")
	}
}
