package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	SearchIndex   SearchIndexConfig   `yaml:"search_index"`
	Redis         RedisConfig         `yaml:"redis"`
	ClickHouse    ClickHouseConfig    `yaml:"clickhouse"`
	Kafka         KafkaConfig         `yaml:"kafka"`
	Firestore     FirestoreConfig     `yaml:"firestore"`
	Search        SearchConfig        `yaml:"search"`
	Observability ObservabilityConfig `yaml:"observability"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// SearchIndexConfig points at the hosted search service holding the stock
// fundamentals index.
type SearchIndexConfig struct {
	Endpoint       string        `yaml:"endpoint"`
	IndexName      string        `yaml:"index_name"`
	APIKey         string        `yaml:"api_key"`
	APIVersion     string        `yaml:"api_version"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type RedisConfig struct {
	Addresses    []string       `yaml:"addresses"`
	Password     string         `yaml:"password"`
	DB           int            `yaml:"db"`
	PoolSize     int            `yaml:"pool_size"`
	MinIdleConns int            `yaml:"min_idle_conns"`
	DialTimeout  time.Duration  `yaml:"dial_timeout"`
	ReadTimeout  time.Duration  `yaml:"read_timeout"`
	WriteTimeout time.Duration  `yaml:"write_timeout"`
	TTL          CacheTTLConfig `yaml:"ttl"`
}

type CacheTTLConfig struct {
	SearchResults time.Duration `yaml:"search_results"`
	Listings      time.Duration `yaml:"listings"`
	Quotes        time.Duration `yaml:"quotes"`
	StaleFallback time.Duration `yaml:"stale_fallback"`
}

type ClickHouseConfig struct {
	Addresses    []string      `yaml:"addresses"`
	Database     string        `yaml:"database"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
}

type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers"`
	TopicTicks    string        `yaml:"topic_ticks"`
	TopicDLQ      string        `yaml:"topic_dlq"`
	ConsumerGroup string        `yaml:"consumer_group"`
	BatchSize     int           `yaml:"batch_size"`
	BatchTimeout  time.Duration `yaml:"batch_timeout"`
	MaxRetries    int           `yaml:"max_retries"`
}

type FirestoreConfig struct {
	ProjectID       string        `yaml:"project_id"`
	CredentialsFile string        `yaml:"credentials_file"`
	Collection      string        `yaml:"collection"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxBatchSize    int           `yaml:"max_batch_size"`
}

type SearchConfig struct {
	QueryTimeout   time.Duration        `yaml:"query_timeout"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
	Retry          RetryConfig          `yaml:"retry"`
	SlowQuery      SlowQueryConfig      `yaml:"slow_query"`
}

type CircuitBreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold uint32        `yaml:"failure_threshold"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	InitialWait time.Duration `yaml:"initial_wait"`
	MaxWait     time.Duration `yaml:"max_wait"`
	Multiplier  float64       `yaml:"multiplier"`
}

type SlowQueryConfig struct {
	WarningThreshold  time.Duration `yaml:"warning_threshold"`
	CriticalThreshold time.Duration `yaml:"critical_threshold"`
}

type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	ServiceName string `yaml:"service_name"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		SearchIndex: SearchIndexConfig{
			IndexName:      "stocks-static",
			APIVersion:     "2025-09-01",
			RequestTimeout: 10 * time.Second,
		},
		Redis: RedisConfig{
			Addresses:    []string{"localhost:6379"},
			PoolSize:     100,
			MinIdleConns: 10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  1 * time.Second,
			WriteTimeout: 1 * time.Second,
			TTL: CacheTTLConfig{
				SearchResults: 2 * time.Minute,
				Listings:      5 * time.Minute,
				Quotes:        15 * time.Second,
				StaleFallback: 1 * time.Hour,
			},
		},
		ClickHouse: ClickHouseConfig{
			Addresses:    []string{"localhost:9000"},
			Database:     "stocks_dynamic",
			DialTimeout:  5 * time.Second,
			QueryTimeout: 2 * time.Second,
			MaxOpenConns: 10,
			MaxIdleConns: 5,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			TopicTicks:    "stocks.ticks",
			TopicDLQ:      "stocks.ticks.dlq",
			ConsumerGroup: "tick-ingest",
			BatchSize:     1000,
			BatchTimeout:  1 * time.Second,
			MaxRetries:    3,
		},
		Firestore: FirestoreConfig{
			Collection:     "company-profiles",
			RequestTimeout: 2 * time.Second,
			MaxBatchSize:   100,
		},
		Search: SearchConfig{
			QueryTimeout: 10 * time.Second,
			CircuitBreaker: CircuitBreakerConfig{
				MaxRequests:      100,
				Interval:         30 * time.Second,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
			Retry: RetryConfig{
				MaxAttempts: 2,
				InitialWait: 50 * time.Millisecond,
				MaxWait:     500 * time.Millisecond,
				Multiplier:  2.0,
			},
			SlowQuery: SlowQueryConfig{
				WarningThreshold:  500 * time.Millisecond,
				CriticalThreshold: 1500 * time.Millisecond,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "info",
			ServiceName: "stock-search-assistant",
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.SearchIndex.Endpoint == "" {
		return fmt.Errorf("search index endpoint required")
	}
	if c.SearchIndex.IndexName == "" {
		return fmt.Errorf("search index name required")
	}
	if len(c.Redis.Addresses) == 0 {
		return fmt.Errorf("at least one redis address required")
	}
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("at least one kafka broker required")
	}
	if c.Search.QueryTimeout <= 0 {
		return fmt.Errorf("query timeout must be positive")
	}
	return nil
}
