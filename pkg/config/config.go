// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Indexer, Weights, Search, Redis, Postgres, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store backends accepted by IndexerConfig.Store.
const (
	StoreFile     = "file"
	StoreRedis    = "redis"
	StorePostgres = "postgres"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Indexer  IndexerConfig  `yaml:"indexer"`
	Weights  WeightsConfig  `yaml:"weights"`
	Search   SearchConfig   `yaml:"search"`
	Postgres PostgresConfig `yaml:"postgres"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// IndexerConfig controls where the corpus is read from, where the built index
// is persisted, and how many workers tokenise documents.
type IndexerConfig struct {
	CorpusDir string `yaml:"corpusDir"`
	IndexPath string `yaml:"indexPath"`
	Store     string `yaml:"store"`
	Workers   int    `yaml:"workers"`
}

// WeightsConfig holds the per-field replication multipliers applied before
// normalisation.
type WeightsConfig struct {
	Title      int `yaml:"title"`
	MajorTopic int `yaml:"majorTopic"`
	MinorTopic int `yaml:"minorTopic"`
	Extract    int `yaml:"extract"`
	Abstract   int `yaml:"abstract"`
}

// SearchConfig controls result truncation, the similarity cut-off and the
// optional per-query deadline.
type SearchConfig struct {
	TopK       int           `yaml:"topK"`
	Threshold  float64       `yaml:"threshold"`
	Timeout    time.Duration `yaml:"timeout"`
	ResultPath string        `yaml:"resultPath"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
	IndexName       string        `yaml:"indexName"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. Kafka is optional; when
// disabled no index notifications are published or consumed.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	IndexComplete string `yaml:"indexComplete"`
}

// RedisConfig holds Redis connection parameters and the key prefix under
// which the index is stored.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	PoolSize  int    `yaml:"poolSize"`
	KeyPrefix string `yaml:"keyPrefix"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values, validated.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration without reading any file or
// environment variable.
func Default() *Config {
	return defaultConfig()
}

// Validate rejects configurations the indexer or query engine cannot run
// with.
func (c *Config) Validate() error {
	w := c.Weights
	if w.Title < 0 || w.MajorTopic < 0 || w.MinorTopic < 0 || w.Extract < 0 || w.Abstract < 0 {
		return fmt.Errorf("invalid config: field weights must be non-negative")
	}
	if c.Search.TopK < 1 {
		return fmt.Errorf("invalid config: search.topK must be at least 1, got %d", c.Search.TopK)
	}
	if c.Search.Threshold < 0 || c.Search.Threshold > 1 {
		return fmt.Errorf("invalid config: search.threshold must be within [0, 1], got %g", c.Search.Threshold)
	}
	if c.Search.Timeout < 0 {
		return fmt.Errorf("invalid config: search.timeout must not be negative")
	}
	switch c.Indexer.Store {
	case StoreFile, StoreRedis, StorePostgres:
	default:
		return fmt.Errorf("invalid config: unknown index store %q", c.Indexer.Store)
	}
	return nil
}

// defaultConfig returns a Config with defaults suitable for local runs.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Indexer: IndexerConfig{
			IndexPath: "vsm_inverted_index.json",
			Store:     StoreFile,
			Workers:   0,
		},
		Weights: WeightsConfig{
			Title:      2,
			MajorTopic: 4,
			MinorTopic: 1,
			Extract:    1,
			Abstract:   1,
		},
		Search: SearchConfig{
			TopK:       40,
			Threshold:  0.08,
			ResultPath: "ranked_query_docs.txt",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "vsmsearch",
			User:            "vsmsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
			IndexName:       "default",
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "vsmsearch-group",
			Topics: KafkaTopics{
				IndexComplete: "index.complete",
			},
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			DB:        0,
			PoolSize:  10,
			KeyPrefix: "vsm:index",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads VSM_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VSM_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VSM_INDEXER_CORPUS_DIR"); v != "" {
		cfg.Indexer.CorpusDir = v
	}
	if v := os.Getenv("VSM_INDEXER_INDEX_PATH"); v != "" {
		cfg.Indexer.IndexPath = v
	}
	if v := os.Getenv("VSM_INDEXER_STORE"); v != "" {
		cfg.Indexer.Store = v
	}
	if v := os.Getenv("VSM_INDEXER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Indexer.Workers = n
		}
	}
	overrideInt("VSM_WEIGHTS_TITLE", &cfg.Weights.Title)
	overrideInt("VSM_WEIGHTS_MAJOR_TOPIC", &cfg.Weights.MajorTopic)
	overrideInt("VSM_WEIGHTS_MINOR_TOPIC", &cfg.Weights.MinorTopic)
	overrideInt("VSM_WEIGHTS_EXTRACT", &cfg.Weights.Extract)
	overrideInt("VSM_WEIGHTS_ABSTRACT", &cfg.Weights.Abstract)
	overrideInt("VSM_SEARCH_TOP_K", &cfg.Search.TopK)
	if v := os.Getenv("VSM_SEARCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Search.Threshold = f
		}
	}
	if v := os.Getenv("VSM_SEARCH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.Timeout = d
		}
	}
	if v := os.Getenv("VSM_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	overrideInt("VSM_POSTGRES_PORT", &cfg.Postgres.Port)
	if v := os.Getenv("VSM_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("VSM_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("VSM_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("VSM_POSTGRES_SSLMODE"); v != "" {
		cfg.Postgres.SSLMode = v
	}
	if v := os.Getenv("VSM_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("VSM_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("VSM_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("VSM_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("VSM_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("VSM_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	overrideInt("VSM_METRICS_PORT", &cfg.Metrics.Port)
}

func overrideInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
