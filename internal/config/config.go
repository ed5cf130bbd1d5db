// Package config defines the configuration structures of molfp. No I/O or
// parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"math/bits"
	"time"

	"github.com/turtacn/molfp/internal/domain/descriptor"
	"github.com/turtacn/molfp/internal/infrastructure/database/postgres"
	"github.com/turtacn/molfp/internal/infrastructure/database/redis"
	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/internal/infrastructure/search/milvus"
	"github.com/turtacn/molfp/internal/interfaces/http/middleware"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	// CORS is applied when it allows at least one origin.
	CORS middleware.CORSConfig `mapstructure:"cors"`
	// RateLimit is applied when requests_per_second is positive.
	RateLimit middleware.RateLimitConfig `mapstructure:"rate_limit"`
}

// Addr is the listen address.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// DatabaseConfig holds the descriptor store settings. The store is optional.
type DatabaseConfig struct {
	Enabled  bool            `mapstructure:"enabled"`
	Postgres postgres.Config `mapstructure:"postgres"`
}

// RedisConfig holds the descriptor cache settings. The cache is optional.
type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

// MilvusConfig holds the binary fingerprint index settings. The index is
// optional and only serves limited RankStored queries.
type MilvusConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	milvus.Config `mapstructure:",squash"`
}

// KafkaConfig holds job transport settings.
type KafkaConfig struct {
	Enabled           bool                      `mapstructure:"enabled"`
	AutoCreateTopics  bool                      `mapstructure:"auto_create_topics"`
	ReplicationFactor int                       `mapstructure:"replication_factor"`
	Producer          kafkainfra.ProducerConfig `mapstructure:"producer"`
	Consumer          kafkainfra.ConsumerConfig `mapstructure:"consumer"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	Enabled              bool   `mapstructure:"enabled"`
	Namespace            string `mapstructure:"namespace"`
	Subsystem            string `mapstructure:"subsystem"`
	Path                 string `mapstructure:"path"`
	EnableProcessMetrics bool   `mapstructure:"enable_process_metrics"`
	EnableGoMetrics      bool   `mapstructure:"enable_go_metrics"`
}

// DescriptorConfig tunes descriptor computation.
type DescriptorConfig struct {
	SphereSize int `mapstructure:"sphere_size"`
	PathSize   int `mapstructure:"path_size"`
	// Families computed when a request names none.
	Families         []string `mapstructure:"families"`
	BatchConcurrency int      `mapstructure:"batch_concurrency"`
	MaxBatchSize     int      `mapstructure:"max_batch_size"`
	// MaxAtoms rejects larger inputs; 0 means unlimited.
	MaxAtoms int `mapstructure:"max_atoms"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration of every molfp binary.
type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Milvus     MilvusConfig      `mapstructure:"milvus"`
	Kafka      KafkaConfig       `mapstructure:"kafka"`
	Log        logging.LogConfig `mapstructure:"log"`
	Metrics    MetricsConfig     `mapstructure:"metrics"`
	Descriptor DescriptorConfig  `mapstructure:"descriptor"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate returns the first semantic error in a fully populated Config.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	if c.Server.RateLimit.RequestsPerSecond < 0 || c.Server.RateLimit.Burst < 0 {
		return fmt.Errorf("config: server.rate_limit must not be negative")
	}

	if c.Database.Enabled {
		p := c.Database.Postgres
		if p.Host == "" {
			return fmt.Errorf("config: database.postgres.host is required")
		}
		if p.Port < 1 || p.Port > 65535 {
			return fmt.Errorf("config: database.postgres.port %d is out of range [1, 65535]", p.Port)
		}
		if p.Database == "" {
			return fmt.Errorf("config: database.postgres.database is required")
		}
		if p.Username == "" {
			return fmt.Errorf("config: database.postgres.username is required")
		}
	}

	if c.Redis.Enabled {
		switch c.Redis.Mode {
		case "", "standalone":
			if c.Redis.Addr == "" {
				return fmt.Errorf("config: redis.addr is required")
			}
		case "sentinel":
			if c.Redis.MasterName == "" || len(c.Redis.SentinelAddrs) == 0 {
				return fmt.Errorf("config: redis sentinel mode needs master_name and sentinel_addrs")
			}
		case "cluster":
			if len(c.Redis.ClusterAddrs) == 0 {
				return fmt.Errorf("config: redis.cluster_addrs is required in cluster mode")
			}
		default:
			return fmt.Errorf("config: redis.mode %q is invalid; expected standalone|sentinel|cluster", c.Redis.Mode)
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Milvus.Enabled {
		if err := milvus.ValidateConfig(c.Milvus.Config); err != nil {
			return fmt.Errorf("config: milvus: %w", err)
		}
		if !c.Database.Enabled {
			return fmt.Errorf("config: milvus requires database.enabled")
		}
	}

	if c.Kafka.Enabled {
		if err := kafkainfra.ValidateProducerConfig(c.Kafka.Producer); err != nil {
			return fmt.Errorf("config: kafka.producer: %w", err)
		}
		if err := kafkainfra.ValidateConsumerConfig(c.Kafka.Consumer); err != nil {
			return fmt.Errorf("config: kafka.consumer: %w", err)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("config: metrics.namespace is required")
	}

	d := c.Descriptor
	if d.SphereSize < 64 || bits.OnesCount(uint(d.SphereSize)) != 1 {
		return fmt.Errorf("config: descriptor.sphere_size %d must be a power of two >= 64", d.SphereSize)
	}
	if d.PathSize <= 0 || d.PathSize%64 != 0 {
		return fmt.Errorf("config: descriptor.path_size %d must be a positive multiple of 64", d.PathSize)
	}
	if d.BatchConcurrency < 1 {
		return fmt.Errorf("config: descriptor.batch_concurrency must be >= 1, got %d", d.BatchConcurrency)
	}
	if d.MaxBatchSize < 1 {
		return fmt.Errorf("config: descriptor.max_batch_size must be >= 1, got %d", d.MaxBatchSize)
	}
	if d.MaxAtoms < 0 {
		return fmt.Errorf("config: descriptor.max_atoms must be >= 0, got %d", d.MaxAtoms)
	}
	known := descriptor.DefaultRegistry()
	for _, f := range d.Families {
		if _, err := known.Get(f); err != nil {
			return fmt.Errorf("config: descriptor.families: %w", err)
		}
	}

	return nil
}

//Personal.AI order the ending
