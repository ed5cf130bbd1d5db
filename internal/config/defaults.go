package config

import (
	"time"

	"github.com/turtacn/molfp/internal/domain/descriptor"
	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfp/internal/interfaces/http/middleware"
)

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080

	DefaultDBHost = "localhost"
	DefaultDBPort = 5432
	DefaultDBName = "molfp"
	DefaultDBUser = "molfp"

	DefaultRedisAddr = "localhost:6379"

	DefaultMilvusAddr = "localhost:19530"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "molfp-worker"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMetricsNamespace = "molfp"
	DefaultMetricsPath      = "/metrics"

	DefaultBatchConcurrency = 8
	DefaultMaxBatchSize     = 1000
)

// ApplyDefaults fills every zero-value field in cfg. Explicit values win.
// Booleans cannot be told apart from "unset" and are left alone.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	s := &cfg.Server
	if s.Host == "" {
		s.Host = DefaultServerHost
	}
	if s.Port == 0 {
		s.Port = DefaultServerPort
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 15 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
	if s.IdleTimeout == 0 {
		s.IdleTimeout = 60 * time.Second
	}
	if s.ShutdownTimeout == 0 {
		s.ShutdownTimeout = 15 * time.Second
	}
	if s.MaxBodySize == 0 {
		s.MaxBodySize = 4 << 20
	}
	corsDefaults := middleware.DefaultCORSConfig()
	if len(s.CORS.AllowedMethods) == 0 {
		s.CORS.AllowedMethods = corsDefaults.AllowedMethods
	}
	if len(s.CORS.AllowedHeaders) == 0 {
		s.CORS.AllowedHeaders = corsDefaults.AllowedHeaders
	}
	if len(s.CORS.ExposedHeaders) == 0 {
		s.CORS.ExposedHeaders = corsDefaults.ExposedHeaders
	}
	if s.CORS.MaxAge == 0 {
		s.CORS.MaxAge = corsDefaults.MaxAge
	}
	if s.RateLimit.SkipPaths == nil {
		s.RateLimit.SkipPaths = []string{"/healthz", "/readyz", DefaultMetricsPath}
	}

	// ── Database ──────────────────────────────────────────────────────────────
	p := &cfg.Database.Postgres
	if p.Host == "" {
		p.Host = DefaultDBHost
	}
	if p.Port == 0 {
		p.Port = DefaultDBPort
	}
	if p.Database == "" {
		p.Database = DefaultDBName
	}
	if p.Username == "" {
		p.Username = DefaultDBUser
	}
	if p.SSLMode == "" {
		p.SSLMode = "disable"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Mode == "" {
		cfg.Redis.Mode = "standalone"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.CacheTTL == 0 {
		cfg.Redis.CacheTTL = 24 * time.Hour
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	m := &cfg.Milvus
	if m.Address == "" {
		m.Address = DefaultMilvusAddr
	}
	if m.CollectionPrefix == "" {
		m.CollectionPrefix = "molfp_"
	}
	if m.NList == 0 {
		m.NList = 128
	}
	if m.NProbe == 0 {
		m.NProbe = 16
	}
	if m.ConnectTimeout == 0 {
		m.ConnectTimeout = 10 * time.Second
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	k := &cfg.Kafka
	if len(k.Producer.Brokers) == 0 {
		k.Producer.Brokers = []string{DefaultKafkaBroker}
	}
	if len(k.Consumer.Brokers) == 0 {
		k.Consumer.Brokers = k.Producer.Brokers
	}
	if k.Consumer.GroupID == "" {
		k.Consumer.GroupID = DefaultKafkaGroupID
	}
	if len(k.Consumer.Topics) == 0 {
		k.Consumer.Topics = []string{kafkainfra.TopicDescriptorJobs}
	}
	if k.Consumer.AutoOffsetReset == "" {
		k.Consumer.AutoOffsetReset = "earliest"
	}
	if k.Consumer.Retry.DeadLetterTopic == "" {
		k.Consumer.Retry.DeadLetterTopic = kafkainfra.TopicDeadLetterDescriptor
	}
	if k.ReplicationFactor == 0 {
		k.ReplicationFactor = 1
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Descriptor ────────────────────────────────────────────────────────────
	d := &cfg.Descriptor
	if d.SphereSize == 0 {
		d.SphereSize = descriptor.DefaultFingerprintSize
	}
	if d.PathSize == 0 {
		d.PathSize = descriptor.DefaultFingerprintSize
	}
	if len(d.Families) == 0 {
		d.Families = descriptor.DefaultRegistry().Codes()
	}
	if d.BatchConcurrency == 0 {
		d.BatchConcurrency = DefaultBatchConcurrency
	}
	if d.MaxBatchSize == 0 {
		d.MaxBatchSize = DefaultMaxBatchSize
	}
}

//Personal.AI order the ending
