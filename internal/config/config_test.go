package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a defaulted Config with every optional backend enabled.
func validConfig() *Config {
	cfg := &Config{}
	cfg.Database.Enabled = true
	cfg.Redis.Enabled = true
	cfg.Milvus.Enabled = true
	cfg.Kafka.Enabled = true
	cfg.Metrics.Enabled = true
	ApplyDefaults(cfg)
	return cfg
}

func TestConfig_Validate_Defaults(t *testing.T) {
	t.Parallel()
	require.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"server port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"rate limit", func(c *Config) { c.Server.RateLimit.RequestsPerSecond = -1 }, "server.rate_limit"},
		{"postgres host", func(c *Config) { c.Database.Postgres.Host = "" }, "database.postgres.host"},
		{"postgres port", func(c *Config) { c.Database.Postgres.Port = -1 }, "database.postgres.port"},
		{"postgres database", func(c *Config) { c.Database.Postgres.Database = "" }, "database.postgres.database"},
		{"redis addr", func(c *Config) { c.Redis.Addr = "" }, "redis.addr"},
		{"redis mode", func(c *Config) { c.Redis.Mode = "ring" }, "redis.mode"},
		{"redis sentinel", func(c *Config) { c.Redis.Mode = "sentinel" }, "sentinel"},
		{"redis cluster", func(c *Config) { c.Redis.Mode = "cluster" }, "cluster_addrs"},
		{"milvus address", func(c *Config) { c.Milvus.Address = "" }, "milvus"},
		{"milvus nprobe", func(c *Config) { c.Milvus.NProbe = c.Milvus.NList + 1 }, "nprobe"},
		{"milvus without store", func(c *Config) { c.Database.Enabled = false }, "database.enabled"},
		{"kafka brokers", func(c *Config) { c.Kafka.Producer.Brokers = nil }, "kafka.producer"},
		{"kafka group", func(c *Config) { c.Kafka.Consumer.GroupID = "" }, "kafka.consumer"},
		{"log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"metrics namespace", func(c *Config) { c.Metrics.Namespace = "" }, "metrics.namespace"},
		{"sphere size", func(c *Config) { c.Descriptor.SphereSize = 96 }, "descriptor.sphere_size"},
		{"sphere too small", func(c *Config) { c.Descriptor.SphereSize = 32 }, "descriptor.sphere_size"},
		{"path size", func(c *Config) { c.Descriptor.PathSize = 100 }, "descriptor.path_size"},
		{"batch concurrency", func(c *Config) { c.Descriptor.BatchConcurrency = -1 }, "descriptor.batch_concurrency"},
		{"max atoms", func(c *Config) { c.Descriptor.MaxAtoms = -1 }, "descriptor.max_atoms"},
		{"unknown family", func(c *Config) { c.Descriptor.Families = []string{"Ecfp4"} }, "descriptor.families"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_Validate_DisabledBackendsSkipChecks(t *testing.T) {
	t.Parallel()
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Database.Postgres.Host = ""
	cfg.Redis.Addr = ""
	cfg.Milvus.Address = ""
	cfg.Kafka.Producer.Brokers = nil
	assert.NoError(t, cfg.Validate())
}

func TestServerConfig_Addr(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "127.0.0.1:9000", ServerConfig{Host: "127.0.0.1", Port: 9000}.Addr())
}

//Personal.AI order the ending
