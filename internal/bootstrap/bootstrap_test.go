package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	"github.com/turtacn/molfp/internal/config"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/pkg/errors"
)

func defaultConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestOpen_NothingEnabled(t *testing.T) {
	infra, err := Open(context.Background(), defaultConfig(), nil)
	require.NoError(t, err)
	defer infra.Close()

	assert.Nil(t, infra.Postgres)
	assert.Nil(t, infra.Redis)
	assert.Nil(t, infra.Producer)
	assert.Nil(t, infra.Metrics)
	assert.Nil(t, infra.MetricsHandler())
	assert.Empty(t, infra.ServiceOptions())
	assert.Empty(t, infra.HealthCheckers())
	assert.NoError(t, infra.Close())
}

func TestOpen_RedisAndMetrics(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := defaultConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.KeyPrefix = "test:"
	cfg.Metrics.Enabled = true

	infra, err := Open(context.Background(), cfg, logging.NewNopLogger())
	require.NoError(t, err)
	defer infra.Close()

	require.NotNil(t, infra.Cache)
	require.NotNil(t, infra.Claims)
	assert.Len(t, infra.ServiceOptions(), 3)

	checks := infra.HealthCheckers()
	require.Len(t, checks, 1)
	assert.Equal(t, "redis", checks[0].Name())
	assert.NoError(t, checks[0].Check(context.Background()))

	svc := appdesc.NewService(nil, appdesc.Config{}, nil, infra.ServiceOptions()...)
	_, err = svc.Compute(context.Background(), &appdesc.ComputeRequest{Structure: "CCO"})
	require.NoError(t, err)
	assert.NotEmpty(t, mr.Keys())
	for _, k := range mr.Keys() {
		assert.Contains(t, k, "test:")
	}

	rec := httptest.NewRecorder()
	infra.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "molfp_descriptor_compute_total")
}

func TestOpen_PostgresUnreachable(t *testing.T) {
	cfg := defaultConfig()
	cfg.Database.Enabled = true
	cfg.Database.Postgres.Host = "127.0.0.1"
	cfg.Database.Postgres.Port = 1

	_, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeDatabaseError))
}

func TestOpen_MilvusUnreachable(t *testing.T) {
	cfg := defaultConfig()
	cfg.Milvus.Enabled = true
	cfg.Milvus.Address = "127.0.0.1:1"
	cfg.Milvus.ConnectTimeout = 200 * time.Millisecond

	infra, err := Open(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Nil(t, infra)
	assert.Contains(t, err.Error(), "milvus")
}

func TestNewLogger_SetsDefault(t *testing.T) {
	before := logging.Default()
	t.Cleanup(func() { logging.SetDefault(before) })

	log, err := NewLogger(logging.LogConfig{Level: "debug", Format: "json", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)
	assert.Same(t, log, logging.Default())

	_, err = NewLogger(logging.LogConfig{OutputPaths: []string{"/nonexistent-dir/sub/out.log"}})
	assert.Error(t, err)
}

//Personal.AI order the ending
