// Package bootstrap opens the optional backends of the molfp binaries from
// configuration and assembles the descriptor service over them.
package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	"github.com/turtacn/molfp/internal/config"
	"github.com/turtacn/molfp/internal/infrastructure/database/postgres"
	"github.com/turtacn/molfp/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/molfp/internal/infrastructure/database/redis"
	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/molfp/internal/infrastructure/search/milvus"
	"github.com/turtacn/molfp/internal/interfaces/http/handlers"
)

// Infrastructure holds the backends enabled in configuration. Disabled
// backends are nil.
type Infrastructure struct {
	Postgres *postgres.Connection
	Repo     *repositories.PostgresDescriptorRepo
	Redis    *redisinfra.Client
	Cache    *redisinfra.DescriptorCache
	Claims   *redisinfra.JobClaims
	Producer *kafkainfra.Producer
	Milvus   *milvus.Client
	Index    *milvus.FingerprintIndex

	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	logger logging.Logger
}

// NewLogger builds the process logger and installs it as the default.
func NewLogger(cfg logging.LogConfig) (logging.Logger, error) {
	log, err := logging.NewLogger(cfg)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(log)
	return log, nil
}

// Open connects every enabled backend. On error the backends opened so far
// are closed.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger) (_ *Infrastructure, err error) {
	if log == nil {
		log = logging.NewNopLogger()
	}
	infra := &Infrastructure{logger: log}
	defer func() {
		if err != nil {
			_ = infra.Close()
		}
	}()

	if cfg.Metrics.Enabled {
		infra.Collector, err = prometheus.NewMetricsCollector(prometheus.CollectorConfig{
			Namespace:            cfg.Metrics.Namespace,
			Subsystem:            cfg.Metrics.Subsystem,
			EnableProcessMetrics: cfg.Metrics.EnableProcessMetrics,
			EnableGoMetrics:      cfg.Metrics.EnableGoMetrics,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("metrics: %w", err)
		}
		infra.Metrics = prometheus.NewAppMetrics(infra.Collector)
	}

	if cfg.Database.Enabled {
		infra.Postgres, err = postgres.NewConnection(cfg.Database.Postgres, log)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.Database.Postgres.AutoMigrate {
			m, err := postgres.NewMigrator(infra.Postgres, log)
			if err != nil {
				return nil, fmt.Errorf("postgres: %w", err)
			}
			if err := m.Up(); err != nil {
				return nil, fmt.Errorf("postgres: %w", err)
			}
		}
		infra.Repo = repositories.NewPostgresDescriptorRepo(infra.Postgres, log)
	}

	if cfg.Redis.Enabled {
		infra.Redis, err = redisinfra.NewClient(cfg.Redis.Config, log)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		infra.wireRedis(cfg.Redis.Config)
	}

	if cfg.Milvus.Enabled {
		infra.Milvus, err = milvus.NewClient(ctx, cfg.Milvus.Config, log)
		if err != nil {
			return nil, fmt.Errorf("milvus: %w", err)
		}
		infra.Index = milvus.NewFingerprintIndex(infra.Milvus, log)
	}

	if cfg.Kafka.Enabled {
		if cfg.Kafka.AutoCreateTopics {
			if err := ensureTopics(ctx, cfg.Kafka, log); err != nil {
				return nil, fmt.Errorf("kafka topics: %w", err)
			}
		}
		infra.Producer, err = kafkainfra.NewProducer(cfg.Kafka.Producer, log)
		if err != nil {
			return nil, fmt.Errorf("kafka: %w", err)
		}
	}

	log.Info("infrastructure ready",
		logging.Bool("postgres", infra.Postgres != nil),
		logging.Bool("redis", infra.Redis != nil),
		logging.Bool("milvus", infra.Milvus != nil),
		logging.Bool("kafka", infra.Producer != nil),
		logging.Bool("metrics", infra.Metrics != nil))
	return infra, nil
}

func (i *Infrastructure) wireRedis(cfg redisinfra.Config) {
	var opts []redisinfra.CacheOption
	if cfg.KeyPrefix != "" {
		opts = append(opts, redisinfra.WithPrefix(cfg.KeyPrefix))
	}
	if cfg.CacheTTL > 0 {
		opts = append(opts, redisinfra.WithTTL(cfg.CacheTTL))
	}
	i.Cache = redisinfra.NewDescriptorCache(i.Redis, i.logger, opts...)
	i.Claims = redisinfra.NewJobClaims(i.Redis, cfg.KeyPrefix, 0)
}

func ensureTopics(ctx context.Context, cfg config.KafkaConfig, log logging.Logger) error {
	tm, err := kafkainfra.NewTopicManager(cfg.Producer.Brokers, log)
	if err != nil {
		return err
	}
	defer tm.Close()
	return tm.EnsureTopics(ctx, kafkainfra.DefaultTopics(cfg.ReplicationFactor))
}

// ServiceOptions wires the open backends into the descriptor service.
func (i *Infrastructure) ServiceOptions() []appdesc.Option {
	var opts []appdesc.Option
	if i.Cache != nil {
		opts = append(opts, appdesc.WithCache(i.Cache))
	}
	if i.Claims != nil {
		opts = append(opts, appdesc.WithClaims(i.Claims))
	}
	if i.Repo != nil {
		opts = append(opts, appdesc.WithRepository(i.Repo))
	}
	if i.Index != nil {
		opts = append(opts, appdesc.WithIndex(i.Index))
	}
	if i.Producer != nil {
		opts = append(opts, appdesc.WithPublisher(i.Producer))
	}
	if i.Metrics != nil {
		opts = append(opts, appdesc.WithMetrics(i.Metrics))
	}
	return opts
}

// HealthCheckers reports one checker per open backend.
func (i *Infrastructure) HealthCheckers() []handlers.HealthChecker {
	var checks []handlers.HealthChecker
	if i.Postgres != nil {
		checks = append(checks, handlers.CheckFunc("postgres", i.Postgres.HealthCheck))
	}
	if i.Redis != nil {
		checks = append(checks, handlers.CheckFunc("redis", i.Redis.Ping))
	}
	if i.Milvus != nil {
		checks = append(checks, handlers.CheckFunc("milvus", i.Milvus.CheckHealth))
	}
	return checks
}

// MetricsHandler serves the collector, or nil when metrics are disabled.
func (i *Infrastructure) MetricsHandler() http.Handler {
	if i.Collector == nil {
		return nil
	}
	return i.Collector.Handler()
}

// Close releases every open backend.
func (i *Infrastructure) Close() error {
	var errs []error
	if i.Producer != nil {
		errs = append(errs, i.Producer.Close())
	}
	if i.Milvus != nil {
		errs = append(errs, i.Milvus.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.Postgres != nil {
		errs = append(errs, i.Postgres.Close())
	}
	return stderrors.Join(errs...)
}

//Personal.AI order the ending
