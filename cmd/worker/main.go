// Command worker consumes descriptor jobs from Kafka and publishes results.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	"github.com/turtacn/molfp/internal/bootstrap"
	"github.com/turtacn/molfp/internal/config"
	kafkainfra "github.com/turtacn/molfp/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/molfp/internal/interfaces/http"
	"github.com/turtacn/molfp/internal/interfaces/http/handlers"
	"github.com/turtacn/molfp/internal/interfaces/http/middleware"
)

var version = "dev"

const defaultHealthPort = 8081

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MOLFP_* environment)")
	consumers := flag.Int("consumers", 1, "consumer group members in this process")
	healthPort := flag.Int("health-port", defaultHealthPort, "port of the health and metrics endpoints, 0 to disable")
	flag.Parse()

	if err := run(*configPath, *consumers, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, consumers, healthPort int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled must be true for the worker")
	}
	if consumers < 1 {
		return fmt.Errorf("consumers must be at least 1, got %d", consumers)
	}
	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting molfp worker",
		logging.String("version", version),
		logging.String("group", cfg.Kafka.Consumer.GroupID),
		logging.Int("consumers", consumers))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := infra.Close(); err != nil {
			logger.Warn("close infrastructure", logging.Err(err))
		}
	}()
	if infra.Claims == nil {
		logger.Warn("redis disabled: redelivered jobs are not deduplicated")
	}

	svc, err := appdesc.NewServiceFromConfig(cfg.Descriptor, logger, infra.ServiceOptions()...)
	if err != nil {
		return err
	}

	group := make([]*kafkainfra.Consumer, 0, consumers)
	defer func() {
		for _, c := range group {
			_ = c.Close()
		}
	}()
	for i := 0; i < consumers; i++ {
		c, err := kafkainfra.NewConsumer(cfg.Kafka.Consumer, infra.Producer, logger.With(logging.Int("member", i)))
		if err != nil {
			return err
		}
		c.Subscribe(kafkainfra.TopicDescriptorJobs, svc.HandleMessage)
		if err := c.Start(ctx); err != nil {
			return err
		}
		group = append(group, c)
	}

	g, gctx := errgroup.WithContext(ctx)
	if healthPort > 0 {
		healthCfg := cfg.Server
		healthCfg.Port = healthPort
		srv := httpserver.NewServer(healthCfg, httpserver.NewRouter(httpserver.RouterConfig{
			HealthHandler:  handlers.NewHealthHandler(version, infra.HealthCheckers()...),
			Logger:         logger,
			Logging:        middleware.DefaultLoggingConfig(),
			MetricsHandler: infra.MetricsHandler(),
			MetricsPath:    cfg.Metrics.Path,
		}), logger)
		g.Go(srv.Start)
		g.Go(func() error {
			<-gctx.Done()
			return srv.Stop(context.Background())
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})

	err = g.Wait()
	for _, c := range group {
		m := c.Metrics()
		logger.Info("consumer stats",
			logging.Int64("processed", m.MessagesProcessed.Load()),
			logging.Int64("failed", m.MessagesFailed.Load()),
			logging.Int64("dead_lettered", m.MessagesDeadLettered.Load()))
	}
	logger.Info("worker stopped")
	return err
}

//Personal.AI order the ending
