// Command apiserver serves the molfp HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	appdesc "github.com/turtacn/molfp/internal/application/descriptor"
	"github.com/turtacn/molfp/internal/bootstrap"
	"github.com/turtacn/molfp/internal/config"
	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/molfp/internal/interfaces/http"
	"github.com/turtacn/molfp/internal/interfaces/http/handlers"
	"github.com/turtacn/molfp/internal/interfaces/http/middleware"
)

var version = "dev"

const limiterSweepInterval = time.Minute

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: MOLFP_* environment)")
	port := flag.Int("port", 0, "HTTP port (overrides config)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	logger, err := bootstrap.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting molfp apiserver", logging.String("version", version), logging.String("addr", cfg.Server.Addr()))

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

	svc, err := appdesc.NewServiceFromConfig(cfg.Descriptor, logger, infra.ServiceOptions()...)
	if err != nil {
		return err
	}

	routerCfg := httpserver.RouterConfig{
		DescriptorHandler: handlers.NewDescriptorHandler(svc, cfg.Server.MaxBodySize),
		HealthHandler:     handlers.NewHealthHandler(version, infra.HealthCheckers()...),
		Logger:            logger,
		Logging:           middleware.DefaultLoggingConfig(),
		Metrics:           infra.Metrics,
		MetricsHandler:    infra.MetricsHandler(),
		MetricsPath:       cfg.Metrics.Path,
	}
	if len(cfg.Server.CORS.AllowedOrigins) > 0 {
		cors := cfg.Server.CORS
		routerCfg.CORS = &cors
	}
	rl := cfg.Server.RateLimit
	if rl.RequestsPerSecond > 0 {
		routerCfg.RateLimiter = middleware.NewClientLimiter(rl.RequestsPerSecond, rl.Burst, rl.IdleTTL)
		routerCfg.RateLimit = rl
	}
	srv := httpserver.NewServer(cfg.Server, httpserver.NewRouter(routerCfg), logger)

	if configPath != "" {
		err := config.Watch(configPath, logger, func(next *config.Config) {
			if logging.SetLevel(logger, next.Log.Level) {
				logger.Info("log level updated", logging.String("level", next.Log.Level))
			}
		})
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return srv.Stop(context.Background())
	})
	if routerCfg.RateLimiter != nil {
		g.Go(func() error {
			ticker := time.NewTicker(limiterSweepInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return nil
				case <-ticker.C:
					if n := routerCfg.RateLimiter.Sweep(); n > 0 {
						logger.Debug("rate limiter swept", logging.Int("clients", n))
					}
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("apiserver stopped")
	return nil
}

//Personal.AI order the ending
