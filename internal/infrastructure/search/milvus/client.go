// Package milvus indexes binary fingerprints in Milvus for nearest-neighbour
// candidate retrieval under the Jaccard metric.
package milvus

import (
	"context"
	"sync"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"

	"github.com/turtacn/molfp/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/molfp/pkg/errors"
)

// clientFactory matches client.NewClient.
type clientFactory func(ctx context.Context, conf client.Config) (client.Client, error)

var milvusNewClient clientFactory = client.NewClient

var (
	ErrConnectionFailed = errors.New(errors.ErrCodeServiceUnavailable, "milvus connection failed")
	ErrUnhealthy        = errors.New(errors.ErrCodeServiceUnavailable, "milvus unhealthy")
)

// Config addresses a Milvus deployment and tunes the binary IVF index.
type Config struct {
	Address          string        `mapstructure:"address"`
	Username         string        `mapstructure:"username"`
	Password         string        `mapstructure:"password"`
	DBName           string        `mapstructure:"db_name"`
	CollectionPrefix string        `mapstructure:"collection_prefix"`
	NList            int           `mapstructure:"nlist"`
	NProbe           int           `mapstructure:"nprobe"`
	ConnectTimeout   time.Duration `mapstructure:"connect_timeout"`
	KeepAliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepAliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
}

// Client owns the SDK connection.
type Client struct {
	mc     client.Client
	cfg    Config
	logger logging.Logger
	mu     sync.RWMutex
	closed bool
}

// NewClient dials and checks health. A failed check closes the connection.
func NewClient(ctx context.Context, cfg Config, log logging.Logger) (*Client, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	mc, err := milvusNewClient(dialCtx, client.Config{
		Address:  cfg.Address,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.DBName,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithKeepaliveParams(keepalive.ClientParameters{
				Time:                cfg.KeepAliveTime,
				Timeout:             cfg.KeepAliveTimeout,
				PermitWithoutStream: true,
			}),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "milvus dial")
	}

	c := &Client{mc: mc, cfg: cfg, logger: log.Named("milvus")}
	if err := c.CheckHealth(dialCtx); err != nil {
		_ = c.Close()
		return nil, ErrConnectionFailed
	}
	c.logger.Info("milvus client connected", logging.String("address", cfg.Address))
	return c, nil
}

// NewClientFromSDK wraps an existing SDK client.
func NewClientFromSDK(mc client.Client, cfg Config, log logging.Logger) *Client {
	if log == nil {
		log = logging.NewNopLogger()
	}
	applyDefaults(&cfg)
	return &Client{mc: mc, cfg: cfg, logger: log}
}

func applyDefaults(cfg *Config) {
	if cfg.DBName == "" {
		cfg.DBName = "default"
	}
	if cfg.CollectionPrefix == "" {
		cfg.CollectionPrefix = "molfp_"
	}
	if cfg.NList <= 0 {
		cfg.NList = 128
	}
	if cfg.NProbe <= 0 {
		cfg.NProbe = 16
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	if cfg.KeepAliveTime == 0 {
		cfg.KeepAliveTime = 60 * time.Second
	}
	if cfg.KeepAliveTimeout == 0 {
		cfg.KeepAliveTimeout = 20 * time.Second
	}
}

// ValidateConfig rejects an empty address and negative tuning values.
func ValidateConfig(cfg Config) error {
	if cfg.Address == "" {
		return errors.New(errors.ErrCodeValidation, "milvus address is required")
	}
	if cfg.NList < 0 || cfg.NProbe < 0 {
		return errors.New(errors.ErrCodeValidation, "milvus nlist and nprobe must be >= 0")
	}
	if cfg.NProbe > cfg.NList && cfg.NList > 0 {
		return errors.New(errors.ErrCodeValidation, "milvus nprobe must not exceed nlist")
	}
	if cfg.ConnectTimeout < 0 {
		return errors.New(errors.ErrCodeValidation, "milvus connect_timeout must be >= 0")
	}
	return nil
}

func (c *Client) sdk() (client.Client, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed || c.mc == nil {
		return nil, ErrConnectionFailed
	}
	return c.mc, nil
}

// CheckHealth asks the server for its state.
func (c *Client) CheckHealth(ctx context.Context) error {
	mc, err := c.sdk()
	if err != nil {
		return err
	}
	state, err := mc.CheckHealth(ctx)
	if err != nil {
		c.logger.Warn("milvus health check failed", logging.Err(err))
		return ErrUnhealthy
	}
	if state != nil && !state.IsHealthy {
		return ErrUnhealthy
	}
	return nil
}

// Close is idempotent.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if c.mc != nil {
		return c.mc.Close()
	}
	return nil
}

//Personal.AI order the ending
