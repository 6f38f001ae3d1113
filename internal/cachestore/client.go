// Package cachestore provides the shared Redis cache store client.
//
// One client per unique host/port/db/TLS configuration is created through
// the registry. TLS and plaintext endpoints at the same address are
// deliberately distinct instances.
package cachestore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Connection defaults, matching the pool tuning used across our services.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
	DefaultPoolSize     = 100
	DefaultMinIdleConns = 10
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the server did not answer the
	// initial ping.
	ErrConnectionFailed = errors.New("failed to connect to cache store")
)

// Config holds configuration for a cache store client.
type Config struct {
	Host   string
	Port   int
	DB     int
	UseTLS bool

	// Username and Password are optional ACL credentials.
	Username string
	Password string

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
	MinIdleConns int
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.DB < 0 {
		return fmt.Errorf("%w: negative db index %d", ErrInvalidConfig, c.DB)
	}
	return nil
}

// applyDefaults fills unset tuning fields.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 6379
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = DefaultMinIdleConns
	}
}

// Client wraps a shared redis.Client.
type Client struct {
	client *redis.Client
	logger *zap.Logger
	config Config
}

// Connect establishes a connection to the cache store and verifies it
// with a ping. The registry owns the returned client's lifetime.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if logger == nil {
		logger = zap.NewNop()
	}

	opts := &redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
	}
	if cfg.UseTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: ping %s: %w", ErrConnectionFailed, opts.Addr, err)
	}

	logger.Info("connected to cache store",
		zap.String("addr", opts.Addr),
		zap.Int("db", cfg.DB),
		zap.Bool("tls", cfg.UseTLS),
		zap.Int("pool_size", cfg.PoolSize))

	return &Client{
		client: client,
		logger: logger,
		config: cfg,
	}, nil
}

// Redis returns the underlying redis client for consumers that need the
// full command surface.
func (c *Client) Redis() *redis.Client {
	return c.client
}

// Get retrieves a value by key. Returns redis.Nil via the wrapped error
// chain when the key does not exist.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.client.Get(ctx, key).Result()
}

// Set stores a value with the given TTL. A zero TTL means no expiry.
func (c *Client) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Delete removes keys, ignoring ones that do not exist.
func (c *Client) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// Ping verifies the connection is still healthy.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrConnectionFailed
	}
	return c.client.Ping(ctx).Err()
}

// Close releases the client's connection pool. Safe on a zero-value client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.logger.Info("closing cache store client",
		zap.String("host", c.config.Host),
		zap.Int("db", c.config.DB))
	return c.client.Close()
}
