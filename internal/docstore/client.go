// Package docstore provides the shared MongoDB document store client.
//
// One client per unique host/port/database configuration is created
// through the registry; every consumer (credential stores included)
// shares its connection pool.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Connection defaults. Pool sizes follow the driver's production guidance.
const (
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxPoolSize    = 100
	DefaultMinPoolSize    = 10
)

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrConnectionFailed indicates the server was unreachable or
	// rejected the connection.
	ErrConnectionFailed = errors.New("failed to connect to document store")
)

// Config holds configuration for a document store client.
type Config struct {
	Host     string
	Port     int
	Database string

	// Username and Password are optional; when set they are embedded in
	// the connection URI.
	Username string
	Password string

	// ConnectTimeout bounds the initial connection attempt.
	// Defaults to 10s.
	ConnectTimeout time.Duration

	// MaxPoolSize and MinPoolSize bound the driver's connection pool.
	MaxPoolSize uint64
	MinPoolSize uint64
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Database == "" {
		return fmt.Errorf("%w: database required", ErrInvalidConfig)
	}
	return nil
}

// applyDefaults fills unset tuning fields.
func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = 27017
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxPoolSize == 0 {
		c.MaxPoolSize = DefaultMaxPoolSize
	}
	if c.MinPoolSize == 0 {
		c.MinPoolSize = DefaultMinPoolSize
	}
}

// URI builds the MongoDB connection string. Atlas hosts (*.mongodb.net)
// use the mongodb+srv scheme, which carries no port.
func (c Config) URI() string {
	creds := ""
	if c.Username != "" && c.Password != "" {
		creds = url.UserPassword(c.Username, c.Password).String() + "@"
	}

	if strings.HasSuffix(c.Host, "mongodb.net") {
		return fmt.Sprintf("mongodb+srv://%s%s/%s?retryWrites=true&w=majority", creds, c.Host, c.Database)
	}
	return fmt.Sprintf("mongodb://%s%s:%d/%s", creds, c.Host, c.Port, c.Database)
}

// Client wraps a shared mongo.Client scoped to one database.
type Client struct {
	client   *mongo.Client
	database *mongo.Database
	logger   *zap.Logger
	config   Config
}

// Connect establishes a connection to the document store and verifies it
// with a ping. The returned client owns a connection pool; callers must
// not close it directly — the registry releases it at shutdown.
func Connect(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if logger == nil {
		logger = zap.NewNop()
	}

	clientOpts := options.Client().
		ApplyURI(cfg.URI()).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetConnectTimeout(cfg.ConnectTimeout)

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s:%d: %w", ErrConnectionFailed, cfg.Host, cfg.Port, err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		// Best-effort disconnect; the ping error is the one that matters
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("%w: ping %s:%d: %w", ErrConnectionFailed, cfg.Host, cfg.Port, err)
	}

	logger.Info("connected to document store",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.Uint64("max_pool_size", cfg.MaxPoolSize))

	return &Client{
		client:   client,
		database: client.Database(cfg.Database),
		logger:   logger,
		config:   cfg,
	}, nil
}

// Database returns the scoped database handle.
func (c *Client) Database() *mongo.Database {
	return c.database
}

// Collection returns a collection handle within the scoped database.
func (c *Client) Collection(name string) *mongo.Collection {
	return c.database.Collection(name)
}

// Ping verifies the connection is still healthy.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return ErrConnectionFailed
	}
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the underlying client, draining its pool. Safe on a
// zero-value client.
func (c *Client) Close(ctx context.Context) error {
	if c == nil || c.client == nil {
		return nil
	}
	c.logger.Info("disconnecting document store client",
		zap.String("host", c.config.Host),
		zap.String("database", c.config.Database))
	return c.client.Disconnect(ctx)
}
