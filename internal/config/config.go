// Package config provides configuration loading for serviced.
//
// Configuration is loaded from a YAML file with environment variable
// overrides. This package covers the HTTP server, logging, telemetry,
// and the per-category service client settings consumed by the
// shared instance registry.
package config

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete serviced configuration.
type Config struct {
	Server          ServerConfig          `koanf:"server"`
	Logging         LoggingConfig         `koanf:"logging"`
	Observability   ObservabilityConfig   `koanf:"observability"`
	Embedding       EmbeddingConfig       `koanf:"embedding"`
	DocumentStore   DocumentStoreConfig   `koanf:"document_store"`
	CacheStore      CacheStoreConfig      `koanf:"cache_store"`
	CredentialStore CredentialStoreConfig `koanf:"credential_store"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string   `koanf:"host"`
	Port            int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`
}

// LoggingConfig holds logger configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`  // debug, info, warn, error
	Format string `koanf:"format"` // json or console
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry bool   `koanf:"enable_telemetry"`
	ServiceName     string `koanf:"service_name"`
	Endpoint        string `koanf:"endpoint"`
	Protocol        string `koanf:"protocol"` // grpc or http/protobuf
	Insecure        bool   `koanf:"insecure"`
}

// EmbeddingConfig holds embedding client configuration.
type EmbeddingConfig struct {
	Provider string `koanf:"provider"` // defaults to "ollama"
	Host     string `koanf:"host"`
	Model    string `koanf:"model"`
	APIKey   Secret `koanf:"api_key"`
}

// DocumentStoreConfig holds document store (MongoDB) client configuration.
type DocumentStoreConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	Username string `koanf:"username"`
	Password Secret `koanf:"password"`
}

// CacheStoreConfig holds cache store (Redis) client configuration.
type CacheStoreConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	DB       int    `koanf:"db"`
	UseTLS   bool   `koanf:"use_tls"`
	Username string `koanf:"username"`
	Password Secret `koanf:"password"`
}

// CredentialStoreConfig holds credential store configuration.
// Credential stores persist API keys in a collection of the shared
// document store, so the connection settings come from DocumentStore.
type CredentialStoreConfig struct {
	Collection string `koanf:"collection"`
}

// Validate validates the configuration.
//
// Returns an error if:
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Service name is empty (when telemetry is enabled)
//   - Logging level or format is unrecognized
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout.Duration() <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q (expected json or console)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %q", c.Logging.Level)
	}

	if c.Observability.EnableTelemetry {
		if c.Observability.ServiceName == "" {
			return errors.New("service name is required when telemetry is enabled")
		}
		switch c.Observability.Protocol {
		case "", "grpc", "http/protobuf":
		default:
			return fmt.Errorf("invalid telemetry protocol: %q (expected grpc or http/protobuf)", c.Observability.Protocol)
		}
	}

	return nil
}

// applyDefaults sets default values for missing configuration fields.
func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9090
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "serviced"
	}
	if cfg.Observability.Endpoint == "" {
		cfg.Observability.Endpoint = "localhost:4317"
	}

	if cfg.Embedding.Host == "" {
		cfg.Embedding.Host = "http://localhost:11434"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "bge-m3"
	}

	if cfg.DocumentStore.Host == "" {
		cfg.DocumentStore.Host = "localhost"
	}
	if cfg.DocumentStore.Port == 0 {
		cfg.DocumentStore.Port = 27017
	}
	if cfg.DocumentStore.Database == "" {
		cfg.DocumentStore.Database = "serviced"
	}

	if cfg.CacheStore.Host == "" {
		cfg.CacheStore.Host = "localhost"
	}
	if cfg.CacheStore.Port == 0 {
		cfg.CacheStore.Port = 6379
	}

	if cfg.CredentialStore.Collection == "" {
		cfg.CredentialStore.Collection = "api_keys"
	}
}
