package registry

import (
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/serviced/internal/config"
)

// Category identifies one of the managed external-service kinds.
type Category string

// The closed set of service categories.
const (
	CategoryEmbedding       Category = "embedding"
	CategoryDocumentStore   Category = "document_store"
	CategoryCacheStore      Category = "cache_store"
	CategoryCredentialStore Category = "credential_store"
)

// Categories lists all managed categories in dependency order
// (document stores before the credential stores built on them).
func Categories() []Category {
	return []Category{
		CategoryEmbedding,
		CategoryDocumentStore,
		CategoryCacheStore,
		CategoryCredentialStore,
	}
}

// Default values filled in by the key builders so that an omitted field
// and its explicit default normalize to the same key.
const (
	DefaultEmbeddingProvider  = "ollama"
	DefaultDocumentStorePort  = 27017
	DefaultCacheStorePort     = 6379
	DefaultCredentialStoreCol = "api_keys"
)

// normalizeHost lower-cases and trims a host value so letter case never
// produces distinct keys. A trailing slash on URL-shaped hosts is dropped.
func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), "/")
}

// EmbeddingKey identifies a unique embedding client configuration.
// Only fields that affect client behavior participate; the API key is a
// credential, not an identity, and stays out of the key.
type EmbeddingKey struct {
	Provider string
	Host     string
	Model    string
}

// NewEmbeddingKey builds a normalized key from raw embedding configuration.
// The provider falls back to "ollama" when unspecified.
func NewEmbeddingKey(cfg config.EmbeddingConfig) (EmbeddingKey, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if provider == "" {
		provider = DefaultEmbeddingProvider
	}

	host := normalizeHost(cfg.Host)
	if host == "" {
		return EmbeddingKey{}, fmt.Errorf("%w: embedding host is required", ErrInvalidConfig)
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return EmbeddingKey{}, fmt.Errorf("%w: embedding model is required", ErrInvalidConfig)
	}

	return EmbeddingKey{Provider: provider, Host: host, Model: model}, nil
}

func (k EmbeddingKey) String() string {
	return k.Provider + ":" + k.Host + ":" + k.Model
}

// DocumentStoreKey identifies a unique document store connection.
// Credentials are deliberately excluded: they authenticate the connection
// but do not change which logical database it points at.
type DocumentStoreKey struct {
	Host     string
	Port     int
	Database string
}

// NewDocumentStoreKey builds a normalized key from raw document store
// configuration. An omitted port normalizes to the MongoDB default so it
// collides with an explicitly configured 27017.
func NewDocumentStoreKey(cfg config.DocumentStoreConfig) (DocumentStoreKey, error) {
	host := normalizeHost(cfg.Host)
	if host == "" {
		return DocumentStoreKey{}, fmt.Errorf("%w: document store host is required", ErrInvalidConfig)
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultDocumentStorePort
	}
	if port < 1 || port > 65535 {
		return DocumentStoreKey{}, fmt.Errorf("%w: invalid document store port %d", ErrInvalidConfig, cfg.Port)
	}

	database := strings.TrimSpace(cfg.Database)
	if database == "" {
		return DocumentStoreKey{}, fmt.Errorf("%w: document store database is required", ErrInvalidConfig)
	}

	return DocumentStoreKey{Host: host, Port: port, Database: database}, nil
}

func (k DocumentStoreKey) String() string {
	return fmt.Sprintf("mongodb:%s:%d:%s", k.Host, k.Port, k.Database)
}

// CacheStoreKey identifies a unique cache store connection. The TLS flag
// participates in equality: TLS and plaintext endpoints at the same
// host/port are distinct instances.
type CacheStoreKey struct {
	Host   string
	Port   int
	DB     int
	UseTLS bool
}

// NewCacheStoreKey builds a normalized key from raw cache store
// configuration. An omitted port normalizes to the Redis default.
func NewCacheStoreKey(cfg config.CacheStoreConfig) (CacheStoreKey, error) {
	host := normalizeHost(cfg.Host)
	if host == "" {
		return CacheStoreKey{}, fmt.Errorf("%w: cache store host is required", ErrInvalidConfig)
	}

	port := cfg.Port
	if port == 0 {
		port = DefaultCacheStorePort
	}
	if port < 1 || port > 65535 {
		return CacheStoreKey{}, fmt.Errorf("%w: invalid cache store port %d", ErrInvalidConfig, cfg.Port)
	}

	if cfg.DB < 0 {
		return CacheStoreKey{}, fmt.Errorf("%w: invalid cache store db index %d", ErrInvalidConfig, cfg.DB)
	}

	return CacheStoreKey{Host: host, Port: port, DB: cfg.DB, UseTLS: cfg.UseTLS}, nil
}

func (k CacheStoreKey) String() string {
	return fmt.Sprintf("redis:%s:%d:%d:tls=%t", k.Host, k.Port, k.DB, k.UseTLS)
}

// CredentialStoreKey identifies a unique credential store: the document
// store it persists into plus the collection name. Building one requires
// a resolvable document store key first, which establishes the category
// dependency order.
type CredentialStoreKey struct {
	Store      DocumentStoreKey
	Collection string
}

// NewCredentialStoreKey builds a key from an already-normalized document
// store key and a collection name. The collection falls back to the
// default API key collection when unspecified.
func NewCredentialStoreKey(store DocumentStoreKey, collection string) (CredentialStoreKey, error) {
	if store == (DocumentStoreKey{}) {
		return CredentialStoreKey{}, fmt.Errorf("%w: credential store requires a document store key", ErrInvalidConfig)
	}

	collection = strings.TrimSpace(collection)
	if collection == "" {
		collection = DefaultCredentialStoreCol
	}

	return CredentialStoreKey{Store: store, Collection: collection}, nil
}

func (k CredentialStoreKey) String() string {
	return k.Store.String() + ":" + k.Collection
}
