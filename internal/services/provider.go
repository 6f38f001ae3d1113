package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/serviced/internal/cachestore"
	"github.com/fyrsmithlabs/serviced/internal/config"
	"github.com/fyrsmithlabs/serviced/internal/credstore"
	"github.com/fyrsmithlabs/serviced/internal/docstore"
	"github.com/fyrsmithlabs/serviced/internal/embeddings"
	"github.com/fyrsmithlabs/serviced/internal/registry"
)

// Provider resolves configured service clients through the registry.
//
// All methods are safe for concurrent use. Repeated calls with the same
// configuration return the same underlying instance.
type Provider struct {
	cfg      *config.Config
	registry *registry.Registry
	logger   *zap.Logger

	// Factories are swappable so tests can resolve clients without live
	// backends. The defaults dial the real services.
	embeddingFactory  func(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error)
	docStoreFactory   func(ctx context.Context, cfg config.DocumentStoreConfig) (*docstore.Client, error)
	cacheStoreFactory func(ctx context.Context, cfg config.CacheStoreConfig) (*cachestore.Client, error)
	credStoreFactory  func(ctx context.Context, store *docstore.Client, collection string) (*credstore.Service, error)
}

// NewProvider creates a provider over the given registry.
func NewProvider(cfg *config.Config, reg *registry.Registry, logger *zap.Logger) (*Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if reg == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Provider{
		cfg:      cfg,
		registry: reg,
		logger:   logger,
	}
	p.embeddingFactory = p.dialEmbedding
	p.docStoreFactory = p.dialDocumentStore
	p.cacheStoreFactory = p.dialCacheStore
	p.credStoreFactory = p.buildCredentialStore
	return p, nil
}

// Snapshot returns a point-in-time view of one registry category.
func (p *Provider) Snapshot(category registry.Category) (registry.CategorySnapshot, error) {
	return p.registry.Snapshot(category)
}

// Snapshots returns views of all registry categories.
func (p *Provider) Snapshots() []registry.CategorySnapshot {
	return p.registry.Snapshots()
}

// Embedding returns the embedding provider for the application's default
// embedding configuration.
func (p *Provider) Embedding(ctx context.Context) (embeddings.Provider, error) {
	return p.EmbeddingFor(ctx, p.cfg.Embedding)
}

// EmbeddingFor returns the embedding provider for an explicit
// configuration, e.g. a per-tenant override.
func (p *Provider) EmbeddingFor(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error) {
	key, err := registry.NewEmbeddingKey(cfg)
	if err != nil {
		return nil, err
	}
	return p.registry.Embedding(ctx, key, func(ctx context.Context) (embeddings.Provider, error) {
		return p.embeddingFactory(ctx, cfg)
	})
}

// DocumentStore returns the document store client for the application's
// default document store configuration.
func (p *Provider) DocumentStore(ctx context.Context) (*docstore.Client, error) {
	return p.DocumentStoreFor(ctx, p.cfg.DocumentStore)
}

// DocumentStoreFor returns the document store client for an explicit
// configuration.
func (p *Provider) DocumentStoreFor(ctx context.Context, cfg config.DocumentStoreConfig) (*docstore.Client, error) {
	key, err := registry.NewDocumentStoreKey(cfg)
	if err != nil {
		return nil, err
	}
	return p.registry.DocumentStore(ctx, key, func(ctx context.Context) (*docstore.Client, error) {
		return p.docStoreFactory(ctx, cfg)
	})
}

// CacheStore returns the cache store client for the application's default
// cache store configuration.
func (p *Provider) CacheStore(ctx context.Context) (*cachestore.Client, error) {
	return p.CacheStoreFor(ctx, p.cfg.CacheStore)
}

// CacheStoreFor returns the cache store client for an explicit
// configuration.
func (p *Provider) CacheStoreFor(ctx context.Context, cfg config.CacheStoreConfig) (*cachestore.Client, error) {
	key, err := registry.NewCacheStoreKey(cfg)
	if err != nil {
		return nil, err
	}
	return p.registry.CacheStore(ctx, key, func(ctx context.Context) (*cachestore.Client, error) {
		return p.cacheStoreFactory(ctx, cfg)
	})
}

// CredentialStore returns the credential store over the application's
// default document store and collection.
func (p *Provider) CredentialStore(ctx context.Context) (*credstore.Service, error) {
	return p.CredentialStoreFor(ctx, p.cfg.DocumentStore, p.cfg.CredentialStore.Collection)
}

// CredentialStoreFor returns the credential store for an explicit
// document store configuration and collection. The underlying document
// store client is resolved through the registry first, so a credential
// store and a direct document store consumer share one connection pool.
func (p *Provider) CredentialStoreFor(ctx context.Context, storeCfg config.DocumentStoreConfig, collection string) (*credstore.Service, error) {
	storeKey, err := registry.NewDocumentStoreKey(storeCfg)
	if err != nil {
		return nil, err
	}
	key, err := registry.NewCredentialStoreKey(storeKey, collection)
	if err != nil {
		return nil, err
	}

	return p.registry.CredentialStore(ctx, key, func(ctx context.Context) (*credstore.Service, error) {
		store, err := p.DocumentStoreFor(ctx, storeCfg)
		if err != nil {
			return nil, fmt.Errorf("resolving document store for credential store: %w", err)
		}
		return p.credStoreFactory(ctx, store, key.Collection)
	})
}

func (p *Provider) dialEmbedding(_ context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error) {
	return embeddings.NewService(embeddings.Config{
		Provider: cfg.Provider,
		Host:     cfg.Host,
		Model:    cfg.Model,
		APIKey:   cfg.APIKey.Value(),
	})
}

func (p *Provider) dialDocumentStore(ctx context.Context, cfg config.DocumentStoreConfig) (*docstore.Client, error) {
	return docstore.Connect(ctx, docstore.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Database: cfg.Database,
		Username: cfg.Username,
		Password: cfg.Password.Value(),
	}, p.logger)
}

func (p *Provider) dialCacheStore(ctx context.Context, cfg config.CacheStoreConfig) (*cachestore.Client, error) {
	return cachestore.Connect(ctx, cachestore.Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		DB:       cfg.DB,
		UseTLS:   cfg.UseTLS,
		Username: cfg.Username,
		Password: cfg.Password.Value(),
	}, p.logger)
}

func (p *Provider) buildCredentialStore(ctx context.Context, store *docstore.Client, collection string) (*credstore.Service, error) {
	svc, err := credstore.New(store, collection, p.logger)
	if err != nil {
		return nil, err
	}
	if err := svc.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensuring credential store indexes: %w", err)
	}
	return svc, nil
}
