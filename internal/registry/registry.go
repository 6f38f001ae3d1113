package registry

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/serviced/internal/cachestore"
	"github.com/fyrsmithlabs/serviced/internal/credstore"
	"github.com/fyrsmithlabs/serviced/internal/docstore"
	"github.com/fyrsmithlabs/serviced/internal/embeddings"
)

// CategorySnapshot is a point-in-time view of one category's cache,
// consumed by the health endpoint.
type CategorySnapshot struct {
	Category             Category `json:"category"`
	TotalCachedInstances int      `json:"total_cached_instances"`
	CachedIdentifiers    []string `json:"cached_identifiers"`
	Summary              string   `json:"summary"`
}

// Registry is the process-wide shared service instance registry.
//
// It owns every cached client instance; consumers hold non-owning
// references obtained through the category methods. Construct one with
// New at startup and pass it to every adapter — tests can construct
// their own isolated instances the same way.
type Registry struct {
	logger  *zap.Logger
	metrics *Metrics

	embeddings  *cache[EmbeddingKey, embeddings.Provider]
	documents   *cache[DocumentStoreKey, *docstore.Client]
	cacheStores *cache[CacheStoreKey, *cachestore.Client]
	credentials *cache[CredentialStoreKey, *credstore.Service]
}

// New creates an empty registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := NewMetrics(logger)

	return &Registry{
		logger:  logger,
		metrics: metrics,
		embeddings: newCache[EmbeddingKey, embeddings.Provider](
			CategoryEmbedding, logger, metrics,
			func(_ context.Context, p embeddings.Provider) error { return p.Close() },
		),
		documents: newCache[DocumentStoreKey, *docstore.Client](
			CategoryDocumentStore, logger, metrics,
			func(ctx context.Context, c *docstore.Client) error { return c.Close(ctx) },
		),
		cacheStores: newCache[CacheStoreKey, *cachestore.Client](
			CategoryCacheStore, logger, metrics,
			func(_ context.Context, c *cachestore.Client) error { return c.Close() },
		),
		credentials: newCache[CredentialStoreKey, *credstore.Service](
			CategoryCredentialStore, logger, metrics,
			func(_ context.Context, s *credstore.Service) error { return s.Close() },
		),
	}
}

// Embedding returns the embedding provider for key, invoking factory at
// most once per key.
func (r *Registry) Embedding(ctx context.Context, key EmbeddingKey, factory Factory[embeddings.Provider]) (embeddings.Provider, error) {
	return r.embeddings.getOrCreate(ctx, key, factory)
}

// DocumentStore returns the document store client for key.
func (r *Registry) DocumentStore(ctx context.Context, key DocumentStoreKey, factory Factory[*docstore.Client]) (*docstore.Client, error) {
	return r.documents.getOrCreate(ctx, key, factory)
}

// CacheStore returns the cache store client for key.
func (r *Registry) CacheStore(ctx context.Context, key CacheStoreKey, factory Factory[*cachestore.Client]) (*cachestore.Client, error) {
	return r.cacheStores.getOrCreate(ctx, key, factory)
}

// CredentialStore returns the credential store for key.
func (r *Registry) CredentialStore(ctx context.Context, key CredentialStoreKey, factory Factory[*credstore.Service]) (*credstore.Service, error) {
	return r.credentials.getOrCreate(ctx, key, factory)
}

// Snapshot returns a consistent view of one category. Entries appear only
// after their factory has fully succeeded.
func (r *Registry) Snapshot(category Category) (CategorySnapshot, error) {
	switch category {
	case CategoryEmbedding:
		return r.embeddings.snapshot(), nil
	case CategoryDocumentStore:
		return r.documents.snapshot(), nil
	case CategoryCacheStore:
		return r.cacheStores.snapshot(), nil
	case CategoryCredentialStore:
		return r.credentials.snapshot(), nil
	default:
		return CategorySnapshot{}, ErrUnknownCategory
	}
}

// Snapshots returns views of all categories in dependency order.
func (r *Registry) Snapshots() []CategorySnapshot {
	snapshots := make([]CategorySnapshot, 0, len(Categories()))
	for _, category := range Categories() {
		snap, _ := r.Snapshot(category)
		snapshots = append(snapshots, snap)
	}
	return snapshots
}

// Purge releases every cached instance across all categories while
// keeping the registry usable; subsequent requests re-create instances.
// Credential stores purge before the document stores they depend on.
func (r *Registry) Purge(ctx context.Context) error {
	r.logger.Info("purging service registry")

	return errors.Join(
		r.credentials.purge(ctx),
		r.embeddings.purge(ctx),
		r.cacheStores.purge(ctx),
		r.documents.purge(ctx),
	)
}

// Close releases every cached instance across all categories and rejects
// subsequent GetOrCreate calls. Credential stores close before the
// document stores they depend on.
func (r *Registry) Close(ctx context.Context) error {
	r.logger.Info("shutting down service registry")

	return errors.Join(
		r.credentials.close(ctx),
		r.embeddings.close(ctx),
		r.cacheStores.close(ctx),
		r.documents.close(ctx),
	)
}
