package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/serviced/internal/cachestore"
	"github.com/fyrsmithlabs/serviced/internal/config"
	"github.com/fyrsmithlabs/serviced/internal/credstore"
	"github.com/fyrsmithlabs/serviced/internal/docstore"
	"github.com/fyrsmithlabs/serviced/internal/embeddings"
	"github.com/fyrsmithlabs/serviced/internal/registry"
)

type stubEmbedder struct {
	model string
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}
func (s *stubEmbedder) Model() string { return s.model }
func (s *stubEmbedder) Close() error  { return nil }

func testConfig() *config.Config {
	return &config.Config{
		Embedding: config.EmbeddingConfig{
			Provider: "ollama",
			Host:     "http://localhost:11434",
			Model:    "bge-m3",
		},
		DocumentStore: config.DocumentStoreConfig{
			Host:     "localhost",
			Port:     27017,
			Database: "serviced",
		},
		CacheStore: config.CacheStoreConfig{
			Host: "localhost",
			Port: 6379,
		},
		CredentialStore: config.CredentialStoreConfig{
			Collection: "api_keys",
		},
	}
}

// newTestProvider builds a provider whose factories count invocations
// instead of dialing real backends.
func newTestProvider(t *testing.T) (*Provider, *atomic.Int64, *atomic.Int64, *atomic.Int64) {
	t.Helper()

	reg := registry.New(zap.NewNop())
	t.Cleanup(func() { reg.Close(context.Background()) }) //nolint:errcheck

	p, err := NewProvider(testConfig(), reg, zap.NewNop())
	require.NoError(t, err)

	var embedDials, docDials, cacheDials atomic.Int64
	p.embeddingFactory = func(ctx context.Context, cfg config.EmbeddingConfig) (embeddings.Provider, error) {
		embedDials.Add(1)
		return &stubEmbedder{model: cfg.Model}, nil
	}
	p.docStoreFactory = func(ctx context.Context, cfg config.DocumentStoreConfig) (*docstore.Client, error) {
		docDials.Add(1)
		return &docstore.Client{}, nil
	}
	p.cacheStoreFactory = func(ctx context.Context, cfg config.CacheStoreConfig) (*cachestore.Client, error) {
		cacheDials.Add(1)
		return &cachestore.Client{}, nil
	}
	p.credStoreFactory = func(ctx context.Context, store *docstore.Client, collection string) (*credstore.Service, error) {
		return &credstore.Service{}, nil
	}
	return p, &embedDials, &docDials, &cacheDials
}

func TestNewProvider_Validation(t *testing.T) {
	reg := registry.New(zap.NewNop())

	_, err := NewProvider(nil, reg, zap.NewNop())
	require.Error(t, err)

	_, err = NewProvider(testConfig(), nil, zap.NewNop())
	require.Error(t, err)

	p, err := NewProvider(testConfig(), reg, nil)
	require.NoError(t, err)
	require.NotNil(t, p)
}

func TestProvider_Embedding_SharedInstance(t *testing.T) {
	p, embedDials, _, _ := newTestProvider(t)
	ctx := context.Background()

	first, err := p.Embedding(ctx)
	require.NoError(t, err)
	second, err := p.Embedding(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int64(1), embedDials.Load())
}

func TestProvider_EmbeddingFor_DistinctConfigs(t *testing.T) {
	p, embedDials, _, _ := newTestProvider(t)
	ctx := context.Background()

	def, err := p.Embedding(ctx)
	require.NoError(t, err)

	other, err := p.EmbeddingFor(ctx, config.EmbeddingConfig{
		Provider: "ollama",
		Host:     "http://localhost:11434",
		Model:    "nomic-embed-text",
	})
	require.NoError(t, err)

	assert.NotSame(t, def, other)
	assert.Equal(t, "nomic-embed-text", other.Model())
	assert.Equal(t, int64(2), embedDials.Load())
}

func TestProvider_EmbeddingFor_InvalidConfig(t *testing.T) {
	p, embedDials, _, _ := newTestProvider(t)

	_, err := p.EmbeddingFor(context.Background(), config.EmbeddingConfig{Model: "bge-m3"})
	require.Error(t, err)
	assert.ErrorIs(t, err, registry.ErrInvalidConfig)
	assert.Equal(t, int64(0), embedDials.Load())
}

func TestProvider_CredentialStore_SharesDocumentStore(t *testing.T) {
	p, _, docDials, _ := newTestProvider(t)
	ctx := context.Background()

	cred, err := p.CredentialStore(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)

	// The credential store resolved its document store through the
	// registry, so a direct consumer reuses the same connection.
	doc, err := p.DocumentStore(ctx)
	require.NoError(t, err)
	require.NotNil(t, doc)

	assert.Equal(t, int64(1), docDials.Load())
}

func TestProvider_CredentialStore_SameCollectionSameInstance(t *testing.T) {
	p, _, _, _ := newTestProvider(t)
	ctx := context.Background()

	a, err := p.CredentialStore(ctx)
	require.NoError(t, err)

	// An empty collection normalizes to the default and collides with
	// the configured one.
	b, err := p.CredentialStoreFor(ctx, p.cfg.DocumentStore, "")
	require.NoError(t, err)
	assert.Same(t, a, b)

	c, err := p.CredentialStoreFor(ctx, p.cfg.DocumentStore, "tenant_keys")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestProvider_CacheStore_TLSVariantsDistinct(t *testing.T) {
	p, _, _, cacheDials := newTestProvider(t)
	ctx := context.Background()

	plain, err := p.CacheStore(ctx)
	require.NoError(t, err)

	tlsCfg := testConfig().CacheStore
	tlsCfg.UseTLS = true
	secured, err := p.CacheStoreFor(ctx, tlsCfg)
	require.NoError(t, err)

	assert.NotSame(t, plain, secured)
	assert.Equal(t, int64(2), cacheDials.Load())
}
