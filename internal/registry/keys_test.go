package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/serviced/internal/config"
)

func TestNewEmbeddingKey(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.EmbeddingConfig
		want    EmbeddingKey
		wantErr bool
	}{
		{
			name: "full config",
			cfg:  config.EmbeddingConfig{Provider: "ollama", Host: "localhost", Model: "bge-m3"},
			want: EmbeddingKey{Provider: "ollama", Host: "localhost", Model: "bge-m3"},
		},
		{
			name: "provider defaults to ollama",
			cfg:  config.EmbeddingConfig{Host: "localhost", Model: "bge-m3"},
			want: EmbeddingKey{Provider: "ollama", Host: "localhost", Model: "bge-m3"},
		},
		{
			name: "host case folded",
			cfg:  config.EmbeddingConfig{Provider: "OpenAI", Host: "API.OpenAI.com", Model: "text-embedding-3-small"},
			want: EmbeddingKey{Provider: "openai", Host: "api.openai.com", Model: "text-embedding-3-small"},
		},
		{
			name: "trailing slash stripped",
			cfg:  config.EmbeddingConfig{Host: "http://localhost:11434/", Model: "bge-m3"},
			want: EmbeddingKey{Provider: "ollama", Host: "http://localhost:11434", Model: "bge-m3"},
		},
		{
			name:    "missing host",
			cfg:     config.EmbeddingConfig{Model: "bge-m3"},
			wantErr: true,
		},
		{
			name:    "missing model",
			cfg:     config.EmbeddingConfig{Host: "localhost"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewEmbeddingKey(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEmbeddingKey_String(t *testing.T) {
	key, err := NewEmbeddingKey(config.EmbeddingConfig{Host: "localhost", Model: "bge-m3"})
	require.NoError(t, err)
	assert.Equal(t, "ollama:localhost:bge-m3", key.String())
}

func TestEmbeddingKey_EquivalentConfigsCollide(t *testing.T) {
	a, err := NewEmbeddingKey(config.EmbeddingConfig{Host: "Localhost", Model: "bge-m3"})
	require.NoError(t, err)
	b, err := NewEmbeddingKey(config.EmbeddingConfig{Provider: "Ollama", Host: "localhost", Model: "bge-m3"})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNewDocumentStoreKey(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DocumentStoreConfig
		want    DocumentStoreKey
		wantErr bool
	}{
		{
			name: "full config",
			cfg:  config.DocumentStoreConfig{Host: "db.internal", Port: 27018, Database: "serviced"},
			want: DocumentStoreKey{Host: "db.internal", Port: 27018, Database: "serviced"},
		},
		{
			name: "omitted port fills default",
			cfg:  config.DocumentStoreConfig{Host: "localhost", Database: "serviced"},
			want: DocumentStoreKey{Host: "localhost", Port: 27017, Database: "serviced"},
		},
		{
			name:    "missing host",
			cfg:     config.DocumentStoreConfig{Database: "serviced"},
			wantErr: true,
		},
		{
			name:    "missing database",
			cfg:     config.DocumentStoreConfig{Host: "localhost"},
			wantErr: true,
		},
		{
			name:    "port out of range",
			cfg:     config.DocumentStoreConfig{Host: "localhost", Port: 70000, Database: "serviced"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewDocumentStoreKey(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDocumentStoreKey_DefaultPortCollidesWithExplicit(t *testing.T) {
	implicit, err := NewDocumentStoreKey(config.DocumentStoreConfig{Host: "localhost", Database: "serviced"})
	require.NoError(t, err)
	explicit, err := NewDocumentStoreKey(config.DocumentStoreConfig{Host: "localhost", Port: 27017, Database: "serviced"})
	require.NoError(t, err)
	assert.Equal(t, implicit, explicit)
	assert.Equal(t, "mongodb:localhost:27017:serviced", implicit.String())
}

func TestNewCacheStoreKey(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CacheStoreConfig
		want    CacheStoreKey
		wantErr bool
	}{
		{
			name: "full config",
			cfg:  config.CacheStoreConfig{Host: "cache.internal", Port: 6380, DB: 2, UseTLS: true},
			want: CacheStoreKey{Host: "cache.internal", Port: 6380, DB: 2, UseTLS: true},
		},
		{
			name: "omitted port fills default",
			cfg:  config.CacheStoreConfig{Host: "localhost"},
			want: CacheStoreKey{Host: "localhost", Port: 6379},
		},
		{
			name:    "missing host",
			cfg:     config.CacheStoreConfig{Port: 6379},
			wantErr: true,
		},
		{
			name:    "negative db index",
			cfg:     config.CacheStoreConfig{Host: "localhost", DB: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewCacheStoreKey(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCacheStoreKey_TLSDistinct(t *testing.T) {
	plain, err := NewCacheStoreKey(config.CacheStoreConfig{Host: "localhost"})
	require.NoError(t, err)
	tls, err := NewCacheStoreKey(config.CacheStoreConfig{Host: "localhost", UseTLS: true})
	require.NoError(t, err)

	assert.NotEqual(t, plain, tls)
	assert.Equal(t, "redis:localhost:6379:0:tls=false", plain.String())
	assert.Equal(t, "redis:localhost:6379:0:tls=true", tls.String())
}

func TestNewCredentialStoreKey(t *testing.T) {
	store, err := NewDocumentStoreKey(config.DocumentStoreConfig{Host: "localhost", Database: "serviced"})
	require.NoError(t, err)

	t.Run("explicit collection", func(t *testing.T) {
		key, err := NewCredentialStoreKey(store, "tenant_keys")
		require.NoError(t, err)
		assert.Equal(t, "mongodb:localhost:27017:serviced:tenant_keys", key.String())
	})

	t.Run("collection defaults", func(t *testing.T) {
		key, err := NewCredentialStoreKey(store, "")
		require.NoError(t, err)
		assert.Equal(t, "api_keys", key.Collection)
	})

	t.Run("zero store rejected", func(t *testing.T) {
		_, err := NewCredentialStoreKey(DocumentStoreKey{}, "api_keys")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("same store different collections are distinct", func(t *testing.T) {
		a, err := NewCredentialStoreKey(store, "api_keys")
		require.NoError(t, err)
		b, err := NewCredentialStoreKey(store, "tenant_keys")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})
}

func TestCategories_DependencyOrder(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, 4)
	// Document stores must precede the credential stores built on them.
	assert.Less(t,
		indexOf(cats, CategoryDocumentStore),
		indexOf(cats, CategoryCredentialStore))
}

func indexOf(cats []Category, want Category) int {
	for i, c := range cats {
		if c == want {
			return i
		}
	}
	return -1
}
