package embeddings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:   "valid ollama",
			config: Config{Provider: "ollama", Host: "http://localhost:11434", Model: "bge-m3"},
		},
		{
			name:   "valid openai",
			config: Config{Provider: "openai", Host: "https://api.openai.com/v1", Model: "text-embedding-3-small", APIKey: "sk-test"},
		},
		{
			name:    "missing host",
			config:  Config{Model: "bge-m3"},
			wantErr: true,
		},
		{
			name:    "missing model",
			config:  Config{Host: "http://localhost:11434"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_BaseURL(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{
			name:   "ollama gets v1 suffix",
			config: Config{Provider: "ollama", Host: "http://localhost:11434"},
			want:   "http://localhost:11434/v1",
		},
		{
			name:   "ollama with trailing slash",
			config: Config{Provider: "ollama", Host: "http://localhost:11434/"},
			want:   "http://localhost:11434/v1",
		},
		{
			name:   "ollama already versioned",
			config: Config{Provider: "ollama", Host: "http://localhost:11434/v1"},
			want:   "http://localhost:11434/v1",
		},
		{
			name:   "tei untouched",
			config: Config{Provider: "tei", Host: "http://localhost:8080"},
			want:   "http://localhost:8080",
		},
		{
			name:   "openai untouched",
			config: Config{Provider: "openai", Host: "https://api.openai.com/v1"},
			want:   "https://api.openai.com/v1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.config.baseURL())
		})
	}
}

func TestNewService(t *testing.T) {
	svc, err := NewService(Config{
		Provider: "ollama",
		Host:     "http://localhost:11434",
		Model:    "bge-m3",
	})
	require.NoError(t, err)
	require.NotNil(t, svc)

	assert.Equal(t, "bge-m3", svc.Model())
	assert.NoError(t, svc.Close())
}

func TestNewService_InvalidConfig(t *testing.T) {
	_, err := NewService(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestEmbed_EmptyInput(t *testing.T) {
	svc, err := NewService(Config{
		Provider: "ollama",
		Host:     "http://localhost:11434",
		Model:    "bge-m3",
	})
	require.NoError(t, err)

	_, err = svc.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = svc.Embed(context.Background(), []string{})
	assert.ErrorIs(t, err, ErrEmptyInput)
}
