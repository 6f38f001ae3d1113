package embeddings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	// ErrEmptyInput indicates empty or nil input texts.
	ErrEmptyInput = errors.New("empty or nil input texts")

	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Provider is the interface for embedding clients.
type Provider interface {
	// Embed generates one vector per input text.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Model returns the configured model name.
	Model() string
	// Close releases resources held by the provider.
	Close() error
}

// Config holds configuration for creating an embedding client.
type Config struct {
	// Provider selects the backend: "ollama" (default), "tei", or "openai".
	Provider string

	// Host is the base URL of the embedding endpoint, e.g.
	// http://localhost:11434 for Ollama or https://api.openai.com/v1.
	Host string

	// Model is the embedding model name, e.g. bge-m3.
	Model string

	// APIKey authenticates against hosted providers. Optional for
	// Ollama and TEI.
	APIKey string
}

// Validate validates the configuration.
func (c Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host required", ErrInvalidConfig)
	}
	if c.Model == "" {
		return fmt.Errorf("%w: model required", ErrInvalidConfig)
	}
	return nil
}

// baseURL derives the OpenAI-compatible endpoint for the provider.
// Ollama serves its compatible API under /v1.
func (c Config) baseURL() string {
	host := strings.TrimSuffix(c.Host, "/")
	if strings.EqualFold(c.Provider, "ollama") && !strings.HasSuffix(host, "/v1") {
		return host + "/v1"
	}
	return host
}

// Service generates embeddings through an OpenAI-compatible API.
type Service struct {
	embedder *embeddings.EmbedderImpl
	config   Config
}

// NewService creates a new embedding client with the given configuration.
//
// The client uses langchaingo's embeddings abstraction, so any endpoint
// speaking the OpenAI embeddings API works (Ollama, TEI, OpenAI).
// Construction only validates configuration and builds the HTTP client;
// the first Embed call performs the actual network round trip.
func NewService(config Config) (*Service, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	apiKey := config.APIKey
	if apiKey == "" {
		// langchaingo requires a token; local endpoints ignore it
		apiKey = "placeholder"
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.baseURL()),
		openai.WithModel(config.Model),
		openai.WithEmbeddingModel(config.Model),
		openai.WithToken(apiKey),
	)
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(llm)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}

	return &Service{
		embedder: embedder,
		config:   config,
	}, nil
}

// Embed generates embeddings for the given texts.
//
// Returns ErrEmptyInput if texts is empty or nil. One vector is returned
// per input text; all vectors share the model's dimension.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts cannot be empty", ErrEmptyInput)
	}

	vectors, err := s.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding documents: %w", err)
	}

	return vectors, nil
}

// Model returns the configured model name.
func (s *Service) Model() string {
	return s.config.Model
}

// Close is a no-op: the client holds no persistent connections.
func (s *Service) Close() error {
	return nil
}
