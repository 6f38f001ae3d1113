// Package credstore provides API key credential stores.
//
// A credential store persists API keys in one collection of a shared
// document store client. The registry keys credential stores by the
// document store they write to plus the collection name, so two stores
// over the same collection are the same instance.
package credstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/serviced/internal/docstore"
)

// keyPrefix marks keys issued by this service, making them easy to spot
// in logs and secret scanners.
const keyPrefix = "svc_"

var (
	// ErrInvalidConfig indicates invalid configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrKeyNotFound indicates the presented API key does not exist
	// or has been disabled.
	ErrKeyNotFound = errors.New("api key not found")
)

// APIKey is a stored credential record.
type APIKey struct {
	Key       string    `bson:"key" json:"key"`
	Client    string    `bson:"client" json:"client"`
	Active    bool      `bson:"active" json:"active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// Service manages API keys in one collection of a shared document store.
// It does not own the underlying client; the registry closes that
// separately when the document store category shuts down.
type Service struct {
	store      *docstore.Client
	collection string
	logger     *zap.Logger
}

// New creates a credential store over the given document store client.
func New(store *docstore.Client, collection string, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: document store client required", ErrInvalidConfig)
	}
	if strings.TrimSpace(collection) == "" {
		return nil, fmt.Errorf("%w: collection required", ErrInvalidConfig)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		store:      store,
		collection: collection,
		logger:     logger.With(zap.String("collection", collection)),
	}, nil
}

// EnsureIndexes creates the unique key index. Idempotent; call once after
// the store is first created.
func (s *Service) EnsureIndexes(ctx context.Context) error {
	_, err := s.col().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating api key index: %w", err)
	}
	return nil
}

// Issue creates and persists a new API key for a client name.
func (s *Service) Issue(ctx context.Context, client string) (*APIKey, error) {
	if strings.TrimSpace(client) == "" {
		return nil, fmt.Errorf("%w: client name required", ErrInvalidConfig)
	}

	key := &APIKey{
		Key:       keyPrefix + strings.ReplaceAll(uuid.NewString(), "-", ""),
		Client:    client,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}

	if _, err := s.col().InsertOne(ctx, key); err != nil {
		return nil, fmt.Errorf("storing api key for %s: %w", client, err)
	}

	s.logger.Info("issued api key", zap.String("client", client))
	return key, nil
}

// Verify looks up an active API key and returns its record.
// Returns ErrKeyNotFound for unknown or disabled keys.
func (s *Service) Verify(ctx context.Context, key string) (*APIKey, error) {
	var record APIKey
	err := s.col().FindOne(ctx, bson.M{"key": key, "active": true}).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up api key: %w", err)
	}
	return &record, nil
}

// Disable deactivates an API key without deleting its audit trail.
// Returns ErrKeyNotFound if the key does not exist.
func (s *Service) Disable(ctx context.Context, key string) error {
	res, err := s.col().UpdateOne(ctx,
		bson.M{"key": key},
		bson.M{"$set": bson.M{"active": false}},
	)
	if err != nil {
		return fmt.Errorf("disabling api key: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrKeyNotFound
	}

	s.logger.Info("disabled api key")
	return nil
}

// Collection returns the collection name this store writes to.
func (s *Service) Collection() string {
	return s.collection
}

// Close is a no-op: the shared document store client is owned by its own
// registry category.
func (s *Service) Close() error {
	return nil
}

func (s *Service) col() *mongo.Collection {
	return s.store.Collection(s.collection)
}
