package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Collection names of the marketplace documents.
const (
	CollectionLeases         = "leases"
	CollectionStudents       = "students"
	CollectionLandlords      = "landlords"
	CollectionProperties     = "properties"
	CollectionOwnerships     = "ownerships"
	CollectionInstitutions   = "institutions"
	CollectionLeaseDocuments = "lease_documents"
)

var (
	// ErrRevisionConflict is returned by Update when the stored revision moved on.
	ErrRevisionConflict = errors.New("store: document revision conflict")
	// ErrDuplicate is returned by Insert when the id is already taken.
	ErrDuplicate = errors.New("store: document already exists")
	// ErrMissing is returned by Update when the document does not exist.
	ErrMissing = errors.New("store: document does not exist")
)

// Filter selects documents whose body contains the given JSON fragment.
// Nested objects and arrays follow jsonb containment (@>) rules.
type Filter map[string]any

// Record is a stored document body plus its bookkeeping columns.
type Record struct {
	ID        uuid.UUID `json:"id"`
	Revision  int64     `json:"revision"`
	Body      []byte    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentStore is a schemaless store of JSON documents grouped by collection.
// Find and FindByIDs return records in insertion order.
type DocumentStore interface {
	Get(ctx context.Context, collection string, id uuid.UUID) (*Record, error)
	Find(ctx context.Context, collection string, filter Filter) ([]Record, error)
	FindByIDs(ctx context.Context, collection string, ids []uuid.UUID) ([]Record, error)
	Insert(ctx context.Context, collection string, id uuid.UUID, body []byte) (Record, error)
	Update(ctx context.Context, collection string, id uuid.UUID, revision int64, body []byte) (Record, error)
	Close() error
}

// RedisClient is the subset of go-redis used by the document cache.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	SetEx(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Close() error
}
