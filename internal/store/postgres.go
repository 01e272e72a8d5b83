package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

const uniqueViolation = "23505"

// PostgresStore keeps documents as JSONB rows in the documents table, with an
// optional Redis read-through cache in front of Get.
type PostgresStore struct {
	db       *sql.DB
	redis    RedisClient
	cacheTTL time.Duration
}

// NewPostgresStore connects to Postgres through the pgx stdlib driver
func NewPostgresStore(dsn string, cache RedisClient) (*PostgresStore, error) {
	config, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parsing database dsn: %w", err)
	}

	db := stdlib.OpenDB(*config)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return NewPostgresStoreWithDB(db, cache), nil
}

// NewPostgresStoreWithDB wraps an existing connection. cache may be nil.
func NewPostgresStoreWithDB(db *sql.DB, cache RedisClient) *PostgresStore {
	return &PostgresStore{db: db, redis: cache, cacheTTL: time.Hour}
}

// Close closes the database connection and the cache client
func (s *PostgresStore) Close() error {
	err := s.db.Close()
	if s.redis != nil {
		if cerr := s.redis.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func cacheKey(collection string, id uuid.UUID) string {
	return fmt.Sprintf("doc:%s:%s", collection, id.String())
}

func (s *PostgresStore) invalidate(ctx context.Context, collection string, id uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, cacheKey(collection, id)).Err(); err != nil {
		log.Warn().Err(err).Str("collection", collection).Str("id", id.String()).Msg("Failed to invalidate cached document")
	}
}

// Get retrieves a document by id, returning nil when it does not exist
func (s *PostgresStore) Get(ctx context.Context, collection string, id uuid.UUID) (*Record, error) {
	key := cacheKey(collection, id)
	if s.redis != nil {
		cached, err := s.redis.Get(ctx, key).Result()
		if err == nil {
			rec := &Record{}
			if err := json.Unmarshal([]byte(cached), rec); err == nil {
				return rec, nil
			}
		}
	}

	query := `
		SELECT id, revision, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = $2
	`
	rec := &Record{}
	err := s.db.QueryRowContext(ctx, query, collection, id).Scan(
		&rec.ID, &rec.Revision, &rec.Body, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying %s document: %w", collection, err)
	}

	if s.redis != nil {
		if data, err := json.Marshal(rec); err == nil {
			s.redis.SetEx(ctx, key, data, s.cacheTTL)
		}
	}
	return rec, nil
}

// Find returns all documents of the collection containing filter
func (s *PostgresStore) Find(ctx context.Context, collection string, filter Filter) ([]Record, error) {
	if filter == nil {
		filter = Filter{}
	}
	filterJSON, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}

	query := `
		SELECT id, revision, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND body @> $2::jsonb
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, collection, string(filterJSON))
	if err != nil {
		return nil, fmt.Errorf("querying %s documents: %w", collection, err)
	}
	return scanRecords(rows)
}

// FindByIDs returns the documents with the given ids; missing ids are skipped
func (s *PostgresStore) FindByIDs(ctx context.Context, collection string, ids []uuid.UUID) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	idStrings := make([]string, len(ids))
	for i, id := range ids {
		idStrings[i] = id.String()
	}

	query := `
		SELECT id, revision, body, created_at, updated_at
		FROM documents
		WHERE collection = $1 AND id = ANY($2::uuid[])
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, collection, pq.Array(idStrings))
	if err != nil {
		return nil, fmt.Errorf("querying %s documents by id: %w", collection, err)
	}
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Revision, &rec.Body, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return records, nil
}

// Insert stores a new document at revision 1
func (s *PostgresStore) Insert(ctx context.Context, collection string, id uuid.UUID, body []byte) (Record, error) {
	now := time.Now().UTC()
	query := `
		INSERT INTO documents (collection, id, revision, body, created_at, updated_at)
		VALUES ($1, $2, 1, $3::jsonb, $4, $4)
	`
	_, err := s.db.ExecContext(ctx, query, collection, id, string(body), now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Record{}, ErrDuplicate
		}
		return Record{}, fmt.Errorf("inserting %s document: %w", collection, err)
	}

	s.invalidate(ctx, collection, id)
	return Record{ID: id, Revision: 1, Body: body, CreatedAt: now, UpdatedAt: now}, nil
}

// Update replaces the document body if its stored revision still equals revision
func (s *PostgresStore) Update(ctx context.Context, collection string, id uuid.UUID, revision int64, body []byte) (Record, error) {
	query := `
		UPDATE documents
		SET body = $4::jsonb, revision = revision + 1, updated_at = $5
		WHERE collection = $1 AND id = $2 AND revision = $3
		RETURNING revision, created_at, updated_at
	`
	rec := Record{ID: id, Body: body}
	err := s.db.QueryRowContext(ctx, query, collection, id, revision, string(body), time.Now().UTC()).Scan(
		&rec.Revision, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Either the document is gone or someone saved it first.
		var current int64
		err = s.db.QueryRowContext(ctx,
			`SELECT revision FROM documents WHERE collection = $1 AND id = $2`, collection, id,
		).Scan(&current)
		if err == sql.ErrNoRows {
			return Record{}, ErrMissing
		}
		if err != nil {
			return Record{}, fmt.Errorf("checking %s document revision: %w", collection, err)
		}
		s.invalidate(ctx, collection, id)
		return Record{}, ErrRevisionConflict
	}
	if err != nil {
		return Record{}, fmt.Errorf("updating %s document: %w", collection, err)
	}

	s.invalidate(ctx, collection, id)
	return rec, nil
}
