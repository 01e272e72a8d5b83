package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memoryEntry struct {
	seq    int64
	record Record
}

// MemoryStore is an in-process DocumentStore with the same containment and
// revision semantics as PostgresStore. Used for tests and local runs.
type MemoryStore struct {
	mu          sync.RWMutex
	seq         int64
	collections map[string]map[uuid.UUID]*memoryEntry
	now         func() time.Time
}

// NewMemoryStore creates an empty in-memory document store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[uuid.UUID]*memoryEntry),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Close() error { return nil }

func copyRecord(r Record) Record {
	body := make([]byte, len(r.Body))
	copy(body, r.Body)
	r.Body = body
	return r
}

func (s *MemoryStore) Get(_ context.Context, collection string, id uuid.UUID) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.collections[collection][id]
	if !ok {
		return nil, nil
	}
	rec := copyRecord(entry.record)
	return &rec, nil
}

func (s *MemoryStore) sorted(collection string, keep func(*memoryEntry) (bool, error)) ([]Record, error) {
	var entries []*memoryEntry
	for _, e := range s.collections[collection] {
		ok, err := keep(e)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, e)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = copyRecord(e.record)
	}
	return records, nil
}

func (s *MemoryStore) Find(_ context.Context, collection string, filter Filter) ([]Record, error) {
	// Round-trip the filter so it compares against decoded JSON values.
	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("encoding filter: %w", err)
	}
	var want any
	if err := json.Unmarshal(raw, &want); err != nil {
		return nil, fmt.Errorf("decoding filter: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(collection, func(e *memoryEntry) (bool, error) {
		if want == nil {
			return true, nil
		}
		var doc any
		if err := json.Unmarshal(e.record.Body, &doc); err != nil {
			return false, fmt.Errorf("decoding %s document %s: %w", collection, e.record.ID, err)
		}
		return jsonContains(doc, want), nil
	})
}

func (s *MemoryStore) FindByIDs(_ context.Context, collection string, ids []uuid.UUID) ([]Record, error) {
	wanted := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.sorted(collection, func(e *memoryEntry) (bool, error) {
		return wanted[e.record.ID], nil
	})
}

func (s *MemoryStore) Insert(_ context.Context, collection string, id uuid.UUID, body []byte) (Record, error) {
	if !json.Valid(body) {
		return Record{}, fmt.Errorf("inserting %s document: invalid json body", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs, ok := s.collections[collection]
	if !ok {
		docs = make(map[uuid.UUID]*memoryEntry)
		s.collections[collection] = docs
	}
	if _, exists := docs[id]; exists {
		return Record{}, ErrDuplicate
	}

	s.seq++
	now := s.now()
	rec := Record{ID: id, Revision: 1, Body: body, CreatedAt: now, UpdatedAt: now}
	docs[id] = &memoryEntry{seq: s.seq, record: copyRecord(rec)}
	return rec, nil
}

func (s *MemoryStore) Update(_ context.Context, collection string, id uuid.UUID, revision int64, body []byte) (Record, error) {
	if !json.Valid(body) {
		return Record{}, fmt.Errorf("updating %s document: invalid json body", collection)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.collections[collection][id]
	if !ok {
		return Record{}, ErrMissing
	}
	if entry.record.Revision != revision {
		return Record{}, ErrRevisionConflict
	}

	entry.record.Revision++
	entry.record.Body = append([]byte(nil), body...)
	entry.record.UpdatedAt = s.now()
	return copyRecord(entry.record), nil
}

// jsonContains mirrors Postgres jsonb @> for decoded JSON values.
func jsonContains(doc, want any) bool {
	switch w := want.(type) {
	case map[string]any:
		d, ok := doc.(map[string]any)
		if !ok {
			return false
		}
		for k, wv := range w {
			dv, ok := d[k]
			if !ok || !jsonContains(dv, wv) {
				return false
			}
		}
		return true
	case []any:
		d, ok := doc.([]any)
		if !ok {
			return false
		}
		for _, wv := range w {
			found := false
			for _, dv := range d {
				if jsonContains(dv, wv) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true
	default:
		return doc == want
	}
}
