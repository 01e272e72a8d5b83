package store

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONContains(t *testing.T) {
	doc := decodeJSON(t, `{
		"ownership_id": "o1",
		"active": true,
		"lease_history": [
			{"student_id": "s1", "price": 500},
			{"student_id": "s2", "price": 700}
		]
	}`)

	tests := []struct {
		name   string
		filter string
		want   bool
	}{
		{"empty filter", `{}`, true},
		{"scalar match", `{"ownership_id": "o1"}`, true},
		{"scalar mismatch", `{"ownership_id": "o2"}`, false},
		{"bool match", `{"active": true}`, true},
		{"missing key", `{"occupant_id": "s1"}`, false},
		{"array element", `{"lease_history": [{"student_id": "s2"}]}`, true},
		{"array element mismatch", `{"lease_history": [{"student_id": "s3"}]}`, false},
		{"array element partial", `{"lease_history": [{"student_id": "s1", "price": 700}]}`, false},
		{"several keys", `{"ownership_id": "o1", "lease_history": [{"price": 500}]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jsonContains(doc, decodeJSON(t, tt.filter)))
		})
	}
}

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

func TestMemoryStore_FindInInsertionOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	ownership := uuid.New()

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id := uuid.New()
		ids = append(ids, id)
		body, _ := json.Marshal(map[string]any{"ownership_id": ownership, "room_index": i})
		_, err := s.Insert(ctx, CollectionLeases, id, body)
		require.NoError(t, err)
	}
	_, err := s.Insert(ctx, CollectionLeases, uuid.New(), []byte(`{"ownership_id":"other"}`))
	require.NoError(t, err)

	records, err := s.Find(ctx, CollectionLeases, Filter{"ownership_id": ownership})
	require.NoError(t, err)
	require.Len(t, records, 5)
	for i, rec := range records {
		assert.Equal(t, ids[i], rec.ID)
	}

	all, err := s.Find(ctx, CollectionLeases, nil)
	require.NoError(t, err)
	assert.Len(t, all, 6)

	byID, err := s.FindByIDs(ctx, CollectionLeases, []uuid.UUID{ids[3], ids[1], uuid.New()})
	require.NoError(t, err)
	require.Len(t, byID, 2)
	assert.Equal(t, ids[1], byID[0].ID)
	assert.Equal(t, ids[3], byID[1].ID)
}

func TestMemoryStore_InsertAndUpdate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id := uuid.New()

	rec, err := s.Insert(ctx, CollectionStudents, id, []byte(`{"first_name":"Ana"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(1), rec.Revision)

	_, err = s.Insert(ctx, CollectionStudents, id, []byte(`{}`))
	assert.ErrorIs(t, err, ErrDuplicate)

	rec, err = s.Update(ctx, CollectionStudents, id, 1, []byte(`{"first_name":"Ana Maria"}`))
	require.NoError(t, err)
	assert.Equal(t, int64(2), rec.Revision)

	_, err = s.Update(ctx, CollectionStudents, id, 1, []byte(`{"first_name":"stale"}`))
	assert.ErrorIs(t, err, ErrRevisionConflict)

	_, err = s.Update(ctx, CollectionStudents, uuid.New(), 1, []byte(`{}`))
	assert.ErrorIs(t, err, ErrMissing)

	got, err := s.Get(ctx, CollectionStudents, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"first_name":"Ana Maria"}`, string(got.Body))

	missing, err := s.Get(ctx, CollectionStudents, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	id := uuid.New()
	_, err := s.Insert(ctx, CollectionLeases, id, []byte(`{"a":1}`))
	require.NoError(t, err)

	got, err := s.Get(ctx, CollectionLeases, id)
	require.NoError(t, err)
	got.Body[1] = 'x'

	again, err := s.Get(ctx, CollectionLeases, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again.Body))
}
