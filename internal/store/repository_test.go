package store

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/lease-management-service/internal/crypto"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
)

func newTestStore(t *testing.T) (*Store, *MemoryStore) {
	t.Helper()
	cipher, err := crypto.NewCipher([]byte("32-byte-key-for-aes-encryption!!"))
	require.NoError(t, err)
	docs := NewMemoryStore()
	return New(docs, cipher), docs
}

func TestRepository_StudentEmailSealedAtRest(t *testing.T) {
	s, docs := newTestStore(t)
	ctx := context.Background()

	student := &model.Student{
		FirstName:    "Jamie",
		LastName:     "Rivera",
		Email:        "jamie@example.edu",
		UserSettings: model.DefaultUserSettings(),
	}
	require.NoError(t, s.Students.Create(ctx, student))
	assert.NotEqual(t, uuid.Nil, student.ID)
	assert.Equal(t, int64(1), student.Revision)

	raw, err := docs.Get(ctx, CollectionStudents, student.ID)
	require.NoError(t, err)
	assert.NotContains(t, string(raw.Body), "jamie@example.edu")

	fetched, err := s.Students.GetByID(ctx, student.ID)
	require.NoError(t, err)
	require.NotNil(t, fetched)
	assert.Equal(t, "jamie@example.edu", fetched.Email)
	assert.Equal(t, "Jamie", fetched.FirstName)
	assert.True(t, fetched.UserSettings.ReceiveEmailNotifications)
}

func TestRepository_SaveDetectsStaleCopy(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	lease := model.NewEmptyLease(uuid.New(), 1)
	require.NoError(t, s.Leases.Create(ctx, lease))

	first, err := s.Leases.GetByID(ctx, lease.ID)
	require.NoError(t, err)
	second, err := s.Leases.GetByID(ctx, lease.ID)
	require.NoError(t, err)

	first.PricePerMonth = 700
	require.NoError(t, s.Leases.Save(ctx, first))
	assert.Equal(t, int64(2), first.Revision)

	before := testutil.ToFloat64(monitoring.RevisionConflicts.WithLabelValues(CollectionLeases))
	second.PricePerMonth = 900
	err = s.Leases.Save(ctx, second)
	assert.ErrorIs(t, err, ErrRevisionConflict)
	assert.Equal(t, before+1, testutil.ToFloat64(monitoring.RevisionConflicts.WithLabelValues(CollectionLeases)))

	stored, err := s.Leases.GetByID(ctx, lease.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(700), stored.PricePerMonth)
}

func TestRepository_FindByFilter(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	ownership := uuid.New()

	for i := 1; i <= 3; i++ {
		require.NoError(t, s.Leases.Create(ctx, model.NewEmptyLease(ownership, i)))
	}
	require.NoError(t, s.Leases.Create(ctx, model.NewEmptyLease(uuid.New(), 1)))

	leases, err := s.Leases.Find(ctx, Filter{"ownership_id": ownership})
	require.NoError(t, err)
	require.Len(t, leases, 3)
	for i, l := range leases {
		assert.Equal(t, i+1, l.RoomIndex)
		assert.Equal(t, ownership, l.OwnershipID)
	}

	missing, err := s.Leases.GetByID(ctx, uuid.New())
	assert.NoError(t, err)
	assert.Nil(t, missing)
}
