package lease

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/lease-management-service/internal/crypto"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/notify"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) to(id uuid.UUID) []notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notify.Notification
	for _, n := range r.sent {
		if n.RecipientID == id {
			out = append(out, n)
		}
	}
	return out
}

func (r *recordingNotifier) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = nil
}

// racingStore lets another writer save a document right before the next
// update of the armed collection.
type racingStore struct {
	*store.MemoryStore
	armed      atomic.Bool
	collection string
}

func (r *racingStore) Update(ctx context.Context, collection string, id uuid.UUID, revision int64, body []byte) (store.Record, error) {
	if collection == r.collection && r.armed.CompareAndSwap(true, false) {
		rec, err := r.MemoryStore.Get(ctx, collection, id)
		if err == nil && rec != nil {
			_, _ = r.MemoryStore.Update(ctx, collection, id, rec.Revision, rec.Body)
		}
	}
	return r.MemoryStore.Update(ctx, collection, id, revision, body)
}

// hookStore runs a function once, right before the next update of the
// armed collection is written.
type hookStore struct {
	*store.MemoryStore
	collection string
	hook       atomic.Pointer[func()]
}

func (h *hookStore) arm(fn func()) {
	h.hook.Store(&fn)
}

func (h *hookStore) Update(ctx context.Context, collection string, id uuid.UUID, revision int64, body []byte) (store.Record, error) {
	if collection == h.collection {
		if fn := h.hook.Swap(nil); fn != nil {
			(*fn)()
		}
	}
	return h.MemoryStore.Update(ctx, collection, id, revision, body)
}

// failingStore rejects one update of the collection with a revision conflict.
type failingStore struct {
	*store.MemoryStore
	collection string
	updates    atomic.Int32
	failAt     atomic.Int32
}

// failNth makes the nth update from now fail.
func (f *failingStore) failNth(n int32) {
	f.failAt.Store(f.updates.Load() + n)
}

func (f *failingStore) Update(ctx context.Context, collection string, id uuid.UUID, revision int64, body []byte) (store.Record, error) {
	if collection == f.collection && f.updates.Add(1) == f.failAt.Load() {
		return store.Record{}, store.ErrRevisionConflict
	}
	return f.MemoryStore.Update(ctx, collection, id, revision, body)
}

type fixture struct {
	ctx       context.Context
	svc       *Service
	st        *store.Store
	notifier  *recordingNotifier
	landlord  *model.Landlord
	property  *model.Property
	ownership *model.Ownership
	document  *model.LeaseDocument
	now       time.Time
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, store.NewMemoryStore())
}

func newFixtureWith(t *testing.T, docs store.DocumentStore) *fixture {
	t.Helper()
	cipher, err := crypto.NewCipher([]byte("32-byte-key-for-aes-encryption!!"))
	require.NoError(t, err)

	f := &fixture{
		ctx:      context.Background(),
		st:       store.New(docs, cipher),
		notifier: &recordingNotifier{},
		now:      date(2024, 3, 1),
	}
	f.svc = NewService(f.st, f.notifier, "https://app.example.com")
	f.svc.now = func() time.Time { return f.now }

	f.landlord = &model.Landlord{FirstName: "Lou", LastName: "Park", Email: "lou@example.com", UserSettings: model.DefaultUserSettings()}
	require.NoError(t, f.st.Landlords.Create(f.ctx, f.landlord))
	f.property, f.ownership = f.newProperty(t, "12 Elm St", f.landlord.ID)
	f.document = &model.LeaseDocument{
		LeaseName:  "Standard lease",
		LandlordID: f.landlord.ID,
		Documents:  []model.S3Document{{MimeType: "application/pdf", S3Key: "leases/standard.pdf"}},
	}
	require.NoError(t, f.st.LeaseDocuments.Create(f.ctx, f.document))
	return f
}

func (f *fixture) newProperty(t *testing.T, address string, landlordID uuid.UUID) (*model.Property, *model.Ownership) {
	t.Helper()
	property := &model.Property{AddressLine: address, City: "Troy", State: "NY", Zip: "12180"}
	require.NoError(t, f.st.Properties.Create(f.ctx, property))
	ownership := &model.Ownership{PropertyID: property.ID, LandlordID: landlordID, Status: model.OwnershipConfirmed}
	require.NoError(t, f.st.Ownerships.Create(f.ctx, ownership))
	return property, ownership
}

func (f *fixture) newStudent(t *testing.T, first string) *model.Student {
	t.Helper()
	student := &model.Student{
		FirstName:      first,
		LastName:       "Student",
		Email:          first + "@example.edu",
		AcceptedLeases: []model.AcceptedLease{},
		Notifications:  []model.StudentNotification{},
		UserSettings:   model.DefaultUserSettings(),
	}
	require.NoError(t, f.st.Students.Create(f.ctx, student))
	return student
}

func (f *fixture) newLease(t *testing.T, ownershipID uuid.UUID) *model.Lease {
	t.Helper()
	lease, err := f.svc.CreateEmptyLease(f.ctx, ownershipID.String())
	require.NoError(t, err)
	return lease
}

func (f *fixture) listedLease(t *testing.T, price float64, start, end time.Time) *model.Lease {
	t.Helper()
	lease := f.newLease(t, f.ownership.ID)
	lease, err := f.svc.ActivateLease(f.ctx, ActivateParams{
		LeaseID:         lease.ID.String(),
		LeaseDocumentID: f.document.ID.String(),
		Price:           price,
		Start:           start,
		End:             end,
	})
	require.NoError(t, err)
	return lease
}

func (f *fixture) interested(t *testing.T, lease *model.Lease, student *model.Student) {
	t.Helper()
	_, err := f.svc.ExpressInterest(f.ctx, lease.ID.String(), student.ID.String())
	require.NoError(t, err)
}

func (f *fixture) approved(t *testing.T, lease *model.Lease, student *model.Student) {
	t.Helper()
	f.interested(t, lease, student)
	_, err := f.svc.AcceptOrDeclineInterest(f.ctx, lease.ID.String(), student.ID.String(), ActionAccept)
	require.NoError(t, err)
}

func (f *fixture) addHistory(t *testing.T, leaseID uuid.UUID, h model.LeaseHistory) model.LeaseHistory {
	t.Helper()
	lease, err := f.st.Leases.GetByID(f.ctx, leaseID)
	require.NoError(t, err)
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if h.PropertyImages == nil {
		h.PropertyImages = []model.PropertyImage{}
	}
	lease.LeaseHistory = append(lease.LeaseHistory, h)
	require.NoError(t, f.st.Leases.Save(f.ctx, lease))
	return h
}

func (f *fixture) lease(t *testing.T, id uuid.UUID) *model.Lease {
	t.Helper()
	lease, err := f.st.Leases.GetByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, lease)
	return lease
}

func (f *fixture) student(t *testing.T, id uuid.UUID) *model.Student {
	t.Helper()
	student, err := f.st.Students.GetByID(f.ctx, id)
	require.NoError(t, err)
	require.NotNil(t, student)
	return student
}
