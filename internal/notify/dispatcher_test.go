package notify

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/lease-management-service/internal/crypto"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

type recordingSender struct {
	mu     sync.Mutex
	emails []Email
	err    error
}

func (r *recordingSender) Send(_ context.Context, email Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.emails = append(r.emails, email)
	return nil
}

func (r *recordingSender) sent() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Email(nil), r.emails...)
}

func setupStore(t *testing.T) *store.Store {
	t.Helper()
	cipher, err := crypto.NewCipher([]byte("32-byte-key-for-aes-encryption!!"))
	require.NoError(t, err)
	return store.New(store.NewMemoryStore(), cipher)
}

func createStudent(t *testing.T, st *store.Store, email string, emails bool) *model.Student {
	t.Helper()
	student := &model.Student{FirstName: "Sam", LastName: "Lee", Email: email, UserSettings: model.DefaultUserSettings()}
	student.UserSettings.ReceiveEmailNotifications = emails
	require.NoError(t, st.Students.Create(context.Background(), student))
	return student
}

func TestDispatcher_StudentNotificationStoredAndEmailed(t *testing.T) {
	st := setupStore(t)
	sender := &recordingSender{}
	student := createStudent(t, st, "sam@example.edu", true)

	d := NewDispatcher(st, sender, 10)
	d.Notify(context.Background(), Notification{
		RecipientKind: model.UserStudent,
		RecipientID:   student.ID,
		Subject:       "Lease approved",
		Body:          "Your request was approved.",
		Action:        &model.NotificationAction{Text: "View", URL: "https://example.com/lease"},
		EmailTemplate: TemplateNotifications,
	})
	d.Close()

	stored, err := st.Students.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	require.Len(t, stored.Notifications, 1)
	assert.Equal(t, "Lease approved", stored.Notifications[0].Subject)
	assert.NotEqual(t, uuid.Nil, stored.Notifications[0].ID)
	assert.Nil(t, stored.Notifications[0].DateSeen)

	emails := sender.sent()
	require.Len(t, emails, 1)
	assert.Equal(t, "sam@example.edu", emails[0].To)
	assert.Equal(t, TemplateNotifications, emails[0].TemplateID)
	assert.Equal(t, "Lease approved", emails[0].Params["title"])
	assert.Equal(t, "https://example.com/lease", emails[0].Params["action_url"])
}

func TestDispatcher_RespectsEmailSetting(t *testing.T) {
	st := setupStore(t)
	sender := &recordingSender{}
	student := createStudent(t, st, "quiet@example.edu", false)

	d := NewDispatcher(st, sender, 10)
	d.Notify(context.Background(), Notification{
		RecipientKind: model.UserStudent,
		RecipientID:   student.ID,
		Subject:       "Hello",
		EmailTemplate: TemplateNotifications,
	})
	d.Close()

	assert.Empty(t, sender.sent())
	stored, err := st.Students.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Notifications, 1)
}

func TestDispatcher_LandlordGetsEmailOnly(t *testing.T) {
	st := setupStore(t)
	sender := &recordingSender{}
	landlord := &model.Landlord{FirstName: "Lou", LastName: "Park", Email: "lou@example.com", UserSettings: model.DefaultUserSettings()}
	require.NoError(t, st.Landlords.Create(context.Background(), landlord))

	d := NewDispatcher(st, sender, 10)
	d.Notify(context.Background(), Notification{
		RecipientKind: model.UserLandlord,
		RecipientID:   landlord.ID,
		Subject:       "New interest",
		EmailTemplate: TemplateStudentInterestInLease,
	})
	d.Close()

	emails := sender.sent()
	require.Len(t, emails, 1)
	assert.Equal(t, "lou@example.com", emails[0].To)
	assert.Equal(t, TemplateStudentInterestInLease, emails[0].TemplateID)
}

func TestDispatcher_EmailFailureIsSwallowed(t *testing.T) {
	st := setupStore(t)
	sender := &recordingSender{err: errors.New("broker down")}
	student := createStudent(t, st, "sam@example.edu", true)

	d := NewDispatcher(st, sender, 10)
	d.Notify(context.Background(), Notification{
		RecipientKind: model.UserStudent,
		RecipientID:   student.ID,
		Subject:       "Hello",
		EmailTemplate: TemplateNotifications,
	})
	d.Close()

	stored, err := st.Students.GetByID(context.Background(), student.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Notifications, 1)
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	st := setupStore(t)
	d := newDispatcher(st, &recordingSender{}, 1)

	n := Notification{RecipientKind: model.UserStudent, RecipientID: uuid.New(), Subject: "x"}
	d.Notify(context.Background(), n)
	d.Notify(context.Background(), n)
	assert.Len(t, d.queue, 1)
}

func TestDispatcher_NotifyAfterClose(t *testing.T) {
	st := setupStore(t)
	d := NewDispatcher(st, nil, 1)
	d.Close()

	assert.NotPanics(t, func() {
		d.Notify(context.Background(), Notification{RecipientKind: model.UserStudent, RecipientID: uuid.New()})
	})
	d.Close()
}
