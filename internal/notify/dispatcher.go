package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// DefaultBuffer is the queue size used when none is configured.
const DefaultBuffer = 100

const appendAttempts = 3

// Dispatcher delivers notifications on a background worker fed by a bounded queue.
// Student recipients get an in-app notification; email follows user settings.
type Dispatcher struct {
	store *store.Store
	email EmailSender
	queue chan Notification
	now   func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher and starts its worker
func NewDispatcher(st *store.Store, email EmailSender, buffer int) *Dispatcher {
	d := newDispatcher(st, email, buffer)
	d.wg.Add(1)
	go d.startWorker()
	return d
}

func newDispatcher(st *store.Store, email EmailSender, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Dispatcher{
		store: st,
		email: email,
		queue: make(chan Notification, buffer),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Notify queues n for delivery. A full queue drops n.
func (d *Dispatcher) Notify(_ context.Context, n Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		log.Warn().Str("recipient_id", n.RecipientID.String()).Msg("Dispatcher closed, dropping notification")
		return
	}
	select {
	case d.queue <- n:
	default:
		monitoring.NotificationsDispatched.WithLabelValues("queue", "dropped").Inc()
		log.Warn().
			Str("recipient_id", n.RecipientID.String()).
			Str("subject", n.Subject).
			Msg("Notification queue full, dropping notification")
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// startWorker runs the background delivery loop
func (d *Dispatcher) startWorker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(context.Background(), n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	var user model.User

	switch n.RecipientKind {
	case model.UserStudent:
		student, err := d.addStudentNotification(ctx, n)
		if err != nil {
			monitoring.NotificationsDispatched.WithLabelValues("in_app", "failed").Inc()
			log.Error().Err(err).Str("student_id", n.RecipientID.String()).Msg("Failed to store student notification")
			return
		}
		if student == nil {
			log.Warn().Str("student_id", n.RecipientID.String()).Msg("Notification recipient not found")
			return
		}
		monitoring.NotificationsDispatched.WithLabelValues("in_app", "ok").Inc()
		user = student
	case model.UserLandlord:
		landlord, err := d.store.Landlords.GetByID(ctx, n.RecipientID)
		if err != nil {
			log.Error().Err(err).Str("landlord_id", n.RecipientID.String()).Msg("Failed to load notification recipient")
			return
		}
		if landlord == nil {
			log.Warn().Str("landlord_id", n.RecipientID.String()).Msg("Notification recipient not found")
			return
		}
		user = landlord
	default:
		log.Error().Str("kind", string(n.RecipientKind)).Msg("Unknown notification recipient kind")
		return
	}

	d.sendEmail(ctx, user, n)
}

// addStudentNotification appends n to the student's in-app notifications,
// reloading the student when another writer saved it first.
func (d *Dispatcher) addStudentNotification(ctx context.Context, n Notification) (*model.Student, error) {
	for attempt := 0; attempt < appendAttempts; attempt++ {
		student, err := d.store.Students.GetByID(ctx, n.RecipientID)
		if err != nil || student == nil {
			return nil, err
		}

		student.Notifications = append(student.Notifications, model.StudentNotification{
			ID:          uuid.New(),
			Subject:     n.Subject,
			Body:        n.Body,
			Action:      n.Action,
			DateCreated: d.now(),
		})
		err = d.store.Students.Save(ctx, student)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, store.ErrRevisionConflict) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("appending notification to student %s: %w", n.RecipientID, store.ErrRevisionConflict)
}

func (d *Dispatcher) sendEmail(ctx context.Context, user model.User, n Notification) {
	if n.EmailTemplate == "" || d.email == nil {
		return
	}
	if !user.Settings().ReceiveEmailNotifications || user.ContactEmail() == "" {
		monitoring.NotificationsDispatched.WithLabelValues("email", "skipped").Inc()
		return
	}

	if err := d.email.Send(ctx, emailFor(user.ContactEmail(), n)); err != nil {
		monitoring.NotificationsDispatched.WithLabelValues("email", "failed").Inc()
		log.Error().Err(err).
			Str("user_id", user.DocumentID().String()).
			Str("template_id", n.EmailTemplate).
			Msg("Failed to send notification email")
		return
	}
	monitoring.NotificationsDispatched.WithLabelValues("email", "ok").Inc()
}
