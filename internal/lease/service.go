package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
	"github.com/teresa-solution/lease-management-service/internal/notify"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// Service runs the lease lifecycle against the document store.
type Service struct {
	store       *store.Store
	notifier    notify.Notifier
	frontendURL string
	now         func() time.Time
}

// NewService creates a lease Service
func NewService(st *store.Store, notifier notify.Notifier, frontendURL string) *Service {
	return &Service{
		store:       st,
		notifier:    notifier,
		frontendURL: frontendURL,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// observe records the outcome of one operation; errp is read when the
// deferred call runs.
func observe(operation string, start time.Time, errp *error) {
	outcome := "success"
	if *errp != nil {
		outcome = Kind(*errp)
	}
	monitoring.ObserveTransition(operation, start, outcome)
}

func (s *Service) notify(ctx context.Context, n notify.Notification) {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(ctx, n)
}

func (s *Service) loadLease(ctx context.Context, id uuid.UUID) (*model.Lease, error) {
	lease, err := s.store.Leases.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading lease %s: %w", id, err)
	}
	if lease == nil {
		return nil, fmt.Errorf("%w: no lease found with id %s", ErrNotFound, id)
	}
	return lease, nil
}

func (s *Service) loadStudent(ctx context.Context, id uuid.UUID) (*model.Student, error) {
	student, err := s.store.Students.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading student %s: %w", id, err)
	}
	if student == nil {
		return nil, fmt.Errorf("%w: no student found with id %s", ErrNotFound, id)
	}
	return student, nil
}

func (s *Service) loadLandlord(ctx context.Context, id uuid.UUID) (*model.Landlord, error) {
	landlord, err := s.store.Landlords.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading landlord %s: %w", id, err)
	}
	if landlord == nil {
		return nil, fmt.Errorf("%w: no landlord found with id %s", ErrNotFound, id)
	}
	return landlord, nil
}

func (s *Service) loadProperty(ctx context.Context, id uuid.UUID) (*model.Property, error) {
	property, err := s.store.Properties.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading property %s: %w", id, err)
	}
	if property == nil {
		return nil, fmt.Errorf("%w: no property found with id %s", ErrNotFound, id)
	}
	return property, nil
}

func (s *Service) loadOwnership(ctx context.Context, id uuid.UUID) (*model.Ownership, error) {
	ownership, err := s.store.Ownerships.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading ownership %s: %w", id, err)
	}
	if ownership == nil {
		return nil, fmt.Errorf("%w: no ownership found with id %s", ErrNotFound, id)
	}
	return ownership, nil
}

func (s *Service) leasesForOwnership(ctx context.Context, ownershipID uuid.UUID) ([]*model.Lease, error) {
	leases, err := s.store.Leases.Find(ctx, store.Filter{"ownership_id": ownershipID})
	if err != nil {
		return nil, fmt.Errorf("finding leases of ownership %s: %w", ownershipID, err)
	}
	sortRooms(leases)
	return leases, nil
}

// leasesOccupiedBy returns every lease whose history carries the student.
func (s *Service) leasesOccupiedBy(ctx context.Context, studentID uuid.UUID) ([]*model.Lease, error) {
	filter := store.Filter{
		"lease_history": []any{map[string]any{"student_id": studentID}},
	}
	leases, err := s.store.Leases.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("finding leases occupied by student %s: %w", studentID, err)
	}
	return leases, nil
}

// saveLease writes the lease back; a concurrent writer turns into ErrConflict.
func (s *Service) saveLease(ctx context.Context, lease *model.Lease) error {
	err := s.store.Leases.Save(ctx, lease)
	switch {
	case errors.Is(err, store.ErrRevisionConflict):
		return fmt.Errorf("%w: lease was modified concurrently, retry", ErrConflict)
	case errors.Is(err, store.ErrMissing):
		return fmt.Errorf("%w: no lease found with id %s", ErrNotFound, lease.ID)
	case err != nil:
		return fmt.Errorf("saving lease %s: %w", lease.ID, err)
	}
	return nil
}

// updateStudent applies mutate to a fresh copy of the student and saves it,
// retrying when another writer saved the student in between.
func (s *Service) updateStudent(ctx context.Context, id uuid.UUID, mutate func(*model.Student) bool) (*model.Student, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		student, err := s.loadStudent(ctx, id)
		if err != nil {
			return nil, err
		}
		if !mutate(student) {
			return student, nil
		}
		err = s.store.Students.Save(ctx, student)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, store.ErrRevisionConflict) {
			return nil, fmt.Errorf("saving student %s: %w", id, err)
		}
	}
	return nil, fmt.Errorf("%w: student was modified concurrently, retry", ErrConflict)
}
