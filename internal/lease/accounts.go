package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// GetStudentNotifications returns the student's in-app notifications, newest first
func (s *Service) GetStudentNotifications(ctx context.Context, studentID string) ([]model.StudentNotification, error) {
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, sid)
	if err != nil {
		return nil, err
	}

	out := make([]model.StudentNotification, len(student.Notifications))
	for i, n := range student.Notifications {
		out[len(out)-1-i] = n
	}
	return out, nil
}

// MarkStudentNotificationAsSeen stamps date_seen on a notification. A
// notification that was already seen keeps its first date.
func (s *Service) MarkStudentNotificationAsSeen(ctx context.Context, studentID, notificationID string) (n *model.StudentNotification, err error) {
	defer observe("markStudentNotificationAsSeen", time.Now(), &err)

	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	nid, err := parseID("notification_id", notificationID)
	if err != nil {
		return nil, err
	}

	var missing bool
	student, err := s.updateStudent(ctx, sid, func(st *model.Student) bool {
		missing = true
		for i := range st.Notifications {
			if st.Notifications[i].ID != nid {
				continue
			}
			missing = false
			if st.Notifications[i].DateSeen != nil {
				return false
			}
			seen := s.now()
			st.Notifications[i].DateSeen = &seen
			return true
		}
		return false
	})
	if err != nil {
		return nil, err
	}
	if missing {
		return nil, fmt.Errorf("%w: no notification %s for student %s", ErrNotFound, nid, sid)
	}
	for i := range student.Notifications {
		if student.Notifications[i].ID == nid {
			return &student.Notifications[i], nil
		}
	}
	return nil, fmt.Errorf("%w: no notification %s for student %s", ErrNotFound, nid, sid)
}

// AddPushSubscription registers a web-push endpoint for a student or landlord.
// Registering the same endpoint again replaces its keys.
func (s *Service) AddPushSubscription(ctx context.Context, kind model.UserKind, userID string, sub model.PushSubscription) (err error) {
	defer observe("addPushSubscription", time.Now(), &err)

	uid, err := parseID("user_id", userID)
	if err != nil {
		return err
	}
	if kind != model.UserStudent && kind != model.UserLandlord {
		return fmt.Errorf("%w: user kind must be %q or %q", ErrInvalidArgument, model.UserStudent, model.UserLandlord)
	}
	if sub.Endpoint == "" {
		return fmt.Errorf("%w: subscription endpoint is required", ErrInvalidArgument)
	}

	return s.updateUser(ctx, kind, uid, func(u model.User) bool {
		settings := u.Settings()
		for i, existing := range settings.PushSubscriptions {
			if existing.Endpoint == sub.Endpoint {
				if existing == sub {
					return false
				}
				settings.PushSubscriptions[i] = sub
				return true
			}
		}
		settings.PushSubscriptions = append(settings.PushSubscriptions, sub)
		return true
	})
}

func (s *Service) loadUser(ctx context.Context, kind model.UserKind, id uuid.UUID) (model.User, error) {
	if kind == model.UserLandlord {
		return s.loadLandlord(ctx, id)
	}
	return s.loadStudent(ctx, id)
}

func (s *Service) saveUser(ctx context.Context, u model.User) error {
	switch u := u.(type) {
	case *model.Student:
		return s.store.Students.Save(ctx, u)
	case *model.Landlord:
		return s.store.Landlords.Save(ctx, u)
	default:
		return fmt.Errorf("unsupported user type %T", u)
	}
}

// updateUser is updateStudent for either kind of user.
func (s *Service) updateUser(ctx context.Context, kind model.UserKind, id uuid.UUID, mutate func(model.User) bool) error {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		u, err := s.loadUser(ctx, kind, id)
		if err != nil {
			return err
		}
		if !mutate(u) {
			return nil
		}
		err = s.saveUser(ctx, u)
		if err == nil {
			return nil
		}
		if !errors.Is(err, store.ErrRevisionConflict) {
			return fmt.Errorf("saving %s %s: %w", kind, id, err)
		}
	}
	return fmt.Errorf("%w: %s was modified concurrently, retry", ErrConflict, kind)
}
