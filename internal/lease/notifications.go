package lease

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/notify"
)

func (s *Service) leaseURL(leaseID uuid.UUID) string {
	return fmt.Sprintf("%s/leases/%s", s.frontendURL, leaseID)
}

func toStudent(id uuid.UUID, subject, body string, action *model.NotificationAction) notify.Notification {
	return notify.Notification{
		RecipientKind: model.UserStudent,
		RecipientID:   id,
		Subject:       subject,
		Body:          body,
		Action:        action,
		EmailTemplate: notify.TemplateNotifications,
	}
}

func (s *Service) interestReceivedNotification(landlordID uuid.UUID, student *model.Student, lease *model.Lease, room string) notify.Notification {
	return notify.Notification{
		RecipientKind: model.UserLandlord,
		RecipientID:   landlordID,
		Subject:       "A student is interested in your property",
		Body:          fmt.Sprintf("%s would like to lease %s.", student.DisplayName(), room),
		Action:        &model.NotificationAction{Text: "Review interest", URL: s.leaseURL(lease.ID)},
		EmailTemplate: notify.TemplateStudentInterestInLease,
	}
}

func (s *Service) interestDecisionNotification(studentID uuid.UUID, lease *model.Lease, room string, approved bool) notify.Notification {
	if approved {
		return toStudent(studentID,
			"Your lease request was approved",
			fmt.Sprintf("The landlord approved your request for %s. Accept the lease agreement to secure it.", room),
			&model.NotificationAction{Text: "View lease", URL: s.leaseURL(lease.ID)},
		)
	}
	return toStudent(studentID,
		"Your lease request was declined",
		fmt.Sprintf("The landlord declined your request for %s.", room),
		nil,
	)
}

func (s *Service) leaseAcceptedNotification(studentID uuid.UUID, lease *model.Lease, room string, h *model.LeaseHistory) notify.Notification {
	return toStudent(studentID,
		"Lease accepted",
		fmt.Sprintf("You accepted the lease for %s from %s to %s at $%.2f per month.",
			room, h.StartDate.Format("Jan 2, 2006"), h.EndDate.Format("Jan 2, 2006"), h.Price),
		&model.NotificationAction{Text: "View lease", URL: s.leaseURL(lease.ID)},
	)
}

func (s *Service) roomTakenNotification(studentID uuid.UUID, room string) notify.Notification {
	return toStudent(studentID,
		"Room no longer available",
		fmt.Sprintf("%s has been leased to another student.", room),
		nil,
	)
}

func (s *Service) leaseDeclinedNotification(studentID uuid.UUID, room string) notify.Notification {
	return toStudent(studentID,
		"Lease declined",
		fmt.Sprintf("You declined the lease for %s.", room),
		nil,
	)
}

func (s *Service) leaseTakenNotification(landlordID uuid.UUID, student *model.Student, lease *model.Lease, room string) notify.Notification {
	return notify.Notification{
		RecipientKind: model.UserLandlord,
		RecipientID:   landlordID,
		Subject:       "Lease agreement accepted",
		Body:          fmt.Sprintf("%s accepted the lease agreement for %s.", student.DisplayName(), room),
		Action:        &model.NotificationAction{Text: "View lease", URL: s.leaseURL(lease.ID)},
		EmailTemplate: notify.TemplateNotifications,
	}
}
