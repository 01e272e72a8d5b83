package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/model"
)

// Email templates known to the delivery service.
const (
	TemplateNotifications          = "notifications"
	TemplateStudentInterestInLease = "student_interest_in_lease"
)

// Notification is a message for one student or landlord.
type Notification struct {
	RecipientKind model.UserKind
	RecipientID   uuid.UUID
	Subject       string
	Body          string
	Action        *model.NotificationAction
	// EmailTemplate selects the email to send alongside; empty sends none.
	EmailTemplate string
}

// Notifier accepts notifications for delivery. Notify never blocks on delivery
// and never reports delivery failures to the caller.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Email is one templated email job.
type Email struct {
	To         string            `json:"to"`
	TemplateID string            `json:"template_id"`
	Params     map[string]string `json:"template_params"`
}

// EmailSender hands an email job to the delivery backend.
type EmailSender interface {
	Send(ctx context.Context, email Email) error
}

func emailFor(to string, n Notification) Email {
	params := map[string]string{
		"title": n.Subject,
		"body":  n.Body,
	}
	if n.Action != nil {
		if n.Action.Text != "" {
			params["action_text"] = n.Action.Text
		}
		if n.Action.URL != "" {
			params["action_url"] = n.Action.URL
		}
	}
	return Email{To: to, TemplateID: n.EmailTemplate, Params: params}
}
