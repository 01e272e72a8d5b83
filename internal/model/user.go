package model

import (
	"time"

	"github.com/google/uuid"
)

// UserKind tags the two user variants.
type UserKind string

const (
	UserStudent  UserKind = "student"
	UserLandlord UserKind = "landlord"
)

// PushSubscriptionKeys are the browser push encryption keys.
type PushSubscriptionKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

// PushSubscription is a web-push endpoint registered by a user.
type PushSubscription struct {
	Endpoint string               `json:"endpoint"`
	Keys     PushSubscriptionKeys `json:"keys"`
}

// UserSettings are the notification preferences shared by students and landlords.
type UserSettings struct {
	ReceiveEmailNotifications bool               `json:"receive_email_notifications"`
	PushSubscriptions         []PushSubscription `json:"push_subscriptions"`
}

// DefaultUserSettings returns the settings new users start with.
func DefaultUserSettings() UserSettings {
	return UserSettings{ReceiveEmailNotifications: true, PushSubscriptions: []PushSubscription{}}
}

// User is the capability shared by Student and Landlord.
type User interface {
	Document
	Kind() UserKind
	Settings() *UserSettings
	ContactEmail() string
	DisplayName() string
}

// AcceptedLease points at the history entry of a student's booked term.
type AcceptedLease struct {
	LeaseID   uuid.UUID `json:"lease_id"`
	HistoryID uuid.UUID `json:"history_id"`
}

// NotificationAction is an optional call to action attached to a notification.
type NotificationAction struct {
	Text string `json:"action_text"`
	URL  string `json:"action_url"`
}

// StudentNotification is an in-app notification stored on the student.
type StudentNotification struct {
	ID          uuid.UUID           `json:"_id"`
	Subject     string              `json:"subject"`
	Body        string              `json:"body"`
	Action      *NotificationAction `json:"action,omitempty"`
	DateCreated time.Time           `json:"date_created"`
	DateSeen    *time.Time          `json:"date_seen,omitempty"`
}

// Student represents a student user.
type Student struct {
	Base
	FirstName      string                `json:"first_name"`
	LastName       string                `json:"last_name"`
	Email          string                `json:"-"` // Plaintext (transient, sealed before storage)
	EncryptedEmail []byte                `json:"encrypted_email,omitempty"`
	EmailIV        []byte                `json:"email_iv,omitempty"`
	PhoneNumber    string                `json:"phone_number,omitempty"`
	InstitutionID  *uuid.UUID            `json:"institution_id,omitempty"`
	AcceptedLeases []AcceptedLease       `json:"accepted_leases"`
	Notifications  []StudentNotification `json:"notifications"`
	UserSettings   UserSettings          `json:"user_settings"`
}

func (s *Student) Kind() UserKind          { return UserStudent }
func (s *Student) Settings() *UserSettings { return &s.UserSettings }
func (s *Student) ContactEmail() string    { return s.Email }
func (s *Student) DisplayName() string     { return s.FirstName + " " + s.LastName }

// HasAcceptedLease reports whether the pair is already indexed on the student.
func (s *Student) HasAcceptedLease(ref AcceptedLease) bool {
	for _, al := range s.AcceptedLeases {
		if al == ref {
			return true
		}
	}
	return false
}

// Landlord represents a property owner.
type Landlord struct {
	Base
	FirstName      string       `json:"first_name"`
	LastName       string       `json:"last_name"`
	Email          string       `json:"-"`
	EncryptedEmail []byte       `json:"encrypted_email,omitempty"`
	EmailIV        []byte       `json:"email_iv,omitempty"`
	PhoneNumber    string       `json:"phone_number,omitempty"`
	Onboarded      bool         `json:"onboarded"`
	UserSettings   UserSettings `json:"user_settings"`
}

func (l *Landlord) Kind() UserKind          { return UserLandlord }
func (l *Landlord) Settings() *UserSettings { return &l.UserSettings }
func (l *Landlord) ContactEmail() string    { return l.Email }
func (l *Landlord) DisplayName() string     { return l.FirstName + " " + l.LastName }
