package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/interval"
)

// WithdrawnPrice marks a lease taken off the market because of an external occupant.
const WithdrawnPrice = -1

// InterestStatus is the landlord's decision on a student's interest.
type InterestStatus string

const (
	InterestPending  InterestStatus = "pending"
	InterestApproved InterestStatus = "approved"
	InterestDeclined InterestStatus = "declined"
)

// LeaseState is derived from the stored lease fields and the current time.
type LeaseState string

const (
	StateUnlisted          LeaseState = "unlisted"
	StateListed            LeaseState = "listed"
	StatePendingAcceptance LeaseState = "pending_acceptance"
	StateOccupied          LeaseState = "occupied"
)

// LeasePriority is a paid, time-boxed promotion of a lease in search results.
type LeasePriority struct {
	Level     int       `json:"level"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

// ActiveAt reports whether the promotion window covers t.
func (p *LeasePriority) ActiveAt(t time.Time) bool {
	if p == nil {
		return false
	}
	return interval.New(p.StartDate, p.EndDate).Contains(t)
}

// StudentInterest records a student asking to occupy a listed lease.
type StudentInterest struct {
	StudentID uuid.UUID      `json:"student_id"`
	Date      time.Time      `json:"date"`
	Status    InterestStatus `json:"status"`
}

// DeclinedStudent records a student who withdrew after being approved.
type DeclinedStudent struct {
	StudentID uuid.UUID `json:"student_id"`
	Date      time.Time `json:"date"`
}

// ReviewAndResponse is a student review with an optional landlord response.
type ReviewAndResponse struct {
	Rating   float64 `json:"rating"`
	Review   string  `json:"review"`
	Response string  `json:"response,omitempty"`
}

// Responded reports whether the landlord has answered the review.
func (r *ReviewAndResponse) Responded() bool {
	return r != nil && r.Response != ""
}

// PropertyImage is an uploaded image reference.
type PropertyImage struct {
	S3Key        string    `json:"s3_key"`
	DateUploaded time.Time `json:"date_uploaded"`
}

// LeaseHistory is one occupancy term of a student on a lease.
type LeaseHistory struct {
	ID               uuid.UUID          `json:"_id"`
	Price            float64            `json:"price"`
	StudentID        uuid.UUID          `json:"student_id"`
	StartDate        time.Time          `json:"start_date"`
	EndDate          time.Time          `json:"end_date"`
	ReviewOfProperty *ReviewAndResponse `json:"review_of_property,omitempty"`
	ReviewOfLandlord *ReviewAndResponse `json:"review_of_landlord,omitempty"`
	PropertyImages   []PropertyImage    `json:"property_images"`
}

// Term returns the occupancy window of the history entry.
func (h *LeaseHistory) Term() interval.Interval {
	return interval.New(h.StartDate, h.EndDate)
}

// Lease is one rentable room within an ownership.
type Lease struct {
	Base
	OwnershipID          uuid.UUID         `json:"ownership_id"`
	RoomIndex            int               `json:"room_index"`
	Active               bool              `json:"active"`
	PricePerMonth        float64           `json:"price_per_month"`
	ExternalOccupant     bool              `json:"external_occupant"`
	OccupantID           *uuid.UUID        `json:"occupant_id,omitempty"`
	AvailabilityStart    *time.Time        `json:"lease_availability_start_date,omitempty"`
	AvailabilityEnd      *time.Time        `json:"lease_availability_end_date,omitempty"`
	Priority             *LeasePriority    `json:"priority,omitempty"`
	LeaseDocumentID      *uuid.UUID        `json:"lease_document_id,omitempty"`
	StudentInterests     []StudentInterest `json:"student_interests"`
	StudentsThatDeclined []DeclinedStudent `json:"students_that_declined"`
	LeaseHistory         []LeaseHistory    `json:"lease_history"`
}

// NewEmptyLease returns an inactive lease with no price and no history.
func NewEmptyLease(ownershipID uuid.UUID, roomIndex int) *Lease {
	return &Lease{
		OwnershipID:          ownershipID,
		RoomIndex:            roomIndex,
		StudentInterests:     []StudentInterest{},
		StudentsThatDeclined: []DeclinedStudent{},
		LeaseHistory:         []LeaseHistory{},
	}
}

// Window returns the availability window when both bounds are set.
func (l *Lease) Window() (interval.Interval, bool) {
	if l.AvailabilityStart == nil || l.AvailabilityEnd == nil {
		return interval.Interval{}, false
	}
	return interval.New(*l.AvailabilityStart, *l.AvailabilityEnd), true
}

// Listed reports whether the lease is on the market and open for interest.
func (l *Lease) Listed() bool {
	_, hasWindow := l.Window()
	return l.Active && hasWindow && !l.ExternalOccupant && l.OccupantID == nil
}

// State derives the lifecycle state at now.
func (l *Lease) State(now time.Time) LeaseState {
	if l.Listed() {
		for _, si := range l.StudentInterests {
			if si.Status == InterestApproved {
				return StatePendingAcceptance
			}
		}
		return StateListed
	}
	if l.ExternalOccupant || l.OccupantID != nil || l.CurrentOccupancy(now) != nil {
		return StateOccupied
	}
	return StateUnlisted
}

// Interest returns the index and entry of the student's interest, or -1.
func (l *Lease) Interest(studentID uuid.UUID) (int, *StudentInterest) {
	for i := range l.StudentInterests {
		if l.StudentInterests[i].StudentID == studentID {
			return i, &l.StudentInterests[i]
		}
	}
	return -1, nil
}

// RemoveInterest drops the student's interest entry and reports whether one existed.
func (l *Lease) RemoveInterest(studentID uuid.UUID) bool {
	kept := l.StudentInterests[:0]
	removed := false
	for _, si := range l.StudentInterests {
		if si.StudentID == studentID {
			removed = true
			continue
		}
		kept = append(kept, si)
	}
	l.StudentInterests = kept
	return removed
}

// HasDeclined reports whether the student is already recorded as having declined.
func (l *Lease) HasDeclined(studentID uuid.UUID) bool {
	for _, d := range l.StudentsThatDeclined {
		if d.StudentID == studentID {
			return true
		}
	}
	return false
}

// History returns the history entry with the given id.
func (l *Lease) History(id uuid.UUID) *LeaseHistory {
	for i := range l.LeaseHistory {
		if l.LeaseHistory[i].ID == id {
			return &l.LeaseHistory[i]
		}
	}
	return nil
}

// LatestHistoryFor returns the student's history entry with the latest end date.
func (l *Lease) LatestHistoryFor(studentID uuid.UUID) *LeaseHistory {
	var latest *LeaseHistory
	for i := range l.LeaseHistory {
		h := &l.LeaseHistory[i]
		if h.StudentID != studentID {
			continue
		}
		if latest == nil || h.EndDate.After(latest.EndDate) {
			latest = h
		}
	}
	return latest
}

// CurrentOccupancy returns the history entry whose term covers now.
func (l *Lease) CurrentOccupancy(now time.Time) *LeaseHistory {
	for i := range l.LeaseHistory {
		if l.LeaseHistory[i].Term().Contains(now) {
			return &l.LeaseHistory[i]
		}
	}
	return nil
}
