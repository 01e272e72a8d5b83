package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/interval"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// Interest decisions accepted by AcceptOrDeclineInterest.
const (
	ActionAccept  = "accept"
	ActionDecline = "decline"
)

// ActivateParams puts a lease on the market.
type ActivateParams struct {
	LeaseID         string
	LeaseDocumentID string
	Price           float64
	Start           time.Time
	End             time.Time
}

// CreateEmptyLease adds an inactive, unpriced room to an ownership
func (s *Service) CreateEmptyLease(ctx context.Context, ownershipID string) (lease *model.Lease, err error) {
	defer observe("createEmptyLease", time.Now(), &err)

	oid, err := parseID("ownership_id", ownershipID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwnership(ctx, oid); err != nil {
		return nil, err
	}
	return s.createEmptyLease(ctx, oid)
}

func (s *Service) createEmptyLease(ctx context.Context, ownershipID uuid.UUID) (*model.Lease, error) {
	existing, err := s.leasesForOwnership(ctx, ownershipID)
	if err != nil {
		return nil, err
	}

	lease := model.NewEmptyLease(ownershipID, nextRoomIndex(existing))
	if err := s.store.Leases.Create(ctx, lease); err != nil {
		return nil, fmt.Errorf("creating lease for ownership %s: %w", ownershipID, err)
	}
	log.Info().
		Str("lease_id", lease.ID.String()).
		Str("ownership_id", ownershipID.String()).
		Int("room_index", lease.RoomIndex).
		Msg("Created empty lease")
	return lease, nil
}

// ActivateLease lists an inactive lease with a price, window and agreement document
func (s *Service) ActivateLease(ctx context.Context, p ActivateParams) (lease *model.Lease, err error) {
	defer observe("activateLease", time.Now(), &err)

	lid, err := parseID("lease_id", p.LeaseID)
	if err != nil {
		return nil, err
	}
	did, err := parseID("lease_document_id", p.LeaseDocumentID)
	if err != nil {
		return nil, err
	}
	if p.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidArgument)
	}
	if p.Start.IsZero() || p.End.IsZero() {
		return nil, fmt.Errorf("%w: availability start and end are required", ErrInvalidArgument)
	}
	if p.Start.After(p.End) {
		return nil, fmt.Errorf("%w: availability start is after its end", ErrInvalidArgument)
	}

	lease, err = s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}
	if lease.Active {
		return nil, fmt.Errorf("%w: lease %s is already active", ErrInvalidState, lease.ID)
	}
	if lease.ExternalOccupant || lease.OccupantID != nil {
		return nil, fmt.Errorf("%w: lease %s is occupied", ErrInvalidState, lease.ID)
	}

	doc, err := s.store.LeaseDocuments.GetByID(ctx, did)
	if err != nil {
		return nil, fmt.Errorf("loading lease document %s: %w", did, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: no lease document found with id %s", ErrNotFound, did)
	}
	ownership, err := s.loadOwnership(ctx, lease.OwnershipID)
	if err != nil {
		return nil, err
	}
	if doc.LandlordID != ownership.LandlordID {
		return nil, fmt.Errorf("%w: lease document %s belongs to another landlord", ErrUnauthorized, did)
	}

	start, end := p.Start.UTC(), p.End.UTC()
	if err := checkOwnHistory(lease, interval.New(start, end)); err != nil {
		return nil, err
	}

	lease.Active = true
	lease.PricePerMonth = p.Price
	lease.AvailabilityStart = &start
	lease.AvailabilityEnd = &end
	lease.LeaseDocumentID = &did
	if err := s.saveLease(ctx, lease); err != nil {
		return nil, err
	}

	log.Info().Str("lease_id", lease.ID.String()).Float64("price", p.Price).Msg("Lease activated")
	return lease, nil
}

// ExpressInterest records a student's interest in a listed lease and tells the landlord
func (s *Service) ExpressInterest(ctx context.Context, leaseID, studentID string) (lease *model.Lease, err error) {
	defer observe("expressInterest", time.Now(), &err)

	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return nil, err
	}
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	lease, err = s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, sid)
	if err != nil {
		return nil, err
	}

	if err := s.checkInterest(ctx, student, lease); err != nil {
		return nil, err
	}

	lease.StudentInterests = append(lease.StudentInterests, model.StudentInterest{
		StudentID: sid,
		Date:      s.now(),
		Status:    model.InterestPending,
	})
	if err := s.saveLease(ctx, lease); err != nil {
		return nil, err
	}

	room, graph := s.roomDescription(ctx, lease)
	if graph != nil {
		s.notify(ctx, s.interestReceivedNotification(graph.Landlord.ID, student, lease, room))
	}
	return lease, nil
}

// AcceptOrDeclineInterest records the landlord's decision on a student's interest
func (s *Service) AcceptOrDeclineInterest(ctx context.Context, leaseID, studentID, action string) (lease *model.Lease, err error) {
	defer observe("acceptOrDeclineInterest", time.Now(), &err)

	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return nil, err
	}
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	var status model.InterestStatus
	switch action {
	case ActionAccept:
		status = model.InterestApproved
	case ActionDecline:
		status = model.InterestDeclined
	default:
		return nil, fmt.Errorf("%w: action must be %q or %q", ErrInvalidArgument, ActionAccept, ActionDecline)
	}

	lease, err = s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}
	_, interest := lease.Interest(sid)
	if interest == nil {
		return nil, fmt.Errorf("%w: student %s has no interest in lease %s", ErrNotFound, sid, lid)
	}
	if !lease.Listed() {
		return nil, fmt.Errorf("%w: lease %s is not listed", ErrInvalidState, lid)
	}

	interest.Status = status
	if err := s.saveLease(ctx, lease); err != nil {
		return nil, err
	}

	room, _ := s.roomDescription(ctx, lease)
	s.notify(ctx, s.interestDecisionNotification(sid, lease, room, status == model.InterestApproved))
	return lease, nil
}

// AcceptLeaseAgreement books the lease window for an approved student
func (s *Service) AcceptLeaseAgreement(ctx context.Context, leaseID, studentID string) (lease *model.Lease, err error) {
	defer observe("acceptLeaseAgreement", time.Now(), &err)

	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return nil, err
	}
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	lease, err = s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}

	ref := model.AcceptedLease{LeaseID: lid, HistoryID: uuid.New()}
	student, err := s.reserveTerm(ctx, sid, lease, ref)
	if err != nil {
		return nil, err
	}

	history := model.LeaseHistory{
		ID:             ref.HistoryID,
		Price:          lease.PricePerMonth,
		StudentID:      sid,
		StartDate:      *lease.AvailabilityStart,
		EndDate:        *lease.AvailabilityEnd,
		PropertyImages: []model.PropertyImage{},
	}
	var others []uuid.UUID
	for _, si := range lease.StudentInterests {
		if si.StudentID != sid {
			others = append(others, si.StudentID)
		}
	}

	lease.LeaseHistory = append(lease.LeaseHistory, history)
	lease.Active = false
	lease.PricePerMonth = 0
	lease.AvailabilityStart = nil
	lease.AvailabilityEnd = nil
	lease.StudentInterests = []model.StudentInterest{}
	if err := s.saveLease(ctx, lease); err != nil {
		s.releaseTerm(ctx, sid, ref)
		return nil, err
	}

	room, graph := s.roomDescription(ctx, lease)
	s.notify(ctx, s.leaseAcceptedNotification(sid, lease, room, lease.History(history.ID)))
	for _, other := range others {
		s.notify(ctx, s.roomTakenNotification(other, room))
	}
	if graph != nil {
		s.notify(ctx, s.leaseTakenNotification(graph.Landlord.ID, student, lease, room))
	}

	log.Info().
		Str("lease_id", lid.String()).
		Str("student_id", sid.String()).
		Str("history_id", history.ID.String()).
		Msg("Lease agreement accepted")
	return lease, nil
}

// reserveTerm records ref on the student, checking acceptance against the
// same revision it saves over. Two acceptances by one student serialize on
// the student document: the loser rereads and sees the winner's reservation.
func (s *Service) reserveTerm(ctx context.Context, sid uuid.UUID, lease *model.Lease, ref model.AcceptedLease) (*model.Student, error) {
	const attempts = 3
	for i := 0; i < attempts; i++ {
		student, err := s.loadStudent(ctx, sid)
		if err != nil {
			return nil, err
		}
		if err := s.checkAcceptance(ctx, student, lease); err != nil {
			return nil, err
		}
		if !student.HasAcceptedLease(ref) {
			student.AcceptedLeases = append(student.AcceptedLeases, ref)
		}
		err = s.store.Students.Save(ctx, student)
		if err == nil {
			return student, nil
		}
		if !errors.Is(err, store.ErrRevisionConflict) {
			return nil, fmt.Errorf("saving student %s: %w", sid, err)
		}
	}
	return nil, fmt.Errorf("%w: student was modified concurrently, retry", ErrConflict)
}

// releaseTerm drops a reservation whose lease write failed. A reference left
// behind is repaired by RebuildAcceptedLeases.
func (s *Service) releaseTerm(ctx context.Context, sid uuid.UUID, ref model.AcceptedLease) {
	_, err := s.updateStudent(ctx, sid, func(st *model.Student) bool {
		for i, al := range st.AcceptedLeases {
			if al == ref {
				st.AcceptedLeases = append(st.AcceptedLeases[:i], st.AcceptedLeases[i+1:]...)
				return true
			}
		}
		return false
	})
	if err != nil {
		monitoring.Alert("accepted lease reservation not released", map[string]string{
			"student_id": sid.String(),
			"lease_id":   ref.LeaseID.String(),
			"history_id": ref.HistoryID.String(),
		})
		log.Error().Err(err).Str("student_id", sid.String()).Str("lease_id", ref.LeaseID.String()).Msg("Failed to release accepted lease reservation")
	}
}

// DeclineLeaseAgreement withdraws an interested student from the lease.
// Repeated calls leave a single decline record.
func (s *Service) DeclineLeaseAgreement(ctx context.Context, leaseID, studentID string) (lease *model.Lease, err error) {
	defer observe("declineLeaseAgreement", time.Now(), &err)

	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return nil, err
	}
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	lease, err = s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadStudent(ctx, sid); err != nil {
		return nil, err
	}

	_, interest := lease.Interest(sid)
	if interest == nil && !lease.HasDeclined(sid) {
		return nil, fmt.Errorf("%w: student %s has no interest in lease %s", ErrNotFound, sid, lid)
	}

	removed := lease.RemoveInterest(sid)
	recorded := false
	if !lease.HasDeclined(sid) {
		lease.StudentsThatDeclined = append(lease.StudentsThatDeclined, model.DeclinedStudent{
			StudentID: sid,
			Date:      s.now(),
		})
		recorded = true
	}
	if !removed && !recorded {
		return lease, nil
	}

	if err := s.saveLease(ctx, lease); err != nil {
		return nil, err
	}

	room, _ := s.roomDescription(ctx, lease)
	s.notify(ctx, s.leaseDeclinedNotification(sid, room))
	return lease, nil
}


