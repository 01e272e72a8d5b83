package lease

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/interval"
	"github.com/teresa-solution/lease-management-service/internal/model"
)

const dateLayout = "2006-01-02"

// Eligibility is the answer to "may this student do that with this lease".
type Eligibility struct {
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

func eligibilityOf(err error) (Eligibility, error) {
	if err == nil {
		return Eligibility{OK: true}, nil
	}
	if IsBusinessError(err) {
		return Eligibility{OK: false, Reason: err.Error()}, nil
	}
	return Eligibility{}, err
}

// CanAcceptLease reports whether the student may accept the lease agreement now
func (s *Service) CanAcceptLease(ctx context.Context, studentID, leaseID string) (Eligibility, error) {
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return Eligibility{}, err
	}
	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return Eligibility{}, err
	}
	student, err := s.loadStudent(ctx, sid)
	if err != nil {
		return Eligibility{}, err
	}
	lease, err := s.loadLease(ctx, lid)
	if err != nil {
		return Eligibility{}, err
	}
	return eligibilityOf(s.checkAcceptance(ctx, student, lease))
}

// CanExpressInterest reports whether the student may express interest in the lease now
func (s *Service) CanExpressInterest(ctx context.Context, studentID, leaseID string) (Eligibility, error) {
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return Eligibility{}, err
	}
	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return Eligibility{}, err
	}
	student, err := s.loadStudent(ctx, sid)
	if err != nil {
		return Eligibility{}, err
	}
	lease, err := s.loadLease(ctx, lid)
	if err != nil {
		return Eligibility{}, err
	}
	return eligibilityOf(s.checkInterest(ctx, student, lease))
}

// checkInterest guards expressInterest: the lease must be listed, the student
// must not already be interested and must not have lived or be booked
// anywhere during the lease window.
func (s *Service) checkInterest(ctx context.Context, student *model.Student, lease *model.Lease) error {
	if !lease.Listed() {
		return fmt.Errorf("%w: lease %s is not listed", ErrInvalidState, lease.ID)
	}
	if _, interest := lease.Interest(student.ID); interest != nil {
		return fmt.Errorf("%w: student already expressed interest in lease %s", ErrConflict, lease.ID)
	}
	window, _ := lease.Window()
	return s.checkOccupancies(ctx, student.ID, window)
}

// checkAcceptance runs every acceptance rule, cheapest first. Each overlap
// check looks at the student's bookings at a different granularity.
func (s *Service) checkAcceptance(ctx context.Context, student *model.Student, lease *model.Lease) error {
	if !lease.Listed() || lease.ExternalOccupant {
		return fmt.Errorf("%w: lease %s is not available", ErrInvalidState, lease.ID)
	}
	if _, interest := lease.Interest(student.ID); interest == nil || interest.Status != model.InterestApproved {
		return fmt.Errorf("%w: student has not been approved for lease %s", ErrUnauthorized, lease.ID)
	}

	window, _ := lease.Window()
	if err := s.checkAcceptedLeases(ctx, student, lease.ID, window); err != nil {
		return err
	}
	if err := s.checkOccupancies(ctx, student.ID, window); err != nil {
		return err
	}
	return checkOwnHistory(lease, window)
}

// checkAcceptedLeases compares the window with every history entry the
// student's accepted leases point at. A reference whose history entry is not
// written yet belongs to an acceptance in flight and blocks the lease's
// availability window instead. Other dangling references are skipped.
func (s *Service) checkAcceptedLeases(ctx context.Context, student *model.Student, leaseID uuid.UUID, window interval.Interval) error {
	if len(student.AcceptedLeases) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(student.AcceptedLeases))
	for _, al := range student.AcceptedLeases {
		ids = append(ids, al.LeaseID)
	}
	leases, err := s.store.Leases.FindByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("loading accepted leases of student %s: %w", student.ID, err)
	}
	byID := make(map[uuid.UUID]*model.Lease, len(leases))
	for _, l := range leases {
		byID[l.ID] = l
	}

	for _, al := range student.AcceptedLeases {
		l, ok := byID[al.LeaseID]
		var h *model.LeaseHistory
		if ok {
			h = l.History(al.HistoryID)
		}
		if h == nil && ok && al.LeaseID != leaseID {
			if pending, held := pendingTerm(l, student.ID); held && interval.Overlap(pending, window) {
				return fmt.Errorf("%w: student is accepting lease %s from %s to %s, which overlaps this period",
					ErrConflict, l.ID, pending.Start.Format(dateLayout), pending.End.Format(dateLayout))
			}
		}
		if h == nil || h.StudentID != student.ID {
			log.Warn().
				Str("student_id", student.ID.String()).
				Str("lease_id", al.LeaseID.String()).
				Str("history_id", al.HistoryID.String()).
				Msg("Accepted lease reference does not resolve, ignoring it")
			continue
		}
		if interval.Overlap(h.Term(), window) {
			return overlapError(al.LeaseID, h)
		}
	}
	return nil
}

// pendingTerm is the window a student is about to take on a lease: the lease
// is still listed and the student is approved for it.
func pendingTerm(l *model.Lease, studentID uuid.UUID) (interval.Interval, bool) {
	if !l.Listed() {
		return interval.Interval{}, false
	}
	if _, interest := l.Interest(studentID); interest == nil || interest.Status != model.InterestApproved {
		return interval.Interval{}, false
	}
	return l.Window()
}

// checkOccupancies compares the window with every history entry of the
// student on any lease. Lease documents are the source of truth here.
func (s *Service) checkOccupancies(ctx context.Context, studentID uuid.UUID, window interval.Interval) error {
	leases, err := s.leasesOccupiedBy(ctx, studentID)
	if err != nil {
		return err
	}
	for _, l := range leases {
		for i := range l.LeaseHistory {
			h := &l.LeaseHistory[i]
			if h.StudentID == studentID && interval.Overlap(h.Term(), window) {
				return overlapError(l.ID, h)
			}
		}
	}
	return nil
}

// checkOwnHistory rejects a window that collides with an earlier term on the same lease.
func checkOwnHistory(lease *model.Lease, window interval.Interval) error {
	for i := range lease.LeaseHistory {
		h := &lease.LeaseHistory[i]
		if interval.Overlap(h.Term(), window) {
			return fmt.Errorf("%w: availability %s to %s overlaps an existing occupancy of lease %s (%s to %s)",
				ErrConflict,
				window.Start.Format(dateLayout), window.End.Format(dateLayout), lease.ID,
				h.StartDate.Format(dateLayout), h.EndDate.Format(dateLayout))
		}
	}
	return nil
}

func overlapError(leaseID uuid.UUID, h *model.LeaseHistory) error {
	return fmt.Errorf("%w: student already has a lease from %s to %s (lease %s) overlapping this period",
		ErrConflict, h.StartDate.Format(dateLayout), h.EndDate.Format(dateLayout), leaseID)
}
