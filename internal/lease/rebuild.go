package lease

import (
	"context"
	"sort"
	"time"

	"github.com/teresa-solution/lease-management-service/internal/model"
)

// RebuildAcceptedLeases recomputes the student's accepted leases from lease
// history, ordered by term start.
func (s *Service) RebuildAcceptedLeases(ctx context.Context, studentID string) (student *model.Student, err error) {
	defer observe("rebuildAcceptedLeases", time.Now(), &err)

	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadStudent(ctx, sid); err != nil {
		return nil, err
	}

	leases, err := s.leasesOccupiedBy(ctx, sid)
	if err != nil {
		return nil, err
	}
	type term struct {
		ref   model.AcceptedLease
		start time.Time
	}
	var terms []term
	for _, l := range leases {
		for _, h := range l.LeaseHistory {
			if h.StudentID == sid {
				terms = append(terms, term{ref: model.AcceptedLease{LeaseID: l.ID, HistoryID: h.ID}, start: h.StartDate})
			}
		}
	}
	sort.SliceStable(terms, func(i, j int) bool { return terms[i].start.Before(terms[j].start) })

	rebuilt := make([]model.AcceptedLease, len(terms))
	for i, t := range terms {
		rebuilt[i] = t.ref
	}

	return s.updateStudent(ctx, sid, func(st *model.Student) bool {
		st.AcceptedLeases = rebuilt
		return true
	})
}
