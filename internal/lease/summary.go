package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/model"
)

// LeaseSummary is a lease with everything a landlord needs to act on it.
type LeaseSummary struct {
	Lease         *model.Lease         `json:"lease"`
	State         model.LeaseState     `json:"state"`
	RoomNumber    int                  `json:"room_number"`
	Ownership     *model.Ownership     `json:"ownership"`
	Property      *model.Property      `json:"property"`
	Landlord      *model.Landlord      `json:"landlord"`
	Students      []*model.Student     `json:"students"`
	Institutions  []*model.Institution `json:"institutions"`
	LeaseDocument *model.LeaseDocument `json:"lease_document,omitempty"`
}

// AcceptedLeaseSummary describes one booked or past term of a student.
type AcceptedLeaseSummary struct {
	LeaseID          uuid.UUID                `json:"lease_id"`
	HistoryID        uuid.UUID                `json:"history_id"`
	Property         *model.Property          `json:"property"`
	LandlordName     string                   `json:"landlord_name"`
	RoomNumber       int                      `json:"room_number"`
	StartDate        time.Time                `json:"start_date"`
	EndDate          time.Time                `json:"end_date"`
	Price            float64                  `json:"price"`
	ReviewOfProperty *model.ReviewAndResponse `json:"review_of_property,omitempty"`
	ReviewOfLandlord *model.ReviewAndResponse `json:"review_of_landlord,omitempty"`
	PropertyImages   []model.PropertyImage    `json:"property_images"`
}

// GetLeaseSummary joins a lease with its ownership, property, landlord,
// interested students, their institutions and the agreement document.
func (s *Service) GetLeaseSummary(ctx context.Context, leaseID string) (*LeaseSummary, error) {
	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return nil, err
	}
	lease, err := s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}
	graph, err := s.resolveGraph(ctx, lease)
	if err != nil {
		return nil, err
	}
	leases, err := s.leasesForOwnership(ctx, lease.OwnershipID)
	if err != nil {
		return nil, err
	}

	studentIDs := make([]uuid.UUID, 0, len(lease.StudentInterests))
	for _, si := range lease.StudentInterests {
		studentIDs = append(studentIDs, si.StudentID)
	}
	students, err := s.store.Students.FindByIDs(ctx, studentIDs)
	if err != nil {
		return nil, fmt.Errorf("loading interested students of lease %s: %w", lid, err)
	}

	seen := make(map[uuid.UUID]bool)
	var institutionIDs []uuid.UUID
	for _, st := range students {
		if st.InstitutionID != nil && !seen[*st.InstitutionID] {
			seen[*st.InstitutionID] = true
			institutionIDs = append(institutionIDs, *st.InstitutionID)
		}
	}
	institutions, err := s.store.Institutions.FindByIDs(ctx, institutionIDs)
	if err != nil {
		return nil, fmt.Errorf("loading institutions: %w", err)
	}

	summary := &LeaseSummary{
		Lease:        lease,
		State:        lease.State(s.now()),
		RoomNumber:   roomNumber(leases, lid),
		Ownership:    graph.Ownership,
		Property:     graph.Property,
		Landlord:     graph.Landlord,
		Students:     students,
		Institutions: institutions,
	}

	if lease.LeaseDocumentID != nil {
		doc, err := s.store.LeaseDocuments.GetByID(ctx, *lease.LeaseDocumentID)
		if err != nil {
			return nil, fmt.Errorf("loading lease document %s: %w", *lease.LeaseDocumentID, err)
		}
		summary.LeaseDocument = doc
	}
	return summary, nil
}

// GetAcceptedLeaseSummaries describes every lease the student accepted.
// References that no longer resolve are skipped.
func (s *Service) GetAcceptedLeaseSummaries(ctx context.Context, studentID string) ([]AcceptedLeaseSummary, error) {
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return nil, err
	}
	student, err := s.loadStudent(ctx, sid)
	if err != nil {
		return nil, err
	}

	summaries := make([]AcceptedLeaseSummary, 0, len(student.AcceptedLeases))
	for _, al := range student.AcceptedLeases {
		lease, err := s.store.Leases.GetByID(ctx, al.LeaseID)
		if err != nil {
			return nil, fmt.Errorf("loading lease %s: %w", al.LeaseID, err)
		}
		var h *model.LeaseHistory
		if lease != nil {
			h = lease.History(al.HistoryID)
		}
		if h == nil || h.StudentID != sid {
			log.Warn().
				Str("student_id", sid.String()).
				Str("lease_id", al.LeaseID.String()).
				Str("history_id", al.HistoryID.String()).
				Msg("Accepted lease reference does not resolve, skipping it")
			continue
		}

		graph, err := s.resolveGraph(ctx, lease)
		if err != nil {
			if IsBusinessError(err) {
				log.Warn().Err(err).Str("lease_id", lease.ID.String()).Msg("Skipping accepted lease with unresolvable property")
				continue
			}
			return nil, err
		}
		leases, err := s.leasesForOwnership(ctx, lease.OwnershipID)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, AcceptedLeaseSummary{
			LeaseID:          lease.ID,
			HistoryID:        h.ID,
			Property:         graph.Property,
			LandlordName:     graph.Landlord.DisplayName(),
			RoomNumber:       roomNumber(leases, lease.ID),
			StartDate:        h.StartDate,
			EndDate:          h.EndDate,
			Price:            h.Price,
			ReviewOfProperty: h.ReviewOfProperty,
			ReviewOfLandlord: h.ReviewOfLandlord,
			PropertyImages:   h.PropertyImages,
		})
	}
	return summaries, nil
}
