package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/teresa-solution/lease-management-service/internal/model"
)

// Review targets accepted by AddLandlordResponse.
const (
	ReviewOfLandlord = "landlord"
	ReviewOfProperty = "property"
)

// ReviewInput is a student's review of the property and landlord of a lease.
// Ratings are in [0,1]. Images are S3 keys.
type ReviewInput struct {
	LeaseID        string
	StudentID      string
	PropertyReview string
	PropertyRating float64
	LandlordReview string
	LandlordRating float64
	Images         []string
}

// ReviewStatus tells whether a student lived at a property and already reviewed it.
type ReviewStatus struct {
	HasHistory bool `json:"has_history"`
	HasReview  bool `json:"has_review"`
}

func validRating(r float64) bool {
	return r >= 0 && r <= 1
}

// setReview writes a review unless the landlord already responded to it.
func setReview(current **model.ReviewAndResponse, rating float64, text string) {
	if (*current).Responded() {
		return
	}
	*current = &model.ReviewAndResponse{Rating: rating, Review: text}
}

// AddReviewForLease reviews the student's latest term on the lease. Reviews
// stay editable until the landlord responds; images are only ever appended.
func (s *Service) AddReviewForLease(ctx context.Context, in ReviewInput) (lease *model.Lease, err error) {
	defer observe("addReviewForLease", time.Now(), &err)

	lid, err := parseID("lease_id", in.LeaseID)
	if err != nil {
		return nil, err
	}
	sid, err := parseID("student_id", in.StudentID)
	if err != nil {
		return nil, err
	}
	if !validRating(in.PropertyRating) || !validRating(in.LandlordRating) {
		return nil, fmt.Errorf("%w: ratings must be between 0 and 1", ErrInvalidArgument)
	}

	lease, err = s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}
	h := lease.LatestHistoryFor(sid)
	if h == nil {
		return nil, fmt.Errorf("%w: no history found for student %s on lease %s", ErrNotFound, sid, lid)
	}

	setReview(&h.ReviewOfProperty, in.PropertyRating, in.PropertyReview)
	setReview(&h.ReviewOfLandlord, in.LandlordRating, in.LandlordReview)

	now := s.now()
	for _, key := range in.Images {
		h.PropertyImages = append(h.PropertyImages, model.PropertyImage{S3Key: key, DateUploaded: now})
	}

	if err := s.saveLease(ctx, lease); err != nil {
		return nil, err
	}
	return lease, nil
}

// AddLandlordResponse answers the review of the landlord or of the property on one history entry
func (s *Service) AddLandlordResponse(ctx context.Context, leaseID, historyID, response, reviewType string) (lease *model.Lease, err error) {
	defer observe("addLandlordResponse", time.Now(), &err)

	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return nil, err
	}
	hid, err := parseID("history_id", historyID)
	if err != nil {
		return nil, err
	}
	if reviewType != ReviewOfLandlord && reviewType != ReviewOfProperty {
		return nil, fmt.Errorf("%w: response type must be %q or %q", ErrInvalidArgument, ReviewOfLandlord, ReviewOfProperty)
	}
	if response == "" {
		return nil, fmt.Errorf("%w: response must not be empty", ErrInvalidArgument)
	}

	lease, err = s.loadLease(ctx, lid)
	if err != nil {
		return nil, err
	}
	h := lease.History(hid)
	if h == nil {
		return nil, fmt.Errorf("%w: no history entry %s on lease %s", ErrNotFound, hid, lid)
	}

	review := h.ReviewOfLandlord
	if reviewType == ReviewOfProperty {
		review = h.ReviewOfProperty
	}
	if review == nil {
		return nil, fmt.Errorf("%w: no review of the %s to respond to", ErrNotFound, reviewType)
	}
	review.Response = response

	if err := s.saveLease(ctx, lease); err != nil {
		return nil, err
	}
	return lease, nil
}

// CanAddReview reports whether the student has lived at the property and
// whether they already left a review there.
func (s *Service) CanAddReview(ctx context.Context, studentID, propertyID string) (ReviewStatus, error) {
	sid, err := parseID("student_id", studentID)
	if err != nil {
		return ReviewStatus{}, err
	}
	pid, err := parseID("property_id", propertyID)
	if err != nil {
		return ReviewStatus{}, err
	}
	if _, err := s.loadStudent(ctx, sid); err != nil {
		return ReviewStatus{}, err
	}
	if _, err := s.loadProperty(ctx, pid); err != nil {
		return ReviewStatus{}, err
	}

	ownership, err := s.confirmedOwnership(ctx, pid)
	if err != nil {
		return ReviewStatus{}, err
	}
	leases, err := s.leasesForOwnership(ctx, ownership.ID)
	if err != nil {
		return ReviewStatus{}, err
	}

	var status ReviewStatus
	for _, l := range leases {
		for _, h := range l.LeaseHistory {
			if h.StudentID != sid {
				continue
			}
			status.HasHistory = true
			if h.ReviewOfProperty != nil || h.ReviewOfLandlord != nil {
				status.HasReview = true
			}
		}
	}
	return status, nil
}
