package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/lease"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Envelope is the body of every LeaseService response.
type Envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Date accepts "2006-01-02" or RFC 3339 timestamps.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", raw)
}

type LeaseRequest struct {
	LeaseID string `json:"lease_id"`
}

type StudentRequest struct {
	StudentID string `json:"student_id"`
}

type LandlordRequest struct {
	LandlordID string `json:"landlord_id"`
}

type OwnershipRequest struct {
	OwnershipID string `json:"ownership_id"`
}

type PropertyRequest struct {
	PropertyID string `json:"property_id"`
}

type LeaseStudentRequest struct {
	LeaseID   string `json:"lease_id"`
	StudentID string `json:"student_id"`
}

type ActivateLeaseRequest struct {
	LeaseID         string  `json:"lease_id"`
	LeaseDocumentID string  `json:"lease_document_id"`
	Price           float64 `json:"price"`
	StartDate       Date    `json:"start_date"`
	EndDate         Date    `json:"end_date"`
}

type InterestDecisionRequest struct {
	LeaseID   string `json:"lease_id"`
	StudentID string `json:"student_id"`
	Action    string `json:"action"`
}

type UpdateLeasesRequest struct {
	Leases []lease.LeaseUpdate `json:"leases"`
}

type AddReviewRequest struct {
	LeaseID        string   `json:"lease_id"`
	StudentID      string   `json:"student_id"`
	PropertyReview string   `json:"property_review"`
	PropertyRating float64  `json:"property_rating"`
	LandlordReview string   `json:"landlord_review"`
	LandlordRating float64  `json:"landlord_rating"`
	Images         []string `json:"images"`
}

type LandlordResponseRequest struct {
	LeaseID   string `json:"lease_id"`
	HistoryID string `json:"history_id"`
	Response  string `json:"response"`
	Type      string `json:"type"`
}

type StudentPropertyRequest struct {
	StudentID  string `json:"student_id"`
	PropertyID string `json:"property_id"`
}

type RoomNumberRequest struct {
	OwnershipID string `json:"ownership_id"`
	LeaseID     string `json:"lease_id"`
}

type PropertyRoomsRequest struct {
	PropertyID string `json:"property_id"`
	Rooms      int    `json:"rooms"`
}

type LandlordPropertiesRequest struct {
	LandlordID string                `json:"landlord_id"`
	Status     model.OwnershipStatus `json:"status,omitempty"`
}

type PropertyImagesRequest struct {
	PropertyID string   `json:"property_id"`
	S3Keys     []string `json:"s3_keys"`
}

type PropertyImageRequest struct {
	PropertyID string `json:"property_id"`
	S3Key      string `json:"s3_key"`
}

type AddLeaseDocumentRequest struct {
	LandlordID string             `json:"landlord_id"`
	LeaseName  string             `json:"lease_name"`
	Documents  []model.S3Document `json:"documents"`
}

type NotificationSeenRequest struct {
	StudentID      string `json:"student_id"`
	NotificationID string `json:"notification_id"`
}

type PushSubscriptionRequest struct {
	UserKind     model.UserKind         `json:"user_kind"`
	UserID       string                 `json:"user_id"`
	Subscription model.PushSubscription `json:"subscription"`
}

// LeaseService exposes the lease operations over gRPC.
type LeaseService struct {
	leases *lease.Service
}

// NewLeaseService creates a LeaseService
func NewLeaseService(leases *lease.Service) *LeaseService {
	return &LeaseService{leases: leases}
}

// respond turns a service result into an envelope. Business failures are
// reported in the envelope; anything else becomes an Internal status.
func respond(method string, data any, err error) (*Envelope, error) {
	if err == nil {
		return &Envelope{Success: true, Data: data}, nil
	}
	if lease.IsBusinessError(err) {
		log.Info().Str("method", method).Str("kind", lease.Kind(err)).Msg(err.Error())
		return &Envelope{Success: false, Error: err.Error()}, nil
	}
	log.Error().Err(err).Str("method", method).Msg("Request failed")
	return nil, status.Error(codes.Internal, "Internal server error")
}

func (s *LeaseService) serviceDesc() *grpc.ServiceDesc {
	l := s.leases
	return &grpc.ServiceDesc{
		ServiceName: ServiceName,
		HandlerType: (*leaseHandler)(nil),
		Methods: []grpc.MethodDesc{
			unary("CreateEmptyLease", func(ctx context.Context, r *OwnershipRequest) (*Envelope, error) {
				out, err := l.CreateEmptyLease(ctx, r.OwnershipID)
				return respond("CreateEmptyLease", out, err)
			}),
			unary("ActivateLease", func(ctx context.Context, r *ActivateLeaseRequest) (*Envelope, error) {
				out, err := l.ActivateLease(ctx, lease.ActivateParams{
					LeaseID:         r.LeaseID,
					LeaseDocumentID: r.LeaseDocumentID,
					Price:           r.Price,
					Start:           r.StartDate.Time,
					End:             r.EndDate.Time,
				})
				return respond("ActivateLease", out, err)
			}),
			unary("ExpressInterest", func(ctx context.Context, r *LeaseStudentRequest) (*Envelope, error) {
				out, err := l.ExpressInterest(ctx, r.LeaseID, r.StudentID)
				return respond("ExpressInterest", out, err)
			}),
			unary("AcceptOrDeclineInterest", func(ctx context.Context, r *InterestDecisionRequest) (*Envelope, error) {
				out, err := l.AcceptOrDeclineInterest(ctx, r.LeaseID, r.StudentID, r.Action)
				return respond("AcceptOrDeclineInterest", out, err)
			}),
			unary("AcceptLeaseAgreement", func(ctx context.Context, r *LeaseStudentRequest) (*Envelope, error) {
				out, err := l.AcceptLeaseAgreement(ctx, r.LeaseID, r.StudentID)
				return respond("AcceptLeaseAgreement", out, err)
			}),
			unary("DeclineLeaseAgreement", func(ctx context.Context, r *LeaseStudentRequest) (*Envelope, error) {
				out, err := l.DeclineLeaseAgreement(ctx, r.LeaseID, r.StudentID)
				return respond("DeclineLeaseAgreement", out, err)
			}),
			unary("UpdateUnoccupiedLeases", func(ctx context.Context, r *UpdateLeasesRequest) (*Envelope, error) {
				out, err := l.UpdateUnoccupiedLeases(ctx, r.Leases)
				return respond("UpdateUnoccupiedLeases", out, err)
			}),
			unary("CanAcceptLease", func(ctx context.Context, r *LeaseStudentRequest) (*Envelope, error) {
				out, err := l.CanAcceptLease(ctx, r.StudentID, r.LeaseID)
				return respond("CanAcceptLease", out, err)
			}),
			unary("CanExpressInterest", func(ctx context.Context, r *LeaseStudentRequest) (*Envelope, error) {
				out, err := l.CanExpressInterest(ctx, r.StudentID, r.LeaseID)
				return respond("CanExpressInterest", out, err)
			}),
			unary("AddReviewForLease", func(ctx context.Context, r *AddReviewRequest) (*Envelope, error) {
				out, err := l.AddReviewForLease(ctx, lease.ReviewInput{
					LeaseID:        r.LeaseID,
					StudentID:      r.StudentID,
					PropertyReview: r.PropertyReview,
					PropertyRating: r.PropertyRating,
					LandlordReview: r.LandlordReview,
					LandlordRating: r.LandlordRating,
					Images:         r.Images,
				})
				return respond("AddReviewForLease", out, err)
			}),
			unary("AddLandlordResponse", func(ctx context.Context, r *LandlordResponseRequest) (*Envelope, error) {
				out, err := l.AddLandlordResponse(ctx, r.LeaseID, r.HistoryID, r.Response, r.Type)
				return respond("AddLandlordResponse", out, err)
			}),
			unary("CanAddReview", func(ctx context.Context, r *StudentPropertyRequest) (*Envelope, error) {
				out, err := l.CanAddReview(ctx, r.StudentID, r.PropertyID)
				return respond("CanAddReview", out, err)
			}),
			unary("RoomNumberFor", func(ctx context.Context, r *RoomNumberRequest) (*Envelope, error) {
				out, err := l.RoomNumberFor(ctx, r.OwnershipID, r.LeaseID)
				return respond("RoomNumberFor", out, err)
			}),
			unary("GetLeaseSummary", func(ctx context.Context, r *LeaseRequest) (*Envelope, error) {
				out, err := l.GetLeaseSummary(ctx, r.LeaseID)
				return respond("GetLeaseSummary", out, err)
			}),
			unary("SearchForProperties", func(ctx context.Context, r *lease.SearchParams) (*Envelope, error) {
				out, err := l.SearchForProperties(ctx, *r)
				return respond("SearchForProperties", out, err)
			}),
			unary("GetAcceptedLeaseSummaries", func(ctx context.Context, r *StudentRequest) (*Envelope, error) {
				out, err := l.GetAcceptedLeaseSummaries(ctx, r.StudentID)
				return respond("GetAcceptedLeaseSummaries", out, err)
			}),
			unary("GetLeasesAndOccupants", func(ctx context.Context, r *OwnershipRequest) (*Envelope, error) {
				out, err := l.GetLeasesAndOccupants(ctx, r.OwnershipID)
				return respond("GetLeasesAndOccupants", out, err)
			}),
			unary("GetPropertySummary", func(ctx context.Context, r *PropertyRequest) (*Envelope, error) {
				out, err := l.GetPropertySummary(ctx, r.PropertyID)
				return respond("GetPropertySummary", out, err)
			}),
			unary("UpdatePropertyRooms", func(ctx context.Context, r *PropertyRoomsRequest) (*Envelope, error) {
				out, err := l.UpdatePropertyRooms(ctx, r.PropertyID, r.Rooms)
				return respond("UpdatePropertyRooms", out, err)
			}),
			unary("GetPropertiesForLandlord", func(ctx context.Context, r *LandlordPropertiesRequest) (*Envelope, error) {
				out, err := l.GetPropertiesForLandlord(ctx, r.LandlordID, r.Status)
				return respond("GetPropertiesForLandlord", out, err)
			}),
			unary("AddImagesToProperty", func(ctx context.Context, r *PropertyImagesRequest) (*Envelope, error) {
				out, err := l.AddImagesToProperty(ctx, r.PropertyID, r.S3Keys)
				return respond("AddImagesToProperty", out, err)
			}),
			unary("RemoveImageFromProperty", func(ctx context.Context, r *PropertyImageRequest) (*Envelope, error) {
				out, err := l.RemoveImageFromProperty(ctx, r.PropertyID, r.S3Key)
				return respond("RemoveImageFromProperty", out, err)
			}),
			unary("AddNewLeaseDocument", func(ctx context.Context, r *AddLeaseDocumentRequest) (*Envelope, error) {
				out, err := l.AddNewLeaseDocument(ctx, r.LandlordID, r.LeaseName, r.Documents)
				return respond("AddNewLeaseDocument", out, err)
			}),
			unary("GetLeaseDocumentsForLandlord", func(ctx context.Context, r *LandlordRequest) (*Envelope, error) {
				out, err := l.GetLeaseDocumentsForLandlord(ctx, r.LandlordID)
				return respond("GetLeaseDocumentsForLandlord", out, err)
			}),
			unary("GetStudentNotifications", func(ctx context.Context, r *StudentRequest) (*Envelope, error) {
				out, err := l.GetStudentNotifications(ctx, r.StudentID)
				return respond("GetStudentNotifications", out, err)
			}),
			unary("MarkStudentNotificationAsSeen", func(ctx context.Context, r *NotificationSeenRequest) (*Envelope, error) {
				out, err := l.MarkStudentNotificationAsSeen(ctx, r.StudentID, r.NotificationID)
				return respond("MarkStudentNotificationAsSeen", out, err)
			}),
			unary("AddPushSubscription", func(ctx context.Context, r *PushSubscriptionRequest) (*Envelope, error) {
				err := l.AddPushSubscription(ctx, r.UserKind, r.UserID, r.Subscription)
				return respond("AddPushSubscription", nil, err)
			}),
			unary("RebuildAcceptedLeases", func(ctx context.Context, r *StudentRequest) (*Envelope, error) {
				out, err := l.RebuildAcceptedLeases(ctx, r.StudentID)
				return respond("RebuildAcceptedLeases", out, err)
			}),
		},
		Streams: []grpc.StreamDesc{},
	}
}
