package lease

import (
	"context"
	"fmt"

	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// AddNewLeaseDocument stores a landlord's lease agreement bundle
func (s *Service) AddNewLeaseDocument(ctx context.Context, landlordID, leaseName string, documents []model.S3Document) (*model.LeaseDocument, error) {
	lid, err := parseID("landlord_id", landlordID)
	if err != nil {
		return nil, err
	}
	if leaseName == "" {
		return nil, fmt.Errorf("%w: lease_name is required", ErrInvalidArgument)
	}
	if len(documents) == 0 {
		return nil, fmt.Errorf("%w: at least one document is required", ErrInvalidArgument)
	}
	for _, d := range documents {
		if d.S3Key == "" {
			return nil, fmt.Errorf("%w: document s3_key is required", ErrInvalidArgument)
		}
	}
	if _, err := s.loadLandlord(ctx, lid); err != nil {
		return nil, err
	}

	doc := &model.LeaseDocument{LeaseName: leaseName, LandlordID: lid, Documents: documents}
	if err := s.store.LeaseDocuments.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("creating lease document: %w", err)
	}
	return doc, nil
}

// GetLeaseDocumentsForLandlord lists the lease agreement bundles of a landlord
func (s *Service) GetLeaseDocumentsForLandlord(ctx context.Context, landlordID string) ([]*model.LeaseDocument, error) {
	lid, err := parseID("landlord_id", landlordID)
	if err != nil {
		return nil, err
	}
	docs, err := s.store.LeaseDocuments.Find(ctx, store.Filter{"landlord_id": lid})
	if err != nil {
		return nil, fmt.Errorf("finding lease documents of landlord %s: %w", lid, err)
	}
	return docs, nil
}
