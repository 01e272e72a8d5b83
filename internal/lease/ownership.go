package lease

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// confirmedOwnership returns the single confirmed ownership of a property.
// Zero or several confirmed ownerships are reported as ErrInconsistent.
func (s *Service) confirmedOwnership(ctx context.Context, propertyID uuid.UUID) (*model.Ownership, error) {
	ownerships, err := s.store.Ownerships.Find(ctx, store.Filter{
		"property_id": propertyID,
		"status":      model.OwnershipConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("finding ownerships of property %s: %w", propertyID, err)
	}
	if len(ownerships) != 1 {
		labels := map[string]string{
			"property_id":          propertyID.String(),
			"confirmed_ownerships": strconv.Itoa(len(ownerships)),
		}
		for i, o := range ownerships {
			labels["ownership_"+strconv.Itoa(i+1)] = o.ID.String()
		}
		monitoring.Alert("property does not have exactly one confirmed ownership", labels)
		return nil, fmt.Errorf("%w: property %s has %d confirmed ownerships", ErrInconsistent, propertyID, len(ownerships))
	}
	return ownerships[0], nil
}

// leaseGraph is the ownership, property and landlord around a lease.
type leaseGraph struct {
	Ownership *model.Ownership
	Property  *model.Property
	Landlord  *model.Landlord
}

// resolveGraph walks lease -> ownership -> property -> landlord and checks
// that the lease's ownership is the property's confirmed one.
func (s *Service) resolveGraph(ctx context.Context, lease *model.Lease) (*leaseGraph, error) {
	ownership, err := s.store.Ownerships.GetByID(ctx, lease.OwnershipID)
	if err != nil {
		return nil, fmt.Errorf("loading ownership %s: %w", lease.OwnershipID, err)
	}
	if ownership == nil {
		monitoring.Alert("lease references a missing ownership", map[string]string{
			"lease_id":     lease.ID.String(),
			"ownership_id": lease.OwnershipID.String(),
		})
		return nil, fmt.Errorf("%w: ownership %s of lease %s does not exist", ErrInconsistent, lease.OwnershipID, lease.ID)
	}

	confirmed, err := s.confirmedOwnership(ctx, ownership.PropertyID)
	if err != nil {
		return nil, err
	}
	if confirmed.ID != ownership.ID {
		log.Warn().
			Str("lease_id", lease.ID.String()).
			Str("ownership_id", ownership.ID.String()).
			Str("confirmed_ownership_id", confirmed.ID.String()).
			Msg("Lease belongs to an unconfirmed ownership")
		return nil, fmt.Errorf("%w: ownership %s of lease %s is not confirmed", ErrInconsistent, ownership.ID, lease.ID)
	}

	property, err := s.store.Properties.GetByID(ctx, ownership.PropertyID)
	if err != nil {
		return nil, fmt.Errorf("loading property %s: %w", ownership.PropertyID, err)
	}
	if property == nil {
		return nil, fmt.Errorf("%w: property %s of ownership %s does not exist", ErrInconsistent, ownership.PropertyID, ownership.ID)
	}

	landlord, err := s.store.Landlords.GetByID(ctx, ownership.LandlordID)
	if err != nil {
		return nil, fmt.Errorf("loading landlord %s: %w", ownership.LandlordID, err)
	}
	if landlord == nil {
		return nil, fmt.Errorf("%w: landlord %s of ownership %s does not exist", ErrInconsistent, ownership.LandlordID, ownership.ID)
	}

	return &leaseGraph{Ownership: ownership, Property: property, Landlord: landlord}, nil
}
