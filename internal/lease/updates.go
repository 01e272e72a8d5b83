package lease

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
)

// LeaseUpdate patches the market fields of one unoccupied lease. Nil fields
// are left unchanged. ExternalOccupant=true may not be combined with the others.
type LeaseUpdate struct {
	LeaseID          string               `json:"lease_id"`
	Price            *float64             `json:"price,omitempty"`
	Priority         *model.LeasePriority `json:"priority,omitempty"`
	Active           *bool                `json:"active,omitempty"`
	ExternalOccupant *bool                `json:"external_occupant,omitempty"`
}

func (u *LeaseUpdate) validate() (uuid.UUID, error) {
	id, err := parseID("lease_id", u.LeaseID)
	if err != nil {
		return uuid.Nil, err
	}
	if u.ExternalOccupant != nil && *u.ExternalOccupant &&
		(u.Price != nil || u.Priority != nil || u.Active != nil) {
		return uuid.Nil, fmt.Errorf("%w: lease %s: external_occupant cannot be combined with price, priority or active", ErrInvalidArgument, id)
	}
	if u.Price != nil && *u.Price < 0 {
		return uuid.Nil, fmt.Errorf("%w: lease %s: price must not be negative", ErrInvalidArgument, id)
	}
	if u.Priority != nil && u.Priority.StartDate.After(u.Priority.EndDate) {
		return uuid.Nil, fmt.Errorf("%w: lease %s: priority starts after it ends", ErrInvalidArgument, id)
	}
	return id, nil
}

// apply patches the lease in memory.
func (u *LeaseUpdate) apply(lease *model.Lease) error {
	if u.ExternalOccupant != nil {
		if *u.ExternalOccupant {
			lease.ExternalOccupant = true
			lease.Priority = nil
			lease.PricePerMonth = model.WithdrawnPrice
			lease.Active = false
			return nil
		}
		lease.ExternalOccupant = false
		if lease.PricePerMonth == model.WithdrawnPrice {
			lease.PricePerMonth = 0
		}
	}
	if u.Price != nil {
		lease.PricePerMonth = *u.Price
	}
	if u.Priority != nil {
		p := *u.Priority
		lease.Priority = &p
	}
	if u.Active != nil {
		if *u.Active {
			if lease.ExternalOccupant {
				return fmt.Errorf("%w: lease %s is externally occupied", ErrInvalidState, lease.ID)
			}
			if _, ok := lease.Window(); !ok {
				return fmt.Errorf("%w: lease %s has no availability window, activate it first", ErrInvalidState, lease.ID)
			}
			if lease.PricePerMonth < 0 {
				return fmt.Errorf("%w: lease %s has no price", ErrInvalidState, lease.ID)
			}
		}
		lease.Active = *u.Active
	}
	return nil
}

// UpdateUnoccupiedLeases patches a batch of leases. Every entry is validated
// and applied in memory before any lease is saved, and a failed save rolls
// the earlier ones back.
func (s *Service) UpdateUnoccupiedLeases(ctx context.Context, updates []LeaseUpdate) (leases []*model.Lease, err error) {
	defer observe("updateUnoccupiedLeases", time.Now(), &err)

	ids := make([]uuid.UUID, len(updates))
	seen := make(map[uuid.UUID]bool, len(updates))
	for i := range updates {
		id, err := updates[i].validate()
		if err != nil {
			return nil, err
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: lease %s appears more than once", ErrInvalidArgument, id)
		}
		seen[id] = true
		ids[i] = id
	}

	leases = make([]*model.Lease, len(updates))
	originals := make([]model.Lease, len(updates))
	for i, id := range ids {
		lease, err := s.loadLease(ctx, id)
		if err != nil {
			return nil, err
		}
		if lease.OccupantID != nil {
			return nil, fmt.Errorf("%w: lease %s is occupied", ErrInvalidState, id)
		}
		// apply only replaces fields, so a shallow copy is a full pre-image.
		originals[i] = *lease
		if err := updates[i].apply(lease); err != nil {
			return nil, err
		}
		leases[i] = lease
	}

	for i, lease := range leases {
		if err := s.saveLease(ctx, lease); err != nil {
			s.rollbackLeases(ctx, originals[:i], leases[:i])
			return nil, err
		}
	}
	return leases, nil
}

// rollbackLeases writes each pre-image back over the revision its update
// produced. A lease changed again since then is left alone and reported.
func (s *Service) rollbackLeases(ctx context.Context, originals []model.Lease, saved []*model.Lease) {
	for i := range originals {
		restore := originals[i]
		restore.Revision = saved[i].Revision
		if err := s.store.Leases.Save(ctx, &restore); err != nil {
			monitoring.Alert("batch lease update not rolled back", map[string]string{
				"lease_id": restore.ID.String(),
			})
			log.Error().Err(err).Str("lease_id", restore.ID.String()).Msg("Failed to roll back lease update")
		}
	}
}
