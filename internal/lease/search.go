package lease

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// SearchParams narrows a property search. Nil bounds are open.
type SearchParams struct {
	PriceMin *float64 `json:"price_min,omitempty"`
	PriceMax *float64 `json:"price_max,omitempty"`
}

func (p SearchParams) admits(price float64) bool {
	if p.PriceMin != nil && price < *p.PriceMin {
		return false
	}
	if p.PriceMax != nil && price > *p.PriceMax {
		return false
	}
	return true
}

// PropertySearchResult is one property with at least one listed lease.
type PropertySearchResult struct {
	Property            *model.Property `json:"property"`
	LandlordName        string          `json:"landlord_name"`
	PriceMin            float64         `json:"price_min"`
	PriceMax            float64         `json:"price_max"`
	LeaseCount          int             `json:"lease_count"`
	PriorityLevel       int             `json:"priority_level"`
	PropertyRatingAvg   float64         `json:"property_rating_avg"`
	PropertyRatingCount int             `json:"property_rating_count"`
	LandlordRatingAvg   float64         `json:"landlord_rating_avg"`
	LandlordRatingCount int             `json:"landlord_rating_count"`
	Leases              []*model.Lease  `json:"leases"`
}

type ratingSum struct {
	sum   float64
	count int
}

func (r *ratingSum) add(review *model.ReviewAndResponse) {
	if review == nil {
		return
	}
	r.sum += review.Rating
	r.count++
}

func (r ratingSum) avg() float64 {
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

type searchGroup struct {
	result   *PropertySearchResult
	property ratingSum
	landlord ratingSum
}

// SearchForProperties groups listed leases by property. Results with a
// promotion active now come first, highest level first, then by address.
func (s *Service) SearchForProperties(ctx context.Context, params SearchParams) ([]PropertySearchResult, error) {
	if params.PriceMin != nil && params.PriceMax != nil && *params.PriceMin > *params.PriceMax {
		return nil, fmt.Errorf("%w: price_min is greater than price_max", ErrInvalidArgument)
	}
	now := s.now()

	candidates, err := s.store.Leases.Find(ctx, store.Filter{"active": true, "external_occupant": false})
	if err != nil {
		return nil, fmt.Errorf("finding listed leases: %w", err)
	}

	byOwnership := make(map[uuid.UUID][]*model.Lease)
	var ownershipIDs []uuid.UUID
	for _, l := range candidates {
		if !l.Listed() || !params.admits(l.PricePerMonth) {
			continue
		}
		if _, ok := byOwnership[l.OwnershipID]; !ok {
			ownershipIDs = append(ownershipIDs, l.OwnershipID)
		}
		byOwnership[l.OwnershipID] = append(byOwnership[l.OwnershipID], l)
	}
	if len(ownershipIDs) == 0 {
		return []PropertySearchResult{}, nil
	}

	ownerships, err := s.store.Ownerships.FindByIDs(ctx, ownershipIDs)
	if err != nil {
		return nil, fmt.Errorf("loading ownerships: %w", err)
	}
	var propertyIDs, landlordIDs []uuid.UUID
	confirmed := make([]*model.Ownership, 0, len(ownerships))
	for _, o := range ownerships {
		if o.Status != model.OwnershipConfirmed {
			continue
		}
		confirmed = append(confirmed, o)
		propertyIDs = append(propertyIDs, o.PropertyID)
		landlordIDs = append(landlordIDs, o.LandlordID)
	}

	properties, err := s.store.Properties.FindByIDs(ctx, propertyIDs)
	if err != nil {
		return nil, fmt.Errorf("loading properties: %w", err)
	}
	propertyByID := make(map[uuid.UUID]*model.Property, len(properties))
	for _, p := range properties {
		propertyByID[p.ID] = p
	}
	landlords, err := s.store.Landlords.FindByIDs(ctx, landlordIDs)
	if err != nil {
		return nil, fmt.Errorf("loading landlords: %w", err)
	}
	landlordByID := make(map[uuid.UUID]*model.Landlord, len(landlords))
	for _, l := range landlords {
		landlordByID[l.ID] = l
	}

	// First pass: group listed leases and accumulate rating sums over every
	// lease of the property, listed or not.
	groups := make(map[uuid.UUID]*searchGroup)
	var order []uuid.UUID
	for _, o := range confirmed {
		property, ok := propertyByID[o.PropertyID]
		if !ok {
			continue
		}
		g, ok := groups[property.ID]
		if !ok {
			g = &searchGroup{
				result: &PropertySearchResult{Property: property, Leases: []*model.Lease{}},
			}
			if landlord, ok := landlordByID[o.LandlordID]; ok {
				g.result.LandlordName = landlord.DisplayName()
			}
			groups[property.ID] = g
			order = append(order, property.ID)
		}

		for _, l := range byOwnership[o.ID] {
			r := g.result
			if r.LeaseCount == 0 || l.PricePerMonth < r.PriceMin {
				r.PriceMin = l.PricePerMonth
			}
			if r.LeaseCount == 0 || l.PricePerMonth > r.PriceMax {
				r.PriceMax = l.PricePerMonth
			}
			r.LeaseCount++
			if l.Priority.ActiveAt(now) && l.Priority.Level > r.PriorityLevel {
				r.PriorityLevel = l.Priority.Level
			}
			r.Leases = append(r.Leases, l)
		}

		all, err := s.leasesForOwnership(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		for _, l := range all {
			for i := range l.LeaseHistory {
				g.property.add(l.LeaseHistory[i].ReviewOfProperty)
				g.landlord.add(l.LeaseHistory[i].ReviewOfLandlord)
			}
		}
	}

	// Second pass: finalize averages.
	results := make([]PropertySearchResult, 0, len(order))
	for _, id := range order {
		g := groups[id]
		g.result.PropertyRatingAvg = g.property.avg()
		g.result.PropertyRatingCount = g.property.count
		g.result.LandlordRatingAvg = g.landlord.avg()
		g.result.LandlordRatingCount = g.landlord.count
		results = append(results, *g.result)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].PriorityLevel != results[j].PriorityLevel {
			return results[i].PriorityLevel > results[j].PriorityLevel
		}
		return results[i].Property.Address() < results[j].Property.Address()
	})
	return results, nil
}
