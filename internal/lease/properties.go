package lease

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/store"
)

// LeaseOccupancy is one room of an ownership and whoever lives there now.
type LeaseOccupancy struct {
	Lease      *model.Lease        `json:"lease"`
	RoomNumber int                 `json:"room_number"`
	State      model.LeaseState    `json:"state"`
	Occupancy  *model.LeaseHistory `json:"occupancy,omitempty"`
	Occupant   *model.Student      `json:"occupant,omitempty"`
}

// PropertySummary is a property with its landlord and the leases on the market.
type PropertySummary struct {
	Property *model.Property `json:"property"`
	Landlord *model.Landlord `json:"landlord"`
	Leases   []*model.Lease  `json:"leases"`
}

// GetLeasesAndOccupants lists the rooms of an ownership in room order with their current occupants
func (s *Service) GetLeasesAndOccupants(ctx context.Context, ownershipID string) ([]LeaseOccupancy, error) {
	oid, err := parseID("ownership_id", ownershipID)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwnership(ctx, oid); err != nil {
		return nil, err
	}
	leases, err := s.leasesForOwnership(ctx, oid)
	if err != nil {
		return nil, err
	}

	now := s.now()
	rooms := make([]LeaseOccupancy, len(leases))
	var occupantIDs []uuid.UUID
	for i, l := range leases {
		rooms[i] = LeaseOccupancy{
			Lease:      l,
			RoomNumber: i + 1,
			State:      l.State(now),
			Occupancy:  l.CurrentOccupancy(now),
		}
		if rooms[i].Occupancy != nil {
			occupantIDs = append(occupantIDs, rooms[i].Occupancy.StudentID)
		}
	}

	students, err := s.store.Students.FindByIDs(ctx, occupantIDs)
	if err != nil {
		return nil, fmt.Errorf("loading occupants: %w", err)
	}
	byID := make(map[uuid.UUID]*model.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	for i := range rooms {
		if rooms[i].Occupancy != nil {
			rooms[i].Occupant = byID[rooms[i].Occupancy.StudentID]
		}
	}
	return rooms, nil
}

// GetPropertySummary returns a property with its landlord and active leases
func (s *Service) GetPropertySummary(ctx context.Context, propertyID string) (*PropertySummary, error) {
	pid, err := parseID("property_id", propertyID)
	if err != nil {
		return nil, err
	}
	property, err := s.loadProperty(ctx, pid)
	if err != nil {
		return nil, err
	}
	ownership, err := s.confirmedOwnership(ctx, pid)
	if err != nil {
		return nil, err
	}
	landlord, err := s.loadLandlord(ctx, ownership.LandlordID)
	if err != nil {
		return nil, err
	}
	leases, err := s.leasesForOwnership(ctx, ownership.ID)
	if err != nil {
		return nil, err
	}

	active := make([]*model.Lease, 0, len(leases))
	for _, l := range leases {
		if l.Active {
			active = append(active, l)
		}
	}
	return &PropertySummary{Property: property, Landlord: landlord, Leases: active}, nil
}

// UpdatePropertyRooms grows the property to the given room count, creating an
// empty lease per new room. Rooms are never removed.
func (s *Service) UpdatePropertyRooms(ctx context.Context, propertyID string, rooms int) (property *model.Property, err error) {
	defer observe("updatePropertyRooms", time.Now(), &err)

	pid, err := parseID("property_id", propertyID)
	if err != nil {
		return nil, err
	}
	if rooms <= 0 {
		return nil, fmt.Errorf("%w: rooms must be positive", ErrInvalidArgument)
	}
	property, err = s.loadProperty(ctx, pid)
	if err != nil {
		return nil, err
	}
	ownership, err := s.confirmedOwnership(ctx, pid)
	if err != nil {
		return nil, err
	}
	leases, err := s.leasesForOwnership(ctx, ownership.ID)
	if err != nil {
		return nil, err
	}

	for i := len(leases); i < rooms; i++ {
		if _, err := s.createEmptyLease(ctx, ownership.ID); err != nil {
			return nil, err
		}
	}

	if property.Details == nil {
		property.Details = &model.PropertyDetails{PropertyImages: []model.PropertyImage{}}
	}
	property.Details.Rooms = max(rooms, len(leases))

	if err := s.saveProperty(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

// GetPropertiesForLandlord lists the properties a landlord holds an ownership
// of in the given status, confirmed when status is empty
func (s *Service) GetPropertiesForLandlord(ctx context.Context, landlordID string, status model.OwnershipStatus) ([]*model.Property, error) {
	lid, err := parseID("landlord_id", landlordID)
	if err != nil {
		return nil, err
	}
	switch status {
	case "":
		status = model.OwnershipConfirmed
	case model.OwnershipPending, model.OwnershipConfirmed, model.OwnershipRejected:
	default:
		return nil, fmt.Errorf("%w: unknown ownership status %q", ErrInvalidArgument, status)
	}

	ownerships, err := s.store.Ownerships.Find(ctx, store.Filter{
		"landlord_id": lid,
		"status":      status,
	})
	if err != nil {
		return nil, fmt.Errorf("finding ownerships of landlord %s: %w", lid, err)
	}
	ids := make([]uuid.UUID, 0, len(ownerships))
	for _, o := range ownerships {
		ids = append(ids, o.PropertyID)
	}
	properties, err := s.store.Properties.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("loading properties of landlord %s: %w", lid, err)
	}
	return properties, nil
}

// AddImagesToProperty appends uploaded images to the property details
func (s *Service) AddImagesToProperty(ctx context.Context, propertyID string, s3Keys []string) (property *model.Property, err error) {
	defer observe("addImagesToProperty", time.Now(), &err)

	pid, err := parseID("property_id", propertyID)
	if err != nil {
		return nil, err
	}
	if len(s3Keys) == 0 {
		return nil, fmt.Errorf("%w: no images to add", ErrInvalidArgument)
	}
	for _, key := range s3Keys {
		if key == "" {
			return nil, fmt.Errorf("%w: s3 key must not be empty", ErrInvalidArgument)
		}
	}
	property, err = s.loadProperty(ctx, pid)
	if err != nil {
		return nil, err
	}

	if property.Details == nil {
		property.Details = &model.PropertyDetails{PropertyImages: []model.PropertyImage{}}
	}
	now := s.now()
	for _, key := range s3Keys {
		property.Details.PropertyImages = append(property.Details.PropertyImages, model.PropertyImage{
			S3Key:        key,
			DateUploaded: now,
		})
	}
	if err := s.saveProperty(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

// RemoveImageFromProperty drops every image stored under the key. Removing
// an unknown key leaves the property unchanged.
func (s *Service) RemoveImageFromProperty(ctx context.Context, propertyID, s3Key string) (property *model.Property, err error) {
	defer observe("removeImageFromProperty", time.Now(), &err)

	pid, err := parseID("property_id", propertyID)
	if err != nil {
		return nil, err
	}
	property, err = s.loadProperty(ctx, pid)
	if err != nil {
		return nil, err
	}
	if property.Details == nil {
		return property, nil
	}

	kept := make([]model.PropertyImage, 0, len(property.Details.PropertyImages))
	for _, img := range property.Details.PropertyImages {
		if img.S3Key != s3Key {
			kept = append(kept, img)
		}
	}
	if len(kept) == len(property.Details.PropertyImages) {
		return property, nil
	}
	property.Details.PropertyImages = kept
	if err := s.saveProperty(ctx, property); err != nil {
		return nil, err
	}
	return property, nil
}

func (s *Service) saveProperty(ctx context.Context, property *model.Property) error {
	err := s.store.Properties.Save(ctx, property)
	if errors.Is(err, store.ErrRevisionConflict) {
		return fmt.Errorf("%w: property was modified concurrently, retry", ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("saving property %s: %w", property.ID, err)
	}
	return nil
}
