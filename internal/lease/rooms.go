package lease

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/model"
)

// sortRooms puts leases in room order: room_index, then insertion order.
// Input must be in insertion order.
func sortRooms(leases []*model.Lease) {
	sort.SliceStable(leases, func(i, j int) bool {
		return leases[i].RoomIndex < leases[j].RoomIndex
	})
}

// roomNumber returns the 1-based room number of leaseID within leases,
// which must already be in room order, or 0 when absent.
func roomNumber(leases []*model.Lease, leaseID uuid.UUID) int {
	for i, l := range leases {
		if l.ID == leaseID {
			return i + 1
		}
	}
	return 0
}

func nextRoomIndex(leases []*model.Lease) int {
	next := 1
	for _, l := range leases {
		if l.RoomIndex >= next {
			next = l.RoomIndex + 1
		}
	}
	return next
}

// RoomNumberFor returns the room number of a lease within its ownership
func (s *Service) RoomNumberFor(ctx context.Context, ownershipID, leaseID string) (int, error) {
	oid, err := parseID("ownership_id", ownershipID)
	if err != nil {
		return 0, err
	}
	lid, err := parseID("lease_id", leaseID)
	if err != nil {
		return 0, err
	}

	leases, err := s.leasesForOwnership(ctx, oid)
	if err != nil {
		return 0, err
	}
	n := roomNumber(leases, lid)
	if n == 0 {
		return 0, fmt.Errorf("%w: lease %s does not belong to ownership %s", ErrNotFound, lid, oid)
	}
	return n, nil
}

// roomDescription names the lease for notifications, e.g. "Room 2 at 12 Elm St, Troy NY, 12180".
// Lookup failures degrade to a generic description.
func (s *Service) roomDescription(ctx context.Context, lease *model.Lease) (string, *leaseGraph) {
	graph, err := s.resolveGraph(ctx, lease)
	if err != nil {
		return "your room", nil
	}
	leases, err := s.leasesForOwnership(ctx, lease.OwnershipID)
	if err != nil {
		return "a room at " + graph.Property.Address(), graph
	}
	return fmt.Sprintf("Room %d at %s", roomNumber(leases, lease.ID), graph.Property.Address()), graph
}
