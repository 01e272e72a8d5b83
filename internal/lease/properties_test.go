package lease

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/teresa-solution/lease-management-service/internal/model"
)

func TestRoomNumberFor(t *testing.T) {
	f := newFixture(t)
	f.newLease(t, f.ownership.ID)
	second := f.newLease(t, f.ownership.ID)
	f.newLease(t, f.ownership.ID)

	n, err := f.svc.RoomNumberFor(f.ctx, f.ownership.ID.String(), second.ID.String())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = f.svc.RoomNumberFor(f.ctx, f.ownership.ID.String(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSortRooms(t *testing.T) {
	a := &model.Lease{RoomIndex: 2, OwnershipID: uuid.New()}
	b := &model.Lease{RoomIndex: 1, OwnershipID: uuid.New()}
	c := &model.Lease{RoomIndex: 2, OwnershipID: uuid.New()}
	leases := []*model.Lease{a, b, c}
	sortRooms(leases)
	assert.Equal(t, []*model.Lease{b, a, c}, leases)
	assert.Equal(t, 3, nextRoomIndex(leases))
	assert.Equal(t, 1, nextRoomIndex(nil))
}

func TestConfirmedOwnership_Inconsistent(t *testing.T) {
	f := newFixture(t)
	lease := f.newLease(t, f.ownership.ID)

	second := &model.Ownership{PropertyID: f.property.ID, LandlordID: f.landlord.ID, Status: model.OwnershipConfirmed}
	require.NoError(t, f.st.Ownerships.Create(f.ctx, second))

	_, err := f.svc.GetPropertySummary(f.ctx, f.property.ID.String())
	assert.ErrorIs(t, err, ErrInconsistent)

	_, err = f.svc.GetLeaseSummary(f.ctx, lease.ID.String())
	assert.ErrorIs(t, err, ErrInconsistent)

	_, err = f.svc.UpdatePropertyRooms(f.ctx, f.property.ID.String(), 4)
	assert.ErrorIs(t, err, ErrInconsistent)
}

func TestGetLeaseSummary(t *testing.T) {
	f := newFixture(t)
	f.newLease(t, f.ownership.ID)
	lease := f.listedLease(t, 700, date(2024, 9, 1), date(2025, 5, 1))

	rpi := &model.Institution{Name: "RPI", City: "Troy", State: "NY"}
	require.NoError(t, f.st.Institutions.Create(f.ctx, rpi))
	for _, name := range []string{"ana", "ben"} {
		st := f.newStudent(t, name)
		st.InstitutionID = &rpi.ID
		require.NoError(t, f.st.Students.Save(f.ctx, st))
		f.interested(t, lease, st)
	}

	summary, err := f.svc.GetLeaseSummary(f.ctx, lease.ID.String())
	require.NoError(t, err)
	assert.Equal(t, model.StateListed, summary.State)
	assert.Equal(t, 2, summary.RoomNumber)
	assert.Equal(t, f.landlord.ID, summary.Landlord.ID)
	assert.Equal(t, "lou@example.com", summary.Landlord.Email)
	assert.Equal(t, f.property.ID, summary.Property.ID)
	assert.Len(t, summary.Students, 2)
	require.Len(t, summary.Institutions, 1)
	assert.Equal(t, "RPI", summary.Institutions[0].Name)
	require.NotNil(t, summary.LeaseDocument)
	assert.Equal(t, f.document.ID, summary.LeaseDocument.ID)

	_, err = f.svc.GetLeaseSummary(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAcceptedLeaseSummaries(t *testing.T) {
	f := newFixture(t)
	ana := f.newStudent(t, "ana")
	lease := f.listedLease(t, 725, date(2024, 9, 1), date(2025, 5, 1))
	f.approved(t, lease, ana)
	_, err := f.svc.AcceptLeaseAgreement(f.ctx, lease.ID.String(), ana.ID.String())
	require.NoError(t, err)

	student := f.student(t, ana.ID)
	student.AcceptedLeases = append(student.AcceptedLeases, model.AcceptedLease{LeaseID: uuid.New(), HistoryID: uuid.New()})
	require.NoError(t, f.st.Students.Save(f.ctx, student))

	summaries, err := f.svc.GetAcceptedLeaseSummaries(f.ctx, ana.ID.String())
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	got := summaries[0]
	assert.Equal(t, lease.ID, got.LeaseID)
	assert.Equal(t, "Lou Park", got.LandlordName)
	assert.Equal(t, 1, got.RoomNumber)
	assert.Equal(t, float64(725), got.Price)
	assert.True(t, got.StartDate.Equal(date(2024, 9, 1)))
}

func TestGetLeasesAndOccupants(t *testing.T) {
	f := newFixture(t)
	ana := f.newStudent(t, "ana")
	occupied := f.newLease(t, f.ownership.ID)
	f.newLease(t, f.ownership.ID)
	f.addHistory(t, occupied.ID, model.LeaseHistory{StudentID: ana.ID, StartDate: date(2024, 1, 1), EndDate: date(2024, 6, 1)})

	rooms, err := f.svc.GetLeasesAndOccupants(f.ctx, f.ownership.ID.String())
	require.NoError(t, err)
	require.Len(t, rooms, 2)

	assert.Equal(t, 1, rooms[0].RoomNumber)
	assert.Equal(t, model.StateOccupied, rooms[0].State)
	require.NotNil(t, rooms[0].Occupant)
	assert.Equal(t, ana.ID, rooms[0].Occupant.ID)

	assert.Equal(t, 2, rooms[1].RoomNumber)
	assert.Equal(t, model.StateUnlisted, rooms[1].State)
	assert.Nil(t, rooms[1].Occupant)

	_, err = f.svc.GetLeasesAndOccupants(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetPropertySummary(t *testing.T) {
	f := newFixture(t)
	f.newLease(t, f.ownership.ID)
	listed := f.listedLease(t, 700, date(2024, 9, 1), date(2025, 5, 1))

	summary, err := f.svc.GetPropertySummary(f.ctx, f.property.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "12 Elm St, Troy NY, 12180", summary.Property.Address())
	assert.Equal(t, f.landlord.ID, summary.Landlord.ID)
	require.Len(t, summary.Leases, 1)
	assert.Equal(t, listed.ID, summary.Leases[0].ID)
}

func TestUpdatePropertyRooms(t *testing.T) {
	f := newFixture(t)

	property, err := f.svc.UpdatePropertyRooms(f.ctx, f.property.ID.String(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, property.Details.Rooms)
	rooms, err := f.svc.GetLeasesAndOccupants(f.ctx, f.ownership.ID.String())
	require.NoError(t, err)
	assert.Len(t, rooms, 3)

	property, err = f.svc.UpdatePropertyRooms(f.ctx, f.property.ID.String(), 1)
	require.NoError(t, err)
	assert.Equal(t, 3, property.Details.Rooms)
	rooms, err = f.svc.GetLeasesAndOccupants(f.ctx, f.ownership.ID.String())
	require.NoError(t, err)
	assert.Len(t, rooms, 3)

	_, err = f.svc.UpdatePropertyRooms(f.ctx, f.property.ID.String(), 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestLeaseDocuments(t *testing.T) {
	f := newFixture(t)

	doc, err := f.svc.AddNewLeaseDocument(f.ctx, f.landlord.ID.String(), "Summer sublet",
		[]model.S3Document{{MimeType: "application/pdf", S3Key: "leases/summer.pdf"}})
	require.NoError(t, err)
	assert.Equal(t, f.landlord.ID, doc.LandlordID)

	docs, err := f.svc.GetLeaseDocumentsForLandlord(f.ctx, f.landlord.ID.String())
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "Standard lease", docs[0].LeaseName)
	assert.Equal(t, "Summer sublet", docs[1].LeaseName)

	_, err = f.svc.AddNewLeaseDocument(f.ctx, f.landlord.ID.String(), "", []model.S3Document{{S3Key: "k"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.AddNewLeaseDocument(f.ctx, f.landlord.ID.String(), "x", []model.S3Document{{MimeType: "application/pdf"}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.AddNewLeaseDocument(f.ctx, uuid.NewString(), "x", []model.S3Document{{S3Key: "k"}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRebuildAcceptedLeases(t *testing.T) {
	f := newFixture(t)
	ana := f.newStudent(t, "ana")
	later := f.newLease(t, f.ownership.ID)
	earlier := f.newLease(t, f.ownership.ID)
	h2 := f.addHistory(t, later.ID, model.LeaseHistory{StudentID: ana.ID, StartDate: date(2024, 9, 1), EndDate: date(2025, 5, 1)})
	h1 := f.addHistory(t, earlier.ID, model.LeaseHistory{StudentID: ana.ID, StartDate: date(2023, 9, 1), EndDate: date(2024, 5, 1)})
	f.addHistory(t, earlier.ID, model.LeaseHistory{StudentID: uuid.New(), StartDate: date(2022, 9, 1), EndDate: date(2023, 5, 1)})

	student, err := f.svc.RebuildAcceptedLeases(f.ctx, ana.ID.String())
	require.NoError(t, err)
	want := []model.AcceptedLease{
		{LeaseID: earlier.ID, HistoryID: h1.ID},
		{LeaseID: later.ID, HistoryID: h2.ID},
	}
	assert.Equal(t, want, student.AcceptedLeases)
	assert.Equal(t, want, f.student(t, ana.ID).AcceptedLeases)
}

func TestGetPropertiesForLandlord(t *testing.T) {
	f := newFixture(t)
	second, _ := f.newProperty(t, "40 Oak Ave", f.landlord.ID)
	pending := &model.Property{AddressLine: "7 Pine Rd", City: "Troy", State: "NY", Zip: "12180"}
	require.NoError(t, f.st.Properties.Create(f.ctx, pending))
	require.NoError(t, f.st.Ownerships.Create(f.ctx, &model.Ownership{
		PropertyID: pending.ID, LandlordID: f.landlord.ID, Status: model.OwnershipPending,
	}))
	f.newProperty(t, "99 Other St", uuid.New())

	properties, err := f.svc.GetPropertiesForLandlord(f.ctx, f.landlord.ID.String(), "")
	require.NoError(t, err)
	ids := make([]uuid.UUID, 0, len(properties))
	for _, p := range properties {
		ids = append(ids, p.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{f.property.ID, second.ID}, ids)

	properties, err = f.svc.GetPropertiesForLandlord(f.ctx, f.landlord.ID.String(), model.OwnershipPending)
	require.NoError(t, err)
	require.Len(t, properties, 1)
	assert.Equal(t, pending.ID, properties[0].ID)

	_, err = f.svc.GetPropertiesForLandlord(f.ctx, f.landlord.ID.String(), "sold")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.GetPropertiesForLandlord(f.ctx, "nope", "")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestPropertyImages(t *testing.T) {
	f := newFixture(t)
	id := f.property.ID.String()

	property, err := f.svc.AddImagesToProperty(f.ctx, id, []string{"images/front.jpg", "images/kitchen.jpg"})
	require.NoError(t, err)
	require.NotNil(t, property.Details)
	require.Len(t, property.Details.PropertyImages, 2)
	assert.Equal(t, "images/front.jpg", property.Details.PropertyImages[0].S3Key)
	assert.True(t, property.Details.PropertyImages[0].DateUploaded.Equal(f.now))

	property, err = f.svc.RemoveImageFromProperty(f.ctx, id, "images/front.jpg")
	require.NoError(t, err)
	require.Len(t, property.Details.PropertyImages, 1)

	property, err = f.svc.RemoveImageFromProperty(f.ctx, id, "images/missing.jpg")
	require.NoError(t, err)
	assert.Len(t, property.Details.PropertyImages, 1)

	stored, err := f.st.Properties.GetByID(f.ctx, f.property.ID)
	require.NoError(t, err)
	require.Len(t, stored.Details.PropertyImages, 1)
	assert.Equal(t, "images/kitchen.jpg", stored.Details.PropertyImages[0].S3Key)

	_, err = f.svc.AddImagesToProperty(f.ctx, id, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.AddImagesToProperty(f.ctx, id, []string{""})
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = f.svc.AddImagesToProperty(f.ctx, uuid.NewString(), []string{"images/a.jpg"})
	assert.ErrorIs(t, err, ErrNotFound)
}
