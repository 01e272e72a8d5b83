package model

import (
	"fmt"

	"github.com/google/uuid"
)

// OwnershipStatus is the verification status of a landlord's claim on a property.
type OwnershipStatus string

const (
	OwnershipPending   OwnershipStatus = "pending"
	OwnershipConfirmed OwnershipStatus = "confirmed"
	OwnershipRejected  OwnershipStatus = "rejected"
)

// Ownership links a landlord to a property.
type Ownership struct {
	Base
	PropertyID uuid.UUID       `json:"property_id"`
	LandlordID uuid.UUID       `json:"landlord_id"`
	Status     OwnershipStatus `json:"status"`
}

// PropertyDetails describes the rentable property.
type PropertyDetails struct {
	Description    string          `json:"description"`
	Rooms          int             `json:"rooms"`
	Bathrooms      int             `json:"bathrooms"`
	SqFt           float64         `json:"sq_ft"`
	Furnished      bool            `json:"furnished"`
	HasWasher      bool            `json:"has_washer"`
	HasHeater      bool            `json:"has_heater"`
	HasAC          bool            `json:"has_ac"`
	PropertyImages []PropertyImage `json:"property_images"`
}

// Property represents a building listed on the marketplace.
type Property struct {
	Base
	AddressLine  string           `json:"address_line"`
	AddressLine2 string           `json:"address_line_2,omitempty"`
	City         string           `json:"city"`
	State        string           `json:"state"`
	Zip          string           `json:"zip"`
	Details      *PropertyDetails `json:"details,omitempty"`
}

// Address formats the postal address on one line.
func (p *Property) Address() string {
	addr := p.AddressLine + ", "
	if p.AddressLine2 != "" {
		addr += p.AddressLine2 + ", "
	}
	return addr + fmt.Sprintf("%s %s, %s", p.City, p.State, p.Zip)
}

// Institution is a school students belong to.
type Institution struct {
	Base
	Name  string `json:"name"`
	City  string `json:"city"`
	State string `json:"state"`
}

// S3Document is one uploaded file of a lease agreement bundle.
type S3Document struct {
	MimeType string `json:"mime_type"`
	S3Key    string `json:"s3_key"`
}

// LeaseDocument is a reusable lease agreement bundle owned by a landlord.
type LeaseDocument struct {
	Base
	LeaseName  string       `json:"lease_name"`
	LandlordID uuid.UUID    `json:"landlord_id"`
	Documents  []S3Document `json:"documents"`
}
