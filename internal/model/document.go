package model

import (
	"time"

	"github.com/google/uuid"
)

// Document is implemented by every record persisted in the document store.
type Document interface {
	DocumentID() uuid.UUID
	SetDocumentID(id uuid.UUID)
	DocumentRevision() int64
	SetDocumentRevision(rev int64)
	SetTimestamps(created, updated time.Time)
}

// Base holds the identity and bookkeeping fields shared by all documents.
// Revision is owned by the store and bumped on every successful save.
type Base struct {
	ID        uuid.UUID `json:"_id"`
	Revision  int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *Base) DocumentID() uuid.UUID         { return b.ID }
func (b *Base) SetDocumentID(id uuid.UUID)    { b.ID = id }
func (b *Base) DocumentRevision() int64       { return b.Revision }
func (b *Base) SetDocumentRevision(rev int64) { b.Revision = rev }

func (b *Base) SetTimestamps(created, updated time.Time) {
	b.CreatedAt = created
	b.UpdatedAt = updated
}
