package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/teresa-solution/lease-management-service/internal/crypto"
	"github.com/teresa-solution/lease-management-service/internal/model"
	"github.com/teresa-solution/lease-management-service/internal/monitoring"
)

// Repository maps one collection of the document store onto a model type.
type Repository[T any, PT interface {
	*T
	model.Document
}] struct {
	docs       DocumentStore
	collection string
	seal       func(PT) error
	unseal     func(PT) error
}

// NewRepository creates a repository for the given collection
func NewRepository[T any, PT interface {
	*T
	model.Document
}](docs DocumentStore, collection string) *Repository[T, PT] {
	return &Repository[T, PT]{docs: docs, collection: collection}
}

func (r *Repository[T, PT]) decode(rec Record) (PT, error) {
	doc := PT(new(T))
	if err := json.Unmarshal(rec.Body, doc); err != nil {
		return nil, fmt.Errorf("decoding %s document %s: %w", r.collection, rec.ID, err)
	}
	doc.SetDocumentID(rec.ID)
	doc.SetDocumentRevision(rec.Revision)
	doc.SetTimestamps(rec.CreatedAt, rec.UpdatedAt)
	if r.unseal != nil {
		if err := r.unseal(doc); err != nil {
			return nil, fmt.Errorf("unsealing %s document %s: %w", r.collection, rec.ID, err)
		}
	}
	return doc, nil
}

func (r *Repository[T, PT]) decodeAll(records []Record) ([]PT, error) {
	docs := make([]PT, 0, len(records))
	for _, rec := range records {
		doc, err := r.decode(rec)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (r *Repository[T, PT]) encode(doc PT) ([]byte, error) {
	if r.seal != nil {
		if err := r.seal(doc); err != nil {
			return nil, fmt.Errorf("sealing %s document: %w", r.collection, err)
		}
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encoding %s document: %w", r.collection, err)
	}
	return body, nil
}

// GetByID retrieves a document by ID, returning nil when it does not exist
func (r *Repository[T, PT]) GetByID(ctx context.Context, id uuid.UUID) (PT, error) {
	rec, err := r.docs.Get(ctx, r.collection, id)
	if err != nil || rec == nil {
		return nil, err
	}
	return r.decode(*rec)
}

// Find returns the documents matching filter in insertion order
func (r *Repository[T, PT]) Find(ctx context.Context, filter Filter) ([]PT, error) {
	records, err := r.docs.Find(ctx, r.collection, filter)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// FindByIDs returns the documents with the given ids in insertion order
func (r *Repository[T, PT]) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]PT, error) {
	records, err := r.docs.FindByIDs(ctx, r.collection, ids)
	if err != nil {
		return nil, err
	}
	return r.decodeAll(records)
}

// Create inserts a new document, assigning an ID when it has none
func (r *Repository[T, PT]) Create(ctx context.Context, doc PT) error {
	if doc.DocumentID() == uuid.Nil {
		doc.SetDocumentID(uuid.New())
	}
	body, err := r.encode(doc)
	if err != nil {
		return err
	}
	rec, err := r.docs.Insert(ctx, r.collection, doc.DocumentID(), body)
	if err != nil {
		return err
	}
	doc.SetDocumentRevision(rec.Revision)
	doc.SetTimestamps(rec.CreatedAt, rec.UpdatedAt)
	return nil
}

// Save writes the document back if nobody else saved it since it was read.
// A lost race returns ErrRevisionConflict.
func (r *Repository[T, PT]) Save(ctx context.Context, doc PT) error {
	body, err := r.encode(doc)
	if err != nil {
		return err
	}
	rec, err := r.docs.Update(ctx, r.collection, doc.DocumentID(), doc.DocumentRevision(), body)
	if err != nil {
		if errors.Is(err, ErrRevisionConflict) {
			monitoring.RevisionConflicts.WithLabelValues(r.collection).Inc()
		}
		return err
	}
	doc.SetDocumentRevision(rec.Revision)
	doc.SetTimestamps(rec.CreatedAt, rec.UpdatedAt)
	return nil
}

// Store groups the typed repositories of the marketplace.
type Store struct {
	Docs           DocumentStore
	Leases         *Repository[model.Lease, *model.Lease]
	Students       *Repository[model.Student, *model.Student]
	Landlords      *Repository[model.Landlord, *model.Landlord]
	Properties     *Repository[model.Property, *model.Property]
	Ownerships     *Repository[model.Ownership, *model.Ownership]
	Institutions   *Repository[model.Institution, *model.Institution]
	LeaseDocuments *Repository[model.LeaseDocument, *model.LeaseDocument]
}

// New wires the typed repositories over docs. Contact emails are sealed with
// cipher; with a nil cipher they are not persisted at all.
func New(docs DocumentStore, cipher *crypto.Cipher) *Store {
	s := &Store{
		Docs:           docs,
		Leases:         NewRepository[model.Lease](docs, CollectionLeases),
		Students:       NewRepository[model.Student](docs, CollectionStudents),
		Landlords:      NewRepository[model.Landlord](docs, CollectionLandlords),
		Properties:     NewRepository[model.Property](docs, CollectionProperties),
		Ownerships:     NewRepository[model.Ownership](docs, CollectionOwnerships),
		Institutions:   NewRepository[model.Institution](docs, CollectionInstitutions),
		LeaseDocuments: NewRepository[model.LeaseDocument](docs, CollectionLeaseDocuments),
	}

	if cipher != nil {
		s.Students.seal = func(st *model.Student) error {
			return sealEmail(cipher, st.Email, &st.EncryptedEmail, &st.EmailIV)
		}
		s.Students.unseal = func(st *model.Student) error {
			return unsealEmail(cipher, &st.Email, st.EncryptedEmail, st.EmailIV)
		}
		s.Landlords.seal = func(l *model.Landlord) error {
			return sealEmail(cipher, l.Email, &l.EncryptedEmail, &l.EmailIV)
		}
		s.Landlords.unseal = func(l *model.Landlord) error {
			return unsealEmail(cipher, &l.Email, l.EncryptedEmail, l.EmailIV)
		}
	}
	return s
}

// Close closes the underlying document store
func (s *Store) Close() error {
	return s.Docs.Close()
}

func sealEmail(c *crypto.Cipher, email string, encrypted, iv *[]byte) error {
	if email == "" {
		return nil
	}
	ct, nonce, err := c.Encrypt(email)
	if err != nil {
		return err
	}
	*encrypted = ct
	*iv = nonce
	return nil
}

func unsealEmail(c *crypto.Cipher, email *string, encrypted, iv []byte) error {
	if len(encrypted) == 0 || len(iv) == 0 {
		return nil
	}
	plaintext, err := c.Decrypt(encrypted, iv)
	if err != nil {
		return err
	}
	*email = plaintext
	return nil
}
