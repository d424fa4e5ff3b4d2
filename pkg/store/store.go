// Package store persists generated layouts so they can be fetched, verified
// and re-rendered by ID.
//
// Two backends are provided: [Memory] for the CLI and tests, and [Mongo]
// for the HTTP server.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/fieldbook/pkg/design"
	"github.com/matzehuels/fieldbook/pkg/fieldbook"
)

// Record is one stored layout.
type Record struct {
	ID        string          `json:"id" bson:"_id"`
	Name      string          `json:"name,omitempty" bson:"name,omitempty"`
	Options   design.Options  `json:"options" bson:"options"`
	Book      *fieldbook.Book `json:"book" bson:"book"`
	CreatedAt time.Time       `json:"created_at" bson:"created_at"`
}

// NewRecord wraps a book in a record with a fresh ID. The book's ID and
// creation time are set to match.
func NewRecord(name string, opts design.Options, book *fieldbook.Book) *Record {
	now := time.Now().UTC().Truncate(time.Millisecond)
	id := uuid.NewString()
	book.ID = id
	book.CreatedAt = now
	return &Record{
		ID:        id,
		Name:      name,
		Options:   opts,
		Book:      book,
		CreatedAt: now,
	}
}

// Store persists records.
type Store interface {
	// Save inserts or replaces a record.
	Save(ctx context.Context, rec *Record) error
	// Get returns a record, or an error with code NOT_FOUND.
	Get(ctx context.Context, id string) (*Record, error)
	// List returns up to limit records, newest first. limit <= 0 means all.
	List(ctx context.Context, limit int) ([]*Record, error)
	// Delete removes a record, or returns NOT_FOUND.
	Delete(ctx context.Context, id string) error
	Close(ctx context.Context) error
}

// ValidID reports whether id is a well-formed record ID.
func ValidID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
