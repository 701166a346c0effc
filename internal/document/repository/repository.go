package repository

import (
	"context"

	"github.com/nexabuild/go-services/internal/document"
)

// Repository persists document records. Every method is a single atomic
// storage operation; there is no cross-call transaction.
type Repository interface {
	// Upsert inserts rec or fully replaces the data of the existing
	// (collection, id) row, leaving its created_at untouched.
	Upsert(ctx context.Context, rec *document.Record) error
	// List returns the collection's records, most recently created first.
	// Unknown collections yield an empty slice.
	List(ctx context.Context, collection string) ([]*document.Record, error)
	// Delete removes the row if present. Absent rows are not an error.
	Delete(ctx context.Context, collection, id string) error
	Ping(ctx context.Context) error
}
