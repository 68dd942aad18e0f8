package store

import (
	"context"

	"github.com/BrandonDHaskell/Registrar/server/internal/registrar/types"
)

// RecordStore owns the canonical entity map.  Every operation touches a
// single entity and is atomic: it either fully applies or leaves the store
// unchanged.
type RecordStore interface {
	Get(ctx context.Context, id string) (types.Entity, error)
	// List returns entities in insertion order.
	List(ctx context.Context) ([]types.Entity, error)
	// Upsert replaces the entity with the same id, or appends a new one.
	// Content is not validated.
	Upsert(ctx context.Context, e types.Entity) error
	Delete(ctx context.Context, id string) error
}
