// package models defines the data model for the catalog synchronization engine
package models

import (
	"context"
)

// Entity is implemented by every persistent record kept by a [Collection].
type Entity interface {
	Key() string // Key returns the identifier the record is stored under
}

// Collection is a persistent keyed collection of entities of one kind.
//
// Implementations must make AddRange and UpdateRange all-or-nothing.
type Collection[T Entity] interface {
	All(ctx context.Context) ([]T, error)                      // All returns every record
	Find(ctx context.Context, match func(T) bool) ([]T, error) // Find returns the records accepted by match
	Add(ctx context.Context, entity T) error                   // Add inserts a single record
	AddRange(ctx context.Context, entities []T) error          // AddRange inserts records in one batch
	Update(ctx context.Context, entity T) error                // Update replaces a stored record
	UpdateRange(ctx context.Context, entities []T) error       // UpdateRange replaces records in one batch
}

// FileKind names a family of cached files.
type FileKind string

// PosterKind is the file kind used for release poster images.
const PosterKind FileKind = "Poster"

// FileCache stores downloaded files keyed by kind and release id.
type FileCache interface {
	Exists(kind FileKind, id int64) (bool, error)
	Delete(kind FileKind, id int64) error
}
