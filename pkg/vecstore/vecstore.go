// Package vecstore provides nearest-neighbor search over speaker
// embeddings.
//
// The [Index] interface is the contract the identification path searches
// against. [Memory] is an exact brute-force implementation ranked by cosine
// similarity; it is the right size for enrollment catalogs of a few
// thousand speakers.
package vecstore

import "errors"

// ErrDimensionMismatch is returned when a vector's length differs from the
// index dimension.
var ErrDimensionMismatch = errors.New("vecstore: dimension mismatch")

// ErrZeroVector is returned when a vector has zero magnitude and therefore
// no direction to compare.
var ErrZeroVector = errors.New("vecstore: zero vector")

// Index is the interface for nearest-neighbor search over dense float32
// vectors.
//
// All implementations must be safe for concurrent use.
type Index interface {
	// Insert adds or replaces the vector stored under id.
	Insert(id string, vector []float32) error

	// BatchInsert adds or replaces several vectors. ids and vectors must
	// have the same length.
	BatchInsert(ids []string, vectors [][]float32) error

	// Search returns up to topK vectors most similar to query, best first.
	Search(query []float32, topK int) ([]Match, error)

	// Delete removes a vector by ID. No error if ID does not exist.
	Delete(id string) error

	// Len returns the number of vectors in the index.
	Len() int

	// Dimension returns the vector length the index accepts, or 0 while
	// the index is empty and no dimension was fixed.
	Dimension() int

	// Close releases resources held by the index.
	Close() error
}

// Match is a single search result.
type Match struct {
	ID string

	// Score is the cosine similarity in [-1, 1]; higher is closer.
	Score float64
}
