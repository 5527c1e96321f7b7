// Package vectorstore provides the canonical in-memory storage for vectors.
//
// The store is append-only during the load phase and read-only afterwards.
// Vectors are held in a single contiguous float32 arena (SOA layout) so that
// sequential scans during index construction stay cache-friendly.
//
// IDs are dense uint32 values assigned in insertion order: the first vector
// gets id 0, the next id 1, and so on. The builder and query engine rely on
// this density to address vectors without indirection.
package vectorstore

import (
	"errors"
	"fmt"
)

// ErrEmptyVector is returned when an empty vector is added.
var ErrEmptyVector = errors.New("vectorstore: empty vector")

// ErrDimensionMismatch indicates a vector whose length differs from the
// dimensionality established by the first insertion.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// ErrDuplicateID indicates an Add with an id that is already present.
type ErrDuplicateID struct {
	ID uint32
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("vectorstore: duplicate id %d", e.ID)
}

// ErrIDNotFound indicates a lookup for an id that has never been added.
type ErrIDNotFound struct {
	ID uint32
}

func (e *ErrIDNotFound) Error() string {
	return fmt.Sprintf("vectorstore: id %d not found", e.ID)
}

// ErrNonContiguousID indicates an Add with an id ahead of the next dense id.
// IDs must be assigned in insertion order without gaps.
type ErrNonContiguousID struct {
	ID   uint32
	Next uint32
}

func (e *ErrNonContiguousID) Error() string {
	return fmt.Sprintf("vectorstore: non-contiguous id %d (next expected id is %d)", e.ID, e.Next)
}

// Store is a fixed-dimension, append-only vector store.
//
// It is not safe for concurrent mutation; populate it fully before sharing.
// Once populated it is read-only and safe for unsynchronized concurrent reads.
type Store struct {
	dim  int
	data []float32
	size int
}

// New creates an empty store. The dimensionality is established by the
// first Add.
func New() *Store {
	return &Store{}
}

// NewWithDimension creates an empty store with a fixed dimensionality.
func NewWithDimension(dim int) *Store {
	return &Store{dim: dim}
}

// NewWithCapacity creates an empty store with a fixed dimensionality and
// backing storage preallocated for n vectors.
func NewWithCapacity(dim, n int) *Store {
	return &Store{
		dim:  dim,
		data: make([]float32, 0, dim*n),
	}
}

// Add stores a vector under the given id.
//
// The id must equal Size() (dense insertion order). An id below Size()
// returns *ErrDuplicateID, an id above it *ErrNonContiguousID. A vector
// whose length differs from the established dimensionality returns
// *ErrDimensionMismatch. The vector is copied; the caller keeps ownership
// of its slice.
func (s *Store) Add(id uint32, v []float32) error {
	if len(v) == 0 {
		return ErrEmptyVector
	}

	if s.dim == 0 && s.size == 0 {
		// First insertion establishes the dimensionality.
		s.dim = len(v)
	}

	if len(v) != s.dim {
		return &ErrDimensionMismatch{Expected: s.dim, Actual: len(v)}
	}

	next := uint32(s.size)
	if id < next {
		return &ErrDuplicateID{ID: id}
	}
	if id > next {
		return &ErrNonContiguousID{ID: id, Next: next}
	}

	s.data = append(s.data, v...)
	s.size++

	return nil
}

// Append stores a vector under the next dense id and returns that id.
func (s *Store) Append(v []float32) (uint32, error) {
	id := uint32(s.size)
	if err := s.Add(id, v); err != nil {
		return 0, err
	}
	return id, nil
}

// Get returns the vector stored under id.
//
// The returned slice aliases the store's internal arena and must be treated
// as read-only.
func (s *Store) Get(id uint32) ([]float32, error) {
	if int(id) >= s.size {
		return nil, &ErrIDNotFound{ID: id}
	}
	off := int(id) * s.dim
	return s.data[off : off+s.dim : off+s.dim], nil
}

// Dimension returns the vector dimensionality, or 0 before the first Add.
func (s *Store) Dimension() int {
	return s.dim
}

// Size returns the number of stored vectors.
func (s *Store) Size() int {
	return s.size
}
