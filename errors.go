package annforest

import (
	"errors"
	"fmt"

	"github.com/hupe1980/annforest/forest"
	"github.com/hupe1980/annforest/persistence"
	"github.com/hupe1980/annforest/vectorstore"
)

var (
	// ErrNotFound is returned when an item id is not in the store.
	ErrNotFound = errors.New("not found")

	// ErrInvalidK is returned when k is not positive.
	ErrInvalidK = errors.New("k must be positive")

	// ErrEmptyStore is returned when building from, or querying
	// against, a store with no items.
	ErrEmptyStore = errors.New("store is empty")

	// ErrDuplicateID is returned when an id is added twice.
	ErrDuplicateID = errors.New("duplicate id")

	// ErrInvalidConfig is returned for out-of-range build parameters.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrCorruptData is returned when a persisted index fails
	// structural or checksum validation.
	ErrCorruptData = errors.New("corrupt index data")
)

// ErrDimensionMismatch indicates a vector whose dimensionality differs
// from the index's.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// translateError maps subpackage errors onto the package's unified
// error kinds, preserving the original error chain.
func translateError(err error) error {
	if err == nil {
		return nil
	}

	var snf *vectorstore.ErrIDNotFound
	if errors.As(err, &snf) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	var sdm *vectorstore.ErrDimensionMismatch
	if errors.As(err, &sdm) {
		return &ErrDimensionMismatch{Expected: sdm.Expected, Actual: sdm.Actual, cause: err}
	}

	var fdm *forest.ErrDimensionMismatch
	if errors.As(err, &fdm) {
		return &ErrDimensionMismatch{Expected: fdm.Expected, Actual: fdm.Actual, cause: err}
	}

	var dup *vectorstore.ErrDuplicateID
	if errors.As(err, &dup) {
		return fmt.Errorf("%w: %w", ErrDuplicateID, err)
	}

	var cfg *forest.ErrInvalidConfig
	if errors.As(err, &cfg) {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	var tag *persistence.ErrUnknownNodeTag
	if errors.Is(err, persistence.ErrCorrupted) ||
		errors.Is(err, persistence.ErrInvalidMagic) ||
		errors.Is(err, persistence.ErrInvalidVersion) ||
		errors.As(err, &tag) {
		return fmt.Errorf("%w: %w", ErrCorruptData, err)
	}

	if errors.Is(err, forest.ErrEmptyStore) {
		return fmt.Errorf("%w: %w", ErrEmptyStore, err)
	}

	if errors.Is(err, forest.ErrInvalidK) {
		return fmt.Errorf("%w: %w", ErrInvalidK, err)
	}

	return err
}
