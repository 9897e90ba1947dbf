package minirag

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfiguration is returned for bad chunking or index parameters.
	ErrInvalidConfiguration = errors.New("invalid configuration")
	// ErrDimensionMismatch is returned when a vector length disagrees with the index dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNonFiniteVector is returned for vectors holding NaN or infinite components.
	ErrNonFiniteVector = errors.New("non-finite vector component")
	// ErrPersistence is returned when saving or loading an index fails.
	ErrPersistence = errors.New("persistence error")
	// ErrIO is returned when documents cannot be read from their source.
	ErrIO = errors.New("i/o error")
	// ErrModelUnavailable is returned when an embedding or generation model cannot be used.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrEmbedding is returned when the embedding provider fails.
	ErrEmbedding = errors.New("embedding error")
	// ErrGeneration is returned when the answer generator fails.
	ErrGeneration = errors.New("generation error")
)

// DimensionMismatchError reports the expected and actual vector length.
//
// It matches ErrDimensionMismatch with errors.Is.
type DimensionMismatchError struct {
	Expected int
	Actual   int
	What     string
}

func (e *DimensionMismatchError) Error() string {
	if e.What != "" {
		return fmt.Sprintf("dimension mismatch: %s: expected %d, got %d", e.What, e.Expected, e.Actual)
	}
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *DimensionMismatchError) Unwrap() error { return ErrDimensionMismatch }
