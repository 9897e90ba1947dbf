package minirag

import (
	"fmt"
	"math"
	"slices"
)

// Index is an append-only, brute-force vector index.
//
// Vectors are stored row-major in a single slice; the row number is the entry id.
// Index has no internal locking: build it from one goroutine, then query it.
// Concurrent Search calls are safe only while no Add or Load is running.
type Index struct {
	dim      int
	vectors  []float32
	payloads []string
	opts     options
}

// New creates an empty index for vectors of the given dimension.
func New(dimension int, opts ...Option) (*Index, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: dimension must be > 0, got %d", ErrInvalidConfiguration, dimension)
	}
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}
	return &Index{dim: dimension, opts: o}, nil
}

// Add appends vectors with their payloads. Ids continue from the current size.
// Either every entry is appended or, on error, none is.
func (idx *Index) Add(vectors [][]float32, payloads []string) error {
	if len(vectors) != len(payloads) {
		return &DimensionMismatchError{Expected: len(vectors), Actual: len(payloads), What: "payload count"}
	}
	for i, v := range vectors {
		if len(v) != idx.dim {
			return &DimensionMismatchError{Expected: idx.dim, Actual: len(v), What: fmt.Sprintf("vector %d", i)}
		}
		if err := checkFinite(v); err != nil {
			return fmt.Errorf("vector %d: %w", i, err)
		}
	}

	idx.vectors = slices.Grow(idx.vectors, len(vectors)*idx.dim)
	for _, v := range vectors {
		idx.vectors = append(idx.vectors, v...)
	}
	idx.payloads = append(idx.payloads, payloads...)
	return nil
}

// Len returns the number of stored entries.
func (idx *Index) Len() int {
	return len(idx.payloads)
}

// Dimension returns the configured vector dimension.
func (idx *Index) Dimension() int {
	return idx.dim
}

// Vector returns a copy of the vector stored under id.
func (idx *Index) Vector(id int) ([]float32, bool) {
	if id < 0 || id >= idx.Len() {
		return nil, false
	}
	return slices.Clone(idx.row(id)), true
}

// Payload returns the payload stored under id.
func (idx *Index) Payload(id int) (string, bool) {
	if id < 0 || id >= idx.Len() {
		return "", false
	}
	return idx.payloads[id], true
}

func (idx *Index) row(id int) []float32 {
	return idx.vectors[id*idx.dim : (id+1)*idx.dim]
}

// checkFinite rejects NaN and infinite components, which have no place in
// the (distance, id) ordering.
func checkFinite(v []float32) error {
	for j, x := range v {
		if math.IsNaN(float64(x)) || math.IsInf(float64(x), 0) {
			return fmt.Errorf("%w: component %d is %v", ErrNonFiniteVector, j, x)
		}
	}
	return nil
}
