package minirag

import (
	"cmp"
	"fmt"
	"slices"
)

// SquaredL2 computes the squared Euclidean distance between two vectors.
// Assumes vectors are the same length (caller's responsibility).
func SquaredL2(a, b []float32) float32 {
	var sum float32
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Search returns the k entries closest to query, nearest first.
// Equal distances are ordered by ascending id. Fewer than k results are
// returned when the index holds fewer entries.
func (idx *Index) Search(query []float32, k int) ([]SearchResult, error) {
	if len(query) != idx.dim {
		return nil, &DimensionMismatchError{Expected: idx.dim, Actual: len(query), What: "query"}
	}
	if err := checkFinite(query); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be > 0, got %d", ErrInvalidConfiguration, k)
	}

	n := idx.Len()
	results := make([]SearchResult, n)
	for id := 0; id < n; id++ {
		results[id] = SearchResult{
			ID:       id,
			Payload:  idx.payloads[id],
			Distance: SquaredL2(query, idx.row(id)),
		}
	}

	// Stable ordering by (distance, id) keeps results deterministic.
	slices.SortFunc(results, func(a, b SearchResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}
