package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/perbu/flatrag/pkg/minirag"
)

// Embedder maps texts to fixed-dimension vectors, one per input, in input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
	ModelInfo() string
}

// SimpleEmbedder is an offline embedder based on feature hashing of lowercase
// words. Texts sharing words land close to each other, which is enough for
// tests and demos without an API key.
type SimpleEmbedder struct {
	dim int
}

// NewSimpleEmbedder creates a hashing embedder with the given dimension.
func NewSimpleEmbedder(dimension int) (*SimpleEmbedder, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("%w: embedding dimension must be > 0, got %d", minirag.ErrInvalidConfiguration, dimension)
	}
	return &SimpleEmbedder{dim: dimension}, nil
}

// Embed generates embeddings for texts
func (e *SimpleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", minirag.ErrEmbedding, err)
		}
		embeddings[i] = e.embedOne(text)
	}
	return embeddings, nil
}

func (e *SimpleEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, w := range words {
		h := fnv.New64a()
		_, _ = h.Write([]byte(w))
		sum := h.Sum64()
		sign := float32(1)
		if sum&(1<<63) != 0 {
			sign = -1
		}
		vec[sum%uint64(e.dim)] += sign
	}
	l2normalize(vec)
	return vec
}

// Dimension returns the embedding dimension
func (e *SimpleEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *SimpleEmbedder) ModelInfo() string {
	return fmt.Sprintf("simple-hash-%d", e.dim)
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float32
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range v {
		v[i] *= inv
	}
}
