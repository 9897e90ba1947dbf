package embcache

import (
	"context"
	"fmt"

	"github.com/perbu/flatrag/pkg/embedder"
	"github.com/perbu/flatrag/pkg/minirag"
)

// CachingEmbedder serves vectors from a Cache and embeds only the misses.
type CachingEmbedder struct {
	inner embedder.Embedder
	cache *Cache
}

var _ embedder.Embedder = (*CachingEmbedder)(nil)

// NewCachingEmbedder wraps inner with cache.
func NewCachingEmbedder(inner embedder.Embedder, cache *Cache) *CachingEmbedder {
	return &CachingEmbedder{inner: inner, cache: cache}
}

// Embed returns one vector per text, in order. Errors of the wrapped embedder
// are returned unchanged.
func (c *CachingEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := c.inner.ModelInfo()
	dim := c.inner.Dimension()

	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		vec, ok, err := c.cache.Get(ctx, model, text)
		if err != nil {
			return nil, err
		}
		if ok && len(vec) == dim {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vecs, err := c.inner.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", minirag.ErrEmbedding, len(missTexts), len(vecs))
	}
	if err := c.cache.Put(ctx, model, missTexts, vecs); err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vecs[j]
	}
	return out, nil
}

// Dimension returns the wrapped embedder's dimension.
func (c *CachingEmbedder) Dimension() int {
	return c.inner.Dimension()
}

// ModelInfo returns the wrapped embedder's model information.
func (c *CachingEmbedder) ModelInfo() string {
	return c.inner.ModelInfo()
}
