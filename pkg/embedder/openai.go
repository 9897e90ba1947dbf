package embedder

import (
	"context"
	"fmt"
	"strings"

	"github.com/perbu/flatrag/internal/openaierr"
	"github.com/perbu/flatrag/pkg/minirag"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Known output dimensions of OpenAI embedding models.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// OpenAIConfig configures an OpenAIEmbedder.
type OpenAIConfig struct {
	APIKey  string
	BaseURL string // Optional, for OpenAI-compatible servers
	Model   string

	// Dimension overrides the model's default output dimension. Required for
	// models not in the built-in table.
	Dimension int

	BatchSize         int     // Texts per API request, default 64
	Concurrency       int     // Parallel requests, default 4
	RequestsPerSecond float64 // Client-side rate limit, 0 disables it
}

// OpenAIEmbedder uses the OpenAI embeddings API
type OpenAIEmbedder struct {
	client      *openai.Client
	model       string
	dim         int
	sendDim     bool
	batchSize   int
	concurrency int
	limiter     *rate.Limiter
}

// NewOpenAIEmbedder creates an OpenAI embedder
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not set", minirag.ErrModelUnavailable)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}

	dim, known := modelDimensions[cfg.Model]
	sendDim := false
	if cfg.Dimension > 0 {
		sendDim = cfg.Dimension != dim && strings.HasPrefix(cfg.Model, "text-embedding-3")
		dim = cfg.Dimension
	} else if !known {
		return nil, fmt.Errorf("%w: unknown dimension for embedding model %q", minirag.ErrInvalidConfiguration, cfg.Model)
	}

	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 64
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	e := &OpenAIEmbedder{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		dim:         dim,
		sendDim:     sendDim,
		batchSize:   cfg.BatchSize,
		concurrency: cfg.Concurrency,
	}
	if cfg.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return e, nil
}

// Embed generates embeddings for texts, batching requests and running up to
// Concurrency of them in parallel. The first failing batch aborts the call.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: cannot embed empty text (input %d)", minirag.ErrEmbedding, i)
		}
	}

	embeddings := make([][]float32, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		g.Go(func() error {
			return e.embedBatch(gctx, texts[start:end], embeddings[start:end])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return embeddings, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string, out [][]float32) error {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %w", minirag.ErrEmbedding, err)
		}
	}

	req := openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: texts,
	}
	if e.sendDim {
		req.Dimensions = e.dim
	}

	resp, err := e.client.CreateEmbeddings(ctx, req)
	if err != nil {
		return classifyError(err)
	}
	if len(resp.Data) != len(texts) {
		return fmt.Errorf("%w: expected %d embeddings, got %d", minirag.ErrEmbedding, len(texts), len(resp.Data))
	}

	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) || out[d.Index] != nil {
			return fmt.Errorf("%w: invalid embedding index %d in response", minirag.ErrEmbedding, d.Index)
		}
		if len(d.Embedding) != e.dim {
			return fmt.Errorf("%w: %w", minirag.ErrEmbedding,
				&minirag.DimensionMismatchError{Expected: e.dim, Actual: len(d.Embedding), What: "embedding response"})
		}

		v := make([]float32, len(d.Embedding))
		for i := range d.Embedding {
			v[i] = float32(d.Embedding[i])
		}
		// L2 normalize so squared distance ranks like cosine similarity
		l2normalize(v)
		out[d.Index] = v
	}
	return nil
}

// classifyError maps API failures onto the embedding error taxonomy.
func classifyError(err error) error {
	if openaierr.ModelUnavailable(err) {
		return fmt.Errorf("%w: OpenAI API error: %w", minirag.ErrModelUnavailable, err)
	}
	return fmt.Errorf("%w: OpenAI API error: %w", minirag.ErrEmbedding, err)
}

// Dimension returns the embedding dimension
func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *OpenAIEmbedder) ModelInfo() string {
	return fmt.Sprintf("openai-%s-%d", e.model, e.dim)
}
