// Package pipeline wires document loading, chunking, embedding, vector search
// and answer generation into a single retrieval-augmented query.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/perbu/flatrag/pkg/embedder"
	"github.com/perbu/flatrag/pkg/generator"
	"github.com/perbu/flatrag/pkg/loader"
	"github.com/perbu/flatrag/pkg/minirag"
)

// Pipeline answers queries from a document collection.
//
// Without WithIndexCache or WithIndex every call rebuilds the index from the
// source. Any failing step aborts the call; nothing is retried.
type Pipeline struct {
	source    loader.Source
	embedder  embedder.Embedder
	generator generator.Generator
	opts      options

	mu          sync.Mutex
	cached      *minirag.Index
	fingerprint string
}

// New creates a pipeline. src may be nil when WithIndex is used.
func New(src loader.Source, emb embedder.Embedder, gen generator.Generator, opts ...Option) (*Pipeline, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	if emb == nil || gen == nil {
		return nil, fmt.Errorf("%w: embedder and generator are required", minirag.ErrInvalidConfiguration)
	}
	if src == nil && o.index == nil {
		return nil, fmt.Errorf("%w: a document source or a prebuilt index is required", minirag.ErrInvalidConfiguration)
	}
	if o.chunkSize <= 0 || o.overlap < 0 || o.overlap >= o.chunkSize {
		return nil, fmt.Errorf("%w: chunk size %d with overlap %d", minirag.ErrInvalidConfiguration, o.chunkSize, o.overlap)
	}
	if o.topK <= 0 {
		return nil, fmt.Errorf("%w: top k must be > 0, got %d", minirag.ErrInvalidConfiguration, o.topK)
	}
	if o.index != nil && o.index.Dimension() != emb.Dimension() {
		return nil, &minirag.DimensionMismatchError{Expected: o.index.Dimension(), Actual: emb.Dimension(), What: "embedder for prebuilt index"}
	}

	return &Pipeline{source: src, embedder: emb, generator: gen, opts: o}, nil
}

// Answer retrieves the passages closest to query and asks the generator for
// an answer based on them.
func (p *Pipeline) Answer(ctx context.Context, query string) (string, error) {
	answer, _, err := p.AnswerWithResults(ctx, query)
	return answer, err
}

// AnswerWithResults is Answer that also returns the passages the answer was
// generated from, nearest first. The query is embedded once.
func (p *Pipeline) AnswerWithResults(ctx context.Context, query string) (string, []minirag.SearchResult, error) {
	results, err := p.Retrieve(ctx, query)
	if err != nil {
		return "", nil, err
	}

	start := time.Now()
	answer, err := p.generator.Generate(ctx, query, minirag.Payloads(results))
	if err != nil {
		return "", nil, fmt.Errorf("generating answer: %w", err)
	}
	p.opts.logger.DebugContext(ctx, "answer generated", "contexts", len(results), "duration", time.Since(start))
	return answer, results, nil
}

// Retrieve returns the top-k passages for query, nearest first.
func (p *Pipeline) Retrieve(ctx context.Context, query string) ([]minirag.SearchResult, error) {
	idx, err := p.index(ctx)
	if err != nil {
		return nil, err
	}

	vecs, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: expected 1 query embedding, got %d", minirag.ErrEmbedding, len(vecs))
	}

	results, err := idx.Search(vecs[0], p.opts.topK)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}
	p.opts.logger.DebugContext(ctx, "search completed", "k", p.opts.topK, "results", len(results), "size", idx.Len())
	return results, nil
}

// BuildIndex loads, chunks and embeds the documents and returns a new index
// holding one entry per chunk, with the chunk text as payload.
func (p *Pipeline) BuildIndex(ctx context.Context) (*minirag.Index, error) {
	docs, err := p.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	return p.build(ctx, docs)
}

func (p *Pipeline) index(ctx context.Context) (*minirag.Index, error) {
	if p.opts.index != nil {
		return p.opts.index, nil
	}
	if !p.opts.cacheIndex {
		return p.BuildIndex(ctx)
	}

	docs, err := p.listDocuments(ctx)
	if err != nil {
		return nil, err
	}
	fp := p.fingerprintOf(docs)

	p.mu.Lock()
	cached, cachedFP := p.cached, p.fingerprint
	p.mu.Unlock()
	if cached != nil && cachedFP == fp {
		p.opts.logger.DebugContext(ctx, "index cache hit", "fingerprint", fp[:12])
		return cached, nil
	}

	idx, err := p.build(ctx, docs)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.cached, p.fingerprint = idx, fp
	p.mu.Unlock()
	return idx, nil
}

func (p *Pipeline) listDocuments(ctx context.Context) ([]string, error) {
	if p.source == nil {
		return nil, fmt.Errorf("%w: no document source configured", minirag.ErrInvalidConfiguration)
	}
	docs, err := p.source.ListDocuments(ctx, p.opts.location)
	if err != nil {
		if !errors.Is(err, minirag.ErrIO) {
			err = fmt.Errorf("%w: %w", minirag.ErrIO, err)
		}
		return nil, fmt.Errorf("loading documents from %q: %w", p.opts.location, err)
	}
	p.opts.logger.InfoContext(ctx, "documents loaded", "location", p.opts.location, "count", len(docs))
	return docs, nil
}

func (p *Pipeline) build(ctx context.Context, docs []string) (*minirag.Index, error) {
	start := time.Now()

	chunks, err := minirag.Split(docs, p.opts.chunkSize, p.opts.overlap)
	if err != nil {
		return nil, fmt.Errorf("chunking documents: %w", err)
	}
	texts := minirag.Texts(chunks)
	if p.opts.dropBlank {
		texts = dropBlank(texts)
	}

	var vectors [][]float32
	if len(texts) > 0 {
		vectors, err = p.embedder.Embed(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks: %w", err)
		}
		if len(vectors) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", minirag.ErrEmbedding, len(texts), len(vectors))
		}
	}

	dim := p.embedder.Dimension()
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	idx, err := minirag.New(dim, p.opts.indexOpts...)
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	if err := idx.Add(vectors, texts); err != nil {
		return nil, fmt.Errorf("adding embeddings: %w", err)
	}

	p.opts.logger.InfoContext(ctx, "index built",
		"documents", len(docs),
		"chunks", len(chunks),
		"entries", idx.Len(),
		"dimension", dim,
		"duration", time.Since(start),
	)
	return idx, nil
}

// fingerprintOf identifies a document set together with everything else that
// shapes the built index.
func (p *Pipeline) fingerprintOf(docs []string) string {
	h := sha256.New()
	var buf [8]byte
	writeString := func(s string) {
		binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
		h.Write(buf[:])
		h.Write([]byte(s))
	}

	writeString(p.embedder.ModelInfo())
	writeString(fmt.Sprintf("%d/%d/%t", p.opts.chunkSize, p.opts.overlap, p.opts.dropBlank))
	for _, d := range docs {
		writeString(d)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func dropBlank(texts []string) []string {
	out := texts[:0:0]
	for _, t := range texts {
		if strings.TrimSpace(t) != "" {
			out = append(out, t)
		}
	}
	return out
}
