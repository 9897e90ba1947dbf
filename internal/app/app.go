// Package app builds the collaborators shared by the commands from a Config.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/perbu/flatrag/pkg/config"
	"github.com/perbu/flatrag/pkg/embcache"
	"github.com/perbu/flatrag/pkg/embedder"
	"github.com/perbu/flatrag/pkg/generator"
	"github.com/perbu/flatrag/pkg/loader"
	"github.com/perbu/flatrag/pkg/minirag"
)

// OfflineDimension is the vector size of the hashing embedder used offline.
const OfflineDimension = 384

// NewLogger returns a text logger on stderr.
func NewLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewEmbedder returns the configured embedder, wrapped with the SQLite cache
// when cfg.CachePath is set. The closer releases the cache.
func NewEmbedder(cfg config.Config, offline bool) (embedder.Embedder, io.Closer, error) {
	var emb embedder.Embedder
	if offline {
		e, err := embedder.NewSimpleEmbedder(OfflineDimension)
		if err != nil {
			return nil, nil, err
		}
		emb = e
	} else {
		e, err := embedder.NewOpenAIEmbedder(embedder.OpenAIConfig{
			APIKey:            cfg.OpenAIKey,
			BaseURL:           cfg.OpenAIBaseURL,
			Model:             cfg.EmbeddingModel,
			Dimension:         cfg.EmbeddingDimension,
			Concurrency:       cfg.Concurrency,
			RequestsPerSecond: cfg.RequestsPerSecond,
		})
		if err != nil {
			return nil, nil, err
		}
		emb = e
	}

	if cfg.CachePath == "" {
		return emb, nopCloser{}, nil
	}
	cache, err := embcache.Open(cfg.CachePath)
	if err != nil {
		return nil, nil, err
	}
	return embcache.NewCachingEmbedder(emb, cache), cache, nil
}

// NewGenerator returns the OpenAI generator, or the extractive one offline.
func NewGenerator(cfg config.Config, offline bool) (generator.Generator, error) {
	if offline {
		return generator.ExtractiveGenerator{}, nil
	}
	return generator.NewOpenAIGenerator(generator.OpenAIConfig{
		APIKey:  cfg.OpenAIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   cfg.ChatModel,
	})
}

// NewSource returns the document source and the location to list.
func NewSource(cfg config.Config) (loader.Source, string, error) {
	if !cfg.UseObjectStore() {
		return loader.DirSource{}, cfg.DocsDir, nil
	}
	src, err := loader.NewObjectSource(loader.ObjectConfig{
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Secure:    cfg.S3Secure,
	})
	if err != nil {
		return nil, "", err
	}
	return src, cfg.S3Prefix, nil
}

// IndexOptions maps the configured compression onto index options.
func IndexOptions(cfg config.Config) ([]minirag.Option, error) {
	c, err := minirag.ParseCompression(cfg.Compression)
	if err != nil {
		return nil, err
	}
	return []minirag.Option{minirag.WithCompression(c)}, nil
}

// LoadIndex opens a saved index directory for an embedder of dimension dim.
func LoadIndex(dir string, dim int) (*minirag.Index, error) {
	idx, err := minirag.New(dim)
	if err != nil {
		return nil, err
	}
	if err := idx.Load(dir); err != nil {
		return nil, fmt.Errorf("loading index from %s: %w", dir, err)
	}
	return idx, nil
}
