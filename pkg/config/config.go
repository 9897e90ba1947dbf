// Package config gathers runtime settings from .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/perbu/flatrag/pkg/minirag"
	"github.com/perbu/flatrag/pkg/pipeline"
)

// Config holds every setting the commands need. Flags may override fields
// after Load.
type Config struct {
	OpenAIKey     string
	OpenAIBaseURL string

	EmbeddingModel     string
	EmbeddingDimension int // 0 uses the model default
	ChatModel          string

	DocsDir   string
	ChunkSize int
	Overlap   int
	TopK      int

	IndexDir    string
	CachePath   string // SQLite embedding cache, empty disables it
	Compression string

	RequestsPerSecond float64
	Concurrency       int

	S3Endpoint  string
	S3Bucket    string
	S3Prefix    string
	S3AccessKey string
	S3SecretKey string
	S3Region    string
	S3Secure    bool
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		EmbeddingModel: "text-embedding-3-small",
		ChatModel:      "gpt-4o-mini",
		DocsDir:        "docs",
		ChunkSize:      pipeline.DefaultChunkSize,
		Overlap:        pipeline.DefaultOverlap,
		TopK:           pipeline.DefaultTopK,
		IndexDir:       "index",
		Compression:    "zstd",
		Concurrency:    4,
		S3Secure:       true,
	}
}

// Load reads the given .env files (".env" when none are named; missing files
// are ignored) and then applies environment variables over Default.
func Load(envFiles ...string) (Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("%w: loading %s: %w", minirag.ErrInvalidConfiguration, f, err)
		}
	}

	cfg := Default()
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := os.LookupEnv(key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("OPENAI_API_KEY", &cfg.OpenAIKey)
	str("OPENAI_BASE_URL", &cfg.OpenAIBaseURL)
	str("FLATRAG_EMBEDDING_MODEL", &cfg.EmbeddingModel)
	num("FLATRAG_EMBEDDING_DIMENSION", &cfg.EmbeddingDimension)
	str("FLATRAG_CHAT_MODEL", &cfg.ChatModel)
	str("FLATRAG_DOCS", &cfg.DocsDir)
	num("FLATRAG_CHUNK_SIZE", &cfg.ChunkSize)
	num("FLATRAG_OVERLAP", &cfg.Overlap)
	num("FLATRAG_TOP_K", &cfg.TopK)
	str("FLATRAG_INDEX_DIR", &cfg.IndexDir)
	str("FLATRAG_CACHE", &cfg.CachePath)
	str("FLATRAG_COMPRESSION", &cfg.Compression)
	num("FLATRAG_CONCURRENCY", &cfg.Concurrency)
	str("FLATRAG_S3_ENDPOINT", &cfg.S3Endpoint)
	str("FLATRAG_S3_BUCKET", &cfg.S3Bucket)
	str("FLATRAG_S3_PREFIX", &cfg.S3Prefix)
	str("FLATRAG_S3_ACCESS_KEY", &cfg.S3AccessKey)
	str("FLATRAG_S3_SECRET_KEY", &cfg.S3SecretKey)
	str("FLATRAG_S3_REGION", &cfg.S3Region)

	if v, ok := os.LookupEnv("FLATRAG_RPS"); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("FLATRAG_RPS: %w", err))
		} else {
			cfg.RequestsPerSecond = f
		}
	}
	if v, ok := os.LookupEnv("FLATRAG_S3_SECURE"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("FLATRAG_S3_SECURE: %w", err))
		} else {
			cfg.S3Secure = b
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, fmt.Errorf("%w: %w", minirag.ErrInvalidConfiguration, err)
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.ChunkSize <= 0:
		return fmt.Errorf("%w: chunk size must be > 0, got %d", minirag.ErrInvalidConfiguration, c.ChunkSize)
	case c.Overlap < 0 || c.Overlap >= c.ChunkSize:
		return fmt.Errorf("%w: overlap must be >= 0 and < chunk size, got %d", minirag.ErrInvalidConfiguration, c.Overlap)
	case c.TopK <= 0:
		return fmt.Errorf("%w: top k must be > 0, got %d", minirag.ErrInvalidConfiguration, c.TopK)
	case c.RequestsPerSecond < 0:
		return fmt.Errorf("%w: requests per second must be >= 0", minirag.ErrInvalidConfiguration)
	}
	if _, err := minirag.ParseCompression(c.Compression); err != nil {
		return err
	}
	return nil
}

// UseObjectStore reports whether documents come from an S3-compatible bucket.
func (c Config) UseObjectStore() bool {
	return c.S3Endpoint != "" && c.S3Bucket != ""
}
