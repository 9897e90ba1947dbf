package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/perbu/flatrag/pkg/config"
	"github.com/perbu/flatrag/pkg/embcache"
	"github.com/perbu/flatrag/pkg/generator"
	"github.com/perbu/flatrag/pkg/loader"
	"github.com/perbu/flatrag/pkg/minirag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedderOffline(t *testing.T) {
	cfg := config.Default()
	emb, closer, err := NewEmbedder(cfg, true)
	require.NoError(t, err)
	require.NoError(t, closer.Close())
	assert.Equal(t, OfflineDimension, emb.Dimension())
}

func TestNewEmbedderWithCache(t *testing.T) {
	cfg := config.Default()
	cfg.CachePath = filepath.Join(t.TempDir(), "cache.db")

	emb, closer, err := NewEmbedder(cfg, true)
	require.NoError(t, err)
	defer closer.Close()
	require.IsType(t, &embcache.CachingEmbedder{}, emb)

	vecs, err := emb.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	require.Len(t, vecs, 1)
}

func TestNewEmbedderRequiresKey(t *testing.T) {
	cfg := config.Default()
	_, _, err := NewEmbedder(cfg, false)
	require.ErrorIs(t, err, minirag.ErrModelUnavailable)
}

func TestNewGeneratorOffline(t *testing.T) {
	gen, err := NewGenerator(config.Default(), true)
	require.NoError(t, err)
	assert.IsType(t, generator.ExtractiveGenerator{}, gen)
}

func TestNewSource(t *testing.T) {
	cfg := config.Default()
	cfg.DocsDir = "testdocs"
	src, location, err := NewSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, loader.DirSource{}, src)
	assert.Equal(t, "testdocs", location)

	cfg.S3Endpoint = "localhost:9000"
	cfg.S3Bucket = "docs"
	cfg.S3Prefix = "kb/"
	cfg.S3AccessKey = "minio"
	cfg.S3SecretKey = "minio123"
	cfg.S3Secure = false
	src, location, err = NewSource(cfg)
	require.NoError(t, err)
	assert.IsType(t, &loader.ObjectSource{}, src)
	assert.Equal(t, "kb/", location)
}

func TestIndexOptionsAndLoad(t *testing.T) {
	cfg := config.Default()
	cfg.Compression = "brotli"
	_, err := IndexOptions(cfg)
	require.ErrorIs(t, err, minirag.ErrInvalidConfiguration)

	cfg.Compression = "lz4"
	opts, err := IndexOptions(cfg)
	require.NoError(t, err)

	idx, err := minirag.New(2, opts...)
	require.NoError(t, err)
	require.NoError(t, idx.Add([][]float32{{1, 2}}, []string{"one"}))
	dir := t.TempDir()
	require.NoError(t, idx.Save(dir))

	loaded, err := LoadIndex(dir, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Len())

	_, err = LoadIndex(dir, 3)
	require.ErrorIs(t, err, minirag.ErrDimensionMismatch)
}
