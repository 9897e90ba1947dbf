package loader

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/minio/minio-go/v7"
	"github.com/perbu/flatrag/pkg/minirag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDocuments(t *testing.T) {
	fsys := fstest.MapFS{
		"docs/b.txt":        {Data: []byte("second")},
		"docs/a.md":         {Data: []byte("first")},
		"docs/sub/c.TXT":    {Data: []byte("third")},
		"docs/image.png":    {Data: []byte{0x89}},
		"other/ignored.txt": {Data: []byte("outside root")},
	}

	docs, err := LoadDocuments(fsys, "docs", nil)
	require.NoError(t, err)

	assert.Equal(t, []Document{
		{Path: "a.md", Content: "first"},
		{Path: "b.txt", Content: "second"},
		{Path: "sub/c.TXT", Content: "third"},
	}, docs)
}

func TestLoadDocumentsExtensionFilter(t *testing.T) {
	fsys := fstest.MapFS{
		"a.md":  {Data: []byte("markdown")},
		"b.txt": {Data: []byte("text")},
	}

	docs, err := LoadDocuments(fsys, ".", []string{".md"})
	require.NoError(t, err)
	assert.Equal(t, []string{"markdown"}, Contents(docs))
}

func TestLoadDocumentsMissingRoot(t *testing.T) {
	_, err := LoadDocuments(fstest.MapFS{}, "nope", nil)
	require.ErrorIs(t, err, minirag.ErrIO)
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.txt"), []byte("two"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.txt"), []byte("one"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.json"), []byte("{}"), 0o644))

	docs, err := DirSource{}.ListDocuments(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, docs)
}

func TestDirSourceErrors(t *testing.T) {
	_, err := DirSource{}.ListDocuments(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, minirag.ErrIO)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = DirSource{}.ListDocuments(context.Background(), file)
	require.ErrorIs(t, err, minirag.ErrIO)
}

func TestNewObjectSourceValidation(t *testing.T) {
	_, err := NewObjectSource(ObjectConfig{Bucket: "docs"})
	require.ErrorIs(t, err, minirag.ErrInvalidConfiguration)

	src, err := NewObjectSource(ObjectConfig{Endpoint: "localhost:9000", Bucket: "docs"})
	require.NoError(t, err)
	assert.NotNil(t, src)
}

// TestObjectSource_Integration requires a running MinIO instance.
// Skip if not available.
func TestObjectSource_Integration(t *testing.T) {
	src, err := NewObjectSource(ObjectConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "test-flatrag",
		// Fail fast when nothing listens.
		MaxRetries: 1,
	})
	require.NoError(t, err)

	ctx := context.Background()
	if _, err := src.client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	exists, err := src.client.BucketExists(ctx, src.bucket)
	require.NoError(t, err)
	if !exists {
		require.NoError(t, src.client.MakeBucket(ctx, src.bucket, minio.MakeBucketOptions{}))
	}
	for key, body := range map[string]string{"docs/b.txt": "bee", "docs/a.md": "ay", "docs/skip.bin": "x"} {
		_, err := src.client.PutObject(ctx, src.bucket, key, bytes.NewReader([]byte(body)), int64(len(body)), minio.PutObjectOptions{})
		require.NoError(t, err)
	}

	docs, err := src.ListDocuments(ctx, "docs/")
	require.NoError(t, err)
	assert.Equal(t, []string{"ay", "bee"}, docs)
}
