package loader

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/perbu/flatrag/pkg/minirag"
)

// ObjectConfig describes an S3-compatible bucket.
type ObjectConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Secure    bool

	MaxRetries int // Attempts per request, 0 uses the client default
}

// ObjectSource loads documents from an S3-compatible bucket. The location
// passed to ListDocuments is used as key prefix.
type ObjectSource struct {
	client     *minio.Client
	bucket     string
	Extensions []string // Defaults to DefaultExtensions
}

// NewObjectSource creates a bucket-backed Source.
func NewObjectSource(cfg ObjectConfig) (*ObjectSource, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("%w: object source needs endpoint and bucket", minirag.ErrInvalidConfiguration)
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:      credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure:     cfg.Secure,
		Region:     cfg.Region,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", minirag.ErrInvalidConfiguration, err)
	}
	return NewObjectSourceFromClient(client, cfg.Bucket), nil
}

// NewObjectSourceFromClient wraps an existing MinIO client.
func NewObjectSourceFromClient(client *minio.Client, bucket string) *ObjectSource {
	return &ObjectSource{client: client, bucket: bucket}
}

// ListDocuments reads every matching object below prefix, ordered by key.
func (s *ObjectSource) ListDocuments(ctx context.Context, prefix string) ([]string, error) {
	exts := s.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("%w: listing %s/%s: %w", minirag.ErrIO, s.bucket, prefix, obj.Err)
		}
		if hasExtension(obj.Key, exts) {
			keys = append(keys, obj.Key)
		}
	}
	slices.Sort(keys)

	docs := make([]string, 0, len(keys))
	for _, key := range keys {
		content, err := s.read(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s/%s: %w", minirag.ErrIO, s.bucket, key, err)
		}
		docs = append(docs, content)
	}
	return docs, nil
}

func (s *ObjectSource) read(ctx context.Context, key string) (string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return "", err
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
