package pipeline

import (
	"log/slog"

	"github.com/perbu/flatrag/pkg/minirag"
)

const (
	// DefaultChunkSize is the window length in characters.
	DefaultChunkSize = 300
	// DefaultOverlap is the number of characters shared by adjacent chunks.
	DefaultOverlap = 50
	// DefaultTopK is the number of passages handed to the generator.
	DefaultTopK = 3
)

type options struct {
	location   string
	chunkSize  int
	overlap    int
	topK       int
	dropBlank  bool
	cacheIndex bool
	index      *minirag.Index
	indexOpts  []minirag.Option
	logger     *slog.Logger
}

func defaultOptions() options {
	return options{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultOverlap,
		topK:      DefaultTopK,
		logger:    slog.New(slog.DiscardHandler),
	}
}

// Option configures a Pipeline.
type Option func(*options)

// WithLocation sets the location passed to the document source.
func WithLocation(location string) Option {
	return func(o *options) { o.location = location }
}

// WithChunking sets chunk size and overlap, both in characters.
func WithChunking(size, overlap int) Option {
	return func(o *options) {
		o.chunkSize = size
		o.overlap = overlap
	}
}

// WithTopK sets how many passages are retrieved per query.
func WithTopK(k int) Option {
	return func(o *options) { o.topK = k }
}

// WithDropBlankChunks removes chunks that are empty after trimming before
// they are embedded. Off by default, so every chunk is indexed.
func WithDropBlankChunks(drop bool) Option {
	return func(o *options) { o.dropBlank = drop }
}

// WithIndexCache keeps the last built index and reuses it while the documents,
// embedding model and chunking parameters are unchanged.
func WithIndexCache(enabled bool) Option {
	return func(o *options) { o.cacheIndex = enabled }
}

// WithIndex answers from a prebuilt index instead of building one per call.
// The document source is not consulted.
func WithIndex(idx *minirag.Index) Option {
	return func(o *options) { o.index = idx }
}

// WithIndexOptions passes options to every index the pipeline builds.
func WithIndexOptions(opts ...minirag.Option) Option {
	return func(o *options) { o.indexOpts = append(o.indexOpts, opts...) }
}

// WithLogger sets the structured logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
