package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/perbu/flatrag/internal/app"
	"github.com/perbu/flatrag/pkg/config"
	"github.com/perbu/flatrag/pkg/minirag"
	"github.com/perbu/flatrag/pkg/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.DocsDir, "docs", cfg.DocsDir, "directory of .txt/.md documents")
	flag.StringVar(&cfg.IndexDir, "out", cfg.IndexDir, "directory to write the index to")
	flag.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "chunk size in characters")
	flag.IntVar(&cfg.Overlap, "overlap", cfg.Overlap, "characters shared by consecutive chunks")
	flag.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "SQLite embedding cache file, reused across runs")
	flag.StringVar(&cfg.Compression, "compression", cfg.Compression, "payload compression: none, lz4 or zstd")
	offline := flag.Bool("offline", false, "use the local hashing embedder")
	dropBlank := flag.Bool("drop-blank", true, "skip whitespace-only chunks, which the OpenAI API rejects")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("flatrag index builder")
	fmt.Println("=====================")
	fmt.Println()

	// Cancelling the context stops in-flight embedding requests.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *offline, *dropBlank, *verbose); err != nil {
		if errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "\nInterrupted, no index written.")
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, offline, dropBlank, verbose bool) error {
	emb, closer, err := app.NewEmbedder(cfg, offline)
	if err != nil {
		return fmt.Errorf("initializing embedder: %w", err)
	}
	defer closer.Close()
	fmt.Printf("Embedder: %s (dim=%d)\n", emb.ModelInfo(), emb.Dimension())

	src, location, err := app.NewSource(cfg)
	if err != nil {
		return fmt.Errorf("initializing document source: %w", err)
	}
	indexOpts, err := app.IndexOptions(cfg)
	if err != nil {
		return err
	}

	// Building never calls the generator.
	p, err := pipeline.New(src, emb, noGenerator{},
		pipeline.WithLocation(location),
		pipeline.WithChunking(cfg.ChunkSize, cfg.Overlap),
		pipeline.WithDropBlankChunks(dropBlank),
		pipeline.WithIndexOptions(indexOpts...),
		pipeline.WithLogger(app.NewLogger(verbose)),
	)
	if err != nil {
		return err
	}

	fmt.Printf("Building index from %q...\n", location)
	start := time.Now()
	idx, err := p.BuildIndex(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("  ✓ Embedded %d chunks in %s\n", idx.Len(), time.Since(start).Round(time.Millisecond))

	if err := idx.Save(cfg.IndexDir); err != nil {
		return err
	}
	size, _ := dirSize(cfg.IndexDir)
	fmt.Printf("  ✓ Saved to %s (%.2f MB, payloads %s)\n\n", cfg.IndexDir, float64(size)/(1024*1024), cfg.Compression)
	fmt.Println("Done! Query it with: flatrag -index", cfg.IndexDir, "<query>")
	return nil
}

type noGenerator struct{}

func (noGenerator) Generate(context.Context, string, []string) (string, error) {
	return "", minirag.ErrGeneration
}

func dirSize(dir string) (int64, error) {
	var total int64
	for _, name := range []string{minirag.VectorsFile, minirag.PayloadsFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}
