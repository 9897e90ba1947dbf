package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/perbu/flatrag/internal/app"
	"github.com/perbu/flatrag/pkg/config"
	"github.com/perbu/flatrag/pkg/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Parse command line flags
	flag.StringVar(&cfg.DocsDir, "docs", cfg.DocsDir, "directory of .txt/.md documents")
	indexDir := flag.String("index", "", "answer from a saved index directory instead of the documents")
	flag.IntVar(&cfg.TopK, "top", cfg.TopK, "number of passages to retrieve")
	flag.IntVar(&cfg.ChunkSize, "chunk-size", cfg.ChunkSize, "chunk size in characters")
	flag.IntVar(&cfg.Overlap, "overlap", cfg.Overlap, "characters shared by consecutive chunks")
	flag.StringVar(&cfg.CachePath, "cache", cfg.CachePath, "SQLite embedding cache file")
	showContext := flag.Bool("show-context", false, "print the retrieved passages")
	offline := flag.Bool("offline", false, "use the local hashing embedder and extractive answers")
	dropBlank := flag.Bool("drop-blank", true, "skip whitespace-only chunks, which the OpenAI API rejects")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	query, err := readQuery(flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Usage: flatrag [options] <query>\n\n")
		fmt.Fprintf(os.Stderr, "The query may also be given on stdin.\n\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := app.NewLogger(*verbose)

	emb, closer, err := app.NewEmbedder(cfg, *offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing embedder: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	gen, err := app.NewGenerator(cfg, *offline)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing generator: %v\n", err)
		os.Exit(1)
	}

	opts := []pipeline.Option{
		pipeline.WithChunking(cfg.ChunkSize, cfg.Overlap),
		pipeline.WithTopK(cfg.TopK),
		pipeline.WithDropBlankChunks(*dropBlank),
		pipeline.WithLogger(logger),
	}

	src, location, err := app.NewSource(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing document source: %v\n", err)
		os.Exit(1)
	}
	opts = append(opts, pipeline.WithLocation(location))

	if *indexDir != "" {
		idx, err := app.LoadIndex(*indexDir, emb.Dimension())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger.Debug("index loaded", "dir", *indexDir, "entries", idx.Len())
		opts = append(opts, pipeline.WithIndex(idx))
	}

	p, err := pipeline.New(src, emb, gen, opts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	answer, results, err := p.AnswerWithResults(ctx, query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error answering query: %v\n", err)
		os.Exit(1)
	}

	if *showContext {
		fmt.Printf("Retrieved %d passages:\n\n", len(results))
		for _, r := range results {
			fmt.Printf("[%d] distance %.4f\n%s\n\n", r.ID, r.Distance, strings.TrimSpace(r.Payload))
		}
		fmt.Println(strings.Repeat("-", 80))
	}
	fmt.Println(answer)
}

// readQuery joins the arguments, or reads a single line from stdin when there
// are none.
func readQuery(args []string) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		if err == nil {
			err = errors.New("empty query")
		}
		return "", err
	}
	return line, nil
}
