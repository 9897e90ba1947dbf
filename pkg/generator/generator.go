// Package generator turns a query plus retrieved passages into an answer.
package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/perbu/flatrag/pkg/minirag"
)

// Generator produces an answer for query conditioned on contexts, which are
// ordered best match first.
type Generator interface {
	Generate(ctx context.Context, query string, contexts []string) (string, error)
}

// BuildPrompt lays out the retrieved passages and the question for a
// completion model.
func BuildPrompt(query string, contexts []string) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(strings.Join(contexts, "\n"))
	b.WriteString("\n\nQuestion:\n")
	b.WriteString(query)
	b.WriteString("\n\nAnswer:")
	return b.String()
}

// ExtractiveGenerator answers with the best-ranked passage verbatim. It needs
// no model and is useful offline.
type ExtractiveGenerator struct{}

// Generate returns the first non-blank context passage.
func (ExtractiveGenerator) Generate(ctx context.Context, query string, contexts []string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", minirag.ErrGeneration, err)
	}
	for _, c := range contexts {
		if s := strings.TrimSpace(c); s != "" {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w: no context available to answer %q", minirag.ErrGeneration, query)
}
