package loader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"

	"github.com/perbu/flatrag/pkg/minirag"
)

// DefaultExtensions are the file types loaded when none are configured.
var DefaultExtensions = []string{".txt", ".md"}

// Source lists the raw text of every document found at location.
type Source interface {
	ListDocuments(ctx context.Context, location string) ([]string, error)
}

// Document is a loaded file and its content.
type Document struct {
	Path    string // Path relative to the walked root
	Content string
}

// LoadDocuments reads every file under root whose extension is in exts and
// returns them sorted by path, so repeated loads yield the same order.
func LoadDocuments(fsys fs.FS, root string, exts []string) ([]Document, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	var docs []Document
	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		// Skip directories
		if d.IsDir() {
			return nil
		}

		if !hasExtension(p, exts) {
			return nil
		}

		content, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("reading %s: %w", p, err)
		}

		// Store with path relative to root
		rel := p
		if root != "." {
			rel = strings.TrimPrefix(p, root+"/")
		}
		docs = append(docs, Document{Path: rel, Content: string(content)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", minirag.ErrIO, err)
	}

	slices.SortFunc(docs, func(a, b Document) int { return strings.Compare(a.Path, b.Path) })
	return docs, nil
}

// Contents returns the content of each document in order.
func Contents(docs []Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i] = d.Content
	}
	return out
}

func hasExtension(name string, exts []string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// DirSource loads documents from a directory on the local filesystem.
type DirSource struct {
	Extensions []string // Defaults to DefaultExtensions
}

// ListDocuments walks the directory at location recursively.
func (s DirSource) ListDocuments(ctx context.Context, location string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", minirag.ErrIO, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", minirag.ErrIO, location)
	}

	docs, err := LoadDocuments(os.DirFS(location), ".", s.Extensions)
	if err != nil {
		return nil, err
	}
	return Contents(docs), nil
}
