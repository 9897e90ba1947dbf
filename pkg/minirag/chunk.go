package minirag

import (
	"fmt"
	"strings"
)

// Split cuts every document into overlapping windows of chunkSize characters.
//
// Windows advance by chunkSize-overlap characters and stop once a window reaches
// the end of its document, so an empty document yields no chunks. Chunk text is
// trimmed of surrounding whitespace; chunks that trim to "" are still returned.
func Split(documents []string, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be > 0, got %d", ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 || chunkSize-overlap <= 0 {
		return nil, fmt.Errorf("%w: overlap must be >= 0 and < chunk size (%d), got %d", ErrInvalidConfiguration, chunkSize, overlap)
	}
	step := chunkSize - overlap

	var chunks []Chunk
	for docIdx, doc := range documents {
		runes := []rune(doc)
		n := len(runes)
		for start := 0; start < n; start += step {
			end := start + chunkSize
			if end > n {
				end = n
			}
			chunks = append(chunks, Chunk{
				Text:     strings.TrimSpace(string(runes[start:end])),
				DocIndex: docIdx,
				Offset:   start,
			})
			if end == n {
				break
			}
		}
	}
	return chunks, nil
}

// Texts returns the text of each chunk in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
