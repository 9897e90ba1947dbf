package minirag

// Chunk represents a piece of a document produced by Split
type Chunk struct {
	Text     string // Trimmed chunk content
	DocIndex int    // Index of the source document in the input slice
	Offset   int    // Character (rune) offset in the source document
}

// SearchResult represents a single search hit
type SearchResult struct {
	ID       int     // Insertion-order id of the matched entry
	Payload  string  // Text stored alongside the vector
	Distance float32 // Squared Euclidean distance to the query
}

// Payloads returns the payload texts of results in rank order.
func Payloads(results []SearchResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Payload
	}
	return out
}
