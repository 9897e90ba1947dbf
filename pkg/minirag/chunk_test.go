package minirag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitOverlappingWindows(t *testing.T) {
	chunks, err := Split([]string{"ABCDEFGHIJ"}, 4, 1)
	require.NoError(t, err)

	assert.Equal(t, []string{"ABCD", "DEFG", "GHIJ"}, Texts(chunks))
	for i, want := range []int{0, 3, 6} {
		assert.Equal(t, want, chunks[i].Offset, "chunk %d offset", i)
		assert.Equal(t, 0, chunks[i].DocIndex)
	}
}

func TestSplitChunkCount(t *testing.T) {
	tests := []struct {
		length, size, overlap int
	}{
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 1},
		{10, 4, 0},
		{11, 4, 0},
		{300, 300, 50},
		{301, 300, 50},
		{1000, 300, 50},
		{17, 5, 4},
	}
	for _, tt := range tests {
		doc := strings.Repeat("x", tt.length)
		chunks, err := Split([]string{doc}, tt.size, tt.overlap)
		require.NoError(t, err)

		step := tt.size - tt.overlap
		num := max(tt.length-tt.overlap, 1)
		want := (num + step - 1) / step
		assert.Len(t, chunks, want, "len=%d size=%d overlap=%d", tt.length, tt.size, tt.overlap)
	}
}

func TestSplitCoversDocument(t *testing.T) {
	doc := "the quick brown fox jumps over the lazy dog"
	size, overlap := 7, 2
	chunks, err := Split([]string{doc}, size, overlap)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	assert.Equal(t, 0, chunks[0].Offset)
	for i := 1; i < len(chunks); i++ {
		prevEnd := chunks[i-1].Offset + size
		assert.Equal(t, overlap, prevEnd-chunks[i].Offset, "redundancy between chunk %d and %d", i-1, i)
	}
	last := chunks[len(chunks)-1]
	assert.GreaterOrEqual(t, last.Offset+size, len(doc))
}

func TestSplitTrimsAndKeepsBlankChunks(t *testing.T) {
	chunks, err := Split([]string{"ab    cd"}, 3, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"ab", "", "cd"}, Texts(chunks))
}

func TestSplitMultipleDocuments(t *testing.T) {
	chunks, err := Split([]string{"abcdef", "", "xy"}, 4, 2)
	require.NoError(t, err)

	require.Len(t, chunks, 3)
	assert.Equal(t, Chunk{Text: "abcd", DocIndex: 0, Offset: 0}, chunks[0])
	assert.Equal(t, Chunk{Text: "cdef", DocIndex: 0, Offset: 2}, chunks[1])
	assert.Equal(t, Chunk{Text: "xy", DocIndex: 2, Offset: 0}, chunks[2])
}

func TestSplitCountsCharactersNotBytes(t *testing.T) {
	chunks, err := Split([]string{"äöüß"}, 2, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"äö", "üß"}, Texts(chunks))
	assert.Equal(t, 2, chunks[1].Offset)
}

func TestSplitInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -1, 0},
		{"overlap equals size", 4, 4},
		{"overlap exceeds size", 4, 5},
		{"negative overlap", 4, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Split([]string{"abc"}, tt.size, tt.overlap)
			require.ErrorIs(t, err, ErrInvalidConfiguration)
		})
	}
}
