package embedder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/perbu/flatrag/pkg/minirag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleEmbedderDeterministic(t *testing.T) {
	e, err := NewSimpleEmbedder(32)
	require.NoError(t, err)

	a, err := e.Embed(context.Background(), []string{"hello world", "other text"})
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), []string{"hello world"})
	require.NoError(t, err)

	require.Len(t, a, 2)
	assert.Equal(t, a[0], b[0])
	assert.Len(t, a[1], 32)
	assert.InDelta(t, 1.0, minirag.SquaredL2(a[0], make([]float32, 32)), 1e-5)
}

func TestSimpleEmbedderSimilarity(t *testing.T) {
	e, err := NewSimpleEmbedder(256)
	require.NoError(t, err)

	vecs, err := e.Embed(context.Background(), []string{
		"the cat sat on the mat",
		"a cat on a mat",
		"quantum chromodynamics lecture notes",
	})
	require.NoError(t, err)

	near := minirag.SquaredL2(vecs[0], vecs[1])
	far := minirag.SquaredL2(vecs[0], vecs[2])
	assert.Less(t, near, far)
}

func TestNewSimpleEmbedderInvalid(t *testing.T) {
	_, err := NewSimpleEmbedder(0)
	require.ErrorIs(t, err, minirag.ErrInvalidConfiguration)
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// fakeEmbeddingServer answers with [len(text), 1, 0] per input, in reverse
// order so the client must honor the index field.
func fakeEmbeddingServer(t *testing.T, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		var req embeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if req.Model == "missing-model" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error","code":"model_not_found"}}`))
			return
		}

		data := make([]map[string]any, 0, len(req.Input))
		for i := len(req.Input) - 1; i >= 0; i-- {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(len(req.Input[i])), 1, 0},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedderBatchesInOrder(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, &calls)

	e, err := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:            "test",
		BaseURL:           srv.URL + "/v1",
		Model:             "custom-model",
		Dimension:         3,
		BatchSize:         2,
		Concurrency:       2,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vecs, err := e.Embed(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	assert.Equal(t, int32(3), calls.Load())

	for i, v := range vecs {
		require.Len(t, v, 3)
		// normalized [n, 1, 0]; the first component grows with text length
		assert.InDelta(t, 1.0, v[0]*v[0]+v[1]*v[1], 1e-5)
		if i > 0 {
			assert.Greater(t, v[0], vecs[i-1][0])
		}
	}
	assert.Equal(t, 3, e.Dimension())
	assert.Equal(t, "openai-custom-model-3", e.ModelInfo())
}

func TestOpenAIEmbedderModelUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, &calls)

	e, err := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:    "test",
		BaseURL:   srv.URL + "/v1",
		Model:     "missing-model",
		Dimension: 3,
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	require.ErrorIs(t, err, minirag.ErrModelUnavailable)
}

func TestOpenAIEmbedderDimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, &calls)

	e, err := NewOpenAIEmbedder(OpenAIConfig{
		APIKey:    "test",
		BaseURL:   srv.URL + "/v1",
		Model:     "custom-model",
		Dimension: 8,
	})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"x"})
	require.ErrorIs(t, err, minirag.ErrEmbedding)
	require.ErrorIs(t, err, minirag.ErrDimensionMismatch)
}

func TestOpenAIEmbedderRejectsEmptyText(t *testing.T) {
	var calls atomic.Int32
	srv := fakeEmbeddingServer(t, &calls)

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "test", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), []string{"fine", "   "})
	require.ErrorIs(t, err, minirag.ErrEmbedding)
	assert.Zero(t, calls.Load())
}

func TestNewOpenAIEmbedderValidation(t *testing.T) {
	_, err := NewOpenAIEmbedder(OpenAIConfig{})
	require.ErrorIs(t, err, minirag.ErrModelUnavailable)

	_, err = NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Model: "mystery"})
	require.ErrorIs(t, err, minirag.ErrInvalidConfiguration)

	e, err := NewOpenAIEmbedder(OpenAIConfig{APIKey: "k", Model: "text-embedding-3-large"})
	require.NoError(t, err)
	assert.Equal(t, 3072, e.Dimension())
}
