package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/perbu/flatrag/pkg/minirag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPrompt(t *testing.T) {
	got := BuildPrompt("what is go?", []string{"Go is a language.", "It has goroutines."})
	want := "Context:\nGo is a language.\nIt has goroutines.\n\nQuestion:\nwhat is go?\n\nAnswer:"
	assert.Equal(t, want, got)
}

func TestExtractiveGenerator(t *testing.T) {
	var g ExtractiveGenerator

	answer, err := g.Generate(context.Background(), "q", []string{"  ", " best passage ", "second"})
	require.NoError(t, err)
	assert.Equal(t, "best passage", answer)

	_, err = g.Generate(context.Background(), "q", nil)
	require.ErrorIs(t, err, minirag.ErrGeneration)
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func TestOpenAIGenerator(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","created":1,"model":"test",
			"choices":[{"index":0,"message":{"role":"assistant","content":"  forty-two \n"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "test"})
	require.NoError(t, err)

	answer, err := g.Generate(context.Background(), "meaning?", []string{"the answer is forty-two"})
	require.NoError(t, err)
	assert.Equal(t, "forty-two", answer)

	assert.Equal(t, "test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, BuildPrompt("meaning?", []string{"the answer is forty-two"}), got.Messages[1].Content)
}

func TestOpenAIGeneratorFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"boom","type":"server_error"}}`))
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1"})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "q", []string{"c"})
	require.ErrorIs(t, err, minirag.ErrGeneration)
}

func TestNewOpenAIGeneratorRequiresKey(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIConfig{})
	require.ErrorIs(t, err, minirag.ErrModelUnavailable)
}

func TestOpenAIGeneratorModelUnavailable(t *testing.T) {
	for _, status := range []int{http.StatusNotFound, http.StatusUnauthorized} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"no such model","type":"invalid_request_error"}}`))
		}))

		g, err := NewOpenAIGenerator(OpenAIConfig{APIKey: "k", BaseURL: srv.URL + "/v1", Model: "gone"})
		require.NoError(t, err)

		_, err = g.Generate(context.Background(), "q", []string{"c"})
		require.ErrorIs(t, err, minirag.ErrModelUnavailable, "status %d", status)
		require.ErrorIs(t, err, minirag.ErrGeneration)
		srv.Close()
	}
}
