package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stubProvider(t *testing.T, handler http.HandlerFunc) (*httptest.Server, Config) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, Config{
		APIKey:              "test-key",
		BaseURL:             srv.URL,
		EmbeddingDimensions: 4,
	}
}

func embeddingResponse(vec []float32) map[string]interface{} {
	return map[string]interface{}{
		"object": "list",
		"data": []map[string]interface{}{
			{"object": "embedding", "index": 0, "embedding": vec},
		},
		"model": "text-embedding-3-small",
	}
}

func TestGenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("test-key")

	_, err := client.GenerateEmbedding(context.Background(), "")

	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestGenerateEmbedding_Success(t *testing.T) {
	_, cfg := stubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		json.NewEncoder(w).Encode(embeddingResponse([]float32{0.1, 0.2, 0.3, 0.4}))
	})
	client := NewClientWithConfig(cfg)

	embedding, err := client.GenerateEmbedding(context.Background(), "hello")

	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, embedding)
}

func TestGenerateEmbedding_WrongDimensions(t *testing.T) {
	_, cfg := stubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(embeddingResponse([]float32{0.1, 0.2}))
	})
	client := NewClientWithConfig(cfg)

	_, err := client.GenerateEmbedding(context.Background(), "hello")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "wrong dimensions")
}

func TestGenerateEmbedding_ProviderError(t *testing.T) {
	_, cfg := stubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	})
	client := NewClientWithConfig(cfg)

	_, err := client.GenerateEmbedding(context.Background(), "hello")

	assert.Error(t, err)
}

func TestGenerateAnswer_Success(t *testing.T) {
	_, cfg := stubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)

		var req map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		messages := req["messages"].([]interface{})
		require.Len(t, messages, 2)
		assert.Equal(t, "system", messages[0].(map[string]interface{})["role"])
		assert.Equal(t, "user", messages[1].(map[string]interface{})["role"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": "An answer."}},
			},
		})
	})
	client := NewClientWithConfig(cfg)

	answer, err := client.GenerateAnswer(context.Background(), "system prompt", "question", 400)

	require.NoError(t, err)
	assert.Equal(t, "An answer.", answer)
}

func TestGenerateAnswer_EmptyChoiceFallback(t *testing.T) {
	_, cfg := stubProvider(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	})
	client := NewClientWithConfig(cfg)

	answer, err := client.GenerateAnswer(context.Background(), "s", "q", 400)

	require.NoError(t, err)
	assert.Equal(t, "I couldn't generate a response.", answer)
}
