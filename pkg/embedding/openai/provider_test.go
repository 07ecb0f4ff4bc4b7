package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"article-rag-be/pkg/embedding"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProvider_Generate(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"object":"embedding","index":0,"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	p := NewProvider("secret", srv.URL, "")
	res, err := p.Generate(context.Background(), "hello", embedding.TaskRetrievalDocument)
	require.NoError(t, err)

	assert.Equal(t, []float32{0.1, 0.2, 0.3}, res.Embedding.Values)
	assert.Equal(t, "text-embedding-3-small", got.Model)
	assert.Equal(t, []string{"hello"}, got.Input)
}

func TestProvider_GenerateEmptyText(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	_, err := NewProvider("k", srv.URL, "m").Generate(context.Background(), "", embedding.TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, []string{" "}, got.Input)
}

func TestProvider_GenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`},
		{"api error", http.StatusOK, `{"error":{"message":"quota"}}`},
		{"empty data", http.StatusOK, `{"data":[]}`},
		{"bad json", http.StatusOK, `nope`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewProvider("k", srv.URL, "m").Generate(context.Background(), "x", embedding.TaskRetrievalQuery)
			assert.Error(t, err)
		})
	}
}
