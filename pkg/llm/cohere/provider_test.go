package cohere

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/pkg/llm"
	"github.com/kart-io/tutor-x/pkg/utils/json"
)

// rerankBody 服务端看到的请求体。
type rerankBody struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

func TestNewProvider_MissingKey(t *testing.T) {
	_, err := NewProvider(map[string]any{})
	assert.Error(t, err)
}

func TestRerank(t *testing.T) {
	var got rerankBody
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/rerank"), r.URL.Path)
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","results":[
			{"index":2,"relevance_score":0.91},
			{"index":0,"relevance_score":0.40}
		],"meta":{}}`))
	}))
	defer server.Close()

	p, err := llm.NewRerankProvider(ProviderName, map[string]any{
		llm.ConfigAPIKey:  "k",
		llm.ConfigBaseURL: server.URL + "/",
	})
	require.NoError(t, err)

	results, err := p.Rerank(context.Background(), "what is a goroutine", []string{"a", "b", "c"}, 2)
	require.NoError(t, err)
	assert.Equal(t, []llm.RerankResult{
		{Index: 2, RelevanceScore: 0.91},
		{Index: 0, RelevanceScore: 0.40},
	}, results)

	assert.Equal(t, "rerank-v3.5", got.Model)
	assert.Equal(t, "what is a goroutine", got.Query)
	assert.Equal(t, 2, got.TopN)
	assert.Equal(t, []string{"a", "b", "c"}, got.Documents)
}

func TestRerank_Empty(t *testing.T) {
	p, err := NewProvider(map[string]any{llm.ConfigAPIKey: "k", llm.ConfigBaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)

	results, err := p.Rerank(context.Background(), "q", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRerank_ServerErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{llm.ConfigAPIKey: "k", llm.ConfigBaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Rerank(context.Background(), "q", []string{"a"}, 1)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}
