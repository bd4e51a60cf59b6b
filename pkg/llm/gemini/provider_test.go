package gemini

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/pkg/llm"
	"github.com/kart-io/tutor-x/pkg/utils/json"
)

const testAPIKey = "test-key"

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name      string
		config    map[string]any
		wantError bool
	}{
		{name: "valid config", config: map[string]any{llm.ConfigAPIKey: testAPIKey}},
		{name: "missing api_key", config: map[string]any{}, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewProvider(tt.config)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ProviderName, p.Name())
			assert.Equal(t, "gemini-embedding-001", p.config.EmbedModel)
			assert.Equal(t, 768, p.config.Dimensions)
		})
	}
}

func TestRegistered(t *testing.T) {
	_, err := llm.NewEmbeddingProvider(ProviderName, map[string]any{llm.ConfigAPIKey: testAPIKey})
	assert.NoError(t, err)
	_, err = llm.NewChatProvider(ProviderName, map[string]any{llm.ConfigAPIKey: testAPIKey})
	assert.NoError(t, err)
}

func TestEmbed(t *testing.T) {
	var got embedRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-embedding-001:batchEmbedContents", r.URL.Path)
		assert.Equal(t, testAPIKey, r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.1,0.2]},{"values":[0.3,0.4]}]}`))
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{
		llm.ConfigAPIKey:     testAPIKey,
		llm.ConfigBaseURL:    server.URL,
		llm.ConfigDimensions: 2,
	})
	require.NoError(t, err)

	vecs, err := p.Embed(context.Background(), []string{"a", "b"}, llm.TaskRetrievalQuery)
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{0.1, 0.2}, {0.3, 0.4}}, vecs)

	require.Len(t, got.Requests, 2)
	assert.Equal(t, "models/gemini-embedding-001", got.Requests[0].Model)
	assert.Equal(t, "RETRIEVAL_QUERY", got.Requests[0].TaskType)
	assert.Equal(t, 2, got.Requests[1].OutputDimensionality)
	assert.Equal(t, "b", got.Requests[1].Content.Parts[0].Text)
}

func TestEmbed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.1]}]}`))
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{llm.ConfigAPIKey: testAPIKey, llm.ConfigBaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a", "b"}, llm.TaskRetrievalDocument)
	assert.Error(t, err)
}

func TestGenerateStream(t *testing.T) {
	var got generateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.5-flash-lite:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, `data: {"candidates":[{"content":{"parts":[{"text":"Hello"}]}}]}`+"\n\n")
		_, _ = io.WriteString(w, `data: {"candidates":[{"content":{"parts":[{"text":" world"}]},"finishReason":"STOP"}]}`+"\n\n")
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{llm.ConfigAPIKey: testAPIKey, llm.ConfigBaseURL: server.URL})
	require.NoError(t, err)

	stream, err := p.GenerateStream(context.Background(), "be kind", "hi")
	require.NoError(t, err)

	text, err := llm.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)

	require.NotNil(t, got.SystemInstruction)
	assert.Equal(t, "be kind", got.SystemInstruction.Parts[0].Text)
	assert.Equal(t, "user", got.Contents[0].Role)
	assert.Equal(t, "hi", got.Contents[0].Parts[0].Text)
}

func TestGenerateStream_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	p, err := NewProvider(map[string]any{llm.ConfigAPIKey: testAPIKey, llm.ConfigBaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.GenerateStream(context.Background(), "", "hi")
	assert.Error(t, err)
}
