package llm

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/pkg/utils/json"
)

func TestDefaults(t *testing.T) {
	assert.Equal(t, "gemini", NewEmbeddingOptions().Provider)
	assert.Equal(t, "gemini-embedding-001", NewEmbeddingOptions().Model)
	assert.Equal(t, "gemini-2.5-flash-lite", NewChatOptions().Model)
	assert.Equal(t, "cohere", NewRerankOptions().Provider)
	assert.Equal(t, "rerank-v3.5", NewRerankOptions().Model)
}

func TestValidate_RequiresAPIKey(t *testing.T) {
	o := NewEmbeddingOptions()
	errs := o.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "api-key")

	o.APIKey = "k"
	assert.Empty(t, o.Validate())
}

func TestAddFlags_Prefix(t *testing.T) {
	o := NewChatOptions()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	o.AddFlags(fs, "chat")

	require.NoError(t, fs.Parse([]string{"--chat.model=gpt-4o-mini", "--chat.timeout=5s"}))
	assert.Equal(t, "gpt-4o-mini", o.Model)
	assert.Equal(t, 5*time.Second, o.Timeout)
}

func TestToConfigMap(t *testing.T) {
	o := NewRerankOptions()
	o.APIKey = "secret"
	m := o.ToConfigMap()
	assert.Equal(t, "secret", m["api_key"])
	assert.Equal(t, "rerank-v3.5", m["rerank_model"])
}

func TestAPIKeyNotSerialized(t *testing.T) {
	o := NewChatOptions()
	o.APIKey = "secret"
	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret")
}

func TestComplete_ReadsProviderEnv(t *testing.T) {
	t.Setenv("COHERE_API_KEY", "from-env")

	o := NewRerankOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "from-env", o.APIKey)

	o.APIKey = "explicit"
	require.NoError(t, o.Complete())
	assert.Equal(t, "explicit", o.APIKey)
}
