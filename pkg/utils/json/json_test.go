package json

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	Dim   int      `json:"dimensions,omitempty"`
}

func TestMarshalUnmarshal(t *testing.T) {
	in := embedRequest{Model: "gemini-embedding-001", Input: []string{"xin chào", "hello"}, Dim: 768}

	data, err := Marshal(in)
	require.NoError(t, err)

	var out embedRequest
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestEncoderDecoder(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewEncoder(&buf).Encode(map[string]int{"index": 2}))

	var got map[string]int
	require.NoError(t, NewDecoder(&buf).Decode(&got))
	assert.Equal(t, 2, got["index"])
}

func TestOmitEmpty(t *testing.T) {
	data, err := Marshal(embedRequest{Model: "m"})
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dimensions")
}

func TestCodecsAgree(t *testing.T) {
	in := embedRequest{Model: "m", Input: []string{"bước 1"}}
	a, err := sonicCodec.marshal(in)
	require.NoError(t, err)
	b, err := stdCodec.marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, string(b), string(a))
}
