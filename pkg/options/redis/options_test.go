package redis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/tutor-x/pkg/utils/json"
)

func TestAddr(t *testing.T) {
	o := NewOptions()
	o.Host, o.Port = "cache.local", 6380
	assert.Equal(t, "cache.local:6380", o.Addr())
}

func TestRedaction(t *testing.T) {
	o := NewOptions()
	o.Password = "hunter2"

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.Contains(t, string(data), redactedPassword)
	assert.False(t, strings.Contains(o.String(), "hunter2"))
}

func TestComplete_ReadsEnv(t *testing.T) {
	t.Setenv("REDIS_PASSWORD", "from-env")
	o := NewOptions()
	require.NoError(t, o.Complete())
	assert.Equal(t, "from-env", o.Password)
}
