package options

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name     string
		prefixes []string
		want     string
	}{
		{"empty", nil, ""},
		{"single", []string{"cache"}, "cache."},
		{"nested", []string{"cache", "redis"}, "cache.redis."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.prefixes...))
		})
	}
}
