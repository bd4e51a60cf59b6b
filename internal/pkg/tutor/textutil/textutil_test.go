package textutil_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kart-io/tutor-x/internal/pkg/tutor/textutil"
)

func TestNormalizeNewlines(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "折叠多余空行", input: "a\n\n\n\nb", want: "a\n\nb"},
		{name: "保留两个换行", input: "a\n\nb", want: "a\n\nb"},
		{name: "去除首尾空白", input: "\n\n  a\n\n\n", want: "a"},
		{name: "空字符串", input: "", want: ""},
		{name: "多处折叠", input: "# H\n\n\n\n---\n\n\n## S\n\n\n\n\ntext", want: "# H\n\n---\n\n## S\n\ntext"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := textutil.NormalizeNewlines(tt.input)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, textutil.NormalizeNewlines(got), "应当幂等")
			assert.NotContains(t, got, "\n\n\n")
		})
	}
}

func TestL2Normalize(t *testing.T) {
	v := textutil.L2Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)
	assert.InDelta(t, 1.0, textutil.L2Norm(v), 1e-6)

	assert.Nil(t, textutil.L2Normalize([]float32{0, 0, 0}))
	assert.Nil(t, textutil.L2Normalize([]float32{float32(math.Inf(1)), 1}))
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float64
	}{
		{name: "相同向量", a: []float32{1, 0, 0}, b: []float32{1, 0, 0}, expected: 1},
		{name: "正交向量", a: []float32{1, 0, 0}, b: []float32{0, 1, 0}, expected: 0},
		{name: "相反向量", a: []float32{1, 0, 0}, b: []float32{-1, 0, 0}, expected: -1},
		{name: "空向量", a: []float32{}, b: []float32{}, expected: 0},
		{name: "长度不匹配", a: []float32{1, 2}, b: []float32{1}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, textutil.CosineSimilarity(tt.a, tt.b), 1e-4)
			assert.InDelta(t, 1-tt.expected, textutil.CosineDistance(tt.a, tt.b), 1e-4)
		})
	}
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "Xin", textutil.TruncateString("Xin chào", 3))
	assert.Equal(t, "chào", textutil.TruncateString("chào", 10))
	assert.Equal(t, "", textutil.TruncateString("abc", 0))
}
