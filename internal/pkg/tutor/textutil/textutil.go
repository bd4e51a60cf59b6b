// Package textutil 提供上下文拼装与向量处理的工具函数。
package textutil

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// NormalizeNewlines 将连续三个及以上换行折叠为两个，并去除首尾空白。
// 对结果再次调用不会改变它。
func NormalizeNewlines(s string) string {
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

// L2Norm 返回向量的欧氏范数。
func L2Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// L2Normalize 返回单位长度的新向量。零向量返回 nil。
func L2Normalize(v []float32) []float32 {
	norm := L2Norm(v)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// CosineSimilarity 计算两个向量的余弦相似度。
// 返回值范围为 [-1, 1]；长度不一致或存在零向量时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineDistance 返回 1 - CosineSimilarity，与 pgvector 的 <=> 运算符一致。
func CosineDistance(a, b []float32) float64 {
	return 1 - CosineSimilarity(a, b)
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}
