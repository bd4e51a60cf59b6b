// Package splitter 提供递归字符分块器。
//
// 文本按分隔符优先级（段落、行、单词、字符）逐级切分，再合并为不超过
// ChunkSize 个字符的分块，相邻分块最多共享 ChunkOverlap 个字符。长度按 rune 计。
package splitter

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultChunkSize 默认分块大小。
	DefaultChunkSize = 6500
	// DefaultChunkOverlap 默认重叠大小。
	DefaultChunkOverlap = 900
)

// DefaultSeparators 默认分隔符，从大到小。空串表示按字符切分。
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// Splitter 递归字符分块器，可并发使用。
type Splitter struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// New 创建分块器。chunkSize 必须为正，overlap 必须在 [0, chunkSize) 内。
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	return &Splitter{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   DefaultSeparators,
	}, nil
}

// Split 使用给定参数分块，参数无效时返回 nil。
func Split(text string, chunkSize, chunkOverlap int) []string {
	s, err := New(chunkSize, chunkOverlap)
	if err != nil {
		return nil
	}
	return s.Split(text)
}

// ChunkSize 返回分块大小。
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap 返回重叠大小。
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// Split 将文本切分为非空、已去除首尾空白的分块。空白文本返回空切片。
func (s *Splitter) Split(text string) []string {
	if strings.TrimSpace(text) == "" {
		return []string{}
	}
	if utf8.RuneCountInString(text) <= s.chunkSize {
		return []string{strings.TrimSpace(text)}
	}
	return s.splitRecursive(text, s.separators)
}

func (s *Splitter) splitRecursive(text string, separators []string) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, sep := range separators {
		if sep == "" {
			separator = sep
			break
		}
		if strings.Contains(text, sep) {
			separator = sep
			rest = separators[i+1:]
			break
		}
	}

	var final, good []string
	for _, piece := range splitOn(text, separator) {
		if utf8.RuneCountInString(piece) <= s.chunkSize {
			good = append(good, piece)
			continue
		}

		if len(good) > 0 {
			final = append(final, s.merge(good, separator)...)
			good = nil
		}
		if len(rest) == 0 {
			final = append(final, s.splitRecursive(piece, []string{""})...)
			continue
		}
		final = append(final, s.splitRecursive(piece, rest)...)
	}

	if len(good) > 0 {
		final = append(final, s.merge(good, separator)...)
	}
	return final
}

// splitOn 按分隔符切分并丢弃空片段；分隔符为空时按 rune 切分。
func splitOn(text, separator string) []string {
	if separator == "" {
		out := make([]string, 0, utf8.RuneCountInString(text))
		for _, r := range text {
			out = append(out, string(r))
		}
		return out
	}

	parts := strings.Split(text, separator)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// merge 将小片段合并为分块，total 始终等于 current 按分隔符拼接后的长度。
func (s *Splitter) merge(pieces []string, separator string) []string {
	sepLen := utf8.RuneCountInString(separator)

	var docs, current []string
	total := 0

	joinedLen := func(extra int) int {
		if len(current) > 0 {
			return total + extra + sepLen
		}
		return total + extra
	}

	for _, p := range pieces {
		n := utf8.RuneCountInString(p)

		if joinedLen(n) > s.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
				docs = append(docs, doc)
			}

			for total > s.chunkOverlap || (joinedLen(n) > s.chunkSize && total > 0) {
				drop := utf8.RuneCountInString(current[0])
				if len(current) > 1 {
					drop += sepLen
				}
				total -= drop
				current = current[1:]
			}
		}

		total = joinedLen(n)
		current = append(current, p)
	}

	if doc := strings.TrimSpace(strings.Join(current, separator)); doc != "" {
		docs = append(docs, doc)
	}
	return docs
}
