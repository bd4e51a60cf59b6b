// Package id 提供时间有序的唯一 ID 生成。
package id

import (
	"crypto/rand"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ULIDGenerator 使用单调熵源生成 ULID，同一毫秒内生成的 ID 仍然有序。
type ULIDGenerator struct {
	mu      sync.Mutex
	entropy io.Reader
}

// NewULIDGenerator 创建 ULID 生成器。
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Generate 生成一个 ULID 字符串。
func (g *ULIDGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), g.entropy).String()
}

// GenerateN 批量生成 n 个严格递增的 ULID。
func (g *ULIDGenerator) GenerateN(n int) []string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ids := make([]string, n)
	ms := ulid.Timestamp(time.Now())
	for i := range ids {
		ids[i] = ulid.MustNew(ms, g.entropy).String()
	}
	return ids
}

var defaultGenerator = NewULIDGenerator()

// NewULID 使用默认生成器生成 ULID。
func NewULID() string {
	return defaultGenerator.Generate()
}

// NewULIDs 使用默认生成器批量生成 ULID。
func NewULIDs(n int) []string {
	return defaultGenerator.GenerateN(n)
}
