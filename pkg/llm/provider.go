// Package llm 提供统一的模型供应商抽象层。
// Embedding、Chat 与 Rerank 可以分别使用不同供应商。
package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// TaskType 标识 Embedding 的用途，部分供应商据此生成不同的向量。
type TaskType string

const (
	// TaskRetrievalDocument 用于被检索的文档分块。
	TaskRetrievalDocument TaskType = "RETRIEVAL_DOCUMENT"
	// TaskRetrievalQuery 用于检索查询。
	TaskRetrievalQuery TaskType = "RETRIEVAL_QUERY"
)

// EmbeddingProvider 定义 Embedding 供应商接口。
type EmbeddingProvider interface {
	// Embed 为多个文本生成向量嵌入，返回顺序与输入一致。
	Embed(ctx context.Context, texts []string, task TaskType) ([][]float32, error)

	// Name 返回供应商名称。
	Name() string
}

// TextStream 是逐块读取的生成结果。
// Recv 在结束时返回 io.EOF；调用方必须 Close。
type TextStream interface {
	Recv() (string, error)
	Close() error
}

// ChatProvider 定义 Chat 供应商接口。
type ChatProvider interface {
	// GenerateStream 以系统提示和用户提示发起一次流式生成。
	GenerateStream(ctx context.Context, systemPrompt, prompt string) (TextStream, error)

	// Name 返回供应商名称。
	Name() string
}

// RerankResult 是一条重排结果，Index 指向输入文档的位置。
type RerankResult struct {
	Index          int
	RelevanceScore float64
}

// RerankProvider 定义 Rerank 供应商接口。
type RerankProvider interface {
	// Rerank 返回与 query 最相关的 topN 个文档。
	Rerank(ctx context.Context, query string, documents []string, topN int) ([]RerankResult, error)

	// Name 返回供应商名称。
	Name() string
}

// EmbeddingProviderFactory Embedding 供应商工厂函数类型。
type EmbeddingProviderFactory func(config map[string]any) (EmbeddingProvider, error)

// ChatProviderFactory Chat 供应商工厂函数类型。
type ChatProviderFactory func(config map[string]any) (ChatProvider, error)

// RerankProviderFactory Rerank 供应商工厂函数类型。
type RerankProviderFactory func(config map[string]any) (RerankProvider, error)

var registry = &providerRegistry{
	embedding: make(map[string]EmbeddingProviderFactory),
	chat:      make(map[string]ChatProviderFactory),
	rerank:    make(map[string]RerankProviderFactory),
}

type providerRegistry struct {
	mu        sync.RWMutex
	embedding map[string]EmbeddingProviderFactory
	chat      map[string]ChatProviderFactory
	rerank    map[string]RerankProviderFactory
}

// RegisterEmbeddingProvider 注册 Embedding 供应商工厂。
func RegisterEmbeddingProvider(name string, factory EmbeddingProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.embedding[name] = factory
}

// RegisterChatProvider 注册 Chat 供应商工厂。
func RegisterChatProvider(name string, factory ChatProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.chat[name] = factory
}

// RegisterRerankProvider 注册 Rerank 供应商工厂。
func RegisterRerankProvider(name string, factory RerankProviderFactory) {
	registry.mu.Lock()
	defer registry.mu.Unlock()
	registry.rerank[name] = factory
}

// NewEmbeddingProvider 根据名称创建 Embedding 供应商实例。
func NewEmbeddingProvider(name string, config map[string]any) (EmbeddingProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.embedding[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown embedding provider: %s", name)
	}
	return factory(config)
}

// NewChatProvider 根据名称创建 Chat 供应商实例。
func NewChatProvider(name string, config map[string]any) (ChatProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.chat[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown chat provider: %s", name)
	}
	return factory(config)
}

// NewRerankProvider 根据名称创建 Rerank 供应商实例。
func NewRerankProvider(name string, config map[string]any) (RerankProvider, error) {
	registry.mu.RLock()
	factory, ok := registry.rerank[name]
	registry.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown rerank provider: %s", name)
	}
	return factory(config)
}

// ListProviders 列出所有已注册的供应商名称（已排序、去重）。
func ListProviders() []string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	seen := make(map[string]struct{})
	for name := range registry.embedding {
		seen[name] = struct{}{}
	}
	for name := range registry.chat {
		seen[name] = struct{}{}
	}
	for name := range registry.rerank {
		seen[name] = struct{}{}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
