// Package resilience 为模型供应商调用提供超时约束与错误归一化。
//
// 调用只发送一次；超时或失败统一映射为 ErrProviderUnavailable，由客户端决定是否重试。
package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/tutor-x/pkg/llm"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
)

// unavailable 将供应商错误映射为 ErrProviderUnavailable。
// 调用方主动取消时原样返回 context 错误。
func unavailable(parent context.Context, provider, op string, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}

	var errno *apierrors.Errno
	if errors.As(err, &errno) {
		return err
	}

	logger.Warnw("model provider call failed",
		"provider", provider,
		"operation", op,
		"error", err.Error(),
	)
	return apierrors.ErrProviderUnavailable.WithCause(fmt.Errorf("%s %s: %w", provider, op, err))
}

// GuardedEmbeddingProvider 限定单次 Embed 调用的耗时。
type GuardedEmbeddingProvider struct {
	provider llm.EmbeddingProvider
	timeout  time.Duration
}

var _ llm.EmbeddingProvider = (*GuardedEmbeddingProvider)(nil)

// GuardEmbedding 包装 Embedding 供应商。
func GuardEmbedding(p llm.EmbeddingProvider, timeout time.Duration) *GuardedEmbeddingProvider {
	return &GuardedEmbeddingProvider{provider: p, timeout: timeout}
}

// Embed 在超时约束内生成向量嵌入。
func (g *GuardedEmbeddingProvider) Embed(ctx context.Context, texts []string, task llm.TaskType) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.provider.Embed(callCtx, texts, task)
	if err != nil {
		return nil, unavailable(ctx, g.provider.Name(), "embed", err)
	}
	return out, nil
}

// Name 返回底层供应商名称。
func (g *GuardedEmbeddingProvider) Name() string {
	return g.provider.Name()
}

// GuardedRerankProvider 限定单次 Rerank 调用的耗时。
type GuardedRerankProvider struct {
	provider llm.RerankProvider
	timeout  time.Duration
}

var _ llm.RerankProvider = (*GuardedRerankProvider)(nil)

// GuardRerank 包装 Rerank 供应商。
func GuardRerank(p llm.RerankProvider, timeout time.Duration) *GuardedRerankProvider {
	return &GuardedRerankProvider{provider: p, timeout: timeout}
}

// Rerank 在超时约束内重排文档。
func (g *GuardedRerankProvider) Rerank(ctx context.Context, query string, documents []string, topN int) ([]llm.RerankResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	out, err := g.provider.Rerank(callCtx, query, documents, topN)
	if err != nil {
		return nil, unavailable(ctx, g.provider.Name(), "rerank", err)
	}
	return out, nil
}

// Name 返回底层供应商名称。
func (g *GuardedRerankProvider) Name() string {
	return g.provider.Name()
}

// GuardedChatProvider 限定打开生成流的耗时。
// 流打开后由调用方的 context 控制，读取错误同样映射为 ErrProviderUnavailable。
type GuardedChatProvider struct {
	provider llm.ChatProvider
	timeout  time.Duration
}

var _ llm.ChatProvider = (*GuardedChatProvider)(nil)

// GuardChat 包装 Chat 供应商。
func GuardChat(p llm.ChatProvider, timeout time.Duration) *GuardedChatProvider {
	return &GuardedChatProvider{provider: p, timeout: timeout}
}

// GenerateStream 打开生成流，超时未响应时取消请求。
func (g *GuardedChatProvider) GenerateStream(ctx context.Context, systemPrompt, prompt string) (llm.TextStream, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	timer := time.AfterFunc(g.timeout, cancel)

	stream, err := g.provider.GenerateStream(streamCtx, systemPrompt, prompt)
	if !timer.Stop() {
		if stream != nil {
			_ = stream.Close()
		}
		cancel()
		return nil, unavailable(ctx, g.provider.Name(), "generate", context.DeadlineExceeded)
	}
	if err != nil {
		cancel()
		return nil, unavailable(ctx, g.provider.Name(), "generate", err)
	}

	return &guardedStream{
		stream:   stream,
		cancel:   cancel,
		parent:   ctx,
		provider: g.provider.Name(),
	}, nil
}

// Name 返回底层供应商名称。
func (g *GuardedChatProvider) Name() string {
	return g.provider.Name()
}

type guardedStream struct {
	stream   llm.TextStream
	cancel   context.CancelFunc
	parent   context.Context
	provider string
}

func (s *guardedStream) Recv() (string, error) {
	text, err := s.stream.Recv()
	if err == nil || errors.Is(err, io.EOF) {
		return text, err
	}
	return "", unavailable(s.parent, s.provider, "stream", err)
}

func (s *guardedStream) Close() error {
	defer s.cancel()
	return s.stream.Close()
}
