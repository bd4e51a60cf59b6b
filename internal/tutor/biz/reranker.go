package biz

import (
	"context"
	"fmt"
	"sort"

	"github.com/kart-io/tutor-x/internal/tutor/store"
	"github.com/kart-io/tutor-x/pkg/llm"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
)

// Reranker 使用交叉编码器模型对检索结果重新排序。
type Reranker struct {
	provider llm.RerankProvider
}

// NewReranker 创建重排序器。
func NewReranker(provider llm.RerankProvider) *Reranker {
	return &Reranker{provider: provider}
}

// Rerank 以原始自然语言查询对候选分块排序，返回至多 min(topN, len(results)) 条，
// 按相关度降序。候选为空时不调用供应商。
func (r *Reranker) Rerank(ctx context.Context, query string, results []store.RetrievalResult, topN int) ([]RerankedChunk, error) {
	n := min(topN, len(results))
	if n <= 0 {
		return []RerankedChunk{}, nil
	}

	documents := make([]string, len(results))
	for i, res := range results {
		documents[i] = res.Content
	}

	ranked, err := r.provider.Rerank(ctx, query, documents, n)
	if err != nil {
		return nil, err
	}

	out := make([]RerankedChunk, 0, len(ranked))
	for _, rr := range ranked {
		if rr.Index < 0 || rr.Index >= len(results) {
			return nil, apierrors.ErrProviderUnavailable.WithCause(
				fmt.Errorf("%s rerank: index %d out of range [0, %d)", r.provider.Name(), rr.Index, len(results)))
		}
		out = append(out, RerankedChunk{
			RetrievalResult: results[rr.Index],
			RelevanceScore:  rr.RelevanceScore,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RelevanceScore > out[j].RelevanceScore
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
