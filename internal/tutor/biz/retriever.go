package biz

import (
	"context"

	"github.com/kart-io/logger"
	"github.com/kart-io/tutor-x/internal/tutor/store"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
)

// RetrieverConfig 检索器配置。
type RetrieverConfig struct {
	// TopK 返回的最大条数。
	TopK int
	// MinSimilarity 最小余弦相似度。
	MinSimilarity float64
}

// Retriever 在向量表中检索与查询最相近的分块。
type Retriever struct {
	store  store.Store
	config *RetrieverConfig
}

// NewRetriever 创建检索器实例。
func NewRetriever(st store.Store, config *RetrieverConfig) *Retriever {
	return &Retriever{store: st, config: config}
}

// Retrieve 使用配置的 TopK 与 MinSimilarity 检索。
func (r *Retriever) Retrieve(ctx context.Context, vec []float32, filter store.SearchFilter) ([]store.RetrievalResult, error) {
	return r.TopK(ctx, vec, filter, r.config.TopK, r.config.MinSimilarity)
}

// TopK 返回距离不超过 1 - minSimilarity 的至多 k 个分块，按距离升序。
// 没有满足阈值的记录时返回空切片。
func (r *Retriever) TopK(ctx context.Context, vec []float32, filter store.SearchFilter, k int, minSimilarity float64) ([]store.RetrievalResult, error) {
	if len(vec) == 0 {
		return nil, apierrors.ErrEmptyRetrievalQuery
	}

	results, err := r.store.SearchEmbeddings(ctx, vec, filter, k, minSimilarity)
	if err != nil {
		return nil, err
	}

	logger.Debugw("vector search finished",
		"course_id", filter.CourseID,
		"section_id", filter.SectionID,
		"k", k,
		"min_similarity", minSimilarity,
		"hits", len(results),
	)
	return results, nil
}
