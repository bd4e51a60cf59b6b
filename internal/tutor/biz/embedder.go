package biz

import (
	"context"
	"math"

	"github.com/pgvector/pgvector-go"

	"github.com/kart-io/logger"
	"github.com/kart-io/tutor-x/internal/model"
	"github.com/kart-io/tutor-x/internal/pkg/tutor/textutil"
	"github.com/kart-io/tutor-x/internal/tutor/store"
	"github.com/kart-io/tutor-x/pkg/llm"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
	"github.com/kart-io/tutor-x/pkg/utils/id"
)

// normTolerance 是归一化后向量范数与 1 的最大偏差。
const normTolerance = 1e-6

// Embedder 负责分块向量化与向量记录的写入。
type Embedder struct {
	provider llm.EmbeddingProvider
	store    store.Store
	dim      int
}

// NewEmbedder 创建 Embedder，dim 为期望的向量维度。
func NewEmbedder(provider llm.EmbeddingProvider, st store.Store, dim int) *Embedder {
	return &Embedder{provider: provider, store: st, dim: dim}
}

// Dim 返回期望的向量维度。
func (e *Embedder) Dim() int {
	return e.dim
}

// Embed 一次性为全部分块生成文档向量，并归一化为单位长度。
// 数量不一致或维度不符时返回 ErrInvalidEmbeddingDimension，不做截断或补齐。
func (e *Embedder) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.provider.Embed(ctx, chunks, llm.TaskRetrievalDocument)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, apierrors.ErrInvalidEmbeddingDimension.WithMessagef(
			"provider returned %d vectors for %d chunks", len(vectors), len(chunks))
	}

	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		normalized, err := e.normalize(v, i)
		if err != nil {
			return nil, err
		}
		out[i] = normalized
	}
	return out, nil
}

// EmbedQuery 为检索查询生成单位长度的查询向量。
// 供应商未返回向量时返回 ErrEmptyRetrievalQuery。
func (e *Embedder) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	vectors, err := e.provider.Embed(ctx, []string{query}, llm.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, apierrors.ErrEmptyRetrievalQuery
	}
	return e.normalize(vectors[0], 0)
}

func (e *Embedder) normalize(v []float32, index int) ([]float32, error) {
	if len(v) != e.dim {
		return nil, apierrors.ErrInvalidEmbeddingDimension.WithMessagef(
			"invalid embedding dimension %d at index %d, expected %d", len(v), index, e.dim)
	}

	normalized := textutil.L2Normalize(v)
	if normalized == nil {
		return nil, apierrors.ErrInvalidEmbeddingDimension.WithMessagef(
			"embedding at index %d has no direction", index)
	}
	if norm := textutil.L2Norm(normalized); math.Abs(norm-1) >= normTolerance {
		return nil, apierrors.ErrInvalidEmbeddingDimension.WithMessagef(
			"embedding at index %d has norm %f after normalization", index, norm)
	}
	return normalized, nil
}

// Persist 在同一事务中锁定步骤行、删除旧记录并写入新分块。
// ChunkIndex 取分块在切片中的位置，任何错误都会整体回滚。
func (e *Embedder) Persist(ctx context.Context, owner store.Ownership, chunks []Chunk) error {
	ids := id.NewULIDs(len(chunks))
	records := make([]*model.StepEmbedding, len(chunks))
	for i, c := range chunks {
		if len(c.Embedding) != e.dim {
			return apierrors.ErrInvalidEmbeddingDimension.WithMessagef(
				"invalid embedding dimension %d at index %d, expected %d", len(c.Embedding), i, e.dim)
		}
		records[i] = &model.StepEmbedding{
			ID:         ids[i],
			StepID:     owner.StepID,
			LessonID:   owner.LessonID,
			SectionID:  owner.SectionID,
			CourseID:   owner.CourseID,
			ChunkIndex: i,
			Content:    c.Content,
			Embedding:  pgvector.NewVector(c.Embedding),
		}
	}

	err := e.store.Transaction(ctx, func(tx store.Store) error {
		// 并发重建同一步骤时，后到的事务等待前者提交后再删除，避免两代记录并存
		if err := tx.LockStep(ctx, owner.StepID); err != nil {
			return err
		}
		if err := tx.DeleteStepEmbeddings(ctx, owner.StepID); err != nil {
			return err
		}
		return tx.CreateStepEmbeddings(ctx, records)
	})
	if err != nil {
		logger.Errorw("failed to persist step embeddings", "step_id", owner.StepID, "chunks", len(chunks), "error", err.Error())
		return apierrors.ErrEmbeddingPersist.WithCause(err)
	}

	logger.Infow("step embeddings replaced", "step_id", owner.StepID, "chunks", len(chunks))
	return nil
}
