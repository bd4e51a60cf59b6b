package store

import (
	"context"
	"sort"

	"github.com/pgvector/pgvector-go"

	"github.com/kart-io/logger"
	"github.com/kart-io/tutor-x/internal/model"
	"github.com/kart-io/tutor-x/internal/pkg/tutor/textutil"
)

// createBatchSize 单条 INSERT 语句的最大行数
const createBatchSize = 100

// CreateStepEmbeddings 批量写入向量记录
func (s *Datastore) CreateStepEmbeddings(ctx context.Context, records []*model.StepEmbedding) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).CreateInBatches(records, createBatchSize).Error
}

// DeleteStepEmbeddings 删除步骤的全部向量记录
func (s *Datastore) DeleteStepEmbeddings(ctx context.Context, stepID string) error {
	result := s.db.WithContext(ctx).Where("step_id = ?", stepID).Delete(&model.StepEmbedding{})
	if result.Error != nil {
		return result.Error
	}
	logger.Debugw("step embeddings deleted", "step_id", stepID, "rows", result.RowsAffected)
	return nil
}

// CountStepEmbeddings 统计步骤的向量记录数
func (s *Datastore) CountStepEmbeddings(ctx context.Context, stepID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.StepEmbedding{}).Where("step_id = ?", stepID).Count(&n).Error
	return n, err
}

// SearchEmbeddings 返回与 vec 最接近的分块
func (s *Datastore) SearchEmbeddings(ctx context.Context, vec []float32, filter SearchFilter, k int, minSimilarity float64) ([]RetrievalResult, error) {
	if k <= 0 || len(vec) == 0 {
		return []RetrievalResult{}, nil
	}

	var (
		results []RetrievalResult
		err     error
	)
	if s.dialect == DialectPostgres {
		results, err = s.searchPostgres(ctx, vec, filter, k, minSimilarity)
	} else {
		results, err = s.searchScan(ctx, vec, filter, k, minSimilarity)
	}
	if err != nil {
		return nil, err
	}

	logger.Debugw("embedding search completed",
		"course_id", filter.CourseID,
		"section_id", filter.SectionID,
		"k", k,
		"min_similarity", minSimilarity,
		"results", len(results),
	)
	return results, nil
}

func (s *Datastore) searchPostgres(ctx context.Context, vec []float32, filter SearchFilter, k int, minSimilarity float64) ([]RetrievalResult, error) {
	query, args := newVectorQuery(vec, filter, k, minSimilarity).build()

	results := []RetrievalResult{}
	if err := s.db.WithContext(ctx).Raw(query, args...).Scan(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

type embeddingRow struct {
	StepID     string
	LessonID   string
	SectionID  string
	CourseID   string
	ChunkIndex int
	Content    string
	Embedding  pgvector.Vector
}

// searchScan 等值过滤下推到 SQL，相似度在进程内计算并排序
func (s *Datastore) searchScan(ctx context.Context, vec []float32, filter SearchFilter, k int, minSimilarity float64) ([]RetrievalResult, error) {
	q := s.db.WithContext(ctx).Model(&model.StepEmbedding{}).
		Select("step_id, lesson_id, section_id, course_id, chunk_index, content, embedding")
	if filter.CourseID != "" {
		q = q.Where("course_id = ?", filter.CourseID)
	}
	if filter.SectionID != "" {
		q = q.Where("section_id = ?", filter.SectionID)
	}

	var rows []embeddingRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, err
	}

	maxDistance := 1 - minSimilarity
	results := make([]RetrievalResult, 0, len(rows))
	for _, r := range rows {
		d := textutil.CosineDistance(vec, r.Embedding.Slice())
		if d > maxDistance {
			continue
		}
		results = append(results, RetrievalResult{
			StepID:     r.StepID,
			LessonID:   r.LessonID,
			SectionID:  r.SectionID,
			CourseID:   r.CourseID,
			ChunkIndex: r.ChunkIndex,
			Content:    r.Content,
			Distance:   d,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Distance != b.Distance {
			return a.Distance < b.Distance
		}
		if a.StepID != b.StepID {
			return a.StepID < b.StepID
		}
		return a.ChunkIndex < b.ChunkIndex
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}
