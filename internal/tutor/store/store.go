// Package store 提供课程内容读取与步骤向量的持久化。
package store

import (
	"context"

	"github.com/kart-io/tutor-x/internal/model"
)

// Ownership 步骤在课时、章节、课程中的归属。
type Ownership struct {
	StepID    string `json:"step_id"`
	LessonID  string `json:"lesson_id"`
	SectionID string `json:"section_id"`
	CourseID  string `json:"course_id"`
}

// StepDetail 步骤及其上级节点的标题。
type StepDetail struct {
	Ownership
	Title        string `json:"title"`
	Content      string `json:"content"`
	Order        int    `json:"order"`
	LessonTitle  string `json:"lesson_title"`
	SectionTitle string `json:"section_title"`
	CourseTitle  string `json:"course_title"`
	CourseSlug   string `json:"course_slug"`
}

// SearchFilter 相似度检索的过滤条件，空字段不参与过滤。
type SearchFilter struct {
	CourseID  string
	SectionID string
}

// RetrievalResult 相似度检索命中的分块，Distance 为与查询向量的余弦距离。
type RetrievalResult struct {
	StepID     string  `json:"step_id"`
	LessonID   string  `json:"lesson_id"`
	SectionID  string  `json:"section_id"`
	CourseID   string  `json:"course_id"`
	ChunkIndex int     `json:"chunk_index"`
	Content    string  `json:"content"`
	Distance   float64 `json:"distance"`
}

// Store 辅导流程使用的存储操作
type Store interface {
	// GetStep 获取步骤，不存在时返回 ErrContentNotFound
	GetStep(ctx context.Context, id string) (*model.Step, error)
	// GetCourse 获取课程，不存在时返回 ErrContentNotFound
	GetCourse(ctx context.Context, id string) (*model.Course, error)
	// GetLesson 获取课时，不存在时返回 ErrContentNotFound
	GetLesson(ctx context.Context, id string) (*model.Lesson, error)
	// ListLessonSteps 按展示顺序列出课时的步骤
	ListLessonSteps(ctx context.Context, lessonID string) ([]*model.Step, error)
	// ListCourseStepIDs 列出课程内全部步骤 ID
	ListCourseStepIDs(ctx context.Context, courseID string) ([]string, error)
	// GetStepDetail 获取步骤及其上级节点，不存在时返回 ErrContentNotFound
	GetStepDetail(ctx context.Context, stepID string) (*StepDetail, error)
	// GetStepDetails 批量获取步骤详情，按步骤 ID 索引，缺失的 ID 被忽略
	GetStepDetails(ctx context.Context, ids []string) (map[string]*StepDetail, error)

	// LockStep 在当前事务内锁定步骤行，串行化同一步骤的向量替换
	LockStep(ctx context.Context, stepID string) error
	// CreateStepEmbeddings 写入向量记录
	CreateStepEmbeddings(ctx context.Context, records []*model.StepEmbedding) error
	// DeleteStepEmbeddings 删除步骤的全部向量记录
	DeleteStepEmbeddings(ctx context.Context, stepID string) error
	// CountStepEmbeddings 统计步骤的向量记录数
	CountStepEmbeddings(ctx context.Context, stepID string) (int64, error)
	// SearchEmbeddings 返回与 vec 余弦相似度不低于 minSimilarity 的至多 k 个分块，
	// 按距离、步骤 ID、分块序号排序
	SearchEmbeddings(ctx context.Context, vec []float32, filter SearchFilter, k int, minSimilarity float64) ([]RetrievalResult, error)

	// Transaction 在单个事务中执行 fn，任何错误都会回滚
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
