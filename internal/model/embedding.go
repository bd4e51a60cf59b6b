package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// StepEmbedding 步骤内容的一个向量分块。
// 重建步骤向量时该步骤的记录整体替换，(step_id, chunk_index) 唯一。
type StepEmbedding struct {
	ID         string          `json:"id" gorm:"primaryKey;type:varchar(26)"`
	StepID     string          `json:"step_id" gorm:"type:varchar(64);index;uniqueIndex:idx_step_embeddings_step_chunk,priority:1;not null"`
	LessonID   string          `json:"lesson_id" gorm:"type:varchar(64);index;not null"`
	SectionID  string          `json:"section_id" gorm:"type:varchar(64);index;not null"`
	CourseID   string          `json:"course_id" gorm:"type:varchar(64);index;not null"`
	ChunkIndex int             `json:"chunk_index" gorm:"uniqueIndex:idx_step_embeddings_step_chunk,priority:2;not null"`
	Content    string          `json:"content" gorm:"type:text;not null"`
	Embedding  pgvector.Vector `json:"-" gorm:"type:vector;not null"`
	CreatedAt  time.Time       `json:"created_at" gorm:"autoCreateTime"`
}

// TableName 指定表名
func (StepEmbedding) TableName() string {
	return "step_embeddings"
}
