package biz

import (
	"strings"

	"github.com/kart-io/tutor-x/internal/tutor/store"
	apierrors "github.com/kart-io/tutor-x/pkg/utils/errors"
)

// Scope 表示提问时上下文的解析范围。
type Scope string

const (
	// ScopeStep 仅当前步骤。
	ScopeStep Scope = "step"
	// ScopeLesson 当前步骤所在课时的全部步骤。
	ScopeLesson Scope = "lesson"
	// ScopeSection 同一章节内的语义检索结果。
	ScopeSection Scope = "section"
	// ScopeCourse 整个课程内的语义检索结果。
	ScopeCourse Scope = "course"
)

// ParseScope 解析范围字符串，兼容 unit 与 parentGroup 别名。
func ParseScope(s string) (Scope, error) {
	switch strings.TrimSpace(s) {
	case "step", "unit":
		return ScopeStep, nil
	case "lesson", "parentGroup":
		return ScopeLesson, nil
	case "section":
		return ScopeSection, nil
	case "course":
		return ScopeCourse, nil
	}
	return "", apierrors.ErrInvalidScope.WithMessagef("unsupported scope %q", s)
}

// Broad 报告该范围是否需要向量检索与重排序。
func (s Scope) Broad() bool {
	return s == ScopeSection || s == ScopeCourse
}

// Mode 决定回答任务的类型。
type Mode string

const (
	ModeFree    Mode = "free"
	ModeExplain Mode = "explain"
	ModeSummary Mode = "summary"
	ModeQuiz    Mode = "quiz"
)

// Flexibility 控制模型能否使用上下文之外的知识。
type Flexibility string

const (
	FlexibilityStrict Flexibility = "STRICT"
	FlexibilityGuided Flexibility = "GUIDED"
	FlexibilityOpen   Flexibility = "OPEN"
)

// AskRequest 是一次提问请求。
type AskRequest struct {
	StepID         string      `json:"step_id" validate:"required,notblank,max=64"`
	Scope          string      `json:"scope" validate:"required"`
	Question       string      `json:"question" validate:"required,notblank,max=4000"`
	SelectedText   string      `json:"selected_text,omitempty" validate:"max=20000"`
	Mode           Mode        `json:"mode,omitempty" validate:"omitempty,oneof=explain summary quiz free"`
	Flexibility    Flexibility `json:"flexibility,omitempty" validate:"omitempty,oneof=STRICT GUIDED OPEN"`
	ConversationID string      `json:"conversation_id,omitempty" validate:"max=64"`
}

// Chunk 是一个待写入的向量分块。
type Chunk struct {
	Content    string
	ChunkIndex int
	Embedding  []float32
}

// RerankedChunk 是重排序后保留的检索结果。
type RerankedChunk struct {
	store.RetrievalResult
	RelevanceScore float64 `json:"relevance_score"`
}

// EvidenceChunk 是带有祖先标题的重排序结果，用于拼装章节与课程上下文。
type EvidenceChunk struct {
	RerankedChunk
	StepTitle    string
	LessonTitle  string
	SectionTitle string
	CourseTitle  string
}

// ReembedResult 是单个步骤重建向量的结果。
type ReembedResult struct {
	StepID string `json:"step_id"`
	Chunks int    `json:"chunks"`
}

// CourseReembedResult 是课程批量重建向量的结果。
type CourseReembedResult struct {
	CourseID string   `json:"course_id"`
	Steps    int      `json:"steps"`
	Chunks   int      `json:"chunks"`
	Failed   []string `json:"failed,omitempty"`
}
