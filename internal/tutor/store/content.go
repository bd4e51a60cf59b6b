package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/kart-io/tutor-x/internal/model"
)

const stepDetailColumns = `steps.id AS step_id, steps.lesson_id, lessons.section_id, sections.course_id,
	steps.title, steps.content, steps.sort_order AS "order",
	lessons.title AS lesson_title, sections.title AS section_title,
	courses.title AS course_title, courses.slug AS course_slug`

// GetStep 按 ID 获取步骤
func (s *Datastore) GetStep(ctx context.Context, id string) (*model.Step, error) {
	var step model.Step
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&step).Error; err != nil {
		return nil, notFound(err, "step", id)
	}
	return &step, nil
}

// GetCourse 按 ID 获取课程
func (s *Datastore) GetCourse(ctx context.Context, id string) (*model.Course, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, notFound(err, "course", id)
	}
	return &course, nil
}

// GetLesson 按 ID 获取课时
func (s *Datastore) GetLesson(ctx context.Context, id string) (*model.Lesson, error) {
	var lesson model.Lesson
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&lesson).Error; err != nil {
		return nil, notFound(err, "lesson", id)
	}
	return &lesson, nil
}

// ListLessonSteps 按位置顺序列出课时的步骤
func (s *Datastore) ListLessonSteps(ctx context.Context, lessonID string) ([]*model.Step, error) {
	var steps []*model.Step
	err := s.db.WithContext(ctx).
		Where("lesson_id = ?", lessonID).
		Order("sort_order ASC").Order("id ASC").
		Find(&steps).Error
	if err != nil {
		return nil, err
	}
	return steps, nil
}

// ListCourseStepIDs 按章节、课时、步骤的结构顺序列出课程的步骤 ID
func (s *Datastore) ListCourseStepIDs(ctx context.Context, courseID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("steps").
		Select("steps.id").
		Joins("JOIN lessons ON lessons.id = steps.lesson_id").
		Joins("JOIN sections ON sections.id = lessons.section_id").
		Where("sections.course_id = ?", courseID).
		Order("sections.sort_order ASC").Order("lessons.sort_order ASC").Order("steps.sort_order ASC").Order("steps.id ASC").
		Pluck("steps.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Datastore) stepDetailQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Table("steps").
		Select(stepDetailColumns).
		Joins("JOIN lessons ON lessons.id = steps.lesson_id").
		Joins("JOIN sections ON sections.id = lessons.section_id").
		Joins("JOIN courses ON courses.id = sections.course_id")
}

// GetStepDetail 获取步骤及其课时、章节、课程的标题
func (s *Datastore) GetStepDetail(ctx context.Context, stepID string) (*StepDetail, error) {
	var rows []*StepDetail
	if err := s.stepDetailQuery(ctx).Where("steps.id = ?", stepID).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, notFound(gorm.ErrRecordNotFound, "step", stepID)
	}
	return rows[0], nil
}

// GetStepDetails 批量获取步骤详情
func (s *Datastore) GetStepDetails(ctx context.Context, ids []string) (map[string]*StepDetail, error) {
	out := make(map[string]*StepDetail, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []*StepDetail
	if err := s.stepDetailQuery(ctx).Where("steps.id IN ?", ids).Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.StepID] = r
	}
	return out, nil
}

// LockStep 锁定步骤行直到事务结束。Postgres 使用 SELECT ... FOR UPDATE，
// SQLite 的写事务本身串行，只校验步骤存在。
func (s *Datastore) LockStep(ctx context.Context, stepID string) error {
	q := s.db.WithContext(ctx).Select("id")
	if s.dialect == DialectPostgres {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var step model.Step
	if err := q.Where("id = ?", stepID).First(&step).Error; err != nil {
		return notFound(err, "step", stepID)
	}
	return nil
}
