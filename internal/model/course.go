// Package model 定义辅导服务的持久化模型。
package model

import (
	"time"
)

// Course 课程，章节的顶层容器
type Course struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Slug        string    `json:"slug" gorm:"type:varchar(255);uniqueIndex;not null"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Course) TableName() string {
	return "courses"
}

// Section 章节，组织课程内的课时
type Section struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	CourseID  string    `json:"course_id" gorm:"type:varchar(64);index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Order     int       `json:"order" gorm:"column:sort_order;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Section) TableName() string {
	return "sections"
}

// Lesson 课时，包含有序的步骤
type Lesson struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	SectionID   string    `json:"section_id" gorm:"type:varchar(64);index;not null"`
	Title       string    `json:"title" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Order       int       `json:"order" gorm:"column:sort_order;default:0"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Lesson) TableName() string {
	return "lessons"
}

// Step 单个学习步骤，Content 为编辑器 JSON 文档
type Step struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	LessonID  string    `json:"lesson_id" gorm:"type:varchar(64);index;not null"`
	Title     string    `json:"title" gorm:"type:varchar(255);not null"`
	Content   string    `json:"content" gorm:"type:text"`
	Order     int       `json:"order" gorm:"column:sort_order;default:0"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (Step) TableName() string {
	return "steps"
}
