package biz

import (
	"fmt"
	"strings"

	"github.com/kart-io/tutor-x/internal/pkg/tutor/textutil"
)

const (
	stepContextHeader = "# Step Context\n\n" +
		"This context contains the current step and its position within the lesson."

	lessonContextHeader = "# Lesson Context\n\n" +
		"The following steps belong to the same lesson.\n" +
		"They are presented in lesson order, with the current step highlighted."

	sectionContextHeader = "# Section Context (Relevant Steps Only)\n\n" +
		"The following steps were selected using semantic search and reranking.\n" +
		"They may come from different lessons within the same section."

	courseContextHeader = "# Course Context (Relevant Steps Only)\n\n" +
		"The following steps were selected using semantic search and reranking\n" +
		"across the entire course. They are not sequential."

	currentStepMarker = "▶ **CURRENT STEP**\n"
)

// StepBlock 是参与拼装的一个步骤，Text 为已渲染的 Markdown。
type StepBlock struct {
	ID    string
	Title string
	Text  string
}

// StepContextInput 是 step 范围的拼装输入。Position 从 1 开始。
type StepContextInput struct {
	LessonTitle string
	Step        StepBlock
	Position    int
	Total       int
}

// LessonContextInput 是 lesson 范围的拼装输入，Steps 已按课时顺序排列。
type LessonContextInput struct {
	LessonTitle       string
	LessonDescription string
	Steps             []StepBlock
	CurrentStepID     string
}

// Assembler 按范围拼装上下文 Markdown 并构造提示词。
// 每次拼接后都会折叠多余空行并去除首尾空白。
type Assembler struct {
	frontendURL string
	language    string
}

// NewAssembler 创建 Assembler。frontendURL 用于引用链接，language 为回答语言。
func NewAssembler(frontendURL, language string) *Assembler {
	if language == "" {
		language = "Vietnamese"
	}
	return &Assembler{
		frontendURL: strings.TrimRight(frontendURL, "/"),
		language:    language,
	}
}

// StepContext 渲染单个步骤及其在课时中的位置。
func (a *Assembler) StepContext(in StepContextInput) string {
	body := textutil.NormalizeNewlines(fmt.Sprintf(
		"# Step: %s\n**Step ID:** %s\n\n## Position in lesson\nLesson: %s\nStep: %d / %d\n\n---\n\n## Step Content\n%s",
		in.Step.Title, in.Step.ID, in.LessonTitle, in.Position, in.Total,
		textutil.NormalizeNewlines(in.Step.Text),
	))
	return join(stepContextHeader, body)
}

// LessonContext 渲染课时内的全部步骤，并标记当前步骤。
func (a *Assembler) LessonContext(in LessonContextInput) string {
	lessonHeader := textutil.NormalizeNewlines("# Lesson: " + in.LessonTitle + "\n\n" + in.LessonDescription)

	blocks := make([]string, len(in.Steps))
	for i, step := range in.Steps {
		blocks[i] = textutil.NormalizeNewlines(fmt.Sprintf(
			"---\n\n## Step %d: %s\n**Step ID:** %s\n%s\n%s",
			i+1, step.Title, step.ID, marker(step.ID == in.CurrentStepID),
			textutil.NormalizeNewlines(step.Text),
		))
	}

	return join(lessonContextHeader, lessonHeader, strings.Join(blocks, "\n\n"))
}

// EvidenceContext 渲染 section 或 course 范围的证据块，每个重排序分块一块。
// 没有分块时只输出固定头部。
func (a *Assembler) EvidenceContext(scope Scope, evidence []EvidenceChunk, currentStepID string) string {
	header := sectionContextHeader
	if scope == ScopeCourse {
		header = courseContextHeader
	}

	blocks := make([]string, len(evidence))
	for i, ev := range evidence {
		blocks[i] = textutil.NormalizeNewlines(fmt.Sprintf(
			"---\n\n## Evidence %d: %s\n**Step ID:** %s\n%s\n\n%s\n\n%s",
			i+1, ev.StepTitle, ev.StepID, marker(ev.StepID == currentStepID),
			breadcrumbs(scope, ev),
			textutil.NormalizeNewlines(ev.Content),
		))
	}

	return join(header, strings.Join(blocks, "\n\n"))
}

func breadcrumbs(scope Scope, ev EvidenceChunk) string {
	if scope == ScopeCourse {
		course := ev.CourseTitle
		if course == "" {
			course = "N/A"
		}
		return fmt.Sprintf("**Course:** %s  \n**Section:** %s  \n**Lesson:** %s", course, ev.SectionTitle, ev.LessonTitle)
	}
	return fmt.Sprintf("**Lesson:** %s  \n**Section:** %s", ev.LessonTitle, ev.SectionTitle)
}

func marker(current bool) string {
	if current {
		return currentStepMarker
	}
	return ""
}

func join(parts ...string) string {
	return textutil.NormalizeNewlines(strings.Join(parts, "\n\n"))
}
