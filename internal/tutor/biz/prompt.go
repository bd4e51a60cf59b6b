package biz

import (
	"fmt"
	"strings"
)

// PromptInput 是用户提示词的组成部分。
type PromptInput struct {
	Context     string
	Question    string
	Focus       string
	Flexibility Flexibility
	CourseSlug  string
	Mode        Mode
}

// SystemPrompt 返回固定的系统指令，不依赖请求数据。
func (a *Assembler) SystemPrompt() string {
	term := fmt.Sprintf(`always use the %s term for "lecture"`, a.language)
	if strings.EqualFold(a.language, "Vietnamese") {
		term = `always use the Vietnamese term "Bài giảng"`
	}

	return strings.TrimSpace(`
You are an AI learning assistant for an online course platform for IT students.
Rules:
- Use the context as the primary source of truth.
- The "Focus" represents what the student wants clarification on.
- If the focus is vague, use the context to infer intent, quote the relevant part of the context before explaining.
- Do not treat the focus as standalone knowledge.
- Explain clearly and simply.
- Prefer examples if helpful.
- Depending on the flexibility level:
  - STRICT: Use only the information provided in the context. Do not use external knowledge.
  - GUIDED: Primarily use the context. You may use general knowledge to clarify, without contradicting the lesson.
  - OPEN: Use the context as reference. You may add external insights, clearly marked as additional.

Citation rules:
- When referring to a step, ` + term + `.
- If citing a step, include its title as a Markdown link.
- The link must open in a new tab and follow this format:
  ` + a.frontendURL + `/courses/{courseSlug}/learn/steps/{stepId}

Output requirements:
- Always reply in ` + a.language + ` and using Markdown format.
- Refer to the step content when relevant.
`)
}

// UserPrompt 构造单次请求的用户提示词。
func (a *Assembler) UserPrompt(in PromptInput) string {
	slug := in.CourseSlug
	if slug == "" {
		slug = "none"
	}
	flexibility := in.Flexibility
	if flexibility == "" {
		flexibility = FlexibilityGuided
	}

	return strings.TrimSpace(fmt.Sprintf(
		"Flexibility level: %s\n\nCourse slug: %s\n\nContext:\n%s\n\nTask:\n%s\n\nFocus:\n\"\"\"\n%s\n\"\"\"\n\nStudent question:\n%s",
		flexibility, slug, in.Context, ModeInstruction(in.Mode), in.Focus, in.Question,
	))
}

// Focus 返回学生希望澄清的内容：非空白的选中文本优先，否则为问题本身。
func Focus(question, selectedText string) string {
	if s := strings.TrimSpace(selectedText); s != "" {
		return s
	}
	return strings.TrimSpace(question)
}

// RetrievalQuery 返回用于向量检索与重排序的自然语言查询。
func RetrievalQuery(question, selectedText string) string {
	if selectedText == "" {
		return question
	}
	return "User question:\n" + question + "\n\nUser selected text:\n" + selectedText
}

// ModeInstruction 将回答模式映射为任务指令。
func ModeInstruction(mode Mode) string {
	switch mode {
	case ModeSummary:
		return "Summarize the content clearly."
	case ModeQuiz:
		return "Create 3 short quiz questions with answers."
	case ModeExplain:
		return "Explain in simple terms for a student."
	default:
		return "Answer the student question."
	}
}
