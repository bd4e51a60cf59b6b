package content

import (
	"strconv"
	"strings"
)

// ToPlainText 以单个空格拼接所有文本叶子节点，忽略标记与结构。
func ToPlainText(n Node) string {
	var sb strings.Builder
	var walk func(Node)
	walk = func(n Node) {
		if t, ok := n.(*Text); ok {
			sb.WriteString(t.Text)
			sb.WriteByte(' ')
			return
		}
		for _, c := range Children(n) {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return strings.TrimSpace(sb.String())
}

// ToMarkdown 将内容树渲染为 Markdown，作为分块与上下文的输入。
func ToMarkdown(n Node) string {
	if n == nil {
		return ""
	}
	return render(n, 0)
}

// render 渲染单个节点；order 为有序列表项的序号，0 表示无序。
func render(n Node, order int) string {
	switch n := n.(type) {
	case *Text:
		return applyMarks(n.Text, n.Marks)
	case *Heading:
		level := n.Level
		if level < 1 {
			level = 1
		}
		if level > 6 {
			level = 6
		}
		return strings.Repeat("#", level) + " " + renderChildren(n.Children) + "\n\n"
	case *Paragraph:
		return renderChildren(n.Children) + "\n\n"
	case *BulletList:
		return renderChildren(n.Children) + "\n"
	case *OrderedList:
		var sb strings.Builder
		for i, c := range n.Children {
			sb.WriteString(render(c, i+1))
		}
		return sb.String() + "\n"
	case *ListItem:
		prefix := "- "
		if order > 0 {
			prefix = strconv.Itoa(order) + ". "
		}
		return prefix + strings.TrimSpace(renderChildren(n.Children)) + "\n"
	case *Blockquote:
		return "> " + renderChildren(n.Children) + "\n\n"
	case *CodeBlock:
		return "```" + n.Language + "\n" + renderChildren(n.Children) + "\n```\n\n"
	case *Figure:
		if n.Caption != "" {
			return "![Figure](" + n.Src + ")\n" + n.Caption + "\n\n"
		}
		return "![Figure](" + n.Src + ")\n\n"
	case *Video:
		return "Video: " + n.Src + "\n\n"
	case *Callout:
		kind := strings.ToUpper(n.Kind)
		if kind == "" {
			kind = "NOTE"
		}
		return "> " + kind + ": " + renderChildren(n.Children) + "\n\n"
	case *Doc:
		return renderChildren(n.Children)
	case *Unknown:
		return renderChildren(n.Children)
	default:
		return ""
	}
}

func renderChildren(children []Node) string {
	var sb strings.Builder
	for _, c := range children {
		sb.WriteString(render(c, 0))
	}
	return sb.String()
}

func applyMarks(text string, marks []Mark) string {
	for _, m := range marks {
		switch m.Type {
		case MarkBold:
			text = "**" + text + "**"
		case MarkItalic:
			text = "*" + text + "*"
		case MarkUnderline:
			text = "__" + text + "__"
		case MarkCode:
			text = "`" + text + "`"
		case MarkLink:
			text = "[" + text + "](" + m.Href + ")"
		}
	}
	return text
}

// Duration 阅读时长估算结果。
type Duration struct {
	WordCount int `json:"word_count"`
	Minutes   int `json:"duration_minutes"`
	Seconds   int `json:"duration_seconds"`
}

// DefaultWordsPerMinute 默认阅读速度。
const DefaultWordsPerMinute = 200

// EstimateDuration 按纯文本词数估算阅读时长，分钟与秒均向上取整。
func EstimateDuration(n Node, wordsPerMinute int) Duration {
	if wordsPerMinute <= 0 {
		wordsPerMinute = DefaultWordsPerMinute
	}

	words := len(strings.Fields(ToPlainText(n)))
	if words == 0 {
		return Duration{}
	}

	return Duration{
		WordCount: words,
		Minutes:   ceilDiv(words, wordsPerMinute),
		Seconds:   ceilDiv(words*60, wordsPerMinute),
	}
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
