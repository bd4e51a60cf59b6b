package content

import (
	"bytes"
	"fmt"

	"github.com/kart-io/tutor-x/pkg/utils/json"
)

type rawMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs"`
}

type rawNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs"`
	Content []rawNode      `json:"content"`
	Text    string         `json:"text"`
	Marks   []rawMark      `json:"marks"`
}

// Decode 解析 tiptap JSON。空输入或 null 得到空文档。
func Decode(data []byte) (Node, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return &Doc{}, nil
	}

	var raw rawNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	return convert(&raw), nil
}

func convert(r *rawNode) Node {
	children := func() []Node {
		if len(r.Content) == 0 {
			return nil
		}
		out := make([]Node, 0, len(r.Content))
		for i := range r.Content {
			out = append(out, convert(&r.Content[i]))
		}
		return out
	}

	switch r.Type {
	case "doc":
		return &Doc{Children: children()}
	case "heading":
		return &Heading{Level: attrInt(r.Attrs, "level"), Children: children()}
	case "paragraph":
		return &Paragraph{Children: children()}
	case "bulletList":
		return &BulletList{Children: children()}
	case "orderedList":
		return &OrderedList{Children: children()}
	case "listItem":
		return &ListItem{Children: children()}
	case "blockquote":
		return &Blockquote{Children: children()}
	case "codeBlock":
		return &CodeBlock{Language: attrString(r.Attrs, "language"), Children: children()}
	case "figure":
		return &Figure{
			Src:      attrString(r.Attrs, "src"),
			Caption:  attrString(r.Attrs, "caption"),
			Children: children(),
		}
	case "video":
		return &Video{Src: attrString(r.Attrs, "src"), Children: children()}
	case "callout":
		return &Callout{Kind: attrString(r.Attrs, "type"), Children: children()}
	case "text":
		marks := make([]Mark, 0, len(r.Marks))
		for _, m := range r.Marks {
			marks = append(marks, Mark{Type: MarkType(m.Type), Href: attrString(m.Attrs, "href")})
		}
		return &Text{Text: r.Text, Marks: marks}
	default:
		return &Unknown{Type: r.Type, Children: children()}
	}
}

func attrString(attrs map[string]any, key string) string {
	if s, ok := attrs[key].(string); ok {
		return s
	}
	return ""
}

func attrInt(attrs map[string]any, key string) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return 0
	}
}
