// Package content 解析编辑器输出的结构化步骤内容，并转换为纯文本或 Markdown。
//
// 内容以 tiptap JSON 存储：每个节点包含 type、attrs、content、text 与 marks。
// 未识别的节点类型解码为 *Unknown，渲染时只输出其子节点。
package content

// Node 是内容树中的节点。只有本包内的类型实现该接口。
type Node interface {
	isNode()
}

// MarkType 文本标记类型。
type MarkType string

const (
	MarkBold      MarkType = "bold"
	MarkItalic    MarkType = "italic"
	MarkUnderline MarkType = "underline"
	MarkCode      MarkType = "code"
	MarkLink      MarkType = "link"
)

// Mark 文本标记，Href 仅用于链接。
type Mark struct {
	Type MarkType
	Href string
}

// Doc 根节点。
type Doc struct {
	Children []Node
}

// Heading 标题，Level 为 1..6。
type Heading struct {
	Level    int
	Children []Node
}

type Paragraph struct {
	Children []Node
}

type BulletList struct {
	Children []Node
}

type OrderedList struct {
	Children []Node
}

type ListItem struct {
	Children []Node
}

type Blockquote struct {
	Children []Node
}

// CodeBlock 代码块，Language 可为空。
type CodeBlock struct {
	Language string
	Children []Node
}

// Figure 图片，Caption 可为空。
type Figure struct {
	Src      string
	Caption  string
	Children []Node
}

type Video struct {
	Src      string
	Children []Node
}

// Callout 提示块，Kind 如 note、warning、tip。
type Callout struct {
	Kind     string
	Children []Node
}

// Text 文本叶子节点。
type Text struct {
	Text  string
	Marks []Mark
}

// Unknown 未识别的节点类型，保留子节点。
type Unknown struct {
	Type     string
	Children []Node
}

func (*Doc) isNode()         {}
func (*Heading) isNode()     {}
func (*Paragraph) isNode()   {}
func (*BulletList) isNode()  {}
func (*OrderedList) isNode() {}
func (*ListItem) isNode()    {}
func (*Blockquote) isNode()  {}
func (*CodeBlock) isNode()   {}
func (*Figure) isNode()      {}
func (*Video) isNode()       {}
func (*Callout) isNode()     {}
func (*Text) isNode()        {}
func (*Unknown) isNode()     {}

// Children 返回节点的子节点，文本节点返回 nil。
func Children(n Node) []Node {
	switch n := n.(type) {
	case *Doc:
		return n.Children
	case *Heading:
		return n.Children
	case *Paragraph:
		return n.Children
	case *BulletList:
		return n.Children
	case *OrderedList:
		return n.Children
	case *ListItem:
		return n.Children
	case *Blockquote:
		return n.Children
	case *CodeBlock:
		return n.Children
	case *Figure:
		return n.Children
	case *Video:
		return n.Children
	case *Callout:
		return n.Children
	case *Unknown:
		return n.Children
	default:
		return nil
	}
}
