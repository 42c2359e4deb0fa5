// Package docmodel 把简历记录映射为与具体文字处理格式无关的文档树。
package docmodel

import "strings"

// BlockKind 是块节点的类型。
type BlockKind string

const (
	Heading    BlockKind = "heading"
	Paragraph  BlockKind = "paragraph"
	BulletItem BlockKind = "bulletItem"
)

// Run 是一段带最小样式的纯文本。
type Run struct {
	Text   string `json:"text"`
	Bold   bool   `json:"bold,omitempty"`
	Italic bool   `json:"italic,omitempty"`
}

// Block 是标题、段落或列表项。
// Separator 非空时，导出器在相邻 Run 之间插入它（最后一个之后不插入）。
type Block struct {
	Kind      BlockKind `json:"kind"`
	Level     int       `json:"level,omitempty"`
	Runs      []Run     `json:"runs"`
	Separator string    `json:"separator,omitempty"`
}

// Text 返回块的纯文本（含分隔符）。
func (b Block) Text() string {
	texts := make([]string, len(b.Runs))
	for i, r := range b.Runs {
		texts[i] = r.Text
	}
	return strings.Join(texts, b.Separator)
}

// Section 是一个逻辑区块。
type Section struct {
	Name   string  `json:"name"`
	Blocks []Block `json:"blocks"`
}

// Tree 是一次导出的完整文档树，每次导出重新构建，不做持久化。
type Tree struct {
	TemplateID string    `json:"templateId"`
	Title      string    `json:"title"`
	Font       string    `json:"font"`
	FontSize   float64   `json:"fontSize"`
	Accent     string    `json:"accent"`
	Sections   []Section `json:"sections"`
}

// Section 按名称查找区块。
func (t *Tree) Section(name string) (Section, bool) {
	for _, s := range t.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}
