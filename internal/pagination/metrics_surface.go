package pagination

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/fonts"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

// MetricsSurface 不依赖浏览器，按字体度量估算片段高度：
// 块级元素逐个累加，行内文本按真实字形宽度折行。
// 与 view 包样式表中的尺寸保持一致，结果是确定性的。
type MetricsSurface struct {
	fonts      *fonts.Cache
	style      style.TemplateStyle
	lineHeight float64
}

// NewMetricsSurface 使用模板样式构造估算器。cache 为 nil 时新建。
func NewMetricsSurface(cache *fonts.Cache, st style.TemplateStyle) *MetricsSurface {
	if cache == nil {
		cache = fonts.NewCache()
	}
	return &MetricsSurface{fonts: cache, style: st, lineHeight: 1.4}
}

type textStyle struct {
	size       float64
	bold       bool
	lineHeight float64
}

// box 是元素的垂直外边距、内边距与水平缩进。
type box struct {
	marginTop, marginBottom   float64
	paddingTop, paddingBottom float64
	inset                     float64
	minHeight                 float64
}

func (m *MetricsSurface) Measure(ctx context.Context, markup string, width float64) (float64, error) {
	if m == nil || m.fonts == nil {
		return 0, fmt.Errorf("metrics surface not initialised")
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(markup), root)
	if err != nil {
		return 0, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		root.AppendChild(n)
	}

	base := textStyle{size: m.baseSize(), lineHeight: m.lineHeight}
	return m.flow(ctx, root, width, base)
}

func (m *MetricsSurface) baseSize() float64 {
	if m.style.Page.FontSize > 0 {
		return m.style.Page.FontSize
	}
	return 12
}

// flow 计算一个容器内全部子节点的高度：连续的行内内容合并为一个匿名行框。
func (m *MetricsSurface) flow(ctx context.Context, parent *html.Node, width float64, ts textStyle) (float64, error) {
	var total float64
	var inline strings.Builder
	inlineBold := ts.bold

	flush := func() error {
		text := collapseSpace(inline.String())
		inline.Reset()
		if text == "" {
			return nil
		}
		h, err := m.textHeight(text, width, textStyle{size: ts.size, bold: inlineBold, lineHeight: ts.lineHeight})
		if err != nil {
			return err
		}
		total += h
		return nil
	}

	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		switch {
		case c.Type == html.TextNode:
			inline.WriteString(c.Data)
		case c.Type == html.ElementNode && !isBlock(c):
			inline.WriteString(textContent(c))
			if c.DataAtom == atom.Strong || c.DataAtom == atom.B {
				inlineBold = true
			}
		case c.Type == html.ElementNode:
			if err := flush(); err != nil {
				return 0, err
			}
			h, err := m.block(ctx, c, width, ts)
			if err != nil {
				return 0, err
			}
			total += h
		}
	}
	if err := flush(); err != nil {
		return 0, err
	}
	return total, nil
}

func (m *MetricsSurface) block(ctx context.Context, n *html.Node, width float64, parent textStyle) (float64, error) {
	ts := m.textStyleFor(n, parent)
	b := m.boxFor(n, ts)

	inner := width - b.inset
	if inner < 1 {
		inner = 1
	}
	h, err := m.flow(ctx, n, inner, ts)
	if err != nil {
		return 0, err
	}
	h += b.paddingTop + b.paddingBottom
	if h < b.minHeight {
		h = b.minHeight
	}
	return h + b.marginTop + b.marginBottom, nil
}

func (m *MetricsSurface) textStyleFor(n *html.Node, parent textStyle) textStyle {
	ts := parent
	hd := m.style.Header
	switch n.DataAtom {
	case atom.H1:
		ts.size, ts.bold, ts.lineHeight = orDefault(hd.TitleSize, 32), true, 1
	case atom.H2:
		ts.size, ts.bold = parent.size*1.5, true
	case atom.H3:
		ts.size, ts.bold = parent.size*1.05, true
	}
	if hasClass(n, "cv-job-title") {
		ts.size, ts.lineHeight = orDefault(hd.SubtitleSize, 18), 1
		ts.bold = isBoldWeight(hd.SubtitleWeight)
	}
	if size, ok := inlineFontSize(n); ok {
		ts.size = size
	}
	return ts
}

func (m *MetricsSurface) boxFor(n *html.Node, ts textStyle) box {
	hd := m.style.Header
	var b box
	switch {
	case hasClass(n, "cv-header"):
		pad := hd.Padding
		b = box{marginTop: hd.Y, paddingTop: pad, paddingBottom: pad, inset: 2 * pad, minHeight: hd.Height}
	case hasClass(n, "cv-section-title"):
		b = box{marginTop: 20, marginBottom: 8, paddingBottom: 4 + 2, inset: 80}
	case hasClass(n, "cv-summary"):
		b = box{marginTop: 16, marginBottom: ts.size, inset: 80}
	case hasClass(n, "cv-job-title"):
		b = box{marginTop: hd.SubtitleSpacing}
	case hasClass(n, "cv-contact"):
		b = box{marginTop: 8}
	case hasClass(n, "cv-dates"):
		b = box{marginTop: 2, marginBottom: 2}
	case hasClass(n, "cv-entry"):
		b = box{marginBottom: 10, inset: 80}
		if n.DataAtom == atom.Ul {
			b.inset += 40
		}
	case n.DataAtom == atom.Ul || n.DataAtom == atom.Ol:
		b = box{marginTop: 4, inset: 18}
	case n.DataAtom == atom.P:
		b = box{marginTop: ts.size, marginBottom: ts.size}
	case n.DataAtom == atom.H2 || n.DataAtom == atom.H3:
		b = box{marginTop: ts.size * 0.8, marginBottom: ts.size * 0.8}
	}
	return b
}

// textHeight 以单词为单位贪心折行，单个超长单词独占一行。
func (m *MetricsSurface) textHeight(text string, width float64, ts textStyle) (float64, error) {
	weight := "normal"
	if ts.bold {
		weight = "bold"
	}
	key := fonts.Key(weight, ts.size, m.style.Page.FontFamily)

	space, err := m.fonts.Measure(key, " ")
	if err != nil {
		return 0, err
	}

	lines := 1
	var lineWidth float64
	for i, word := range strings.Fields(text) {
		w, err := m.fonts.Measure(key, word)
		if err != nil {
			return 0, err
		}
		if i == 0 {
			lineWidth = w
			continue
		}
		if lineWidth+space+w > width {
			lines++
			lineWidth = w
			continue
		}
		lineWidth += space + w
	}
	return float64(lines) * ts.size * ts.lineHeight, nil
}

// Close 释放字体资源。
func (m *MetricsSurface) Close() {
	if m == nil || m.fonts == nil {
		return
	}
	_ = m.fonts.Close()
}

var blockAtoms = map[atom.Atom]bool{
	atom.Div: true, atom.P: true, atom.H1: true, atom.H2: true, atom.H3: true,
	atom.H4: true, atom.Ul: true, atom.Ol: true, atom.Li: true, atom.Header: true,
	atom.Section: true, atom.Footer: true, atom.Table: true, atom.Tr: true,
	atom.Hr: true, atom.Blockquote: true, atom.Article: true,
}

func isBlock(n *html.Node) bool {
	return blockAtoms[n.DataAtom]
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key == "class" {
			for _, c := range strings.Fields(a.Val) {
				if c == class {
					return true
				}
			}
		}
	}
	return false
}

// inlineFontSize 读取 style 属性中的 font-size（仅支持 px）。
func inlineFontSize(n *html.Node) (float64, bool) {
	for _, a := range n.Attr {
		if a.Key != "style" {
			continue
		}
		for _, decl := range strings.Split(a.Val, ";") {
			prop, val, ok := strings.Cut(decl, ":")
			if !ok || strings.TrimSpace(prop) != "font-size" {
				continue
			}
			val = strings.TrimSuffix(strings.TrimSpace(val), "px")
			if f, err := strconv.ParseFloat(val, 64); err == nil && f > 0 {
				return f, true
			}
		}
	}
	return 0, false
}

func isBoldWeight(w string) bool {
	if w == "bold" || w == "bolder" {
		return true
	}
	n, err := strconv.Atoi(w)
	return err == nil && n >= 600
}

func orDefault(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
