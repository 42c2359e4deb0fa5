// Package pagination 按页面高度把流式 HTML 内容切分为若干页。
package pagination

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
)

// Surface 是排版测量环境：返回 markup 在给定宽度下渲染后的高度（像素）。
type Surface interface {
	Measure(ctx context.Context, markup string, width float64) (float64, error)
}

// Page 是一页的内容。
type Page struct {
	Index    int      `json:"index"`
	Children []string `json:"children"`
	Height   float64  `json:"height"`
	// Oversized 表示该页只有一个子节点且其高度超过页面高度。
	// 单个子节点从不跨页拆分。
	Oversized bool `json:"oversized"`
}

// Markup 返回该页全部子节点拼接后的 HTML。
func (p Page) Markup() string {
	return strings.Join(p.Children, "")
}

// Children 解析 HTML 片段并返回顶层子节点的序列化结果，忽略空白文本与注释。
func Children(raw string) ([]string, error) {
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	nodes, err := html.ParseFragment(strings.NewReader(raw), root)
	if err != nil {
		return nil, fmt.Errorf("parse content fragment: %w", err)
	}

	out := make([]string, 0, len(nodes))
	var buf bytes.Buffer
	for _, n := range nodes {
		switch n.Type {
		case html.CommentNode:
			continue
		case html.TextNode:
			if strings.TrimSpace(n.Data) == "" {
				continue
			}
		}
		buf.Reset()
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("render content node: %w", err)
		}
		out = append(out, buf.String())
	}
	return out, nil
}

// Paginate 依次把顶层子节点追加到当前页并测量；超过页高时把该子节点移到新的一页。
// 结果只取决于内容、页面尺寸和测量环境，空内容返回零页。
func Paginate(ctx context.Context, surface Surface, rawContent string, profile page.Profile) ([]Page, error) {
	if surface == nil {
		return nil, errcode.NewRenderingUnavailable(nil)
	}

	children, err := Children(rawContent)
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0)
	if len(children) == 0 {
		return pages, nil
	}

	seal := func(kids []string, height float64) {
		pages = append(pages, Page{
			Index:     len(pages),
			Children:  kids,
			Height:    height,
			Oversized: len(kids) == 1 && height > profile.Height,
		})
	}

	var current []string
	var currentHeight float64
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		candidate := make([]string, len(current)+1)
		copy(candidate, current)
		candidate[len(current)] = child

		h, err := measure(ctx, surface, candidate, profile.Width)
		if err != nil {
			return nil, err
		}

		if h > profile.Height && len(current) > 0 {
			seal(current, currentHeight)
			current = []string{child}
			if h, err = measure(ctx, surface, current, profile.Width); err != nil {
				return nil, err
			}
		} else {
			current = candidate
		}
		currentHeight = h
	}
	seal(current, currentHeight)

	return pages, nil
}

func measure(ctx context.Context, surface Surface, kids []string, width float64) (float64, error) {
	h, err := surface.Measure(ctx, strings.Join(kids, ""), width)
	if err != nil {
		if errcode.IsKind(err, errcode.KindRenderingUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("measure fragment: %w", err)
	}
	return h, nil
}
