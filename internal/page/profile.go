// Package page 定义分页与 PDF 打印共用的页面尺寸。
package page

import (
	"fmt"
	"strconv"
	"strings"
)

// DPI 是 CSS 像素与英寸的换算基准。
const DPI = 96.0

// Profile 是一个解析完成的页面尺寸，单位为 96 DPI 下的设备像素。
type Profile struct {
	Name   string
	Width  float64
	Height float64
}

var (
	A4     = Profile{Name: "A4", Width: 794, Height: 1122}
	Letter = Profile{Name: "Letter", Width: 816, Height: 1056}
	Legal  = Profile{Name: "Legal", Width: 816, Height: 1344}
)

var named = map[string]Profile{
	"a4":     A4,
	"letter": Letter,
	"legal":  Legal,
}

// Parse 接受 "A4" / "Letter" / "Legal"（大小写不敏感）或显式像素高度 "1200px" / "1200"。
// 显式高度沿用 A4 宽度。
func Parse(s string) (Profile, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if p, ok := named[key]; ok {
		return p, nil
	}

	num := strings.TrimSuffix(key, "px")
	h, err := strconv.ParseFloat(num, 64)
	if err != nil || h <= 0 {
		return Profile{}, fmt.Errorf("unknown page profile %q", s)
	}
	return Height(h), nil
}

// Height 返回 A4 宽度、指定高度的页面。
func Height(px float64) Profile {
	return Profile{
		Name:   strconv.FormatFloat(px, 'f', -1, 64) + "px",
		Width:  A4.Width,
		Height: px,
	}
}

// PaperWidthInches 用于打印参数。
func (p Profile) PaperWidthInches() float64 {
	switch p.Name {
	case "A4":
		return 8.27
	case "Letter", "Legal":
		return 8.5
	}
	return p.Width / DPI
}

func (p Profile) PaperHeightInches() float64 {
	switch p.Name {
	case "A4":
		return 11.69
	case "Letter":
		return 11
	case "Legal":
		return 14
	}
	return p.Height / DPI
}

// CSSSize 返回 @page size 的取值。
func (p Profile) CSSSize() string {
	switch p.Name {
	case "A4", "Letter", "Legal":
		return p.Name
	}
	return fmt.Sprintf("%.0fpx %.0fpx", p.Width, p.Height)
}

func (p Profile) String() string {
	return fmt.Sprintf("%s(%.0fx%.0f)", p.Name, p.Width, p.Height)
}
