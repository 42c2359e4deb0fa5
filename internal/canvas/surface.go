// Package canvas 在位图上绘制可拖拽的页眉字段，并提供命中测试与拖拽协议。
// Surface 只修改字段的位置，从不修改简历记录；文本编辑通过 OnSelect 交给宿主。
package canvas

import (
	"fmt"
	"image"
	"io"

	"github.com/fogleman/gg"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/fonts"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

// DraggableField 是记录字段在画布上的临时投影。
type DraggableField struct {
	ID        string           `json:"id"`
	FieldPath resume.FieldPath `json:"-"`
	Path      string           `json:"fieldPath"`
	Text      string           `json:"text"`
	X         float64          `json:"x"`
	Y         float64          `json:"y"`
	FontSize  float64          `json:"fontSize"`
	Color     string           `json:"color"`
	Weight    string           `json:"-"`
	Family    string           `json:"-"`
}

// FontKey 是绘制与测量共用的字体描述。
func (f DraggableField) FontKey() string {
	return fonts.Key(f.Weight, f.FontSize, f.Family)
}

// SelectFunc 在按下命中字段时回调。
type SelectFunc func(path resume.FieldPath, text string)

// Surface 是单线程事件驱动的画布，不可并发使用。
type Surface struct {
	width, height int
	fonts         *fonts.Cache
	dc            *gg.Context

	style  style.TemplateStyle
	fields []DraggableField

	// active 是当前拖拽目标的下标，-1 表示无
	active           int
	offsetX, offsetY float64

	OnSelect SelectFunc
}

// NewSurface 创建指定像素尺寸的画布。cache 为 nil 时画布自带一个。
// cache 只能由同一 goroutine 中的画布共用。
func NewSurface(width, height int, cache *fonts.Cache) *Surface {
	if cache == nil {
		cache = fonts.NewCache()
	}
	return &Surface{
		width:  width,
		height: height,
		fonts:  cache,
		dc:     gg.NewContext(width, height),
		style:  style.Default(),
		active: -1,
	}
}

// Bind 在模板或记录变化时重新生成字段，并释放进行中的拖拽。
func (s *Surface) Bind(t style.TemplateStyle, rec resume.Record) {
	s.style = t
	s.fields = deriveFields(t, rec)
	s.release()
}

// deriveFields 目前只投影页眉字段：姓名与职位。
func deriveFields(t style.TemplateStyle, rec resume.Record) []DraggableField {
	h := t.Header
	family := t.Page.FontFamily

	nameY := h.Y + h.Padding
	return []DraggableField{
		{
			ID:        "fullName",
			FieldPath: resume.FullNamePath,
			Path:      resume.FullNamePath.String(),
			Text:      rec.PersonalInfo.FullName,
			X:         h.X + h.Padding,
			Y:         nameY,
			FontSize:  h.TitleSize,
			Color:     h.TitleColor,
			Weight:    h.TitleWeight,
			Family:    family,
		},
		{
			ID:        "jobTitle",
			FieldPath: resume.JobTitlePath,
			Path:      resume.JobTitlePath.String(),
			Text:      rec.PersonalInfo.JobTitle,
			X:         h.X + h.Padding,
			Y:         nameY + h.TitleSize + h.SubtitleSpacing,
			FontSize:  h.SubtitleSize,
			Color:     h.SubtitleColor,
			Weight:    h.SubtitleWeight,
			Family:    family,
		},
	}
}

// Fields 返回字段的副本。
func (s *Surface) Fields() []DraggableField {
	out := make([]DraggableField, len(s.fields))
	copy(out, s.fields)
	return out
}

// Field 按 ID 查找字段。
func (s *Surface) Field(id string) (DraggableField, bool) {
	for _, f := range s.fields {
		if f.ID == id {
			return f, true
		}
	}
	return DraggableField{}, false
}

// Redraw 清空画布，依次绘制页面背景、页眉背景和各字段文本（顶端对齐）。
func (s *Surface) Redraw() error {
	dc := s.dc
	dc.SetHexColor(orDefault(s.style.Page.Background, "#ffffff"))
	dc.Clear()

	h := s.style.Header
	if h.Width > 0 && h.Height > 0 {
		dc.SetHexColor(orDefault(h.Background, "#ffffff"))
		dc.DrawRectangle(h.X, h.Y, h.Width, h.Height)
		dc.Fill()
	}

	for _, f := range s.fields {
		if f.Text == "" {
			continue
		}
		face, err := s.fonts.Face(f.FontKey())
		if err != nil {
			return fmt.Errorf("resolve font %q: %w", f.FontKey(), err)
		}
		dc.SetFontFace(face)
		dc.SetHexColor(orDefault(f.Color, "#000000"))
		ascent := float64(face.Metrics().Ascent) / 64
		dc.DrawString(f.Text, f.X, f.Y+ascent)
	}
	return nil
}

// HitTest 逆序查找覆盖 (x, y) 的字段，后绘制的字段优先。
// 测量失败的字段视为未命中。
func (s *Surface) HitTest(x, y float64) (DraggableField, bool) {
	i := s.hitIndex(x, y)
	if i < 0 {
		return DraggableField{}, false
	}
	return s.fields[i], true
}

func (s *Surface) hitIndex(x, y float64) int {
	for i := len(s.fields) - 1; i >= 0; i-- {
		f := s.fields[i]
		w, err := s.fonts.Measure(f.FontKey(), f.Text)
		if err != nil {
			continue
		}
		if x >= f.X && x <= f.X+w && y >= f.Y && y <= f.Y+f.FontSize {
			return i
		}
	}
	return -1
}

// Image 返回当前位图。
func (s *Surface) Image() image.Image {
	return s.dc.Image()
}

// EncodePNG 写出当前位图，调用方需先 Redraw。
func (s *Surface) EncodePNG(w io.Writer) error {
	if err := s.dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode canvas png: %w", err)
	}
	return nil
}

// Size 返回画布像素尺寸。
func (s *Surface) Size() (int, int) {
	return s.width, s.height
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
