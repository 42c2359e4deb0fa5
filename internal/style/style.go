// Package style 描述模板的视觉元数据，并提供按模板 ID 查询的注册表。
package style

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNotFound 表示注册表中没有该模板。
var ErrNotFound = errors.New("template not found")

// DefaultID 是内置默认模板的 ID。
const DefaultID = "classic"

// Section 名称与 SectionOrder 中的取值一致。
const (
	SectionExperience     = "experience"
	SectionEducation      = "education"
	SectionSkills         = "skills"
	SectionCertifications = "certifications"
	SectionLanguages      = "languages"
	SectionHobbies        = "hobbies"
)

// TemplateStyle 是一个模板的全部样式元数据，加载后只读。
type TemplateStyle struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Page   PageStyle   `json:"page"`
	Header HeaderStyle `json:"header"`

	Skills         SectionStyle `json:"skills"`
	Education      SectionStyle `json:"education"`
	Experience     SectionStyle `json:"experience"`
	Certifications SectionStyle `json:"certifications"`
	Languages      SectionStyle `json:"languages"`
	Hobbies        SectionStyle `json:"hobbies"`

	SectionOrder []string `json:"sectionOrder"`
}

// PageStyle 对应模板根节点的样式。
type PageStyle struct {
	Background string  `json:"background"`
	FontFamily string  `json:"fontFamily"`
	FontSize   float64 `json:"fontSize"`
	Color      string  `json:"color"`
	Accent     string  `json:"accent"`
}

// HeaderStyle 描述页眉块：绝对定位的几何信息以及姓名/职位的字体。
type HeaderStyle struct {
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Background string  `json:"background"`

	TitleSize       float64 `json:"titleSize"`
	TitleColor      string  `json:"titleColor"`
	TitleWeight     string  `json:"titleWeight"`
	SubtitleSize    float64 `json:"subtitleSize"`
	SubtitleColor   string  `json:"subtitleColor"`
	SubtitleWeight  string  `json:"subtitleWeight"`
	Padding         float64 `json:"padding"`
	SubtitleSpacing float64 `json:"subtitleSpacing"`
}

// SectionStyle 描述一个内容区块的标题与条目排版。
type SectionStyle struct {
	TitleSize  float64 `json:"titleSize"`
	TitleColor string  `json:"titleColor"`
	ItemSize   float64 `json:"itemSize"`
	ItemColor  string  `json:"itemColor"`
}

// Section 按名称返回区块样式，未知名称返回零值。
func (t TemplateStyle) Section(name string) SectionStyle {
	switch name {
	case SectionSkills:
		return t.Skills
	case SectionEducation:
		return t.Education
	case SectionExperience:
		return t.Experience
	case SectionCertifications:
		return t.Certifications
	case SectionLanguages:
		return t.Languages
	case SectionHobbies:
		return t.Hobbies
	}
	return SectionStyle{}
}

// Order 返回区块顺序；模板未声明时使用默认顺序。
func (t TemplateStyle) Order() []string {
	if len(t.SectionOrder) == 0 {
		return defaultOrder()
	}
	out := make([]string, len(t.SectionOrder))
	copy(out, t.SectionOrder)
	return out
}

func defaultOrder() []string {
	return []string{SectionExperience, SectionEducation, SectionSkills, SectionCertifications, SectionLanguages, SectionHobbies}
}

// Default 返回内置默认样式。每次调用返回独立副本。
func Default() TemplateStyle {
	sec := SectionStyle{TitleSize: 18, TitleColor: "#1f2937", ItemSize: 12, ItemColor: "#374151"}
	return TemplateStyle{
		ID:    DefaultID,
		Title: "Classic",
		Page: PageStyle{
			Background: "#ffffff",
			FontFamily: "Helvetica",
			FontSize:   12,
			Color:      "#111827",
			Accent:     "#2563eb",
		},
		Header: HeaderStyle{
			X: 0, Y: 0, Width: 794, Height: 140,
			Background:      "#1e3a8a",
			TitleSize:       32,
			TitleColor:      "#ffffff",
			TitleWeight:     "bold",
			SubtitleSize:    18,
			SubtitleColor:   "#dbeafe",
			SubtitleWeight:  "normal",
			Padding:         40,
			SubtitleSpacing: 12,
		},
		Skills:         sec,
		Education:      sec,
		Experience:     sec,
		Certifications: sec,
		Languages:      sec,
		Hobbies:        sec,
		SectionOrder:   defaultOrder(),
	}
}

// Registry 将模板 ID 映射为样式。
type Registry interface {
	Get(ctx context.Context, id string) (TemplateStyle, error)
}

// Resolve 查询模板样式；不存在或查询失败时回退到默认样式，从不返回错误。
func Resolve(ctx context.Context, reg Registry, id string) TemplateStyle {
	if reg == nil || id == "" {
		return Default()
	}
	t, err := reg.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.Default().Warn("template lookup failed, using default style",
				slog.String("template_id", id),
				slog.Any("error", err),
			)
		}
		return Default()
	}
	return t
}

// Chain 依次查询多个注册表，返回第一个命中的结果。
type Chain []Registry

func (c Chain) Get(ctx context.Context, id string) (TemplateStyle, error) {
	var lastErr error
	for _, reg := range c {
		t, err := reg.Get(ctx, id)
		if err == nil {
			return t, nil
		}
		if !errors.Is(err, ErrNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return TemplateStyle{}, lastErr
	}
	return TemplateStyle{}, ErrNotFound
}
