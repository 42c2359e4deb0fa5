// Package view 将简历记录与模板样式渲染为 HTML。
// 同一份标记既用于在线预览分页，也交给无头浏览器打印 PDF。
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	texttemplate "text/template"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

// Document 是一次渲染的结果。
type Document struct {
	// CSS 是模板样式表（含 @page 规则）。
	CSS string
	// Body 是流式内容，顶层元素即分页的最小单位。
	Body string
}

// HTML 返回可直接交给浏览器打印的完整页面。
func (d Document) HTML() string {
	return Page(d.CSS, d.Body)
}

// Page 用样式表包裹任意片段，生成完整的 HTML 文档。
func Page(css, body string) string {
	var buf bytes.Buffer
	buf.Grow(len(css) + len(body) + 256)
	buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"UTF-8\">\n<style>\n")
	buf.WriteString(css)
	buf.WriteString("\n</style>\n</head>\n<body>\n<div class=\"cv-page\">\n")
	buf.WriteString(body)
	buf.WriteString("\n</div>\n</body>\n</html>\n")
	return buf.String()
}

var funcs = template.FuncMap{
	"px": func(v float64) template.CSS {
		return template.CSS(strconv.FormatFloat(v, 'f', -1, 64) + "px")
	},
	"color": func(s string) template.CSS {
		return template.CSS(sanitizeCSSValue(s))
	},
	"itemPath": func(list, field, id string, idx int) string {
		if id == "" {
			id = strconv.Itoa(idx)
		}
		return resume.ListItem(list, field, id).String()
	},
	"indexPath": func(list string, idx int) string {
		return resume.ListItem(list, "", strconv.Itoa(idx)).String()
	},
	"bullets":   resume.SplitBullets,
	"dateRange": resume.DateRange,
	"nonEmpty": func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	"join": strings.Join,
}

// sanitizeCSSValue 只保留 CSS 颜色/字体名中合法的字符，防止注入额外声明。
func sanitizeCSSValue(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case strings.ContainsRune("#-_., ()%'", r):
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// 样式表不是 HTML，使用 text/template，取值经 sanitizeCSSValue 过滤。
var cssFuncs = texttemplate.FuncMap{
	"px": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64) + "px"
	},
	"css": sanitizeCSSValue,
	"in": func(v float64) string {
		return strconv.FormatFloat(v, 'f', -1, 64) + "in"
	},
}

var (
	cssTmpl  = texttemplate.Must(texttemplate.New("css").Funcs(cssFuncs).Parse(cssTemplate))
	bodyTmpl = template.Must(template.New("body").Funcs(funcs).Parse(bodyTemplate))
)

type cssData struct {
	Style   style.TemplateStyle
	Profile page.Profile
	Margin  float64
}

type sectionData struct {
	Name   string
	Title  string
	Style  style.SectionStyle
	Record resume.Record
}

type bodyData struct {
	Style    style.TemplateStyle
	Record   resume.Record
	Sections []sectionData
}

var sectionTitles = map[string]string{
	style.SectionExperience:     "Experience",
	style.SectionEducation:      "Education",
	style.SectionSkills:         "Skills",
	style.SectionCertifications: "Certifications",
	style.SectionLanguages:      "Languages",
	style.SectionHobbies:        "Hobbies",
}

// SectionTitle 返回区块的展示标题。
func SectionTitle(name string) string {
	return sectionTitles[name]
}

// DefaultMarginInches 与 PDF 打印的默认页边距一致。
const DefaultMarginInches = 0.4

// Render 渲染简历。空列表对应的区块不输出。
func Render(t style.TemplateStyle, rec resume.Record, profile page.Profile) (Document, error) {
	return RenderWithMargin(t, rec, profile, DefaultMarginInches)
}

// RenderWithMargin 与 Render 相同，但使用指定的页边距（英寸）。
func RenderWithMargin(t style.TemplateStyle, rec resume.Record, profile page.Profile, marginInches float64) (Document, error) {
	rec.Normalize()

	var css bytes.Buffer
	if err := cssTmpl.Execute(&css, cssData{Style: t, Profile: profile, Margin: marginInches}); err != nil {
		return Document{}, fmt.Errorf("execute css template: %w", err)
	}

	data := bodyData{Style: t, Record: rec}
	for _, name := range t.Order() {
		if _, ok := sectionTitles[name]; !ok || sectionEmpty(rec, name) {
			continue
		}
		data.Sections = append(data.Sections, sectionData{
			Name:   name,
			Title:  sectionTitles[name],
			Style:  t.Section(name),
			Record: rec,
		})
	}

	var body bytes.Buffer
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return Document{}, fmt.Errorf("execute body template: %w", err)
	}
	return Document{CSS: css.String(), Body: body.String()}, nil
}

func sectionEmpty(rec resume.Record, name string) bool {
	switch name {
	case style.SectionExperience:
		return len(rec.Experience) == 0
	case style.SectionEducation:
		return len(rec.Education) == 0
	case style.SectionSkills:
		return len(rec.AllSkills()) == 0
	case style.SectionCertifications:
		return len(rec.Certifications) == 0
	case style.SectionLanguages:
		return len(rec.Languages) == 0
	case style.SectionHobbies:
		return len(rec.Hobbies) == 0
	}
	return true
}
