// Package docx 将文档树序列化为 Office Open XML（.docx）包，全程在内存中完成。
package docx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/docmodel"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
)

// ContentType 是 DOCX 的 MIME 类型。
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

const format = "docx"

// Options 控制页面设置与元数据。
type Options struct {
	Profile      page.Profile
	MarginInches float64
	// Created 为零值时使用当前时间。
	Created time.Time
}

// DefaultOptions 是 A4、0.4 英寸页边距。
func DefaultOptions() Options {
	return Options{Profile: page.A4, MarginInches: 0.4}
}

var xmlFuncs = template.FuncMap{
	"xml": func(s string) (string, error) {
		var b strings.Builder
		if err := xml.EscapeText(&b, []byte(s)); err != nil {
			return "", err
		}
		return b.String(), nil
	},
}

var (
	stylesTmpl = template.Must(template.New("styles").Funcs(xmlFuncs).Parse(stylesTemplate))
	coreTmpl   = template.Must(template.New("core").Funcs(xmlFuncs).Parse(coreTemplate))
)

type stylesData struct {
	Font      string
	Accent    string
	BodySize  int
	TitleSize int
	H1Size    int
	H2Size    int
	H3Size    int
}

// Render 使用默认选项导出。
func Render(tree *docmodel.Tree) ([]byte, error) {
	return RenderWithOptions(tree, DefaultOptions())
}

// RenderWithOptions 导出 DOCX。任何序列化错误都返回 ExportFailed，且不返回部分数据。
func RenderWithOptions(tree *docmodel.Tree, opts Options) ([]byte, error) {
	if tree == nil {
		return nil, errcode.NewExportFailed(format, errors.New("nil document tree"))
	}
	if opts.Profile.Width <= 0 {
		opts.Profile = page.A4
	}
	if opts.Created.IsZero() {
		opts.Created = time.Now()
	}

	data, err := pack(tree, opts)
	if err != nil {
		return nil, errcode.NewExportFailed(format, err)
	}
	return data, nil
}

func pack(tree *docmodel.Tree, opts Options) ([]byte, error) {
	documentXML, err := marshalDocument(buildDocument(tree, opts))
	if err != nil {
		return nil, err
	}

	var styles bytes.Buffer
	if err := stylesTmpl.Execute(&styles, newStylesData(tree)); err != nil {
		return nil, fmt.Errorf("render styles.xml: %w", err)
	}

	var core bytes.Buffer
	if err := coreTmpl.Execute(&core, struct {
		Title   string
		Created string
	}{Title: tree.Title, Created: opts.Created.UTC().Format(time.RFC3339)}); err != nil {
		return nil, fmt.Errorf("render core.xml: %w", err)
	}

	parts := []struct {
		name string
		body []byte
	}{
		{"[Content_Types].xml", []byte(contentTypesXML)},
		{"_rels/.rels", []byte(rootRelsXML)},
		{"docProps/core.xml", core.Bytes()},
		{"docProps/app.xml", []byte(appXML)},
		{"word/document.xml", documentXML},
		{"word/styles.xml", styles.Bytes()},
		{"word/numbering.xml", []byte(numberingXML)},
		{"word/_rels/document.xml.rels", []byte(documentRelsXML)},
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: p.name, Method: zip.Deflate, Modified: opts.Created})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write(p.body); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx archive: %w", err)
	}
	return buf.Bytes(), nil
}

func marshalDocument(doc wDocument) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("marshal document.xml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("flush document.xml: %w", err)
	}
	return buf.Bytes(), nil
}

func newStylesData(tree *docmodel.Tree) stylesData {
	font := strings.TrimSpace(tree.Font)
	if font == "" {
		font = "Calibri"
	}
	// 像素 → 磅 → 半磅
	body := tree.FontSize
	if body <= 0 {
		body = 12
	}
	half := func(px float64) int {
		return int(math.Round(px * 0.75 * 2))
	}
	return stylesData{
		Font:      font,
		Accent:    hexColor(tree.Accent),
		BodySize:  half(body),
		TitleSize: half(body * 2.4),
		H1Size:    half(body * 1.6),
		H2Size:    half(body * 1.35),
		H3Size:    half(body * 1.1),
	}
}

// hexColor 将 "#RRGGBB" / "#RGB" 转为 Word 需要的 RRGGBB，无法识别时返回 auto。
func hexColor(c string) string {
	c = strings.TrimPrefix(strings.TrimSpace(c), "#")
	if len(c) == 3 {
		c = string([]byte{c[0], c[0], c[1], c[1], c[2], c[2]})
	}
	if len(c) != 6 {
		return "auto"
	}
	for _, r := range c {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return "auto"
		}
	}
	return strings.ToUpper(c)
}
