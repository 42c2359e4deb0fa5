// Package pdf 在无头浏览器中打印 HTML 为 PDF。
package pdf

import (
	"context"
	"fmt"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
)

// ContentType 是 PDF 的 MIME 类型。
const ContentType = "application/pdf"

const format = "pdf"

// DefaultMarginInches 是四边统一的打印页边距。
const DefaultMarginInches = 0.4

// Engine 把完整的 HTML 文档打印成 PDF。
// 失败时不返回任何字节。
type Engine interface {
	RenderPDF(ctx context.Context, html string, profile page.Profile) ([]byte, error)
}

// Margins 是以英寸为单位的四边页边距。
type Margins struct {
	Top, Right, Bottom, Left float64
}

// UniformMargins 返回四边相同的页边距，负数按 0 处理。
func UniformMargins(inches float64) Margins {
	if inches < 0 {
		inches = 0
	}
	return Margins{Top: inches, Right: inches, Bottom: inches, Left: inches}
}

// pageCSS 强制 @page 尺寸与边距，打印参数与文档样式保持一致。
func pageCSS(profile page.Profile, m Margins) string {
	return fmt.Sprintf(`@page { size: %s; margin: %.2fin %.2fin %.2fin %.2fin; }
@media print {
  * { -webkit-print-color-adjust: exact !important; print-color-adjust: exact !important; }
  html, body { margin: 0 !important; padding: 0 !important; }
}`, profile.CSSSize(), m.Top, m.Right, m.Bottom, m.Left)
}
