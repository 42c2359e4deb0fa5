package api

import (
	"log/slog"
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/api/middleware"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
)

// ExportHandler 同步导出：请求体携带完整记录，响应体即为文件。
type ExportHandler struct {
	exporter *export.Service
}

func NewExportHandler(exporter *export.Service) *ExportHandler {
	return &ExportHandler{exporter: exporter}
}

// Export POST /v1/export
func (h *ExportHandler) Export(c *gin.Context) {
	var req export.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	log := middleware.LoggerFromContext(c).With(
		slog.String("format", req.TargetFormat),
		slog.String("template_id", req.TemplateID),
	)

	result, err := h.exporter.Export(c.Request.Context(), req)
	if err != nil {
		log.Warn("sync export failed", slog.Any("error", err))
		PipelineError(c, err, req.TargetFormat)
		return
	}

	c.Header("Content-Disposition", attachment(result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Data)
}

// attachment 生成 Content-Disposition，非 ASCII 文件名按 RFC 2231 编码。
func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}
