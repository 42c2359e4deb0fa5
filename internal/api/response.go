package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
)

func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}

func AbortUnauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
}

func Unauthorized(c *gin.Context)           { Error(c, http.StatusUnauthorized, "unauthorized") }
func BadRequest(c *gin.Context, msg string) { Error(c, http.StatusBadRequest, msg) }
func Forbidden(c *gin.Context, msg string)  { Error(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)   { Error(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)   { Error(c, http.StatusConflict, msg) }
func Internal(c *gin.Context, msg string)   { Error(c, http.StatusInternalServerError, msg) }

// PipelineError 将导出流水线的错误映射为 HTTP 响应。
// 导出失败只回通用消息，底层原因留在日志里。
func PipelineError(c *gin.Context, err error, format string) {
	e, ok := errcode.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": exportFailedMessage(format), "code": errcode.SystemError})
		return
	}
	if e.Format != "" {
		format = e.Format
	}

	switch e.Kind {
	case errcode.KindSchemaViolation:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Error(), "code": e.Code, "path": e.Path})
	case errcode.KindUnsupportedFormat:
		c.JSON(http.StatusBadRequest, gin.H{"error": e.Error(), "code": e.Code})
	case errcode.KindFieldNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": e.Error(), "code": e.Code, "path": e.Path})
	case errcode.KindRenderingUnavailable:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rendering surface unavailable", "code": e.Code})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": exportFailedMessage(format), "code": e.Code})
	}
}

func exportFailedMessage(format string) string {
	if format == "" {
		return "failed to export document"
	}
	return "failed to export " + format
}
