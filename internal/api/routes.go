package api

import (
	"github.com/gin-gonic/gin"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/api/middleware"
)

// Handlers 汇总需要注册的处理器。
type Handlers struct {
	CV        *CVHandler
	Export    *ExportHandler
	Templates *TemplateHandler
	Canvas    *CanvasHandler
	Ws        *WsHandler
}

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(router *gin.Engine, h Handlers, validator middleware.TokenValidator) {
	authMiddleware := middleware.AuthMiddleware(validator)

	v1 := router.Group("/v1")
	{
		// WebSocket 在首条消息中鉴权
		v1.GET("/ws", h.Ws.HandleConnection)
		v1.GET("/cv/:id/canvas/ws", h.Canvas.Session)

		v1.POST("/export", authMiddleware, h.Export.Export)

		cvGroup := v1.Group("/cv")
		cvGroup.Use(authMiddleware)
		{
			cvGroup.GET("", h.CV.ListCVs)
			cvGroup.POST("", h.CV.CreateCV)
			cvGroup.GET("/:id", h.CV.GetCV)
			cvGroup.PUT("/:id", h.CV.UpdateCV)
			cvGroup.DELETE("/:id", h.CV.DeleteCV)
			cvGroup.PATCH("/:id/field", h.CV.EditField)
			cvGroup.POST("/:id/export", h.CV.RequestExport)
			cvGroup.GET("/:id/download-link", h.CV.GetDownloadLink)
			cvGroup.GET("/:id/preview", h.CV.GetPreview)
			cvGroup.GET("/:id/canvas.png", h.Canvas.Snapshot)
		}

		templateGroup := v1.Group("/templates")
		templateGroup.Use(authMiddleware)
		{
			templateGroup.GET("", h.Templates.ListTemplates)
			templateGroup.GET("/:id", h.Templates.GetTemplate)
		}
	}
}
