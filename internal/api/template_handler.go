package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

// TemplateHandler 负责模板目录相关的 API。
type TemplateHandler struct {
	catalog  style.Catalog
	registry style.Registry
}

func NewTemplateHandler(catalog style.Catalog, registry style.Registry) *TemplateHandler {
	return &TemplateHandler{catalog: catalog, registry: registry}
}

// GET /v1/templates
// 列表：内置模板在前，其后是当前用户模板 ∪ 所有公开模板。
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	items, err := h.catalog.List(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to list templates")
		return
	}
	c.JSON(http.StatusOK, items)
}

// GET /v1/templates/:id
// 详情：返回合并默认值后的完整样式。
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		BadRequest(c, "invalid template id")
		return
	}

	t, err := h.lookup(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, style.ErrNotFound) {
			NotFound(c, "template not found")
			return
		}
		Internal(c, "failed to query template")
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TemplateHandler) lookup(ctx context.Context, id string) (style.TemplateStyle, error) {
	t, err := h.registry.Get(ctx, id)
	if err != nil {
		return style.TemplateStyle{}, err
	}
	t.SectionOrder = t.Order()
	return t, nil
}
