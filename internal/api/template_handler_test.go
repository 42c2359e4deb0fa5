package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

func newTemplateRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := newRegistry(t)
	h := NewTemplateHandler(style.Catalogs{reg}, reg)

	router := gin.New()
	g := router.Group("/v1/templates", asUser(1))
	g.GET("", h.ListTemplates)
	g.GET("/:id", h.GetTemplate)
	return router
}

func TestListTemplates(t *testing.T) {
	w := httptest.NewRecorder()
	newTemplateRouter(t).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/templates", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var items []style.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		assert.True(t, it.Builtin)
		ids = append(ids, it.ID)
	}
	assert.Contains(t, ids, "classic")
	assert.Contains(t, ids, "modern")
}

func TestGetTemplate(t *testing.T) {
	router := newTemplateRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/templates/modern", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var tmpl style.TemplateStyle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tmpl))
	assert.Equal(t, "modern", tmpl.ID)
	assert.Equal(t, "Inter", tmpl.Page.FontFamily)
	assert.NotEmpty(t, tmpl.SectionOrder)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/templates/missing", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
