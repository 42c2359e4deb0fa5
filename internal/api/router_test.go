package api

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBareRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHealthEchoesCorrelationID(t *testing.T) {
	router := newBareRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Correlation-ID", "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	assert.Equal(t, "abc-123", w.Header().Get("X-Correlation-ID"))
}

func TestHealthGeneratesCorrelationID(t *testing.T) {
	w := httptest.NewRecorder()
	newBareRouter().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := newBareRouter()
	// 鉴权失败时处理器不会被调用，因此这里不需要真实依赖
	RegisterRoutes(router, Handlers{}, fakeValidator{})

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/cv"},
		{http.MethodPost, "/v1/export"},
		{http.MethodPatch, "/v1/cv/x/field"},
		{http.MethodGet, "/v1/templates"},
	} {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		req.Header.Set("Authorization", "Bearer bad-token")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, "%s %s", tc.method, tc.path)
	}
}
