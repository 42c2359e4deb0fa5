package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/docx"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
)

func postExport(t *testing.T, engine *fakeEngine, body string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/export", NewExportHandler(newExporter(t, engine)).Export)

	req := httptest.NewRequest(http.MethodPost, "/v1/export", bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSyncExportDOCX(t *testing.T) {
	w := postExport(t, &fakeEngine{}, `{"document":`+janeDoe+`,"templateId":"classic","targetFormat":"docx"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, docx.ContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, "attachment; filename=Jane_Doe.docx", w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestSyncExportPDF(t *testing.T) {
	w := postExport(t, &fakeEngine{}, `{"document":`+janeDoe+`,"targetFormat":"pdf","pageProfile":"Letter"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestSyncExportErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		engine *fakeEngine
		body   string
		status int
		code   int
	}{
		{"unsupported format", &fakeEngine{}, `{"document":` + janeDoe + `,"targetFormat":"odt"}`, http.StatusBadRequest, errcode.UnsupportedFormat},
		{"malformed record pdf", &fakeEngine{}, `{"document":{"experience":{}},"targetFormat":"pdf"}`, http.StatusBadRequest, errcode.SchemaViolation},
		{"malformed record docx", &fakeEngine{}, `{"document":{"experience":{}},"targetFormat":"docx"}`, http.StatusBadRequest, errcode.SchemaViolation},
		{"engine failure", &fakeEngine{err: errors.New("chrome crashed")}, `{"document":` + janeDoe + `,"targetFormat":"pdf"}`, http.StatusInternalServerError, errcode.ExportFailed},
		{"rendering unavailable", &fakeEngine{err: errcode.NewRenderingUnavailable(errors.New("no browser"))}, `{"document":` + janeDoe + `,"targetFormat":"pdf"}`, http.StatusServiceUnavailable, errcode.RenderingUnavailable},
	}
	for _, tc := range cases {
		w := postExport(t, tc.engine, tc.body)
		require.Equal(t, tc.status, w.Code, tc.name)

		var body struct {
			Error string `json:"error"`
			Code  int    `json:"code"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), tc.name)
		assert.Equal(t, tc.code, body.Code, tc.name)
	}
}

func TestSyncExportFailureMessageIsGeneric(t *testing.T) {
	w := postExport(t, &fakeEngine{err: errors.New("chrome crashed at /tmp/secret")}, `{"document":`+janeDoe+`,"targetFormat":"pdf"}`)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "failed to export pdf")
	assert.NotContains(t, w.Body.String(), "secret")
}
