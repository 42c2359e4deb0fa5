package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/storage"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/tasks"
)

type cvFixture struct {
	repo    *database.CVRepository
	store   *fakeStorage
	queue   *fakeQueue
	rate    *fakeRate
	handler *CVHandler
	router  *gin.Engine
}

func newCVFixture(t *testing.T, exportsPerHour int) *cvFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := &cvFixture{
		repo:  database.NewCVRepository(newTestDB(t)),
		store: &fakeStorage{},
		queue: &fakeQueue{},
		rate:  &fakeRate{},
	}
	f.handler = NewCVHandler(f.repo, f.queue, f.store, f.rate, newExporter(t, &fakeEngine{}), exportsPerHour)

	f.router = gin.New()
	g := f.router.Group("/v1/cv", asUser(1))
	g.GET("", f.handler.ListCVs)
	g.POST("", f.handler.CreateCV)
	g.GET("/:id", f.handler.GetCV)
	g.PUT("/:id", f.handler.UpdateCV)
	g.DELETE("/:id", f.handler.DeleteCV)
	g.PATCH("/:id/field", f.handler.EditField)
	g.POST("/:id/export", f.handler.RequestExport)
	g.GET("/:id/download-link", f.handler.GetDownloadLink)
	g.GET("/:id/preview", f.handler.GetPreview)
	return f
}

func (f *cvFixture) do(method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestCreateCVNormalizesContent(t *testing.T) {
	f := newCVFixture(t, 0)

	w := f.do(http.MethodPost, "/v1/cv", `{"title":"First","templateId":"modern","content":`+janeDoe+`}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp cvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "First", resp.Title)
	assert.Equal(t, database.StatusDraft, resp.Status)

	rec, err := resume.Decode(resp.Content)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", rec.PersonalInfo.FullName)
}

func TestCreateCVWithoutContentStartsBlank(t *testing.T) {
	f := newCVFixture(t, 0)

	w := f.do(http.MethodPost, "/v1/cv", `{"title":"Blank"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp cvResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	rec, err := resume.Decode(resp.Content)
	require.NoError(t, err)
	assert.Equal(t, "", rec.PersonalInfo.FullName)
}

func TestCreateCVRejectsMalformedRecord(t *testing.T) {
	f := newCVFixture(t, 0)

	w := f.do(http.MethodPost, "/v1/cv", `{"title":"Bad","content":{"experience":{"company":"Acme"}}}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var body struct {
		Code int    `json:"code"`
		Path string `json:"path"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, errcode.SchemaViolation, body.Code)
	assert.Equal(t, "experience", body.Path)
}

func TestGetCVIsOwnerScoped(t *testing.T) {
	f := newCVFixture(t, 0)
	mine := seedCV(t, f.repo, 1)
	theirs := seedCV(t, f.repo, 2)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/v1/cv/"+mine.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/cv/"+theirs.ID, "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/v1/cv/42", "").Code)

	w := f.do(http.MethodGet, "/v1/cv", "")
	require.Equal(t, http.StatusOK, w.Code)
	var items []cvListItem
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	assert.Equal(t, mine.ID, items[0].ID)
}

func TestUpdateCV(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	w := f.do(http.MethodPut, "/v1/cv/"+doc.ID, `{"title":"Renamed","templateId":"modern","content":{"hobbies":["Chess"]}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := f.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, "modern", got.TemplateID)
	rec, err := resume.Decode(got.Content)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chess"}, rec.Hobbies)
}

func TestDeleteCVRemovesArtifacts(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	w := f.do(http.MethodDelete, "/v1/cv/"+doc.ID, "")
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{storage.CVPrefix(doc.ID)}, f.store.deleted)

	_, err := f.repo.Get(context.Background(), doc.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestEditFieldAppliesByPath(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	w := f.do(http.MethodPatch, "/v1/cv/"+doc.ID+"/field", `{"path":"experience.description.e1","value":"- Shipped Z"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"applied":true,"path":"experience.description.e1"}`, w.Body.String())

	got, err := f.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	rec, err := resume.Decode(got.Content)
	require.NoError(t, err)
	assert.Equal(t, "- Shipped Z", rec.Experience[0].Description)
}

func TestEditFieldIgnoresUnknownPath(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	for _, path := range []string{"experience.description.missing", "nonsense", "personalInfo.nickname"} {
		w := f.do(http.MethodPatch, "/v1/cv/"+doc.ID+"/field", `{"path":"`+path+`","value":"x"}`)
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Contains(t, w.Body.String(), `"applied":false`, path)
	}

	got, err := f.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.JSONEq(t, string(doc.Content), string(got.Content))
}

func TestRequestExportEnqueuesTask(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	w := f.do(http.MethodPost, "/v1/cv/"+doc.ID+"/export", `{"format":"DOCX","profile":"Letter"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	require.Len(t, f.queue.tasks, 1)

	task := f.queue.tasks[0]
	assert.Equal(t, tasks.TypeCVExport, task.Type())
	var payload tasks.CVExportPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, doc.ID, payload.CVID)
	assert.Equal(t, "docx", payload.Format)
	assert.Equal(t, "Letter", payload.PageProfile)

	got, err := f.repo.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, database.StatusExporting, got.Status)
}

func TestRequestExportRejectsUnsupportedFormat(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	w := f.do(http.MethodPost, "/v1/cv/"+doc.ID+"/export", `{"format":"odt"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"code":4150`)
	assert.Empty(t, f.queue.tasks)
}

func TestRequestExportRateLimited(t *testing.T) {
	f := newCVFixture(t, 2)
	doc := seedCV(t, f.repo, 1)

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusAccepted, f.do(http.MethodPost, "/v1/cv/"+doc.ID+"/export", `{"format":"pdf"}`).Code)
	}
	w := f.do(http.MethodPost, "/v1/cv/"+doc.ID+"/export", `{"format":"pdf"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Len(t, f.queue.tasks, 2)
}

func TestDownloadLink(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	w := f.do(http.MethodGet, "/v1/cv/"+doc.ID+"/download-link?format=pdf", "")
	assert.Equal(t, http.StatusConflict, w.Code)

	key := storage.ExportKey(doc.ID, "pdf")
	require.NoError(t, f.repo.SetArtifact(context.Background(), doc.ID, "pdf", key))

	w = f.do(http.MethodGet, "/v1/cv/"+doc.ID+"/download-link?format=pdf", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), key)
	assert.Equal(t, key, f.store.lastKey)
	assert.Equal(t, `attachment; filename=Jane_Doe.pdf`, f.store.lastArgs["response-content-disposition"])
	assert.Equal(t, "application/pdf", f.store.lastArgs["response-content-type"])

	w = f.do(http.MethodGet, "/v1/cv/"+doc.ID+"/download-link?format=rtf", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPreviewPaginatesStoredRecord(t *testing.T) {
	f := newCVFixture(t, 0)
	doc := seedCV(t, f.repo, 1)

	w := f.do(http.MethodGet, "/v1/cv/"+doc.ID+"/preview?profile=A4", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body struct {
		Profile string `json:"profile"`
		Pages   []struct {
			Index int `json:"index"`
		} `json:"pages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "A4", body.Profile)
	require.NotEmpty(t, body.Pages)
	assert.Equal(t, 0, body.Pages[0].Index)

	w = f.do(http.MethodGet, "/v1/cv/"+doc.ID+"/preview?profile=A3", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "pageProfile"))
}
