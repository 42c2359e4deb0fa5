package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/api/middleware"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/storage"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/tasks"
)

// TaskEnqueuer 是 asynq.Client 的最小接口。
type TaskEnqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// CVHandler 负责简历文档的增删改查、字段编辑、异步导出与预览。
type CVHandler struct {
	repo           *database.CVRepository
	queue          TaskEnqueuer
	storage        storage.ArtifactStore
	rate           redisRateCounter
	exporter       *export.Service
	exportsPerHour int
}

// NewCVHandler 构造 CVHandler。rate 为 nil 或 exportsPerHour<=0 时不限流。
func NewCVHandler(
	repo *database.CVRepository,
	queue TaskEnqueuer,
	store storage.ArtifactStore,
	rate redisRateCounter,
	exporter *export.Service,
	exportsPerHour int,
) *CVHandler {
	return &CVHandler{
		repo:           repo,
		queue:          queue,
		storage:        store,
		rate:           rate,
		exporter:       exporter,
		exportsPerHour: exportsPerHour,
	}
}

type cvRequest struct {
	Title      string          `json:"title" binding:"required"`
	TemplateID string          `json:"templateId"`
	Content    json.RawMessage `json:"content"`
}

type cvListItem struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	TemplateID string    `json:"templateId"`
	Status     string    `json:"status"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type cvResponse struct {
	ID         string         `json:"id"`
	Title      string         `json:"title"`
	TemplateID string         `json:"templateId"`
	Status     string         `json:"status"`
	Content    datatypes.JSON `json:"content"`
	HasPDF     bool           `json:"has_pdf"`
	HasDOCX    bool           `json:"has_docx"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func newCVResponse(doc database.CVDocument) cvResponse {
	return cvResponse{
		ID:         doc.ID,
		Title:      doc.Title,
		TemplateID: doc.TemplateID,
		Status:     doc.Status,
		Content:    doc.Content,
		HasPDF:     doc.PdfKey != "",
		HasDOCX:    doc.DocxKey != "",
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
	}
}

// normalizeContent 校验记录结构并返回规范化后的 JSON。空内容视为空白简历。
func normalizeContent(raw json.RawMessage) (datatypes.JSON, error) {
	rec := resume.Empty()
	if len(raw) > 0 && string(raw) != "null" {
		decoded, err := resume.Decode(raw)
		if err != nil {
			return nil, err
		}
		rec = decoded
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return datatypes.JSON(data), nil
}

// CreateCV 保存一份新的简历。
func (h *CVHandler) CreateCV(c *gin.Context) {
	var req cvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	content, err := normalizeContent(req.Content)
	if err != nil {
		PipelineError(c, err, "")
		return
	}

	doc := database.CVDocument{
		UserID:     userID,
		Title:      req.Title,
		TemplateID: req.TemplateID,
		Content:    content,
	}
	if err := h.repo.Create(c.Request.Context(), &doc); err != nil {
		middleware.LoggerFromContext(c).Error("create cv failed", slog.Any("error", err))
		Internal(c, "failed to create cv")
		return
	}

	c.JSON(http.StatusCreated, newCVResponse(doc))
}

// ListCVs 列出用户全部简历。
func (h *CVHandler) ListCVs(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	docs, err := h.repo.ListForUser(c.Request.Context(), userID)
	if err != nil {
		Internal(c, "failed to list cvs")
		return
	}

	items := make([]cvListItem, 0, len(docs))
	for _, d := range docs {
		items = append(items, cvListItem{
			ID:         d.ID,
			Title:      d.Title,
			TemplateID: d.TemplateID,
			Status:     d.Status,
			UpdatedAt:  d.UpdatedAt,
		})
	}
	c.JSON(http.StatusOK, items)
}

// GetCV 返回指定简历。
func (h *CVHandler) GetCV(c *gin.Context) {
	doc, ok := h.loadOwned(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newCVResponse(*doc))
}

// UpdateCV 覆盖标题、模板与内容。
func (h *CVHandler) UpdateCV(c *gin.Context) {
	var req cvRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, ok := h.loadOwned(c)
	if !ok {
		return
	}

	content, err := normalizeContent(req.Content)
	if err != nil {
		PipelineError(c, err, "")
		return
	}

	if err := h.repo.Update(c.Request.Context(), doc, req.Title, req.TemplateID, content); err != nil {
		middleware.LoggerFromContext(c).Error("update cv failed", slog.String("cv_id", doc.ID), slog.Any("error", err))
		Internal(c, "failed to update cv")
		return
	}
	c.JSON(http.StatusOK, newCVResponse(*doc))
}

// DeleteCV 删除简历并清理对象存储中的导出产物。
func (h *CVHandler) DeleteCV(c *gin.Context) {
	doc, ok := h.loadOwned(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if err := h.repo.Delete(ctx, doc); err != nil {
		Internal(c, "failed to delete cv")
		return
	}

	if h.storage != nil {
		if err := h.storage.DeletePrefix(ctx, storage.CVPrefix(doc.ID)); err != nil {
			// 文档已删除，残留对象只记录日志
			middleware.LoggerFromContext(c).Warn("delete cv artifacts failed",
				slog.String("cv_id", doc.ID),
				slog.Any("error", err),
			)
		}
	}

	c.Status(http.StatusNoContent)
}

type fieldEditRequest struct {
	Path  string `json:"path" binding:"required"`
	Value string `json:"value"`
}

// EditField 通过字段路径修改记录中的单个字符串。
// 路径无法解析时记录日志并返回 applied=false，不视为错误。
func (h *CVHandler) EditField(c *gin.Context) {
	var req fieldEditRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	doc, ok := h.loadOwned(c)
	if !ok {
		return
	}

	applied, err := applyFieldEdit(c.Request.Context(), h.repo, doc, req.Path, req.Value, middleware.LoggerFromContext(c))
	if err != nil {
		if errcode.IsKind(err, errcode.KindSchemaViolation) {
			PipelineError(c, err, "")
			return
		}
		Internal(c, "failed to apply field edit")
		return
	}

	c.JSON(http.StatusOK, gin.H{"applied": applied, "path": req.Path})
}

// applyFieldEdit 是 HTTP 与画布会话共用的编辑逻辑。
func applyFieldEdit(ctx context.Context, repo *database.CVRepository, doc *database.CVDocument, rawPath, value string, log *slog.Logger) (bool, error) {
	rec, err := resume.Decode(doc.Content)
	if err != nil {
		return false, err
	}

	path, err := resume.ParseFieldPath(rawPath)
	if err == nil {
		err = rec.Set(path, value)
	}
	if err != nil {
		if errcode.IsKind(err, errcode.KindFieldNotFound) {
			log.Warn("field edit ignored",
				slog.String("cv_id", doc.ID),
				slog.String("path", rawPath),
				slog.Any("error", err),
			)
			return false, nil
		}
		return false, err
	}

	content, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("encode record: %w", err)
	}
	if err := repo.UpdateContent(ctx, doc, datatypes.JSON(content)); err != nil {
		return false, err
	}
	return true, nil
}

type exportRequest struct {
	Format  string `json:"format" binding:"required"`
	Profile string `json:"profile"`
}

// RequestExport 将导出任务入队并立即返回 202，结果通过 WebSocket 通知。
func (h *CVHandler) RequestExport(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	format, err := export.ParseFormat(req.Format)
	if err != nil {
		PipelineError(c, err, req.Format)
		return
	}

	doc, ok := h.loadOwned(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	if h.rate != nil && h.exportsPerHour > 0 {
		// 速率限制：每用户每小时 N 次
		rateKey := fmt.Sprintf("rate:export:%d:%s", doc.UserID, time.Now().UTC().Format("2006010215"))
		count, err := incrWithTTL(ctx, h.rate, rateKey, time.Hour)
		if err != nil {
			count = 0
		}
		if count > int64(h.exportsPerHour) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewCVExportTask(doc.ID, string(format), req.Profile, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.queue.Enqueue(task, asynq.MaxRetry(3))
	if err != nil {
		middleware.LoggerFromContext(c).Error("enqueue export failed", slog.String("cv_id", doc.ID), slog.Any("error", err))
		Internal(c, "failed to enqueue export")
		return
	}

	if err := h.repo.SetStatus(ctx, doc.ID, database.StatusExporting); err != nil {
		middleware.LoggerFromContext(c).Warn("mark cv exporting failed", slog.String("cv_id", doc.ID), slog.Any("error", err))
	}

	c.JSON(http.StatusAccepted, gin.H{
		"message": "export request accepted",
		"task_id": info.ID,
		"format":  format,
	})
}

// GetDownloadLink 生成导出产物的预签名下载链接，文件名取自简历中的姓名。
func (h *CVHandler) GetDownloadLink(c *gin.Context) {
	format, err := export.ParseFormat(c.DefaultQuery("format", string(export.FormatPDF)))
	if err != nil {
		PipelineError(c, err, c.Query("format"))
		return
	}

	doc, ok := h.loadOwned(c)
	if !ok {
		return
	}

	key := doc.ArtifactKey(string(format))
	if key == "" {
		Conflict(c, string(format)+" not ready")
		return
	}

	fullName := ""
	if rec, err := resume.Decode(doc.Content); err == nil {
		fullName = rec.PersonalInfo.FullName
	}
	params := map[string]string{
		"response-content-disposition": attachment(export.Filename(fullName, format)),
		"response-content-type":        format.ContentType(),
	}

	signedURL, err := h.storage.GeneratePresignedURLWithParams(c.Request.Context(), key, 5*time.Minute, params)
	if err != nil {
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// GetPreview 返回按页面规格分页后的页面标记。
func (h *CVHandler) GetPreview(c *gin.Context) {
	doc, ok := h.loadOwned(c)
	if !ok {
		return
	}

	rec, err := resume.Decode(doc.Content)
	if err != nil {
		PipelineError(c, err, "")
		return
	}

	preview, err := h.exporter.Preview(c.Request.Context(), rec, doc.TemplateID, c.Query("profile"))
	if err != nil {
		middleware.LoggerFromContext(c).Error("preview failed", slog.String("cv_id", doc.ID), slog.Any("error", err))
		PipelineError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, preview)
}

// loadOwned 读取当前用户拥有的文档，失败时已写出响应。
func (h *CVHandler) loadOwned(c *gin.Context) (*database.CVDocument, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return nil, false
	}

	doc, err := h.repo.GetForUser(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			NotFound(c, "cv not found")
		} else {
			Internal(c, "failed to query cv")
		}
		return nil, false
	}
	return doc, true
}

func userIDFromContext(c *gin.Context) (uint, bool) {
	value, exists := c.Get("userID")
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	case uint64:
		return uint(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint(v), true
	default:
		return 0, false
	}
}
