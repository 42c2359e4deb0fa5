package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/pdf"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/storage"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/tasks"
)

const previewQuality = 80

// ExportTaskHandler 负责消费简历导出任务。
type ExportTaskHandler struct {
	repo      *database.CVRepository
	storage   storage.ArtifactStore
	publisher Publisher
	exporter  *export.Service
	logger    *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(
	repo *database.CVRepository,
	storage storage.ArtifactStore,
	publisher Publisher,
	exporter *export.Service,
	logger *slog.Logger,
) *ExportTaskHandler {
	return &ExportTaskHandler{
		repo:      repo,
		storage:   storage,
		publisher: publisher,
		exporter:  exporter,
		logger:    logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.CVExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal export payload: %v: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.String("cv_id", payload.CVID),
		slog.String("format", payload.Format),
	)
	log.Info("Starting CV export task...")

	doc, err := h.repo.Get(ctx, payload.CVID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			log.Warn("cv document not found, skipping task")
			return nil
		}
		log.Error("query cv document failed", slog.Any("error", err))
		return err
	}

	log = log.With(slog.Uint64("user_id", uint64(doc.UserID)))

	defer func() {
		if retErr == nil {
			return
		}
		// 不可重试的错误立即失败，可重试的错误只在最后一次尝试后通知
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}
		if err := h.repo.SetStatus(ctx, doc.ID, database.StatusFailed); err != nil {
			log.Error("mark cv export failed", slog.Any("error", err))
		}
		notify := ExportNotifyMessage{
			Status:        "error",
			CVID:          doc.ID,
			Format:        payload.Format,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     errorCode(retErr),
			ErrorMessage:  fmt.Sprintf("failed to export %s", payload.Format),
		}
		if err := publishNotify(ctx, h.publisher, doc.UserID, notify); err != nil {
			log.Error("publish export error notification failed", slog.Any("error", err))
		}
	}()

	format, err := export.ParseFormat(payload.Format)
	if err != nil {
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	rec, err := resume.Decode(doc.Content)
	if err != nil {
		log.Warn("stored cv content is invalid", slog.Any("error", err))
		return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
	}

	if err := h.repo.SetStatus(ctx, doc.ID, database.StatusExporting); err != nil {
		log.Error("mark cv exporting failed", slog.Any("error", err))
		return err
	}

	res, err := h.exporter.ExportRecord(ctx, rec, doc.TemplateID, format, payload.PageProfile, "")
	if err != nil {
		log.Error("export cv failed", slog.Any("error", err))
		if !retryable(err) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	previousKey := doc.ArtifactKey(string(format))
	objectName := storage.ExportKey(doc.ID, string(format))
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(res.Data), int64(len(res.Data)), res.ContentType); err != nil {
		log.Error("upload export to minio failed", slog.Any("error", err))
		return err
	}

	if err := h.repo.SetArtifact(ctx, doc.ID, string(format), objectName); err != nil {
		log.Error("update cv document failed", slog.Any("error", err))
		return err
	}
	h.removeStale(ctx, log, previousKey, objectName)

	notify := ExportNotifyMessage{
		Status:        "completed",
		CVID:          doc.ID,
		Format:        string(format),
		ObjectKey:     objectName,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	if err := publishNotify(ctx, h.publisher, doc.UserID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	if format == export.FormatPDF {
		if err := h.generatePreviewImage(ctx, doc, rec, payload.PageProfile); err != nil {
			log.Warn("generate cv preview failed", slog.Any("error", err))
		}
	}

	log.Info("CV export task completed successfully.", slog.String("object_key", objectName))
	return nil
}

func (h *ExportTaskHandler) generatePreviewImage(ctx context.Context, doc *database.CVDocument, rec resume.Record, profile string) error {
	previewBytes, err := h.exporter.Thumbnail(ctx, rec, doc.TemplateID, profile, previewQuality)
	if err != nil {
		if errors.Is(err, pdf.ErrScreenshotUnsupported) {
			return nil
		}
		return fmt.Errorf("capture preview screenshot: %w", err)
	}

	previousKey := doc.PreviewKey
	objectName := storage.PreviewKey(doc.ID)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(previewBytes), int64(len(previewBytes)), "image/jpeg"); err != nil {
		return fmt.Errorf("upload preview image: %w", err)
	}
	if err := h.repo.SetPreview(ctx, doc.ID, objectName); err != nil {
		return fmt.Errorf("update cv preview key: %w", err)
	}
	h.removeStale(ctx, h.logger.With(slog.String("cv_id", doc.ID)), previousKey, objectName)
	return nil
}

// removeStale 删除被新产物替换掉的旧对象。新 key 已落库，删除失败只记日志。
func (h *ExportTaskHandler) removeStale(ctx context.Context, log *slog.Logger, previous, current string) {
	if previous == "" || previous == current {
		return
	}
	if err := h.storage.DeleteObject(ctx, previous); err != nil && !storage.IsNoSuchKey(err) {
		log.Warn("delete replaced object failed", slog.String("object_key", previous), slog.Any("error", err))
	}
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}

func retryable(err error) bool {
	e, ok := errcode.As(err)
	return !ok || e.Retryable()
}

func errorCode(err error) int {
	code := errcode.CodeOf(err)
	if code == errcode.OK {
		return errcode.SystemError
	}
	return code
}
