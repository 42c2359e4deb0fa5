package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound 表示简历不存在或不属于该用户。
var ErrNotFound = errors.New("cv document not found")

// CVRepository 封装 cv_documents 表的查询，所有读取都按用户隔离。
type CVRepository struct {
	db *gorm.DB
}

func NewCVRepository(db *gorm.DB) *CVRepository {
	return &CVRepository{db: db}
}

// Create 写入新文档，ID 为空时生成 UUID。
func (r *CVRepository) Create(ctx context.Context, doc *CVDocument) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Status == "" {
		doc.Status = StatusDraft
	}
	if err := r.db.WithContext(ctx).Create(doc).Error; err != nil {
		return fmt.Errorf("create cv document: %w", err)
	}
	return nil
}

// Get 按 ID 读取（worker 使用，不校验归属）。
func (r *CVRepository) Get(ctx context.Context, id string) (*CVDocument, error) {
	var doc CVDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&doc).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &doc, nil
}

// GetForUser 读取属于 userID 的文档。
func (r *CVRepository) GetForUser(ctx context.Context, id string, userID uint) (*CVDocument, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var doc CVDocument
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&doc).Error; err != nil {
		return nil, wrapNotFound(err)
	}
	return &doc, nil
}

// ListForUser 按更新时间倒序列出用户的文档。
func (r *CVRepository) ListForUser(ctx context.Context, userID uint) ([]CVDocument, error) {
	var docs []CVDocument
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("updated_at DESC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("list cv documents: %w", err)
	}
	return docs, nil
}

// Update 更新标题、模板与内容。
func (r *CVRepository) Update(ctx context.Context, doc *CVDocument, title, templateID string, content datatypes.JSON) error {
	updates := map[string]any{
		"title":       title,
		"template_id": templateID,
		"content":     content,
	}
	if err := r.db.WithContext(ctx).Model(doc).Updates(updates).Error; err != nil {
		return fmt.Errorf("update cv document: %w", err)
	}
	return r.reload(ctx, doc)
}

// UpdateContent 只替换内容（字段编辑使用）。
func (r *CVRepository) UpdateContent(ctx context.Context, doc *CVDocument, content datatypes.JSON) error {
	if err := r.db.WithContext(ctx).Model(doc).Update("content", content).Error; err != nil {
		return fmt.Errorf("update cv content: %w", err)
	}
	doc.Content = content
	return nil
}

// SetStatus 更新导出状态。
func (r *CVRepository) SetStatus(ctx context.Context, id, status string) error {
	if err := r.db.WithContext(ctx).Model(&CVDocument{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return fmt.Errorf("set cv status: %w", err)
	}
	return nil
}

// SetArtifact 记录导出产物的对象 key 并标记为已导出。
func (r *CVRepository) SetArtifact(ctx context.Context, id, format, objectKey string) error {
	column, err := artifactColumn(format)
	if err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Model(&CVDocument{}).
		Where("id = ?", id).
		Updates(map[string]any{column: objectKey, "status": StatusExported}).Error; err != nil {
		return fmt.Errorf("set cv artifact: %w", err)
	}
	return nil
}

// SetPreview 记录预览缩略图的对象 key。
func (r *CVRepository) SetPreview(ctx context.Context, id, objectKey string) error {
	if err := r.db.WithContext(ctx).Model(&CVDocument{}).
		Where("id = ?", id).
		Update("preview_key", objectKey).Error; err != nil {
		return fmt.Errorf("set cv preview: %w", err)
	}
	return nil
}

// Delete 软删除文档。
func (r *CVRepository) Delete(ctx context.Context, doc *CVDocument) error {
	if err := r.db.WithContext(ctx).Delete(doc).Error; err != nil {
		return fmt.Errorf("delete cv document: %w", err)
	}
	return nil
}

// ArtifactKey 返回指定格式的产物 key。
func (d CVDocument) ArtifactKey(format string) string {
	switch format {
	case "pdf":
		return d.PdfKey
	case "docx":
		return d.DocxKey
	}
	return ""
}

func (r *CVRepository) reload(ctx context.Context, doc *CVDocument) error {
	if err := r.db.WithContext(ctx).Where("id = ?", doc.ID).First(doc).Error; err != nil {
		return fmt.Errorf("reload cv document: %w", wrapNotFound(err))
	}
	return nil
}

func artifactColumn(format string) (string, error) {
	switch format {
	case "pdf":
		return "pdf_key", nil
	case "docx":
		return "docx_key", nil
	}
	return "", fmt.Errorf("unknown artifact format %q", format)
}

func wrapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("query cv document: %w", err)
}
