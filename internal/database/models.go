package database

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CV 文档状态。
const (
	StatusDraft     = "draft"
	StatusExporting = "exporting"
	StatusExported  = "exported"
	StatusFailed    = "failed"
)

// CVDocument 表示用户保存的一份简历。
// Content 为 JSONB 存储的简历记录，导出产物只保存对象存储中的 key。
type CVDocument struct {
	ID         string         `gorm:"primaryKey;size:36"`
	UserID     uint           `gorm:"index"`
	Title      string         `gorm:"size:255"`
	TemplateID string         `gorm:"size:64"`
	Content    datatypes.JSON `gorm:"type:jsonb"`
	Status     string         `gorm:"size:32;default:draft"`
	PdfKey     string         `gorm:"size:512"`
	DocxKey    string         `gorm:"size:512"`
	PreviewKey string         `gorm:"size:512"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

// Template 表示模板目录中的一项，Style 为 JSONB 存储的模板样式。
// 支持私有与公开模板（IsPublic），并归属于创建者（UserID）。
type Template struct {
	TemplateID      string         `gorm:"primaryKey;size:64"`
	Title           string         `gorm:"size:255"`
	PreviewImageURL string         `gorm:"size:512"`
	Style           datatypes.JSON `gorm:"type:jsonb"`
	IsPublic        bool           `gorm:"default:false"`
	UserID          uint           `gorm:"index"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// AutoMigrate 创建/更新本服务拥有的表。
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&CVDocument{}, &Template{})
}
