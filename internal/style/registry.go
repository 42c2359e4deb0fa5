package style

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/database"
)

//go:embed catalog.json
var catalogJSON []byte

// Summary 是模板目录中的一条简要信息。
type Summary struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	PreviewImageURL string `json:"preview_image_url,omitempty"`
	Builtin         bool   `json:"builtin"`
}

// Catalog 列出可选模板。
type Catalog interface {
	List(ctx context.Context, userID uint) ([]Summary, error)
}

// Decode 将模板 JSON 覆盖到默认样式上，未出现的字段保留默认值。
func Decode(raw []byte) (TemplateStyle, error) {
	t := Default()
	if len(raw) == 0 {
		return t, nil
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return TemplateStyle{}, fmt.Errorf("decode template style: %w", err)
	}
	return t, nil
}

// BuiltinRegistry 是随二进制发布的模板目录。
type BuiltinRegistry struct {
	byID  map[string]TemplateStyle
	order []string
}

// NewBuiltinRegistry 解析内嵌的模板目录。
func NewBuiltinRegistry() (*BuiltinRegistry, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(catalogJSON, &raws); err != nil {
		return nil, fmt.Errorf("parse builtin catalog: %w", err)
	}
	r := &BuiltinRegistry{byID: make(map[string]TemplateStyle, len(raws))}
	for i, raw := range raws {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(raw, &head); err != nil || head.ID == "" {
			return nil, fmt.Errorf("builtin template #%d: missing id", i)
		}
		t, err := Decode(raw)
		if err != nil {
			return nil, fmt.Errorf("builtin template #%d: %w", i, err)
		}
		r.byID[t.ID] = t
		r.order = append(r.order, t.ID)
	}
	return r, nil
}

func (r *BuiltinRegistry) Get(_ context.Context, id string) (TemplateStyle, error) {
	t, ok := r.byID[id]
	if !ok {
		return TemplateStyle{}, ErrNotFound
	}
	t.SectionOrder = t.Order()
	return t, nil
}

func (r *BuiltinRegistry) List(_ context.Context, _ uint) ([]Summary, error) {
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, Summary{ID: id, Title: r.byID[id].Title, Builtin: true})
	}
	return out, nil
}

// GormRegistry 读取 templates 表中的用户/公开模板。
type GormRegistry struct {
	db *gorm.DB
}

func NewGormRegistry(db *gorm.DB) *GormRegistry {
	return &GormRegistry{db: db}
}

func (r *GormRegistry) Get(ctx context.Context, id string) (TemplateStyle, error) {
	var model database.Template
	if err := r.db.WithContext(ctx).Where("template_id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TemplateStyle{}, ErrNotFound
		}
		return TemplateStyle{}, fmt.Errorf("query template %q: %w", id, err)
	}
	t, err := Decode(model.Style)
	if err != nil {
		return TemplateStyle{}, err
	}
	t.ID = model.TemplateID
	if model.Title != "" {
		t.Title = model.Title
	}
	return t, nil
}

// List 返回当前用户的模板 ∪ 所有公开模板。
func (r *GormRegistry) List(ctx context.Context, userID uint) ([]Summary, error) {
	var models []database.Template
	if err := r.db.WithContext(ctx).
		Where("user_id = ? OR is_public = ?", userID, true).
		Order("updated_at DESC").
		Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	out := make([]Summary, 0, len(models))
	for _, m := range models {
		out = append(out, Summary{ID: m.TemplateID, Title: m.Title, PreviewImageURL: m.PreviewImageURL})
	}
	return out, nil
}

// Catalogs 合并多个目录，ID 重复时保留先出现的条目。
type Catalogs []Catalog

func (c Catalogs) List(ctx context.Context, userID uint) ([]Summary, error) {
	seen := make(map[string]bool)
	out := make([]Summary, 0)
	for _, cat := range c {
		items, err := cat.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if seen[it.ID] {
				continue
			}
			seen[it.ID] = true
			out = append(out, it)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Builtin && !out[j].Builtin })
	return out, nil
}
