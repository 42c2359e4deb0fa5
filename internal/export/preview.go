package export

import (
	"context"
	"log/slog"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/browser"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/fonts"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/metrics"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/pagination"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/view"
)

// SurfaceProvider 为一次分页提供测量环境，返回的 release 必须调用。
type SurfaceProvider interface {
	Open(ctx context.Context, t style.TemplateStyle, css string) (surface pagination.Surface, release func(), err error)
}

// MetricsSurfaces 使用内置字体估算高度，不依赖浏览器。
type MetricsSurfaces struct{}

func (MetricsSurfaces) Open(_ context.Context, t style.TemplateStyle, _ string) (pagination.Surface, func(), error) {
	s := pagination.NewMetricsSurface(fonts.NewCache(), t)
	return s, s.Close, nil
}

// BrowserSurfaces 每次分页启动一个无头浏览器测量。
type BrowserSurfaces struct {
	Logger  *slog.Logger
	Options browser.Options
}

func (b BrowserSurfaces) Open(ctx context.Context, _ style.TemplateStyle, css string) (pagination.Surface, func(), error) {
	s, err := pagination.NewBrowserSurface(ctx, b.Logger, b.Options, css)
	if err != nil {
		return nil, func() {}, err
	}
	return s, s.Close, nil
}

// Preview 是分页预览的结果。
type Preview struct {
	TemplateID string            `json:"templateId"`
	Profile    string            `json:"profile"`
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	CSS        string            `json:"css"`
	Pages      []pagination.Page `json:"pages"`
}

// Preview 渲染模板视图并按页面规格分页。
func (s *Service) Preview(ctx context.Context, rec resume.Record, templateID, profileName string) (Preview, error) {
	if s.surfaces == nil {
		return Preview{}, errcode.NewRenderingUnavailable(nil)
	}
	profile, err := s.profile(profileName)
	if err != nil {
		return Preview{}, err
	}

	t := style.Resolve(ctx, s.registry, templateID)
	doc, err := view.RenderWithMargin(t, rec, profile, s.opts.MarginInches)
	if err != nil {
		return Preview{}, err
	}

	surface, release, err := s.surfaces.Open(ctx, t, doc.CSS)
	if err != nil {
		return Preview{}, err
	}
	defer release()

	pages, err := pagination.Paginate(ctx, surface, doc.Body, profile)
	if err != nil {
		return Preview{}, err
	}
	metrics.ObservePagination(len(pages))

	return Preview{
		TemplateID: t.ID,
		Profile:    profile.Name,
		Width:      profile.Width,
		Height:     profile.Height,
		CSS:        doc.CSS,
		Pages:      pages,
	}, nil
}
