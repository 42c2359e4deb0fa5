package export

import (
	"fmt"
	"log/slog"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/browser"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/config"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/pdf"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

// NewEngine 按配置选择 rod 或 chromedp，并套上超时、并发上限与熔断。
func NewEngine(logger *slog.Logger, cfg config.ExportConfig) (*pdf.Guard, error) {
	margins := pdf.UniformMargins(cfg.MarginInches)

	name := cfg.PDFEngine
	var engine pdf.Engine
	switch name {
	case "", "rod":
		name = "rod"
		engine = pdf.NewRodEngine(logger, browserOptions(cfg), margins)
	case "chromedp":
		engine = pdf.NewChromedpEngine(logger, cfg.ChromePath, cfg.Timeout, margins)
	default:
		return nil, fmt.Errorf("unknown pdf engine %q", cfg.PDFEngine)
	}

	opts := pdf.DefaultGuardOptions()
	opts.Name = "pdf-" + name
	opts.Timeout = cfg.Timeout
	opts.MaxConcurrent = int64(cfg.MaxConcurrent)
	return pdf.NewGuard(engine, logger, opts), nil
}

// NewSurfaces 按 layout.surface 选择分页测量环境。
func NewSurfaces(logger *slog.Logger, cfg *config.Config) SurfaceProvider {
	if cfg.Layout.Surface == "browser" {
		return BrowserSurfaces{Logger: logger, Options: browserOptions(cfg.Export)}
	}
	return MetricsSurfaces{}
}

// NewFromConfig 组装导出服务。
func NewFromConfig(registry style.Registry, logger *slog.Logger, cfg *config.Config) (*Service, error) {
	profile, err := page.Parse(cfg.Export.DefaultProfile)
	if err != nil {
		return nil, fmt.Errorf("default page profile: %w", err)
	}
	engine, err := NewEngine(logger, cfg.Export)
	if err != nil {
		return nil, err
	}
	return NewService(registry, engine, NewSurfaces(logger, cfg), logger, Options{
		DefaultProfile: profile,
		MarginInches:   cfg.Export.MarginInches,
		RetryDelay:     cfg.Export.RetryDelay,
	}), nil
}

func browserOptions(cfg config.ExportConfig) browser.Options {
	return browser.Options{Bin: cfg.ChromePath, Timeout: cfg.Timeout}
}
