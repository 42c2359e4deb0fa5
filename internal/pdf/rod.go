package pdf

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/browser"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
)

// RodEngine 每次调用启动一个独立的 Chromium（go-rod）。
type RodEngine struct {
	logger  *slog.Logger
	opts    browser.Options
	margins Margins
}

// NewRodEngine 创建 go-rod 引擎。
func NewRodEngine(logger *slog.Logger, opts browser.Options, margins Margins) *RodEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RodEngine{logger: logger, opts: opts, margins: margins}
}

var _ Engine = (*RodEngine)(nil)

// RenderPDF 加载文档、切换 print 媒体并按 profile 纸张尺寸打印。
func (e *RodEngine) RenderPDF(ctx context.Context, html string, profile page.Profile) ([]byte, error) {
	var data []byte
	err := e.withPreparedPage(ctx, html, profile, func(p *rod.Page) error {
		var err error
		data, err = e.print(p, profile)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Screenshot 截取第一页的 JPEG，用作缩略图。
func (e *RodEngine) Screenshot(ctx context.Context, html string, profile page.Profile, quality int) ([]byte, error) {
	var data []byte
	err := e.withPreparedPage(ctx, html, profile, func(p *rod.Page) error {
		var err error
		data, err = captureFirstPage(p, profile, quality)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// withPreparedPage 打开会话并完成打印前准备，fn 返回后会话总会被回收。
func (e *RodEngine) withPreparedPage(ctx context.Context, html string, profile page.Profile, fn func(*rod.Page) error) error {
	session, err := browser.Open(ctx, e.logger, e.opts)
	if err != nil {
		return err
	}
	defer session.Close()

	if err := session.LoadHTML(e.logger, html); err != nil {
		return err
	}

	p := session.Page
	if err := (proto.EmulationSetEmulatedMedia{Media: "print"}).Call(p); err != nil {
		return fmt.Errorf("set emulated media to print: %w", err)
	}
	if err := p.AddStyleTag("", pageCSS(profile, e.margins)); err != nil {
		return fmt.Errorf("inject page css: %w", err)
	}
	return fn(p)
}

func (e *RodEngine) print(p *rod.Page, profile page.Profile) ([]byte, error) {
	params := &proto.PagePrintToPDF{
		PrintBackground:   true,
		PaperWidth:        float64Ptr(profile.PaperWidthInches()),
		PaperHeight:       float64Ptr(profile.PaperHeightInches()),
		MarginTop:         float64Ptr(e.margins.Top),
		MarginBottom:      float64Ptr(e.margins.Bottom),
		MarginLeft:        float64Ptr(e.margins.Left),
		MarginRight:       float64Ptr(e.margins.Right),
		PreferCSSPageSize: true,
	}
	reader, err := p.PDF(params)
	if err != nil {
		return nil, fmt.Errorf("export pdf: %w", err)
	}
	defer func() {
		_ = reader.Close()
	}()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read pdf bytes: %w", err)
	}
	return data, nil
}

func captureFirstPage(p *rod.Page, profile page.Profile, quality int) ([]byte, error) {
	if err := p.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             int(profile.Width),
		Height:            int(profile.Height),
		DeviceScaleFactor: 1,
	}); err != nil {
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	// 缩略图按屏幕媒体截取
	if err := (proto.EmulationSetEmulatedMedia{Media: "screen"}).Call(p); err != nil {
		return nil, fmt.Errorf("set emulated media to screen: %w", err)
	}

	data, err := p.Screenshot(false, &proto.PageCaptureScreenshot{
		Format:  proto.PageCaptureScreenshotFormatJpeg,
		Quality: intPtr(quality),
	})
	if err != nil {
		return nil, fmt.Errorf("page screenshot: %w", err)
	}
	return data, nil
}

func float64Ptr(value float64) *float64 {
	return &value
}

func intPtr(value int) *int {
	return &value
}
