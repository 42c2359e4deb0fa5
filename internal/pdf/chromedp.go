package pdf

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/emulation"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
)

// ChromedpEngine 是基于 chromedp 的等价实现，通过 export.pdf_engine=chromedp 选用。
type ChromedpEngine struct {
	logger   *slog.Logger
	execPath string
	timeout  time.Duration
	margins  Margins
}

// NewChromedpEngine 创建 chromedp 引擎。execPath 为空时由 chromedp 自行查找 Chrome。
func NewChromedpEngine(logger *slog.Logger, execPath string, timeout time.Duration, margins Margins) *ChromedpEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ChromedpEngine{logger: logger, execPath: execPath, timeout: timeout, margins: margins}
}

var _ Engine = (*ChromedpEngine)(nil)

// RenderPDF 直接写入文档内容，不落临时文件。
func (e *ChromedpEngine) RenderPDF(ctx context.Context, html string, profile page.Profile) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	cctx, cancelCtx := chromedp.NewContext(allocCtx)
	defer cancelCtx()

	runCtx, cancelRun := context.WithTimeout(cctx, e.timeout)
	defer cancelRun()

	styleJS, err := injectStyleScript(pageCSS(profile, e.margins))
	if err != nil {
		return nil, err
	}

	var pdfBuf []byte
	err = chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := cdppage.GetFrameTree().Do(ctx)
			if err != nil {
				return fmt.Errorf("get frame tree: %w", err)
			}
			if err := cdppage.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx); err != nil {
				return fmt.Errorf("set document content: %w", err)
			}
			return nil
		}),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var ready bool
			err := chromedp.Evaluate(fontsReadyScript, &ready, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithAwaitPromise(true)
			}).Do(ctx)
			if err != nil {
				e.logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", err))
			}
			return nil
		}),
		emulation.SetEmulatedMedia().WithMedia("print"),
		chromedp.Evaluate(styleJS, nil),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			pdfBuf, _, err = cdppage.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(profile.PaperWidthInches()).
				WithPaperHeight(profile.PaperHeightInches()).
				WithMarginTop(e.margins.Top).
				WithMarginBottom(e.margins.Bottom).
				WithMarginLeft(e.margins.Left).
				WithMarginRight(e.margins.Right).
				WithPreferCSSPageSize(true).
				Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("chromedp print: %w", err)
	}
	return pdfBuf, nil
}

const fontsReadyScript = `(document && document.fonts && document.fonts.ready)
  ? Promise.race([
      document.fonts.ready.then(() => true),
      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
    ])
  : true`

func injectStyleScript(css string) (string, error) {
	quoted, err := json.Marshal(css)
	if err != nil {
		return "", fmt.Errorf("encode page css: %w", err)
	}
	return fmt.Sprintf(`(() => {
  const s = document.createElement('style');
  s.textContent = %s;
  document.head.appendChild(s);
  return true;
})()`, quoted), nil
}
