// Package browser 启动隔离的无头 Chromium 并打开一个空白页面。
// PDF 导出与分页测量都通过它取得页面，浏览器进程在 Close 时统一回收。
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrLaunch 表示浏览器进程无法启动或连接。
var ErrLaunch = errors.New("browser unavailable")

// Options 控制浏览器启动。
type Options struct {
	// Bin 为空时使用 launcher.LookPath 查找本机 Chromium。
	Bin string
	// Timeout 是整个会话的时限，从 Open 开始计算。
	Timeout time.Duration
}

// Session 持有一个浏览器进程和其中的一个页面。
type Session struct {
	Page    *rod.Page
	cleanup func()
}

// Open 启动浏览器。任何一步失败都会回收已启动的进程。
func Open(ctx context.Context, logger *slog.Logger, opts Options) (_ *Session, err error) {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	launch := launcher.New().
		Context(ctx).
		Headless(true).
		NoSandbox(true)
	defer func() {
		if err != nil {
			launch.Cleanup()
		}
	}()

	if opts.Bin != "" {
		launch = launch.Bin(opts.Bin)
	} else if path, ok := launcher.LookPath(); ok {
		launch = launch.Bin(path)
	}

	browserURL, err := launch.Launch()
	if err != nil {
		return nil, fmt.Errorf("%w: launch chromium: %v", ErrLaunch, err)
	}

	b := rod.New().ControlURL(browserURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("%w: connect browser: %v", ErrLaunch, err)
	}
	defer func() {
		if err != nil {
			_ = b.Close()
		}
	}()

	page, err := b.Timeout(opts.Timeout).Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	logger.Debug("browser session opened", slog.String("control_url", browserURL))

	return &Session{
		Page: page.Context(ctx).Timeout(opts.Timeout),
		cleanup: func() {
			_ = page.Close()
			_ = b.Close()
			launch.Cleanup()
		},
	}, nil
}

// Close 关闭页面、浏览器并删除临时用户目录。可重复调用。
func (s *Session) Close() {
	if s == nil || s.cleanup == nil {
		return
	}
	s.cleanup()
	s.cleanup = nil
}

// Closed 报告会话是否已释放。
func (s *Session) Closed() bool {
	return s == nil || s.cleanup == nil
}

// LoadHTML 写入文档并等待 load、网络空闲和字体就绪。
func (s *Session) LoadHTML(logger *slog.Logger, html string) error {
	if logger == nil {
		logger = slog.Default()
	}
	// 先挂上网络空闲等待，再写入文档，避免错过早期请求
	waitIdle := s.Page.WaitRequestIdle(300*time.Millisecond, nil, nil, nil)

	if err := s.Page.SetDocumentContent(html); err != nil {
		return fmt.Errorf("set document content: %w", err)
	}
	if err := s.Page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load: %w", err)
	}
	waitIdle()

	// 额外等待 WebFont/系统字体就绪，避免回退字体度量导致排版差异
	if _, err := s.Page.Timeout(5 * time.Second).Eval(`() => {
	  if (document && document.fonts && document.fonts.ready) {
	    return Promise.race([
	      document.fonts.ready.then(() => true),
	      new Promise((resolve) => setTimeout(() => resolve(true), 3000))
	    ]);
	  }
	  return true;
	}`); err != nil {
		logger.Warn("document.fonts.ready wait failed, continue", slog.Any("error", err))
	}
	return nil
}
