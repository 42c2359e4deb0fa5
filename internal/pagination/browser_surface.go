package pagination

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/browser"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/view"
)

const measureContainerID = "cv-measure"

// BrowserSurface 在无头 Chromium 的离屏容器中测量片段高度，
// 容器应用与打印相同的模板样式表。使用完毕必须 Close。
type BrowserSurface struct {
	session *browser.Session
}

// NewBrowserSurface 启动浏览器并加载样式表。浏览器不可用时返回 RenderingUnavailable。
func NewBrowserSurface(ctx context.Context, logger *slog.Logger, opts browser.Options, css string) (*BrowserSurface, error) {
	session, err := browser.Open(ctx, logger, opts)
	if err != nil {
		if errors.Is(err, browser.ErrLaunch) {
			return nil, errcode.NewRenderingUnavailable(err)
		}
		return nil, err
	}

	shell := view.Page(css, `<div id="`+measureContainerID+`" style="display: flow-root; position: absolute; left: -100000px; top: 0;"></div>`)
	if err := session.LoadHTML(logger, shell); err != nil {
		session.Close()
		return nil, errcode.NewRenderingUnavailable(err)
	}
	return &BrowserSurface{session: session}, nil
}

// Measure 返回片段在给定宽度下的高度。
// 浏览器会话已关闭或中途断开时返回 RenderingUnavailable；调用方取消时返回 ctx 的错误。
func (s *BrowserSurface) Measure(ctx context.Context, markup string, width float64) (float64, error) {
	if s == nil || s.session.Closed() {
		return 0, errcode.NewRenderingUnavailable(errors.New("browser session closed"))
	}
	res, err := s.session.Page.Context(ctx).Eval(`(id, width, markup) => {
	  const el = document.getElementById(id);
	  el.style.width = width + 'px';
	  el.innerHTML = markup;
	  return el.getBoundingClientRect().height;
	}`, measureContainerID, width, markup)
	if err != nil {
		return 0, measureError(ctx, err)
	}
	return res.Value.Num(), nil
}

// measureError 区分调用方取消与浏览器失效：前者原样返回，其余都视为测量环境不可用。
func measureError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("evaluate fragment height: %w", ctxErr)
	}
	return errcode.NewRenderingUnavailable(fmt.Errorf("evaluate fragment height: %w", err))
}

// Close 释放浏览器进程。
func (s *BrowserSurface) Close() {
	if s == nil {
		return
	}
	s.session.Close()
}
