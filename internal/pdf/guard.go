package pdf

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/semaphore"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
)

// ErrScreenshotUnsupported 表示底层引擎不支持截图。
var ErrScreenshotUnsupported = errors.New("engine does not support screenshots")

// Screenshotter 由支持缩略图截取的引擎实现。
type Screenshotter interface {
	Screenshot(ctx context.Context, html string, profile page.Profile, quality int) ([]byte, error)
}

// GuardOptions 控制超时、并发上限与熔断。
type GuardOptions struct {
	Name string
	// Timeout 是单次调用的时限（含排队等待）。
	Timeout time.Duration
	// MaxConcurrent 限制同时存在的浏览器进程数。
	MaxConcurrent int64
	// FailureThreshold 与 MinRequests 决定熔断条件。
	FailureThreshold float64
	MinRequests      uint32
	// OpenTimeout 是熔断后进入半开状态前的等待时间。
	OpenTimeout time.Duration
}

// DefaultGuardOptions 返回默认配置。
func DefaultGuardOptions() GuardOptions {
	return GuardOptions{
		Name:             "pdf-engine",
		Timeout:          60 * time.Second,
		MaxConcurrent:    2,
		FailureThreshold: 0.8,
		MinRequests:      5,
		OpenTimeout:      30 * time.Second,
	}
}

// Guard 为引擎加上超时、并发上限和熔断器，所有失败统一为 ExportFailed。
type Guard struct {
	engine  Engine
	opts    GuardOptions
	sem     *semaphore.Weighted
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewGuard 包装 engine。
func NewGuard(engine Engine, logger *slog.Logger, opts GuardOptions) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultGuardOptions()
	if opts.Name == "" {
		opts.Name = def.Name
	}
	if opts.Timeout <= 0 {
		opts.Timeout = def.Timeout
	}
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = def.MaxConcurrent
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = def.FailureThreshold
	}
	if opts.MinRequests == 0 {
		opts.MinRequests = def.MinRequests
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = def.OpenTimeout
	}

	g := &Guard{
		engine: engine,
		opts:   opts,
		sem:    semaphore.NewWeighted(opts.MaxConcurrent),
		logger: logger,
	}
	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        opts.Name,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < opts.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= opts.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("pdf circuit breaker state changed",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
		// 调用方主动取消不计入失败
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return g
}

var _ Engine = (*Guard)(nil)

// RenderPDF 在限制条件下调用底层引擎。
func (g *Guard) RenderPDF(ctx context.Context, html string, profile page.Profile) ([]byte, error) {
	data, err := g.run(ctx, func(ctx context.Context) ([]byte, error) {
		return g.engine.RenderPDF(ctx, html, profile)
	})
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errcode.NewExportFailed(format, errors.New("engine returned empty document"))
	}
	return data, nil
}

// Screenshot 在同样的限制下截取缩略图。
func (g *Guard) Screenshot(ctx context.Context, html string, profile page.Profile, quality int) ([]byte, error) {
	shooter, ok := g.engine.(Screenshotter)
	if !ok {
		return nil, ErrScreenshotUnsupported
	}
	return g.run(ctx, func(ctx context.Context) ([]byte, error) {
		return shooter.Screenshot(ctx, html, profile, quality)
	})
}

// State 返回熔断器当前状态。
func (g *Guard) State() gobreaker.State {
	return g.breaker.State()
}

func (g *Guard) run(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, errcode.NewExportFailed(format, fmt.Errorf("wait for browser slot: %w", err))
	}
	defer g.sem.Release(1)

	out, err := g.breaker.Execute(func() (interface{}, error) {
		return fn(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			g.logger.Warn("pdf engine rejected by circuit breaker", slog.Any("error", err))
		}
		if errcode.IsKind(err, errcode.KindExportFailed) {
			return nil, err
		}
		return nil, errcode.NewExportFailed(format, err)
	}
	data, _ := out.([]byte)
	return data, nil
}
