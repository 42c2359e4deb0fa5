// Package export 是导出流水线的入口：校验记录、解析模板与页面规格，
// 然后分发到 PDF 或 DOCX 导出器。预览分页也从这里进入。
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/avast/retry-go/v4"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/docmodel"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/docx"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/errcode"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/metrics"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/pdf"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/view"
)

// Format 是导出目标格式。
type Format string

// unsupportedFormatLabel 是格式无法识别时使用的指标标签。
const unsupportedFormatLabel = "unsupported"

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

// ParseFormat 大小写不敏感；未知格式返回 UnsupportedFormat。
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatPDF, FormatDOCX:
		return f, nil
	}
	return "", errcode.NewUnsupportedFormat(s)
}

// Extension 返回文件扩展名。
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType 返回 MIME 类型。
func (f Format) ContentType() string {
	if f == FormatDOCX {
		return docx.ContentType
	}
	return pdf.ContentType
}

// Request 是一次导出请求。
type Request struct {
	// HTML 为宿主已渲染好的完整文档，仅 PDF 使用；为空时由模板渲染。
	HTML string `json:"html,omitempty"`
	// Document 是原始简历 JSON，只要携带就会先做结构校验。
	// PDF 请求可以只带 HTML；DOCX 必须带 Document。
	Document     json.RawMessage `json:"document"`
	TemplateID   string          `json:"templateId"`
	TargetFormat string          `json:"targetFormat"`
	PageProfile  string          `json:"pageProfile,omitempty"`
}

// Result 是导出产物。
type Result struct {
	Data        []byte
	ContentType string
	Filename    string
}

// Options 控制默认页面规格、页边距与重试间隔。
type Options struct {
	DefaultProfile page.Profile
	MarginInches   float64
	RetryDelay     time.Duration
}

// DefaultOptions 返回 A4、0.4 英寸页边距、500ms 重试间隔。
func DefaultOptions() Options {
	return Options{DefaultProfile: page.A4, MarginInches: view.DefaultMarginInches, RetryDelay: 500 * time.Millisecond}
}

// Service 串联模板解析、文档构建与各格式导出器。
type Service struct {
	registry style.Registry
	builder  *docmodel.Builder
	engine   pdf.Engine
	surfaces SurfaceProvider
	logger   *slog.Logger
	opts     Options
}

// NewService 创建导出服务。engine 为 nil 时 PDF 导出返回 ExportFailed，
// surfaces 为 nil 时预览返回 RenderingUnavailable。
func NewService(registry style.Registry, engine pdf.Engine, surfaces SurfaceProvider, logger *slog.Logger, opts Options) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultOptions()
	if opts.DefaultProfile.Width <= 0 {
		opts.DefaultProfile = def.DefaultProfile
	}
	if opts.MarginInches < 0 {
		opts.MarginInches = 0
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	return &Service{
		registry: registry,
		builder:  docmodel.NewBuilder(registry),
		engine:   engine,
		surfaces: surfaces,
		logger:   logger,
		opts:     opts,
	}
}

// Export 校验请求并导出。失败时不返回任何部分数据。
func (s *Service) Export(ctx context.Context, req Request) (_ Result, err error) {
	start := time.Now()
	format, err := ParseFormat(req.TargetFormat)
	if err != nil {
		// 标签取固定值，避免客户端传入的任意格式名产生新的时间序列
		metrics.ObserveExport(unsupportedFormatLabel, statusOf(err), time.Since(start))
		return Result{}, err
	}
	defer func() {
		metrics.ObserveExport(string(format), statusOf(err), time.Since(start))
	}()

	// 仅携带 HTML 的 PDF 请求不需要记录；一旦带了记录仍要校验，保证两种格式对同一记录的判定一致。
	if format == FormatPDF && strings.TrimSpace(req.HTML) != "" && !hasDocument(req.Document) {
		return s.ExportRecord(ctx, resume.Empty(), req.TemplateID, format, req.PageProfile, req.HTML)
	}

	rec, err := resume.Decode(req.Document)
	if err != nil {
		return Result{}, err
	}
	return s.ExportRecord(ctx, rec, req.TemplateID, format, req.PageProfile, req.HTML)
}

// ExportRecord 导出已解码的记录。html 为空时由模板渲染。
func (s *Service) ExportRecord(ctx context.Context, rec resume.Record, templateID string, format Format, profileName, html string) (Result, error) {
	profile, err := s.profile(profileName)
	if err != nil {
		return Result{}, err
	}
	log := s.logger.With(
		slog.String("format", string(format)),
		slog.String("template_id", templateID),
		slog.String("profile", profile.Name),
	)

	var data []byte
	switch format {
	case FormatPDF:
		data, err = s.withRetry(ctx, log, func() ([]byte, error) {
			return s.renderPDF(ctx, rec, templateID, profile, html)
		})
	case FormatDOCX:
		data, err = s.withRetry(ctx, log, func() ([]byte, error) {
			return s.renderDOCX(ctx, rec, templateID, profile)
		})
	default:
		return Result{}, errcode.NewUnsupportedFormat(string(format))
	}
	if err != nil {
		log.Error("export failed", slog.Any("error", err))
		return Result{}, err
	}

	log.Info("export completed", slog.Int("bytes", len(data)))
	return Result{
		Data:        data,
		ContentType: format.ContentType(),
		Filename:    Filename(rec.PersonalInfo.FullName, format),
	}, nil
}

// RenderHTML 返回用于打印的完整 HTML 文档。
func (s *Service) RenderHTML(ctx context.Context, rec resume.Record, templateID string, profile page.Profile) (string, error) {
	t := style.Resolve(ctx, s.registry, templateID)
	doc, err := view.RenderWithMargin(t, rec, profile, s.opts.MarginInches)
	if err != nil {
		return "", fmt.Errorf("render template view: %w", err)
	}
	return doc.HTML(), nil
}

// Thumbnail 截取第一页 JPEG。引擎不支持截图时返回 pdf.ErrScreenshotUnsupported。
func (s *Service) Thumbnail(ctx context.Context, rec resume.Record, templateID string, profileName string, quality int) ([]byte, error) {
	shooter, ok := s.engine.(pdf.Screenshotter)
	if !ok {
		return nil, pdf.ErrScreenshotUnsupported
	}
	profile, err := s.profile(profileName)
	if err != nil {
		return nil, err
	}
	html, err := s.RenderHTML(ctx, rec, templateID, profile)
	if err != nil {
		return nil, err
	}
	return shooter.Screenshot(ctx, html, profile, quality)
}

func (s *Service) renderPDF(ctx context.Context, rec resume.Record, templateID string, profile page.Profile, html string) ([]byte, error) {
	if s.engine == nil {
		return nil, errcode.NewExportFailed(string(FormatPDF), errors.New("no pdf engine configured"))
	}
	if strings.TrimSpace(html) == "" {
		var err error
		html, err = s.RenderHTML(ctx, rec, templateID, profile)
		if err != nil {
			return nil, errcode.NewExportFailed(string(FormatPDF), err)
		}
	}
	data, err := s.engine.RenderPDF(ctx, html, profile)
	if err != nil {
		if _, ok := errcode.As(err); ok {
			return nil, err
		}
		return nil, errcode.NewExportFailed(string(FormatPDF), err)
	}
	return data, nil
}

func (s *Service) renderDOCX(ctx context.Context, rec resume.Record, templateID string, profile page.Profile) ([]byte, error) {
	tree, err := s.builder.Build(ctx, rec, templateID)
	if err != nil {
		return nil, err
	}
	return docx.RenderWithOptions(tree, docx.Options{Profile: profile, MarginInches: s.opts.MarginInches})
}

// withRetry 仅对 ExportFailed 重试一次，带退避。
func (s *Service) withRetry(ctx context.Context, log *slog.Logger, fn func() ([]byte, error)) ([]byte, error) {
	return retry.DoWithData(fn,
		retry.Context(ctx),
		retry.Attempts(2),
		retry.Delay(s.opts.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			e, ok := errcode.As(err)
			return ok && e.Retryable()
		}),
		retry.OnRetry(func(n uint, err error) {
			log.Warn("export attempt failed, retrying", slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	)
}

func (s *Service) profile(name string) (page.Profile, error) {
	if strings.TrimSpace(name) == "" {
		return s.opts.DefaultProfile, nil
	}
	p, err := page.Parse(name)
	if err != nil {
		return page.Profile{}, errcode.NewSchemaViolation("pageProfile", err.Error())
	}
	return p, nil
}

// Filename 由姓名生成下载文件名，姓名为空时使用 resume。
func Filename(fullName string, format Format) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range strings.TrimSpace(fullName) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore && b.Len() > 0:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	name := strings.TrimRight(b.String(), "_")
	if name == "" {
		name = "resume"
	}
	return name + format.Extension()
}

func hasDocument(raw json.RawMessage) bool {
	doc := strings.TrimSpace(string(raw))
	return doc != "" && doc != "null"
}

func statusOf(err error) string {
	if err == nil {
		return "ok"
	}
	if e, ok := errcode.As(err); ok {
		return string(e.Kind)
	}
	return "error"
}
