package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/config"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/export"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
)

func main() {
	var (
		input    = flag.String("in", "", "简历记录 JSON 文件（必填）")
		format   = flag.String("format", "pdf", "导出格式：pdf 或 docx")
		template = flag.String("template", "", "模板 ID（可选，默认 classic）")
		profile  = flag.String("profile", "", "页面规格：A4/Letter/Legal 或像素高度（可选，默认读 EXPORT_DEFAULT_PROFILE）")
		output   = flag.String("out", "", "输出文件（可选，默认按姓名生成）")
		htmlFile = flag.String("html", "", "已渲染的 HTML 文件，仅 PDF 使用（可选）")
		engine   = flag.String("engine", "", "PDF 引擎：rod 或 chromedp（可选，默认读 EXPORT_PDF_ENGINE）")
		chrome   = flag.String("chrome", "", "Chromium 路径（可选，默认读 CHROME_BIN）")
		timeout  = flag.Duration("timeout", 0, "单次导出时限（可选，默认读 EXPORT_TIMEOUT）")
	)
	flag.Parse()

	in := strings.TrimSpace(*input)
	if in == "" {
		log.Fatal("missing required flag: --in")
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	exportCfg, err := loadExportConfig(*engine, *chrome, *profile, *timeout)
	if err != nil {
		log.Fatalf("load export config: %v", err)
	}

	document, err := os.ReadFile(in)
	if err != nil {
		log.Fatalf("read record: %v", err)
	}

	var html string
	if *htmlFile != "" {
		data, err := os.ReadFile(*htmlFile)
		if err != nil {
			log.Fatalf("read html: %v", err)
		}
		html = string(data)
	}

	registry, err := style.NewBuiltinRegistry()
	if err != nil {
		log.Fatalf("load builtin templates: %v", err)
	}

	cfg := &config.Config{Export: exportCfg}
	cfg.Layout.Surface = "metrics"
	svc, err := export.NewFromConfig(registry, logger, cfg)
	if err != nil {
		log.Fatalf("init export service: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*exportCfg.Timeout+5*time.Second)
	defer cancel()

	result, err := svc.Export(ctx, export.Request{
		HTML:         html,
		Document:     document,
		TemplateID:   *template,
		TargetFormat: *format,
	})
	if err != nil {
		log.Fatalf("export: %v", err)
	}

	out := strings.TrimSpace(*output)
	if out == "" {
		out = filepath.Join(filepath.Dir(in), result.Filename)
	}
	if err := os.WriteFile(out, result.Data, 0o644); err != nil {
		log.Fatalf("write output: %v", err)
	}

	fmt.Printf("已导出 %s（%d 字节）\n", out, len(result.Data))
}

// loadExportConfig 以命令行参数为准，缺省时回落到与服务相同的环境变量。
func loadExportConfig(engine, chrome, profile string, timeout time.Duration) (config.ExportConfig, error) {
	if strings.TrimSpace(engine) == "" {
		engine = os.Getenv("EXPORT_PDF_ENGINE")
	}
	if strings.TrimSpace(chrome) == "" {
		chrome = os.Getenv("CHROME_BIN")
	}
	if strings.TrimSpace(profile) == "" {
		profile = os.Getenv("EXPORT_DEFAULT_PROFILE")
	}
	if timeout <= 0 {
		if env := strings.TrimSpace(os.Getenv("EXPORT_TIMEOUT")); env != "" {
			d, err := time.ParseDuration(env)
			if err != nil {
				return config.ExportConfig{}, fmt.Errorf("parse EXPORT_TIMEOUT: %w", err)
			}
			timeout = d
		}
	}

	margin := 0.4
	if env := strings.TrimSpace(os.Getenv("EXPORT_MARGIN_INCHES")); env != "" {
		m, err := strconv.ParseFloat(env, 64)
		if err != nil {
			return config.ExportConfig{}, fmt.Errorf("parse EXPORT_MARGIN_INCHES: %w", err)
		}
		margin = m
	}

	engine = strings.ToLower(strings.TrimSpace(engine))
	if engine == "" {
		engine = "rod"
	}
	if engine != "rod" && engine != "chromedp" {
		return config.ExportConfig{}, errors.New("pdf engine must be rod or chromedp")
	}
	if strings.TrimSpace(profile) == "" {
		profile = "A4"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if margin < 0 {
		return config.ExportConfig{}, errors.New("margin must not be negative")
	}

	return config.ExportConfig{
		DefaultProfile: profile,
		PDFEngine:      engine,
		Timeout:        timeout,
		MaxConcurrent:  1,
		MarginInches:   margin,
		RetryDelay:     500 * time.Millisecond,
		ChromePath:     chrome,
	}, nil
}
