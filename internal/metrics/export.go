package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	exportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "smartcv",
			Subsystem: "export",
			Name:      "exports_total",
			Help:      "导出请求总数（按格式与结果）。",
		},
		[]string{"format", "status"},
	)

	exportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "smartcv",
			Subsystem: "export",
			Name:      "export_duration_seconds",
			Help:      "单次导出耗时分布（秒），含重试。",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"format"},
	)

	paginationPages = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "smartcv",
			Subsystem: "layout",
			Name:      "pagination_pages",
			Help:      "每次分页产生的页数。",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8, 12},
		},
	)
)

// ObserveExport 记录一次导出的结果与耗时。status 为 "ok" 或错误类别。
func ObserveExport(format, status string, elapsed time.Duration) {
	exportsTotal.WithLabelValues(format, status).Inc()
	exportDuration.WithLabelValues(format).Observe(elapsed.Seconds())
}

// ObservePagination 记录分页结果页数。
func ObservePagination(pages int) {
	paginationPages.Observe(float64(pages))
}
