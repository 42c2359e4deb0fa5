package pagination

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/page"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/resume"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/style"
	"github.com/SilentCoder-HI/smartcv-builder-sub001/internal/view"
)

func newMetrics(t *testing.T) *MetricsSurface {
	t.Helper()
	s := NewMetricsSurface(nil, style.Default())
	t.Cleanup(s.Close)
	return s
}

func TestMetricsSurfaceWrapsText(t *testing.T) {
	ctx := context.Background()
	s := newMetrics(t)

	short, err := s.Measure(ctx, `<p>Built things.</p>`, page.A4.Width)
	require.NoError(t, err)
	long, err := s.Measure(ctx, `<p>`+strings.Repeat("Built distributed things at scale. ", 40)+`</p>`, page.A4.Width)
	require.NoError(t, err)
	narrow, err := s.Measure(ctx, `<p>`+strings.Repeat("Built distributed things at scale. ", 40)+`</p>`, page.A4.Width/2)
	require.NoError(t, err)

	assert.Greater(t, short, 0.0)
	assert.Greater(t, long, short)
	assert.Greater(t, narrow, long)

	empty, err := s.Measure(ctx, "", page.A4.Width)
	require.NoError(t, err)
	assert.Zero(t, empty)
}

func TestMetricsSurfaceIsAdditive(t *testing.T) {
	ctx := context.Background()
	s := newMetrics(t)

	a, err := s.Measure(ctx, `<div class="cv-entry"><h3>Dev at Acme</h3></div>`, page.A4.Width)
	require.NoError(t, err)
	b, err := s.Measure(ctx, `<div class="cv-entry"><ul><li>Did X</li><li>Did Y</li></ul></div>`, page.A4.Width)
	require.NoError(t, err)
	ab, err := s.Measure(ctx, `<div class="cv-entry"><h3>Dev at Acme</h3></div><div class="cv-entry"><ul><li>Did X</li><li>Did Y</li></ul></div>`, page.A4.Width)
	require.NoError(t, err)

	assert.InDelta(t, a+b, ab, 1e-9)
}

func TestMetricsSurfaceHeaderMinHeight(t *testing.T) {
	s := newMetrics(t)
	h, err := s.Measure(context.Background(), `<header class="cv-header"><h1>X</h1></header>`, page.A4.Width)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, h, style.Default().Header.Height)
}

func TestPaginateRenderedResume(t *testing.T) {
	rec := resume.Record{PersonalInfo: resume.PersonalInfo{FullName: "Jane Doe", JobTitle: "Engineer"}}
	for i := 0; i < 30; i++ {
		rec.Experience = append(rec.Experience, resume.Experience{
			Company:     "Acme",
			Position:    "Dev",
			StartDate:   "2020",
			EndDate:     "2021",
			Description: "- Shipped the thing\n- Kept the lights on\n- Mentored the team",
		})
	}
	rec.Normalize()

	doc, err := view.Render(style.Default(), rec, page.A4)
	require.NoError(t, err)
	want, err := Children(doc.Body)
	require.NoError(t, err)

	pages, err := Paginate(context.Background(), newMetrics(t), doc.Body, page.A4)
	require.NoError(t, err)

	assert.Greater(t, len(pages), 1)
	assert.Equal(t, want, flatten(pages))
	for _, p := range pages {
		assert.True(t, p.Height <= page.A4.Height || p.Oversized)
	}
}
