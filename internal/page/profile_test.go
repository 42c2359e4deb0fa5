package page

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNamedProfiles(t *testing.T) {
	cases := map[string]Profile{
		"A4":      A4,
		"a4":      A4,
		" letter": Letter,
		"LEGAL":   Legal,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
}

func TestParseExplicitHeight(t *testing.T) {
	for _, in := range []string{"1200px", "1200"} {
		p, err := Parse(in)
		require.NoError(t, err)
		assert.Equal(t, A4.Width, p.Width)
		assert.Equal(t, 1200.0, p.Height)
		assert.Equal(t, "1200px", p.Name)
		assert.InDelta(t, 12.5, p.PaperHeightInches(), 1e-9)
	}
}

func TestParseRejectsUnknown(t *testing.T) {
	for _, in := range []string{"", "A3", "-5px", "0", "tall"} {
		_, err := Parse(in)
		assert.Error(t, err, in)
	}
}

func TestPaperInches(t *testing.T) {
	assert.Equal(t, 8.27, A4.PaperWidthInches())
	assert.Equal(t, 11.69, A4.PaperHeightInches())
	assert.Equal(t, 14.0, Legal.PaperHeightInches())
	assert.Equal(t, "Letter", Letter.CSSSize())
}
