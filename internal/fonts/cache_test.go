package fonts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyRoundTrip(t *testing.T) {
	key := Key("bold", 28, "Helvetica Neue")
	assert.Equal(t, "bold 28px Helvetica Neue", key)

	spec, err := ParseKey(key)
	require.NoError(t, err)
	assert.Equal(t, Spec{Weight: "bold", Size: 28, Family: "Helvetica Neue"}, spec)
	assert.Equal(t, key, spec.Key())
}

func TestParseKeyRejectsGarbage(t *testing.T) {
	for _, k := range []string{"", "bold", "bold 12 Arial", "bold -3px Arial"} {
		_, err := ParseKey(k)
		assert.Error(t, err, k)
	}
}

func TestSameKeySameFace(t *testing.T) {
	c := NewCache()
	defer c.Close()

	a, err := c.Face(Key("normal", 16, "sans-serif"))
	require.NoError(t, err)
	b, err := c.Face(Key("normal", 16, "sans-serif"))
	require.NoError(t, err)
	assert.Same(t, a, b)
}

func TestMeasureScalesWithSizeAndWeight(t *testing.T) {
	c := NewCache()
	defer c.Close()

	small, err := c.Measure(Key("normal", 12, "sans-serif"), "Curriculum Vitae")
	require.NoError(t, err)
	large, err := c.Measure(Key("normal", 24, "sans-serif"), "Curriculum Vitae")
	require.NoError(t, err)
	bold, err := c.Measure(Key("bold", 12, "sans-serif"), "Curriculum Vitae")
	require.NoError(t, err)

	assert.Greater(t, small, 0.0)
	assert.InDelta(t, small*2, large, small*0.1)
	assert.Greater(t, bold, small)

	empty, err := c.Measure(Key("normal", 12, "sans-serif"), "")
	require.NoError(t, err)
	assert.Zero(t, empty)

	lh, err := c.LineHeight(Key("normal", 12, "sans-serif"))
	require.NoError(t, err)
	assert.Greater(t, lh, 12.0)
}
