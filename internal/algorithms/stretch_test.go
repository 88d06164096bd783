package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast-forge/internal/core"
)

func TestStretchFullRangeUnchanged(t *testing.T) {
	img := randomRGB(16, 16, 9)
	for c := 0; c < img.Channels; c++ {
		img.Set(0, 0, c, 0)
		img.Set(0, 1, c, 255)
	}

	out, err := Stretch(img, StretchOptions{LowerPercentile: 0, UpperPercentile: 100})
	require.NoError(t, err)
	assert.True(t, img.Equal(out))
}

func TestStretchExplicitScalarBounds(t *testing.T) {
	img := gray(t, [][]uint8{{0, 50, 100, 150, 200}})

	out, err := Stretch(img, StretchOptions{Min: []float64{50}, Max: []float64{150}, LowerPercentile: 5, UpperPercentile: 95})
	require.NoError(t, err)
	// 100 -> 127.5 rounds half to even
	assert.Equal(t, []uint8{0, 0, 128, 255, 255}, out.Pix)
}

func TestStretchPerChannelBounds(t *testing.T) {
	img, err := core.NewImageBufferFrom([][][]uint8{{{10, 10, 10}, {20, 20, 20}}})
	require.NoError(t, err)

	opts := DefaultStretchOptions()
	opts.Min = []float64{10, 0, 0}
	opts.Max = []float64{20, 20, 10}
	out, err := Stretch(img, opts)
	require.NoError(t, err)
	assert.Equal(t, []uint8{0, 128, 255, 255, 255, 255}, out.Pix)
}

func TestStretchConstantChannelPassesThrough(t *testing.T) {
	img, err := core.NewImageBufferFrom([][][]uint8{{{9, 0, 4}, {9, 255, 4}}})
	require.NoError(t, err)

	out, err := Stretch(img, DefaultStretchOptions())
	require.NoError(t, err)
	assert.Equal(t, []uint8{9, 9}, out.Channel(0))
	assert.Equal(t, []uint8{4, 4}, out.Channel(2))

	// inverted explicit bounds also pass through
	out, err = Stretch(img, StretchOptions{Min: []float64{200}, Max: []float64{100}, UpperPercentile: 100})
	require.NoError(t, err)
	assert.True(t, img.Equal(out))
}

func TestStretchPercentileBounds(t *testing.T) {
	row := make([]uint8, 100)
	for k := range row {
		row[k] = uint8(k)
	}
	img := gray(t, [][]uint8{row})
	hist := img.Histogram(0)

	assert.InDelta(t, 4.95, Percentile(&hist, 100, 5), 1e-9)
	assert.InDelta(t, 94.05, Percentile(&hist, 100, 95), 1e-9)
	assert.Equal(t, 0.0, Percentile(&hist, 100, 0))
	assert.Equal(t, 99.0, Percentile(&hist, 100, 100))

	out, err := Stretch(img, DefaultStretchOptions())
	require.NoError(t, err)
	assert.Equal(t, uint8(0), out.Pix[4])
	assert.Equal(t, uint8(255), out.Pix[95])
	assert.Equal(t, uint8(129), out.Pix[50]) // (50-4.95)/89.1*255 = 128.93
}

func TestStretchValidation(t *testing.T) {
	img := randomRGB(2, 2, 1)

	_, err := Stretch(img, StretchOptions{Min: []float64{1, 2}, UpperPercentile: 95})
	require.ErrorIs(t, err, ErrBoundsLength)

	_, err = Stretch(img, StretchOptions{LowerPercentile: -1, UpperPercentile: 95})
	require.ErrorIs(t, err, ErrInvalidPercentile)

	_, err = Stretch(img, StretchOptions{LowerPercentile: 5, UpperPercentile: 101})
	require.ErrorIs(t, err, ErrInvalidPercentile)
	require.ErrorIs(t, err, core.ErrConfig)
}

func TestCompositions(t *testing.T) {
	img := randomRGB(15, 11, 4)
	so := DefaultStretchOptions()
	eo := EqualizeOptions{WindowHeight: 5, WindowWidth: 5}

	stretched, err := Stretch(img, so)
	require.NoError(t, err)
	want, err := EqualizeLocal(stretched, eo)
	require.NoError(t, err)
	got, err := StretchThenEqualize(img, so, eo)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	equalized, err := EqualizeLocal(img, eo)
	require.NoError(t, err)
	want, err = Stretch(equalized, so)
	require.NoError(t, err)
	got, err = EqualizeThenStretch(img, eo, so)
	require.NoError(t, err)
	assert.True(t, want.Equal(got))

	_, err = StretchThenEqualize(img, so, EqualizeOptions{})
	require.ErrorIs(t, err, ErrInvalidWindow)
}
