package algorithms

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"contrast-forge/internal/core"
)

// referenceEqualize rebuilds the window histogram for every pixel
func referenceEqualize(img *core.ImageBuffer, wh, ww int) *core.ImageBuffer {
	out := core.NewImageBuffer(img.Height, img.Width, img.Channels)
	hm, hn := wh/2, ww/2
	for c := 0; c < img.Channels; c++ {
		for i := 0; i < img.Height; i++ {
			for j := 0; j < img.Width; j++ {
				var hist [256]int
				for r := max(0, i-hm); r < min(img.Height, i+hm+1); r++ {
					for q := max(0, j-hn); q < min(img.Width, j+hn+1); q++ {
						hist[img.At(r, q, c)]++
					}
				}
				var cdf [256]int
				run := 0
				for v := range hist {
					run += hist[v]
					cdf[v] = run
				}
				v := img.At(i, j, c)
				if cdf[255] == 0 {
					out.Set(i, j, c, v)
					continue
				}
				out.Set(i, j, c, uint8(math.RoundToEven(255*float64(cdf[v])/float64(cdf[255]))))
			}
		}
	}
	return out
}

func TestEqualizeLocalHandComputed(t *testing.T) {
	img := gray(t, [][]uint8{{0, 100, 200}})

	out, err := EqualizeLocal(img, EqualizeOptions{WindowHeight: 1, WindowWidth: 3})
	require.NoError(t, err)
	// windows {0,100}, {0,100,200}, {100,200}; 127.5 rounds to even
	assert.Equal(t, []uint8{128, 170, 255}, out.Pix)
}

func TestEqualizeLocalMatchesReference(t *testing.T) {
	img := randomRGB(23, 31, 11)
	windows := [][2]int{{1, 1}, {2, 2}, {3, 5}, {8, 4}, {50, 50}, {7, 64}}
	for _, win := range windows {
		for _, workers := range []int{1, 4} {
			out, err := EqualizeLocal(img, EqualizeOptions{WindowHeight: win[0], WindowWidth: win[1], Workers: workers})
			require.NoError(t, err)
			assert.True(t, referenceEqualize(img, win[0], win[1]).Equal(out), "window %v workers %d", win, workers)
		}
	}
}

func TestEqualizeLocalLargeWindowIsGlobal(t *testing.T) {
	img := randomRGB(12, 9, 5)

	local, err := EqualizeLocal(img, EqualizeOptions{WindowHeight: 2*img.Height + 1, WindowWidth: 2*img.Width + 1})
	require.NoError(t, err)
	global, err := EqualizeGlobal(img)
	require.NoError(t, err)
	assert.True(t, global.Equal(local))
}

func TestEqualizeLocalPreservesShape(t *testing.T) {
	img := randomRGB(7, 5, 2)
	out, err := EqualizeLocal(img, DefaultEqualizeOptions())
	require.NoError(t, err)
	assert.True(t, img.SameShape(out))
}

// A constant window is not an identity: cdf[v] equals the window total, so
// every sample lands on 255 instead of keeping its level.
func TestEqualizeLocalUniformWindowMapsTo255NotIdentity(t *testing.T) {
	img := core.NewImageBuffer(4, 4, 3)
	for k := range img.Pix {
		img.Pix[k] = 77
	}

	out, err := EqualizeLocal(img, EqualizeOptions{WindowHeight: 3, WindowWidth: 3})
	require.NoError(t, err)
	for _, v := range out.Pix {
		assert.Equal(t, uint8(255), v)
	}
}

func TestEqualizedLevelEmptyHistogram(t *testing.T) {
	var hist [levels]int
	for _, v := range []uint8{0, 42, 255} {
		assert.Equal(t, v, equalizedLevel(&hist, v, 0))
	}
}

func TestEqualizeLocalInvalidWindow(t *testing.T) {
	img := randomRGB(3, 3, 1)
	_, err := EqualizeLocal(img, EqualizeOptions{WindowHeight: 0, WindowWidth: 3})
	require.ErrorIs(t, err, ErrInvalidWindow)
	require.ErrorIs(t, err, core.ErrConfig)

	_, err = EqualizeLocal(nil, DefaultEqualizeOptions())
	require.ErrorIs(t, err, core.ErrShape)
}

func TestEqualizeGlobal(t *testing.T) {
	img := gray(t, [][]uint8{{10, 10, 20, 30}})
	out, err := EqualizeGlobal(img)
	require.NoError(t, err)
	// cdf: 10->2, 20->3, 30->4 of 4
	assert.Equal(t, []uint8{128, 128, 191, 255}, out.Pix)
}
