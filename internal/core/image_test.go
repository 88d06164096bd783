package core

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBuffer(t *testing.T) *ImageBuffer {
	t.Helper()
	buf, err := NewImageBufferFrom([][][]uint8{
		{{1, 2, 3}, {4, 5, 6}},
		{{7, 8, 9}, {10, 11, 12}},
	})
	require.NoError(t, err)
	return buf
}

func TestNewImageBufferFrom(t *testing.T) {
	buf := testBuffer(t)
	assert.Equal(t, 2, buf.Height)
	assert.Equal(t, 2, buf.Width)
	assert.Equal(t, 3, buf.Channels)
	assert.Equal(t, uint8(8), buf.At(1, 0, 1))
	assert.Equal(t, []uint8{3, 6, 9, 12}, buf.Channel(2))

	_, err := NewImageBufferFrom([][][]uint8{{{1}, {2}}, {{3}}})
	require.ErrorIs(t, err, ErrShape)

	_, err = NewImageBufferFrom(nil)
	require.ErrorIs(t, err, ErrShape)
}

func TestCloneIsIndependent(t *testing.T) {
	buf := testBuffer(t)
	cp := buf.Clone()
	require.True(t, buf.Equal(cp))

	cp.Set(0, 0, 0, 200)
	assert.Equal(t, uint8(1), buf.At(0, 0, 0))
	assert.False(t, buf.Equal(cp))
}

func TestHistogram(t *testing.T) {
	buf := NewImageBuffer(2, 2, 3)
	buf.Set(1, 1, 0, 9)
	hist := buf.Histogram(0)
	assert.Equal(t, 3, hist[0])
	assert.Equal(t, 1, hist[9])
	assert.Equal(t, 4, buf.Histogram(1)[0])
}

func TestRGBARoundTrip(t *testing.T) {
	buf := testBuffer(t)
	rgba := buf.ToRGBA()
	assert.Equal(t, color.RGBA{R: 10, G: 11, B: 12, A: 255}, rgba.RGBAAt(1, 1))

	back := FromImage(rgba)
	assert.True(t, buf.Equal(back))
}

func TestFromImageForcesRGB(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 1))
	gray.Pix = []uint8{0, 128, 255}

	buf := FromImage(gray)
	require.Equal(t, RGBChannels, buf.Channels)
	for c := 0; c < RGBChannels; c++ {
		assert.Equal(t, []uint8{0, 128, 255}, buf.Channel(c))
	}
}

func TestFromImageKeepsStraightRGB(t *testing.T) {
	nrgba := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	nrgba.SetNRGBA(0, 0, color.NRGBA{R: 200, G: 100, B: 50, A: 0})
	nrgba.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 100, B: 51, A: 128})
	nrgba.SetNRGBA(2, 0, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	buf := FromImage(nrgba)
	assert.Equal(t, []uint8{200, 100, 50, 200, 100, 51, 1, 2, 3}, buf.Pix)

	// a sub-image keeps its own origin
	sub := nrgba.SubImage(image.Rect(1, 0, 3, 1))
	assert.Equal(t, []uint8{200, 100, 51, 1, 2, 3}, FromImage(sub).Pix)

	wide := image.NewNRGBA64(image.Rect(0, 0, 1, 1))
	wide.SetNRGBA64(0, 0, color.NRGBA64{R: 0xC8FF, G: 0x6400, B: 0x3301, A: 0})
	assert.Equal(t, []uint8{200, 100, 51}, FromImage(wide).Pix)

	pal := image.NewPaletted(image.Rect(0, 0, 1, 1), color.Palette{color.NRGBA{R: 200, G: 100, B: 50, A: 0}})
	assert.Equal(t, []uint8{200, 100, 50}, FromImage(pal).Pix)
}

func TestSignedClip(t *testing.T) {
	s := NewSignedBuffer(1, 3, 1)
	copy(s.Pix, []int32{-40, 100, 700})
	assert.Equal(t, []uint8{0, 100, 255}, s.Clip().Pix)
}

func TestImageDataLifecycle(t *testing.T) {
	data := NewImageData()
	assert.False(t, data.HasImage())
	assert.Nil(t, data.GetOriginal())

	err := data.SetManipulated(testBuffer(t))
	require.ErrorIs(t, err, ErrConfig)

	require.NoError(t, data.SetOriginal(testBuffer(t), "/tmp/photo.PNG"))
	assert.True(t, data.HasImage())
	assert.Equal(t, "png", data.GetMetadata().Format)
	assert.Equal(t, "/tmp/photo.PNG", data.GetFilepath())

	smaller := NewImageBuffer(1, 1, 3)
	require.NoError(t, data.SetManipulated(smaller))
	assert.Equal(t, 1, data.GetManipulated().Width)
	assert.Equal(t, 2, data.GetOriginal().Width)

	require.NoError(t, data.ResetToOriginal())
	assert.True(t, data.GetManipulated().Equal(testBuffer(t)))

	data.Clear()
	assert.False(t, data.HasImage())
	require.ErrorIs(t, data.ResetToOriginal(), ErrConfig)
}

func TestValidateImage(t *testing.T) {
	require.NoError(t, ValidateImage(testBuffer(t)))
	require.ErrorIs(t, ValidateImage(nil), ErrShape)
	require.ErrorIs(t, ValidateImage(&ImageBuffer{Height: 1, Width: 1, Channels: 3, Pix: []uint8{1}}), ErrShape)
	require.ErrorIs(t, ValidateImage(NewImageBuffer(1, 1, 5)), ErrShape)

	// size is bounded only by memory
	require.NoError(t, ValidateImage(NewImageBuffer(1, 20000, RGBChannels)))
}
