// Raster buffers shared by the processing engine
package core

import (
	"fmt"
	"image"
	"image/color"
)

// RGBChannels is the channel count of every decoded image.
const RGBChannels = 3

// ImageBuffer holds 8-bit samples in row-major, channel-last order.
// The shape is fixed at construction.
type ImageBuffer struct {
	Height   int
	Width    int
	Channels int
	Pix      []uint8
}

// NewImageBuffer allocates a zeroed buffer of the given shape
func NewImageBuffer(height, width, channels int) *ImageBuffer {
	if height < 0 || width < 0 || channels < 0 {
		panic(fmt.Sprintf("core: negative buffer shape %dx%dx%d", height, width, channels))
	}
	return &ImageBuffer{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]uint8, height*width*channels),
	}
}

// NewImageBufferFrom wraps rows of per-pixel samples, mostly useful in tests.
// rows[i][j] holds the channel values of pixel (i, j).
func NewImageBufferFrom(rows [][][]uint8) (*ImageBuffer, error) {
	if len(rows) == 0 || len(rows[0]) == 0 || len(rows[0][0]) == 0 {
		return nil, fmt.Errorf("empty pixel rows: %w", ErrShape)
	}
	h, w, c := len(rows), len(rows[0]), len(rows[0][0])
	buf := NewImageBuffer(h, w, c)
	for i, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d pixels, want %d: %w", i, len(row), w, ErrShape)
		}
		for j, px := range row {
			if len(px) != c {
				return nil, fmt.Errorf("pixel (%d,%d) has %d channels, want %d: %w", i, j, len(px), c, ErrShape)
			}
			copy(buf.Pix[buf.Offset(i, j):], px)
		}
	}
	return buf, nil
}

// Offset returns the index of channel 0 of pixel (i, j) in Pix
func (b *ImageBuffer) Offset(i, j int) int {
	return (i*b.Width + j) * b.Channels
}

func (b *ImageBuffer) At(i, j, c int) uint8 {
	return b.Pix[b.Offset(i, j)+c]
}

func (b *ImageBuffer) Set(i, j, c int, v uint8) {
	b.Pix[b.Offset(i, j)+c] = v
}

// Empty reports whether the buffer holds no samples
func (b *ImageBuffer) Empty() bool {
	return b == nil || len(b.Pix) == 0
}

// Clone returns a deep copy
func (b *ImageBuffer) Clone() *ImageBuffer {
	out := NewImageBuffer(b.Height, b.Width, b.Channels)
	copy(out.Pix, b.Pix)
	return out
}

// SameShape reports whether both buffers have identical dimensions
func (b *ImageBuffer) SameShape(o *ImageBuffer) bool {
	return b.Height == o.Height && b.Width == o.Width && b.Channels == o.Channels
}

// Equal reports whether both buffers have the same shape and samples
func (b *ImageBuffer) Equal(o *ImageBuffer) bool {
	if !b.SameShape(o) {
		return false
	}
	for k := range b.Pix {
		if b.Pix[k] != o.Pix[k] {
			return false
		}
	}
	return true
}

// Channel extracts a copy of one channel as a height*width plane
func (b *ImageBuffer) Channel(c int) []uint8 {
	plane := make([]uint8, b.Height*b.Width)
	for k := range plane {
		plane[k] = b.Pix[k*b.Channels+c]
	}
	return plane
}

// Histogram counts the samples of channel c per intensity level
func (b *ImageBuffer) Histogram(c int) [256]int {
	var hist [256]int
	for k := c; k < len(b.Pix); k += b.Channels {
		hist[b.Pix[k]]++
	}
	return hist
}

// ToRGBA converts the buffer to an opaque image.RGBA. Single-channel buffers
// are expanded to gray.
func (b *ImageBuffer) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for i := 0; i < b.Height; i++ {
		for j := 0; j < b.Width; j++ {
			off := b.Offset(i, j)
			var r, g, bl uint8
			if b.Channels >= 3 {
				r, g, bl = b.Pix[off], b.Pix[off+1], b.Pix[off+2]
			} else {
				r, g, bl = b.Pix[off], b.Pix[off], b.Pix[off]
			}
			p := img.PixOffset(j, i)
			img.Pix[p+0] = r
			img.Pix[p+1] = g
			img.Pix[p+2] = bl
			img.Pix[p+3] = 0xff
		}
	}
	return img
}

// FromImage converts any decoded image to an RGB buffer, dropping alpha the
// way a forced RGB conversion does.
func FromImage(src image.Image) *ImageBuffer {
	bounds := src.Bounds()
	buf := NewImageBuffer(bounds.Dy(), bounds.Dx(), RGBChannels)

	// Samples keep their straight RGB values whatever the alpha. Only
	// image.RGBA arrives premultiplied and has to be undone.
	switch img := src.(type) {
	case *image.NRGBA:
		for i := 0; i < buf.Height; i++ {
			for j := 0; j < buf.Width; j++ {
				p := img.PixOffset(bounds.Min.X+j, bounds.Min.Y+i)
				copy(buf.Pix[buf.Offset(i, j):], img.Pix[p:p+3])
			}
		}
	case *image.NRGBA64:
		for i := 0; i < buf.Height; i++ {
			for j := 0; j < buf.Width; j++ {
				p := img.PixOffset(bounds.Min.X+j, bounds.Min.Y+i)
				off := buf.Offset(i, j)
				buf.Pix[off+0] = img.Pix[p+0]
				buf.Pix[off+1] = img.Pix[p+2]
				buf.Pix[off+2] = img.Pix[p+4]
			}
		}
	case *image.RGBA:
		for i := 0; i < buf.Height; i++ {
			for j := 0; j < buf.Width; j++ {
				p := img.PixOffset(bounds.Min.X+j, bounds.Min.Y+i)
				a := img.Pix[p+3]
				off := buf.Offset(i, j)
				buf.Pix[off+0] = unpremultiply(img.Pix[p+0], a)
				buf.Pix[off+1] = unpremultiply(img.Pix[p+1], a)
				buf.Pix[off+2] = unpremultiply(img.Pix[p+2], a)
			}
		}
	default:
		for i := 0; i < buf.Height; i++ {
			for j := 0; j < buf.Width; j++ {
				c := straightRGB(src.At(bounds.Min.X+j, bounds.Min.Y+i))
				off := buf.Offset(i, j)
				buf.Pix[off+0] = c.R
				buf.Pix[off+1] = c.G
				buf.Pix[off+2] = c.B
			}
		}
	}
	return buf
}

// straightRGB returns c without alpha premultiplication. Palette entries of
// transparent PNGs are color.NRGBA and pass through untouched.
func straightRGB(c color.Color) color.NRGBA {
	if n, ok := c.(color.NRGBA); ok {
		return n
	}
	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

// unpremultiply undoes the alpha premultiplication of image.RGBA
func unpremultiply(v, a uint8) uint8 {
	if a == 0xff || a == 0 {
		return v
	}
	return uint8((uint32(v)*0xff + uint32(a)/2) / uint32(a))
}

// SignedBuffer holds unclamped 32-bit samples with the same layout as
// ImageBuffer. It is the output of an unclipped correlation.
type SignedBuffer struct {
	Height   int
	Width    int
	Channels int
	Pix      []int32
}

// NewSignedBuffer allocates a zeroed signed buffer
func NewSignedBuffer(height, width, channels int) *SignedBuffer {
	return &SignedBuffer{
		Height:   height,
		Width:    width,
		Channels: channels,
		Pix:      make([]int32, height*width*channels),
	}
}

func (s *SignedBuffer) Offset(i, j int) int {
	return (i*s.Width + j) * s.Channels
}

func (s *SignedBuffer) At(i, j, c int) int32 {
	return s.Pix[s.Offset(i, j)+c]
}

// Clip clamps every sample to [0,255]
func (s *SignedBuffer) Clip() *ImageBuffer {
	out := NewImageBuffer(s.Height, s.Width, s.Channels)
	for k, v := range s.Pix {
		switch {
		case v < 0:
			out.Pix[k] = 0
		case v > 255:
			out.Pix[k] = 255
		default:
			out.Pix[k] = uint8(v)
		}
	}
	return out
}
