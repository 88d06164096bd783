// Local and global histogram equalization
package algorithms

import (
	"fmt"
	"math"

	"contrast-forge/internal/core"
	"contrast-forge/internal/parallel"
)

const levels = 256

// ErrInvalidWindow indicates a non-positive equalization window.
var ErrInvalidWindow = fmt.Errorf("algorithms: window dimensions must be positive: %w", core.ErrConfig)

// EqualizeOptions configures local equalization.
type EqualizeOptions struct {
	WindowHeight int
	WindowWidth  int
	Workers      int
}

// DefaultEqualizeOptions returns a 50×50 window
func DefaultEqualizeOptions() EqualizeOptions {
	return EqualizeOptions{WindowHeight: 50, WindowWidth: 50}
}

func (o EqualizeOptions) Validate() error {
	if o.WindowHeight < 1 || o.WindowWidth < 1 {
		return fmt.Errorf("%w: got %dx%d", ErrInvalidWindow, o.WindowHeight, o.WindowWidth)
	}
	return nil
}

// EqualizeLocal maps every sample through the equalization curve of its own
// neighborhood. The neighborhood is centered on the pixel with half extents
// WindowHeight/2 and WindowWidth/2, clipped at the image border.
//
// Each row keeps one histogram per channel and slides it one column at a
// time, which yields the same counts as rebuilding it for every pixel.
func EqualizeLocal(img *core.ImageBuffer, opts EqualizeOptions) (*core.ImageBuffer, error) {
	if err := core.ValidateImage(img); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	h, w, channels := img.Height, img.Width, img.Channels
	halfM, halfN := opts.WindowHeight/2, opts.WindowWidth/2
	out := core.NewImageBuffer(h, w, channels)

	parallel.Rows(h, h*w*channels*opts.WindowHeight, opts.Workers, func(start, end int) {
		hist := make([][levels]int, channels)
		for i := start; i < end; i++ {
			top, bottom := max(0, i-halfM), min(h, i+halfM+1)
			equalizeRow(img, out, hist, i, top, bottom, halfN)
		}
	})

	return out, nil
}

// equalizeRow fills output row i. hist is scratch space, one histogram per channel.
func equalizeRow(img, out *core.ImageBuffer, hist [][levels]int, i, top, bottom, halfN int) {
	w, channels := img.Width, img.Channels
	for c := range hist {
		hist[c] = [levels]int{}
	}

	addColumn := func(j, delta int) {
		for r := top; r < bottom; r++ {
			off := img.Offset(r, j)
			for c := 0; c < channels; c++ {
				hist[c][img.Pix[off+c]] += delta
			}
		}
	}

	for j := 0; j < min(w, halfN+1); j++ {
		addColumn(j, 1)
	}

	for j := 0; j < w; j++ {
		if j > 0 {
			if leaving := j - 1 - halfN; leaving >= 0 {
				addColumn(leaving, -1)
			}
			if entering := j + halfN; entering < w {
				addColumn(entering, 1)
			}
		}

		left, right := max(0, j-halfN), min(w, j+halfN+1)
		total := (bottom - top) * (right - left)
		off := img.Offset(i, j)
		for c := 0; c < channels; c++ {
			v := img.Pix[off+c]
			out.Pix[off+c] = equalizedLevel(&hist[c], v, total)
		}
	}
}

// equalizedLevel evaluates round(255 * cdf[v] / cdf[255]) for one level,
// rounding half to even. An empty histogram maps v to itself.
func equalizedLevel(hist *[levels]int, v uint8, total int) uint8 {
	if total == 0 {
		return v
	}
	cdf := 0
	for level := 0; level <= int(v); level++ {
		cdf += hist[level]
	}
	return uint8(math.RoundToEven(float64((levels-1)*cdf) / float64(total)))
}

// EqualizeGlobal equalizes each channel with a single histogram over the
// whole image.
func EqualizeGlobal(img *core.ImageBuffer) (*core.ImageBuffer, error) {
	if err := core.ValidateImage(img); err != nil {
		return nil, err
	}

	out := core.NewImageBuffer(img.Height, img.Width, img.Channels)
	total := img.Height * img.Width
	for c := 0; c < img.Channels; c++ {
		hist := img.Histogram(c)
		var mapping [levels]uint8
		for v := 0; v < levels; v++ {
			mapping[v] = equalizedLevel(&hist, uint8(v), total)
		}
		for k := c; k < len(img.Pix); k += img.Channels {
			out.Pix[k] = mapping[img.Pix[k]]
		}
	}
	return out, nil
}
