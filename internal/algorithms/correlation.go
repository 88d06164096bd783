// Kernel correlation and edge visualization
package algorithms

import (
	"fmt"
	"math"

	"contrast-forge/internal/core"
	"contrast-forge/internal/kernel"
	"contrast-forge/internal/parallel"
)

// ErrKernelTooLarge indicates a kernel that does not fit inside the image,
// leaving no valid output position.
var ErrKernelTooLarge = fmt.Errorf("algorithms: kernel larger than image: %w", core.ErrShape)

// CorrelateOptions tunes execution; it never changes the result.
type CorrelateOptions struct {
	Workers int
}

// Correlate slides the kernel over every channel without flipping it and
// without padding. The output has shape (h-m+1, w-n+1, c) and holds the
// truncated, unclamped responses.
func Correlate(img *core.ImageBuffer, k *kernel.Spec, opts CorrelateOptions) (*core.SignedBuffer, error) {
	if err := core.ValidateImage(img); err != nil {
		return nil, err
	}
	m, n := k.Rows(), k.Cols()
	if m > img.Height || n > img.Width {
		return nil, fmt.Errorf("%w: kernel %dx%d, image %dx%d", ErrKernelTooLarge, m, n, img.Height, img.Width)
	}

	outH, outW, channels := img.Height-m+1, img.Width-n+1, img.Channels
	out := core.NewSignedBuffer(outH, outW, channels)
	weights := k.Matrix()
	bias := k.Bias()
	act := k.Activation()

	parallel.Rows(outH, outH*outW*channels*m*n, opts.Workers, func(start, end int) {
		for i := start; i < end; i++ {
			for j := 0; j < outW; j++ {
				dst := out.Offset(i, j)
				for c := 0; c < channels; c++ {
					// fixed order: kernel rows top to bottom, columns left to right
					sum := 0.0
					for r := 0; r < m; r++ {
						src := img.Offset(i+r, j) + c
						for q := 0; q < n; q++ {
							sum += float64(img.Pix[src+q*channels]) * weights[r][q]
						}
					}
					out.Pix[dst+c] = truncInt32(act.Apply(sum + bias))
				}
			}
		}
	})

	return out, nil
}

// CorrelateClipped is Correlate with every response clamped to [0,255].
func CorrelateClipped(img *core.ImageBuffer, k *kernel.Spec, opts CorrelateOptions) (*core.ImageBuffer, error) {
	out, err := Correlate(img, k, opts)
	if err != nil {
		return nil, err
	}
	return out.Clip(), nil
}

// truncInt32 truncates toward zero, saturating at the int32 range. NaN maps to 0.
func truncInt32(v float64) int32 {
	switch {
	case math.IsNaN(v):
		return 0
	case v >= math.MaxInt32:
		return math.MaxInt32
	case v <= math.MinInt32:
		return math.MinInt32
	}
	return int32(math.Trunc(v))
}

// Visualize turns a signed response into a displayable image: absolute
// values are rescaled so the global minimum maps to 0 and the maximum to 255.
// A constant response is passed through as-is.
func Visualize(s *core.SignedBuffer) *core.ImageBuffer {
	out := core.NewImageBuffer(s.Height, s.Width, s.Channels)
	if len(s.Pix) == 0 {
		return out
	}

	abs := make([]int64, len(s.Pix))
	lo, hi := int64(math.MaxInt64), int64(math.MinInt64)
	for k, v := range s.Pix {
		a := int64(v)
		if a < 0 {
			a = -a
		}
		abs[k] = a
		lo = min(lo, a)
		hi = max(hi, a)
	}

	if hi > lo {
		span := float64(hi - lo)
		for k, a := range abs {
			out.Pix[k] = uint8(float64(a-lo) / span * 255)
		}
		return out
	}
	for k, a := range abs {
		out.Pix[k] = uint8(a)
	}
	return out
}

// SobelMagnitude correlates with the horizontal and vertical Sobel kernels
// and visualizes |gx| + |gy|.
func SobelMagnitude(img *core.ImageBuffer, opts CorrelateOptions) (*core.ImageBuffer, error) {
	sx, err := kernel.Builtin("sobel-x")
	if err != nil {
		return nil, err
	}
	sy, err := kernel.Builtin("sobel-y")
	if err != nil {
		return nil, err
	}

	gx, err := Correlate(img, sx, opts)
	if err != nil {
		return nil, err
	}
	gy, err := Correlate(img, sy, opts)
	if err != nil {
		return nil, err
	}

	mag := core.NewSignedBuffer(gx.Height, gx.Width, gx.Channels)
	for k := range mag.Pix {
		mag.Pix[k] = absInt32(gx.Pix[k]) + absInt32(gy.Pix[k])
	}
	return Visualize(mag), nil
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
