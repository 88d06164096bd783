// Percentile contrast stretching
package algorithms

import (
	"fmt"
	"math"

	"contrast-forge/internal/core"
)

var (
	// ErrBoundsLength indicates explicit bounds that are neither a scalar nor one value per channel.
	ErrBoundsLength = fmt.Errorf("algorithms: bounds must have one value or one per channel: %w", core.ErrConfig)
	// ErrInvalidPercentile indicates a percentile outside [0,100].
	ErrInvalidPercentile = fmt.Errorf("algorithms: percentiles must be within [0,100]: %w", core.ErrConfig)
)

// StretchOptions configures contrast stretching. A nil Min or Max is derived
// from the corresponding percentile of each channel; a single value applies
// to every channel.
type StretchOptions struct {
	Min             []float64
	Max             []float64
	LowerPercentile float64
	UpperPercentile float64
}

// DefaultStretchOptions uses the 5th and 95th percentiles
func DefaultStretchOptions() StretchOptions {
	return StretchOptions{LowerPercentile: 5, UpperPercentile: 95}
}

func (o StretchOptions) Validate(channels int) error {
	for _, b := range [][]float64{o.Min, o.Max} {
		if b != nil && len(b) != 1 && len(b) != channels {
			return fmt.Errorf("%w: got %d values for %d channels", ErrBoundsLength, len(b), channels)
		}
	}
	for _, p := range []float64{o.LowerPercentile, o.UpperPercentile} {
		if math.IsNaN(p) || p < 0 || p > 100 {
			return fmt.Errorf("%w: got %g", ErrInvalidPercentile, p)
		}
	}
	return nil
}

// Stretch linearly maps [vmin, vmax] of each channel onto [0, 255], rounding
// half to even and clamping. Channels with vmax <= vmin are copied unchanged.
func Stretch(img *core.ImageBuffer, opts StretchOptions) (*core.ImageBuffer, error) {
	if err := core.ValidateImage(img); err != nil {
		return nil, err
	}
	if err := opts.Validate(img.Channels); err != nil {
		return nil, err
	}

	out := core.NewImageBuffer(img.Height, img.Width, img.Channels)
	for c := 0; c < img.Channels; c++ {
		vmin, vmax := channelBounds(img, c, opts)
		if !(vmax > vmin) {
			for k := c; k < len(img.Pix); k += img.Channels {
				out.Pix[k] = img.Pix[k]
			}
			continue
		}

		var mapping [levels]uint8
		for v := 0; v < levels; v++ {
			mapping[v] = clampLevel(math.RoundToEven((float64(v) - vmin) / (vmax - vmin) * 255))
		}
		for k := c; k < len(img.Pix); k += img.Channels {
			out.Pix[k] = mapping[img.Pix[k]]
		}
	}
	return out, nil
}

func channelBounds(img *core.ImageBuffer, c int, opts StretchOptions) (float64, float64) {
	var hist *[levels]int
	bound := func(explicit []float64, pct float64) float64 {
		if explicit != nil {
			if len(explicit) == 1 {
				return explicit[0]
			}
			return explicit[c]
		}
		if hist == nil {
			h := img.Histogram(c)
			hist = &h
		}
		return Percentile(hist, img.Height*img.Width, pct)
	}
	return bound(opts.Min, opts.LowerPercentile), bound(opts.Max, opts.UpperPercentile)
}

// Percentile returns the p-th percentile of a population described by its
// histogram, interpolating linearly between the two closest ranks.
func Percentile(hist *[levels]int, n int, p float64) float64 {
	if n == 0 {
		return math.NaN()
	}
	rank := p / 100 * float64(n-1)
	lo := math.Floor(rank)
	t := rank - lo
	a := float64(kth(hist, int(lo)))
	b := float64(kth(hist, int(math.Ceil(rank))))
	return lerp(a, b, t)
}

// kth returns the k-th smallest sample (0-based)
func kth(hist *[levels]int, k int) int {
	seen := 0
	for v := 0; v < levels; v++ {
		seen += hist[v]
		if seen > k {
			return v
		}
	}
	return levels - 1
}

// lerp interpolates from the nearer end point so that t=1 returns b exactly.
func lerp(a, b, t float64) float64 {
	d := b - a
	if t >= 0.5 {
		return b - d*(1-t)
	}
	return a + d*t
}

func clampLevel(v float64) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}
