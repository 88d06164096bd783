// Concrete implementations of quality metrics
package metrics

import (
	"errors"
	"fmt"
	"math"

	"contrast-forge/internal/core"
)

var (
	errEmpty         = errors.New("empty images")
	errShapeMismatch = errors.New("image dimensions mismatch")
)

func checkPair(original, processed *core.ImageBuffer) error {
	if original.Empty() || processed.Empty() {
		return errEmpty
	}
	if !original.SameShape(processed) {
		return fmt.Errorf("%w: %dx%dx%d vs %dx%dx%d", errShapeMismatch,
			original.Height, original.Width, original.Channels,
			processed.Height, processed.Width, processed.Channels)
	}
	return nil
}

// MSE implements Mean Squared Error over every sample
type MSE struct{}

func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}
	return meanSquaredError(original, processed), nil
}

func meanSquaredError(a, b *core.ImageBuffer) float64 {
	sum := 0.0
	for k := range a.Pix {
		d := float64(a.Pix[k]) - float64(b.Pix[k])
		sum += d * d
	}
	return sum / float64(len(a.Pix))
}

func (m *MSE) GetName() string              { return "MSE" }
func (m *MSE) GetDescription() string       { return "Mean Squared Error" }
func (m *MSE) GetRange() (float64, float64) { return 0, 65025 }
func (m *MSE) IsHigherBetter() bool         { return false }

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct{}

func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	if err := checkPair(original, processed); err != nil {
		return 0, err
	}

	mse := meanSquaredError(original, processed)
	if mse == 0 {
		return math.Inf(1), nil // identical
	}
	return 20 * math.Log10(255/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string              { return "PSNR" }
func (p *PSNR) GetDescription() string       { return "Peak Signal-to-Noise Ratio - measures distortion" }
func (p *PSNR) GetRange() (float64, float64) { return 0, 100 }
func (p *PSNR) IsHigherBetter() bool         { return true }

// ContrastRatio compares the RMS contrast (sample standard deviation) of
// the processed image with the original
type ContrastRatio struct{}

func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	if original.Empty() || processed.Empty() {
		return 0, errEmpty
	}
	before := rmsContrast(original)
	if before == 0 {
		return 0, errors.New("original image has no contrast")
	}
	return rmsContrast(processed) / before, nil
}

func rmsContrast(b *core.ImageBuffer) float64 {
	mean := 0.0
	for _, v := range b.Pix {
		mean += float64(v)
	}
	mean /= float64(len(b.Pix))

	variance := 0.0
	for _, v := range b.Pix {
		d := float64(v) - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(b.Pix)))
}

func (c *ContrastRatio) GetName() string              { return "Contrast Ratio" }
func (c *ContrastRatio) GetDescription() string       { return "RMS contrast of the result relative to the original" }
func (c *ContrastRatio) GetRange() (float64, float64) { return 0, 10 }
func (c *ContrastRatio) IsHigherBetter() bool         { return true }

// EntropyGain is the change in Shannon entropy (bits) of the intensity histogram
type EntropyGain struct{}

func NewEntropyGain() *EntropyGain {
	return &EntropyGain{}
}

func (e *EntropyGain) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	if original.Empty() || processed.Empty() {
		return 0, errEmpty
	}
	return Entropy(processed) - Entropy(original), nil
}

// Entropy computes the Shannon entropy of all samples in bits
func Entropy(b *core.ImageBuffer) float64 {
	var hist [256]int
	for _, v := range b.Pix {
		hist[v]++
	}
	n := float64(len(b.Pix))
	h := 0.0
	for _, count := range hist {
		if count == 0 {
			continue
		}
		p := float64(count) / n
		h -= p * math.Log2(p)
	}
	return h
}

func (e *EntropyGain) GetName() string              { return "Entropy Gain" }
func (e *EntropyGain) GetDescription() string       { return "Change in histogram entropy, in bits" }
func (e *EntropyGain) GetRange() (float64, float64) { return -8, 8 }
func (e *EntropyGain) IsHigherBetter() bool         { return true }

// DynamicRange is the mean per-channel span (max-min)/255 of the processed image
type DynamicRange struct{}

func NewDynamicRange() *DynamicRange {
	return &DynamicRange{}
}

func (d *DynamicRange) Calculate(_, processed *core.ImageBuffer) (float64, error) {
	if processed.Empty() {
		return 0, errEmpty
	}
	total := 0.0
	for c := 0; c < processed.Channels; c++ {
		lo, hi := uint8(255), uint8(0)
		for k := c; k < len(processed.Pix); k += processed.Channels {
			lo = min(lo, processed.Pix[k])
			hi = max(hi, processed.Pix[k])
		}
		total += float64(hi-lo) / 255
	}
	return total / float64(processed.Channels), nil
}

func (d *DynamicRange) GetName() string              { return "Dynamic Range" }
func (d *DynamicRange) GetDescription() string       { return "Fraction of the 0-255 range used, averaged over channels" }
func (d *DynamicRange) GetRange() (float64, float64) { return 0, 1 }
func (d *DynamicRange) IsHigherBetter() bool         { return true }
