// OpenCV-backed quality metrics
package opencv

import (
	"errors"
	"fmt"
	"image"
	"math"

	"gocv.io/x/gocv"

	"contrast-forge/internal/core"
	ioopencv "contrast-forge/internal/io/opencv"
	"contrast-forge/internal/metrics"
)

var (
	errEmpty         = errors.New("empty images")
	errShapeMismatch = errors.New("image dimensions mismatch")
)

// NewEvaluator returns an evaluator whose mse, psnr and contrast_ratio are
// computed by OpenCV, with ssim and sharpness added. The entropy and dynamic
// range metrics stay on the generic implementation.
func NewEvaluator() *metrics.Evaluator {
	e := metrics.NewEvaluator()
	e.Register("mse", NewMSE())
	e.Register("psnr", NewPSNR())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("ssim", NewSSIM())
	e.Register("sharpness", NewSharpness())
	return e
}

// grayPair converts both buffers to 8-bit gray Mats. The caller closes them.
func grayPair(original, processed *core.ImageBuffer, sameShape bool) (gocv.Mat, gocv.Mat, error) {
	if original.Empty() || processed.Empty() {
		return gocv.NewMat(), gocv.NewMat(), errEmpty
	}
	if sameShape && !original.SameShape(processed) {
		return gocv.NewMat(), gocv.NewMat(), fmt.Errorf("%w: %dx%d vs %dx%d", errShapeMismatch,
			original.Height, original.Width, processed.Height, processed.Width)
	}

	gray1, err := toGray(original)
	if err != nil {
		return gocv.NewMat(), gocv.NewMat(), err
	}
	gray2, err := toGray(processed)
	if err != nil {
		gray1.Close()
		return gocv.NewMat(), gocv.NewMat(), err
	}
	return gray1, gray2, nil
}

func toGray(buf *core.ImageBuffer) (gocv.Mat, error) {
	bgr, err := ioopencv.BufferToMat(buf)
	if err != nil {
		return gocv.NewMat(), err
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return gray, nil
}

// meanSquaredError is ||a-b||² over the sample count
func meanSquaredError(a, b gocv.Mat) float64 {
	n := gocv.NormWithMats(a, b, gocv.NormL2)
	return n * n / float64(a.Rows()*a.Cols())
}

// MSE implements Mean Squared Error on the gray images
type MSE struct{}

func NewMSE() *MSE {
	return &MSE{}
}

func (m *MSE) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	gray1, gray2, err := grayPair(original, processed, true)
	if err != nil {
		return 0, err
	}
	defer gray1.Close()
	defer gray2.Close()
	return meanSquaredError(gray1, gray2), nil
}

func (m *MSE) GetName() string              { return "MSE" }
func (m *MSE) GetDescription() string       { return "Mean Squared Error of the gray images" }
func (m *MSE) GetRange() (float64, float64) { return 0, 65025 }
func (m *MSE) IsHigherBetter() bool         { return false }

// PSNR implements Peak Signal-to-Noise Ratio metric
type PSNR struct{}

func NewPSNR() *PSNR {
	return &PSNR{}
}

func (p *PSNR) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	gray1, gray2, err := grayPair(original, processed, true)
	if err != nil {
		return 0, err
	}
	defer gray1.Close()
	defer gray2.Close()

	mse := meanSquaredError(gray1, gray2)
	if mse == 0 {
		return math.Inf(1), nil // Perfect match
	}
	return 20 * math.Log10(255/math.Sqrt(mse)), nil
}

func (p *PSNR) GetName() string              { return "PSNR" }
func (p *PSNR) GetDescription() string       { return "Peak Signal-to-Noise Ratio - measures image quality" }
func (p *PSNR) GetRange() (float64, float64) { return 0, 100 }
func (p *PSNR) IsHigherBetter() bool         { return true }

// SSIM implements the Structural Similarity Index with an 11x11 Gaussian window
type SSIM struct{}

func NewSSIM() *SSIM {
	return &SSIM{}
}

func (s *SSIM) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	gray1, gray2, err := grayPair(original, processed, true)
	if err != nil {
		return 0, err
	}
	defer gray1.Close()
	defer gray2.Close()
	return s.calculateSSIM(gray1, gray2), nil
}

func (s *SSIM) calculateSSIM(img1, img2 gocv.Mat) float64 {
	const (
		C1 = 6.5025  // (0.01 * 255)^2
		C2 = 58.5225 // (0.03 * 255)^2
	)
	blur := func(src gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		gocv.GaussianBlur(src, &dst, image.Pt(11, 11), 1.5, 1.5, gocv.BorderDefault)
		return dst
	}
	product := func(a, b gocv.Mat) gocv.Mat {
		dst := gocv.NewMat()
		gocv.Multiply(a, b, &dst)
		return dst
	}

	f1 := gocv.NewMat()
	defer f1.Close()
	img1.ConvertTo(&f1, gocv.MatTypeCV32F)

	f2 := gocv.NewMat()
	defer f2.Close()
	img2.ConvertTo(&f2, gocv.MatTypeCV32F)

	mu1 := blur(f1)
	defer mu1.Close()
	mu2 := blur(f2)
	defer mu2.Close()

	mu1Sq := product(mu1, mu1)
	defer mu1Sq.Close()
	mu2Sq := product(mu2, mu2)
	defer mu2Sq.Close()
	mu1Mu2 := product(mu1, mu2)
	defer mu1Mu2.Close()

	// sigma = blur(f*g) - mu_f*mu_g
	sigma := func(a, b, mu gocv.Mat) gocv.Mat {
		ab := product(a, b)
		defer ab.Close()
		dst := blur(ab)
		gocv.Subtract(dst, mu, &dst)
		return dst
	}
	sigma1Sq := sigma(f1, f1, mu1Sq)
	defer sigma1Sq.Close()
	sigma2Sq := sigma(f2, f2, mu2Sq)
	defer sigma2Sq.Close()
	sigma12 := sigma(f1, f2, mu1Mu2)
	defer sigma12.Close()

	// (2*mu1mu2 + C1) * (2*sigma12 + C2)
	numerator1 := mu1Mu2.Clone()
	defer numerator1.Close()
	numerator1.MultiplyFloat(2)
	numerator1.AddFloat(C1)

	numerator2 := sigma12.Clone()
	defer numerator2.Close()
	numerator2.MultiplyFloat(2)
	numerator2.AddFloat(C2)

	numerator := product(numerator1, numerator2)
	defer numerator.Close()

	// (mu1² + mu2² + C1) * (sigma1² + sigma2² + C2)
	denominator1 := gocv.NewMat()
	defer denominator1.Close()
	gocv.Add(mu1Sq, mu2Sq, &denominator1)
	denominator1.AddFloat(C1)

	denominator2 := gocv.NewMat()
	defer denominator2.Close()
	gocv.Add(sigma1Sq, sigma2Sq, &denominator2)
	denominator2.AddFloat(C2)

	denominator := product(denominator1, denominator2)
	defer denominator.Close()

	ssimMap := gocv.NewMat()
	defer ssimMap.Close()
	gocv.Divide(numerator, denominator, &ssimMap)

	return ssimMap.Mean().Val1
}

func (s *SSIM) GetName() string              { return "SSIM" }
func (s *SSIM) GetDescription() string       { return "Structural Similarity Index - measures perceptual similarity" }
func (s *SSIM) GetRange() (float64, float64) { return -1, 1 }
func (s *SSIM) IsHigherBetter() bool         { return true }

// ContrastRatio compares the gray standard deviation of both images
type ContrastRatio struct{}

func NewContrastRatio() *ContrastRatio {
	return &ContrastRatio{}
}

func (c *ContrastRatio) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	gray1, gray2, err := grayPair(original, processed, false)
	if err != nil {
		return 0, err
	}
	defer gray1.Close()
	defer gray2.Close()

	before := stdDev(gray1)
	if before == 0 {
		return 0, errors.New("original image has no contrast")
	}
	return stdDev(gray2) / before, nil
}

func (c *ContrastRatio) GetName() string              { return "Contrast Ratio" }
func (c *ContrastRatio) GetDescription() string       { return "Gray standard deviation of the result relative to the original" }
func (c *ContrastRatio) GetRange() (float64, float64) { return 0, 10 }
func (c *ContrastRatio) IsHigherBetter() bool         { return true }

// Sharpness compares the variance of the Laplacian of both images
type Sharpness struct{}

func NewSharpness() *Sharpness {
	return &Sharpness{}
}

func (s *Sharpness) Calculate(original, processed *core.ImageBuffer) (float64, error) {
	gray1, gray2, err := grayPair(original, processed, false)
	if err != nil {
		return 0, err
	}
	defer gray1.Close()
	defer gray2.Close()

	before := laplacianVariance(gray1)
	if before == 0 {
		return 1.0, nil
	}
	return laplacianVariance(gray2) / before, nil
}

func laplacianVariance(gray gocv.Mat) float64 {
	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)
	sd := stdDev(lap)
	return sd * sd
}

func (s *Sharpness) GetName() string              { return "Sharpness" }
func (s *Sharpness) GetDescription() string       { return "Edge preservation measure" }
func (s *Sharpness) GetRange() (float64, float64) { return 0, 2 }
func (s *Sharpness) IsHigherBetter() bool         { return true }

// stdDev is the population standard deviation of a single-channel Mat
func stdDev(mat gocv.Mat) float64 {
	mean := gocv.NewMat()
	defer mean.Close()
	sd := gocv.NewMat()
	defer sd.Close()
	gocv.MeanStdDev(mat, &mean, &sd)
	return sd.GetDoubleAt(0, 0)
}
