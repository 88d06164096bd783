// Package pipeline runs enhancement operations against a loaded image and
// keeps the latest result as the manipulated image.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"contrast-forge/internal/algorithms"
	"contrast-forge/internal/config"
	"contrast-forge/internal/core"
	"contrast-forge/internal/kernel"
	"contrast-forge/internal/metrics"
)

// ImageStore reads and writes image files
type ImageStore interface {
	LoadImage(path string) (*core.ImageBuffer, error)
	SaveImage(buf *core.ImageBuffer, path string) error
}

// Renderer displays titled buffers together; it is optional. A renderer may
// only be usable once per process.
type Renderer interface {
	RenderAll(frames []core.Frame) error
}

// Manipulator holds the original image and the result of the last operation.
// Every operation reads the original; multi-step work goes through the
// compositions or RunChain.
type Manipulator struct {
	imageData   *core.ImageData
	store       ImageStore
	renderer    Renderer
	metricsEval *metrics.Evaluator
	logger      *logrus.Logger
	cfg         config.Config
}

func NewManipulator(store ImageStore, cfg config.Config, logger *logrus.Logger) *Manipulator {
	return &Manipulator{
		imageData:   core.NewImageData(),
		store:       store,
		metricsEval: metrics.NewEvaluator(),
		logger:      logger,
		cfg:         cfg,
	}
}

// SetRenderer enables Show
func (m *Manipulator) SetRenderer(r Renderer) {
	m.renderer = r
}

// SetEvaluator replaces the metrics logged after each operation
func (m *Manipulator) SetEvaluator(e *metrics.Evaluator) {
	m.metricsEval = e
}

// Load reads the image at path as the new original
func (m *Manipulator) Load(path string) error {
	if path == "" {
		return fmt.Errorf("no image path provided: %w", core.ErrConfig)
	}
	buf, err := m.store.LoadImage(path)
	if err != nil {
		return err
	}
	return m.imageData.SetOriginal(buf, path)
}

func (m *Manipulator) Original() *core.ImageBuffer {
	return m.imageData.GetOriginal()
}

func (m *Manipulator) Manipulated() *core.ImageBuffer {
	return m.imageData.GetManipulated()
}

func (m *Manipulator) Metadata() core.ImageMetadata {
	return m.imageData.GetMetadata()
}

// Reset discards the manipulated image
func (m *Manipulator) Reset() error {
	return m.imageData.ResetToOriginal()
}

// SetManipulated replaces the current manipulated image
func (m *Manipulator) SetManipulated(buf *core.ImageBuffer) error {
	return m.imageData.SetManipulated(buf)
}

// ApplyKernel correlates the original with spec. With clip the result
// replaces the manipulated image; without it the signed result is returned
// and its visualization becomes the manipulated image.
func (m *Manipulator) ApplyKernel(spec *kernel.Spec, clip bool) (*core.SignedBuffer, error) {
	original, err := m.requireOriginal()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	signed, err := algorithms.Correlate(original, spec, m.cfg.CorrelateOptions())
	if err != nil {
		return nil, err
	}

	var result *core.ImageBuffer
	if clip {
		result = signed.Clip()
	} else {
		result = algorithms.Visualize(signed)
	}
	if err := m.commit("correlate", original, result, start, logrus.Fields{
		"kernel": spec.String(),
		"clip":   clip,
	}); err != nil {
		return nil, err
	}
	return signed, nil
}

// ApplySobel stores the visualized Sobel magnitude of the original
func (m *Manipulator) ApplySobel() (*core.ImageBuffer, error) {
	return m.run("sobel", func(img *core.ImageBuffer) (*core.ImageBuffer, error) {
		return algorithms.SobelMagnitude(img, m.cfg.CorrelateOptions())
	})
}

func (m *Manipulator) EqualizeLocal() (*core.ImageBuffer, error) {
	return m.run("equalize_local", func(img *core.ImageBuffer) (*core.ImageBuffer, error) {
		return algorithms.EqualizeLocal(img, m.cfg.EqualizeOptions())
	})
}

func (m *Manipulator) EqualizeGlobal() (*core.ImageBuffer, error) {
	return m.run("equalize_global", algorithms.EqualizeGlobal)
}

func (m *Manipulator) Stretch() (*core.ImageBuffer, error) {
	return m.run("stretch", func(img *core.ImageBuffer) (*core.ImageBuffer, error) {
		return algorithms.Stretch(img, m.cfg.StretchOptions())
	})
}

// StretchThenEqualize uses vmin and vmax as explicit stretch bounds when non-nil
func (m *Manipulator) StretchThenEqualize(vmin, vmax []float64) (*core.ImageBuffer, error) {
	so := m.stretchOptions(vmin, vmax)
	return m.run("stretch_equalize", func(img *core.ImageBuffer) (*core.ImageBuffer, error) {
		return algorithms.StretchThenEqualize(img, so, m.cfg.EqualizeOptions())
	})
}

// EqualizeThenStretch uses vmin and vmax as explicit stretch bounds when non-nil
func (m *Manipulator) EqualizeThenStretch(vmin, vmax []float64) (*core.ImageBuffer, error) {
	so := m.stretchOptions(vmin, vmax)
	return m.run("equalize_stretch", func(img *core.ImageBuffer) (*core.ImageBuffer, error) {
		return algorithms.EqualizeThenStretch(img, m.cfg.EqualizeOptions(), so)
	})
}

// ApplyAlgorithm runs a registered algorithm by name on the original
func (m *Manipulator) ApplyAlgorithm(name string, params map[string]interface{}) (*core.ImageBuffer, error) {
	merged := m.cfg.AlgorithmParams()
	for k, v := range params {
		merged[k] = v
	}
	return m.run(name, func(img *core.ImageBuffer) (*core.ImageBuffer, error) {
		return algorithms.Apply(name, img, merged)
	})
}

// RunChain applies chain to the original and stores the final output
func (m *Manipulator) RunChain(ctx context.Context, chain *Chain) (*core.ImageBuffer, error) {
	original, err := m.requireOriginal()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	chain.SetEvaluator(m.metricsEval)
	result, stepMetrics, err := chain.Run(ctx, original, m.cfg.AlgorithmParams())
	if err != nil {
		m.logger.WithError(err).WithField("operation", "chain").Error("Operation failed")
		return nil, err
	}
	fields := logrus.Fields{"steps": chain.Len()}
	for k, v := range stepMetrics {
		fields[k] = v
	}
	if err := m.commit("chain", original, result, start, fields); err != nil {
		return nil, err
	}
	return result, nil
}

// Save writes the manipulated image
func (m *Manipulator) Save(path string) error {
	buf := m.imageData.GetManipulated()
	if buf == nil {
		return fmt.Errorf("no manipulated image to save: %w", core.ErrSave)
	}
	return m.store.SaveImage(buf, path)
}

// Show renders the original and the manipulated image side by side in one
// display session
func (m *Manipulator) Show(originalTitle, resultTitle string) error {
	original, err := m.requireOriginal()
	if err != nil {
		return err
	}
	frames := []core.Frame{{Title: originalTitle, Image: original}}
	if result := m.imageData.GetManipulated(); result != nil {
		frames = append(frames, core.Frame{Title: resultTitle, Image: result})
	}
	return m.show(frames)
}

// ShowOriginal renders the original image
func (m *Manipulator) ShowOriginal(title string) error {
	return m.showOne(m.imageData.GetOriginal(), title)
}

// ShowManipulated renders the manipulated image
func (m *Manipulator) ShowManipulated(title string) error {
	return m.showOne(m.imageData.GetManipulated(), title)
}

func (m *Manipulator) showOne(buf *core.ImageBuffer, title string) error {
	if buf == nil {
		return fmt.Errorf("nothing to show: %w", core.ErrConfig)
	}
	return m.show([]core.Frame{{Title: title, Image: buf}})
}

func (m *Manipulator) show(frames []core.Frame) error {
	if m.renderer == nil {
		m.logger.WithField("windows", len(frames)).Debug("No renderer configured, skipping display")
		return nil
	}
	return m.renderer.RenderAll(frames)
}

func (m *Manipulator) stretchOptions(vmin, vmax []float64) algorithms.StretchOptions {
	so := m.cfg.StretchOptions()
	if vmin != nil {
		so.Min = vmin
	}
	if vmax != nil {
		so.Max = vmax
	}
	return so
}

func (m *Manipulator) requireOriginal() (*core.ImageBuffer, error) {
	original := m.imageData.GetOriginal()
	if original == nil {
		return nil, fmt.Errorf("no image loaded: %w", core.ErrConfig)
	}
	return original, nil
}

func (m *Manipulator) run(name string, op func(*core.ImageBuffer) (*core.ImageBuffer, error)) (*core.ImageBuffer, error) {
	original, err := m.requireOriginal()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := op(original)
	if err != nil {
		m.logger.WithError(err).WithField("operation", name).Error("Operation failed")
		return nil, err
	}
	if err := m.commit(name, original, result, start, nil); err != nil {
		return nil, err
	}
	return result, nil
}

// commit stores result as the manipulated image and logs the step
func (m *Manipulator) commit(name string, before, result *core.ImageBuffer, start time.Time, extra logrus.Fields) error {
	if err := m.imageData.SetManipulated(result); err != nil {
		return err
	}

	fields := logrus.Fields{
		"operation":   name,
		"duration_ms": time.Since(start).Milliseconds(),
		"width":       result.Width,
		"height":      result.Height,
	}
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range m.metricsEval.EvaluateStep(before, result, name) {
		fields[k] = v
	}
	// JSON output cannot encode an infinite PSNR
	for k, v := range fields {
		if f, ok := v.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			fields[k] = fmt.Sprint(f)
		}
	}
	m.logger.WithFields(fields).Info("Operation completed")
	return nil
}
