// Image quality metrics for enhancement steps
package metrics

import (
	"fmt"
	"sort"

	"contrast-forge/internal/core"
)

// Metric defines the interface for quality metrics
type Metric interface {
	// Calculate computes the metric value
	Calculate(original, processed *core.ImageBuffer) (float64, error)

	GetName() string
	GetDescription() string

	// GetRange returns the practical value range (min, max)
	GetRange() (float64, float64)

	IsHigherBetter() bool
}

// Evaluator manages and calculates multiple metrics
type Evaluator struct {
	metrics map[string]Metric
}

// NewEvaluator creates an evaluator with the default metrics registered
func NewEvaluator() *Evaluator {
	e := &Evaluator{
		metrics: make(map[string]Metric),
	}
	e.RegisterDefaultMetrics()
	return e
}

func (e *Evaluator) RegisterDefaultMetrics() {
	e.Register("mse", NewMSE())
	e.Register("psnr", NewPSNR())
	e.Register("contrast_ratio", NewContrastRatio())
	e.Register("entropy_gain", NewEntropyGain())
	e.Register("dynamic_range", NewDynamicRange())
}

func (e *Evaluator) Register(name string, metric Metric) {
	e.metrics[name] = metric
}

// Names lists registered metrics in sorted order
func (e *Evaluator) Names() []string {
	names := make([]string, 0, len(e.metrics))
	for name := range e.metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Evaluator) Calculate(name string, original, processed *core.ImageBuffer) (float64, error) {
	metric, exists := e.metrics[name]
	if !exists {
		return 0, fmt.Errorf("metric not found: %s", name)
	}
	return metric.Calculate(original, processed)
}

// CalculateAll calculates every registered metric, skipping the ones that
// do not apply (for example when a correlation changed the shape)
func (e *Evaluator) CalculateAll(original, processed *core.ImageBuffer) map[string]float64 {
	results := make(map[string]float64)
	for name, metric := range e.metrics {
		if value, err := metric.Calculate(original, processed); err == nil {
			results[name] = value
		}
	}
	return results
}

// EvaluateStep picks the metrics that describe a given operation. Metrics
// that are not registered are left out.
func (e *Evaluator) EvaluateStep(before, after *core.ImageBuffer, stepName string) map[string]float64 {
	results := make(map[string]float64)

	if dr, err := e.Calculate("dynamic_range", before, after); err == nil {
		results["dynamic_range"] = dr
	}

	switch stepName {
	case "equalize_local", "equalize_global", "stretch", "stretch_equalize", "equalize_stretch":
		e.collect(results, before, after, "contrast_ratio", "entropy_gain", "psnr", "ssim")
	case "correlate", "sobel":
		e.collect(results, before, after, "mse", "sharpness")
	}

	return results
}

func (e *Evaluator) collect(results map[string]float64, before, after *core.ImageBuffer, names ...string) {
	for _, name := range names {
		if _, ok := e.metrics[name]; !ok {
			continue
		}
		if v, err := e.Calculate(name, before, after); err == nil {
			results[name] = v
		}
	}
}

// MetricInfo provides metadata about a metric
type MetricInfo struct {
	Name         string
	Description  string
	Range        [2]float64 // [min, max]
	HigherBetter bool
}

func (e *Evaluator) GetMetricInfo() map[string]MetricInfo {
	info := make(map[string]MetricInfo)
	for name, metric := range e.metrics {
		lo, hi := metric.GetRange()
		info[name] = MetricInfo{
			Name:         metric.GetName(),
			Description:  metric.GetDescription(),
			Range:        [2]float64{lo, hi},
			HigherBetter: metric.IsHigherBetter(),
		}
	}
	return info
}
