// Registered enhancement algorithms
package algorithms

import (
	"fmt"

	"contrast-forge/internal/core"
)

// LocalEqualizer implements windowed histogram equalization
type LocalEqualizer struct{}

// NewLocalEqualizer creates a new local equalization algorithm
func NewLocalEqualizer() *LocalEqualizer {
	return &LocalEqualizer{}
}

func (l *LocalEqualizer) Apply(input *core.ImageBuffer, params map[string]interface{}) (*core.ImageBuffer, error) {
	return EqualizeLocal(input, equalizeOptionsFrom(params))
}

func (l *LocalEqualizer) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"window_height": 50.0,
		"window_width":  50.0,
	}
}

func (l *LocalEqualizer) GetName() string {
	return "Local Equalization"
}

func (l *LocalEqualizer) GetDescription() string {
	return "Histogram equalization computed over each pixel's own neighborhood"
}

func (l *LocalEqualizer) Validate(params map[string]interface{}) error {
	return equalizeOptionsFrom(params).Validate()
}

func (l *LocalEqualizer) GetParameterInfo() []ParameterInfo {
	return windowParameterInfo()
}

// GlobalEqualizer implements whole-image histogram equalization
type GlobalEqualizer struct{}

// NewGlobalEqualizer creates a new global equalization algorithm
func NewGlobalEqualizer() *GlobalEqualizer {
	return &GlobalEqualizer{}
}

func (g *GlobalEqualizer) Apply(input *core.ImageBuffer, _ map[string]interface{}) (*core.ImageBuffer, error) {
	return EqualizeGlobal(input)
}

func (g *GlobalEqualizer) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (g *GlobalEqualizer) GetName() string {
	return "Global Equalization"
}

func (g *GlobalEqualizer) GetDescription() string {
	return "Histogram equalization with one histogram per channel"
}

func (g *GlobalEqualizer) Validate(map[string]interface{}) error {
	return nil
}

func (g *GlobalEqualizer) GetParameterInfo() []ParameterInfo {
	return nil
}

// Stretcher implements percentile contrast stretching
type Stretcher struct{}

// NewStretcher creates a new contrast stretching algorithm
func NewStretcher() *Stretcher {
	return &Stretcher{}
}

func (s *Stretcher) Apply(input *core.ImageBuffer, params map[string]interface{}) (*core.ImageBuffer, error) {
	opts, err := stretchOptionsFrom(params)
	if err != nil {
		return nil, err
	}
	return Stretch(input, opts)
}

func (s *Stretcher) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{
		"lower_percentile": 5.0,
		"upper_percentile": 95.0,
	}
}

func (s *Stretcher) GetName() string {
	return "Contrast Stretch"
}

func (s *Stretcher) GetDescription() string {
	return "Linear rescale of each channel between explicit or percentile bounds"
}

func (s *Stretcher) Validate(params map[string]interface{}) error {
	opts, err := stretchOptionsFrom(params)
	if err != nil {
		return err
	}
	return opts.Validate(core.RGBChannels)
}

func (s *Stretcher) GetParameterInfo() []ParameterInfo {
	return stretchParameterInfo()
}

// Composite chains stretching and local equalization in a fixed order
type Composite struct {
	stretchFirst bool
}

// NewComposite creates a two-stage pipeline; stretchFirst selects the order
func NewComposite(stretchFirst bool) *Composite {
	return &Composite{stretchFirst: stretchFirst}
}

func (c *Composite) Apply(input *core.ImageBuffer, params map[string]interface{}) (*core.ImageBuffer, error) {
	stretch, err := stretchOptionsFrom(params)
	if err != nil {
		return nil, err
	}
	equalize := equalizeOptionsFrom(params)
	if c.stretchFirst {
		return StretchThenEqualize(input, stretch, equalize)
	}
	return EqualizeThenStretch(input, equalize, stretch)
}

func (c *Composite) GetDefaultParams() map[string]interface{} {
	params := NewLocalEqualizer().GetDefaultParams()
	for k, v := range NewStretcher().GetDefaultParams() {
		params[k] = v
	}
	return params
}

func (c *Composite) GetName() string {
	if c.stretchFirst {
		return "Stretch then Equalize"
	}
	return "Equalize then Stretch"
}

func (c *Composite) GetDescription() string {
	if c.stretchFirst {
		return "Contrast stretch followed by local equalization"
	}
	return "Local equalization followed by contrast stretch"
}

func (c *Composite) Validate(params map[string]interface{}) error {
	if err := equalizeOptionsFrom(params).Validate(); err != nil {
		return err
	}
	return NewStretcher().Validate(params)
}

func (c *Composite) GetParameterInfo() []ParameterInfo {
	return append(windowParameterInfo(), stretchParameterInfo()...)
}

// Sobel implements edge magnitude visualization
type Sobel struct{}

// NewSobel creates a new Sobel edge algorithm
func NewSobel() *Sobel {
	return &Sobel{}
}

func (s *Sobel) Apply(input *core.ImageBuffer, params map[string]interface{}) (*core.ImageBuffer, error) {
	return SobelMagnitude(input, CorrelateOptions{Workers: intParam(params, "workers", 0)})
}

func (s *Sobel) GetDefaultParams() map[string]interface{} {
	return map[string]interface{}{}
}

func (s *Sobel) GetName() string {
	return "Sobel Edges"
}

func (s *Sobel) GetDescription() string {
	return "Horizontal plus vertical Sobel response rescaled to 0-255"
}

func (s *Sobel) Validate(map[string]interface{}) error {
	return nil
}

func (s *Sobel) GetParameterInfo() []ParameterInfo {
	return nil
}

func windowParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "window_height",
			Type:        "int",
			Min:         1.0,
			Default:     50.0,
			Description: "Height of the equalization window",
		},
		{
			Name:        "window_width",
			Type:        "int",
			Min:         1.0,
			Default:     50.0,
			Description: "Width of the equalization window",
		},
	}
}

func stretchParameterInfo() []ParameterInfo {
	return []ParameterInfo{
		{
			Name:        "min",
			Type:        "floats",
			Description: "Explicit lower bound, scalar or per channel (default: percentile)",
		},
		{
			Name:        "max",
			Type:        "floats",
			Description: "Explicit upper bound, scalar or per channel (default: percentile)",
		},
		{
			Name:        "lower_percentile",
			Type:        "float",
			Min:         0.0,
			Max:         100.0,
			Default:     5.0,
			Description: "Percentile used for the lower bound",
		},
		{
			Name:        "upper_percentile",
			Type:        "float",
			Min:         0.0,
			Max:         100.0,
			Default:     95.0,
			Description: "Percentile used for the upper bound",
		},
	}
}

func equalizeOptionsFrom(params map[string]interface{}) EqualizeOptions {
	opts := DefaultEqualizeOptions()
	opts.WindowHeight = intParam(params, "window_height", opts.WindowHeight)
	opts.WindowWidth = intParam(params, "window_width", opts.WindowWidth)
	opts.Workers = intParam(params, "workers", 0)
	return opts
}

func stretchOptionsFrom(params map[string]interface{}) (StretchOptions, error) {
	opts := DefaultStretchOptions()
	opts.LowerPercentile = floatParam(params, "lower_percentile", opts.LowerPercentile)
	opts.UpperPercentile = floatParam(params, "upper_percentile", opts.UpperPercentile)

	var err error
	if opts.Min, err = boundsParam(params, "min"); err != nil {
		return opts, err
	}
	if opts.Max, err = boundsParam(params, "max"); err != nil {
		return opts, err
	}
	return opts, nil
}

func intParam(params map[string]interface{}, name string, def int) int {
	switch v := params[name].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

func floatParam(params map[string]interface{}, name string, def float64) float64 {
	switch v := params[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// boundsParam accepts a scalar or a list; absent means "use percentiles"
func boundsParam(params map[string]interface{}, name string) ([]float64, error) {
	switch v := params[name].(type) {
	case nil:
		return nil, nil
	case float64:
		return []float64{v}, nil
	case int:
		return []float64{float64(v)}, nil
	case []float64:
		return v, nil
	}
	return nil, fmt.Errorf("parameter %s: unsupported type %T: %w", name, params[name], core.ErrConfig)
}
