// Package config holds the tunables of the enhancement operations.
//
// Values are layered: defaults, then an optional YAML file, then CONTRAST_*
// environment variables (optionally read from a .env file), then command
// line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"contrast-forge/internal/algorithms"
	"contrast-forge/internal/core"
)

// Codec backends
const (
	CodecStd    = "std"
	CodecOpenCV = "opencv"
)

const envPrefix = "CONTRAST_"

// Config is passed by value into the pipeline.
type Config struct {
	// WindowHeight and WindowWidth size the local equalization window (default 50x50).
	WindowHeight int `yaml:"window_height"`
	WindowWidth  int `yaml:"window_width"`

	// LowerPercentile and UpperPercentile derive stretch bounds (default 5 and 95).
	LowerPercentile float64 `yaml:"lower_percentile"`
	UpperPercentile float64 `yaml:"upper_percentile"`

	// Min and Max override the percentile bounds; one value or one per channel.
	Min []float64 `yaml:"min,omitempty"`
	Max []float64 `yaml:"max,omitempty"`

	// Clip clamps correlation output to 8 bits (default true).
	Clip bool `yaml:"clip"`

	// Codec selects the image codec backend: "std" or "opencv".
	Codec string `yaml:"codec"`

	// Workers bounds row parallelism; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
}

// Default returns the documented defaults
func Default() Config {
	eq := algorithms.DefaultEqualizeOptions()
	st := algorithms.DefaultStretchOptions()
	return Config{
		WindowHeight:    eq.WindowHeight,
		WindowWidth:     eq.WindowWidth,
		LowerPercentile: st.LowerPercentile,
		UpperPercentile: st.UpperPercentile,
		Clip:            true,
		Codec:           CodecStd,
	}
}

// Load returns defaults overlaid with the YAML file at path (if non-empty)
// and the environment.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %v: %w", path, err, core.ErrConfig)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %v: %w", path, err, core.ErrConfig)
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// LoadDotEnv reads .env files into the process environment. Missing files
// are not an error.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// ApplyEnv overlays CONTRAST_* variables using lookup
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	ints := map[string]*int{
		"WINDOW_HEIGHT": &c.WindowHeight,
		"WINDOW_WIDTH":  &c.WindowWidth,
		"WORKERS":       &c.Workers,
	}
	for key, dst := range ints {
		if v, ok := lookup(envPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("%s%s=%q: %v: %w", envPrefix, key, v, err, core.ErrConfig)
			}
			*dst = n
		}
	}

	floats := map[string]*float64{
		"LOWER_PERCENTILE": &c.LowerPercentile,
		"UPPER_PERCENTILE": &c.UpperPercentile,
	}
	for key, dst := range floats {
		if v, ok := lookup(envPrefix + key); ok {
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return fmt.Errorf("%s%s=%q: %v: %w", envPrefix, key, v, err, core.ErrConfig)
			}
			*dst = f
		}
	}

	for key, dst := range map[string]*[]float64{"MIN": &c.Min, "MAX": &c.Max} {
		if v, ok := lookup(envPrefix + key); ok {
			bounds, err := ParseBounds(v)
			if err != nil {
				return fmt.Errorf("%s%s: %w", envPrefix, key, err)
			}
			*dst = bounds
		}
	}

	if v, ok := lookup(envPrefix + "CLIP"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sCLIP=%q: %v: %w", envPrefix, v, err, core.ErrConfig)
		}
		c.Clip = b
	}
	if v, ok := lookup(envPrefix + "CODEC"); ok {
		c.Codec = strings.ToLower(strings.TrimSpace(v))
	}
	return nil
}

// ParseBounds reads "10" or "10,20,30". An empty string means no bounds.
func ParseBounds(s string) ([]float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bound %q: %v: %w", p, err, core.ErrConfig)
		}
		out = append(out, v)
	}
	return out, nil
}

func (c Config) Validate() error {
	if err := c.EqualizeOptions().Validate(); err != nil {
		return err
	}
	if err := c.StretchOptions().Validate(core.RGBChannels); err != nil {
		return err
	}
	if c.Codec != CodecStd && c.Codec != CodecOpenCV {
		return fmt.Errorf("unknown codec %q: %w", c.Codec, core.ErrConfig)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative: %w", core.ErrConfig)
	}
	return nil
}

func (c Config) EqualizeOptions() algorithms.EqualizeOptions {
	return algorithms.EqualizeOptions{
		WindowHeight: c.WindowHeight,
		WindowWidth:  c.WindowWidth,
		Workers:      c.Workers,
	}
}

func (c Config) StretchOptions() algorithms.StretchOptions {
	return algorithms.StretchOptions{
		Min:             c.Min,
		Max:             c.Max,
		LowerPercentile: c.LowerPercentile,
		UpperPercentile: c.UpperPercentile,
	}
}

func (c Config) CorrelateOptions() algorithms.CorrelateOptions {
	return algorithms.CorrelateOptions{Workers: c.Workers}
}

// AlgorithmParams returns the configured tunables in the parameter form the
// algorithm registry reads. Explicit bounds are included only when set.
func (c Config) AlgorithmParams() map[string]interface{} {
	params := map[string]interface{}{
		"window_height":    c.WindowHeight,
		"window_width":     c.WindowWidth,
		"lower_percentile": c.LowerPercentile,
		"upper_percentile": c.UpperPercentile,
		"workers":          c.Workers,
	}
	if c.Min != nil {
		params["min"] = c.Min
	}
	if c.Max != nil {
		params["max"] = c.Max
	}
	return params
}
