// Contrast Forge - kernel correlation and contrast enhancement
// License: MIT

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"contrast-forge/internal/algorithms"
	"contrast-forge/internal/config"
	"contrast-forge/internal/core"
	"contrast-forge/internal/gui"
	imgio "contrast-forge/internal/io"
	"contrast-forge/internal/io/opencv"
	"contrast-forge/internal/kernel"
	"contrast-forge/internal/metrics"
	cvmetrics "contrast-forge/internal/metrics/opencv"
	"contrast-forge/internal/pipeline"
)

const (
	AppName    = "Contrast Forge"
	AppVersion = "1.0.0"
)

// Operations accepted by -op
const (
	OpCorrelate       = "correlate"
	OpSobel           = "sobel"
	OpEqualize        = "equalize"
	OpEqualizeGlobal  = "equalize-global"
	OpStretch         = "stretch"
	OpStretchEqualize = "stretch-equalize"
	OpEqualizeStretch = "equalize-stretch"
	OpChain           = "chain"
)

var operations = []string{
	OpCorrelate, OpSobel, OpEqualize, OpEqualizeGlobal,
	OpStretch, OpStretchEqualize, OpEqualizeStretch, OpChain,
}

type options struct {
	image      string
	kernelFile string
	builtin    string
	steps      string
	op         string
	out        string
	show       bool
	debug      bool
	configFile string
	envFile    string

	// flags that override the layered config when set
	windowH, windowW int
	lower, upper     float64
	min, max         string
	clip             bool
	codec            string
	workers          int
	set              map[string]bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, err)
		return 2
	}

	logger := initLogger(opts.debug)
	logger.WithFields(logrus.Fields{
		"version":    AppVersion,
		"debug_mode": opts.debug,
		"operation":  opts.op,
	}).Info("Starting " + AppName)

	if err := execute(opts, logger); err != nil {
		logger.WithError(err).Error("Processing failed")
		return exitCode(err)
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	opts := &options{}
	fs := flag.NewFlagSet("contrast-forge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.image, "image", "", "Input image path")
	fs.StringVar(&opts.kernelFile, "kernel", "", "Kernel description file for -op correlate")
	fs.StringVar(&opts.builtin, "builtin", "", "Builtin kernel ("+strings.Join(kernel.BuiltinNames(), ", ")+")")
	fs.StringVar(&opts.steps, "steps", "", "Comma separated registered algorithms for -op chain ("+strings.Join(algorithms.Names(), ", ")+")")
	fs.StringVar(&opts.op, "op", OpEqualize, "Operation ("+strings.Join(operations, ", ")+")")
	fs.StringVar(&opts.out, "out", "", "Output image path")
	fs.BoolVar(&opts.show, "show", false, "Show the original and the result in a window")
	fs.BoolVar(&opts.debug, "debug", false, "Enable debug mode with verbose logging")
	fs.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	fs.StringVar(&opts.envFile, "env", ".env", "Environment file with CONTRAST_* variables")

	fs.IntVar(&opts.windowH, "window-h", 0, "Equalization window height")
	fs.IntVar(&opts.windowW, "window-w", 0, "Equalization window width")
	fs.Float64Var(&opts.lower, "lower", 0, "Lower stretch percentile")
	fs.Float64Var(&opts.upper, "upper", 0, "Upper stretch percentile")
	fs.StringVar(&opts.min, "min", "", "Explicit stretch minimum, one value or comma separated per channel")
	fs.StringVar(&opts.max, "max", "", "Explicit stretch maximum, one value or comma separated per channel")
	fs.BoolVar(&opts.clip, "clip", true, "Clamp correlation output to 0..255 instead of rescaling")
	fs.StringVar(&opts.codec, "codec", "", "Codec backend (std, opencv)")
	fs.IntVar(&opts.workers, "workers", 0, "Row workers, 0 uses all CPUs")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { opts.set[f.Name] = true })

	if opts.image == "" {
		return nil, errors.New("missing required flag -image")
	}
	if !isOperation(opts.op) {
		return nil, fmt.Errorf("unknown operation %q", opts.op)
	}
	if opts.op == OpCorrelate && (opts.kernelFile == "") == (opts.builtin == "") {
		return nil, errors.New("-op correlate needs exactly one of -kernel or -builtin")
	}
	if opts.op == OpChain && opts.steps == "" {
		return nil, errors.New("-op chain needs -steps")
	}
	return opts, nil
}

func isOperation(op string) bool {
	for _, o := range operations {
		if o == op {
			return true
		}
	}
	return false
}

// loadConfig layers defaults, YAML, environment and flags
func loadConfig(opts *options) (config.Config, error) {
	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return config.Config{}, err
	}

	if opts.set["window-h"] {
		cfg.WindowHeight = opts.windowH
	}
	if opts.set["window-w"] {
		cfg.WindowWidth = opts.windowW
	}
	if opts.set["lower"] {
		cfg.LowerPercentile = opts.lower
	}
	if opts.set["upper"] {
		cfg.UpperPercentile = opts.upper
	}
	if opts.set["min"] {
		if cfg.Min, err = config.ParseBounds(opts.min); err != nil {
			return config.Config{}, err
		}
	}
	if opts.set["max"] {
		if cfg.Max, err = config.ParseBounds(opts.max); err != nil {
			return config.Config{}, err
		}
	}
	if opts.set["clip"] {
		cfg.Clip = opts.clip
	}
	if opts.set["codec"] {
		cfg.Codec = strings.ToLower(opts.codec)
	}
	if opts.set["workers"] {
		cfg.Workers = opts.workers
	}
	return cfg, cfg.Validate()
}

func newCodec(name string) imgio.Codec {
	if name == config.CodecOpenCV {
		return opencv.NewCodec()
	}
	return imgio.NewStdCodec()
}

// newEvaluator pairs the OpenCV codec with the OpenCV metrics, which add
// SSIM and sharpness to the step log
func newEvaluator(codec string) *metrics.Evaluator {
	if codec == config.CodecOpenCV {
		return cvmetrics.NewEvaluator()
	}
	return metrics.NewEvaluator()
}

func execute(opts *options, logger *logrus.Logger) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"window": fmt.Sprintf("%dx%d", cfg.WindowHeight, cfg.WindowWidth),
		"codec":  cfg.Codec,
	}).Debug("Configuration loaded")

	loader := imgio.NewImageLoader(newCodec(cfg.Codec), logger)
	m := pipeline.NewManipulator(loader, cfg, logger)
	m.SetEvaluator(newEvaluator(cfg.Codec))
	if opts.show {
		m.SetRenderer(gui.NewViewer(logger))
	}

	if err := m.Load(opts.image); err != nil {
		return err
	}
	if err := apply(m, opts, cfg, logger); err != nil {
		return err
	}

	if opts.out != "" {
		if err := m.Save(opts.out); err != nil {
			return err
		}
		logger.WithField("path", opts.out).Info("Result saved")
	}

	if opts.show {
		return m.Show("Original", opts.op)
	}
	return nil
}

func apply(m *pipeline.Manipulator, opts *options, cfg config.Config, logger *logrus.Logger) error {
	var err error
	switch opts.op {
	case OpCorrelate:
		var spec *kernel.Spec
		if spec, err = loadKernel(opts); err != nil {
			return err
		}
		_, err = m.ApplyKernel(spec, cfg.Clip)
	case OpSobel:
		_, err = m.ApplySobel()
	case OpEqualize:
		_, err = m.EqualizeLocal()
	case OpEqualizeGlobal:
		_, err = m.EqualizeGlobal()
	case OpStretch:
		_, err = m.Stretch()
	case OpStretchEqualize:
		_, err = m.StretchThenEqualize(nil, nil)
	case OpEqualizeStretch:
		_, err = m.EqualizeThenStretch(nil, nil)
	case OpChain:
		var chain *pipeline.Chain
		if chain, err = pipeline.ParseChain(opts.steps, logger); err != nil {
			return err
		}
		_, err = m.RunChain(context.Background(), chain)
	}
	return err
}

func loadKernel(opts *options) (*kernel.Spec, error) {
	if opts.builtin != "" {
		return kernel.Builtin(opts.builtin)
	}
	return kernel.ParseFile(opts.kernelFile)
}

// exitCode maps error categories to distinct process exit codes
func exitCode(err error) int {
	switch {
	case errors.Is(err, core.ErrConfig), errors.Is(err, kernel.ErrUnknownBuiltin):
		return 2
	case errors.Is(err, core.ErrParse):
		return 3
	case errors.Is(err, core.ErrLoad):
		return 4
	case errors.Is(err, core.ErrShape):
		return 5
	case errors.Is(err, core.ErrSave):
		return 6
	default:
		return 1
	}
}

// initLogger initializes the logger with appropriate level
func initLogger(debugMode bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)

	if debugMode {
		logger.SetLevel(logrus.DebugLevel)
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logger.Debug("Debug logging enabled")
	} else {
		logger.SetLevel(logrus.InfoLevel)
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	return logger
}
