package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"contrast-forge/internal/algorithms"
	"contrast-forge/internal/core"
	"contrast-forge/internal/metrics"
)

// Step is one registered algorithm in a chain
type Step struct {
	Algorithm  string
	Parameters map[string]interface{}
	Enabled    bool
}

// Chain applies registered algorithms one after another, each step reading
// the previous step's output.
type Chain struct {
	mu          sync.RWMutex
	steps       []Step
	metricsEval *metrics.Evaluator
	logger      *logrus.Logger
}

func NewChain(logger *logrus.Logger) *Chain {
	return &Chain{
		metricsEval: metrics.NewEvaluator(),
		logger:      logger,
	}
}

// SetEvaluator replaces the evaluator used for step metrics
func (c *Chain) SetEvaluator(e *metrics.Evaluator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metricsEval = e
}

// ParseChain builds a chain from a comma separated list of algorithm names
func ParseChain(list string, logger *logrus.Logger) (*Chain, error) {
	c := NewChain(logger)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if err := c.AddStep(name, nil); err != nil {
			return nil, err
		}
	}
	if c.Len() == 0 {
		return nil, fmt.Errorf("empty step list: %w", core.ErrConfig)
	}
	return c, nil
}

// AddStep validates and appends an enabled step
func (c *Chain) AddStep(algorithm string, parameters map[string]interface{}) error {
	if !algorithms.IsValidAlgorithm(algorithm) {
		return fmt.Errorf("unknown algorithm: %s: %w", algorithm, core.ErrConfig)
	}
	if err := algorithms.ValidateParameters(algorithm, parameters); err != nil {
		return fmt.Errorf("invalid parameters for %s: %w", algorithm, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = append(c.steps, Step{Algorithm: algorithm, Parameters: parameters, Enabled: true})
	c.logger.WithField("algorithm", algorithm).Debug("Chain step added")
	return nil
}

// SetEnabled toggles step i
func (c *Chain) SetEnabled(i int, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i < 0 || i >= len(c.steps) {
		return fmt.Errorf("step %d out of range: %w", i, core.ErrConfig)
	}
	c.steps[i].Enabled = enabled
	return nil
}

// Steps returns a copy of the steps
func (c *Chain) Steps() []Step {
	c.mu.RLock()
	defer c.mu.RUnlock()
	steps := make([]Step, len(c.steps))
	copy(steps, c.steps)
	return steps
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.steps)
}

func (c *Chain) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.steps = nil
}

// Run applies the enabled steps to input. Each step reads defaults overlaid
// with its own parameters. Step metrics are keyed "<algorithm>_<metric>".
// The context is checked between steps.
func (c *Chain) Run(ctx context.Context, input *core.ImageBuffer, defaults map[string]interface{}) (*core.ImageBuffer, map[string]float64, error) {
	current := input.Clone()
	processMetrics := make(map[string]float64)

	c.mu.RLock()
	eval := c.metricsEval
	c.mu.RUnlock()

	for i, step := range c.Steps() {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		if !step.Enabled {
			c.logger.WithFields(logrus.Fields{"step": i, "algorithm": step.Algorithm}).Debug("Skipping disabled step")
			continue
		}

		params := make(map[string]interface{}, len(defaults)+len(step.Parameters))
		for k, v := range defaults {
			params[k] = v
		}
		for k, v := range step.Parameters {
			params[k] = v
		}
		result, err := algorithms.Apply(step.Algorithm, current, params)
		if err != nil {
			return nil, nil, fmt.Errorf("step %d (%s): %w", i, step.Algorithm, err)
		}

		for k, v := range eval.EvaluateStep(current, result, step.Algorithm) {
			processMetrics[fmt.Sprintf("%s_%s", step.Algorithm, k)] = v
		}
		current = result
		c.logger.WithFields(logrus.Fields{"step": i, "algorithm": step.Algorithm}).Debug("Chain step completed")
	}

	return current, processMetrics, nil
}
