// Algorithm registry for parameterised enhancement operations
package algorithms

import (
	"fmt"
	"sort"

	"contrast-forge/internal/core"
)

// Algorithm defines the interface for registered image operations
type Algorithm interface {
	Apply(input *core.ImageBuffer, params map[string]interface{}) (*core.ImageBuffer, error)
	GetDefaultParams() map[string]interface{}
	GetName() string
	GetDescription() string
	Validate(params map[string]interface{}) error
	GetParameterInfo() []ParameterInfo
}

// ParameterInfo describes a parameter for help output
type ParameterInfo struct {
	Name        string      `json:"name" yaml:"name"`
	Type        string      `json:"type" yaml:"type"` // "int", "float", "floats"
	Min         interface{} `json:"min,omitempty" yaml:"min,omitempty"`
	Max         interface{} `json:"max,omitempty" yaml:"max,omitempty"`
	Default     interface{} `json:"default" yaml:"default"`
	Description string      `json:"description" yaml:"description"`
}

var algorithms = make(map[string]Algorithm)

func Register(name string, algorithm Algorithm) {
	algorithms[name] = algorithm
}

func Get(name string) (Algorithm, bool) {
	algorithm, exists := algorithms[name]
	return algorithm, exists
}

func Apply(name string, input *core.ImageBuffer, params map[string]interface{}) (*core.ImageBuffer, error) {
	algorithm, exists := algorithms[name]
	if !exists {
		return nil, fmt.Errorf("algorithm not found: %s: %w", name, core.ErrConfig)
	}
	if err := algorithm.Validate(params); err != nil {
		return nil, err
	}
	return algorithm.Apply(input, params)
}

func ValidateParameters(name string, params map[string]interface{}) error {
	algorithm, exists := algorithms[name]
	if !exists {
		return fmt.Errorf("algorithm not found: %s: %w", name, core.ErrConfig)
	}
	return algorithm.Validate(params)
}

func IsValidAlgorithm(name string) bool {
	_, exists := algorithms[name]
	return exists
}

// Names lists registered algorithms in sorted order
func Names() []string {
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func GetAllAlgorithms() map[string]Algorithm {
	result := make(map[string]Algorithm)
	for name, algorithm := range algorithms {
		result[name] = algorithm
	}
	return result
}

func GetAlgorithmsByCategory() map[string][]string {
	return map[string][]string{
		"Equalization": {
			"equalize_local",
			"equalize_global",
		},
		"Contrast": {
			"stretch",
		},
		"Composite": {
			"stretch_equalize",
			"equalize_stretch",
		},
		"Edges": {
			"sobel",
		},
	}
}

func init() {
	Register("equalize_local", NewLocalEqualizer())
	Register("equalize_global", NewGlobalEqualizer())
	Register("stretch", NewStretcher())
	Register("stretch_equalize", NewComposite(true))
	Register("equalize_stretch", NewComposite(false))
	Register("sobel", NewSobel())
}
