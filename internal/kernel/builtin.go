package kernel

import (
	"fmt"
	"sort"
)

var builtins = map[string][][]float64{
	"identity": {{1}},
	"sobel-x": {
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	},
	"sobel-y": {
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	},
	"laplacian": {
		{0, 1, 0},
		{1, -4, 1},
		{0, 1, 0},
	},
	"box3": {
		{1.0 / 9, 1.0 / 9, 1.0 / 9},
		{1.0 / 9, 1.0 / 9, 1.0 / 9},
		{1.0 / 9, 1.0 / 9, 1.0 / 9},
	},
}

// Builtin returns one of the predefined kernels with zero bias and identity activation
func Builtin(name string) (*Spec, error) {
	m, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuiltin, name)
	}
	return NewSpec(m, 0, defaultActivation)
}

// BuiltinNames lists the predefined kernels in sorted order
func BuiltinNames() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
