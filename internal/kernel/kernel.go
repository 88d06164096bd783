// Package kernel describes correlation kernels and parses their text form.
//
// A kernel description looks like:
//
//	mascara:
//	0 1 0
//	1 -4 1
//	0 1 0
//	bias: 0
//	ativacao: relu
//
// Parsing is lenient: an unreadable bias falls back to 0, an unknown
// activation behaves as identity, and mask lines that are not numbers are
// skipped. Only a description without any mask row is an error.
package kernel

import (
	"errors"
	"fmt"
	"math"

	"contrast-forge/internal/core"
)

var (
	// ErrNoMask indicates the description contains no mask rows.
	ErrNoMask = fmt.Errorf("kernel: no mask rows found: %w", core.ErrParse)
	// ErrRaggedMask indicates mask rows with differing column counts.
	ErrRaggedMask = fmt.Errorf("kernel: mask rows must have the same length: %w", core.ErrParse)
	// ErrUnknownBuiltin indicates a builtin kernel name that does not exist.
	ErrUnknownBuiltin = errors.New("kernel: unknown builtin kernel")
)

// Activation is applied to every output sample after the bias.
type Activation int

const (
	Identity Activation = iota
	ReLU
)

func (a Activation) String() string {
	if a == ReLU {
		return "relu"
	}
	return "identidade"
}

// Apply evaluates the activation on x
func (a Activation) Apply(x float64) float64 {
	if a == ReLU {
		return math.Max(0, x)
	}
	return x
}

// ActivationFromName maps a lower-cased name to an activation. Anything
// other than "relu" is identity.
func ActivationFromName(name string) Activation {
	if name == "relu" {
		return ReLU
	}
	return Identity
}

// Spec is an immutable m×n kernel with its bias and activation.
type Spec struct {
	matrix         [][]float64
	bias           float64
	activationName string
}

// NewSpec builds a kernel from a rectangular matrix. The matrix is copied.
func NewSpec(matrix [][]float64, bias float64, activation string) (*Spec, error) {
	if len(matrix) == 0 || len(matrix[0]) == 0 {
		return nil, ErrNoMask
	}
	cols := len(matrix[0])
	cp := make([][]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d columns, want %d: %w", i, len(row), cols, ErrRaggedMask)
		}
		cp[i] = append([]float64(nil), row...)
	}
	return &Spec{matrix: cp, bias: bias, activationName: activation}, nil
}

// Rows is m, the kernel height
func (s *Spec) Rows() int { return len(s.matrix) }

// Cols is n, the kernel width
func (s *Spec) Cols() int { return len(s.matrix[0]) }

// At returns the weight at row r, column c
func (s *Spec) At(r, c int) float64 { return s.matrix[r][c] }

// Matrix returns a copy of the weights
func (s *Spec) Matrix() [][]float64 {
	out := make([][]float64, len(s.matrix))
	for i, row := range s.matrix {
		out[i] = append([]float64(nil), row...)
	}
	return out
}

func (s *Spec) Bias() float64 { return s.bias }

// ActivationName is the activation exactly as written in the description
func (s *Spec) ActivationName() string { return s.activationName }

func (s *Spec) Activation() Activation { return ActivationFromName(s.activationName) }

func (s *Spec) String() string {
	return fmt.Sprintf("kernel %dx%d bias=%g activation=%s", s.Rows(), s.Cols(), s.bias, s.activationName)
}
