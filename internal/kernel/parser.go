package kernel

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"contrast-forge/internal/core"
)

const (
	maskPrefix       = "mascara:"
	biasPrefix       = "bias:"
	activationPrefix = "ativacao:"

	defaultActivation = "identidade"
)

// parseState is the position of the parser in a description.
type parseState int

const (
	expectAny parseState = iota
	inMask
	afterField
)

// parser accumulates kernel fields while scanning lines.
type parser struct {
	state      parseState
	rows       [][]float64
	bias       float64
	activation string
}

func newParser() *parser {
	return &parser{state: expectAny, activation: defaultActivation}
}

// line consumes one raw line of the description
func (p *parser) line(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}
	lower := strings.ToLower(text)

	switch {
	case strings.HasPrefix(lower, maskPrefix):
		p.state = inMask
	case strings.HasPrefix(lower, biasPrefix):
		p.state = afterField
		p.bias = parseBias(fieldValue(text))
	case strings.HasPrefix(lower, activationPrefix):
		p.state = afterField
		p.activation = strings.ToLower(fieldValue(text))
	case p.state == inMask:
		if row, ok := parseRow(text); ok {
			p.rows = append(p.rows, row)
		}
	}
}

func (p *parser) spec() (*Spec, error) {
	if len(p.rows) == 0 {
		return nil, ErrNoMask
	}
	return NewSpec(p.rows, p.bias, p.activation)
}

// fieldValue returns the trimmed text after the first colon
func fieldValue(text string) string {
	_, value, _ := strings.Cut(text, ":")
	return strings.TrimSpace(value)
}

var errNumber = errors.New("invalid number")

// parseNumber reads a decimal literal. Underscores are accepted only between
// digits, hexadecimal floats are refused, and magnitudes beyond float64
// become infinities.
func parseNumber(s string) (float64, error) {
	unsigned := strings.TrimLeft(s, "+-")
	if len(unsigned) >= 2 && unsigned[0] == '0' && (unsigned[1] == 'x' || unsigned[1] == 'X') {
		return 0, errNumber
	}
	if strings.Contains(s, "_") {
		if !digitUnderscores(s) {
			return 0, errNumber
		}
		s = strings.ReplaceAll(s, "_", "")
	}

	v, err := strconv.ParseFloat(s, 64)
	if errors.Is(err, strconv.ErrRange) {
		return v, nil
	}
	return v, err
}

// digitUnderscores reports whether every underscore sits between two digits
func digitUnderscores(s string) bool {
	isDigit := func(i int) bool { return i >= 0 && i < len(s) && s[i] >= '0' && s[i] <= '9' }
	for i := 0; i < len(s); i++ {
		if s[i] == '_' && !(isDigit(i-1) && isDigit(i+1)) {
			return false
		}
	}
	return true
}

// parseBias falls back to 0 on malformed input.
func parseBias(s string) float64 {
	v, err := parseNumber(s)
	if err != nil {
		return 0
	}
	return v
}

func parseRow(text string) ([]float64, bool) {
	fields := strings.Fields(text)
	row := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := parseNumber(f)
		if err != nil {
			return nil, false
		}
		row = append(row, v)
	}
	return row, len(row) > 0
}

// Parse reads a kernel description. Lines have no length limit.
func Parse(r io.Reader) (*Spec, error) {
	p := newParser()
	br := bufio.NewReader(r)
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			p.line(line)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("kernel: read description: %v: %w", err, core.ErrParse)
		}
	}
	return p.spec()
}

// ParseString parses a description held in memory
func ParseString(s string) (*Spec, error) {
	return Parse(strings.NewReader(s))
}

// ParseFile opens and parses a kernel description file
func ParseFile(path string) (*Spec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("kernel: open %s: %v: %w", path, err, core.ErrParse)
	}
	defer f.Close()

	spec, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return spec, nil
}
