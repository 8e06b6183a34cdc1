// Package calc provides the inline calculator provider: arithmetic
// expressions typed into the search field evaluate to a single result.
package calc

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	beamerr "github.com/beamlauncher/beam/internal/errors"
	"github.com/beamlauncher/beam/internal/provider"
)

// ProviderID identifies this provider in qualified result IDs.
const ProviderID = "calc"

// Provider evaluates arithmetic expressions.
type Provider struct{}

// New creates the calculator provider.
func New() *Provider { return &Provider{} }

// ID implements provider.Provider.
func (p *Provider) ID() string { return ProviderID }

// Search implements provider.Provider. Input that does not parse as an
// arithmetic expression simply matches nothing; a parse failure is not
// a provider failure.
func (p *Provider) Search(ctx context.Context, query string, emit provider.EmitFunc) error {
	expr := strings.TrimSpace(query)
	if !looksArithmetic(expr) {
		return nil
	}

	value, err := Evaluate(expr)
	if err != nil {
		return nil
	}

	emit(provider.Result{
		ID:       expr,
		Title:    formatValue(value),
		Subtitle: expr + " =",
		Score:    1.0,
	})
	return nil
}

// looksArithmetic filters out plain search terms before parsing: an
// expression needs at least one digit and one operator.
func looksArithmetic(s string) bool {
	hasDigit, hasOp := false, false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			hasDigit = true
		case r == '+' || r == '-' || r == '*' || r == '/':
			hasOp = true
		case r == '.' || r == '(' || r == ')' || r == ' ':
		default:
			return false
		}
	}
	return hasDigit && hasOp
}

func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'g', 12, 64)
}

// Evaluate parses and evaluates an arithmetic expression with the
// usual precedence: unary minus, then * and /, then + and -.
func Evaluate(expr string) (float64, error) {
	p := &parser{input: expr}
	value, err := p.parseSum()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return 0, parseError(expr, p.pos, "trailing input")
	}
	return value, nil
}

func parseError(expr string, pos int, msg string) error {
	return beamerr.New(beamerr.ErrCodeProviderFailed,
		fmt.Sprintf("invalid expression at offset %d: %s", pos, msg), nil).
		WithDetail("expression", expr)
}

// parser is a recursive-descent parser over the expression grammar.
type parser struct {
	input string
	pos   int
}

func (p *parser) skipSpace() {
	for p.pos < len(p.input) && p.input[p.pos] == ' ' {
		p.pos++
	}
}

func (p *parser) peek() (byte, bool) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return 0, false
	}
	return p.input[p.pos], true
}

func (p *parser) parseSum() (float64, error) {
	value, err := p.parseProduct()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '+' && op != '-') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseProduct()
		if err != nil {
			return 0, err
		}
		if op == '+' {
			value += rhs
		} else {
			value -= rhs
		}
	}
}

func (p *parser) parseProduct() (float64, error) {
	value, err := p.parseUnary()
	if err != nil {
		return 0, err
	}
	for {
		op, ok := p.peek()
		if !ok || (op != '*' && op != '/') {
			return value, nil
		}
		p.pos++
		rhs, err := p.parseUnary()
		if err != nil {
			return 0, err
		}
		if op == '*' {
			value *= rhs
			continue
		}
		if rhs == 0 {
			return 0, parseError(p.input, p.pos, "division by zero")
		}
		value /= rhs
	}
}

func (p *parser) parseUnary() (float64, error) {
	if op, ok := p.peek(); ok && op == '-' {
		p.pos++
		value, err := p.parseUnary()
		return -value, err
	}
	return p.parseAtom()
}

func (p *parser) parseAtom() (float64, error) {
	c, ok := p.peek()
	if !ok {
		return 0, parseError(p.input, p.pos, "unexpected end of expression")
	}

	if c == '(' {
		p.pos++
		value, err := p.parseSum()
		if err != nil {
			return 0, err
		}
		c, ok = p.peek()
		if !ok || c != ')' {
			return 0, parseError(p.input, p.pos, "expected closing parenthesis")
		}
		p.pos++
		return value, nil
	}

	start := p.pos
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		if (c < '0' || c > '9') && c != '.' {
			break
		}
		p.pos++
	}
	if p.pos == start {
		return 0, parseError(p.input, p.pos, "expected number")
	}

	value, err := strconv.ParseFloat(p.input[start:p.pos], 64)
	if err != nil {
		return 0, parseError(p.input, start, "malformed number")
	}
	return value, nil
}

var _ provider.Provider = (*Provider)(nil)
