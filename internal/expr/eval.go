package expr

import (
	"context"
	"math"
	"strconv"

	"github.com/vk/featuregrid/internal/ctxlog"
)

// Resolver looks up the current value of an option by name.
type Resolver interface {
	Lookup(name string) (float64, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (float64, bool)

// Lookup implements Resolver.
func (f ResolverFunc) Lookup(name string) (float64, bool) { return f(name) }

// Evaluate computes the value of the expression. Names other than the owning
// option always resolve to 0, as does the owner when r does not know it.
func (e *Expression) Evaluate(ctx context.Context, r Resolver) float64 {
	if len(e.postfix) == 0 {
		return 0
	}
	logger := ctxlog.FromContext(ctx)

	stack := make([]float64, 0, len(e.postfix))
	for _, tok := range e.postfix {
		isLog := tok == opLog
		if !isOperator(tok) && !isLog {
			stack = append(stack, e.tokenValue(tok, r))
			continue
		}

		need := 2
		if isLog {
			need = 1
		}
		if len(stack) < need {
			logger.Error("Expression evaluation failed: not enough operands.",
				"operator", tok, "expression", e.formatted, "owner", e.owner)
			return 0
		}

		op1 := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if isLog {
			if op1 == 0 {
				logger.Warn("Expression is faulty: log10(0).", "expression", e.formatted, "owner", e.owner)
				stack = append(stack, 0)
			} else {
				stack = append(stack, math.Log10(op1))
			}
			continue
		}

		op2 := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		stack = append(stack, apply(tok, op2, op1))
	}

	if len(stack) > 1 {
		logger.Warn("Expression is faulty: operands left on the stack.",
			"expression", e.formatted, "owner", e.owner, "remaining", len(stack))
		return 0
	}
	return stack[0]
}

func apply(op string, op2, op1 float64) float64 {
	switch op {
	case opAdd:
		return op2 + op1
	case opSub:
		return op2 - op1
	case opMul:
		return op2 * op1
	case opDiv:
		if op2*op1 == 0 {
			return 0
		}
		return op2 / op1
	}
	return 0
}

// tokenValue resolves a single operand token.
func (e *Expression) tokenValue(tok string, r Resolver) float64 {
	if v, ok := parseNumber(tok); ok {
		return v
	}
	name := CleanName(tok)
	if name == "" || name != e.owner || r == nil {
		return 0
	}
	v, ok := r.Lookup(name)
	if !ok {
		return 0
	}
	return v
}

// parseNumber accepts plain decimal literals only, so that option names such
// as "inf" or "nan" are never mistaken for numbers.
func parseNumber(tok string) (float64, bool) {
	if tok == "" {
		return 0, false
	}
	c := tok[0]
	if (c < '0' || c > '9') && c != '.' {
		return 0, false
	}
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
