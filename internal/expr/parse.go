package expr

import "strings"

const (
	opAdd = "+"
	opSub = "-"
	opMul = "*"
	opDiv = "/"
	opLog = "]"

	openParen    = "("
	closeParen   = ")"
	openBracket  = "["
	closeBracket = "]"

	// ownerPlaceholder is replaced by the owning option's name.
	ownerPlaceholder = "n"
)

// Expression is an immutable step function in postfix form.
type Expression struct {
	infix     string
	formatted string
	owner     string
	postfix   []string
}

// Parse converts an infix expression into an Expression owned by the option
// named owner. Every standalone "n" token refers to the owner, unless the
// owner itself is called "n". Parse never fails: malformed input produces an
// expression that evaluates to 0 with a diagnostic.
func Parse(infix, owner string) *Expression {
	formatted := format(rewriteLog10(strings.ReplaceAll(infix, " ", "")))
	tokens := tokenize(formatted)

	if owner != "" && owner != ownerPlaceholder {
		for i, tok := range tokens {
			if tok == ownerPlaceholder {
				tokens[i] = owner
			}
		}
		formatted = strings.Join(tokens, " ")
	}

	return &Expression{
		infix:     infix,
		formatted: formatted,
		owner:     owner,
		postfix:   toPostfix(tokens),
	}
}

// toPostfix runs the shunting-yard algorithm. Operators of the same or higher
// precedence are popped before a new operator is pushed, which makes chains
// of equal precedence left-associative.
func toPostfix(tokens []string) []string {
	queue := make([]string, 0, len(tokens))
	var stack []string

	for _, tok := range tokens {
		switch {
		case isOperator(tok):
			for len(stack) > 0 {
				top := stack[len(stack)-1]
				if !isOperator(top) || precedence(top) < precedence(tok) {
					break
				}
				queue = append(queue, top)
				stack = stack[:len(stack)-1]
			}
			stack = append(stack, tok)

		case tok == openParen || tok == openBracket:
			stack = append(stack, tok)

		case tok == closeParen || tok == closeBracket:
			opening := openParen
			if tok == closeBracket {
				opening = openBracket
			}
			for len(stack) > 0 && stack[len(stack)-1] != opening {
				queue = append(queue, stack[len(stack)-1])
				stack = stack[:len(stack)-1]
			}
			if tok == closeBracket {
				queue = append(queue, opLog)
			}
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		default:
			queue = append(queue, tok)
		}
	}

	for len(stack) > 0 {
		queue = append(queue, stack[len(stack)-1])
		stack = stack[:len(stack)-1]
	}
	return queue
}

func isOperator(tok string) bool {
	switch tok {
	case opAdd, opSub, opMul, opDiv:
		return true
	}
	return false
}

func precedence(tok string) int {
	switch tok {
	case opMul, opDiv:
		return 3
	case opAdd, opSub:
		return 2
	case openParen:
		return 1
	}
	return 0
}

// Infix returns the expression as it was given to Parse.
func (e *Expression) Infix() string { return e.infix }

// Owner returns the name of the option the expression belongs to.
func (e *Expression) Owner() string { return e.owner }

// Postfix returns a copy of the postfix token sequence.
func (e *Expression) Postfix() []string {
	out := make([]string, len(e.postfix))
	copy(out, e.postfix)
	return out
}

// String returns the formatted infix form.
func (e *Expression) String() string { return e.formatted }
