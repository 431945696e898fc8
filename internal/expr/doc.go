// Package expr implements the arithmetic expressions used as step functions
// of numeric options.
//
// An infix expression such as "n * 2 + 1" is tokenized once, converted to
// postfix form with the shunting-yard algorithm and kept as an immutable
// Expression. Evaluation walks the postfix tokens with a value stack and
// resolves names through a Resolver, so the package has no dependency on the
// feature model itself.
//
// Supported operators are + - * / and a unary log10, written either as
// log10(x) or with the bracket shorthand [x]. Arithmetic faults never escape:
// division by an operand pair whose product is zero, log10(0) and malformed
// stacks all evaluate to 0 and emit a warning through the context logger.
package expr
