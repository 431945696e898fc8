package expr

import (
	"strings"
	"unicode"
)

// specialTokens are padded with whitespace so that a whitespace split yields
// exactly one token per atom.
var specialTokens = []string{"+", "-", "*", "/", "(", ")", "[", "]"}

const logFunc = "log10("

// format produces the well-formed, whitespace separated form of an infix
// expression.
func format(infix string) string {
	s := strings.ReplaceAll(infix, " ", "")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	for _, tok := range specialTokens {
		s = strings.ReplaceAll(s, tok, " "+tok+" ")
	}
	return strings.Join(strings.Fields(s), " ")
}

// tokenize splits a formatted expression into tokens, dropping empty ones.
func tokenize(formatted string) []string {
	return strings.Fields(formatted)
}

// rewriteLog10 replaces every log10(...) call with the bracket form [...].
// A call without a matching closing parenthesis is left untouched.
func rewriteLog10(infix string) string {
	s := infix
	searchFrom := 0
	for {
		idx := strings.Index(s[searchFrom:], logFunc)
		if idx < 0 {
			return s
		}
		start := searchFrom + idx
		open := start + len(logFunc) - 1
		closing := matchingParen(s, open)
		if closing < 0 {
			// Skip this occurrence and keep looking for well-formed ones.
			searchFrom = start + len(logFunc)
			continue
		}
		s = s[:start] + "[" + s[open+1:closing] + "]" + s[closing+1:]
		searchFrom = start
	}
}

// matchingParen returns the index of the parenthesis closing the one at
// position open, or -1.
func matchingParen(s string, open int) int {
	depth := 0
	for i := open; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// CleanName strips every character that is not a letter, a digit or an
// underscore.
func CleanName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
