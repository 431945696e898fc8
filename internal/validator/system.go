package validator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
)

// ErrConstraint is returned for boolean constraints that reference unknown
// or numeric options, or that are empty.
var ErrConstraint = errors.New("validator: invalid boolean constraint")

// system is the compiled constraint system of one model version. It is
// immutable once built and shared by all checks of that version.
type system struct {
	version uint64

	circuit *logic.C
	// asserted holds the literals that must all be true.
	asserted []z.Lit

	binary  map[*feature.Option]z.Lit
	numeric map[*feature.Option]*numericTerm
}

// numericTerm encodes a numeric option as one literal per domain value of
// which exactly one is true. Values are compared at single precision.
type numericTerm struct {
	values []float32
	lits   []z.Lit
}

func (t *numericTerm) lit(v float64) (z.Lit, bool) {
	f := float32(v)
	for i, candidate := range t.values {
		if candidate == f {
			return t.lits[i], true
		}
	}
	return z.LitNull, false
}

// build translates the model into a circuit:
//
//	top-level mandatory options without exclusions are true
//	option => parent, and parent => option for mandatory options without exclusions
//	alternatives: parent => exactly one of {option, alternatives...}
//	cross-tree exclusions: option => !(g1 | g2 | ...)
//	implications: option => (g1 | g2 | ...)
//	numeric options take exactly one value of their domain
//	boolean constraints: conjunction or disjunction of possibly negated options
func build(ctx context.Context, m *feature.Model) (*system, error) {
	logger := ctxlog.FromContext(ctx)

	c := logic.NewC()
	s := &system{
		version: m.Version(),
		circuit: c,
		binary:  make(map[*feature.Option]z.Lit),
		numeric: make(map[*feature.Option]*numericTerm),
	}

	for _, o := range m.BinaryOptions() {
		s.binary[o] = c.Lit()
	}

	implies := func(a, b z.Lit) z.Lit { return c.Or(a.Not(), b) }
	root := m.Root()
	var handled [][]*feature.Option

	for _, o := range m.BinaryOptions() {
		cur := s.binary[o]
		parent := o.Parent()
		free := !o.Optional() && len(o.Excluded()) == 0

		if parent == nil || parent == root {
			if free {
				s.asserted = append(s.asserted, cur)
			}
		} else {
			p := s.binary[parent]
			s.asserted = append(s.asserted, implies(cur, p))
			if free {
				s.asserted = append(s.asserted, implies(p, cur))
			}
		}

		if len(o.Excluded()) > 0 {
			if alternatives := o.AlternativeOptions(); len(alternatives) > 0 && !containsGroup(handled, o) {
				gate := c.T
				if parent != nil {
					gate = s.binary[parent]
				}
				terms := []z.Lit{cur}
				for _, alt := range alternatives {
					terms = append(terms, s.binary[alt])
				}
				exactlyOne := c.And(c.CardSort(terms).Leq(1), c.Ors(terms...))
				s.asserted = append(s.asserted, implies(gate, exactlyOne))
				handled = append(handled, alternatives)
			}

			for _, group := range o.NonAlternativeExcludedOptions() {
				terms := make([]z.Lit, 0, len(group))
				for _, ex := range group {
					terms = append(terms, s.binary[ex])
				}
				s.asserted = append(s.asserted, implies(cur, c.Ors(terms...).Not()))
			}
		}

		for _, group := range o.Implied() {
			terms := make([]z.Lit, 0, len(group))
			for _, im := range group {
				lit, ok := s.binary[im]
				if !ok {
					logger.Warn("Skipping numeric option in implication group.", "option", o.Name(), "implied", im.Name())
					continue
				}
				terms = append(terms, lit)
			}
			if len(terms) == 0 {
				logger.Warn("Skipping empty implication group.", "option", o.Name())
				continue
			}
			s.asserted = append(s.asserted, implies(cur, c.Ors(terms...)))
		}
	}

	for _, o := range m.NumericOptions() {
		term := &numericTerm{}
		seen := make(map[float32]struct{})
		for _, v := range o.AllValues(ctx) {
			f := float32(v)
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			term.values = append(term.values, f)
			term.lits = append(term.lits, c.Lit())
		}
		s.numeric[o] = term
		s.asserted = append(s.asserted, c.And(c.CardSort(term.lits).Leq(1), c.Ors(term.lits...)))
	}

	for _, constraint := range m.Constraints() {
		lit, err := s.encodeConstraint(m, constraint)
		if err != nil {
			return nil, err
		}
		s.asserted = append(s.asserted, lit)
	}

	logger.Debug("Constraint system built.", "model", m.Name(), "version", s.version, "assertions", len(s.asserted))
	return s, nil
}

func containsGroup(groups [][]*feature.Option, o *feature.Option) bool {
	for _, g := range groups {
		for _, member := range g {
			if member == o {
				return true
			}
		}
	}
	return false
}

// encodeConstraint encodes "a & !b & c" as a conjunction and "a | -b" as a
// disjunction. A leading '!' or '-' negates a term.
func (s *system) encodeConstraint(m *feature.Model, constraint string) (z.Lit, error) {
	c := s.circuit
	and := strings.Contains(constraint, "&")
	sep := "|"
	if and {
		sep = "&"
	}

	var terms []z.Lit
	for _, raw := range strings.Split(constraint, sep) {
		name := strings.TrimSpace(raw)
		negate := strings.HasPrefix(name, "!") || strings.HasPrefix(name, "-")
		if negate {
			name = strings.TrimSpace(name[1:])
		}
		if name == "" {
			return z.LitNull, fmt.Errorf("%w: empty term in %q", ErrConstraint, constraint)
		}
		o, ok := m.BinaryOption(name)
		if !ok {
			return z.LitNull, fmt.Errorf("%w: %q is not a binary option (in %q)", ErrConstraint, name, constraint)
		}
		lit := s.binary[o]
		if negate {
			lit = lit.Not()
		}
		terms = append(terms, lit)
	}

	if and {
		return c.Ands(terms...), nil
	}
	return c.Ors(terms...), nil
}
