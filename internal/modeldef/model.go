package modeldef

import (
	"errors"
	"fmt"
	"strings"
)

// RootName is the reserved name of the synthesized root option.
const RootName = "root"

// ErrReservedName is returned when a source declares the root option itself.
var ErrReservedName = errors.New("modeldef: option name is reserved")

// Definition is the unified, format-agnostic representation of a
// variability model source.
type Definition struct {
	Name        string
	Binary      []*BinaryOption
	Numeric     []*NumericOption
	Constraints []string
}

// Relations holds the name groups shared by both option kinds. Every inner
// slice is one disjunction group, e.g. "a|b" becomes []string{"a", "b"}.
type Relations struct {
	Implied  [][]string
	Excluded [][]string
}

// BinaryOption is the declaration of an on/off option.
type BinaryOption struct {
	Name        string
	DisplayName string
	Parent      string
	Optional    bool
	Default     *bool
	Relations
}

// NumericOption is the declaration of a ranged option.
type NumericOption struct {
	Name         string
	DisplayName  string
	Parent       string
	Min          float64
	Max          float64
	Step         float64
	StepFunction string
	Default      *float64
	Relations
}

// SplitGroup splits a group declaration such as "a|b|c" into its members,
// dropping empty entries.
func SplitGroup(s string) []string {
	var out []string
	for _, part := range strings.Split(s, "|") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the structural rules every source has to obey.
func (d *Definition) Validate() error {
	var errs []error
	check := func(name string) {
		if strings.EqualFold(strings.TrimSpace(name), RootName) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrReservedName, name))
		}
	}
	for _, b := range d.Binary {
		check(b.Name)
	}
	for _, n := range d.Numeric {
		check(n.Name)
	}
	return errors.Join(errs...)
}
