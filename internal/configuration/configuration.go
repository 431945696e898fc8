// Package configuration provides Configuration, an immutable snapshot of the
// active binary options and numeric option values of a variability model.
// A Configuration is decoupled from the live model: it can be loaded from a
// file, taken from a model, applied to a model and compared with another one.
package configuration

import (
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/vk/featuregrid/internal/feature"
)

// Configuration is safe for concurrent reads. It is never mutated after
// construction.
type Configuration struct {
	binary  map[string]bool
	numeric map[string]float64
}

// New creates a Configuration from the given selections and values. The maps
// are copied and option names are normalized like model option names.
func New(binary map[string]bool, numeric map[string]float64) *Configuration {
	c := &Configuration{
		binary:  make(map[string]bool, len(binary)),
		numeric: make(map[string]float64, len(numeric)),
	}
	for name, selected := range binary {
		c.binary[feature.NormalizeName(name)] = selected
	}
	for name, value := range numeric {
		c.numeric[feature.NormalizeName(name)] = value
	}
	return c
}

// ActiveBinaryOptions returns the names of all selected binary options, sorted.
func (c *Configuration) ActiveBinaryOptions() []string {
	var out []string
	for name, selected := range c.binary {
		if selected {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// IsActive reports whether the named binary option is selected.
func (c *Configuration) IsActive(name string) bool {
	return c.binary[feature.NormalizeName(name)]
}

// BinarySelection returns the declared selection of a binary option and
// whether the configuration declares it at all.
func (c *Configuration) BinarySelection(name string) (selected, ok bool) {
	selected, ok = c.binary[feature.NormalizeName(name)]
	return selected, ok
}

// BinaryOptions returns a copy of every declared binary selection.
func (c *Configuration) BinaryOptions() map[string]bool { return maps.Clone(c.binary) }

// NumericOptions returns a copy of every numeric value.
func (c *Configuration) NumericOptions() map[string]float64 { return maps.Clone(c.numeric) }

// NumericNames returns the names of all numeric options, sorted.
func (c *Configuration) NumericNames() []string {
	return slices.Sorted(maps.Keys(c.numeric))
}

// NumericValue returns the value of a numeric option.
func (c *Configuration) NumericValue(name string) (float64, bool) {
	v, ok := c.numeric[feature.NormalizeName(name)]
	return v, ok
}

// Equal reports whether both configurations declare the same selections and
// values.
func (c *Configuration) Equal(other *Configuration) bool {
	if c == nil || other == nil {
		return c == other
	}
	return maps.Equal(c.binary, other.binary) && maps.Equal(c.numeric, other.numeric)
}

// Change describes one option that differs between two configurations. An
// empty Before or After means the option is not declared on that side.
type Change struct {
	Option string
	Kind   feature.Kind
	Before string
	After  string
}

// String implements fmt.Stringer.
func (ch Change) String() string {
	return fmt.Sprintf("%s: %s -> %s", ch.Option, orDash(ch.Before), orDash(ch.After))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// Diff lists the options whose selection or value differs in other, binary
// options first, each group sorted by name.
func (c *Configuration) Diff(other *Configuration) []Change {
	var changes []Change

	names := slices.Sorted(maps.Keys(union(c.binary, other.binary)))
	for _, name := range names {
		before, inBefore := c.binary[name]
		after, inAfter := other.binary[name]
		if inBefore == inAfter && before == after {
			continue
		}
		ch := Change{Option: name, Kind: feature.Binary}
		if inBefore {
			ch.Before = strconv.FormatBool(before)
		}
		if inAfter {
			ch.After = strconv.FormatBool(after)
		}
		changes = append(changes, ch)
	}

	names = slices.Sorted(maps.Keys(union(c.numeric, other.numeric)))
	for _, name := range names {
		before, inBefore := c.numeric[name]
		after, inAfter := other.numeric[name]
		if inBefore == inAfter && before == after {
			continue
		}
		ch := Change{Option: name, Kind: feature.Numeric}
		if inBefore {
			ch.Before = strconv.FormatFloat(before, 'g', -1, 64)
		}
		if inAfter {
			ch.After = strconv.FormatFloat(after, 'g', -1, 64)
		}
		changes = append(changes, ch)
	}
	return changes
}

func union[V any](a, b map[string]V) map[string]struct{} {
	out := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
