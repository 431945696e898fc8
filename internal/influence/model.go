// Package influence implements the performance-influence model: a table of
// influences per code region, each naming the options it requires and its
// effect on non-functional properties. Evaluating a configuration against a
// region sums the effects of every influence whose options are active.
package influence

import (
	"context"
	"maps"
	"slices"

	"github.com/vk/featuregrid/internal/configuration"
	"github.com/vk/featuregrid/internal/ctxlog"
)

// Direction is the optimization goal of a property.
type Direction string

const (
	// Minimize marks properties where lower is better, written "<".
	Minimize Direction = "<"
	// Maximize marks properties where higher is better, written ">".
	Maximize Direction = ">"
)

// Property is a declared non-functional property such as time(s;<).
type Property struct {
	Name      string
	Unit      string
	Direction Direction
}

// Influence is one row of the table: the set of required options and the
// effect on each property.
type Influence struct {
	required map[string]struct{}
	effects  map[string]float64
}

// NewInfluence creates an influence. The inputs are copied.
func NewInfluence(required []string, effects map[string]float64) Influence {
	inf := Influence{
		required: make(map[string]struct{}, len(required)),
		effects:  maps.Clone(effects),
	}
	for _, name := range required {
		inf.required[name] = struct{}{}
	}
	if inf.effects == nil {
		inf.effects = map[string]float64{}
	}
	return inf
}

// Required returns the names of the required options, sorted.
func (i Influence) Required() []string { return slices.Sorted(maps.Keys(i.required)) }

// Effects returns a copy of the effect per property.
func (i Influence) Effects() map[string]float64 { return maps.Clone(i.effects) }

// Model maps region ids to their influences.
type Model struct {
	properties []Property
	regions    map[string][]Influence
}

// NewModel creates a model from declared properties and influences per region.
func NewModel(properties []Property, regions map[string][]Influence) *Model {
	m := &Model{
		properties: slices.Clone(properties),
		regions:    make(map[string][]Influence, len(regions)),
	}
	for id, infs := range regions {
		m.regions[id] = slices.Clone(infs)
	}
	return m
}

// Properties returns the declared properties in header order.
func (m *Model) Properties() []Property { return slices.Clone(m.properties) }

// PropertyNames returns the declared property names in header order.
func (m *Model) PropertyNames() []string {
	names := make([]string, len(m.properties))
	for i, p := range m.properties {
		names[i] = p.Name
	}
	return names
}

// Regions returns every region id, sorted.
func (m *Model) Regions() []string { return slices.Sorted(maps.Keys(m.regions)) }

// HasRegion reports whether the region has any influences.
func (m *Model) HasRegion(id string) bool {
	_, ok := m.regions[id]
	return ok
}

// Influences returns the influences declared for a region.
func (m *Model) Influences(id string) []Influence { return slices.Clone(m.regions[id]) }

// EvaluateConfiguration computes the value of every property for the region.
// Numeric options of the configuration always count as active; an influence
// requiring them is scaled by the product of their values. An unknown region
// yields zero for every declared property.
func (m *Model) EvaluateConfiguration(ctx context.Context, cfg *configuration.Configuration, regionID string) map[string]float64 {
	result := make(map[string]float64, len(m.properties))
	for _, p := range m.properties {
		result[p.Name] = 0
	}

	if cfg == nil {
		ctxlog.FromContext(ctx).Warn("No configuration to evaluate.", "region", regionID)
		return result
	}
	influences, ok := m.regions[regionID]
	if !ok {
		ctxlog.FromContext(ctx).Warn("Unknown region in influence model.", "region", regionID)
		return result
	}

	numeric := cfg.NumericOptions()
	active := make(map[string]struct{})
	for _, name := range cfg.ActiveBinaryOptions() {
		active[name] = struct{}{}
	}
	for name := range numeric {
		active[name] = struct{}{}
	}

	for _, inf := range influences {
		if !isSubset(inf.required, active) {
			continue
		}
		factor := 1.0
		for _, name := range slices.Sorted(maps.Keys(inf.required)) {
			if v, isNumeric := numeric[name]; isNumeric {
				factor *= v
			}
		}
		for property, effect := range inf.effects {
			result[property] += factor * effect
		}
	}
	return result
}

func isSubset(sub, set map[string]struct{}) bool {
	for name := range sub {
		if _, ok := set[name]; !ok {
			return false
		}
	}
	return true
}
