package pim

import (
	"context"
	"slices"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
)

// Unresolved is the value of a property that could not be computed.
const Unresolved = -1.0

// Value is the computed value of one NFP property.
type Value struct {
	Value    float64
	Resolved bool
}

// MinMax tracks the range of resolved values.
type MinMax struct {
	Min, Max float64
	Set      bool
}

// Update widens the range to include v.
func (mm *MinMax) Update(v float64) {
	if !mm.Set {
		mm.Min, mm.Max, mm.Set = v, v, true
		return
	}
	mm.Min = min(mm.Min, v)
	mm.Max = max(mm.Max, v)
}

// Evaluator computes PIM values from the live option values of a model.
type Evaluator struct {
	model        *feature.Model
	onlyPositive bool
}

// NewEvaluator creates an evaluator. Without a model every property
// evaluates to the average of its weight array. With onlyPositive negative
// weights count as zero.
func NewEvaluator(m *feature.Model, onlyPositive bool) *Evaluator {
	return &Evaluator{model: m, onlyPositive: onlyPositive}
}

// Value computes base + sum(weight[i] * option[i].InfluenceValue) over the
// features order. A missing order or a weight array whose length differs
// from the order plus base leaves the property unresolved.
func (e *Evaluator) Value(ctx context.Context, regionID string, p Property) Value {
	logger := ctxlog.FromContext(ctx)

	if e.model == nil {
		return Value{Value: p.Average(), Resolved: true}
	}
	if !e.model.HasFeaturesOrder() {
		logger.Error("Failed to calculate NFP PIM value: no features order.", "property", p.Name, "region", regionID)
		return Value{Value: Unresolved}
	}
	order := e.model.FeaturesOrder()
	if len(p.Values) != len(order)+1 {
		logger.Error("Failed to calculate NFP PIM value: wrong array size.",
			"property", p.Name, "region", regionID, "size", len(p.Values), "want", len(order)+1)
		return Value{Value: Unresolved}
	}

	weight := func(v float64) float64 {
		if e.onlyPositive && v < 0 {
			return 0
		}
		return v
	}
	value := weight(p.Values[0])
	for i, o := range order {
		value += weight(p.Values[i+1]) * o.InfluenceValue()
	}
	return Value{Value: value, Resolved: true}
}

// Result holds the values of every NFP property of a region set.
type Result struct {
	// Regions maps region id to property to value.
	Regions map[string]map[string]Value
	// Locations maps a file to the range per property over its regions.
	Locations map[string]map[string]MinMax
	// Global is the range per property over all regions.
	Global map[string]MinMax
}

// Evaluate computes every NFP property of every region. Unresolved values
// are left out of the ranges.
func (e *Evaluator) Evaluate(ctx context.Context, set *RegionSet) *Result {
	res := &Result{
		Regions:   make(map[string]map[string]Value, set.Len()),
		Locations: make(map[string]map[string]MinMax),
		Global:    make(map[string]MinMax),
	}
	unresolved := 0

	for _, r := range set.Regions() {
		values := make(map[string]Value, len(r.nfps))
		for _, name := range r.nfpOrder {
			v := e.Value(ctx, r.ID, r.nfps[name])
			values[name] = v
			if !v.Resolved {
				unresolved++
				continue
			}
			updateRange(res.Global, name, v.Value)
			if res.Locations[r.Location] == nil {
				res.Locations[r.Location] = make(map[string]MinMax)
			}
			updateRange(res.Locations[r.Location], name, v.Value)
		}
		res.Regions[r.ID] = values
	}

	ctxlog.FromContext(ctx).Debug("PIM values calculated.", "regions", set.Len(), "unresolved", unresolved)
	return res
}

func updateRange(ranges map[string]MinMax, name string, v float64) {
	mm := ranges[name]
	mm.Update(v)
	ranges[name] = mm
}

// RegionIDs returns the evaluated region ids, sorted.
func (r *Result) RegionIDs() []string {
	ids := make([]string, 0, len(r.Regions))
	for id := range r.Regions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
