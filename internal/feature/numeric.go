package feature

import (
	"context"
	"math"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/expr"
)

const (
	// minStepDelta is the smallest change between two successive values that
	// still counts as progress during domain enumeration.
	minStepDelta = 0.001
	// maxFlatSteps stops the enumeration of a flat step function.
	maxFlatSteps = 5
	// maxEnumerationSteps is the hard cap on step function evaluations.
	maxEnumerationSteps = 100000
)

// SetStepFunction attaches the step function given in infix notation. Any
// cached domain is discarded.
func (o *Option) SetStepFunction(infix string) {
	if infix == "" {
		o.stepFn = nil
	} else {
		o.stepFn = expr.Parse(infix, o.name)
	}
	o.allValues = nil
	o.structureChanged()
}

// StepFunction returns the attached step function, or nil.
func (o *Option) StepFunction() *expr.Expression { return o.stepFn }

// IsValueValid reports whether the current value lies within the range.
func (o *Option) IsValueValid() bool { return !o.IsValueOutOfBounds(o.value) }

// NextValue evaluates the step function as if the option currently had the
// value cur. The option's own value is left untouched and no change event
// is emitted.
func (o *Option) NextValue(ctx context.Context, cur float64) float64 {
	if o.kind == Binary {
		return o.clamp(cur + o.step)
	}

	if o.stepFn == nil {
		ctxlog.FromContext(ctx).Warn("Missing step function.", "option", o.name)
		return cur
	}
	input := o.clamp(cur)
	return o.stepFn.Evaluate(ctx, expr.ResolverFunc(func(name string) (float64, bool) {
		if name == o.name {
			return input, true
		}
		return 0, false
	}))
}

// AllValues enumerates the legal values of the option by walking the step
// function from From. The walk stops once To is reached, after five
// consecutive steps that moved less than 0.001, or after 100000 steps. The
// result is cached until ReleaseResources is called. Binary options always
// yield [0 1].
func (o *Option) AllValues(ctx context.Context) []float64 {
	if o.kind == Binary {
		return []float64{0, 1}
	}
	if o.allValues != nil {
		return o.allValues
	}

	cur := o.from
	values := []float64{cur}
	flat := 0
	for steps := 0; cur < o.to && flat < maxFlatSteps && steps < maxEnumerationSteps; steps++ {
		next := o.NextValue(ctx, cur)
		if math.Abs(next-cur) < minStepDelta {
			flat++
		} else {
			flat = 0
		}
		if next <= o.to {
			values = append(values, next)
		}
		cur = next
	}

	ctxlog.FromContext(ctx).Debug("Enumerated numeric domain.", "option", o.name, "count", len(values))
	o.allValues = values
	return values
}

// CachedValues returns the cached domain without computing it.
func (o *Option) CachedValues() []float64 { return o.allValues }

// ReleaseResources drops the cached domain.
func (o *Option) ReleaseResources() { o.allValues = nil }

// FindClosestStepIndex returns the index of v in the cached domain, or the
// index of the nearest value (first one wins on ties). It returns -1 when
// the domain has not been enumerated.
func (o *Option) FindClosestStepIndex(v float64) int {
	if o.allValues == nil {
		return -1
	}
	closest := 0
	closestDist := math.Inf(1)
	for i, candidate := range o.allValues {
		if candidate == v {
			return i
		}
		if d := math.Abs(v - candidate); d < closestDist {
			closestDist = d
			closest = i
		}
	}
	return closest
}

// NextValueFast returns the cached successor of the value closest to cur,
// without evaluating the step function. It returns cur when no domain is
// cached.
func (o *Option) NextValueFast(cur float64) float64 {
	if len(o.allValues) == 0 {
		return cur
	}
	i := o.FindClosestStepIndex(cur)
	if i < 0 {
		return cur
	}
	if i+1 < len(o.allValues) {
		return o.allValues[i+1]
	}
	return o.allValues[i]
}
