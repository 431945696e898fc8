package feature

import (
	"strings"

	"github.com/vk/featuregrid/internal/expr"
)

// Option is a single configurable unit of a variability model. Binary and
// numeric options share this type; Kind tells them apart.
type Option struct {
	model *Model
	kind  Kind

	name    string
	display string

	from  float64
	to    float64
	step  float64
	value float64
	def   float64

	parentName string
	parent     *Option
	children   []*Option

	optional bool
	readOnly bool

	impliedNames  [][]string
	excludedNames [][]string
	implied       [][]*Option
	excluded      [][]*Option
	initialized   bool

	stepFn    *expr.Expression
	allValues []float64
}

// NormalizeName lower-cases a name and strips every character that is not a
// letter, digit or underscore. Option names are always stored normalized.
func NormalizeName(name string) string {
	return strings.ToLower(expr.CleanName(name))
}

// NewBinary creates a detached binary option. Binary options are mandatory
// and deselected unless configured otherwise.
func NewBinary(name string) *Option {
	return newOption(Binary, name, 0, 1, 1)
}

// NewNumeric creates a detached numeric option. The range is normalized so
// that to >= from and step <= to-from. The value starts at from.
func NewNumeric(name string, from, to, step float64) *Option {
	return newOption(Numeric, name, from, to, step)
}

func newOption(kind Kind, name string, from, to, step float64) *Option {
	if to < from {
		to = from
	}
	if step > to-from {
		step = to - from
	}
	o := &Option{
		kind:    kind,
		name:    NormalizeName(name),
		display: name,
		from:    from,
		to:      to,
		step:    step,
	}
	o.setValue(from, true, false)
	return o
}

// Kind returns the variant of the option.
func (o *Option) Kind() Kind { return o.kind }

// IsBinary reports whether the option is a binary option.
func (o *Option) IsBinary() bool { return o.kind == Binary }

// IsNumeric reports whether the option is a numeric option.
func (o *Option) IsNumeric() bool { return o.kind == Numeric }

// Name returns the normalized option name.
func (o *Option) Name() string { return o.name }

// DisplayName returns the name as it should be shown to users.
func (o *Option) DisplayName() string {
	if o.display == "" {
		return o.name
	}
	return o.display
}

// SetDisplayName overrides the display name.
func (o *Option) SetDisplayName(name string) { o.display = name }

func (o *Option) From() float64    { return o.from }
func (o *Option) To() float64      { return o.to }
func (o *Option) Step() float64    { return o.step }
func (o *Option) Value() float64   { return o.value }
func (o *Option) Default() float64 { return o.def }

// Model returns the model the option was added to, or nil.
func (o *Option) Model() *Model { return o.model }

// Optional reports whether the option's selection is independent of its parent.
func (o *Option) Optional() bool { return o.optional }

// SetOptional marks the option as optional or mandatory.
func (o *Option) SetOptional(optional bool) {
	if o.optional == optional {
		return
	}
	o.optional = optional
	o.structureChanged()
}

// ReadOnly reports whether value changes through SetValue are ignored.
func (o *Option) ReadOnly() bool { return o.readOnly }

// Parent returns the resolved parent option, or nil for root and for options
// that were not initialized yet.
func (o *Option) Parent() *Option { return o.parent }

// HasParent reports whether a parent is resolved.
func (o *Option) HasParent() bool { return o.parent != nil }

// ParentName returns the declared parent name.
func (o *Option) ParentName() string { return o.parentName }

// SetParentName declares the parent by name. An empty name means root.
func (o *Option) SetParentName(name string) {
	if strings.TrimSpace(name) == "" {
		name = RootName
	}
	o.parentName = NormalizeName(name)
	o.structureChanged()
}

// structureChanged invalidates compiled views of the owning model.
func (o *Option) structureChanged() {
	if o.model != nil {
		o.model.bumpVersion()
	}
}

// Children returns the direct children in model index order.
func (o *Option) Children() []*Option {
	out := make([]*Option, len(o.children))
	copy(out, o.children)
	return out
}

// HasChildren reports whether any option names this one as parent.
func (o *Option) HasChildren() bool { return len(o.children) > 0 }

// Initialized reports whether the last InitOptions pass resolved the parent.
func (o *Option) Initialized() bool { return o.initialized }

func (o *Option) setParent(p *Option) {
	if p == o.parent {
		return
	}
	o.parent = p
	if p != nil {
		o.parentName = p.name
	}
}

func (o *Option) addChild(c *Option) bool {
	for _, existing := range o.children {
		if existing.name == c.name {
			return false
		}
	}
	o.children = append(o.children, c)
	return true
}

// SetValue sets the current value, clamped to [From, To]. Read-only options
// ignore the call.
func (o *Option) SetValue(v float64) {
	if o.readOnly {
		return
	}
	o.setValue(v, false, false)
}

// SetDefault sets both the current and the default value.
func (o *Option) SetDefault(v float64) {
	if o.readOnly {
		return
	}
	o.setValue(v, true, false)
}

// SetValueUnbounded sets the current value without clamping it.
func (o *Option) SetValueUnbounded(v float64) {
	if o.readOnly {
		return
	}
	o.setValue(v, false, true)
}

func (o *Option) setValue(v float64, asDefault, ignoreBounds bool) {
	if !ignoreBounds {
		v = o.clamp(v)
	}
	if asDefault {
		o.def = v
	}
	if o.value == v {
		return
	}
	prev := o.value
	o.value = v
	if o.model != nil {
		o.model.valueChanged(o, prev, v)
	}
}

func (o *Option) clamp(v float64) float64 {
	if v < o.from {
		return o.from
	}
	if v > o.to {
		return o.to
	}
	return v
}

// IncreaseValue adds the nominal step to the current value.
func (o *Option) IncreaseValue() { o.SetValue(o.value + o.step) }

// DecreaseValue subtracts the nominal step from the current value.
func (o *Option) DecreaseValue() { o.SetValue(o.value - o.step) }

// ResetValue restores the default value.
func (o *Option) ResetValue() { o.SetValue(o.def) }

// IsValueOutOfBounds reports whether v lies outside [From, To].
func (o *Option) IsValueOutOfBounds(v float64) bool { return v < o.from || v > o.to }

// InfluenceValue is the value scaled by the selection of the parent: an
// option whose binary parent is not selected (considering the hierarchy)
// contributes 0.
func (o *Option) InfluenceValue() float64 {
	parentSelected := 1.0
	if o.parent != nil && o.parent.kind == Binary && !o.parent.IsSelected(true) {
		parentSelected = 0
	}
	return o.value * parentSelected
}

// IsSelected reports whether the option is on. With considerHierarchy the
// whole parent chain has to be selected as well.
func (o *Option) IsSelected(considerHierarchy bool) bool {
	if considerHierarchy {
		return o.InfluenceValue() == 1
	}
	return o.value == 1
}

// SetSelected selects or deselects a binary option.
func (o *Option) SetSelected(selected bool) {
	if selected {
		o.SetValue(1)
	} else {
		o.SetValue(0)
	}
}

// SwitchSelected toggles the selection of a binary option.
func (o *Option) SwitchSelected() { o.SetSelected(!o.IsSelected(false)) }

// String returns the option name.
func (o *Option) String() string { return o.name }
