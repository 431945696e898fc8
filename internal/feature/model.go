package feature

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/vk/featuregrid/internal/modeldef"
)

// RootName is the reserved name of the synthesized root option.
const RootName = modeldef.RootName

// Model is a variability model: the option tree, its indexes and the
// transient validation state.
type Model struct {
	id   string
	name string

	root    *Option
	binary  []*Option
	numeric []*Option

	options     map[string]*Option
	indexToName []string
	nameToIndex map[string]int
	arrayOrder  []string
	constraints []string

	featuresOrder []int

	version atomic.Uint64

	currentlyValidating        bool
	lastValidationStatus       bool
	changedSinceLastValidation bool
	valuesAppliedOnce          bool

	listeners listeners
}

// NewModel creates an empty model containing only the root option, which is
// selected, read-only and stored at index 0.
func NewModel(name string) *Model {
	m := &Model{
		id:                         uuid.NewString(),
		name:                       name,
		options:                    make(map[string]*Option),
		nameToIndex:                make(map[string]int),
		changedSinceLastValidation: true,
	}

	root := NewBinary(RootName)
	root.setValue(1, true, false)
	root.readOnly = true
	root.initialized = true
	root.model = m

	m.root = root
	m.binary = append(m.binary, root)
	m.arrayOrder = append(m.arrayOrder, RootName)
	m.options[RootName] = root
	m.indexToName = append(m.indexToName, RootName)
	m.nameToIndex[RootName] = 0
	return m
}

// ID returns the stable identity of the model. Caches keyed by model use it.
func (m *Model) ID() string { return m.id }

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// SetName renames the model.
func (m *Model) SetName(name string) { m.name = name }

// Version changes whenever the structure of the model changes (options,
// relations, step functions, constraints). Value changes keep it.
func (m *Model) Version() uint64 { return m.version.Load() }

func (m *Model) bumpVersion() { m.version.Add(1) }

// Root returns the root option.
func (m *Model) Root() *Option { return m.root }

// BinaryOptions returns all binary options including root, in insertion order.
func (m *Model) BinaryOptions() []*Option { return append([]*Option(nil), m.binary...) }

// NumericOptions returns all numeric options in insertion order.
func (m *Model) NumericOptions() []*Option { return append([]*Option(nil), m.numeric...) }

// Options returns every option ordered by index.
func (m *Model) Options() []*Option {
	out := make([]*Option, 0, len(m.indexToName))
	for _, name := range m.indexToName {
		out = append(out, m.options[name])
	}
	return out
}

// OptionCount returns the number of options including root.
func (m *Model) OptionCount() int { return len(m.options) }

// ArrayOrder returns the option names in the order they were declared.
func (m *Model) ArrayOrder() []string { return append([]string(nil), m.arrayOrder...) }

// Constraints returns the boolean cross-tree constraints.
func (m *Model) Constraints() []string { return append([]string(nil), m.constraints...) }

// AddConstraint appends a boolean cross-tree constraint such as "a & !b".
func (m *Model) AddConstraint(c string) {
	m.constraints = append(m.constraints, c)
	m.bumpVersion()
}

// AddOption adds a detached option to the model. Options without a declared
// parent are placed below root. Adding an option named root is a no-op.
func (m *Model) AddOption(o *Option) error {
	if o == nil {
		return fmt.Errorf("%w: nil option", ErrInvalidName)
	}
	if o.name == "" {
		return fmt.Errorf("%w: %q", ErrInvalidName, o.display)
	}
	if o.model != nil && o.model != m {
		return fmt.Errorf("%w: %s", ErrAttached, o.name)
	}

	if o.name == RootName {
		m.arrayOrder = append(m.arrayOrder, o.name)
		return nil
	}
	if _, exists := m.options[o.name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateOption, o.name)
	}
	if o.parentName == "" {
		o.parentName = RootName
	}

	switch o.kind {
	case Binary:
		m.binary = append(m.binary, o)
	case Numeric:
		m.numeric = append(m.numeric, o)
	default:
		return fmt.Errorf("feature: unsupported option kind %v", o.kind)
	}

	o.model = m
	m.arrayOrder = append(m.arrayOrder, o.name)
	m.options[o.name] = o
	m.nameToIndex[o.name] = len(m.indexToName)
	m.indexToName = append(m.indexToName, o.name)
	m.bumpVersion()
	return nil
}

// HasOption reports whether an option with the given name exists.
func (m *Model) HasOption(name string) bool {
	_, ok := m.options[NormalizeName(name)]
	return ok
}

// Option looks an option up by name.
func (m *Model) Option(name string) (*Option, bool) {
	o, ok := m.options[NormalizeName(name)]
	return o, ok
}

// BinaryOption looks a binary option up by name.
func (m *Model) BinaryOption(name string) (*Option, bool) {
	o, ok := m.Option(name)
	if !ok || o.kind != Binary {
		return nil, false
	}
	return o, true
}

// NumericOption looks a numeric option up by name.
func (m *Model) NumericOption(name string) (*Option, bool) {
	o, ok := m.Option(name)
	if !ok || o.kind != Numeric {
		return nil, false
	}
	return o, true
}

// OptionIndex returns the position of the named option, or -1.
func (m *Model) OptionIndex(name string) int {
	i, ok := m.nameToIndex[NormalizeName(name)]
	if !ok {
		return -1
	}
	return i
}

// OptionAt returns the option stored at the given position.
func (m *Model) OptionAt(index int) (*Option, bool) {
	if index < 0 || index >= len(m.indexToName) {
		return nil, false
	}
	return m.options[m.indexToName[index]], true
}

// Lookup implements expr.Resolver with the current option values.
func (m *Model) Lookup(name string) (float64, bool) {
	o, ok := m.options[name]
	if !ok {
		return 0, false
	}
	return o.value, true
}

// SetFeaturesOrder declares which options the entries of external weight
// arrays refer to. Entry i+1 of such an array belongs to names[i]; entry 0 is
// the base value. Root cannot be part of the order. On error the previous
// order is dropped.
func (m *Model) SetFeaturesOrder(names []string) error {
	m.featuresOrder = nil
	order := make([]int, 0, len(names))
	for _, name := range names {
		i := m.OptionIndex(name)
		if i < 1 {
			return fmt.Errorf("%w: %q", ErrUnknownFeature, name)
		}
		order = append(order, i)
	}
	m.featuresOrder = order
	return nil
}

// FeaturesOrder returns the options of the features order, or nil when no
// order is set.
func (m *Model) FeaturesOrder() []*Option {
	if m.featuresOrder == nil {
		return nil
	}
	out := make([]*Option, 0, len(m.featuresOrder))
	for _, i := range m.featuresOrder {
		o, _ := m.OptionAt(i)
		out = append(out, o)
	}
	return out
}

// HasFeaturesOrder reports whether a features order is set.
func (m *Model) HasFeaturesOrder() bool { return m.featuresOrder != nil }

// Subscribe registers a listener and returns a function removing it again.
func (m *Model) Subscribe(fn Listener) (unsubscribe func()) {
	return m.listeners.add(fn)
}

func (m *Model) valueChanged(o *Option, prev, cur float64) {
	m.changedSinceLastValidation = true
	m.listeners.emit(Event{
		Type:     ValueChanged,
		ModelID:  m.id,
		Option:   o.name,
		Previous: prev,
		Current:  cur,
	})
}

// JustValidated records the outcome of a validation run and notifies the
// listeners once.
func (m *Model) JustValidated(valid bool) {
	prev := m.lastValidationStatus
	m.lastValidationStatus = valid
	m.changedSinceLastValidation = false
	m.listeners.emit(Event{
		Type:          Validated,
		ModelID:       m.id,
		PreviousValid: prev,
		Valid:         valid,
	})
}

func (m *Model) ChangedSinceLastValidation() bool { return m.changedSinceLastValidation }
func (m *Model) LastValidationStatus() bool       { return m.lastValidationStatus }
func (m *Model) CurrentlyValidating() bool        { return m.currentlyValidating }
func (m *Model) SetCurrentlyValidating(v bool)    { m.currentlyValidating = v }
func (m *Model) ValuesAppliedOnce() bool          { return m.valuesAppliedOnce }
func (m *Model) SetValuesAppliedOnce(v bool)      { m.valuesAppliedOnce = v }

// IsValidAndUsed reports whether the current option values were validated,
// found valid and applied at least once. Otherwise reason tells why not.
func (m *Model) IsValidAndUsed() (ok bool, reason string) {
	switch {
	case m.changedSinceLastValidation:
		return false, "Variability Model not validated!"
	case !m.lastValidationStatus:
		return false, "Variability Model is invalid!"
	case !m.valuesAppliedOnce:
		return false, "Variability Model not applied yet!"
	}
	return true, ""
}
