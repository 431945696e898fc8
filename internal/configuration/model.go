package configuration

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
)

// ErrUnknownOption is returned by Apply for names the model does not know or
// that refer to an option of the other kind.
var ErrUnknownOption = errors.New("configuration: unknown option")

// FromModel takes a snapshot of the live model. A binary option counts as
// selected only when its whole parent chain is selected. Root is omitted.
func FromModel(m *feature.Model) *Configuration {
	c := &Configuration{
		binary:  make(map[string]bool),
		numeric: make(map[string]float64),
	}
	for _, o := range m.BinaryOptions() {
		if o == m.Root() {
			continue
		}
		c.binary[o.Name()] = o.IsSelected(true)
	}
	for _, o := range m.NumericOptions() {
		c.numeric[o.Name()] = o.Value()
	}
	return c
}

// Apply writes the selections and values onto the model and marks the model
// as applied. Options the configuration does not declare keep their value.
// Unknown names are skipped and reported together in the returned error.
func (c *Configuration) Apply(ctx context.Context, m *feature.Model) error {
	logger := ctxlog.FromContext(ctx)

	var errs []error
	for _, name := range slices.Sorted(maps.Keys(c.binary)) {
		selected := c.binary[name]
		o, ok := m.BinaryOption(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: binary option %q", ErrUnknownOption, name))
			continue
		}
		o.SetSelected(selected)
	}
	for _, name := range c.NumericNames() {
		value := c.numeric[name]
		o, ok := m.NumericOption(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: numeric option %q", ErrUnknownOption, name))
			continue
		}
		if o.IsValueOutOfBounds(value) {
			logger.Warn("Numeric value out of range, clamping.", "option", name, "value", value, "from", o.From(), "to", o.To())
		}
		o.SetValue(value)
	}

	m.SetValuesAppliedOnce(true)
	logger.Debug("Configuration applied.", "model", m.Name(), "binary", len(c.binary), "numeric", len(c.numeric), "errors", len(errs))
	return errors.Join(errs...)
}
