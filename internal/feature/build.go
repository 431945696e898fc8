package feature

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/modeldef"
)

// Build creates and initializes a model from a format-agnostic definition.
// Binary options are added before numeric ones, each in declaration order,
// so option indexes follow the source document.
func Build(ctx context.Context, def *modeldef.Definition) (*Model, error) {
	if def == nil {
		return nil, errors.New("feature: nil definition")
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	logger := ctxlog.FromContext(ctx)

	m := NewModel(def.Name)
	for _, b := range def.Binary {
		o := NewBinary(b.Name)
		if b.DisplayName != "" {
			o.SetDisplayName(b.DisplayName)
		}
		o.SetParentName(b.Parent)
		o.SetOptional(b.Optional)
		if b.Default != nil && *b.Default {
			o.SetDefault(1)
		}
		applyRelations(o, b.Relations)
		if err := m.AddOption(o); err != nil {
			return nil, fmt.Errorf("failed to add binary option %q: %w", b.Name, err)
		}
	}

	for _, n := range def.Numeric {
		o := NewNumeric(n.Name, n.Min, n.Max, n.Step)
		if n.DisplayName != "" {
			o.SetDisplayName(n.DisplayName)
		}
		o.SetParentName(n.Parent)
		o.SetStepFunction(n.StepFunction)
		if n.Default != nil {
			o.SetDefault(*n.Default)
		}
		applyRelations(o, n.Relations)
		if err := m.AddOption(o); err != nil {
			return nil, fmt.Errorf("failed to add numeric option %q: %w", n.Name, err)
		}
	}

	for _, c := range def.Constraints {
		m.AddConstraint(c)
	}

	if err := m.InitOptions(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize options of model %q: %w", def.Name, err)
	}
	logger.Info("Variability model built.", "model", m.Name(), "binary", len(m.binary), "numeric", len(m.numeric))
	return m, nil
}

func applyRelations(o *Option, r modeldef.Relations) {
	for _, g := range r.Implied {
		o.AddImpliedGroup(g...)
	}
	for _, g := range r.Excluded {
		o.AddExcludedGroup(g...)
	}
}
