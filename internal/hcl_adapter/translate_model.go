// This file contains the logic for translating HCL schema structs into the
// format-agnostic model definition of the modeldef package.

package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/modeldef"
	"github.com/zclconf/go-cty/cty"
)

// translateModel appends the options and constraints of a model block to def.
func (l *Loader) translateModel(ctx context.Context, m *ModelBlock, def *modeldef.Definition) error {
	logger := ctxlog.FromContext(ctx).With("model", m.Name)
	ctx = ctxlog.WithLogger(ctx, logger)
	logger.Debug("Translating HCL model block.", "binary", len(m.Binary), "numeric", len(m.Numeric))

	for _, b := range m.Binary {
		opt, err := translateBinaryOption(ctx, b)
		if err != nil {
			return err
		}
		def.Binary = append(def.Binary, opt)
	}
	for _, n := range m.Numeric {
		opt, err := translateNumericOption(ctx, n)
		if err != nil {
			return err
		}
		def.Numeric = append(def.Numeric, opt)
	}
	def.Constraints = append(def.Constraints, m.Constraints...)
	return nil
}

// translateBinaryOption converts the HCL-specific binary option schema into the agnostic model.
func translateBinaryOption(ctx context.Context, b *BinaryOptionBlock) (*modeldef.BinaryOption, error) {
	def, err := decodeDefault[bool](ctx, b.Default, cty.Bool, "default")
	if err != nil {
		return nil, fmt.Errorf("in binary_option '%s': %w", b.Name, err)
	}

	opt := &modeldef.BinaryOption{
		Name:        b.Name,
		DisplayName: deref(b.Display),
		Parent:      deref(b.Parent),
		Default:     def,
		Relations: modeldef.Relations{
			Implied:  splitGroups(b.Implies),
			Excluded: splitGroups(b.Excludes),
		},
	}
	if b.Optional != nil {
		opt.Optional = *b.Optional
	}
	return opt, nil
}

// translateNumericOption converts the HCL-specific numeric option schema into the agnostic model.
func translateNumericOption(ctx context.Context, n *NumericOptionBlock) (*modeldef.NumericOption, error) {
	def, err := decodeDefault[float64](ctx, n.Default, cty.Number, "default")
	if err != nil {
		return nil, fmt.Errorf("in numeric_option '%s': %w", n.Name, err)
	}

	opt := &modeldef.NumericOption{
		Name:         n.Name,
		DisplayName:  deref(n.Display),
		Parent:       deref(n.Parent),
		Min:          n.Min,
		Max:          n.Max,
		Step:         1,
		StepFunction: deref(n.StepFunction),
		Default:      def,
		Relations: modeldef.Relations{
			Implied:  splitGroups(n.Implies),
			Excluded: splitGroups(n.Excludes),
		},
	}
	if n.Step != nil {
		opt.Step = *n.Step
	}
	return opt, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
