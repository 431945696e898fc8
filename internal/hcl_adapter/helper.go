package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/modeldef"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// isExprDefined checks if an HCL expression was actually present in the source
// code. The HCL decoder populates omitted optional fields with zero-width
// expression objects, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	logger := ctxlog.FromContext(ctx)

	if expr == nil {
		logger.Debug("Expression is nil, considering it undefined.", "attribute", attrName)
		return false
	}

	// A real attribute occupies bytes in the file, a placeholder has a
	// zero-width range.
	exprRange := expr.Range()
	isDefined := exprRange.End.Byte > exprRange.Start.Byte

	logger.Debug("Checking if HCL attribute was explicitly defined.",
		"attribute", attrName,
		"hcl_range", exprRange.String(),
		"is_defined", isDefined,
	)
	return isDefined
}

// decodeDefault evaluates an optional default expression and converts it to
// the wanted type. Strings such as "true" or "2.5" are converted as well.
// It returns nil when the attribute is absent or null.
func decodeDefault[T any](ctx context.Context, expr hcl.Expression, ty cty.Type, attrName string) (*T, error) {
	if !isExprDefined(ctx, expr, attrName) {
		return nil, nil
	}

	val, diags := expr.Value(nil)
	if diags.HasErrors() {
		return nil, fmt.Errorf("invalid %s: %w", attrName, diags)
	}
	if val.IsNull() {
		return nil, nil
	}

	converted, err := convert.Convert(val, ty)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: expected %s: %w", attrName, ty.FriendlyName(), err)
	}

	var out T
	if err := gocty.FromCtyValue(converted, &out); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", attrName, err)
	}
	return &out, nil
}

// splitGroups turns a list such as ["a|b", "c"] into relation groups.
func splitGroups(entries []string) [][]string {
	var groups [][]string
	for _, e := range entries {
		if g := modeldef.SplitGroup(e); len(g) > 0 {
			groups = append(groups, g)
		}
	}
	return groups
}
