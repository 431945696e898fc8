package influence

import (
	"context"

	"github.com/vk/featuregrid/internal/configuration"
)

// Comparison holds the value of one property of one region under two
// configurations.
type Comparison struct {
	Region   string
	Property string
	A        float64
	B        float64
}

// Delta is B minus A.
func (c Comparison) Delta() float64 { return c.B - c.A }

// Compare evaluates both configurations on every region. The result is
// ordered by region id and then by declared property order.
func (m *Model) Compare(ctx context.Context, a, b *configuration.Configuration) []Comparison {
	var out []Comparison
	for _, region := range m.Regions() {
		va := m.EvaluateConfiguration(ctx, a, region)
		vb := m.EvaluateConfiguration(ctx, b, region)
		for _, property := range m.PropertyNames() {
			out = append(out, Comparison{
				Region:   region,
				Property: property,
				A:        va[property],
				B:        vb[property],
			})
		}
	}
	return out
}
