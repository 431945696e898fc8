package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vk/featuregrid/internal/configuration"
	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/influence"
	"github.com/vk/featuregrid/internal/pim"
	"github.com/vk/featuregrid/internal/publish"
)

// Range is the smallest and largest resolved value of a property.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Report is the outcome of evaluating one configuration.
type Report struct {
	Configuration string `json:"configuration"`
	Valid         bool   `json:"valid"`
	Used          bool   `json:"used"`
	Reason        string `json:"reason,omitempty"`

	// Influence maps region id to property to influence model value.
	Influence map[string]map[string]float64 `json:"influence,omitempty"`

	// Regions maps region id to property to PIM value. Unresolved values
	// are -1 and are counted in Unresolved.
	Regions    map[string]map[string]float64 `json:"regions,omitempty"`
	Unresolved int                           `json:"unresolved,omitempty"`
	Global     map[string]Range              `json:"global,omitempty"`
}

// ComparisonRow is one region property under two configurations.
type ComparisonRow struct {
	Region   string  `json:"region"`
	Property string  `json:"property"`
	A        float64 `json:"a"`
	B        float64 `json:"b"`
	Delta    float64 `json:"delta"`
}

// ComparisonReport is the outcome of comparing two configurations.
type ComparisonReport struct {
	A       string          `json:"a"`
	B       string          `json:"b"`
	ValidA  bool            `json:"valid_a"`
	ValidB  bool            `json:"valid_b"`
	Changes []string        `json:"changes"`
	Rows    []ComparisonRow `json:"rows"`
}

// evaluate applies cfg to the model, validates the result and computes the
// influence and PIM values. A nil cfg evaluates the model as it is.
func (a *App) evaluate(ctx context.Context, name string, cfg *configuration.Configuration) *Report {
	logger := ctxlog.FromContext(ctx)

	if cfg != nil {
		if err := cfg.Apply(ctx, a.model); err != nil {
			logger.Warn("Configuration applied partially.", "configuration", name, "error", err)
		}
	}

	r := &Report{Configuration: name}
	r.Valid = a.validator.IsConfigurationValid(ctx, a.model, a.config.Partial)
	r.Used, r.Reason = a.model.IsValidAndUsed()

	snapshot := configuration.FromModel(a.model)
	if a.influence != nil {
		r.Influence = make(map[string]map[string]float64)
		for _, region := range a.influence.Regions() {
			r.Influence[region] = a.influence.EvaluateConfiguration(ctx, snapshot, region)
		}
	}

	if a.regions != nil {
		res := pim.NewEvaluator(a.model, a.config.OnlyPositive).Evaluate(ctx, a.regions)
		r.Regions = make(map[string]map[string]float64, len(res.Regions))
		for id, values := range res.Regions {
			r.Regions[id] = make(map[string]float64, len(values))
			for property, v := range values {
				r.Regions[id][property] = v.Value
				if !v.Resolved {
					r.Unresolved++
				}
			}
		}
		r.Global = make(map[string]Range, len(res.Global))
		for property, mm := range res.Global {
			r.Global[property] = Range{Min: mm.Min, Max: mm.Max}
		}
		a.metrics.ObserveEvaluation(a.regions.Len(), r.Unresolved)
	}

	logger.Info("Configuration evaluated.", "configuration", name, "valid", r.Valid, "used", r.Used, "unresolved", r.Unresolved)
	return r
}

// evaluateFile loads the configuration at path and evaluates it.
func (a *App) evaluateFile(ctx context.Context, path string) (*Report, error) {
	cfg, err := configuration.Load(path)
	if err != nil {
		return nil, err
	}
	return a.evaluate(ctx, path, cfg), nil
}

// compare evaluates two configurations against the influence model.
func (a *App) compare(ctx context.Context, pathA, pathB string) (*ComparisonReport, error) {
	cfgA, err := configuration.Load(pathA)
	if err != nil {
		return nil, err
	}
	cfgB, err := configuration.Load(pathB)
	if err != nil {
		return nil, err
	}

	// Compare the applied snapshots so clamped values and deselected
	// parents are taken into account.
	cr := &ComparisonReport{A: pathA, B: pathB}
	cr.ValidA = a.evaluate(ctx, pathA, cfgA).Valid
	snapA := configuration.FromModel(a.model)
	cr.ValidB = a.evaluate(ctx, pathB, cfgB).Valid
	snapB := configuration.FromModel(a.model)

	for _, ch := range snapA.Diff(snapB) {
		cr.Changes = append(cr.Changes, ch.String())
	}
	for _, c := range a.influence.Compare(ctx, snapA, snapB) {
		cr.Rows = append(cr.Rows, comparisonRow(c))
	}
	return cr, nil
}

func comparisonRow(c influence.Comparison) ComparisonRow {
	return ComparisonRow{Region: c.Region, Property: c.Property, A: c.A, B: c.B, Delta: c.Delta()}
}

// emit writes v as one JSON document to the output and hands it to the
// publisher, if any.
func (a *App) emit(ctx context.Context, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if _, err := fmt.Fprintln(a.outW, string(data)); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	if a.publisher != nil && !a.publisher.Publish(publish.ReportEvent, v) {
		ctxlog.FromContext(ctx).Warn("Report not published.")
	}
	return nil
}
