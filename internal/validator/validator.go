// Package validator decides whether a configuration satisfies every
// constraint of a variability model. The model is compiled into a boolean
// circuit once per model version and solved with the gini SAT solver, the
// configuration entering as assumptions.
package validator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/vk/featuregrid/internal/configuration"
	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
)

// ErrMissingNumericValue is returned when a full configuration does not
// assign a numeric option.
var ErrMissingNumericValue = errors.New("validator: numeric option has no value")

const pollInterval = 2 * time.Millisecond

// Result labels reported to a Recorder.
const (
	ResultValid   = "valid"
	ResultInvalid = "invalid"
	ResultUnknown = "unknown"
	ResultError   = "error"
)

// Recorder observes validation outcomes.
type Recorder interface {
	ObserveValidation(result string, elapsed time.Duration)
}

// Cache holds the compiled constraint system per model. An entry is rebuilt
// when the version of its model changes. A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	systems map[string]*system
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{systems: make(map[string]*system)}
}

func (c *Cache) get(ctx context.Context, m *feature.Model) (*system, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.systems[m.ID()]; ok && s.version == m.Version() {
		return s, nil
	}
	s, err := build(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("failed to build constraint system for model %q: %w", m.Name(), err)
	}
	c.systems[m.ID()] = s
	return s, nil
}

// Forget drops the cached system of a model.
func (c *Cache) Forget(m *feature.Model) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.systems, m.ID())
}

// Len returns the number of cached systems.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.systems)
}

// Option configures a Validator.
type Option func(*Validator)

// WithCache shares a cache between validators.
func WithCache(c *Cache) Option { return func(v *Validator) { v.cache = c } }

// WithTimeout bounds a single solve. An expired solve counts as invalid.
func WithTimeout(d time.Duration) Option { return func(v *Validator) { v.timeout = d } }

// WithRecorder reports every outcome to r.
func WithRecorder(r Recorder) Option { return func(v *Validator) { v.recorder = r } }

// Validator checks configurations against variability models.
type Validator struct {
	cache    *Cache
	timeout  time.Duration
	recorder Recorder
}

// New creates a validator with its own cache unless WithCache is given.
func New(opts ...Option) *Validator {
	v := &Validator{}
	for _, opt := range opts {
		opt(v)
	}
	if v.cache == nil {
		v.cache = NewCache()
	}
	return v
}

// IsConfigurationValid checks the live selection of m and records the
// outcome on the model. Errors are logged and count as invalid.
func (v *Validator) IsConfigurationValid(ctx context.Context, m *feature.Model, partial bool) bool {
	m.SetCurrentlyValidating(true)
	valid, err := v.CheckConfiguration(ctx, m, configuration.FromModel(m), partial)
	m.SetCurrentlyValidating(false)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Validation failed.", "model", m.Name(), "error", err)
		valid = false
	}
	m.JustValidated(valid)
	return valid
}

// CheckConfiguration reports whether cfg satisfies the constraints of m.
// In full mode every binary option not selected by cfg is asserted false
// and every numeric option needs a value. In partial mode unselected binary
// options and unassigned numeric options are left open.
func (v *Validator) CheckConfiguration(ctx context.Context, m *feature.Model, cfg *configuration.Configuration, partial bool) (bool, error) {
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	s, err := v.cache.get(ctx, m)
	if err != nil {
		v.observe(ResultError, start)
		return false, err
	}

	assumptions, ok, err := s.assumptions(ctx, m, cfg, partial)
	if err != nil {
		v.observe(ResultError, start)
		return false, err
	}
	if !ok {
		v.observe(ResultInvalid, start)
		return false, nil
	}

	g := gini.New()
	s.circuit.ToCnf(g)
	for _, lit := range s.asserted {
		g.Add(lit)
		g.Add(z.LitNull)
	}
	g.Assume(assumptions...)

	switch v.solve(ctx, g) {
	case 1:
		v.observe(ResultValid, start)
		logger.Debug("Configuration is valid.", "model", m.Name(), "partial", partial)
		return true, nil
	case -1:
		v.observe(ResultInvalid, start)
		logger.Debug("Configuration is invalid.", "model", m.Name(), "partial", partial)
		return false, nil
	default:
		v.observe(ResultUnknown, start)
		logger.Warn("Solver gave up, treating configuration as invalid.", "model", m.Name(), "timeout", v.timeout, "ctx_err", ctx.Err())
		return false, nil
	}
}

func (v *Validator) observe(result string, start time.Time) {
	if v.recorder != nil {
		v.recorder.ObserveValidation(result, time.Since(start))
	}
}

// solve runs the solver until it finishes, the timeout expires or ctx is
// cancelled. The latter two yield 0.
func (v *Validator) solve(ctx context.Context, g *gini.Gini) int {
	if ctx.Err() != nil {
		return 0
	}
	if v.timeout <= 0 && ctx.Done() == nil {
		return g.Solve()
	}

	var deadline <-chan time.Time
	if v.timeout > 0 {
		timer := time.NewTimer(v.timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	s := g.GoSolve()
	for {
		if res, done := s.Test(); done {
			return res
		}
		select {
		case <-ctx.Done():
			s.Stop()
			return 0
		case <-deadline:
			s.Stop()
			return 0
		case <-ticker.C:
		}
	}
}

// assumptions translates cfg into solver assumptions. ok is false when a
// numeric value lies outside its option's domain, which no solve can satisfy.
func (s *system) assumptions(ctx context.Context, m *feature.Model, cfg *configuration.Configuration, partial bool) (lits []z.Lit, ok bool, err error) {
	logger := ctxlog.FromContext(ctx)
	selection := cfg.BinaryOptions()

	for name := range selection {
		if o, known := m.Option(name); !known || !o.IsBinary() {
			logger.Warn("Ignoring unknown binary option in configuration.", "option", name)
		}
	}
	for _, name := range cfg.NumericNames() {
		if _, known := m.NumericOption(name); !known {
			logger.Warn("Ignoring unknown numeric option in configuration.", "option", name)
		}
	}

	for o, lit := range s.binary {
		switch {
		case o == m.Root() || selection[o.Name()]:
			lits = append(lits, lit)
		case !partial:
			lits = append(lits, lit.Not())
		}
	}

	for o, term := range s.numeric {
		value, has := cfg.NumericValue(o.Name())
		if !has {
			if partial {
				continue
			}
			return nil, false, fmt.Errorf("%w: %q", ErrMissingNumericValue, o.Name())
		}
		lit, inDomain := term.lit(value)
		if !inDomain {
			logger.Info("Numeric value is not in the option's domain.", "option", o.Name(), "value", value)
			return nil, false, nil
		}
		lits = append(lits, lit)
	}
	return lits, true, nil
}
