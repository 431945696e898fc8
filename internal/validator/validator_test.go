package validator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/featuregrid/internal/configuration"
	"github.com/vk/featuregrid/internal/feature"
	"golang.org/x/sync/errgroup"
)

// newCompressor builds:
//
//	root
//	└── engine
//	    ├── fast   (alternative to slow)
//	    ├── slow
//	    └── cache_size [1, 2, 3]
//	encryption (optional, implies fast)
func newCompressor(t *testing.T) *feature.Model {
	t.Helper()
	m := feature.NewModel("compressor")

	engine := feature.NewBinary("engine")
	fast := feature.NewBinary("fast")
	fast.SetParentName("engine")
	fast.AddExcludedGroup("slow")
	slow := feature.NewBinary("slow")
	slow.SetParentName("engine")
	slow.AddExcludedGroup("fast")
	encryption := feature.NewBinary("encryption")
	encryption.SetOptional(true)
	encryption.AddImpliedGroup("fast")
	size := feature.NewNumeric("cache_size", 1, 3, 1)
	size.SetParentName("engine")
	size.SetStepFunction("cache_size + 1")

	for _, o := range []*feature.Option{engine, fast, slow, encryption, size} {
		require.NoError(t, m.AddOption(o))
	}
	require.NoError(t, m.InitOptions(t.Context()))
	return m
}

func cfg(selected []string, numeric map[string]float64) *configuration.Configuration {
	binary := make(map[string]bool, len(selected))
	for _, name := range selected {
		binary[name] = true
	}
	return configuration.New(binary, numeric)
}

func TestCheckConfiguration_Full(t *testing.T) {
	m := newCompressor(t)
	v := New()

	testCases := []struct {
		name     string
		selected []string
		size     float64
		want     bool
	}{
		{name: "one alternative", selected: []string{"engine", "fast"}, size: 2, want: true},
		{name: "other alternative", selected: []string{"engine", "slow"}, size: 1, want: true},
		{name: "no alternative", selected: []string{"engine"}, size: 2, want: false},
		{name: "both alternatives", selected: []string{"engine", "fast", "slow"}, size: 2, want: false},
		{name: "mandatory top-level option missing", selected: []string{"fast"}, size: 2, want: false},
		{name: "implication satisfied", selected: []string{"engine", "fast", "encryption"}, size: 3, want: true},
		{name: "implication violated", selected: []string{"engine", "slow", "encryption"}, size: 3, want: false},
		{name: "value outside domain", selected: []string{"engine", "fast"}, size: 4, want: false},
		{name: "value between steps", selected: []string{"engine", "fast"}, size: 2.5, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := v.CheckConfiguration(t.Context(), m, cfg(tc.selected, map[string]float64{"cache_size": tc.size}), false)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCheckConfiguration_Partial(t *testing.T) {
	m := newCompressor(t)
	v := New()

	ok, err := v.CheckConfiguration(t.Context(), m, cfg([]string{"fast"}, nil), true)
	require.NoError(t, err)
	assert.True(t, ok, "unselected options and missing values stay open")

	ok, err = v.CheckConfiguration(t.Context(), m, cfg([]string{"fast", "slow"}, nil), true)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = v.CheckConfiguration(t.Context(), m, cfg([]string{"encryption", "slow"}, nil), true)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = v.CheckConfiguration(t.Context(), m, cfg([]string{"engine", "fast"}, nil), false)
	assert.ErrorIs(t, err, ErrMissingNumericValue)
}

func TestCheckConfiguration_Constraints(t *testing.T) {
	m := newCompressor(t)
	cache := NewCache()
	v := New(WithCache(cache))
	fast := cfg([]string{"engine", "fast"}, map[string]float64{"cache_size": 1})
	slow := cfg([]string{"engine", "slow"}, map[string]float64{"cache_size": 1})

	ok, err := v.CheckConfiguration(t.Context(), m, fast, false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, cache.Len())

	m.AddConstraint("!fast")
	ok, err = v.CheckConfiguration(t.Context(), m, fast, false)
	require.NoError(t, err)
	assert.False(t, ok, "a new constraint rebuilds the cached system")

	ok, err = v.CheckConfiguration(t.Context(), m, slow, false)
	require.NoError(t, err)
	assert.True(t, ok)

	m.AddConstraint("encryption | -slow")
	ok, err = v.CheckConfiguration(t.Context(), m, slow, false)
	require.NoError(t, err)
	assert.False(t, ok)

	m.AddConstraint("encryption & cache_size")
	_, err = v.CheckConfiguration(t.Context(), m, slow, false)
	assert.ErrorIs(t, err, ErrConstraint)

	cache.Forget(m)
	assert.Equal(t, 0, cache.Len())
}

func TestIsConfigurationValid(t *testing.T) {
	m := newCompressor(t)
	v := New()

	var events []feature.Event
	m.Subscribe(func(ev feature.Event) { events = append(events, ev) })

	for _, name := range []string{"engine", "fast"} {
		o, ok := m.BinaryOption(name)
		require.True(t, ok)
		o.SetSelected(true)
	}
	size, _ := m.NumericOption("cache_size")
	size.SetValue(3)

	assert.True(t, v.IsConfigurationValid(t.Context(), m, false))
	assert.True(t, m.LastValidationStatus())
	assert.False(t, m.ChangedSinceLastValidation())
	assert.False(t, m.CurrentlyValidating())

	slow, _ := m.BinaryOption("slow")
	slow.SetSelected(true)
	assert.True(t, m.ChangedSinceLastValidation())
	assert.False(t, v.IsConfigurationValid(t.Context(), m, false))
	assert.False(t, m.LastValidationStatus())

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, feature.Validated, last.Type)
	assert.True(t, last.PreviousValid)
	assert.False(t, last.Valid)
}

func TestIsConfigurationValid_ChildOfDeselectedParent(t *testing.T) {
	m := newCompressor(t)
	v := New()

	fast, _ := m.BinaryOption("fast")
	fast.SetSelected(true)

	assert.False(t, v.IsConfigurationValid(t.Context(), m, false),
		"fast does not count as selected while engine is off")
	assert.True(t, v.IsConfigurationValid(t.Context(), m, true))
}

type recorder struct {
	mu      sync.Mutex
	results []string
}

func (r *recorder) ObserveValidation(result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
}

func TestValidator_Recorder(t *testing.T) {
	m := newCompressor(t)
	rec := &recorder{}
	v := New(WithRecorder(rec), WithTimeout(time.Minute))

	_, _ = v.CheckConfiguration(t.Context(), m, cfg([]string{"engine", "fast"}, map[string]float64{"cache_size": 2}), false)
	_, _ = v.CheckConfiguration(t.Context(), m, cfg([]string{"engine"}, map[string]float64{"cache_size": 2}), false)
	_, _ = v.CheckConfiguration(t.Context(), m, cfg([]string{"engine"}, nil), false)

	assert.Equal(t, []string{ResultValid, ResultInvalid, ResultError}, rec.results)
}

func TestValidator_CancelledContext(t *testing.T) {
	m := newCompressor(t)
	v := New()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	ok, err := v.CheckConfiguration(ctx, m, cfg([]string{"engine", "fast"}, map[string]float64{"cache_size": 2}), false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestValidator_ConcurrentModels(t *testing.T) {
	v := New()
	models := []*feature.Model{newCompressor(t), newCompressor(t), newCompressor(t)}
	valid := cfg([]string{"engine", "slow"}, map[string]float64{"cache_size": 3})

	g, ctx := errgroup.WithContext(t.Context())
	for _, m := range models {
		for range 4 {
			g.Go(func() error {
				ok, err := v.CheckConfiguration(ctx, m, valid, false)
				if err != nil {
					return err
				}
				assert.True(t, ok)
				return nil
			})
		}
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, len(models), v.cache.Len())
}

func TestValidator_RebuildsAfterStructuralChange(t *testing.T) {
	m := newCompressor(t)
	v := New()
	empty := cfg(nil, map[string]float64{"cache_size": 2})

	ok, err := v.CheckConfiguration(t.Context(), m, cfg([]string{"engine", "fast"}, map[string]float64{"cache_size": 2}), false)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = v.CheckConfiguration(t.Context(), m, empty, false)
	require.NoError(t, err)
	require.False(t, ok, "engine is mandatory")

	engine, found := m.Option("engine")
	require.True(t, found)
	engine.SetOptional(true)

	ok, err = v.CheckConfiguration(t.Context(), m, empty, false)
	require.NoError(t, err)
	assert.True(t, ok)

	fresh, err := New().CheckConfiguration(t.Context(), m, empty, false)
	require.NoError(t, err)
	assert.Equal(t, fresh, ok)
}
