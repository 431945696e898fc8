package feature

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/featuregrid/internal/modeldef"
)

func newTestModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel("test")
	a := NewBinary("optA")
	a.SetOptional(true)
	b := NewBinary("optB")
	b.SetOptional(true)
	size := NewNumeric("cache_size", 1, 3, 1)
	size.SetStepFunction("n+1")
	for _, o := range []*Option{a, b, size} {
		require.NoError(t, m.AddOption(o))
	}
	require.NoError(t, m.InitOptions(t.Context()))
	return m
}

func TestNewModel(t *testing.T) {
	m := NewModel("m")
	assert.NotEmpty(t, m.ID())
	assert.NotEqual(t, m.ID(), NewModel("m").ID())
	assert.Equal(t, 1, m.OptionCount())
	assert.Equal(t, 0, m.OptionIndex(RootName))
	root, ok := m.OptionAt(0)
	require.True(t, ok)
	assert.Same(t, m.Root(), root)
	assert.True(t, m.ChangedSinceLastValidation())
}

func TestModel_Indexing(t *testing.T) {
	m := newTestModel(t)

	assert.Equal(t, 4, m.OptionCount())
	assert.Equal(t, 1, m.OptionIndex("OPTA"))
	assert.Equal(t, 3, m.OptionIndex("cache_size"))
	assert.Equal(t, -1, m.OptionIndex("missing"))
	assert.True(t, m.HasOption("optb"))

	o, ok := m.OptionAt(2)
	require.True(t, ok)
	assert.Equal(t, "optb", o.Name())
	_, ok = m.OptionAt(4)
	assert.False(t, ok)

	_, ok = m.BinaryOption("cache_size")
	assert.False(t, ok)
	_, ok = m.NumericOption("cache_size")
	assert.True(t, ok)

	assert.Len(t, m.BinaryOptions(), 3)
	assert.Len(t, m.NumericOptions(), 1)
	assert.Equal(t, []string{"root", "opta", "optb", "cache_size"}, m.ArrayOrder())
}

func TestModel_AddOptionErrors(t *testing.T) {
	m := newTestModel(t)

	assert.ErrorIs(t, m.AddOption(NewBinary("OptA")), ErrDuplicateOption)
	assert.ErrorIs(t, m.AddOption(NewBinary("--")), ErrInvalidName)

	other := NewModel("other")
	o := NewBinary("x")
	require.NoError(t, other.AddOption(o))
	assert.ErrorIs(t, m.AddOption(o), ErrAttached)
}

func TestModel_VersionChangesOnStructureOnly(t *testing.T) {
	m := newTestModel(t)
	v := m.Version()

	a, _ := m.Option("opta")
	a.SetSelected(true)
	assert.Equal(t, v, m.Version())

	m.AddConstraint("opta | optb")
	assert.Greater(t, m.Version(), v)

	v = m.Version()
	size, _ := m.Option("cache_size")
	size.SetStepFunction("n*2")
	assert.Greater(t, m.Version(), v)

	v = m.Version()
	a.SetOptional(a.Optional())
	assert.Equal(t, v, m.Version())
	a.SetOptional(!a.Optional())
	assert.Greater(t, m.Version(), v)

	v = m.Version()
	a.AddExcludedGroup("optb")
	assert.Greater(t, m.Version(), v)

	v = m.Version()
	a.AddImpliedGroup("cache_size")
	assert.Greater(t, m.Version(), v)

	v = m.Version()
	a.SetParentName("")
	assert.Greater(t, m.Version(), v)
}

func TestModel_Events(t *testing.T) {
	m := newTestModel(t)
	m.JustValidated(true)
	require.False(t, m.ChangedSinceLastValidation())

	var events []Event
	unsubscribe := m.Subscribe(func(e Event) { events = append(events, e) })

	a, _ := m.Option("opta")
	a.SetSelected(true)
	a.SetSelected(true)
	assert.True(t, m.ChangedSinceLastValidation())

	m.JustValidated(false)
	unsubscribe()
	a.SetSelected(false)

	want := []Event{
		{Type: ValueChanged, ModelID: m.ID(), Option: "opta", Previous: 0, Current: 1},
		{Type: Validated, ModelID: m.ID(), PreviousValid: true, Valid: false},
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestModel_IsValidAndUsed(t *testing.T) {
	m := newTestModel(t)

	ok, reason := m.IsValidAndUsed()
	assert.False(t, ok)
	assert.Equal(t, "Variability Model not validated!", reason)

	m.JustValidated(false)
	_, reason = m.IsValidAndUsed()
	assert.Equal(t, "Variability Model is invalid!", reason)

	m.JustValidated(true)
	_, reason = m.IsValidAndUsed()
	assert.Equal(t, "Variability Model not applied yet!", reason)

	m.SetValuesAppliedOnce(true)
	ok, reason = m.IsValidAndUsed()
	assert.True(t, ok)
	assert.Empty(t, reason)
}

func TestModel_FeaturesOrder(t *testing.T) {
	m := newTestModel(t)
	assert.False(t, m.HasFeaturesOrder())

	require.NoError(t, m.SetFeaturesOrder([]string{"cache_size", "optA"}))
	order := m.FeaturesOrder()
	require.Len(t, order, 2)
	assert.Equal(t, "cache_size", order[0].Name())
	assert.Equal(t, "opta", order[1].Name())

	assert.ErrorIs(t, m.SetFeaturesOrder([]string{"optA", "root"}), ErrUnknownFeature)
	assert.False(t, m.HasFeaturesOrder())
	assert.ErrorIs(t, m.SetFeaturesOrder([]string{"nope"}), ErrUnknownFeature)
}

func TestInitOptions_Errors(t *testing.T) {
	t.Run("unknown parent", func(t *testing.T) {
		m := NewModel("m")
		o := NewBinary("a")
		o.SetParentName("nope")
		require.NoError(t, m.AddOption(o))
		err := m.InitOptions(t.Context())
		assert.ErrorIs(t, err, ErrUnknownParent)
		assert.False(t, o.Initialized())
	})

	t.Run("numeric parent", func(t *testing.T) {
		m := NewModel("m")
		n := NewNumeric("n1", 0, 1, 1)
		o := NewBinary("a")
		o.SetParentName("n1")
		require.NoError(t, m.AddOption(n))
		require.NoError(t, m.AddOption(o))
		assert.ErrorIs(t, m.InitOptions(t.Context()), ErrUnknownParent)
	})

	t.Run("cycle", func(t *testing.T) {
		m := NewModel("m")
		a := NewBinary("a")
		a.SetParentName("b")
		b := NewBinary("b")
		b.SetParentName("a")
		require.NoError(t, m.AddOption(a))
		require.NoError(t, m.AddOption(b))
		assert.ErrorIs(t, m.InitOptions(t.Context()), ErrHierarchyCycle)
		assert.Nil(t, a.Parent())
	})
}

func TestInitOptions_Children(t *testing.T) {
	m := NewModel("m")
	p := NewBinary("p")
	c1 := NewBinary("c1")
	c1.SetParentName("p")
	c2 := NewNumeric("c2", 0, 4, 1)
	c2.SetParentName("p")
	for _, o := range []*Option{p, c1, c2} {
		require.NoError(t, m.AddOption(o))
	}
	require.NoError(t, m.InitOptions(t.Context()))
	require.NoError(t, m.InitOptions(t.Context()), "initialization can be repeated")

	assert.Equal(t, []*Option{c1, c2}, p.Children())
	assert.Equal(t, []*Option{p}, m.Root().Children())
	assert.Same(t, p, c2.Parent())
}

func TestBuild(t *testing.T) {
	yes := true
	two := 2.0
	def := &modeldef.Definition{
		Name: "Demo",
		Binary: []*modeldef.BinaryOption{
			{Name: "Engine", DisplayName: "Engine", Optional: true, Default: &yes},
			{Name: "fast", Parent: "Engine", Relations: modeldef.Relations{Excluded: [][]string{{"slow"}}}},
			{Name: "slow", Parent: "Engine", Relations: modeldef.Relations{Excluded: [][]string{{"fast"}}}},
		},
		Numeric: []*modeldef.NumericOption{
			{Name: "cache_size", Parent: "Engine", Min: 1, Max: 3, Step: 1, StepFunction: "n+1", Default: &two},
		},
		Constraints: []string{"fast | slow"},
	}

	m, err := Build(t.Context(), def)
	require.NoError(t, err)

	assert.Equal(t, "Demo", m.Name())
	assert.Equal(t, []string{"fast | slow"}, m.Constraints())
	engine, ok := m.BinaryOption("engine")
	require.True(t, ok)
	assert.True(t, engine.IsSelected(false))
	assert.Equal(t, 1.0, engine.Default())

	fast, _ := m.Option("fast")
	slow, _ := m.Option("slow")
	assert.Equal(t, []*Option{slow}, fast.AlternativeOptions())

	size, _ := m.NumericOption("cache_size")
	assert.Equal(t, 2.0, size.Value())
	assert.Equal(t, []float64{1, 2, 3}, size.AllValues(t.Context()))
	assert.Same(t, engine, size.Parent())
}

func TestBuild_Errors(t *testing.T) {
	_, err := Build(t.Context(), &modeldef.Definition{Binary: []*modeldef.BinaryOption{{Name: "root"}}})
	assert.ErrorIs(t, err, modeldef.ErrReservedName)

	_, err = Build(t.Context(), &modeldef.Definition{Binary: []*modeldef.BinaryOption{{Name: "a"}, {Name: "A"}}})
	assert.ErrorIs(t, err, ErrDuplicateOption)

	_, err = Build(t.Context(), &modeldef.Definition{Binary: []*modeldef.BinaryOption{{Name: "a", Parent: "ghost"}}})
	assert.ErrorIs(t, err, ErrUnknownParent)
}

func TestHierarchyJSON(t *testing.T) {
	m := newTestModel(t)
	raw, err := m.HierarchyJSON()
	require.NoError(t, err)

	var tree struct {
		Name     string `json:"name"`
		Children []struct {
			Name string `json:"name"`
			Kind string `json:"kind"`
		} `json:"children"`
	}
	require.NoError(t, json.Unmarshal(raw, &tree))
	assert.Equal(t, "root", tree.Name)
	require.Len(t, tree.Children, 3)
	assert.Equal(t, "cache_size", tree.Children[2].Name)
	assert.Equal(t, "numeric", tree.Children[2].Kind)
}
