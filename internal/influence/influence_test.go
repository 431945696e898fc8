package influence

import (
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/featuregrid/internal/configuration"
	"github.com/vk/featuregrid/internal/feature"
)

var twoOptions = []string{"optA", "optB"}

func parse(t *testing.T, table string, options []string) *Model {
	t.Helper()
	m, err := Parse(t.Context(), strings.NewReader(table), options)
	require.NoError(t, err)
	return m
}

func TestEvaluateConfiguration_Scenario(t *testing.T) {
	m := parse(t, "id,optA,optB,time(s;<)\nr1,1,0,2.5\n", twoOptions)

	binary := configuration.New(map[string]bool{"optA": true}, nil)
	assert.Equal(t, map[string]float64{"time": 2.5}, m.EvaluateConfiguration(t.Context(), binary, "r1"))

	numeric := configuration.New(nil, map[string]float64{"optA": 4})
	assert.Equal(t, map[string]float64{"time": 10.0}, m.EvaluateConfiguration(t.Context(), numeric, "r1"))

	none := configuration.New(map[string]bool{"optB": true}, nil)
	assert.Equal(t, map[string]float64{"time": 0}, m.EvaluateConfiguration(t.Context(), none, "r1"))
}

func TestEvaluateConfiguration_Accumulates(t *testing.T) {
	table := `id, optA, optB, time(s;<), energy(J;>)
r1, 0, 0, 1, 10
r1, 1, 0, 2, 20
r1, 1, 1, 4, 40
r2, 0, 1, 8, 80
`
	m := parse(t, table, twoOptions)
	assert.Equal(t, []string{"time", "energy"}, m.PropertyNames())
	assert.Equal(t, []string{"r1", "r2"}, m.Regions())
	assert.Len(t, m.Influences("r1"), 3)

	cfg := configuration.New(map[string]bool{"optA": true, "optB": true}, nil)
	assert.Equal(t, map[string]float64{"time": 7, "energy": 70}, m.EvaluateConfiguration(t.Context(), cfg, "r1"))

	cfg = configuration.New(map[string]bool{"optA": true}, map[string]float64{"optB": 0.5})
	assert.Equal(t, map[string]float64{"time": 5, "energy": 50}, m.EvaluateConfiguration(t.Context(), cfg, "r1"),
		"numeric options are always active and scale their influences")
}

func TestEvaluateConfiguration_UnknownRegion(t *testing.T) {
	m := parse(t, "id,optA,optB,time(s;<),mem(MB;<)\nr1,1,0,2.5,3\n", twoOptions)
	cfg := configuration.New(map[string]bool{"optA": true}, nil)
	assert.Equal(t, map[string]float64{"time": 0, "mem": 0}, m.EvaluateConfiguration(t.Context(), cfg, "nope"))
	assert.False(t, m.HasRegion("nope"))
}

func TestEvaluateConfiguration_NilConfiguration(t *testing.T) {
	m := parse(t, "id,optA,optB,time(s;<),mem(MB;<)\nr1,1,0,2.5,3\n", twoOptions)
	assert.Equal(t, map[string]float64{"time": 0, "mem": 0}, m.EvaluateConfiguration(t.Context(), nil, "r1"))
}

func TestEvaluateConfiguration_NumericProductIsStable(t *testing.T) {
	options := []string{"a", "b", "c", "d", "e"}
	m := parse(t, "id,a,b,c,d,e,time(s;<)\nr1,1,1,1,1,1,0.3\n", options)
	cfg := configuration.New(nil, map[string]float64{"a": 0.1, "b": 3.3, "c": 1e-7, "d": 7.77, "e": 1e9})

	want := m.EvaluateConfiguration(t.Context(), cfg, "r1")
	for range 50 {
		assert.Equal(t, want, m.EvaluateConfiguration(t.Context(), cfg, "r1"))
	}
}

func TestEvaluateConfiguration_RowOrderInvariant(t *testing.T) {
	rows := []string{
		"r1,0,0,1.25",
		"r1,1,0,-0.5",
		"r1,0,1,3.75",
		"r1,1,1,0.1",
		"r1,1,0,2.2",
	}
	cfg := configuration.New(map[string]bool{"optA": true}, map[string]float64{"optB": 3})
	want := parse(t, "id,optA,optB,time(s;<)\n"+strings.Join(rows, "\n"), twoOptions).
		EvaluateConfiguration(t.Context(), cfg, "r1")

	rnd := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]string(nil), rows...)
		rnd.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		got := parse(t, "id,optA,optB,time(s;<)\n"+strings.Join(shuffled, "\n"), twoOptions).
			EvaluateConfiguration(t.Context(), cfg, "r1")
		assert.InDelta(t, want["time"], got["time"], 1e-9)
	}
}

func TestParse_Properties(t *testing.T) {
	m := parse(t, "id,optA,optB,time(s;<),throughput[ops/s;>]\nr1,0,0,1,2\n", twoOptions)
	assert.Equal(t, []Property{
		{Name: "time", Unit: "s", Direction: Minimize},
		{Name: "throughput", Unit: "ops/s", Direction: Maximize},
	}, m.Properties())
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		table   string
		errIs   error
		message string
	}{
		{name: "too few lines", table: "id,optA,optB,time(s;<)\n", errIs: ErrMalformed, message: "too few lines"},
		{name: "varying cells", table: "id,optA,optB,time(s;<)\nr1,1,0\n", errIs: ErrMalformed, message: "varying amount"},
		{name: "bad header", table: "id,optA,optB,time(s;<;x)\nr1,1,0,1\n", errIs: ErrMalformed, message: "name(unit;<|>)"},
		{name: "bad direction", table: "id,optA,optB,time(s;=)\nr1,1,0,1\n", errIs: ErrMalformed, message: "direction"},
		{name: "bad option value", table: "id,optA,optB,time(s;<)\nr1,2,0,1\n", errIs: ErrMalformed, message: "want 0 or 1"},
		{name: "bad decimal", table: "id,optA,optB,time(s;<)\nr1,1,0,fast\n", errIs: ErrMalformed, message: "line 2"},
		{name: "missing option", table: "id,optA,time(s;<)\nr1,1,1\n", errIs: ErrOptionSetMismatch, message: "missing [optb]"},
		{name: "extra option", table: "id,optA,optB,optC,time(s;<)\nr1,1,0,0,1\n", errIs: ErrOptionSetMismatch, message: "unknown [optc]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(t.Context(), strings.NewReader(tc.table), twoOptions)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.errIs)
			assert.ErrorContains(t, err, tc.message)
		})
	}
}

func TestLoad_WithModelOptions(t *testing.T) {
	vm := feature.NewModel("m")
	require.NoError(t, vm.AddOption(feature.NewBinary("optA")))
	require.NoError(t, vm.AddOption(feature.NewNumeric("optB", 1, 4, 1)))
	assert.Equal(t, []string{"opta", "optb"}, OptionNames(vm))

	path := filepath.Join(t.TempDir(), "pim.csv")
	require.NoError(t, os.WriteFile(path, []byte("id,optA,optB,time(s;<)\nr1,1,1,2\n"), 0o644))

	m, err := Load(t.Context(), path, OptionNames(vm))
	require.NoError(t, err)
	cfg := configuration.New(map[string]bool{"optA": true}, map[string]float64{"optB": 3})
	assert.Equal(t, map[string]float64{"time": 6}, m.EvaluateConfiguration(t.Context(), cfg, "r1"))

	_, err = Load(t.Context(), filepath.Join(t.TempDir(), "none.csv"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCompare(t *testing.T) {
	m := parse(t, "id,optA,optB,time(s;<)\nr2,0,1,4\nr1,1,0,2.5\n", twoOptions)
	a := configuration.New(map[string]bool{"optA": true}, nil)
	b := configuration.New(map[string]bool{"optB": true}, nil)

	got := m.Compare(t.Context(), a, b)
	require.Len(t, got, 2)
	assert.Equal(t, Comparison{Region: "r1", Property: "time", A: 2.5, B: 0}, got[0])
	assert.Equal(t, -2.5, got[0].Delta())
	assert.Equal(t, Comparison{Region: "r2", Property: "time", A: 0, B: 4}, got[1])
}
