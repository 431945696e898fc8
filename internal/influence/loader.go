package influence

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
)

var (
	// ErrMalformed is returned for tables that cannot be read as an influence model.
	ErrMalformed = errors.New("influence: malformed influence model")
	// ErrOptionSetMismatch is returned when the option columns differ from the
	// options of the variability model.
	ErrOptionSetMismatch = errors.New("influence: option set differs from variability model")
)

// OptionNames returns the names an influence table of m has to declare:
// every option except root.
func OptionNames(m *feature.Model) []string {
	var names []string
	for _, o := range m.Options() {
		if o != m.Root() {
			names = append(names, o.Name())
		}
	}
	return names
}

// Load reads an influence table from path. optionNames is the option set of
// the variability model the table belongs to.
func Load(ctx context.Context, path string, optionNames []string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open influence model %s: %w", path, err)
	}
	defer f.Close()

	m, err := Parse(ctx, f, optionNames)
	if err != nil {
		return nil, fmt.Errorf("failed to load influence model %s: %w", path, err)
	}
	return m, nil
}

// Parse reads an influence table. The first row is the header: cell 0 is
// ignored, a cell containing ';' declares a property as name(unit;<|>), any
// other cell names an option. Every following row holds a region id, 0/1 per
// option column and a decimal per property column. Rows sharing a region id
// accumulate.
func Parse(ctx context.Context, r io.Reader, optionNames []string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)

	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) && errors.Is(parseErr.Err, csv.ErrFieldCount) {
			return nil, fmt.Errorf("%w: varying amount of values per line (line %d)", ErrMalformed, parseErr.Line)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: too few lines (%d)", ErrMalformed, len(records))
	}
	for _, rec := range records {
		for i := range rec {
			rec[i] = strings.TrimSpace(rec[i])
		}
	}

	header := records[0]
	optionCols := make(map[int]string)
	propertyCols := make(map[int]string)
	var properties []Property
	for i := 1; i < len(header); i++ {
		cell := header[i]
		if !strings.Contains(cell, ";") {
			optionCols[i] = feature.NormalizeName(cell)
			continue
		}
		p, err := parseProperty(cell)
		if err != nil {
			return nil, fmt.Errorf("%w: header column %d: %w", ErrMalformed, i+1, err)
		}
		propertyCols[i] = p.Name
		properties = append(properties, p)
	}

	if err := checkOptionSet(optionNames, optionCols); err != nil {
		return nil, err
	}

	regions := make(map[string][]Influence)
	for line, rec := range records[1:] {
		inf, err := parseRow(rec, optionCols, propertyCols)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMalformed, line+2, err)
		}
		regions[rec[0]] = append(regions[rec[0]], inf)
	}

	logger.Debug("Influence model parsed.", "properties", len(properties), "options", len(optionCols), "regions", len(regions))
	return NewModel(properties, regions), nil
}

// parseProperty splits a header such as "time(s;<)" or "time[s;>]".
func parseProperty(cell string) (Property, error) {
	parts := strings.FieldsFunc(cell, func(r rune) bool {
		return strings.ContainsRune(")(;[]", r)
	})
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	if len(parts) != 3 {
		return Property{}, fmt.Errorf("property %q must look like name(unit;<|>)", cell)
	}
	dir := Direction(parts[2])
	if dir != Minimize && dir != Maximize {
		return Property{}, fmt.Errorf("property %q has direction %q, want '<' or '>'", cell, parts[2])
	}
	return Property{Name: parts[0], Unit: parts[1], Direction: dir}, nil
}

func checkOptionSet(optionNames []string, optionCols map[int]string) error {
	want := make(map[string]struct{}, len(optionNames))
	for _, name := range optionNames {
		want[feature.NormalizeName(name)] = struct{}{}
	}
	got := make(map[string]struct{}, len(optionCols))
	for _, name := range optionCols {
		got[name] = struct{}{}
	}

	var missing, extra []string
	for name := range want {
		if _, ok := got[name]; !ok {
			missing = append(missing, name)
		}
	}
	for name := range got {
		if _, ok := want[name]; !ok {
			extra = append(extra, name)
		}
	}
	if len(missing) == 0 && len(extra) == 0 {
		return nil
	}
	slices.Sort(missing)
	slices.Sort(extra)
	return fmt.Errorf("%w: missing %v, unknown %v", ErrOptionSetMismatch, missing, extra)
}

func parseRow(rec []string, optionCols, propertyCols map[int]string) (Influence, error) {
	var required []string
	effects := make(map[string]float64, len(propertyCols))

	for _, i := range slices.Sorted(maps.Keys(optionCols)) {
		switch rec[i] {
		case "1":
			required = append(required, optionCols[i])
		case "0":
		default:
			return Influence{}, fmt.Errorf("option %s has value %q, want 0 or 1", optionCols[i], rec[i])
		}
	}
	for i, name := range propertyCols {
		v, err := strconv.ParseFloat(rec[i], 64)
		if err != nil {
			return Influence{}, fmt.Errorf("property %s has value %q: %w", name, rec[i], err)
		}
		effects[name] = v
	}
	return NewInfluence(required, effects), nil
}
