// Package pim evaluates array-based performance-influence models attached to
// code regions. Every NFP property of a region carries a weight array whose
// first entry is the base value and whose remaining entries belong to the
// options of the model's features order.
package pim

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vk/featuregrid/internal/feature"
	"gopkg.in/yaml.v3"
)

// ErrMalformed is returned for region documents that cannot be decoded.
var ErrMalformed = errors.New("pim: malformed region document")

// PropertyType distinguishes region properties.
type PropertyType string

const (
	// NFP properties carry a PIM weight array.
	NFP PropertyType = "nfp"
	// Feature properties name an option the region belongs to.
	Feature PropertyType = "feature"
)

// Property is a named region property. Values is only set for NFP properties.
type Property struct {
	Type   PropertyType
	Name   string
	Values []float64
}

// Average is the mean of the weight array, 0 when it is empty.
func (p Property) Average() float64 {
	if len(p.Values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range p.Values {
		sum += v
	}
	return sum / float64(len(p.Values))
}

// Section is a run of consecutive lines.
type Section struct {
	Start int
	End   int
}

// Lines returns the number of lines the section spans.
func (s Section) Lines() int { return s.End - s.Start + 1 }

// Region is a set of lines of one file with its properties.
type Region struct {
	ID       string
	Location string
	// Nodes are the sorted, duplicate-free line numbers.
	Nodes    []int
	Sections []Section

	nfps     map[string]Property
	nfpOrder []string
	features map[string]Property
}

// NFP returns the NFP property with the given name.
func (r *Region) NFP(name string) (Property, bool) {
	p, ok := r.nfps[strings.ToLower(name)]
	return p, ok
}

// NFPNames returns the names of the region's NFP properties in document order.
func (r *Region) NFPNames() []string {
	return slices.Clone(r.nfpOrder)
}

// Features returns the names of the feature properties, sorted.
func (r *Region) Features() []string {
	names := make([]string, 0, len(r.features))
	for name := range r.features {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// LOCs is the number of lines the region covers.
func (r *Region) LOCs() int { return len(r.Nodes) }

type regionsDocument struct {
	Regions *[]regionEntry `json:"regions" yaml:"regions"`
}

type regionEntry struct {
	ID         string          `json:"id" yaml:"id"`
	Location   string          `json:"location" yaml:"location"`
	Nodes      nodeList        `json:"nodes" yaml:"nodes"`
	Properties []propertyEntry `json:"properties" yaml:"properties"`
}

type propertyEntry struct {
	Type  string    `json:"type" yaml:"type"`
	Name  string    `json:"name" yaml:"name"`
	Value []float64 `json:"value" yaml:"value"`
}

// nodeList accepts either an array of line numbers or an "a-b" range string.
type nodeList []int

func (n *nodeList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		nodes, err := parseRange(s)
		if err != nil {
			return err
		}
		*n = nodes
		return nil
	}
	var nodes []int
	if err := json.Unmarshal(data, &nodes); err != nil {
		return err
	}
	*n = nodes
	return nil
}

func (n *nodeList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		nodes, err := parseRange(value.Value)
		if err != nil {
			return err
		}
		*n = nodes
		return nil
	}
	var nodes []int
	if err := value.Decode(&nodes); err != nil {
		return err
	}
	*n = nodes
	return nil
}

// parseRange expands "5-8" to [5 6 7 8]. A negative start becomes 0 and an
// end below the start collapses the range to the start.
func parseRange(s string) ([]int, error) {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '-' })
	if len(parts) != 2 {
		return nil, fmt.Errorf("node range %q must look like from-to", s)
	}
	from, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return nil, fmt.Errorf("node range %q: %w", s, err)
	}
	to, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, fmt.Errorf("node range %q: %w", s, err)
	}
	from = max(from, 0)
	to = max(to, from)

	nodes := make([]int, 0, to-from+1)
	for i := from; i <= to; i++ {
		nodes = append(nodes, i)
	}
	return nodes, nil
}

// newRegion validates an entry. dupes reports how many duplicate nodes were
// dropped.
func newRegion(e regionEntry) (r *Region, dupes int, err error) {
	if e.ID == "" {
		return nil, 0, errors.New("region without id")
	}

	nodes := make([]int, 0, len(e.Nodes))
	for _, n := range e.Nodes {
		nodes = append(nodes, max(n, 0))
	}
	slices.Sort(nodes)
	compacted := slices.Compact(nodes)
	dupes = len(nodes) - len(compacted)

	r = &Region{
		ID:       e.ID,
		Location: e.Location,
		Nodes:    compacted,
		Sections: sections(compacted),
		nfps:     make(map[string]Property),
		features: make(map[string]Property),
	}

	for i, pe := range e.Properties {
		if pe.Name == "" {
			return nil, 0, fmt.Errorf("region %s: property %d has no name", e.ID, i)
		}
		name := strings.ToLower(pe.Name)
		var target map[string]Property
		p := Property{Name: name}
		switch PropertyType(strings.ToLower(pe.Type)) {
		case NFP:
			p.Type = NFP
			p.Values = slices.Clone(pe.Value)
			target = r.nfps
		case Feature:
			p.Type = Feature
			p.Name = feature.NormalizeName(pe.Name)
			target = r.features
		default:
			return nil, 0, fmt.Errorf("region %s: property %s has invalid type %q", e.ID, pe.Name, pe.Type)
		}
		if _, exists := target[p.Name]; exists {
			return nil, 0, fmt.Errorf("region %s: property %s already exists", e.ID, p.Name)
		}
		target[p.Name] = p
		if p.Type == NFP {
			r.nfpOrder = append(r.nfpOrder, p.Name)
		}
	}
	return r, dupes, nil
}

// sections splits sorted nodes into runs of consecutive lines.
func sections(nodes []int) []Section {
	var out []Section
	for i, n := range nodes {
		if i == 0 || n != nodes[i-1]+1 {
			out = append(out, Section{Start: n, End: n})
			continue
		}
		out[len(out)-1].End = n
	}
	return out
}
