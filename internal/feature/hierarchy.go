package feature

import "encoding/json"

type hierarchyNode struct {
	Name     string           `json:"name"`
	Display  string           `json:"display,omitempty"`
	Kind     string           `json:"kind"`
	Optional bool             `json:"optional,omitempty"`
	Value    float64          `json:"value"`
	Children []*hierarchyNode `json:"children,omitempty"`
}

// HierarchyJSON renders the option tree below root as nested JSON objects.
func (m *Model) HierarchyJSON() ([]byte, error) {
	return json.MarshalIndent(hierarchyOf(m.root), "", "  ")
}

func hierarchyOf(o *Option) *hierarchyNode {
	n := &hierarchyNode{
		Name:     o.name,
		Kind:     o.kind.String(),
		Optional: o.optional,
		Value:    o.value,
	}
	if o.display != o.name {
		n.Display = o.display
	}
	for _, c := range o.children {
		n.Children = append(n.Children, hierarchyOf(c))
	}
	return n
}
