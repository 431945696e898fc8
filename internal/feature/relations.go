package feature

// AddImpliedGroup declares a disjunction group of which at least one member
// has to be selected whenever this option is selected.
func (o *Option) AddImpliedGroup(names ...string) {
	o.impliedNames = append(o.impliedNames, normalizeAll(names))
	o.structureChanged()
}

// AddExcludedGroup declares a group of options that must not be selected
// together with this option.
func (o *Option) AddExcludedGroup(names ...string) {
	o.excludedNames = append(o.excludedNames, normalizeAll(names))
	o.structureChanged()
}

func normalizeAll(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = NormalizeName(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Implied returns the resolved implication groups.
func (o *Option) Implied() [][]*Option { return copyGroups(o.implied) }

// Excluded returns the resolved exclusion groups.
func (o *Option) Excluded() [][]*Option { return copyGroups(o.excluded) }

func copyGroups(groups [][]*Option) [][]*Option {
	out := make([][]*Option, len(groups))
	for i, g := range groups {
		out[i] = append([]*Option(nil), g...)
	}
	return out
}

// ExcludesOption reports whether other appears in any exclusion group.
func (o *Option) ExcludesOption(other *Option) bool {
	for _, group := range o.excluded {
		for _, ex := range group {
			if ex == other {
				return true
			}
		}
	}
	return false
}

// haveSameParent reports whether every member of group shares this option's parent.
func (o *Option) haveSameParent(group []*Option) bool {
	for _, member := range group {
		if member.parent != o.parent {
			return false
		}
	}
	return true
}

// HasAlternatives reports whether a mandatory binary option has an
// exclusion group made of siblings.
func (o *Option) HasAlternatives() bool {
	if o.kind != Binary || o.optional {
		return false
	}
	for _, group := range o.excluded {
		if o.haveSameParent(group) {
			return true
		}
	}
	return false
}

// AlternativeOptions returns the mandatory binary siblings this option
// excludes. Together with the option itself they form an alternative group
// of which exactly one member is selected when the parent is. Optional
// options have no alternatives.
func (o *Option) AlternativeOptions() []*Option {
	if o.kind != Binary || o.optional {
		return nil
	}

	var out []*Option
	seen := make(map[*Option]struct{})
	add := func(other *Option) {
		if !o.isAlternative(other) {
			return
		}
		if _, dup := seen[other]; dup {
			return
		}
		seen[other] = struct{}{}
		out = append(out, other)
	}
	for _, group := range o.excluded {
		for _, other := range group {
			add(other)
		}
	}
	return out
}

func (o *Option) isAlternative(other *Option) bool {
	return other.kind == Binary && other.parent == o.parent && !other.optional
}

// NonAlternativeExcludedOptions returns the single-member exclusion groups
// that are not alternatives: binary options under a different parent, or
// optional siblings excluded by an optional option.
func (o *Option) NonAlternativeExcludedOptions() [][]*Option {
	if o.kind != Binary {
		return nil
	}

	var out [][]*Option
	for _, group := range o.excluded {
		if len(group) != 1 {
			continue
		}
		other := group[0]
		if other.kind != Binary {
			continue
		}
		if other.parent != o.parent {
			out = append(out, group)
		} else if o.optional && other.optional {
			out = append(out, group)
		}
	}
	return out
}
