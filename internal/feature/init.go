package feature

import (
	"context"
	"errors"
	"fmt"

	"github.com/vk/featuregrid/internal/ctxlog"
)

// InitOptions binds parent references and relation groups after all options
// were added. Unknown names inside relation groups are skipped; an unknown
// parent or a cycle in the hierarchy is an error. InitOptions may be called
// again after further options were added.
func (m *Model) InitOptions(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Initializing options.", "model", m.name, "count", len(m.options))

	var errs []error
	for _, o := range m.Options() {
		o.children = nil
	}
	for _, o := range m.Options() {
		if o == m.root {
			continue
		}
		if err := m.initOption(ctx, o); err != nil {
			errs = append(errs, err)
		}
	}
	if err := m.detectCycles(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		for _, o := range m.Options() {
			if o.parent != nil {
				o.parent.addChild(o)
			}
		}
	}

	m.bumpVersion()
	if err := errors.Join(errs...); err != nil {
		return err
	}
	logger.Debug("Options initialized.", "model", m.name)
	return nil
}

func (m *Model) initOption(ctx context.Context, o *Option) error {
	logger := ctxlog.FromContext(ctx)
	o.initialized = true

	parentName := o.parentName
	if parentName == "" {
		parentName = RootName
	}
	if parent, ok := m.BinaryOption(parentName); ok && parent != o {
		o.setParent(parent)
	} else {
		o.initialized = false
		o.parent = nil
		return fmt.Errorf("%w: option %q, parent %q", ErrUnknownParent, o.name, parentName)
	}

	resolve := func(kind string, names [][]string) [][]*Option {
		groups := make([][]*Option, 0, len(names))
		for _, group := range names {
			resolved := make([]*Option, 0, len(group))
			for _, name := range group {
				other, ok := m.Option(name)
				if !ok {
					logger.Warn("Skipping unknown option in relation group.", "option", o.name, "relation", kind, "name", name)
					continue
				}
				resolved = append(resolved, other)
			}
			groups = append(groups, resolved)
		}
		return groups
	}
	o.implied = resolve("implied", o.impliedNames)
	o.excluded = resolve("excluded", o.excludedNames)
	return nil
}

// detectCycles walks the parent relation with the classic three-colour
// depth-first search and reports the first option found on a cycle.
func (m *Model) detectCycles() error {
	permanent := make(map[*Option]bool)
	temporary := make(map[*Option]bool)

	var visit func(o *Option) error
	visit = func(o *Option) error {
		if permanent[o] {
			return nil
		}
		if temporary[o] {
			return fmt.Errorf("%w: involving option %q", ErrHierarchyCycle, o.name)
		}
		temporary[o] = true
		if o.parent != nil {
			if err := visit(o.parent); err != nil {
				return err
			}
		}
		delete(temporary, o)
		permanent[o] = true
		return nil
	}

	for _, o := range m.Options() {
		if err := visit(o); err != nil {
			// Break the cycle so that selection checks terminate.
			for _, opt := range m.Options() {
				if temporary[opt] {
					opt.parent = nil
					opt.initialized = false
				}
			}
			return err
		}
	}
	return nil
}
