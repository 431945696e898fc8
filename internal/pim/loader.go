package pim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/feature"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// RegionSet is the union of the regions of several documents.
type RegionSet struct {
	regions map[string]*Region
	files   []string
}

// Regions returns every region ordered by id.
func (s *RegionSet) Regions() []*Region {
	out := make([]*Region, 0, len(s.regions))
	for _, id := range s.IDs() {
		out = append(out, s.regions[id])
	}
	return out
}

// IDs returns every region id, sorted.
func (s *RegionSet) IDs() []string {
	ids := make([]string, 0, len(s.regions))
	for id := range s.regions {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Region returns the region with the given id.
func (s *RegionSet) Region(id string) (*Region, bool) {
	r, ok := s.regions[id]
	return r, ok
}

// Len returns the number of regions.
func (s *RegionSet) Len() int { return len(s.regions) }

// Files returns the documents the set was loaded from.
func (s *RegionSet) Files() []string { return slices.Clone(s.files) }

// NFPNames returns the NFP property names used by any region, sorted.
func (s *RegionSet) NFPNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, r := range s.regions {
		for _, name := range r.NFPNames() {
			if _, ok := seen[name]; !ok {
				seen[name] = struct{}{}
				names = append(names, name)
			}
		}
	}
	slices.Sort(names)
	return names
}

// Load reads region documents concurrently and merges them. When m is not
// nil, feature properties naming options m does not know are reported as
// warnings. Region ids must be unique across all documents.
func Load(ctx context.Context, paths []string, m *feature.Model) (*RegionSet, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading regions.", "files", len(paths))

	perFile := make([][]*Region, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			regions, err := loadFile(gctx, path)
			if err != nil {
				return err
			}
			perFile[i] = regions
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := &RegionSet{regions: make(map[string]*Region), files: slices.Clone(paths)}
	for i, regions := range perFile {
		for _, r := range regions {
			if _, exists := set.regions[r.ID]; exists {
				return nil, fmt.Errorf("%w: %s: region %s already exists", ErrMalformed, paths[i], r.ID)
			}
			set.regions[r.ID] = r
		}
	}

	if m != nil {
		for _, r := range set.Regions() {
			for _, name := range r.Features() {
				if !m.HasOption(name) {
					logger.Warn("Feature of region not present in variability model.", "feature", name, "region", r.ID)
				}
			}
		}
	}

	logger.Info("Regions loaded.", "regions", set.Len(), "files", len(paths), "nfps", set.NFPNames())
	return set, nil
}

func loadFile(ctx context.Context, path string) ([]*Region, error) {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regions %s: %w", path, err)
	}
	regions, err := Decode(ctx, data, isYAML(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load regions %s: %w", path, err)
	}
	logger.Debug("Region file loaded.", "path", path, "regions", len(regions))
	return regions, nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// Decode parses one region document.
func Decode(ctx context.Context, data []byte, asYAML bool) ([]*Region, error) {
	logger := ctxlog.FromContext(ctx)

	var doc regionsDocument
	var err error
	if asYAML {
		err = yaml.Unmarshal(data, &doc)
	} else {
		err = json.NewDecoder(bytes.NewReader(data)).Decode(&doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if doc.Regions == nil {
		return nil, fmt.Errorf("%w: missing regions array", ErrMalformed)
	}

	seen := make(map[string]struct{})
	regions := make([]*Region, 0, len(*doc.Regions))
	for _, entry := range *doc.Regions {
		r, dupes, err := newRegion(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
		if _, exists := seen[r.ID]; exists {
			return nil, fmt.Errorf("%w: region %s already exists", ErrMalformed, r.ID)
		}
		seen[r.ID] = struct{}{}
		if dupes > 0 {
			logger.Warn("Removed duplicate nodes of region.", "region", r.ID, "location", r.Location, "duplicates", dupes)
		}
		if len(r.nfps) == 0 && len(r.features) == 0 {
			logger.Warn("Region has no properties.", "region", r.ID)
		}
		regions = append(regions, r)
	}
	return regions, nil
}
