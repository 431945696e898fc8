// Package project loads the HCL project file: the global application
// configuration naming the variability model, the influence model, the region
// files, the feature order of the region weight arrays and the configurations
// to evaluate.
package project

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/featuregrid/internal/ctxlog"
)

// Project is the decoded project file. Relative paths are resolved against
// the directory of the project file.
type Project struct {
	Name           string
	Dir            string
	Model          string
	InfluenceModel string
	Regions        []string
	Features       []string
	OnlyPositive   bool
	Configurations []string
	SolveTimeout   time.Duration
	PublishURL     string
}

type fileRoot struct {
	Project *projectBlock `hcl:"project,block"`
	Remain  hcl.Body      `hcl:",remain"`
}

type projectBlock struct {
	Name           string   `hcl:"name,label"`
	Model          string   `hcl:"model"`
	InfluenceModel *string  `hcl:"influence_model,optional"`
	Regions        []string `hcl:"regions,optional"`
	Features       []string `hcl:"features,optional"`
	OnlyPositive   *bool    `hcl:"only_positive,optional"`
	Configurations []string `hcl:"configurations,optional"`
	SolveTimeout   *string  `hcl:"solve_timeout,optional"`
	PublishURL     *string  `hcl:"publish_url,optional"`
}

// Load reads and decodes the project file at path.
func Load(ctx context.Context, path string) (*Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading project file.", "path", path)

	file, diags := hclparse.NewParser().ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse project file %s: %w", path, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode project file %s: %w", path, diags)
	}
	if root.Project == nil {
		return nil, fmt.Errorf("project file %s has no project block", path)
	}

	b := root.Project
	p := &Project{
		Name:     b.Name,
		Dir:      filepath.Dir(path),
		Features: b.Features,
	}
	p.Model = p.Resolve(b.Model)
	if b.InfluenceModel != nil {
		p.InfluenceModel = p.Resolve(*b.InfluenceModel)
	}
	for _, r := range b.Regions {
		p.Regions = append(p.Regions, p.Resolve(r))
	}
	for _, c := range b.Configurations {
		p.Configurations = append(p.Configurations, p.Resolve(c))
	}
	if b.OnlyPositive != nil {
		p.OnlyPositive = *b.OnlyPositive
	}
	if b.PublishURL != nil {
		p.PublishURL = *b.PublishURL
	}
	if b.SolveTimeout != nil {
		d, err := time.ParseDuration(*b.SolveTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid solve_timeout in project file %s: %w", path, err)
		}
		p.SolveTimeout = d
	}

	logger.Debug("Project file loaded.", "project", p.Name, "regions", len(p.Regions), "features", len(p.Features), "configurations", len(p.Configurations))
	return p, nil
}

// Resolve makes a project-relative path absolute with respect to Dir.
// Empty and absolute paths are returned unchanged.
func (p *Project) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.Dir, path)
}
