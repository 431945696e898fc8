package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/featuregrid/internal/ctxlog"
	"github.com/vk/featuregrid/internal/fsutil"
	"github.com/vk/featuregrid/internal/modeldef"
)

// Loader is the HCL-specific implementation of the modeldef.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL variability model loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load reads a single .hcl file, or every .hcl file below a directory, and
// merges all model blocks into one Definition. The first model block names
// the model.
func (l *Loader) Load(ctx context.Context, path string) (*modeldef.Definition, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path", path)

	hclFiles, err := l.findAllHCLFiles(path)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("no .hcl files found at %s", path)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	def := &modeldef.Definition{}
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, m := range root.Models {
			if def.Name == "" {
				def.Name = m.Name
			}
			if err := l.translateModel(ctx, m, def); err != nil {
				return nil, fmt.Errorf("in file %s: %w", file, err)
			}
		}
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	logger.Debug("HCL loading complete.", "model", def.Name, "binary", len(def.Binary), "numeric", len(def.Numeric), "constraints", len(def.Constraints))
	return def, nil
}

// findAllHCLFiles returns path itself when it is an .hcl file, or every .hcl
// file found by walking it when it is a directory.
func (l *Loader) findAllHCLFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}
	if !info.IsDir() {
		if filepath.Ext(path) != ".hcl" {
			return nil, fmt.Errorf("not an .hcl file: %s", path)
		}
		return []string{path}, nil
	}
	return fsutil.FindFilesByExtension(path, ".hcl")
}
