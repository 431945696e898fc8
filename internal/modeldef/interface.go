package modeldef

import "context"

// Loader is the interface for a format-specific variability model loader.
type Loader interface {
	// Load reads the declaration stored at path and translates it into the
	// format-agnostic Definition.
	Load(ctx context.Context, path string) (*Definition, error)
}
