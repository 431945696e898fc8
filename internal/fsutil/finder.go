// Package fsutil provides file system utility functions.
package fsutil

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// RegionFilePatterns are the names region documents follow when a directory
// is given instead of a pattern.
var RegionFilePatterns = []string{"regions_*.json", "regions_*.yaml", "regions_*.yml"}

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	if extension == "" {
		panic("extension must not be empty")
	}

	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), extension) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// ExpandPatterns resolves glob patterns to a sorted, duplicate-free list of
// files. A pattern naming a directory matches the files directly inside it
// that follow dirPatterns. A pattern without glob characters must exist.
func ExpandPatterns(patterns []string, dirPatterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			files = append(files, p)
		}
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			for _, dp := range dirPatterns {
				matches, err := filepath.Glob(filepath.Join(pattern, dp))
				if err != nil {
					return nil, fmt.Errorf("invalid pattern %q: %w", dp, err)
				}
				for _, m := range matches {
					add(m)
				}
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		if len(matches) == 0 && !hasMeta(pattern) {
			return nil, fmt.Errorf("error accessing path %s: %w", pattern, fs.ErrNotExist)
		}
		for _, m := range matches {
			if info, err := os.Stat(m); err == nil && !info.IsDir() {
				add(m)
			}
		}
	}

	slices.Sort(files)
	return files, nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}
