package syntax

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WalkOptions configures which files CollectFiles returns.
type WalkOptions struct {
	// ExcludeDirs specifies directory names to skip (e.g., "vendor", ".git")
	ExcludeDirs []string

	// IncludeTests includes *_test.go files (default: false)
	IncludeTests bool

	// IncludeGenerated includes *_generated.go, *.pb.go and *.gen.go files (default: false)
	IncludeGenerated bool
}

// DefaultWalkOptions returns walk options with common exclusions.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{
		ExcludeDirs: []string{"vendor", ".git", "node_modules", "testdata"},
	}
}

// CollectFiles expands the given paths into a sorted, de-duplicated list of
// Go source files. Files are returned as given; directories are walked.
func CollectFiles(paths []string, opts WalkOptions) ([]string, error) {
	seen := make(map[string]struct{})
	var files []string

	add := func(path string) {
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		files = append(files, path)
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", root, err)
		}

		if !info.IsDir() {
			add(root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				if path != root && excluded(d.Name(), opts.ExcludeDirs) {
					return filepath.SkipDir
				}
				return nil
			}

			if IsSourceFile(path, opts) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking %s: %w", root, err)
		}
	}

	sort.Strings(files)
	return files, nil
}

// IsSourceFile reports whether path is a Go file that the walk options accept.
func IsSourceFile(path string, opts WalkOptions) bool {
	if !strings.HasSuffix(path, ".go") {
		return false
	}

	if !opts.IncludeTests && strings.HasSuffix(path, "_test.go") {
		return false
	}

	if !opts.IncludeGenerated {
		base := filepath.Base(path)
		if strings.Contains(base, "_generated.go") ||
			strings.HasSuffix(base, ".pb.go") ||
			strings.HasSuffix(base, ".gen.go") {
			return false
		}
	}

	return true
}

func excluded(name string, exclude []string) bool {
	for _, e := range exclude {
		if name == e {
			return true
		}
	}
	return false
}
