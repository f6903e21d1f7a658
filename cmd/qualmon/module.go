package main

import (
	"os"
	"path/filepath"

	"golang.org/x/mod/modfile"
)

// moduleTitle returns the module path of the nearest go.mod at or above
// dir, or "" when there is none or it cannot be parsed.
func moduleTitle(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(abs, "go.mod")
		if data, err := os.ReadFile(path); err == nil {
			return modfile.ModulePath(data)
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return ""
		}
		abs = parent
	}
}
