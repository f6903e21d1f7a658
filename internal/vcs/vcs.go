// Package vcs finds the files a working copy has changed, so a check can be
// limited to them. It supports git and jujutsu (jj) with automatic detection.
package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrNoVCSFound is returned when no supported VCS is detected.
	ErrNoVCSFound = errors.New("no supported VCS found")
)

// VCSType represents the type of version control system.
type VCSType string

const (
	// VCSTypeGit represents git version control.
	VCSTypeGit VCSType = "git"

	// VCSTypeJJ represents jujutsu version control.
	VCSTypeJJ VCSType = "jj"
)

// DetectVCS attempts to detect the VCS type in the given directory.
// Jujutsu is checked first since a colocated jj repo also has a .git dir.
func DetectVCS(ctx context.Context, dir string) (VCSType, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	if isJJRepo(ctx, dir) {
		return VCSTypeJJ, nil
	}
	if isGitRepo(ctx, dir) {
		return VCSTypeGit, nil
	}
	return "", ErrNoVCSFound
}

// isJJRepo checks if the directory is a jujutsu repository.
func isJJRepo(ctx context.Context, dir string) bool {
	if info, err := os.Stat(filepath.Join(dir, ".jj")); err == nil && info.IsDir() {
		return true
	}
	cmd := exec.CommandContext(ctx, "jj", "root")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// isGitRepo checks if the directory is a git repository.
func isGitRepo(ctx context.Context, dir string) bool {
	gitDir := filepath.Join(dir, ".git")
	if info, err := os.Stat(gitDir); err == nil && (info.IsDir() || info.Mode().IsRegular()) {
		return true
	}
	cmd := exec.CommandContext(ctx, "git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// ChangedFiles returns the files under dir that differ from the last
// commit, including untracked files for git. Paths are joined to dir,
// sorted and limited to files that still exist.
func ChangedFiles(ctx context.Context, dir string) ([]string, error) {
	kind, err := DetectVCS(ctx, dir)
	if err != nil {
		return nil, err
	}

	var lists [][]string
	switch kind {
	case VCSTypeJJ:
		out, err := run(ctx, dir, "jj", "diff", "--name-only")
		if err != nil {
			return nil, err
		}
		lists = append(lists, out)
	case VCSTypeGit:
		// --relative keeps paths relative to dir rather than the repo root
		diff, err := run(ctx, dir, "git", "diff", "--name-only", "--relative", "HEAD")
		if err != nil {
			// No HEAD yet: everything is untracked
			diff = nil
		}
		untracked, err := run(ctx, dir, "git", "ls-files", "--others", "--exclude-standard")
		if err != nil {
			return nil, err
		}
		lists = append(lists, diff, untracked)
	}

	return existing(dir, lists...), nil
}

func run(ctx context.Context, dir, name string, args ...string) ([]string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	var lines []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}

// existing merges the relative path lists, drops deleted files and
// returns the result joined to dir.
func existing(dir string, lists ...[]string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, list := range lists {
		for _, rel := range list {
			path := filepath.Join(dir, filepath.FromSlash(rel))
			if _, ok := seen[path]; ok {
				continue
			}
			seen[path] = struct{}{}
			if info, err := os.Stat(path); err != nil || info.IsDir() {
				continue
			}
			files = append(files, path)
		}
	}
	sort.Strings(files)
	return files
}
