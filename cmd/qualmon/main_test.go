package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/qualmon/internal/enrich"
	"github.com/steveyegge/qualmon/internal/history"
	"github.com/steveyegge/qualmon/internal/quality"
)

func TestParseFailOn(t *testing.T) {
	tests := []struct {
		in      string
		want    quality.Severity
		enabled bool
		wantErr bool
	}{
		{"critical", quality.SeverityCritical, true, false},
		{"IMPORTANT", quality.SeverityImportant, true, false},
		{" style ", quality.SeverityStyle, true, false},
		{"none", 0, false, false},
		{"error", 0, false, true},
		{"loud", 0, false, true},
	}
	for _, tt := range tests {
		got, enabled, err := parseFailOn(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.enabled, enabled, tt.in)
		if enabled {
			assert.Equal(t, tt.want, got, tt.in)
		}
	}
}

func TestExceeds(t *testing.T) {
	report := quality.Report{Files: []quality.FileReport{
		{Path: "a.go", Issues: []quality.Issue{{Severity: quality.SeverityImportant}}},
	}}
	assert.False(t, exceeds(report, quality.SeverityCritical))
	assert.True(t, exceeds(report, quality.SeverityImportant))
	assert.True(t, exceeds(report, quality.SeverityStyle))

	parseFailure := quality.Report{Files: []quality.FileReport{
		{Path: "b.go", Issues: []quality.Issue{{Severity: quality.SeverityError}}},
	}}
	assert.True(t, exceeds(parseFailure, quality.SeverityCritical), "ERROR is above every threshold")
	assert.False(t, exceeds(quality.Report{}, quality.SeverityStyle))
}

func TestExpandPaths(t *testing.T) {
	assert.Equal(t, []string{"."}, expandPaths(nil))
	assert.Equal(t, []string{".", "internal", "."}, expandPaths([]string{"./...", "internal/...", "..."}))
	assert.Equal(t, []string{"main.go"}, expandPaths([]string{"main.go"}))
}

func TestModuleTitle(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "go.mod"), []byte("module example.com/demo\n\ngo 1.25\n"), 0644))
	sub := filepath.Join(root, "internal", "pkg")
	require.NoError(t, os.MkdirAll(sub, 0755))

	assert.Equal(t, "example.com/demo", moduleTitle(sub))
	assert.Equal(t, "example.com/demo", moduleTitle(root))
}

func TestParseLevel(t *testing.T) {
	level, err := parseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)

	_, err = parseLevel("chatty")
	assert.Error(t, err)
}

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "hack.go"), []byte("package src\n\n// hack\nvar X = 1\n"), 0644))

	state := filepath.Join(dir, "state.json")
	db := filepath.Join(dir, "history.db")

	rootCmd.SetArgs([]string{"check", "--no-color", "--state", state, "--history-db", db, "--fail-on", "none", src})
	require.NoError(t, rootCmd.Execute())

	rootCmd.SetArgs([]string{"check", "--no-color", "--state", state, "--history-db", db, "--fail-on", "important", src})
	assert.ErrorIs(t, rootCmd.Execute(), errIssuesFound)

	_, err := os.Stat(state)
	assert.NoError(t, err, "learning state saved")

	log, err := history.Open(db)
	require.NoError(t, err)
	defer func() { _ = log.Close() }()
	runs, err := log.Trend(context.Background(), filepath.Join(src, "hack.go"), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

type cannedCompleter struct{ reply string }

func (c cannedCompleter) Complete(context.Context, string, int, string) (string, error) {
	return c.reply, nil
}

func TestEnrichReportLeavesFailOnInputAlone(t *testing.T) {
	logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	path := filepath.Join(t.TempDir(), "a.go")
	require.NoError(t, os.WriteFile(path, []byte("package a\n"), 0644))

	ecfg := enrich.DefaultConfig()
	ecfg.RequestsPerSecond = 0
	enricher := enrich.NewWithCompleter(ecfg, cannedCompleter{
		reply: `{"findings": [{"severity": "CRITICAL", "message": "unbounded retry loop"}]}`,
	}, nil)

	report := quality.Report{Files: []quality.FileReport{
		{Path: path, Issues: []quality.Issue{{Severity: quality.SeverityStyle, Message: "brief"}}},
	}}
	shown, err := enrichReport(context.Background(), enricher, report)
	require.NoError(t, err)

	require.Len(t, shown.Files[0].Issues, 2)
	assert.Equal(t, enrich.Category, shown.Files[0].Issues[1].Category)
	assert.Len(t, report.Files[0].Issues, 1, "input report unchanged")
	assert.False(t, exceeds(report, quality.SeverityCritical))
	assert.True(t, exceeds(shown, quality.SeverityCritical))
}
