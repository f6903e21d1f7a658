package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/qualmon/internal/syntax"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) check(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(Config{Roots: []string{"."}}, nil, nil)
	assert.Error(t, err)

	_, err = New(Config{}, func(string) {}, nil)
	assert.Error(t, err)

	w, err := New(Config{Roots: []string{"."}}, func(string) {}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.config.Debounce)
}

func TestWatcher_ChecksChangedGoFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(Config{
		Roots:    []string{dir},
		Debounce: 20 * time.Millisecond,
		Walk:     syntax.DefaultWalkOptions(),
	}, rec.check, nil)
	require.NoError(t, err)

	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()
	assert.True(t, w.Running())
	assert.Error(t, w.Start(context.Background()), "second start fails")

	goFile := filepath.Join(dir, "a.go")
	require.NoError(t, os.WriteFile(goFile, []byte("package a\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_test.go"), []byte("package a\n"), 0644))

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) > 0
	}, 2*time.Second, 10*time.Millisecond)

	// Give stray events time to arrive before asserting nothing else fired.
	time.Sleep(100 * time.Millisecond)
	for _, path := range rec.snapshot() {
		assert.Equal(t, goFile, path)
	}
}

func TestWatcher_WatchesNewDirectories(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	w, err := New(Config{Roots: []string{dir}, Debounce: 20 * time.Millisecond}, rec.check, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	sub := filepath.Join(dir, "pkg")
	require.NoError(t, os.Mkdir(sub, 0755))
	// Wait for the loop to register the new directory.
	time.Sleep(100 * time.Millisecond)

	goFile := filepath.Join(sub, "b.go")
	require.NoError(t, os.WriteFile(goFile, []byte("package pkg\n"), 0644))

	require.Eventually(t, func() bool {
		for _, path := range rec.snapshot() {
			if path == goFile {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(Config{Roots: []string{t.TempDir()}}, func(string) {}, nil)
	require.NoError(t, err)
	w.Stop()

	require.NoError(t, w.Start(context.Background()))
	w.Stop()
	w.Stop()
	assert.False(t, w.Running())
}

func TestFlush_WaitsForQuietPeriod(t *testing.T) {
	rec := &recorder{}
	w, err := New(Config{Roots: []string{"."}, Debounce: time.Second}, rec.check, nil)
	require.NoError(t, err)

	now := time.Now()
	w.pending["b.go"] = now
	w.pending["a.go"] = now.Add(-2 * time.Second)
	w.pending["c.go"] = now.Add(-3 * time.Second)

	w.flush(now)
	assert.Equal(t, []string{"a.go", "c.go"}, rec.snapshot())
	assert.Contains(t, w.pending, "b.go")
}
