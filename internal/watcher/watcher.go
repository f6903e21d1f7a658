// Package watcher re-checks Go files as they change on disk.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/steveyegge/qualmon/internal/syntax"
)

// DefaultDebounce is how long a file must stay quiet before it is checked.
const DefaultDebounce = 300 * time.Millisecond

// CheckFunc is invoked once per settled change.
type CheckFunc func(path string)

// Config configures a Watcher.
type Config struct {
	// Roots are the directories to watch recursively
	Roots []string

	// Debounce delays checks until writes settle. Default: DefaultDebounce
	Debounce time.Duration

	Walk syntax.WalkOptions
}

// Watcher watches directory trees and calls a CheckFunc for changed Go files.
type Watcher struct {
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool

	config  Config
	check   CheckFunc
	logger  *slog.Logger
	fsw     *fsnotify.Watcher
	pending map[string]time.Time
}

// New validates cfg and returns a stopped watcher.
func New(cfg Config, check CheckFunc, logger *slog.Logger) (*Watcher, error) {
	if check == nil {
		return nil, errors.New("check function is required")
	}
	if len(cfg.Roots) == 0 {
		return nil, errors.New("at least one root is required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Watcher{
		config:  cfg,
		check:   check,
		logger:  logger,
		pending: make(map[string]time.Time),
	}, nil
}

// Start registers the roots and begins the event loop.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("watcher already running")
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	for _, root := range w.config.Roots {
		if err := w.addTree(fsw, root); err != nil {
			_ = fsw.Close()
			return err
		}
	}

	w.fsw = fsw
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.running = true

	w.wg.Add(1)
	go w.loop()

	w.logger.Info("watcher started", "roots", w.config.Roots, "debounce", w.config.Debounce)
	return nil
}

// Stop ends the event loop and releases the OS watches.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	w.cancel()
	w.running = false
	w.wg.Wait()
	_ = w.fsw.Close()
	w.logger.Info("watcher stopped")
}

// Running reports whether the event loop is active.
func (w *Watcher) Running() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *Watcher) addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", root, err)
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && slices.Contains(w.config.Walk.ExcludeDirs, d.Name()) {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	tick := time.NewTicker(w.config.Debounce / 2)
	defer tick.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)

		case now := <-tick.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(w.fsw, event.Name); err != nil {
				w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return
		}
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	if !syntax.IsSourceFile(event.Name, w.config.Walk) {
		return
	}
	w.pending[event.Name] = time.Now()
}

// flush checks every pending file that has been quiet for the debounce window.
func (w *Watcher) flush(now time.Time) {
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.config.Debounce {
			ready = append(ready, path)
		}
	}
	slices.Sort(ready)
	for _, path := range ready {
		delete(w.pending, path)
		w.logger.Debug("file changed", "path", path)
		w.check(path)
	}
}
