package quality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/steveyegge/qualmon/internal/learning"
	"github.com/steveyegge/qualmon/internal/syntax"
)

// ErrRead is returned when a file cannot be read. No issue list is stored
// for the path.
var ErrRead = errors.New("reading source file")

// FileError ties a per-file failure to its path.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Result is the outcome of analyzing one file, before it is recorded.
type Result struct {
	Path   string
	Issues []Issue
	Stats  FileStats

	// ParseFailed is set when Issues holds only the synthetic parse issue.
	ParseFailed bool
}

// Event describes one recorded check. Observers receive it after the
// engine state has been updated.
type Event struct {
	Path       string
	CheckID    string
	CheckedAt  time.Time
	Issues     []Issue
	Stats      FileStats
	Confidence float64
	Src        []byte
}

// Engine runs the checkers over files, feeds the learning store and keeps
// the latest issue list per path. It is safe for concurrent use; recording
// into the store is serialized.
type Engine struct {
	mu     sync.RWMutex
	issues map[string][]Issue
	stats  map[string]FileStats

	// record serializes the check-and-record sequence so the store sees
	// files in the order they were submitted.
	record sync.Mutex

	cfg       Config
	checkers  []Checker
	store     *learning.Store
	logger    *slog.Logger
	workers   int
	title     string
	readFile  func(string) ([]byte, error)
	observers []func(Event)
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithCheckers replaces the default checker set.
func WithCheckers(checkers ...Checker) Option {
	return func(e *Engine) { e.checkers = checkers }
}

// WithWorkers bounds how many files CheckFiles analyzes at once.
func WithWorkers(n int) Option {
	return func(e *Engine) { e.workers = n }
}

// WithTitle sets the subtitle printed under the report header.
func WithTitle(title string) Option {
	return func(e *Engine) { e.title = title }
}

// WithObserver registers a callback invoked after every recorded check.
func WithObserver(fn func(Event)) Option {
	return func(e *Engine) { e.observers = append(e.observers, fn) }
}

// WithReadFile overrides how source files are read.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(e *Engine) { e.readFile = fn }
}

// NewEngine creates an engine with the default checkers for cfg. A nil
// store gets an in-memory one.
func NewEngine(cfg Config, store *learning.Store, opts ...Option) *Engine {
	e := &Engine{
		issues:   make(map[string][]Issue),
		stats:    make(map[string]FileStats),
		cfg:      cfg,
		checkers: DefaultCheckers(cfg),
		store:    store,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers:  4,
		readFile: os.ReadFile,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		lc := learning.DefaultConfig()
		lc.Tunables = cfg.Tunables()
		e.store = learning.Open("", lc, e.logger)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

// Store returns the learning store the engine records into.
func (e *Engine) Store() *learning.Store {
	return e.store
}

// Config returns the thresholds the engine was built with.
func (e *Engine) Config() Config {
	return e.cfg
}

// Analyze parses src and runs every checker over it. It touches neither
// the engine state nor the learning store. A file without a package comment
// is not flagged for it when a sibling file of the same package has one.
// A parse failure yields a result holding the single synthetic parse issue
// together with the error.
func (e *Engine) Analyze(path string, src []byte) (Result, error) {
	tree, err := syntax.Parse(path, src)
	if err != nil {
		return Result{
			Path:        path,
			Issues:      []Issue{ParseFailure(err)},
			ParseFailed: true,
		}, err
	}

	if tree.Package.Doc == nil {
		if sibling, ok := syntax.PackageDocFile(path, tree.Package.Name); ok {
			tree.Package.DocFile = sibling
		}
	}

	var issues []Issue
	for _, checker := range e.checkers {
		issues = append(issues, checker.Check(src, tree)...)
	}
	return Result{
		Path:   path,
		Issues: issues,
		Stats:  GatherStats(src, tree),
	}, nil
}

// CheckFile reads, analyzes and records one file. Read failures are
// returned wrapped in ErrRead. Parse failures are stored as a synthetic
// issue and not returned. A learning store that cannot persist is logged.
func (e *Engine) CheckFile(path string) error {
	src, err := e.readFile(path)
	if err != nil {
		e.logger.Warn("skipping unreadable file", "path", path, "error", err)
		return fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}

	result, err := e.Analyze(path, src)
	e.apply(result, src, err)
	return nil
}

// CheckFiles analyzes paths concurrently and then records the results one
// at a time in input order. Per-file failures are collected, never fatal.
// Only cancellation of ctx stops the batch early.
func (e *Engine) CheckFiles(ctx context.Context, paths []string) ([]FileError, error) {
	type analyzed struct {
		src     []byte
		result  Result
		err     error
		readErr error
	}
	results := make([]analyzed, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			src, err := e.readFile(path)
			if err != nil {
				results[i].readErr = err
				return nil
			}
			results[i].src = src
			results[i].result, results[i].err = e.Analyze(path, src)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var failures []FileError
	for i, path := range paths {
		r := results[i]
		if r.readErr != nil {
			e.logger.Warn("skipping unreadable file", "path", path, "error", r.readErr)
			failures = append(failures, FileError{Path: path, Err: fmt.Errorf("%w: %w", ErrRead, r.readErr)})
			continue
		}
		e.apply(r.result, r.src, r.err)
		if r.err != nil {
			failures = append(failures, FileError{Path: path, Err: r.err})
		}
	}
	return failures, nil
}

// apply stores an analysis result and, for parsed files, records it in the
// learning store.
func (e *Engine) apply(result Result, src []byte, parseErr error) {
	e.record.Lock()
	defer e.record.Unlock()

	if parseErr != nil {
		e.logger.Info("parse failure recorded as issue", "path", result.Path, "error", parseErr)
		e.mu.Lock()
		e.issues[result.Path] = result.Issues
		delete(e.stats, result.Path)
		e.mu.Unlock()
		return
	}

	keys := make([]learning.IssueKey, len(result.Issues))
	for i, issue := range result.Issues {
		keys[i] = learning.IssueKey{Severity: issue.Severity.String(), Category: issue.Category}
	}
	rec, err := e.store.Record(result.Path, keys, learning.FileStats(result.Stats), src)
	if err != nil {
		e.logger.Error("learning state not persisted", "path", result.Path, "error", err)
	}

	e.mu.Lock()
	e.issues[result.Path] = result.Issues
	e.stats[result.Path] = result.Stats
	e.mu.Unlock()

	e.logger.Debug("checked file",
		"path", result.Path,
		"issues", len(result.Issues),
		"confidence", rec.Confidence,
	)

	event := Event{
		Path:       result.Path,
		CheckID:    rec.CheckID,
		CheckedAt:  rec.Timestamp,
		Issues:     append([]Issue(nil), result.Issues...),
		Stats:      result.Stats,
		Confidence: rec.Confidence,
		Src:        src,
	}
	for _, observe := range e.observers {
		observe(event)
	}
}

// Issues returns a copy of the latest issue list for path.
func (e *Engine) Issues(path string) ([]Issue, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	issues, ok := e.issues[path]
	return append([]Issue(nil), issues...), ok
}

// Stats returns the latest statistics for path. Parse failures have none.
func (e *Engine) Stats(path string) (FileStats, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	stats, ok := e.stats[path]
	return stats, ok
}

// Paths returns every checked path, sorted.
func (e *Engine) Paths() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	paths := make([]string, 0, len(e.issues))
	for path := range e.issues {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// Predict returns advisory predictions from the learning store.
func (e *Engine) Predict(text []byte) []learning.PredictedIssue {
	return e.store.Predict(text)
}

// Report snapshots the current engine state as a Report.
func (e *Engine) Report() Report {
	e.mu.RLock()
	files := make([]FileReport, 0, len(e.issues))
	for path, issues := range e.issues {
		files = append(files, FileReport{Path: path, Issues: append([]Issue(nil), issues...)})
	}
	e.mu.RUnlock()

	return Report{
		Title:      e.title,
		Files:      files,
		Confidence: e.store.Confidence(),
	}
}

// GenerateReport renders the current state as plain text. It has no side
// effects and returns the same text until another file is checked.
func (e *Engine) GenerateReport() string {
	return e.Report().Render(PlainStyle())
}
