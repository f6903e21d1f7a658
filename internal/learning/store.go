package learning

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultStatePath is where the learning document lives unless configured.
const DefaultStatePath = "monitor_data/learning_history.json"

// ErrPersist is returned when the state could not be written to disk. The
// in-memory state has already been updated when it is returned.
var ErrPersist = errors.New("persisting learning state")

// Store accumulates clean-code patterns, issue patterns and per-file
// effectiveness history, and derives a confidence value and threshold
// suggestions from them. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	state  *State
	path   string
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for effectiveness timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how check IDs are generated.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// Open loads the state at path. It never fails: a missing file starts empty
// and an unreadable or corrupt file is logged and replaced on the next save.
// An empty path keeps the state in memory only.
func Open(path string, cfg Config, logger *slog.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{
		state:  newState(),
		path:   path,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if path == "" {
		return s
	}
	if err := s.loadState(); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.logger.Debug("no learning state yet", "path", path)
		} else {
			s.logger.Warn("starting with empty learning state", "path", path, "error", err)
		}
		s.state = newState()
	}
	return s
}

// Path returns the state file location, empty for in-memory stores.
func (s *Store) Path() string {
	return s.path
}

// Record learns from one checked file and persists the result.
//
// A file with at most IssueTolerance issues contributes its lines as clean
// patterns. Every issue increments its "SEVERITY:category" count. The new
// confidence is stored with an effectiveness record for path, threshold
// adjustments are recomputed, and the whole state is saved. A save failure
// is returned wrapped in ErrPersist; the record is kept in memory either way.
func (s *Store) Record(path string, issues []IssueKey, stats FileStats, text []byte) (EffectivenessRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(issues) <= s.cfg.IssueTolerance {
		s.learnPatterns(text)
	}
	for _, issue := range issues {
		s.state.IssuePatterns[issue.String()]++
	}

	confidence := s.confidenceLocked()
	record := EffectivenessRecord{
		CheckID:     s.newID(),
		Timestamp:   s.now().UTC(),
		IssuesFound: len(issues),
		Stats:       stats,
		Confidence:  confidence,
	}
	history := append(s.state.Effectiveness[path], record)
	if limit := s.cfg.MaxHistoryPerFile; limit > 0 && len(history) > limit {
		history = append([]EffectivenessRecord(nil), history[len(history)-limit:]...)
	}
	s.state.Effectiveness[path] = history

	s.state.ThresholdAdjustments = s.adjustments(confidence)

	if err := s.saveState(); err != nil {
		s.logger.Warn("learning state not saved", "path", s.path, "error", err)
		return record, err
	}
	return record, nil
}

// learnPatterns counts every long enough trimmed line and every adjacent
// pair of non-empty trimmed lines.
func (s *Store) learnPatterns(text []byte) {
	prev := ""
	for _, line := range strings.Split(string(text), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if len(trimmed) >= s.cfg.PatternMinLength {
			s.state.Patterns[trimmed]++
		}
		if prev != "" {
			if pair := prev + "\n" + trimmed; len(pair) >= s.cfg.PatternMinLength {
				s.state.Patterns[pair]++
			}
		}
		prev = trimmed
	}
}

// adjustments rebuilds the suggestion list from scratch.
func (s *Store) adjustments(confidence float64) []ThresholdAdjustment {
	out := make([]ThresholdAdjustment, 0, len(s.cfg.Tunables))
	for _, t := range s.cfg.Tunables {
		suggested := t.Current
		if confidence > s.cfg.HighConfidenceCutoff {
			// A value already under the floor is left where it is.
			floor := math.Min(t.Floor, t.Current)
			suggested = roundTo(math.Max(t.Current+t.Delta, floor), 3)
		}
		out = append(out, ThresholdAdjustment{
			Parameter:  t.Name,
			Current:    t.Current,
			Suggested:  suggested,
			Confidence: confidence,
		})
	}
	return out
}

// Confidence returns |patterns| / (|patterns| + |issue patterns|), or 0
// before anything has been learned.
func (s *Store) Confidence() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.confidenceLocked()
}

func (s *Store) confidenceLocked() float64 {
	clean := len(s.state.Patterns)
	total := clean + len(s.state.IssuePatterns)
	if total == 0 {
		return 0
	}
	return float64(clean) / float64(total)
}

// Predict forecasts likely issues from issue-pattern counts. Only keys seen
// at least PredictionMinCount times are returned, ordered by confidence and
// then key. The text is not inspected beyond the emptiness check.
func (s *Store) Predict(text []byte) []PredictedIssue {
	if len(strings.TrimSpace(string(text))) == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, count := range s.state.IssuePatterns {
		total += count
	}
	if total == 0 {
		return nil
	}

	var predictions []PredictedIssue
	for key, count := range s.state.IssuePatterns {
		if count < s.cfg.PredictionMinCount {
			continue
		}
		severity, category, ok := strings.Cut(key, ":")
		if !ok {
			continue
		}
		predictions = append(predictions, PredictedIssue{
			Severity:   severity,
			Category:   category,
			Count:      count,
			Confidence: float64(count) / float64(total),
			Message:    fmt.Sprintf("Potential %s issue (seen %d times)", category, count),
		})
	}

	sort.Slice(predictions, func(i, j int) bool {
		if predictions[i].Confidence != predictions[j].Confidence {
			return predictions[i].Confidence > predictions[j].Confidence
		}
		return predictions[i].Severity+":"+predictions[i].Category <
			predictions[j].Severity+":"+predictions[j].Category
	})
	return predictions
}

// Familiarity returns the share of the text's pattern-eligible lines that
// are already known clean patterns, 0 when none are eligible.
func (s *Store) Familiarity(text []byte) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	eligible, known := 0, 0
	for _, line := range strings.Split(string(text), "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) < s.cfg.PatternMinLength {
			continue
		}
		eligible++
		if s.state.Patterns[trimmed] > 0 {
			known++
		}
	}
	if eligible == 0 {
		return 0
	}
	return float64(known) / float64(eligible)
}

// History returns a copy of the effectiveness records for path, oldest first.
func (s *Store) History(path string) []EffectivenessRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]EffectivenessRecord(nil), s.state.Effectiveness[path]...)
}

// Adjustments returns a copy of the current threshold suggestions.
func (s *Store) Adjustments() []ThresholdAdjustment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ThresholdAdjustment(nil), s.state.ThresholdAdjustments...)
}

// Snapshot returns a deep copy of the whole state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// loadState loads learning state from disk.
func (s *Store) loadState() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	state := newState()
	if err := json.Unmarshal(data, state); err != nil {
		return fmt.Errorf("parsing state file: %w", err)
	}
	state.normalize()
	s.state = state
	return nil
}

// saveState persists learning state to disk.
func (s *Store) saveState() error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: serializing state: %w", ErrPersist, err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("%w: creating state directory: %w", ErrPersist, err)
	}

	// Write atomically using temp file + rename
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("%w: writing state file: %w", ErrPersist, err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath) // Clean up on error (best effort)
		return fmt.Errorf("%w: committing state file: %w", ErrPersist, err)
	}
	return nil
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
