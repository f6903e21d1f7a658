package learning

import (
	"fmt"
	"time"
)

// Config tunes how the store learns.
type Config struct {
	// IssueTolerance is the largest issue count for which a file's lines
	// still count as clean patterns. Default: 1
	IssueTolerance int `yaml:"issue_tolerance_for_clean_pattern"`

	// PatternMinLength is the shortest trimmed line (or joined line pair)
	// stored as a pattern. Default: 5
	PatternMinLength int `yaml:"pattern_min_length"`

	// HighConfidenceCutoff is the confidence above which threshold changes
	// are proposed. Default: 0.8
	HighConfidenceCutoff float64 `yaml:"high_confidence_cutoff"`

	// PredictionMinCount is the smallest issue-pattern count Predict reports.
	// Default: 3
	PredictionMinCount int `yaml:"prediction_min_count"`

	// MaxHistoryPerFile caps effectiveness records kept per path, dropping
	// the oldest. Set to 0 for unlimited.
	// Default: 0
	MaxHistoryPerFile int `yaml:"max_history_per_file"`

	// Tunables are the thresholds adjustments are computed for. They carry
	// the current checker configuration and are not read from YAML.
	Tunables []Tunable `yaml:"-"`
}

// DefaultConfig returns the default learning configuration without tunables.
func DefaultConfig() Config {
	return Config{
		IssueTolerance:       1,
		PatternMinLength:     5,
		HighConfidenceCutoff: 0.8,
		PredictionMinCount:   3,
		MaxHistoryPerFile:    0,
	}
}

// Validate checks if the configuration has valid values.
func (c Config) Validate() error {
	if c.IssueTolerance < 0 {
		return fmt.Errorf("issue_tolerance_for_clean_pattern cannot be negative (got %d)", c.IssueTolerance)
	}
	if c.PatternMinLength < 1 {
		return fmt.Errorf("pattern_min_length must be at least 1 (got %d)", c.PatternMinLength)
	}
	if c.HighConfidenceCutoff < 0 || c.HighConfidenceCutoff > 1 {
		return fmt.Errorf("high_confidence_cutoff must be between 0 and 1 (got %g)", c.HighConfidenceCutoff)
	}
	if c.PredictionMinCount < 1 {
		return fmt.Errorf("prediction_min_count must be at least 1 (got %d)", c.PredictionMinCount)
	}
	if c.MaxHistoryPerFile < 0 {
		return fmt.Errorf("max_history_per_file cannot be negative (got %d)", c.MaxHistoryPerFile)
	}
	return nil
}

// Tunable is a checker threshold the store may propose to move.
type Tunable struct {
	Name    string
	Current float64

	// Delta is added to Current when confidence is high. Floor bounds the
	// result from below unless Current is already lower.
	Delta float64
	Floor float64
}

// IssueKey is the part of an issue the store learns from.
type IssueKey struct {
	Severity string
	Category string
}

// String returns the "SEVERITY:category" pattern key.
func (k IssueKey) String() string {
	return k.Severity + ":" + k.Category
}

// FileStats mirrors the per-file counts gathered by the checkers.
type FileStats struct {
	LinesOfCode      int `json:"lines_of_code"`
	FunctionCount    int `json:"function_count"`
	ClassCount       int `json:"class_count"`
	DocumentedCount  int `json:"documented_count"`
	CommentLineCount int `json:"comment_line_count"`
}

// State is the persisted learning document.
type State struct {
	Patterns             map[string]int                   `json:"successful_patterns"`
	IssuePatterns        map[string]int                   `json:"issue_patterns"`
	Effectiveness        map[string][]EffectivenessRecord `json:"effectiveness"`
	ThresholdAdjustments []ThresholdAdjustment            `json:"threshold_adjustments"`
}

// EffectivenessRecord is appended every time a path is recorded.
type EffectivenessRecord struct {
	CheckID     string    `json:"check_id"`
	Timestamp   time.Time `json:"timestamp"`
	IssuesFound int       `json:"issues_found"`
	Stats       FileStats `json:"stats"`
	Confidence  float64   `json:"learning_confidence"`
}

// ThresholdAdjustment is a proposed value for one tunable. It is advisory;
// the checkers never apply it on their own.
type ThresholdAdjustment struct {
	Parameter  string  `json:"parameter"`
	Current    float64 `json:"current"`
	Suggested  float64 `json:"suggested"`
	Confidence float64 `json:"confidence"`
}

// Changed reports whether the suggestion differs from the current value.
func (a ThresholdAdjustment) Changed() bool {
	return a.Suggested != a.Current
}

// PredictedIssue is an advisory forecast drawn from issue-pattern history.
type PredictedIssue struct {
	Severity   string
	Category   string
	Count      int
	Confidence float64
	Message    string
}

func newState() *State {
	return &State{
		Patterns:             make(map[string]int),
		IssuePatterns:        make(map[string]int),
		Effectiveness:        make(map[string][]EffectivenessRecord),
		ThresholdAdjustments: []ThresholdAdjustment{},
	}
}

// normalize replaces nil collections left by a partial document.
func (s *State) normalize() {
	if s.Patterns == nil {
		s.Patterns = make(map[string]int)
	}
	if s.IssuePatterns == nil {
		s.IssuePatterns = make(map[string]int)
	}
	if s.Effectiveness == nil {
		s.Effectiveness = make(map[string][]EffectivenessRecord)
	}
	if s.ThresholdAdjustments == nil {
		s.ThresholdAdjustments = []ThresholdAdjustment{}
	}
}

func (s *State) clone() State {
	out := State{
		Patterns:             make(map[string]int, len(s.Patterns)),
		IssuePatterns:        make(map[string]int, len(s.IssuePatterns)),
		Effectiveness:        make(map[string][]EffectivenessRecord, len(s.Effectiveness)),
		ThresholdAdjustments: append([]ThresholdAdjustment{}, s.ThresholdAdjustments...),
	}
	for k, v := range s.Patterns {
		out.Patterns[k] = v
	}
	for k, v := range s.IssuePatterns {
		out.IssuePatterns[k] = v
	}
	for k, v := range s.Effectiveness {
		out.Effectiveness[k] = append([]EffectivenessRecord{}, v...)
	}
	return out
}
