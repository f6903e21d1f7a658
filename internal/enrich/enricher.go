package enrich

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/steveyegge/qualmon/internal/quality"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Category marks issues produced by enrichment.
const Category = "AI Review"

// ErrNoAPIKey is returned by New when no API key is available.
var ErrNoAPIKey = errors.New("ANTHROPIC_API_KEY not set")

// Config configures the enricher.
type Config struct {
	// Model is the Anthropic model name. Default: DefaultModel
	Model string `yaml:"model"`

	// MaxTokens caps each response. Default: 2048
	MaxTokens int `yaml:"max_tokens"`

	// RequestsPerSecond paces calls to the API. Default: 1
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// MaxConcurrent bounds in-flight calls (0 = unlimited). Default: 3
	MaxConcurrent int `yaml:"max_concurrent"`

	// MaxSourceBytes truncates the source sent with each prompt. Default: 24000
	MaxSourceBytes int `yaml:"max_source_bytes"`

	Retry RetryConfig `yaml:"retry"`
}

// DefaultConfig returns the default enrichment configuration
func DefaultConfig() Config {
	return Config{
		Model:             DefaultModel,
		MaxTokens:         2048,
		RequestsPerSecond: 1,
		MaxConcurrent:     3,
		MaxSourceBytes:    24000,
		Retry:             DefaultRetryConfig(),
	}
}

// Completer sends one prompt and returns the text of the reply.
type Completer interface {
	Complete(ctx context.Context, model string, maxTokens int, prompt string) (string, error)
}

// anthropicCompleter calls the Anthropic Messages API.
type anthropicCompleter struct {
	client anthropic.Client
}

func (c *anthropicCompleter) Complete(ctx context.Context, model string, maxTokens int, prompt string) (string, error) {
	resp, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// Enricher asks a language model for extra review findings on files the
// engine has already checked. Its output is for display only; it never
// reaches the learning store.
type Enricher struct {
	completer Completer
	model     string
	maxTokens int
	maxSource int
	retry     RetryConfig
	limiter   *rate.Limiter
	sem       *semaphore.Weighted
	breaker   *CircuitBreaker
	logger    *slog.Logger
}

// New creates an enricher backed by the Anthropic API. The key comes from
// ANTHROPIC_API_KEY.
func New(cfg Config, logger *slog.Logger) (*Enricher, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return NewWithCompleter(cfg, &anthropicCompleter{client: client}, logger), nil
}

// NewWithCompleter creates an enricher around any Completer.
func NewWithCompleter(cfg Config, completer Completer, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	defaults := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = defaults.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaults.MaxTokens
	}
	if cfg.MaxSourceBytes <= 0 {
		cfg.MaxSourceBytes = defaults.MaxSourceBytes
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.Timeout == 0 {
		cfg.Retry = defaults.Retry
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	var sem *semaphore.Weighted
	if cfg.MaxConcurrent > 0 {
		sem = semaphore.NewWeighted(int64(cfg.MaxConcurrent))
	}

	return &Enricher{
		completer: completer,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		maxSource: cfg.MaxSourceBytes,
		retry:     cfg.Retry,
		limiter:   rate.NewLimiter(limit, 1),
		sem:       sem,
		breaker:   NewCircuitBreaker(cfg.Retry.FailureThreshold, cfg.Retry.SuccessThreshold, cfg.Retry.OpenTimeout, logger),
		logger:    logger,
	}
}

// response is the JSON document the model is asked to produce.
type response struct {
	Findings []finding `json:"findings"`
}

type finding struct {
	Severity   string `json:"severity"`
	Message    string `json:"message"`
	Suggestion string `json:"suggestion"`
	Line       int    `json:"line"`
}

// Enrich returns additional issues for one file. The engine issues are
// included in the prompt so the model does not repeat them. Findings with a
// severity other than CRITICAL, IMPORTANT or STYLE are dropped.
func (e *Enricher) Enrich(ctx context.Context, path string, src []byte, issues []quality.Issue) ([]quality.Issue, error) {
	if e.sem != nil {
		if err := e.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("acquiring enrichment slot: %w", err)
		}
		defer e.sem.Release(1)
	}

	prompt := e.buildPrompt(path, src, issues)

	var reply string
	start := time.Now()
	err := e.retryWithBackoff(ctx, "enrich "+path, func(attemptCtx context.Context) error {
		if err := e.limiter.Wait(attemptCtx); err != nil {
			return err
		}
		text, err := e.completer.Complete(attemptCtx, e.model, e.maxTokens, prompt)
		if err != nil {
			return err
		}
		reply = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("enriching %s: %w", path, err)
	}

	parsed, err := parseJSON[response](reply)
	if err != nil {
		return nil, fmt.Errorf("enriching %s: %w", path, err)
	}

	var out []quality.Issue
	for _, f := range parsed.Findings {
		severity, err := quality.ParseSeverity(f.Severity)
		if err != nil || severity == quality.SeverityError || strings.TrimSpace(f.Message) == "" {
			e.logger.Debug("dropping enrichment finding", "path", path, "severity", f.Severity)
			continue
		}
		out = append(out, quality.Issue{
			Severity:   severity,
			Category:   Category,
			Message:    strings.TrimSpace(f.Message),
			Suggestion: strings.TrimSpace(f.Suggestion),
			Line:       f.Line,
		})
	}

	e.logger.Debug("enriched file", "path", path, "findings", len(out), "duration", time.Since(start))
	return out, nil
}

func (e *Enricher) buildPrompt(path string, src []byte, issues []quality.Issue) string {
	source := string(src)
	if len(source) > e.maxSource {
		cut := e.maxSource
		for cut > 0 && !utf8.RuneStart(source[cut]) {
			cut--
		}
		source = source[:cut] + "\n// ... truncated ...\n"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are reviewing the Go file %s for clarity, simplicity and reliability.\n\n", path)
	if len(issues) > 0 {
		b.WriteString("A static checker already reported these issues; do not repeat them:\n")
		for _, issue := range issues {
			fmt.Fprintf(&b, "- %s [%s] %s\n", issue.Severity, issue.Category, issue.Message)
		}
		b.WriteString("\n")
	}
	b.WriteString("Report at most five additional findings a careful reviewer would raise.\n")
	b.WriteString("Respond with JSON only, in this shape:\n")
	b.WriteString(`{"findings": [{"severity": "CRITICAL|IMPORTANT|STYLE", "message": "...", "suggestion": "...", "line": 0}]}`)
	b.WriteString("\n\nSource:\n```go\n")
	b.WriteString(source)
	b.WriteString("\n```\n")
	return b.String()
}
