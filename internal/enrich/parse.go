package enrich

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Pre-compiled patterns for cleaning up model output.
var (
	// Matches ```json\n{...}\n```, ```{...}```, ``` json{...}``` and similar
	codeFenceRegex = regexp.MustCompile(`(?s)` + "`" + `{3}(?:json|javascript|js)?\s*\n?([\s\S]*?)\n?` + "`" + `{3}`)

	trailingCommaRegex = regexp.MustCompile(`,(\s*[}\]])`)

	// Greedy so nested structures are captured whole
	objectRegex = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
)

// maxResponseSize bounds the text we try to parse.
const maxResponseSize = 1 << 20

// parseJSON decodes a model response into T, tolerating code fences,
// trailing commas and prose around the JSON object.
//
// Strategy sequence:
//  1. Direct JSON parse
//  2. Remove code fences and retry
//  3. Drop trailing commas and retry
//  4. Extract the outermost object from mixed content and retry
func parseJSON[T any](text string) (T, error) {
	var zero T
	if len(text) > maxResponseSize {
		return zero, fmt.Errorf("response exceeds size limit (%d > %d bytes)", len(text), maxResponseSize)
	}

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return zero, fmt.Errorf("empty response")
	}

	result, err := tryDirectParse[T](trimmed)
	if err == nil {
		return result, nil
	}
	slog.Debug("direct JSON parse failed, trying cleanup strategies", "error", err)

	candidates := []func(string) string{
		removeCodeFences,
		func(s string) string { return trailingCommaRegex.ReplaceAllString(removeCodeFences(s), "$1") },
		func(s string) string {
			return trailingCommaRegex.ReplaceAllString(objectRegex.FindString(removeCodeFences(s)), "$1")
		},
	}
	for _, clean := range candidates {
		cleaned := strings.TrimSpace(clean(trimmed))
		if cleaned == "" || cleaned == trimmed {
			continue
		}
		if result, err := tryDirectParse[T](cleaned); err == nil {
			return result, nil
		}
	}

	return zero, fmt.Errorf("parsing response JSON: %w", err)
}

func tryDirectParse[T any](text string) (T, error) {
	var result T
	err := json.Unmarshal([]byte(text), &result)
	return result, err
}

func removeCodeFences(text string) string {
	if m := codeFenceRegex.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}
