/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package result

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ParseError reports that a model response could not be parsed as JSON.
// Raw carries the unmodified response text for logging and fallbacks.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing model response as JSON: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ExtractJSON extracts JSON content from a text response that may contain
// markdown code blocks or surrounding prose. It returns the best candidate
// found; callers must still validate by unmarshaling.
func ExtractJSON(responseText string) string {
	// Strategy 1: a ```json fenced block on its own lines.
	if block, ok := fencedBlock(responseText); ok {
		return block
	}

	// Sometimes models emit fences without a newline after the marker, or a
	// bare ``` fence. Strip those before anything else.
	trimmed := strings.TrimSpace(responseText)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	if json.Valid([]byte(trimmed)) {
		return trimmed
	}

	// Strategy 2: balanced-delimiter scan for top-level objects or arrays,
	// preferring the last valid candidate (models tend to put the real answer
	// after their preamble).
	candidates := balancedCandidates(trimmed)
	for i := len(candidates) - 1; i >= 0; i-- {
		if json.Valid([]byte(candidates[i])) {
			return candidates[i]
		}
	}

	// Strategy 3: from the first opening delimiter, try progressively shorter
	// prefixes until one parses. Recovers from trailing commentary.
	start := strings.IndexAny(trimmed, "{[")
	if start >= 0 {
		for end := len(trimmed); end > start; end-- {
			candidate := trimmed[start:end]
			if json.Valid([]byte(candidate)) {
				return candidate
			}
		}
	}

	return trimmed
}

// fencedBlock scans for the first ```json line and collects content until the
// closing ``` line.
func fencedBlock(text string) (string, bool) {
	var buf bytes.Buffer
	inBlock := false
	found := false

	for line := range strings.Lines(text) {
		stripped := strings.TrimRight(line, "\r\n")
		if !inBlock && stripped == "```json" {
			inBlock = true
			found = true
			continue
		}
		if inBlock && stripped == "```" {
			break
		}
		if inBlock {
			if buf.Len() > 0 {
				buf.WriteString("\n")
			}
			buf.WriteString(stripped)
		}
	}

	if !found {
		return "", false
	}
	return strings.TrimSpace(buf.String()), true
}

// balancedCandidates returns every top-level {...} or [...] span in the text,
// tracking string literals so braces inside values don't break the count.
func balancedCandidates(text string) []string {
	var candidates []string
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		c := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{', '[':
			if depth == 0 {
				start = i
			}
			depth++
		case '}', ']':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidates = append(candidates, text[start:i+1])
				start = -1
			}
		}
	}

	return candidates
}

// Extract extracts JSON content from a text response and unmarshals it into
// the provided type. Failures are reported as a *ParseError carrying the raw
// response text.
func Extract[T any](responseText string) (T, error) {
	var result T

	jsonContent := ExtractJSON(responseText)
	if jsonContent == "" {
		return result, &ParseError{Raw: responseText, Err: errors.New("empty response")}
	}

	if err := json.Unmarshal([]byte(jsonContent), &result); err != nil {
		return result, &ParseError{Raw: responseText, Err: err}
	}

	return result, nil
}
