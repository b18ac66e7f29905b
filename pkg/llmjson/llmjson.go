// Package llmjson turns free-form LLM completions into typed values.
package llmjson

import (
	"encoding/json"
	"fmt"
	"strings"
)

const maxRawInError = 500

// Validator is implemented by result types that can check their own invariants
type Validator interface {
	Validate() error
}

// ParseError is returned when a completion could not be decoded into the expected shape
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse generation output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Extract returns the JSON payload embedded in a completion. Markdown code
// fences are stripped, then the first balanced object or array is cut out of
// any surrounding prose.
func Extract(content string) string {
	content = stripFences(strings.TrimSpace(content))

	start := strings.IndexAny(content, "{[")
	if start == -1 {
		return content
	}
	if end := matchClose(content, start); end != -1 {
		return content[start : end+1]
	}
	return strings.TrimSpace(content[start:])
}

// Decode extracts and unmarshals a completion into T, then runs T's
// Validate method when it has one.
func Decode[T any](content string) (T, error) {
	var out T
	payload := Extract(content)
	if payload == "" {
		return out, &ParseError{Raw: truncate(content), Err: fmt.Errorf("empty response")}
	}
	if err := json.Unmarshal([]byte(payload), &out); err != nil {
		return out, &ParseError{Raw: truncate(content), Err: err}
	}
	if v, ok := any(&out).(Validator); ok {
		if err := v.Validate(); err != nil {
			return out, &ParseError{Raw: truncate(content), Err: fmt.Errorf("validation failed: %w", err)}
		}
	}
	return out, nil
}

func stripFences(content string) string {
	open := strings.Index(content, "```")
	if open == -1 {
		return content
	}
	rest := content[open+3:]
	// drop the info string, e.g. ```json
	if nl := strings.IndexByte(rest, '\n'); nl != -1 {
		if info := strings.TrimSpace(rest[:nl]); !strings.ContainsAny(info, "{[") {
			rest = rest[nl+1:]
		}
	} else {
		rest = strings.TrimPrefix(rest, "json")
	}
	if closeIdx := strings.Index(rest, "```"); closeIdx != -1 {
		rest = rest[:closeIdx]
	}
	return strings.TrimSpace(rest)
}

// matchClose finds the index of the bracket closing the one at start,
// ignoring brackets inside string literals.
func matchClose(s string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func truncate(s string) string {
	if len(s) <= maxRawInError {
		return s
	}
	return s[:maxRawInError] + "..."
}
