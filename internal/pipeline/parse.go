package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// fenceRe matches a fenced code block, optionally tagged json.
// The (?s) flag lets . span newlines.
var fenceRe = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*\\n?(.*?)\\s*```")

var (
	errEmptyResponse = errors.New("empty response")
	errNotObject     = errors.New("response is not a JSON object")
	errNoScore       = errors.New("critique has no numeric score")
)

// StripFence returns the body of the first fenced code block in text, or the
// trimmed text when there is none.
func StripFence(text string) string {
	text = strings.TrimSpace(text)
	if m := fenceRe.FindStringSubmatch(text); len(m) == 2 {
		return strings.TrimSpace(m[1])
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// ParseObject decodes model text into a JSON object. Syntax errors are parse
// failures; valid JSON that is not an object is a schema mismatch.
func ParseObject(text string) (map[string]interface{}, Outcome, error) {
	body := StripFence(text)
	if body == "" {
		return nil, OutcomeParseFailure, errEmptyResponse
	}
	var v interface{}
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		return nil, OutcomeParseFailure, fmt.Errorf("invalid JSON: %w", err)
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, OutcomeSchemaMismatch, errNotObject
	}
	return obj, OutcomeOK, nil
}

// ParseCritique reads {critique, score}. A score may be a number or numeric
// string; anything else is a schema mismatch.
func ParseCritique(obj map[string]interface{}) (Critique, error) {
	c := Critique{Critique: textValue(obj["critique"])}
	switch s := obj["score"].(type) {
	case float64:
		c.Score = s
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return c, errNoScore
		}
		c.Score = f
	default:
		return c, errNoScore
	}
	return c, nil
}
