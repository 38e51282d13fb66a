package pipeline

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"wealth/daily/internal/history"
)

// MaxSteps caps the steps of one practice item.
const MaxSteps = 6

// bulletRe matches leading list markers: "- ", "* ", "• ", "1. ", "2) ",
// "3、", "(4)", "（5）" and "Step 6:". Dot, paren and dash markers need
// trailing whitespace so figures like "3.5%" or "-10%" survive.
var bulletRe = regexp.MustCompile(`^\s*(?:[-*•·]+\s+|\d+[.)](?:\s+|$)|\d+、\s*|[（(]\s*\d+\s*[)）]\s*|(?i:step)\s*\d+\s*[.:：)]?\s*)`)

// Coerce normalizes a draft into a lesson. It never fails: missing text
// becomes "" and missing lists become empty.
func Coerce(d Draft) Lesson {
	return Lesson{
		Topic:     textValue(d["topic"]),
		Summary:   textValue(d["summary"]),
		KeyPoints: stringList(d["key_points"]),
		Practice:  coercePractice(d["practice"]),
		RiskNotes: joinedText(d["risk_notes"]),
		Sources:   coerceSources(d["sources"]),
	}
}

func coercePractice(v interface{}) []history.Practice {
	out := []history.Practice{}
	switch p := v.(type) {
	case string:
		if steps := SplitSteps(p); len(steps) > 0 {
			out = append(out, history.Practice{Title: "Practice", Steps: steps})
		}
	case map[string]interface{}:
		if item, ok := practiceItem(p); ok {
			out = append(out, item)
		}
	case []interface{}:
		for _, el := range p {
			switch e := el.(type) {
			case string:
				if t := strings.TrimSpace(e); t != "" {
					out = append(out, history.Practice{Title: t, Steps: []string{}})
				}
			case map[string]interface{}:
				if item, ok := practiceItem(e); ok {
					out = append(out, item)
				}
			}
		}
	}
	return out
}

func practiceItem(obj map[string]interface{}) (history.Practice, bool) {
	title := textValue(obj["title"])
	if title == "" {
		title = textValue(obj["name"])
	}
	var steps []string
	switch s := obj["steps"].(type) {
	case string:
		steps = SplitSteps(s)
	case []interface{}:
		steps = make([]string, 0, len(s))
		for _, el := range s {
			if t := stripBullet(textValue(el)); t != "" {
				steps = append(steps, t)
			}
		}
	}
	if len(steps) > MaxSteps {
		steps = steps[:MaxSteps]
	}
	if steps == nil {
		steps = []string{}
	}
	if title == "" && len(steps) == 0 {
		return history.Practice{}, false
	}
	return history.Practice{Title: title, Steps: steps}, true
}

// SplitSteps splits a newline-separated list, strips leading numbering or
// bullets, trims, drops empties and keeps at most MaxSteps.
func SplitSteps(s string) []string {
	out := []string{}
	for _, line := range strings.Split(s, "\n") {
		if t := stripBullet(line); t != "" {
			out = append(out, t)
			if len(out) == MaxSteps {
				break
			}
		}
	}
	return out
}

func stripBullet(s string) string {
	return strings.TrimSpace(bulletRe.ReplaceAllString(strings.TrimSpace(s), ""))
}

func coerceSources(v interface{}) []history.Source {
	var items []interface{}
	switch s := v.(type) {
	case []interface{}:
		items = s
	case map[string]interface{}, string:
		items = []interface{}{s}
	}

	out := []history.Source{}
	for _, el := range items {
		if len(out) == history.MaxSources {
			break
		}
		var src history.Source
		switch e := el.(type) {
		case string:
			t := strings.TrimSpace(e)
			if t == "" {
				continue
			}
			if strings.HasPrefix(t, "http://") || strings.HasPrefix(t, "https://") {
				src = history.Source{URL: t}
			} else {
				src = history.Source{Title: t}
			}
		case map[string]interface{}:
			src.Title = textValue(e["title"])
			src.URL = textValue(e["url"])
			if src.URL == "" {
				src.URL = textValue(e["link"])
			}
			if src.Title == "" && src.URL == "" {
				continue
			}
		default:
			continue
		}
		if src.Title == "" {
			src.Title = "Source"
		}
		out = append(out, src)
	}
	return out
}

// stringList accepts a list of scalars or a newline-separated string.
func stringList(v interface{}) []string {
	out := []string{}
	switch l := v.(type) {
	case []interface{}:
		for _, el := range l {
			if t := textValue(el); t != "" {
				out = append(out, t)
			}
		}
	case string:
		for _, line := range strings.Split(l, "\n") {
			if t := stripBullet(line); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

// joinedText accepts a string or a list of strings joined by newlines.
func joinedText(v interface{}) string {
	if l, ok := v.([]interface{}); ok {
		return strings.Join(stringList(l), "\n")
	}
	return textValue(v)
}

func textValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case nil:
		return ""
	default:
		return ""
	}
}

// WordCount counts whitespace-separated words, treating each Han character
// as one word.
func WordCount(s string) int {
	n := 0
	for _, field := range strings.Fields(s) {
		han, other := 0, false
		for _, r := range field {
			if unicode.Is(unicode.Han, r) {
				han++
			} else if unicode.IsLetter(r) || unicode.IsDigit(r) {
				other = true
			}
		}
		n += han
		if other {
			n++
		}
	}
	return n
}

// summaryWarning returns a non-empty message when the summary length is
// outside [min, max] words.
func summaryWarning(summary string, min, max int) string {
	if min <= 0 && max <= 0 {
		return ""
	}
	n := WordCount(summary)
	if (min > 0 && n < min) || (max > 0 && n > max) {
		return fmt.Sprintf("summary has %d words, want %d-%d", n, min, max)
	}
	return ""
}
