// Package narration turns a history entry into short text segments suitable
// for speech synthesis, one request per segment.
package narration

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"wealth/daily/internal/history"
)

const (
	// MaxSegmentChars is the hard cap on a segment, in characters.
	MaxSegmentChars = 280
	// MinSegmentChars is the length at which a punctuation mark flushes.
	MinSegmentChars = 100
)

// safePunct are the marks a long text may be split after.
var safePunct = map[rune]bool{
	'。': true, '！': true, '？': true,
	'.': true, '!': true, '?': true,
	';': true, '；': true, '\n': true,
}

var spaceRe = regexp.MustCompile(`\s+`)

// Segment is one unit of narration.
type Segment struct {
	Index int    `json:"index"`
	Part  string `json:"part"` // topic, summary, key_point, practice, step, risk_notes
	Text  string `json:"text"`
	Slug  string `json:"slug"`
	Chars int    `json:"chars"`
}

// Collect returns the narration segments of e in reading order: topic,
// summary, key points, practice titles and steps, then risk notes. Every
// part is split on punctuation so no segment exceeds MaxSegmentChars. Blank
// segments are dropped.
func Collect(e history.Entry) []Segment {
	var out []Segment
	add := func(part, text string) {
		text = Normalize(text)
		if text == "" {
			return
		}
		out = append(out, Segment{
			Index: len(out),
			Part:  part,
			Text:  text,
			Slug:  Slug(text, fmt.Sprintf("segment-%02d", len(out))),
			Chars: utf8.RuneCountInString(text),
		})
	}

	addSplit := func(part, text string) {
		for _, s := range SplitByPunct(text) {
			add(part, s)
		}
	}

	addSplit("topic", e.Topic)
	addSplit("summary", e.Summary)
	for _, p := range e.KeyPoints {
		addSplit("key_point", p)
	}
	for _, p := range e.Practice {
		addSplit("practice", p.Title)
		for _, s := range p.Steps {
			addSplit("step", s)
		}
	}
	addSplit("risk_notes", e.RiskNotes)
	return out
}

// Normalize trims, replaces ideographic spaces and collapses whitespace.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "　", " ")
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

// SplitByPunct splits text into segments of at most MaxSegmentChars. A
// segment ends at the first safe punctuation mark once it holds at least
// MinSegmentChars; a short tail joins the previous segment when the result
// stays under the cap; anything still over the cap is cut into fixed-size
// chunks.
func SplitByPunct(text string) []string {
	return splitByPunct(text, MaxSegmentChars, MinSegmentChars)
}

func splitByPunct(text string, cap, min int) []string {
	text = Normalize(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= cap {
		return []string{text}
	}

	var parts []string
	var buf []rune
	for _, r := range text {
		buf = append(buf, r)
		if safePunct[r] && len(buf) >= min {
			parts = append(parts, strings.TrimSpace(string(buf)))
			buf = buf[:0]
		}
	}
	if tail := strings.TrimSpace(string(buf)); tail != "" {
		if n := len(parts); n > 0 && utf8.RuneCountInString(tail)+utf8.RuneCountInString(parts[n-1]) < cap {
			parts[n-1] += tail
		} else {
			parts = append(parts, tail)
		}
	}

	var out []string
	for _, p := range parts {
		if utf8.RuneCountInString(p) > cap {
			out = append(out, forceChunks(p, cap)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

func forceChunks(text string, cap int) []string {
	r := []rune(strings.TrimSpace(text))
	var out []string
	for start := 0; start < len(r); start += cap {
		end := start + cap
		if end > len(r) {
			end = len(r)
		}
		if chunk := string(r[start:end]); chunk != "" {
			out = append(out, chunk)
		}
	}
	return out
}

var slugRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Slug derives an ASCII file-name stem from text, or fallback when nothing
// ASCII remains.
func Slug(text, fallback string) string {
	var b strings.Builder
	for _, r := range Normalize(text) {
		if r < utf8.RuneSelf {
			b.WriteRune(r)
		}
	}
	s := strings.Trim(slugRe.ReplaceAllString(b.String(), "-"), "-")
	if len(s) > 48 {
		s = strings.TrimRight(s[:48], "-")
	}
	if s == "" {
		return fallback
	}
	return strings.ToLower(s)
}

// FindByDate returns the entry for date, if any.
func FindByDate(items []history.Entry, date string) (history.Entry, bool) {
	for _, e := range items {
		if e.Date == date {
			return e, true
		}
	}
	return history.Entry{}, false
}
