// Package selector picks the next catalog candidate to generate. Selection is
// strictly sequential until the catalog is exhausted, then round-robin by
// oldest last use. The weighted score in score.go is informational only.
package selector

import (
	"errors"
	"sort"
	"strings"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/history"
)

// ErrNoCandidate means the catalog produced no candidates. Fatal for the run.
var ErrNoCandidate = errors.New("no candidate topics in catalog")

// Reason records which rule produced a selection.
type Reason string

const (
	ReasonSequential Reason = "sequential"
	ReasonRecycle    Reason = "recycle"
	ReasonEmergency  Reason = "emergency"
)

// Selection is the chosen candidate and how it was chosen.
type Selection struct {
	Candidate catalog.Candidate `json:"candidate"`
	Reason    Reason            `json:"reason"`
	Recycled  bool              `json:"recycled"`
	LastUsed  string            `json:"last_used,omitempty"`
}

// emergencyKeywords are checked in order against candidate titles when no
// candidate can be tracked against history.
var emergencyKeywords = []string{
	"budget", "emergency", "saving", "index", "compound",
	"debt", "insurance", "retirement", "tax", "invest",
	"预算", "储蓄", "理财", "投资",
}

// LastUsed maps candidate id to the date it was most recently used. History
// is newest first, so the first occurrence wins.
func LastUsed(items []history.Entry) map[string]string {
	used := make(map[string]string, len(items))
	for _, e := range items {
		id := strings.TrimSpace(e.Meta.ID)
		if id == "" {
			continue
		}
		if _, ok := used[id]; !ok {
			used[id] = e.Date
		}
	}
	return used
}

// Select applies sequential coverage, then oldest-used recycling, then the
// keyword emergency fallback.
func Select(candidates []catalog.Candidate, items []history.Entry) (Selection, error) {
	if len(candidates) == 0 {
		return Selection{}, ErrNoCandidate
	}

	trackable := make([]catalog.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if strings.TrimSpace(c.ID) != "" {
			trackable = append(trackable, c)
		}
	}
	if len(trackable) == 0 {
		return Selection{Candidate: Emergency(candidates), Reason: ReasonEmergency}, nil
	}

	used := LastUsed(items)
	for _, c := range trackable {
		if _, ok := used[c.ID]; !ok {
			return Selection{Candidate: c, Reason: ReasonSequential}, nil
		}
	}

	ordered := make([]catalog.Candidate, len(trackable))
	copy(ordered, trackable)
	sort.SliceStable(ordered, func(i, j int) bool {
		return used[ordered[i].ID] < used[ordered[j].ID]
	})
	pick := ordered[0]
	return Selection{
		Candidate: pick,
		Reason:    ReasonRecycle,
		Recycled:  true,
		LastUsed:  used[pick.ID],
	}, nil
}

// Emergency returns the first candidate whose title contains a finance
// keyword, trying keywords in order, else the first candidate.
func Emergency(candidates []catalog.Candidate) catalog.Candidate {
	for _, kw := range emergencyKeywords {
		for _, c := range candidates {
			if strings.Contains(strings.ToLower(c.Title), kw) {
				return c
			}
		}
	}
	return candidates[0]
}

// Coverage counts how many candidates have appeared in history at least once.
func Coverage(candidates []catalog.Candidate, items []history.Entry) (used, total int) {
	last := LastUsed(items)
	for _, c := range candidates {
		if _, ok := last[c.ID]; ok {
			used++
		}
	}
	return used, len(candidates)
}
