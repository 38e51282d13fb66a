package selector

import (
	"math"
	"time"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/history"
)

// Weights for the informational score. Cooldown and DifficultyGap are
// penalties and are subtracted.
type Weights struct {
	Progress      float64 `json:"progress"`
	Coverage      float64 `json:"coverage"`
	Relation      float64 `json:"relation"`
	Diversity     float64 `json:"diversity"`
	Cooldown      float64 `json:"cooldown"`
	DifficultyGap float64 `json:"difficulty_gap"`
}

func DefaultWeights() Weights {
	return Weights{
		Progress:      0.30,
		Coverage:      0.20,
		Relation:      0.15,
		Diversity:     0.15,
		Cooldown:      0.50,
		DifficultyGap: 0.10,
	}
}

// ScoreBreakdown shows the sub-scores of the candidate score. Every
// component is in [0, 1].
type ScoreBreakdown struct {
	Score         float64 `json:"score"`
	Progress      float64 `json:"progress"`
	Coverage      float64 `json:"coverage"`
	Relation      float64 `json:"relation"`
	Diversity     float64 `json:"diversity"`
	Cooldown      float64 `json:"cooldown"`
	DifficultyGap float64 `json:"difficulty_gap"`
}

const (
	coverageWindowDays = 7
	relationWindow     = 2
	progressHorizon    = 90.0
)

// Score rates how good a candidate would be to generate at now. It never
// influences Select.
func Score(c catalog.Candidate, items []history.Entry, now time.Time, cooldownDays int, w Weights) ScoreBreakdown {
	today := now.Format(history.DateLayout)
	var b ScoreBreakdown

	last, used := LastUsed(items)[c.ID]
	if !used {
		b.Progress = 1
	} else if days, ok := daysBetween(last, today); ok {
		b.Progress = clamp(float64(days)/progressHorizon, 0, 1)
		if days < cooldownDays {
			b.Cooldown = 1
		}
	}

	b.Coverage = 1
	for _, e := range items {
		days, ok := daysBetween(e.Date, today)
		if !ok || days >= coverageWindowDays {
			continue
		}
		if e.Meta.Category == c.Category {
			b.Coverage = 0
			break
		}
	}

	for i, e := range items {
		if i >= relationWindow {
			break
		}
		if related(c, e.Meta) {
			b.Relation = 1
			break
		}
	}

	if len(items) == 0 {
		b.Diversity = 1
	} else {
		prev := items[0].Meta
		if prev.Category != c.Category {
			b.Diversity = 1
		}
		gap := math.Abs(float64(c.Difficulty - prev.Difficulty))
		b.DifficultyGap = clamp((gap-1)/4, 0, 1)
	}

	b.Score = w.Progress*b.Progress +
		w.Coverage*b.Coverage +
		w.Relation*b.Relation +
		w.Diversity*b.Diversity -
		w.Cooldown*b.Cooldown -
		w.DifficultyGap*b.DifficultyGap
	return b
}

func related(c catalog.Candidate, m history.Meta) bool {
	for _, r := range c.Related {
		if r == m.ID {
			return true
		}
	}
	for _, r := range m.Related {
		if r == c.ID {
			return true
		}
	}
	return false
}

// daysBetween returns whole calendar days from a to b (both YYYY-MM-DD).
func daysBetween(a, b string) (int, bool) {
	ta, err := time.Parse(history.DateLayout, a)
	if err != nil {
		return 0, false
	}
	tb, err := time.Parse(history.DateLayout, b)
	if err != nil {
		return 0, false
	}
	return int(tb.Sub(ta).Hours() / 24), true
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
