// Package catalog loads the nested level -> category -> topic configuration
// and flattens it into the ordered candidate list the selector walks.
package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// Candidate is a topic eligible for lesson generation. Immutable once
// flattened; Order is the only sort key for catalog traversal.
type Candidate struct {
	ID         string   `json:"id"`
	Title      string   `json:"title"`
	Level      string   `json:"level"`
	Category   string   `json:"category"`
	Difficulty int      `json:"difficulty"`
	Related    []string `json:"related"`
	Order      int      `json:"order"`
}

// Catalog mirrors the topics.json file.
type Catalog struct {
	Levels []Level `json:"levels"`
}

type Level struct {
	Level      lenientInt `json:"level"`
	Name       string     `json:"name"`
	Categories []Category `json:"categories"`
}

type Category struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	Difficulty       lenientInt `json:"difficulty"`
	RecommendedOrder lenientInt `json:"recommended_order"`
	Topics           []Topic    `json:"topics"`
}

type Topic struct {
	ID      string     `json:"id"`
	Title   string     `json:"title"`
	Order   lenientInt `json:"order"`
	Related []string   `json:"related"`
}

// lenientInt decodes numbers, numeric strings, and anything else as 0, so a
// malformed numeric field never fails the whole load.
type lenientInt int

func (n *lenientInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = lenientInt(int(f))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			*n = lenientInt(v)
			return nil
		}
	}
	*n = 0
	return nil
}

// Load reads and flattens the catalog at path.
func Load(path string) ([]Candidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading topic catalog: %w", err)
	}
	cat, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing topic catalog %s: %w", path, err)
	}
	return Flatten(cat), nil
}

// Parse decodes catalog JSON. Only non-JSON input is an error.
func Parse(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := json.Unmarshal(data, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// OrderKey computes level*1000 + recommended_order*100 + topic_order.
func OrderKey(level, recommendedOrder, topicOrder int) int {
	return level*1000 + recommendedOrder*100 + topicOrder
}

// Flatten produces the candidate list, stably sorted ascending by Order so
// ties keep nested traversal order.
func Flatten(cat *Catalog) []Candidate {
	if cat == nil {
		return nil
	}
	var out []Candidate
	for _, lvl := range cat.Levels {
		levelName := strings.TrimSpace(lvl.Name)
		if levelName == "" {
			levelName = fmt.Sprintf("L%d", int(lvl.Level))
		}
		for _, c := range lvl.Categories {
			catName := strings.TrimSpace(c.Name)
			if catName == "" {
				catName = c.ID
			}
			for _, t := range c.Topics {
				related := make([]string, 0, len(t.Related))
				for _, r := range t.Related {
					if r = strings.TrimSpace(r); r != "" {
						related = append(related, r)
					}
				}
				out = append(out, Candidate{
					ID:         strings.TrimSpace(t.ID),
					Title:      strings.TrimSpace(t.Title),
					Level:      levelName,
					Category:   catName,
					Difficulty: int(c.Difficulty),
					Related:    related,
					Order:      OrderKey(int(lvl.Level), int(c.RecommendedOrder), int(t.Order)),
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}

// DifficultyLabel maps a 1-5 difficulty onto its tag label. Out-of-range
// values clamp to the nearest end.
func DifficultyLabel(d int) string {
	switch {
	case d <= 1:
		return "beginner"
	case d == 2:
		return "foundation"
	case d == 3:
		return "intermediate"
	case d == 4:
		return "advanced"
	default:
		return "expert"
	}
}
