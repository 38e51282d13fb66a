// Package history persists the live lesson feed (newest first, bounded) and
// the per-month archive files that receive entries evicted from it.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// DateLayout is the calendar-day format used in entries and archive names.
const DateLayout = "2006-01-02"

// UndatedArchive receives evicted entries whose date cannot be parsed.
const UndatedArchive = "undated"

// Store is the live history file plus its archive directory.
type Store struct {
	Path       string
	ArchiveDir string
	Limit      int
}

// NewStore returns a store for the given paths. A non-positive limit means 60.
func NewStore(path, archiveDir string, limit int) *Store {
	if limit <= 0 {
		limit = 60
	}
	return &Store{Path: path, ArchiveDir: archiveDir, Limit: limit}
}

// Load reads the live history array. An absent file yields an empty list.
func (s *Store) Load() ([]Entry, error) {
	return readEntries(s.Path)
}

// Save atomically replaces the live history file.
func (s *Store) Save(items []Entry) error {
	if items == nil {
		items = []Entry{}
	}
	return WriteJSONAtomic(s.Path, items)
}

// CommitResult reports what Commit changed on disk.
type CommitResult struct {
	Kept     int            `json:"kept"`
	Archived map[string]int `json:"archived,omitempty"` // month -> evicted count
	Files    []string       `json:"files"`              // every file written
}

// Commit prepends entry, rolls overflow into the archive and persists the
// live file. Archive files are written before the live file so an evicted
// entry is never dropped from both.
func (s *Store) Commit(items []Entry, entry Entry) ([]Entry, *CommitResult, error) {
	items = Prepend(items, entry)
	kept, archived, files, err := RollAndArchive(items, s.Limit, s.ArchiveDir)
	if err != nil {
		return nil, nil, err
	}
	if err := s.Save(kept); err != nil {
		return nil, nil, fmt.Errorf("saving history: %w", err)
	}
	files = append(files, s.Path)
	return kept, &CommitResult{Kept: len(kept), Archived: archived, Files: files}, nil
}

// Prepend returns items with entry at the front.
func Prepend(items []Entry, entry Entry) []Entry {
	out := make([]Entry, 0, len(items)+1)
	out = append(out, entry)
	return append(out, items...)
}

// LatestDate returns the date of the newest entry, or "" for an empty list.
func LatestDate(items []Entry) string {
	if len(items) == 0 {
		return ""
	}
	return items[0].Date
}

// RollAndArchive keeps the first limit items and appends every evicted item
// to its year-month archive file, re-sorting each touched file ascending by
// date. Only affected month files are written. Archives are append-only:
// re-processing an entry archives it twice.
func RollAndArchive(items []Entry, limit int, archiveDir string) ([]Entry, map[string]int, []string, error) {
	if limit < 0 {
		limit = 0
	}
	if len(items) <= limit {
		return items, nil, nil, nil
	}

	kept := items[:limit:limit]
	evicted := items[limit:]

	byMonth := make(map[string][]Entry)
	var months []string
	for _, e := range evicted {
		m := MonthKey(e.Date)
		if _, ok := byMonth[m]; !ok {
			months = append(months, m)
		}
		byMonth[m] = append(byMonth[m], e)
	}
	sort.Strings(months)

	counts := make(map[string]int, len(months))
	files := make([]string, 0, len(months))
	for _, m := range months {
		path := ArchivePath(archiveDir, m)
		existing, err := readEntries(path)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading archive %s: %w", m, err)
		}
		merged := append(existing, byMonth[m]...)
		SortAscending(merged)
		if err := WriteJSONAtomic(path, merged); err != nil {
			return nil, nil, nil, fmt.Errorf("writing archive %s: %w", m, err)
		}
		counts[m] = len(byMonth[m])
		files = append(files, path)
	}
	return kept, counts, files, nil
}

// MonthKey returns "YYYY-MM" for a calendar date, or UndatedArchive.
func MonthKey(date string) string {
	if t, err := time.Parse(DateLayout, date); err == nil {
		return t.Format("2006-01")
	}
	if len(date) >= 7 {
		if t, err := time.Parse("2006-01", date[:7]); err == nil {
			return t.Format("2006-01")
		}
	}
	return UndatedArchive
}

// ArchivePath returns the archive file for a month key.
func ArchivePath(archiveDir, month string) string {
	return filepath.Join(archiveDir, month+".json")
}

// LoadArchive reads one archive month file.
func LoadArchive(archiveDir, month string) ([]Entry, error) {
	return readEntries(ArchivePath(archiveDir, month))
}

// SortAscending stably orders entries by date, oldest first.
func SortAscending(items []Entry) {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date < items[j].Date })
}

func readEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var items []Entry
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if items == nil {
		items = []Entry{}
	}
	return items, nil
}
