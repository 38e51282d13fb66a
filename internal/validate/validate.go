// Package validate checks the live history file, the archive month files
// and the topic catalog for structural problems. It only reads; fixing is
// left to a human.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/history"
	"wealth/daily/internal/pipeline"
)

// Issue is one problem in a file. Index is the array position, or -1 for
// file-level issues.
type Issue struct {
	Index   int    `json:"index"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// FileReport collects the issues of one file.
type FileReport struct {
	Path    string  `json:"path"`
	Kind    string  `json:"kind"` // history, archive, catalog
	Entries int     `json:"entries"`
	Issues  []Issue `json:"issues"`
}

func (f *FileReport) add(index int, field, format string, args ...interface{}) {
	f.Issues = append(f.Issues, Issue{Index: index, Field: field, Message: fmt.Sprintf(format, args...)})
}

// Report is the outcome of a validation pass.
type Report struct {
	Files []FileReport `json:"files"`
}

// IssueCount sums issues across files.
func (r *Report) IssueCount() int {
	n := 0
	for _, f := range r.Files {
		n += len(f.Issues)
	}
	return n
}

func (r *Report) OK() bool { return r.IssueCount() == 0 }

// Options locates the files to check. CatalogPath is optional and
// Concurrency defaults to 4 archive workers.
type Options struct {
	HistoryPath string
	ArchiveDir  string
	CatalogPath string
	Limit       int
	Concurrency int
}

// Run validates everything in opts. Archive files are checked in parallel.
// The returned error is only for I/O failures that stop the pass entirely.
func Run(ctx context.Context, opts Options) (*Report, error) {
	report := &Report{}

	live := CheckHistory(opts.HistoryPath, opts.Limit)
	report.Files = append(report.Files, live)

	if opts.CatalogPath != "" {
		report.Files = append(report.Files, CheckCatalog(opts.CatalogPath))
	}

	paths, err := filepath.Glob(filepath.Join(opts.ArchiveDir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("listing archive: %w", err)
	}
	sort.Strings(paths)

	workers := opts.Concurrency
	if workers <= 0 {
		workers = 4
	}

	archives := make([]FileReport, len(paths))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr := CheckArchive(p)
			mu.Lock()
			archives[i] = fr
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	report.Files = append(report.Files, archives...)
	return report, nil
}

// CheckHistory validates the live file: a JSON array of at most limit
// entries, newest first with one entry per date.
func CheckHistory(path string, limit int) FileReport {
	fr := FileReport{Path: path, Kind: "history", Issues: []Issue{}}
	items, ok := readEntries(path, &fr, true)
	if !ok {
		return fr
	}
	fr.Entries = len(items)

	if limit > 0 && len(items) > limit {
		fr.add(-1, "", "history has %d entries, limit is %d", len(items), limit)
	}

	seen := make(map[string]int, len(items))
	for i, e := range items {
		checkEntry(&fr, i, e)
		if prev, dup := seen[e.Date]; dup && e.Date != "" {
			fr.add(i, "date", "duplicate date %s (also at index %d)", e.Date, prev)
		} else {
			seen[e.Date] = i
		}
		if i > 0 && e.Date != "" && items[i-1].Date != "" && items[i-1].Date < e.Date {
			fr.add(i, "date", "not newest first: %s follows %s", e.Date, items[i-1].Date)
		}
	}
	return fr
}

// CheckArchive validates one month file: every entry belongs to the month
// named by the file and entries ascend by date.
func CheckArchive(path string) FileReport {
	fr := FileReport{Path: path, Kind: "archive", Issues: []Issue{}}
	month := strings.TrimSuffix(filepath.Base(path), ".json")
	if month != history.UndatedArchive {
		if _, err := time.Parse("2006-01", month); err != nil {
			fr.add(-1, "", "archive file name %q is not YYYY-MM or %s", filepath.Base(path), history.UndatedArchive)
		}
	}

	items, ok := readEntries(path, &fr, false)
	if !ok {
		return fr
	}
	fr.Entries = len(items)

	for i, e := range items {
		checkEntry(&fr, i, e)
		if got := history.MonthKey(e.Date); got != month {
			fr.add(i, "date", "entry dated %q belongs in %s.json", e.Date, got)
		}
		if i > 0 && items[i-1].Date > e.Date {
			fr.add(i, "date", "not ascending: %s follows %s", e.Date, items[i-1].Date)
		}
	}
	return fr
}

// CheckCatalog validates the topic catalog: it must load, and topic ids
// must be present and unique.
func CheckCatalog(path string) FileReport {
	fr := FileReport{Path: path, Kind: "catalog", Issues: []Issue{}}
	candidates, err := catalog.Load(path)
	if err != nil {
		fr.add(-1, "", "%v", err)
		return fr
	}
	fr.Entries = len(candidates)
	if len(candidates) == 0 {
		fr.add(-1, "", "catalog has no topics")
	}

	seen := make(map[string]int, len(candidates))
	for i, c := range candidates {
		if c.ID == "" {
			fr.add(i, "id", "topic %q has no id", c.Title)
			continue
		}
		if prev, dup := seen[c.ID]; dup {
			fr.add(i, "id", "duplicate topic id %q (also at index %d)", c.ID, prev)
		}
		seen[c.ID] = i
		if c.Title == "" {
			fr.add(i, "title", "topic %q has no title", c.ID)
		}
		if c.Difficulty < 1 || c.Difficulty > 5 {
			fr.add(i, "difficulty", "topic %q difficulty %d outside 1-5", c.ID, c.Difficulty)
		}
	}
	return fr
}

func checkEntry(fr *FileReport, i int, e history.Entry) {
	if strings.TrimSpace(e.ID) == "" {
		fr.add(i, "id", "missing id")
	}
	if _, err := time.Parse(history.DateLayout, e.Date); err != nil {
		fr.add(i, "date", "invalid date %q", e.Date)
	}
	if strings.TrimSpace(e.Topic) == "" {
		fr.add(i, "topic", "missing topic")
	}
	if strings.TrimSpace(e.Meta.ID) == "" {
		fr.add(i, "meta.id", "missing candidate id")
	}
	if n := len(e.Sources); n > history.MaxSources {
		fr.add(i, "sources", "%d sources, max %d", n, history.MaxSources)
	}
	for j, p := range e.Practice {
		if n := len(p.Steps); n > pipeline.MaxSteps {
			fr.add(i, fmt.Sprintf("practice[%d].steps", j), "%d steps, max %d", n, pipeline.MaxSteps)
		}
	}
}

// readEntries decodes a JSON array of entries. A missing live file is
// valid; a missing archive cannot happen since archives come from a glob.
func readEntries(path string, fr *FileReport, allowMissing bool) ([]history.Entry, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return nil, true
		}
		fr.add(-1, "", "read: %v", err)
		return nil, false
	}
	var items []history.Entry
	if err := json.Unmarshal(data, &items); err != nil {
		fr.add(-1, "", "not a JSON array of entries: %v", err)
		return nil, false
	}
	return items, true
}
