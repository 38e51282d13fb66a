package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/history"
	"wealth/daily/internal/selector"
)

var statusJSON bool

// StatusReport summarizes the history and what the next run would pick.
type StatusReport struct {
	HistorySize  int                      `json:"history_size"`
	HistoryLimit int                      `json:"history_limit"`
	LatestDate   string                   `json:"latest_date,omitempty"`
	Today        string                   `json:"today"`
	DoneToday    bool                     `json:"done_today"`
	Covered      int                      `json:"covered"`
	CatalogSize  int                      `json:"catalog_size"`
	Next         *selector.Selection      `json:"next,omitempty"`
	Score        *selector.ScoreBreakdown `json:"score,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show history size, catalog coverage and the next candidate",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := history.NewStore(settings.HistoryPath(), settings.ArchivePath(), settings.History.Limit)
		items, err := store.Load()
		if err != nil {
			return err
		}
		candidates, err := catalog.Load(settings.CatalogPath())
		if err != nil {
			return err
		}
		ocfg, err := orchestrateConfig(settings)
		if err != nil {
			return err
		}

		report, err := buildStatus(items, candidates, time.Now().In(ocfg.Location), settings.History.Limit, ocfg.CooldownDays, ocfg.Weights)
		if err != nil {
			return err
		}
		if statusJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(report)
		}
		printStatus(os.Stdout, report)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(statusCmd)
}

func buildStatus(items []history.Entry, candidates []catalog.Candidate, now time.Time, limit, cooldownDays int, w selector.Weights) (*StatusReport, error) {
	today := now.Format(history.DateLayout)
	used, total := selector.Coverage(candidates, items)
	report := &StatusReport{
		HistorySize:  len(items),
		HistoryLimit: limit,
		LatestDate:   history.LatestDate(items),
		Today:        today,
		Covered:      used,
		CatalogSize:  total,
	}
	for _, e := range items {
		if e.Date == today {
			report.DoneToday = true
			break
		}
	}

	sel, err := selector.Select(candidates, items)
	if errors.Is(err, selector.ErrNoCandidate) {
		return report, nil
	}
	if err != nil {
		return nil, err
	}
	score := selector.Score(sel.Candidate, items, now, cooldownDays, w)
	report.Next = &sel
	report.Score = &score
	return report, nil
}

func printStatus(w io.Writer, r *StatusReport) {
	bold := color.New(color.Bold)
	bold.Fprintln(w, "Daily lesson status")

	latest := r.LatestDate
	if latest == "" {
		latest = "(none)"
	}
	fmt.Fprintf(w, "  History:   %d/%d entries, latest %s\n", r.HistorySize, r.HistoryLimit, latest)
	if r.DoneToday {
		fmt.Fprintf(w, "  Today:     %s %s\n", r.Today, color.New(color.FgGreen).Sprint("done"))
	} else {
		fmt.Fprintf(w, "  Today:     %s %s\n", r.Today, color.New(color.FgYellow).Sprint("pending"))
	}
	fmt.Fprintf(w, "  Coverage:  %d/%d topics\n", r.Covered, r.CatalogSize)

	if r.Next == nil {
		fmt.Fprintf(w, "  Next:      %s\n", color.New(color.FgRed).Sprint("catalog is empty"))
		return
	}
	c := r.Next.Candidate
	fmt.Fprintf(w, "  Next:      %s [%s] (%s)\n", c.Title, c.ID, r.Next.Reason)
	fmt.Fprintf(w, "             %s / %s, %s\n", c.Level, c.Category, catalog.DifficultyLabel(c.Difficulty))
	if r.Next.LastUsed != "" {
		fmt.Fprintf(w, "             last used %s\n", r.Next.LastUsed)
	}

	s := r.Score
	fmt.Fprintf(w, "  Score:     %.3f\n", s.Score)
	fmt.Fprintf(w, "    progress %.2f  coverage %.2f  relation %.2f  diversity %.2f\n",
		s.Progress, s.Coverage, s.Relation, s.Diversity)
	fmt.Fprintf(w, "    cooldown -%.2f  difficulty gap -%.2f\n", s.Cooldown, s.DifficultyGap)
}
