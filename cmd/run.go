package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/config"
	"wealth/daily/internal/gitsync"
	"wealth/daily/internal/history"
	"wealth/daily/internal/llm"
	"wealth/daily/internal/logging"
	"wealth/daily/internal/orchestrate"
	"wealth/daily/internal/pipeline"
	"wealth/daily/internal/selector"
)

var (
	runDryRun bool
	runCommit bool
	runDate   string
	runJSON   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate today's lesson and append it to the history",
	Long: `Selects the next catalog topic, runs the blueprint -> draft -> critique
(-> revise) pipeline with up to three attempts, and persists the lesson at
the front of finance-daily.json, rolling overflow into archive/YYYY-MM.json.

Running twice on the same day is a no-op. --dry-run prints the entry and
writes nothing.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runDate != "" {
			if _, err := time.Parse(history.DateLayout, runDate); err != nil {
				return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
			}
		}
		if runCommit && runDryRun {
			return fmt.Errorf("--commit and --dry-run are mutually exclusive")
		}

		ocfg, err := orchestrateConfig(settings)
		if err != nil {
			return err
		}
		ocfg.DryRun = runDryRun
		ocfg.Date = runDate

		var before *gitsync.State
		if runCommit {
			if before, err = gitsync.Capture(ctx, settings.Paths.Root); err != nil {
				return fmt.Errorf("--commit: %w", err)
			}
		}

		store := history.NewStore(settings.HistoryPath(), settings.ArchivePath(), settings.History.Limit)
		gen := &lessonGenerator{cfg: settings, log: logger}
		result, runErr := orchestrate.New(ocfg, store, gen, logger).Run(ctx)

		if runErr == nil && runCommit && result.Status == orchestrate.StatusSuccess {
			after, err := gitsync.Capture(ctx, settings.Paths.Root)
			if err != nil {
				return err
			}
			committer := &gitsync.Committer{RepoDir: settings.Paths.Root, Log: logger}
			committed, err := committer.Commit(ctx, result.Date, before, after, result.Files)
			if err != nil {
				return err
			}
			result.Files = committed
		}

		if runJSON || runDryRun {
			if result != nil && (runErr == nil || runJSON) {
				if err := writeRunJSON(os.Stdout, result, runDryRun && !runJSON); err != nil {
					return err
				}
			}
			return runErr
		}
		if result != nil {
			printRunResult(os.Stdout, result, runErr)
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Generate and print the entry without writing")
	runCmd.Flags().BoolVar(&runCommit, "commit", false, "Commit the changed data files to git after persisting")
	runCmd.Flags().StringVar(&runDate, "date", "", "Override today's date (YYYY-MM-DD)")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "Print the run result as JSON")
	rootCmd.AddCommand(runCmd)
}

// lessonGenerator builds the LLM client on first use, so a run the
// same-day guard turns into a no-op needs no credentials.
type lessonGenerator struct {
	cfg *config.Config
	log *logging.Logger
	gen *pipeline.Pipeline
}

func (g *lessonGenerator) Run(ctx context.Context, c catalog.Candidate) (*pipeline.Result, error) {
	if g.gen == nil {
		if err := g.cfg.RequireCredentials(); err != nil {
			return nil, err
		}
		client, err := llm.New(llm.Config{
			BaseURL:   g.cfg.LLM.BaseURL,
			APIKey:    g.cfg.LLM.APIKey,
			Model:     g.cfg.LLM.Model,
			Timeout:   g.cfg.LLMTimeout(),
			MaxTokens: g.cfg.LLM.MaxTokens,
		})
		if err != nil {
			return nil, err
		}
		g.gen = pipeline.New(client, pipelineConfig(g.cfg), g.log)
	}
	return g.gen.Run(ctx, c)
}

func orchestrateConfig(cfg *config.Config) (orchestrate.Config, error) {
	loc, err := cfg.Location()
	if err != nil {
		return orchestrate.Config{}, err
	}
	o := orchestrate.DefaultConfig()
	o.CatalogPath = cfg.CatalogPath()
	o.MaxAttempts = cfg.Retry.MaxAttempts
	o.ShortBackoff = cfg.ShortBackoff()
	o.LongBackoff = cfg.LongBackoff()
	o.Location = loc
	o.CooldownDays = cfg.Selector.CooldownDays
	o.Weights = selectorWeights(cfg)
	return o, nil
}

func pipelineConfig(cfg *config.Config) pipeline.Config {
	p := pipeline.DefaultConfig()
	p.Temperature = cfg.LLM.Temperature
	p.CritiqueTemperature = cfg.LLM.CritiqueTemperature
	p.MaxTokens = cfg.LLM.MaxTokens
	p.ReviseThreshold = cfg.Pipeline.ReviseThreshold
	p.MinSummaryWords = cfg.Pipeline.MinSummaryWords
	p.MaxSummaryWords = cfg.Pipeline.MaxSummaryWords
	return p
}

func selectorWeights(cfg *config.Config) selector.Weights {
	w := cfg.Selector.Weights
	return selector.Weights{
		Progress:      w.Progress,
		Coverage:      w.Coverage,
		Relation:      w.Relation,
		Diversity:     w.Diversity,
		Cooldown:      w.Cooldown,
		DifficultyGap: w.DifficultyGap,
	}
}

// writeRunJSON prints just the entry when entryOnly is set and the whole
// result otherwise.
func writeRunJSON(w io.Writer, r *orchestrate.RunResult, entryOnly bool) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if entryOnly {
		return enc.Encode(r.Entry)
	}
	return enc.Encode(r)
}

func printRunResult(w io.Writer, r *orchestrate.RunResult, runErr error) {
	switch r.Status {
	case orchestrate.StatusSuccess:
		fmt.Fprintf(w, "%s %s\n", color.New(color.FgGreen).Sprint("GENERATED"), r.Date)
	case orchestrate.StatusSkipped:
		fmt.Fprintf(w, "%s %s already has a lesson\n", color.New(color.FgYellow).Sprint("SKIPPED  "), r.Date)
		return
	default:
		fmt.Fprintf(w, "%s %s: %v\n", color.New(color.FgRed).Sprint("FAILED   "), r.Date, runErr)
	}

	if r.Candidate != nil {
		fmt.Fprintf(w, "  Topic:     %s (%s, %s)\n", r.Candidate.Title, r.Candidate.ID, r.Reason)
	}
	if r.Entry != nil && r.Entry.Topic != "" {
		fmt.Fprintf(w, "  Title:     %s\n", orchestrate.TruncateMiddle(r.Entry.Topic, 72))
	}
	if r.Attempts > 0 {
		revised := ""
		if r.Revised {
			revised = ", revised"
		}
		fmt.Fprintf(w, "  Attempts:  %d (critique %.1f%s)\n", r.Attempts, r.CritiqueScore, revised)
	}
	months := make([]string, 0, len(r.Archived))
	for m := range r.Archived {
		months = append(months, m)
	}
	sort.Strings(months)
	for _, m := range months {
		fmt.Fprintf(w, "  Archived:  %d -> %s.json\n", r.Archived[m], m)
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s %s\n", color.New(color.FgYellow).Sprint("warning:"), warn)
	}
	if len(r.Files) > 0 {
		fmt.Fprintf(w, "  Files:     %s\n", strings.Join(r.Files, ", "))
	}
	fmt.Fprintf(w, "  Duration:  %s\n", orchestrate.FormatElapsed(r.Duration))
}
