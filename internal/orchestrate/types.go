package orchestrate

import (
	"context"
	"time"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/history"
	"wealth/daily/internal/pipeline"
	"wealth/daily/internal/selector"
)

// State is a step of a run.
type State string

const (
	StateIdle                  State = "idle"
	StateCheckAlreadyGenerated State = "check_already_generated"
	StateSelectCandidate       State = "select_candidate"
	StateGeneratePipeline      State = "generate_pipeline"
	StateCoerce                State = "coerce"
	StateUpdateHistory         State = "update_history"
	StatePersist               State = "persist"
	StateDone                  State = "done"
)

// RunStatus is the outcome of a run
type RunStatus string

const (
	StatusSuccess RunStatus = "success"
	StatusSkipped RunStatus = "skipped" // today's entry already exists
	StatusDryRun  RunStatus = "dry_run"
	StatusFailed  RunStatus = "failed"
)

// Generator produces lesson content for a candidate. *pipeline.Pipeline
// satisfies it.
type Generator interface {
	Run(ctx context.Context, c catalog.Candidate) (*pipeline.Result, error)
}

// Config controls a run.
type Config struct {
	CatalogPath  string
	MaxAttempts  int           // pipeline attempts per run (default 3)
	ShortBackoff time.Duration // before the first retry
	LongBackoff  time.Duration // before every later retry
	DryRun       bool          // generate and print, never persist
	Date         string        // YYYY-MM-DD override for "today"
	Location     *time.Location
	CooldownDays int
	Weights      selector.Weights
}

// DefaultConfig returns production defaults
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		ShortBackoff: 5 * time.Second,
		LongBackoff:  20 * time.Second,
		Location:     time.Local,
		CooldownDays: 14,
		Weights:      selector.DefaultWeights(),
	}
}

// RunResult is the full outcome of a run
type RunResult struct {
	Status        RunStatus                `json:"status"`
	Date          string                   `json:"date"`
	Candidate     *catalog.Candidate       `json:"candidate,omitempty"`
	Reason        selector.Reason          `json:"reason,omitempty"`
	Score         *selector.ScoreBreakdown `json:"score,omitempty"`
	Attempts      int                      `json:"attempts"`
	Revised       bool                     `json:"revised"`
	CritiqueScore float64                  `json:"critique_score"`
	Warnings      []string                 `json:"warnings,omitempty"`
	Entry         *history.Entry           `json:"entry,omitempty"`
	Archived      map[string]int           `json:"archived,omitempty"`
	Files         []string                 `json:"files,omitempty"`
	States        []State                  `json:"states"`
	Duration      time.Duration            `json:"duration"`
}

func (r *RunResult) enter(s State) {
	r.States = append(r.States, s)
}
