// Package orchestrate runs one daily-lesson generation: guard against a
// second run on the same day, pick a candidate, generate with bounded
// retries, then prepend, roll and persist the history.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/config"
	"wealth/daily/internal/history"
	"wealth/daily/internal/llm"
	"wealth/daily/internal/logging"
	"wealth/daily/internal/pipeline"
	"wealth/daily/internal/selector"
)

// Orchestrator owns the in-memory history list for the duration of a run.
type Orchestrator struct {
	cfg   Config
	store *history.Store
	gen   Generator
	log   *logging.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// Option customizes an Orchestrator. Tests use them to fake time and ids.
type Option func(*Orchestrator)

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *Orchestrator) { o.sleep = sleep }
}

func WithIDs(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func New(cfg Config, store *history.Store, gen Generator, log *logging.Logger, opts ...Option) *Orchestrator {
	if log == nil {
		log = logging.Nop()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	o := &Orchestrator{
		cfg:   cfg,
		store: store,
		gen:   gen,
		log:   log,
		now:   time.Now,
		sleep: sleepCtx,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes one generation. On failure the returned result carries
// StatusFailed together with the error, and nothing has been written.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	start := o.now()
	result := &RunResult{Status: StatusFailed}
	result.enter(StateIdle)
	defer func() { result.Duration = o.now().Sub(start) }()

	// --- check_already_generated ---
	result.enter(StateCheckAlreadyGenerated)
	today, err := o.today()
	if err != nil {
		return result, err
	}
	result.Date = today

	items, err := o.store.Load()
	if err != nil {
		return result, fmt.Errorf("loading history: %w", err)
	}
	if hasDate(items, today) {
		if !o.cfg.DryRun {
			o.log.Info("lesson already generated, nothing to do", "date", today)
			result.Status = StatusSkipped
			result.enter(StateDone)
			return result, nil
		}
		o.log.Info("lesson already generated, continuing dry run", "date", today)
	}
	if latest := history.LatestDate(items); latest > today && !o.cfg.DryRun {
		return result, fmt.Errorf("date %s is older than the newest entry %s", today, latest)
	}

	// --- select_candidate ---
	result.enter(StateSelectCandidate)
	candidates, err := catalog.Load(o.cfg.CatalogPath)
	if err != nil {
		return result, err
	}
	sel, err := selector.Select(candidates, items)
	if err != nil {
		return result, err
	}
	cand := sel.Candidate
	day, err := time.ParseInLocation(history.DateLayout, today, o.cfg.Location)
	if err != nil {
		return result, err
	}
	score := selector.Score(cand, items, day, o.cfg.CooldownDays, o.cfg.Weights)
	result.Candidate = &cand
	result.Reason = sel.Reason
	result.Score = &score
	o.log.Info("candidate selected",
		"id", cand.ID,
		"title", cand.Title,
		"reason", sel.Reason,
		"last_used", sel.LastUsed,
		"score", fmt.Sprintf("%.3f", score.Score))

	// --- generate_pipeline ---
	gen, err := o.generate(ctx, cand, result)
	if err != nil {
		return result, err
	}
	result.Revised = gen.Revised
	result.CritiqueScore = gen.Score
	result.Warnings = gen.Warnings

	// --- coerce ---
	result.enter(StateCoerce)
	entry := BuildEntry(o.newID(), today, sel, gen.Lesson)
	result.Entry = &entry

	if o.cfg.DryRun {
		o.log.Info("dry run, not persisting", "date", today, "id", entry.ID)
		result.Status = StatusDryRun
		result.enter(StateDone)
		return result, nil
	}

	// --- update_history / persist ---
	result.enter(StateUpdateHistory)
	result.enter(StatePersist)
	kept, commit, err := o.store.Commit(items, entry)
	if err != nil {
		return result, fmt.Errorf("persisting history: %w", err)
	}
	result.Archived = commit.Archived
	result.Files = commit.Files

	o.log.Info("lesson persisted",
		"date", today,
		"topic", TruncateMiddle(entry.Topic, 80),
		"history_size", len(kept),
		"archived", commit.Archived,
		"elapsed", FormatElapsed(o.now().Sub(start)))

	result.Status = StatusSuccess
	result.enter(StateDone)
	return result, nil
}

// generate runs the pipeline up to MaxAttempts times on the same candidate.
// Backoff is ShortBackoff before the first retry and LongBackoff after.
func (o *Orchestrator) generate(ctx context.Context, cand catalog.Candidate, result *RunResult) (*pipeline.Result, error) {
	maxAttempts := o.cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result.enter(StateGeneratePipeline)
		result.Attempts = attempt

		res, err := o.gen.Run(ctx, cand)
		if err == nil {
			o.log.Info("generation succeeded",
				"attempt", attempt,
				"revised", res.Revised,
				"critique_score", res.Score)
			return res, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			return nil, fmt.Errorf("generation failed (not retryable): %w", err)
		}
		if attempt == maxAttempts {
			break
		}

		backoff := o.cfg.LongBackoff
		if attempt == 1 {
			backoff = o.cfg.ShortBackoff
		}
		o.log.Warn("generation attempt failed, retrying",
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"backoff", FormatElapsed(backoff),
			"error", err)
		if err := o.sleep(ctx, backoff); err != nil {
			return nil, fmt.Errorf("waiting to retry: %w", err)
		}
	}
	return nil, fmt.Errorf("generation failed after %d attempts: %w", maxAttempts, lastErr)
}

func (o *Orchestrator) today() (string, error) {
	if o.cfg.Date != "" {
		t, err := time.Parse(history.DateLayout, o.cfg.Date)
		if err != nil {
			return "", fmt.Errorf("invalid date %q: %w", o.cfg.Date, err)
		}
		return t.Format(history.DateLayout), nil
	}
	return o.now().In(o.cfg.Location).Format(history.DateLayout), nil
}

func hasDate(items []history.Entry, date string) bool {
	for _, e := range items {
		if e.Date == date {
			return true
		}
	}
	return false
}

// BuildEntry stamps a coerced lesson with identity, date and catalog
// metadata. An empty topic falls back to the candidate title.
func BuildEntry(id, date string, sel selector.Selection, l pipeline.Lesson) history.Entry {
	c := sel.Candidate
	topic := strings.TrimSpace(l.Topic)
	if topic == "" {
		topic = c.Title
	}
	related := c.Related
	if related == nil {
		related = []string{}
	}
	return history.Entry{
		ID:        id,
		Date:      date,
		Topic:     topic,
		Summary:   l.Summary,
		KeyPoints: l.KeyPoints,
		Practice:  l.Practice,
		RiskNotes: l.RiskNotes,
		Sources:   l.Sources,
		Meta: history.Meta{
			ID:         c.ID,
			Category:   c.Category,
			Difficulty: c.Difficulty,
			Level:      c.Level,
			Related:    related,
			Tags:       []string{c.Category, catalog.DifficultyLabel(c.Difficulty)},
			Recycled:   sel.Recycled,
		},
	}
}

// IsRetryable reports whether a failed attempt should be retried. Config
// errors, an empty catalog and cancellation never are. Transport failures
// defer to llm.IsRetryable; parse and schema failures always retry.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) ||
		errors.Is(err, config.ErrMissingCredential) ||
		errors.Is(err, llm.ErrNoAPIKey) ||
		errors.Is(err, selector.ErrNoCandidate) {
		return false
	}
	var se *pipeline.StageError
	if errors.As(err, &se) {
		if se.Outcome == pipeline.OutcomeTransportFailure {
			return llm.IsRetryable(se.Err)
		}
		return true
	}
	return llm.IsRetryable(err)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
