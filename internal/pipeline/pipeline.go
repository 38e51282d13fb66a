// Package pipeline generates one lesson through four sequential model
// stages: blueprint, draft, critique and a conditional revise.
package pipeline

import (
	"context"
	"time"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/llm"
	"wealth/daily/internal/logging"
)

// Config holds pipeline parameters.
type Config struct {
	Temperature         float64
	CritiqueTemperature float64
	MaxTokens           int
	ReviseThreshold     float64
	MinSummaryWords     int
	MaxSummaryWords     int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Temperature:         0.7,
		CritiqueTemperature: 0.2,
		MaxTokens:           2048,
		ReviseThreshold:     9,
		MinSummaryWords:     300,
		MaxSummaryWords:     450,
	}
}

// Pipeline runs the stages against a Completer.
type Pipeline struct {
	llm llm.Completer
	cfg Config
	log *logging.Logger
	now func() time.Time
}

func New(c llm.Completer, cfg Config, log *logging.Logger) *Pipeline {
	if log == nil {
		log = logging.Nop()
	}
	return &Pipeline{llm: c, cfg: cfg, log: log, now: time.Now}
}

// Run generates a lesson for c. Any stage failure returns a *StageError and
// no partial result.
func (p *Pipeline) Run(ctx context.Context, c catalog.Candidate) (*Result, error) {
	res := &Result{}
	log := p.log.With("topic_id", c.ID)

	bpObj, err := p.stage(ctx, res, StageBlueprint, blueprintSystem, blueprintPrompt(c), p.cfg.Temperature)
	if err != nil {
		return nil, err
	}
	bp := Blueprint(bpObj)

	draftObj, err := p.stage(ctx, res, StageDraft, draftSystem, draftPrompt(c, bp), p.cfg.Temperature)
	if err != nil {
		return nil, err
	}
	draft := Draft(draftObj)

	critObj, err := p.stage(ctx, res, StageCritique, critiqueSystem, critiquePrompt(c, draft), p.cfg.CritiqueTemperature)
	if err != nil {
		return nil, err
	}
	crit, err := ParseCritique(critObj)
	if err != nil {
		last := &res.Stages[len(res.Stages)-1]
		last.Outcome = OutcomeSchemaMismatch
		last.Err = err
		return nil, &StageError{Stage: StageCritique, Outcome: OutcomeSchemaMismatch, Err: err}
	}
	res.Score = crit.Score
	res.Critique = crit.Critique

	final := draft
	if crit.Score < p.cfg.ReviseThreshold {
		log.Info("critique below threshold, revising", "score", crit.Score, "threshold", p.cfg.ReviseThreshold)
		revObj, err := p.stage(ctx, res, StageRevise, reviseSystem, revisePrompt(c, draft, crit), p.cfg.Temperature)
		if err != nil {
			return nil, err
		}
		final = Draft(revObj)
		res.Revised = true
	} else {
		log.Debug("critique passed, keeping draft", "score", crit.Score)
	}

	res.Lesson = Coerce(final)
	if w := summaryWarning(res.Lesson.Summary, p.cfg.MinSummaryWords, p.cfg.MaxSummaryWords); w != "" {
		res.Warnings = append(res.Warnings, w)
		log.Warn("summary length out of range", "detail", w)
	}
	return res, nil
}

// stage performs one round trip and records its StageResult.
func (p *Pipeline) stage(ctx context.Context, res *Result, stage Stage, system, user string, temperature float64) (map[string]interface{}, error) {
	start := p.now()
	raw, err := p.llm.Complete(ctx, llm.Request{
		System:      system,
		User:        user,
		Temperature: temperature,
		MaxTokens:   p.cfg.MaxTokens,
	})
	sr := StageResult{Stage: stage, Raw: raw, Duration: p.now().Sub(start)}

	if err != nil {
		sr.Outcome = OutcomeTransportFailure
		sr.Err = err
		res.Stages = append(res.Stages, sr)
		p.log.Warn("stage failed", "stage", stage, "outcome", sr.Outcome, "error", err)
		return nil, &StageError{Stage: stage, Outcome: sr.Outcome, Err: err}
	}

	obj, outcome, err := ParseObject(raw)
	sr.Outcome = outcome
	sr.Err = err
	sr.Object = obj
	res.Stages = append(res.Stages, sr)
	if err != nil {
		p.log.Warn("stage failed", "stage", stage, "outcome", outcome, "error", err, "raw_len", len(raw))
		return nil, &StageError{Stage: stage, Outcome: outcome, Err: err}
	}
	p.log.Debug("stage complete", "stage", stage, "duration_ms", sr.Duration.Milliseconds())
	return obj, nil
}
