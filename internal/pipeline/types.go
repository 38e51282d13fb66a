package pipeline

import (
	"fmt"
	"time"

	"wealth/daily/internal/history"
)

// Stage names one model round trip.
type Stage string

const (
	StageBlueprint Stage = "blueprint"
	StageDraft     Stage = "draft"
	StageCritique  Stage = "critique"
	StageRevise    Stage = "revise"
)

// Outcome tags how a stage ended.
type Outcome string

const (
	OutcomeOK               Outcome = "ok"
	OutcomeTransportFailure Outcome = "transport_failure"
	OutcomeParseFailure     Outcome = "parse_failure"
	OutcomeSchemaMismatch   Outcome = "schema_mismatch"
)

// StageResult records one stage. Object holds the decoded payload when
// Outcome is ok.
type StageResult struct {
	Stage    Stage                  `json:"stage"`
	Outcome  Outcome                `json:"outcome"`
	Duration time.Duration          `json:"duration"`
	Raw      string                 `json:"-"`
	Object   map[string]interface{} `json:"-"`
	Err      error                  `json:"-"`
}

// StageError aborts a generation attempt.
type StageError struct {
	Stage   Stage
	Outcome Outcome
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage: %s: %v", e.Stage, e.Outcome, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// Blueprint is the structural outline {hook, core_concept, why_it_matters,
// key_insights, actionable_practice, shadow_side, references}. It is only
// re-embedded in the draft prompt, so it stays loosely typed.
type Blueprint map[string]interface{}

// Draft is the model's lesson proposal {topic, summary, key_points,
// practice, risk_notes, sources}. Field shapes vary and are normalized by
// Coerce.
type Draft map[string]interface{}

// Critique is the reviewer's verdict on a draft.
type Critique struct {
	Critique string  `json:"critique"`
	Score    float64 `json:"score"`
}

// Lesson is a coerced draft, ready to be stamped into a history entry.
type Lesson struct {
	Topic     string             `json:"topic"`
	Summary   string             `json:"summary"`
	KeyPoints []string           `json:"key_points"`
	Practice  []history.Practice `json:"practice"`
	RiskNotes string             `json:"risk_notes"`
	Sources   []history.Source   `json:"sources"`
}

// Result is a successful pipeline run.
type Result struct {
	Lesson   Lesson        `json:"lesson"`
	Revised  bool          `json:"revised"`
	Score    float64       `json:"score"`
	Critique string        `json:"critique"`
	Stages   []StageResult `json:"stages"`
	Warnings []string      `json:"warnings,omitempty"`
}
