package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wealth/daily/internal/catalog"
	"wealth/daily/internal/config"
	"wealth/daily/internal/history"
	"wealth/daily/internal/orchestrate"
	"wealth/daily/internal/selector"
	"wealth/daily/internal/validate"
)

func init() {
	color.NoColor = true
}

func TestWalkUp(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, config.DefaultDataDir), 0755))
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0755))

	got, err := walkUp(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestWalkUp_FallsBackToGit(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0755))
	deep := filepath.Join(root, "x")
	require.NoError(t, os.MkdirAll(deep, 0755))

	got, err := walkUp(deep)
	require.NoError(t, err)
	assert.Equal(t, root, got)
}

func TestDiscoverRoot_Priority(t *testing.T) {
	envDir := t.TempDir()
	flagDir := t.TempDir()

	old := rootDir
	t.Cleanup(func() { rootDir = old })
	rootDir = flagDir

	t.Setenv("WEALTH_DAILY_ROOT", envDir)
	got, err := DiscoverRoot()
	require.NoError(t, err)
	assert.Equal(t, envDir, got, "env wins over flag")

	t.Setenv("WEALTH_DAILY_ROOT", "")
	got, err = DiscoverRoot()
	require.NoError(t, err)
	assert.Equal(t, flagDir, got)

	rootDir = filepath.Join(flagDir, "missing")
	_, err = DiscoverRoot()
	assert.Error(t, err)
}

func TestLoadSettings(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, config.DefaultConfigFile), []byte("history:\n  limit: 30\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("DASHSCOPE_API_KEY=from-dotenv\n"), 0644))
	t.Setenv("DASHSCOPE_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	os.Unsetenv("DASHSCOPE_API_KEY")

	cfg, err := loadSettings(root, "")
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.History.Limit)
	assert.Equal(t, root, cfg.Paths.Root)
	assert.True(t, cfg.EnvLoaded)
	assert.Equal(t, "from-dotenv", cfg.LLM.APIKey)
	assert.Equal(t, filepath.Join(root, "data", "ai", "wealth", "finance-daily.json"), cfg.HistoryPath())
}

func TestLoadSettings_Invalid(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_attempts: 0\n"), 0644))
	_, err := loadSettings(root, path)
	assert.ErrorContains(t, err, "max_attempts")
}

func TestOrchestrateConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Root = "/repo"
	cfg.Retry.ShortBackoff = "1s"
	cfg.Timezone = "UTC"
	cfg.Selector.Weights.Cooldown = 0.9

	o, err := orchestrateConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, "/repo/data/ai/wealth/topics.json", o.CatalogPath)
	assert.Equal(t, 3, o.MaxAttempts)
	assert.Equal(t, time.Second, o.ShortBackoff)
	assert.Equal(t, 20*time.Second, o.LongBackoff)
	assert.Equal(t, time.UTC, o.Location)
	assert.Equal(t, 0.9, o.Weights.Cooldown)

	p := pipelineConfig(cfg)
	assert.Equal(t, 9.0, p.ReviseThreshold)
	assert.Equal(t, 0.2, p.CritiqueTemperature)
}

func TestLessonGenerator_RequiresCredentials(t *testing.T) {
	cfg := config.Default()
	gen := &lessonGenerator{cfg: cfg}
	_, err := gen.Run(context.Background(), catalog.Candidate{ID: "a"})
	assert.ErrorIs(t, err, config.ErrMissingCredential)
	assert.Nil(t, gen.gen)
}

// A day that already has a lesson is a successful no-op even without an
// API key.
func TestRun_SameDayWithoutCredentialsIsNoOp(t *testing.T) {
	root := t.TempDir()
	cfg := config.Default()
	cfg.Paths.Root = root
	require.Empty(t, cfg.LLM.APIKey)

	store := history.NewStore(cfg.HistoryPath(), cfg.ArchivePath(), cfg.History.Limit)
	require.NoError(t, store.Save([]history.Entry{{ID: "x", Date: "2026-10-18", Meta: history.Meta{ID: "a"}}}))

	ocfg, err := orchestrateConfig(cfg)
	require.NoError(t, err)
	ocfg.Date = "2026-10-18"

	res, err := orchestrate.New(ocfg, store, &lessonGenerator{cfg: cfg}, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, orchestrate.StatusSkipped, res.Status)
}

func TestWriteRunJSON(t *testing.T) {
	entry := &history.Entry{ID: "e1", Date: "2026-10-18", Topic: "复利"}
	r := &orchestrate.RunResult{Status: orchestrate.StatusDryRun, Date: "2026-10-18", Entry: entry}

	var buf bytes.Buffer
	require.NoError(t, writeRunJSON(&buf, r, true))
	var got history.Entry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "e1", got.ID)
	assert.Contains(t, buf.String(), "复利")

	buf.Reset()
	require.NoError(t, writeRunJSON(&buf, r, false))
	assert.Contains(t, buf.String(), `"status": "dry_run"`)
}

func TestPrintRunResult(t *testing.T) {
	var buf bytes.Buffer
	printRunResult(&buf, &orchestrate.RunResult{Status: orchestrate.StatusSkipped, Date: "2026-10-18"}, nil)
	assert.Equal(t, "SKIPPED   2026-10-18 already has a lesson\n", buf.String())

	buf.Reset()
	printRunResult(&buf, &orchestrate.RunResult{
		Status:    orchestrate.StatusSuccess,
		Date:      "2026-10-18",
		Candidate: &catalog.Candidate{ID: "a", Title: "Budgeting"},
		Reason:    selector.ReasonSequential,
		Attempts:  2,
		Revised:   true,
		Archived:  map[string]int{"2026-08": 1},
		Duration:  1500 * time.Millisecond,
	}, nil)
	out := buf.String()
	assert.Contains(t, out, "GENERATED 2026-10-18")
	assert.Contains(t, out, "Budgeting (a, sequential)")
	assert.Contains(t, out, "Attempts:  2 (critique 0.0, revised)")
	assert.Contains(t, out, "Archived:  1 -> 2026-08.json")

	buf.Reset()
	printRunResult(&buf, &orchestrate.RunResult{Status: orchestrate.StatusFailed, Date: "2026-10-18"}, errors.New("boom"))
	assert.Contains(t, buf.String(), "FAILED    2026-10-18: boom")
}

func TestBuildStatus(t *testing.T) {
	cands := []catalog.Candidate{
		{ID: "a", Title: "A", Difficulty: 1, Order: 1},
		{ID: "b", Title: "B", Difficulty: 2, Order: 2},
	}
	items := []history.Entry{{ID: "1", Date: "2026-10-18", Meta: history.Meta{ID: "a"}}}
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)

	r, err := buildStatus(items, cands, now, 60, 14, selector.DefaultWeights())
	require.NoError(t, err)
	assert.True(t, r.DoneToday)
	assert.Equal(t, "2026-10-18", r.LatestDate)
	assert.Equal(t, 1, r.Covered)
	assert.Equal(t, 2, r.CatalogSize)
	require.NotNil(t, r.Next)
	assert.Equal(t, "b", r.Next.Candidate.ID)
	require.NotNil(t, r.Score)

	var buf bytes.Buffer
	printStatus(&buf, r)
	assert.Contains(t, buf.String(), "History:   1/60 entries, latest 2026-10-18")
	assert.Contains(t, buf.String(), "Next:      B [b] (sequential)")
}

func TestBuildStatus_EmptyCatalog(t *testing.T) {
	r, err := buildStatus(nil, nil, time.Now(), 60, 14, selector.DefaultWeights())
	require.NoError(t, err)
	assert.Nil(t, r.Next)
	assert.False(t, r.DoneToday)

	var buf bytes.Buffer
	printStatus(&buf, r)
	assert.Contains(t, buf.String(), "catalog is empty")
}

func TestPickEntry(t *testing.T) {
	items := []history.Entry{{Date: "2026-10-18", ID: "new"}, {Date: "2026-10-17", ID: "old"}}

	e, err := pickEntry(items, "")
	require.NoError(t, err)
	assert.Equal(t, "new", e.ID)

	e, err = pickEntry(items, "2026-10-17")
	require.NoError(t, err)
	assert.Equal(t, "old", e.ID)

	_, err = pickEntry(items, "2026-01-01")
	assert.Error(t, err)
	_, err = pickEntry(nil, "")
	assert.Error(t, err)
}

func TestPrintReport(t *testing.T) {
	r := &validate.Report{Files: []validate.FileReport{
		{Path: "live.json", Entries: 2, Issues: []validate.Issue{}},
		{Path: "2026-09.json", Entries: 1, Issues: []validate.Issue{
			{Index: -1, Message: "bad name"},
			{Index: 0, Field: "date", Message: "invalid date"},
		}},
	}}
	var buf bytes.Buffer
	printReport(&buf, r)
	assert.Equal(t, "OK   live.json (2 entries)\n"+
		"FAIL 2026-09.json (2 issues)\n"+
		"     file: bad name\n"+
		"     [0] date: invalid date\n", buf.String())
}
