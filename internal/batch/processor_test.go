package batch

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ybbu/NexJen-Bio/internal/errors"
	"github.com/ybbu/NexJen-Bio/internal/publications"
	"github.com/ybbu/NexJen-Bio/internal/scoring"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

func testStore() *trials.Store {
	return trials.NewStore([]*trials.Record{
		{
			NCTID:               "NCT00000001",
			StudyType:           "INTERVENTIONAL",
			Phases:              "PHASE3",
			OverallStatus:       "COMPLETED",
			LeadSponsor:         "Pfizer Inc.",
			Allocation:          "RANDOMIZED, PARALLEL",
			Masking:             "DOUBLE",
			PrimaryOutcomes:     "All-cause mortality, positive interim analysis",
			EligibilityCriteria: "Adults aged 18-75, male and female participants",
			EnrollmentCount:     350,
		},
		{
			NCTID:           "NCT00000002",
			StudyType:       "INTERVENTIONAL",
			Phases:          "PHASE2",
			OverallStatus:   "TERMINATED",
			BriefSummary:    "Stopped early due to adverse events",
			EnrollmentCount: 40,
		},
		{
			NCTID:     "NCT00000003",
			StudyType: "OBSERVATIONAL",
			Phases:    "PHASE4",
		},
	})
}

func newTestProcessor(t *testing.T, opts ...Option) (*Processor, string, string) {
	t.Helper()
	dir := t.TempDir()
	scoresPath := filepath.Join(dir, "quality_scores.json")
	breakdownsPath := filepath.Join(dir, "detailed_breakdowns.jsonl")
	store := testStore()
	scorer := scoring.NewScorer(store)
	return NewProcessor(store, scorer, scoresPath, breakdownsPath, opts...), scoresPath, breakdownsPath
}

func readScoreMap(t *testing.T, path string) map[string]trials.ScoreEntry {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := map[string]trials.ScoreEntry{}
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func readBreakdowns(t *testing.T, path string) []breakdownRecord {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []breakdownRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec breakdownRecord
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestRunScoresInterventionalSubset(t *testing.T) {
	p, scoresPath, breakdownsPath := newTestProcessor(t)

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.Processed)
	assert.Zero(t, summary.Failed)

	scores := readScoreMap(t, scoresPath)
	require.Len(t, scores, 2)
	assert.NotContains(t, scores, "NCT00000003", "observational trials are not scored")

	pivotal := scores["NCT00000001"]
	assert.InDelta(t, 4.6, pivotal.BaseScore, 1e-9)
	assert.InDelta(t, 1.2, pivotal.Components["outcome_evidence"], 1e-9)
	assert.NotEmpty(t, pivotal.Timestamp)

	terminated := scores["NCT00000002"]
	assert.InDelta(t, -1.0, terminated.Penalties["termination_penalty"], 1e-9)

	breakdowns := readBreakdowns(t, breakdownsPath)
	require.Len(t, breakdowns, 2)
	first := breakdowns[0]
	assert.Equal(t, "NCT00000001", first.NCTID)
	assert.InDelta(t, 4.6, first.Scores.BaseScore, 1e-9)
	assert.InDelta(t, first.Scores.FinalScore, scores["NCT00000001"].TotalScore, 1e-9)
}

func TestRunMergesWithExistingScores(t *testing.T) {
	p, scoresPath, _ := newTestProcessor(t)

	prior := map[string]trials.ScoreEntry{
		"NCT99999999": {BaseScore: 3.1, TotalScore: 3.1, Timestamp: "2025-01-01T00:00:00Z"},
	}
	data, err := json.Marshal(prior)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(scoresPath, data, 0o644))

	_, err = p.Run(context.Background())
	require.NoError(t, err)

	scores := readScoreMap(t, scoresPath)
	require.Len(t, scores, 3)
	assert.InDelta(t, 3.1, scores["NCT99999999"].TotalScore, 1e-9, "prior entries survive the merge")
}

func TestRunTruncatesBreakdownLogPerRun(t *testing.T) {
	p, scoresPath, breakdownsPath := newTestProcessor(t)

	_, err := p.Run(context.Background())
	require.NoError(t, err)
	_, err = p.Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, readBreakdowns(t, breakdownsPath), 2, "log is per-run, not cumulative")
	assert.Len(t, readScoreMap(t, scoresPath), 2, "score map merge does not duplicate")
}

func TestRunSurfacesPersistenceFailures(t *testing.T) {
	dir := t.TempDir()
	store := testStore()
	scorer := scoring.NewScorer(store)
	p := NewProcessor(store, scorer,
		filepath.Join(dir, "quality_scores.json"),
		filepath.Join(dir, "missing", "detailed_breakdowns.jsonl"))

	_, err := p.Run(context.Background())
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.CategoryPersistence, appErr.Category)
}

func TestRunSummaryIncludesLookupFailures(t *testing.T) {
	failures := publications.NewFailureLog("")
	failures.Record("NCT00000002", "clinicaltrials_publications", assert.AnError, nil)
	failures.Record("NCT00000002", "pubmed_publications", assert.AnError, nil)
	failures.Record("NCT00000001", "pubmed_publications", assert.AnError, nil)

	p, _, _ := newTestProcessor(t, WithFailureLog(failures))

	summary, err := p.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, map[string]int{
		"clinicaltrials_publications": 1,
		"pubmed_publications":         2,
	}, summary.LookupFailures)
}

func TestRunHonorsContextCancellation(t *testing.T) {
	p, _, _ := newTestProcessor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
