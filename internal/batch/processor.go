// Package batch runs the quality scorer over every interventional
// trial, merging results into the persisted score map and appending
// one breakdown record per trial to a per-run log.
package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/ybbu/NexJen-Bio/internal/errors"
	"github.com/ybbu/NexJen-Bio/internal/publications"
	"github.com/ybbu/NexJen-Bio/internal/scoring"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// FailureReasonNotFound is the category recorded when a trial id from
// the iteration set has no backing row.
const FailureReasonNotFound = "not found"

// Summary is the result of one batch run.
type Summary struct {
	RunID          string         `json:"run_id"`
	Processed      int            `json:"processed"`
	Failed         int            `json:"failed"`
	FailureCounts  map[string]int `json:"failure_counts"`
	LookupFailures map[string]int `json:"lookup_failures,omitempty"`
	ScoresPath     string         `json:"scores_path"`
	BreakdownsPath string         `json:"breakdowns_path"`
}

// Processor orchestrates a full scoring pass. Runs are single-pass and
// synchronous; re-running merges into the existing score map while the
// breakdown log is truncated per run.
type Processor struct {
	store          *trials.Store
	scorer         *scoring.Scorer
	failures       *publications.FailureLog
	scoresPath     string
	breakdownsPath string
	logger         *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithFailureLog attaches the lookup-failure log whose per-category
// counts are folded into the run summary.
func WithFailureLog(log *publications.FailureLog) Option {
	return func(p *Processor) { p.failures = log }
}

// WithLogger overrides the default slog logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor creates a Processor writing the score map and breakdown
// log to the given paths.
func NewProcessor(store *trials.Store, scorer *scoring.Scorer, scoresPath, breakdownsPath string, opts ...Option) *Processor {
	p := &Processor{
		store:          store,
		scorer:         scorer,
		scoresPath:     scoresPath,
		breakdownsPath: breakdownsPath,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

type scoreTotals struct {
	BaseScore      float64 `json:"base_score"`
	TotalBonuses   float64 `json:"total_bonuses"`
	TotalPenalties float64 `json:"total_penalties"`
	FinalScore     float64 `json:"final_score"`
}

type breakdownRecord struct {
	NCTID          string             `json:"nct_id"`
	Timestamp      string             `json:"timestamp"`
	BaseComponents scoring.Components `json:"base_components"`
	Bonuses        scoring.Bonuses    `json:"bonuses"`
	Penalties      scoring.Penalties  `json:"penalties"`
	Scores         scoreTotals        `json:"scores"`
}

// Run scores every interventional trial. Lookup failures and missing
// rows degrade or skip per trial; only persistence failures abort the
// run.
func (p *Processor) Run(ctx context.Context) (*Summary, error) {
	runID := uuid.NewString()
	subset := p.store.Interventional()

	p.logger.Info("batch scoring started",
		"run_id", runID,
		"trials", len(subset))

	existing, err := loadScoreMap(p.scoresPath)
	if err != nil {
		return nil, err
	}

	breakdowns, err := os.Create(p.breakdownsPath)
	if err != nil {
		return nil, apperrors.NewPersistenceError(p.breakdownsPath, err)
	}
	defer apperrors.SafeClose(breakdowns, p.breakdownsPath)
	enc := json.NewEncoder(breakdowns)

	summary := &Summary{
		RunID:          runID,
		FailureCounts:  make(map[string]int),
		ScoresPath:     p.scoresPath,
		BreakdownsPath: p.breakdownsPath,
	}

	for i, rec := range subset {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		score, err := p.scorer.Score(ctx, rec.NCTID)
		if err != nil {
			summary.Failed++
			reason := "error"
			if apperrors.IsNotFound(err) {
				reason = FailureReasonNotFound
			}
			summary.FailureCounts[reason]++
			p.logger.Warn("trial scoring failed",
				"nct_id", rec.NCTID, "reason", reason, "error", err)
			continue
		}

		now := time.Now().Format(time.RFC3339)
		existing[rec.NCTID] = scoreEntry(score, now)

		if err := enc.Encode(breakdown(score, now)); err != nil {
			return nil, apperrors.NewPersistenceError(p.breakdownsPath, err)
		}

		summary.Processed++
		if (i+1)%100 == 0 {
			p.logger.Info("batch progress",
				"run_id", runID, "done", i+1, "total", len(subset))
		}
	}

	if err := writeScoreMap(p.scoresPath, existing); err != nil {
		return nil, err
	}

	if p.failures != nil {
		summary.LookupFailures = p.failures.Summary()
	}

	p.logger.Info("batch scoring finished",
		"run_id", runID,
		"processed", summary.Processed,
		"failed", summary.Failed)

	return summary, nil
}

func scoreEntry(score *scoring.TrialScore, timestamp string) trials.ScoreEntry {
	return trials.ScoreEntry{
		BaseScore:  score.BaseScore(),
		TotalScore: score.TotalScore(),
		Components: map[string]float64{
			"outcome_evidence":       score.Components.OutcomeEvidence,
			"phase_prior":            score.Components.PhasePrior,
			"sponsor_track_record":   score.Components.SponsorTrackRecord,
			"study_design_integrity": score.Components.StudyDesignIntegrity,
			"enrollment_fulfillment": score.Components.EnrollmentFulfillment,
			"external_validity":      score.Components.ExternalValidity,
		},
		Bonuses: map[string]float64{
			"regulatory_acceleration_bonus": score.Bonuses.RegulatoryAcceleration,
			"high_impact_publication_bonus": score.Bonuses.HighImpactPublication,
			"data_sharing_bonus":            score.Bonuses.DataSharing,
		},
		Penalties: map[string]float64{
			"termination_penalty": score.Penalties.Termination,
		},
		Timestamp: timestamp,
	}
}

func breakdown(score *scoring.TrialScore, timestamp string) breakdownRecord {
	return breakdownRecord{
		NCTID:          score.NCTID,
		Timestamp:      timestamp,
		BaseComponents: score.Components,
		Bonuses:        score.Bonuses,
		Penalties:      score.Penalties,
		Scores: scoreTotals{
			BaseScore:      score.BaseScore(),
			TotalBonuses:   score.Bonuses.Sum(),
			TotalPenalties: score.Penalties.Termination,
			FinalScore:     score.TotalScore(),
		},
	}
}

// loadScoreMap reads a prior run's score map; a missing file starts an
// empty map.
func loadScoreMap(path string) (map[string]trials.ScoreEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[string]trials.ScoreEntry{}, nil
	}
	if err != nil {
		return nil, apperrors.NewPersistenceError(path, err)
	}

	out := map[string]trials.ScoreEntry{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, apperrors.NewPersistenceError(path, fmt.Errorf("parsing score map: %w", err))
	}
	return out, nil
}

// writeScoreMap replaces the score map atomically: full marshal to a
// temp file in the same directory, then rename over the target.
func writeScoreMap(path string, entries map[string]trials.ScoreEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return apperrors.NewPersistenceError(path, err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".quality_scores-*.json")
	if err != nil {
		return apperrors.NewPersistenceError(path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.NewPersistenceError(path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.NewPersistenceError(path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.NewPersistenceError(path, err)
	}
	return nil
}
