package scoring

import (
	"context"
	"log/slog"

	apperrors "github.com/ybbu/NexJen-Bio/internal/errors"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// PublicationSource looks up journal names for publications tied to a
// trial. Implementations are expected to be best-effort: a returned
// error marks the lookup failed but never blocks scoring.
type PublicationSource interface {
	Name() string
	Journals(ctx context.Context, rec *trials.Record) ([]string, error)
}

// FailureRecorder receives lookup failures so batch runs can persist
// them for later inspection.
type FailureRecorder interface {
	Record(nctID, lookupType string, err error, details map[string]string)
}

// Scorer computes quality scores for registry records. Publication
// sources and the failure recorder are optional; with neither set the
// scorer is fully offline and deterministic.
type Scorer struct {
	store    *trials.Store
	sources  []PublicationSource
	failures FailureRecorder
	logger   *slog.Logger
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithPublicationSources attaches literature lookups used for the
// publication quality bonus.
func WithPublicationSources(sources ...PublicationSource) Option {
	return func(s *Scorer) {
		s.sources = append(s.sources, sources...)
	}
}

// WithFailureRecorder attaches a sink for failed lookups.
func WithFailureRecorder(rec FailureRecorder) Option {
	return func(s *Scorer) {
		s.failures = rec
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scorer) {
		s.logger = logger
	}
}

// NewScorer creates a Scorer over a loaded registry snapshot.
func NewScorer(store *trials.Store, opts ...Option) *Scorer {
	s := &Scorer{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Score computes the full score for one trial by NCT ID.
func (s *Scorer) Score(ctx context.Context, nctID string) (*TrialScore, error) {
	rec := s.store.ByID(nctID)
	if rec == nil {
		return nil, apperrors.NewNotFoundError("trial", nctID)
	}
	return s.ScoreRecord(ctx, rec), nil
}

// ScoreRecord computes the full score for an already-resolved record.
func (s *Scorer) ScoreRecord(ctx context.Context, rec *trials.Record) *TrialScore {
	components := Components{
		OutcomeEvidence:       outcomeEvidence(rec),
		PhasePrior:            phasePrior(rec),
		SponsorTrackRecord:    sponsorTrackRecord(rec),
		StudyDesignIntegrity:  studyDesignIntegrity(rec),
		EnrollmentFulfillment: enrollmentFulfillment(rec),
		ExternalValidity:      externalValidity(rec),
	}

	bonuses := Bonuses{
		RegulatoryAcceleration: regulatoryAccelerationBonus(rec),
		HighImpactPublication:  s.publicationBonus(ctx, rec),
		DataSharing:            dataSharingBonus(rec),
	}

	penalties := Penalties{
		Termination: terminationPenalty(rec),
	}

	score := &TrialScore{
		NCTID:      rec.NCTID,
		Components: components,
		Bonuses:    bonuses,
		Penalties:  penalties,
	}

	s.logger.Debug("scored trial",
		"nct_id", rec.NCTID,
		"base_score", score.BaseScore(),
		"total_score", score.TotalScore(),
		"interpretation", score.Interpretation())

	return score
}

// publicationBonus merges journal lookups across all configured
// sources and awards the bonus on the count of high-impact venues.
// Source failures degrade to a zero bonus rather than failing the
// score.
func (s *Scorer) publicationBonus(ctx context.Context, rec *trials.Record) float64 {
	if len(s.sources) == 0 {
		return 0
	}

	highImpact := 0

	for _, source := range s.sources {
		journals, err := source.Journals(ctx, rec)
		if err != nil {
			s.logger.Warn("publication lookup failed",
				"source", source.Name(),
				"nct_id", rec.NCTID,
				"error", err)
			if s.failures != nil {
				s.failures.Record(rec.NCTID, source.Name(), err, map[string]string{
					"title": rec.BriefTitle,
				})
			}
			continue
		}

		// Counted per publication: two papers in the same venue are
		// two pieces of high-impact evidence.
		for _, journal := range journals {
			name := parseJournalName(journal)
			if name != "" && isHighImpactJournal(name) {
				highImpact++
			}
		}
	}

	switch {
	case highImpact >= 2:
		return publicationBonusMajor
	case highImpact == 1:
		return publicationBonusMinor
	default:
		return 0
	}
}

const (
	publicationBonusMajor = 0.5
	publicationBonusMinor = 0.3
)
