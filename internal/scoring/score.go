// Package scoring computes a deterministic multi-factor quality score
// for one clinical trial from its stored fields plus best-effort
// publication metadata.
package scoring

import "math"

// Component ceilings. Each rubric component is bounded independently
// of input; the base score is additionally clamped to [0, 5].
const (
	MaxOutcomeEvidence       = 1.2
	MaxPhasePrior            = 1.2
	MaxSponsorTrackRecord    = 0.8
	MaxStudyDesignIntegrity  = 0.8
	MaxEnrollmentFulfillment = 0.6
	MaxExternalValidity      = 0.4

	MaxRegulatoryAccelerationBonus = 0.3
	MaxHighImpactPublicationBonus  = 0.5
	MaxDataSharingBonus            = 0.2

	maxTotalBonuses = 1.0
	maxScore        = 5.0
)

// Components are the six weighted rubric sub-scores.
type Components struct {
	OutcomeEvidence       float64 `json:"outcome_evidence"`
	PhasePrior            float64 `json:"phase_prior"`
	SponsorTrackRecord    float64 `json:"sponsor_track_record"`
	StudyDesignIntegrity  float64 `json:"study_design_integrity"`
	EnrollmentFulfillment float64 `json:"enrollment_fulfillment"`
	ExternalValidity      float64 `json:"external_validity"`
}

// Bonuses are the additive extras, capped to 1.0 in total.
type Bonuses struct {
	RegulatoryAcceleration float64 `json:"regulatory_acceleration_bonus"`
	HighImpactPublication  float64 `json:"high_impact_publication_bonus"`
	DataSharing            float64 `json:"data_sharing_bonus"`
}

// Sum returns the uncapped bonus total.
func (b Bonuses) Sum() float64 {
	return b.RegulatoryAcceleration + b.HighImpactPublication + b.DataSharing
}

// Penalties hold the (non-positive) deductions.
type Penalties struct {
	Termination float64 `json:"termination_penalty"`
}

// TrialScore is the full scoring result for one trial.
type TrialScore struct {
	NCTID      string     `json:"nct_id"`
	Components Components `json:"components"`
	Bonuses    Bonuses    `json:"bonuses"`
	Penalties  Penalties  `json:"penalties"`
}

// BaseScore is the clamped sum of the six rubric components.
func (s *TrialScore) BaseScore() float64 {
	base := s.Components.OutcomeEvidence +
		s.Components.PhasePrior +
		s.Components.SponsorTrackRecord +
		s.Components.StudyDesignIntegrity +
		s.Components.EnrollmentFulfillment +
		s.Components.ExternalValidity
	return round2(math.Min(maxScore, base))
}

// TotalScore applies capped bonuses and the termination penalty, then
// clamps to [0, 5]. The penalty is additive before clamping.
func (s *TrialScore) TotalScore() float64 {
	bonuses := math.Min(maxTotalBonuses, s.Bonuses.Sum())
	final := s.BaseScore() + bonuses + s.Penalties.Termination
	return round2(math.Max(0.0, math.Min(maxScore, final)))
}

// Interpretation labels the total score for display. These are the
// scorer-side buckets; QualityBand below carries the pre-processing
// call site's slightly different thresholds, kept distinct on purpose.
func (s *TrialScore) Interpretation() string {
	switch total := s.TotalScore(); {
	case total >= 4.0:
		return "HIGHLY RELIABLE"
	case total >= 3.0:
		return "RELIABLE"
	case total >= 2.0:
		return "MODERATE"
	case total >= 1.0:
		return "RISKY"
	default:
		return "HIGHLY RISKY"
	}
}

// QualityBand labels a total score with the display bands used by the
// score pre-processing pipeline. Note the 2.4 and 1.2 boundaries: they
// intentionally differ from Interpretation's 2.0 and 1.0.
func QualityBand(total float64) string {
	switch {
	case total >= 4.0:
		return "EXCELLENT"
	case total >= 3.0:
		return "GOOD"
	case total >= 2.4:
		return "FAIR"
	case total >= 1.2:
		return "POOR"
	default:
		return "VERY POOR"
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
