package scoring

import (
	"strings"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// Sponsor tiers. Top tier matches by substring against the lead
// sponsor; mid tier matches institutional keywords.
var (
	topTierSponsors = []string{
		"pfizer", "roche", "novartis", "merck", "johnson & johnson",
		"astrazeneca", "sanofi", "eli lilly", "bristol-myers squibb",
		"abbvie", "gilead", "amgen", "biogen", "nih", "mayo clinic",
		"stanford", "harvard", "johns hopkins",
	}
	midTierKeywords = []string{
		"university of", "medical center", "hospital", "medical school",
		"research institute", "foundation", "association",
	}
)

var (
	safetyFutilityKeywords = []string{
		"safety", "adverse events", "toxicity", "harm",
		"futility", "lack of efficacy", "ineffective",
	}
	hardEndpoints = []string{"survival", "death", "hospitalization", "mortality"}

	// Age ranges whose span is at least 30 years, as they appear in
	// eligibility text.
	wideAgeRanges = []string{"18-65", "18-75", "18-80", "21-65", "21-75", "21-80"}

	strictBiomarkerFilters = []string{"hla", "genetic", "biomarker", "mutation"}

	breakthroughKeywords = []string{"breakthrough", "fast-track", "rmat", "regenerative medicine"}
	orphanKeywords       = []string{"orphan", "rare disease", "orphan drug", "rare neurological", "very rare"}
)

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

// outcomeEvidence scores what the trial's status says about delivered
// evidence (0-1.2).
func outcomeEvidence(rec *trials.Record) float64 {
	status := strings.ToLower(rec.OverallStatus)
	outcomes := strings.ToLower(rec.PrimaryOutcomes)

	switch {
	case strings.Contains(status, "completed") && strings.Contains(outcomes, "positive"):
		return 1.2
	case strings.Contains(status, "completed"):
		return 0.8
	case containsAny(status, []string{"recruiting", "active", "ongoing"}):
		return 0.6
	case strings.Contains(status, "terminated") &&
		!strings.Contains(status, "safety") && !strings.Contains(status, "futility"):
		return 0.3
	case containsAny(status, []string{"withdrawn", "suspended", "safety", "futility"}):
		return 0.0
	default:
		return 0.3
	}
}

// phasePrior scores the development phase (0-1.2). Phase 1/2 must be
// recognized before plain phase 1.
func phasePrior(rec *trials.Record) float64 {
	phase := strings.ToUpper(strings.ReplaceAll(rec.Phases, " ", ""))

	switch {
	case strings.Contains(phase, "PHASE4"):
		return 1.2
	case strings.Contains(phase, "PHASE3"):
		return 0.9
	case strings.Contains(phase, "PHASE2"):
		return 0.6
	case strings.Contains(phase, "PHASE1/2") || strings.Contains(phase, "PHASE12"):
		return 0.3
	case strings.Contains(phase, "PHASE1"):
		return 0.2
	default:
		return 0.1
	}
}

// sponsorTrackRecord scores the lead sponsor's tier (0-0.8).
func sponsorTrackRecord(rec *trials.Record) float64 {
	sponsor := strings.ToLower(rec.LeadSponsor)

	switch {
	case containsAny(sponsor, topTierSponsors):
		return 0.8
	case containsAny(sponsor, midTierKeywords):
		return 0.5
	default:
		return 0.2
	}
}

// studyDesignIntegrity sums three independent design sub-scores (0-0.8):
// allocation, masking, and endpoint hardness.
func studyDesignIntegrity(rec *trials.Record) float64 {
	allocation := strings.ToLower(rec.Allocation)
	masking := strings.ToLower(rec.Masking)
	outcomes := strings.ToLower(rec.PrimaryOutcomes)

	score := 0.0

	switch {
	case strings.Contains(allocation, "randomized") && strings.Contains(allocation, "parallel"):
		score += 0.3
	case strings.Contains(allocation, "randomized"):
		score += 0.20
	default:
		score += 0.1
	}

	switch {
	case strings.Contains(masking, "double") || strings.Contains(masking, "triple"):
		score += 0.2
	case strings.Contains(masking, "single"):
		score += 0.10
	default:
		score += 0.05
	}

	if containsAny(outcomes, hardEndpoints) {
		score += 0.3
	} else {
		score += 0.1
	}

	return round2(score)
}

// enrollmentMinimums are the phase-adjusted minimum enrollments. A
// combined phase 1/2 trial is held to the phase 1 floor.
func enrollmentMinimum(phase string) int {
	p := strings.ToUpper(strings.ReplaceAll(phase, " ", ""))
	switch {
	case strings.Contains(p, "PHASE1"):
		return 20
	case strings.Contains(p, "PHASE2"):
		return 100
	case strings.Contains(p, "PHASE3"):
		return 300
	case strings.Contains(p, "PHASE4"):
		return 500
	default:
		return 100
	}
}

// enrollmentFulfillment scores actual enrollment against the
// phase-adjusted minimum (0-0.6).
func enrollmentFulfillment(rec *trials.Record) float64 {
	if rec.EnrollmentCount <= 0 {
		return 0.1
	}

	ratio := float64(rec.EnrollmentCount) / float64(enrollmentMinimum(rec.Phases))
	switch {
	case ratio >= 1.00:
		return 0.6
	case ratio >= 0.75:
		return 0.4
	case ratio >= 0.50:
		return 0.2
	default:
		return 0.1
	}
}

// externalValidity scores how broadly the eligibility criteria
// generalize (0-0.4). The site-count sub-bonus from the rubric has no
// backing field in the snapshot and always contributes zero, so the
// achievable maximum is 0.3.
func externalValidity(rec *trials.Record) float64 {
	eligibility := strings.ToLower(rec.EligibilityCriteria)

	score := 0.0
	if containsAny(eligibility, wideAgeRanges) {
		score += 0.1
	}
	if strings.Contains(eligibility, "both") ||
		(strings.Contains(eligibility, "male") && strings.Contains(eligibility, "female")) {
		score += 0.15
	}
	if !containsAny(eligibility, strictBiomarkerFilters) {
		score += 0.05
	}

	return round2(score)
}

// regulatoryAccelerationBonus rewards mentions of accelerated-pathway
// and orphan designations across interventions, keywords and summary
// (0-0.3).
func regulatoryAccelerationBonus(rec *trials.Record) float64 {
	allText := strings.ToLower(rec.Interventions + " " + rec.Keywords + " " + rec.BriefSummary)

	score := 0.0
	if containsAny(allText, breakthroughKeywords) {
		score += 0.2
	}
	if containsAny(allText, orphanKeywords) {
		score += 0.1
	}
	if score > MaxRegulatoryAccelerationBonus {
		score = MaxRegulatoryAccelerationBonus
	}
	return score
}

// dataSharingBonus rewards a stated individual-participant-data plan
// (0 or 0.2).
func dataSharingBonus(rec *trials.Record) float64 {
	sharing := strings.ToLower(rec.IPDSharing)
	description := strings.ToLower(rec.IPDDescription)

	if strings.Contains(sharing, "yes") || strings.Contains(sharing, "available") ||
		strings.Contains(description, "plan") {
		return 0.2
	}
	return 0.0
}

// terminationPenalty deducts for stopped trials (-1.0 to 0). Safety or
// futility keywords anywhere in the record text turn a termination
// into the full penalty.
func terminationPenalty(rec *trials.Record) float64 {
	switch strings.ToUpper(strings.TrimSpace(rec.OverallStatus)) {
	case "TERMINATED":
		if containsAny(rec.CombinedText(), safetyFutilityKeywords) {
			return -1.0
		}
		return -0.8
	case "WITHDRAWN":
		return -0.8
	case "SUSPENDED":
		return -0.5
	default:
		return 0.0
	}
}
