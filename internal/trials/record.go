// Package trials provides the typed clinical-trial record schema and a
// load-once store over the flat-file snapshot.
package trials

import (
	"strings"
	"time"
)

// Study types present in the snapshot.
const (
	StudyTypeInterventional = "INTERVENTIONAL"
	StudyTypeObservational  = "OBSERVATIONAL"
)

// Record is one clinical-trial row, validated once at load time.
// Fields that are absent in the source default to "" (text), 0
// (enrollment) or the zero time (dates); rubric rules never re-probe
// raw columns.
type Record struct {
	NCTID               string `json:"nctId"`
	BriefTitle          string `json:"briefTitle"`
	BriefSummary        string `json:"briefSummary"`
	StudyType           string `json:"studyType"`
	Phases              string `json:"phases"`
	OverallStatus       string `json:"overallStatus"`
	Conditions          string `json:"conditions"`
	Interventions       string `json:"interventions"`
	PrimaryOutcomes     string `json:"primaryOutcomes"`
	EligibilityCriteria string `json:"eligibilityCriteria"`
	Keywords            string `json:"keywords"`
	Allocation          string `json:"allocation"`
	Masking             string `json:"masking"`
	LeadSponsor         string `json:"leadSponsor"`
	Collaborators       string `json:"collaborators"`
	Officials           string `json:"officials"`
	Country             string `json:"country"`
	IPDSharing          string `json:"ipdSharing"`
	IPDDescription      string `json:"ipdDescription"`

	// EnrollmentCount is 0 when the column was empty or unparseable.
	EnrollmentCount int `json:"enrollmentCount"`

	// StartDate and CompletionDate are zero when absent or unparseable.
	StartDate      time.Time `json:"startDate"`
	CompletionDate time.Time `json:"completionDate"`
}

// HasStartDate reports whether the record carries a parseable start date.
func (r *Record) HasStartDate() bool { return !r.StartDate.IsZero() }

// IsInterventional reports whether the record is an interventional study.
func (r *Record) IsInterventional() bool {
	return strings.EqualFold(strings.TrimSpace(r.StudyType), StudyTypeInterventional)
}

// CombinedText returns every free-text field lower-cased and joined,
// for keyword scans that consider the whole record (e.g. termination
// reasons buried in the summary).
func (r *Record) CombinedText() string {
	parts := []string{
		r.BriefTitle, r.BriefSummary, r.OverallStatus, r.Conditions,
		r.Interventions, r.PrimaryOutcomes, r.EligibilityCriteria,
		r.Keywords, r.Allocation, r.Masking, r.LeadSponsor,
		r.Collaborators, r.IPDSharing, r.IPDDescription,
	}
	return strings.ToLower(strings.Join(parts, " "))
}

// dateLayouts covers the formats observed in the snapshot.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"2006",
	"2006-01-02T15:04:05",
	"January 2, 2006",
}

// ParseDate parses a snapshot date string, returning the zero time for
// anything it cannot understand. Malformed dates are data, not errors.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// StandardizePhase maps raw phase strings onto display buckets.
func StandardizePhase(phase string) string {
	p := strings.ToLower(strings.TrimSpace(phase))
	switch {
	case p == "":
		return "N/A"
	case strings.Contains(p, "phase 4") || strings.Contains(p, "phase4"):
		return "Phase 4"
	case strings.Contains(p, "phase 3") || strings.Contains(p, "phase3"):
		return "Phase 3"
	case strings.Contains(p, "phase 2") || strings.Contains(p, "phase2"):
		return "Phase 2"
	case strings.Contains(p, "early"):
		return "Early Phase"
	case strings.Contains(p, "phase 1") || strings.Contains(p, "phase1"):
		return "Phase 1"
	default:
		return phase
	}
}

// StandardizeStatus maps raw status strings onto display buckets.
func StandardizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch {
	case s == "":
		return "Unknown"
	case strings.Contains(s, "not yet recruiting"):
		return "Not Yet Recruiting"
	case strings.Contains(s, "recruiting"):
		return "Recruiting"
	case strings.Contains(s, "completed"):
		return "Completed"
	case strings.Contains(s, "terminated"):
		return "Terminated"
	case strings.Contains(s, "suspended"):
		return "Suspended"
	case strings.Contains(s, "withdrawn"):
		return "Withdrawn"
	case strings.Contains(s, "active"):
		return "Active"
	default:
		return status
	}
}

// knownCountries drives ExtractCountry's substring scan.
var knownCountries = []string{
	"United States", "USA", "Canada", "United Kingdom", "Germany",
	"France", "Italy", "Spain", "Netherlands", "Switzerland", "Sweden",
	"Norway", "Denmark", "Finland", "Australia", "Japan", "China",
	"India", "Brazil", "Mexico", "Argentina", "South Africa", "Russia",
	"Poland", "Czech Republic", "Austria", "Belgium", "Portugal",
	"Greece", "Hungary", "Romania", "Bulgaria", "Croatia", "Slovenia",
	"Slovakia", "Estonia", "Latvia", "Lithuania", "South Korea",
	"Taiwan", "Israel", "Turkey", "New Zealand", "Ireland", "Singapore",
}

// ExtractCountry pulls a country name out of a free-text location
// string, returning "Unknown" for empty input and "Other" when no
// known country is mentioned.
func ExtractCountry(location string) string {
	loc := strings.TrimSpace(location)
	if loc == "" || strings.EqualFold(loc, "unknown") {
		return "Unknown"
	}
	lowered := strings.ToLower(loc)
	for _, country := range knownCountries {
		if strings.Contains(lowered, strings.ToLower(country)) {
			return country
		}
	}
	return "Other"
}
