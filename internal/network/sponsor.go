package network

import (
	"sort"
	"strings"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// NameCount pairs an entity with its occurrence count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ConditionCount pairs a condition string with its occurrence count.
type ConditionCount struct {
	Condition string `json:"condition"`
	Count     int    `json:"count"`
}

// CountryCount pairs a country with its occurrence count.
type CountryCount struct {
	Country string `json:"country"`
	Count   int    `json:"count"`
}

// SponsorTrialRef is one trial row in a sponsor profile.
type SponsorTrialRef struct {
	NCTID         string `json:"nctId"`
	BriefTitle    string `json:"briefTitle"`
	Phases        string `json:"phases"`
	OverallStatus string `json:"overallStatus"`
}

// SponsorProfile summarizes one sponsor's activity.
type SponsorProfile struct {
	Name             string            `json:"name"`
	TotalTrials      int               `json:"total_trials"`
	ActiveTrials     int               `json:"active_trials"`
	TopCollaborators []NameCount       `json:"top_collaborators"`
	TopConditions    []ConditionCount  `json:"top_conditions"`
	TopCountries     []CountryCount    `json:"top_countries"`
	RecentTrials     []SponsorTrialRef `json:"recent_trials"`
}

// SponsorProfile builds the activity profile for sponsors whose lead
// sponsor field contains name (case-insensitive).
func (b *Builder) SponsorProfile(records []*trials.Record, name string) *SponsorProfile {
	var matched []*trials.Record
	for _, rec := range records {
		if containsFold(rec.LeadSponsor, name) {
			matched = append(matched, rec)
		}
	}

	profile := &SponsorProfile{
		Name:             name,
		TotalTrials:      len(matched),
		TopCollaborators: []NameCount{},
		TopConditions:    []ConditionCount{},
		TopCountries:     []CountryCount{},
		RecentTrials:     []SponsorTrialRef{},
	}

	collaboratorCounts := make(map[string]int)
	conditionCounts := make(map[string]int)
	countryCounts := make(map[string]int)

	for _, rec := range matched {
		if strings.Contains(strings.ToUpper(rec.OverallStatus), "RECRUITING") {
			profile.ActiveTrials++
		}
		for _, collab := range ParseCollaborators(b.normalizer, rec.Collaborators) {
			collaboratorCounts[collab]++
		}
		if rec.Conditions != "" {
			conditionCounts[rec.Conditions]++
		}
		country := rec.Country
		if country == "" {
			country = "Unknown"
		}
		countryCounts[country]++
	}

	for _, p := range topCounts(collaboratorCounts, 10) {
		profile.TopCollaborators = append(profile.TopCollaborators, NameCount{p.key, p.count})
	}
	for _, p := range topCounts(conditionCounts, 5) {
		profile.TopConditions = append(profile.TopConditions, ConditionCount{p.key, p.count})
	}
	for _, p := range topCounts(countryCounts, 5) {
		profile.TopCountries = append(profile.TopCountries, CountryCount{p.key, p.count})
	}

	for i := 0; i < len(matched) && i < 5; i++ {
		profile.RecentTrials = append(profile.RecentTrials, SponsorTrialRef{
			NCTID:         matched[i].NCTID,
			BriefTitle:    matched[i].BriefTitle,
			Phases:        matched[i].Phases,
			OverallStatus: matched[i].OverallStatus,
		})
	}

	return profile
}

type keyCount struct {
	key   string
	count int
}

// topCounts sorts a counter by count descending (name ascending on
// ties, for stable output) and keeps the first n.
func topCounts(counts map[string]int, n int) []keyCount {
	out := make([]keyCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, keyCount{k, c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].count != out[j].count {
			return out[i].count > out[j].count
		}
		return out[i].key < out[j].key
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
