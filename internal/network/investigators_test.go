package network

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

func TestInvestigatorRankings(t *testing.T) {
	b := testBuilder(t)

	rec1 := trialRec("NCT00000001", "Acme Pharma", "Beta Research", date(2026, 6, 1))
	rec1.Phases = "PHASE3"
	rec1.Officials = "jane doe|Principal Investigator|beta research"

	rec2 := trialRec("NCT00000002", "Acme Pharma", "Beta Research", date(2026, 7, 1))
	rec2.Phases = "PHASE2"
	rec2.Officials = "jane doe|Principal Investigator|beta research"

	rec3 := trialRec("NCT00000003", "Acme Pharma", "Gamma Institute", date(2020, 1, 1))
	rec3.Phases = "PHASE1"
	rec3.Officials = "john roe|Study Director|gamma institute"

	ranked := b.InvestigatorRankings([]*trials.Record{rec1, rec2, rec3}, nil)
	require.Len(t, ranked, 2)

	jane := ranked[0]
	assert.Equal(t, "Jane Doe", jane.Name)
	assert.Equal(t, "Beta Research", jane.Affiliation)
	assert.Equal(t, "Principal Investigator", jane.Role)
	assert.Equal(t, 2, jane.TotalTrials)
	assert.Equal(t, 1, jane.PhaseIIIIVCount)
	// Affiliation degree plus half a point per late-phase trial.
	assert.InDelta(t, jane.WeightedDegree+0.5, jane.SuccessScore, 1e-9)

	require.Len(t, jane.RecentTrials, 2)
	assert.Equal(t, "NCT00000002", jane.RecentTrials[0].NCTID, "newest trial first")

	john := ranked[1]
	assert.Equal(t, "John Roe", john.Name)
	assert.Zero(t, john.PhaseIIIIVCount)
	assert.Less(t, john.SuccessScore, jane.SuccessScore)
}

func TestInvestigatorRankingsSkipsIncompleteOfficials(t *testing.T) {
	b := testBuilder(t)

	rec := trialRec("NCT00000001", "Acme Pharma", "Beta Research", date(2026, 6, 1))
	rec.Officials = "nameless person"

	ranked := b.InvestigatorRankings([]*trials.Record{rec}, nil)
	assert.Empty(t, ranked, "officials without an affiliation are not ranked")
}

func TestInvestigatorRecentTrialsCapped(t *testing.T) {
	b := testBuilder(t)

	var records []*trials.Record
	for i := 0; i < 7; i++ {
		rec := trialRec(fmt.Sprintf("NCT0000000%d", i), "Acme Pharma", "Beta Research",
			date(2026, 1+i%7, 1))
		rec.Officials = "jane doe|Principal Investigator|beta research"
		records = append(records, rec)
	}

	ranked := b.InvestigatorRankings(records, nil)
	require.Len(t, ranked, 1)
	assert.Equal(t, 7, ranked[0].TotalTrials)
	assert.Len(t, ranked[0].RecentTrials, maxRecentTrialsPerPerson)
}

func TestIsLatePhase(t *testing.T) {
	assert.True(t, isLatePhase("PHASE3"))
	assert.True(t, isLatePhase("PHASE2|PHASE3"))
	assert.True(t, isLatePhase("Phase 4"))
	assert.True(t, isLatePhase("Phase III"))
	assert.False(t, isLatePhase("PHASE2"))
	assert.False(t, isLatePhase("PHASE1"))
	assert.False(t, isLatePhase(""))
}

func TestSponsorProfile(t *testing.T) {
	b := testBuilder(t)

	rec1 := trialRec("NCT00000001", "Acme Pharma", "Beta Research; Gamma Institute", date(2026, 6, 1))
	rec2 := trialRec("NCT00000002", "Acme Pharma GmbH", "Beta Research", date(2026, 7, 1))
	rec2.OverallStatus = "COMPLETED"
	rec2.Conditions = "Early Parkinson Disease"
	rec2.Country = ""
	rec3 := trialRec("NCT00000003", "Delta Biotech", "Beta Research", date(2026, 5, 1))

	profile := b.SponsorProfile([]*trials.Record{rec1, rec2, rec3}, "acme pharma")

	assert.Equal(t, "acme pharma", profile.Name)
	assert.Equal(t, 2, profile.TotalTrials, "substring match spans subsidiaries")
	assert.Equal(t, 1, profile.ActiveTrials)

	require.NotEmpty(t, profile.TopCollaborators)
	assert.Equal(t, NameCount{Name: "Beta Research", Count: 2}, profile.TopCollaborators[0])

	assert.Equal(t, []CountryCount{
		{Country: "United States", Count: 1},
		{Country: "Unknown", Count: 1},
	}, profile.TopCountries)

	require.Len(t, profile.RecentTrials, 2)
	assert.Equal(t, "NCT00000001", profile.RecentTrials[0].NCTID)
}

func TestSponsorProfileNoMatches(t *testing.T) {
	b := testBuilder(t)

	profile := b.SponsorProfile([]*trials.Record{
		trialRec("NCT00000001", "Acme Pharma", "", date(2026, 6, 1)),
	}, "nonexistent sponsor")

	assert.Zero(t, profile.TotalTrials)
	assert.Empty(t, profile.TopCollaborators)
	assert.Empty(t, profile.RecentTrials)
}
