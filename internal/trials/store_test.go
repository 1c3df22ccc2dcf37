package trials

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `nctId,briefTitle,studyType,phases,overallStatus,leadSponsor,collaborators,enrollmentCount,startDate,completionDate,country
NCT00000001,Levodopa Trial,INTERVENTIONAL,PHASE3,COMPLETED,Pfizer Inc.,Mayo Clinic|Harvard University,350,2018-06-01,2021-03-15,United States
NCT00000002,Observation Study,OBSERVATIONAL,,RECRUITING,University of Rochester,,120.0,2023-01,,Germany
NCT00000003,Broken Dates,INTERVENTIONAL,PHASE1,TERMINATED,Small Biotech,,0,not-a-date,,
,No Id Row,INTERVENTIONAL,PHASE2,COMPLETED,Someone,,50,2020-01-01,,France
`

func writeSampleCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "trials.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))
	return path
}

func TestLoadStore(t *testing.T) {
	store, err := LoadStore(writeSampleCSV(t))
	require.NoError(t, err)

	// The row without an NCT id is dropped.
	assert.Equal(t, 3, store.Len())

	rec := store.ByID("NCT00000001")
	require.NotNil(t, rec)
	assert.Equal(t, "Levodopa Trial", rec.BriefTitle)
	assert.Equal(t, 350, rec.EnrollmentCount)
	assert.Equal(t, time.Date(2018, 6, 1, 0, 0, 0, 0, time.UTC), rec.StartDate)
	assert.True(t, rec.IsInterventional())
}

func TestLoadStoreDefaults(t *testing.T) {
	store, err := LoadStore(writeSampleCSV(t))
	require.NoError(t, err)

	// Float enrollment parses, year-month date parses.
	obs := store.ByID("NCT00000002")
	require.NotNil(t, obs)
	assert.Equal(t, 120, obs.EnrollmentCount)
	assert.True(t, obs.HasStartDate())
	assert.False(t, obs.IsInterventional())

	// Unparseable date degrades to the zero time, not an error.
	broken := store.ByID("NCT00000003")
	require.NotNil(t, broken)
	assert.False(t, broken.HasStartDate())
	assert.Equal(t, 0, broken.EnrollmentCount)

	assert.Nil(t, store.ByID("NCT99999999"))
}

func TestInterventionalSubset(t *testing.T) {
	store, err := LoadStore(writeSampleCSV(t))
	require.NoError(t, err)

	subset := store.Interventional()
	require.Len(t, subset, 2)
	for _, rec := range subset {
		assert.Equal(t, StudyTypeInterventional, rec.StudyType)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2020-05-14", time.Date(2020, 5, 14, 0, 0, 0, 0, time.UTC)},
		{"2020-05", time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC)},
		{"2020", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"garbage", time.Time{}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseDate(tt.input), "input %q", tt.input)
	}
}

func TestStandardizers(t *testing.T) {
	assert.Equal(t, "Phase 3", StandardizePhase("PHASE3"))
	assert.Equal(t, "Phase 1", StandardizePhase("phase 1"))
	assert.Equal(t, "Early Phase", StandardizePhase("EARLY_PHASE1"))
	assert.Equal(t, "N/A", StandardizePhase(""))

	assert.Equal(t, "Recruiting", StandardizeStatus("RECRUITING"))
	assert.Equal(t, "Not Yet Recruiting", StandardizeStatus("NOT YET RECRUITING"))
	assert.Equal(t, "Unknown", StandardizeStatus(""))
}

func TestLoadStoreCountryFallback(t *testing.T) {
	csv := "nctId,briefTitle,locations,country\n" +
		"NCT00000010,Legacy Row,\"Charité, Berlin, Germany\",\n" +
		"NCT00000011,Modern Row,,France\n"
	path := filepath.Join(t.TempDir(), "trials.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	store, err := LoadStore(path)
	require.NoError(t, err)

	assert.Equal(t, "Germany", store.ByID("NCT00000010").Country)
	assert.Equal(t, "France", store.ByID("NCT00000011").Country)
}

func TestExtractCountry(t *testing.T) {
	assert.Equal(t, "United States", ExtractCountry("Boston, United States"))
	assert.Equal(t, "Germany", ExtractCountry("Charité, Berlin, Germany"))
	assert.Equal(t, "Unknown", ExtractCountry(""))
	assert.Equal(t, "Other", ExtractCountry("Atlantis Research Station"))
}

func TestCombinedText(t *testing.T) {
	rec := &Record{
		BriefSummary:    "Terminated due to SAFETY concerns",
		PrimaryOutcomes: "Mortality",
	}
	text := rec.CombinedText()
	assert.True(t, strings.Contains(text, "safety"))
	assert.True(t, strings.Contains(text, "mortality"))
}

func TestScoreCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quality_scores.json")

	// Missing file yields an empty cache.
	cache, err := LoadScoreCache(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cache.Len())
	_, ok := cache.Get("NCT00000001")
	assert.False(t, ok)

	payload := `{
		"NCT00000001": {"base_score": 4.6, "total_score": 4.6, "timestamp": "2026-01-02T15:04:05Z"},
		"NCT00000002": {"base_score": 2.0, "total_score": 2.4, "timestamp": "2026-01-02T15:04:05Z"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(payload), 0o644))

	cache, err = LoadScoreCache(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cache.Len())

	entry, ok := cache.Get("NCT00000001")
	require.True(t, ok)
	assert.Equal(t, 4.6, entry.TotalScore)

	mean := cache.Mean([]string{"NCT00000001", "NCT00000002", "NCT4040"})
	assert.InDelta(t, 3.5, mean, 1e-9)
}
