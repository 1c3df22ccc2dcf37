// Package analytics aggregates the trial snapshot into dashboard
// figures: change metrics against a baseline window, monthly start
// series, and top-N breakdowns by condition, sponsor and treatment.
package analytics

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// Filters narrow the cohort before aggregation. List filters are
// exact matches (any-of); TherapeuticAreas is a case-insensitive
// substring match against the conditions field.
type Filters struct {
	Phases           []string `json:"phases,omitempty"`
	Statuses         []string `json:"statuses,omitempty"`
	Countries        []string `json:"countries,omitempty"`
	TherapeuticAreas []string `json:"therapeutic_areas,omitempty"`
	Window           string   `json:"window,omitempty"`
}

// ChangeMetric compares the current window against the preceding one.
type ChangeMetric struct {
	CurrentValue  float64 `json:"current_value"`
	BaselineValue float64 `json:"baseline_value"`
	DeltaPct      float64 `json:"delta_pct"`
}

// MonthlyStart is one month's trial-start activity.
type MonthlyStart struct {
	Month           string  `json:"month"`
	Count           int     `json:"count"`
	AvgEnrollment   float64 `json:"avg_enrollment"`
	TotalEnrollment int     `json:"total_enrollment"`
	LateStageCount  int     `json:"late_stage_count"`
}

// NameCount pairs a label with its trial count.
type NameCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Period bounds one comparison window, RFC 3339 dates.
type Period struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Summary is the full aggregation served by the analytics endpoint.
type Summary struct {
	Metrics                map[string]ChangeMetric `json:"metrics"`
	MonthlyStarts          []MonthlyStart          `json:"monthly_starts"`
	StatusTransitions      map[string]int          `json:"status_transitions"`
	PhaseTimeline          []NameCount             `json:"phase_timeline"`
	TopConditions          []NameCount             `json:"top_conditions"`
	TopSponsors            []NameCount             `json:"top_sponsors"`
	TopTreatments          []NameCount             `json:"top_treatments"`
	TopTreatmentCategories map[string]int          `json:"top_treatment_categories"`
	SponsorConcentration   float64                 `json:"sponsor_hhi"`
	CurrentPeriod          Period                  `json:"current_period"`
	BaselinePeriod         Period                  `json:"baseline_period"`
}

var windowDays = map[string]int{
	"3m": 90,
	"6m": 180,
	"1y": 365,
	"2y": 730,
}

const defaultWindowDays = 180

// Service computes analytics over the loaded snapshot and the cached
// quality scores.
type Service struct {
	store  *trials.Store
	scores *trials.ScoreCache
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates an analytics service over the store and score
// cache.
func NewService(store *trials.Store, scores *trials.ScoreCache) *Service {
	return &Service{
		store:  store,
		scores: scores,
		now:    time.Now,
		logger: slog.Default(),
	}
}

// Summarize aggregates the interventional subset under the filters.
func (s *Service) Summarize(filters Filters) *Summary {
	cohort := filterCohort(s.store.Interventional(), filters)
	now := s.now()

	current, baseline, currentStart, baselineStart := splitByPeriod(cohort, filters.Window, now)

	metrics := map[string]ChangeMetric{
		"total_trials": s.totalTrialsMetric(cohort, now),
		"trial_starts": {
			CurrentValue:  float64(len(current)),
			BaselineValue: float64(len(baseline)),
			DeltaPct:      round2(deltaPct(float64(len(current)), float64(len(baseline)))),
		},
		"enrollment":    enrollmentMetric(current, baseline),
		"quality_score": s.qualityScoreMetric(current, baseline),
	}

	summary := &Summary{
		Metrics:                metrics,
		MonthlyStarts:          monthlyStarts(current),
		StatusTransitions:      countBy(current, func(r *trials.Record) string { return trials.StandardizeStatus(r.OverallStatus) }),
		PhaseTimeline:          topCounts(countBy(current, func(r *trials.Record) string { return trials.StandardizePhase(r.Phases) }), len(current)),
		TopConditions:          topCounts(countBy(current, cleanCondition), 10),
		TopSponsors:            topCounts(countBy(current, cleanSponsor), 10),
		TopTreatments:          topCounts(countBy(current, func(r *trials.Record) string { return r.Interventions }), 10),
		TopTreatmentCategories: treatmentCategories(current),
		SponsorConcentration:   sponsorHHI(countBy(current, cleanSponsor)),
		CurrentPeriod: Period{
			Start: currentStart.Format(time.RFC3339),
			End:   now.Format(time.RFC3339),
		},
		BaselinePeriod: Period{
			Start: baselineStart.Format(time.RFC3339),
			End:   currentStart.Format(time.RFC3339),
		},
	}

	s.logger.Debug("analytics summary computed",
		"cohort", len(cohort),
		"current", len(current),
		"baseline", len(baseline),
		"window", filters.Window)

	return summary
}

// totalTrialsMetric is a stock metric on fixed five-year windows, so
// it stays comparable across selected windows.
func (s *Service) totalTrialsMetric(cohort []*trials.Record, now time.Time) ChangeMetric {
	fiveYearsAgo := now.AddDate(0, 0, -5*365)
	tenYearsAgo := now.AddDate(0, 0, -10*365)

	currentCount, baselineCount := 0, 0
	for _, rec := range cohort {
		if !rec.HasStartDate() {
			continue
		}
		switch {
		case !rec.StartDate.Before(fiveYearsAgo):
			currentCount++
		case !rec.StartDate.Before(tenYearsAgo):
			baselineCount++
		}
	}

	return ChangeMetric{
		CurrentValue:  float64(currentCount),
		BaselineValue: float64(baselineCount),
		DeltaPct:      round2(deltaPct(float64(currentCount), float64(baselineCount))),
	}
}

func enrollmentMetric(current, baseline []*trials.Record) ChangeMetric {
	cur := robustEnrollmentMedian(enrollments(current))
	base := robustEnrollmentMedian(enrollments(baseline))
	return ChangeMetric{
		CurrentValue:  cur,
		BaselineValue: base,
		DeltaPct:      round2(deltaPct(cur, base)),
	}
}

func (s *Service) qualityScoreMetric(current, baseline []*trials.Record) ChangeMetric {
	if s.scores == nil {
		return ChangeMetric{}
	}
	cur := round2(s.scores.Mean(nctIDs(current)))
	base := round2(s.scores.Mean(nctIDs(baseline)))
	return ChangeMetric{
		CurrentValue:  cur,
		BaselineValue: base,
		DeltaPct:      round2(deltaPct(cur, base)),
	}
}

// filterCohort applies the list and substring filters.
func filterCohort(records []*trials.Record, f Filters) []*trials.Record {
	var out []*trials.Record
	for _, rec := range records {
		if len(f.Phases) > 0 && !containsExact(f.Phases, rec.Phases) {
			continue
		}
		if len(f.Statuses) > 0 && !containsExact(f.Statuses, rec.OverallStatus) {
			continue
		}
		if len(f.Countries) > 0 && !containsExact(f.Countries, rec.Country) {
			continue
		}
		if len(f.TherapeuticAreas) > 0 && !matchesAnyArea(rec.Conditions, f.TherapeuticAreas) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// splitByPeriod divides dated records into the current window and the
// equally sized window before it. When nothing is dated, both periods
// fall back to the full cohort.
func splitByPeriod(records []*trials.Record, window string, now time.Time) (current, baseline []*trials.Record, currentStart, baselineStart time.Time) {
	days, ok := windowDays[window]
	if !ok {
		days = defaultWindowDays
	}

	currentStart = now.AddDate(0, 0, -days)
	baselineStart = currentStart.AddDate(0, 0, -days)

	anyDated := false
	for _, rec := range records {
		if !rec.HasStartDate() {
			continue
		}
		anyDated = true
		switch {
		case !rec.StartDate.Before(currentStart):
			current = append(current, rec)
		case !rec.StartDate.Before(baselineStart):
			baseline = append(baseline, rec)
		}
	}

	if !anyDated {
		return records, records, currentStart, baselineStart
	}
	return current, baseline, currentStart, baselineStart
}

// monthlyStarts buckets the current period by start month, newest
// month last, including the phase 2/3 subset count.
func monthlyStarts(records []*trials.Record) []MonthlyStart {
	type bucket struct {
		count      int
		enrollment int
		lateStage  int
	}
	buckets := make(map[string]*bucket)

	for _, rec := range records {
		if !rec.HasStartDate() {
			continue
		}
		month := rec.StartDate.Format("06/01")
		b, ok := buckets[month]
		if !ok {
			b = &bucket{}
			buckets[month] = b
		}
		b.count++
		b.enrollment += rec.EnrollmentCount
		if isMidLatePhase(rec.Phases) {
			b.lateStage++
		}
	}

	months := make([]string, 0, len(buckets))
	for m := range buckets {
		months = append(months, m)
	}
	sort.Strings(months)

	out := make([]MonthlyStart, 0, len(months))
	for _, m := range months {
		b := buckets[m]
		avg := 0.0
		if b.count > 0 {
			avg = round2(float64(b.enrollment) / float64(b.count))
		}
		out = append(out, MonthlyStart{
			Month:           m,
			Count:           b.count,
			AvgEnrollment:   avg,
			TotalEnrollment: b.enrollment,
			LateStageCount:  b.lateStage,
		})
	}
	return out
}

func isMidLatePhase(phase string) bool {
	p := strings.ToUpper(phase)
	return strings.Contains(p, "PHASE2") || strings.Contains(p, "PHASE3") ||
		strings.Contains(p, "PHASE 2") || strings.Contains(p, "PHASE 3")
}

// cleanCondition consolidates the many Parkinson's spellings under one
// label; everything else passes through.
func cleanCondition(rec *trials.Record) string {
	if strings.Contains(strings.ToLower(rec.Conditions), "parkinson") {
		return "Parkinson Disease"
	}
	return rec.Conditions
}

var sponsorSuffixes = []string{
	" Limited", " Ltd", " Inc", " Corporation", " Corp",
	" Company", " Co", " LLC", " L.L.C.", " LLP", " L.P.",
	" University", " Univ", " Medical Center", " Medical Centre",
	" Hospital", " Foundation", " Institute", " Institutes",
}

// cleanSponsor strips corporate suffixes so subsidiaries group with
// their parent in the top-sponsor counts.
func cleanSponsor(rec *trials.Record) string {
	name := strings.TrimSpace(rec.LeadSponsor)
	for _, suffix := range sponsorSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSpace(strings.TrimSuffix(name, suffix))
		}
	}
	return name
}

func countBy(records []*trials.Record, key func(*trials.Record) string) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		k := key(rec)
		if k == "" {
			continue
		}
		counts[k]++
	}
	return counts
}

// topCounts sorts a counter descending (label ascending on ties) and
// keeps the first n.
func topCounts(counts map[string]int, n int) []NameCount {
	out := make([]NameCount, 0, len(counts))
	for k, c := range counts {
		out = append(out, NameCount{Name: k, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func containsExact(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func matchesAnyArea(conditions string, areas []string) bool {
	lower := strings.ToLower(conditions)
	for _, area := range areas {
		if strings.Contains(lower, strings.ToLower(area)) {
			return true
		}
	}
	return false
}

func enrollments(records []*trials.Record) []float64 {
	out := make([]float64, 0, len(records))
	for _, rec := range records {
		out = append(out, float64(rec.EnrollmentCount))
	}
	return out
}

func nctIDs(records []*trials.Record) []string {
	out := make([]string, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.NCTID)
	}
	return out
}
