package analytics

import (
	"strings"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// treatmentCategory groups free-text interventions into display
// buckets by keyword.
type treatmentCategory struct {
	name     string
	keywords []string
}

// Order matters: the first matching category wins.
var treatmentBuckets = []treatmentCategory{
	{"Device/Technology", []string{"electrode", "brain", "pet", "mri", "ct", "imaging", "detection"}},
	{"Assistive Devices", []string{"shoe", "cane", "assistive"}},
	{"Physical Therapy", []string{"physiotherapy", "rehabilitation", "stretching", "exercise"}},
	{"Neuromodulation", []string{"tdcs", "stimulation", "neurostimulation"}},
	{"Pharmaceutical", []string{"drug", "medication", "pill", "tablet", "capsule", "infusion"}},
	{"Lifestyle/Diet", []string{"diet", "plant-based", "nutrition", "lifestyle"}},
	{"Control/Placebo", []string{"sham", "placebo", "control"}},
}

func categorizeTreatment(treatment string) string {
	lower := strings.ToLower(treatment)
	for _, cat := range treatmentBuckets {
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				return cat.name
			}
		}
	}
	return "Other"
}

// treatmentCategories counts the current cohort's interventions per
// category.
func treatmentCategories(records []*trials.Record) map[string]int {
	out := make(map[string]int)
	for _, rec := range records {
		if rec.Interventions == "" {
			continue
		}
		out[categorizeTreatment(rec.Interventions)]++
	}
	return out
}
