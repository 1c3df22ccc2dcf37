package scoring

import (
	"regexp"
	"strings"
)

// Curated journal impact factors. Any match in highImpactJournals
// counts as high impact; knownLowImpactJournals exist so familiar
// mid-tier venues are classified deliberately instead of falling
// through to the conservative default.
var highImpactJournals = map[string]float64{
	"nature":                               49.962,
	"science":                              56.9,
	"cell":                                 66.85,
	"nature medicine":                      87.241,
	"nature genetics":                      41.307,
	"nature biotechnology":                 68.164,
	"new england journal of medicine":      176.082,
	"lancet":                               168.9,
	"lancet neurology":                     48.0,
	"jama":                                 157.3,
	"journal of the american medical association": 157.3,
	"nature immunology":                    31.25,
	"immunity":                             43.474,
	"neuron":                               16.2,
	"cancer cell":                          50.3,
	"blood":                                20.3,
	"circulation":                          39.918,
	"gastroenterology":                     33.883,
	"diabetes":                             9.337,
	"brain":                                15.255,
	"movement disorders":                   9.698,
	"parkinsonism and related disorders":   4.432,
	"journal of neurology":                 6.382,
	"neurology":                            11.8,
	"annals of neurology":                  11.2,
	"archives of neurology":                11.2,
	"neurobiology of disease":              5.2,
	"experimental neurology":               5.0,
	"journal of neuroscience":              6.709,
	"neuroscience":                         3.708,
	"neurotherapeutics":                    5.7,
	"parkinson's disease":                  3.0,
	"npj parkinson's disease":              9.0,
}

var knownLowImpactJournals = map[string]float64{
	"stem cells and development": 3.0,
	"stem cells":                 6.0,
	"development":                6.0,
	"plos one":                   3.752,
	"bmc":                        3.0,
	"scientific reports":         4.996,
	"frontiers":                  5.0,
}

// isHighImpactJournal classifies a parsed journal name. Unrecognized
// journals default to not-high-impact.
func isHighImpactJournal(journal string) bool {
	name := strings.ToLower(strings.TrimSpace(journal))
	if name == "" {
		return false
	}

	for known := range highImpactJournals {
		if strings.Contains(name, known) || strings.Contains(known, name) {
			return true
		}
	}

	for known, impact := range knownLowImpactJournals {
		if strings.Contains(name, known) || strings.Contains(known, name) {
			return impact >= 10.0
		}
	}

	return false
}

var (
	journalPatterns = []*regexp.Regexp{
		// "Lancet Neurol. 2015" style. Case-insensitive so the run of
		// letters can span mixed-case names like "Movement Disorders".
		regexp.MustCompile(`(?i)([A-Z][a-z\s&]+)\.\s*\d{4}`),
		// "Lancet Neurol 2015" style
		regexp.MustCompile(`(?i)([A-Z][a-z\s&]+)\s+\d{4}`),
		regexp.MustCompile(`(?i)published in\s+([^,]+)`),
		regexp.MustCompile(`(?i)journal:\s*([^,]+)`),
	}

	anyYearRe      = regexp.MustCompile(`\d{4}`)
	etAlSuffixRe   = regexp.MustCompile(`\s+et al\.?`)
	epubSuffixRe   = regexp.MustCompile(`\s+Epub.*`)
	doiSuffixRe    = regexp.MustCompile(`\s+doi.*`)
	yearOnwardsRe  = regexp.MustCompile(`\s+\d{4}.*`)
	formatOnlyWord = map[string]bool{"epub": true, "pdf": true, "html": true}
)

// parseJournalName pulls a journal name out of a citation string. Short
// strings containing no year are assumed to already be journal names.
// Returns "" when nothing recognizable is found.
func parseJournalName(citation string) string {
	trimmed := strings.TrimSpace(citation)
	if trimmed == "" || formatOnlyWord[strings.ToLower(trimmed)] {
		return ""
	}

	if len(strings.Fields(trimmed)) <= 5 && !anyYearRe.MatchString(trimmed) {
		return trimmed
	}

	for _, pattern := range journalPatterns {
		match := pattern.FindStringSubmatch(citation)
		if match == nil {
			continue
		}
		name := strings.TrimSpace(match[1])
		name = etAlSuffixRe.ReplaceAllString(name, "")
		name = epubSuffixRe.ReplaceAllString(name, "")
		name = doiSuffixRe.ReplaceAllString(name, "")
		name = yearOnwardsRe.ReplaceAllString(name, "")
		return strings.TrimSpace(name)
	}

	return ""
}
