package network

import (
	"sort"
	"strings"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

const (
	maxRankedInvestigators   = 20
	maxRecentTrialsPerPerson = 5
)

// InvestigatorTrial is one trial attributed to an investigator.
type InvestigatorTrial struct {
	NCTID     string `json:"nctId"`
	Title     string `json:"title"`
	Phase     string `json:"phase"`
	StartDate string `json:"startDate"`
}

// Investigator is one ranked study official.
type Investigator struct {
	Name            string              `json:"name"`
	Affiliation     string              `json:"affiliation"`
	Role            string              `json:"role"`
	WeightedDegree  float64             `json:"weighted_degree"`
	PhaseIIIIVCount int                 `json:"phase_iii_iv_count"`
	RecentTrials    []InvestigatorTrial `json:"recent_trials"`
	TotalTrials     int                 `json:"total_trials"`
	SuccessScore    float64             `json:"success_score"`
}

// InvestigatorRankings ranks study officials by a success score:
// their affiliation's weighted degree in the collaboration graph plus
// half a point per late-phase trial. Top twenty returned.
func (b *Builder) InvestigatorRankings(records []*trials.Record, filters *Filters) []*Investigator {
	graph := b.BuildGraph(records, BuildOptions{Filters: filters})
	affiliationDegree := make(map[string]float64, len(graph.Nodes))
	for _, node := range graph.Nodes {
		affiliationDegree[node.ID] = node.Metrics.WeightedDegree
	}

	if filters != nil {
		records = applyFilters(records, filters, b.now())
	}

	investigators := make(map[string]*Investigator)
	var order []string

	for _, rec := range records {
		officials := ParseOfficials(b.normalizer, rec.Officials)

		for _, official := range officials {
			if official.Name == "" || official.Affiliation == "" {
				continue
			}
			id := "investigator_" + official.Name + "_" + official.Affiliation

			inv, ok := investigators[id]
			if !ok {
				inv = &Investigator{
					Name:           official.Name,
					Affiliation:    official.Affiliation,
					Role:           official.Role,
					WeightedDegree: affiliationDegree[official.Affiliation],
					RecentTrials:   []InvestigatorTrial{},
				}
				investigators[id] = inv
				order = append(order, id)
			}

			if isLatePhase(rec.Phases) {
				inv.PhaseIIIIVCount++
			}

			if rec.HasStartDate() {
				inv.RecentTrials = append(inv.RecentTrials, InvestigatorTrial{
					NCTID:     rec.NCTID,
					Title:     rec.BriefTitle,
					Phase:     rec.Phases,
					StartDate: rec.StartDate.Format(dateFormat),
				})
			}
			inv.TotalTrials++
		}
	}

	ranked := make([]*Investigator, 0, len(investigators))
	for _, id := range order {
		inv := investigators[id]
		inv.SuccessScore = round2(inv.WeightedDegree + 0.5*float64(inv.PhaseIIIIVCount))

		sort.SliceStable(inv.RecentTrials, func(i, j int) bool {
			return inv.RecentTrials[i].StartDate > inv.RecentTrials[j].StartDate
		})
		if len(inv.RecentTrials) > maxRecentTrialsPerPerson {
			inv.RecentTrials = inv.RecentTrials[:maxRecentTrialsPerPerson]
		}

		ranked = append(ranked, inv)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].SuccessScore > ranked[j].SuccessScore
	})
	if len(ranked) > maxRankedInvestigators {
		ranked = ranked[:maxRankedInvestigators]
	}
	return ranked
}

// isLatePhase reports whether the phase field marks a phase 3 or 4
// trial, accepting both registry and Roman-numeral spellings.
func isLatePhase(phase string) bool {
	p := strings.ToUpper(phase)
	return strings.Contains(p, "PHASE3") || strings.Contains(p, "PHASE4") ||
		strings.Contains(p, "PHASE 3") || strings.Contains(p, "PHASE 4") ||
		strings.Contains(p, "III") || strings.Contains(p, "IV")
}
