package insights

import (
	"sort"
	"time"

	"github.com/ybbu/NexJen-Bio/internal/trials"
)

// Technology aggregates trials sharing one mechanism of action.
type Technology struct {
	Mechanism   string `json:"mechanism"`
	Modality    string `json:"modality"`
	Target      string `json:"target"`
	TrialCount  int    `json:"trial_count"`
	RecentCount int    `json:"recent_count"`
	LatestStart string `json:"latest_start,omitempty"`
}

// recentWindow bounds the "recent" trial count.
const recentWindow = 2 * 365 * 24 * time.Hour

// EmergingTechnologies classifies every record's interventions and
// aggregates per mechanism, most-trialed first. Unknown mechanisms are
// excluded.
func (c *Classifier) EmergingTechnologies(records []*trials.Record, now time.Time) []*Technology {
	byMechanism := make(map[string]*Technology)
	var order []string

	cutoff := now.Add(-recentWindow)

	for _, rec := range records {
		cls := c.Classify(rec.Interventions)
		if cls.Mechanism == Unknown.Mechanism {
			continue
		}

		tech, ok := byMechanism[cls.Mechanism]
		if !ok {
			tech = &Technology{
				Mechanism: cls.Mechanism,
				Modality:  cls.Modality,
				Target:    cls.Target,
			}
			byMechanism[cls.Mechanism] = tech
			order = append(order, cls.Mechanism)
		}

		tech.TrialCount++
		if rec.HasStartDate() {
			if rec.StartDate.After(cutoff) {
				tech.RecentCount++
			}
			start := rec.StartDate.Format("2006-01-02")
			if start > tech.LatestStart {
				tech.LatestStart = start
			}
		}
	}

	out := make([]*Technology, 0, len(order))
	for _, mechanism := range order {
		out = append(out, byMechanism[mechanism])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].TrialCount != out[j].TrialCount {
			return out[i].TrialCount > out[j].TrialCount
		}
		return out[i].Mechanism < out[j].Mechanism
	})
	return out
}
