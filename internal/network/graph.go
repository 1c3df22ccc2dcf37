// Package network builds the sponsor-institution collaboration graph
// from the trial snapshot, with selectable time-weighting policies.
package network

import "time"

// Node types.
const (
	NodeTypeSponsor     = "sponsor"
	NodeTypeInstitution = "institution"
)

// NodeMetrics are computed after edge weighting.
type NodeMetrics struct {
	Degree         int     `json:"degree"`
	WeightedDegree float64 `json:"weighted_degree"`
	RecentActivity int     `json:"recent_activity"`
}

// TrialRef is the trial summary attached to a sponsor node.
type TrialRef struct {
	NCTID     string `json:"nctId"`
	Title     string `json:"title"`
	Phase     string `json:"phase"`
	Status    string `json:"status"`
	StartDate string `json:"startDate"`
	Condition string `json:"condition"`
	Country   string `json:"country"`
}

// Node is one graph participant, keyed by canonical name.
type Node struct {
	ID            string      `json:"id"`
	Type          string      `json:"type"`
	Name          string      `json:"name"`
	CanonicalName string      `json:"canonical_name"`
	Aliases       []string    `json:"aliases"`
	Metrics       NodeMetrics `json:"metrics"`
	Trials        []TrialRef  `json:"trials"`
}

// EdgeMeta carries the trials backing one sponsor-collaborator edge.
type EdgeMeta struct {
	NCTIDs     []string `json:"nctIds"`
	FirstSeen  string   `json:"firstSeen"`
	LastSeen   string   `json:"lastSeen"`
	Phases     []string `json:"phases"`
	Conditions []string `json:"conditions"`
	Countries  []string `json:"countries"`

	// trialDates holds one entry per backing trial; the zero time
	// marks an unparseable date. Weighting decays each trial by its
	// own start date, not by the edge's firstSeen.
	trialDates []time.Time

	firstSeen time.Time
	lastSeen  time.Time
}

// Edge is one directed sponsor-to-collaborator connection.
type Edge struct {
	ID     string   `json:"id"`
	Source string   `json:"source"`
	Target string   `json:"target"`
	Weight float64   `json:"weight"`
	Meta   *EdgeMeta `json:"meta"`
}

// Graph is the built collaboration network.
type Graph struct {
	Nodes []*Node `json:"nodes"`
	Edges []*Edge `json:"edges"`
}
