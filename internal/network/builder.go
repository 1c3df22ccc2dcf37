package network

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/ybbu/NexJen-Bio/internal/normalize"
	"github.com/ybbu/NexJen-Bio/internal/trials"
)

const dateFormat = "2006-01-02"

// Filters narrow the trial set before graph construction. All string
// filters are case-insensitive substring matches; Timeframe is one of
// "1y", "5y", "all" or empty (no cutoff); any other value falls back
// to one year.
type Filters struct {
	Condition string `json:"therapeutic_area,omitempty"`
	Phase     string `json:"phase,omitempty"`
	Country   string `json:"country,omitempty"`
	Timeframe string `json:"timeframe,omitempty"`
}

// BuildOptions select filtering, weighting and pruning for one build.
type BuildOptions struct {
	Filters *Filters
	Mode    WeightingMode
	TopK    int
}

// Builder constructs collaboration graphs over a trial snapshot. Safe
// for concurrent use; the only shared state is the bounded result
// cache.
type Builder struct {
	normalizer *normalize.Normalizer
	cache      *graphCache
	now        func() time.Time
	logger     *slog.Logger
}

// NewBuilder creates a Builder using the given entity normalizer.
func NewBuilder(n *normalize.Normalizer) *Builder {
	return &Builder{
		normalizer: n,
		cache:      newGraphCache(),
		now:        time.Now,
		logger:     slog.Default(),
	}
}

// BuildGraph builds the sponsor-institution network for the records,
// honoring filters, the weighting mode and optional top-K pruning.
func (b *Builder) BuildGraph(records []*trials.Record, opts BuildOptions) *Graph {
	if opts.Mode == "" {
		opts.Mode = ModeEstablishedNetwork
	}

	key := cacheKey(opts, len(records))
	if g, ok := b.cache.get(key); ok {
		return g
	}

	now := b.now()
	if opts.Filters != nil {
		records = applyFilters(records, opts.Filters, now)
	}

	nodes := make(map[string]*Node)
	edges := make(map[string]*Edge)
	var nodeOrder, edgeOrder []string

	ensureNode := func(id, nodeType string) *Node {
		if n, ok := nodes[id]; ok {
			return n
		}
		n := &Node{
			ID:            id,
			Type:          nodeType,
			Name:          id,
			CanonicalName: id,
			Aliases:       []string{},
			Trials:        []TrialRef{},
		}
		nodes[id] = n
		nodeOrder = append(nodeOrder, id)
		return n
	}

	for _, rec := range records {
		sponsor := b.normalizer.Normalize(rec.LeadSponsor)
		collaborators := ParseCollaborators(b.normalizer, rec.Collaborators)

		startDate := ""
		if rec.HasStartDate() {
			startDate = rec.StartDate.Format(dateFormat)
		}

		if sponsor != "" {
			node := ensureNode(sponsor, NodeTypeSponsor)
			node.Trials = append(node.Trials, TrialRef{
				NCTID:     rec.NCTID,
				Title:     rec.BriefTitle,
				Phase:     rec.Phases,
				Status:    rec.OverallStatus,
				StartDate: startDate,
				Condition: rec.Conditions,
				Country:   rec.Country,
			})
		}

		for _, collaborator := range collaborators {
			if collaborator == "" || collaborator == sponsor {
				continue
			}
			ensureNode(collaborator, NodeTypeInstitution)

			if sponsor == "" {
				continue
			}

			edgeID := sponsor + "__" + collaborator
			edge, ok := edges[edgeID]
			if !ok {
				edge = &Edge{
					ID:     edgeID,
					Source: sponsor,
					Target: collaborator,
					Meta: &EdgeMeta{
						NCTIDs:     []string{},
						Phases:     []string{},
						Conditions: []string{},
						Countries:  []string{},
					},
				}
				edges[edgeID] = edge
				edgeOrder = append(edgeOrder, edgeID)
			}

			edge.Meta.NCTIDs = append(edge.Meta.NCTIDs, rec.NCTID)
			edge.Meta.trialDates = append(edge.Meta.trialDates, rec.StartDate)
			if rec.Phases != "" {
				edge.Meta.Phases = append(edge.Meta.Phases, rec.Phases)
			}
			if rec.Conditions != "" {
				edge.Meta.Conditions = append(edge.Meta.Conditions, rec.Conditions)
			}
			if rec.Country != "" {
				edge.Meta.Countries = append(edge.Meta.Countries, rec.Country)
			}

			if rec.HasStartDate() {
				if edge.Meta.firstSeen.IsZero() || rec.StartDate.Before(edge.Meta.firstSeen) {
					edge.Meta.firstSeen = rec.StartDate
					edge.Meta.FirstSeen = rec.StartDate.Format(dateFormat)
				}
				if edge.Meta.lastSeen.IsZero() || rec.StartDate.After(edge.Meta.lastSeen) {
					edge.Meta.lastSeen = rec.StartDate
					edge.Meta.LastSeen = rec.StartDate.Format(dateFormat)
				}
			}
		}
	}

	applyEdgeWeights(edges, opts.Mode, now)
	computeNodeMetrics(nodes, edges, now)

	if opts.TopK > 0 {
		kept := topKEdges(edges, opts.TopK)
		var prunedOrder []string
		for _, id := range edgeOrder {
			if kept[id] {
				prunedOrder = append(prunedOrder, id)
			} else {
				delete(edges, id)
			}
		}
		edgeOrder = prunedOrder
	}

	graph := &Graph{
		Nodes: make([]*Node, 0, len(nodeOrder)),
		Edges: make([]*Edge, 0, len(edgeOrder)),
	}
	for _, id := range nodeOrder {
		graph.Nodes = append(graph.Nodes, nodes[id])
	}
	for _, id := range edgeOrder {
		graph.Edges = append(graph.Edges, edges[id])
	}

	b.cache.put(key, graph)

	b.logger.Debug("collaboration graph built",
		"nodes", len(graph.Nodes),
		"edges", len(graph.Edges),
		"mode", opts.Mode)

	return graph
}

// ClearCache drops all memoized graphs.
func (b *Builder) ClearCache() { b.cache.clear() }

func cacheKey(opts BuildOptions, rows int) string {
	f := Filters{}
	if opts.Filters != nil {
		f = *opts.Filters
	}
	return fmt.Sprintf("%s|%s|%s|%s_%s_%d_%d",
		f.Condition, f.Phase, f.Country, f.Timeframe, opts.Mode, opts.TopK, rows)
}

// applyFilters narrows records by substring matches and the timeframe
// cutoff. A cutoff excludes trials without a parseable start date.
func applyFilters(records []*trials.Record, f *Filters, now time.Time) []*trials.Record {
	cutoff := timeframeCutoff(f.Timeframe, now)

	var out []*trials.Record
	for _, rec := range records {
		if f.Condition != "" && !containsFold(rec.Conditions, f.Condition) {
			continue
		}
		if f.Phase != "" && !containsFold(rec.Phases, f.Phase) {
			continue
		}
		if f.Country != "" && !containsFold(rec.Country, f.Country) {
			continue
		}
		if !cutoff.IsZero() {
			if !rec.HasStartDate() || rec.StartDate.Before(cutoff) {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

func timeframeCutoff(timeframe string, now time.Time) time.Time {
	switch timeframe {
	case "":
		return time.Time{}
	case "1y":
		return now.AddDate(0, 0, -365)
	case "5y":
		return now.AddDate(0, 0, -1825)
	case "all":
		return time.Time{}
	default:
		return now.AddDate(0, 0, -365)
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// computeNodeMetrics fills degree, weighted degree and recent activity
// per node from the weighted edges.
func computeNodeMetrics(nodes map[string]*Node, edges map[string]*Edge, now time.Time) {
	recentCutoff := now.AddDate(0, 0, -365)

	for _, node := range nodes {
		node.Metrics = NodeMetrics{}
	}

	for _, edge := range edges {
		for _, endpoint := range []string{edge.Source, edge.Target} {
			node, ok := nodes[endpoint]
			if !ok {
				continue
			}
			node.Metrics.Degree++
			node.Metrics.WeightedDegree += edge.Weight
			if !edge.Meta.lastSeen.IsZero() && !edge.Meta.lastSeen.Before(recentCutoff) {
				node.Metrics.RecentActivity++
			}
		}
	}

	for _, node := range nodes {
		node.Metrics.WeightedDegree = round2(node.Metrics.WeightedDegree)
	}
}

// topKEdges returns the set of edge ids kept by top-K pruning: an edge
// survives when it ranks in the top K by weight for either endpoint.
func topKEdges(edges map[string]*Edge, k int) map[string]bool {
	type incident struct {
		id     string
		weight float64
	}
	byNode := make(map[string][]incident)

	for id, edge := range edges {
		byNode[edge.Source] = append(byNode[edge.Source], incident{id, edge.Weight})
		byNode[edge.Target] = append(byNode[edge.Target], incident{id, edge.Weight})
	}

	kept := make(map[string]bool)
	for _, incidents := range byNode {
		sort.Slice(incidents, func(i, j int) bool {
			if incidents[i].weight != incidents[j].weight {
				return incidents[i].weight > incidents[j].weight
			}
			return incidents[i].id < incidents[j].id
		})
		for i := 0; i < len(incidents) && i < k; i++ {
			kept[incidents[i].id] = true
		}
	}
	return kept
}
