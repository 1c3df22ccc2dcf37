package network

import (
	"math"
	"time"
)

// WeightingMode selects how edge weights decay with trial age.
type WeightingMode string

const (
	ModeFreshCollaborations WeightingMode = "fresh_collaborations"
	ModeEstablishedNetwork  WeightingMode = "established_network"
	ModeOnlyRecent          WeightingMode = "only_recent"
)

// modeConfig defines one weighting policy. DecayRate is per month;
// trials inside the boost window are multiplied by (1+RecencyBoost).
// Under only_recent, trials older than the window contribute zero.
type modeConfig struct {
	DecayRate        float64
	RecencyBoost     float64
	BoostCutoffMonth float64
	MinEdgeWeight    float64
}

var modeConfigs = map[WeightingMode]modeConfig{
	ModeFreshCollaborations: {
		DecayRate:        0.99,
		RecencyBoost:     1.0,
		BoostCutoffMonth: 6,
		MinEdgeWeight:    1.4,
	},
	ModeEstablishedNetwork: {
		DecayRate:        0.985,
		RecencyBoost:     0.4,
		BoostCutoffMonth: 3,
		MinEdgeWeight:    1.0,
	},
	ModeOnlyRecent: {
		DecayRate:        0.97,
		RecencyBoost:     1.2,
		BoostCutoffMonth: 12,
		MinEdgeWeight:    1.6,
	},
}

// configFor resolves a mode, falling back to established_network for
// anything unrecognized.
func configFor(mode WeightingMode) modeConfig {
	if cfg, ok := modeConfigs[mode]; ok {
		return cfg
	}
	return modeConfigs[ModeEstablishedNetwork]
}

// trialContribution is the raw weight one trial adds to its edge.
// Unparseable dates contribute a flat 1.
func trialContribution(start time.Time, now time.Time, mode WeightingMode, cfg modeConfig) float64 {
	if start.IsZero() {
		return 1
	}

	monthsSince := now.Sub(start).Hours() / 24 / 30

	if mode == ModeOnlyRecent && monthsSince > cfg.BoostCutoffMonth {
		return 0
	}

	base := math.Pow(cfg.DecayRate, math.Max(0, monthsSince))
	if monthsSince <= cfg.BoostCutoffMonth {
		return base * (1 + cfg.RecencyBoost)
	}
	return base
}

// applyEdgeWeights computes raw per-edge weights and rescales them
// linearly onto [0.5, 10]. When every raw weight is equal the scale is
// degenerate and all edges get 5.0.
func applyEdgeWeights(edges map[string]*Edge, mode WeightingMode, now time.Time) {
	if len(edges) == 0 {
		return
	}

	cfg := configFor(mode)

	wMin := math.Inf(1)
	wMax := math.Inf(-1)
	for _, edge := range edges {
		weight := 0.0
		for _, start := range edge.Meta.trialDates {
			weight += trialContribution(start, now, mode, cfg)
		}
		edge.Weight = weight

		if weight < wMin {
			wMin = weight
		}
		if weight > wMax {
			wMax = weight
		}
	}

	if wMax > wMin {
		for _, edge := range edges {
			scaled := (edge.Weight - wMin) / (wMax - wMin) * 10
			edge.Weight = math.Max(0.5, round2(scaled))
		}
	} else {
		for _, edge := range edges {
			edge.Weight = 5.0
		}
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
