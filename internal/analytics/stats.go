package analytics

import (
	"math"
	"sort"
)

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)
	mid := len(cp) / 2
	if len(cp)%2 == 1 {
		return cp[mid]
	}
	return 0.5 * (cp[mid-1] + cp[mid])
}

// quantile returns the q-th sample quantile with linear interpolation
// between order statistics.
func quantile(xs []float64, q float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	cp := append([]float64(nil), xs...)
	sort.Float64s(cp)

	pos := q * float64(len(cp)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return cp[lo]
	}
	frac := pos - float64(lo)
	return cp[lo]*(1-frac) + cp[hi]*frac
}

// filterOutliers drops values above the 95th percentile. Enrollment
// has a heavy right tail (registry-wide trials), so medians are taken
// over the trimmed sample.
func filterOutliers(xs []float64) []float64 {
	if len(xs) == 0 {
		return xs
	}
	threshold := quantile(xs, 0.95)
	out := make([]float64, 0, len(xs))
	for _, v := range xs {
		if v <= threshold {
			out = append(out, v)
		}
	}
	return out
}

// robustEnrollmentMedian is the median enrollment after outlier
// trimming. Zero (unreported) enrollments are excluded.
func robustEnrollmentMedian(enrollments []float64) float64 {
	var reported []float64
	for _, v := range enrollments {
		if v > 0 {
			reported = append(reported, v)
		}
	}
	return median(filterOutliers(reported))
}

func deltaPct(current, baseline float64) float64 {
	if baseline > 0 {
		return (current - baseline) / baseline * 100
	}
	if current == 0 {
		return 0
	}
	return 100
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// sponsorHHI is the Herfindahl-Hirschman index over sponsor trial
// shares, on the 0-10000 scale (10000 = a single sponsor holds the
// whole cohort).
func sponsorHHI(counts map[string]int) float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	var hhi float64
	for _, c := range counts {
		share := float64(c) / float64(total) * 100
		hhi += share * share
	}
	return round2(hhi)
}
