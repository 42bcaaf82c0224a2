package report

import (
	"gonum.org/v1/gonum/stat"

	"github.com/ternarybob/valuator/internal/services/valuation"
)

// SummaryStats aggregates a set of analysis plain maps
type SummaryStats struct {
	TotalStocks        int            `json:"total_stocks"`
	GradeDistribution  map[string]int `json:"grade_distribution"`
	AvgPERatio         float64        `json:"avg_pe_ratio"`
	AvgPBRatio         float64        `json:"avg_pb_ratio"`
	AvgROE             float64        `json:"avg_roe"`
	AvgUpsidePotential float64        `json:"avg_upside_potential"`
	BestPerformer      string         `json:"best_performer"`
	WorstPerformer     string         `json:"worst_performer"`
}

type gradeCount struct {
	Grade string
	Count int
}

// ComputeSummaryStats averages PE, PB and ROE over positive values only and picks
// the best and worst performers by upside. Ties keep the earliest result.
func ComputeSummaryStats(results []map[string]interface{}) SummaryStats {
	stats := SummaryStats{GradeDistribution: map[string]int{}}
	if len(results) == 0 {
		return stats
	}
	stats.TotalStocks = len(results)

	var pe, pb, roe, upsides []float64
	best, worst := 0, 0

	for i, r := range results {
		if grade := toString(r["investment_grade"]); grade != "" {
			stats.GradeDistribution[grade]++
		}

		metrics, _ := r["value_metrics"].(map[string]interface{})
		if v := toFloat(metrics["pe_ratio"]); v > 0 {
			pe = append(pe, v)
		}
		if v := toFloat(metrics["pb_ratio"]); v > 0 {
			pb = append(pb, v)
		}
		if v := toFloat(metrics["roe"]); v > 0 {
			roe = append(roe, v)
		}

		upside := toFloat(r["upside_potential"])
		upsides = append(upsides, upside)
		if upside > toFloat(results[best]["upside_potential"]) {
			best = i
		}
		if upside < toFloat(results[worst]["upside_potential"]) {
			worst = i
		}
	}

	stats.AvgPERatio = mean(pe)
	stats.AvgPBRatio = mean(pb)
	stats.AvgROE = mean(roe)
	stats.AvgUpsidePotential = mean(upsides)
	stats.BestPerformer = toString(results[best]["symbol"])
	stats.WorstPerformer = toString(results[worst]["symbol"])

	return stats
}

// orderedGrades lists the distribution from Strong Buy to Strong Sell, skipping empty grades
func (s SummaryStats) orderedGrades() []gradeCount {
	var out []gradeCount
	for _, g := range valuation.AllGrades() {
		if n := s.GradeDistribution[g.String()]; n > 0 {
			out = append(out, gradeCount{Grade: g.String(), Count: n})
		}
	}
	return out
}

// mean is stat.Mean with an empty slice reported as 0 instead of NaN
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return stat.Mean(values, nil)
}
