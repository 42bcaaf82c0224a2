package valuation

import (
	"math"
	"sort"
)

// EstimateTargetPrice blends the earnings-multiple, book-multiple and dividend-discount
// estimates into one target bounded to [TargetFloor, TargetCeiling] times the current
// price. Without any usable estimate, or on a numeric fault, the current price is returned.
func (a *Analyzer) EstimateTargetPrice(currentPrice float64, m ValueMetrics) float64 {
	return estimateTarget(a.config, currentPrice, m)
}

func estimateTarget(cfg Config, currentPrice float64, m ValueMetrics) float64 {
	if !isFinite(currentPrice) || currentPrice <= 0 {
		return currentPrice
	}

	candidates := targetCandidates(cfg, currentPrice, m)
	if len(candidates) == 0 {
		return currentPrice
	}

	var target float64
	sort.Float64s(candidates)
	if len(candidates) >= 3 {
		target = candidates[len(candidates)/2]
	} else {
		sum := 0.0
		for _, c := range candidates {
			sum += c
		}
		target = sum / float64(len(candidates))
	}

	if !isFinite(target) {
		return currentPrice
	}

	lo := currentPrice * cfg.TargetFloor
	hi := currentPrice * cfg.TargetCeiling
	return math.Max(lo, math.Min(hi, target))
}

func targetCandidates(cfg Config, price float64, m ValueMetrics) []float64 {
	candidates := make([]float64, 0, 3)

	if m.PERatio > 0 {
		eps := price / m.PERatio
		if eps > 0 && isFinite(eps) {
			candidates = append(candidates, eps*cfg.FairPE)
		}
	}

	if m.PBRatio > 0 {
		bookValue := price / m.PBRatio
		if bookValue > 0 && isFinite(bookValue) {
			candidates = append(candidates, bookValue*cfg.FairPB)
		}
	}

	if m.DividendYield > 0 {
		dividend := price * m.DividendYield
		growth := math.Max(0, math.Min(cfg.MaxDividendGrowth, m.IncomeGrowth/100))
		if cfg.RequiredReturn > growth {
			candidates = append(candidates, dividend/(cfg.RequiredReturn-growth))
		}
	}

	out := candidates[:0]
	for _, c := range candidates {
		if isFinite(c) {
			out = append(out, c)
		}
	}
	return out
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
