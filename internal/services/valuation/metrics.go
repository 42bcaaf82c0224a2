package valuation

import "github.com/ternarybob/valuator/internal/models"

// BuildMetrics normalizes a raw metric bag into ValueMetrics. Missing entries read as 0.
func (a *Analyzer) BuildMetrics(raw map[string]float64) ValueMetrics {
	return buildMetrics(raw, a.config.CurrentRatio)
}

func buildMetrics(raw map[string]float64, currentRatio float64) ValueMetrics {
	get := func(name string) float64 {
		if raw == nil {
			return 0
		}
		return raw[name]
	}

	pe := get(models.MetricPERatio)
	incomeGrowth := get(models.MetricIncomeGrowth)

	return ValueMetrics{
		PERatio:       pe,
		PBRatio:       get(models.MetricPBRatio),
		PEGRatio:      pegRatio(pe, incomeGrowth),
		DividendYield: get(models.MetricDividendYield),
		ROE:           get(models.MetricROE),
		ROA:           get(models.MetricROA),
		DebtToEquity:  get(models.MetricDebtToEquity),
		CurrentRatio:  currentRatio,
		RevenueGrowth: get(models.MetricRevenueGrowth),
		IncomeGrowth:  incomeGrowth,
	}
}

// pegRatio is PE over income growth, or 0 unless growth is positive.
func pegRatio(pe, incomeGrowth float64) float64 {
	if incomeGrowth > 0 {
		return pe / incomeGrowth
	}
	return 0
}
