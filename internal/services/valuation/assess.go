package valuation

import (
	"fmt"

	"github.com/ternarybob/valuator/internal/models"
)

// Sector names carrying a fixed sector risk
const (
	SectorTechnology = "Technology"
	SectorHealthcare = "Healthcare"
	SectorFinancials = "Financials"
)

var sectorRisks = map[string]string{
	SectorTechnology: "Technology shifts and intensifying competition",
	SectorHealthcare: "Regulatory change and clinical trial failure",
	SectorFinancials: "Interest rate swings and credit exposure",
}

// Assess derives strengths and weaknesses from the metric set. Each rule fires into
// at most one of the two lists.
func (a *Analyzer) Assess(m ValueMetrics) (strengths, weaknesses []string) {
	return assess(a.config.Thresholds, m)
}

func assess(t Thresholds, m ValueMetrics) (strengths, weaknesses []string) {
	strengths = []string{}
	weaknesses = []string{}

	// growth
	if m.RevenueGrowth > t.RevenueGrowthStrong {
		strengths = append(strengths, fmt.Sprintf("Strong revenue growth (%.1f%%)", m.RevenueGrowth))
	} else if m.RevenueGrowth < t.RevenueGrowthWeak {
		weaknesses = append(weaknesses, fmt.Sprintf("Weak growth (revenue %.1f%%, net income %.1f%%)", m.RevenueGrowth, m.IncomeGrowth))
	}

	// profitability
	if m.ROE >= t.ROEStrong && m.ROA >= t.ROAStrong {
		strengths = append(strengths, fmt.Sprintf("High profitability (ROE %.1f%%, ROA %.1f%%)", m.ROE*100, m.ROA*100))
	} else if m.ROE < t.ROEWeak {
		weaknesses = append(weaknesses, fmt.Sprintf("Low profitability (ROE %.1f%%, ROA %.1f%%)", m.ROE*100, m.ROA*100))
	}

	// leverage
	if m.DebtToEquity < t.DebtToEquityLow {
		strengths = append(strengths, fmt.Sprintf("Conservative balance sheet (debt/equity %.1f)", m.DebtToEquity))
	} else if m.DebtToEquity > t.DebtToEquityHigh {
		weaknesses = append(weaknesses, fmt.Sprintf("High leverage (debt/equity %.1f)", m.DebtToEquity))
	}

	// valuation
	if m.PERatio > 0 && m.PERatio <= t.PEValue && m.PBRatio > 0 && m.PBRatio <= t.PBValue {
		strengths = append(strengths, fmt.Sprintf("Attractive valuation (PE %.1f, PB %.1f)", m.PERatio, m.PBRatio))
	} else if m.PERatio > t.PEExpensive || m.PBRatio > t.PBExpensive {
		weaknesses = append(weaknesses, fmt.Sprintf("Rich valuation (PE %.1f, PB %.1f)", m.PERatio, m.PBRatio))
	}

	// income
	if m.DividendYield >= t.DividendYieldStrong {
		strengths = append(strengths, fmt.Sprintf("Attractive dividend yield (%.1f%%)", m.DividendYield*100))
	} else if m.DividendYield == 0 {
		weaknesses = append(weaknesses, "No dividend")
	}

	return strengths, weaknesses
}

// IdentifyRisks lists risk factors in a fixed order: leverage, valuation, revenue,
// earnings, sector, then market volatility.
func (a *Analyzer) IdentifyRisks(raw *models.RawFinancials, m ValueMetrics) []string {
	return identifyRisks(a.config.Thresholds, raw, m)
}

func identifyRisks(t Thresholds, raw *models.RawFinancials, m ValueMetrics) []string {
	risks := []string{}

	if m.DebtToEquity > t.DebtToEquityHigh {
		risks = append(risks, "Financial risk from high debt levels")
	}
	if m.PERatio > t.PEExpensive {
		risks = append(risks, "Valuation risk from an elevated PE ratio")
	}
	if m.RevenueGrowth < 0 {
		risks = append(risks, "Growth risk from declining revenue")
	}
	if m.IncomeGrowth < 0 {
		risks = append(risks, "Profitability risk from declining net income")
	}

	if raw != nil {
		if risk, ok := sectorRisks[raw.Sector]; ok {
			risks = append(risks, risk)
		}
		if raw.Metric(models.MetricBeta) > t.HighBeta {
			risks = append(risks, "Market volatility risk from a high beta")
		}
	}

	return risks
}
