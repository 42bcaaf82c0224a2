package llm

import (
	"fmt"
	"strings"

	"github.com/ternarybob/valuator/internal/models"
)

// FormatStockData renders raw financials as the Markdown data block used in prompts
func FormatStockData(raw *models.RawFinancials) string {
	if raw == nil {
		return ""
	}
	m := raw.Metric

	var b strings.Builder
	fmt.Fprintf(&b, "\n## Company\n")
	fmt.Fprintf(&b, "- Symbol: %s\n", orNA(raw.Symbol))
	fmt.Fprintf(&b, "- Name: %s\n", orNA(raw.CompanyName))
	fmt.Fprintf(&b, "- Sector: %s\n", orNA(raw.Sector))
	fmt.Fprintf(&b, "- Industry: %s\n", orNA(raw.Industry))
	fmt.Fprintf(&b, "- Current price: $%.2f\n", raw.CurrentPrice)
	fmt.Fprintf(&b, "- Market cap: %s\n", FormatCurrency(raw.MarketCap))

	fmt.Fprintf(&b, "\n## Key ratios\n")
	fmt.Fprintf(&b, "- PE: %.2f\n", m(models.MetricPERatio))
	fmt.Fprintf(&b, "- PB: %.2f\n", m(models.MetricPBRatio))
	fmt.Fprintf(&b, "- ROE: %.2f%%\n", m(models.MetricROE)*100)
	fmt.Fprintf(&b, "- ROA: %.2f%%\n", m(models.MetricROA)*100)
	fmt.Fprintf(&b, "- Debt/Equity: %.2f\n", m(models.MetricDebtToEquity))
	fmt.Fprintf(&b, "- Dividend yield: %.2f%%\n", m(models.MetricDividendYield)*100)
	fmt.Fprintf(&b, "- Revenue growth: %.2f%%\n", m(models.MetricRevenueGrowth))
	fmt.Fprintf(&b, "- Net income growth: %.2f%%\n", m(models.MetricIncomeGrowth))

	fmt.Fprintf(&b, "\n## Price and risk\n")
	fmt.Fprintf(&b, "- 52-week high: $%.2f\n", m(models.Metric52WeekHigh))
	fmt.Fprintf(&b, "- 52-week low: $%.2f\n", m(models.Metric52WeekLow))
	fmt.Fprintf(&b, "- Beta: %.2f\n", m(models.MetricBeta))
	fmt.Fprintf(&b, "- 30-day volatility: %.2f%%\n", m(models.MetricVolatility30d)*100)
	fmt.Fprintf(&b, "- Average volume (30d): %s\n", formatCount(m(models.MetricAvgVolume30d)))

	fmt.Fprintf(&b, "\n## Balance sheet\n")
	fmt.Fprintf(&b, "- Cash and equivalents: %s\n", FormatCurrency(m(models.MetricCash)))
	fmt.Fprintf(&b, "- Total debt: %s\n", FormatCurrency(m(models.MetricTotalDebt)))
	fmt.Fprintf(&b, "- Free cash flow: %s\n", FormatCurrency(m(models.MetricFreeCashFlow)))
	fmt.Fprintf(&b, "- Shares outstanding: %s\n", formatCount(m(models.MetricSharesOutstanding)))

	return b.String()
}

// FormatCurrency renders an amount with a T/B/M/K suffix, e.g. $2.50T
func FormatCurrency(amount float64) string {
	if amount == 0 {
		return "$0"
	}

	switch abs := absFloat(amount); {
	case abs >= 1e12:
		return fmt.Sprintf("$%.2fT", amount/1e12)
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", amount/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", amount/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.2fK", amount/1e3)
	default:
		return fmt.Sprintf("$%.2f", amount)
	}
}

// formatCount renders a whole number with thousands separators
func formatCount(v float64) string {
	s := fmt.Sprintf("%.0f", v)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var out []byte
	for i := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, s[i])
	}

	if neg {
		return "-" + string(out)
	}
	return string(out)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
