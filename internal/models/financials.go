package models

import (
	"strings"
	"time"
)

// Metric names carried in RawFinancials.Metrics
const (
	MetricPERatio           = "pe_ratio"
	MetricForwardPE         = "forward_pe"
	MetricPBRatio           = "pb_ratio"
	MetricROE               = "roe"
	MetricROA               = "roa"
	MetricDebtToEquity      = "debt_to_equity"
	MetricDividendYield     = "dividend_yield"
	MetricRevenueGrowth     = "revenue_growth"
	MetricIncomeGrowth      = "income_growth"
	MetricBeta              = "beta"
	MetricMarketCap         = "market_cap"
	MetricCash              = "cash_and_equivalents"
	MetricTotalDebt         = "total_debt"
	MetricFreeCashFlow      = "free_cash_flow"
	MetricSharesOutstanding = "shares_outstanding"
	Metric52WeekHigh        = "52_week_high"
	Metric52WeekLow         = "52_week_low"
	MetricVolatility30d     = "volatility_30d"
	MetricAvgVolume30d      = "avg_volume_30d"
)

// RawFinancials is the collector's per-symbol snapshot of price and fundamentals.
// Any metric may be missing from Metrics; readers treat a missing metric as zero.
type RawFinancials struct {
	Symbol       string             `json:"symbol"`
	CompanyName  string             `json:"company_name"`
	Sector       string             `json:"sector"`
	Industry     string             `json:"industry"`
	Currency     string             `json:"currency,omitempty"`
	CurrentPrice float64            `json:"current_price"`
	MarketCap    float64            `json:"market_cap"`
	Metrics      map[string]float64 `json:"metrics"`
	CollectedAt  time.Time          `json:"collected_at"`
}

// Metric returns the named metric, or 0 when it was not collected.
func (r *RawFinancials) Metric(name string) float64 {
	if r == nil || r.Metrics == nil {
		return 0
	}
	return r.Metrics[name]
}

// SetMetric records a metric value, allocating the map on first use.
func (r *RawFinancials) SetMetric(name string, value float64) {
	if r.Metrics == nil {
		r.Metrics = make(map[string]float64)
	}
	r.Metrics[name] = value
}

// NormalizeSymbol upper-cases a ticker and trims surrounding whitespace.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
