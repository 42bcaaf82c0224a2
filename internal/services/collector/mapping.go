package collector

import (
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/ternarybob/valuator/internal/eodhd"
	"github.com/ternarybob/valuator/internal/models"
)

const (
	tradingDaysPerYear = 252
	recentWindow       = 30
)

// mapFinancials converts provider payloads into RawFinancials. bars must be oldest first.
func mapFinancials(symbol string, f *eodhd.FundamentalsResponse, bars eodhd.EODResponse, now time.Time) *models.RawFinancials {
	price := bars[len(bars)-1].Close

	fin := &models.RawFinancials{
		Symbol:       symbol,
		CompanyName:  f.General.Name,
		Sector:       normalizeSector(firstNonEmpty(f.General.Sector, f.General.GicSector)),
		Industry:     f.General.Industry,
		Currency:     f.General.CurrencyCode,
		CurrentPrice: price,
		CollectedAt:  now,
		Metrics:      make(map[string]float64),
	}
	if fin.CompanyName == "" {
		fin.CompanyName = symbol
	}

	if h := f.Highlights; h != nil {
		fin.MarketCap = h.MarketCapitalization
		setPositive(fin, models.MetricPERatio, h.PERatio)
		setNonZero(fin, models.MetricROE, h.ReturnOnEquityTTM)
		setNonZero(fin, models.MetricROA, h.ReturnOnAssetsTTM)
		setPositive(fin, models.MetricDividendYield, h.DividendYield)
		if h.BookValue > 0 {
			setPositive(fin, models.MetricPBRatio, price/h.BookValue)
		}
	}

	if v := f.Valuation; v != nil {
		if fin.Metric(models.MetricPERatio) == 0 {
			setPositive(fin, models.MetricPERatio, v.TrailingPE)
		}
		setPositive(fin, models.MetricForwardPE, v.ForwardPE)
		// reported price/book wins over the price/book-value estimate
		setPositive(fin, models.MetricPBRatio, v.PriceBookMRQ)
	}

	if d := f.SplitsDividends; d != nil && fin.Metric(models.MetricDividendYield) == 0 {
		setPositive(fin, models.MetricDividendYield, d.ForwardAnnualDividendYield)
	}

	if t := f.Technicals; t != nil {
		setNonZero(fin, models.MetricBeta, t.Beta)
		setPositive(fin, models.Metric52WeekHigh, t.FiftyTwoWeekHigh)
		setPositive(fin, models.Metric52WeekLow, t.FiftyTwoWeekLow)
	}

	if s := f.SharesStats; s != nil {
		setPositive(fin, models.MetricSharesOutstanding, s.SharesOutstanding)
	}

	fin.SetMetric(models.MetricMarketCap, fin.MarketCap)

	mapStatements(fin, f)
	mapPriceHistory(fin, bars, now)

	return fin
}

func mapStatements(fin *models.RawFinancials, f *eodhd.FundamentalsResponse) {
	statements := f.Financials
	if statements == nil {
		statements = &eodhd.Financials{}
	}

	years := statements.IncomeStatement.LatestYearly(2)
	if g, ok := yoyGrowth(years, "totalRevenue"); ok {
		fin.SetMetric(models.MetricRevenueGrowth, g)
	} else if f.Highlights != nil {
		fin.SetMetric(models.MetricRevenueGrowth, f.Highlights.QuarterlyRevenueGrowthYOY*100)
	}
	if g, ok := yoyGrowth(years, "netIncome"); ok {
		fin.SetMetric(models.MetricIncomeGrowth, g)
	} else if f.Highlights != nil {
		fin.SetMetric(models.MetricIncomeGrowth, f.Highlights.QuarterlyEarningsGrowthYOY*100)
	}

	if quarters := statements.BalanceSheet.LatestQuarterly(1); len(quarters) == 1 {
		q := quarters[0]
		debt, ok := q.Float("shortLongTermDebtTotal")
		if !ok {
			short, _ := q.Float("shortTermDebt")
			long, _ := q.Float("longTermDebt")
			debt = short + long
		}
		setPositive(fin, models.MetricTotalDebt, debt)

		if equity, ok := q.Float("totalStockholderEquity"); ok && equity > 0 {
			fin.SetMetric(models.MetricDebtToEquity, debt/equity)
		}

		cash, ok := q.Float("cashAndEquivalents")
		if !ok {
			cash, _ = q.Float("cash")
		}
		setPositive(fin, models.MetricCash, cash)
	}

	if years := statements.CashFlow.LatestYearly(1); len(years) == 1 {
		if fcf, ok := years[0].Float("freeCashFlow"); ok {
			setNonZero(fin, models.MetricFreeCashFlow, fcf)
		}
	}
}

// yoyGrowth is the percentage change of key between the two newest periods.
func yoyGrowth(periods []eodhd.StatementEntry, key string) (float64, bool) {
	if len(periods) < 2 {
		return 0, false
	}
	recent, ok1 := periods[0].Float(key)
	prev, ok2 := periods[1].Float(key)
	if !ok1 || !ok2 || prev == 0 {
		return 0, false
	}
	return (recent - prev) / math.Abs(prev) * 100, true
}

func mapPriceHistory(fin *models.RawFinancials, bars eodhd.EODResponse, now time.Time) {
	yearAgo := now.AddDate(-1, 0, 0)
	high, low := 0.0, math.MaxFloat64
	for _, bar := range bars {
		if !bar.Date.IsZero() && bar.Date.Before(yearAgo) {
			continue
		}
		if bar.High > high {
			high = bar.High
		}
		if bar.Low > 0 && bar.Low < low {
			low = bar.Low
		}
	}
	if high > 0 {
		fin.SetMetric(models.Metric52WeekHigh, high)
	}
	if low < math.MaxFloat64 {
		fin.SetMetric(models.Metric52WeekLow, low)
	}

	closes := make([]float64, 0, len(bars))
	for _, bar := range bars {
		c := bar.AdjustedClose
		if c <= 0 {
			c = bar.Close
		}
		closes = append(closes, c)
	}
	fin.SetMetric(models.MetricVolatility30d, annualizedVolatility(tail(dailyReturns(closes), recentWindow)))

	recent := tail(volumes(bars), recentWindow)
	if len(recent) > 0 {
		fin.SetMetric(models.MetricAvgVolume30d, stat.Mean(recent, nil))
	}
}

// annualizedVolatility is the sample standard deviation of daily returns scaled by sqrt(252).
func annualizedVolatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(tradingDaysPerYear)
}

func dailyReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 {
			returns = append(returns, (prices[i]-prices[i-1])/prices[i-1])
		}
	}
	return returns
}

func volumes(bars eodhd.EODResponse) []float64 {
	out := make([]float64, len(bars))
	for i, bar := range bars {
		out[i] = float64(bar.Volume)
	}
	return out
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func setPositive(fin *models.RawFinancials, name string, v float64) {
	if v > 0 && !math.IsInf(v, 0) {
		fin.SetMetric(name, v)
	}
}

func setNonZero(fin *models.RawFinancials, name string, v float64) {
	if v != 0 && !math.IsNaN(v) && !math.IsInf(v, 0) {
		fin.SetMetric(name, v)
	}
}

// normalizeSector maps provider sector names onto the names the risk rules use
func normalizeSector(sector string) string {
	switch strings.ToLower(strings.TrimSpace(sector)) {
	case "technology", "information technology":
		return "Technology"
	case "healthcare", "health care":
		return "Healthcare"
	case "financial services", "financials", "financial":
		return "Financials"
	default:
		return strings.TrimSpace(sector)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
