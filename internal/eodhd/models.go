package eodhd

import (
	"encoding/json"
	"sort"
	"strconv"
	"time"
)

// EODData represents a single day's end-of-day price data.
type EODData struct {
	Date          time.Time `json:"-"`
	DateStr       string    `json:"date"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	AdjustedClose float64   `json:"adjusted_close"`
	Volume        int64     `json:"volume"`
}

// EODResponse is a slice of EODData.
type EODResponse []EODData

// FundamentalsResponse holds the parts of the fundamentals payload the collector reads.
type FundamentalsResponse struct {
	General         *GeneralInfo     `json:"General"`
	Highlights      *Highlights      `json:"Highlights"`
	Valuation       *Valuation       `json:"Valuation"`
	SharesStats     *SharesStats     `json:"SharesStats"`
	Technicals      *Technicals      `json:"Technicals"`
	SplitsDividends *SplitsDividends `json:"SplitsDividends"`
	Financials      *Financials      `json:"Financials"`
}

// GeneralInfo contains general company information.
type GeneralInfo struct {
	Code         string `json:"Code"`
	Type         string `json:"Type"`
	Name         string `json:"Name"`
	Exchange     string `json:"Exchange"`
	CurrencyCode string `json:"CurrencyCode"`
	CountryName  string `json:"CountryName"`
	Sector       string `json:"Sector"`
	Industry     string `json:"Industry"`
	GicSector    string `json:"GicSector"`
	Description  string `json:"Description"`
	UpdatedAt    string `json:"UpdatedAt"`
}

// Highlights contains key financial highlights.
type Highlights struct {
	MarketCapitalization       float64 `json:"MarketCapitalization"`
	PERatio                    float64 `json:"PERatio"`
	BookValue                  float64 `json:"BookValue"`
	DividendShare              float64 `json:"DividendShare"`
	DividendYield              float64 `json:"DividendYield"`
	EarningsShare              float64 `json:"EarningsShare"`
	ProfitMargin               float64 `json:"ProfitMargin"`
	ReturnOnAssetsTTM          float64 `json:"ReturnOnAssetsTTM"`
	ReturnOnEquityTTM          float64 `json:"ReturnOnEquityTTM"`
	RevenueTTM                 float64 `json:"RevenueTTM"`
	QuarterlyRevenueGrowthYOY  float64 `json:"QuarterlyRevenueGrowthYOY"`
	QuarterlyEarningsGrowthYOY float64 `json:"QuarterlyEarningsGrowthYOY"`
}

// Valuation contains valuation metrics.
type Valuation struct {
	TrailingPE   float64 `json:"TrailingPE"`
	ForwardPE    float64 `json:"ForwardPE"`
	PriceBookMRQ float64 `json:"PriceBookMRQ"`
}

// SharesStats contains share count data.
type SharesStats struct {
	SharesOutstanding float64 `json:"SharesOutstanding"`
	SharesFloat       float64 `json:"SharesFloat"`
}

// Technicals contains technical analysis data.
type Technicals struct {
	Beta             float64 `json:"Beta"`
	FiftyTwoWeekHigh float64 `json:"52WeekHigh"`
	FiftyTwoWeekLow  float64 `json:"52WeekLow"`
}

// SplitsDividends contains dividend rate information.
type SplitsDividends struct {
	ForwardAnnualDividendRate  float64 `json:"ForwardAnnualDividendRate"`
	ForwardAnnualDividendYield float64 `json:"ForwardAnnualDividendYield"`
}

// Financials contains financial statements.
type Financials struct {
	BalanceSheet    *FinancialStatement `json:"Balance_Sheet"`
	CashFlow        *FinancialStatement `json:"Cash_Flow"`
	IncomeStatement *FinancialStatement `json:"Income_Statement"`
}

// FinancialStatement represents a financial statement with quarterly and yearly data.
type FinancialStatement struct {
	Currency  string                            `json:"currency"`
	Quarterly map[string]map[string]interface{} `json:"quarterly"`
	Yearly    map[string]map[string]interface{} `json:"yearly"`
}

// StatementEntry is one dated period of a financial statement
type StatementEntry struct {
	Date   string
	Values map[string]interface{}
}

// Float reads a numeric line item. EODHD encodes figures as strings, numbers or null;
// anything unreadable returns ok=false.
func (e StatementEntry) Float(key string) (float64, bool) {
	return toFloat(e.Values[key])
}

// LatestYearly returns up to n yearly entries, newest first.
func (s *FinancialStatement) LatestYearly(n int) []StatementEntry {
	if s == nil {
		return nil
	}
	return latest(s.Yearly, n)
}

// LatestQuarterly returns up to n quarterly entries, newest first.
func (s *FinancialStatement) LatestQuarterly(n int) []StatementEntry {
	if s == nil {
		return nil
	}
	return latest(s.Quarterly, n)
}

func latest(periods map[string]map[string]interface{}, n int) []StatementEntry {
	dates := make([]string, 0, len(periods))
	for date := range periods {
		dates = append(dates, date)
	}
	// ISO dates sort lexically
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))

	if n > 0 && len(dates) > n {
		dates = dates[:n]
	}

	entries := make([]StatementEntry, 0, len(dates))
	for _, date := range dates {
		entries = append(entries, StatementEntry{Date: date, Values: periods[date]})
	}
	return entries
}

func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}

// SearchResult is one match from the ticker search endpoint.
type SearchResult struct {
	Code          string  `json:"Code"`
	Exchange      string  `json:"Exchange"`
	Name          string  `json:"Name"`
	Type          string  `json:"Type"`
	Country       string  `json:"Country"`
	Currency      string  `json:"Currency"`
	ISIN          string  `json:"ISIN"`
	PreviousClose float64 `json:"previousClose"`
}

// Symbol returns the result as TICKER.EXCHANGE
func (r SearchResult) Symbol() string {
	if r.Exchange == "" {
		return r.Code
	}
	return r.Code + "." + r.Exchange
}
