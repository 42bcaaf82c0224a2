// Package valuation turns collected fundamentals into a graded value-investing assessment.
//
// The package holds the metric builder, the blended target price estimator, the
// threshold-based assessor and the grade resolver. Apart from the optional Advisor
// it performs no I/O, and an Analyzer is safe for concurrent use.
package valuation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// InvestmentGrade is the five-step recommendation scale, ordered from most to least favorable.
type InvestmentGrade int

const (
	StrongBuy InvestmentGrade = iota
	Buy
	Hold
	Sell
	StrongSell
)

var gradeLabels = [...]string{
	StrongBuy:  "Strong Buy",
	Buy:        "Buy",
	Hold:       "Hold",
	Sell:       "Sell",
	StrongSell: "Strong Sell",
}

// AllGrades lists every grade in order
func AllGrades() []InvestmentGrade {
	return []InvestmentGrade{StrongBuy, Buy, Hold, Sell, StrongSell}
}

// IsValid reports whether g is one of the five defined grades
func (g InvestmentGrade) IsValid() bool {
	return g >= StrongBuy && g <= StrongSell
}

func (g InvestmentGrade) String() string {
	if !g.IsValid() {
		return gradeLabels[Hold]
	}
	return gradeLabels[g]
}

// ParseGrade maps a grade label to its InvestmentGrade. Matching ignores case,
// surrounding whitespace and markdown decoration. Unrecognized text yields Hold.
func ParseGrade(s string) InvestmentGrade {
	g, _ := lookupGrade(s)
	return g
}

func lookupGrade(s string) (InvestmentGrade, bool) {
	cleaned := strings.Trim(strings.TrimSpace(s), "*[]\"'`.")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	for i, label := range gradeLabels {
		if strings.EqualFold(cleaned, label) {
			return InvestmentGrade(i), true
		}
	}
	return Hold, false
}

// MarshalJSON encodes the grade as its label
func (g InvestmentGrade) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.String())
}

// UnmarshalJSON decodes a grade label
func (g *InvestmentGrade) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("investment grade must be a string: %w", err)
	}
	*g = ParseGrade(s)
	return nil
}

// ValueMetrics is the normalized metric set every downstream rule reads.
type ValueMetrics struct {
	PERatio       float64 `json:"pe_ratio"`
	PBRatio       float64 `json:"pb_ratio"`
	PEGRatio      float64 `json:"peg_ratio"`
	DividendYield float64 `json:"dividend_yield"`
	ROE           float64 `json:"roe"`
	ROA           float64 `json:"roa"`
	DebtToEquity  float64 `json:"debt_to_equity"`
	CurrentRatio  float64 `json:"current_ratio"` // placeholder, not derived from the balance sheet
	RevenueGrowth float64 `json:"revenue_growth"`
	IncomeGrowth  float64 `json:"income_growth"`
}

// ToPlainMap flattens the metrics into a string-keyed map of float64 values
func (m ValueMetrics) ToPlainMap() map[string]interface{} {
	return map[string]interface{}{
		"pe_ratio":       m.PERatio,
		"pb_ratio":       m.PBRatio,
		"peg_ratio":      m.PEGRatio,
		"dividend_yield": m.DividendYield,
		"roe":            m.ROE,
		"roa":            m.ROA,
		"debt_to_equity": m.DebtToEquity,
		"current_ratio":  m.CurrentRatio,
		"revenue_growth": m.RevenueGrowth,
		"income_growth":  m.IncomeGrowth,
	}
}

// GradeSource records which path produced a grade
type GradeSource string

const (
	SourceAdvisory GradeSource = "advisory"
	SourceFallback GradeSource = "fallback"
)

// AnalysisResult is the outcome of one Analyze call. It is not modified after
// construction; WithNarrative returns a copy.
type AnalysisResult struct {
	Symbol           string          `json:"symbol"`
	CompanyName      string          `json:"company_name"`
	Sector           string          `json:"sector"`
	AnalysisDate     time.Time       `json:"analysis_date"`
	InvestmentGrade  InvestmentGrade `json:"investment_grade"`
	ConfidenceScore  float64         `json:"confidence_score"`
	TargetPrice      float64         `json:"target_price"`
	CurrentPrice     float64         `json:"current_price"`
	UpsidePotential  float64         `json:"upside_potential"`
	KeyStrengths     []string        `json:"key_strengths"`
	KeyWeaknesses    []string        `json:"key_weaknesses"`
	Risks            []string        `json:"risks"`
	ValueMetrics     ValueMetrics    `json:"value_metrics"`
	DetailedAnalysis string          `json:"detailed_analysis"`
	GradeSource      GradeSource     `json:"grade_source"`
	GradeRationale   string          `json:"grade_rationale,omitempty"`
}

// WithNarrative returns a copy of the result carrying a replacement narrative.
func (r *AnalysisResult) WithNarrative(text string) *AnalysisResult {
	clone := *r
	clone.KeyStrengths = copyStrings(r.KeyStrengths)
	clone.KeyWeaknesses = copyStrings(r.KeyWeaknesses)
	clone.Risks = copyStrings(r.Risks)
	clone.DetailedAnalysis = text
	return &clone
}

// ToPlainMap returns the renderer-facing representation of the result.
// The grade is its label, numbers stay float64 and lists are never nil.
func (r *AnalysisResult) ToPlainMap() map[string]interface{} {
	return map[string]interface{}{
		"symbol":            r.Symbol,
		"company_name":      r.CompanyName,
		"sector":            r.Sector,
		"analysis_date":     r.AnalysisDate.Format(time.RFC3339Nano),
		"investment_grade":  r.InvestmentGrade.String(),
		"confidence_score":  r.ConfidenceScore,
		"target_price":      r.TargetPrice,
		"current_price":     r.CurrentPrice,
		"upside_potential":  r.UpsidePotential,
		"key_strengths":     copyStrings(r.KeyStrengths),
		"key_weaknesses":    copyStrings(r.KeyWeaknesses),
		"risks":             copyStrings(r.Risks),
		"value_metrics":     r.ValueMetrics.ToPlainMap(),
		"detailed_analysis": r.DetailedAnalysis,
		"grade_source":      string(r.GradeSource),
		"grade_rationale":   r.GradeRationale,
	}
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
