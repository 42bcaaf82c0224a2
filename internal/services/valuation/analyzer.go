package valuation

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/models"
)

// Analyzer sequences metric building, target estimation, assessment and grading
// for one symbol at a time.
type Analyzer struct {
	config Config
	logger arbor.ILogger
	now    func() time.Time
}

// NewAnalyzer creates an Analyzer. Zero-valued anchors in cfg fall back to DefaultConfig.
func NewAnalyzer(cfg Config, logger arbor.ILogger) *Analyzer {
	if logger == nil {
		logger = arbor.NewLogger()
	}
	return &Analyzer{
		config: cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// Config returns the effective configuration
func (a *Analyzer) Config() Config {
	return a.config
}

// Analyze produces the AnalysisResult for one symbol. advisor may be nil, in which
// case grading is rule-based. A nil input yields a DataUnavailableError; any other
// fault is returned as an *AnalysisFailure.
func (a *Analyzer) Analyze(ctx context.Context, raw *models.RawFinancials, advisor Advisor) (result *AnalysisResult, err error) {
	if raw == nil {
		return nil, &DataUnavailableError{Reason: "no financial data supplied"}
	}

	symbol := raw.Symbol
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error().
				Str("symbol", symbol).
				Str("panic", fmt.Sprintf("%v", r)).
				Msg("Recovered from panic during analysis")
			result = nil
			err = &AnalysisFailure{Symbol: symbol, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	price := raw.CurrentPrice
	if math.IsNaN(price) || math.IsInf(price, 0) || price < 0 {
		return nil, &AnalysisFailure{Symbol: symbol, Err: fmt.Errorf("invalid current price %v", price)}
	}

	a.logger.Debug().Str("symbol", symbol).Msg("Starting value analysis")

	metrics := a.BuildMetrics(raw.Metrics)
	target := a.EstimateTargetPrice(price, metrics)
	upside := upsidePotential(target, price)
	strengths, weaknesses := a.Assess(metrics)
	risks := a.IdentifyRisks(raw, metrics)

	decision := a.ResolveGrade(ctx, GradeInput{
		Symbol:          symbol,
		CompanyName:     raw.CompanyName,
		Sector:          raw.Sector,
		CurrentPrice:    price,
		Metrics:         metrics,
		Strengths:       strengths,
		Weaknesses:      weaknesses,
		Risks:           risks,
		UpsidePotential: upside,
	}, advisor)

	result = &AnalysisResult{
		Symbol:          symbol,
		CompanyName:     raw.CompanyName,
		Sector:          raw.Sector,
		AnalysisDate:    a.now(),
		InvestmentGrade: decision.Grade,
		ConfidenceScore: decision.Confidence,
		TargetPrice:     target,
		CurrentPrice:    price,
		UpsidePotential: upside,
		KeyStrengths:    strengths,
		KeyWeaknesses:   weaknesses,
		Risks:           risks,
		ValueMetrics:    metrics,
		GradeSource:     decision.Source,
		GradeRationale:  decision.Rationale,
	}
	result.DetailedAnalysis = summarize(result)

	a.logger.Info().
		Str("symbol", symbol).
		Str("grade", decision.Grade.String()).
		Float64("confidence", decision.Confidence).
		Str("source", string(decision.Source)).
		Msg("Value analysis complete")

	return result, nil
}

// upsidePotential is the percentage gap from price to target; 0 when price is 0.
func upsidePotential(target, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return (target - price) / price * 100
}

// summarize builds the default narrative attached before any richer advisory text.
func summarize(r *AnalysisResult) string {
	m := r.ValueMetrics
	var b strings.Builder

	fmt.Fprintf(&b, "## %s (%s) Value Analysis\n\n", r.CompanyName, r.Symbol)
	fmt.Fprintf(&b, "### Investment Grade: %s\n\n", r.InvestmentGrade)
	b.WriteString("### Key Metrics\n")
	fmt.Fprintf(&b, "- PE: %.1f\n", m.PERatio)
	fmt.Fprintf(&b, "- PB: %.1f\n", m.PBRatio)
	fmt.Fprintf(&b, "- PEG: %.1f\n", m.PEGRatio)
	fmt.Fprintf(&b, "- ROE: %.1f%%\n", m.ROE*100)
	fmt.Fprintf(&b, "- Debt/Equity: %.1f\n", m.DebtToEquity)
	fmt.Fprintf(&b, "- Dividend yield: %.1f%%\n\n", m.DividendYield*100)
	b.WriteString("### Conclusion\n")
	if r.GradeSource == SourceAdvisory {
		fmt.Fprintf(&b, "The %s grade reflects an advisory review of the metrics and market context.", r.InvestmentGrade)
		if r.GradeRationale != "" {
			fmt.Fprintf(&b, " Rationale: %s", r.GradeRationale)
		}
	} else {
		fmt.Fprintf(&b, "The %s grade comes from rule-based scoring of valuation, profitability, growth and upside.", r.InvestmentGrade)
	}
	b.WriteString("\nReview the strengths and weaknesses carefully from a value investing perspective.")

	return b.String()
}
