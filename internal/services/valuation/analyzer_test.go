package valuation

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/valuator/internal/models"
)

func fixedAnalyzer(t *testing.T) *Analyzer {
	t.Helper()
	a := NewAnalyzer(DefaultConfig(), nil)
	at := time.Date(2026, 3, 14, 9, 30, 0, 123456789, time.UTC)
	a.now = func() time.Time { return at }
	return a
}

func valueStock() *models.RawFinancials {
	return &models.RawFinancials{
		Symbol:       "VAL.US",
		CompanyName:  "Value Corp",
		Sector:       "Industrials",
		CurrentPrice: 100,
		Metrics: map[string]float64{
			models.MetricPERatio:       10,
			models.MetricPBRatio:       1,
			models.MetricDividendYield: 0.03,
			models.MetricROE:           0.16,
			models.MetricROA:           0.09,
			models.MetricDebtToEquity:  0.2,
			models.MetricRevenueGrowth: 12,
			models.MetricIncomeGrowth:  20,
		},
	}
}

func TestAnalyze_ValueStockWithoutAdvisor(t *testing.T) {
	a := fixedAnalyzer(t)

	result, err := a.Analyze(context.Background(), valueStock(), nil)
	require.NoError(t, err)

	// candidates 150 (earnings), 200 (book), 75 (dividend); median 150
	assert.InDelta(t, 150.0, result.TargetPrice, 1e-9)
	assert.InDelta(t, 50.0, result.UpsidePotential, 1e-9)

	// 50 + 20 (pe) + 15 (roe) + 10 (revenue) = 95, +15 for upside above 30
	assert.Equal(t, StrongBuy, result.InvestmentGrade)
	assert.Equal(t, 100.0, result.ConfidenceScore)
	assert.Equal(t, SourceFallback, result.GradeSource)

	assert.Equal(t, 0.5, result.ValueMetrics.PEGRatio)
	assert.Equal(t, 1.5, result.ValueMetrics.CurrentRatio)
	assert.Len(t, result.KeyStrengths, 5)
	assert.Empty(t, result.KeyWeaknesses)
	assert.Empty(t, result.Risks)
	assert.Equal(t, "Value Corp", result.CompanyName)
	assert.Contains(t, result.DetailedAnalysis, "Investment Grade: Strong Buy")
}

func TestAnalyze_AllZeroMetrics(t *testing.T) {
	a := fixedAnalyzer(t)

	result, err := a.Analyze(context.Background(), &models.RawFinancials{Symbol: "ZERO", CurrentPrice: 50}, nil)
	require.NoError(t, err)

	assert.Equal(t, 50.0, result.TargetPrice)
	assert.Equal(t, 0.0, result.UpsidePotential)
	assert.Equal(t, Hold, result.InvestmentGrade)
	assert.Equal(t, 50.0, result.ConfidenceScore)
}

func TestAnalyze_ZeroPrice(t *testing.T) {
	a := fixedAnalyzer(t)
	raw := valueStock()
	raw.CurrentPrice = 0

	result, err := a.Analyze(context.Background(), raw, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.0, result.TargetPrice)
	assert.Equal(t, 0.0, result.UpsidePotential)
}

func TestAnalyze_AdvisorFailureMatchesFallback(t *testing.T) {
	a := fixedAnalyzer(t)

	withoutAdvisor, err := a.Analyze(context.Background(), valueStock(), nil)
	require.NoError(t, err)

	failing := AdvisorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "", errors.New("quota exhausted")
	})
	withFailure, err := a.Analyze(context.Background(), valueStock(), failing)
	require.NoError(t, err)

	assert.Equal(t, withoutAdvisor.InvestmentGrade, withFailure.InvestmentGrade)
	assert.Equal(t, withoutAdvisor.ConfidenceScore, withFailure.ConfidenceScore)
	assert.Equal(t, withoutAdvisor.TargetPrice, withFailure.TargetPrice)
}

func TestAnalyze_AdvisoryGrade(t *testing.T) {
	a := fixedAnalyzer(t)
	advisor := AdvisorFunc(func(ctx context.Context, prompt string) (string, error) {
		return "등급: Buy\n신뢰도: 77\n핵심근거: Cheap but cyclical", nil
	})

	result, err := a.Analyze(context.Background(), valueStock(), advisor)
	require.NoError(t, err)

	assert.Equal(t, Buy, result.InvestmentGrade)
	assert.Equal(t, 77.0, result.ConfidenceScore)
	assert.Equal(t, SourceAdvisory, result.GradeSource)
	assert.Equal(t, "Cheap but cyclical", result.GradeRationale)
	assert.Contains(t, result.DetailedAnalysis, "Cheap but cyclical")
}

func TestAnalyze_Errors(t *testing.T) {
	a := fixedAnalyzer(t)

	_, err := a.Analyze(context.Background(), nil, nil)
	require.Error(t, err)
	assert.True(t, IsDataUnavailable(err))

	raw := valueStock()
	raw.CurrentPrice = math.NaN()
	_, err = a.Analyze(context.Background(), raw, nil)
	require.Error(t, err)
	var failure *AnalysisFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, "VAL.US", failure.Symbol)

	raw.CurrentPrice = -5
	_, err = a.Analyze(context.Background(), raw, nil)
	assert.True(t, IsAnalysisFailure(err))
}

func TestAnalysisResult_ToPlainMap(t *testing.T) {
	a := fixedAnalyzer(t)
	result, err := a.Analyze(context.Background(), valueStock(), nil)
	require.NoError(t, err)

	plain := result.ToPlainMap()

	assert.Equal(t, "VAL.US", plain["symbol"])
	assert.Equal(t, "Strong Buy", plain["investment_grade"])
	assert.Equal(t, result.ConfidenceScore, plain["confidence_score"])
	assert.Equal(t, result.TargetPrice, plain["target_price"])
	assert.Equal(t, result.CurrentPrice, plain["current_price"])
	assert.Equal(t, result.UpsidePotential, plain["upside_potential"])
	assert.Equal(t, result.KeyStrengths, plain["key_strengths"])
	assert.Equal(t, []string{}, plain["key_weaknesses"])
	assert.Equal(t, []string{}, plain["risks"])
	assert.Equal(t, result.DetailedAnalysis, plain["detailed_analysis"])

	metrics, ok := plain["value_metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 10.0, metrics["pe_ratio"])
	assert.Equal(t, 0.5, metrics["peg_ratio"])
	assert.Equal(t, 0.16, metrics["roe"])

	date, ok := plain["analysis_date"].(string)
	require.True(t, ok)
	parsed, err := time.Parse(time.RFC3339Nano, date)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(result.AnalysisDate))
}

func TestAnalysisResult_JSONUsesGradeLabel(t *testing.T) {
	a := fixedAnalyzer(t)
	result, err := a.Analyze(context.Background(), valueStock(), nil)
	require.NoError(t, err)

	data, err := json.Marshal(result)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"investment_grade":"Strong Buy"`)

	var decoded AnalysisResult
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, result.InvestmentGrade, decoded.InvestmentGrade)
	assert.Equal(t, result.TargetPrice, decoded.TargetPrice)
}

func TestAnalysisResult_WithNarrative(t *testing.T) {
	a := fixedAnalyzer(t)
	result, err := a.Analyze(context.Background(), valueStock(), nil)
	require.NoError(t, err)
	original := result.DetailedAnalysis

	enriched := result.WithNarrative("A much longer story")
	enriched.KeyStrengths[0] = "changed"

	assert.Equal(t, "A much longer story", enriched.DetailedAnalysis)
	assert.Equal(t, original, result.DetailedAnalysis)
	assert.NotEqual(t, "changed", result.KeyStrengths[0])
	assert.Equal(t, result.InvestmentGrade, enriched.InvestmentGrade)
}

func TestAnalyze_ConcurrentUse(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	done := make(chan *AnalysisResult, 8)

	for i := 0; i < 8; i++ {
		go func() {
			r, err := a.Analyze(context.Background(), valueStock(), nil)
			if err != nil {
				done <- nil
				return
			}
			done <- r
		}()
	}

	for i := 0; i < 8; i++ {
		r := <-done
		require.NotNil(t, r)
		assert.Equal(t, StrongBuy, r.InvestmentGrade)
	}
}
