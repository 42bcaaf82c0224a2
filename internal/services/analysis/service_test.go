package analysis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/eodhd"
	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/llm"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

type fakeCollector struct {
	data  map[string]*models.RawFinancials
	panic string

	mu       sync.Mutex
	requests []string
}

func (c *fakeCollector) Collect(ctx context.Context, symbol string) (*models.RawFinancials, error) {
	c.mu.Lock()
	c.requests = append(c.requests, symbol)
	c.mu.Unlock()

	if symbol == c.panic {
		panic("collector exploded")
	}
	raw, ok := c.data[symbol]
	if !ok {
		return nil, &valuation.DataUnavailableError{Symbol: symbol, Reason: "not found"}
	}
	return raw, nil
}

func (c *fakeCollector) ValidateSymbol(ctx context.Context, symbol string) bool {
	_, ok := c.data[symbol]
	return ok
}

func (c *fakeCollector) SuggestSymbols(ctx context.Context, query string) []string {
	return []string{"AAPL"}
}

type fakeNarrator struct {
	err error
}

func (n *fakeNarrator) GenerateAnalysis(ctx context.Context, raw *models.RawFinancials, depth llm.Depth) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	return "narrative " + raw.Symbol + " " + string(depth), nil
}

func (n *fakeNarrator) GenerateComparison(ctx context.Context, stocks map[string]*models.RawFinancials) (string, error) {
	if n.err != nil {
		return "", n.err
	}
	return "compared " + string(rune('0'+len(stocks))), nil
}

func financials(symbol string, price float64) *models.RawFinancials {
	raw := &models.RawFinancials{Symbol: symbol, CompanyName: symbol + " Corp", CurrentPrice: price}
	raw.SetMetric(models.MetricPERatio, 10)
	raw.SetMetric(models.MetricPBRatio, 1.2)
	raw.SetMetric(models.MetricROE, 0.2)
	raw.SetMetric(models.MetricRevenueGrowth, 12)
	return raw
}

func newTestService(collector Collector, narrator Narrator, concurrency, maxSymbols int) *Service {
	logger := arbor.NewLogger()
	return NewService(
		collector,
		valuation.NewAnalyzer(valuation.DefaultConfig(), logger),
		nil,
		narrator,
		common.BatchConfig{Concurrency: concurrency, MaxSymbols: maxSymbols},
		logger,
	)
}

func testCollector() *fakeCollector {
	return &fakeCollector{data: map[string]*models.RawFinancials{
		"AAPL": financials("AAPL", 100),
		"MSFT": financials("MSFT", 200),
		"KO":   financials("KO", 60),
	}}
}

func TestNormalizeSymbol(t *testing.T) {
	got, err := NormalizeSymbol(" aapl.us ")
	require.NoError(t, err)
	assert.Equal(t, "AAPL.US", got)

	for _, bad := range []string{"", "   ", "AA PL", "../etc", "TOOLONGSYMBOLNAMEXXXXXXXX"} {
		_, err := NormalizeSymbol(bad)
		assert.ErrorIs(t, err, ErrInvalidSymbol, bad)
	}
}

func TestAnalyzeSymbol(t *testing.T) {
	s := newTestService(testCollector(), &fakeNarrator{}, 2, 5)

	result, err := s.AnalyzeSymbol(context.Background(), "aapl", Options{Depth: llm.DepthBasic, Narrative: true})
	require.NoError(t, err)
	assert.Equal(t, "AAPL", result.Symbol)
	assert.True(t, result.InvestmentGrade.IsValid())
	assert.Equal(t, valuation.SourceFallback, result.GradeSource)
	assert.Equal(t, "narrative AAPL basic", result.DetailedAnalysis)
}

func TestAnalyzeSymbol_WithoutNarrativeKeepsSummary(t *testing.T) {
	s := newTestService(testCollector(), &fakeNarrator{}, 1, 5)

	result, err := s.AnalyzeSymbol(context.Background(), "AAPL", Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, result.DetailedAnalysis)
	assert.False(t, strings.HasPrefix(result.DetailedAnalysis, "narrative"))
}

func TestAnalyzeSymbol_NarrativeFailureIsText(t *testing.T) {
	s := newTestService(testCollector(), &fakeNarrator{err: errors.New("quota exceeded")}, 1, 5)

	result, err := s.AnalyzeSymbol(context.Background(), "AAPL", Options{Narrative: true})
	require.NoError(t, err)
	assert.Equal(t, "AI analysis failed: quota exceeded", result.DetailedAnalysis)
}

func TestAnalyzeSymbol_Errors(t *testing.T) {
	s := newTestService(testCollector(), nil, 1, 5)

	_, err := s.AnalyzeSymbol(context.Background(), "", Options{})
	assert.ErrorIs(t, err, ErrInvalidSymbol)

	_, err = s.AnalyzeSymbol(context.Background(), "ZZZZ", Options{})
	assert.True(t, valuation.IsDataUnavailable(err))
}

func TestAnalyzeMany(t *testing.T) {
	collector := testCollector()
	collector.panic = "BOOM"
	s := newTestService(collector, nil, 3, 5)

	batch, err := s.AnalyzeMany(context.Background(), []string{"msft", "NOPE", "aapl", "MSFT", "BOOM"}, Options{})
	require.NoError(t, err)

	assert.NotEmpty(t, batch.RunID)
	require.Len(t, batch.Results, 2)
	assert.Equal(t, "MSFT", batch.Results[0].Symbol)
	assert.Equal(t, "AAPL", batch.Results[1].Symbol)

	require.Len(t, batch.Failures, 2)
	assert.Equal(t, "NOPE", batch.Failures[0].Symbol)
	assert.Equal(t, "BOOM", batch.Failures[1].Symbol)
	assert.Contains(t, batch.Failures[1].Reason, "panic")

	plain := batch.PlainResults()
	require.Len(t, plain, 2)
	assert.Equal(t, "MSFT", plain[0]["symbol"])
}

func TestAnalyzeMany_Limit(t *testing.T) {
	s := newTestService(testCollector(), nil, 2, 2)

	_, err := s.AnalyzeMany(context.Background(), []string{"AAPL", "MSFT", "KO"}, Options{})
	assert.ErrorIs(t, err, ErrTooManySymbols)

	// duplicates do not count twice
	batch, err := s.AnalyzeMany(context.Background(), []string{"AAPL", "aapl", "MSFT"}, Options{})
	require.NoError(t, err)
	assert.Len(t, batch.Results, 2)
}

func TestAnalyzeMany_CancelledContext(t *testing.T) {
	s := newTestService(testCollector(), nil, 2, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch, err := s.AnalyzeMany(ctx, []string{"AAPL", "MSFT"}, Options{})
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
	assert.Len(t, batch.Failures, 2)
}

func TestCompare(t *testing.T) {
	s := newTestService(testCollector(), &fakeNarrator{}, 2, 5)

	comparison, err := s.Compare(context.Background(), []string{"AAPL", "MSFT"}, Options{Narrative: true})
	require.NoError(t, err)
	assert.Len(t, comparison.Results, 2)
	assert.Equal(t, "compared 2", comparison.Narrative)

	_, err = s.Compare(context.Background(), []string{"AAPL"}, Options{})
	assert.ErrorIs(t, err, ErrTooFewSymbols)

	_, err = s.Compare(context.Background(), []string{"A", "B", "C", "D", "E", "F"}, Options{})
	assert.ErrorIs(t, err, ErrTooManySymbols)

	_, err = s.Compare(context.Background(), []string{"AAPL", "NOPE"}, Options{})
	assert.ErrorIs(t, err, ErrTooFewSymbols)
}

func TestCompare_NarrativeFailure(t *testing.T) {
	s := newTestService(testCollector(), &fakeNarrator{err: errors.New("down")}, 2, 5)

	comparison, err := s.Compare(context.Background(), []string{"AAPL", "KO"}, Options{Narrative: true})
	require.NoError(t, err)
	assert.Equal(t, "AI analysis failed: down", comparison.Narrative)
}

func TestValidate(t *testing.T) {
	s := newTestService(testCollector(), nil, 1, 5)

	ok, suggestions := s.Validate(context.Background(), "aapl")
	assert.True(t, ok)
	assert.Nil(t, suggestions)

	ok, suggestions = s.Validate(context.Background(), "apple inc")
	assert.False(t, ok)
	assert.Equal(t, []string{"AAPL"}, suggestions)
}

func TestValuationConfig(t *testing.T) {
	cfg := ValuationConfig(common.ValuationConfig{FairPE: 18, HighBeta: 2})
	assert.Equal(t, 18.0, cfg.FairPE)
	assert.Equal(t, 2.0, cfg.Thresholds.HighBeta)
	assert.Equal(t, valuation.DefaultThresholds().ROEStrong, cfg.Thresholds.ROEStrong)
}

func TestIsUnknownSymbol(t *testing.T) {
	notFound := &valuation.DataUnavailableError{
		Symbol: "XYZ.US",
		Reason: "fundamentals request failed",
		Err:    &eodhd.APIError{StatusCode: 404, Message: "Ticker Not Found", Endpoint: "fundamentals"},
	}
	serverErr := &valuation.DataUnavailableError{
		Symbol: "XYZ.US",
		Err:    &eodhd.APIError{StatusCode: 500, Endpoint: "fundamentals"},
	}

	assert.True(t, IsUnknownSymbol(notFound))
	assert.True(t, IsUnknownSymbol(fmt.Errorf("%w: %q", ErrInvalidSymbol, "")))
	assert.False(t, IsUnknownSymbol(serverErr))
	assert.False(t, IsUnknownSymbol(errors.New("boom")))
}
