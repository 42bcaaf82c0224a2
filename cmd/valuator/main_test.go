package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ternarybob/valuator/internal/services/valuation"
)

func TestRequestedSymbols(t *testing.T) {
	assert.Nil(t, requestedSymbols("", ""))
	assert.Equal(t, []string{"AAPL"}, requestedSymbols(" aapl ", ""))
	assert.Equal(t, []string{"AAPL", "MSFT", "KO"}, requestedSymbols("AAPL", "msft, ,aapl,KO"))
}

func TestRenderResults(t *testing.T) {
	out := renderResults([]*valuation.AnalysisResult{
		{Symbol: "AAPL", CompanyName: "Apple Inc", CurrentPrice: 100, TargetPrice: 120, UpsidePotential: 20, InvestmentGrade: valuation.Buy, ConfidenceScore: 0.65, GradeSource: valuation.SourceFallback},
		{Symbol: "XOM", CompanyName: strings.Repeat("Exxon Mobil ", 5), InvestmentGrade: valuation.StrongSell},
	})

	for _, want := range []string{"SYMBOL", "GRADE", "AAPL", "Buy", "+20.0%", "65%", "fallback", "Strong Sell", "…"} {
		assert.Contains(t, out, want)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
