package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestService(t *testing.T) *Service {
	t.Helper()
	s, err := NewService(common.ReportsConfig{Dir: t.TempDir()}, arbor.NewLogger())
	require.NoError(t, err)
	s.now = func() time.Time { return fixedNow }
	return s
}

func sampleResult(symbol string, grade valuation.InvestmentGrade, upside float64) map[string]interface{} {
	r := &valuation.AnalysisResult{
		Symbol:          symbol,
		CompanyName:     symbol + " Inc",
		Sector:          "Technology",
		AnalysisDate:    fixedNow,
		InvestmentGrade: grade,
		ConfidenceScore: 72.5,
		TargetPrice:     120,
		CurrentPrice:    100,
		UpsidePotential: upside,
		KeyStrengths:    []string{"Strong revenue growth (15.0%)"},
		KeyWeaknesses:   nil,
		Risks:           []string{"Market volatility risk from a high beta"},
		ValueMetrics: valuation.ValueMetrics{
			PERatio:      12.5,
			PBRatio:      1.8,
			ROE:          0.18,
			DebtToEquity: 0.4,
		},
		DetailedAnalysis: "Narrative for " + symbol,
		GradeSource:      valuation.SourceFallback,
	}
	return r.ToPlainMap()
}

func TestGenerateIndividual_Markdown(t *testing.T) {
	s := newTestService(t)

	info, err := s.GenerateIndividual(sampleResult("AAPL.US", valuation.Buy, 20), models.ReportFormatMarkdown)
	require.NoError(t, err)

	assert.Equal(t, "AAPL.US_analysis_20250102_030405.md", info.Filename)
	assert.Equal(t, models.ReportKindIndividual, info.Kind)
	assert.Equal(t, []string{"AAPL.US"}, info.Symbols)
	assert.Equal(t, "Buy", info.Grade)
	assert.Equal(t, fixedNow, info.CreatedAt.UTC())

	content, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	text := string(content)

	assert.True(t, strings.HasPrefix(text, "---\nreport_type: individual\n"))
	assert.Contains(t, text, "# AAPL.US Inc (AAPL.US) Value Analysis")
	assert.Contains(t, text, "**Investment grade:** Buy")
	assert.Contains(t, text, "| PE | 12.50 |")
	assert.Contains(t, text, "| ROE | 18.00% |")
	assert.Contains(t, text, "- Strong revenue growth (15.0%)")
	assert.Contains(t, text, "## Weaknesses\n\n- None identified")
	assert.Contains(t, text, "Narrative for AAPL.US")
	assert.NotContains(t, text, "<no value>")
}

func TestGenerateIndividual_HTML(t *testing.T) {
	s := newTestService(t)

	info, err := s.GenerateIndividual(sampleResult("MSFT.US", valuation.StrongBuy, 40), models.ReportFormatHTML)
	require.NoError(t, err)
	assert.Equal(t, models.ReportFormatHTML, info.Format)

	content, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "<!DOCTYPE html>")
	assert.Contains(t, text, `<div class="grade grade-strong-buy">Strong Buy</div>`)
	assert.Contains(t, text, "<table>")
	assert.Contains(t, text, `<h1 id=`)
	assert.NotContains(t, text, "report_type: individual")
}

func TestGenerateIndividual_JSON(t *testing.T) {
	s := newTestService(t)

	info, err := s.GenerateIndividual(sampleResult("AAPL.US", valuation.Hold, 5), models.ReportFormatJSON)
	require.NoError(t, err)

	content, err := os.ReadFile(info.Path)
	require.NoError(t, err)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &payload))
	assert.Equal(t, "individual", payload["report_type"])
	assert.Equal(t, "Narrative for AAPL.US", payload["ai_analysis"])

	result := payload["analysis_result"].(map[string]interface{})
	assert.Equal(t, "AAPL.US", result["symbol"])
	assert.Equal(t, "Hold", result["investment_grade"])
}

func TestGenerateIndividual_PDF(t *testing.T) {
	s := newTestService(t)

	info, err := s.GenerateIndividual(sampleResult("AAPL.US", valuation.Sell, -10), models.ReportFormatPDF)
	require.NoError(t, err)

	content, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "%PDF"))
	assert.GreaterOrEqual(t, info.PageCount, 1)
}

func TestGenerateComparison(t *testing.T) {
	s := newTestService(t)

	results := []map[string]interface{}{
		sampleResult("AAPL.US", valuation.Buy, 20),
		sampleResult("MSFT.US", valuation.Hold, 5),
	}
	info, err := s.GenerateComparison(results, "AAPL is cheaper.", models.ReportFormatMarkdown)
	require.NoError(t, err)

	assert.Equal(t, "comparison_AAPL.US_vs_MSFT.US_20250102_030405.md", info.Filename)
	assert.Equal(t, models.ReportKindComparison, info.Kind)
	assert.Equal(t, []string{"AAPL.US", "MSFT.US"}, info.Symbols)

	content, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "**Symbols:** AAPL.US, MSFT.US")
	assert.Contains(t, text, "| AAPL.US | Buy | $100.00 | $120.00 | 20.0% | 12.5 | 1.8 | 18.0% |")
	assert.Contains(t, text, "### MSFT.US - MSFT.US Inc")
	assert.Contains(t, text, "AAPL is cheaper.")

	_, err = s.GenerateComparison(nil, "", models.ReportFormatMarkdown)
	assert.Error(t, err)
}

func TestGenerateSummary(t *testing.T) {
	s := newTestService(t)

	results := []map[string]interface{}{
		sampleResult("AAPL.US", valuation.Buy, 20),
		sampleResult("MSFT.US", valuation.Hold, 5),
	}
	info, err := s.GenerateSummary(results, map[string]interface{}{"run_id": "abc"}, models.ReportFormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "summary_report_20250102_030405.md", info.Filename)
	assert.Equal(t, models.ReportKindSummary, info.Kind)

	content, err := os.ReadFile(info.Path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "**Stocks analysed:** 2")
	assert.Contains(t, text, "- Buy: 1")
	assert.Contains(t, text, "- Hold: 1")
	assert.Contains(t, text, "- run_id: abc")
	assert.Contains(t, text, "## Highest Upside\n\n**AAPL.US**")
	assert.Contains(t, text, "## Lowest Upside\n\n**MSFT.US**")
}

func TestComputeSummaryStats(t *testing.T) {
	a := sampleResult("A", valuation.Buy, 10)
	b := sampleResult("B", valuation.Buy, 30)
	c := sampleResult("C", valuation.Sell, -5)
	c["value_metrics"].(map[string]interface{})["pe_ratio"] = 0.0

	stats := ComputeSummaryStats([]map[string]interface{}{a, b, c})

	assert.Equal(t, 3, stats.TotalStocks)
	assert.Equal(t, map[string]int{"Buy": 2, "Sell": 1}, stats.GradeDistribution)
	assert.InDelta(t, 12.5, stats.AvgPERatio, 1e-9)
	assert.InDelta(t, 1.8, stats.AvgPBRatio, 1e-9)
	assert.InDelta(t, 0.18, stats.AvgROE, 1e-9)
	assert.InDelta(t, 35.0/3, stats.AvgUpsidePotential, 1e-9)
	assert.Equal(t, "B", stats.BestPerformer)
	assert.Equal(t, "C", stats.WorstPerformer)

	assert.Equal(t, []gradeCount{{"Buy", 2}, {"Sell", 1}}, stats.orderedGrades())

	empty := ComputeSummaryStats(nil)
	assert.Zero(t, empty.TotalStocks)
	assert.Empty(t, empty.BestPerformer)
}

func TestListGetDelete(t *testing.T) {
	s := newTestService(t)

	first, err := s.GenerateIndividual(sampleResult("AAPL.US", valuation.Buy, 20), models.ReportFormatMarkdown)
	require.NoError(t, err)
	second, err := s.GenerateIndividual(sampleResult("AAPL.US", valuation.Buy, 20), models.ReportFormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "AAPL.US_analysis_20250102_030405_2.md", second.Filename)

	older := fixedNow.Add(-time.Hour)
	require.NoError(t, os.Chtimes(first.Path, older, older))
	require.NoError(t, os.WriteFile(filepath.Join(s.Dir(), "notes.txt"), []byte("x"), 0644))

	reports, err := s.List()
	require.NoError(t, err)
	require.Len(t, reports, 2)
	assert.Equal(t, second.Filename, reports[0].Filename)
	assert.Equal(t, first.Filename, reports[1].Filename)

	info, content, err := s.Get(first.Filename)
	require.NoError(t, err)
	assert.Equal(t, "Buy", info.Grade)
	assert.Contains(t, string(content), "Value Analysis")

	require.NoError(t, s.Delete(first.Filename))
	_, _, err = s.Get(first.Filename)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.Delete(first.Filename), ErrNotFound)
}

func TestValidateFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		valid    bool
	}{
		{"markdown", "AAPL.US_analysis_20250102_030405.md", true},
		{"pdf", "summary_report_20250102_030405.pdf", true},
		{"empty", "", false},
		{"parent traversal", "../secrets.md", false},
		{"nested", "sub/report.md", false},
		{"windows separator", `sub\report.md`, false},
		{"hidden", ".report.md", false},
		{"unknown extension", "report.txt", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFilename(tt.filename)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalidFilename))
			}
		})
	}

	s := newTestService(t)
	_, _, err := s.Get("../../etc/passwd.md")
	assert.ErrorIs(t, err, ErrInvalidFilename)
}

func TestParseFilename(t *testing.T) {
	kind, symbols := parseFilename("comparison_AAPL.US_vs_MSFT.US_20250102_030405.html")
	assert.Equal(t, models.ReportKindComparison, kind)
	assert.Equal(t, []string{"AAPL.US", "MSFT.US"}, symbols)

	kind, symbols = parseFilename("005930.KS_analysis_20250102_030405.json")
	assert.Equal(t, models.ReportKindIndividual, kind)
	assert.Equal(t, []string{"005930.KS"}, symbols)

	kind, _ = parseFilename("summary_report_20250102_030405.pdf")
	assert.Equal(t, models.ReportKindSummary, kind)

	kind, _ = parseFilename("random.md")
	assert.Empty(t, kind)
}

func TestFrontMatterRoundTrip(t *testing.T) {
	meta := frontMatter{
		ReportType:  models.ReportKindIndividual,
		Symbols:     []string{"AAPL.US"},
		GeneratedAt: fixedNow.Format(time.RFC3339),
		Grade:       "Strong Buy",
	}
	doc, err := withFrontMatter(meta, "# Body\n")
	require.NoError(t, err)

	got, body, ok := splitFrontMatter([]byte(doc))
	require.True(t, ok)
	assert.Equal(t, meta, got)
	assert.Equal(t, "# Body\n", body)

	_, body, ok = splitFrontMatter([]byte("# No header"))
	assert.False(t, ok)
	assert.Equal(t, "# No header", body)
}

func TestGradeClass(t *testing.T) {
	assert.Equal(t, "grade-strong-sell", GradeClass("Strong Sell"))
	assert.Equal(t, "grade-hold", GradeClass("Hold"))
}

func TestComputeSummaryStats_NoPositiveValues(t *testing.T) {
	a := sampleResult("A", valuation.Hold, 0)
	metrics := a["value_metrics"].(map[string]interface{})
	metrics["pe_ratio"] = 0.0
	metrics["pb_ratio"] = -1.0
	metrics["roe"] = 0.0

	stats := ComputeSummaryStats([]map[string]interface{}{a})

	assert.Equal(t, 0.0, stats.AvgPERatio)
	assert.Equal(t, 0.0, stats.AvgPBRatio)
	assert.Equal(t, 0.0, stats.AvgROE)
	assert.Equal(t, 0.0, stats.AvgUpsidePotential)
	assert.Equal(t, "A", stats.BestPerformer)
}
