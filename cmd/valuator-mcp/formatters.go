package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/analysis"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

// formatAnalysis formats one analysis result as markdown
func formatAnalysis(r *valuation.AnalysisResult) string {
	var sb strings.Builder
	m := r.ValueMetrics

	sb.WriteString(fmt.Sprintf("# %s (%s)\n\n", r.CompanyName, r.Symbol))
	if r.Sector != "" {
		sb.WriteString(fmt.Sprintf("**Sector:** %s\n", r.Sector))
	}
	sb.WriteString(fmt.Sprintf("**Grade:** %s (confidence %.0f%%, %s)\n", r.InvestmentGrade, r.ConfidenceScore*100, r.GradeSource))
	if r.GradeRationale != "" {
		sb.WriteString(fmt.Sprintf("**Rationale:** %s\n", r.GradeRationale))
	}
	sb.WriteString(fmt.Sprintf("**Price:** %.2f  **Target:** %.2f  **Upside:** %+.1f%%\n\n", r.CurrentPrice, r.TargetPrice, r.UpsidePotential))

	sb.WriteString("## Metrics\n\n")
	sb.WriteString("| Metric | Value |\n|---|---|\n")
	sb.WriteString(fmt.Sprintf("| PE | %.2f |\n", m.PERatio))
	sb.WriteString(fmt.Sprintf("| PB | %.2f |\n", m.PBRatio))
	sb.WriteString(fmt.Sprintf("| PEG | %.2f |\n", m.PEGRatio))
	sb.WriteString(fmt.Sprintf("| ROE | %.1f%% |\n", m.ROE*100))
	sb.WriteString(fmt.Sprintf("| ROA | %.1f%% |\n", m.ROA*100))
	sb.WriteString(fmt.Sprintf("| Debt/Equity | %.2f |\n", m.DebtToEquity))
	sb.WriteString(fmt.Sprintf("| Dividend yield | %.2f%% |\n", m.DividendYield*100))
	sb.WriteString(fmt.Sprintf("| Revenue growth | %.1f%% |\n", m.RevenueGrowth))
	sb.WriteString(fmt.Sprintf("| Income growth | %.1f%% |\n\n", m.IncomeGrowth))

	writeList(&sb, "Strengths", r.KeyStrengths)
	writeList(&sb, "Weaknesses", r.KeyWeaknesses)
	writeList(&sb, "Risks", r.Risks)

	if r.DetailedAnalysis != "" {
		sb.WriteString("## Analysis\n\n")
		sb.WriteString(r.DetailedAnalysis)
		sb.WriteString("\n")
	}

	return sb.String()
}

func writeList(sb *strings.Builder, title string, items []string) {
	sb.WriteString(fmt.Sprintf("## %s\n\n", title))
	if len(items) == 0 {
		sb.WriteString("- None identified\n\n")
		return
	}
	for _, item := range items {
		sb.WriteString(fmt.Sprintf("- %s\n", item))
	}
	sb.WriteString("\n")
}

// formatComparison formats a comparison as a markdown table plus narrative
func formatComparison(c *analysis.Comparison) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Comparison (%d stocks)\n\n", len(c.Results)))
	sb.WriteString("| Symbol | Company | Price | Target | Upside | Grade | Confidence |\n")
	sb.WriteString("|---|---|---|---|---|---|---|\n")
	for _, r := range c.Results {
		sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %+.1f%% | %s | %.0f%% |\n",
			r.Symbol, r.CompanyName, r.CurrentPrice, r.TargetPrice, r.UpsidePotential, r.InvestmentGrade, r.ConfidenceScore*100))
	}
	sb.WriteString("\n")

	if len(c.Failures) > 0 {
		sb.WriteString("## Not analysed\n\n")
		for _, f := range c.Failures {
			sb.WriteString(fmt.Sprintf("- %s: %s\n", f.Symbol, f.Reason))
		}
		sb.WriteString("\n")
	}

	if c.Narrative != "" {
		sb.WriteString("## Comparative analysis\n\n")
		sb.WriteString(c.Narrative)
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatValidation formats a validate_symbol answer
func formatValidation(symbol string, valid bool, suggestions []string) string {
	symbol = models.NormalizeSymbol(symbol)
	if valid {
		return fmt.Sprintf("**%s** is a valid symbol.\n", symbol)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**%s** was not recognised.\n", symbol))
	if len(suggestions) > 0 {
		sb.WriteString("\nDid you mean:\n")
		for _, s := range suggestions {
			sb.WriteString(fmt.Sprintf("- %s\n", s))
		}
	}
	return sb.String()
}

// formatReports formats the report listing as a markdown table
func formatReports(reports []models.ReportInfo, total int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Reports (%d of %d)\n\n", len(reports), total))
	if len(reports) == 0 {
		sb.WriteString("No reports found.\n")
		return sb.String()
	}

	sb.WriteString("| File | Type | Symbols | Grade | Created |\n|---|---|---|---|---|\n")
	for _, r := range reports {
		grade := r.Grade
		if grade == "" {
			grade = "-"
		}
		sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			r.Filename, r.Kind, strings.Join(r.Symbols, ", "), grade, r.CreatedAt.Format(time.RFC3339)))
	}
	return sb.String()
}
