package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/ternarybob/valuator/internal/services/valuation"
)

var (
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4D4C57"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#DFDBDD")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E94090"))

	gradeColors = map[valuation.InvestmentGrade]lipgloss.Color{
		valuation.StrongBuy:  lipgloss.Color("#00FFB2"),
		valuation.Buy:        lipgloss.Color("#5FD75F"),
		valuation.Hold:       lipgloss.Color("#FFD300"),
		valuation.Sell:       lipgloss.Color("#FF8700"),
		valuation.StrongSell: lipgloss.Color("#E94090"),
	}
)

const gradeColumn = 5

// renderResults draws the CLI summary table with the grade column coloured
func renderResults(results []*valuation.AnalysisResult) string {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		rows = append(rows, []string{
			r.Symbol,
			truncate(r.CompanyName, 28),
			fmt.Sprintf("%.2f", r.CurrentPrice),
			fmt.Sprintf("%.2f", r.TargetPrice),
			fmt.Sprintf("%+.1f%%", r.UpsidePotential),
			r.InvestmentGrade.String(),
			fmt.Sprintf("%.0f%%", r.ConfidenceScore*100),
			string(r.GradeSource),
		})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers("SYMBOL", "COMPANY", "PRICE", "TARGET", "UPSIDE", "GRADE", "CONFIDENCE", "SOURCE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if col == gradeColumn && row >= 0 && row < len(results) {
				if color, ok := gradeColors[results[row].InvestmentGrade]; ok {
					return cellStyle.Bold(true).Foreground(color)
				}
			}
			return cellStyle
		})

	return t.Render()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
