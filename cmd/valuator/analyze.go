package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/valuator/internal/app"
	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/analysis"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

const maxCompareSymbols = 5

// runAnalyze analyses symbols, prints the summary table and writes reports:
// an individual report for one symbol, a comparison for up to five, and a
// summary report for larger lists.
func runAnalyze(application *app.App, symbols []string, formatName, depth string) error {
	if formatName == "" {
		formatName = application.Config.Reports.DefaultFormat
	}
	format, err := models.ParseReportFormat(formatName)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := application.AnalysisOptions(depth)
	svc := application.AnalysisService
	reports := application.ReportService

	var (
		results  []*valuation.AnalysisResult
		failures []analysis.Failure
		info     *models.ReportInfo
	)

	switch {
	case len(symbols) == 1:
		result, err := svc.AnalyzeSymbol(ctx, symbols[0], opts)
		if err != nil {
			return err
		}
		results = []*valuation.AnalysisResult{result}
		info, err = reports.GenerateIndividual(result.ToPlainMap(), format)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

	case len(symbols) <= maxCompareSymbols:
		comparison, err := svc.Compare(ctx, symbols, opts)
		if err != nil {
			return err
		}
		results, failures = comparison.Results, comparison.Failures
		info, err = reports.GenerateComparison(comparison.PlainResults(), comparison.Narrative, format)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

	default:
		for start := 0; start < len(symbols); start += svc.MaxSymbols() {
			end := min(start+svc.MaxSymbols(), len(symbols))
			batch, err := svc.AnalyzeMany(ctx, symbols[start:end], opts)
			if err != nil {
				return err
			}
			results = append(results, batch.Results...)
			failures = append(failures, batch.Failures...)
		}
		if len(results) == 0 {
			break
		}
		plain := make([]map[string]interface{}, 0, len(results))
		for _, r := range results {
			plain = append(plain, r.ToPlainMap())
		}
		info, err = reports.GenerateSummary(plain, map[string]interface{}{"requested": len(symbols)}, format)
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
	}

	fmt.Println(renderResults(results))
	for _, f := range failures {
		fmt.Println(failureStyle.Render(fmt.Sprintf("  %s: %s", f.Symbol, f.Reason)))
	}
	if info != nil {
		fmt.Printf("\nReport written to %s\n", info.Path)
	}
	if len(results) == 0 {
		return fmt.Errorf("no symbols could be analysed")
	}
	return nil
}
