package main

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/analysis"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

const (
	defaultReportLimit = 20
	maxReportLimit     = 200
)

type analysisService interface {
	AnalyzeSymbol(ctx context.Context, symbol string, opts analysis.Options) (*valuation.AnalysisResult, error)
	Compare(ctx context.Context, symbols []string, opts analysis.Options) (*analysis.Comparison, error)
	Validate(ctx context.Context, symbol string) (bool, []string)
}

type reportLister interface {
	List() ([]models.ReportInfo, error)
}

// toolHandlers implements the MCP tools. Errors are returned as text content so
// the calling model can read them.
type toolHandlers struct {
	analysis analysisService
	reports  reportLister
	options  func(depth string) analysis.Options
	logger   arbor.ILogger
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	result := textResult(fmt.Sprintf(format, args...))
	result.IsError = true
	return result
}

// handleAnalyzeStock implements the analyze_stock tool
func (h *toolHandlers) handleAnalyzeStock(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := request.RequireString("symbol")
	if err != nil || symbol == "" {
		return errorResult("Error: symbol parameter is required"), nil
	}
	depth := request.GetString("depth", "")

	result, err := h.analysis.AnalyzeSymbol(ctx, symbol, h.options(depth))
	if err != nil {
		h.logger.Warn().Err(err).Str("symbol", symbol).Msg("analyze_stock failed")
		return errorResult("Analysis failed for %s: %v", symbol, err), nil
	}

	return textResult(formatAnalysis(result)), nil
}

// handleCompareStocks implements the compare_stocks tool
func (h *toolHandlers) handleCompareStocks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbols, err := request.RequireStringSlice("symbols")
	if err != nil {
		return errorResult("Error: symbols parameter is required (array of 2-5 tickers)"), nil
	}

	comparison, err := h.analysis.Compare(ctx, symbols, h.options(""))
	if err != nil {
		h.logger.Warn().Err(err).Strs("symbols", symbols).Msg("compare_stocks failed")
		return errorResult("Comparison failed: %v", err), nil
	}

	return textResult(formatComparison(comparison)), nil
}

// handleValidateSymbol implements the validate_symbol tool
func (h *toolHandlers) handleValidateSymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	symbol, err := request.RequireString("symbol")
	if err != nil || symbol == "" {
		return errorResult("Error: symbol parameter is required"), nil
	}

	valid, suggestions := h.analysis.Validate(ctx, symbol)
	return textResult(formatValidation(symbol, valid, suggestions)), nil
}

// handleListReports implements the list_reports tool
func (h *toolHandlers) handleListReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := request.GetInt("limit", defaultReportLimit)
	if limit <= 0 {
		limit = defaultReportLimit
	}
	if limit > maxReportLimit {
		limit = maxReportLimit
	}

	reports, err := h.reports.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("list_reports failed")
		return errorResult("Failed to list reports: %v", err), nil
	}
	total := len(reports)
	if len(reports) > limit {
		reports = reports[:limit]
	}

	return textResult(formatReports(reports, total)), nil
}
