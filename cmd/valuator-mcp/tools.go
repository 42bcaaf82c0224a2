package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createAnalyzeStockTool returns the analyze_stock tool definition
func createAnalyzeStockTool() mcp.Tool {
	return mcp.NewTool("analyze_stock",
		mcp.WithDescription("Run a value-investing analysis of one stock: grade, target price, strengths, weaknesses and risks"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Ticker symbol, e.g. AAPL, AAPL.US or 005930.KS"),
		),
		mcp.WithString("depth",
			mcp.Description("Narrative depth: basic, detailed or comprehensive (default from config)"),
			mcp.Enum("basic", "detailed", "comprehensive"),
		),
	)
}

// createCompareStocksTool returns the compare_stocks tool definition
func createCompareStocksTool() mcp.Tool {
	return mcp.NewTool("compare_stocks",
		mcp.WithDescription("Analyse two to five stocks side by side with a comparative narrative"),
		mcp.WithArray("symbols",
			mcp.Required(),
			mcp.WithStringItems(),
			mcp.Description("Ticker symbols to compare (2-5)"),
		),
	)
}

// createValidateSymbolTool returns the validate_symbol tool definition
func createValidateSymbolTool() mcp.Tool {
	return mcp.NewTool("validate_symbol",
		mcp.WithDescription("Check whether a symbol is known to the market data provider; suggests alternatives when it is not"),
		mcp.WithString("symbol",
			mcp.Required(),
			mcp.Description("Ticker symbol or company name"),
		),
	)
}

// createListReportsTool returns the list_reports tool definition
func createListReportsTool() mcp.Tool {
	return mcp.NewTool("list_reports",
		mcp.WithDescription("List generated report files, newest first"),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)
}
