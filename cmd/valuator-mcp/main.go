package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ternarybob/valuator/internal/app"
	"github.com/ternarybob/valuator/internal/common"
)

func main() {
	defer common.NewCrashReporter("").Recover()

	var paths []string
	if configPath := os.Getenv("VALUATOR_CONFIG"); configPath != "" {
		paths = strings.Split(configPath, string(os.PathListSeparator))
	} else if _, err := os.Stat("valuator.toml"); err == nil {
		paths = []string{"valuator.toml"}
	}

	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := config.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol, so logs go to file only
	config.Logging.Output = []string{"file"}
	logger := common.InitLogger(config)

	application, err := app.New(config, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"valuator",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	tools := &toolHandlers{
		analysis: application.AnalysisService,
		reports:  application.ReportService,
		options:  application.AnalysisOptions,
		logger:   logger,
	}

	mcpServer.AddTool(createAnalyzeStockTool(), tools.handleAnalyzeStock)
	mcpServer.AddTool(createCompareStocksTool(), tools.handleCompareStocks)
	mcpServer.AddTool(createValidateSymbolTool(), tools.handleValidateSymbol)
	mcpServer.AddTool(createListReportsTool(), tools.handleListReports)

	// Start server (blocks on stdio)
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Error().Err(err).Msg("MCP server failed")
		application.Close()
		os.Exit(1)
	}
}
