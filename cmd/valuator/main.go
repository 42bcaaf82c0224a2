package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ternarybob/valuator/internal/app"
	"github.com/ternarybob/valuator/internal/common"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths // Multiple -config flags supported
	symbolFlag   = flag.String("symbol", "", "Analyse a single symbol, e.g. AAPL or 005930.KS")
	symbolsFlag  = flag.String("symbols", "", "Comma-separated symbols to analyse and compare")
	formatFlag   = flag.String("format", "", "Report format: markdown, html, json or pdf (default from config)")
	depthFlag    = flag.String("depth", "", "Narrative depth: basic, detailed or comprehensive")
	outputDir    = flag.String("output", "", "Report output directory (overrides config)")
	serveMode    = flag.Bool("serve", false, "Run the HTTP API and watchlist scheduler")
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.NewCrashReporter("").Recover()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Valuator version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	if len(configFiles) == 0 {
		if _, err := os.Stat("valuator.toml"); err == nil {
			configFiles = append(configFiles, "valuator.toml")
		} else if _, err := os.Stat("deployments/local/valuator.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/valuator.toml")
		}
	}

	// defaults -> files -> .env -> environment -> flags
	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		common.GetLogger().Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}
	common.ApplyFlagOverrides(config, finalPort, *serverHost, *outputDir)

	if err := config.Validate(); err != nil {
		common.GetLogger().Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := common.InitLogger(config)

	symbols := requestedSymbols(*symbolFlag, *symbolsFlag)
	if len(symbols) > 0 && !*serveMode {
		application, err := app.New(config, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize application")
			os.Exit(1)
		}

		err = runAnalyze(application, symbols, *formatFlag, *depthFlag)
		application.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	common.PrintBanner("Valuator")

	logger.Info().
		Strs("config_files", configFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("reports_dir", config.Reports.Dir).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}
	defer application.Close()

	runServe(application)
}

// requestedSymbols merges -symbol and -symbols, dropping blanks and repeats
func requestedSymbols(single, list string) []string {
	var out []string
	seen := map[string]bool{}
	for _, s := range append([]string{single}, strings.Split(list, ",")...) {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
