package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/eodhd"
	"github.com/ternarybob/valuator/internal/handlers"
	"github.com/ternarybob/valuator/internal/services/analysis"
	"github.com/ternarybob/valuator/internal/services/collector"
	"github.com/ternarybob/valuator/internal/services/llm"
	"github.com/ternarybob/valuator/internal/services/report"
	"github.com/ternarybob/valuator/internal/services/scheduler"
	"github.com/ternarybob/valuator/internal/services/valuation"
	"github.com/ternarybob/valuator/internal/storage/badger"
)

const defaultCacheTTL = 6 * time.Hour

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Storage
	DB    *badger.BadgerDB
	Cache *badger.FinancialsCache

	// Services
	MarketData       *eodhd.Client
	CollectorService *collector.Service
	LLMFactory       *llm.ProviderFactory
	AdvisoryService  *llm.AdvisoryService // nil when advisory grading is off
	NarrativeService *llm.NarrativeService
	Analyzer         *valuation.Analyzer
	AnalysisService  *analysis.Service
	ReportService    *report.Service
	SchedulerService *scheduler.Service

	// HTTP handlers
	AnalysisHandler *handlers.AnalysisHandler
	ReportHandler   *handlers.ReportHandler
	SystemHandler   *handlers.SystemHandler
}

// New initializes the application. Nothing is started; callers start the
// scheduler and server as their mode requires.
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	logger.Info().
		Bool("llm_available", app.LLMFactory.Available()).
		Bool("advisory", app.AdvisoryService != nil).
		Bool("narrative", app.NarrativeEnabled()).
		Bool("scheduler", cfg.Scheduler.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase opens the badger store that backs the financials cache
func (a *App) initDatabase() error {
	db, err := badger.NewBadgerDB(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return err
	}
	a.DB = db
	a.Cache = badger.NewFinancialsCache(db, a.Logger)

	// entries past the freshness window are never served again
	ttl := common.ParseDuration(a.Config.Collector.CacheTTL, defaultCacheTTL)
	if purged, err := a.Cache.Purge(ttl); err != nil {
		a.Logger.Warn().Err(err).Msg("Failed to purge stale cache entries")
	} else if purged > 0 {
		a.Logger.Debug().Int("purged", purged).Msg("Purged stale cache entries")
	}
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	apiKey, err := common.ResolveAPIKey("eodhd_api_key", cfg.EODHD.APIKey)
	if err != nil {
		return fmt.Errorf("EODHD API key required: %w", err)
	}

	opts := []eodhd.ClientOption{eodhd.WithLogger(a.Logger)}
	if cfg.EODHD.BaseURL != "" {
		opts = append(opts, eodhd.WithBaseURL(cfg.EODHD.BaseURL))
	}
	if cfg.EODHD.RateLimit > 0 {
		opts = append(opts, eodhd.WithRateLimit(cfg.EODHD.RateLimit))
	}
	if timeout := common.ParseDuration(cfg.EODHD.Timeout, 0); timeout > 0 {
		opts = append(opts, eodhd.WithTimeout(timeout))
	}
	a.MarketData = eodhd.NewClient(apiKey, opts...)

	a.CollectorService = collector.NewService(a.MarketData, a.Cache, a.Logger, cfg.Collector)

	a.LLMFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)
	llmAvailable := a.LLMFactory.Available()
	if !llmAvailable {
		a.Logger.Warn().Msg("No LLM API key configured: grading is rule-based and narratives are disabled")
	}

	// A nil interface, not a typed nil, keeps the analyzer on rule-based grading.
	var advisor valuation.Advisor
	if cfg.Advisory.Enabled && llmAvailable {
		a.AdvisoryService = llm.NewAdvisoryService(a.LLMFactory, cfg.Advisory, a.Logger)
		advisor = a.AdvisoryService
	}

	var narrator analysis.Narrator
	if cfg.Narrative.Enabled && llmAvailable {
		a.NarrativeService = llm.NewNarrativeService(a.LLMFactory, cfg.Narrative, a.Logger)
		narrator = a.NarrativeService
	}

	a.Analyzer = valuation.NewAnalyzer(analysis.ValuationConfig(cfg.Valuation), a.Logger)
	a.AnalysisService = analysis.NewService(a.CollectorService, a.Analyzer, advisor, narrator, cfg.Batch, a.Logger)

	reports, err := report.NewService(cfg.Reports, a.Logger)
	if err != nil {
		return err
	}
	a.ReportService = reports

	sched, err := scheduler.NewService(a.AnalysisService, a.ReportService, cfg.Scheduler, a.AnalysisOptions(""), a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	a.SchedulerService = sched

	return nil
}

func (a *App) initHandlers() {
	a.AnalysisHandler = handlers.NewAnalysisHandler(
		a.AnalysisService,
		a.ReportService,
		a.Config.Narrative.Depth,
		a.NarrativeEnabled(),
		a.Logger,
	)
	a.ReportHandler = handlers.NewReportHandler(a.ReportService, a.Logger)
	a.SystemHandler = handlers.NewSystemHandler()
}

// NarrativeEnabled reports whether provider narratives will be requested
func (a *App) NarrativeEnabled() bool {
	return a.NarrativeService != nil
}

// AnalysisOptions builds run options; an empty depth uses the configured default
func (a *App) AnalysisOptions(depth string) analysis.Options {
	if depth == "" {
		depth = a.Config.Narrative.Depth
	}
	return analysis.Options{
		Depth:     llm.ParseDepth(depth),
		Narrative: a.NarrativeEnabled(),
	}
}

// Close stops the scheduler and releases clients and storage
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM clients")
		}
	}

	if a.DB != nil {
		if err := a.DB.CollectGarbage(); err != nil {
			a.Logger.Debug().Err(err).Msg("Badger value log GC skipped")
		}
		err := a.DB.Close()
		a.DB = nil
		if err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
