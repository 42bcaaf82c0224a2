package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/analysis"
)

var (
	// ErrRunInProgress is returned by RunNow while another watchlist run is active
	ErrRunInProgress = errors.New("watchlist run already in progress")
	// ErrNoSymbols is returned when the watchlist is empty
	ErrNoSymbols = errors.New("watchlist has no symbols")
)

const stopTimeout = 30 * time.Second

// BatchAnalyzer runs the analyses for one watchlist chunk
type BatchAnalyzer interface {
	AnalyzeMany(ctx context.Context, symbols []string, opts analysis.Options) (*analysis.BatchResult, error)
	MaxSymbols() int
}

// ReportWriter persists the run's reports
type ReportWriter interface {
	GenerateIndividual(result map[string]interface{}, format models.ReportFormat) (*models.ReportInfo, error)
	GenerateSummary(results []map[string]interface{}, extra map[string]interface{}, format models.ReportFormat) (*models.ReportInfo, error)
}

// RunSummary describes one completed watchlist run
type RunSummary struct {
	RunIDs    []string            `json:"run_ids"`
	StartedAt time.Time           `json:"started_at"`
	Duration  time.Duration       `json:"duration"`
	Analyzed  int                 `json:"analyzed"`
	Failures  []analysis.Failure  `json:"failures"`
	Reports   []models.ReportInfo `json:"reports"`
}

// Service runs the watchlist on a cron schedule
type Service struct {
	analyzer BatchAnalyzer
	reports  ReportWriter
	logger   arbor.ILogger
	cron     *cron.Cron
	config   common.SchedulerConfig
	format   models.ReportFormat
	options  analysis.Options

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex // protects running, lastRun
	running bool
	lastRun *RunSummary
	busy    atomic.Bool
}

// NewService creates a scheduler. The schedule is only validated when enabled.
func NewService(analyzer BatchAnalyzer, reports ReportWriter, cfg common.SchedulerConfig, opts analysis.Options, logger arbor.ILogger) (*Service, error) {
	format, err := models.ParseReportFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	if cfg.Enabled {
		if err := common.ValidateSchedule(cfg.Schedule); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		analyzer: analyzer,
		reports:  reports,
		logger:   logger,
		cron:     cron.New(),
		config:   cfg,
		format:   format,
		options:  opts,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start registers the watchlist job and starts the cron loop. Disabled schedulers are a no-op.
func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler already running")
	}
	if !s.config.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(s.config.Schedule, s.runScheduled); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info().
		Str("schedule", s.config.Schedule).
		Int("symbols", len(s.config.Symbols)).
		Str("format", string(s.format)).
		Msg("Scheduler started")
	return nil
}

// Stop halts the cron loop, cancels an in-flight run and waits for it to return
func (s *Service) Stop() error {
	s.mu.Lock()
	wasRunning := s.running
	s.running = false
	s.mu.Unlock()

	s.cancel()
	if !wasRunning {
		return nil
	}

	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-time.After(stopTimeout):
		s.logger.Warn().Msg("Watchlist run did not finish before shutdown timeout")
	}

	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

// LastRun returns the most recent completed run, or nil
func (s *Service) LastRun() *RunSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun
}

func (s *Service) runScheduled() {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().Str("panic", fmt.Sprintf("%v", r)).Msg("Recovered from panic in scheduled run")
		}
	}()

	if _, err := s.RunNow(s.ctx); err != nil {
		if errors.Is(err, ErrRunInProgress) {
			s.logger.Warn().Msg("Skipping scheduled run: previous run still active")
			return
		}
		s.logger.Error().Err(err).Msg("Scheduled watchlist run failed")
	}
}

// RunNow analyses the watchlist immediately, writing one report per analysed symbol
// plus a summary report. Overlapping calls fail with ErrRunInProgress.
func (s *Service) RunNow(ctx context.Context) (*RunSummary, error) {
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.busy.Store(false)

	symbols := watchlist(s.config.Symbols)
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}

	summary := &RunSummary{StartedAt: time.Now(), Failures: []analysis.Failure{}, Reports: []models.ReportInfo{}}
	s.logger.Info().Int("symbols", len(symbols)).Msg("Watchlist run started")

	var plain []map[string]interface{}
	for _, chunk := range chunks(symbols, s.analyzer.MaxSymbols()) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		batch, err := s.analyzer.AnalyzeMany(ctx, chunk, s.options)
		if err != nil {
			return nil, fmt.Errorf("analyse %v: %w", chunk, err)
		}
		summary.RunIDs = append(summary.RunIDs, batch.RunID)
		summary.Failures = append(summary.Failures, batch.Failures...)

		for _, result := range batch.PlainResults() {
			plain = append(plain, result)
			info, err := s.reports.GenerateIndividual(result, s.format)
			if err != nil {
				s.logger.Warn().Err(err).Str("symbol", fmt.Sprint(result["symbol"])).Msg("Failed to write individual report")
				continue
			}
			summary.Reports = append(summary.Reports, *info)
		}
	}
	summary.Analyzed = len(plain)

	if len(plain) > 0 {
		extra := map[string]interface{}{
			"schedule": s.config.Schedule,
			"failed":   len(summary.Failures),
		}
		info, err := s.reports.GenerateSummary(plain, extra, s.format)
		if err != nil {
			return nil, fmt.Errorf("failed to write summary report: %w", err)
		}
		summary.Reports = append(summary.Reports, *info)
	} else {
		s.logger.Warn().Msg("No symbols analysed, summary report skipped")
	}

	summary.Duration = time.Since(summary.StartedAt)

	s.mu.Lock()
	s.lastRun = summary
	s.mu.Unlock()

	s.logger.Info().
		Int("analyzed", summary.Analyzed).
		Int("failed", len(summary.Failures)).
		Int("reports", len(summary.Reports)).
		Dur("duration", summary.Duration).
		Msg("Watchlist run complete")

	return summary, nil
}

// watchlist normalizes the configured symbols and drops blanks and repeats, so a
// symbol is analysed once per run even when chunking would split its copies.
func watchlist(symbols []string) []string {
	out := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		key := models.NormalizeSymbol(symbol)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, key)
	}
	return out
}

func chunks(symbols []string, size int) [][]string {
	if size < 1 {
		size = 1
	}
	var out [][]string
	for start := 0; start < len(symbols); start += size {
		end := start + size
		if end > len(symbols) {
			end = len(symbols)
		}
		out = append(out, symbols[start:end])
	}
	return out
}
