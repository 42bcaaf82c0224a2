package scheduler

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/analysis"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

type fakeAnalyzer struct {
	max     int
	failing map[string]bool
	block   chan struct{}
	started chan struct{}

	mu     sync.Mutex
	chunks [][]string
}

func (a *fakeAnalyzer) MaxSymbols() int { return a.max }

func (a *fakeAnalyzer) AnalyzeMany(ctx context.Context, symbols []string, opts analysis.Options) (*analysis.BatchResult, error) {
	a.mu.Lock()
	a.chunks = append(a.chunks, append([]string(nil), symbols...))
	a.mu.Unlock()

	if a.started != nil {
		close(a.started)
		a.started = nil
	}
	if a.block != nil {
		<-a.block
	}

	batch := &analysis.BatchResult{RunID: fmt.Sprintf("run-%d", len(a.chunks))}
	for _, symbol := range symbols {
		if a.failing[symbol] {
			batch.Failures = append(batch.Failures, analysis.Failure{Symbol: symbol, Reason: "no data"})
			continue
		}
		batch.Results = append(batch.Results, &valuation.AnalysisResult{
			Symbol:          symbol,
			InvestmentGrade: valuation.Hold,
		})
	}
	return batch, nil
}

type fakeReports struct {
	mu         sync.Mutex
	individual []string
	summaries  int
	summarized int
}

func (r *fakeReports) GenerateIndividual(result map[string]interface{}, format models.ReportFormat) (*models.ReportInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	symbol := result["symbol"].(string)
	r.individual = append(r.individual, symbol)
	return &models.ReportInfo{Filename: symbol + "_analysis." + format.Extension(), Format: format}, nil
}

func (r *fakeReports) GenerateSummary(results []map[string]interface{}, extra map[string]interface{}, format models.ReportFormat) (*models.ReportInfo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries++
	r.summarized = len(results)
	return &models.ReportInfo{Filename: "summary_report." + format.Extension(), Format: format}, nil
}

func newScheduler(t *testing.T, analyzer BatchAnalyzer, reports ReportWriter, cfg common.SchedulerConfig) *Service {
	t.Helper()
	s, err := NewService(analyzer, reports, cfg, analysis.Options{}, arbor.NewLogger())
	require.NoError(t, err)
	return s
}

func TestRunNow_ChunksWatchlistAndWritesReports(t *testing.T) {
	analyzer := &fakeAnalyzer{max: 2, failing: map[string]bool{"BAD": true}}
	reports := &fakeReports{}
	s := newScheduler(t, analyzer, reports, common.SchedulerConfig{
		Symbols: []string{"AAPL", "MSFT", "BAD", "KO", "PEP"},
		Format:  "html",
	})

	summary, err := s.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"AAPL", "MSFT"}, {"BAD", "KO"}, {"PEP"}}, analyzer.chunks)
	assert.Equal(t, 4, summary.Analyzed)
	assert.Len(t, summary.RunIDs, 3)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "BAD", summary.Failures[0].Symbol)

	assert.Equal(t, []string{"AAPL", "MSFT", "KO", "PEP"}, reports.individual)
	assert.Equal(t, 1, reports.summaries)
	assert.Equal(t, 4, reports.summarized)
	assert.Len(t, summary.Reports, 5)
	assert.Equal(t, models.ReportFormatHTML, summary.Reports[4].Format)

	assert.Same(t, summary, s.LastRun())
}

func TestRunNow_DeduplicatesWatchlistAcrossChunks(t *testing.T) {
	analyzer := &fakeAnalyzer{max: 2}
	reports := &fakeReports{}
	s := newScheduler(t, analyzer, reports, common.SchedulerConfig{
		Symbols: []string{"AAPL", "MSFT", "aapl", " KO ", "", "MSFT"},
	})

	summary, err := s.RunNow(context.Background())
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"AAPL", "MSFT"}, {"KO"}}, analyzer.chunks)
	assert.Equal(t, 3, summary.Analyzed)
	assert.Equal(t, []string{"AAPL", "MSFT", "KO"}, reports.individual)
	assert.Equal(t, 3, reports.summarized)
}

func TestWatchlist(t *testing.T) {
	assert.Equal(t, []string{"AAPL", "KO"}, watchlist([]string{"aapl", "AAPL ", "", "KO"}))
	assert.Empty(t, watchlist([]string{" ", ""}))
}

func TestRunNow_NoResultsSkipsSummary(t *testing.T) {
	analyzer := &fakeAnalyzer{max: 5, failing: map[string]bool{"BAD": true}}
	reports := &fakeReports{}
	s := newScheduler(t, analyzer, reports, common.SchedulerConfig{Symbols: []string{"BAD"}})

	summary, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Analyzed)
	assert.Zero(t, reports.summaries)
}

func TestRunNow_EmptyWatchlist(t *testing.T) {
	s := newScheduler(t, &fakeAnalyzer{max: 5}, &fakeReports{}, common.SchedulerConfig{})

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrNoSymbols)
}

func TestRunNow_SkipsOverlappingRun(t *testing.T) {
	analyzer := &fakeAnalyzer{max: 5, block: make(chan struct{}), started: make(chan struct{})}
	started := analyzer.started
	s := newScheduler(t, analyzer, &fakeReports{}, common.SchedulerConfig{Symbols: []string{"AAPL"}})

	errs := make(chan error, 1)
	go func() {
		_, err := s.RunNow(context.Background())
		errs <- err
	}()
	<-started

	_, err := s.RunNow(context.Background())
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(analyzer.block)
	require.NoError(t, <-errs)
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(&fakeAnalyzer{}, &fakeReports{}, common.SchedulerConfig{Format: "docx"}, analysis.Options{}, arbor.NewLogger())
	assert.Error(t, err)

	_, err = NewService(&fakeAnalyzer{}, &fakeReports{}, common.SchedulerConfig{Enabled: true, Schedule: "every day"}, analysis.Options{}, arbor.NewLogger())
	assert.Error(t, err)

	// a bad schedule is ignored while disabled
	_, err = NewService(&fakeAnalyzer{}, &fakeReports{}, common.SchedulerConfig{Schedule: "every day"}, analysis.Options{}, arbor.NewLogger())
	assert.NoError(t, err)
}

func TestStartStop(t *testing.T) {
	disabled := newScheduler(t, &fakeAnalyzer{max: 5}, &fakeReports{}, common.SchedulerConfig{})
	require.NoError(t, disabled.Start())
	require.NoError(t, disabled.Stop())

	s := newScheduler(t, &fakeAnalyzer{max: 5}, &fakeReports{}, common.SchedulerConfig{
		Enabled:  true,
		Schedule: "0 7 * * 1-5",
		Symbols:  []string{"AAPL"},
	})
	require.NoError(t, s.Start())
	assert.Error(t, s.Start())
	require.NoError(t, s.Stop())
}

func TestChunks(t *testing.T) {
	assert.Nil(t, chunks(nil, 3))
	assert.Equal(t, [][]string{{"A"}, {"B"}}, chunks([]string{"A", "B"}, 0))
	assert.Equal(t, [][]string{{"A", "B", "C"}}, chunks([]string{"A", "B", "C"}, 5))
}
