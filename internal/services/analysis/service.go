// Package analysis sequences collection, valuation, advisory grading and narrative
// generation for single symbols, batches and comparisons.
package analysis

import (
	"context"
	"fmt"
	"regexp"
	"sync"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/llm"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

const (
	minCompareSymbols = 2
	maxCompareSymbols = 5
)

var symbolPattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9.\-^=]{0,19}$`)

// Collector supplies raw financials and symbol lookups
type Collector interface {
	Collect(ctx context.Context, symbol string) (*models.RawFinancials, error)
	ValidateSymbol(ctx context.Context, symbol string) bool
	SuggestSymbols(ctx context.Context, query string) []string
}

// Narrator writes free-text analyses
type Narrator interface {
	GenerateAnalysis(ctx context.Context, raw *models.RawFinancials, depth llm.Depth) (string, error)
	GenerateComparison(ctx context.Context, stocks map[string]*models.RawFinancials) (string, error)
}

// Options controls one analysis run
type Options struct {
	Depth     llm.Depth
	Narrative bool // request a provider narrative instead of the rule-based summary
}

// Failure records a symbol that could not be analysed
type Failure struct {
	Symbol string `json:"symbol"`
	Reason string `json:"reason"`
}

// BatchResult holds the outcome of AnalyzeMany. Results keep input order.
type BatchResult struct {
	RunID    string                      `json:"run_id"`
	Results  []*valuation.AnalysisResult `json:"results"`
	Failures []Failure                   `json:"failures"`

	financials map[string]*models.RawFinancials
}

// PlainResults converts every result with ToPlainMap
func (b *BatchResult) PlainResults() []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(b.Results))
	for _, r := range b.Results {
		out = append(out, r.ToPlainMap())
	}
	return out
}

// Comparison is a batch plus the comparative narrative
type Comparison struct {
	*BatchResult
	Narrative string `json:"comparison_analysis"`
}

// Service runs analyses. It is safe for concurrent use.
type Service struct {
	collector   Collector
	analyzer    *valuation.Analyzer
	advisor     valuation.Advisor
	narrator    Narrator
	logger      arbor.ILogger
	concurrency int
	maxSymbols  int
}

// NewService wires the analysis pipeline. advisor and narrator may be nil.
func NewService(
	collector Collector,
	analyzer *valuation.Analyzer,
	advisor valuation.Advisor,
	narrator Narrator,
	cfg common.BatchConfig,
	logger arbor.ILogger,
) *Service {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	maxSymbols := cfg.MaxSymbols
	if maxSymbols < 1 {
		maxSymbols = 5
	}
	return &Service{
		collector:   collector,
		analyzer:    analyzer,
		advisor:     advisor,
		narrator:    narrator,
		logger:      logger,
		concurrency: concurrency,
		maxSymbols:  maxSymbols,
	}
}

// MaxSymbols returns the largest batch AnalyzeMany accepts
func (s *Service) MaxSymbols() int {
	return s.maxSymbols
}

// NormalizeSymbol upper-cases and checks a user-supplied symbol
func NormalizeSymbol(symbol string) (string, error) {
	normalized := models.NormalizeSymbol(symbol)
	if !symbolPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return normalized, nil
}

// AnalyzeSymbol collects and analyses one symbol
func (s *Service) AnalyzeSymbol(ctx context.Context, symbol string, opts Options) (*valuation.AnalysisResult, error) {
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	result, _, err := s.analyze(ctx, normalized, opts)
	return result, err
}

func (s *Service) analyze(ctx context.Context, symbol string, opts Options) (*valuation.AnalysisResult, *models.RawFinancials, error) {
	raw, err := s.collector.Collect(ctx, symbol)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.analyzer.Analyze(ctx, raw, s.advisor)
	if err != nil {
		return nil, nil, err
	}

	if opts.Narrative && s.narrator != nil {
		text, err := s.narrator.GenerateAnalysis(ctx, raw, opts.Depth)
		if err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Narrative generation failed")
			text = "AI analysis failed: " + err.Error()
		}
		result = result.WithNarrative(text)
	}

	return result, raw, nil
}

// AnalyzeMany analyses up to MaxSymbols symbols on a bounded worker pool.
// Duplicate symbols are analysed once. A failing symbol never stops the others.
func (s *Service) AnalyzeMany(ctx context.Context, symbols []string, opts Options) (*BatchResult, error) {
	batch := &BatchResult{
		RunID:      uuid.New().String(),
		Results:    []*valuation.AnalysisResult{},
		Failures:   []Failure{},
		financials: map[string]*models.RawFinancials{},
	}

	var valid []string
	seen := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		normalized, err := NormalizeSymbol(symbol)
		if err != nil {
			batch.Failures = append(batch.Failures, Failure{Symbol: symbol, Reason: err.Error()})
			continue
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		valid = append(valid, normalized)
	}

	if len(valid) > s.maxSymbols {
		return nil, fmt.Errorf("%w: %d requested, limit is %d", ErrTooManySymbols, len(valid), s.maxSymbols)
	}

	s.logger.Info().
		Str("run_id", batch.RunID).
		Int("symbols", len(valid)).
		Int("concurrency", s.concurrency).
		Msg("Starting batch analysis")

	type outcome struct {
		result *valuation.AnalysisResult
		raw    *models.RawFinancials
		err    error
	}
	outcomes := make([]outcome, len(valid))

	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := s.concurrency
	if workers > len(valid) {
		workers = len(valid)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		common.SafeGo(s.logger, fmt.Sprintf("analysis-worker-%d", w), func() {
			defer wg.Done()
			for i := range jobs {
				outcomes[i].result, outcomes[i].raw, outcomes[i].err = s.analyzeSafely(ctx, valid[i], opts)
			}
		})
	}

	for i := range valid {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for i, o := range outcomes {
		if o.err != nil {
			batch.Failures = append(batch.Failures, Failure{Symbol: valid[i], Reason: o.err.Error()})
			continue
		}
		batch.Results = append(batch.Results, o.result)
		batch.financials[o.result.Symbol] = o.raw
	}

	s.logger.Info().
		Str("run_id", batch.RunID).
		Int("succeeded", len(batch.Results)).
		Int("failed", len(batch.Failures)).
		Msg("Batch analysis complete")

	return batch, nil
}

// analyzeSafely turns a panic in collection or narrative into a failure for this symbol only
func (s *Service) analyzeSafely(ctx context.Context, symbol string, opts Options) (result *valuation.AnalysisResult, raw *models.RawFinancials, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &valuation.AnalysisFailure{Symbol: symbol, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return s.analyze(ctx, symbol, opts)
}

// Compare analyses two to five symbols and asks for a comparative narrative.
// When the narrator is unavailable or fails, Narrative carries the failure text.
func (s *Service) Compare(ctx context.Context, symbols []string, opts Options) (*Comparison, error) {
	if len(symbols) < minCompareSymbols {
		return nil, ErrTooFewSymbols
	}
	if len(symbols) > maxCompareSymbols {
		return nil, fmt.Errorf("%w: compare accepts at most %d", ErrTooManySymbols, maxCompareSymbols)
	}

	batch, err := s.AnalyzeMany(ctx, symbols, opts)
	if err != nil {
		return nil, err
	}
	if len(batch.Results) < minCompareSymbols {
		return nil, fmt.Errorf("%w: only %d of %d symbols could be analysed", ErrTooFewSymbols, len(batch.Results), len(symbols))
	}

	comparison := &Comparison{BatchResult: batch}
	if s.narrator == nil || !opts.Narrative {
		return comparison, nil
	}

	text, err := s.narrator.GenerateComparison(ctx, batch.financials)
	if err != nil {
		s.logger.Warn().Err(err).Str("run_id", batch.RunID).Msg("Comparison narrative failed")
		text = "AI analysis failed: " + err.Error()
	}
	comparison.Narrative = text

	return comparison, nil
}

// Validate reports whether symbol is known. Unknown symbols come with suggestions.
func (s *Service) Validate(ctx context.Context, symbol string) (bool, []string) {
	normalized, err := NormalizeSymbol(symbol)
	if err == nil && s.collector.ValidateSymbol(ctx, normalized) {
		return true, nil
	}
	return false, s.collector.SuggestSymbols(ctx, symbol)
}

// ValuationConfig maps [valuation] settings onto analyzer anchors
func ValuationConfig(cfg common.ValuationConfig) valuation.Config {
	thresholds := valuation.DefaultThresholds()
	if cfg.HighBeta > 0 {
		thresholds.HighBeta = cfg.HighBeta
	}
	return valuation.Config{
		FairPE:            cfg.FairPE,
		FairPB:            cfg.FairPB,
		RequiredReturn:    cfg.RequiredReturn,
		MaxDividendGrowth: cfg.MaxDividendGrowth,
		TargetFloor:       cfg.TargetFloor,
		TargetCeiling:     cfg.TargetCeiling,
		CurrentRatio:      cfg.CurrentRatio,
		Thresholds:        thresholds,
	}
}
