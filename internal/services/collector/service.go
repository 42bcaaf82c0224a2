// Package collector gathers price history and fundamentals for a symbol and maps
// them onto models.RawFinancials.
package collector

import (
	"context"
	"errors"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/eodhd"
	"github.com/ternarybob/valuator/internal/models"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

// MarketDataProvider is the subset of the EODHD client the collector needs
type MarketDataProvider interface {
	GetFundamentals(ctx context.Context, symbol string) (*eodhd.FundamentalsResponse, error)
	GetEOD(ctx context.Context, symbol string, opts ...eodhd.QueryOption) (eodhd.EODResponse, error)
	Search(ctx context.Context, query string, opts ...eodhd.QueryOption) ([]eodhd.SearchResult, error)
}

// SnapshotCache stores recent RawFinancials. Get returns an error on miss or staleness.
type SnapshotCache interface {
	Get(symbol string, maxAge time.Duration) (*models.RawFinancials, error)
	Put(fin *models.RawFinancials) error
}

// Service collects RawFinancials per symbol
type Service struct {
	provider    MarketDataProvider
	cache       SnapshotCache
	logger      arbor.ILogger
	historyDays int
	cacheTTL    time.Duration
	now         func() time.Time
}

// NewService creates a collector. cache may be nil.
func NewService(provider MarketDataProvider, cache SnapshotCache, logger arbor.ILogger, cfg common.CollectorConfig) *Service {
	historyDays := cfg.HistoryDays
	if historyDays < 30 {
		historyDays = 400
	}
	return &Service{
		provider:    provider,
		cache:       cache,
		logger:      logger,
		historyDays: historyDays,
		cacheTTL:    common.ParseDuration(cfg.CacheTTL, 6*time.Hour),
		now:         time.Now,
	}
}

// Collect returns the financial snapshot for symbol. Provider failures and empty
// payloads are reported as *valuation.DataUnavailableError.
func (s *Service) Collect(ctx context.Context, symbol string) (*models.RawFinancials, error) {
	symbol = eodhd.FormatSymbol(symbol)
	if symbol == "" {
		return nil, &valuation.DataUnavailableError{Reason: "empty symbol"}
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if cached, err := s.cache.Get(symbol, s.cacheTTL); err == nil {
			s.logger.Debug().Str("symbol", symbol).Msg("Using cached financials")
			return cached, nil
		}
	}

	fundamentals, err := s.provider.GetFundamentals(ctx, symbol)
	if err != nil {
		return nil, &valuation.DataUnavailableError{Symbol: symbol, Reason: "fundamentals request failed", Err: err}
	}
	if fundamentals == nil || fundamentals.General == nil || fundamentals.General.Code == "" {
		return nil, &valuation.DataUnavailableError{Symbol: symbol, Reason: "no fundamentals returned"}
	}

	now := s.now()
	bars, err := s.provider.GetEOD(ctx, symbol,
		eodhd.WithDateRange(now.AddDate(0, 0, -s.historyDays), now),
		eodhd.WithOrder("a"),
	)
	if err != nil {
		return nil, &valuation.DataUnavailableError{Symbol: symbol, Reason: "price history request failed", Err: err}
	}
	if len(bars) == 0 || bars[len(bars)-1].Close <= 0 {
		return nil, &valuation.DataUnavailableError{Symbol: symbol, Reason: "no price history returned"}
	}

	fin := mapFinancials(symbol, fundamentals, bars, now)

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Put(fin); err != nil {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to cache financials")
		}
	}

	s.logger.Info().
		Str("symbol", symbol).
		Str("company", fin.CompanyName).
		Float64("price", fin.CurrentPrice).
		Int("bars", len(bars)).
		Msg("Collected financials")

	return fin, nil
}

// ValidateSymbol reports whether the provider recognizes symbol
func (s *Service) ValidateSymbol(ctx context.Context, symbol string) bool {
	symbol = eodhd.FormatSymbol(symbol)
	if symbol == "" {
		return false
	}

	fundamentals, err := s.provider.GetFundamentals(ctx, symbol)
	if err != nil {
		var apiErr *eodhd.APIError
		if !errors.As(err, &apiErr) || !apiErr.IsNotFound() {
			s.logger.Warn().Err(err).Str("symbol", symbol).Msg("Symbol validation request failed")
		}
		return false
	}
	return fundamentals != nil && fundamentals.General != nil && fundamentals.General.Code != ""
}

// SuggestSymbols proposes up to five symbols for a company name or partial ticker
func (s *Service) SuggestSymbols(ctx context.Context, query string) []string {
	suggestions := wellKnownMatches(query)

	if len(suggestions) < maxSuggestions && s.provider != nil {
		results, err := s.provider.Search(ctx, query, eodhd.WithLimit(maxSuggestions))
		if err != nil {
			s.logger.Debug().Err(err).Str("query", query).Msg("Symbol search failed")
		}
		for _, r := range results {
			suggestions = append(suggestions, r.Symbol())
		}
	}

	return dedupe(suggestions, maxSuggestions)
}

