package badger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/valuator/internal/models"
)

// ErrCacheMiss is returned when no fresh snapshot exists for a symbol
var ErrCacheMiss = errors.New("financials cache miss")

// CachedFinancials is a stored collector snapshot
type CachedFinancials struct {
	Symbol     string
	Financials models.RawFinancials
	FetchedAt  time.Time
}

// FinancialsCache keeps recently fetched RawFinancials keyed by symbol so repeated
// analyses within the TTL avoid another provider round trip.
type FinancialsCache struct {
	db     *BadgerDB
	logger arbor.ILogger
	now    func() time.Time
}

// NewFinancialsCache creates a cache on top of an open database
func NewFinancialsCache(db *BadgerDB, logger arbor.ILogger) *FinancialsCache {
	return &FinancialsCache{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func cacheKey(symbol string) string {
	return "financials:" + strings.ToUpper(strings.TrimSpace(symbol))
}

// Get returns the cached snapshot when it is younger than maxAge.
// maxAge <= 0 disables the age check.
func (c *FinancialsCache) Get(symbol string, maxAge time.Duration) (*models.RawFinancials, error) {
	var entry CachedFinancials
	err := c.db.Store().Get(cacheKey(symbol), &entry)
	if err == badgerhold.ErrNotFound {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached financials: %w", err)
	}

	if maxAge > 0 && c.now().Sub(entry.FetchedAt) > maxAge {
		c.logger.Debug().
			Str("symbol", symbol).
			Str("fetched_at", entry.FetchedAt.Format(time.RFC3339)).
			Msg("Cached financials are stale")
		return nil, ErrCacheMiss
	}

	fin := entry.Financials
	return &fin, nil
}

// Put stores a snapshot, replacing any previous one for the symbol
func (c *FinancialsCache) Put(fin *models.RawFinancials) error {
	if fin == nil || fin.Symbol == "" {
		return fmt.Errorf("cannot cache financials without a symbol")
	}

	entry := CachedFinancials{
		Symbol:     strings.ToUpper(fin.Symbol),
		Financials: *fin,
		FetchedAt:  c.now(),
	}
	if err := c.db.Store().Upsert(cacheKey(fin.Symbol), &entry); err != nil {
		return fmt.Errorf("failed to cache financials: %w", err)
	}
	return nil
}

// Purge removes snapshots fetched before now-olderThan and returns how many were removed
func (c *FinancialsCache) Purge(olderThan time.Duration) (int, error) {
	cutoff := c.now().Add(-olderThan)

	var stale []CachedFinancials
	if err := c.db.Store().Find(&stale, badgerhold.Where("FetchedAt").Lt(cutoff)); err != nil {
		return 0, fmt.Errorf("failed to query stale financials: %w", err)
	}

	removed := 0
	for _, entry := range stale {
		if err := c.db.Store().Delete(cacheKey(entry.Symbol), CachedFinancials{}); err != nil && err != badgerhold.ErrNotFound {
			return removed, fmt.Errorf("failed to delete cached financials for %s: %w", entry.Symbol, err)
		}
		removed++
	}

	if removed > 0 {
		c.logger.Info().Int("removed", removed).Msg("Purged stale cached financials")
	}
	return removed, nil
}
