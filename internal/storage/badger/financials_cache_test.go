package badger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/models"
)

func newTestDB(t *testing.T) *BadgerDB {
	t.Helper()
	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestFinancialsCache_PutGet(t *testing.T) {
	cache := NewFinancialsCache(newTestDB(t), arbor.NewLogger())

	fin := &models.RawFinancials{
		Symbol:       "KO.US",
		CompanyName:  "Coca-Cola Co",
		Sector:       "Consumer Defensive",
		CurrentPrice: 61.2,
		Metrics:      map[string]float64{models.MetricPERatio: 24.1, models.MetricDividendYield: 0.031},
	}
	require.NoError(t, cache.Put(fin))

	got, err := cache.Get("ko.us", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, "Coca-Cola Co", got.CompanyName)
	assert.Equal(t, 24.1, got.Metric(models.MetricPERatio))
	assert.Equal(t, 0.031, got.Metric(models.MetricDividendYield))
}

func TestFinancialsCache_Miss(t *testing.T) {
	cache := NewFinancialsCache(newTestDB(t), arbor.NewLogger())

	_, err := cache.Get("MISSING", time.Hour)
	assert.ErrorIs(t, err, ErrCacheMiss)

	assert.Error(t, cache.Put(&models.RawFinancials{}))
}

func TestFinancialsCache_StaleAndPurge(t *testing.T) {
	cache := NewFinancialsCache(newTestDB(t), arbor.NewLogger())
	base := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)

	cache.now = func() time.Time { return base }
	require.NoError(t, cache.Put(&models.RawFinancials{Symbol: "OLD.US"}))

	cache.now = func() time.Time { return base.Add(3 * time.Hour) }
	require.NoError(t, cache.Put(&models.RawFinancials{Symbol: "NEW.US"}))

	_, err := cache.Get("OLD.US", time.Hour)
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = cache.Get("OLD.US", 0)
	assert.NoError(t, err)

	removed, err := cache.Purge(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, err = cache.Get("OLD.US", 0)
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = cache.Get("NEW.US", time.Hour)
	assert.NoError(t, err)
}

func TestBadgerDB_CollectGarbage(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.CollectGarbage())
}
