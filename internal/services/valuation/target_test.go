package valuation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTargetPrice(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	tests := []struct {
		name    string
		price   float64
		metrics ValueMetrics
		want    float64
	}{
		{"no candidates", 50, ValueMetrics{}, 50},
		{"zero price", 0, ValueMetrics{PERatio: 10, PBRatio: 1}, 0},
		{"earnings only", 100, ValueMetrics{PERatio: 20}, 75},
		{"earnings and book averaged", 100, ValueMetrics{PERatio: 20, PBRatio: 4}, 62.5},
		{"median of three", 100, ValueMetrics{PERatio: 10, PBRatio: 1, DividendYield: 0.03, IncomeGrowth: 20}, 150},
		{"clamped to ceiling", 100, ValueMetrics{PERatio: 5}, 200},
		{"clamped to floor", 100, ValueMetrics{PERatio: 100}, 50},
		{"negative multiples ignored", 100, ValueMetrics{PERatio: -8, PBRatio: -1}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, a.EstimateTargetPrice(tt.price, tt.metrics), 1e-9)
		})
	}
}

func TestEstimateTargetPrice_DividendSkippedWhenGrowthReachesRequiredReturn(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxDividendGrowth = 0.12
	a := NewAnalyzer(cfg, nil)

	// growth clamps to 0.12, above the 0.10 required return
	got := a.EstimateTargetPrice(80, ValueMetrics{DividendYield: 0.05, IncomeGrowth: 20})
	assert.Equal(t, 80.0, got)
}

func TestEstimateTargetPrice_DividendGrowthFloorsAtZero(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	// 4 / 0.10 = 40, clamped up to 50
	got := a.EstimateTargetPrice(100, ValueMetrics{DividendYield: 0.04, IncomeGrowth: -30})
	assert.InDelta(t, 50.0, got, 1e-9)

	// 8 / 0.10 = 80
	got = a.EstimateTargetPrice(100, ValueMetrics{DividendYield: 0.08, IncomeGrowth: -30})
	assert.InDelta(t, 80.0, got, 1e-9)
}

func TestEstimateTargetPrice_AlwaysWithinBand(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 2000; i++ {
		price := rng.Float64()*1000 + 0.01
		m := ValueMetrics{
			PERatio:       rng.Float64()*120 - 20,
			PBRatio:       rng.Float64()*15 - 2,
			DividendYield: rng.Float64() * 0.12,
			IncomeGrowth:  rng.Float64()*200 - 100,
		}
		got := a.EstimateTargetPrice(price, m)
		assert.False(t, math.IsNaN(got))
		assert.GreaterOrEqual(t, got, price*0.5-1e-9)
		assert.LessOrEqual(t, got, price*2.0+1e-9)
	}
}

func TestUpsidePotential(t *testing.T) {
	assert.Equal(t, 50.0, upsidePotential(150, 100))
	assert.Equal(t, -25.0, upsidePotential(75, 100))
	assert.Equal(t, 0.0, upsidePotential(10, 0))
}
