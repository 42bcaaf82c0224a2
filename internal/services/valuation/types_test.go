package valuation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGrade(t *testing.T) {
	tests := []struct {
		input string
		want  InvestmentGrade
	}{
		{"Strong Buy", StrongBuy},
		{"Buy", Buy},
		{"Hold", Hold},
		{"Sell", Sell},
		{"Strong Sell", StrongSell},
		{"  strong   buy ", StrongBuy},
		{"**Sell**", Sell},
		{"[Buy]", Buy},
		{"Accumulate", Hold},
		{"", Hold},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGrade(tt.input))
		})
	}
}

func TestInvestmentGrade_Order(t *testing.T) {
	grades := AllGrades()
	require.Len(t, grades, 5)
	for i := 1; i < len(grades); i++ {
		assert.Less(t, int(grades[i-1]), int(grades[i]), "grades must be ordered most to least favorable")
	}
	assert.False(t, InvestmentGrade(7).IsValid())
	assert.Equal(t, "Hold", InvestmentGrade(-1).String())
}

func TestInvestmentGrade_JSON(t *testing.T) {
	data, err := json.Marshal(StrongSell)
	require.NoError(t, err)
	assert.Equal(t, `"Strong Sell"`, string(data))

	var g InvestmentGrade
	require.NoError(t, json.Unmarshal([]byte(`"Buy"`), &g))
	assert.Equal(t, Buy, g)

	assert.Error(t, json.Unmarshal([]byte(`3`), &g))
}

func TestBuildMetrics_PEG(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	tests := []struct {
		name         string
		pe           float64
		incomeGrowth float64
		wantPEG      float64
	}{
		{"positive growth", 20, 10, 2},
		{"zero growth", 20, 0, 0},
		{"negative growth", 20, -5, 0},
		{"zero pe", 0, 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := a.BuildMetrics(map[string]float64{"pe_ratio": tt.pe, "income_growth": tt.incomeGrowth})
			assert.Equal(t, tt.wantPEG, m.PEGRatio)
		})
	}
}

func TestBuildMetrics_MissingValuesAreZero(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)

	m := a.BuildMetrics(nil)
	assert.Equal(t, ValueMetrics{CurrentRatio: 1.5}, m)

	m = a.BuildMetrics(map[string]float64{"roe": 0.2})
	assert.Equal(t, 0.2, m.ROE)
	assert.Zero(t, m.PERatio)
	assert.Equal(t, 1.5, m.CurrentRatio)
}

func TestBuildMetrics_CurrentRatioFromConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CurrentRatio = 2.2
	a := NewAnalyzer(cfg, nil)

	assert.Equal(t, 2.2, a.BuildMetrics(nil).CurrentRatio)
}
