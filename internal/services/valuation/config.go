package valuation

// Thresholds are the band edges used by the assessor and risk rules
type Thresholds struct {
	RevenueGrowthStrong float64 // revenue growth % above which growth is a strength
	RevenueGrowthWeak   float64 // revenue growth % below which growth is a weakness
	ROEStrong           float64
	ROAStrong           float64
	ROEWeak             float64
	DebtToEquityLow     float64
	DebtToEquityHigh    float64
	PEValue             float64 // upper PE bound for an attractive valuation
	PBValue             float64 // upper PB bound for an attractive valuation
	PEExpensive         float64
	PBExpensive         float64
	DividendYieldStrong float64
	HighBeta            float64
}

// Config carries the valuation anchors and threshold tables. It is read-only once
// passed to NewAnalyzer.
type Config struct {
	FairPE            float64 // earnings multiple applied to implied EPS
	FairPB            float64 // book multiple applied to implied book value per share
	RequiredReturn    float64 // discount rate for the dividend model
	MaxDividendGrowth float64 // cap on the dividend growth rate
	TargetFloor       float64 // lower clamp as a fraction of the current price
	TargetCeiling     float64 // upper clamp as a fraction of the current price
	CurrentRatio      float64 // placeholder liquidity ratio reported in ValueMetrics
	Thresholds        Thresholds
}

// DefaultConfig returns the standard anchors: fair PE 15, fair PB 2.0, 10% required
// return, dividend growth capped at 6%, and targets bounded to [0.5x, 2x] of price.
func DefaultConfig() Config {
	return Config{
		FairPE:            15,
		FairPB:            2.0,
		RequiredReturn:    0.10,
		MaxDividendGrowth: 0.06,
		TargetFloor:       0.5,
		TargetCeiling:     2.0,
		CurrentRatio:      1.5,
		Thresholds:        DefaultThresholds(),
	}
}

// DefaultThresholds returns the standard assessor bands
func DefaultThresholds() Thresholds {
	return Thresholds{
		RevenueGrowthStrong: 10,
		RevenueGrowthWeak:   -10,
		ROEStrong:           0.15,
		ROAStrong:           0.08,
		ROEWeak:             0.05,
		DebtToEquityLow:     0.3,
		DebtToEquityHigh:    1.0,
		PEValue:             15,
		PBValue:             2,
		PEExpensive:         30,
		PBExpensive:         5,
		DividendYieldStrong: 0.03,
		HighBeta:            1.5,
	}
}

// withDefaults fills zero-valued anchors so a partially populated Config still
// produces sensible targets.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.FairPE <= 0 {
		c.FairPE = d.FairPE
	}
	if c.FairPB <= 0 {
		c.FairPB = d.FairPB
	}
	if c.RequiredReturn <= 0 {
		c.RequiredReturn = d.RequiredReturn
	}
	if c.MaxDividendGrowth < 0 {
		c.MaxDividendGrowth = d.MaxDividendGrowth
	}
	if c.TargetFloor <= 0 {
		c.TargetFloor = d.TargetFloor
	}
	if c.TargetCeiling <= 0 || c.TargetCeiling < c.TargetFloor {
		c.TargetCeiling = d.TargetCeiling
	}
	if c.CurrentRatio <= 0 {
		c.CurrentRatio = d.CurrentRatio
	}
	if c.Thresholds == (Thresholds{}) {
		c.Thresholds = d.Thresholds
	}
	return c
}
