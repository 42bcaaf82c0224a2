package valuation

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Reply markers the advisory prompt asks for, one per line
const (
	GradeMarker      = "등급:"
	ConfidenceMarker = "신뢰도:"
	RationaleMarker  = "핵심근거:"
)

// Fallback scoring points
const (
	fallbackBaseScore = 50.0

	peDeepValueMax = 10.0
	peValueMax     = 15.0
	peExpensiveMin = 25.0
	peDeepValuePts = 20.0
	peValuePts     = 10.0
	peExpensivePts = -10.0

	roeHighMin  = 0.15
	roeGoodMin  = 0.10
	roePoorMax  = 0.05
	roeHighPts  = 15.0
	roeGoodPts  = 10.0
	roePoorPts  = -15.0
	revGrowthUp = 10.0
	revGrowthDn = -10.0
	revUpPts    = 10.0
	revDownPts  = -15.0

	upsideLargeMin = 30.0
	upsideMidMin   = 15.0
	upsideLargePts = 15.0
	upsideMidPts   = 10.0
	upsideNegPts   = -20.0

	strongBuyMin = 80.0
	buyMin       = 70.0
	holdMin      = 50.0
	sellMin      = 30.0

	defaultAdvisoryConfidence = 50.0
)

// Advisor returns a free-text opinion for a prompt. Implementations must bound
// their own call duration.
type Advisor interface {
	Advise(ctx context.Context, prompt string) (string, error)
}

// AdvisorFunc adapts a function to the Advisor interface
type AdvisorFunc func(ctx context.Context, prompt string) (string, error)

func (f AdvisorFunc) Advise(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// GradeInput is everything the resolver needs to grade one symbol
type GradeInput struct {
	Symbol          string
	CompanyName     string
	Sector          string
	CurrentPrice    float64
	Metrics         ValueMetrics
	Strengths       []string
	Weaknesses      []string
	Risks           []string
	UpsidePotential float64
}

// GradeDecision is the resolved grade with its confidence in [0,100]
type GradeDecision struct {
	Grade      InvestmentGrade
	Confidence float64
	Rationale  string
	Source     GradeSource
}

// AdvisoryReply is the parsed three-line advisory answer
type AdvisoryReply struct {
	Grade      InvestmentGrade
	Confidence float64
	Rationale  string
}

// ResolveGrade asks the advisor for a grade and falls back to FallbackGrade when the
// advisor is nil, fails, or replies without a grade line. It always returns a valid
// decision.
func (a *Analyzer) ResolveGrade(ctx context.Context, in GradeInput, advisor Advisor) GradeDecision {
	if advisor == nil {
		return fallbackDecision(in)
	}

	reply, err := a.consultAdvisor(ctx, advisor, BuildGradePrompt(in))
	if err != nil {
		a.logger.Warn().
			Str("symbol", in.Symbol).
			Err(err).
			Msg("Advisory grading unavailable, using rule-based grade")
		return fallbackDecision(in)
	}

	parsed, ok := ParseAdvisoryReply(reply)
	if !ok {
		a.logger.Warn().
			Str("symbol", in.Symbol).
			Int("reply_len", len(reply)).
			Msg("Advisory reply had no grade line, using rule-based grade")
		return fallbackDecision(in)
	}

	a.logger.Debug().
		Str("symbol", in.Symbol).
		Str("grade", parsed.Grade.String()).
		Float64("confidence", parsed.Confidence).
		Msg("Advisory grade accepted")

	return GradeDecision{
		Grade:      parsed.Grade,
		Confidence: parsed.Confidence,
		Rationale:  parsed.Rationale,
		Source:     SourceAdvisory,
	}
}

// consultAdvisor makes the single advisory call. Errors, empty replies and panics
// all come back as ErrAdvisoryUnavailable.
func (a *Analyzer) consultAdvisor(ctx context.Context, advisor Advisor, prompt string) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			reply = ""
			err = fmt.Errorf("%w: advisor panicked: %v", ErrAdvisoryUnavailable, r)
		}
	}()

	reply, err = advisor.Advise(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAdvisoryUnavailable, err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("%w: empty reply", ErrAdvisoryUnavailable)
	}
	return reply, nil
}

func fallbackDecision(in GradeInput) GradeDecision {
	grade, confidence := FallbackGrade(in.Metrics, in.UpsidePotential)
	return GradeDecision{
		Grade:      grade,
		Confidence: confidence,
		Source:     SourceFallback,
	}
}

// FallbackGrade scores the metrics from a base of 50 and maps the score onto the
// grade scale. The PE band (15,25] neither adds nor subtracts, and an ROE of exactly
// zero is treated as unreported rather than penalized.
func FallbackGrade(m ValueMetrics, upside float64) (InvestmentGrade, float64) {
	score := fallbackScore(m, upside)

	var grade InvestmentGrade
	switch {
	case score >= strongBuyMin:
		grade = StrongBuy
	case score >= buyMin:
		grade = Buy
	case score >= holdMin:
		grade = Hold
	case score >= sellMin:
		grade = Sell
	default:
		grade = StrongSell
	}

	return grade, clampConfidence(score)
}

func fallbackScore(m ValueMetrics, upside float64) float64 {
	score := fallbackBaseScore

	switch {
	case m.PERatio > 0 && m.PERatio <= peDeepValueMax:
		score += peDeepValuePts
	case m.PERatio > peDeepValueMax && m.PERatio <= peValueMax:
		score += peValuePts
	case m.PERatio > peExpensiveMin:
		score += peExpensivePts
	}

	switch {
	case m.ROE >= roeHighMin:
		score += roeHighPts
	case m.ROE >= roeGoodMin:
		score += roeGoodPts
	case m.ROE != 0 && m.ROE < roePoorMax:
		// Zero ROE means unreported, like a zero PE, so an all-zero snapshot scores 50.
		// This departs from the straight "ROE < 0.05" rule, which would penalize it.
		score += roePoorPts
	}

	switch {
	case m.RevenueGrowth > revGrowthUp:
		score += revUpPts
	case m.RevenueGrowth < revGrowthDn:
		score += revDownPts
	}

	switch {
	case upside > upsideLargeMin:
		score += upsideLargePts
	case upside > upsideMidMin:
		score += upsideMidPts
	case upside < 0:
		score += upsideNegPts
	}

	return score
}

func clampConfidence(v float64) float64 {
	if math.IsNaN(v) {
		return defaultAdvisoryConfidence
	}
	return math.Max(0, math.Min(100, v))
}

// ParseAdvisoryReply scans the reply for the grade, confidence and rationale lines
// in any order. ok is false when no line carries the grade marker. A missing or
// unreadable confidence defaults to 50, and an unknown grade label reads as Hold.
func ParseAdvisoryReply(reply string) (parsed AdvisoryReply, ok bool) {
	parsed = AdvisoryReply{Grade: Hold, Confidence: defaultAdvisoryConfidence}
	var seenGrade, seenConfidence, seenRationale bool

	for _, line := range strings.Split(reply, "\n") {
		switch {
		case !seenGrade && strings.Contains(line, GradeMarker):
			parsed.Grade = ParseGrade(afterMarker(line, GradeMarker))
			seenGrade = true
		case !seenConfidence && strings.Contains(line, ConfidenceMarker):
			parsed.Confidence = parseConfidence(afterMarker(line, ConfidenceMarker))
			seenConfidence = true
		case !seenRationale && strings.Contains(line, RationaleMarker):
			parsed.Rationale = strings.TrimSpace(afterMarker(line, RationaleMarker))
			seenRationale = true
		}
	}

	return parsed, seenGrade
}

func afterMarker(line, marker string) string {
	idx := strings.Index(line, marker)
	return strings.TrimSpace(line[idx+len(marker):])
}

func parseConfidence(s string) float64 {
	s = strings.Trim(strings.TrimSpace(s), "*[]")
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[0]
	}
	s = strings.TrimSuffix(s, "%")
	if i := strings.Index(s, "/"); i > 0 {
		s = s[:i]
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return defaultAdvisoryConfidence
	}
	return clampConfidence(v)
}

// BuildGradePrompt renders the advisory request for one symbol. The reply format
// block is fixed; ParseAdvisoryReply depends on it.
func BuildGradePrompt(in GradeInput) string {
	m := in.Metrics
	var b strings.Builder

	b.WriteString("You are a professional equity analyst following the value investing discipline of Benjamin Graham and Warren Buffett.\n\n")
	b.WriteString("Decide an investment grade for the following stock.\n\n")

	b.WriteString("**Company**\n")
	fmt.Fprintf(&b, "- Symbol: %s (%s)\n", in.Symbol, in.CompanyName)
	fmt.Fprintf(&b, "- Sector: %s\n", orUnknown(in.Sector))
	fmt.Fprintf(&b, "- Current price: $%.2f\n\n", in.CurrentPrice)

	b.WriteString("**Key metrics**\n")
	fmt.Fprintf(&b, "- PE: %.2f\n", m.PERatio)
	fmt.Fprintf(&b, "- PB: %.2f\n", m.PBRatio)
	fmt.Fprintf(&b, "- PEG: %.2f\n", m.PEGRatio)
	fmt.Fprintf(&b, "- ROE: %.2f%%\n", m.ROE*100)
	fmt.Fprintf(&b, "- ROA: %.2f%%\n", m.ROA*100)
	fmt.Fprintf(&b, "- Debt/Equity: %.2f\n", m.DebtToEquity)
	fmt.Fprintf(&b, "- Current ratio (estimate): %.2f\n", m.CurrentRatio)
	fmt.Fprintf(&b, "- Dividend yield: %.2f%%\n", m.DividendYield*100)
	fmt.Fprintf(&b, "- Revenue growth: %.1f%%\n", m.RevenueGrowth)
	fmt.Fprintf(&b, "- Net income growth: %.1f%%\n", m.IncomeGrowth)
	fmt.Fprintf(&b, "- Upside to target: %.1f%%\n\n", in.UpsidePotential)

	writeBullets(&b, "Strengths", in.Strengths)
	writeBullets(&b, "Weaknesses", in.Weaknesses)
	writeBullets(&b, "Risks", in.Risks)

	b.WriteString("**Grade definitions**\n")
	b.WriteString("1. Strong Buy: deeply undervalued, strong fundamentals, high upside\n")
	b.WriteString("2. Buy: attractive opportunity with sound fundamentals\n")
	b.WriteString("3. Hold: fairly priced, keep existing positions\n")
	b.WriteString("4. Sell: overvalued or deteriorating fundamentals\n")
	b.WriteString("5. Strong Sell: serious problems, exit recommended\n\n")

	b.WriteString("**Answer using exactly these three lines and nothing else:**\n\n")
	fmt.Fprintf(&b, "%s [Strong Buy/Buy/Hold/Sell/Strong Sell]\n", GradeMarker)
	fmt.Fprintf(&b, "%s [number 0-100]\n", ConfidenceMarker)
	fmt.Fprintf(&b, "%s [one line summary]\n\n", RationaleMarker)
	b.WriteString("Example:\n")
	fmt.Fprintf(&b, "%s Buy\n", GradeMarker)
	fmt.Fprintf(&b, "%s 85\n", ConfidenceMarker)
	fmt.Fprintf(&b, "%s Low PE and high ROE point to an attractive discount\n", RationaleMarker)

	return b.String()
}

func writeBullets(b *strings.Builder, title string, items []string) {
	fmt.Fprintf(b, "**%s**\n", title)
	if len(items) == 0 {
		b.WriteString("- None identified\n")
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
	b.WriteString("\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Unknown"
	}
	return s
}
