package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/models"
)

// Depth selects how much the narrative covers
type Depth string

const (
	DepthBasic         Depth = "basic"
	DepthDetailed      Depth = "detailed"
	DepthComprehensive Depth = "comprehensive"
)

// ParseDepth maps a user value onto a Depth. Unknown values are comprehensive.
func ParseDepth(s string) Depth {
	switch Depth(strings.ToLower(strings.TrimSpace(s))) {
	case DepthBasic:
		return DepthBasic
	case DepthDetailed:
		return DepthDetailed
	default:
		return DepthComprehensive
	}
}

const basePrompt = `You are a professional value investing analyst. Analyse the stock data below
following the value investing principles of Warren Buffett and Benjamin Graham.
`

const basicPrompt = basePrompt + `
Cover:
1. Current valuation (focus on PE and PB)
2. A brief financial health check
3. An investment recommendation with a short rationale
`

const detailedPrompt = basePrompt + `
Cover:
1. Valuation (PE, PB, PEG, dividend yield)
2. Financial health (debt ratio, liquidity)
3. Growth (revenue and earnings growth)
4. Competitive advantage and business model
5. Risk factors
6. Target price and investment strategy
`

const comprehensivePrompt = basePrompt + `
Cover:
1. In-depth valuation
   - Multiple valuation metrics
   - Comparison with industry peers
   - Intrinsic value estimate

2. Financial analysis
   - Three-year statement trends
   - Cash flow
   - Capital structure

3. Business analysis
   - Competitive advantage and moat
   - Industry outlook and market position
   - Management assessment

4. Risk analysis
   - Market, credit and liquidity risk
   - Management and industry risk
   - Macroeconomic risk

5. Investment strategy
   - Long-term attractiveness
   - Entry point and target price
   - Position sizing within a portfolio

6. ESG considerations

Support each item with concrete evidence and finish with a clear investment opinion.
`

const comparisonPrompt = `Perform a value investing comparison of the following %d stocks (%s).

Cover:
1. Value investing attractiveness of each stock
2. Financial health comparison
3. Growth and profitability
4. Risk factors
5. Portfolio construction considerations
6. Final investment priority with reasons

Separate each stock's strengths and weaknesses clearly and focus on what a value
investor should weigh most.
`

// PromptForDepth returns the analysis instructions for depth
func PromptForDepth(depth Depth) string {
	switch depth {
	case DepthBasic:
		return basicPrompt
	case DepthDetailed:
		return detailedPrompt
	default:
		return comprehensivePrompt
	}
}

// NarrativeService generates free-text analyses and comparisons
type NarrativeService struct {
	generator   Generator
	logger      arbor.ILogger
	model       string
	temperature float32
	maxTokens   int
}

// NewNarrativeService creates a narrative generator from [narrative] settings
func NewNarrativeService(generator Generator, cfg common.NarrativeConfig, logger arbor.ILogger) *NarrativeService {
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.7
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}
	return &NarrativeService{
		generator:   generator,
		logger:      logger,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// GenerateAnalysis writes a value-investing analysis of one stock
func (s *NarrativeService) GenerateAnalysis(ctx context.Context, raw *models.RawFinancials, depth Depth) (string, error) {
	if raw == nil {
		return "", fmt.Errorf("no stock data to analyse")
	}

	prompt := fmt.Sprintf(`%s
**Stock data:**
%s

Using the data above, analyse this stock from a value investing perspective.
`, PromptForDepth(depth), FormatStockData(raw))

	s.logger.Debug().Str("symbol", raw.Symbol).Str("depth", string(depth)).Msg("Requesting narrative")

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages:      UserMessage(prompt),
		Model:         s.model,
		Temperature:   s.temperature,
		MaxTokens:     s.maxTokens,
		ThinkingLevel: "LOW",
	})
	if err != nil {
		return "", fmt.Errorf("narrative generation failed: %w", err)
	}
	return resp.Text, nil
}

// GenerateComparison writes a side-by-side analysis. At least two stocks are required.
func (s *NarrativeService) GenerateComparison(ctx context.Context, stocks map[string]*models.RawFinancials) (string, error) {
	if len(stocks) < 2 {
		return "", fmt.Errorf("comparison requires at least 2 stocks, got %d", len(stocks))
	}

	symbols := make([]string, 0, len(stocks))
	for symbol := range stocks {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	var data strings.Builder
	divider := strings.Repeat("=", 50)
	for _, symbol := range symbols {
		fmt.Fprintf(&data, "\n%s\nStock: %s\n%s\n", divider, symbol, divider)
		data.WriteString(FormatStockData(stocks[symbol]))
		data.WriteString("\n")
	}

	prompt := fmt.Sprintf(comparisonPrompt, len(symbols), strings.Join(symbols, ", ")) +
		"\n**Stock data:**\n" + data.String()

	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages:      UserMessage(prompt),
		Model:         s.model,
		Temperature:   s.temperature,
		MaxTokens:     s.maxTokens * 2,
		ThinkingLevel: "MEDIUM",
	})
	if err != nil {
		return "", fmt.Errorf("comparison generation failed: %w", err)
	}
	return resp.Text, nil
}

// TestConnection sends a short probe and reports whether the provider answered
func (s *NarrativeService) TestConnection(ctx context.Context) bool {
	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages:    UserMessage("Hello, this is a connection test. Please respond with 'Connection successful.'"),
		Model:       s.model,
		Temperature: 0.1,
		MaxTokens:   50,
		NoRetry:     true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("LLM connection test failed")
		return false
	}
	return strings.Contains(strings.ToLower(resp.Text), "successful")
}
