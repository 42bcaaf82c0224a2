package llm

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/valuator/internal/common"
	"github.com/ternarybob/valuator/internal/services/valuation"
)

const advisorySystemInstruction = "You are a disciplined value investor. Answer only in the requested format."

// AdvisoryService asks a provider for a grade verdict. It makes exactly one
// request per call and returns errors to the caller, which falls back to rules.
type AdvisoryService struct {
	generator   Generator
	logger      arbor.ILogger
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

var _ valuation.Advisor = (*AdvisoryService)(nil)

// NewAdvisoryService creates an advisory client from [advisory] settings
func NewAdvisoryService(generator Generator, cfg common.AdvisoryConfig, logger arbor.ILogger) *AdvisoryService {
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.3
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 200
	}
	return &AdvisoryService{
		generator:   generator,
		logger:      logger,
		model:       cfg.Model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     common.ParseDuration(cfg.Timeout, 30*time.Second),
	}
}

// Advise sends prompt and returns the raw reply text
func (s *AdvisoryService) Advise(ctx context.Context, prompt string) (string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.generator.GenerateContent(ctx, &ContentRequest{
		Messages:          UserMessage(prompt),
		Model:             s.model,
		Temperature:       s.temperature,
		MaxTokens:         s.maxTokens,
		SystemInstruction: advisorySystemInstruction,
		NoRetry:           true,
	})
	if err != nil {
		s.logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Advisory request failed")
		return "", err
	}

	s.logger.Debug().
		Str("provider", string(resp.Provider)).
		Str("model", resp.Model).
		Dur("elapsed", time.Since(start)).
		Msg("Advisory reply received")

	return resp.Text, nil
}
