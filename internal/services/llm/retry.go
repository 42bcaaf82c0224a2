package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// RetryConfig controls how provider calls back off after failures.
// Rate-limit backoffs follow the provider quota window (~60s for Gemini).
type RetryConfig struct {
	// MaxRetries is the number of retries after the first attempt (default: 3)
	MaxRetries int

	// InitialBackoff is the base wait after a rate-limit error (default: 45s)
	InitialBackoff time.Duration

	// MaxBackoff caps any single wait (default: 90s)
	MaxBackoff time.Duration

	// BackoffMultiplier grows the wait per attempt (default: 1.5)
	BackoffMultiplier float64
}

const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 45 * time.Second
	DefaultMaxBackoff        = 90 * time.Second
	DefaultBackoffMultiplier = 1.5
)

// NewDefaultRetryConfig returns the default provider retry policy
func NewDefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        DefaultMaxRetries,
		InitialBackoff:    DefaultInitialBackoff,
		MaxBackoff:        DefaultMaxBackoff,
		BackoffMultiplier: DefaultBackoffMultiplier,
	}
}

// IsRateLimitError reports whether err looks like a provider quota error
// (HTTP 429, RESOURCE_EXHAUSTED, rate_limit_error or a quota message).
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "rate_limit_error") ||
		strings.Contains(errStr, "quota")
}

var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// ExtractRetryDelay parses a provider-suggested delay such as
// "Please retry in 45.387061394s." from err. Returns 0 when none is present.
func ExtractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}

	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}

	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

// CalculateBackoff returns the wait before retry number attempt (0-based).
// A positive apiDelay replaces InitialBackoff as the base. The result never
// exceeds MaxBackoff.
func (c *RetryConfig) CalculateBackoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + 5*time.Second
	}

	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}

	backoff := time.Duration(float64(base) * multiplier)
	if backoff > c.MaxBackoff {
		backoff = c.MaxBackoff
	}

	return backoff
}

// transientBackoff is the wait after a non rate-limit failure
func transientBackoff(attempt int) time.Duration {
	return time.Duration(attempt+1) * 2 * time.Second
}
