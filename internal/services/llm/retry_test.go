package llm

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsRateLimitError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429", errors.New("Error 429, Message: too many requests"), true},
		{"resource exhausted", errors.New("Status: RESOURCE_EXHAUSTED"), true},
		{"claude", errors.New(`{"type":"rate_limit_error"}`), true},
		{"quota", errors.New("quota exceeded for project"), true},
		{"other", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRateLimitError(tt.err))
		})
	}
}

func TestExtractRetryDelay(t *testing.T) {
	err := errors.New("Error 429, Message: quota. Please retry in 45.5s., Status: RESOURCE_EXHAUSTED")
	assert.Equal(t, 45500*time.Millisecond, ExtractRetryDelay(err))

	assert.Equal(t, 12*time.Second, ExtractRetryDelay(errors.New("retryDelay: 12s")))
	assert.Zero(t, ExtractRetryDelay(errors.New("no hint")))
	assert.Zero(t, ExtractRetryDelay(nil))
}

func TestCalculateBackoff(t *testing.T) {
	cfg := NewDefaultRetryConfig()

	assert.Equal(t, 45*time.Second, cfg.CalculateBackoff(0, 0))
	assert.Equal(t, 67500*time.Millisecond, cfg.CalculateBackoff(1, 0))
	assert.Equal(t, 90*time.Second, cfg.CalculateBackoff(5, 0))

	// API delay plus a 5s buffer
	assert.Equal(t, 15*time.Second, cfg.CalculateBackoff(0, 10*time.Second))
}

func TestTransientBackoff(t *testing.T) {
	assert.Equal(t, 2*time.Second, transientBackoff(0))
	assert.Equal(t, 6*time.Second, transientBackoff(2))
}
