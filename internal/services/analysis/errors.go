package analysis

import (
	"errors"

	"github.com/ternarybob/valuator/internal/eodhd"
)

var (
	// ErrInvalidSymbol is returned for an empty or malformed symbol
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrTooManySymbols is returned when a batch exceeds the configured limit
	ErrTooManySymbols = errors.New("too many symbols")
	// ErrTooFewSymbols is returned when a comparison has fewer than two usable symbols
	ErrTooFewSymbols = errors.New("comparison needs at least two symbols")
)

// IsUnknownSymbol reports whether err means the symbol is malformed or the
// market data provider does not know it.
func IsUnknownSymbol(err error) bool {
	if errors.Is(err, ErrInvalidSymbol) {
		return true
	}
	var apiErr *eodhd.APIError
	return errors.As(err, &apiErr) && apiErr.IsNotFound()
}
