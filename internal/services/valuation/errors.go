package valuation

import (
	"errors"
	"fmt"
)

// ErrAdvisoryUnavailable marks an advisory call that failed, timed out or returned
// nothing usable. The resolver absorbs it and falls back to rule-based grading.
var ErrAdvisoryUnavailable = errors.New("advisory opinion unavailable")

// DataUnavailableError reports that no usable data could be collected for a symbol.
type DataUnavailableError struct {
	Symbol string
	Reason string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	msg := fmt.Sprintf("data unavailable for %s", e.Symbol)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DataUnavailableError) Unwrap() error {
	return e.Err
}

// AnalysisFailure wraps an unexpected fault raised while analyzing a symbol.
type AnalysisFailure struct {
	Symbol string
	Err    error
}

func (e *AnalysisFailure) Error() string {
	return fmt.Sprintf("analysis failed for %s: %v", e.Symbol, e.Err)
}

func (e *AnalysisFailure) Unwrap() error {
	return e.Err
}

// IsDataUnavailable reports whether err is (or wraps) a DataUnavailableError
func IsDataUnavailable(err error) bool {
	var target *DataUnavailableError
	return errors.As(err, &target)
}

// IsAnalysisFailure reports whether err is (or wraps) an AnalysisFailure
func IsAnalysisFailure(err error) bool {
	var target *AnalysisFailure
	return errors.As(err, &target)
}
