package domain

import "errors"

var (
	ErrInvalidInput         = errors.New("invalid_input")
	ErrDepletedSource       = errors.New("depleted_source")
	ErrInsufficientActivity = errors.New("insufficient_activity")
	ErrSourceBusy           = errors.New("source_busy")
	ErrConfiguration        = errors.New("configuration_error")
)

// Retryable reports whether the caller may retry the operation unchanged.
// Only contention on a source qualifies; the engine never retries itself.
func Retryable(err error) bool {
	return errors.Is(err, ErrSourceBusy)
}
