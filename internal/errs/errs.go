// Package errs holds the error taxonomy shared by the pricing core.
//
// Failure sites wrap these sentinels with github.com/pkg/errors, so callers
// classify a failure with errors.Is regardless of how much context was added.
package errs

import "github.com/pkg/errors"

var (
	// ErrInvalidArgument reports a malformed input detected before any path is simulated.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNumericOverflow reports a non-finite terminal level, payoff or aggregate.
	ErrNumericOverflow = errors.New("numeric overflow")

	// ErrDegenerateAbsorption names the diagnostic raised when a path reaches
	// the origin. It is counted, never returned as a run failure.
	ErrDegenerateAbsorption = errors.New("degenerate absorption")
)

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

// NumericOverflow wraps ErrNumericOverflow with a formatted message.
func NumericOverflow(format string, args ...any) error {
	return errors.Wrapf(ErrNumericOverflow, format, args...)
}
