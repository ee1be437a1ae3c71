package planner

import "github.com/pkg/errors"

var (
	// ErrFatalTick matches every error that aborted a tick. The executing trajectory is unchanged.
	ErrFatalTick = errors.New("planning tick aborted")

	// ErrNonMonotonicTime is returned when a scan is older than the previous one.
	ErrNonMonotonicTime = errors.New("scan timestamp went backwards")
)

// fatalError marks its cause as having aborted the tick. It matches both ErrFatalTick and
// the cause.
type fatalError struct {
	cause error
}

func (e *fatalError) Error() string        { return ErrFatalTick.Error() + ": " + e.cause.Error() }
func (e *fatalError) Unwrap() error        { return e.cause }
func (e *fatalError) Is(target error) bool { return target == ErrFatalTick }

func fatal(err error) error {
	return &fatalError{cause: err}
}
