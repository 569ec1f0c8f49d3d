package reservation

import (
	"errors"
	"fmt"
)

var (
	// ErrBadRequest marks input that violates the boundary contract.
	ErrBadRequest = errors.New("bad request")
	ErrNotFound   = errors.New("reservation not found")
	// ErrUnavailable marks an infrastructure failure. Nothing was committed.
	ErrUnavailable = errors.New("temporarily unavailable")
	// ErrBusy marks a gate timeout. Nothing was committed.
	ErrBusy = errors.New("system busy")
)

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrBadRequest, fmt.Sprintf(format, args...))
}

// IsRetryable reports whether the whole operation may be retried unchanged.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, ErrBusy)
}

// PublicMessage returns a message safe to show to callers. Storage details are never exposed.
func PublicMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBusy):
		return "system busy, please retry"
	case errors.Is(err, ErrUnavailable):
		return "service temporarily unavailable, please retry"
	case errors.Is(err, ErrNotFound):
		return ErrNotFound.Error()
	case errors.Is(err, ErrBadRequest):
		return err.Error()
	default:
		return "internal error"
	}
}
