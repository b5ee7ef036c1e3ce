package pending

import (
	"context"
	"errors"
	"fmt"
)

// Reason describes why a tracked request was canceled.
type Reason string

const (
	// ReasonSuperseded means a newer request with the same key was registered.
	ReasonSuperseded Reason = "superseded by a newer request"
	// ReasonRemoved means the entry was removed explicitly.
	ReasonRemoved Reason = "removed"
	// ReasonCleared means all pending requests were canceled, for example on navigation.
	ReasonCleared Reason = "all pending requests cleared"
)

// CancelError is the cancellation cause of a tracked request context.
// It unwraps to context.Canceled.
type CancelError struct {
	Key    string
	Reason Reason
}

func (e *CancelError) Error() string {
	return fmt.Sprintf(`pending request "%s" canceled: %s`, e.Key, e.Reason)
}

func (e *CancelError) Unwrap() error {
	return context.Canceled
}

// IsCancel returns true if the error was caused by the Tracker cancellation.
func IsCancel(err error) bool {
	var cancelErr *CancelError
	return errors.As(err, &cancelErr)
}

// CancelReason returns the cancellation reason from the error chain, if any.
func CancelReason(err error) (Reason, bool) {
	var cancelErr *CancelError
	if errors.As(err, &cancelErr) {
		return cancelErr.Reason, true
	}
	return "", false
}
