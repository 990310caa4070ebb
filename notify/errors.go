package notify

import "fmt"

// ErrSendFailed is returned when a message could not be delivered to the
// platform.
type ErrSendFailed struct {
	Channel  string
	Platform string
	// Part is the 1-based chunk that failed, 0 when the whole send failed.
	Part  int
	Cause error
}

func (e *ErrSendFailed) Error() string {
	if e.Part > 0 {
		return fmt.Sprintf("notify: send failed on %s (%s) part %d: %v", e.Channel, e.Platform, e.Part, e.Cause)
	}
	return fmt.Sprintf("notify: send failed on %s (%s): %v", e.Channel, e.Platform, e.Cause)
}

func (e *ErrSendFailed) Unwrap() error { return e.Cause }
