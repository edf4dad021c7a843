package crawler

import (
	"errors"
	"fmt"
	"time"
)

// ErrRetry is returned (possibly wrapped) by a Callback to reject the
// current screen without failing: the interaction is polled again. In
// immediate mode it becomes a fatal mismatch.
var ErrRetry = errors.New("crawler: retry interaction")

// DeviceError reports that the device could not be reached or refused a
// request. The engine never retries it.
type DeviceError struct {
	Op  string
	Err error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("crawler: device %s: %v", e.Op, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// MismatchError reports a screen that contradicts the expected interaction
// in a way that retrying cannot fix.
type MismatchError struct {
	Screen   *Screen
	Expected string
	// Index is the pattern that failed, or -1 when the screen shape or a
	// callback rejected it.
	Index  int
	Reason string
	// Err is the callback error, if a callback failed.
	Err error
}

func (e *MismatchError) Error() string {
	msg := fmt.Sprintf("crawler: wrong screen value: %#v, expected %s", e.Screen, e.Expected)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MismatchError) Unwrap() error {
	return e.Err
}

// PaginationError reports a paginated value whose page headers were missing
// or out of sequence, or whose reconstructed value was wrong.
type PaginationError struct {
	Title    string
	Expected string
	Got      string
}

func (e *PaginationError) Error() string {
	return fmt.Sprintf("crawler: multi-screen %s: expected %q, got %q", e.Title, e.Expected, e.Got)
}

// PrematureError reports that the action finished before an interaction
// was satisfied.
type PrematureError struct {
	Waiting string
	Elapsed time.Duration
	Recent  []*Screen
}

func (e *PrematureError) Error() string {
	return fmt.Sprintf("crawler: run: command finished before %s completed (after %v)\n    recent screen captures (oldest to newest):\n%s",
		e.Waiting, e.Elapsed.Round(time.Millisecond), formatRecentScreens(e.Recent))
}

// TimeoutError reports that the run deadline passed while an interaction
// was still pending.
type TimeoutError struct {
	Waiting string
	Timeout time.Duration
	Recent  []*Screen
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("crawler: run: timed out after %v\n    waiting for: %s\n    recent screen captures (oldest to newest):\n%s",
		e.Timeout, e.Waiting, formatRecentScreens(e.Recent))
}

// MergedError is returned when both the action and the interactions failed.
type MergedError struct {
	Action      error
	Interaction error
}

func (e *MergedError) Error() string {
	return fmt.Sprintf("crawler: failed to run with interactions:\nrun failure: %v\ninteractions failure: %v",
		e.Action, e.Interaction)
}

func (e *MergedError) Unwrap() []error {
	return []error{e.Action, e.Interaction}
}
