package crawler

import (
	"context"
	"errors"
)

// ActionMatcher performs a device side effect, typically a button push, and
// always matches. An error from the action fails the run.
type ActionMatcher struct {
	fn   func(ctx context.Context, s *Session) error
	desc string
}

// Do returns a matcher that runs fn against the session when it is reached.
func Do(desc string, fn func(ctx context.Context, s *Session) error) *ActionMatcher {
	if desc == "" {
		desc = "device action"
	}
	return &ActionMatcher{fn: fn, desc: desc}
}

// Push returns a matcher that performs p.
func Push(p Press) *ActionMatcher {
	return Do(p.String(), func(ctx context.Context, s *Session) error {
		return s.Press(ctx, p)
	})
}

// Single pushes of each button. They hold no state and can be shared.
var (
	PushLeft  = Push(Press{Button: Left})
	PushRight = Push(Press{Button: Right})
	PushBoth  = Push(Press{Button: Both})
)

func (m *ActionMatcher) String() string {
	return m.desc
}

// Evaluate implements Matcher. The screen is ignored.
func (m *ActionMatcher) Evaluate(ctx context.Context, a *Attempt) Outcome {
	if a.Session == nil {
		return fatal(errors.New("crawler: " + m.desc + ": no session"))
	}
	if err := m.fn(ctx, a.Session); err != nil {
		return fatal(err)
	}
	return matched()
}
