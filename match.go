package crawler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// Result is the tri-state verdict of a single matcher evaluation.
type Result int

const (
	// Pending means the screen does not show the expected state yet; the
	// runner polls again.
	Pending Result = iota
	// Matched means the interaction is satisfied; the runner advances.
	Matched
	// Fatal means the screen contradicts the interaction; the run aborts.
	Fatal
)

func (r Result) String() string {
	switch r {
	case Pending:
		return "pending"
	case Matched:
		return "matched"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("Result(%d)", int(r))
	}
}

// Outcome is returned by Matcher.Evaluate. Err is set only for Fatal.
type Outcome struct {
	Result Result
	Err    error
}

func matched() Outcome { return Outcome{Result: Matched} }

func pending() Outcome { return Outcome{Result: Pending} }

func fatal(err error) Outcome { return Outcome{Result: Fatal, Err: err} }

// Attempt is one evaluation of a matcher against a polled screen.
type Attempt struct {
	// Session gives access to the device, for matchers that push buttons or
	// page through values. Pure screen matchers do not use it.
	Session *Session
	Screen  *Screen
	// Immediate turns every non-match into a fatal outcome.
	Immediate bool
	// Values is the accumulator handed to callbacks. A nil Values is
	// replaced with an empty one on first use.
	Values *Values
}

func (a *Attempt) values() *Values {
	if a.Values == nil {
		a.Values = NewValues()
	}
	return a.Values
}

// A Matcher checks one expected device state. Implementations are evaluated
// from a single goroutine and may keep state between polls.
type Matcher interface {
	Evaluate(ctx context.Context, a *Attempt) Outcome
	// String describes the expected state for error messages.
	String() string
}

// Capture is passed to callbacks once a matcher has matched.
type Capture struct {
	Screen *Screen
	// Groups[i] holds the submatches of pattern i against line i, with the
	// whole match at index 0. Empty for MultiPage.
	Groups [][]string
	// Value is the reconstructed paginated value. Empty for line matchers.
	Value string
	// Values is the accumulator shared by every callback of the invocation.
	Values *Values
}

// Group returns submatch group of pattern, or "" when either is out of range.
func (c *Capture) Group(pattern, group int) string {
	if pattern < 0 || pattern >= len(c.Groups) {
		return ""
	}
	g := c.Groups[pattern]
	if group < 0 || group >= len(g) {
		return ""
	}
	return g[group]
}

// Callback inspects a matched screen. Returning nil accepts it; returning an
// error wrapping ErrRetry polls again; any other error fails the run.
type Callback func(c *Capture) error

// Store returns a callback that saves submatch group of pattern under key,
// replacing any previous value.
func Store(key string, pattern, group int) Callback {
	return func(c *Capture) error {
		c.Values.Set(key, c.Group(pattern, group))
		return nil
	}
}

// Collect returns a callback that appends submatch group of pattern to key.
func Collect(key string, pattern, group int) Callback {
	return func(c *Capture) error {
		c.Values.Append(key, c.Group(pattern, group))
		return nil
	}
}

// CollectValue returns a MultiPage callback that appends the reconstructed
// value to key.
func CollectValue(key string) Callback {
	return func(c *Capture) error {
		c.Values.Append(key, c.Value)
		return nil
	}
}

// RegexMatcher matches each screen line against the corresponding pattern.
// Patterns are searched, not anchored, so anchor them with ^ and $ as needed.
type RegexMatcher struct {
	patterns   []*regexp.Regexp
	callback   Callback
	allowExtra bool
	failIndex  int
	desc       string
}

// Match returns a matcher for screens whose lines match patterns, one
// pattern per line. Patterns are compiled once; an invalid pattern panics.
func Match(patterns []string, opts ...MatchOption) *RegexMatcher {
	o := matchOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return newRegexMatcher(patterns, o, fmt.Sprintf("screen match: %q", patterns))
}

func newRegexMatcher(patterns []string, o matchOptions, desc string) *RegexMatcher {
	m := &RegexMatcher{
		patterns:   make([]*regexp.Regexp, len(patterns)),
		callback:   o.callback,
		allowExtra: o.allowExtra,
		failIndex:  len(patterns),
		desc:       desc,
	}
	for i, p := range patterns {
		m.patterns[i] = regexp.MustCompile(p)
	}
	if o.failIndex > 0 {
		m.failIndex = o.failIndex
	}
	return m
}

// Patterns returns the source of the compiled patterns.
func (m *RegexMatcher) Patterns() []string {
	out := make([]string, len(m.patterns))
	for i, re := range m.patterns {
		out[i] = re.String()
	}
	return out
}

func (m *RegexMatcher) String() string {
	return m.desc
}

// Evaluate implements Matcher.
func (m *RegexMatcher) Evaluate(ctx context.Context, a *Attempt) Outcome {
	scr := a.Screen
	extra := scr.Len() - len(m.patterns)
	if extra < 0 || (extra > 0 && !m.allowExtra) {
		if a.Immediate {
			return fatal(&MismatchError{
				Screen:   scr,
				Expected: m.desc,
				Index:    -1,
				Reason:   fmt.Sprintf("expected %d lines, got %d", len(m.patterns), scr.Len()),
			})
		}
		return pending()
	}

	groups := make([][]string, len(m.patterns))
	for i, re := range m.patterns {
		sub := re.FindStringSubmatch(scr.lines[i])
		if sub == nil {
			if i >= m.failIndex || a.Immediate {
				return fatal(&MismatchError{
					Screen:   scr,
					Expected: m.desc,
					Index:    i,
					Reason:   fmt.Sprintf("line %d does not match %q", i, re.String()),
				})
			}
			return pending()
		}
		groups[i] = sub
	}

	if m.callback == nil {
		return matched()
	}
	err := m.callback(&Capture{Screen: scr, Groups: groups, Values: a.values()})
	return callbackOutcome(err, a, m.desc)
}

func callbackOutcome(err error, a *Attempt, desc string) Outcome {
	switch {
	case err == nil:
		return matched()
	case errors.Is(err, ErrRetry):
		if a.Immediate {
			return fatal(&MismatchError{Screen: a.Screen, Expected: desc, Index: -1, Reason: "rejected by callback", Err: err})
		}
		return pending()
	default:
		return fatal(err)
	}
}

// ExactMatcher matches screens line by line against literal text.
//
// When built with quirks that drop capital S, the patterns are relaxed on
// the first evaluation, once per matcher.
type ExactMatcher struct {
	RegexMatcher
	quirks  Quirks
	relaxed bool
}

// Exact returns a matcher for screens showing exactly lines.
func Exact(lines []string, opts ...MatchOption) *ExactMatcher {
	o := matchOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	patterns := make([]string, len(lines))
	for i, l := range lines {
		patterns[i] = "^" + regexp.QuoteMeta(l) + "$"
	}
	return &ExactMatcher{
		RegexMatcher: *newRegexMatcher(patterns, o, fmt.Sprintf("screen %q", lines)),
		quirks:       o.quirks,
	}
}

// Evaluate implements Matcher.
func (m *ExactMatcher) Evaluate(ctx context.Context, a *Attempt) Outcome {
	if !m.relaxed {
		m.relaxed = true
		if m.quirks.DropsCapitalS {
			for i, re := range m.patterns {
				m.patterns[i] = regexp.MustCompile(m.quirks.relaxPattern(re.String()))
			}
		}
	}
	return m.RegexMatcher.Evaluate(ctx, a)
}
