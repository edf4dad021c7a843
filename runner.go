package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/oxen-io/ledger-crawler/internal/telemetry"
)

var tracer = otel.Tracer(telemetry.ServiceName)

// Action is the long-running operation driven by Run, such as a wallet
// command that waits for the device to sign.
type Action[T any] func(ctx context.Context) (T, error)

// future holds the single result of an action running on the session worker.
type future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

func (f *future[T]) wait() (T, error) {
	<-f.done
	return f.val, f.err
}

// submit starts action on the session's one-slot worker. An action submitted
// while another one still runs waits for the slot.
func submit[T any](ctx context.Context, s *Session, action Action[T]) *future[T] {
	f := &future[T]{done: make(chan struct{})}
	go func() {
		defer close(f.done)
		select {
		case s.slot <- struct{}{}:
		case <-ctx.Done():
			f.err = ctx.Err()
			return
		}
		defer func() { <-s.slot }()
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("crawler: action panicked: %v", r)
			}
		}()
		f.val, f.err = action(ctx)
	}()
	return f
}

// Run starts action in the background and, while it runs, waits for each
// interaction in order: the screen is polled until the current matcher
// matches, then the next one is tried straight away. The timeout covers the
// whole run.
//
// Run always waits for action to return; it never cancels it. If the
// interactions fail, that error is returned, or a *MergedError when action
// failed too. Otherwise action's own result and error are returned.
func Run[T any](ctx context.Context, s *Session, action Action[T], interactions []Matcher, opts ...RunOption) (T, error) {
	var zero T

	ro, err := s.runOptions(opts)
	if err != nil {
		return zero, err
	}

	ctx, span := tracer.Start(ctx, "crawler.run", trace.WithAttributes(
		attribute.Int("interactions", len(interactions)),
		attribute.String("timeout", ro.timeout.String()),
	))
	defer span.End()

	start := time.Now()
	fut := submit(ctx, s, action)
	intErr := s.interact(ctx, interactions, ro, start, fut.done)
	val, actErr := fut.wait()

	var outcome string
	switch {
	case intErr != nil && actErr != nil:
		outcome = "merged"
		err = &MergedError{Action: actErr, Interaction: intErr}
	case intErr != nil:
		outcome = failureKind(intErr)
		err = intErr
	case actErr != nil:
		outcome = "action_error"
		err = actErr
	default:
		outcome = "ok"
	}
	s.metrics.RecordRun(ctx, "run", outcome, time.Since(start))
	span.SetAttributes(attribute.String("outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return zero, err
	}
	return val, nil
}

// Check evaluates each interaction once, in order, against the current
// screen with no background action and no polling. The first interaction
// that does not match fails the check.
func Check(ctx context.Context, s *Session, interactions []Matcher, opts ...RunOption) error {
	ro, err := s.runOptions(opts)
	if err != nil {
		return err
	}

	ctx, span := tracer.Start(ctx, "crawler.check", trace.WithAttributes(
		attribute.Int("interactions", len(interactions)),
	))
	defer span.End()

	start := time.Now()
	err = s.checkAll(ctx, interactions, ro)
	outcome := "ok"
	if err != nil {
		outcome = failureKind(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.metrics.RecordRun(ctx, "check", outcome, time.Since(start))
	return err
}

func (s *Session) checkAll(ctx context.Context, interactions []Matcher, ro runOptions) error {
	for i, m := range interactions {
		scr, err := s.Screen(ctx)
		if err != nil {
			return err
		}
		out := m.Evaluate(ctx, &Attempt{Session: s, Screen: scr, Immediate: true, Values: ro.values})
		s.metrics.RecordInteraction(ctx, matcherKind(m), out.Result.String())
		switch out.Result {
		case Matched:
			s.logger.Debug("Interaction success", zap.Int("index", i), zap.Stringer("matcher", m))
		case Fatal:
			s.logger.Warn("Interaction failed", zap.Int("index", i), zap.Stringer("matcher", m), zap.Error(out.Err))
			return out.Err
		default:
			return &MismatchError{Screen: scr, Expected: m.String(), Index: -1, Reason: "not matched on first check"}
		}
	}
	return nil
}

// interact drives the interaction queue until it is exhausted, the action
// completes, the deadline passes, or a matcher fails fatally.
func (s *Session) interact(ctx context.Context, interactions []Matcher, ro runOptions, start time.Time, done <-chan struct{}) error {
	deadline := start.Add(ro.timeout)
	recent := &recentScreens{max: recentScreenHistory}

	for i, m := range interactions {
		for {
			if !time.Now().Before(deadline) {
				return &TimeoutError{Waiting: m.String(), Timeout: ro.timeout, Recent: recent.list()}
			}
			select {
			case <-done:
				return &PrematureError{Waiting: m.String(), Elapsed: time.Since(start), Recent: recent.list()}
			default:
			}

			scr, err := s.Screen(ctx)
			if err != nil {
				return err
			}
			recent.add(scr)
			s.metrics.RecordPoll(ctx)

			out := m.Evaluate(ctx, &Attempt{Session: s, Screen: scr, Values: ro.values})
			s.metrics.RecordInteraction(ctx, matcherKind(m), out.Result.String())
			if out.Result == Matched {
				s.logger.Debug("Interaction success",
					zap.Int("index", i),
					zap.Stringer("matcher", m),
					zap.Duration("elapsed", time.Since(start)))
				break
			}
			if out.Result == Fatal {
				s.logger.Warn("Interaction failed",
					zap.Int("index", i),
					zap.Stringer("matcher", m),
					zap.Error(out.Err))
				return out.Err
			}

			wait := ro.pollInterval
			if remaining := time.Until(deadline); remaining < wait {
				wait = remaining
			}
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
					return ctx.Err()
				case <-done:
					timer.Stop()
				case <-timer.C:
				}
			}
		}
	}
	return nil
}

func (s *Session) runOptions(opts []RunOption) (runOptions, error) {
	ro := runOptions{}
	for _, o := range opts {
		o(&ro)
	}

	switch {
	case ro.timeout < 0:
		return ro, fmt.Errorf("crawler: run: negative timeout: %v", ro.timeout)
	case ro.timeout == 0:
		ro.timeout = s.opts.timeout
	}

	switch {
	case ro.pollInterval < 0:
		return ro, fmt.Errorf("crawler: run: negative poll interval: %v", ro.pollInterval)
	case ro.pollInterval == 0:
		ro.pollInterval = s.opts.pollInterval
	}
	ro.pollInterval = max(ro.pollInterval, minPollInterval)

	if ro.values == nil {
		ro.values = NewValues()
	}
	return ro, nil
}

func matcherKind(m Matcher) string {
	switch m.(type) {
	case *ExactMatcher:
		return "exact"
	case *RegexMatcher:
		return "match"
	case *MultiPageMatcher:
		return "multipage"
	case *ActionMatcher:
		return "do"
	default:
		return "custom"
	}
}

func failureKind(err error) string {
	var (
		timeout   *TimeoutError
		premature *PrematureError
		device    *DeviceError
	)
	switch {
	case errors.As(err, &timeout):
		return "timeout"
	case errors.As(err, &premature):
		return "premature"
	case errors.As(err, &device):
		return "device_error"
	default:
		return "interaction_error"
	}
}
