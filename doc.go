// Package crawler drives a hardware wallet running under the Speculos device
// emulator while wallet commands run against it, asserting what the device
// screen shows and pushing its buttons.
//
// A test starts a long-running wallet operation with [Run] and describes the
// screens the device must show while it runs, in order. The crawler polls the
// emulator's screen text, checks each expected screen, pushes buttons where
// the script says to, and reports both the operation's result and any
// interaction failure.
//
// # Quick Start
//
//	func TestSend(t *testing.T) {
//		s := crawler.Open(t)
//		out, err := crawler.Run(ctx, s, sendCommand, []crawler.Matcher{
//			s.Exact([]string{"Confirm", "Transaction"}),
//			crawler.PushRight,
//			crawler.Match([]string{`^Amount$`, `^(\d+\.\d+)$`},
//				crawler.WithCallback(crawler.Store("amount", 1, 1))),
//			crawler.PushBoth,
//		})
//		...
//	}
//
// # Sessions
//
// [Open] connects a test to the emulator REST API, resolved from [WithAPIURL],
// then LEDGER_CRAWLER_API, then [DefaultAPIURL]. An unreachable default
// endpoint skips the test. [Connect] and [NewSession] build sessions outside
// tests; [NewSession] accepts any [Device].
//
// Unless disabled with [WithQuirkDetection], creating a session runs a short
// handshake through the settings menu to learn whether the emulator drops
// capital S from screen text. The result is kept on the session and applied by
// [Session.Exact] and [Session.MultiPage].
//
// # Matchers
//
// Every [Matcher] evaluates a polled screen to one of three results:
// [Pending] (poll again), [Matched] (advance), or [Fatal] (abort). Built-in
// matchers:
//
//   - [Match]: one regular expression per screen line, with optional
//     callback, [AllowExtra], and [FailIndex]
//   - [Exact]: literal lines
//   - [MultiPage]: a value split over "Title (i/N)" sub-screens
//   - [Do], [Push], [PushLeft], [PushRight], [PushBoth]: device actions
//
// Callbacks receive a [Capture] and may store data in the shared [Values]
// accumulator; returning [ErrRetry] polls again.
//
// # Running and Checking
//
// [Run] behavior:
//
//   - Defaults: 30s total timeout, 250ms poll interval
//   - Per-session overrides: [WithTimeout], [WithPollInterval]
//   - Per-call overrides: [WithinTimeout], [WithRunPollInterval]
//   - Poll intervals under 10ms are clamped to 10ms
//   - Negative timeout or poll values are rejected before anything starts
//   - If the operation finishes while interactions remain, the run fails
//   - The operation is always awaited; actions on one session never overlap
//
// [Check] evaluates interactions once against the current screen, failing on
// the first one that does not match.
//
// # Diagnostics
//
// Timeouts and premature completions report the interaction being waited on
// and the last few distinct screens, oldest to newest. Runs and checks are
// traced and counted through OpenTelemetry when a provider is registered.
//
// # Snapshots
//
// [Screen.MatchSnapshot] and [Session.MatchSnapshot] compare screen text to
// golden files under testdata. Set LEDGER_CRAWLER_UPDATE=1 to create or
// update them.
package crawler
