package crawler

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

type options struct {
	apiURL       string
	httpClient   *http.Client
	logger       *zap.Logger
	timeout      time.Duration
	pollInterval time.Duration
	quirkMode    QuirkMode
	homeTitle    string
}

// Option configures a Session created by Connect, NewSession, or Open.
type Option func(*options)

// WithAPIURL sets the emulator REST endpoint used by Open. The
// LEDGER_CRAWLER_API environment variable is used as a fallback before
// DefaultAPIURL.
func WithAPIURL(url string) Option {
	return func(o *options) {
		o.apiURL = url
	}
}

// WithHTTPClient sets the HTTP client used to talk to the emulator.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

// WithLogger sets the logger. Interaction progress is logged at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithTimeout sets the default total timeout for Run. Zero keeps the
// 30 second default.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithPollInterval sets the default screen polling interval for Run. Zero
// keeps the 250ms default; intervals under 10ms are raised to 10ms.
func WithPollInterval(d time.Duration) Option {
	return func(o *options) {
		o.pollInterval = d
	}
}

// WithQuirkDetection controls the device quirk handshake performed when the
// session is created. The default is QuirksAuto.
func WithQuirkDetection(mode QuirkMode) Option {
	return func(o *options) {
		o.quirkMode = mode
	}
}

// WithHomeTitle sets the first line of the device's main screen, which the
// quirk handshake requires before it starts navigating.
func WithHomeTitle(title string) Option {
	return func(o *options) {
		o.homeTitle = title
	}
}

// RunOption configures a single Run or Check call.
type RunOption func(*runOptions)

type runOptions struct {
	timeout      time.Duration
	pollInterval time.Duration
	values       *Values
}

// WithinTimeout overrides the total timeout for a single Run.
// A value of 0 means "use defaults". Negative values are rejected.
func WithinTimeout(d time.Duration) RunOption {
	return func(o *runOptions) {
		o.timeout = d
	}
}

// WithRunPollInterval overrides the polling interval for a single Run.
// A value of 0 means "use defaults". Negative values are rejected.
// Positive values under 10ms are clamped to 10ms.
func WithRunPollInterval(d time.Duration) RunOption {
	return func(o *runOptions) {
		o.pollInterval = d
	}
}

// WithValues supplies the accumulator handed to callbacks, so the caller can
// read captured values after the call returns.
func WithValues(v *Values) RunOption {
	return func(o *runOptions) {
		o.values = v
	}
}

// MatchOption configures a matcher built by Match, Exact, or MultiPage.
type MatchOption func(*matchOptions)

type matchOptions struct {
	callback   Callback
	allowExtra bool
	failIndex  int
	expect     *string
	quirks     Quirks
}

// WithCallback runs cb once the patterns match (or, for MultiPage, once the
// value has been read).
func WithCallback(cb Callback) MatchOption {
	return func(o *matchOptions) {
		o.callback = cb
	}
}

// AllowExtra lets the screen carry more lines than there are patterns; only
// the leading lines are checked. Screens with fewer lines never match.
func AllowExtra() MatchOption {
	return func(o *matchOptions) {
		o.allowExtra = true
	}
}

// FailIndex makes a mismatch at pattern index i or later fatal once the
// patterns before i have matched. Values below 1 keep the default (the
// pattern count, meaning no pattern is fatal).
func FailIndex(i int) MatchOption {
	return func(o *matchOptions) {
		o.failIndex = i
	}
}

// ExpectValue makes MultiPage compare the reconstructed value against v.
func ExpectValue(v string) MatchOption {
	return func(o *matchOptions) {
		o.expect = &v
	}
}

// WithQuirks applies the session's device quirk workarounds to the matcher.
func WithQuirks(q Quirks) MatchOption {
	return func(o *matchOptions) {
		o.quirks = q
	}
}

const (
	defaultTimeout      = 30 * time.Second
	defaultPollInterval = 250 * time.Millisecond
	minPollInterval     = 10 * time.Millisecond
	defaultHomeTitle    = "OXEN wallet"
	recentScreenHistory = 3
)

func defaultOptions() options {
	return options{
		timeout:      defaultTimeout,
		pollInterval: defaultPollInterval,
		quirkMode:    QuirksAuto,
		homeTitle:    defaultHomeTitle,
	}
}
