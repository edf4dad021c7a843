package crawler

import (
	"context"
	"fmt"
	"testing"

	"go.uber.org/zap"

	"github.com/oxen-io/ledger-crawler/internal/telemetry"
)

// Session is a handle to one device under test. It carries the quirk
// workarounds detected for the device and serializes the actions started by
// Run, since the device UI is a single shared resource.
type Session struct {
	dev     Device
	opts    options
	logger  *zap.Logger
	quirks  Quirks
	slot    chan struct{}
	metrics *telemetry.Metrics
}

// Connect creates a Session for the emulator REST API at apiURL. Unless
// disabled with WithQuirkDetection, it runs the quirk handshake, which
// requires the device to be on its main screen.
func Connect(ctx context.Context, apiURL string, userOpts ...Option) (*Session, error) {
	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}
	dev, err := NewHTTPDevice(apiURL, opts.httpClient)
	if err != nil {
		return nil, fmt.Errorf("crawler: connect: %w", err)
	}
	opts.apiURL = apiURL
	return newSession(ctx, dev, opts)
}

// NewSession creates a Session around any Device.
func NewSession(ctx context.Context, dev Device, userOpts ...Option) (*Session, error) {
	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}
	return newSession(ctx, dev, opts)
}

func newSession(ctx context.Context, dev Device, opts options) (*Session, error) {
	if opts.timeout < 0 {
		return nil, fmt.Errorf("crawler: negative timeout: %v", opts.timeout)
	}
	if opts.pollInterval < 0 {
		return nil, fmt.Errorf("crawler: negative poll interval: %v", opts.pollInterval)
	}
	if opts.timeout == 0 {
		opts.timeout = defaultTimeout
	}
	if opts.pollInterval == 0 {
		opts.pollInterval = defaultPollInterval
	}
	opts.pollInterval = max(opts.pollInterval, minPollInterval)

	logger := opts.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		logger.Warn("Failed to create metric instruments", zap.Error(err))
		metrics = nil
	}

	s := &Session{
		dev:     dev,
		opts:    opts,
		logger:  logger,
		slot:    make(chan struct{}, 1),
		metrics: metrics,
	}

	switch opts.quirkMode {
	case QuirksOn:
		s.quirks = Quirks{DropsCapitalS: true}
	case QuirksOff:
	case QuirksAuto, "":
		q, err := DetectQuirks(ctx, dev, opts.homeTitle)
		if err != nil {
			return nil, err
		}
		s.quirks = q
	default:
		return nil, fmt.Errorf("crawler: unknown quirk mode %q", opts.quirkMode)
	}

	if opts.apiURL != "" {
		logger.Debug("Connected to device", zap.String("api", opts.apiURL))
	}
	if s.quirks.DropsCapitalS {
		logger.Warn("Detected emulator dropping capital S on screen (speculos issue #204); applying workarounds",
			zap.String("mode", string(opts.quirkMode)))
	}
	return s, nil
}

// Open connects to the emulator for a test. The endpoint comes from
// WithAPIURL, then LEDGER_CRAWLER_API, then DefaultAPIURL. When nothing was
// configured and the default endpoint does not answer, the test is skipped.
func Open(t testing.TB, userOpts ...Option) *Session {
	t.Helper()

	opts := defaultOptions()
	for _, o := range userOpts {
		o(&opts)
	}

	apiURL, explicit := resolveAPIURL(opts.apiURL)
	checkReachable(t, apiURL, explicit)

	s, err := Connect(context.Background(), apiURL, userOpts...)
	if err != nil {
		t.Fatalf("crawler: open: %v", err)
	}
	return s
}

// Quirks returns the device quirk workarounds in effect for the session.
func (s *Session) Quirks() Quirks {
	return s.quirks
}

// Logger returns the session logger.
func (s *Session) Logger() *zap.Logger {
	return s.logger
}

// Device returns the underlying device.
func (s *Session) Device() Device {
	return s.dev
}

// Screen captures the current device screen.
func (s *Session) Screen(ctx context.Context) (*Screen, error) {
	scr, err := s.dev.Screen(ctx)
	if err != nil {
		return nil, wrapDeviceError("screen", err)
	}
	return scr, nil
}

// Press performs a button press.
func (s *Session) Press(ctx context.Context, p Press) error {
	p = p.normalized()
	if err := s.dev.Press(ctx, p); err != nil {
		return wrapDeviceError("press "+string(p.Button), err)
	}
	return nil
}

// Left pushes the left button once.
func (s *Session) Left(ctx context.Context) error {
	return s.Press(ctx, Press{Button: Left})
}

// Right pushes the right button once.
func (s *Session) Right(ctx context.Context) error {
	return s.Press(ctx, Press{Button: Right})
}

// Both pushes both buttons together once.
func (s *Session) Both(ctx context.Context) error {
	return s.Press(ctx, Press{Button: Both})
}

// Exact is like the package-level Exact, with the session's quirk
// workarounds applied.
func (s *Session) Exact(lines []string, opts ...MatchOption) *ExactMatcher {
	return Exact(lines, append([]MatchOption{WithQuirks(s.quirks)}, opts...)...)
}

// MultiPage is like the package-level MultiPage, with the session's quirk
// workarounds applied.
func (s *Session) MultiPage(title string, opts ...MatchOption) *MultiPageMatcher {
	return MultiPage(title, append([]MatchOption{WithQuirks(s.quirks)}, opts...)...)
}
