package crawler_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oxen-io/ledger-crawler"
	"github.com/oxen-io/ledger-crawler/internal/emulator"
)

// emuDevice drives an in-process emulator without HTTP.
type emuDevice struct {
	e *emulator.Emulator
}

func (d emuDevice) Screen(ctx context.Context) (*crawler.Screen, error) {
	return crawler.NewScreen(d.e.Screen()...), nil
}

func (d emuDevice) Press(ctx context.Context, p crawler.Press) error {
	n := p.Count
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		if err := d.e.Press(string(p.Button), string(p.Action)); err != nil {
			return err
		}
	}
	return nil
}

// brokenDevice fails every request.
type brokenDevice struct{}

var errUnplugged = errors.New("unplugged")

func (brokenDevice) Screen(ctx context.Context) (*crawler.Screen, error) {
	return nil, errUnplugged
}

func (brokenDevice) Press(ctx context.Context, p crawler.Press) error {
	return errUnplugged
}

// staticDevice always shows the same screen and counts presses.
type staticDevice struct {
	mu      sync.Mutex
	lines   []string
	presses int
}

func (d *staticDevice) Screen(ctx context.Context) (*crawler.Screen, error) {
	return crawler.NewScreen(d.lines...), nil
}

func (d *staticDevice) Press(ctx context.Context, p crawler.Press) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.presses++
	return nil
}

func newEmulator(t *testing.T, dropCapitalS bool) *emulator.Emulator {
	t.Helper()
	m := emulator.DefaultMenu()
	m.DropCapitalS = dropCapitalS
	e, err := emulator.New(m, nil)
	require.NoError(t, err)
	return e
}

// newSession returns a session on a fresh in-process emulator with quirk
// detection disabled.
func newSession(t *testing.T, opts ...crawler.Option) (*crawler.Session, *emulator.Emulator) {
	t.Helper()
	e := newEmulator(t, false)
	opts = append([]crawler.Option{crawler.WithQuirkDetection(crawler.QuirksOff)}, opts...)
	s, err := crawler.NewSession(context.Background(), emuDevice{e}, opts...)
	require.NoError(t, err)
	return s, e
}

// serve exposes e over HTTP for the lifetime of the test.
func serve(t *testing.T, e *emulator.Emulator) string {
	t.Helper()
	srv := httptest.NewServer(e.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func attempt(lines ...string) *crawler.Attempt {
	return &crawler.Attempt{Screen: crawler.NewScreen(lines...)}
}

func immediate(lines ...string) *crawler.Attempt {
	return &crawler.Attempt{Screen: crawler.NewScreen(lines...), Immediate: true}
}

var homeMatch = []string{`^OXEN wallet$`, `^(\w+)\.\.(\w+)$`}

// noop is an action that returns as soon as it starts.
func noop(ctx context.Context) (struct{}, error) {
	return struct{}{}, nil
}
