package crawler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/oxen-io/ledger-crawler/internal/speculos"
)

// DefaultAPIURL is the Speculos REST endpoint used when nothing else is
// configured.
const DefaultAPIURL = "http://127.0.0.1:5000"

// Device is the screen reader and button driver behind a Session.
// Implementations report unreachable devices as errors from either method.
type Device interface {
	// Screen returns the current display frame.
	Screen(ctx context.Context) (*Screen, error)
	// Press performs p.Count pushes, sleeping p.Sleep after each one.
	Press(ctx context.Context, p Press) error
}

// httpDevice drives a Speculos emulator over its REST API.
type httpDevice struct {
	client *speculos.Client
}

// NewHTTPDevice returns a Device for the emulator REST API at apiURL.
// A nil httpClient uses a default client with a 10 second timeout.
func NewHTTPDevice(apiURL string, httpClient *http.Client) (Device, error) {
	c, err := speculos.New(apiURL, httpClient)
	if err != nil {
		return nil, err
	}
	return &httpDevice{client: c}, nil
}

func (d *httpDevice) Screen(ctx context.Context) (*Screen, error) {
	lines, err := d.client.CurrentScreen(ctx)
	if err != nil {
		return nil, &DeviceError{Op: "screen", Err: err}
	}
	return NewScreen(lines...), nil
}

func (d *httpDevice) Press(ctx context.Context, p Press) error {
	p = p.normalized()
	for i := 0; i < p.Count; i++ {
		if err := d.client.Push(ctx, string(p.Button), string(p.Action), p.Delay); err != nil {
			return &DeviceError{Op: "press " + string(p.Button), Err: err}
		}
		if p.Sleep > 0 {
			if err := sleepContext(ctx, p.Sleep); err != nil {
				return err
			}
		}
	}
	return nil
}

// resolveAPIURL determines the emulator URL by checking, in order:
// 1. WithAPIURL option
// 2. LEDGER_CRAWLER_API environment variable
// 3. DefaultAPIURL
//
// Returns the resolved URL and whether it was explicitly configured.
func resolveAPIURL(configured string) (apiURL string, explicit bool) {
	if configured != "" {
		return configured, true
	}
	if env := os.Getenv("LEDGER_CRAWLER_API"); env != "" {
		return env, true
	}
	return DefaultAPIURL, false
}

// checkReachable verifies the emulator answers. An unreachable default
// endpoint skips the test; an unreachable explicit one fails it.
func checkReachable(t testing.TB, apiURL string, explicit bool) {
	t.Helper()

	c, err := speculos.New(apiURL, &http.Client{Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("crawler: open: %v", err)
	}
	err = c.WaitReady(context.Background(), time.Second)
	if err == nil {
		return
	}
	if explicit {
		t.Fatalf("crawler: open: %v", err)
	}
	t.Skipf("crawler: open: no emulator at %s: %v", apiURL, err)
}

// wrapDeviceError makes sure errors coming out of a caller-supplied Device
// are reported as *DeviceError.
func wrapDeviceError(op string, err error) error {
	if err == nil {
		return nil
	}
	var de *DeviceError
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &DeviceError{Op: op, Err: err}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
