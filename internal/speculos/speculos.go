// Package speculos speaks the REST API exposed by the Speculos device
// emulator: screen text events and button pushes. It is internal to the
// crawler package.
package speculos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Button names accepted by the /button endpoint.
const (
	Left  = "left"
	Right = "right"
	Both  = "both"
)

// PressAndRelease is the default button action.
const PressAndRelease = "press-and-release"

// Event is a single text event reported by the emulator.
type Event struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type eventsResponse struct {
	Events []Event `json:"events"`
}

// ButtonRequest is the JSON body of a button push.
type ButtonRequest struct {
	Action string  `json:"action"`
	Delay  float64 `json:"delay,omitempty"`
}

// Client issues requests against a single emulator base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New creates a Client bound to the given base URL. A nil httpClient uses a
// client with a 10 second timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid api url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid api url %q: scheme must be http or https", baseURL)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: u, http: httpClient}, nil
}

// BaseURL returns the emulator base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// CurrentScreen returns the text of the events on the current screen, in
// display order.
func (c *Client) CurrentScreen(ctx context.Context) ([]string, error) {
	events, err := c.events(ctx, "events", "/events?currentscreenonly=true")
	if err != nil {
		return nil, err
	}
	lines := make([]string, len(events))
	for i, e := range events {
		lines[i] = e.Text
	}
	return lines, nil
}

// Events returns the full event history recorded by the emulator.
func (c *Client) Events(ctx context.Context) ([]Event, error) {
	return c.events(ctx, "events", "/events")
}

// ResetEvents clears the emulator's event history.
func (c *Client) ResetEvents(ctx context.Context) error {
	_, err := c.do(ctx, "reset-events", http.MethodDelete, "/events", nil)
	return err
}

// Push sends a single button action. A zero delay is omitted from the request.
func (c *Client) Push(ctx context.Context, button, action string, delay time.Duration) error {
	switch button {
	case Left, Right, Both:
	default:
		return &Error{Op: "button", URL: "/button/" + button, Err: fmt.Errorf("unknown button %q", button)}
	}
	if action == "" {
		action = PressAndRelease
	}
	body, err := json.Marshal(ButtonRequest{Action: action, Delay: delay.Seconds()})
	if err != nil {
		return &Error{Op: "button", URL: "/button/" + button, Err: err}
	}
	_, err = c.do(ctx, "button", http.MethodPost, "/button/"+button, body)
	return err
}

func (c *Client) events(ctx context.Context, op, path string) ([]Event, error) {
	data, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var resp eventsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &Error{Op: op, URL: c.resolve(path), Err: fmt.Errorf("decoding response: %w", err)}
	}
	return resp.Events, nil
}

// do performs one request and returns the response body. Non-2xx statuses
// are reported as *Error carrying the status and a trimmed body excerpt.
func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	full := c.resolve(path)

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, full, rd)
	if err != nil {
		return nil, &Error{Op: op, URL: full, Err: err}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{Op: op, URL: full, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Op: op, URL: full, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{
			Op:     op,
			URL:    full,
			Status: resp.StatusCode,
			Body:   excerpt(data),
			Err:    fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	return data, nil
}

func (c *Client) resolve(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return c.baseURL.String() + path
	}
	return c.baseURL.ResolveReference(ref).String()
}

func excerpt(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}

// Error represents a failed emulator request.
type Error struct {
	Op     string
	URL    string
	Status int
	Body   string
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("speculos %s %s failed: %v", e.Op, e.URL, e.Err)
	if e.Body != "" {
		msg += "\nbody: " + e.Body
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// WaitReady polls the current screen until the emulator answers or the
// timeout expires.
func (c *Client) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		_, err := c.CurrentScreen(ctx)
		if err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("speculos api not ready after %v: %w", timeout, err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}
