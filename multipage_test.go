package crawler_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxen-io/ledger-crawler"
	"github.com/oxen-io/ledger-crawler/internal/emulator"
)

const pagedMenu = `
start: p1
screens:
  p1:
    lines: ["Amount (1/3)", "12"]
    right: p2
  p2:
    lines: ["Amount (2/3)", "34"]
    right: p3
  p3:
    lines: ["Amount (3/3)", "5.6"]
    right: broken
  broken:
    lines: ["Fee (1/1)", "0.1"]
`

func pagedSession(t *testing.T, start string) (*crawler.Session, *emulator.Emulator) {
	t.Helper()
	m, err := emulator.ParseMenu([]byte(pagedMenu))
	require.NoError(t, err)
	m.Start = start
	e, err := emulator.New(m, nil)
	require.NoError(t, err)
	s, err := crawler.NewSession(context.Background(), emuDevice{e}, crawler.WithQuirkDetection(crawler.QuirksOff))
	require.NoError(t, err)
	return s, e
}

func evaluateCurrent(t *testing.T, s *crawler.Session, m crawler.Matcher) crawler.Outcome {
	t.Helper()
	scr, err := s.Screen(context.Background())
	require.NoError(t, err)
	return m.Evaluate(context.Background(), &crawler.Attempt{Session: s, Screen: scr})
}

func TestMultiPageJoinsPages(t *testing.T) {
	s, e := pagedSession(t, "p1")
	var got string
	m := crawler.MultiPage("Amount", crawler.ExpectValue("12345.6"), crawler.WithCallback(func(c *crawler.Capture) error {
		got = c.Value
		return nil
	}))

	out := evaluateCurrent(t, s, m)
	require.Equal(t, crawler.Matched, out.Result, "%v", out.Err)
	assert.Equal(t, "12345.6", got)
	assert.Equal(t, "p3", e.Current(), "left on the last page")
}

func TestMultiPageWaitsForFirstPage(t *testing.T) {
	s, e := pagedSession(t, "p2")
	m := crawler.MultiPage("Amount")

	assert.Equal(t, crawler.Pending, evaluateCurrent(t, s, m).Result)
	assert.Empty(t, e.Presses())
}

func TestMultiPageValueMismatch(t *testing.T) {
	s, _ := pagedSession(t, "p1")
	out := evaluateCurrent(t, s, crawler.MultiPage("Amount", crawler.ExpectValue("99")))

	require.Equal(t, crawler.Fatal, out.Result)
	var pe *crawler.PaginationError
	require.ErrorAs(t, out.Err, &pe)
	assert.Equal(t, "12345.6", pe.Got)
}

func TestMultiPageBrokenSequence(t *testing.T) {
	m, err := emulator.ParseMenu([]byte(pagedMenu))
	require.NoError(t, err)
	m.Screens["p2"] = emulator.ScreenDef{Lines: []string{"Amount (3/3)", "34"}, Right: "p3"}
	e, err := emulator.New(m, nil)
	require.NoError(t, err)
	s, err := crawler.NewSession(context.Background(), emuDevice{e}, crawler.WithQuirkDetection(crawler.QuirksOff))
	require.NoError(t, err)

	out := evaluateCurrent(t, s, crawler.MultiPage("Amount"))
	require.Equal(t, crawler.Fatal, out.Result)
	var pe *crawler.PaginationError
	require.ErrorAs(t, out.Err, &pe)
	assert.Equal(t, "Amount (2/3)", pe.Expected)
	assert.Equal(t, "Amount (3/3)", pe.Got)
}

func TestMultiPageCallbackErrorsAreFatal(t *testing.T) {
	s, _ := pagedSession(t, "p1")
	out := evaluateCurrent(t, s, crawler.MultiPage("Amount", crawler.WithCallback(func(*crawler.Capture) error {
		return crawler.ErrRetry
	})))
	assert.Equal(t, crawler.Fatal, out.Result)
	assert.True(t, errors.Is(out.Err, crawler.ErrRetry))
}

func TestMultiPageSinglePage(t *testing.T) {
	s, e := pagedSession(t, "broken")
	var got string
	out := evaluateCurrent(t, s, crawler.MultiPage("Fee", crawler.WithCallback(func(c *crawler.Capture) error {
		got = c.Value
		return nil
	})))
	require.Equal(t, crawler.Matched, out.Result)
	assert.Equal(t, "0.1", got)
	assert.Empty(t, e.Presses())
}

func TestMultiPageNeedsSession(t *testing.T) {
	out := crawler.MultiPage("Fee").Evaluate(context.Background(), attempt("Fee (1/1)", "0.1"))
	assert.Equal(t, crawler.Fatal, out.Result)
}

func TestMultiPageTitleIsLiteral(t *testing.T) {
	out := crawler.MultiPage("Fee.").Evaluate(context.Background(), attempt("Feex (1/1)", "0.1"))
	assert.Equal(t, crawler.Pending, out.Result)
}

func TestDoActionError(t *testing.T) {
	s, _ := newSession(t)
	boom := errors.New("no")
	m := crawler.Do("", func(context.Context, *crawler.Session) error { return boom })
	assert.Equal(t, "device action", m.String())

	out := m.Evaluate(context.Background(), &crawler.Attempt{Session: s, Screen: crawler.NewScreen()})
	assert.Equal(t, crawler.Fatal, out.Result)
	assert.ErrorIs(t, out.Err, boom)

	out = crawler.PushLeft.Evaluate(context.Background(), attempt())
	assert.Equal(t, crawler.Fatal, out.Result)
}

func TestPushString(t *testing.T) {
	assert.Equal(t, "push both", crawler.PushBoth.String())
	assert.Equal(t, "push right x3", crawler.Push(crawler.Press{Button: crawler.Right, Count: 3}).String())
}
