package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxen-io/ledger-crawler"
	"github.com/oxen-io/ledger-crawler/internal/emulator"
)

// execute runs the CLI against a fresh emulator and returns its output.
func execute(t *testing.T, e *emulator.Emulator, args ...string) (string, error) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	for _, k := range []string{
		"LEDGER_CRAWLER_API", "LEDGER_CRAWLER_QUIRKS", "LEDGER_CRAWLER_TIMEOUT",
		"LEDGER_CRAWLER_POLL", "LEDGER_CRAWLER_LOG_LEVEL",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_HEADERS",
	} {
		t.Setenv(k, "")
	}

	flags := []string{"--log-preset", "console-nocolor", "--log-level", "error"}
	if e != nil {
		srv := httptest.NewServer(e.Handler())
		t.Cleanup(srv.Close)
		flags = append(flags, "--api", srv.URL)
	}

	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(flags, args...))
	err := root.Execute()
	return out.String(), err
}

func newEmulator(t *testing.T, dropS bool) *emulator.Emulator {
	t.Helper()
	m := emulator.DefaultMenu()
	m.DropCapitalS = dropS
	e, err := emulator.New(m, nil)
	require.NoError(t, err)
	return e
}

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	out, err := execute(t, nil, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "ledger-crawler dev")
}

func TestScreen(t *testing.T) {
	e := newEmulator(t, false)
	out, err := execute(t, e, "screen")
	require.NoError(t, err)
	assert.Equal(t, "OXEN wallet\nT6U4..dpYQ\n", out)
	assert.Empty(t, e.Presses(), "no quirk handshake")
}

func TestScreenBoxed(t *testing.T) {
	out, err := execute(t, newEmulator(t, false), "screen", "--box")
	require.NoError(t, err)
	assert.Equal(t, "┌───────────┐\n│OXEN wallet│\n│T6U4..dpYQ │\n└───────────┘\n", out)
}

func TestPress(t *testing.T) {
	e := newEmulator(t, false)
	out, err := execute(t, e, "press", "right", "--show")
	require.NoError(t, err)
	assert.Contains(t, out, "│Settings│")
	assert.Equal(t, "settings", e.Current())
}

func TestPressRejectsBadInput(t *testing.T) {
	e := newEmulator(t, false)
	_, err := execute(t, e, "press", "middle")
	assert.ErrorContains(t, err, "unknown button")
	_, err = execute(t, e, "press", "left", "--action", "tap")
	assert.ErrorContains(t, err, "invalid press action")
	assert.Empty(t, e.Presses())
}

func TestRead(t *testing.T) {
	e := newEmulator(t, false)
	require.NoError(t, e.Goto("address_1"))
	out, err := execute(t, e, "read", "Address")
	require.NoError(t, err)
	assert.Equal(t, emulator.DefaultAddress+"\n", out)
}

func TestDetect(t *testing.T) {
	out, err := execute(t, newEmulator(t, false), "detect")
	require.NoError(t, err)
	assert.Equal(t, "drops capital S: false\n", out)

	e := newEmulator(t, true)
	out, err = execute(t, e, "detect")
	require.NoError(t, err)
	assert.Equal(t, "drops capital S: true\n", out)
	assert.Equal(t, "home", e.Current())
}

func TestCheck(t *testing.T) {
	path := writeScript(t, `
steps:
  - match: ['^OXEN wallet$', '^(\w+)\.\.(\w+)$']
    capture:
      prefix: {pattern: 1, group: 1}
      suffix: {pattern: 1, group: 2}
  - press: both
  - exact: [Regular address, (fakenet)]
`)
	out, err := execute(t, newEmulator(t, false), "check", path)
	require.NoError(t, err)
	assert.Equal(t, "prefix: T6U4\nsuffix: dpYQ\n", out)
}

func TestCheckMismatch(t *testing.T) {
	path := writeScript(t, "steps:\n  - exact: [Settings]\n")
	_, err := execute(t, newEmulator(t, false), "check", path)
	var me *crawler.MismatchError
	assert.ErrorAs(t, err, &me)
}

func TestRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	path := writeScript(t, `
steps:
  - exact: [OXEN wallet, T6U4..dpYQ]
  - press: right
  - exact: [Settings]
`)
	e := newEmulator(t, false)
	out, err := execute(t, e, "run", path, "--", "sh", "-c", "sleep 1; echo sent")
	require.NoError(t, err)
	assert.Equal(t, "sent\n", out)
	assert.Equal(t, "settings", e.Current())
}

func TestRunPremature(t *testing.T) {
	if _, err := exec.LookPath("true"); err != nil {
		t.Skip("true not available")
	}
	path := writeScript(t, "steps:\n  - exact: [Never shown]\n")
	_, err := execute(t, newEmulator(t, false), "run", path, "--", "true")
	var pe *crawler.PrematureError
	assert.ErrorAs(t, err, &pe)
}

func TestRunNeedsDash(t *testing.T) {
	path := writeScript(t, "steps:\n  - press: left\n")
	_, err := execute(t, newEmulator(t, false), "run", path, "true")
	assert.ErrorContains(t, err, "after --")
}

func TestFlagsOverrideConfig(t *testing.T) {
	_, err := execute(t, newEmulator(t, false), "--quirks", "sometimes", "screen")
	assert.ErrorContains(t, err, "sometimes")
}

func TestValuesYAML(t *testing.T) {
	v := crawler.NewValues()
	out, err := valuesYAML(v)
	require.NoError(t, err)
	assert.Empty(t, out)

	v.Set("fee", "0.1")
	v.Append("outputs", "1")
	v.Append("outputs", "2")
	v.Set("amount", "007")
	out, err = valuesYAML(v)
	require.NoError(t, err)
	assert.Equal(t, "amount: \"007\"\nfee: \"0.1\"\noutputs:\n    - \"1\"\n    - \"2\"\n", string(out))
}
