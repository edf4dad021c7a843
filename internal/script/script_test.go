package script

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxen-io/ledger-crawler"
	"github.com/oxen-io/ledger-crawler/internal/emulator"
)

const addressScript = `
name: show address
steps:
  - match: ['^OXEN wallet$', '^(\w+)\.\.(\w+)$']
    capture:
      prefix: {pattern: 1, group: 1}
      suffix: {pattern: 1, group: 2}
  - press: both
  - exact: [Regular address, (fakenet)]
  - press: right
  - multi: Address
    store: address
  - press: right
  - exact: [Back]
  - press: both
`

func emulatorSession(t *testing.T, dropCapitalS bool) (*crawler.Session, *emulator.Emulator) {
	t.Helper()
	m := emulator.DefaultMenu()
	m.DropCapitalS = dropCapitalS
	e, err := emulator.New(m, nil)
	require.NoError(t, err)

	srv := newServer(t, e)
	s, err := crawler.Connect(context.Background(), srv)
	require.NoError(t, err)
	return s, e
}

func TestParse(t *testing.T) {
	s, err := Parse([]byte(addressScript))
	require.NoError(t, err)
	assert.Equal(t, "show address", s.Name)
	require.Len(t, s.Steps, 8)
	assert.Equal(t, Group{Pattern: 1, Group: 2}, s.Steps[0].Capture["suffix"])
	assert.Equal(t, "Address", s.Steps[4].Multi)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no steps", "name: x\n", "no steps"},
		{"empty step", "steps:\n  - count: 2\n", "step 1: no exact"},
		{"two kinds", "steps:\n  - press: left\n    multi: Address\n", "more than one"},
		{"bad button", "steps:\n  - exact: [A]\n  - press: middle\n", "step 2: unknown button"},
		{"bad pattern", "steps:\n  - match: ['(']\n", "invalid pattern"},
		{"bad capture pattern", "steps:\n  - match: ['^(a)$']\n    capture:\n      x: {pattern: 1, group: 1}\n", "no pattern 1"},
		{"bad capture group", "steps:\n  - match: ['^(a)$']\n    capture:\n      x: {pattern: 0, group: 2}\n", "has no group 2"},
		{"bad sleep", "steps:\n  - press: left\n    sleep: soon\n", "invalid sleep"},
		{"negative count", "steps:\n  - press: left\n    count: -1\n", "negative count"},
		{"bad yaml", "steps: [", "parsing script"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadNamesScriptAfterFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "home.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - exact: [OXEN wallet, T6U4..dpYQ]\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, s.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "reading script")
}

func TestCheckAgainstEmulator(t *testing.T) {
	for _, drop := range []bool{false, true} {
		s, e := emulatorSession(t, drop)
		script, err := Parse([]byte(addressScript))
		require.NoError(t, err)

		values := crawler.NewValues()
		require.NoError(t, script.Check(context.Background(), s, crawler.WithValues(values)))

		prefix, _ := values.Get("prefix")
		suffix, _ := values.Get("suffix")
		addr, _ := values.Get("address")
		assert.Equal(t, "T6U4", prefix)
		assert.Equal(t, "dpYQ", suffix)
		assert.Equal(t, s.Quirks().Normalize(emulator.DefaultAddress), addr)
		assert.Equal(t, "home", e.Current())
	}
}

func TestMultiExpectedValue(t *testing.T) {
	s, e := emulatorSession(t, false)
	require.NoError(t, e.Goto("address_1"))

	script, err := Parse([]byte("steps:\n  - multi: Address\n    value: T6U4\n"))
	require.NoError(t, err)
	err = script.Check(context.Background(), s)
	var pe *crawler.PaginationError
	assert.ErrorAs(t, err, &pe)
}

func TestMatchOptionsCompiled(t *testing.T) {
	script, err := Parse([]byte("steps:\n  - match: ['^Confirm$', '^Amount$']\n    fail_index: 1\n    allow_extra: true\n  - press: right\n    count: 3\n"))
	require.NoError(t, err)

	s, err := crawler.NewSession(context.Background(), nil, crawler.WithQuirkDetection(crawler.QuirksOff))
	require.NoError(t, err)
	ms := script.Matchers(s)
	require.Len(t, ms, 2)

	ctx := context.Background()
	m := ms[0]
	assert.Equal(t, crawler.Matched, m.Evaluate(ctx, &crawler.Attempt{Screen: crawler.NewScreen("Confirm", "Amount", "1.0")}).Result)
	assert.Equal(t, crawler.Fatal, m.Evaluate(ctx, &crawler.Attempt{Screen: crawler.NewScreen("Confirm", "Fee")}).Result)
	assert.Equal(t, "push right x3", ms[1].String())
}
