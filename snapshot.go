package crawler

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// MatchSnapshot captures the current device screen and compares it against
// a golden file. See Screen.MatchSnapshot.
//
// Golden files hold the text a correct device displays. On a session that
// works around dropped capital S, the golden text is compared the way the
// device renders it, and updating is refused since the device cannot show
// the true text.
func (s *Session) MatchSnapshot(t testing.TB, name string) {
	t.Helper()
	scr, err := s.Screen(context.Background())
	if err != nil {
		t.Fatalf("crawler: snapshot: %v", err)
	}
	matchSnapshot(t, name, scr, s.quirks)
}

// MatchSnapshot compares the screen against a golden file stored in
// testdata/<sanitized-test-name>-<hash>/<sanitized-name>.txt, one display
// line per file line.
//
// Set LEDGER_CRAWLER_UPDATE=1 to create or update golden files.
func (s *Screen) MatchSnapshot(t testing.TB, name string) {
	t.Helper()
	matchSnapshot(t, name, s, Quirks{})
}

func matchSnapshot(t testing.TB, name string, scr *Screen, q Quirks) {
	t.Helper()

	dir := snapshotDir(t)
	path := filepath.Join(dir, sanitizeName(name)+".txt")
	content := normalizeForSnapshot(scr.String())

	if shouldUpdate() {
		if q.Active() {
			t.Fatalf("crawler: snapshot: refusing to record %s from a device that drops capital S", path)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("crawler: snapshot: failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("crawler: snapshot: failed to write golden file: %v", err)
		}
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Fatalf("crawler: snapshot: golden file not found: %s\nRun with LEDGER_CRAWLER_UPDATE=1 to create it.\n\nDevice screen:\n%s", path, scr.Box())
		}
		t.Fatalf("crawler: snapshot: failed to read golden file: %v", err)
	}

	want := goldenScreen(data, q)
	if got := goldenScreen([]byte(content), Quirks{}); !want.Equal(got) {
		t.Fatalf("crawler: snapshot: mismatch for %q\nGolden file: %s\nRun with LEDGER_CRAWLER_UPDATE=1 to update.\n\nexpected:\n%s\ndevice:\n%s",
			name, path, want.Box(), scr.Box())
	}
}

// goldenScreen reads golden file contents as the screen a device with
// quirks q would show.
func goldenScreen(data []byte, q Quirks) *Screen {
	content := strings.TrimSuffix(normalizeForSnapshot(string(data)), "\n")
	return NewScreen(q.NormalizeAll(strings.Split(content, "\n"))...)
}

// snapshotDir returns testdata/<sanitized-test-name>-<hash>/, where the hash
// keeps names that sanitize alike apart.
func snapshotDir(t testing.TB) string {
	t.Helper()

	fullName := t.Name()
	h := sha256.Sum256([]byte(fullName))
	return filepath.Join("testdata", sanitizeName(fullName)+"-"+hex.EncodeToString(h[:4]))
}

// normalizeForSnapshot trims trailing spaces and blank lines, and ends the
// content with a single newline.
func normalizeForSnapshot(raw string) string {
	lines := strings.Split(raw, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " ")
	}
	for len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n") + "\n"
}

// sanitizeName maps a test or snapshot name to a safe file name.
func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if len(s) > 60 {
		s = s[:60]
	}
	return s
}

func shouldUpdate() bool {
	switch os.Getenv("LEDGER_CRAWLER_UPDATE") {
	case "1", "true", "yes":
		return true
	}
	return false
}
