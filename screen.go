package crawler

import (
	"fmt"
	"strings"
)

// Screen is an immutable capture of the text lines shown on the device
// display, in the order the emulator reports them.
type Screen struct {
	lines []string
}

// NewScreen creates a Screen from the given lines. The slice is copied.
func NewScreen(lines ...string) *Screen {
	cp := make([]string, len(lines))
	copy(cp, lines)
	return &Screen{lines: cp}
}

// Lines returns a copy of the screen lines; callers may modify it without
// affecting the Screen.
func (s *Screen) Lines() []string {
	cp := make([]string, len(s.lines))
	copy(cp, s.lines)
	return cp
}

// Line returns a single line (0-indexed).
// Panics if n is out of range.
func (s *Screen) Line(n int) string {
	return s.lines[n]
}

// Len returns the number of lines on the screen.
func (s *Screen) Len() int {
	return len(s.lines)
}

// String joins the lines with newlines.
func (s *Screen) String() string {
	return strings.Join(s.lines, "\n")
}

// Contains reports whether any line contains the substring.
func (s *Screen) Contains(substr string) bool {
	for _, l := range s.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// Equal reports whether both screens show the same lines.
func (s *Screen) Equal(other *Screen) bool {
	if s == nil || other == nil {
		return s == other
	}
	if len(s.lines) != len(other.lines) {
		return false
	}
	for i := range s.lines {
		if s.lines[i] != other.lines[i] {
			return false
		}
	}
	return true
}

// GoString renders the screen as a quoted line list, the form used in
// mismatch messages.
func (s *Screen) GoString() string {
	if s == nil {
		return "[]"
	}
	return fmt.Sprintf("%q", s.lines)
}

// Box draws the screen inside a frame, the way the device display looks.
// An empty screen gets a 16 column frame.
func (s *Screen) Box() string {
	if s == nil {
		return "(no screen captured)"
	}

	width := 0
	for _, l := range s.lines {
		width = max(width, len([]rune(l)))
	}
	if width == 0 {
		width = 16
	}

	var b strings.Builder
	border := strings.Repeat("\u2500", width)

	fmt.Fprintf(&b, "\u250c%s\u2510\n", border)
	for _, line := range s.lines {
		pad := width - len([]rune(line))
		fmt.Fprintf(&b, "\u2502%s%s\u2502\n", line, strings.Repeat(" ", pad))
	}
	fmt.Fprintf(&b, "\u2514%s\u2518", border)

	return b.String()
}

// formatScreenBox indents the framed screen for error messages.
func formatScreenBox(scr *Screen) string {
	return "    " + strings.ReplaceAll(scr.Box(), "\n", "\n    ")
}

func formatRecentScreens(screens []*Screen) string {
	if len(screens) == 0 {
		return "    (no screen captured)"
	}

	var b strings.Builder
	for i, scr := range screens {
		fmt.Fprintf(&b, "    capture %d/%d:\n%s", i+1, len(screens), formatScreenBox(scr))
		if i < len(screens)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// recentScreens keeps the last few distinct polled screens for diagnostics.
type recentScreens struct {
	max     int
	screens []*Screen
}

func (r *recentScreens) add(scr *Screen) {
	if scr == nil {
		return
	}
	if n := len(r.screens); n > 0 && r.screens[n-1].Equal(scr) {
		return
	}
	r.screens = append(r.screens, scr)
	if len(r.screens) > r.max {
		r.screens = r.screens[len(r.screens)-r.max:]
	}
}

func (r *recentScreens) list() []*Screen {
	cp := make([]*Screen, len(r.screens))
	copy(cp, r.screens)
	return cp
}
