package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// QuirkMode selects how a Session decides which device quirks to work around.
type QuirkMode string

const (
	// QuirksAuto runs the detection handshake when the session is created.
	QuirksAuto QuirkMode = "auto"
	// QuirksOn assumes the quirky device without probing it.
	QuirksOn QuirkMode = "on"
	// QuirksOff assumes a well-behaved device without probing it.
	QuirksOff QuirkMode = "off"
)

// ParseQuirkMode converts a mode name into a QuirkMode. The empty string
// means QuirksAuto.
func ParseQuirkMode(s string) (QuirkMode, error) {
	switch m := QuirkMode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return QuirksAuto, nil
	case QuirksAuto, QuirksOn, QuirksOff:
		return m, nil
	default:
		return "", fmt.Errorf("unknown quirk mode %q (want auto, on, or off)", s)
	}
}

// Quirks describes known rendering defects of the device under test.
//
// Some emulated Nano X screens silently drop every capital "S"
// (Speculos issue #204). With DropsCapitalS set, exact matchers accept the
// letter as optional and expected values are compared with it removed.
type Quirks struct {
	DropsCapitalS bool
}

// Active reports whether any workaround applies.
func (q Quirks) Active() bool {
	return q.DropsCapitalS
}

// Normalize rewrites an expected value the way the quirky device would
// display it. It returns s unchanged when no workaround applies.
func (q Quirks) Normalize(s string) string {
	if !q.DropsCapitalS {
		return s
	}
	return strings.ReplaceAll(s, "S", "")
}

// NormalizeAll applies Normalize to every element, returning a new slice.
func (q Quirks) NormalizeAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = q.Normalize(v)
	}
	return out
}

// SameValue reports whether an observed value equals the expected one,
// tolerating the quirk on both sides.
func (q Quirks) SameValue(expected, observed string) bool {
	if expected == observed {
		return true
	}
	return q.Active() && q.Normalize(expected) == q.Normalize(observed)
}

// relaxPattern makes every capital S in a pattern optional.
func (q Quirks) relaxPattern(pattern string) string {
	if !q.DropsCapitalS {
		return pattern
	}
	return strings.ReplaceAll(pattern, "S", "S?")
}

var selectNetworkRe = regexp.MustCompile(`^(S?)elect Network$`)

// DetectQuirks probes the device for the capital-S rendering defect. The
// device must be showing its main screen, whose first line is homeTitle.
// It opens the settings menu, looks at how the "Select Network" entry
// renders, and navigates back.
func DetectQuirks(ctx context.Context, dev Device, homeTitle string) (Quirks, error) {
	scr, err := dev.Screen(ctx)
	if err != nil {
		return Quirks{}, wrapDeviceError("screen", err)
	}
	if scr.Len() == 0 || scr.Line(0) != homeTitle {
		return Quirks{}, fmt.Errorf("crawler: detect quirks: device is not on the main screen: got %#v, want first line %q", scr, homeTitle)
	}

	for _, p := range []Press{{Button: Right}, {Button: Both}, {Button: Right, Count: 4}} {
		if err := dev.Press(ctx, p); err != nil {
			return Quirks{}, wrapDeviceError("press", err)
		}
	}

	scr, err = dev.Screen(ctx)
	if err != nil {
		return Quirks{}, wrapDeviceError("screen", err)
	}
	for _, line := range scr.lines {
		m := selectNetworkRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q := Quirks{DropsCapitalS: m[1] == ""}
		for _, p := range []Press{{Button: Right, Count: 3}, {Button: Both}} {
			if err := dev.Press(ctx, p); err != nil {
				return q, wrapDeviceError("press", err)
			}
		}
		return q, nil
	}
	return Quirks{}, fmt.Errorf("crawler: detect quirks: did not find S?elect Network on %#v; perhaps the device was not on the main screen?", scr)
}
