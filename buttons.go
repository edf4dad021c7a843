package crawler

import (
	"fmt"
	"time"
)

// Button identifies one of the device's physical buttons.
type Button string

// The device has two buttons; Both pushes them together, which usually
// selects or confirms the current screen.
const (
	Left  Button = "left"
	Right Button = "right"
	Both  Button = "both"
)

// PressAction is the button action sent to the emulator.
type PressAction string

const (
	PressAndRelease PressAction = "press-and-release"
	PressOnly       PressAction = "press"
	ReleaseOnly     PressAction = "release"
)

// ParseButton converts a button name into a Button.
func ParseButton(name string) (Button, error) {
	switch b := Button(name); b {
	case Left, Right, Both:
		return b, nil
	default:
		return "", fmt.Errorf("unknown button %q (want left, right, or both)", name)
	}
}

// Press describes a (possibly repeated) button push.
type Press struct {
	Button Button
	// Count is the number of pushes; values below 1 are treated as 1.
	Count int
	// Action defaults to PressAndRelease.
	Action PressAction
	// Delay is forwarded to the emulator as the press duration.
	Delay time.Duration
	// Sleep is waited after each push so the device can register it.
	Sleep time.Duration
}

func (p Press) String() string {
	if p.Count > 1 {
		return fmt.Sprintf("push %s x%d", p.Button, p.Count)
	}
	return "push " + string(p.Button)
}

func (p Press) normalized() Press {
	if p.Count < 1 {
		p.Count = 1
	}
	if p.Action == "" {
		p.Action = PressAndRelease
	}
	return p
}
