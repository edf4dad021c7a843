// Package emulator is a small stand-in for the Speculos device emulator. It
// walks a menu graph described in YAML in response to button presses and
// serves the same REST API as Speculos, so the crawler can be developed and
// tested without a real device build.
package emulator

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/oxen-io/ledger-crawler/internal/speculos"
)

//go:embed default.yaml
var defaultMenu []byte

// DefaultAddress is the wallet address shown by the default menu.
const DefaultAddress = "T6U4fT5ksSBpQKBQ8bYVVeERXPeEdD5UNP9mJRgPhA6ABbmMGaHkL6kbrKUPj1yZ3qMNvXgEcBCJ6aAPuR2NtfxV9TqidpYQ"

// Menu is a graph of screens connected by button transitions.
type Menu struct {
	// Start names the screen shown at power-on.
	Start string `yaml:"start"`
	// DropCapitalS reproduces the Nano X rendering defect where every
	// capital S is missing from the reported screen text.
	DropCapitalS bool                 `yaml:"drop_capital_s"`
	Screens      map[string]ScreenDef `yaml:"screens"`
}

// ScreenDef is one screen of a Menu. An empty transition leaves the screen
// unchanged.
type ScreenDef struct {
	Lines []string `yaml:"lines"`
	Left  string   `yaml:"left,omitempty"`
	Right string   `yaml:"right,omitempty"`
	Both  string   `yaml:"both,omitempty"`
}

func (d ScreenDef) next(button string) string {
	switch button {
	case speculos.Left:
		return d.Left
	case speculos.Right:
		return d.Right
	case speculos.Both:
		return d.Both
	}
	return ""
}

// ParseMenu decodes and validates a YAML menu.
func ParseMenu(data []byte) (*Menu, error) {
	var m Menu
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing menu: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// LoadMenu reads a YAML menu from path.
func LoadMenu(path string) (*Menu, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading menu: %w", err)
	}
	m, err := ParseMenu(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// DefaultMenu returns a fresh copy of the built-in Oxen wallet menu.
func DefaultMenu() *Menu {
	m, err := ParseMenu(defaultMenu)
	if err != nil {
		panic("emulator: invalid built-in menu: " + err.Error())
	}
	return m
}

// Validate checks that the start screen and every transition target exist.
func (m *Menu) Validate() error {
	if len(m.Screens) == 0 {
		return fmt.Errorf("menu has no screens")
	}
	if _, ok := m.Screens[m.Start]; !ok {
		return fmt.Errorf("start screen %q not defined", m.Start)
	}
	for name, def := range m.Screens {
		for _, target := range []string{def.Left, def.Right, def.Both} {
			if target == "" {
				continue
			}
			if _, ok := m.Screens[target]; !ok {
				return fmt.Errorf("screen %q: transition to undefined screen %q", name, target)
			}
		}
	}
	return nil
}

// Emulator is a running device. It is safe for concurrent use.
type Emulator struct {
	mu      sync.Mutex
	menu    *Menu
	logger  *zap.Logger
	current string
	overlay []string
	held    map[string]bool
	history []speculos.Event
	presses []string
}

// New starts an emulator on the menu's start screen. A nil logger disables
// logging.
func New(menu *Menu, logger *zap.Logger) (*Emulator, error) {
	if menu == nil {
		menu = DefaultMenu()
	} else if err := menu.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Emulator{
		menu:    menu,
		logger:  logger,
		current: menu.Start,
		held:    make(map[string]bool),
	}
	e.record()
	return e, nil
}

// Screen returns the text currently displayed.
func (e *Emulator) Screen() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.displayed()
}

// Current returns the name of the current menu screen.
func (e *Emulator) Current() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Goto jumps to the named screen and clears any overlay.
func (e *Emulator) Goto(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.menu.Screens[name]; !ok {
		return fmt.Errorf("unknown screen %q", name)
	}
	e.current = name
	e.overlay = nil
	e.record()
	return nil
}

// Show displays lines on top of the current menu screen, the way a
// transaction prompt interrupts the menu. The next button press dismisses
// the overlay without moving through the menu.
func (e *Emulator) Show(lines ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.overlay = append([]string{}, lines...)
	e.record()
}

// Press applies a button action. A press-and-release, or a release of a
// held button, triggers the screen's transition for that button.
func (e *Emulator) Press(button, action string) error {
	switch button {
	case speculos.Left, speculos.Right, speculos.Both:
	default:
		return fmt.Errorf("unknown button %q", button)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch action {
	case "", speculos.PressAndRelease:
	case "press":
		e.held[button] = true
		return nil
	case "release":
		if !e.held[button] {
			return nil
		}
		delete(e.held, button)
	default:
		return fmt.Errorf("unknown button action %q", action)
	}

	e.presses = append(e.presses, button)
	from := e.current
	if e.overlay != nil {
		e.overlay = nil
	} else if next := e.menu.Screens[e.current].next(button); next != "" {
		e.current = next
	}
	e.logger.Debug("Button pressed",
		zap.String("button", button),
		zap.String("from", from),
		zap.String("to", e.current))
	e.record()
	return nil
}

// Presses returns the buttons pushed so far, oldest first.
func (e *Emulator) Presses() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string{}, e.presses...)
}

// CurrentEvents returns the text events of the displayed screen.
func (e *Emulator) CurrentEvents() []speculos.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return screenEvents(e.displayed())
}

// Events returns every text event displayed since the last reset.
func (e *Emulator) Events() []speculos.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]speculos.Event{}, e.history...)
}

// ResetEvents clears the event history.
func (e *Emulator) ResetEvents() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.history = nil
}

func (e *Emulator) displayed() []string {
	lines := e.overlay
	if lines == nil {
		lines = e.menu.Screens[e.current].Lines
	}
	out := make([]string, len(lines))
	for i, l := range lines {
		if e.menu.DropCapitalS {
			l = strings.ReplaceAll(l, "S", "")
		}
		out[i] = l
	}
	return out
}

func (e *Emulator) record() {
	e.history = append(e.history, screenEvents(e.displayed())...)
}

// screenEvents lays lines out top to bottom the way the Nano X reports them.
func screenEvents(lines []string) []speculos.Event {
	events := make([]speculos.Event, len(lines))
	for i, l := range lines {
		events[i] = speculos.Event{Text: l, X: 0, Y: 3 + 16*i}
	}
	return events
}
