// Package script loads interaction scripts: YAML descriptions of the screens
// a device is expected to show and the buttons to push between them.
//
//	name: show address
//	steps:
//	  - match: ['^OXEN wallet$', '^(\w+)\.\.(\w+)$']
//	    capture:
//	      prefix: {pattern: 1, group: 1}
//	  - press: both
//	  - exact: [Regular address, (fakenet)]
//	  - press: right
//	  - multi: Address
//	    store: address
//	  - press: right
//	    count: 2
package script

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oxen-io/ledger-crawler"
)

// Script is a named sequence of interaction steps.
type Script struct {
	Name  string `yaml:"name"`
	Steps []Step `yaml:"steps"`
}

// Step is one interaction. Exactly one of Exact, Match, Multi, or Press is set.
type Step struct {
	Exact []string `yaml:"exact,omitempty"`

	Match      []string         `yaml:"match,omitempty"`
	FailIndex  int              `yaml:"fail_index,omitempty"`
	AllowExtra bool             `yaml:"allow_extra,omitempty"`
	Capture    map[string]Group `yaml:"capture,omitempty"`

	Multi string  `yaml:"multi,omitempty"`
	Value *string `yaml:"value,omitempty"`
	Store string  `yaml:"store,omitempty"`

	Press string `yaml:"press,omitempty"`
	Count int    `yaml:"count,omitempty"`
	Sleep string `yaml:"sleep,omitempty"`
}

// Group selects a submatch: Group of the pattern at index Pattern.
type Group struct {
	Pattern int `yaml:"pattern"`
	Group   int `yaml:"group"`
}

// Parse decodes and validates a YAML script.
func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing script: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("script has no steps")
	}
	for i, step := range s.Steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &s, nil
}

// Load reads a YAML script from path.
func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return s, nil
}

func (st Step) kind() []string {
	var kinds []string
	if st.Exact != nil {
		kinds = append(kinds, "exact")
	}
	if st.Match != nil {
		kinds = append(kinds, "match")
	}
	if st.Multi != "" {
		kinds = append(kinds, "multi")
	}
	if st.Press != "" {
		kinds = append(kinds, "press")
	}
	return kinds
}

func (st Step) validate() error {
	kinds := st.kind()
	switch len(kinds) {
	case 0:
		return fmt.Errorf("no exact, match, multi, or press")
	case 1:
	default:
		return fmt.Errorf("more than one of %v", kinds)
	}

	switch kinds[0] {
	case "match":
		res := make([]*regexp.Regexp, len(st.Match))
		for i, p := range st.Match {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("invalid pattern: %w", err)
			}
			res[i] = re
		}
		for name, g := range st.Capture {
			if g.Pattern < 0 || g.Pattern >= len(res) {
				return fmt.Errorf("capture %s: no pattern %d", name, g.Pattern)
			}
			if g.Group < 0 || g.Group > res[g.Pattern].NumSubexp() {
				return fmt.Errorf("capture %s: pattern %d has no group %d", name, g.Pattern, g.Group)
			}
		}
		if st.FailIndex < 0 {
			return fmt.Errorf("negative fail_index")
		}
	case "press":
		if _, err := crawler.ParseButton(st.Press); err != nil {
			return err
		}
		if st.Count < 0 {
			return fmt.Errorf("negative count")
		}
		if st.Sleep != "" {
			if _, err := time.ParseDuration(st.Sleep); err != nil {
				return fmt.Errorf("invalid sleep: %w", err)
			}
		}
	}
	return nil
}

// Matchers compiles the script. Literal screens and paginated values use
// the session's quirk workarounds. Captured submatches and paginated values
// are stored in the run's Values under their names.
func (s *Script) Matchers(sess *crawler.Session) []crawler.Matcher {
	out := make([]crawler.Matcher, 0, len(s.Steps))
	for _, st := range s.Steps {
		out = append(out, st.matcher(sess))
	}
	return out
}

func (st Step) matcher(sess *crawler.Session) crawler.Matcher {
	switch {
	case st.Exact != nil:
		return sess.Exact(st.Exact)

	case st.Match != nil:
		var opts []crawler.MatchOption
		if st.FailIndex > 0 {
			opts = append(opts, crawler.FailIndex(st.FailIndex))
		}
		if st.AllowExtra {
			opts = append(opts, crawler.AllowExtra())
		}
		if len(st.Capture) > 0 {
			capture := st.Capture
			opts = append(opts, crawler.WithCallback(func(c *crawler.Capture) error {
				for name, g := range capture {
					c.Values.Set(name, c.Group(g.Pattern, g.Group))
				}
				return nil
			}))
		}
		return crawler.Match(st.Match, opts...)

	case st.Multi != "":
		var opts []crawler.MatchOption
		if st.Value != nil {
			opts = append(opts, crawler.ExpectValue(*st.Value))
		}
		if st.Store != "" {
			key := st.Store
			opts = append(opts, crawler.WithCallback(func(c *crawler.Capture) error {
				c.Values.Set(key, c.Value)
				return nil
			}))
		}
		return sess.MultiPage(st.Multi, opts...)

	default:
		// Validated by Parse.
		b, _ := crawler.ParseButton(st.Press)
		sleep, _ := time.ParseDuration(st.Sleep)
		return crawler.Push(crawler.Press{Button: b, Count: st.Count, Sleep: sleep})
	}
}

// Check evaluates the script once against the device's current screen.
func (s *Script) Check(ctx context.Context, sess *crawler.Session, opts ...crawler.RunOption) error {
	return crawler.Check(ctx, sess, s.Matchers(sess), opts...)
}
