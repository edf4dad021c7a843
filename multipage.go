package crawler

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MultiPageMatcher matches a value too long for one screen, displayed as
// "{title} (1/N)" through "{title} (N/N)" sub-screens. Once the first page
// shows up it pages through the rest with the right button and joins the
// page bodies.
type MultiPageMatcher struct {
	title    string
	header   *regexp.Regexp
	expect   *string
	callback Callback
	quirks   Quirks
}

// MultiPage returns a matcher for the paginated value titled title.
// ExpectValue checks the joined value; WithCallback receives it in
// Capture.Value. Callback errors are always fatal here, since the pages
// have already been consumed.
func MultiPage(title string, opts ...MatchOption) *MultiPageMatcher {
	o := matchOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return &MultiPageMatcher{
		title:    title,
		header:   firstPageHeader(title, o.quirks),
		expect:   o.expect,
		callback: o.callback,
		quirks:   o.quirks,
	}
}

func firstPageHeader(title string, q Quirks) *regexp.Regexp {
	return regexp.MustCompile("^" + q.relaxPattern(regexp.QuoteMeta(title)) + ` \(1/(\d+)\)$`)
}

func (m *MultiPageMatcher) String() string {
	return "multi-value " + m.title
}

// Evaluate implements Matcher.
func (m *MultiPageMatcher) Evaluate(ctx context.Context, a *Attempt) Outcome {
	scr := a.Screen
	if scr.Len() < 2 || !m.header.MatchString(scr.lines[0]) {
		if a.Immediate {
			return fatal(&MismatchError{
				Screen:   scr,
				Expected: m.String(),
				Index:    0,
				Reason:   fmt.Sprintf("first page %q (1/N) not shown", m.title),
			})
		}
		return pending()
	}
	if a.Session == nil {
		return fatal(errors.New("crawler: multi-page match needs a session to page through values"))
	}

	val, err := readPages(ctx, a.Session, m.title, m.header, m.quirks, scr)
	if err != nil {
		return fatal(err)
	}
	if m.expect != nil && !m.quirks.SameValue(*m.expect, val) {
		return fatal(&PaginationError{Title: m.title, Expected: *m.expect, Got: val})
	}
	if m.callback != nil {
		if err := m.callback(&Capture{Screen: scr, Value: val, Values: a.values()}); err != nil {
			return fatal(err)
		}
	}
	return matched()
}

// ReadPaginated reads the paginated value titled title. The device must be
// showing the first page; it is left on the last one.
func ReadPaginated(ctx context.Context, s *Session, title string) (string, error) {
	scr, err := s.Screen(ctx)
	if err != nil {
		return "", err
	}
	return readPages(ctx, s, title, firstPageHeader(title, s.quirks), s.quirks, scr)
}

func readPages(ctx context.Context, s *Session, title string, header *regexp.Regexp, q Quirks, first *Screen) (string, error) {
	var got string
	if first.Len() > 0 {
		got = first.lines[0]
	}
	m := header.FindStringSubmatch(got)
	if m == nil {
		return "", &PaginationError{Title: title, Expected: title + " (1/N)", Got: got}
	}
	pages, err := strconv.Atoi(m[1])
	if err != nil {
		return "", &PaginationError{Title: title, Expected: title + " (1/N)", Got: got}
	}

	var b strings.Builder
	b.WriteString(strings.Join(first.lines[1:], ""))
	for i := 2; i <= pages; i++ {
		if err := s.Right(ctx); err != nil {
			return "", err
		}
		scr, err := s.Screen(ctx)
		if err != nil {
			return "", err
		}
		want := fmt.Sprintf("%s (%d/%d)", title, i, pages)
		got = ""
		if scr.Len() > 0 {
			got = scr.lines[0]
		}
		if !q.SameValue(want, got) {
			return "", &PaginationError{Title: title, Expected: want, Got: got}
		}
		b.WriteString(strings.Join(scr.lines[1:], ""))
	}
	return b.String(), nil
}
