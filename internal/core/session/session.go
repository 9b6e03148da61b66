// Package session tracks which page of a document a reader is on.
package session

import (
	"github.com/markdave123-py/readaloud/internal/core"
)

// Session is the navigation state of one reader. It is not safe for
// concurrent use; the auto-read controller serializes access.
type Session struct {
	page        int
	pageCount   int
	autoAdvance bool
}

// New starts a session on page 1.
func New(pageCount int) (*Session, error) {
	if pageCount < 1 {
		return nil, core.ValidationError("document has no pages", nil)
	}
	return &Session{page: 1, pageCount: pageCount}, nil
}

func (s *Session) Page() int             { return s.page }
func (s *Session) PageCount() int        { return s.pageCount }
func (s *Session) AutoAdvance() bool     { return s.autoAdvance }
func (s *Session) SetAutoAdvance(v bool) { s.autoAdvance = v }

// Previous moves back one page. It reports whether the page changed.
func (s *Session) Previous() bool {
	if s.page <= 1 {
		return false
	}
	s.page--
	return true
}

// Next moves forward one page and, when triggerAuto is set, turns on
// auto-advance. On the last page nothing changes, including the flag.
func (s *Session) Next(triggerAuto bool) bool {
	if s.page >= s.pageCount {
		return false
	}
	s.page++
	if triggerAuto {
		s.autoAdvance = true
	}
	return true
}

// JumpTo sets the current page. The auto-advance flag is left as is.
func (s *Session) JumpTo(n int) error {
	if n < 1 || n > s.pageCount {
		return core.OutOfRangeError(n, s.pageCount)
	}
	s.page = n
	return nil
}
