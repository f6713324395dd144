package browser

import (
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
)

// Session is one exclusive hold of a browser page. The pool vends a session
// to at most one caller at a time; the page must only be driven by the task
// that acquired it. Callers must not touch the session after Release.
type Session struct {
	// ID is opaque and globally unique.
	ID string

	page      *rod.Page
	router    *rod.HijackRouter // non-nil when resource blocking is on
	createdAt time.Time
	lastUsed  atomic.Int64 // Unix nano, lock-free reads for eviction
}

func newSession(id string, page *rod.Page) *Session {
	s := &Session{
		ID:        id,
		page:      page,
		createdAt: time.Now(),
	}
	s.Touch()
	return s
}

// Page returns the bound page.
func (s *Session) Page() *rod.Page {
	return s.page
}

// CreatedAt returns the session creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// Touch updates the last-use timestamp.
func (s *Session) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed returns the last-use time.
func (s *Session) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}
