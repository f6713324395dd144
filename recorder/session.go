package recorder

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/use-agent/drover/models"
)

// Session is one live recorder session. It holds a non-owning reference to
// its browser session by id; closing the recorder releases the underlying
// session back to the pool.
//
// State machine: Created → Recording → Stopped → Closed, with Close legal
// from any state.
type Session struct {
	ID               string
	BrowserSessionID string
	URL              string
	FrameRate        int

	mu           sync.Mutex
	state        models.RecorderState
	actions      []models.Action
	createdAt    time.Time
	lastActivity time.Time

	seq       atomic.Int64
	recording atomic.Bool

	frames       *Topic[*models.DomSnapshot]
	actionsTopic *Topic[models.Action]

	// stopStream/streamDone belong to the current snapshot-streaming task;
	// recreated on every Recording transition.
	stopStream chan struct{}
	streamDone chan struct{}

	// stopCapture removes the exposed in-page callback binding.
	stopCapture func() error
}

// State returns the current lifecycle state.
func (s *Session) State() models.RecorderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frames is the DOM snapshot topic (drop-oldest).
func (s *Session) Frames() *Topic[*models.DomSnapshot] {
	return s.frames
}

// Actions is the captured-action topic (lossless).
func (s *Session) Actions() *Topic[models.Action] {
	return s.actionsTopic
}

// CapturedActions returns a copy of the actions captured so far.
func (s *Session) CapturedActions() []models.Action {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Action, len(s.actions))
	copy(out, s.actions)
	return out
}

// Info is the API-facing view.
func (s *Session) Info() *models.RecorderSessionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &models.RecorderSessionInfo{
		ID:             s.ID,
		BrowserSession: s.BrowserSessionID,
		URL:            s.URL,
		State:          s.state,
		FrameRate:      s.FrameRate,
		ActionCount:    len(s.actions),
		CreatedAt:      s.createdAt,
		LastActivityAt: s.lastActivity,
	}
}

// touch stamps activity. Caller must not hold s.mu.
func (s *Session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *Session) lastActivityAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// record appends one captured action and publishes it. Dropped when the
// session is not recording.
func (s *Session) record(action models.Action) {
	if !s.recording.Load() {
		return
	}
	s.mu.Lock()
	s.actions = append(s.actions, action)
	s.lastActivity = time.Now()
	s.mu.Unlock()
	s.actionsTopic.Publish(action)
}
