package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ysmood/gson"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/drover/browser"
	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/models"
)

// ErrSessionNotFound is returned for unknown or already-closed sessions.
var ErrSessionNotFound = models.NewServiceError(models.ErrCodeNotFound, "recorder session not found", nil)

// Manager owns all recorder sessions: creation against the browser pool,
// the per-session state machine, and the idle reaper.
type Manager struct {
	cfg  config.RecorderConfig
	pool *browser.Pool

	mu       sync.Mutex
	sessions map[string]*Session

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager creates the manager and starts the idle reaper.
func NewManager(cfg config.RecorderConfig, pool *browser.Pool) *Manager {
	if cfg.DefaultFPS < models.RecorderMinFPS || cfg.DefaultFPS > models.RecorderMaxFPS {
		cfg.DefaultFPS = models.RecorderDefaultFPS
	}
	if cfg.FrameBuffer < 1 {
		cfg.FrameBuffer = 8
	}
	m := &Manager{
		cfg:      cfg,
		pool:     pool,
		sessions: make(map[string]*Session),
		stopCh:   make(chan struct{}),
	}

	if cfg.ReapInterval > 0 && cfg.IdleTimeout > 0 {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			m.reapLoop()
		}()
	}
	return m
}

// Create acquires a browser session at url, installs the capture script,
// and registers a recorder session in the Created state.
func (m *Manager) Create(ctx context.Context, url string, fps int) (*Session, error) {
	if fps == 0 {
		fps = m.cfg.DefaultFPS
	}
	if fps < models.RecorderMinFPS || fps > models.RecorderMaxFPS {
		return nil, models.NewServiceError(models.ErrCodeInvalidInput,
			fmt.Sprintf("frame rate must be between %d and %d", models.RecorderMinFPS, models.RecorderMaxFPS), nil)
	}

	bs, err := m.pool.Acquire(ctx, url, models.WaitLoad)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	sess := &Session{
		ID:               uuid.NewString(),
		BrowserSessionID: bs.ID,
		URL:              url,
		FrameRate:        fps,
		state:            models.RecorderCreated,
		createdAt:        now,
		lastActivity:     now,
		frames:           NewTopic[*models.DomSnapshot](DropOldest, m.cfg.FrameBuffer),
		actionsTopic:     NewTopic[models.Action](Lossless, 256),
	}

	// The callback binding survives navigations; the init script reinstalls
	// the listeners on every new document. Both must be in place before the
	// session is visible.
	page := bs.Page()
	stop, err := page.Expose("__recorderEmit", func(g gson.JSON) (interface{}, error) {
		m.handleEvent(sess, g)
		return nil, nil
	})
	if err != nil {
		m.pool.Release(bs.ID)
		return nil, models.NewServiceError(models.ErrCodeInternal, "failed to expose capture callback", err)
	}
	sess.stopCapture = stop

	if _, err := page.EvalOnNewDocument(captureScript); err != nil {
		m.pool.Release(bs.ID)
		return nil, models.NewServiceError(models.ErrCodeInternal, "failed to install capture script", err)
	}
	// Install on the already-loaded document too.
	if _, err := page.Eval("() => {\n" + captureScript + "\n}"); err != nil {
		slog.Warn("failed to install capture script on current document", "sessionID", sess.ID, "error", err)
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	slog.Info("recorder session created",
		"sessionID", sess.ID, "url", url, "fps", fps)
	return sess, nil
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns the info of every live session.
func (m *Manager) List() []*models.RecorderSessionInfo {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.mu.Unlock()

	infos := make([]*models.RecorderSessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		infos = append(infos, sess.Info())
	}
	return infos
}

// Start transitions Created → Recording: the event sink opens and the
// snapshot-streaming task begins at the session's frame rate.
func (m *Manager) Start(id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.state != models.RecorderCreated {
		state := sess.state
		sess.mu.Unlock()
		return models.NewServiceError(models.ErrCodeInvalidInput,
			fmt.Sprintf("cannot start recording from state %q", state), nil)
	}
	sess.stopStream = make(chan struct{})
	sess.streamDone = make(chan struct{})
	sess.state = models.RecorderRecording
	sess.lastActivity = time.Now()
	sess.mu.Unlock()

	sess.recording.Store(true)
	go m.streamSnapshots(sess)

	slog.Info("recorder session recording", "sessionID", id)
	return nil
}

// Stop transitions Recording → Stopped: the sink closes and streaming
// halts. The captured action list is retained.
func (m *Manager) Stop(id string) error {
	sess, err := m.Get(id)
	if err != nil {
		return err
	}

	sess.mu.Lock()
	if sess.state != models.RecorderRecording {
		state := sess.state
		sess.mu.Unlock()
		return models.NewServiceError(models.ErrCodeInvalidInput,
			fmt.Sprintf("cannot stop recording from state %q", state), nil)
	}
	stop, done := sess.stopStream, sess.streamDone
	sess.mu.Unlock()

	// The streaming task must be observed gone before the state changes.
	sess.recording.Store(false)
	close(stop)
	<-done

	sess.mu.Lock()
	sess.state = models.RecorderStopped
	sess.lastActivity = time.Now()
	sess.mu.Unlock()

	slog.Info("recorder session stopped", "sessionID", id)
	return nil
}

// Close transitions any state to Closed: tasks are cancelled, topics are
// closed, the browser session is released, and the record is evicted.
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.closeSession(sess)
	return nil
}

func (m *Manager) closeSession(sess *Session) {
	sess.mu.Lock()
	wasRecording := sess.state == models.RecorderRecording
	stop, done := sess.stopStream, sess.streamDone
	sess.state = models.RecorderClosed
	sess.mu.Unlock()

	sess.recording.Store(false)
	if wasRecording {
		close(stop)
		<-done
	}

	if sess.stopCapture != nil {
		if err := sess.stopCapture(); err != nil {
			slog.Debug("failed to remove capture binding", "sessionID", sess.ID, "error", err)
		}
	}
	sess.frames.Close()
	sess.actionsTopic.Close()
	m.pool.Release(sess.BrowserSessionID)

	slog.Info("recorder session closed", "sessionID", sess.ID)
}

// handleEvent converts one raw in-page event to an Action and records it.
func (m *Manager) handleEvent(sess *Session, g gson.JSON) {
	raw, err := g.MarshalJSON()
	if err != nil {
		return
	}
	var ev models.CapturedEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		slog.Debug("malformed capture event", "sessionID", sess.ID, "error", err)
		return
	}
	action := eventToAction(ev)
	if action == nil {
		return
	}
	sess.record(*action)
}

// streamSnapshots is the per-session snapshot task: one DomSnapshot per
// tick at the configured fps, published to the frames topic. Capture errors
// are logged and the stream continues; the page may just be navigating.
func (m *Manager) streamSnapshots(sess *Session) {
	defer close(sess.streamDone)

	interval := time.Second / time.Duration(sess.FrameRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	bs := m.pool.Get(sess.BrowserSessionID)
	if bs == nil {
		slog.Warn("browser session gone, stopping snapshot stream", "sessionID", sess.ID)
		return
	}

	for {
		select {
		case <-sess.stopStream:
			return
		case <-ticker.C:
			snap, err := captureSnapshot(bs.Page(), sess.seq.Add(1))
			if err != nil {
				slog.Debug("snapshot capture failed", "sessionID", sess.ID, "error", err)
				continue
			}
			sess.frames.Publish(snap)
		}
	}
}

// reapLoop closes sessions idle beyond the configured window.
func (m *Manager) reapLoop() {
	ticker := time.NewTicker(m.cfg.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.reapIdle(time.Now())
		}
	}
}

func (m *Manager) reapIdle(now time.Time) {
	m.mu.Lock()
	var idle []*Session
	for id, sess := range m.sessions {
		if now.Sub(sess.lastActivityAt()) >= m.cfg.IdleTimeout {
			idle = append(idle, sess)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, sess := range idle {
		slog.Info("reaping idle recorder session", "sessionID", sess.ID)
		m.closeSession(sess)
	}
}

// Shutdown closes every session and stops the reaper.
func (m *Manager) Shutdown() {
	close(m.stopCh)
	m.wg.Wait()

	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, sess := range m.sessions {
		sessions = append(sessions, sess)
	}
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, sess := range sessions {
		s := sess
		eg.Go(func() error {
			m.closeSession(s)
			return nil
		})
	}
	_ = eg.Wait()
}
