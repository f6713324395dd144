package browser

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/models"
)

// Pool is the bounded browser session pool. It owns every session: a
// configured maximum of concurrently open sessions is enforced, released
// sessions return to a free list (when reuse is enabled), and idle sessions
// are evicted on a periodic tick and on every acquire attempt.
//
// A single mutex guards {in-use set, free list, pending counter}. Slow I/O
// (page creation, navigation, closing) always happens outside the lock.
type Pool struct {
	cfg        config.PoolConfig
	browserCfg config.BrowserConfig
	nav        *Navigator

	browser *rod.Browser

	mu      sync.Mutex
	inUse   map[string]*Session
	idle    []*Session
	pending int // sessions being created, counted against the cap
	closed  bool

	// released receives one token per release/eviction so blocked
	// acquirers can re-check capacity.
	released chan struct{}

	stopCh chan struct{}
	wg     sync.WaitGroup

	stats PoolStats
}

// PoolStats holds monotonic pool counters.
type PoolStats struct {
	Created  atomic.Int64
	Reused   atomic.Int64
	Evicted  atomic.Int64
	Timeouts atomic.Int64
}

// PoolSnapshot is a point-in-time view of pool state.
type PoolSnapshot struct {
	MaxSessions int   `json:"max_sessions"`
	Open        int   `json:"open"`
	InUse       int   `json:"in_use"`
	Idle        int   `json:"idle"`
	Created     int64 `json:"created"`
	Reused      int64 `json:"reused"`
	Evicted     int64 `json:"evicted"`
	Timeouts    int64 `json:"timeouts"`
}

// NewPool creates a pool. Call Start before acquiring.
func NewPool(cfg config.PoolConfig, browserCfg config.BrowserConfig, nav *Navigator) *Pool {
	if cfg.MaxSessions < 1 {
		cfg.MaxSessions = 1
	}
	return &Pool{
		cfg:        cfg,
		browserCfg: browserCfg,
		nav:        nav,
		inUse:      make(map[string]*Session),
		released:   make(chan struct{}, cfg.MaxSessions),
		stopCh:     make(chan struct{}),
	}
}

// Start launches the browser process and the idle-eviction ticker.
func (p *Pool) Start() error {
	b, err := launch(p.browserCfg)
	if err != nil {
		return err
	}
	p.browser = b

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.evictionLoop()
	}()

	slog.Info("browser pool started",
		"maxSessions", p.cfg.MaxSessions,
		"idleTimeout", p.cfg.IdleTimeout,
		"reuse", p.cfg.Reuse,
	)
	return nil
}

// Acquire returns an exclusive session whose page has the requested URL
// loaded under the given wait policy. When the pool is at capacity the call
// blocks until a session is released or the acquire timeout elapses.
// The caller must call Release with the session id in every outcome.
func (p *Pool) Acquire(ctx context.Context, url string, wait models.WaitPolicy) (*Session, error) {
	deadline := time.Now().Add(p.cfg.AcquireTimeout)

	for {
		p.evictIdle(time.Now())

		sess, retry, err := p.tryAcquire()
		if err != nil {
			return nil, err
		}
		if sess != nil {
			if navErr := p.nav.Navigate(ctx, sess.page, url, wait); navErr != nil {
				// A session whose navigation failed is closed, not reused.
				p.discard(sess)
				return nil, navErr
			}
			sess.Touch()
			return sess, nil
		}
		if !retry {
			return nil, models.NewServiceError(models.ErrCodeBrowserUnavailable, "failed to open session", nil)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			p.stats.Timeouts.Add(1)
			return nil, models.NewServiceError(models.ErrCodePoolTimeout, "no session available within acquire timeout", nil)
		}
		select {
		case <-p.released:
		case <-ctx.Done():
			return nil, models.NewServiceError(models.ErrCodeCanceled, "acquire canceled", ctx.Err())
		case <-time.After(remaining):
			p.stats.Timeouts.Add(1)
			return nil, models.NewServiceError(models.ErrCodePoolTimeout, "no session available within acquire timeout", nil)
		}
	}
}

// tryAcquire pops an idle session or creates a new one if under the cap.
// retry=true means the pool is full and the caller should wait for a
// release and try again.
func (p *Pool) tryAcquire() (sess *Session, retry bool, err error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, false, models.NewServiceError(models.ErrCodeBrowserUnavailable, "pool is shut down", nil)
	}

	// Prefer reuse: newest idle session first.
	if n := len(p.idle); n > 0 {
		sess = p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.inUse[sess.ID] = sess
		p.mu.Unlock()
		p.stats.Reused.Add(1)
		return sess, false, nil
	}

	open := len(p.inUse) + len(p.idle) + p.pending
	if open >= p.cfg.MaxSessions {
		p.mu.Unlock()
		return nil, true, nil
	}

	// Reserve a slot, then create the page outside the lock.
	p.pending++
	p.mu.Unlock()

	sess, createErr := p.createSession()

	p.mu.Lock()
	p.pending--
	if createErr != nil {
		p.mu.Unlock()
		p.signalReleased()
		return nil, false, models.NewServiceError(models.ErrCodeBrowserUnavailable, "failed to create browser session", createErr)
	}
	if p.closed {
		p.mu.Unlock()
		_ = sess.page.Close()
		return nil, false, models.NewServiceError(models.ErrCodeBrowserUnavailable, "pool is shut down", nil)
	}
	p.inUse[sess.ID] = sess
	p.mu.Unlock()

	p.stats.Created.Add(1)
	return sess, false, nil
}

func (p *Pool) createSession() (*Session, error) {
	page, err := p.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, err
	}
	if p.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	sess := newSession(uuid.NewString(), page)
	// Resource blocking must be mounted before the first navigation.
	sess.router = SetupHijack(page, p.nav.BlockedResourceTypes())
	return sess, nil
}

// Get returns the in-use session with the given id, or nil. It exists for
// holders of a session reference by id (recorder sessions); it never vends
// an idle session.
func (p *Pool) Get(id string) *Session {
	p.mu.Lock()
	sess := p.inUse[id]
	p.mu.Unlock()
	if sess != nil {
		sess.Touch()
	}
	return sess
}

// Release returns the session to the free list (reuse enabled) or closes it.
// The caller must not touch the session afterwards. Releasing an unknown id
// is a no-op, so Release is safe to defer on every path.
func (p *Pool) Release(id string) {
	p.mu.Lock()
	sess, ok := p.inUse[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.inUse, id)
	reuse := p.cfg.Reuse && !p.closed
	p.mu.Unlock()

	if !reuse {
		p.closeSession(sess)
		p.signalReleased()
		return
	}

	// Park the page on about:blank so the next acquire starts clean and the
	// old DOM can be collected. A page that cannot be parked is not reused.
	if err := sess.page.Navigate("about:blank"); err != nil {
		slog.Warn("failed to park released session, closing it", "sessionID", sess.ID, "error", err)
		p.closeSession(sess)
		p.signalReleased()
		return
	}
	sess.Touch()

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.closeSession(sess)
		return
	}
	p.idle = append(p.idle, sess)
	p.mu.Unlock()
	p.signalReleased()
}

// discard closes a session that is still registered as in-use (navigation
// failure path). Resources are released and a waiter is woken.
func (p *Pool) discard(sess *Session) {
	p.mu.Lock()
	delete(p.inUse, sess.ID)
	p.mu.Unlock()
	p.closeSession(sess)
	p.signalReleased()
}

func (p *Pool) closeSession(sess *Session) {
	if sess.router != nil {
		if err := sess.router.Stop(); err != nil {
			slog.Debug("error stopping hijack router", "sessionID", sess.ID, "error", err)
		}
	}
	if err := sess.page.Close(); err != nil {
		slog.Warn("error closing session page", "sessionID", sess.ID, "error", err)
	}
}

func (p *Pool) signalReleased() {
	select {
	case p.released <- struct{}{}:
	default:
	}
}

// evictIdle closes idle sessions whose last use is older than the idle
// timeout. Runs on the ticker and at the top of every acquire attempt.
func (p *Pool) evictIdle(now time.Time) {
	if p.cfg.IdleTimeout <= 0 {
		return
	}

	p.mu.Lock()
	var expired []*Session
	kept := p.idle[:0]
	for _, sess := range p.idle {
		if now.Sub(sess.LastUsed()) >= p.cfg.IdleTimeout {
			expired = append(expired, sess)
		} else {
			kept = append(kept, sess)
		}
	}
	p.idle = kept
	p.mu.Unlock()

	for _, sess := range expired {
		slog.Debug("evicting idle session", "sessionID", sess.ID, "idle", now.Sub(sess.LastUsed()))
		p.closeSession(sess)
		p.stats.Evicted.Add(1)
		p.signalReleased()
	}
}

func (p *Pool) evictionLoop() {
	ticker := time.NewTicker(p.cfg.EvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.evictIdle(time.Now())
		case <-p.stopCh:
			return
		}
	}
}

// Snapshot reports the pool state for health and metrics endpoints.
func (p *Pool) Snapshot() PoolSnapshot {
	p.mu.Lock()
	inUse, idle, pending := len(p.inUse), len(p.idle), p.pending
	p.mu.Unlock()
	return PoolSnapshot{
		MaxSessions: p.cfg.MaxSessions,
		Open:        inUse + idle + pending,
		InUse:       inUse,
		Idle:        idle,
		Created:     p.stats.Created.Load(),
		Reused:      p.stats.Reused.Load(),
		Evicted:     p.stats.Evicted.Load(),
		Timeouts:    p.stats.Timeouts.Load(),
	}
}

// Stop refuses further acquires, closes every session (idle and in-flight)
// and kills the browser process. Safe to call once at shutdown.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	sessions := make([]*Session, 0, len(p.inUse)+len(p.idle))
	for _, sess := range p.inUse {
		sessions = append(sessions, sess)
	}
	sessions = append(sessions, p.idle...)
	p.inUse = make(map[string]*Session)
	p.idle = nil
	p.mu.Unlock()

	close(p.stopCh)
	p.wg.Wait()

	// Close sessions in parallel, bounded, outside the lock.
	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, sess := range sessions {
		s := sess
		eg.Go(func() error {
			p.closeSession(s)
			return nil
		})
	}
	_ = eg.Wait()

	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			slog.Warn("error closing browser", "error", err)
		}
	}
	slog.Info("browser pool stopped", "closedSessions", len(sessions))
}
