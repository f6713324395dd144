package browser

import (
	"context"
	"testing"
	"time"

	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/models"
)

func testPool() *Pool {
	return NewPool(config.PoolConfig{
		MaxSessions:    2,
		AcquireTimeout: 50 * time.Millisecond,
		IdleTimeout:    time.Minute,
		EvictInterval:  time.Minute,
		Reuse:          true,
	}, config.BrowserConfig{}, NewNavigator(config.NavConfig{}))
}

func TestPool_AcquireAfterStopFails(t *testing.T) {
	p := testPool()
	// Stop before Start: no browser, no sessions, but the closed flag must
	// refuse further acquires.
	p.Stop()

	_, err := p.Acquire(context.Background(), "https://ex.com", models.WaitLoad)
	if err == nil {
		t.Fatal("acquire on a stopped pool should fail")
	}
	svcErr, ok := err.(*models.ServiceError)
	if !ok || svcErr.Code != models.ErrCodeBrowserUnavailable {
		t.Errorf("expected BROWSER_UNAVAILABLE, got %v", err)
	}
}

func TestPool_StopIsIdempotent(t *testing.T) {
	p := testPool()
	p.Stop()
	p.Stop() // must not panic or deadlock
}

func TestPool_ReleaseUnknownIDIsNoOp(t *testing.T) {
	p := testPool()
	defer p.Stop()
	p.Release("no-such-session") // must not panic
}

func TestPool_GetUnknownIDReturnsNil(t *testing.T) {
	p := testPool()
	defer p.Stop()
	if sess := p.Get("missing"); sess != nil {
		t.Errorf("expected nil for unknown id, got %v", sess.ID)
	}
}

func TestPool_SnapshotCountsStartEmpty(t *testing.T) {
	p := testPool()
	defer p.Stop()

	snap := p.Snapshot()
	if snap.Open != 0 || snap.InUse != 0 || snap.Idle != 0 {
		t.Errorf("fresh pool should be empty: %+v", snap)
	}
	if snap.MaxSessions != 2 {
		t.Errorf("max sessions: got %d", snap.MaxSessions)
	}
}

func TestNewPool_ClampsMaxSessions(t *testing.T) {
	p := NewPool(config.PoolConfig{MaxSessions: 0}, config.BrowserConfig{}, NewNavigator(config.NavConfig{}))
	defer p.Stop()
	if p.cfg.MaxSessions != 1 {
		t.Errorf("max sessions should clamp to 1, got %d", p.cfg.MaxSessions)
	}
}

func TestNewNavigator_Defaults(t *testing.T) {
	n := NewNavigator(config.NavConfig{})
	if n.cfg.MaxAttempts != 1 {
		t.Errorf("zero attempts should clamp to 1, got %d", n.cfg.MaxAttempts)
	}
	if n.cfg.Timeout != 10*time.Second {
		t.Errorf("zero timeout should default to 10s, got %v", n.cfg.Timeout)
	}
}
