package cache

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper owns the cache's background tasks: an hourly pass deleting
// expired entries and a half-hourly pass emitting observability counters.
// Both swallow their own errors and log; a failed sweep never surfaces to
// request handling.
type Sweeper struct {
	cache         *Cache
	sweepInterval time.Duration
	statsInterval time.Duration
	stopCh        chan struct{}
	doneCh        chan struct{}
}

// NewSweeper creates a sweeper for the given cache.
func NewSweeper(c *Cache, sweepInterval, statsInterval time.Duration) *Sweeper {
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	if statsInterval <= 0 {
		statsInterval = 30 * time.Minute
	}
	return &Sweeper{
		cache:         c,
		sweepInterval: sweepInterval,
		statsInterval: statsInterval,
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
}

// Start launches the background tickers.
func (s *Sweeper) Start() {
	go s.run()
}

// Stop halts the tickers and waits for the loop to exit.
func (s *Sweeper) Stop() {
	close(s.stopCh)
	<-s.doneCh
}

func (s *Sweeper) run() {
	defer close(s.doneCh)

	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()
	stats := time.NewTicker(s.statsInterval)
	defer stats.Stop()

	for {
		select {
		case <-sweep.C:
			s.sweepExpired()
		case <-stats.C:
			s.emitStats()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Sweeper) sweepExpired() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	removed, err := s.cache.InvalidateExpired(ctx)
	if err != nil {
		slog.Error("cache sweep failed", "error", err)
		return
	}
	if removed > 0 {
		slog.Info("cache sweep removed expired entries", "removed", removed)
	}
}

func (s *Sweeper) emitStats() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	m, err := s.cache.Report(ctx)
	if err != nil {
		slog.Error("cache stats report failed", "error", err)
		return
	}
	slog.Info("cache stats",
		"entries", m.TotalEntries,
		"hits", m.Hits,
		"misses", m.Misses,
		"byKind", m.ByKind,
		"expiringSoon", m.ExpiringSoon,
	)
}
