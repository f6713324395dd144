package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/drover/models"
	"github.com/use-agent/drover/store"
)

// Entry is one cached extraction result as persisted.
type Entry struct {
	Key       string
	URL       string
	Kind      models.ExtractionKind
	Selector  string
	Wait      models.WaitPolicy
	Options   string // canonical key=value,... form
	Data      string
	Metadata  map[string]any
	HitCount  int64
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Cache is the persistent response cache. Lookups and invalidations go to
// the shared store; hit/miss counters are process-local atomics feeding the
// metrics report.
type Cache struct {
	db *sql.DB

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates a Cache over the shared store.
func New(st *store.Store) *Cache {
	return &Cache{db: st.DB()}
}

// Get returns the non-expired entry for key, or ok=false on a miss. On a
// hit the stored hit counter is incremented in the same transaction that
// reads the row.
func (c *Cache) Get(ctx context.Context, key string) (*Entry, bool, error) {
	now := time.Now()

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("cache get: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT cache_key, url, kind, selector, wait_policy, options, data,
		       metadata, hit_count, created_at, expires_at
		FROM cached_responses
		WHERE cache_key = ? AND expires_at > ?`,
		key, now.UnixMilli())

	var e Entry
	var metaJSON string
	var createdAt, expiresAt int64
	err = row.Scan(&e.Key, &e.URL, &e.Kind, &e.Selector, &e.Wait, &e.Options,
		&e.Data, &metaJSON, &e.HitCount, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: scan: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE cached_responses SET hit_count = hit_count + 1 WHERE cache_key = ?`,
		key); err != nil {
		return nil, false, fmt.Errorf("cache get: bump hit count: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("cache get: commit: %w", err)
	}

	e.HitCount++
	e.CreatedAt = time.UnixMilli(createdAt)
	e.ExpiresAt = time.UnixMilli(expiresAt)
	if metaJSON != "" {
		if err := json.Unmarshal([]byte(metaJSON), &e.Metadata); err != nil {
			slog.Warn("cache entry has malformed metadata", "key", key, "error", err)
		}
	}

	c.hits.Add(1)
	return &e, true, nil
}

// Put stores a result under the request's fingerprint with the given TTL,
// replacing any previous entry for the same key.
func (c *Cache) Put(ctx context.Context, req *models.ExtractionRequest, result *models.ExtractionResult, ttl time.Duration) (*Entry, error) {
	now := time.Now()
	e := &Entry{
		Key:       Key(req),
		URL:       req.URL,
		Kind:      req.Kind,
		Selector:  req.Selector,
		Wait:      req.Wait,
		Options:   canonicalOptions(req.Options),
		Data:      result.Data,
		Metadata:  result.Metadata,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	metaJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return nil, fmt.Errorf("cache put: marshal metadata: %w", err)
	}

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO cached_responses
			(id, cache_key, url, kind, selector, wait_policy, options, data,
			 metadata, hit_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			data = excluded.data,
			metadata = excluded.metadata,
			hit_count = 0,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		uuid.NewString(), e.Key, e.URL, string(e.Kind), e.Selector,
		string(e.Wait), e.Options, e.Data, string(metaJSON),
		e.CreatedAt.UnixMilli(), e.ExpiresAt.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("cache put: %w", err)
	}
	return e, nil
}

// InvalidateURL deletes every entry for the given URL. Returns the number
// of entries removed.
func (c *Cache) InvalidateURL(ctx context.Context, url string) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM cached_responses WHERE url = ?`, url)
	if err != nil {
		return 0, fmt.Errorf("cache invalidate url: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// InvalidateExpired deletes every entry whose expiry has passed.
func (c *Cache) InvalidateExpired(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`DELETE FROM cached_responses WHERE expires_at < ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cache invalidate expired: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Flush deletes all entries.
func (c *Cache) Flush(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM cached_responses`)
	if err != nil {
		return 0, fmt.Errorf("cache flush: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// Metrics is the cache observability report.
type Metrics struct {
	TotalEntries   int64            `json:"total_entries"`
	Hits           int64            `json:"hits"`
	Misses         int64            `json:"misses"`
	ByKind         map[string]int64 `json:"by_kind"`
	ExpiringSoon   int64            `json:"expiring_soon"` // within 30 minutes
	TotalHitsSaved int64            `json:"total_hits_saved"`
}

// Report assembles the metrics snapshot: totals, process-local hit/miss
// counters, per-kind entry counts, and entries expiring within 30 minutes.
func (c *Cache) Report(ctx context.Context) (*Metrics, error) {
	m := &Metrics{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		ByKind: make(map[string]int64),
	}
	now := time.Now()

	row := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(hit_count), 0) FROM cached_responses`)
	if err := row.Scan(&m.TotalEntries, &m.TotalHitsSaved); err != nil {
		return nil, fmt.Errorf("cache report: totals: %w", err)
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM cached_responses GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("cache report: by kind: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("cache report: scan kind: %w", err)
		}
		m.ByKind[kind] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("cache report: %w", err)
	}

	row = c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cached_responses WHERE expires_at > ? AND expires_at <= ?`,
		now.UnixMilli(), now.Add(30*time.Minute).UnixMilli())
	if err := row.Scan(&m.ExpiringSoon); err != nil {
		return nil, fmt.Errorf("cache report: expiring soon: %w", err)
	}

	return m, nil
}
