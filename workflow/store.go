// Package workflow persists named action sequences and runs them against
// the browser pool, keeping per-workflow execution statistics.
package workflow

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/drover/models"
	"github.com/use-agent/drover/store"
)

// ErrNotFound is returned when no workflow has the requested id.
var ErrNotFound = errors.New("workflow not found")

// ErrMalformedActions is returned when a stored action list fails to
// deserialize. The runner counts this as a failed execution.
var ErrMalformedActions = errors.New("workflow actions are malformed")

const workflowColumns = `id, name, description, url, actions, tags, created_by,
	created_at, updated_at, total_executions, succeeded_executions,
	failed_executions, last_executed_at, avg_duration_ms`

// Store is the persistent workflow store.
type Store struct {
	db *sql.DB
}

// NewStore creates a Store over the shared database.
func NewStore(st *store.Store) *Store {
	return &Store{db: st.DB()}
}

// Create validates and persists a new workflow, assigning its id and
// timestamps. The caller's Actions slice is serialized as-is; the workflow
// owns the copy from then on.
func (s *Store) Create(ctx context.Context, wf *models.Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	wf.ID = uuid.NewString()
	now := time.Now()
	wf.CreatedAt = now
	wf.UpdatedAt = now

	actionsJSON, err := json.Marshal(wf.Actions)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to serialize actions", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO workflows
			(id, name, description, url, actions, tags, created_by, created_at,
			 updated_at, total_executions, succeeded_executions, failed_executions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0)`,
		wf.ID, wf.Name, wf.Description, wf.URL, string(actionsJSON),
		joinTags(wf.Tags), wf.CreatedBy, now.UnixMilli(), now.UnixMilli())
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to create workflow", err)
	}
	return nil
}

// Get loads one workflow by id.
func (s *Store) Get(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+workflowColumns+` FROM workflows WHERE id = ?`, id)
	return scanWorkflow(row)
}

// Update replaces a workflow's mutable fields (name, description, url,
// actions, tags); execution statistics are untouched.
func (s *Store) Update(ctx context.Context, wf *models.Workflow) error {
	if err := wf.Validate(); err != nil {
		return err
	}
	actionsJSON, err := json.Marshal(wf.Actions)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to serialize actions", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE workflows
		SET name = ?, description = ?, url = ?, actions = ?, tags = ?, updated_at = ?
		WHERE id = ?`,
		wf.Name, wf.Description, wf.URL, string(actionsJSON),
		joinTags(wf.Tags), time.Now().UnixMilli(), wf.ID)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to update workflow", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a workflow.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to delete workflow", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// List returns all workflows, most recently created first.
func (s *Store) List(ctx context.Context) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows ORDER BY created_at DESC`)
}

// SearchByName returns workflows whose name contains the substring.
func (s *Store) SearchByName(ctx context.Context, substr string) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 WHERE name LIKE ? ORDER BY created_at DESC`,
		"%"+substr+"%")
}

// SearchByTag returns workflows with a tag containing the substring.
func (s *Store) SearchByTag(ctx context.Context, substr string) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 WHERE tags LIKE ? ORDER BY created_at DESC`,
		"%"+substr+"%")
}

// ByCreator returns workflows created by the given identity.
func (s *Store) ByCreator(ctx context.Context, creator string) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 WHERE created_by = ? ORDER BY created_at DESC`,
		creator)
}

// TopByExecutions returns the n most-executed workflows.
func (s *Store) TopByExecutions(ctx context.Context, n int) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 ORDER BY total_executions DESC LIMIT ?`, n)
}

// TopBySuccessRate returns the n best-performing workflows among those that
// have executed at least once.
func (s *Store) TopBySuccessRate(ctx context.Context, n int) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 WHERE total_executions > 0
		 ORDER BY CAST(succeeded_executions AS REAL) / total_executions DESC
		 LIMIT ?`, n)
}

// RecentlyExecuted returns the n most recently executed workflows.
func (s *Store) RecentlyExecuted(ctx context.Context, n int) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 WHERE last_executed_at IS NOT NULL
		 ORDER BY last_executed_at DESC LIMIT ?`, n)
}

// RecentlyCreated returns the n most recently created workflows.
func (s *Store) RecentlyCreated(ctx context.Context, n int) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 ORDER BY created_at DESC LIMIT ?`, n)
}

// NeverExecuted returns workflows that have never run.
func (s *Store) NeverExecuted(ctx context.Context) ([]*models.Workflow, error) {
	return s.query(ctx,
		`SELECT `+workflowColumns+` FROM workflows
		 WHERE total_executions = 0 ORDER BY created_at DESC`)
}

// Stats aggregates execution statistics across all workflows.
func (s *Store) Stats(ctx context.Context) (*models.WorkflowStats, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_executions), 0),
		       COALESCE(SUM(succeeded_executions), 0),
		       COALESCE(SUM(failed_executions), 0),
		       AVG(avg_duration_ms)
		FROM workflows`)

	stats := &models.WorkflowStats{}
	var avg sql.NullFloat64
	if err := row.Scan(&stats.TotalWorkflows, &stats.TotalExecutions,
		&stats.SucceededExecutions, &stats.FailedExecutions, &avg); err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to aggregate stats", err)
	}
	if avg.Valid {
		stats.AvgDurationMs = &avg.Float64
	}
	return stats, nil
}

// RecordExecution updates a workflow's counters after one run as a single
// read-modify-write transaction: total increments, the outcome counter
// increments, last-run is stamped, and the rolling mean duration folds in
// the new sample.
func (s *Store) RecordExecution(ctx context.Context, id string, succeeded bool, duration time.Duration) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	var avg sql.NullFloat64
	row := tx.QueryRowContext(ctx,
		`SELECT avg_duration_ms FROM workflows WHERE id = ?`, id)
	if err := row.Scan(&avg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return models.NewServiceError(models.ErrCodePersistence, "failed to read workflow", err)
	}

	durMs := float64(duration.Milliseconds())
	newAvg := durMs
	if avg.Valid {
		newAvg = (avg.Float64 + durMs) / 2
	}

	succInc, failInc := 0, 1
	if succeeded {
		succInc, failInc = 1, 0
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE workflows
		SET total_executions = total_executions + 1,
		    succeeded_executions = succeeded_executions + ?,
		    failed_executions = failed_executions + ?,
		    last_executed_at = ?,
		    avg_duration_ms = ?
		WHERE id = ?`,
		succInc, failInc, time.Now().UnixMilli(), newAvg, id)
	if err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to record execution", err)
	}
	if err := tx.Commit(); err != nil {
		return models.NewServiceError(models.ErrCodePersistence, "failed to commit execution", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]*models.Workflow, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "workflow query failed", err)
	}
	defer rows.Close()

	var out []*models.Workflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "workflow query failed", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.Workflow, error) {
	var wf models.Workflow
	var actionsJSON, tags string
	var createdAt, updatedAt int64
	var lastExecuted sql.NullInt64
	var avg sql.NullFloat64

	err := row.Scan(&wf.ID, &wf.Name, &wf.Description, &wf.URL, &actionsJSON,
		&tags, &wf.CreatedBy, &createdAt, &updatedAt, &wf.TotalExecutions,
		&wf.SucceededExecutions, &wf.FailedExecutions, &lastExecuted, &avg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodePersistence, "failed to scan workflow", err)
	}

	wf.CreatedAt = time.UnixMilli(createdAt)
	wf.UpdatedAt = time.UnixMilli(updatedAt)
	wf.Tags = splitTags(tags)
	if lastExecuted.Valid {
		t := time.UnixMilli(lastExecuted.Int64)
		wf.LastExecutedAt = &t
	}
	if avg.Valid {
		wf.AvgDurationMs = &avg.Float64
	}

	if err := json.Unmarshal([]byte(actionsJSON), &wf.Actions); err != nil {
		return &wf, fmt.Errorf("%w: %s", ErrMalformedActions, wf.ID)
	}
	return &wf, nil
}

func joinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
