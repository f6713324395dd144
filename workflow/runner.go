package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/use-agent/drover/actions"
	"github.com/use-agent/drover/browser"
	"github.com/use-agent/drover/models"
)

// Runner executes stored workflows against the browser pool.
type Runner struct {
	store    *Store
	pool     *browser.Pool
	executor *actions.Executor
}

// NewRunner wires the runner to its collaborators.
func NewRunner(store *Store, pool *browser.Pool, executor *actions.Executor) *Runner {
	return &Runner{store: store, pool: pool, executor: executor}
}

// Execute loads the workflow, substitutes parameters, acquires a session at
// the workflow's URL, runs the action sequence, and updates the workflow's
// counters in one read-modify-write. A load failure of the stored action
// list or a session acquisition failure counts as a failed execution.
func (r *Runner) Execute(ctx context.Context, id string, params map[string]string) (*models.ExecutionReport, error) {
	start := time.Now()

	wf, err := r.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMalformedActions) && wf != nil {
			// The workflow exists but its actions won't deserialize:
			// the attempt still counts against it.
			r.recordOutcome(ctx, id, false, time.Since(start))
			return r.failedReport(wf, start, models.NewServiceError(
				models.ErrCodePersistence, "stored actions failed to deserialize", err)), nil
		}
		return nil, err
	}

	acts := actions.SubstituteParams(wf.Actions, params)

	sess, err := r.pool.Acquire(ctx, wf.URL, models.WaitLoad)
	if err != nil {
		r.recordOutcome(ctx, id, false, time.Since(start))
		svcErr, ok := err.(*models.ServiceError)
		if !ok {
			svcErr = models.NewServiceError(models.ErrCodeInternal, err.Error(), err)
		}
		return r.failedReport(wf, start, svcErr), nil
	}
	defer r.pool.Release(sess.ID)

	results := r.executor.ExecuteSequence(ctx, sess.Page(), acts)

	// Success means every action ran and succeeded; a cancelled sequence
	// with partial results is a failed run.
	success := len(results) == len(acts)
	for _, res := range results {
		if !res.Success {
			success = false
			break
		}
	}

	elapsed := time.Since(start)
	r.recordOutcome(ctx, id, success, elapsed)

	finalURL := wf.URL
	if n := len(results); n > 0 && results[n-1].FinalURL != "" {
		finalURL = results[n-1].FinalURL
	}

	return &models.ExecutionReport{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Success:      success,
		Results:      results,
		ElapsedMs:    elapsed.Milliseconds(),
		FinalURL:     finalURL,
		Timestamp:    start,
	}, nil
}

// recordOutcome updates counters; a persistence failure here is logged but
// does not replace the execution's own outcome. The update runs on its own
// context so a cancelled request still gets counted.
func (r *Runner) recordOutcome(_ context.Context, id string, success bool, elapsed time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.store.RecordExecution(ctx, id, success, elapsed); err != nil {
		slog.Error("failed to record workflow execution", "workflowID", id, "error", err)
	}
}

func (r *Runner) failedReport(wf *models.Workflow, start time.Time, svcErr *models.ServiceError) *models.ExecutionReport {
	return &models.ExecutionReport{
		WorkflowID:   wf.ID,
		WorkflowName: wf.Name,
		Success:      false,
		Results:      []models.ActionResult{},
		ElapsedMs:    time.Since(start).Milliseconds(),
		Timestamp:    start,
		Error:        svcErr.ToDetail(),
	}
}
