package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Limits enforced on workflow fields.
const (
	WorkflowNameMaxLen        = 255
	WorkflowDescriptionMaxLen = 5000
	WorkflowMaxActions        = 50
)

// Workflow is a persisted, parameterized action sequence with identity,
// tags and execution statistics.
type Workflow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	Actions     []Action  `json:"actions"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Execution counters. Monotone non-decreasing;
	// Succeeded + Failed <= Total at all times.
	TotalExecutions     int64 `json:"total_executions"`
	SucceededExecutions int64 `json:"succeeded_executions"`
	FailedExecutions    int64 `json:"failed_executions"`

	// LastExecutedAt is nil until the first run.
	LastExecutedAt *time.Time `json:"last_executed_at,omitempty"`

	// AvgDurationMs is the rolling mean run duration; nil until the first run.
	AvgDurationMs *float64 `json:"avg_duration_ms,omitempty"`
}

// SuccessRate returns succeeded/total, or 0 for a never-executed workflow.
func (w *Workflow) SuccessRate() float64 {
	if w.TotalExecutions == 0 {
		return 0
	}
	return float64(w.SucceededExecutions) / float64(w.TotalExecutions)
}

// Validate enforces field limits and per-action validity.
func (w *Workflow) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return NewServiceError(ErrCodeInvalidInput, "workflow name must not be empty", nil)
	}
	if utf8.RuneCountInString(w.Name) > WorkflowNameMaxLen {
		return NewServiceError(ErrCodeInvalidInput, "workflow name exceeds 255 characters", nil)
	}
	if utf8.RuneCountInString(w.Description) > WorkflowDescriptionMaxLen {
		return NewServiceError(ErrCodeInvalidInput, "workflow description exceeds 5000 characters", nil)
	}
	if strings.TrimSpace(w.URL) == "" {
		return NewServiceError(ErrCodeInvalidInput, "workflow url must not be empty", nil)
	}
	if len(w.Actions) == 0 {
		return NewServiceError(ErrCodeInvalidInput, "workflow requires at least one action", nil)
	}
	if len(w.Actions) > WorkflowMaxActions {
		return NewServiceError(ErrCodeInvalidInput, "workflow exceeds 50 actions", nil)
	}
	for i, a := range w.Actions {
		if err := a.Validate(); err != nil {
			return NewServiceError(ErrCodeInvalidInput, fmt.Sprintf("invalid action %d", i), err)
		}
	}
	return nil
}

// WorkflowStats aggregates execution statistics across all workflows.
type WorkflowStats struct {
	TotalWorkflows      int64    `json:"total_workflows"`
	TotalExecutions     int64    `json:"total_executions"`
	SucceededExecutions int64    `json:"succeeded_executions"`
	FailedExecutions    int64    `json:"failed_executions"`
	AvgDurationMs       *float64 `json:"avg_duration_ms,omitempty"`
}

// ExecutionReport is returned after one workflow run.
type ExecutionReport struct {
	WorkflowID   string         `json:"workflow_id"`
	WorkflowName string         `json:"workflow_name"`
	Success      bool           `json:"success"`
	Results      []ActionResult `json:"results"`
	ElapsedMs    int64          `json:"elapsed_ms"`
	FinalURL     string         `json:"final_url,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Error        *ErrorDetail   `json:"error,omitempty"`
}
