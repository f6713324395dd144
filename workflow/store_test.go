package workflow

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/drover/models"
	"github.com/use-agent/drover/store"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewStore(st)
}

func sampleWorkflow(name string) *models.Workflow {
	return &models.Workflow{
		Name: name,
		URL:  "https://ex.com/login",
		Actions: []models.Action{
			{Type: models.ActionFill, Selector: "#user", Value: "${name}"},
			{Type: models.ActionClick, Selector: "#go"},
		},
		Tags:      []string{"auth", "smoke"},
		CreatedBy: "tester",
	}
}

func TestStore_CreateAssignsIdentity(t *testing.T) {
	s := testStore(t)
	wf := sampleWorkflow("login")

	if err := s.Create(context.Background(), wf); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if wf.ID == "" {
		t.Error("create did not assign an id")
	}
	if wf.CreatedAt.IsZero() || wf.UpdatedAt.IsZero() {
		t.Error("create did not stamp timestamps")
	}
}

func TestStore_GetRoundTripsActions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	wf := sampleWorkflow("login")
	if err := s.Create(ctx, wf); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	got, err := s.Get(ctx, wf.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(got.Actions) != 2 {
		t.Fatalf("action count: got %d, want 2", len(got.Actions))
	}
	if got.Actions[0].Type != models.ActionFill || got.Actions[0].Value != "${name}" {
		t.Errorf("action 0 not preserved: %+v", got.Actions[0])
	}
	if got.Actions[1].Type != models.ActionClick || got.Actions[1].Selector != "#go" {
		t.Errorf("action 1 not preserved: %+v", got.Actions[1])
	}
	if len(got.Tags) != 2 {
		t.Errorf("tags not preserved: %v", got.Tags)
	}
}

func TestStore_GetUnknownID(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get(context.Background(), "nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Validation(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	t.Run("empty name", func(t *testing.T) {
		wf := sampleWorkflow("")
		if err := s.Create(ctx, wf); err == nil {
			t.Error("expected validation error for empty name")
		}
	})

	t.Run("no actions", func(t *testing.T) {
		wf := sampleWorkflow("x")
		wf.Actions = nil
		if err := s.Create(ctx, wf); err == nil {
			t.Error("expected validation error for empty actions")
		}
	})

	t.Run("max actions accepted", func(t *testing.T) {
		wf := sampleWorkflow("max")
		wf.Actions = make([]models.Action, models.WorkflowMaxActions)
		for i := range wf.Actions {
			wf.Actions[i] = models.Action{Type: models.ActionClick, Selector: "#a"}
		}
		if err := s.Create(ctx, wf); err != nil {
			t.Errorf("50 actions should validate: %v", err)
		}
	})

	t.Run("over max actions rejected", func(t *testing.T) {
		wf := sampleWorkflow("over")
		wf.Actions = make([]models.Action, models.WorkflowMaxActions+1)
		for i := range wf.Actions {
			wf.Actions[i] = models.Action{Type: models.ActionClick, Selector: "#a"}
		}
		if err := s.Create(ctx, wf); err == nil {
			t.Error("51 actions should fail validation")
		}
	})

	t.Run("name too long", func(t *testing.T) {
		wf := sampleWorkflow(strings.Repeat("n", models.WorkflowNameMaxLen+1))
		if err := s.Create(ctx, wf); err == nil {
			t.Error("expected validation error for long name")
		}
	})
}

func TestStore_RecordExecution_Counters(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	wf := sampleWorkflow("counted")
	if err := s.Create(ctx, wf); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := s.RecordExecution(ctx, wf.ID, true, 100*time.Millisecond); err != nil {
		t.Fatalf("record 1 failed: %v", err)
	}
	if err := s.RecordExecution(ctx, wf.ID, false, 300*time.Millisecond); err != nil {
		t.Fatalf("record 2 failed: %v", err)
	}

	got, err := s.Get(ctx, wf.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.TotalExecutions != 2 {
		t.Errorf("total: got %d, want 2", got.TotalExecutions)
	}
	if got.SucceededExecutions+got.FailedExecutions != got.TotalExecutions {
		t.Errorf("succeeded(%d)+failed(%d) != total(%d)",
			got.SucceededExecutions, got.FailedExecutions, got.TotalExecutions)
	}
	if got.LastExecutedAt == nil {
		t.Error("last executed not stamped")
	}
	// avg = (100 + 300) / 2 after the rolling fold: first run sets 100,
	// second folds to (100+300)/2 = 200.
	if got.AvgDurationMs == nil || *got.AvgDurationMs != 200 {
		t.Errorf("rolling average wrong: %v", got.AvgDurationMs)
	}
	if rate := got.SuccessRate(); rate != 0.5 {
		t.Errorf("success rate: got %f, want 0.5", rate)
	}
}

func TestStore_SuccessRateZeroWhenNeverRun(t *testing.T) {
	wf := sampleWorkflow("idle")
	if wf.SuccessRate() != 0 {
		t.Error("never-executed workflow should report success rate 0")
	}
}

func TestStore_Queries(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	login := sampleWorkflow("login flow")
	checkout := sampleWorkflow("checkout flow")
	checkout.Tags = []string{"cart"}
	checkout.CreatedBy = "someone-else"
	idle := sampleWorkflow("untouched")

	for _, wf := range []*models.Workflow{login, checkout, idle} {
		if err := s.Create(ctx, wf); err != nil {
			t.Fatalf("create %s failed: %v", wf.Name, err)
		}
	}

	// login: 2 runs, 2 successes; checkout: 3 runs, 1 success.
	for i := 0; i < 2; i++ {
		if err := s.RecordExecution(ctx, login.ID, true, time.Second); err != nil {
			t.Fatal(err)
		}
	}
	outcomes := []bool{true, false, false}
	for _, ok := range outcomes {
		if err := s.RecordExecution(ctx, checkout.ID, ok, time.Second); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("by name substring", func(t *testing.T) {
		got, err := s.SearchByName(ctx, "flow")
		if err != nil || len(got) != 2 {
			t.Errorf("want 2, got %d (err=%v)", len(got), err)
		}
	})

	t.Run("by tag substring", func(t *testing.T) {
		got, err := s.SearchByTag(ctx, "car")
		if err != nil || len(got) != 1 || got[0].ID != checkout.ID {
			t.Errorf("tag search wrong: %v (err=%v)", got, err)
		}
	})

	t.Run("by creator", func(t *testing.T) {
		got, err := s.ByCreator(ctx, "someone-else")
		if err != nil || len(got) != 1 || got[0].ID != checkout.ID {
			t.Errorf("creator search wrong (err=%v)", err)
		}
	})

	t.Run("top by executions", func(t *testing.T) {
		got, err := s.TopByExecutions(ctx, 1)
		if err != nil || len(got) != 1 || got[0].ID != checkout.ID {
			t.Errorf("top by executions wrong (err=%v)", err)
		}
	})

	t.Run("top by success rate only counts executed", func(t *testing.T) {
		got, err := s.TopBySuccessRate(ctx, 10)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Fatalf("want 2 executed workflows, got %d", len(got))
		}
		if got[0].ID != login.ID {
			t.Errorf("best success rate should be login, got %s", got[0].Name)
		}
	})

	t.Run("never executed", func(t *testing.T) {
		got, err := s.NeverExecuted(ctx)
		if err != nil || len(got) != 1 || got[0].ID != idle.ID {
			t.Errorf("never executed wrong (err=%v)", err)
		}
	})

	t.Run("recently executed", func(t *testing.T) {
		got, err := s.RecentlyExecuted(ctx, 10)
		if err != nil || len(got) != 2 {
			t.Errorf("want 2, got %d (err=%v)", len(got), err)
		}
	})

	t.Run("aggregate stats", func(t *testing.T) {
		stats, err := s.Stats(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if stats.TotalWorkflows != 3 {
			t.Errorf("total workflows: got %d, want 3", stats.TotalWorkflows)
		}
		if stats.TotalExecutions != 5 {
			t.Errorf("total executions: got %d, want 5", stats.TotalExecutions)
		}
		if stats.SucceededExecutions != 3 || stats.FailedExecutions != 2 {
			t.Errorf("outcome totals: got %d/%d, want 3/2",
				stats.SucceededExecutions, stats.FailedExecutions)
		}
	})
}

func TestStore_UpdateReplacesActions(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	wf := sampleWorkflow("mutable")
	if err := s.Create(ctx, wf); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	wf.Actions = []models.Action{{Type: models.ActionNavigate, URL: "https://ex.com/next"}}
	wf.Name = "renamed"
	if err := s.Update(ctx, wf); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, err := s.Get(ctx, wf.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "renamed" || len(got.Actions) != 1 || got.Actions[0].Type != models.ActionNavigate {
		t.Errorf("update not applied: %+v", got)
	}
}

func TestStore_Delete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	wf := sampleWorkflow("doomed")
	if err := s.Create(ctx, wf); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := s.Delete(ctx, wf.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := s.Get(ctx, wf.ID); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, wf.ID); err != ErrNotFound {
		t.Errorf("double delete should be ErrNotFound, got %v", err)
	}
}
