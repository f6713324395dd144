package store

import "testing"

func TestOpen_CreatesSchema(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer st.Close()

	tables := []string{"cached_responses", "workflows", "cached_components", "component_files"}
	for _, table := range tables {
		var name string
		row := st.DB().QueryRow(
			`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table)
		if err := row.Scan(&name); err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestOpen_Idempotent(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	defer st.Close()

	// Re-running the schema DDL must be harmless.
	if err := st.init(); err != nil {
		t.Errorf("second init failed: %v", err)
	}
}

func TestOpen_Indexes(t *testing.T) {
	st, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	defer st.Close()

	indexes := []string{
		"idx_cached_responses_url",
		"idx_cached_responses_expires",
		"idx_workflows_tags",
	}
	for _, idx := range indexes {
		var name string
		row := st.DB().QueryRow(
			`SELECT name FROM sqlite_master WHERE type='index' AND name = ?`, idx)
		if err := row.Scan(&name); err != nil {
			t.Errorf("index %s missing: %v", idx, err)
		}
	}
}
