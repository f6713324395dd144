package middleware

import (
	"testing"
	"time"
)

func TestKeyMatches(t *testing.T) {
	keys := [][]byte{[]byte("alpha"), []byte("beta-longer")}

	tests := []struct {
		name      string
		presented string
		want      bool
	}{
		{"first key", "alpha", true},
		{"second key", "beta-longer", true},
		{"unknown key", "gamma", false},
		{"prefix of a key", "alph", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := keyMatches(keys, []byte(tt.presented)); got != tt.want {
				t.Errorf("keyMatches(%q) = %v, want %v", tt.presented, got, tt.want)
			}
		})
	}
}

func TestPruneStale(t *testing.T) {
	now := time.Now()
	buckets := map[string]*bucket{
		"fresh": {touched: now.Add(-time.Minute)},
		"stale": {touched: now.Add(-staleAfter - time.Minute)},
		"edge":  {touched: now.Add(-staleAfter)},
	}

	pruneStale(buckets, now)

	if _, ok := buckets["fresh"]; !ok {
		t.Error("fresh bucket was pruned")
	}
	if _, ok := buckets["stale"]; ok {
		t.Error("stale bucket survived the prune")
	}
	// Exactly at the boundary is kept; only strictly-older entries go.
	if _, ok := buckets["edge"]; !ok {
		t.Error("boundary bucket should be kept")
	}
}
