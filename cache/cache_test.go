package cache

import (
	"context"
	"testing"
	"time"

	"github.com/use-agent/drover/models"
	"github.com/use-agent/drover/store"
)

func testCache(t *testing.T) *Cache {
	t.Helper()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st)
}

func testRequest() *models.ExtractionRequest {
	return &models.ExtractionRequest{
		URL:      "https://ex.com/",
		Kind:     models.KindHTML,
		Selector: "h1",
		Wait:     models.WaitLoad,
	}
}

func testResult() *models.ExtractionResult {
	return &models.ExtractionResult{
		Data:     "<h1>Hi</h1>",
		Kind:     models.KindHTML,
		Selector: "h1",
		Metadata: map[string]any{"elementCount": float64(1)},
	}
}

func TestCache_PutGetRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	req := testRequest()

	if _, err := c.Put(ctx, req, testResult(), time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	entry, ok, err := c.Get(ctx, Key(req))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit for an unexpired entry")
	}
	if entry.Data != "<h1>Hi</h1>" {
		t.Errorf("payload not preserved: %q", entry.Data)
	}
	if entry.Kind != models.KindHTML || entry.Selector != "h1" {
		t.Errorf("request inputs not echoed: kind=%s selector=%s", entry.Kind, entry.Selector)
	}
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := testCache(t)

	_, ok, err := c.Get(context.Background(), "00000000000000000000000000000000")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected a miss for an unknown key")
	}
}

func TestCache_ExpiredEntryIsMiss(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	req := testRequest()

	if _, err := c.Put(ctx, req, testResult(), -time.Second); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	_, ok, err := c.Get(ctx, Key(req))
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Error("expected a miss for an expired entry")
	}
}

func TestCache_HitCounterIncrements(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	req := testRequest()

	if _, err := c.Put(ctx, req, testResult(), time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	for want := int64(1); want <= 3; want++ {
		entry, ok, err := c.Get(ctx, Key(req))
		if err != nil || !ok {
			t.Fatalf("get %d failed: ok=%v err=%v", want, ok, err)
		}
		if entry.HitCount != want {
			t.Errorf("hit count after get %d: got %d", want, entry.HitCount)
		}
	}
}

func TestCache_InvalidateURL(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	reqA := testRequest()
	reqB := testRequest()
	reqB.URL = "https://other.com/"

	if _, err := c.Put(ctx, reqA, testResult(), time.Hour); err != nil {
		t.Fatalf("put A failed: %v", err)
	}
	if _, err := c.Put(ctx, reqB, testResult(), time.Hour); err != nil {
		t.Fatalf("put B failed: %v", err)
	}

	removed, err := c.InvalidateURL(ctx, "https://ex.com/")
	if err != nil {
		t.Fatalf("invalidate failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 entry removed, got %d", removed)
	}

	if _, ok, _ := c.Get(ctx, Key(reqA)); ok {
		t.Error("entry for invalidated URL still present")
	}
	if _, ok, _ := c.Get(ctx, Key(reqB)); !ok {
		t.Error("entry for other URL was removed")
	}
}

func TestCache_InvalidateExpired(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	fresh := testRequest()
	stale := testRequest()
	stale.Selector = "h2"

	if _, err := c.Put(ctx, fresh, testResult(), time.Hour); err != nil {
		t.Fatalf("put fresh failed: %v", err)
	}
	if _, err := c.Put(ctx, stale, testResult(), -time.Second); err != nil {
		t.Fatalf("put stale failed: %v", err)
	}

	removed, err := c.InvalidateExpired(ctx)
	if err != nil {
		t.Fatalf("invalidate expired failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 expired entry removed, got %d", removed)
	}
}

func TestCache_Flush(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	if _, err := c.Put(ctx, testRequest(), testResult(), time.Hour); err != nil {
		t.Fatalf("put failed: %v", err)
	}
	removed, err := c.Flush(ctx)
	if err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 entry flushed, got %d", removed)
	}
}

func TestCache_Report(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	htmlReq := testRequest()
	cssReq := testRequest()
	cssReq.Kind = models.KindCSS

	if _, err := c.Put(ctx, htmlReq, testResult(), time.Hour); err != nil {
		t.Fatalf("put html failed: %v", err)
	}
	if _, err := c.Put(ctx, cssReq, testResult(), 10*time.Minute); err != nil {
		t.Fatalf("put css failed: %v", err)
	}

	// One hit, one miss for the process-local counters.
	if _, ok, _ := c.Get(ctx, Key(htmlReq)); !ok {
		t.Fatal("expected hit")
	}
	if _, ok, _ := c.Get(ctx, "ffffffffffffffffffffffffffffffff"); ok {
		t.Fatal("expected miss")
	}

	m, err := c.Report(ctx)
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if m.TotalEntries != 2 {
		t.Errorf("total entries: got %d, want 2", m.TotalEntries)
	}
	if m.Hits != 1 || m.Misses != 1 {
		t.Errorf("hit/miss counters: got %d/%d, want 1/1", m.Hits, m.Misses)
	}
	if m.ByKind["HTML"] != 1 || m.ByKind["CSS"] != 1 {
		t.Errorf("per-kind counts wrong: %v", m.ByKind)
	}
	// The CSS entry expires within 30 minutes.
	if m.ExpiringSoon != 1 {
		t.Errorf("expiring soon: got %d, want 1", m.ExpiringSoon)
	}
}

func TestCache_PutReplacesEntry(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()
	req := testRequest()

	if _, err := c.Put(ctx, req, testResult(), time.Hour); err != nil {
		t.Fatalf("first put failed: %v", err)
	}
	updated := testResult()
	updated.Data = "<h1>Bye</h1>"
	if _, err := c.Put(ctx, req, updated, time.Hour); err != nil {
		t.Fatalf("second put failed: %v", err)
	}

	entry, ok, err := c.Get(ctx, Key(req))
	if err != nil || !ok {
		t.Fatalf("get failed: ok=%v err=%v", ok, err)
	}
	if entry.Data != "<h1>Bye</h1>" {
		t.Errorf("entry not replaced: %q", entry.Data)
	}
	if entry.HitCount != 1 {
		t.Errorf("hit count should reset on replace: got %d", entry.HitCount)
	}
}
