package cache

import (
	"regexp"
	"testing"

	"github.com/use-agent/drover/models"
)

func TestKey_Is32HexChars(t *testing.T) {
	req := &models.ExtractionRequest{
		URL:      "https://ex.com/",
		Kind:     models.KindHTML,
		Selector: "h1",
		Wait:     models.WaitLoad,
	}
	key := Key(req)
	if !regexp.MustCompile(`^[0-9a-f]{32}$`).MatchString(key) {
		t.Errorf("key is not 32 lowercase hex chars: %q", key)
	}
}

func TestKey_Deterministic(t *testing.T) {
	req := &models.ExtractionRequest{
		URL:      "https://ex.com/",
		Kind:     models.KindHTML,
		Selector: "h1",
		Wait:     models.WaitLoad,
		Options:  map[string]string{"multiple": "true", "cleanHTML": "false"},
	}
	if Key(req) != Key(req) {
		t.Error("same request produced different keys")
	}
}

func TestKey_OptionOrderIrrelevant(t *testing.T) {
	// Maps don't have order, so build the same logical options twice in
	// different insertion orders.
	a := map[string]string{}
	a["a"] = "1"
	a["b"] = "2"
	b := map[string]string{}
	b["b"] = "2"
	b["a"] = "1"

	reqA := &models.ExtractionRequest{URL: "https://ex.com/", Kind: models.KindJSON, Selector: "div", Wait: models.WaitLoad, Options: a}
	reqB := &models.ExtractionRequest{URL: "https://ex.com/", Kind: models.KindJSON, Selector: "div", Wait: models.WaitLoad, Options: b}

	if Key(reqA) != Key(reqB) {
		t.Errorf("option ordering changed the key: %s vs %s", Key(reqA), Key(reqB))
	}
}

func TestKey_FieldsChangeKey(t *testing.T) {
	base := models.ExtractionRequest{
		URL:      "https://ex.com/",
		Kind:     models.KindHTML,
		Selector: "h1",
		Wait:     models.WaitLoad,
	}

	variants := []models.ExtractionRequest{
		{URL: "https://ex.com/other", Kind: base.Kind, Selector: base.Selector, Wait: base.Wait},
		{URL: base.URL, Kind: models.KindCSS, Selector: base.Selector, Wait: base.Wait},
		{URL: base.URL, Kind: base.Kind, Selector: "h2", Wait: base.Wait},
		{URL: base.URL, Kind: base.Kind, Selector: base.Selector, Wait: models.WaitNetworkIdle},
		{URL: base.URL, Kind: base.Kind, Selector: base.Selector, Wait: base.Wait, Options: map[string]string{"multiple": "true"}},
	}

	baseKey := Key(&base)
	for i, v := range variants {
		variant := v
		if Key(&variant) == baseKey {
			t.Errorf("variant %d produced the same key as the base request", i)
		}
	}
}

func TestCanonical_Format(t *testing.T) {
	req := &models.ExtractionRequest{
		URL:      "https://ex.com/",
		Kind:     models.KindHTML,
		Selector: "h1",
		Wait:     models.WaitLoad,
		Options:  map[string]string{"b": "2", "a": "1"},
	}
	want := "https://ex.com/|HTML|h1|LOAD|a=1,b=2"
	if got := Canonical(req); got != want {
		t.Errorf("canonical string mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestCanonical_NoOptions(t *testing.T) {
	req := &models.ExtractionRequest{
		URL:      "https://ex.com/",
		Kind:     models.KindCSS,
		Selector: ".card",
		Wait:     models.WaitNetworkIdle,
	}
	want := "https://ex.com/|CSS|.card|NETWORKIDLE|"
	if got := Canonical(req); got != want {
		t.Errorf("canonical string mismatch:\n got %q\nwant %q", got, want)
	}
}
