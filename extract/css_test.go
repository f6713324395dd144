package extract

import (
	"strings"
	"testing"
)

func TestDedupeRules(t *testing.T) {
	rules := []cssRule{
		{Selector: ".a", Declarations: "color: red;", Media: ""},
		{Selector: ".a", Declarations: "color: red;", Media: ""},
		{Selector: ".a", Declarations: "color: red;", Media: "(max-width: 600px)"},
		{Selector: ".b", Declarations: "color: red;", Media: ""},
	}
	out := dedupeRules(rules)
	if len(out) != 3 {
		t.Fatalf("dedupe: got %d rules, want 3", len(out))
	}
	// First-seen order preserved.
	if out[0].Selector != ".a" || out[0].Media != "" {
		t.Errorf("order not preserved: %+v", out[0])
	}
}

func TestRenderCSSText(t *testing.T) {
	coll := cssCollection{
		ElementCount: 1,
		Rules: []cssRule{
			{Selector: ".card", Declarations: "color: red;"},
			{Selector: ".card", Declarations: "font-size: 12px;", Media: "(max-width: 600px)"},
		},
		Inline: []cssInline{{Index: 0, Declarations: "margin: 0"}},
		Custom: map[string]string{"--brand": "#fff", "--accent": "#000"},
	}
	out := renderCSSText(coll)

	if !strings.Contains(out, ":root {") {
		t.Error("custom properties block missing")
	}
	// Sorted custom property order.
	if strings.Index(out, "--accent") > strings.Index(out, "--brand") {
		t.Error("custom properties not sorted")
	}
	if !strings.Contains(out, ".card { color: red; }") {
		t.Errorf("plain rule missing:\n%s", out)
	}
	if !strings.Contains(out, "@media (max-width: 600px) {") {
		t.Errorf("media condition not preserved:\n%s", out)
	}
	if !strings.Contains(out, "element 0 inline") {
		t.Errorf("inline styles missing:\n%s", out)
	}
}

func TestRenderCSSText_Empty(t *testing.T) {
	out := renderCSSText(cssCollection{})
	if out != "" {
		t.Errorf("empty collection should render empty string, got %q", out)
	}
}

func TestParseCSSOptions(t *testing.T) {
	opts, err := ParseCSSOptions(nil)
	if err != nil || opts.Format != "text" {
		t.Errorf("default format: got %q err=%v", opts.Format, err)
	}
	opts, err = ParseCSSOptions(map[string]string{"format": "json"})
	if err != nil || opts.Format != "json" {
		t.Errorf("json format: got %q err=%v", opts.Format, err)
	}
	if _, err := ParseCSSOptions(map[string]string{"format": "yaml"}); err == nil {
		t.Error("invalid format should fail")
	}
}
