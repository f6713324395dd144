package extract

import (
	"encoding/json"
	"testing"
)

const cardFragment = `<div class="card">
	<h2 class="title">Widget</h2>
	<span class="price" data-amount="9.99">$9.99</span>
	<a class="link" href="/widget">details</a>
</div>`

func TestMapFragments_SchemaFields(t *testing.T) {
	data, err := MapFragments([]string{cardFragment}, JSONOptions{
		Schema: map[string]string{
			"title": ".title",
			"price": ".price",
			"href":  ".link@href",
		},
	})
	if err != nil {
		t.Fatalf("MapFragments failed: %v", err)
	}

	var obj map[string]string
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if obj["title"] != "Widget" {
		t.Errorf("title: got %q", obj["title"])
	}
	if obj["price"] != "$9.99" {
		t.Errorf("price: got %q", obj["price"])
	}
	if obj["href"] != "/widget" {
		t.Errorf("href attribute: got %q", obj["href"])
	}
}

func TestMapFragments_MissingFieldIsEmptyString(t *testing.T) {
	data, err := MapFragments([]string{cardFragment}, JSONOptions{
		Schema: map[string]string{"rating": ".stars"},
	})
	if err != nil {
		t.Fatalf("MapFragments failed: %v", err)
	}
	var obj map[string]string
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	val, present := obj["rating"]
	if !present || val != "" {
		t.Errorf("missing field should be empty string, got %q (present=%v)", val, present)
	}
}

func TestMapFragments_MultipleYieldsArray(t *testing.T) {
	data, err := MapFragments([]string{cardFragment, cardFragment}, JSONOptions{
		Multiple: true,
		Schema:   map[string]string{"title": ".title"},
	})
	if err != nil {
		t.Fatalf("MapFragments failed: %v", err)
	}
	var arr []map[string]string
	if err := json.Unmarshal([]byte(data), &arr); err != nil {
		t.Fatalf("output is not a JSON array: %v", err)
	}
	if len(arr) != 2 {
		t.Errorf("array length: got %d, want 2", len(arr))
	}
}

func TestMapFragments_NoSchemaDefaultShape(t *testing.T) {
	data, err := MapFragments([]string{cardFragment}, JSONOptions{})
	if err != nil {
		t.Fatalf("MapFragments failed: %v", err)
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	for _, field := range []string{"text", "html", "attributes"} {
		if _, ok := obj[field]; !ok {
			t.Errorf("default shape missing %q field", field)
		}
	}
	attrs, _ := obj["attributes"].(map[string]any)
	if attrs["class"] != "card" {
		t.Errorf("root attributes not captured: %v", attrs)
	}
}

func TestMapFragments_ZeroFragments(t *testing.T) {
	single, err := MapFragments(nil, JSONOptions{Schema: map[string]string{"a": ".a"}})
	if err != nil || single != "{}" {
		t.Errorf("zero matches single: got %q err=%v, want {}", single, err)
	}
	multi, err := MapFragments(nil, JSONOptions{Multiple: true})
	if err != nil || multi != "[]" {
		t.Errorf("zero matches multiple: got %q err=%v, want []", multi, err)
	}
}

func TestSplitAttrSuffix(t *testing.T) {
	tests := []struct {
		in, wantSel, wantAttr string
	}{
		{"a.link@href", "a.link", "href"},
		{".price", ".price", ""},
		{"img@src", "img", "src"},
		{".", ".", ""},
	}
	for _, tt := range tests {
		sel, attr := splitAttrSuffix(tt.in)
		if sel != tt.wantSel || attr != tt.wantAttr {
			t.Errorf("splitAttrSuffix(%q) = (%q, %q), want (%q, %q)",
				tt.in, sel, attr, tt.wantSel, tt.wantAttr)
		}
	}
}
