package actions

import (
	"testing"

	"github.com/go-rod/rod/lib/input"
)

func TestKeyFromName_NamedKeys(t *testing.T) {
	tests := []struct {
		name string
		want input.Key
	}{
		{"Enter", input.Enter},
		{"Tab", input.Tab},
		{"Escape", input.Escape},
		{"Backspace", input.Backspace},
		{"ArrowDown", input.ArrowDown},
	}
	for _, tt := range tests {
		got, err := keyFromName(tt.name)
		if err != nil {
			t.Errorf("keyFromName(%q) failed: %v", tt.name, err)
			continue
		}
		if got != tt.want {
			t.Errorf("keyFromName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestKeyFromName_SingleRune(t *testing.T) {
	got, err := keyFromName("a")
	if err != nil {
		t.Fatalf("keyFromName(a) failed: %v", err)
	}
	if got != input.Key('a') {
		t.Errorf("keyFromName(a) = %v", got)
	}
}

func TestKeyFromName_Unsupported(t *testing.T) {
	if _, err := keyFromName("Hyperspace"); err == nil {
		t.Error("unsupported key should fail")
	}
}

func TestWalkJSONPath(t *testing.T) {
	doc := `{"a": {"b": {"c": "deep"}}, "n": 42, "arr": [1, 2]}`

	tests := []struct {
		path, want string
		wantErr    bool
	}{
		{"a.b.c", "deep", false},
		{"n", "42", false},
		{"arr", "[1,2]", false},
		{"a.missing", "", false},
		{"n.deeper", "", true}, // scalar cannot be descended into
	}
	for _, tt := range tests {
		got, err := walkJSONPath(doc, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("walkJSONPath(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("walkJSONPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestWalkJSONPath_NotJSON(t *testing.T) {
	if _, err := walkJSONPath("plain text", "a"); err == nil {
		t.Error("non-JSON document should fail")
	}
}
