package models

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestAction_Validate(t *testing.T) {
	tests := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"click with selector", Action{Type: ActionClick, Selector: "#a"}, false},
		{"click without selector", Action{Type: ActionClick}, true},
		{"fill with selector", Action{Type: ActionFill, Selector: "#a", Value: "x"}, false},
		{"navigate with url", Action{Type: ActionNavigate, URL: "https://ex.com"}, false},
		{"navigate without url", Action{Type: ActionNavigate}, true},
		{"press key with key", Action{Type: ActionPressKey, Selector: "#a", Key: "Enter"}, false},
		{"press key without key", Action{Type: ActionPressKey, Selector: "#a"}, true},
		{"wait without selector", Action{Type: ActionWait, Milliseconds: 100}, false},
		{"screenshot", Action{Type: ActionScreenshot}, false},
		{"scroll without selector", Action{Type: ActionScroll}, false},
		{"unknown type", Action{Type: "teleport"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.action.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAction_JSONRoundTrip(t *testing.T) {
	in := []Action{
		{Type: ActionFill, Selector: "#user", Value: "${name}", Description: "enter user"},
		{Type: ActionCheck, Selector: "#tos", Checked: true},
		{Type: ActionWait, Milliseconds: 1500},
		{Type: ActionExtract, Selector: ".price", ExtractKind: "text", Attribute: "data-amount", JSONPath: "a.b"},
		{Type: ActionPressKey, Selector: "#q", Key: "Enter"},
	}

	encoded, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	var out []Action
	if err := json.Unmarshal(encoded, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip changed the actions:\n in  %+v\n out %+v", in, out)
	}
}
