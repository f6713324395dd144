package actions

import (
	"testing"

	"github.com/use-agent/drover/models"
)

func TestSubstituteParams_ReplacesPlaceholders(t *testing.T) {
	in := []models.Action{
		{Type: models.ActionFill, Selector: "#user", Value: "${name}"},
		{Type: models.ActionFill, Selector: "#${field}", Value: "${name}@${domain}"},
	}
	out := SubstituteParams(in, map[string]string{
		"name":   "alice",
		"field":  "email",
		"domain": "ex.com",
	})

	if out[0].Value != "alice" {
		t.Errorf("value not substituted: %q", out[0].Value)
	}
	if out[1].Selector != "#email" {
		t.Errorf("selector not substituted: %q", out[1].Selector)
	}
	if out[1].Value != "alice@ex.com" {
		t.Errorf("multi-placeholder value wrong: %q", out[1].Value)
	}
}

func TestSubstituteParams_MissingParamLeavesPlaceholder(t *testing.T) {
	in := []models.Action{
		{Type: models.ActionFill, Selector: "#user", Value: "${name}"},
	}
	out := SubstituteParams(in, map[string]string{})

	if out[0].Value != "${name}" {
		t.Errorf("missing param should leave placeholder intact, got %q", out[0].Value)
	}
}

func TestSubstituteParams_DoesNotMutateInput(t *testing.T) {
	in := []models.Action{
		{Type: models.ActionFill, Selector: "#user", Value: "${name}"},
	}
	_ = SubstituteParams(in, map[string]string{"name": "alice"})

	if in[0].Value != "${name}" {
		t.Errorf("input slice was mutated: %q", in[0].Value)
	}
}

func TestSubstituteParams_TouchesAllTextFields(t *testing.T) {
	in := []models.Action{
		{
			Type:        models.ActionNavigate,
			URL:         "https://ex.com/${page}",
			Description: "go to ${page}",
		},
	}
	out := SubstituteParams(in, map[string]string{"page": "pricing"})

	if out[0].URL != "https://ex.com/pricing" {
		t.Errorf("url not substituted: %q", out[0].URL)
	}
	if out[0].Description != "go to pricing" {
		t.Errorf("description not substituted: %q", out[0].Description)
	}
}

func TestSubstituteParams_IgnoresMalformedPlaceholders(t *testing.T) {
	in := []models.Action{
		{Type: models.ActionFill, Selector: "#a", Value: "$name and ${unclosed"},
	}
	out := SubstituteParams(in, map[string]string{"name": "alice"})

	if out[0].Value != "$name and ${unclosed" {
		t.Errorf("malformed placeholders should pass through, got %q", out[0].Value)
	}
}
