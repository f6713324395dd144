package extract

import "testing"

func TestParseHTMLOptions_Defaults(t *testing.T) {
	opts, err := ParseHTMLOptions(nil)
	if err != nil {
		t.Fatalf("ParseHTMLOptions failed: %v", err)
	}
	if !opts.IncludeOuter {
		t.Error("includeOuter should default to true")
	}
	if opts.Multiple || opts.CleanHTML || opts.RemoveScripts || opts.RemoveComments || opts.NormalizeWhitespace || opts.Article {
		t.Error("boolean options should default to false")
	}
	if opts.Format != "html" {
		t.Errorf("format should default to html, got %q", opts.Format)
	}
}

func TestParseHTMLOptions_RecognizedKeys(t *testing.T) {
	opts, err := ParseHTMLOptions(map[string]string{
		"multiple":            "true",
		"includeOuter":        "false",
		"cleanHTML":           "true",
		"removeScripts":       "true",
		"removeComments":      "true",
		"normalizeWhitespace": "true",
		"format":              "markdown",
	})
	if err != nil {
		t.Fatalf("ParseHTMLOptions failed: %v", err)
	}
	if !opts.Multiple || opts.IncludeOuter || !opts.CleanHTML ||
		!opts.RemoveScripts || !opts.RemoveComments || !opts.NormalizeWhitespace {
		t.Errorf("options not parsed: %+v", opts)
	}
	if opts.Format != "markdown" {
		t.Errorf("format: got %q", opts.Format)
	}
}

func TestParseHTMLOptions_BadBool(t *testing.T) {
	if _, err := ParseHTMLOptions(map[string]string{"multiple": "yes please"}); err == nil {
		t.Error("invalid boolean should fail")
	}
}

func TestParseHTMLOptions_UnknownKeysIgnored(t *testing.T) {
	if _, err := ParseHTMLOptions(map[string]string{"somethingElse": "whatever"}); err != nil {
		t.Errorf("unknown keys should be ignored: %v", err)
	}
}

func TestParseJSONOptions_Schema(t *testing.T) {
	opts, err := ParseJSONOptions(map[string]string{
		"multiple": "true",
		"schema":   `{"title": ".title", "href": "a@href"}`,
	})
	if err != nil {
		t.Fatalf("ParseJSONOptions failed: %v", err)
	}
	if !opts.Multiple {
		t.Error("multiple not parsed")
	}
	if opts.Schema["title"] != ".title" || opts.Schema["href"] != "a@href" {
		t.Errorf("schema not parsed: %v", opts.Schema)
	}
}

func TestParseJSONOptions_BadSchema(t *testing.T) {
	if _, err := ParseJSONOptions(map[string]string{"schema": "not json"}); err == nil {
		t.Error("malformed schema should fail")
	}
}
