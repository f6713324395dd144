package models

import "testing"

func TestExtractionRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ExtractionRequest
		wantErr bool
	}{
		{"valid", ExtractionRequest{URL: "https://ex.com", Kind: KindHTML, Selector: "h1", Wait: WaitLoad}, false},
		{"empty url", ExtractionRequest{Kind: KindHTML, Selector: "h1", Wait: WaitLoad}, true},
		{"empty selector", ExtractionRequest{URL: "https://ex.com", Kind: KindHTML, Wait: WaitLoad}, true},
		{"bad kind", ExtractionRequest{URL: "https://ex.com", Kind: "XML", Selector: "h1", Wait: WaitLoad}, true},
		{"bad wait", ExtractionRequest{URL: "https://ex.com", Kind: KindCSS, Selector: "h1", Wait: "EVENTUALLY"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestExtractionRequest_DefaultsWait(t *testing.T) {
	req := ExtractionRequest{URL: "https://ex.com", Kind: KindHTML, Selector: "h1"}
	req.Defaults()
	if req.Wait != WaitLoad {
		t.Errorf("default wait: got %q, want LOAD", req.Wait)
	}
}

func TestParseExtractionKind(t *testing.T) {
	if k, err := ParseExtractionKind("html"); err != nil || k != KindHTML {
		t.Errorf("lowercase kind should parse: %v %v", k, err)
	}
	if _, err := ParseExtractionKind("yaml"); err == nil {
		t.Error("unknown kind should fail")
	}
}

func TestParseWaitPolicy(t *testing.T) {
	if w, err := ParseWaitPolicy(""); err != nil || w != WaitLoad {
		t.Errorf("empty wait should default to LOAD: %v %v", w, err)
	}
	if w, err := ParseWaitPolicy("networkidle"); err != nil || w != WaitNetworkIdle {
		t.Errorf("lowercase wait should parse: %v %v", w, err)
	}
	if _, err := ParseWaitPolicy("whenever"); err == nil {
		t.Error("unknown wait should fail")
	}
}
