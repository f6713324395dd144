package models

import (
	"fmt"
	"strings"
)

// ExtractionKind selects the extraction strategy for a request.
type ExtractionKind string

const (
	KindHTML ExtractionKind = "HTML"
	KindCSS  ExtractionKind = "CSS"
	KindJSON ExtractionKind = "JSON"
)

// ParseExtractionKind normalises a user-supplied kind string.
func ParseExtractionKind(s string) (ExtractionKind, error) {
	switch ExtractionKind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindHTML:
		return KindHTML, nil
	case KindCSS:
		return KindCSS, nil
	case KindJSON:
		return KindJSON, nil
	}
	return "", fmt.Errorf("unknown extraction kind %q", s)
}

// WaitPolicy is the condition under which navigation is considered complete.
type WaitPolicy string

const (
	WaitLoad             WaitPolicy = "LOAD"
	WaitDOMContentLoaded WaitPolicy = "DOMCONTENTLOADED"
	WaitNetworkIdle      WaitPolicy = "NETWORKIDLE"
)

// ParseWaitPolicy normalises a user-supplied wait policy, defaulting to LOAD.
func ParseWaitPolicy(s string) (WaitPolicy, error) {
	if strings.TrimSpace(s) == "" {
		return WaitLoad, nil
	}
	switch WaitPolicy(strings.ToUpper(strings.TrimSpace(s))) {
	case WaitLoad:
		return WaitLoad, nil
	case WaitDOMContentLoaded:
		return WaitDOMContentLoaded, nil
	case WaitNetworkIdle:
		return WaitNetworkIdle, nil
	}
	return "", fmt.Errorf("unknown wait policy %q", s)
}

// ExtractionRequest is a value describing one extraction. Its cache
// fingerprint is a deterministic digest over all fields, including the
// options in key-sorted form.
type ExtractionRequest struct {
	// URL is the target page. Required.
	URL string `json:"url" binding:"required"`

	// Kind selects the extraction strategy. Required.
	Kind ExtractionKind `json:"kind" binding:"required"`

	// Selector addresses the elements to extract. Required.
	Selector string `json:"selector" binding:"required"`

	// Wait is the navigation wait policy. Default: LOAD.
	Wait WaitPolicy `json:"wait,omitempty"`

	// Options holds strategy-specific settings. Recognized keys are
	// enumerated per strategy; unknown keys are ignored but still part
	// of the cache fingerprint.
	Options map[string]string `json:"options,omitempty"`
}

// Defaults applies default values to unset fields.
func (r *ExtractionRequest) Defaults() {
	if r.Wait == "" {
		r.Wait = WaitLoad
	}
}

// Validate checks required fields. Validation errors are never retried.
func (r *ExtractionRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return NewServiceError(ErrCodeInvalidInput, "url must not be empty", nil)
	}
	if strings.TrimSpace(r.Selector) == "" {
		return NewServiceError(ErrCodeInvalidInput, "selector must not be empty", nil)
	}
	switch r.Kind {
	case KindHTML, KindCSS, KindJSON:
	default:
		return NewServiceError(ErrCodeInvalidInput,
			fmt.Sprintf("kind must be one of HTML, CSS, JSON (got %q)", r.Kind), nil)
	}
	switch r.Wait {
	case WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle:
	default:
		return NewServiceError(ErrCodeInvalidInput,
			fmt.Sprintf("unknown wait policy %q", r.Wait), nil)
	}
	return nil
}

// ExtractionResult is the output of a strategy run.
type ExtractionResult struct {
	// Data is the extracted payload: HTML/CSS text or JSON text.
	Data string `json:"data"`

	// Kind echoes the request kind.
	Kind ExtractionKind `json:"kind"`

	// Selector echoes the request selector.
	Selector string `json:"selector"`

	// ElapsedMs is the end-to-end duration in milliseconds.
	ElapsedMs int64 `json:"elapsed_ms"`

	// Metadata carries strategy-specific details (element counts, sizes).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// CacheInfo reports how the cache treated a request.
type CacheInfo struct {
	Hit       bool   `json:"hit"`
	Key       string `json:"key"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// ExtractionResponse is the full API response for an extraction.
type ExtractionResponse struct {
	Success bool              `json:"success"`
	Result  *ExtractionResult `json:"result,omitempty"`
	Cache   *CacheInfo        `json:"cache,omitempty"`
	Error   *ErrorDetail      `json:"error,omitempty"`
}
