// Package extract implements the extraction pipeline: one strategy per
// extraction kind dispatched through an explicit registry, coordinated with
// the session pool and the response cache.
package extract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// HTMLOptions are the recognized options of the HTML strategy.
type HTMLOptions struct {
	// Multiple extracts all matches instead of the first.
	Multiple bool

	// IncludeOuter selects outer vs inner HTML. Default: outer.
	IncludeOuter bool

	// CleanHTML collapses runs of whitespace between tags.
	CleanHTML bool

	// RemoveScripts drops <script> elements.
	RemoveScripts bool

	// RemoveComments drops comment nodes.
	RemoveComments bool

	// NormalizeWhitespace collapses whitespace inside text nodes.
	NormalizeWhitespace bool

	// Format renders the result as "html" (default) or "markdown".
	Format string

	// Article isolates the main readable content before rendering.
	Article bool
}

// ParseHTMLOptions reads the recognized keys from a raw option map.
// Unknown keys are ignored (they still participate in the cache key).
func ParseHTMLOptions(raw map[string]string) (HTMLOptions, error) {
	opts := HTMLOptions{IncludeOuter: true, Format: "html"}
	var err error
	if opts.Multiple, err = boolOpt(raw, "multiple", false); err != nil {
		return opts, err
	}
	if opts.IncludeOuter, err = boolOpt(raw, "includeOuter", true); err != nil {
		return opts, err
	}
	if opts.CleanHTML, err = boolOpt(raw, "cleanHTML", false); err != nil {
		return opts, err
	}
	if opts.RemoveScripts, err = boolOpt(raw, "removeScripts", false); err != nil {
		return opts, err
	}
	if opts.RemoveComments, err = boolOpt(raw, "removeComments", false); err != nil {
		return opts, err
	}
	if opts.NormalizeWhitespace, err = boolOpt(raw, "normalizeWhitespace", false); err != nil {
		return opts, err
	}
	if opts.Article, err = boolOpt(raw, "article", false); err != nil {
		return opts, err
	}
	if v, ok := raw["format"]; ok {
		switch v {
		case "html", "markdown":
			opts.Format = v
		default:
			return opts, fmt.Errorf("option format must be html or markdown (got %q)", v)
		}
	}
	return opts, nil
}

// CSSOptions are the recognized options of the CSS strategy.
type CSSOptions struct {
	// Format renders the result as "text" (default) or "json".
	Format string
}

// ParseCSSOptions reads the recognized keys from a raw option map.
func ParseCSSOptions(raw map[string]string) (CSSOptions, error) {
	opts := CSSOptions{Format: "text"}
	if v, ok := raw["format"]; ok {
		switch v {
		case "text", "json":
			opts.Format = v
		default:
			return opts, fmt.Errorf("option format must be text or json (got %q)", v)
		}
	}
	return opts, nil
}

// JSONOptions are the recognized options of the JSON strategy.
type JSONOptions struct {
	// Multiple yields an array with one object per root match.
	Multiple bool

	// Schema maps output fields to selectors, each with an optional
	// "@attribute" suffix. When absent the strategy emits the default
	// {text, html, attributes} shape.
	Schema map[string]string
}

// ParseJSONOptions reads the recognized keys from a raw option map.
// The schema arrives as a JSON object under the "schema" key.
func ParseJSONOptions(raw map[string]string) (JSONOptions, error) {
	opts := JSONOptions{}
	var err error
	if opts.Multiple, err = boolOpt(raw, "multiple", false); err != nil {
		return opts, err
	}
	if v, ok := raw["schema"]; ok && strings.TrimSpace(v) != "" {
		if err := json.Unmarshal([]byte(v), &opts.Schema); err != nil {
			return opts, fmt.Errorf("option schema is not a JSON object of field to selector: %w", err)
		}
	}
	return opts, nil
}

func boolOpt(raw map[string]string, key string, fallback bool) (bool, error) {
	v, ok := raw[key]
	if !ok || v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("option %s must be a boolean (got %q)", key, v)
	}
	return b, nil
}
