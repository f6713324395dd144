package extract

import (
	"context"
	"encoding/json"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"

	"github.com/use-agent/drover/models"
)

// JSONStrategy applies a field→selector schema against the root selector's
// matches and emits structured JSON. The heavy lifting runs server-side over
// the extracted markup, so the mapping is deterministic and testable without
// a browser.
type JSONStrategy struct{}

// NewJSONStrategy creates the JSON strategy.
func NewJSONStrategy() *JSONStrategy { return &JSONStrategy{} }

// Kind implements Strategy.
func (s *JSONStrategy) Kind() models.ExtractionKind { return models.KindJSON }

// Extract implements Strategy. Missing fields become empty strings, never
// errors; zero root matches yield "[]" or "{}" with elementCount=0.
func (s *JSONStrategy) Extract(ctx context.Context, page *rod.Page, selector string, options map[string]string) (*models.ExtractionResult, error) {
	opts, err := ParseJSONOptions(options)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err)
	}

	p := page.Context(ctx)
	res, err := p.Eval(htmlCollectJS, selector, true, true)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to collect element markup", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to decode element markup", err)
	}
	var fragments []string
	if err := json.Unmarshal(raw, &fragments); err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to decode element markup", err)
	}

	data, err := MapFragments(fragments, opts)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to map fields", err)
	}

	return &models.ExtractionResult{
		Data:     data,
		Kind:     models.KindJSON,
		Selector: selector,
		Metadata: map[string]any{
			"elementCount": len(fragments),
			"fieldCount":   len(opts.Schema),
		},
	}, nil
}

// MapFragments applies the schema to each root fragment and renders the
// JSON payload: an array when multiple is set, otherwise the first object.
func MapFragments(fragments []string, opts JSONOptions) (string, error) {
	objects := make([]map[string]any, 0, len(fragments))
	for _, fragment := range fragments {
		obj, err := mapFragment(fragment, opts.Schema)
		if err != nil {
			return "", err
		}
		objects = append(objects, obj)
		if !opts.Multiple {
			break
		}
	}

	if opts.Multiple {
		encoded, err := json.Marshal(objects)
		return string(encoded), err
	}
	if len(objects) == 0 {
		return "{}", nil
	}
	encoded, err := json.Marshal(objects[0])
	return string(encoded), err
}

// mapFragment maps one root element's markup. With a schema each field's
// selector (with optional @attribute suffix) is resolved inside the root;
// without one the default {text, html, attributes} shape is produced.
func mapFragment(fragment string, schema map[string]string) (map[string]any, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return nil, err
	}
	root := doc.Find("body").Children().First()

	if len(schema) == 0 {
		attrs := make(map[string]string)
		if len(root.Nodes) > 0 {
			for _, attr := range root.Nodes[0].Attr {
				attrs[attr.Key] = attr.Val
			}
		}
		inner, _ := root.Html()
		return map[string]any{
			"text":       strings.TrimSpace(root.Text()),
			"html":       inner,
			"attributes": attrs,
		}, nil
	}

	obj := make(map[string]any, len(schema))
	fields := make([]string, 0, len(schema))
	for field := range schema {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	for _, field := range fields {
		sel, attr := splitAttrSuffix(schema[field])

		var target *goquery.Selection
		if sel == "" || sel == "." {
			target = root
		} else {
			target = root.Find(sel).First()
		}
		if target.Length() == 0 {
			obj[field] = ""
			continue
		}
		if attr != "" {
			val, _ := target.Attr(attr)
			obj[field] = val
			continue
		}
		obj[field] = strings.TrimSpace(target.Text())
	}
	return obj, nil
}

// splitAttrSuffix splits "a.link@href" into ("a.link", "href"). A lone
// selector has no attribute part.
func splitAttrSuffix(s string) (selector, attr string) {
	if i := strings.LastIndex(s, "@"); i >= 0 {
		return strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])
	}
	return strings.TrimSpace(s), ""
}
