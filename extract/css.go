package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-rod/rod"

	"github.com/use-agent/drover/models"
)

// cssCollectJS gathers, for every element matching the selector: its inline
// style, every stylesheet rule whose selector matches it (walking into media
// queries and preserving the condition), and the custom properties declared
// on :root. Cross-origin stylesheets whose rules are unreadable are skipped.
const cssCollectJS = `(sel) => {
	const els = Array.from(document.querySelectorAll(sel));
	const out = { elementCount: els.length, rules: [], inline: [], custom: {} };
	if (els.length === 0) return out;

	const rootStyle = getComputedStyle(document.documentElement);
	for (let i = 0; i < rootStyle.length; i++) {
		const name = rootStyle[i];
		if (name.startsWith('--')) {
			out.custom[name] = rootStyle.getPropertyValue(name).trim();
		}
	}

	const collect = (rules, media) => {
		for (const rule of rules) {
			if (rule.type === CSSRule.MEDIA_RULE) {
				collect(rule.cssRules, rule.conditionText || rule.media.mediaText);
			} else if (rule.type === CSSRule.STYLE_RULE) {
				let matched = false;
				try { matched = els.some(el => el.matches(rule.selectorText)); } catch (e) {}
				if (matched) {
					out.rules.push({
						selector: rule.selectorText,
						declarations: rule.style.cssText,
						media: media || ''
					});
				}
			}
		}
	};
	for (const sheet of document.styleSheets) {
		let rules = null;
		try { rules = sheet.cssRules; } catch (e) { continue; }
		if (rules) collect(rules, '');
	}

	els.forEach((el, i) => {
		const inline = el.getAttribute('style');
		if (inline) out.inline.push({ index: i, declarations: inline });
	});
	return out;
}`

// cssRule is one matched stylesheet rule.
type cssRule struct {
	Selector     string `json:"selector"`
	Declarations string `json:"declarations"`
	Media        string `json:"media,omitempty"`
}

type cssInline struct {
	Index        int    `json:"index"`
	Declarations string `json:"declarations"`
}

type cssCollection struct {
	ElementCount int               `json:"elementCount"`
	Rules        []cssRule         `json:"rules"`
	Inline       []cssInline       `json:"inline"`
	Custom       map[string]string `json:"custom"`
}

// CSSStrategy collects the styles applying to matched elements.
type CSSStrategy struct{}

// NewCSSStrategy creates the CSS strategy.
func NewCSSStrategy() *CSSStrategy { return &CSSStrategy{} }

// Kind implements Strategy.
func (s *CSSStrategy) Kind() models.ExtractionKind { return models.KindCSS }

// Extract implements Strategy. The output is de-duplicated by the tuple
// (selector, declarations, media) and rendered as CSS text or JSON per the
// format option.
func (s *CSSStrategy) Extract(ctx context.Context, page *rod.Page, selector string, options map[string]string) (*models.ExtractionResult, error) {
	opts, err := ParseCSSOptions(options)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err)
	}

	p := page.Context(ctx)
	res, err := p.Eval(cssCollectJS, selector)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to collect styles", err)
	}

	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to decode style collection", err)
	}
	var coll cssCollection
	if err := json.Unmarshal(raw, &coll); err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to decode style collection", err)
	}

	coll.Rules = dedupeRules(coll.Rules)

	var data string
	if opts.Format == "json" {
		encoded, err := json.Marshal(map[string]any{
			"rules":            coll.Rules,
			"inline":           coll.Inline,
			"customProperties": coll.Custom,
		})
		if err != nil {
			return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to encode styles", err)
		}
		data = string(encoded)
	} else {
		data = renderCSSText(coll)
	}

	return &models.ExtractionResult{
		Data:     data,
		Kind:     models.KindCSS,
		Selector: selector,
		Metadata: map[string]any{
			"elementCount": coll.ElementCount,
			"ruleCount":    len(coll.Rules),
			"dataLength":   len(data),
		},
	}, nil
}

// dedupeRules removes duplicate (selector, declarations, media) tuples,
// preserving first-seen order.
func dedupeRules(rules []cssRule) []cssRule {
	seen := make(map[string]struct{}, len(rules))
	out := rules[:0]
	for _, r := range rules {
		key := r.Selector + "\x00" + r.Declarations + "\x00" + r.Media
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// renderCSSText renders the collection as a stylesheet: custom properties
// first, then plain rules, then media-scoped rules, then inline styles as
// comments attached to their element index.
func renderCSSText(coll cssCollection) string {
	var b strings.Builder

	if len(coll.Custom) > 0 {
		names := make([]string, 0, len(coll.Custom))
		for name := range coll.Custom {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString(":root {\n")
		for _, name := range names {
			fmt.Fprintf(&b, "  %s: %s;\n", name, coll.Custom[name])
		}
		b.WriteString("}\n")
	}

	for _, r := range coll.Rules {
		if r.Media != "" {
			continue
		}
		fmt.Fprintf(&b, "%s { %s }\n", r.Selector, r.Declarations)
	}
	for _, r := range coll.Rules {
		if r.Media == "" {
			continue
		}
		fmt.Fprintf(&b, "@media %s {\n  %s { %s }\n}\n", r.Media, r.Selector, r.Declarations)
	}

	for _, inline := range coll.Inline {
		fmt.Fprintf(&b, "/* element %d inline */ { %s }\n", inline.Index, inline.Declarations)
	}

	return strings.TrimRight(b.String(), "\n")
}
