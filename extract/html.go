package extract

import (
	"context"
	"encoding/json"
	"log/slog"
	nurl "net/url"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/go-rod/rod"
	readability "github.com/go-shiori/go-readability"

	"github.com/use-agent/drover/models"
)

// htmlCollectJS gathers matched elements' markup in document order.
const htmlCollectJS = `(sel, outer, all) => {
	const els = Array.from(document.querySelectorAll(sel));
	const take = all ? els : els.slice(0, 1);
	return take.map(el => outer ? el.outerHTML : el.innerHTML);
}`

// HTMLStrategy extracts element markup with optional cleanup and rendering.
type HTMLStrategy struct {
	md *converter.Converter
}

// NewHTMLStrategy creates the HTML strategy with a reusable, goroutine-safe
// markdown converter.
func NewHTMLStrategy() *HTMLStrategy {
	return &HTMLStrategy{
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Kind implements Strategy.
func (s *HTMLStrategy) Kind() models.ExtractionKind { return models.KindHTML }

// Extract implements Strategy. Zero matches yield empty data with
// elementCount=0, never an error.
func (s *HTMLStrategy) Extract(ctx context.Context, page *rod.Page, selector string, options map[string]string) (*models.ExtractionResult, error) {
	opts, err := ParseHTMLOptions(options)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeInvalidInput, err.Error(), err)
	}

	p := page.Context(ctx)
	res, err := p.Eval(htmlCollectJS, selector, opts.IncludeOuter, opts.Multiple)
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to collect element markup", err)
	}

	var fragments []string
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to decode element markup", err)
	}
	if err := json.Unmarshal(raw, &fragments); err != nil {
		return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to decode element markup", err)
	}

	// Multiple matches are joined with a newline: document order, stable.
	data := strings.Join(fragments, "\n")

	if data != "" {
		if data, err = cleanMarkup(data, opts); err != nil {
			return nil, models.NewServiceError(models.ErrCodeExtraction, "failed to clean markup", err)
		}
		if opts.Article {
			data = s.isolateArticle(data, p)
		}
		if opts.Format == "markdown" {
			md, convErr := s.md.ConvertString(data)
			if convErr != nil {
				return nil, models.NewServiceError(models.ErrCodeExtraction, "markdown conversion failed", convErr)
			}
			data = md
		}
	}

	return &models.ExtractionResult{
		Data:     data,
		Kind:     models.KindHTML,
		Selector: selector,
		Metadata: map[string]any{
			"elementCount": len(fragments),
			"dataLength":   len(data),
		},
	}, nil
}

// isolateArticle runs the readability algorithm over the extracted markup.
// Falls back to the input when extraction fails or finds nothing usable.
func (s *HTMLStrategy) isolateArticle(fragment string, page *rod.Page) string {
	pageURL := "about:blank"
	if info, err := page.Info(); err == nil && info.URL != "" {
		pageURL = info.URL
	}
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return fragment
	}
	article, err := readability.FromReader(strings.NewReader(fragment), parsed)
	if err != nil || strings.TrimSpace(article.Content) == "" {
		slog.Debug("readability found no article content, keeping raw markup", "url", pageURL)
		return fragment
	}
	return article.Content
}
