package recorder

import (
	"encoding/json"
	"time"

	"github.com/go-rod/rod"

	"github.com/use-agent/drover/models"
)

// snapshotJS serializes the live DOM. Every element on the clone carries a
// data-computed-style attribute: base64-encoded JSON of the fixed
// layout-critical property set. XMLSerializer keeps self-closing tags.
// Stylesheet bodies are collected where readable; cross-origin sheets keep
// their URL with an empty body.
const snapshotJS = `() => {
	const PROPS = ['width', 'height', 'display', 'position', 'top', 'left',
		'transform', 'backgroundColor', 'color', 'fontSize', 'fontFamily',
		'fontWeight', 'padding', 'margin', 'border', 'zIndex', 'opacity'];

	const clone = document.documentElement.cloneNode(true);
	const live = [document.documentElement, ...document.documentElement.querySelectorAll('*')];
	const copies = [clone, ...clone.querySelectorAll('*')];
	const n = Math.min(live.length, copies.length);
	for (let i = 0; i < n; i++) {
		const cs = getComputedStyle(live[i]);
		const style = {};
		for (const p of PROPS) style[p] = cs[p];
		copies[i].setAttribute('data-computed-style',
			btoa(unescape(encodeURIComponent(JSON.stringify(style)))));
	}
	clone.querySelectorAll('script').forEach(s => s.remove());

	const sheets = [];
	for (const sheet of document.styleSheets) {
		try {
			let body = '';
			for (const rule of sheet.cssRules) body += rule.cssText + '\n';
			sheets.push({ url: sheet.href || '', body: body });
		} catch (e) {
			sheets.push({ url: sheet.href || '', body: '' });
		}
	}

	return {
		url: location.href,
		html: new XMLSerializer().serializeToString(clone),
		stylesheets: sheets,
		viewport: {
			width: window.innerWidth,
			height: window.innerHeight,
			dpr: window.devicePixelRatio
		},
		scroll: { x: Math.round(window.scrollX), y: Math.round(window.scrollY) }
	};
}`

// rawSnapshot matches the snapshotJS return shape.
type rawSnapshot struct {
	URL         string              `json:"url"`
	HTML        string              `json:"html"`
	Stylesheets []models.Stylesheet `json:"stylesheets"`
	Viewport    models.Viewport     `json:"viewport"`
	Scroll      models.ScrollPosition `json:"scroll"`
}

// captureSnapshot takes one DomSnapshot from the page. seq is assigned by
// the caller so numbering stays monotone per session.
func captureSnapshot(page *rod.Page, seq int64) (*models.DomSnapshot, error) {
	res, err := page.Eval(snapshotJS)
	if err != nil {
		return nil, err
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var snap rawSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}

	size := len(snap.HTML)
	for _, sheet := range snap.Stylesheets {
		size += len(sheet.Body)
	}

	return &models.DomSnapshot{
		Seq:         seq,
		Timestamp:   time.Now(),
		URL:         snap.URL,
		HTML:        snap.HTML,
		Stylesheets: snap.Stylesheets,
		Viewport:    snap.Viewport,
		Scroll:      snap.Scroll,
		ByteSize:    size,
	}, nil
}
