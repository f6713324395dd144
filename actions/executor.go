package actions

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"

	"github.com/use-agent/drover/config"
	"github.com/use-agent/drover/models"
)

// settleDelay is the pause after scrolling an element into view before
// clicking, letting sticky headers and animations land.
const settleDelay = 100 * time.Millisecond

// navPollInterval is the URL-change polling cadence of wait_navigation.
const navPollInterval = 100 * time.Millisecond

// Executor runs action sequences against a page. Each action gets a bounded
// wait for its target element (visible, non-zero box, opacity above zero)
// and its own timeout.
type Executor struct {
	cfg config.ActionsConfig
}

// NewExecutor creates an Executor.
func NewExecutor(cfg config.ActionsConfig) *Executor {
	if cfg.ElementWait <= 0 {
		cfg.ElementWait = 10 * time.Second
	}
	if cfg.ActionTimeout <= 0 {
		cfg.ActionTimeout = 30 * time.Second
	}
	return &Executor{cfg: cfg}
}

// ExecuteSequence runs the actions in order and returns one result per
// executed action, in the same order. A failed action is recorded with its
// error and execution continues; a cancelled context stops the sequence and
// the partial results up to that point are returned.
func (e *Executor) ExecuteSequence(ctx context.Context, page *rod.Page, acts []models.Action) []models.ActionResult {
	results := make([]models.ActionResult, 0, len(acts))
	for _, action := range acts {
		if ctx.Err() != nil {
			break
		}
		results = append(results, e.executeOne(ctx, page, action))
	}
	return results
}

func (e *Executor) executeOne(ctx context.Context, page *rod.Page, action models.Action) models.ActionResult {
	start := time.Now()
	result := models.ActionResult{
		Action:    action,
		Timestamp: start,
	}

	actionCtx, cancel := context.WithTimeout(ctx, e.cfg.ActionTimeout)
	defer cancel()
	p := page.Context(actionCtx)

	err := e.dispatch(actionCtx, p, action, &result)
	result.ElapsedMs = time.Since(start).Milliseconds()
	result.Success = err == nil
	if err != nil {
		result.Error = err.Error()
	}
	result.FinalURL = currentURL(p)
	return result
}

func (e *Executor) dispatch(ctx context.Context, p *rod.Page, action models.Action, result *models.ActionResult) error {
	switch action.Type {
	case models.ActionClick:
		return e.click(p, action.Selector)
	case models.ActionFill:
		return e.fill(p, action.Selector, action.Value)
	case models.ActionSelect:
		return e.selectOption(p, action.Selector, action.Value)
	case models.ActionSubmit:
		return e.submit(ctx, p, action.Selector)
	case models.ActionCheck:
		return e.check(p, action.Selector, action.Checked)
	case models.ActionNavigate:
		return e.navigate(ctx, p, action.URL)
	case models.ActionScroll:
		return e.scroll(p, action.Selector)
	case models.ActionHover:
		return e.hover(p, action.Selector)
	case models.ActionPressKey:
		return e.pressKey(p, action.Selector, action.Key)
	case models.ActionClear:
		return e.clear(p, action.Selector)
	case models.ActionWait:
		return sleepCtx(ctx, time.Duration(action.Milliseconds)*time.Millisecond)
	case models.ActionWaitNavigation:
		return e.waitNavigation(ctx, p, time.Duration(action.Milliseconds)*time.Millisecond)
	case models.ActionScreenshot:
		shot, err := p.Screenshot(false, nil)
		if err != nil {
			return fmt.Errorf("screenshot failed: %w", err)
		}
		result.Screenshot = shot
		return nil
	case models.ActionExtract:
		extracted, err := e.extract(p, action)
		if err != nil {
			return err
		}
		result.Extracted = extracted
		return nil
	default:
		return fmt.Errorf("unknown action type %q", action.Type)
	}
}

// waitElement waits for the selector's element to exist, be visible, have a
// non-zero box, and have a computed opacity above zero, within the
// configured element wait.
func (e *Executor) waitElement(p *rod.Page, selector string) (*rod.Element, error) {
	el, err := p.Timeout(e.cfg.ElementWait).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("element %q not found: %w", selector, err)
	}
	if err := el.WaitVisible(); err != nil {
		return nil, fmt.Errorf("element %q not visible: %w", selector, err)
	}
	if err := el.Wait(rod.Eval(`() => parseFloat(getComputedStyle(this).opacity) > 0`)); err != nil {
		return nil, fmt.Errorf("element %q is fully transparent: %w", selector, err)
	}
	return el, nil
}

func (e *Executor) click(p *rod.Page, selector string) error {
	el, err := e.waitElement(p, selector)
	if err != nil {
		return err
	}
	if err := el.ScrollIntoView(); err != nil {
		return fmt.Errorf("scroll into view failed: %w", err)
	}
	time.Sleep(settleDelay)
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// fill focuses the element, clears it, types the value character by
// character (one input event each), and finishes with change + blur.
func (e *Executor) fill(p *rod.Page, selector, value string) error {
	el, err := e.waitElement(p, selector)
	if err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus failed: %w", err)
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text failed: %w", err)
	}
	if err := el.Input(""); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	for _, r := range value {
		if err := p.InsertText(string(r)); err != nil {
			return fmt.Errorf("input failed: %w", err)
		}
	}
	_, err = el.Eval(`() => {
		this.dispatchEvent(new Event('change', { bubbles: true }));
		this.blur();
	}`)
	return err
}

func (e *Executor) selectOption(p *rod.Page, selector, value string) error {
	el, err := e.waitElement(p, selector)
	if err != nil {
		return err
	}
	_, err = el.Eval(`(v) => {
		this.value = v;
		this.dispatchEvent(new Event('change', { bubbles: true }));
	}`, value)
	return err
}

func (e *Executor) submit(ctx context.Context, p *rod.Page, selector string) error {
	prev := currentURL(p)

	var err error
	if selector != "" {
		var el *rod.Element
		if el, err = e.waitElement(p, selector); err != nil {
			return err
		}
		_, err = el.Eval(`() => {
			const form = this.form || this.closest('form') || this;
			if (form.requestSubmit) form.requestSubmit(); else form.submit();
		}`)
	} else {
		_, err = p.Eval(`() => {
			const form = document.querySelector('form');
			if (!form) throw new Error('no form on page');
			if (form.requestSubmit) form.requestSubmit(); else form.submit();
		}`)
	}
	if err != nil {
		return fmt.Errorf("submit failed: %w", err)
	}
	return e.waitURLChange(ctx, p, prev, e.cfg.ElementWait)
}

func (e *Executor) check(p *rod.Page, selector string, want bool) error {
	el, err := e.waitElement(p, selector)
	if err != nil {
		return err
	}
	// Toggle only when the current state differs.
	_, err = el.Eval(`(want) => {
		if (this.checked !== want) this.click();
	}`, want)
	return err
}

func (e *Executor) navigate(ctx context.Context, p *rod.Page, url string) error {
	prev := currentURL(p)
	if _, err := p.Eval(`(url) => { window.location.assign(url); }`, url); err != nil {
		return fmt.Errorf("navigate failed: %w", err)
	}
	return e.waitURLChange(ctx, p, prev, e.cfg.ElementWait)
}

func (e *Executor) scroll(p *rod.Page, selector string) error {
	if selector != "" {
		el, err := e.waitElement(p, selector)
		if err != nil {
			return err
		}
		return el.ScrollIntoView()
	}
	_, err := p.Eval(`() => window.scrollBy(0, window.innerHeight)`)
	return err
}

func (e *Executor) hover(p *rod.Page, selector string) error {
	el, err := e.waitElement(p, selector)
	if err != nil {
		return err
	}
	return el.Hover()
}

func (e *Executor) pressKey(p *rod.Page, selector, key string) error {
	el, err := e.waitElement(p, selector)
	if err != nil {
		return err
	}
	if err := el.Focus(); err != nil {
		return fmt.Errorf("focus failed: %w", err)
	}
	k, err := keyFromName(key)
	if err != nil {
		return err
	}
	return p.Keyboard.Type(k)
}

func (e *Executor) clear(p *rod.Page, selector string) error {
	el, err := e.waitElement(p, selector)
	if err != nil {
		return err
	}
	if err := el.SelectAllText(); err != nil {
		return fmt.Errorf("select text failed: %w", err)
	}
	_, err = el.Eval(`() => {
		this.value = '';
		this.dispatchEvent(new Event('input', { bubbles: true }));
	}`)
	return err
}

// extract reads text, markup, or an attribute from the target element. When
// a JSON path is given the element's text is parsed as JSON and walked.
func (e *Executor) extract(p *rod.Page, action models.Action) (string, error) {
	el, err := e.waitElement(p, action.Selector)
	if err != nil {
		return "", err
	}

	if action.Attribute != "" {
		val, err := el.Attribute(action.Attribute)
		if err != nil {
			return "", fmt.Errorf("attribute read failed: %w", err)
		}
		if val == nil {
			return "", nil
		}
		return *val, nil
	}

	if strings.EqualFold(action.ExtractKind, "html") {
		return el.HTML()
	}

	text, err := el.Text()
	if err != nil {
		return "", fmt.Errorf("text read failed: %w", err)
	}
	if action.JSONPath != "" {
		return walkJSONPath(text, action.JSONPath)
	}
	return text, nil
}

// waitNavigation polls for a URL change and resolves quietly at the timeout
// if none happens.
func (e *Executor) waitNavigation(ctx context.Context, p *rod.Page, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = e.cfg.ElementWait
	}
	prev := currentURL(p)
	return e.waitURLChange(ctx, p, prev, timeout)
}

func (e *Executor) waitURLChange(ctx context.Context, p *rod.Page, prev string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if err := sleepCtx(ctx, navPollInterval); err != nil {
			return err
		}
		if url := currentURL(p); url != "" && url != prev {
			// Let the new document settle.
			_ = p.Timeout(time.Until(deadline)).WaitLoad()
			return nil
		}
	}
	return nil
}

func currentURL(p *rod.Page) string {
	res, err := p.Eval(`() => window.location.href`)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// keyFromName maps a key name from the wire to a rod input key.
func keyFromName(name string) (input.Key, error) {
	switch name {
	case "Enter":
		return input.Enter, nil
	case "Tab":
		return input.Tab, nil
	case "Escape":
		return input.Escape, nil
	case "Backspace":
		return input.Backspace, nil
	case "ArrowUp":
		return input.ArrowUp, nil
	case "ArrowDown":
		return input.ArrowDown, nil
	case "ArrowLeft":
		return input.ArrowLeft, nil
	case "ArrowRight":
		return input.ArrowRight, nil
	}
	runes := []rune(name)
	if len(runes) == 1 {
		return input.Key(runes[0]), nil
	}
	return 0, fmt.Errorf("unsupported key %q", name)
}

// walkJSONPath resolves a dot path ("a.b.c") inside a JSON document.
func walkJSONPath(doc, path string) (string, error) {
	var current any
	if err := json.Unmarshal([]byte(doc), &current); err != nil {
		return "", fmt.Errorf("element text is not JSON: %w", err)
	}
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", fmt.Errorf("json path %q does not resolve", path)
		}
		current, ok = obj[part]
		if !ok {
			return "", nil
		}
	}
	switch v := current.(type) {
	case string:
		return v, nil
	default:
		encoded, err := json.Marshal(v)
		return string(encoded), err
	}
}
