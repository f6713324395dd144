package recorder

import (
	"strings"

	"github.com/use-agent/drover/models"
)

// captureScript is installed at page init (and therefore reinstalled on
// every navigation). It generates a best-effort stable selector for each
// event target, debounces input at 500 ms, and posts one message per
// captured event through the exposed callback.
//
// Selector priority: data-testid → aria-label (≤50 chars) → tag+role →
// semantic id → name attribute on form elements → unique text content for
// interactive elements (expressed as the bare tag when the text is unique
// among that tag and the element is the first of its tag) → structural CSS path with utility-class filtering and
// :nth-of-type disambiguation, capped at 10 levels.
const captureScript = `(() => {
	if (window.__recorderInstalled) return;
	window.__recorderInstalled = true;

	const INPUT_DEBOUNCE_MS = 500;
	const MAX_PATH_LEVELS = 10;
	const UTILITY_CLASS = /^(?:p|m|px|py|pt|pb|pl|pr|mx|my|mt|mb|ml|mr|w|h|min|max|text|bg|flex|grid|gap|items|justify|rounded|border|shadow|font|leading|tracking|space|col|row|sm|md|lg|xl|hover|focus|btn|d|order|align|position|top|left|right|bottom|z|opacity|overflow|transition|duration)(?:-|$)/;

	const esc = (s) => (window.CSS && CSS.escape) ? CSS.escape(s) : s;

	function semanticId(el) {
		const id = el.id;
		if (!id || id.length > 30) return null;
		if (/^\d/.test(id)) return null;
		if (/\d{5,}/.test(id)) return null;
		return '#' + esc(id);
	}

	function filteredClasses(el) {
		return Array.from(el.classList).filter(c => !UTILITY_CLASS.test(c)).slice(0, 2);
	}

	function nthOfType(el) {
		let i = 1, sib = el;
		while ((sib = sib.previousElementSibling)) {
			if (sib.tagName === el.tagName) i++;
		}
		return i;
	}

	function levelSelector(el) {
		let sel = el.tagName.toLowerCase();
		const classes = filteredClasses(el);
		if (classes.length) sel += '.' + classes.map(esc).join('.');
		const parent = el.parentElement;
		if (parent) {
			const same = Array.from(parent.children).filter(c => c.tagName === el.tagName);
			if (same.length > 1) sel += ':nth-of-type(' + nthOfType(el) + ')';
		}
		return sel;
	}

	function structuralPath(el) {
		const parts = [];
		let cur = el;
		while (cur && cur.nodeType === 1 && parts.length < MAX_PATH_LEVELS) {
			const id = semanticId(cur);
			if (id) { parts.unshift(id); break; }
			parts.unshift(levelSelector(cur));
			if (cur.tagName === 'BODY') break;
			cur = cur.parentElement;
		}
		return parts.join(' > ');
	}

	const FORM_TAGS = ['INPUT', 'SELECT', 'TEXTAREA', 'BUTTON'];
	const INTERACTIVE_TAGS = ['A', 'BUTTON', 'SUMMARY', 'LABEL'];

	function stableSelector(el) {
		if (!el || el.nodeType !== 1) return '';

		const testid = el.getAttribute('data-testid');
		if (testid) return '[data-testid="' + testid + '"]';

		const aria = el.getAttribute('aria-label');
		if (aria && aria.length <= 50) {
			return el.tagName.toLowerCase() + '[aria-label="' + aria + '"]';
		}

		const role = el.getAttribute('role');
		if (role) return el.tagName.toLowerCase() + '[role="' + role + '"]';

		const id = semanticId(el);
		if (id) return id;

		const name = el.getAttribute('name');
		if (name && FORM_TAGS.includes(el.tagName)) {
			return el.tagName.toLowerCase() + '[name="' + name + '"]';
		}

		if (INTERACTIVE_TAGS.includes(el.tagName)) {
			const text = (el.textContent || '').trim();
			if (text && text.length <= 50) {
				const tag = el.tagName.toLowerCase();
				const same = Array.from(document.querySelectorAll(tag))
					.filter(o => (o.textContent || '').trim() === text);
				if (same.length === 1 && document.querySelector(tag) === el) return tag;
			}
		}

		return structuralPath(el);
	}

	function post(type, el, value) {
		const msg = {
			type: type,
			selector: stableSelector(el),
			timestamp: Date.now()
		};
		if (value !== undefined) msg.value = value;
		if (window.__recorderEmit) window.__recorderEmit(msg);
	}

	const inputTimers = new Map();

	document.addEventListener('click', (e) => {
		post('click', e.target);
	}, true);

	document.addEventListener('input', (e) => {
		const el = e.target;
		const prev = inputTimers.get(el);
		if (prev) clearTimeout(prev);
		inputTimers.set(el, setTimeout(() => {
			inputTimers.delete(el);
			post('input', el, el.value != null ? String(el.value) : '');
		}, INPUT_DEBOUNCE_MS));
	}, true);

	document.addEventListener('change', (e) => {
		if (e.target.tagName === 'SELECT') {
			post('change', e.target, e.target.value);
		}
	}, true);

	document.addEventListener('submit', (e) => {
		post('submit', e.target);
	}, true);

	document.addEventListener('keydown', (e) => {
		if (e.key !== 'Enter') return;
		const el = e.target;
		if (el.tagName !== 'INPUT' && el.tagName !== 'TEXTAREA') return;
		// Flush the pending debounced input so ordering stays Fill → PressKey.
		const prev = inputTimers.get(el);
		if (prev) {
			clearTimeout(prev);
			inputTimers.delete(el);
			post('input', el, el.value != null ? String(el.value) : '');
		}
		post('keydown', el, 'Enter');
	}, true);
})()`

// eventToAction converts one captured in-page event to an Action. Unmapped
// event types are dropped (nil return).
func eventToAction(ev models.CapturedEvent) *models.Action {
	switch ev.Type {
	case "click":
		return &models.Action{Type: models.ActionClick, Selector: ev.Selector}
	case "input":
		return &models.Action{Type: models.ActionFill, Selector: ev.Selector, Value: ev.Value}
	case "change":
		return &models.Action{Type: models.ActionSelect, Selector: ev.Selector, Value: ev.Value}
	case "submit":
		return &models.Action{Type: models.ActionSubmit, Selector: ev.Selector}
	case "keydown":
		if strings.EqualFold(ev.Value, "enter") {
			return &models.Action{Type: models.ActionPressKey, Selector: ev.Selector, Key: "Enter"}
		}
		return nil
	default:
		return nil
	}
}
