package models

import (
	"fmt"
	"strings"
	"time"
)

// ActionType identifies one atomic user-level operation against a page.
type ActionType string

const (
	ActionClick          ActionType = "click"
	ActionFill           ActionType = "fill"
	ActionSelect         ActionType = "select"
	ActionSubmit         ActionType = "submit"
	ActionCheck          ActionType = "check"
	ActionNavigate       ActionType = "navigate"
	ActionScroll         ActionType = "scroll"
	ActionHover          ActionType = "hover"
	ActionPressKey       ActionType = "press_key"
	ActionClear          ActionType = "clear"
	ActionWait           ActionType = "wait"
	ActionWaitNavigation ActionType = "wait_navigation"
	ActionScreenshot     ActionType = "screenshot"
	ActionExtract        ActionType = "extract"
)

// selectorRequired lists the action types that cannot run without a selector.
var selectorRequired = map[ActionType]bool{
	ActionClick:    true,
	ActionFill:     true,
	ActionSelect:   true,
	ActionCheck:    true,
	ActionHover:    true,
	ActionPressKey: true,
	ActionClear:    true,
	ActionExtract:  true,
}

// Action is one step of an action sequence. It is a tagged variant: Type
// decides which of the optional fields are meaningful.
type Action struct {
	Type ActionType `json:"type"`

	// Selector addresses the target element. Optional for some types.
	Selector string `json:"selector,omitempty"`

	// Value is the input for fill and select.
	Value string `json:"value,omitempty"`

	// URL is the target for navigate.
	URL string `json:"url,omitempty"`

	// Key is the key name for press_key (e.g. "Enter").
	Key string `json:"key,omitempty"`

	// Checked is the desired state for check.
	Checked bool `json:"checked,omitempty"`

	// Milliseconds is the duration for wait and wait_navigation.
	Milliseconds int `json:"milliseconds,omitempty"`

	// ExtractKind, Attribute and JSONPath configure the extract action.
	ExtractKind string `json:"extract_kind,omitempty"`
	Attribute   string `json:"attribute,omitempty"`
	JSONPath    string `json:"json_path,omitempty"`

	// Description is a human-readable label carried through to results.
	Description string `json:"description,omitempty"`
}

// Validate checks that the action is well-formed for its type.
func (a Action) Validate() error {
	switch a.Type {
	case ActionClick, ActionFill, ActionSelect, ActionSubmit, ActionCheck,
		ActionNavigate, ActionScroll, ActionHover, ActionPressKey,
		ActionClear, ActionWait, ActionWaitNavigation, ActionScreenshot,
		ActionExtract:
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	if selectorRequired[a.Type] && strings.TrimSpace(a.Selector) == "" {
		return fmt.Errorf("action %q requires a selector", a.Type)
	}
	if a.Type == ActionNavigate && strings.TrimSpace(a.URL) == "" {
		return fmt.Errorf("navigate action requires a url")
	}
	if a.Type == ActionPressKey && strings.TrimSpace(a.Key) == "" {
		return fmt.Errorf("press_key action requires a key")
	}
	return nil
}

// ActionResult records the outcome of one executed action. A failed action
// carries its error; the sequence continues regardless.
type ActionResult struct {
	Action     Action    `json:"action"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	ElapsedMs  int64     `json:"elapsed_ms"`
	Screenshot []byte    `json:"screenshot,omitempty"`
	Extracted  string    `json:"extracted,omitempty"`
	FinalURL   string    `json:"final_url,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ActionSequenceRequest is the payload for running an ad-hoc action sequence.
type ActionSequenceRequest struct {
	URL     string            `json:"url" binding:"required"`
	Actions []Action          `json:"actions" binding:"required"`
	Wait    WaitPolicy        `json:"wait,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
}

// ActionSequenceResponse reports per-action results in request order.
type ActionSequenceResponse struct {
	Success  bool           `json:"success"`
	Results  []ActionResult `json:"results,omitempty"`
	FinalURL string         `json:"final_url,omitempty"`
	Error    *ErrorDetail   `json:"error,omitempty"`
}
