package models

import "time"

// RecorderState is the lifecycle state of a recorder session.
type RecorderState string

const (
	RecorderCreated   RecorderState = "created"
	RecorderRecording RecorderState = "recording"
	RecorderStopped   RecorderState = "stopped"
	RecorderClosed    RecorderState = "closed"
)

// Frame rate bounds for snapshot streaming.
const (
	RecorderMinFPS     = 1
	RecorderMaxFPS     = 30
	RecorderDefaultFPS = 5
)

// RecorderSessionInfo is the API-facing view of a recorder session.
type RecorderSessionInfo struct {
	ID             string        `json:"id"`
	BrowserSession string        `json:"browser_session_id"`
	URL            string        `json:"url"`
	State          RecorderState `json:"state"`
	FrameRate      int           `json:"frame_rate"`
	ActionCount    int           `json:"action_count"`
	CreatedAt      time.Time     `json:"created_at"`
	LastActivityAt time.Time     `json:"last_activity_at"`
}

// CapturedEvent is one raw event posted by the in-page capture script.
type CapturedEvent struct {
	Type      string `json:"type"`
	Selector  string `json:"selector"`
	Value     string `json:"value,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Viewport describes the page viewport at snapshot time.
type Viewport struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	DPR    float64 `json:"dpr"`
}

// ScrollPosition is the page scroll offset at snapshot time.
type ScrollPosition struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Stylesheet is one collected stylesheet: its URL, its body, or both.
type Stylesheet struct {
	URL  string `json:"url,omitempty"`
	Body string `json:"body,omitempty"`
}

// DomSnapshot is one frame of the recorder stream: the serialized DOM with
// layout-critical computed styles attached, plus viewport and scroll state.
// Seq increases monotonically within a session.
type DomSnapshot struct {
	Seq         int64          `json:"seq"`
	Timestamp   time.Time      `json:"timestamp"`
	URL         string         `json:"url"`
	HTML        string         `json:"html"`
	Stylesheets []Stylesheet   `json:"stylesheets,omitempty"`
	Viewport    Viewport       `json:"viewport"`
	Scroll      ScrollPosition `json:"scroll"`
	ByteSize    int            `json:"byte_size"`
}

// CreateRecorderRequest is the payload for creating a recorder session.
type CreateRecorderRequest struct {
	URL       string `json:"url" binding:"required"`
	FrameRate int    `json:"frame_rate,omitempty"`
}

// CreateRecorderResponse returns the new session id and its topics.
type CreateRecorderResponse struct {
	Success bool                 `json:"success"`
	Session *RecorderSessionInfo `json:"session,omitempty"`
	Topics  map[string]string    `json:"topics,omitempty"`
	Error   *ErrorDetail         `json:"error,omitempty"`
}
