package models

import (
	"errors"
	"time"
)

// BBox is an axis-aligned box in pixel coordinates of the source frame
type BBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Detection represents a single object found by the detection model
type Detection struct {
	Class string  `json:"class"`
	Score float64 `json:"score"`
	BBox  BBox    `json:"bbox"`
}

// Verdict is the summary published for every annotated frame
type Verdict string

const (
	VerdictPending   Verdict = "pending"
	VerdictPlastic   Verdict = "plastic_detected"
	VerdictNoPlastic Verdict = "no_plastic_detected"
)

// Message returns the user-facing text for the verdict
func (v Verdict) Message() string {
	switch v {
	case VerdictPlastic:
		return "Plastic Detected in Frame!"
	case VerdictNoPlastic:
		return "No Plastic Detected"
	default:
		return "No detection yet."
	}
}

// AnnotationState is the latest result of the frame annotation loop.
// It is replaced on every iteration and never persisted.
type AnnotationState struct {
	RunID      string      `json:"run_id,omitempty"`
	Plastic    bool        `json:"plastic"`
	Verdict    Verdict     `json:"verdict"`
	Message    string      `json:"message"`
	Detections []Detection `json:"detections"`
	FrameID    int64       `json:"frame_id"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Timestamp  time.Time   `json:"timestamp"`

	// Annotated frame as JPEG, present when the canvas can snapshot itself
	Snapshot []byte `json:"-"`
}

// NewAnnotationState builds the state for one annotated frame
func NewAnnotationState(frame *Frame, kept []Detection) AnnotationState {
	verdict := VerdictNoPlastic
	if len(kept) > 0 {
		verdict = VerdictPlastic
	}
	st := AnnotationState{
		Plastic:    len(kept) > 0,
		Verdict:    verdict,
		Message:    verdict.Message(),
		Detections: kept,
		Timestamp:  time.Now(),
	}
	if frame != nil {
		st.FrameID = frame.FrameID
		st.Width = frame.Width
		st.Height = frame.Height
		if !frame.Timestamp.IsZero() {
			st.Timestamp = frame.Timestamp
		}
	}
	return st
}

// PendingState is published before the first frame has been annotated
func PendingState() AnnotationState {
	return AnnotationState{
		Verdict:    VerdictPending,
		Message:    VerdictPending.Message(),
		Detections: []Detection{},
	}
}

// AlertSeverity represents the severity level of alerts
type AlertSeverity string

const (
	AlertSeverityLow    AlertSeverity = "LOW"
	AlertSeverityMedium AlertSeverity = "MEDIUM"
	AlertSeverityHigh   AlertSeverity = "HIGH"
)

// AlertPayload represents the structure sent to NATS when plastic shows up
type AlertPayload struct {
	AlertID     string        `json:"alert_id"`
	StationID   string        `json:"station_id"`
	CameraID    string        `json:"camera_id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Severity    AlertSeverity `json:"severity"`
	Confidence  float64       `json:"confidence"`
	Detections  []Detection   `json:"detections"`
	FrameID     int64         `json:"frame_id"`
	Timestamp   time.Time     `json:"timestamp"`
	Image       string        `json:"image,omitempty"` // annotated frame thumbnail as a JPEG data URL
}

// MessagePublisher interface for publishing alerts
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}

// Detection control errors
var (
	ErrDetectionRunning    = errors.New("detection is already running")
	ErrDetectionNotRunning = errors.New("detection is not running")
)
