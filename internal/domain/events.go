package domain

// EventType tags a WheelEvent.
type EventType string

const (
	EventAngle  EventType = "angle"
	EventResult EventType = "result"
	EventAnswer EventType = "answerResult"
	EventState  EventType = "state"
)

// AngleFrame is one per-tick wheel position update.
type AngleFrame struct {
	SpinID   string  `json:"spinId"`
	Angle    float64 `json:"angle"`
	Progress float64 `json:"progress"`
}

// WheelEvent is what session subscribers receive. Exactly one payload is set.
type WheelEvent struct {
	Type   EventType     `json:"type"`
	Frame  *AngleFrame   `json:"frame,omitempty"`
	Result *SpinResult   `json:"result,omitempty"`
	Answer *AnswerResult `json:"answer,omitempty"`
	State  *PlayerState  `json:"state,omitempty"`
}
