package push

import (
	"encoding/json"

	"github.com/junsooki/camfeed/internal/frame"
)

// Message types for the push protocol.
const (
	TypeRegister         = "register"
	TypeRegistered       = "registered"
	TypeCameraFrame      = "camera_frame"
	TypeMonitoringStatus = "monitoring_status"
	TypeOffer            = "offer"
	TypeAnswer           = "answer"
	TypeICECandidate     = "ice-candidate"
	TypePing             = "ping"
	TypePong             = "pong"
	TypeError            = "error"
)

// ClientType distinguishes viewers from feeds.
const (
	ClientTypeViewer = "viewer"
	ClientTypeFeed   = "feed"
)

// Frame transports a viewer can ask for at registration.
const (
	TransportWebSocket = "ws"
	TransportWebRTC    = "webrtc"
)

// Monitoring states carried by monitoring_status.
const (
	StatusActive  = "active"
	StatusStopped = "stopped"
	StatusError   = "error"
)

// Message is the envelope for all push channel messages.
type Message struct {
	Type       string          `json:"type"`
	ID         string          `json:"id,omitempty"`
	ClientType string          `json:"clientType,omitempty"`
	Sources    []string        `json:"sources,omitempty"`
	Transport  string          `json:"transport,omitempty"`
	From       string          `json:"from,omitempty"`
	Target     string          `json:"target,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	SourceID   string          `json:"sourceId,omitempty"`
	CameraID   string          `json:"camera_id,omitempty"`
	Frame      string          `json:"frame,omitempty"`
	Status     string          `json:"status,omitempty"`
	Msg        string          `json:"message,omitempty"`
	Timestamp  int64           `json:"timestamp,omitempty"`
}

// FrameMessage extracts the frame event carried by a camera_frame message.
func (m Message) FrameMessage() frame.Message {
	return frame.Message{SourceID: m.SourceID, CameraID: m.CameraID, Frame: m.Frame}
}

// Status is a monitoring_status event.
type Status struct {
	Status   string
	SourceID string
	Message  string
}
