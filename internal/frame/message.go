package frame

// Message is a camera_frame event as delivered by the push channel.
type Message struct {
	SourceID string `json:"sourceId,omitempty"`
	// CameraID is the legacy source tag some backends still send.
	CameraID string `json:"camera_id,omitempty"`
	Frame    string `json:"frame"`
}

// Source returns the identifier of the feed the frame belongs to.
func (m Message) Source() string {
	if m.SourceID != "" {
		return m.SourceID
	}
	return m.CameraID
}
