package peer

import (
	"encoding/json"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
)

// ICEServers is the default ICE server configuration.
var ICEServers = []webrtc.ICEServer{
	{URLs: []string{"stun:stun.l.google.com:19302", "stun:stun1.l.google.com:19302"}},
}

// ViewerSignaler carries the viewer's negotiation messages to the feed.
type ViewerSignaler interface {
	SendOffer(payload json.RawMessage) error
	SendICECandidate(payload json.RawMessage) error
}

// FeedSignaler carries the feed's negotiation messages to one viewer.
type FeedSignaler interface {
	SendAnswer(viewerID string, payload json.RawMessage) error
	SendICECandidate(viewerID string, payload json.RawMessage) error
}

// NewPeerConnection creates a configured PeerConnection whose internals log
// through factory.
func NewPeerConnection(factory logging.LoggerFactory) (*webrtc.PeerConnection, error) {
	log := factory.NewLogger("peer")

	se := webrtc.SettingEngine{LoggerFactory: factory}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se))
	pc, err := api.NewPeerConnection(webrtc.Configuration{
		ICEServers: ICEServers,
	})
	if err != nil {
		return nil, err
	}
	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		log.Infof("peer connection state: %s", state.String())
	})
	return pc, nil
}

func addICECandidate(pc *webrtc.PeerConnection, payload json.RawMessage) error {
	var candidate webrtc.ICECandidateInit
	if err := json.Unmarshal(payload, &candidate); err != nil {
		return err
	}
	return pc.AddICECandidate(candidate)
}
