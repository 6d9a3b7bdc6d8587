package peer

import (
	"encoding/json"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"

	"github.com/junsooki/camfeed/internal/transport"
)

// Viewer manages the viewer side of the WebRTC connection. It opens the
// frames DataChannel and sends the offer.
type Viewer struct {
	pc        *webrtc.PeerConnection
	sig       ViewerSignaler
	transport *transport.DataChannelTransport
	log       logging.LeveledLogger
}

// NewViewer creates a Viewer peer.
func NewViewer(sig ViewerSignaler, factory logging.LoggerFactory) (*Viewer, error) {
	pc, err := NewPeerConnection(factory)
	if err != nil {
		return nil, err
	}
	log := factory.NewLogger("peer")

	// Frames are a lossy stream: a late frame is worse than a missing one.
	ordered := false
	maxRetransmits := uint16(0)
	dc, err := pc.CreateDataChannel(transport.FramesLabel, &webrtc.DataChannelInit{
		Ordered:        &ordered,
		MaxRetransmits: &maxRetransmits,
	})
	if err != nil {
		pc.Close()
		return nil, err
	}
	dc.OnOpen(func() {
		log.Info("frames data channel open")
	})

	v := &Viewer{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(dc, factory.NewLogger("transport")),
		log:       log,
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warnf("marshal ICE candidate: %v", err)
			return
		}
		_ = sig.SendICECandidate(data)
	})

	return v, nil
}

// Transport returns the DataChannelTransport frames arrive on.
func (v *Viewer) Transport() *transport.DataChannelTransport {
	return v.transport
}

// Connect initiates the WebRTC connection by creating and sending an offer.
func (v *Viewer) Connect() error {
	offer, err := v.pc.CreateOffer(nil)
	if err != nil {
		return err
	}

	if err := v.pc.SetLocalDescription(offer); err != nil {
		return err
	}

	offerJSON, err := json.Marshal(offer)
	if err != nil {
		return err
	}

	return v.sig.SendOffer(offerJSON)
}

// HandleAnswer processes an incoming SDP answer.
func (v *Viewer) HandleAnswer(payload json.RawMessage) error {
	var answer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &answer); err != nil {
		return err
	}
	return v.pc.SetRemoteDescription(answer)
}

// HandleICECandidate adds a remote ICE candidate.
func (v *Viewer) HandleICECandidate(payload json.RawMessage) error {
	return addICECandidate(v.pc, payload)
}

// Close shuts down the peer connection.
func (v *Viewer) Close() {
	if v.pc != nil {
		v.pc.Close()
	}
}
