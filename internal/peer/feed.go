package peer

import (
	"encoding/json"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"

	"github.com/junsooki/camfeed/internal/transport"
)

// Feed manages the feed side of one viewer's WebRTC connection. It answers
// the viewer's offer and sends frames on the DataChannel the viewer opened.
type Feed struct {
	pc        *webrtc.PeerConnection
	sig       FeedSignaler
	transport *transport.DataChannelTransport
	viewerID  string

	mu   sync.Mutex
	open bool
}

// NewFeed creates a Feed peer for viewerID.
func NewFeed(sig FeedSignaler, viewerID string, factory logging.LoggerFactory) (*Feed, error) {
	pc, err := NewPeerConnection(factory)
	if err != nil {
		return nil, err
	}
	log := factory.NewLogger("peer")

	f := &Feed{
		pc:        pc,
		sig:       sig,
		transport: transport.NewDataChannelTransport(nil, factory.NewLogger("transport")),
		viewerID:  viewerID,
	}

	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		log.Infof("data channel from %s: %s", viewerID, dc.Label())
		if dc.Label() != transport.FramesLabel {
			return
		}
		f.transport.SetFramesChannel(dc)
		dc.OnOpen(func() {
			f.mu.Lock()
			f.open = true
			f.mu.Unlock()
		})
		dc.OnClose(func() {
			f.mu.Lock()
			f.open = false
			f.mu.Unlock()
		})
	})

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		data, err := json.Marshal(c.ToJSON())
		if err != nil {
			log.Warnf("marshal ICE candidate: %v", err)
			return
		}
		_ = sig.SendICECandidate(viewerID, data)
	})

	return f, nil
}

// Transport returns the DataChannelTransport used to send frames.
func (f *Feed) Transport() *transport.DataChannelTransport {
	return f.transport
}

// Ready reports whether the frames channel is open.
func (f *Feed) Ready() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open
}

// HandleOffer processes the viewer's offer and replies with an answer.
func (f *Feed) HandleOffer(payload json.RawMessage) error {
	var offer webrtc.SessionDescription
	if err := json.Unmarshal(payload, &offer); err != nil {
		return err
	}

	if err := f.pc.SetRemoteDescription(offer); err != nil {
		return err
	}

	answer, err := f.pc.CreateAnswer(nil)
	if err != nil {
		return err
	}

	if err := f.pc.SetLocalDescription(answer); err != nil {
		return err
	}

	answerJSON, err := json.Marshal(answer)
	if err != nil {
		return err
	}

	return f.sig.SendAnswer(f.viewerID, answerJSON)
}

// HandleICECandidate adds a remote ICE candidate.
func (f *Feed) HandleICECandidate(payload json.RawMessage) error {
	return addICECandidate(f.pc, payload)
}

// Close shuts down the peer connection.
func (f *Feed) Close() {
	if f.pc != nil {
		f.pc.Close()
	}
}
