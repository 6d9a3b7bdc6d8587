package monitor

import (
	"encoding/json"
	"sync"

	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/frame"
	camlog "github.com/junsooki/camfeed/internal/logging"
	"github.com/junsooki/camfeed/internal/peer"
	"github.com/junsooki/camfeed/internal/push"
	"github.com/junsooki/camfeed/internal/transport"
)

// Hub is the part of push.Hub the fanout drives.
type Hub interface {
	peer.FeedSignaler
	BroadcastFrame(msg frame.Message) int
	Subscribed(viewerID, source string) bool
}

// Link is one viewer's WebRTC frame path.
type Link interface {
	HandleOffer(payload json.RawMessage) error
	HandleICECandidate(payload json.RawMessage) error
	Ready() bool
	Transport() *transport.DataChannelTransport
	Close()
}

// Fanout publishes frames to websocket viewers through the hub and to
// WebRTC viewers over their frames data channel.
type Fanout struct {
	hub     Hub
	factory logging.LoggerFactory
	log     logging.LeveledLogger
	// newLink is replaced in tests.
	newLink func(viewerID string) (Link, error)

	mu    sync.Mutex
	links map[string]Link
}

// NewFanout creates a Fanout. factory configures the WebRTC stack; nil
// disables WebRTC delivery.
func NewFanout(factory logging.LoggerFactory) *Fanout {
	f := &Fanout{
		factory: factory,
		links:   make(map[string]Link),
	}
	if factory != nil {
		f.log = factory.NewLogger("feed")
	} else {
		f.log = camlog.Discard("feed")
	}
	f.newLink = func(viewerID string) (Link, error) {
		if f.factory == nil {
			return nil, errors.New("webrtc disabled")
		}
		p, err := peer.NewFeed(f.hub, viewerID, f.factory)
		if err != nil {
			return nil, err
		}
		return p, nil
	}
	return f
}

// Attach sets the hub frames and negotiation replies go through.
func (f *Fanout) Attach(hub Hub) {
	f.hub = hub
}

// HubHandler routes viewer negotiation messages to this fanout.
func (f *Fanout) HubHandler() push.HubHandler {
	return push.HubHandler{
		OnOffer:        f.handleOffer,
		OnICECandidate: f.handleICECandidate,
		OnLeave:        f.dropLink,
	}
}

// Publish implements Sink.
func (f *Fanout) Publish(msg frame.Message) {
	if f.hub == nil {
		return
	}
	f.hub.BroadcastFrame(msg)

	source := msg.Source()
	for id, l := range f.snapshot() {
		if !l.Ready() || !f.hub.Subscribed(id, source) {
			continue
		}
		if err := l.Transport().SendFrame(msg); err != nil {
			f.log.Debugf("%s: frame for %s dropped: %v", source, id, err)
		}
	}
}

// Links counts viewers with a WebRTC frame path.
func (f *Fanout) Links() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.links)
}

// Close tears down every WebRTC link.
func (f *Fanout) Close() {
	f.mu.Lock()
	links := f.links
	f.links = make(map[string]Link)
	f.mu.Unlock()
	for _, l := range links {
		l.Close()
	}
}

func (f *Fanout) handleOffer(viewerID string, payload json.RawMessage) {
	l, err := f.newLink(viewerID)
	if err != nil {
		f.log.Warnf("viewer %s: webrtc offer refused: %v", viewerID, err)
		return
	}
	f.mu.Lock()
	old := f.links[viewerID]
	f.links[viewerID] = l
	f.mu.Unlock()
	if old != nil {
		old.Close()
	}
	if err := l.HandleOffer(payload); err != nil {
		f.log.Warnf("viewer %s: handle offer: %v", viewerID, err)
		f.dropLink(viewerID)
	}
}

func (f *Fanout) handleICECandidate(viewerID string, payload json.RawMessage) {
	f.mu.Lock()
	l := f.links[viewerID]
	f.mu.Unlock()
	if l == nil {
		f.log.Debugf("viewer %s: ICE candidate without offer", viewerID)
		return
	}
	if err := l.HandleICECandidate(payload); err != nil {
		f.log.Warnf("viewer %s: add ICE candidate: %v", viewerID, err)
	}
}

func (f *Fanout) dropLink(viewerID string) {
	f.mu.Lock()
	l := f.links[viewerID]
	delete(f.links, viewerID)
	f.mu.Unlock()
	if l != nil {
		l.Close()
	}
}

func (f *Fanout) snapshot() map[string]Link {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Link, len(f.links))
	for id, l := range f.links {
		out[id] = l
	}
	return out
}
