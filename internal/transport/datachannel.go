package transport

import (
	"encoding/json"
	"sync"

	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/frame"
	camlog "github.com/junsooki/camfeed/internal/logging"
)

// FramesLabel names the data channel frames travel on.
const FramesLabel = "frames"

// maxBuffered is how much unsent frame data a channel may hold before new
// frames are dropped.
const maxBuffered = 1 << 20

// ErrCongested is returned by SendFrame when the channel is backed up.
var ErrCongested = errors.New("frames data channel congested")

// DataChannelTransport carries frame events over a WebRTC DataChannel.
type DataChannelTransport struct {
	log logging.LeveledLogger

	mu       sync.Mutex
	framesDC *webrtc.DataChannel
	onFrame  func(msg frame.Message)
}

// NewDataChannelTransport wraps the frames DataChannel; dc may be nil until
// the remote side opens it.
func NewDataChannelTransport(dc *webrtc.DataChannel, log logging.LeveledLogger) *DataChannelTransport {
	if log == nil {
		log = camlog.Discard("transport")
	}
	t := &DataChannelTransport{log: log}
	if dc != nil {
		t.SetFramesChannel(dc)
	}
	return t
}

func (t *DataChannelTransport) SendFrame(msg frame.Message) error {
	t.mu.Lock()
	dc := t.framesDC
	t.mu.Unlock()
	if dc == nil {
		return errors.New("frames data channel not set")
	}
	if dc.BufferedAmount() > maxBuffered {
		return ErrCongested
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}
	return dc.Send(data)
}

func (t *DataChannelTransport) OnFrame(cb func(msg frame.Message)) {
	t.mu.Lock()
	t.onFrame = cb
	t.mu.Unlock()
}

// SetFramesChannel sets or replaces the frames DataChannel (used when receiving negotiated channels).
func (t *DataChannelTransport) SetFramesChannel(dc *webrtc.DataChannel) {
	t.mu.Lock()
	t.framesDC = dc
	t.mu.Unlock()
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		t.deliver(msg.Data)
	})
}

func (t *DataChannelTransport) deliver(data []byte) {
	var msg frame.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.log.Warnf("frames channel: %v", err)
		return
	}
	t.mu.Lock()
	cb := t.onFrame
	t.mu.Unlock()
	if cb != nil {
		cb(msg)
	}
}
