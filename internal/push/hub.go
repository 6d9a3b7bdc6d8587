package push

import (
	"encoding/json"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/frame"
	camlog "github.com/junsooki/camfeed/internal/logging"
)

const (
	writeTimeout   = 10 * time.Second
	controlTimeout = time.Second
	sendBuffer     = 8
)

// ErrUnknownViewer is returned by SendTo for viewers that are not connected.
var ErrUnknownViewer = errors.New("unknown viewer")

// HubHandler callbacks for messages viewers send to the feed.
type HubHandler struct {
	OnRegister     func(viewerID string, sources []string)
	OnOffer        func(viewerID string, payload json.RawMessage)
	OnICECandidate func(viewerID string, payload json.RawMessage)
	OnLeave        func(viewerID string)
}

// Hub is the feed side of the push channel: it accepts viewer WebSocket
// connections and fans frames out to them. Frame delivery is best-effort;
// a viewer that cannot keep up loses frames instead of delaying others.
type Hub struct {
	upgrader websocket.Upgrader
	handler  HubHandler
	log      logging.LeveledLogger

	mu      sync.Mutex
	viewers map[string]*viewer
	closed  bool
}

type viewer struct {
	id      string
	sources map[string]bool
	// webrtc viewers get frames over a DataChannel, not this connection.
	webrtc  bool
	conn    *websocket.Conn
	send    chan Message
	done    chan struct{}
	once    sync.Once
	dropped uint64
}

// NewHub creates a hub.
func NewHub(handler HubHandler, log logging.LeveledLogger) *Hub {
	if log == nil {
		log = camlog.Discard("push")
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		handler: handler,
		log:     log,
		viewers: make(map[string]*viewer),
	}
}

// ServeHTTP upgrades the request and serves one viewer until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("push upgrade: %v", err)
		return
	}
	v := &viewer{
		conn: conn,
		send: make(chan Message, sendBuffer),
		done: make(chan struct{}),
	}
	go h.writeLoop(v)
	h.readLoop(v)
}

// BroadcastFrame queues msg for every viewer subscribed to its source and
// returns how many viewers it was queued for.
func (h *Hub) BroadcastFrame(msg frame.Message) int {
	m := Message{
		Type:      TypeCameraFrame,
		SourceID:  msg.Source(),
		CameraID:  msg.CameraID,
		Frame:     msg.Frame,
		Timestamp: time.Now().UnixMilli(),
	}
	n := 0
	for _, v := range h.snapshot() {
		if v.webrtc || !v.Wants(m.SourceID) {
			continue
		}
		select {
		case v.send <- m:
			n++
		case <-v.done:
		default:
			atomic.AddUint64(&v.dropped, 1)
		}
	}
	return n
}

// BroadcastStatus sends a monitoring_status event to every viewer.
func (h *Hub) BroadcastStatus(s Status) {
	m := Message{Type: TypeMonitoringStatus, Status: s.Status, SourceID: s.SourceID, Msg: s.Message}
	for _, v := range h.snapshot() {
		h.enqueueControl(v, m)
	}
}

// SendTo delivers a control message (answer, ICE candidate) to one viewer.
func (h *Hub) SendTo(viewerID string, msg Message) error {
	h.mu.Lock()
	v, ok := h.viewers[viewerID]
	h.mu.Unlock()
	if !ok {
		return errors.Wrap(ErrUnknownViewer, viewerID)
	}
	if !h.enqueueControl(v, msg) {
		return errors.Errorf("viewer %s: send queue full", viewerID)
	}
	return nil
}

// SendAnswer sends an SDP answer to a viewer.
func (h *Hub) SendAnswer(viewerID string, payload json.RawMessage) error {
	return h.SendTo(viewerID, Message{Type: TypeAnswer, From: ClientTypeFeed, Payload: payload})
}

// SendICECandidate sends an ICE candidate to a viewer.
func (h *Hub) SendICECandidate(viewerID string, payload json.RawMessage) error {
	return h.SendTo(viewerID, Message{Type: TypeICECandidate, From: ClientTypeFeed, Payload: payload})
}

// Subscribed reports whether viewerID is connected and wants frames from source.
func (h *Hub) Subscribed(viewerID, source string) bool {
	h.mu.Lock()
	v, ok := h.viewers[viewerID]
	h.mu.Unlock()
	return ok && v.Wants(source)
}

// Viewers lists connected viewer IDs.
func (h *Hub) Viewers() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]string, 0, len(h.viewers))
	for id := range h.viewers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Dropped reports how many frames were dropped for a viewer.
func (h *Hub) Dropped(viewerID string) uint64 {
	h.mu.Lock()
	v, ok := h.viewers[viewerID]
	h.mu.Unlock()
	if !ok {
		return 0
	}
	return atomic.LoadUint64(&v.dropped)
}

// Close disconnects every viewer and refuses new registrations.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	viewers := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		viewers = append(viewers, v)
	}
	h.mu.Unlock()
	for _, v := range viewers {
		v.close()
	}
}

func (h *Hub) snapshot() []*viewer {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*viewer, 0, len(h.viewers))
	for _, v := range h.viewers {
		out = append(out, v)
	}
	return out
}

func (h *Hub) enqueueControl(v *viewer, m Message) bool {
	t := time.NewTimer(controlTimeout)
	defer t.Stop()
	select {
	case v.send <- m:
		return true
	case <-v.done:
		return false
	case <-t.C:
		h.log.Warnf("push: viewer %s control queue full, %s dropped", v.id, m.Type)
		return false
	}
}

func (h *Hub) register(v *viewer, m Message) error {
	if m.ID == "" {
		return errors.New("register without id")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("hub closed")
	}
	if _, ok := h.viewers[m.ID]; ok {
		return errors.Errorf("viewer %s already connected", m.ID)
	}
	v.id = m.ID
	v.webrtc = m.Transport == TransportWebRTC
	v.sources = make(map[string]bool, len(m.Sources))
	for _, s := range m.Sources {
		v.sources[s] = true
	}
	h.viewers[v.id] = v
	return nil
}

func (h *Hub) unregister(v *viewer) {
	h.mu.Lock()
	cur, ok := h.viewers[v.id]
	if ok && cur == v {
		delete(h.viewers, v.id)
	}
	h.mu.Unlock()
	if ok && cur == v {
		h.log.Infof("viewer %s left", v.id)
		if h.handler.OnLeave != nil {
			h.handler.OnLeave(v.id)
		}
	}
}

func (h *Hub) readLoop(v *viewer) {
	defer func() {
		h.unregister(v)
		v.close()
	}()
	for {
		var msg Message
		if err := v.conn.ReadJSON(&msg); err != nil {
			select {
			case <-v.done:
			default:
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.log.Warnf("push: viewer %s read error: %v", v.id, err)
				}
			}
			return
		}

		if v.id == "" && msg.Type != TypeRegister {
			h.enqueueControl(v, Message{Type: TypeError, Msg: "register first"})
			continue
		}

		switch msg.Type {
		case TypeRegister:
			if v.id != "" {
				continue
			}
			if err := h.register(v, msg); err != nil {
				h.enqueueControl(v, Message{Type: TypeError, Msg: err.Error()})
				return
			}
			h.log.Infof("viewer %s registered (sources %v)", v.id, msg.Sources)
			h.enqueueControl(v, Message{Type: TypeRegistered, ID: v.id})
			if h.handler.OnRegister != nil {
				h.handler.OnRegister(v.id, msg.Sources)
			}
		case TypePing:
			h.enqueueControl(v, Message{Type: TypePong})
		case TypeOffer:
			if h.handler.OnOffer != nil {
				h.handler.OnOffer(v.id, msg.Payload)
			}
		case TypeICECandidate:
			if h.handler.OnICECandidate != nil {
				h.handler.OnICECandidate(v.id, msg.Payload)
			}
		default:
			h.log.Debugf("push: viewer %s sent unexpected %q", v.id, msg.Type)
		}
	}
}

func (h *Hub) writeLoop(v *viewer) {
	defer v.close()
	for {
		select {
		case <-v.done:
			return
		case m := <-v.send:
			v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := v.conn.WriteJSON(m); err != nil {
				h.log.Warnf("push: viewer %s write error: %v", v.id, err)
				return
			}
		}
	}
}

func (v *viewer) Wants(source string) bool {
	return len(v.sources) == 0 || v.sources[source]
}

func (v *viewer) close() {
	v.once.Do(func() {
		close(v.done)
		v.conn.Close()
	})
}
