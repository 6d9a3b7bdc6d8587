package push

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/frame"
	camlog "github.com/junsooki/camfeed/internal/logging"
)

const pingInterval = 25 * time.Second

// Handler callbacks for incoming push messages. Callbacks run on the
// client's read goroutine, one at a time, in delivery order.
type Handler struct {
	OnRegistered   func()
	OnFrame        func(msg frame.Message)
	OnStatus       func(status Status)
	OnAnswer       func(from string, payload json.RawMessage)
	OnICECandidate func(from string, payload json.RawMessage)
	OnError        func(msg string)
	// OnClose is called once when the connection ends.
	OnClose func(err error)
}

// ClientConfig identifies a viewer to the feed.
type ClientConfig struct {
	URL string
	ID  string
	// Sources to subscribe to; all sources when empty.
	Sources []string
	// Transport is TransportWebRTC when frames arrive on a DataChannel
	// instead of this connection.
	Transport string
}

// Client is a WebSocket push channel client. It does not reconnect.
type Client struct {
	cfg     ClientConfig
	handler Handler
	log     logging.LeveledLogger

	conn   *websocket.Conn
	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// NewClient creates a viewer-side client.
func NewClient(cfg ClientConfig, handler Handler, log logging.LeveledLogger) *Client {
	if log == nil {
		log = camlog.Discard("push")
	}
	if cfg.Transport == "" {
		cfg.Transport = TransportWebSocket
	}
	return &Client{
		cfg:     cfg,
		handler: handler,
		log:     log,
		done:    make(chan struct{}),
	}
}

// Connect dials the feed and starts reading messages.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.cfg.URL, nil)
	if err != nil {
		return errors.Wrap(err, "push dial")
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	err = c.send(Message{
		Type:       TypeRegister,
		ID:         c.cfg.ID,
		ClientType: ClientTypeViewer,
		Sources:    c.cfg.Sources,
		Transport:  c.cfg.Transport,
	})
	if err != nil {
		conn.Close()
		return errors.Wrap(err, "push register")
	}

	go c.readLoop()
	go c.pingLoop()
	return nil
}

// Close shuts down the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
	if c.conn != nil {
		c.conn.Close()
	}
}

// Done is closed once the client has been closed.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// SendOffer sends an SDP offer to the feed.
func (c *Client) SendOffer(payload json.RawMessage) error {
	return c.send(Message{Type: TypeOffer, Payload: payload})
}

// SendICECandidate sends an ICE candidate to the feed.
func (c *Client) SendICECandidate(payload json.RawMessage) error {
	return c.send(Message{Type: TypeICECandidate, Payload: payload})
}

func (c *Client) send(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil || c.closed {
		return errors.New("not connected")
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	var readErr error
	defer func() {
		c.Close()
		if c.handler.OnClose != nil {
			c.handler.OnClose(readErr)
		}
	}()
	for {
		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			select {
			case <-c.done:
				return
			default:
				c.log.Warnf("push read error: %v", err)
				readErr = err
				return
			}
		}
		c.dispatch(msg)
	}
}

func (c *Client) dispatch(msg Message) {
	switch msg.Type {
	case TypeRegistered:
		if c.handler.OnRegistered != nil {
			c.handler.OnRegistered()
		}
	case TypeCameraFrame:
		if c.handler.OnFrame != nil {
			c.handler.OnFrame(msg.FrameMessage())
		}
	case TypeMonitoringStatus:
		if c.handler.OnStatus != nil {
			c.handler.OnStatus(Status{Status: msg.Status, SourceID: msg.SourceID, Message: msg.Msg})
		}
	case TypeAnswer:
		if c.handler.OnAnswer != nil {
			c.handler.OnAnswer(msg.From, msg.Payload)
		}
	case TypeICECandidate:
		if c.handler.OnICECandidate != nil {
			c.handler.OnICECandidate(msg.From, msg.Payload)
		}
	case TypeError:
		if c.handler.OnError != nil {
			c.handler.OnError(msg.Msg)
		}
	case TypePong:
		// heartbeat response, nothing to do
	default:
		c.log.Debugf("push: ignoring message type %q", msg.Type)
	}
}

func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			_ = c.send(Message{Type: TypePing})
		}
	}
}
