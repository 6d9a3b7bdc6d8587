package push

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junsooki/camfeed/internal/frame"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

type recorder struct {
	mu         sync.Mutex
	registered chan struct{}
	frames     []frame.Message
	statuses   []Status
	answers    []json.RawMessage
	errs       []string
}

func newRecorder() *recorder {
	return &recorder{registered: make(chan struct{}, 1)}
}

func (r *recorder) handler() Handler {
	return Handler{
		OnRegistered: func() { r.registered <- struct{}{} },
		OnFrame: func(m frame.Message) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.frames = append(r.frames, m)
		},
		OnStatus: func(s Status) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.statuses = append(r.statuses, s)
		},
		OnAnswer: func(from string, payload json.RawMessage) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.answers = append(r.answers, payload)
		},
		OnError: func(msg string) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, msg)
		},
	}
}

func (r *recorder) frameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

func (r *recorder) waitRegistered(t *testing.T) {
	t.Helper()
	select {
	case <-r.registered:
	case <-time.After(2 * time.Second):
		t.Fatal("viewer never registered")
	}
}

func TestHubDeliversSubscribedFrames(t *testing.T) {
	hub := NewHub(HubHandler{}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()
	defer hub.Close()

	rec := newRecorder()
	c := NewClient(ClientConfig{URL: wsURL(srv), ID: "viewer-1", Sources: []string{"cam1"}}, rec.handler(), nil)
	require.NoError(t, c.Connect())
	defer c.Close()
	rec.waitRegistered(t)

	assert.Equal(t, []string{"viewer-1"}, hub.Viewers())
	assert.Equal(t, 0, hub.BroadcastFrame(frame.Message{SourceID: "cam2", Frame: "AAAA"}))
	assert.Equal(t, 1, hub.BroadcastFrame(frame.Message{SourceID: "cam1", Frame: "data:image/jpeg;base64,AAAA"}))

	assert.Eventually(t, func() bool { return rec.frameCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	got := rec.frames[0]
	rec.mu.Unlock()
	assert.Equal(t, "cam1", got.Source())
	assert.Equal(t, "data:image/jpeg;base64,AAAA", got.Frame)
}

func TestHubLegacyCameraID(t *testing.T) {
	hub := NewHub(HubHandler{}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	rec := newRecorder()
	c := NewClient(ClientConfig{URL: wsURL(srv), ID: "viewer-1"}, rec.handler(), nil)
	require.NoError(t, c.Connect())
	defer c.Close()
	rec.waitRegistered(t)

	assert.Equal(t, 1, hub.BroadcastFrame(frame.Message{CameraID: "0", Frame: "AAAA"}))
	assert.Eventually(t, func() bool { return rec.frameCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, "0", rec.frames[0].Source())
}

func TestHubStatusAndAnswers(t *testing.T) {
	offers := make(chan string, 1)
	var hub *Hub
	hub = NewHub(HubHandler{
		OnOffer: func(viewerID string, payload json.RawMessage) {
			offers <- viewerID
			_ = hub.SendAnswer(viewerID, json.RawMessage(`{"sdp":"answer"}`))
		},
	}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	rec := newRecorder()
	c := NewClient(ClientConfig{URL: wsURL(srv), ID: "viewer-1"}, rec.handler(), nil)
	require.NoError(t, c.Connect())
	defer c.Close()
	rec.waitRegistered(t)

	hub.BroadcastStatus(Status{Status: StatusActive, SourceID: "cam1"})
	require.NoError(t, c.SendOffer(json.RawMessage(`{"sdp":"offer"}`)))

	select {
	case id := <-offers:
		assert.Equal(t, "viewer-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("offer not delivered")
	}

	assert.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.statuses) == 1 && len(rec.answers) == 1
	}, 2*time.Second, 10*time.Millisecond)
	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, StatusActive, rec.statuses[0].Status)
	assert.JSONEq(t, `{"sdp":"answer"}`, string(rec.answers[0]))

	err := hub.SendTo("nobody", Message{Type: TypeAnswer})
	assert.True(t, errors.Is(err, ErrUnknownViewer))
}

func TestHubViewerLeaves(t *testing.T) {
	left := make(chan string, 1)
	hub := NewHub(HubHandler{OnLeave: func(id string) { left <- id }}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	rec := newRecorder()
	c := NewClient(ClientConfig{URL: wsURL(srv), ID: "viewer-1"}, rec.handler(), nil)
	require.NoError(t, c.Connect())
	rec.waitRegistered(t)

	c.Close()
	c.Close()
	select {
	case id := <-left:
		assert.Equal(t, "viewer-1", id)
	case <-time.After(2 * time.Second):
		t.Fatal("leave not reported")
	}
	assert.Empty(t, hub.Viewers())
	assert.Error(t, c.SendOffer(nil))
}

func TestHubRequiresRegistration(t *testing.T) {
	hub := NewHub(HubHandler{}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteJSON(Message{Type: TypePing}))
	var reply Message
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeError, reply.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeRegister, ID: "raw"}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypeRegistered, reply.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: TypePing}))
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, TypePong, reply.Type)
}

func TestHubSlowViewerDropsFrames(t *testing.T) {
	hub := NewHub(HubHandler{}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	// A raw connection that registers and then never reads.
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.WriteJSON(Message{Type: TypeRegister, ID: "slow"}))
	assert.Eventually(t, func() bool { return len(hub.Viewers()) == 1 }, 2*time.Second, 10*time.Millisecond)

	big := strings.Repeat("A", 1<<20)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 64; i++ {
			hub.BroadcastFrame(frame.Message{SourceID: "cam1", Frame: big})
		}
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("broadcast blocked on a slow viewer")
	}
	assert.Greater(t, hub.Dropped("slow"), uint64(0))
}

func TestHubSkipsWebRTCViewers(t *testing.T) {
	hub := NewHub(HubHandler{}, nil)
	srv := httptest.NewServer(hub)
	defer srv.Close()

	rec := newRecorder()
	c := NewClient(ClientConfig{URL: wsURL(srv), ID: "rtc", Sources: []string{"cam1"}, Transport: TransportWebRTC}, rec.handler(), nil)
	require.NoError(t, c.Connect())
	defer c.Close()
	rec.waitRegistered(t)

	assert.True(t, hub.Subscribed("rtc", "cam1"))
	assert.False(t, hub.Subscribed("rtc", "cam2"))
	assert.Equal(t, 0, hub.BroadcastFrame(frame.Message{SourceID: "cam1", Frame: "AAAA"}))
}
