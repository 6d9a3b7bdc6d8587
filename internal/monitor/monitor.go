package monitor

import (
	"sort"
	"sync"

	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/capture"
	"github.com/junsooki/camfeed/internal/encoder"
	"github.com/junsooki/camfeed/internal/frame"
	camlog "github.com/junsooki/camfeed/internal/logging"
	"github.com/junsooki/camfeed/internal/push"
)

// ErrUnknownSource is returned when starting a source the feed does not have.
var ErrUnknownSource = errors.New("unknown source")

// Sink receives encoded frames.
type Sink interface {
	Publish(msg frame.Message)
}

// Options configure a Monitor.
type Options struct {
	Sources []string
	Width   int
	Height  int
	FPS     int
	DataURI bool
	Encoder encoder.Encoder
	// NewCapturer opens a capturer for a source. Defaults to a
	// PatternCapturer.
	NewCapturer func(source string) (capture.Capturer, error)
	// OnStatus is called whenever a source starts, stops or fails.
	OnStatus func(s push.Status)
	Logger   logging.LeveledLogger
}

// Monitor owns the feed's sources and streams the ones that are active:
// capture, JPEG encode, base64, publish.
type Monitor struct {
	opts Options
	sink Sink
	log  logging.LeveledLogger

	mu     sync.Mutex
	active map[string]*stream
	closed bool
}

type stream struct {
	cap  capture.Capturer
	done chan struct{}
}

// New creates a Monitor publishing to sink.
func New(opts Options, sink Sink) *Monitor {
	if opts.Encoder == nil {
		opts.Encoder = encoder.NewJPEGEncoder(70)
	}
	if opts.NewCapturer == nil {
		opts.NewCapturer = func(source string) (capture.Capturer, error) {
			return capture.NewPatternCapturer(source, opts.Width, opts.Height, opts.FPS)
		}
	}
	if opts.Logger == nil {
		opts.Logger = camlog.Discard("feed")
	}
	return &Monitor{
		opts:   opts,
		sink:   sink,
		log:    opts.Logger,
		active: make(map[string]*stream),
	}
}

// Sources lists every source the feed can stream.
func (m *Monitor) Sources() []string {
	out := append([]string(nil), m.opts.Sources...)
	sort.Strings(out)
	return out
}

// Active lists the sources currently streaming.
func (m *Monitor) Active() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.active))
	for s := range m.active {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Monitoring reports whether any source is streaming.
func (m *Monitor) Monitoring() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active) > 0
}

// Start begins streaming source, or every source when source is empty.
// Starting an active source is a no-op.
func (m *Monitor) Start(source string) error {
	targets := m.opts.Sources
	if source != "" {
		if !m.known(source) {
			return errors.Wrap(ErrUnknownSource, source)
		}
		targets = []string{source}
	}
	for _, s := range targets {
		started, err := m.start(s)
		if err != nil {
			m.status(push.Status{Status: push.StatusError, SourceID: s, Message: err.Error()})
			return err
		}
		if started {
			m.log.Infof("%s: monitoring started", s)
			m.status(push.Status{Status: push.StatusActive, SourceID: s})
		}
	}
	return nil
}

// Stop ends streaming source, or every source when source is empty.
func (m *Monitor) Stop(source string) {
	m.mu.Lock()
	var stopping []string
	for s := range m.active {
		if source == "" || s == source {
			stopping = append(stopping, s)
		}
	}
	m.mu.Unlock()
	sort.Strings(stopping)
	for _, s := range stopping {
		m.stop(s)
	}
}

// Close stops every source and refuses further starts.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.Stop("")
}

func (m *Monitor) start(source string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return false, errors.New("monitor closed")
	}
	if _, ok := m.active[source]; ok {
		return false, nil
	}
	c, err := m.opts.NewCapturer(source)
	if err != nil {
		return false, errors.Wrapf(err, "open %s", source)
	}
	if err := c.Start(); err != nil {
		return false, errors.Wrapf(err, "start %s", source)
	}
	st := &stream{cap: c, done: make(chan struct{})}
	m.active[source] = st
	go m.pump(source, st)
	return true, nil
}

func (m *Monitor) stop(source string) {
	m.mu.Lock()
	st, ok := m.active[source]
	if ok {
		delete(m.active, source)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	st.cap.Stop()
	<-st.done

	m.log.Infof("%s: monitoring stopped", source)
	m.status(push.Status{Status: push.StatusStopped, SourceID: source})
}

func (m *Monitor) pump(source string, st *stream) {
	defer close(st.done)
	for f := range st.cap.Frames() {
		text, err := encoder.EncodeText(m.opts.Encoder, f.Image, m.opts.DataURI)
		if err != nil {
			m.log.Errorf("%s: encode frame %d: %v", source, f.Seq, err)
			continue
		}
		m.sink.Publish(frame.Message{SourceID: source, Frame: text})
	}
}

func (m *Monitor) known(source string) bool {
	for _, s := range m.opts.Sources {
		if s == source {
			return true
		}
	}
	return false
}

func (m *Monitor) status(s push.Status) {
	if m.opts.OnStatus != nil {
		m.opts.OnStatus(s)
	}
}
