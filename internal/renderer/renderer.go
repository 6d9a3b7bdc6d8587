package renderer

import (
	"image"
	"sort"
	"sync"
	"time"

	"github.com/pion/logging"
	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/decoder"
	"github.com/junsooki/camfeed/internal/frame"
	camlog "github.com/junsooki/camfeed/internal/logging"
)

// DefaultMinInterval caps redraws at roughly 15 frames per second.
const DefaultMinInterval = 66 * time.Millisecond

// ErrAlreadyBound is returned when binding a source that already has a target.
var ErrAlreadyBound = errors.New("source already bound")

// Options configure a Renderer. Zero values select the defaults.
type Options struct {
	MinInterval time.Duration
	Decoder     decoder.Decoder
	Logger      logging.LeveledLogger
}

// Renderer turns pushed frame payloads into updates on bound surfaces.
// It keeps at most one displayed and one pending handle per target and
// releases a displayed handle only after its successor is on screen.
type Renderer struct {
	mu      sync.Mutex
	targets map[string]*target
	nextID  uint64

	minInterval time.Duration
	dec         decoder.Decoder
	reclaim     func(*image.RGBA)
	log         logging.LeveledLogger
	now         func() time.Time
}

type target struct {
	source  string
	surface Surface

	// presentMu orders presents to the surface by acceptance and lets
	// UnbindTarget wait for an in-flight Present.
	presentMu sync.Mutex

	// guarded by Renderer.mu
	state        State
	lastAccepted time.Time
	accepted     bool
	active       *Handle
	pending      *assignment
	stats        TargetStats
}

// assignment is one Present call. retire is the handle that leaves the
// screen once handle is displayed.
type assignment struct {
	handle *Handle
	retire *Handle
}

// New creates a Renderer.
func New(opts Options) *Renderer {
	r := &Renderer{
		targets:     make(map[string]*target),
		minInterval: opts.MinInterval,
		dec:         opts.Decoder,
		log:         opts.Logger,
		now:         time.Now,
	}
	if r.minInterval <= 0 {
		r.minInterval = DefaultMinInterval
	}
	if r.dec == nil {
		r.dec = decoder.NewImageDecoder()
	}
	if rc, ok := r.dec.(decoder.Recycler); ok {
		r.reclaim = rc.Recycle
	}
	if r.log == nil {
		r.log = camlog.Discard("renderer")
	}
	return r
}

// BindTarget associates sourceID with a surface. A source that was
// unbound can be bound again and starts from a fresh target.
func (r *Renderer) BindTarget(sourceID string, s Surface) error {
	if s == nil {
		return errors.New("nil surface")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.targets[sourceID]; ok {
		return errors.Wrapf(ErrAlreadyBound, "bind %q", sourceID)
	}
	r.targets[sourceID] = &target{
		source:  sourceID,
		surface: s,
		state:   StateIdle,
		stats:   TargetStats{Source: sourceID},
	}
	r.log.Debugf("%s: target bound", sourceID)
	return nil
}

// UnbindTarget stops accepting frames for sourceID, detaches its surface
// and releases every handle the target still owns. Unbinding an unknown
// source is a no-op.
func (r *Renderer) UnbindTarget(sourceID string) {
	r.mu.Lock()
	t, ok := r.targets[sourceID]
	if !ok {
		r.mu.Unlock()
		return
	}
	delete(r.targets, sourceID)
	t.state = StateReleased
	r.mu.Unlock()

	t.presentMu.Lock()
	defer t.presentMu.Unlock()

	t.surface.Detach()

	r.mu.Lock()
	if t.pending != nil {
		r.releaseLocked(t, t.pending.handle)
		t.pending = nil
	}
	if t.active != nil {
		r.releaseLocked(t, t.active)
		t.active = nil
	}
	released := t.stats.Released
	r.mu.Unlock()

	r.log.Debugf("%s: target released (%d handles reclaimed)", sourceID, released)
}

// OnFrame submits a pushed frame message stamped with its arrival time.
func (r *Renderer) OnFrame(msg frame.Message) {
	r.SubmitFrame(msg.Source(), msg.Frame, r.now())
}

// SubmitFrame renders payload on the target bound to sourceID. Frames
// arriving within MinInterval of the last accepted one are dropped, and
// malformed or undecodable frames are logged and dropped; none of these
// touch what is on screen.
func (r *Renderer) SubmitFrame(sourceID, payload string, arrival time.Time) {
	r.mu.Lock()
	t, ok := r.targets[sourceID]
	if !ok {
		r.mu.Unlock()
		r.log.Debugf("%s: frame for unbound source dropped", sourceID)
		return
	}
	if r.throttledLocked(t, arrival) {
		t.stats.Throttled++
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	img, err := r.decode(payload)
	if err != nil {
		r.mu.Lock()
		if errors.Is(err, frame.ErrMalformedPayload) {
			t.stats.Malformed++
		} else {
			t.stats.DecodeFailures++
		}
		r.mu.Unlock()
		if errors.Is(err, frame.ErrMalformedPayload) {
			r.log.Warnf("%s: frame dropped: %v", sourceID, err)
		} else {
			r.log.Errorf("%s: frame dropped: %v", sourceID, err)
		}
		return
	}

	t.presentMu.Lock()
	defer t.presentMu.Unlock()

	r.mu.Lock()
	// Unbound or beaten by a concurrent frame while decoding.
	if t.state == StateReleased || r.throttledLocked(t, arrival) {
		if t.state != StateReleased {
			t.stats.Throttled++
		}
		r.mu.Unlock()
		if r.reclaim != nil {
			r.reclaim(img)
		}
		return
	}
	r.nextID++
	h := newHandle(r.nextID, sourceID, img, r.reclaim)
	a := &assignment{handle: h, retire: t.active}
	var superseded *Handle
	if t.pending != nil {
		superseded = t.pending.handle
	}
	t.pending = a
	t.state = StateAwaitingDisplay
	t.lastAccepted = arrival
	t.accepted = true
	t.stats.Accepted++
	t.stats.LastAccepted = arrival
	r.mu.Unlock()

	t.surface.Present(h, func(err error) { r.confirm(t, a, err) })

	if superseded != nil {
		r.mu.Lock()
		t.stats.Superseded++
		r.releaseLocked(t, superseded)
		r.mu.Unlock()
	}
}

// Stats returns the counters of the target bound to sourceID.
func (r *Renderer) Stats(sourceID string) (TargetStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.targets[sourceID]
	if !ok {
		return TargetStats{}, false
	}
	s := t.stats
	s.State = t.state
	if t.active != nil {
		s.ActiveID = t.active.id
	}
	if t.pending != nil {
		s.PendingID = t.pending.handle.id
	}
	return s, true
}

// Sources lists the bound sources in lexical order.
func (r *Renderer) Sources() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.targets))
	for id := range r.targets {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (r *Renderer) decode(payload string) (*image.RGBA, error) {
	data, err := frame.Decode(payload)
	if err != nil {
		return nil, err
	}
	img, err := r.dec.Decode(data)
	if err != nil {
		return nil, errors.Wrapf(frame.ErrDecodeFailure, "%v", err)
	}
	return img, nil
}

// confirm handles the surface's answer for assignment a. Only the current
// pending assignment counts; answers for superseded ones are ignored
// because their handles were released when they were replaced.
func (r *Renderer) confirm(t *target, a *assignment, err error) {
	r.mu.Lock()
	if t.state == StateReleased || t.pending != a {
		r.mu.Unlock()
		r.log.Tracef("%s: stale display callback for handle %d", t.source, a.handle.id)
		return
	}
	t.pending = nil
	t.state = StateIdle

	if err != nil {
		t.stats.DisplayFailures++
		r.releaseLocked(t, a.handle)
		r.mu.Unlock()
		r.log.Errorf("%s: %v", t.source, errors.Wrapf(frame.ErrDisplayFailure, "handle %d: %v", a.handle.id, err))
		return
	}

	t.active = a.handle
	t.stats.Displayed++
	first := t.stats.Displayed == 1
	if a.retire != nil {
		r.releaseLocked(t, a.retire)
	}
	r.mu.Unlock()

	if first {
		r.log.Infof("%s: first frame displayed", t.source)
	}
}

func (r *Renderer) throttledLocked(t *target, arrival time.Time) bool {
	return t.accepted && arrival.Sub(t.lastAccepted) < r.minInterval
}

func (r *Renderer) releaseLocked(t *target, h *Handle) {
	if h.Release() {
		t.stats.Released++
	}
}
