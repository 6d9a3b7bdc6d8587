package display

import (
	"image"
	"sync"

	"github.com/pkg/errors"

	"github.com/junsooki/camfeed/internal/renderer"
)

// errEmptyFrame is reported for frames the surface cannot draw.
var errEmptyFrame = errors.New("empty frame")

// Tile is one camera view inside the grid. It implements renderer.Surface:
// the latest presented handle waits in the tile until the game loop
// uploads it, and only then is the renderer told it is on screen.
type Tile struct {
	source string

	mu       sync.Mutex
	next     *renderer.Handle
	nextDone func(error)
	width    int
	height   int
	frames   uint64
}

// NewTile creates an empty tile for source.
func NewTile(source string) *Tile {
	return &Tile{source: source}
}

func (t *Tile) Source() string { return t.source }

// Present queues h for the next draw, dropping any handle that has not
// been drawn yet.
func (t *Tile) Present(h *renderer.Handle, done func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = h
	t.nextDone = done
}

// Detach forgets the queued handle. What is already on screen stays until
// the tile is drawn blank by the grid.
func (t *Tile) Detach() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.next = nil
	t.nextDone = nil
	t.width, t.height = 0, 0
}

// FrameSize returns the size of the last displayed frame.
func (t *Tile) FrameSize() (int, int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.width, t.height
}

// Upload hands the queued frame to copyFn while holding the tile lock, so
// a concurrent Present cannot supersede it mid-copy. The returned function
// reports the outcome to the renderer and must be called without locks.
func (t *Tile) Upload(copyFn func(img *image.RGBA)) func() {
	t.mu.Lock()
	h, done := t.next, t.nextDone
	t.next, t.nextDone = nil, nil
	if h == nil {
		t.mu.Unlock()
		return func() {}
	}

	img := h.Image()
	if img == nil || img.Bounds().Empty() {
		t.mu.Unlock()
		return func() { done(errors.Wrapf(errEmptyFrame, "tile %s", t.source)) }
	}
	copyFn(img)
	t.width, t.height = img.Bounds().Dx(), img.Bounds().Dy()
	t.frames++
	t.mu.Unlock()
	return func() { done(nil) }
}
