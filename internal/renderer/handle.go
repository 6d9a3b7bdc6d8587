package renderer

import (
	"image"
	"sync"
)

// Handle is an owned reference to a decoded frame ready for display.
// The renderer releases every handle exactly once.
type Handle struct {
	id      uint64
	source  string
	img     *image.RGBA
	once    sync.Once
	reclaim func(*image.RGBA)
}

func newHandle(id uint64, source string, img *image.RGBA, reclaim func(*image.RGBA)) *Handle {
	return &Handle{id: id, source: source, img: img, reclaim: reclaim}
}

// ID is unique per renderer and increases in acceptance order.
func (h *Handle) ID() uint64 { return h.id }

func (h *Handle) Source() string { return h.source }

// Image returns the decoded pixels. Surfaces must not read them once the
// handle has been superseded or the target unbound.
func (h *Handle) Image() *image.RGBA { return h.img }

// Release reclaims the image buffer. It reports whether this call did the
// release; subsequent calls are no-ops.
func (h *Handle) Release() bool {
	released := false
	h.once.Do(func() {
		released = true
		if h.reclaim != nil {
			h.reclaim(h.img)
		}
	})
	return released
}
