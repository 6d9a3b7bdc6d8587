package display

import (
	"image"
	"sync"
	"time"

	"github.com/junsooki/camfeed/internal/renderer"
)

// Headless is a window-less surface. Queued frames are "displayed" on a
// refresh tick by copying them into a snapshot buffer.
type Headless struct {
	source   string
	interval time.Duration

	mu        sync.Mutex
	next      *renderer.Handle
	nextDone  func(error)
	last      *image.RGBA
	displayed uint64

	stop chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// NewHeadless creates a headless surface refreshing every interval.
func NewHeadless(source string, interval time.Duration) *Headless {
	if interval <= 0 {
		interval = time.Second / 60
	}
	return &Headless{source: source, interval: interval, stop: make(chan struct{})}
}

func (s *Headless) Source() string { return s.source }

func (s *Headless) Present(h *renderer.Handle, done func(error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = h
	s.nextDone = done
}

func (s *Headless) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next = nil
	s.nextDone = nil
	s.last = nil
}

// Start runs the refresh loop until Stop.
func (s *Headless) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
				s.Flush()
			}
		}
	}()
}

// Stop ends the refresh loop. Safe to call more than once.
func (s *Headless) Stop() {
	s.once.Do(func() { close(s.stop) })
	s.wg.Wait()
}

// Flush displays the queued frame, if any.
func (s *Headless) Flush() {
	s.mu.Lock()
	h, done := s.next, s.nextDone
	s.next, s.nextDone = nil, nil
	if h == nil {
		s.mu.Unlock()
		return
	}
	img := h.Image()
	if img == nil || img.Bounds().Empty() {
		s.mu.Unlock()
		done(errEmptyFrame)
		return
	}
	s.last = cloneRGBA(img)
	s.displayed++
	s.mu.Unlock()
	done(nil)
}

// Snapshot returns a copy of the frame on screen, or nil.
func (s *Headless) Snapshot() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	return cloneRGBA(s.last)
}

// Displayed counts frames shown so far.
func (s *Headless) Displayed() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	out := image.NewRGBA(img.Bounds())
	copy(out.Pix, PackedPix(img))
	return out
}
