package capture

import (
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// PatternCapturer is a synthetic camera: color bars with a bar sweeping
// across them, one frame per tick. Frames are dropped, not queued, when
// the consumer falls behind.
type PatternCapturer struct {
	source string
	width  int
	height int
	fps    int

	frames chan *Frame
	stop   chan struct{}
	wg     sync.WaitGroup

	mu      sync.Mutex
	running bool
	seq     uint64
	dropped uint64
}

// NewPatternCapturer creates a capturer for source at the given size and rate.
func NewPatternCapturer(source string, width, height, fps int) (*PatternCapturer, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid frame size %dx%d", width, height)
	}
	if fps <= 0 {
		return nil, errors.Errorf("invalid fps %d", fps)
	}
	return &PatternCapturer{
		source: source,
		width:  width,
		height: height,
		fps:    fps,
		frames: make(chan *Frame, 1),
	}, nil
}

func (c *PatternCapturer) Source() string { return c.source }

// Frames is closed when the capturer stops.
func (c *PatternCapturer) Frames() <-chan *Frame { return c.frames }

func (c *PatternCapturer) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return errors.Errorf("capture %s already running", c.source)
	}
	if c.stop != nil {
		return errors.Errorf("capture %s was stopped", c.source)
	}
	c.running = true
	c.stop = make(chan struct{})

	c.wg.Add(1)
	go c.loop()
	return nil
}

func (c *PatternCapturer) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()

	c.wg.Wait()
	close(c.frames)
}

// Dropped counts frames discarded because nobody was reading.
func (c *PatternCapturer) Dropped() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *PatternCapturer) loop() {
	defer c.wg.Done()
	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			f := c.next(now)
			select {
			case c.frames <- f:
			default:
				c.mu.Lock()
				c.dropped++
				c.mu.Unlock()
			}
		}
	}
}

func (c *PatternCapturer) next(now time.Time) *Frame {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	return &Frame{Source: c.source, Seq: seq, Image: Pattern(c.width, c.height, seq), Timestamp: now}
}

var bars = []color.RGBA{
	{R: 192, G: 192, B: 192, A: 255},
	{R: 192, G: 192, B: 0, A: 255},
	{R: 0, G: 192, B: 192, A: 255},
	{R: 0, G: 192, B: 0, A: 255},
	{R: 192, G: 0, B: 192, A: 255},
	{R: 192, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 192, A: 255},
}

// Pattern draws frame number seq of the test pattern.
func Pattern(width, height int, seq uint64) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	barW := (width + len(bars) - 1) / len(bars)
	sweepW := width / 16
	if sweepW < 1 {
		sweepW = 1
	}
	sweepX := int(seq*4) % width

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := bars[x/barW]
			if x >= sweepX && x < sweepX+sweepW {
				c = color.RGBA{R: 255, G: 255, B: 255, A: 255}
			}
			off := img.PixOffset(x, y)
			img.Pix[off+0] = c.R
			img.Pix[off+1] = c.G
			img.Pix[off+2] = c.B
			img.Pix[off+3] = c.A
		}
	}
	return img
}
