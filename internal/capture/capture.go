package capture

import (
	"image"
	"time"
)

// Frame represents a captured camera frame.
type Frame struct {
	Source    string
	Seq       uint64
	Image     *image.RGBA
	Timestamp time.Time
}

// Capturer produces frames until stopped.
type Capturer interface {
	Start() error
	Stop()
	Frames() <-chan *Frame
}
