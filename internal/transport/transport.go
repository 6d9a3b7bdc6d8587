package transport

import "github.com/junsooki/camfeed/internal/frame"

// FrameSender sends camera frame events.
type FrameSender interface {
	SendFrame(msg frame.Message) error
}

// FrameReceiver receives camera frame events.
type FrameReceiver interface {
	OnFrame(callback func(msg frame.Message))
}
