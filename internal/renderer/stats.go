package renderer

import "time"

// State of a render target.
type State int

const (
	StateIdle State = iota
	StateAwaitingDisplay
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingDisplay:
		return "awaiting-display"
	case StateReleased:
		return "released"
	}
	return "unknown"
}

// TargetStats is a snapshot of one render target's counters.
type TargetStats struct {
	Source string
	State  State

	Accepted        uint64
	Throttled       uint64
	Malformed       uint64
	DecodeFailures  uint64
	DisplayFailures uint64
	Displayed       uint64
	Superseded      uint64
	Released        uint64

	LastAccepted time.Time
	ActiveID     uint64 // 0 when nothing is on screen
	PendingID    uint64 // 0 when not awaiting display
}
