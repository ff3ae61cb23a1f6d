// Package audiostream implements the isochronous audio capture engine:
// it claims the device's audio streaming interface, submits a pool of
// isochronous transfers against its IN endpoint, and feeds completed
// packets into a ring buffer that the host audio sink drains on its own
// callback thread.
package audiostream

import "sync/atomic"

// State is the streamer's lifecycle state:
// INITIAL -> READY_TO_START -> STARTING -> STARTED -> STOPPING ->
// READY_TO_START | STOPPED; * -> DESTROYING -> DESTROYED; * -> ERROR.
type State int32

const (
	Initial State = iota
	ReadyToStart
	Starting
	Started
	Stopping
	Stopped
	Destroying
	Destroyed
	Error
)

func (s State) String() string {
	switch s {
	case Initial:
		return "INITIAL"
	case ReadyToStart:
		return "READY_TO_START"
	case Starting:
		return "STARTING"
	case Started:
		return "STARTED"
	case Stopping:
		return "STOPPING"
	case Stopped:
		return "STOPPED"
	case Destroying:
		return "DESTROYING"
	case Destroyed:
		return "DESTROYED"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// atomicState wraps atomic access to a State value.
type atomicState struct {
	v int32
}

func (a *atomicState) load() State {
	return State(atomic.LoadInt32(&a.v))
}

func (a *atomicState) store(s State) {
	atomic.StoreInt32(&a.v, int32(s))
}

// compareAndSwap attempts the transition, returning whether it took.
func (a *atomicState) compareAndSwap(from, to State) bool {
	return atomic.CompareAndSwapInt32(&a.v, int32(from), int32(to))
}
