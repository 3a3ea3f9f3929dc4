package codec

import "errors"

// Error kinds returned across the codec FFI boundary (spec.md §7). Callers
// should use errors.As/errors.Is against these types rather than string
// matching.

// ContainerError wraps a failure opening, reading, or demuxing a media
// container.
type ContainerError struct {
	Op  string
	Err error
}

func (e *ContainerError) Error() string { return "codec: container " + e.Op + ": " + e.Err.Error() }
func (e *ContainerError) Unwrap() error { return e.Err }

// DecoderError wraps a codec send/receive failure, or a resampler/filter
// graph initialization failure.
type DecoderError struct {
	Op  string
	Err error
}

func (e *DecoderError) Error() string { return "codec: decoder " + e.Op + ": " + e.Err.Error() }
func (e *DecoderError) Unwrap() error { return e.Err }

// AllocationError wraps a block buffer or native resource allocation
// failure.
type AllocationError struct {
	Op  string
	Err error
}

func (e *AllocationError) Error() string { return "codec: allocation " + e.Op + ": " + e.Err.Error() }
func (e *AllocationError) Unwrap() error { return e.Err }

// StateError reports an operation invoked while its owner is in the wrong
// lifecycle state.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return "codec: " + e.Op + " invalid in state " + e.State
}

// ErrCancelled is returned when an interrupt was observed mid-operation
// (spec.md's Cancelled error kind).
var ErrCancelled = errors.New("codec: cancelled")

// ErrNeedMorePackets is a sentinel, not a failure: the codec has no frame
// ready and needs more input packets before it can produce one.
var ErrNeedMorePackets = errors.New("codec: need more packets")
