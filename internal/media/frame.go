package media

import "sync"

// Frame is an opaque, owned decoded-frame handle as produced by a
// codec.Decoder. It carries the timing and format metadata the
// materialization contract needs (spec.md §4.3) and the decoded
// sample/pixel payload in Data; Native holds the backend's own handle.
type Frame struct {
	Type              Type
	Start             Timestamp
	Duration          Timestamp
	HasValidStartTime bool
	Channels          int    // audio: channel count as reported by the decoder
	SampleRate        int    // audio: sample rate as reported by the decoder
	Samples           int    // audio: samples per channel in this frame
	ChannelLayout     string // audio: backend-reported layout, e.g. "stereo", "5.1"
	TimeBase          int64  // ticks per second Start/Duration are expressed in
	Width, Height     int    // video: pixel dimensions
	Stride            int    // video: bytes per row as laid out in Data
	AspectWidth       int    // video: display aspect ratio numerator
	AspectHeight      int    // video: display aspect ratio denominator

	// Data is the decoded sample or pixel payload in the backend's
	// native sample/pixel format, already extracted from whatever
	// codec-library handle produced it. The component's materialize
	// step resamples/converts this into the block's target format.
	Data []byte

	// Native is the backend-specific decoded handle (e.g. an AVFrame
	// wrapper), kept alive only for backends whose release must happen
	// through the same handle (e.g. av_frame_unref). Audio and video
	// components read only Data; the Subtitle component takes caption
	// text from Native when it holds a string.
	Native any

	release func()
	once    sync.Once
}

// NewFrame wraps a decoded frame. release returns the backend resources
// (native buffers, AVFrame refs) when the frame is no longer needed.
func NewFrame(t Type, start, duration Timestamp, hasValidStart bool, native any, release func()) *Frame {
	return &Frame{
		Type:              t,
		Start:             start,
		Duration:          duration,
		HasValidStartTime: hasValidStart,
		Native:            native,
		release:           release,
	}
}

// Free releases the frame's backend resources. Safe to call multiple times.
func (f *Frame) Free() {
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
		f.Native = nil
	})
}

// ValidAudio reports whether this frame carries usable audio content
// per spec.md §4.3: audio frames with non-positive channels, samples, or
// sample rate are rejected by the materialization step.
func (f *Frame) ValidAudio() bool {
	return f.Channels > 0 && f.Samples > 0 && f.SampleRate > 0
}
