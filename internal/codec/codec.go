// Package codec defines the opaque boundary between the playback engine
// and a native codec/demux library (spec.md §6 "Codec library (FFI)").
// Nothing in this package or its callers assumes a concrete native
// library; concrete backends live in sibling packages (tsdemux for a
// pure-Go MPEG-TS demuxer, avdecode for a cgo libav backend, fakecodec for
// tests) and are selected by the host at container-open time.
package codec

import (
	"context"

	"github.com/ashgrove/reelengine/internal/media"
)

// StreamInfo describes one elementary stream discovered by a Demuxer.
type StreamInfo struct {
	Index      int
	Type       media.Type
	CodecName  string // backend-specific codec identifier, e.g. "h264", "aac"
	TimeBase   int64  // ticks per second of this stream's timestamps
	Channels   int    // audio only
	SampleRate int    // audio only
	Width      int    // video only
	Height     int    // video only
}

// Demuxer reads packets from a container and reports stream layout. One
// Demuxer instance backs one MediaContainer. ReadPacket performs exactly
// one read-and-demux round, matching the ReadingWorker's one-packet-round
// contract (spec.md §4.5) — implementations must not read ahead
// internally beyond what is needed to produce a single packet.
type Demuxer interface {
	// Streams returns the elementary streams discovered so far. It may
	// grow as more of the container is read.
	Streams() []StreamInfo

	// ReadPacket returns the next demuxed packet and the index of the
	// stream it belongs to. Returns io.EOF when the container is
	// exhausted. Returns ErrCancelled if an abort was signaled mid-read.
	ReadPacket(ctx context.Context) (*media.Packet, int, error)

	// IsLive reports whether the container is an unbounded live source
	// (no well-defined end, no seeking).
	IsLive() bool

	// IsNetwork reports whether the container reads over a network
	// transport, which relaxes "enough packets" heuristics upstream.
	IsNetwork() bool

	// SignalAbort unblocks any in-flight ReadPacket call. If graceful is
	// true, implementations should attempt to flush buffered data as
	// io.EOF rather than returning ErrCancelled immediately.
	SignalAbort(graceful bool)

	// Seek repositions the container at or before pos (native demuxers
	// seek to keyframes) and returns a position; an implementation may
	// return pos itself rather than the position it reached.
	Seek(ctx context.Context, pos media.Timestamp) (media.Timestamp, error)

	// Close releases the demuxer's native resources.
	Close() error
}

// Decoder decodes packets of one stream into frames. One Decoder instance
// backs one MediaComponent.
type Decoder interface {
	// SendPacket feeds one packet to the decoder. It does not block on
	// I/O; it may return ErrNeedMorePackets-adjacent backpressure via a
	// DecoderError if the internal queue is full, in which case the
	// caller should retry next cycle.
	SendPacket(p *media.Packet) error

	// ReceiveFrame pulls the next decoded frame. Returns
	// ErrNeedMorePackets if the decoder needs more input before it can
	// produce a frame — this is not an error condition for the caller.
	ReceiveFrame() (*media.Frame, error)

	// Flush signals end of input and drains any frames buffered inside
	// the codec (used at EOF and before a seek).
	Flush()

	// Close releases the decoder's native context.
	Close() error
}

// ResamplerSpec describes the source or target layout of audio samples
// the Resampler converts between (spec.md §4.3 audio specialization).
type ResamplerSpec struct {
	Channels     int
	SampleFormat media.SampleFormat
	SampleRate   int
}

// Resampler converts audio frames between two ResamplerSpecs. A
// MediaComponent owns at most one Resampler, reinitialized whenever the
// source spec changes.
type Resampler interface {
	// Convert resamples src (in the Resampler's configured source spec)
	// into the configured target spec, returning a new owned Frame.
	Convert(src *media.Frame) (*media.Frame, error)
	Close() error
}

// NewResamplerFunc constructs a Resampler for the given source/target
// spec pair. Backends register a concrete implementation via this
// signature so internal/component never imports a backend package
// directly.
type NewResamplerFunc func(source, target ResamplerSpec) (Resampler, error)

// FilterGraph runs frames through a user-supplied filter chain (spec.md
// §4.3). A MediaComponent's filter graph is rebuilt whenever the
// per-stream argument string changes.
type FilterGraph interface {
	// Push feeds a frame into the graph's buffer source.
	Push(f *media.Frame) error
	// Pull drains one frame from the graph's buffer sink, or returns
	// (nil, nil) if the sink currently has nothing buffered.
	Pull() (*media.Frame, error)
	Close() error
}

// NewFilterGraphFunc builds a FilterGraph from a filter description
// string and the stream arguments it needs (time_base, sample_rate,
// sample_fmt, channel_layout — spec.md §4.3).
type NewFilterGraphFunc func(description string, args FilterGraphArgs) (FilterGraph, error)

// FilterGraphArgs carries the per-stream parameters a filter graph's
// abuffer source needs to configure itself.
type FilterGraphArgs struct {
	TimeBase      int64
	SampleRate    int
	SampleFormat  media.SampleFormat
	ChannelLayout string
}
