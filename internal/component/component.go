// Package component implements MediaComponent: per-stream decoder state,
// packet queueing, and the frame-to-block materialization contract
// (spec.md §4.3). Audio and Video add specializations for resampling,
// filter graphs, and pixel conversion; Subtitle renders caption text or
// bitmaps directly.
package component

import (
	"log/slog"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// Component is the MediaComponent contract (spec.md §4.3) shared by the
// Audio, Video, and Subtitle specializations: it owns one decoder and
// knows how to turn a decoded Frame into a renderable Block.
type Component interface {
	Type() media.Type
	EnqueuePacket(p *media.Packet)
	ReceiveNextFrame() (*media.Frame, error)
	Materialize(f *media.Frame, prev *media.Block) (*media.Block, bool)
	BufferLength() int
	BufferCount() int
	HasEnoughPackets() bool
	HasPacketsInCodec() bool
	Flush()
	Dispose()
}

// MinPacketsThreshold is the component-specific "enough packets queued"
// threshold referenced by spec.md §4.3's has_enough_packets and by
// ReadingWorker's should_read_more_packets.
const MinPacketsThreshold = 8

// Base holds the state common to every MediaComponent specialization: the
// decoder, its packet queue, and stream identity. Specializations embed
// Base and implement Materialize.
type Base struct {
	StreamIndex int
	MediaType   media.Type

	decoder codec.Decoder
	queue   packetQueue
	log     *slog.Logger

	hasPacketsInCodec bool
}

// NewBase wires a Base around an already-opened decoder for one stream.
func NewBase(streamIndex int, t media.Type, decoder codec.Decoder, log *slog.Logger) Base {
	if log == nil {
		log = slog.Default()
	}
	return Base{
		StreamIndex: streamIndex,
		MediaType:   t,
		decoder:     decoder,
		log:         log.With("component", "media-component", "type", t.String(), "stream", streamIndex),
	}
}

// Type returns the media type this component decodes.
func (b *Base) Type() media.Type { return b.MediaType }

// EnqueuePacket is called by the reader to hand a demuxed packet to this
// component's queue.
func (b *Base) EnqueuePacket(p *media.Packet) { b.queue.push(p) }

// BufferLength returns the bytes of queued packets (spec.md §4.3
// buffer_length).
func (b *Base) BufferLength() int { return b.queue.byteLength() }

// BufferCount returns the number of queued packets (spec.md §4.3
// buffer_count).
func (b *Base) BufferCount() int { return b.queue.count() }

// HasEnoughPackets reports whether the queue has reached this
// component's threshold (spec.md §4.3 has_enough_packets).
func (b *Base) HasEnoughPackets() bool { return b.queue.count() >= MinPacketsThreshold }

// HasPacketsInCodec reports whether the decoder has been sent a packet
// it has not yet fully drained frames for (spec.md §4.3
// has_packets_in_codec).
func (b *Base) HasPacketsInCodec() bool { return b.hasPacketsInCodec }

// ReceiveNextFrame pulls the next decoded frame, feeding queued packets
// to the decoder as needed. Returns (nil, nil) if the codec needs more
// packets and none are queued; returns a *codec.DecoderError on
// unrecoverable codec failure (spec.md §4.3 receive_next_frame).
func (b *Base) ReceiveNextFrame() (*media.Frame, error) {
	for {
		f, err := b.decoder.ReceiveFrame()
		if err == nil {
			b.hasPacketsInCodec = b.queue.count() > 0
			return f, nil
		}
		if err != codec.ErrNeedMorePackets {
			return nil, &codec.DecoderError{Op: "receive_frame", Err: err}
		}

		p := b.queue.pop()
		if p == nil {
			b.hasPacketsInCodec = false
			return nil, nil
		}
		sendErr := b.decoder.SendPacket(p)
		p.Free()
		if sendErr != nil {
			return nil, &codec.DecoderError{Op: "send_packet", Err: sendErr}
		}
		b.hasPacketsInCodec = true
	}
}

// Dispose releases the decoder and drains the packet queue (spec.md
// §4.3 dispose).
func (b *Base) Dispose() {
	b.queue.drain()
	if b.decoder != nil {
		b.decoder.Close()
	}
}

// Flush discards queued packets and tells the decoder to drop any
// buffered state, used before a seek.
func (b *Base) Flush() {
	b.queue.drain()
	b.hasPacketsInCodec = false
	if b.decoder != nil {
		b.decoder.Flush()
	}
}

// estimateGuessedTiming implements the shared fallback in spec.md §4.3:
// when a frame carries no valid start time, derive one from the
// previous block's end plus one tick, and inherit duration from the
// frame if positive else from the previous block.
func estimateGuessedTiming(f *media.Frame, prev *media.Block) (start, duration media.Timestamp) {
	const oneTick = media.Timestamp(1)
	if prev == nil {
		duration = f.Duration
		return 0, duration
	}
	start = prev.End() + oneTick
	if f.Duration > 0 {
		duration = f.Duration
	} else {
		duration = prev.Duration
	}
	return start, duration
}
