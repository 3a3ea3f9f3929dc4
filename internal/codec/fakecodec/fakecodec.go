// Package fakecodec is an in-memory, deterministic codec.Demuxer/Decoder
// pair used by engine tests. It produces packets and frames from
// caller-supplied timing tables rather than parsing real bitstreams, so
// pipeline tests can exercise buffering, hysteresis, and end-of-stream
// behavior without a native codec library.
package fakecodec

import (
	"context"
	"io"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// StreamSpec describes one synthetic elementary stream.
type StreamSpec struct {
	Type          media.Type
	FrameCount    int
	FrameDur      media.Timestamp // fixed duration per frame
	Channels      int             // audio
	SampleRate    int             // audio
	Samples       int             // audio, per frame
	ChannelLayout string          // audio
	TimeBase      int64           // ticks per second
	Width         int             // video
	Height        int             // video
	AspectW       int
	AspectH       int
}

// Demuxer produces one packet per frame per configured stream, round-robin
// across streams, in increasing timestamp order per stream.
type Demuxer struct {
	specs   []StreamSpec
	emitted []int // per-stream count already emitted
	next    int   // round-robin cursor
	aborted bool
	live    bool
	network bool
}

// New builds a Demuxer over specs. The streams are indexed in slice order.
func New(specs []StreamSpec) *Demuxer {
	return &Demuxer{specs: specs, emitted: make([]int, len(specs))}
}

// SetLive marks the source as an unbounded live stream (spec.md §4.5).
func (d *Demuxer) SetLive(v bool) { d.live = v }

// SetNetwork marks the source as network-backed.
func (d *Demuxer) SetNetwork(v bool) { d.network = v }

func (d *Demuxer) Streams() []codec.StreamInfo {
	out := make([]codec.StreamInfo, len(d.specs))
	for i, s := range d.specs {
		out[i] = codec.StreamInfo{
			Index: i, Type: s.Type, CodecName: "fake",
			Channels: s.Channels, SampleRate: s.SampleRate,
			Width: s.Width, Height: s.Height,
		}
	}
	return out
}

func (d *Demuxer) ReadPacket(ctx context.Context) (*media.Packet, int, error) {
	if d.aborted {
		return nil, -1, codec.ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return nil, -1, err
	}
	for range d.specs {
		idx := d.next
		d.next = (d.next + 1) % len(d.specs)
		spec := d.specs[idx]
		if d.emitted[idx] >= spec.FrameCount {
			continue
		}
		n := d.emitted[idx]
		d.emitted[idx]++
		pts := spec.FrameDur * media.Timestamp(n)
		p := media.NewPacket(spec.Type, []byte{byte(n)}, nil)
		p.PTS = pts
		p.DTS = pts
		return p, idx, nil
	}
	return nil, -1, io.EOF
}

func (d *Demuxer) IsLive() bool    { return d.live }
func (d *Demuxer) IsNetwork() bool { return d.network }

func (d *Demuxer) SignalAbort(graceful bool) { d.aborted = !graceful }

func (d *Demuxer) Seek(ctx context.Context, pos media.Timestamp) (media.Timestamp, error) {
	for i, spec := range d.specs {
		if spec.FrameDur <= 0 {
			continue
		}
		d.emitted[i] = int(pos / spec.FrameDur)
	}
	return pos, nil
}

func (d *Demuxer) Close() error { return nil }

// Decoder turns the fake packets for one stream back into frames carrying
// the spec's declared geometry and a zero-filled payload of matching size
// (S16 samples for audio, 4 bytes per pixel for video); it performs no
// real decode.
type Decoder struct {
	spec  StreamSpec
	queue []*media.Packet
}

// NewDecoder builds a Decoder for one stream's StreamSpec.
func NewDecoder(spec StreamSpec) *Decoder {
	return &Decoder{spec: spec}
}

func (d *Decoder) SendPacket(p *media.Packet) error {
	d.queue = append(d.queue, p)
	return nil
}

func (d *Decoder) ReceiveFrame() (*media.Frame, error) {
	if len(d.queue) == 0 {
		return nil, codec.ErrNeedMorePackets
	}
	p := d.queue[0]
	d.queue = d.queue[1:]
	defer p.Free()

	f := media.NewFrame(d.spec.Type, p.PTS, d.spec.FrameDur, !p.PTS.IsUnset(), nil, nil)
	f.TimeBase = d.spec.TimeBase
	switch d.spec.Type {
	case media.Audio:
		f.Channels = d.spec.Channels
		f.SampleRate = d.spec.SampleRate
		f.Samples = d.spec.Samples
		f.ChannelLayout = d.spec.ChannelLayout
		f.Data = make([]byte, d.spec.Samples*d.spec.Channels*media.SampleFormatS16.BytesPerSample())
	case media.Video:
		f.Width = d.spec.Width
		f.Height = d.spec.Height
		f.AspectWidth = d.spec.AspectW
		f.AspectHeight = d.spec.AspectH
		f.Data = make([]byte, d.spec.Width*d.spec.Height*4)
	}
	return f, nil
}

func (d *Decoder) Flush()       { d.queue = nil }
func (d *Decoder) Close() error { return nil }
