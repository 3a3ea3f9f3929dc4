//go:build avdecode

package avdecode

/*
#include <libavformat/avformat.h>
*/
import "C"

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// Demuxer wraps an AVFormatContext, matching the codec.Demuxer contract.
// One Demuxer backs one MediaContainer.
type Demuxer struct {
	mu      sync.Mutex
	cdemux  C.avDemuxer
	streams []codec.StreamInfo
	isLive  bool
	isNet   bool
	aborted bool
	url     string
	log     *slog.Logger
}

var _ codec.Demuxer = (*Demuxer)(nil)

// Open opens url (a file path or network URL libavformat understands
// directly, e.g. "srt://host:port") and probes its stream layout.
func Open(ctx context.Context, url string, isNetwork bool, log *slog.Logger) (*Demuxer, error) {
	if log == nil {
		log = slog.Default()
	}
	d := &Demuxer{url: url, isNet: isNetwork, log: log.With("component", "avdecode-demuxer")}

	cURL := C.CString(url)
	defer C.free(unsafe.Pointer(cURL))

	if ret := C.av_demuxer_open(&d.cdemux, cURL); ret != 0 {
		return nil, &codec.ContainerError{Op: "open", Err: fmt.Errorf("avformat_open_input failed (code=%d)", int(ret))}
	}
	C.av_demuxer_arm_interrupt(&d.cdemux)

	d.probeStreams()
	return d, nil
}

func (d *Demuxer) probeStreams() {
	n := int(d.cdemux.fmtCtx.nb_streams)
	cStreams := (*[1 << 16]*C.AVStream)(unsafe.Pointer(d.cdemux.fmtCtx.streams))[:n:n]
	for i, s := range cStreams {
		params := s.codecpar
		info := codec.StreamInfo{
			Index:    i,
			TimeBase: int64(s.time_base.den) / int64maxOne(int64(s.time_base.num)),
		}
		switch params.codec_type {
		case C.AVMEDIA_TYPE_VIDEO:
			info.Type = media.Video
			info.Width = int(params.width)
			info.Height = int(params.height)
		case C.AVMEDIA_TYPE_AUDIO:
			info.Type = media.Audio
			info.Channels = int(params.ch_layout.nb_channels)
			info.SampleRate = int(params.sample_rate)
		case C.AVMEDIA_TYPE_SUBTITLE:
			info.Type = media.Subtitle
		default:
			continue
		}
		d.streams = append(d.streams, info)
	}
}

func int64maxOne(v int64) int64 {
	if v <= 0 {
		return 1
	}
	return v
}

// Streams implements codec.Demuxer.
func (d *Demuxer) Streams() []codec.StreamInfo { return d.streams }

// IsLive implements codec.Demuxer.
func (d *Demuxer) IsLive() bool { return d.isLive }

// IsNetwork implements codec.Demuxer.
func (d *Demuxer) IsNetwork() bool { return d.isNet }

// ReadPacket implements codec.Demuxer: one av_read_frame call per round.
func (d *Demuxer) ReadPacket(ctx context.Context) (*media.Packet, int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.aborted {
		return nil, -1, codec.ErrCancelled
	}

	ret := C.av_demuxer_read(&d.cdemux)
	if ret < 0 {
		if ret == C.AVERROR_EOF {
			return nil, -1, io.EOF
		}
		if d.aborted {
			return nil, -1, codec.ErrCancelled
		}
		return nil, -1, &codec.ContainerError{Op: "read_frame", Err: fmt.Errorf("av_read_frame: code=%d", int(ret))}
	}

	streamIdx := int(d.cdemux.pkt.stream_index)
	size := int(d.cdemux.pkt.size)
	data := C.GoBytes(unsafe.Pointer(d.cdemux.pkt.data), C.int(size))

	p := media.NewPacket(d.typeForStream(streamIdx), data, nil)
	p.PTS = pesTimestampFromAV(int64(d.cdemux.pkt.pts), d.timeBaseForStream(streamIdx))
	p.DTS = pesTimestampFromAV(int64(d.cdemux.pkt.dts), d.timeBaseForStream(streamIdx))
	return p, streamIdx, nil
}

func (d *Demuxer) typeForStream(idx int) media.Type {
	for _, s := range d.streams {
		if s.Index == idx {
			return s.Type
		}
	}
	return media.Video
}

// codecParamsForStream returns the raw AVCodecParameters for streamIndex,
// used by NewDecoder to open a matching AVCodecContext. Only valid while
// the Demuxer is open.
func (d *Demuxer) codecParamsForStream(idx int) *C.AVCodecParameters {
	n := int(d.cdemux.fmtCtx.nb_streams)
	cStreams := (*[1 << 16]*C.AVStream)(unsafe.Pointer(d.cdemux.fmtCtx.streams))[:n:n]
	if idx < 0 || idx >= n {
		return nil
	}
	return cStreams[idx].codecpar
}

func (d *Demuxer) timeBaseForStream(idx int) int64 {
	for _, s := range d.streams {
		if s.Index == idx {
			return s.TimeBase
		}
	}
	return 1
}

func pesTimestampFromAV(ts int64, timeBase int64) media.Timestamp {
	if ts == int64(C.AV_NOPTS_VALUE) || timeBase <= 0 {
		return media.Unset
	}
	return media.FromDuration(durationFromTicks(ts, timeBase))
}

// SignalAbort implements codec.Demuxer. graceful is ignored: libavformat's
// interrupt callback has no "flush remaining" mode, it only unblocks the
// current blocking call.
func (d *Demuxer) SignalAbort(graceful bool) {
	d.mu.Lock()
	d.aborted = true
	d.cdemux.abortRequested = 1
	d.mu.Unlock()
}

// Seek implements codec.Demuxer, seeking stream 0 to the nearest keyframe
// at or before pos. It returns pos itself, not the keyframe position the
// demuxer reached.
func (d *Demuxer) Seek(ctx context.Context, pos media.Timestamp) (media.Timestamp, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.streams) == 0 {
		return 0, &codec.ContainerError{Op: "seek", Err: errors.New("no streams discovered")}
	}
	tb := d.timeBaseForStream(0)
	ts := ticksFromDuration(pos.Duration(), tb)
	if ret := C.av_demuxer_seek(&d.cdemux, 0, C.int64_t(ts)); ret < 0 {
		return 0, &codec.ContainerError{Op: "seek", Err: fmt.Errorf("av_seek_frame: code=%d", int(ret))}
	}
	return pos, nil
}

// Close implements codec.Demuxer.
func (d *Demuxer) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	C.av_demuxer_close(&d.cdemux)
	return nil
}
