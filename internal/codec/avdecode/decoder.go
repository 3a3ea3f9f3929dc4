//go:build avdecode

package avdecode

/*
#include <string.h>
#include <errno.h>
#include <libavcodec/avcodec.h>
#include <libavutil/imgutils.h>
#include <libavutil/channel_layout.h>

static int av_frame_channel_layout_describe(AVFrame *f, char *buf, int bufSize) {
    return av_channel_layout_describe(&f->ch_layout, buf, bufSize);
}
*/
import "C"

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// Decoder wraps one stream's AVCodecContext, matching the codec.Decoder
// contract. One Decoder instance backs one MediaComponent.
type Decoder struct {
	cdec      C.avDecoder
	mediaType media.Type
	timeBase  int64
	log       *slog.Logger
}

var _ codec.Decoder = (*Decoder)(nil)

// NewDecoder opens an AVCodecContext for the demuxer's stream at
// streamIndex and returns a Decoder ready to receive packets.
func NewDecoder(d *Demuxer, streamIndex int, log *slog.Logger) (*Decoder, error) {
	if log == nil {
		log = slog.Default()
	}
	params := d.codecParamsForStream(streamIndex)
	if params == nil {
		return nil, &codec.DecoderError{Op: "open", Err: fmt.Errorf("no stream at index %d", streamIndex)}
	}

	dec := &Decoder{mediaType: d.typeForStream(streamIndex), timeBase: d.timeBaseForStream(streamIndex), log: log.With("component", "avdecode-decoder", "stream", streamIndex)}
	if ret := C.av_decoder_open(&dec.cdec, params); ret != 0 {
		return nil, &codec.DecoderError{Op: "open", Err: fmt.Errorf("avcodec_open2 failed (code=%d)", int(ret))}
	}
	return dec, nil
}

// SendPacket implements codec.Decoder.
func (dec *Decoder) SendPacket(p *media.Packet) error {
	defer p.Free()

	payload := p.Payload()
	cpkt := C.av_packet_alloc()
	defer C.av_packet_free(&cpkt)

	if len(payload) > 0 {
		if ret := C.av_new_packet(cpkt, C.int(len(payload))); ret < 0 {
			return &codec.AllocationError{Op: "send_packet", Err: fmt.Errorf("av_new_packet: code=%d", int(ret))}
		}
		C.memcpy(unsafe.Pointer(cpkt.data), unsafe.Pointer(&payload[0]), C.size_t(len(payload)))
	}
	cpkt.pts = C.int64_t(ticksFromDuration(p.PTS.Duration(), dec.timeBase))
	cpkt.dts = C.int64_t(ticksFromDuration(p.DTS.Duration(), dec.timeBase))

	if ret := C.av_decoder_send(&dec.cdec, cpkt); ret < 0 && ret != C.int(-C.EAGAIN) {
		return &codec.DecoderError{Op: "send_packet", Err: fmt.Errorf("avcodec_send_packet: code=%d", int(ret))}
	}
	return nil
}

// ReceiveFrame implements codec.Decoder.
func (dec *Decoder) ReceiveFrame() (*media.Frame, error) {
	ret := C.av_decoder_receive(&dec.cdec)
	if ret == C.int(-C.EAGAIN) || ret == C.AVERROR_EOF {
		return nil, codec.ErrNeedMorePackets
	}
	if ret < 0 {
		return nil, &codec.DecoderError{Op: "receive_frame", Err: fmt.Errorf("avcodec_receive_frame: code=%d", int(ret))}
	}

	switch dec.mediaType {
	case media.Video:
		return dec.videoFrame(), nil
	case media.Audio:
		return dec.audioFrame(), nil
	default:
		return dec.videoFrame(), nil
	}
}

func (dec *Decoder) videoFrame() *media.Frame {
	f := dec.cdec.frame
	width, height := int(f.width), int(f.height)
	stride := int(f.linesize[0])
	size := stride * height

	start := pesTimestampFromAV(int64(f.pts), dec.timeBase)
	out := media.NewFrame(media.Video, start, 0, !start.IsUnset(), nil, nil)
	out.TimeBase = dec.timeBase
	out.Width, out.Height, out.Stride = width, height, stride
	out.Data = C.GoBytes(unsafe.Pointer(f.data[0]), C.int(size))
	return out
}

func (dec *Decoder) audioFrame() *media.Frame {
	f := dec.cdec.frame
	channels := int(f.ch_layout.nb_channels)
	samples := int(f.nb_samples)
	bytesPerSample := 4 // planar float is libav's common default; resampler below converts to the component's target.
	size := samples * channels * bytesPerSample

	start := pesTimestampFromAV(int64(f.pts), dec.timeBase)
	out := media.NewFrame(media.Audio, start, 0, !start.IsUnset(), nil, nil)
	out.TimeBase = dec.timeBase
	out.Channels, out.SampleRate, out.Samples = channels, int(f.sample_rate), samples
	out.ChannelLayout = channelLayoutDescribe(f)
	out.Data = C.GoBytes(unsafe.Pointer(f.data[0]), C.int(size))
	return out
}

// channelLayoutDescribe renders an AVFrame's channel layout as the same
// string form NewFilterGraph's channel_layout argument expects (e.g.
// "stereo", "5.1"), so a layout change reported by the decoder flows
// straight into Audio.ensureFilterGraph's rebuild check.
func channelLayoutDescribe(f *C.AVFrame) string {
	var buf [64]C.char
	if C.av_frame_channel_layout_describe(f, &buf[0], C.int(len(buf))) < 0 {
		return ""
	}
	return C.GoString(&buf[0])
}

// Flush implements codec.Decoder.
func (dec *Decoder) Flush() {
	C.av_decoder_flush(&dec.cdec)
}

// Close implements codec.Decoder.
func (dec *Decoder) Close() error {
	C.av_decoder_close(&dec.cdec)
	return nil
}
