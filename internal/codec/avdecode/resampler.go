//go:build avdecode

package avdecode

/*
#include <stdlib.h>
#include <libswresample/swresample.h>
#include <libavutil/opt.h>
#include <libavutil/channel_layout.h>
#include <libavutil/samplefmt.h>

static SwrContext *swr_build(int srcCh, int srcRate, enum AVSampleFormat srcFmt,
                              int dstCh, int dstRate, enum AVSampleFormat dstFmt) {
    SwrContext *swr = NULL;
    AVChannelLayout srcLayout, dstLayout;
    av_channel_layout_default(&srcLayout, srcCh);
    av_channel_layout_default(&dstLayout, dstCh);
    if (swr_alloc_set_opts2(&swr, &dstLayout, dstFmt, dstRate, &srcLayout, srcFmt, srcRate, 0, NULL) < 0) {
        return NULL;
    }
    if (swr_init(swr) < 0) {
        swr_free(&swr);
        return NULL;
    }
    return swr;
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// Resampler wraps a libswresample SwrContext, converting between two
// fixed codec.ResamplerSpecs. A MediaComponent rebuilds one whenever the
// source spec changes (spec.md §4.3).
type Resampler struct {
	swr    *C.SwrContext
	target codec.ResamplerSpec
}

var _ codec.Resampler = (*Resampler)(nil)

// NewResampler satisfies codec.NewResamplerFunc.
func NewResampler(source, target codec.ResamplerSpec) (codec.Resampler, error) {
	swr := C.swr_build(
		C.int(source.Channels), C.int(source.SampleRate), sampleFormatToAV(source.SampleFormat),
		C.int(target.Channels), C.int(target.SampleRate), sampleFormatToAV(target.SampleFormat),
	)
	if swr == nil {
		return nil, &codec.AllocationError{Op: "swr_alloc", Err: fmt.Errorf("could not build resampler for %+v -> %+v", source, target)}
	}
	return &Resampler{swr: swr, target: target}, nil
}

func sampleFormatToAV(f media.SampleFormat) C.enum_AVSampleFormat {
	switch f {
	case media.SampleFormatF32:
		return C.AV_SAMPLE_FMT_FLT
	default:
		return C.AV_SAMPLE_FMT_S16
	}
}

// Convert implements codec.Resampler.
func (r *Resampler) Convert(src *media.Frame) (*media.Frame, error) {
	if len(src.Data) == 0 || src.Samples == 0 {
		return nil, &codec.DecoderError{Op: "resample", Err: fmt.Errorf("empty source frame")}
	}

	outChannels := r.target.Channels
	bytesPerSample := r.target.SampleFormat.BytesPerSample()
	// libswresample may need a couple extra samples of headroom when
	// resampling to a higher rate; size generously and trust the
	// returned sample count to size the final slice.
	maxOutSamples := src.Samples*2 + 256
	outBuf := make([]byte, maxOutSamples*outChannels*bytesPerSample)

	srcPtr := (*C.uint8_t)(unsafe.Pointer(&src.Data[0]))
	dstPtr := (*C.uint8_t)(unsafe.Pointer(&outBuf[0]))

	n := C.swr_convert(r.swr,
		(**C.uint8_t)(unsafe.Pointer(&dstPtr)), C.int(maxOutSamples),
		(**C.uint8_t)(unsafe.Pointer(&srcPtr)), C.int(src.Samples),
	)
	if n < 0 {
		return nil, &codec.DecoderError{Op: "swr_convert", Err: fmt.Errorf("swr_convert: code=%d", int(n))}
	}

	out := media.NewFrame(media.Audio, src.Start, src.Duration, src.HasValidStartTime, nil, nil)
	out.Channels = outChannels
	out.SampleRate = r.target.SampleRate
	out.Samples = int(n)
	out.Data = outBuf[:int(n)*outChannels*bytesPerSample]
	return out, nil
}

// Close implements codec.Resampler.
func (r *Resampler) Close() error {
	C.swr_free(&r.swr)
	return nil
}
