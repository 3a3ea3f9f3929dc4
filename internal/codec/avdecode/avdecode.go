//go:build avdecode

// Package avdecode is the real-codec backend for the engine's
// internal/codec boundary: a cgo wrapper around libavformat/libavcodec/
// libswresample/libavfilter. Grounded on the other_examples FFmpeg player
// (mpeg.videoDecoder: a C struct of native handles behind init/decode/
// close wrapper functions, paths marshaled with C.CString, frame bytes
// pulled out with C.GoBytes) — restructured here into the four small
// interfaces internal/codec defines so the rest of the engine never sees
// an AVFormatContext.
//
// Requires the libavformat/libavcodec/libavutil/libswresample/libavfilter
// development headers at build time; gated behind the avdecode build tag
// so a host without them still builds the rest of the engine (tsdemux and
// fakecodec need no cgo).
package avdecode

/*
#cgo pkg-config: libavformat libavcodec libavutil libswresample libavfilter

#include <stdlib.h>
#include <libavformat/avformat.h>
#include <libavcodec/avcodec.h>
#include <libavutil/opt.h>
#include <libavutil/channel_layout.h>
#include <libswresample/swresample.h>
#include <libavfilter/avfilter.h>
#include <libavfilter/buffersink.h>
#include <libavfilter/buffersrc.h>

typedef struct {
    AVFormatContext *fmtCtx;
    AVPacket        *pkt;
    int             abortRequested;
} avDemuxer;

static int av_demuxer_open(avDemuxer *d, const char *url) {
    d->fmtCtx = NULL;
    d->abortRequested = 0;
    if (avformat_open_input(&d->fmtCtx, url, NULL, NULL) != 0) {
        return -1;
    }
    if (avformat_find_stream_info(d->fmtCtx, NULL) < 0) {
        avformat_close_input(&d->fmtCtx);
        return -2;
    }
    d->pkt = av_packet_alloc();
    return 0;
}

static int av_demuxer_interrupt_cb(void *opaque) {
    avDemuxer *d = (avDemuxer *)opaque;
    return d->abortRequested;
}

static void av_demuxer_arm_interrupt(avDemuxer *d) {
    d->fmtCtx->interrupt_callback.callback = av_demuxer_interrupt_cb;
    d->fmtCtx->interrupt_callback.opaque = d;
}

static int av_demuxer_read(avDemuxer *d) {
    av_packet_unref(d->pkt);
    return av_read_frame(d->fmtCtx, d->pkt);
}

static int64_t av_demuxer_seek(avDemuxer *d, int streamIndex, int64_t ts) {
    return av_seek_frame(d->fmtCtx, streamIndex, ts, AVSEEK_FLAG_BACKWARD);
}

static void av_demuxer_close(avDemuxer *d) {
    if (d->pkt) {
        av_packet_free(&d->pkt);
    }
    if (d->fmtCtx) {
        avformat_close_input(&d->fmtCtx);
    }
}

typedef struct {
    AVCodecContext *codecCtx;
    AVFrame        *frame;
} avDecoder;

static int av_decoder_open(avDecoder *dec, AVCodecParameters *params) {
    const AVCodec *codec = avcodec_find_decoder(params->codec_id);
    if (!codec) {
        return -1;
    }
    dec->codecCtx = avcodec_alloc_context3(codec);
    if (!dec->codecCtx) {
        return -2;
    }
    if (avcodec_parameters_to_context(dec->codecCtx, params) < 0) {
        return -3;
    }
    if (avcodec_open2(dec->codecCtx, codec, NULL) < 0) {
        return -4;
    }
    dec->frame = av_frame_alloc();
    return 0;
}

static int av_decoder_send(avDecoder *dec, AVPacket *pkt) {
    return avcodec_send_packet(dec->codecCtx, pkt);
}

static int av_decoder_receive(avDecoder *dec) {
    return avcodec_receive_frame(dec->codecCtx, dec->frame);
}

static void av_decoder_flush(avDecoder *dec) {
    avcodec_flush_buffers(dec->codecCtx);
}

static void av_decoder_close(avDecoder *dec) {
    if (dec->frame) {
        av_frame_free(&dec->frame);
    }
    if (dec->codecCtx) {
        avcodec_free_context(&dec->codecCtx);
    }
}
*/
import "C"
