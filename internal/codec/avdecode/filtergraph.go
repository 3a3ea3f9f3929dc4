//go:build avdecode

package avdecode

/*
#include <stdlib.h>
#include <string.h>
#include <errno.h>
#include <libavutil/frame.h>
#include <libavutil/channel_layout.h>
#include <libavfilter/avfilter.h>
#include <libavfilter/buffersrc.h>
#include <libavfilter/buffersink.h>
#include <libavutil/opt.h>

typedef struct {
    AVFilterGraph   *graph;
    AVFilterContext *src;
    AVFilterContext *sink;
} avFilterGraph;

static int avfg_build(avFilterGraph *g, const char *args, const char *description) {
    const AVFilter *abuffer = avfilter_get_by_name("abuffer");
    const AVFilter *abuffersink = avfilter_get_by_name("abuffersink");
    if (!abuffer || !abuffersink) {
        return -1;
    }

    g->graph = avfilter_graph_alloc();
    if (!g->graph) {
        return -2;
    }

    if (avfilter_graph_create_filter(&g->src, abuffer, "in", args, NULL, g->graph) < 0) {
        return -3;
    }
    if (avfilter_graph_create_filter(&g->sink, abuffersink, "out", NULL, NULL, g->graph) < 0) {
        return -4;
    }

    AVFilterInOut *outputs = avfilter_inout_alloc();
    AVFilterInOut *inputs = avfilter_inout_alloc();
    outputs->name = av_strdup("in");
    outputs->filter_ctx = g->src;
    outputs->pad_idx = 0;
    outputs->next = NULL;
    inputs->name = av_strdup("out");
    inputs->filter_ctx = g->sink;
    inputs->pad_idx = 0;
    inputs->next = NULL;

    int ret = avfilter_graph_parse_ptr(g->graph, description, &inputs, &outputs, NULL);
    avfilter_inout_free(&inputs);
    avfilter_inout_free(&outputs);
    if (ret < 0) {
        return -5;
    }
    if (avfilter_graph_config(g->graph, NULL) < 0) {
        return -6;
    }
    return 0;
}

static void avfg_close(avFilterGraph *g) {
    if (g->graph) {
        avfilter_graph_free(&g->graph);
    }
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// FilterGraph wraps a libavfilter graph with one abuffer source and one
// abuffersink, running the user-supplied filter description string
// (spec.md §4.3 "filter graph reinitialized whenever the per-stream
// argument string changes").
type FilterGraph struct {
	cg C.avFilterGraph
}

var _ codec.FilterGraph = (*FilterGraph)(nil)

// NewFilterGraph satisfies codec.NewFilterGraphFunc.
func NewFilterGraph(description string, args codec.FilterGraphArgs) (codec.FilterGraph, error) {
	argsStr := fmt.Sprintf("time_base=1/%d:sample_rate=%d:sample_fmt=%s:channel_layout=%s",
		max64(args.TimeBase, 1), args.SampleRate, sampleFormatName(args.SampleFormat), channelLayoutOrDefault(args.ChannelLayout))

	cArgs := C.CString(argsStr)
	defer C.free(unsafe.Pointer(cArgs))
	cDesc := C.CString(description)
	defer C.free(unsafe.Pointer(cDesc))

	fg := &FilterGraph{}
	if ret := C.avfg_build(&fg.cg, cArgs, cDesc); ret != 0 {
		return nil, &codec.AllocationError{Op: "avfilter_graph_parse_ptr", Err: fmt.Errorf("build failed (code=%d) for %q", int(ret), description)}
	}
	return fg, nil
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func sampleFormatName(f media.SampleFormat) string {
	if f == media.SampleFormatF32 {
		return "flt"
	}
	return "s16"
}

func channelLayoutOrDefault(layout string) string {
	if layout == "" {
		return "stereo"
	}
	return layout
}

// Push implements codec.FilterGraph.
func (fg *FilterGraph) Push(f *media.Frame) error {
	avFrame := C.av_frame_alloc()
	defer C.av_frame_free(&avFrame)

	avFrame.nb_samples = C.int(f.Samples)
	avFrame.sample_rate = C.int(f.SampleRate)
	C.av_channel_layout_default(&avFrame.ch_layout, C.int(f.Channels))
	avFrame.format = C.int(C.AV_SAMPLE_FMT_S16)

	if C.av_frame_get_buffer(avFrame, 0) < 0 {
		return &codec.AllocationError{Op: "filter_push", Err: fmt.Errorf("av_frame_get_buffer failed")}
	}
	if len(f.Data) > 0 {
		C.memcpy(unsafe.Pointer(avFrame.data[0]), unsafe.Pointer(&f.Data[0]), C.size_t(len(f.Data)))
	}

	if ret := C.av_buffersrc_add_frame_flags(fg.cg.src, avFrame, C.AV_BUFFERSRC_FLAG_KEEP_REF); ret < 0 {
		return &codec.DecoderError{Op: "filter_push", Err: fmt.Errorf("av_buffersrc_add_frame_flags: code=%d", int(ret))}
	}
	return nil
}

// Pull implements codec.FilterGraph, returning (nil, nil) if the sink
// currently has nothing buffered.
func (fg *FilterGraph) Pull() (*media.Frame, error) {
	avFrame := C.av_frame_alloc()
	defer C.av_frame_free(&avFrame)

	ret := C.av_buffersink_get_frame(fg.cg.sink, avFrame)
	if ret == C.int(-C.EAGAIN) || ret == C.AVERROR_EOF {
		return nil, nil
	}
	if ret < 0 {
		return nil, &codec.DecoderError{Op: "filter_pull", Err: fmt.Errorf("av_buffersink_get_frame: code=%d", int(ret))}
	}

	channels := int(avFrame.ch_layout.nb_channels)
	samples := int(avFrame.nb_samples)
	size := samples * channels * 2

	out := media.NewFrame(media.Audio, media.Unset, 0, false, nil, nil)
	out.Channels, out.SampleRate, out.Samples = channels, int(avFrame.sample_rate), samples
	out.Data = C.GoBytes(unsafe.Pointer(avFrame.data[0]), C.int(size))
	return out, nil
}

// Close implements codec.FilterGraph.
func (fg *FilterGraph) Close() error {
	C.avfg_close(&fg.cg)
	return nil
}
