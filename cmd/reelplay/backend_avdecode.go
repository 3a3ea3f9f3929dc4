//go:build avdecode

package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/codec/avdecode"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/subtitle"
)

// avdecode build: libavformat/libavcodec handle both demuxing and real
// video/audio decode, including network sources such as "srt://...".
func newDemuxer(ctx context.Context, url string, isNetwork bool, log *slog.Logger) (codec.Demuxer, error) {
	return avdecode.Open(ctx, url, isNetwork, log)
}

func newDecoder(d codec.Demuxer, stream codec.StreamInfo, log *slog.Logger) (codec.Decoder, error) {
	if stream.Type == media.Subtitle {
		return subtitle.New(log), nil
	}
	dmx, ok := d.(*avdecode.Demuxer)
	if !ok {
		return nil, fmt.Errorf("reelplay: avdecode decoder requires an avdecode.Demuxer, got %T", d)
	}
	return avdecode.NewDecoder(dmx, stream.Index, log)
}

var newResampler = avdecode.NewResampler

var newFilterGraph codec.NewFilterGraphFunc = avdecode.NewFilterGraph
