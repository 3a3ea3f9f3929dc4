//go:build !avdecode

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/codec/srtsource"
	"github.com/ashgrove/reelengine/internal/codec/tsdemux"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/subtitle"
)

// Default build: demux-only, matching the teacher's own relay scope
// (prism never decodes video/audio either). tsdemux parses MPEG-TS
// packet framing in pure Go; network URLs (srt://host:port) are pulled
// via srtsource, which dials with srtgo and hands the connection to the
// same tsdemux parser. Actual video/audio decode needs the cgo libav
// backend, built with `-tags avdecode`. Captions are decoded regardless
// of that tag, since CEA-608/708 extraction runs off raw packet bytes
// rather than a native codec.
func newDemuxer(ctx context.Context, url string, isNetwork bool, log *slog.Logger) (codec.Demuxer, error) {
	if isNetwork {
		return srtsource.Open(ctx, url, "", log)
	}
	f, err := os.Open(url)
	if err != nil {
		return nil, err
	}
	d := tsdemux.Open(ctx, f)
	return d, nil
}

func newDecoder(d codec.Demuxer, stream codec.StreamInfo, log *slog.Logger) (codec.Decoder, error) {
	if stream.Type == media.Subtitle {
		return subtitle.New(log), nil
	}
	return nil, fmt.Errorf("reelplay: decoding %v streams requires building with -tags avdecode", stream.Type)
}

var newResampler = func(source, target codec.ResamplerSpec) (codec.Resampler, error) {
	return nil, fmt.Errorf("reelplay: audio resampling requires building with -tags avdecode")
}

var newFilterGraph codec.NewFilterGraphFunc = nil
