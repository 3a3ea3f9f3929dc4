package session

import (
	"context"
	"log/slog"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// DemuxerFactory opens a codec.Demuxer over url, selected by the host at
// container-open time (spec.md §6's codec library is an opaque FFI; the
// Engine never assumes a concrete backend).
type DemuxerFactory func(ctx context.Context, url string, isNetwork bool, log *slog.Logger) (codec.Demuxer, error)

// DecoderFactory opens a codec.Decoder for one stream discovered by d.
type DecoderFactory func(d codec.Demuxer, stream codec.StreamInfo, log *slog.Logger) (codec.Decoder, error)

// MediaOptions configures one Open call (spec.md §6 "Configuration
// (MediaOptions)"). Zero values mean "use the engine default" except
// where noted.
type MediaOptions struct {
	// AudioFilter is an optional libavfilter chain description, e.g.
	// "volume=0.5". Empty means no filter graph.
	AudioFilter string

	// SubtitlesURL, when set, is resolved and parsed by the host before
	// Open is called; the engine only ever consumes the resulting
	// PreloadedSubtitles block list (spec.md §1 "subtitle file parsing"
	// is out of scope).
	SubtitlesURL string

	// SubtitlesDelay shifts every preloaded subtitle block's Start.
	SubtitlesDelay media.Timestamp

	// IsSubtitleDisabled skips registering the container's own subtitle
	// stream component entirely, independent of PreloadedSubtitles.
	IsSubtitleDisabled bool

	// TargetAudio is the fixed spec every audio component resamples to.
	TargetAudio codec.ResamplerSpec

	// TargetVideoPixelFormat is the pixel format every video component
	// records on its blocks; frame data is copied without conversion. The
	// zero value is media.PixelFormatBGR0.
	TargetVideoPixelFormat media.PixelFormat

	// PreloadedSubtitles, when non-nil, is consulted by the rendering
	// worker in place of the stream subtitle component (spec.md §9 open
	// question: preload wins over the stream component whenever both
	// exist).
	PreloadedSubtitles []*media.Block
}

func (o MediaOptions) targetAudioOrDefault() codec.ResamplerSpec {
	if o.TargetAudio.Channels == 0 {
		o.TargetAudio.Channels = 2
	}
	if o.TargetAudio.SampleRate == 0 {
		o.TargetAudio.SampleRate = 48000
	}
	return o.TargetAudio
}

// HostCallbacks are invoked from the owning worker's thread (spec.md §6
// "all invoked from the owning worker's thread; the host must marshal to
// its UI thread itself"). Any nil field is simply never called.
type HostCallbacks struct {
	// OnPacketQueueChanged takes per-component queue-depth figures for
	// host buffering UI. Engine never invokes it: no session or pipeline
	// code reports queue changes.
	OnPacketQueueChanged func(t media.Type, bufferCount, bufferLength int)
	// OnMediaEnded fires once when the main buffer's range is exhausted.
	OnMediaEnded func()
	// OnMediaFailed is handed to command.Manager.SetOnMediaFailed, which
	// never invokes it: open failures are returned from Open/ChangeMedia
	// and decode failures are logged.
	OnMediaFailed func(error)
	// OnPositionChanged fires once per rendering cycle with the current
	// wall-clock position.
	OnPositionChanged func(media.Timestamp)
}
