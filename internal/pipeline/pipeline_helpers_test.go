package pipeline

import (
	"context"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/codec/fakecodec"
	"github.com/ashgrove/reelengine/internal/media"
)

// testContext is the background context used throughout these tests; a
// named helper keeps call sites free of the stdlib import everywhere.
func testContext() context.Context { return context.Background() }

// passthroughResampler returns frames unchanged except for the declared
// target channel/rate, mirroring component_test.go's fake so pipeline
// tests can materialize audio blocks without a real libswresample
// backend.
type passthroughResampler struct{ target codec.ResamplerSpec }

func (r *passthroughResampler) Convert(src *media.Frame) (*media.Frame, error) {
	out := media.NewFrame(media.Audio, src.Start, src.Duration, src.HasValidStartTime, nil, nil)
	out.Channels = r.target.Channels
	out.SampleRate = r.target.SampleRate
	out.Samples = src.Samples
	out.Data = src.Data
	return out, nil
}
func (r *passthroughResampler) Close() error { return nil }

func passthroughNewResampler(source, target codec.ResamplerSpec) (codec.Resampler, error) {
	return &passthroughResampler{target: target}, nil
}

// codecResamplerSpecFor builds the target ResamplerSpec matching spec's
// declared channel/rate, so Audio.Materialize's validity checks pass.
func codecResamplerSpecFor(spec fakecodec.StreamSpec) codec.ResamplerSpec {
	return codec.ResamplerSpec{Channels: spec.Channels, SampleRate: spec.SampleRate, SampleFormat: media.SampleFormatS16}
}
