package command

import (
	"context"
	"testing"
	"time"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/codec/fakecodec"
	"github.com/ashgrove/reelengine/internal/component"
	"github.com/ashgrove/reelengine/internal/container"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/pipeline"
)

type noopRenderer struct{ seeks int }

func (r *noopRenderer) Render(b *media.Block, wall media.Timestamp) {}
func (r *noopRenderer) Update(wall media.Timestamp)                 {}
func (r *noopRenderer) Seek()                                       { r.seeks++ }
func (r *noopRenderer) WaitForReady(ctx context.Context) error      { return nil }

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

// newTestPipeline builds a ready-to-Start audio-only pipeline backed by
// fakecodec, long enough (FrameCount) that a test has time to issue
// commands before end-of-media.
func newTestPipeline(network bool) (*pipeline.Pipeline, *noopRenderer) {
	spec := fakecodec.StreamSpec{Type: media.Audio, FrameCount: 500, FrameDur: media.FromDuration(10 * time.Millisecond), Channels: 2, SampleRate: 48000, Samples: 480}
	dmx := fakecodec.New([]fakecodec.StreamSpec{spec})
	dmx.SetNetwork(network)
	c := container.New(dmx, nil)
	dec := fakecodec.NewDecoder(spec)
	target := codec.ResamplerSpec{Channels: spec.Channels, SampleRate: spec.SampleRate, SampleFormat: media.SampleFormatS16}
	audio := component.NewAudio(0, dec, target, passthroughNewResampler, "", nil, nil)
	c.RegisterComponent(0, audio)

	p := pipeline.New(c, nil)
	p.RegisterComponent(audio, 8)
	r := &noopRenderer{}
	p.SetRenderer(media.Audio, r)
	return p, r
}

func TestOpenStartsPipelineAndPlayRunsClock(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(false)
	m := New(nil)
	if err := m.Open(context.Background(), p); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if m.IsExecutingDirectCommand() {
		t.Error("IsExecutingDirectCommand() = true after Open returned")
	}
	if !p.Clock().Running() {
		t.Error("clock not running after Open (Open plays the clock)")
	}
}

func TestOpenTwiceFails(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(false)
	m := New(nil)
	if err := m.Open(context.Background(), p); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	defer m.Close()

	p2, _ := newTestPipeline(false)
	if err := m.Open(context.Background(), p2); err == nil {
		t.Error("second Open on an already-open manager succeeded, want an error")
	}
}

func TestPauseAndPlayToggleClock(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(false)
	m := New(nil)
	if err := m.Open(context.Background(), p); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if err := m.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if p.Clock().Running() {
		t.Error("clock still running after Pause")
	}

	if err := m.Play(); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if !p.Clock().Running() {
		t.Error("clock not running after Play")
	}
}

func TestCommandsFailOnClosedManager(t *testing.T) {
	t.Parallel()

	m := New(nil)
	if err := m.Pause(); err == nil {
		t.Error("Pause on a closed manager succeeded, want an error")
	}
	if err := m.Stop(); err == nil {
		t.Error("Stop on a closed manager succeeded, want an error")
	}
	if _, err := m.Seek(0); err == nil {
		t.Error("Seek on a closed manager succeeded, want an error")
	}
}

func TestSeekRejectedOnNetworkStream(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(true)
	m := New(nil)
	if err := m.Open(context.Background(), p); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if _, err := m.Seek(media.Timestamp(0)); err == nil {
		t.Error("Seek on a network stream succeeded, want an error")
	}
}

func TestSeekAppliesAndSettles(t *testing.T) {
	t.Parallel()

	p, r := newTestPipeline(false)
	m := New(nil)
	if err := m.Open(context.Background(), p); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	target := media.FromDuration(200 * time.Millisecond)
	done, err := m.Seek(target)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if !m.IsSeeking() {
		t.Error("IsSeeking() = false immediately after Seek")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("seek did not apply within 1s")
	}

	deadline := time.Now().Add(time.Second)
	for m.IsSeeking() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if m.IsSeeking() {
		t.Fatal("seek did not settle within 1s")
	}
	if r.seeks == 0 {
		t.Error("renderer.Seek() was never called by InvalidateAllRenderers after the seek applied")
	}
}

func TestStopSuspendsWithoutClosing(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(false)
	m := New(nil)
	if err := m.Open(context.Background(), p); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer m.Close()

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if m.IsStopWorkersPending() {
		t.Error("IsStopWorkersPending() still true after Stop returned")
	}
	if m.Pipeline() == nil {
		t.Error("Pipeline() is nil after Stop; Stop must not dispose the session")
	}
}

func TestCloseDisposesPipeline(t *testing.T) {
	t.Parallel()

	p, _ := newTestPipeline(false)
	m := New(nil)
	if err := m.Open(context.Background(), p); err != nil {
		t.Fatalf("Open: %v", err)
	}

	m.Close()
	if m.Pipeline() != nil {
		t.Error("Pipeline() non-nil after Close")
	}
	if m.IsClosing() {
		t.Error("IsClosing() still true after Close returned")
	}
}

func TestChangeMediaSwapsPipeline(t *testing.T) {
	t.Parallel()

	p1, _ := newTestPipeline(false)
	m := New(nil)
	if err := m.Open(context.Background(), p1); err != nil {
		t.Fatalf("Open: %v", err)
	}

	p2, _ := newTestPipeline(false)
	err := m.ChangeMedia(p2, func(p *pipeline.Pipeline) error {
		return p.Start(context.Background())
	})
	if err != nil {
		t.Fatalf("ChangeMedia: %v", err)
	}
	defer m.Close()

	if m.Pipeline() != p2 {
		t.Error("Pipeline() does not return the new pipeline after ChangeMedia")
	}
	if !p2.Clock().Running() {
		t.Error("new pipeline's clock not running after ChangeMedia")
	}
}
