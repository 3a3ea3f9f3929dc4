package pipeline

import (
	"testing"

	"github.com/ashgrove/reelengine/internal/block"
	"github.com/ashgrove/reelengine/internal/codec/fakecodec"
	"github.com/ashgrove/reelengine/internal/component"
	"github.com/ashgrove/reelengine/internal/container"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/worker"
)

func TestFillBufferStopsAtCapacityHysteresis(t *testing.T) {
	spec := fakecodec.StreamSpec{Type: media.Audio, FrameCount: 20, FrameDur: media.Timestamp(10), Channels: 2, SampleRate: 48000, Samples: 1024}
	dec := fakecodec.NewDecoder(spec)
	target := codecResamplerSpecFor(spec)
	audio := component.NewAudio(0, dec, target, passthroughNewResampler, "", nil, nil)

	dmx := fakecodec.New([]fakecodec.StreamSpec{spec})
	c := container.New(dmx, nil)
	c.RegisterComponent(0, audio)
	for i := 0; i < spec.FrameCount; i++ {
		if err := c.Read(testContext()); err != nil {
			t.Fatalf("Read: %v", err)
		}
	}

	buf := block.New[*media.Block](4)
	p := New(c, nil)
	p.RegisterComponent(audio, 4)
	p.buffers[media.Audio] = buf

	interrupt := &worker.Interrupt{}
	added := p.fillBuffer(media.Audio, audio, buf, media.Timestamp(0), interrupt)

	if added == 0 {
		t.Fatal("fillBuffer added 0 blocks, want some progress")
	}
	if buf.Count() > buf.Capacity() {
		t.Errorf("buf.Count() = %d exceeds capacity %d", buf.Count(), buf.Capacity())
	}
}

func TestResyncMainBufferSnapsToOldestWhenWallBeforeWindow(t *testing.T) {
	p := New(nil, nil)
	buf := block.New[*media.Block](4)
	p.buffers[media.Audio] = buf
	p.mainType = media.Audio

	buf.Insert(&media.Block{Start: 100, Duration: 10})
	buf.Insert(&media.Block{Start: 110, Duration: 10})

	p.clock.Update(media.Timestamp(0))
	p.resyncMainBuffer(media.Timestamp(0))

	if p.clock.Position() != media.Timestamp(100) {
		t.Errorf("clock.Position() = %v, want snapped to oldest block start 100", p.clock.Position())
	}
}

func TestResyncMainBufferPausesWhenBufferEmpty(t *testing.T) {
	p := New(nil, nil)
	buf := block.New[*media.Block](4)
	p.buffers[media.Audio] = buf
	p.mainType = media.Audio

	p.clock.Play()
	p.resyncMainBuffer(media.Timestamp(0))

	if p.clock.Running() {
		t.Error("clock still running after resyncMainBuffer on an empty main buffer")
	}
}

func TestResyncMainBufferNoopWhenInRange(t *testing.T) {
	p := New(nil, nil)
	buf := block.New[*media.Block](4)
	p.buffers[media.Audio] = buf
	p.mainType = media.Audio
	buf.Insert(&media.Block{Start: 0, Duration: 50})

	p.clock.Update(media.Timestamp(10))
	p.resyncMainBuffer(media.Timestamp(10))

	if p.clock.Position() != media.Timestamp(10) {
		t.Errorf("clock.Position() = %v, want unchanged 10 (wall already in range)", p.clock.Position())
	}
}

func TestUpdateDecodingEndedTrueAtTailWithNoMoreFrames(t *testing.T) {
	dmx := fakecodec.New([]fakecodec.StreamSpec{{Type: media.Audio, FrameCount: 0}})
	c := container.New(dmx, nil)
	spec := fakecodec.StreamSpec{Type: media.Audio, Channels: 2, SampleRate: 48000, Samples: 1024}
	dec := fakecodec.NewDecoder(spec)
	audio := component.NewAudio(0, dec, codecResamplerSpecFor(spec), passthroughNewResampler, "", nil, nil)
	c.RegisterComponent(0, audio)
	// Drain the demuxer to EOF so the container reports AtEndOfStream.
	for {
		if err := c.Read(testContext()); err != nil {
			break
		}
	}

	p := New(c, nil)
	buf := block.New[*media.Block](4)
	buf.Insert(&media.Block{Start: 0, Duration: 10})
	p.buffers[media.Audio] = buf
	p.components[media.Audio] = audio
	p.mainType = media.Audio
	p.clock.Update(media.Timestamp(9))

	interrupt := &worker.Interrupt{}
	p.updateDecodingEnded(0, interrupt)

	if !p.HasDecodingEnded() {
		t.Error("HasDecodingEnded() = false, want true once the tail block covers wall and nothing is left to read")
	}
}

func TestUpdateDecodingEndedFalseWhileWorkRemains(t *testing.T) {
	dmx := fakecodec.New([]fakecodec.StreamSpec{{Type: media.Audio, FrameCount: 5, FrameDur: 10}})
	c := container.New(dmx, nil)
	spec := fakecodec.StreamSpec{Type: media.Audio, Channels: 2, SampleRate: 48000, Samples: 1024}
	dec := fakecodec.NewDecoder(spec)
	audio := component.NewAudio(0, dec, codecResamplerSpecFor(spec), passthroughNewResampler, "", nil, nil)
	c.RegisterComponent(0, audio)

	p := New(c, nil)
	buf := block.New[*media.Block](4)
	buf.Insert(&media.Block{Start: 0, Duration: 10})
	p.buffers[media.Audio] = buf
	p.components[media.Audio] = audio
	p.mainType = media.Audio
	p.clock.Update(media.Timestamp(9))

	interrupt := &worker.Interrupt{}
	p.updateDecodingEnded(1, interrupt)

	if p.HasDecodingEnded() {
		t.Error("HasDecodingEnded() = true, want false: decodedThisCycle > 0 this cycle")
	}
}
