package container_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/ashgrove/reelengine/internal/codec/fakecodec"
	"github.com/ashgrove/reelengine/internal/component"
	"github.com/ashgrove/reelengine/internal/container"
	"github.com/ashgrove/reelengine/internal/media"
)

type recordingComponent struct {
	component.Base
	received int
}

func newRecordingComponent(t media.Type) *recordingComponent {
	return &recordingComponent{Base: component.NewBase(0, t, fakecodec.NewDecoder(fakecodec.StreamSpec{Type: t}), nil)}
}

func (r *recordingComponent) EnqueuePacket(p *media.Packet) {
	r.received++
	p.Free()
}
func (r *recordingComponent) Materialize(f *media.Frame, prev *media.Block) (*media.Block, bool) {
	return nil, false
}

func TestReadRoutesPacketsToRegisteredComponents(t *testing.T) {
	t.Parallel()

	dmx := fakecodec.New([]fakecodec.StreamSpec{
		{Type: media.Video, FrameCount: 2, FrameDur: 1},
		{Type: media.Audio, FrameCount: 2, FrameDur: 1},
	})
	c := container.New(dmx, nil)
	video := newRecordingComponent(media.Video)
	audio := newRecordingComponent(media.Audio)
	c.RegisterComponent(0, video)
	c.RegisterComponent(1, audio)

	ctx := context.Background()
	for {
		err := c.Read(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	if video.received != 2 {
		t.Errorf("video received = %d, want 2", video.received)
	}
	if audio.received != 2 {
		t.Errorf("audio received = %d, want 2", audio.received)
	}
	if !c.AtEndOfStream() {
		t.Error("expected AtEndOfStream after draining")
	}
}

func TestSignalAbortReadsSetsReadAborted(t *testing.T) {
	t.Parallel()

	dmx := fakecodec.New([]fakecodec.StreamSpec{{Type: media.Video, FrameCount: 1, FrameDur: 1}})
	c := container.New(dmx, nil)
	c.SignalAbortReads(false)

	if !c.ReadAborted() {
		t.Error("expected ReadAborted to be true")
	}
	if err := c.Read(context.Background()); err == nil {
		t.Error("expected Read to fail after abort")
	}
}
