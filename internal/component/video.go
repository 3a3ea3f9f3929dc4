package component

import (
	"log/slog"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// Video is the video specialization of MediaComponent (spec.md §4.3
// "Video specialization"): it copies every frame's Data into the block's
// buffer unchanged and records targetFormat as the block's PixelFormat.
// No pixel-format conversion is performed; the payload keeps the layout
// the decoder produced.
type Video struct {
	Base

	targetFormat media.PixelFormat
}

// NewVideo wires a Video component around decoder for streamIndex,
// labelling every block with targetFormat (frame data is not converted).
func NewVideo(streamIndex int, decoder codec.Decoder, targetFormat media.PixelFormat, log *slog.Logger) *Video {
	return &Video{Base: NewBase(streamIndex, media.Video, decoder, log), targetFormat: targetFormat}
}

// Materialize implements spec.md §4.3's materialize contract for video:
// on success returns the filled block and true; returns (nil, false) on
// allocation failure, in which case the caller must not add the block.
func (v *Video) Materialize(f *media.Frame, prev *media.Block) (*media.Block, bool) {
	start, duration := f.Start, f.Duration
	guessed := !f.HasValidStartTime
	if guessed {
		start, duration = estimateGuessedTiming(f, prev)
	}

	b := &media.Block{
		Type:               media.Video,
		Start:              start,
		Duration:           duration,
		StreamIndex:        v.StreamIndex,
		IsStartTimeGuessed: guessed,
		Width:              f.Width,
		Height:             f.Height,
		AspectWidth:        f.AspectWidth,
		AspectHeight:       f.AspectHeight,
		PixelFormat:        v.targetFormat,
	}
	stride := f.Stride
	if stride == 0 {
		stride = f.Width * bytesPerPixel(v.targetFormat)
	}
	b.Stride = stride

	buf := &media.SharedBuffer{}
	buf.WriterLock()
	ok := buf.Write(f.Data)
	buf.WriterUnlock()
	if !ok {
		return nil, false
	}
	b.Buffer = buf
	return b, true
}

func bytesPerPixel(f media.PixelFormat) int {
	switch f {
	case media.PixelFormatBGR0:
		return 4
	default:
		return 4
	}
}
