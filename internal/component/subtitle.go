package component

import (
	"log/slog"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// Subtitle is the subtitle specialization of MediaComponent. Its frames
// carry either decoded caption text (CEA-608/708, via internal/subtitle)
// or a pre-rendered bitmap; materialize copies whichever is present
// straight into the block with no resampling step.
type Subtitle struct {
	Base
	delay media.Timestamp // spec.md MediaOptions.subtitles_delay
}

// NewSubtitle wires a Subtitle component around decoder for streamIndex.
// delay shifts every block's start/end by a fixed offset.
func NewSubtitle(streamIndex int, decoder codec.Decoder, delay media.Timestamp, log *slog.Logger) *Subtitle {
	return &Subtitle{Base: NewBase(streamIndex, media.Subtitle, decoder, log), delay: delay}
}

func (s *Subtitle) Materialize(f *media.Frame, prev *media.Block) (*media.Block, bool) {
	start, duration := f.Start, f.Duration
	guessed := !f.HasValidStartTime
	if guessed {
		start, duration = estimateGuessedTiming(f, prev)
	}

	b := &media.Block{
		Type:               media.Subtitle,
		Start:              start + s.delay,
		Duration:           duration,
		StreamIndex:        s.StreamIndex,
		IsStartTimeGuessed: guessed,
	}
	if text, ok := f.Native.(string); ok {
		b.Text = text
	} else {
		b.Bitmap = f.Data
	}
	return b, true
}
