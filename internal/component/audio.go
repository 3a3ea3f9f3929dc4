package component

import (
	"log/slog"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// Audio is the audio specialization of MediaComponent (spec.md §4.3
// "Audio specialization"): it owns a resampler keyed by the source
// spec and an optional filter graph, reinitializing either when the
// stream's reported parameters change.
type Audio struct {
	Base

	target       codec.ResamplerSpec
	newResampler codec.NewResamplerFunc
	resampler    codec.Resampler
	sourceSpec   codec.ResamplerSpec
	haveSource   bool

	filterDescription   string
	newFilterGraph      codec.NewFilterGraphFunc
	filterGraph         codec.FilterGraph
	filterArgs          codec.FilterGraphArgs
	haveFilterArgs      bool
	filterGraphRebuilds int
}

// NewAudio wires an Audio component around decoder for streamIndex,
// converting every frame to target. newResampler and newFilterGraph are
// backend constructors; newFilterGraph may be nil if filterDescription
// is empty (no filter graph configured).
func NewAudio(streamIndex int, decoder codec.Decoder, target codec.ResamplerSpec, newResampler codec.NewResamplerFunc, filterDescription string, newFilterGraph codec.NewFilterGraphFunc, log *slog.Logger) *Audio {
	return &Audio{
		Base:              NewBase(streamIndex, media.Audio, decoder, log),
		target:            target,
		newResampler:      newResampler,
		filterDescription: filterDescription,
		newFilterGraph:    newFilterGraph,
	}
}

// Materialize implements spec.md §4.3's audio materialize path: frames
// failing the channels/samples/sample_rate validity check are rejected
// outright; otherwise the frame is optionally pushed through the filter
// graph, then resampled to the target spec.
func (a *Audio) Materialize(f *media.Frame, prev *media.Block) (*media.Block, bool) {
	if !f.ValidAudio() {
		return nil, false
	}

	if err := a.ensureFilterGraph(f); err != nil {
		a.log.Error("filter graph rebuild failed", "err", err)
		return nil, false
	}
	work := f
	if a.filterGraph != nil {
		filtered, err := a.runFilterGraph(f)
		if err != nil {
			a.log.Error("filter graph push/pull failed", "err", err)
			return nil, false
		}
		if filtered != nil {
			work = filtered
		}
		// If the graph yielded nothing this cycle, spec.md §4.3 falls
		// back to the raw input frame — `work` is already f.
	}

	if err := a.ensureResampler(work); err != nil {
		a.log.Error("resampler rebuild failed", "err", err)
		return nil, false
	}
	out, err := a.resampler.Convert(work)
	if err != nil {
		a.log.Error("resample failed", "err", err)
		return nil, false
	}

	start, duration := f.Start, f.Duration
	guessed := !f.HasValidStartTime
	if guessed {
		start, duration = estimateGuessedTiming(f, prev)
	}

	b := &media.Block{
		Type:               media.Audio,
		Start:              start,
		Duration:           duration,
		StreamIndex:        a.StreamIndex,
		IsStartTimeGuessed: guessed,
		Channels:           a.target.Channels,
		SampleRate:         a.target.SampleRate,
		SampleFormat:       a.target.SampleFormat,
	}

	buf := &media.SharedBuffer{}
	buf.WriterLock()
	ok := buf.Write(out.Data)
	buf.WriterUnlock()
	if !ok {
		return nil, false
	}
	b.Buffer = buf
	return b, true
}

func (a *Audio) ensureResampler(f *media.Frame) error {
	src := codec.ResamplerSpec{Channels: f.Channels, SampleRate: f.SampleRate, SampleFormat: media.SampleFormatS16}
	if a.resampler != nil && a.haveSource && a.sourceSpec == src {
		return nil
	}
	if a.newResampler == nil {
		return &codec.StateError{Op: "resample", State: "no-resampler-backend"}
	}
	if a.resampler != nil {
		a.resampler.Close()
	}
	r, err := a.newResampler(src, a.target)
	if err != nil {
		return err
	}
	a.resampler = r
	a.sourceSpec = src
	a.haveSource = true
	return nil
}

func (a *Audio) ensureFilterGraph(f *media.Frame) error {
	if a.filterDescription == "" || a.newFilterGraph == nil {
		return nil
	}
	args := codec.FilterGraphArgs{
		TimeBase:      f.TimeBase,
		SampleRate:    f.SampleRate,
		SampleFormat:  media.SampleFormatS16,
		ChannelLayout: f.ChannelLayout,
	}
	if a.filterGraph != nil && a.haveFilterArgs && a.filterArgs == args {
		return nil
	}
	if a.filterGraph != nil {
		a.filterGraph.Close()
	}
	g, err := a.newFilterGraph(a.filterDescription, args)
	if err != nil {
		return err
	}
	a.filterGraph = g
	a.filterArgs = args
	a.haveFilterArgs = true
	a.filterGraphRebuilds++
	return nil
}

// FilterGraphRebuilds reports how many times the filter graph has been
// (re)built, including the first build (spec.md §4.3 S6): a change in
// the stream's reported time base, sample rate, or channel layout forces
// a rebuild on the next Materialize call.
func (a *Audio) FilterGraphRebuilds() int { return a.filterGraphRebuilds }

// runFilterGraph pushes f into the graph and drains the sink. If the
// sink yields nothing, it returns (nil, nil) so the caller falls back
// to the raw frame (spec.md §4.3).
func (a *Audio) runFilterGraph(f *media.Frame) (*media.Frame, error) {
	if err := a.filterGraph.Push(f); err != nil {
		return nil, err
	}
	return a.filterGraph.Pull()
}

// Dispose releases the decoder, resampler, and filter graph.
func (a *Audio) Dispose() {
	a.Base.Dispose()
	if a.resampler != nil {
		a.resampler.Close()
	}
	if a.filterGraph != nil {
		a.filterGraph.Close()
	}
}
