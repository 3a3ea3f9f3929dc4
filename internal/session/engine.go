// Package session implements the host-facing orchestrator that wires one
// playback session end to end: open a container, build one MediaComponent
// per discovered stream, assemble a pipeline.Pipeline around them, and
// delegate lifecycle commands to a command.Manager. Grounded on
// zsiec-prism/cmd/prism's app struct: injected factory callbacks for the
// pieces that require a concrete backend (here codec.Demuxer/Decoder,
// there SRTPull/SRTStop) keep this package independent of any specific
// codec backend, matching codec.Demuxer's own doc comment that concrete
// backends are "selected by the host at container-open time".
package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashgrove/reelengine/internal/block"
	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/command"
	"github.com/ashgrove/reelengine/internal/component"
	"github.com/ashgrove/reelengine/internal/container"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/pipeline"
)

// Engine owns one command.Manager and the backend factories needed to
// build a session from a URL (spec.md §3 "Lifecycle"). It holds no
// playback state itself beyond what command.Manager and the wired
// pipeline.Pipeline already track.
type Engine struct {
	log *slog.Logger

	newDemuxer     DemuxerFactory
	newDecoder     DecoderFactory
	newResampler   codec.NewResamplerFunc
	newFilterGraph codec.NewFilterGraphFunc

	cmd *command.Manager

	renderers map[media.Type]pipeline.Renderer
	hooks     HostCallbacks
}

// New creates an Engine. newDemuxer and newDecoder must be non-nil. A
// nil newResampler disables audio resampling, so every audio stream fails
// to materialize via component.Audio.Materialize (wiring a backend
// capability is the host's responsibility, not this package's). A nil
// newFilterGraph disables filter-graph support: audio still plays, without
// MediaOptions.AudioFilter applied.
func New(log *slog.Logger, newDemuxer DemuxerFactory, newDecoder DecoderFactory, newResampler codec.NewResamplerFunc, newFilterGraph codec.NewFilterGraphFunc) *Engine {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "session-engine")
	return &Engine{
		log:            log,
		newDemuxer:     newDemuxer,
		newDecoder:     newDecoder,
		newResampler:   newResampler,
		newFilterGraph: newFilterGraph,
		cmd:            command.New(log),
		renderers:      make(map[media.Type]pipeline.Renderer),
	}
}

// SetRenderer attaches the renderer for media type t. Must be called
// before Open for every type the opened media is expected to carry.
func (e *Engine) SetRenderer(t media.Type, r pipeline.Renderer) { e.renderers[t] = r }

// SetHostCallbacks installs the host's lifecycle callbacks (spec.md §6).
// Any nil field is simply never called.
func (e *Engine) SetHostCallbacks(h HostCallbacks) {
	e.hooks = h
	e.cmd.SetOnMediaFailed(h.OnMediaFailed)
}

// Manager exposes the underlying command.Manager for callers that need
// direct access to its flags (e.g. a UI binding layer).
func (e *Engine) Manager() *command.Manager { return e.cmd }

// Open builds a fresh pipeline for url and starts it, per spec.md §3's
// session lifecycle: open container, create components, allocate block
// buffers, create renderers (already wired via SetRenderer), start
// workers, running.
func (e *Engine) Open(ctx context.Context, url string, isNetwork bool, opts MediaOptions) error {
	p, err := e.build(ctx, url, isNetwork, opts)
	if err != nil {
		return err
	}
	if err := e.cmd.Open(ctx, p); err != nil {
		p.Dispose()
		return err
	}
	return nil
}

// ChangeMedia swaps the active session for one built from url (spec.md
// §4.8 ChangeMedia). If building the new pipeline fails, the current
// session stays open and the error is returned. Otherwise the current
// session is disposed before the new one is started; if starting it
// fails, no session remains open.
func (e *Engine) ChangeMedia(ctx context.Context, url string, isNetwork bool, opts MediaOptions) error {
	p, err := e.build(ctx, url, isNetwork, opts)
	if err != nil {
		return err
	}
	return e.cmd.ChangeMedia(p, func(p *pipeline.Pipeline) error {
		return p.Start(ctx)
	})
}

// build assembles, but does not start, a pipeline.Pipeline for url.
func (e *Engine) build(ctx context.Context, url string, isNetwork bool, opts MediaOptions) (*pipeline.Pipeline, error) {
	dmx, err := e.newDemuxer(ctx, url, isNetwork, e.log)
	if err != nil {
		return nil, &codec.ContainerError{Op: "open-demuxer", Err: err}
	}

	c := container.New(dmx, e.log)
	p := pipeline.New(c, e.log)

	for _, si := range dmx.Streams() {
		if si.Type == media.Subtitle && opts.IsSubtitleDisabled {
			continue
		}
		comp, err := e.buildComponent(dmx, si, opts)
		if err != nil {
			c.Close()
			return nil, err
		}
		if comp == nil {
			continue
		}
		c.RegisterComponent(si.Index, comp)
		p.RegisterComponent(comp, 0)
		if r, ok := e.renderers[comp.Type()]; ok {
			p.SetRenderer(comp.Type(), r)
		}
	}

	if len(opts.PreloadedSubtitles) > 0 {
		buf := block.New[*media.Block](len(opts.PreloadedSubtitles))
		for _, b := range opts.PreloadedSubtitles {
			shifted := *b
			shifted.Start += opts.SubtitlesDelay
			buf.Insert(&shifted)
		}
		p.SetPreloadedSubtitles(buf)
	}

	p.SetOnMediaEnded(e.hooks.OnMediaEnded)
	if e.hooks.OnPositionChanged != nil {
		p.SetOnWallUpdate(e.hooks.OnPositionChanged)
	}

	return p, nil
}

// buildComponent dispatches on si.Type to the matching component
// constructor (spec.md §4.3's three specializations). Returns (nil, nil)
// for a stream type this engine doesn't know how to play.
func (e *Engine) buildComponent(dmx codec.Demuxer, si codec.StreamInfo, opts MediaOptions) (component.Component, error) {
	dec, err := e.newDecoder(dmx, si, e.log)
	if err != nil {
		return nil, &codec.DecoderError{Op: fmt.Sprintf("open-decoder[%d]", si.Index), Err: err}
	}

	switch si.Type {
	case media.Video:
		return component.NewVideo(si.Index, dec, opts.TargetVideoPixelFormat, e.log), nil
	case media.Audio:
		return component.NewAudio(si.Index, dec, opts.targetAudioOrDefault(), e.newResampler, opts.AudioFilter, e.newFilterGraph, e.log), nil
	case media.Subtitle:
		return component.NewSubtitle(si.Index, dec, opts.SubtitlesDelay, e.log), nil
	default:
		dec.Close()
		return nil, fmt.Errorf("session: unsupported stream type %v at index %d", si.Type, si.Index)
	}
}

// Pause, Play, Seek, Stop, ChangeSpeed, Close pass through to the
// underlying command.Manager (spec.md §4.8); Engine adds no behavior of
// its own beyond session construction.
func (e *Engine) Pause() error                                      { return e.cmd.Pause() }
func (e *Engine) Play() error                                       { return e.cmd.Play() }
func (e *Engine) Seek(pos media.Timestamp) (<-chan struct{}, error) { return e.cmd.Seek(pos) }
func (e *Engine) Stop() error                                       { return e.cmd.Stop() }
func (e *Engine) ChangeSpeed(rate float64) error                    { return e.cmd.ChangeSpeed(rate) }
func (e *Engine) Close()                                            { e.cmd.Close() }

// Pipeline returns the currently open pipeline, or nil between sessions.
func (e *Engine) Pipeline() *pipeline.Pipeline { return e.cmd.Pipeline() }
