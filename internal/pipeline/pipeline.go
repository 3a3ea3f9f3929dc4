// Package pipeline wires the Reading, Decoding, and Rendering workers
// (spec.md §4.5-4.7) around one MediaContainer, its MediaComponents, one
// block.Buffer per media type, and the session clock. Grounded on
// zsiec-prism/internal/pipeline.Pipeline: the logger-per-component setup,
// atomic forwarding counters, and priority-drain goroutine shape are
// carried over, restructured from "forward demuxed frames to viewers over
// channels" to "run three independent periodic workers over shared
// BlockBuffers", since spec.md's pipeline owns wall-clock scheduling
// rather than fan-out relay.
package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ashgrove/reelengine/internal/block"
	"github.com/ashgrove/reelengine/internal/clock"
	"github.com/ashgrove/reelengine/internal/component"
	"github.com/ashgrove/reelengine/internal/container"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/worker"
)

// Renderer is the external presentation surface for one media type
// (spec.md §4.7's renderer contract). Render must return immediately; a
// renderer implementation is expected to copy the block into a pending
// slot and hand off actual presentation to its own GUI-thread executor.
type Renderer interface {
	// Render is called at most once per distinct (type, block.Start)
	// between consecutive Seek calls (spec.md §8 property 4).
	Render(b *media.Block, wall media.Timestamp)
	// Update is called once per rendering cycle regardless of whether a
	// new block was rendered, so renderers can advance any internal
	// interpolation independent of block boundaries.
	Update(wall media.Timestamp)
	// Seek forces the next matching block through, used after
	// invalidate_renderer (spec.md §4.7).
	Seek()
	// WaitForReady blocks until the renderer has completed whatever
	// startup it needs (e.g. GUI surface creation) or ctx is done.
	WaitForReady(ctx context.Context) error
}

// defaultCapacity is the block.Buffer capacity used per media type when
// RegisterComponent is given a capacity <= 0. spec.md §4.2 leaves
// N type-specific and unspecified; video gets the smallest window since
// its blocks are by far the largest, audio the largest since its frames
// are small and numerous, matching the ratio the teacher's own
// per-type channel buffering uses (video forwarded 1:1, audio ~3x volume).
const (
	defaultVideoCapacity    = 16
	defaultAudioCapacity    = 64
	defaultSubtitleCapacity = 32
)

// bufferMax is spec.md §4.5's BUFFER_MAX: the aggregate queued-packet
// byte ceiling that gates reading ahead on network streams.
const bufferMax = 16 * 1024 * 1024

// Pipeline owns one session's full playback core: the container, its
// components, one BlockBuffer per registered media type, the clock, and
// the three periodic workers that drive them.
type Pipeline struct {
	log       *slog.Logger
	container *container.Container
	clock     *clock.Clock

	components map[media.Type]component.Component
	buffers    map[media.Type]*block.Buffer[*media.Block]
	renderers  map[media.Type]Renderer
	mainType   media.Type

	reading   *worker.Worker
	decoding  *worker.Worker
	rendering *worker.Worker

	mu             sync.Mutex
	lastRenderTime map[media.Type]media.Timestamp

	decodingEnded atomic.Bool
	mediaEnded    atomic.Bool
	onMediaEnded  func()

	// isExecutingDirectCommand and pendingSeek let a CommandManager hook
	// into the decoding cycle without this package depending on command
	// (spec.md §4.6 step 1, §4.8). Both are nil-safe; nil means "never".
	isExecutingDirectCommand func() bool
	isSeekSettling           func() bool
	pendingSeek              func() (media.Timestamp, bool)
	seekApplied              func(media.Timestamp)

	preloadedSubtitles *block.Buffer[*media.Block]
	onWallUpdate       func(media.Timestamp)

	decodeStats struct {
		mu      sync.Mutex
		bitrate map[media.Type]float64
	}
}

// New creates a Pipeline around an already-open container. Call
// RegisterComponent for each stream before Start.
func New(c *container.Container, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	p := &Pipeline{
		log:            log.With("component", "pipeline"),
		container:      c,
		clock:          clock.New(),
		components:     make(map[media.Type]component.Component),
		buffers:        make(map[media.Type]*block.Buffer[*media.Block]),
		renderers:      make(map[media.Type]Renderer),
		lastRenderTime: make(map[media.Type]media.Timestamp),
	}
	p.decodeStats.bitrate = make(map[media.Type]float64)
	return p
}

// RegisterComponent attaches comp (already registered with the
// container at streamIndex) to the pipeline, allocating its BlockBuffer
// with capacity (or a type-specific default if capacity <= 0). The
// video type is preferred as main if registered, else audio, matching
// spec.md §3 "one main type per session".
func (p *Pipeline) RegisterComponent(comp component.Component, capacity int) {
	t := comp.Type()
	if capacity <= 0 {
		capacity = defaultCapacityFor(t)
	}
	p.components[t] = comp
	p.buffers[t] = block.New[*media.Block](capacity)
	p.lastRenderTime[t] = media.Unset
	p.recomputeMainType()
}

// recomputeMainType implements spec.md §3's "one main type per session:
// Video if present, else Audio".
func (p *Pipeline) recomputeMainType() {
	if _, ok := p.components[media.Video]; ok {
		p.mainType = media.Video
		return
	}
	if _, ok := p.components[media.Audio]; ok {
		p.mainType = media.Audio
	}
}

func defaultCapacityFor(t media.Type) int {
	switch t {
	case media.Video:
		return defaultVideoCapacity
	case media.Audio:
		return defaultAudioCapacity
	default:
		return defaultSubtitleCapacity
	}
}

// SetRenderer attaches the renderer for media type t.
func (p *Pipeline) SetRenderer(t media.Type, r Renderer) { p.renderers[t] = r }

// SetOnMediaEnded registers the callback fired once when end-of-media is
// detected (spec.md §4.7 step 6).
func (p *Pipeline) SetOnMediaEnded(fn func()) { p.onMediaEnded = fn }

// SetDirectCommandHook wires a predicate the decoding worker polls at
// the head of every cycle (spec.md §4.6 step 1): when it reports true,
// the cycle aborts without doing any work.
func (p *Pipeline) SetDirectCommandHook(fn func() bool) { p.isExecutingDirectCommand = fn }

// SetSeekHook wires a queued-seek source the decoding worker drains at
// the head of every cycle (spec.md §4.8 "seek is indirect: queued,
// executed at the head of the next decoder cycle"). applied, if
// non-nil, is called with the seek target once it has been applied to
// the clock and buffers have been cleared.
func (p *Pipeline) SetSeekHook(pending func() (media.Timestamp, bool), applied func(media.Timestamp)) {
	p.pendingSeek = pending
	p.seekApplied = applied
}

// SetSeekSettlingHook wires a predicate the rendering worker polls at
// the head of every cycle (spec.md §4.7 step 1 "wait briefly for any
// active seek to settle").
func (p *Pipeline) SetSeekSettlingHook(fn func() bool) { p.isSeekSettling = fn }

// SetPreloadedSubtitles installs an externally-parsed subtitle block
// list (spec.md §4.7 step 3) that the rendering worker consults instead
// of the decoded subtitle BlockBuffer, e.g. blocks produced from a
// sidecar subtitle file rather than the container's own subtitle
// stream.
func (p *Pipeline) SetPreloadedSubtitles(buf *block.Buffer[*media.Block]) {
	p.preloadedSubtitles = buf
}

// SetOnWallUpdate registers the callback the rendering worker fires
// with the current wall-clock position once per cycle (spec.md §4.7
// step 7 "publish wall to the host state").
func (p *Pipeline) SetOnWallUpdate(fn func(media.Timestamp)) { p.onWallUpdate = fn }

// Clock returns the pipeline's session clock.
func (p *Pipeline) Clock() *clock.Clock { return p.clock }

// Container returns the underlying MediaContainer.
func (p *Pipeline) Container() *container.Container { return p.container }

// MainType returns the session's main media type (Video if present,
// else Audio).
func (p *Pipeline) MainType() media.Type { return p.mainType }

// Buffer returns the BlockBuffer for media type t, or nil if t was
// never registered.
func (p *Pipeline) Buffer(t media.Type) *block.Buffer[*media.Block] { return p.buffers[t] }

// HasDecodingEnded reports whether the decoding worker has observed
// end-of-stream with nothing left to decode (spec.md §4.6 step 5).
func (p *Pipeline) HasDecodingEnded() bool { return p.decodingEnded.Load() }

// InvalidateRenderer implements spec.md §4.7's invalidate_renderer(t):
// forces the next matching block through the renderer for t even if its
// start time equals the last one rendered. Idempotent (spec.md §8
// property 8).
func (p *Pipeline) InvalidateRenderer(t media.Type) {
	p.mu.Lock()
	p.lastRenderTime[t] = media.Unset
	p.mu.Unlock()
	if r, ok := p.renderers[t]; ok {
		r.Seek()
	}
}

// InvalidateAllRenderers invalidates every registered renderer, used by
// the end-of-media path and by external seeks.
func (p *Pipeline) InvalidateAllRenderers() {
	for t := range p.renderers {
		p.InvalidateRenderer(t)
	}
}

// ClearBuffers empties every BlockBuffer, used when a seek discards the
// decoded window rather than repositioning within it.
func (p *Pipeline) ClearBuffers() {
	for _, buf := range p.buffers {
		buf.Clear()
	}
	p.decodingEnded.Store(false)
	p.mediaEnded.Store(false)
}

// Start builds the three workers and starts them. It blocks, per spec.md §4.7's rendering-worker start-up
// contract, until the main component's buffer has at least one block or
// the container reaches EOF/abort, then waits for every renderer to
// report ready.
func (p *Pipeline) Start(ctx context.Context) error {
	p.reading = newReadingWorker(p)
	p.decoding = newDecodingWorker(p)
	p.rendering = newRenderingWorker(p)

	p.reading.Start()
	p.decoding.Start()

	if err := p.awaitFirstMainBlock(ctx); err != nil {
		return err
	}
	for t, r := range p.renderers {
		if err := r.WaitForReady(ctx); err != nil {
			p.log.Error("renderer not ready", "type", t, "err", err)
			return err
		}
	}

	p.rendering.Start()
	return nil
}

func (p *Pipeline) awaitFirstMainBlock(ctx context.Context) error {
	mainBuf := p.buffers[p.mainType]
	if mainBuf == nil {
		return nil
	}
	for {
		if mainBuf.Count() > 0 {
			p.clock.Update(mainBuf.RangeStart())
			return nil
		}
		if p.container.AtEndOfStream() || p.container.ReadAborted() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.decoding.WaitOne()
	}
}

// Suspend suspends all three workers, used by CommandManager before a
// direct command runs (spec.md §4.8).
func (p *Pipeline) Suspend() {
	for _, w := range []*worker.Worker{p.reading, p.decoding, p.rendering} {
		if w != nil {
			w.Suspend()
		}
	}
}

// Resume resumes all three workers after a direct command completes.
func (p *Pipeline) Resume() {
	for _, w := range []*worker.Worker{p.reading, p.decoding, p.rendering} {
		if w != nil {
			w.Resume()
		}
	}
}

// Stop stops all three workers (spec.md §4.1 stop: suspend, join,
// release timer).
func (p *Pipeline) Stop() {
	for _, w := range []*worker.Worker{p.rendering, p.decoding, p.reading} {
		if w != nil {
			w.Stop()
		}
	}
}

// setBitrate records the decoding worker's range_bit_rate observation
// for t (spec.md §4.6 step 3 "bitrate += blocks.range_bit_rate").
func (p *Pipeline) setBitrate(t media.Type, bitsPerSecond float64) {
	p.decodeStats.mu.Lock()
	p.decodeStats.bitrate[t] = bitsPerSecond
	p.decodeStats.mu.Unlock()
}

// Bitrate returns the most recently observed bits-per-second for t.
func (p *Pipeline) Bitrate(t media.Type) float64 {
	p.decodeStats.mu.Lock()
	defer p.decodeStats.mu.Unlock()
	return p.decodeStats.bitrate[t]
}

// Dispose stops the workers, disposes every component, and closes the
// container, in that order (spec.md §3 session lifecycle teardown).
func (p *Pipeline) Dispose() {
	p.Stop()
	for _, comp := range p.components {
		comp.Dispose()
	}
	if p.container != nil {
		p.container.Close()
	}
}
