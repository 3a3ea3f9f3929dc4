package pipeline

import (
	"context"
	"time"

	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/worker"
)

// renderingPeriod is spec.md §4.7's ≈30ms renderer cycle.
const renderingPeriod = 30 * time.Millisecond

// seekSettlePoll is how often the rendering cycle re-checks an active
// seek before proceeding (spec.md §4.7 step 1).
const seekSettlePoll = 2 * time.Millisecond

// newRenderingWorker builds the RenderingWorker for p (spec.md §4.7).
// Start-up (waiting for the main buffer's first block) happens in
// Pipeline.Start before this worker is started; this constructor only
// builds the steady-state per-cycle behavior.
func newRenderingWorker(p *Pipeline) *worker.Worker {
	return worker.New("rendering", renderingPeriod, func(ctx context.Context, interrupt *worker.Interrupt) (bool, error) {
		if p.isExecutingDirectCommand != nil && p.isExecutingDirectCommand() {
			return false, nil
		}
		p.waitForSeekToSettle(interrupt)

		wall := p.clock.Position()

		for t, r := range p.renderers {
			if interrupt.Requested() {
				break
			}
			cur := p.currentBlock(t, wall)
			p.maybeRender(t, r, cur, wall)
			r.Update(wall)
		}

		p.detectEndOfMedia(wall)

		if !interrupt.Requested() && p.onWallUpdate != nil {
			p.onWallUpdate(wall)
		}
		return false, nil
	}, worker.WithLogger(p.log.With("worker", "rendering")))
}

// waitForSeekToSettle polls isSeekSettling until it clears, an
// interrupt arrives, or the hook is unset (spec.md §4.7 step 1).
func (p *Pipeline) waitForSeekToSettle(interrupt *worker.Interrupt) {
	if p.isSeekSettling == nil {
		return
	}
	for p.isSeekSettling() {
		if interrupt.Requested() {
			return
		}
		time.Sleep(seekSettlePoll)
	}
}

// currentBlock implements spec.md §4.7 step 3's per-type block pick.
func (p *Pipeline) currentBlock(t media.Type, wall media.Timestamp) *media.Block {
	if t == media.Subtitle && p.preloadedSubtitles != nil {
		b, _ := p.preloadedSubtitles.At(wall)
		return b
	}
	buf := p.buffers[t]
	if buf == nil {
		return nil
	}
	b, _ := buf.At(wall)
	return b
}

// maybeRender implements spec.md §4.7 step 4: render only when the
// picked block is new for this type since the last invalidation.
func (p *Pipeline) maybeRender(t media.Type, r Renderer, cur *media.Block, wall media.Timestamp) {
	if cur == nil {
		return
	}
	p.mu.Lock()
	last := p.lastRenderTime[t]
	changed := last.IsUnset() || cur.Start != last
	if changed {
		p.lastRenderTime[t] = cur.Start
	}
	p.mu.Unlock()

	if changed {
		r.Render(cur, wall)
	}
}

// detectEndOfMedia implements spec.md §4.7 step 6.
func (p *Pipeline) detectEndOfMedia(wall media.Timestamp) {
	if !p.HasDecodingEnded() {
		return
	}
	if p.isSeekSettling != nil && p.isSeekSettling() {
		return
	}

	mainBuf := p.buffers[p.mainType]
	if mainBuf == nil {
		return
	}

	p.mu.Lock()
	lastMain := p.lastRenderTime[p.mainType]
	p.mu.Unlock()

	if lastMain.IsUnset() || wall < lastMain || wall < mainBuf.RangeEnd() {
		return
	}
	if !p.mediaEnded.CompareAndSwap(false, true) {
		return
	}

	end := mainBuf.RangeEnd()
	p.clock.Pause()
	p.clock.Update(end)
	if p.onMediaEnded != nil {
		p.onMediaEnded()
	}
	p.InvalidateAllRenderers()
}
