package pipeline

import (
	"context"
	"time"

	"github.com/ashgrove/reelengine/internal/block"
	"github.com/ashgrove/reelengine/internal/component"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/worker"
)

// decodingPeriod is spec.md §4.6's ≈20ms decoder cycle.
const decodingPeriod = 20 * time.Millisecond

// newDecodingWorker builds the DecodingWorker for p (spec.md §4.6).
func newDecodingWorker(p *Pipeline) *worker.Worker {
	return worker.New("decoding", decodingPeriod, func(ctx context.Context, interrupt *worker.Interrupt) (bool, error) {
		if p.isExecutingDirectCommand != nil && p.isExecutingDirectCommand() {
			return false, nil
		}
		p.applyPendingSeek()

		if p.HasDecodingEnded() {
			return false, nil
		}

		decodedThisCycle := 0
		wall := p.clock.Position()

		for t, buf := range p.buffers {
			comp := p.components[t]
			n := p.fillBuffer(t, comp, buf, wall, interrupt)
			decodedThisCycle += n
		}

		p.resyncMainBuffer(wall)
		p.updateDecodingEnded(decodedThisCycle, interrupt)

		return false, nil
	}, worker.WithLogger(p.log.With("worker", "decoding")))
}

// applyPendingSeek drains one queued seek at the head of the cycle
// (spec.md §4.6 step 1, §4.8 "seek is indirect").
func (p *Pipeline) applyPendingSeek() {
	if p.pendingSeek == nil {
		return
	}
	pos, ok := p.pendingSeek()
	if !ok {
		return
	}
	p.ClearBuffers()
	p.clock.Update(pos)
	if p.seekApplied != nil {
		p.seekApplied(pos)
	}
}

// fillBuffer implements spec.md §4.6 step 3's inner while loop for one
// media type, returning the number of blocks added this cycle.
func (p *Pipeline) fillBuffer(t media.Type, comp component.Component, buf *block.Buffer[*media.Block], wall media.Timestamp, interrupt *worker.Interrupt) int {
	added := 0
	rangePercent := buf.RangePercent(wall)
	p.setBitrate(t, rangeBitRate(buf))

	for !buf.IsFull() || rangePercent > 0.75 {
		if interrupt.Requested() {
			break
		}
		if comp.BufferCount() == 0 && !comp.HasPacketsInCodec() {
			break
		}

		ok, err := p.addNextBlock(comp, buf)
		if err != nil {
			p.log.Error("materialize failed", "type", t, "err", err)
			break
		}
		if !ok {
			break
		}
		added++

		rangePercent = buf.RangePercent(wall)
		p.setBitrate(t, rangeBitRate(buf))
		if rangePercent > 0 && rangePercent <= 0.75 && !buf.IsFull() && buf.CapacityPercent() >= 0.25 && buf.IsInRange(wall) {
			break
		}
	}
	return added
}

// addNextBlock pulls the component's next frame and materializes it
// into buf, implementing spec.md §4.2's add(frame) contract.
func (p *Pipeline) addNextBlock(comp component.Component, buf *block.Buffer[*media.Block]) (bool, error) {
	f, err := comp.ReceiveNextFrame()
	if err != nil {
		return false, err
	}
	if f == nil {
		return false, nil
	}
	defer f.Free()

	prev, _ := buf.Newest()
	b, ok := comp.Materialize(f, prev)
	if !ok {
		return false, nil
	}
	buf.Insert(b)
	return true, nil
}

// rangeBitRate implements spec.md §4.2's range_bit_rate: sum of block
// sizes over range duration, in bits per second.
func rangeBitRate(buf *block.Buffer[*media.Block]) float64 {
	dur := buf.RangeDuration()
	if dur <= 0 {
		return 0
	}
	var totalBytes int64
	for _, b := range buf.Snapshot() {
		totalBytes += int64(b.Size())
	}
	seconds := dur.Duration().Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(totalBytes) * 8 / seconds
}

// resyncMainBuffer implements spec.md §4.6 step 4: if the main buffer is
// not in range of wall, either move the clock onto an available block
// or pause it because the pipeline is starving.
func (p *Pipeline) resyncMainBuffer(wall media.Timestamp) {
	mainBuf := p.buffers[p.mainType]
	if mainBuf == nil || mainBuf.IsInRange(wall) {
		return
	}
	if blk, ok := mainBuf.At(wall); ok {
		p.clock.Update(blk.StartTime())
		return
	}
	if blk, ok := mainBuf.Oldest(); ok {
		p.clock.Update(blk.StartTime())
		return
	}
	p.clock.Pause()
}

// updateDecodingEnded implements spec.md §4.6 step 5.
func (p *Pipeline) updateDecodingEnded(decodedThisCycle int, interrupt *worker.Interrupt) {
	mainBuf := p.buffers[p.mainType]
	mainComp := p.components[p.mainType]
	if mainBuf == nil || mainComp == nil {
		return
	}

	wall := p.clock.Position()
	canReadMore := p.canReadMoreFramesOf(mainComp)
	atTail := mainBuf.IndexOf(wall) >= mainBuf.Count()-1

	ended := decodedThisCycle == 0 && !interrupt.Requested() && !canReadMore && atTail
	p.decodingEnded.Store(ended)
}

// canReadMoreFramesOf reports whether comp might still yield another
// frame: either it has packets queued or buffered inside the codec
// already, or the container hasn't reached end-of-stream/abort yet.
func (p *Pipeline) canReadMoreFramesOf(comp component.Component) bool {
	if comp.BufferCount() > 0 || comp.HasPacketsInCodec() {
		return true
	}
	if p.container == nil {
		return false
	}
	return !p.container.AtEndOfStream() && !p.container.ReadAborted()
}
