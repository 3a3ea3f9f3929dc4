package pipeline

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/worker"
)

// readingPeriod is spec.md §4.5's ≈10ms reader cycle.
const readingPeriod = 10 * time.Millisecond

// newReadingWorker builds the ReadingWorker for p (spec.md §4.5): each
// cycle either performs one container.Read() round or returns without
// doing anything, per should_read_more_packets.
func newReadingWorker(p *Pipeline) *worker.Worker {
	return worker.New("reading", readingPeriod, func(ctx context.Context, interrupt *worker.Interrupt) (bool, error) {
		if interrupt.Requested() {
			return false, nil
		}
		if !p.shouldReadMorePackets() {
			return false, nil
		}

		err := p.container.Read(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, codec.ErrCancelled) {
				return false, nil
			}
			return false, err
		}
		// A packet was produced: request an immediate next cycle to
		// drain bursty sources (spec.md §4.5).
		return true, nil
	}, worker.WithLogger(p.log.With("worker", "reading")))
}

// shouldReadMorePackets implements spec.md §4.5's should_read_more_packets:
//   - false if the container is nil, read-aborted, or at EOF;
//   - true if this is a live stream;
//   - true if this is a network stream and the aggregate buffer is below
//     bufferMax;
//   - else true iff some component does not yet have enough packets.
func (p *Pipeline) shouldReadMorePackets() bool {
	c := p.container
	if c == nil || c.ReadAborted() || c.AtEndOfStream() {
		return false
	}
	if c.IsLiveStream() {
		return true
	}
	if c.IsNetworkStream() && c.BufferLength() < bufferMax {
		return true
	}
	return !c.HasEnoughPackets()
}
