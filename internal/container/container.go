// Package container implements MediaContainer (spec.md §4.4): it owns a
// codec.Demuxer, routes demuxed packets into the right MediaComponent's
// queue, and exposes the aggregate state the ReadingWorker and
// DecodingWorker poll. Grounded on zsiec-prism/internal/pipeline.Pipeline
// (construction around a demuxer, priority-drain forwarding loop, atomic
// forwarding counters) adapted from "forward decoded frames to viewers"
// to "route demuxed packets to component queues".
package container

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/component"
)

// Container owns one demuxer and the set of MediaComponents it feeds.
type Container struct {
	demuxer    codec.Demuxer
	components []component.Component // indexed by the demuxer's stream index
	log        *slog.Logger

	readAborted atomic.Bool
	atEnd       atomic.Bool

	packetsRouted  atomic.Int64
	packetsDropped atomic.Int64
}

// New creates a Container around demuxer, initially with no components
// registered. Call RegisterComponent as streams are discovered.
func New(demuxer codec.Demuxer, log *slog.Logger) *Container {
	if log == nil {
		log = slog.Default()
	}
	return &Container{demuxer: demuxer, log: log.With("component", "media-container")}
}

// RegisterComponent attaches c to receive packets for the demuxer's
// stream at streamIndex, growing the internal slot table as needed.
func (c *Container) RegisterComponent(streamIndex int, comp component.Component) {
	for len(c.components) <= streamIndex {
		c.components = append(c.components, nil)
	}
	c.components[streamIndex] = comp
}

// Components returns the currently registered components, in stream
// index order; unregistered slots are nil.
func (c *Container) Components() []component.Component { return c.components }

// Read performs one packet round (spec.md §4.5 container.read()): reads
// exactly one demuxed packet and routes it to its component's queue.
// Returns io.EOF at end of stream, codec.ErrCancelled if aborted.
func (c *Container) Read(ctx context.Context) error {
	pkt, idx, err := c.demuxer.ReadPacket(ctx)
	if err != nil {
		switch {
		case errors.Is(err, io.EOF):
			c.atEnd.Store(true)
		case errors.Is(err, codec.ErrCancelled):
			c.readAborted.Store(true)
		}
		return err
	}

	if idx < 0 || idx >= len(c.components) || c.components[idx] == nil {
		c.packetsDropped.Add(1)
		pkt.Free()
		return nil
	}
	c.components[idx].EnqueuePacket(pkt)
	c.packetsRouted.Add(1)
	return nil
}

// ReadAborted reports whether SignalAbortReads(false) was called.
func (c *Container) ReadAborted() bool { return c.readAborted.Load() }

// AtEndOfStream reports whether the demuxer has been fully drained.
func (c *Container) AtEndOfStream() bool { return c.atEnd.Load() }

// IsLiveStream reports whether the underlying source is unbounded live.
func (c *Container) IsLiveStream() bool { return c.demuxer.IsLive() }

// IsNetworkStream reports whether the underlying source is
// network-backed.
func (c *Container) IsNetworkStream() bool { return c.demuxer.IsNetwork() }

// BufferLength returns the aggregate bytes of queued packets across all
// components.
func (c *Container) BufferLength() int {
	total := 0
	for _, comp := range c.components {
		if comp != nil {
			total += comp.BufferLength()
		}
	}
	return total
}

// HasEnoughPackets reports whether every registered component has
// reached its own enough-packets threshold (spec.md §4.5
// !components.has_enough_packets gates further reading).
func (c *Container) HasEnoughPackets() bool {
	for _, comp := range c.components {
		if comp != nil && !comp.HasEnoughPackets() {
			return false
		}
	}
	return true
}

// SignalAbortReads unblocks any in-flight demuxer read. graceful=true
// lets the demuxer flush buffered data as io.EOF rather than aborting
// immediately with codec.ErrCancelled.
func (c *Container) SignalAbortReads(graceful bool) {
	c.readAborted.Store(!graceful)
	c.demuxer.SignalAbort(graceful)
}

// Close releases the demuxer and every registered component.
func (c *Container) Close() error {
	for _, comp := range c.components {
		if comp != nil {
			comp.Dispose()
		}
	}
	return c.demuxer.Close()
}
