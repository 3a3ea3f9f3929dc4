package command

import (
	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/pipeline"
)

// runDirect implements spec.md §4.8's "each direct command suspends
// workers, performs its work, and resumes them", serialized by mu
// (spec.md §5 "coarse locks only on the command manager"). fn runs with
// the pipeline suspended; its error, if any, is returned to the caller
// without propagating into any worker cycle (spec.md §7).
func (m *Manager) runDirect(op string, fn func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.p == nil {
		return &codec.StateError{Op: op, State: "closed"}
	}

	m.isExecutingDirectCommand.Store(true)
	defer m.isExecutingDirectCommand.Store(false)

	m.p.Suspend()
	defer m.p.Resume()

	if err := fn(); err != nil {
		m.log.Error("command failed", "command", op, "err", err)
		return err
	}
	return nil
}

// Pause freezes the clock. A direct command per spec.md §4.8.
func (m *Manager) Pause() error {
	return m.runDirect("pause", func() error {
		m.p.Clock().Pause()
		return nil
	})
}

// Play resumes the clock from its current position. A direct command.
func (m *Manager) Play() error {
	return m.runDirect("play", func() error {
		m.p.Clock().Play()
		return nil
	})
}

// ChangeSpeed sets the playback rate. A direct command; rates must be
// strictly positive (non-positive values are rejected by Clock.SetSpeed
// silently, so the clock keeps its prior rate).
func (m *Manager) ChangeSpeed(r float64) error {
	return m.runDirect("change-speed", func() error {
		m.p.Clock().SetSpeed(r)
		return nil
	})
}

// Stop stops and joins the pipeline's workers without disposing them or
// the container, so the pipeline stays open until Close. Stopped workers
// are not restarted: a later Play resumes only the clock. A direct
// command; IsStopWorkersPending is observable while the join is underway.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.p == nil {
		return &codec.StateError{Op: "stop", State: "closed"}
	}

	m.isStopWorkersPending.Store(true)
	defer m.isStopWorkersPending.Store(false)
	m.isExecutingDirectCommand.Store(true)
	defer m.isExecutingDirectCommand.Store(false)

	m.p.Stop()
	return nil
}

// ChangeMedia swaps the active pipeline for a freshly built one (spec.md
// §4.8 ChangeMedia): it stops and disposes the current pipeline, then
// wires and starts next. If start fails, no pipeline remains open; the
// caller must Open again.
func (m *Manager) ChangeMedia(next *pipeline.Pipeline, start func(*pipeline.Pipeline) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.isChanging.Store(true)
	defer m.isChanging.Store(false)

	if m.p != nil {
		m.p.Dispose()
		m.p = nil
	}

	m.wireHooks(next)

	// start ends up calling next.Start, which blocks until the decoding
	// worker fills the main buffer — isExecutingDirectCommand must stay
	// false across that call for the same reason Open doesn't hold it
	// (see command.go). m.mu already serializes ChangeMedia against every
	// other command.
	if err := start(next); err != nil {
		return &codec.ContainerError{Op: "change-media", Err: err}
	}
	m.p = next
	next.Clock().Play()
	return nil
}
