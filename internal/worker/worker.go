// Package worker implements the cooperative periodic worker primitive
// shared by the Reading, Decoding, and Rendering stages (spec.md §4.1).
// It is grounded on the teacher corpus's goroutine-plus-atomic-flag
// lifecycle: the start/stop bookkeeping follows
// alesr-tidstrom/streambuffer.Start/Stop (finalStopped/running atomics,
// a shutdown channel swapped under a mutex), generalized from a single
// fixed loop body into a five-state machine driven by a caller-supplied
// cycle function, and its goroutine supervision follows zsiec-prism's
// errgroup usage in cmd/prism/main.go.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// State is one point in the worker's lifecycle
// (Unstarted → Running ⇄ Suspended → Stopped → Disposed, spec.md §4.1).
type State int32

const (
	Unstarted State = iota
	Running
	Suspended
	Stopped
	Disposed
)

func (s State) String() string {
	switch s {
	case Unstarted:
		return "unstarted"
	case Running:
		return "running"
	case Suspended:
		return "suspended"
	case Stopped:
		return "stopped"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// CycleFunc executes one cycle of a worker's work. It receives an
// Interrupt it must poll inside any inner loop long enough to block a
// suspension request. Returning loop=true asks the worker to run another
// cycle immediately, without waiting out the period — used by the
// decoder to burn down backlog (spec.md §4.6).
type CycleFunc func(ctx context.Context, interrupt *Interrupt) (loop bool, err error)

// Interrupt is a polled suspension signal. It is never a mutex: workers
// must be able to observe it without blocking on anything the command
// manager might be holding (spec.md §9 — atomic flags, not locks, gate
// suspension points).
type Interrupt struct {
	requested atomic.Bool
}

// Requested reports whether a suspension point should exit early.
func (i *Interrupt) Requested() bool { return i.requested.Load() }

func (i *Interrupt) set(v bool) { i.requested.Store(v) }

// Worker runs a CycleFunc on a fixed period on a dedicated goroutine,
// with at most one cycle in flight at any time (spec.md §4.1 "only one
// cycle of a given worker runs at any time; reentrancy is guarded").
type Worker struct {
	Name   string
	Period time.Duration

	cycle CycleFunc
	log   *slog.Logger

	onStarted func()
	onStopped func()

	state     atomic.Int32
	interrupt Interrupt

	mu       sync.Mutex // guards stop/dispose against concurrent start
	done     chan struct{}
	cycleEnd chan struct{} // closed and replaced at each cycle boundary; wait_one selects on it
	cycleMu  sync.Mutex
}

// Option configures a Worker at construction.
type Option func(*Worker)

// WithOnStarted sets a hook invoked by Start, before the first cycle runs.
func WithOnStarted(fn func()) Option { return func(w *Worker) { w.onStarted = fn } }

// WithOnStopped sets a hook invoked once the worker has fully stopped.
func WithOnStopped(fn func()) Option { return func(w *Worker) { w.onStopped = fn } }

// WithLogger overrides the worker's logger (default: slog.Default with
// a "worker" component attribute).
func WithLogger(l *slog.Logger) Option { return func(w *Worker) { w.log = l } }

// New creates a Worker named name, running cycle every period, initially
// Unstarted.
func New(name string, period time.Duration, cycle CycleFunc, opts ...Option) *Worker {
	w := &Worker{
		Name:     name,
		Period:   period,
		cycle:    cycle,
		log:      slog.Default().With("component", "worker", "worker", name),
		cycleEnd: make(chan struct{}),
	}
	w.state.Store(int32(Unstarted))
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// State returns the worker's current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Start transitions Unstarted → Running and begins cycling. No-op if
// already started.
func (w *Worker) Start() {
	if !w.state.CompareAndSwap(int32(Unstarted), int32(Running)) {
		return
	}
	w.mu.Lock()
	w.done = make(chan struct{})
	w.mu.Unlock()
	if w.onStarted != nil {
		w.onStarted()
	}
	go w.run()
}

// Suspend marks the worker Suspended and sets the interrupt, then returns
// without waiting: the in-flight cycle (if any) exits at its next
// suspension point. No-op unless Running.
func (w *Worker) Suspend() {
	if !w.state.CompareAndSwap(int32(Running), int32(Suspended)) {
		return
	}
	w.interrupt.set(true)
}

// Resume clears the interrupt and returns to Running. No-op unless
// Suspended.
func (w *Worker) Resume() {
	if !w.state.CompareAndSwap(int32(Suspended), int32(Running)) {
		return
	}
	w.interrupt.set(false)
}

// Stop sets the interrupt, marks the worker Stopped, joins its goroutine,
// then fires onStopped. Safe to call from Running or Suspended; a no-op
// otherwise.
func (w *Worker) Stop() {
	cur := w.State()
	if cur != Running && cur != Suspended {
		return
	}
	w.interrupt.set(true)
	w.mu.Lock()
	done := w.done
	w.mu.Unlock()
	w.state.Store(int32(Stopped))
	if done != nil {
		<-done
	}
	if w.onStopped != nil {
		w.onStopped()
	}
}

// WaitOne blocks until the next cycle boundary, or returns immediately
// if the worker is not Running.
func (w *Worker) WaitOne() {
	if w.State() != Running {
		return
	}
	w.cycleMu.Lock()
	ch := w.cycleEnd
	w.cycleMu.Unlock()
	<-ch
}

// Dispose stops the worker if needed and releases its resources. Safe
// to call multiple times.
func (w *Worker) Dispose() {
	if w.state.Load() == int32(Disposed) {
		return
	}
	w.Stop()
	w.state.Store(int32(Disposed))
}

// Interrupt exposes the worker's polled suspension signal for cycle
// bodies that need to check it mid-loop beyond the outer run loop's own
// check.
func (w *Worker) Interrupt() *Interrupt { return &w.interrupt }

func (w *Worker) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.Period)
	defer ticker.Stop()

	for {
		state := w.State()
		if state == Stopped || state == Disposed {
			return
		}
		if state == Suspended {
			<-ticker.C // still consume ticks while suspended; cheap and avoids drift on resume
			continue
		}

		w.runCycle()
		<-ticker.C
	}
}

// runCycle executes the worker's cycle function once, honoring its
// loop=true request to burn down backlog without waiting for the next
// tick, and signals any WaitOne callers at the boundary.
func (w *Worker) runCycle() {
	ctx := context.Background()
	for {
		if w.interrupt.Requested() {
			return
		}
		loop, err := w.cycle(ctx, &w.interrupt)
		w.signalCycleEnd()
		if err != nil {
			w.log.Error("cycle error", "err", err)
		}
		if !loop {
			return
		}
		if w.State() != Running {
			return
		}
	}
}

func (w *Worker) signalCycleEnd() {
	w.cycleMu.Lock()
	close(w.cycleEnd)
	w.cycleEnd = make(chan struct{})
	w.cycleMu.Unlock()
}
