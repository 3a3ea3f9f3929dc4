// Package command implements CommandManager (spec.md §4.8): it serializes
// the engine's lifecycle commands — Open, Close, Pause, Play, Seek,
// ChangeMedia, ChangeSpeed, Stop — with respect to one pipeline.Pipeline,
// and exposes the atomic flags the pipeline's workers poll as part of
// their own interrupt checks. Grounded on zsiec-prism/internal/stream.Manager:
// the coarse RWMutex-guarded lifecycle map becomes a single serializing
// mutex around one active session (spec.md §5 "coarse locks only on the
// command manager"), and the done-channel-per-entity signaling becomes the
// per-seek completion channel in seek.go.
package command

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/pipeline"
)

// Manager serializes lifecycle commands against one active Pipeline.
// Exactly one Pipeline is wired at a time; Open installs it, Close tears
// it down.
type Manager struct {
	log *slog.Logger

	mu sync.Mutex // serializes direct commands (spec.md §5)
	p  *pipeline.Pipeline

	isSeeking                atomic.Bool
	isChanging               atomic.Bool
	isClosing                atomic.Bool
	isStopWorkersPending     atomic.Bool
	isExecutingDirectCommand atomic.Bool

	seekMu   sync.Mutex
	seekPos  media.Timestamp
	seekSet  bool
	seekDone chan struct{}

	onMediaFailed func(error)
}

// New creates an idle Manager with no pipeline wired.
func New(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{log: log.With("component", "command-manager")}
}

// SetOnMediaFailed stores the host callback for unrecoverable media
// load/playback errors (spec.md §6 on_media_failed). Manager never
// invokes it; command failures are returned to the caller instead.
func (m *Manager) SetOnMediaFailed(fn func(error)) { m.onMediaFailed = fn }

// Pipeline returns the currently wired pipeline, or nil between sessions.
func (m *Manager) Pipeline() *pipeline.Pipeline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p
}

// IsSeeking reports whether a seek is queued or still settling.
func (m *Manager) IsSeeking() bool { return m.isSeeking.Load() }

// IsChanging reports whether ChangeMedia is in progress.
func (m *Manager) IsChanging() bool { return m.isChanging.Load() }

// IsClosing reports whether Close is in progress.
func (m *Manager) IsClosing() bool { return m.isClosing.Load() }

// IsStopWorkersPending reports whether Stop has been requested but the
// workers have not yet joined.
func (m *Manager) IsStopWorkersPending() bool { return m.isStopWorkersPending.Load() }

// IsExecutingDirectCommand reports whether a direct command (every
// lifecycle command except Seek) currently holds the workers suspended.
func (m *Manager) IsExecutingDirectCommand() bool { return m.isExecutingDirectCommand.Load() }

// Open wires p as the active pipeline, installs the hooks that let its
// workers poll this manager's flags, and starts it. Fails with a
// codec.StateError if a pipeline is already open.
func (m *Manager) Open(ctx context.Context, p *pipeline.Pipeline) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.p != nil {
		return &codec.StateError{Op: "open", State: "already-open"}
	}

	m.wireHooks(p)
	m.p = p

	// p.Start blocks until the decoding worker fills the main buffer, so
	// isExecutingDirectCommand must not be held here: the decoding cycle
	// (decoding.go) bails out for as long as that flag is true, which
	// would make p.Start wait on a buffer that never fills. m.mu already
	// serializes Open against every other command.
	if err := p.Start(ctx); err != nil {
		m.p = nil
		return &codec.ContainerError{Op: "open", Err: err}
	}
	p.Clock().Play()
	return nil
}

// wireHooks installs the hooks letting p's workers poll this manager's
// flags and queued seek (spec.md §4.6 step 1, §4.7 step 1, §4.8). The
// seek hooks capture p rather than reading m.p, so a worker polling them
// never waits on m.mu while a command holding m.mu joins that worker.
func (m *Manager) wireHooks(p *pipeline.Pipeline) {
	p.SetDirectCommandHook(m.isExecutingDirectCommand.Load)
	p.SetSeekHook(m.takePendingSeek, func(pos media.Timestamp) { m.seekApplied(p, pos) })
	p.SetSeekSettlingHook(func() bool { return m.isSeekSettling(p) })
}

// Close stops and disposes the active pipeline. No-op if none is open.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.p == nil {
		return
	}
	m.isClosing.Store(true)
	defer m.isClosing.Store(false)
	m.isExecutingDirectCommand.Store(true)
	defer m.isExecutingDirectCommand.Store(false)

	m.p.Dispose()
	m.p = nil
}
