package command

import (
	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
	"github.com/ashgrove/reelengine/internal/pipeline"
)

// Seek implements spec.md §4.8's indirect seek: it never suspends the
// workers itself. It queues pos for the decoding worker's next cycle
// (consumed through takePendingSeek) and returns a channel closed once
// the decoding worker has applied it to the clock and cleared the
// buffers; the rendering worker separately waits for the post-seek
// buffer to resettle (isSeekSettling) before it resumes delivering
// blocks. Fails with a codec.StateError if no pipeline is open, or if
// the container is network-backed (network streams cannot seek).
func (m *Manager) Seek(pos media.Timestamp) (<-chan struct{}, error) {
	m.mu.Lock()
	p := m.p
	m.mu.Unlock()
	if p == nil {
		return nil, &codec.StateError{Op: "seek", State: "closed"}
	}
	if c := p.Container(); c != nil && c.IsNetworkStream() {
		return nil, &codec.StateError{Op: "seek", State: "network-stream"}
	}

	m.seekMu.Lock()
	m.seekPos = pos
	m.seekSet = true
	done := make(chan struct{})
	m.seekDone = done
	m.seekMu.Unlock()

	m.isSeeking.Store(true)
	return done, nil
}

// takePendingSeek is the pipeline.SetSeekHook "pending" callback: it
// drains the queued seek, if any, for the decoding worker's current
// cycle.
func (m *Manager) takePendingSeek() (media.Timestamp, bool) {
	m.seekMu.Lock()
	defer m.seekMu.Unlock()
	if !m.seekSet {
		return 0, false
	}
	m.seekSet = false
	return m.seekPos, true
}

// seekApplied is the pipeline.SetSeekHook "applied" callback: it fires
// once the decoding worker has moved the clock and cleared the buffers
// for pos, signaling any Seek caller waiting on the returned channel.
// isSeeking stays set until isSeekSettling observes the main buffer back
// in range, so the rendering worker keeps holding off end-of-media
// detection and block delivery until the post-seek window refills.
func (m *Manager) seekApplied(p *pipeline.Pipeline, pos media.Timestamp) {
	m.seekMu.Lock()
	done := m.seekDone
	m.seekDone = nil
	m.seekMu.Unlock()

	if p != nil {
		p.InvalidateAllRenderers()
	}
	if done != nil {
		close(done)
	}
}

// isSeekSettling is the pipeline.SetSeekSettlingHook predicate (spec.md
// §4.7 step 1's "wait briefly for any active seek to settle" and step
// 6's "!seeking"): true from Seek() until the decoding worker has
// produced a block covering the new wall-clock position in the main
// buffer.
func (m *Manager) isSeekSettling(p *pipeline.Pipeline) bool {
	if !m.isSeeking.Load() {
		return false
	}
	if p == nil {
		m.isSeeking.Store(false)
		return false
	}

	mainBuf := p.Buffer(p.MainType())
	if mainBuf == nil || mainBuf.Count() == 0 {
		return true
	}
	if mainBuf.IsInRange(p.Clock().Position()) {
		m.isSeeking.Store(false)
		return false
	}
	return true
}
