package component

import (
	"sync"

	"github.com/ashgrove/reelengine/internal/media"
)

// packetQueue is the guarded FIFO between the reader (producer) and the
// decoder (consumer) for one component (spec.md §5 shared resources ii).
type packetQueue struct {
	mu     sync.Mutex
	items  []*media.Packet
	length int // sum of queued packet sizes, in bytes
}

func (q *packetQueue) push(p *media.Packet) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, p)
	q.length += p.Size
}

// pop removes and returns the oldest queued packet, or nil if empty.
func (q *packetQueue) pop() *media.Packet {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	p := q.items[0]
	q.items = q.items[1:]
	q.length -= p.Size
	return p
}

func (q *packetQueue) count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *packetQueue) byteLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.length
}

// drain frees every queued packet, used on dispose and on seek discard.
func (q *packetQueue) drain() {
	q.mu.Lock()
	items := q.items
	q.items = nil
	q.length = 0
	q.mu.Unlock()
	for _, p := range items {
		p.Free()
	}
}
