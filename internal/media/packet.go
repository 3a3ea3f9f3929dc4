package media

import "sync"

// Packet is an opaque, owned handle to one demuxed access unit, as
// produced by a codec.Demuxer. Its payload is whatever the demuxer backend
// hands back (e.g. a PES payload); the engine core never interprets it.
type Packet struct {
	Type Type
	Size int

	// PTS/DTS are the demuxer's presentation/decode timestamps, Unset if
	// the container did not carry one for this access unit.
	PTS Timestamp
	DTS Timestamp

	payload []byte
	release func()
	once    sync.Once
}

// NewPacket wraps payload as an owned Packet. release, if non-nil, is
// invoked exactly once by Free to return underlying resources (e.g. a
// pooled byte slice) to the owning demuxer backend.
func NewPacket(t Type, payload []byte, release func()) *Packet {
	return &Packet{Type: t, Size: len(payload), payload: payload, release: release, PTS: Unset, DTS: Unset}
}

// Payload returns the packet's raw bytes. Valid until Free is called.
func (p *Packet) Payload() []byte { return p.payload }

// Free releases the packet's underlying resources. Safe to call multiple
// times; only the first call has effect.
func (p *Packet) Free() {
	p.once.Do(func() {
		if p.release != nil {
			p.release()
		}
		p.payload = nil
	})
}
