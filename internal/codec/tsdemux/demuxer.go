package tsdemux

import (
	"context"
	"errors"
	"io"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// streamTypeToMediaType maps the handful of stream types this demuxer
// recognizes. Unrecognized stream types are skipped: their PIDs are never
// registered as elementary streams and their packets are dropped.
func streamTypeToMediaType(st uint8) (media.Type, bool) {
	switch st {
	case 0x1B, 0x24: // H.264, H.265
		return media.Video, true
	case 0x0F, 0x11: // AAC ADTS, LOAS
		return media.Audio, true
	case 0x06: // PES private data, used here for CEA-608/708 and subtitles
		return media.Subtitle, true
	default:
		return 0, false
	}
}

// elementaryStream is one stream discovered from a PMT.
type elementaryStream struct {
	pid  uint16
	info codec.StreamInfo
}

// Demuxer reads an MPEG transport stream and produces media.Packet values
// per elementary stream, implementing codec.Demuxer.
type Demuxer struct {
	ctx     context.Context
	r       io.Reader
	pids    *pidTable
	streams []elementaryStream
	pidIdx  map[uint16]int // pid -> index into streams

	pending []pendingPacket // parsed but not yet returned to caller
	eof     bool
	aborted bool
	network bool
	live    bool
}

type pendingPacket struct {
	pkt   *media.Packet
	index int
}

// Open creates a Demuxer reading the transport stream from r.
func Open(ctx context.Context, r io.Reader) *Demuxer {
	return &Demuxer{
		ctx:    ctx,
		r:      r,
		pids:   newPIDTable(),
		pidIdx: make(map[uint16]int),
	}
}

// SetNetwork marks the stream as network-backed (spec.md §4.5
// should_read_more_packets network-stream case).
func (d *Demuxer) SetNetwork(v bool) { d.network = v }

func (d *Demuxer) Streams() []codec.StreamInfo {
	out := make([]codec.StreamInfo, len(d.streams))
	for i, s := range d.streams {
		out[i] = s.info
	}
	return out
}

func (d *Demuxer) IsLive() bool    { return d.live }
func (d *Demuxer) IsNetwork() bool { return d.network }

func (d *Demuxer) SignalAbort(graceful bool) {
	if graceful {
		d.eof = true
		return
	}
	d.aborted = true
}

// Seek is unsupported for non-seekable transport stream sources; callers
// reading from a live or network source never invoke it on this backend.
func (d *Demuxer) Seek(ctx context.Context, pos media.Timestamp) (media.Timestamp, error) {
	if seeker, ok := d.r.(io.Seeker); ok {
		if _, err := seeker.Seek(0, io.SeekStart); err != nil {
			return 0, &codec.ContainerError{Op: "seek", Err: err}
		}
		d.pending = nil
		d.eof = false
		d.pids = newPIDTable()
		return 0, nil
	}
	return 0, &codec.ContainerError{Op: "seek", Err: errors.New("tsdemux: source is not seekable")}
}

func (d *Demuxer) Close() error {
	if c, ok := d.r.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// ReadPacket reads and accumulates 188-byte TS packets until one completes
// a PES unit or the source ends, then returns exactly one resulting access
// unit. Further units from the same accumulator flush are queued and
// returned by the next calls before more input is read. Callers loop (as
// ReadingWorker does) to drain them.
func (d *Demuxer) ReadPacket(ctx context.Context) (*media.Packet, int, error) {
	for {
		if len(d.pending) > 0 {
			p := d.pending[0]
			d.pending = d.pending[1:]
			return p.pkt, p.index, nil
		}
		if d.aborted {
			return nil, -1, codec.ErrCancelled
		}
		if d.eof {
			return nil, -1, io.EOF
		}
		if err := ctx.Err(); err != nil {
			return nil, -1, err
		}

		buf := make([]byte, tsPacketSize)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				d.eof = true
				d.drainRemainder()
				continue
			}
			return nil, -1, &codec.ContainerError{Op: "read", Err: err}
		}

		pkt, err := parseTSPacket(buf)
		if err != nil {
			continue // skip corrupt packet
		}
		flushed := d.pids.add(pkt)
		if flushed == nil {
			continue
		}
		d.handleFlushed(pkt.header.pid, flushed)
	}
}

func (d *Demuxer) drainRemainder() {
	for _, packets := range d.pids.flushAll() {
		d.handleFlushed(packets[0].header.pid, packets)
	}
}

func (d *Demuxer) handleFlushed(pid uint16, packets []*tsPacket) {
	var payload []byte
	for _, p := range packets {
		payload = append(payload, p.payload...)
	}
	if len(payload) == 0 {
		return
	}

	if pid == pidPAT || d.pids.pmtPID[pid] {
		sections, err := parsePSISections(payload, pid, pid != pidPAT)
		if err != nil {
			return
		}
		for _, s := range sections {
			if s.patPrograms != nil {
				for _, prog := range s.patPrograms {
					d.pids.pmtPID[prog.pmtPID] = true
				}
				continue
			}
			for _, es := range s.pmtStreams {
				d.registerStream(es)
			}
		}
		return
	}

	idx, ok := d.pidIdx[pid]
	if !ok {
		return // packet for a PID we don't carry as an elementary stream
	}
	if !isPESStart(payload) {
		return
	}
	pes, err := parsePES(payload)
	if err != nil {
		return
	}

	pkt := media.NewPacket(d.streams[idx].info.Type, pes.data, nil)
	pkt.PTS = pes.pts
	pkt.DTS = pes.dts
	d.pending = append(d.pending, pendingPacket{pkt: pkt, index: idx})
}

func (d *Demuxer) registerStream(es pmtStream) {
	if _, exists := d.pidIdx[es.pid]; exists {
		return
	}
	mt, ok := streamTypeToMediaType(es.streamType)
	if !ok {
		return
	}
	idx := len(d.streams)
	d.streams = append(d.streams, elementaryStream{
		pid: es.pid,
		info: codec.StreamInfo{
			Index:     idx,
			Type:      mt,
			CodecName: streamTypeName(es.streamType),
			TimeBase:  mpegTSClockHz,
		},
	})
	d.pidIdx[es.pid] = idx
}

func streamTypeName(st uint8) string {
	switch st {
	case 0x1B:
		return "h264"
	case 0x24:
		return "h265"
	case 0x0F:
		return "aac"
	case 0x11:
		return "aac-loas"
	case 0x06:
		return "private-data"
	default:
		return "unknown"
	}
}
