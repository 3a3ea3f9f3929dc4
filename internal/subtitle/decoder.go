// Package subtitle implements a codec.Decoder backend that turns raw
// CEA-608/708 caption byte pairs (extracted from H.264/H.265 SEI
// user-data, one packet per access unit) into decoded caption text
// frames a Subtitle MediaComponent can materialize. Grounded on
// zsiec-prism/internal/demux/mpegts.go's handleCaptionSEI/drainDTVCC,
// which drives the same github.com/zsiec/ccx decoders directly inside
// the TS demuxer; this package pulls that logic one layer out so it can
// sit behind the codec.Decoder boundary like any other stream decoder.
package subtitle

import (
	"log/slog"

	"github.com/zsiec/ccx"

	"github.com/ashgrove/reelengine/internal/codec"
	"github.com/ashgrove/reelengine/internal/media"
)

// field/channel layout matches the teacher's: CEA-608 fields 0/1 carry
// channels 1-2 and 3-4 respectively; CEA-708 services 1-6 are exposed as
// channels 7-12 so a single Subtitle component's stream index can select
// any of them without a separate enum.
const cea708ChannelOffset = 6

// Decoder decodes one elementary stream's caption byte pairs into text
// frames. One Decoder instance backs one Subtitle MediaComponent.
type Decoder struct {
	log *slog.Logger

	cea608Decs map[int]*ccx.CEA608Decoder
	cea708Svcs map[int]*ccx.CEA708Service

	lastCCCtrl      map[int][2]byte
	lastCCWasCtrl   map[int]bool
	lastCCCtrlFrame map[int]int64
	videoCount      int64

	dtvccBuf []byte

	pending []*media.Frame
}

// New builds a Decoder with CEA-608 channels 1-4 and CEA-708 services 1-6
// (channels 7-12) ready, matching the teacher's fixed channel set.
func New(log *slog.Logger) *Decoder {
	if log == nil {
		log = slog.Default()
	}
	d := &Decoder{
		log:             log.With("component", "subtitle-decoder"),
		cea608Decs:      make(map[int]*ccx.CEA608Decoder, 4),
		cea708Svcs:      make(map[int]*ccx.CEA708Service, 6),
		lastCCCtrl:      make(map[int][2]byte, 2),
		lastCCWasCtrl:   make(map[int]bool, 2),
		lastCCCtrlFrame: make(map[int]int64, 2),
	}
	for ch := 1; ch <= 4; ch++ {
		d.cea608Decs[ch] = ccx.NewCEA608Decoder()
	}
	for svc := 1; svc <= 6; svc++ {
		d.cea708Svcs[svc] = ccx.NewCEA708Service()
	}
	return d
}

var _ codec.Decoder = (*Decoder)(nil)

// SendPacket treats p's payload as the raw SEI user-data byte range for
// one video access unit and decodes every caption pair it carries into
// zero or more queued text frames, using p.PTS as their presentation time.
func (d *Decoder) SendPacket(p *media.Packet) error {
	defer p.Free()
	d.videoCount++
	d.handleCaptionSEI(p.Payload(), p.PTS)
	return nil
}

// ReceiveFrame pops the next queued caption text frame, if any.
func (d *Decoder) ReceiveFrame() (*media.Frame, error) {
	if len(d.pending) == 0 {
		return nil, codec.ErrNeedMorePackets
	}
	f := d.pending[0]
	d.pending = d.pending[1:]
	return f, nil
}

// Flush drains any partially-accumulated CEA-708 packet without emitting
// it — a torn DTVCC packet carries no recoverable text.
func (d *Decoder) Flush() {
	d.dtvccBuf = d.dtvccBuf[:0]
}

// Close releases decoder state. CEA-608/708 decoders hold no native
// resources, so this only drops references.
func (d *Decoder) Close() error {
	d.pending = nil
	return nil
}

func (d *Decoder) emit(text string, channel int, pts media.Timestamp) {
	f := media.NewFrame(media.Subtitle, pts, 0, !pts.IsUnset(), text, nil)
	f.Data = []byte(text)
	d.pending = append(d.pending, f)
}

// handleCaptionSEI mirrors the teacher's method of the same name:
// extract CC608 pairs and DTVCC triplets from one SEI payload, decode
// each through the matching channel decoder, and queue the resulting
// text. The control-code-repeat suppression (a control pair broadcast
// twice within 2 frames is a deliberate redundancy, not a new caption)
// is carried over unchanged.
func (d *Decoder) handleCaptionSEI(seiData []byte, pts media.Timestamp) {
	cd := ccx.ExtractCaptions(seiData)
	if cd == nil {
		return
	}

	for _, pair := range cd.CC608Pairs {
		cc1, cc2 := pair.Data[0], pair.Data[1]

		isCtrl := cc1 >= 0x10 && cc1 <= 0x1F
		f := pair.Field
		if isCtrl {
			cp := [2]byte{cc1, cc2}
			frameGap := d.videoCount - d.lastCCCtrlFrame[f]
			if d.lastCCWasCtrl[f] && d.lastCCCtrl[f] == cp && frameGap <= 2 {
				d.lastCCWasCtrl[f] = false
				continue
			}
			d.lastCCCtrl[f] = cp
			d.lastCCWasCtrl[f] = true
			d.lastCCCtrlFrame[f] = d.videoCount
		} else {
			d.lastCCWasCtrl[f] = false
		}

		dec := d.cea608Decs[pair.Channel]
		if dec == nil {
			continue
		}
		text := dec.Decode(cc1, cc2)
		if text != "" {
			d.emit(text, pair.Channel, pts)
		}
	}

	for _, t := range cd.DTVCC {
		if t.Start {
			d.drainDTVCC(pts)
			d.dtvccBuf = d.dtvccBuf[:0]
		}
		d.dtvccBuf = append(d.dtvccBuf, t.Data[0], t.Data[1])
	}
}

// drainDTVCC mirrors the teacher's method of the same name: once a full
// DTVCC packet has accumulated, it is split into per-service blocks and
// fed to that service's CEA-708 state machine.
func (d *Decoder) drainDTVCC(pts media.Timestamp) {
	if len(d.dtvccBuf) < 1 {
		return
	}

	packetSize := ccx.DTVCCPacketSize(d.dtvccBuf[0])
	if len(d.dtvccBuf) < packetSize {
		return
	}

	for _, block := range ccx.ParseDTVCCPacket(d.dtvccBuf[:packetSize]) {
		svc := d.cea708Svcs[block.ServiceNum]
		if svc == nil {
			continue
		}
		if svc.ProcessBlock(block.Data) {
			text := svc.DisplayText()
			if text != "" {
				d.emit(text, block.ServiceNum+cea708ChannelOffset, pts)
			}
		}
	}
	d.dtvccBuf = d.dtvccBuf[packetSize:]
}
