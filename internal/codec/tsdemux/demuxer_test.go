package tsdemux

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ashgrove/reelengine/internal/media"
)

func buildTSPacket(pid uint16, cc uint8, pusi bool, payload []byte) []byte {
	buf := make([]byte, tsPacketSize)
	buf[0] = tsSyncByte
	buf[1] = byte(pid>>8) & 0x1F
	buf[2] = byte(pid)
	buf[3] = 0x10 | (cc & 0x0F)
	if pusi {
		buf[1] |= 0x40
	}
	copy(buf[4:], payload)
	return buf
}

func buildPATSection(programs map[uint16]uint16) []byte {
	entryLen := len(programs) * 4
	sectionLength := 5 + entryLen + 4
	data := make([]byte, 3+sectionLength)
	data[0] = tableIDPAT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[5] = 0xC1

	offset := 8
	for num, pid := range programs {
		data[offset] = byte(num >> 8)
		data[offset+1] = byte(num)
		data[offset+2] = 0xE0 | byte(pid>>8)&0x1F
		data[offset+3] = byte(pid)
		offset += 4
	}
	crc := computeCRC32(data[:offset])
	binary.BigEndian.PutUint32(data[offset:], crc)
	return data
}

func buildPMTSection(programNum uint16, streams []pmtStream) []byte {
	esLen := len(streams) * 5
	sectionLength := 9 + esLen + 4
	data := make([]byte, 3+sectionLength)
	data[0] = tableIDPMT
	data[1] = 0xB0 | byte(sectionLength>>8)&0x0F
	data[2] = byte(sectionLength)
	data[3] = byte(programNum >> 8)
	data[4] = byte(programNum)
	data[5] = 0xC1
	data[8] = 0xE0
	data[9] = 0x00
	data[10] = 0xF0
	data[11] = 0x00

	offset := 12
	for _, s := range streams {
		data[offset] = s.streamType
		data[offset+1] = 0xE0 | byte(s.pid>>8)&0x1F
		data[offset+2] = byte(s.pid)
		data[offset+3] = 0xF0
		data[offset+4] = 0x00
		offset += 5
	}
	crc := computeCRC32(data[:offset])
	binary.BigEndian.PutUint32(data[offset:], crc)
	return data
}

func withPointerField(section []byte) []byte {
	out := make([]byte, 1+len(section))
	copy(out[1:], section)
	return out
}

func encodeTimestampField(marker byte, pts int64) []byte {
	b := make([]byte, 5)
	b[0] = marker<<4 | byte(pts>>29)&0x0E | 0x01
	b[1] = byte(pts >> 22)
	b[2] = byte(pts>>14)&0xFE | 0x01
	b[3] = byte(pts >> 7)
	b[4] = byte(pts<<1)&0xFE | 0x01
	return b
}

func buildPESWithPTS(streamID byte, pts int64, data []byte) []byte {
	optHeader := encodeTimestampField(0x02, pts)
	headerDataLen := len(optHeader)
	totalLen := 3 + headerDataLen + len(data)
	packetLength := totalLen
	if streamID == 0xE0 {
		packetLength = 0
	}
	buf := make([]byte, 0, 9+headerDataLen+len(data))
	buf = append(buf, 0x00, 0x00, 0x01, streamID)
	buf = append(buf, byte(packetLength>>8), byte(packetLength))
	buf = append(buf, 0x80, 0x02<<6, byte(headerDataLen))
	buf = append(buf, optHeader...)
	buf = append(buf, data...)
	return buf
}

func TestDemuxerYieldsVideoAndAudioPacketsWithTimestamps(t *testing.T) {
	t.Parallel()

	var stream bytes.Buffer
	stream.Write(buildTSPacket(0x0000, 0, true, withPointerField(buildPATSection(map[uint16]uint16{1: 0x1000}))))
	stream.Write(buildTSPacket(0x1000, 0, true, withPointerField(buildPMTSection(1, []pmtStream{
		{streamType: 0x1B, pid: 0x100},
		{streamType: 0x0F, pid: 0x101},
	}))))

	videoData := []byte{0x00, 0x00, 0x00, 0x01, 0x65}
	audioData := []byte{0xFF, 0xF1, 0x50, 0x40}
	stream.Write(buildTSPacket(0x100, 0, true, buildPESWithPTS(0xE0, 90000, videoData)))
	stream.Write(buildTSPacket(0x101, 0, true, buildPESWithPTS(0xC0, 90000, audioData)))
	// second PES on each PID to force a flush of the first via PUSI.
	stream.Write(buildTSPacket(0x100, 1, true, buildPESWithPTS(0xE0, 93754, videoData)))
	stream.Write(buildTSPacket(0x101, 1, true, buildPESWithPTS(0xC0, 97680, audioData)))

	dmx := Open(context.Background(), &stream)

	var gotVideo, gotAudio int
	var firstVideoPTS media.Timestamp
	sawFirstVideo := false
	for {
		pkt, idx, err := dmx.ReadPacket(context.Background())
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		switch dmx.Streams()[idx].Type {
		case media.Video:
			gotVideo++
			if !sawFirstVideo {
				firstVideoPTS = pkt.PTS
				sawFirstVideo = true
			}
		case media.Audio:
			gotAudio++
		}
		pkt.Free()
	}

	if gotVideo < 1 {
		t.Error("did not receive any video packet")
	} else if firstVideoPTS != media.FromDuration(time.Second) {
		t.Errorf("first video PTS = %v, want 1s", firstVideoPTS)
	}
	if gotAudio < 1 {
		t.Error("did not receive any audio packet")
	}
	if len(dmx.Streams()) != 2 {
		t.Errorf("Streams() = %d, want 2", len(dmx.Streams()))
	}
}
