// Package oflow implements the OrbFlow stream-multiplexing envelope: a
// thin, checksummed wrapper carrying an 8-bit stream tag around a payload,
// designed to ride inside a single COBS-delimited packet.
package oflow

import (
	"github.com/orbuculum-go/itmtrace/internal/logging"
)

// Decoder interprets COBS-delivered packets as OrbFlow frames and tracks
// lifetime statistics. It is stateless between calls to Decode: nothing
// about one packet affects the decoding of the next.
type Decoder struct {
	stats Stats
	log   logging.Logger
}

// NewDecoder creates an OrbFlow decoder. log may be nil.
func NewDecoder(log logging.Logger) *Decoder {
	if log == nil {
		log = logging.NoOp{}
	}
	return &Decoder{log: log}
}

// Stats returns a snapshot of lifetime counters.
func (d *Decoder) Stats() Stats { return d.stats }

// Decode interprets packet as [stream_number | payload | checksum]. packet
// is taken by move: the caller should not reuse it afterwards, since the
// returned Frame borrows it for Content()/At().
func (d *Decoder) Decode(packet []byte) (Frame, error) {
	if len(packet) < 1+overheadLen {
		d.stats.InErrPackets++
		d.log.Warningf("oflow: short packet (%d bytes)", len(packet))
		return Frame{}, ErrShortData
	}
	if len(packet) > MaxEncPacketLen {
		d.stats.InErrPackets++
		d.log.Warningf("oflow: overlong packet (%d bytes)", len(packet))
		return Frame{}, ErrOverlong
	}

	var sum byte
	for _, b := range packet {
		sum += b
	}
	if sum != 0 {
		d.stats.InErrPackets++
		d.log.Warningf("oflow: bad checksum on stream %d", packet[0])
		return Frame{}, ErrBadChecksum
	}

	d.stats.InPackets++
	d.stats.InBytesTotal += uint64(len(packet) - overheadLen)
	return Frame{streamNumber: packet[0], inner: packet}, nil
}

// GetChecksum computes the trailing checksum byte for a given stream number
// and payload: the value that makes the whole packet's byte sum zero mod
// 256.
func GetChecksum(streamNumber byte, payload []byte) byte {
	sum := streamNumber
	for _, b := range payload {
		sum += b
	}
	return byte(256 - int(sum))
}

// EncodeToSlice produces the wire packet for stream/payload.
func EncodeToSlice(streamNumber byte, payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, ErrZeroLength
	}
	if len(payload) > MaxPacketLen {
		return nil, ErrOverlong
	}
	out := make([]byte, 0, len(payload)+overheadLen)
	out = append(out, streamNumber)
	out = append(out, payload...)
	out = append(out, GetChecksum(streamNumber, payload))
	return out, nil
}
