// Package cobs implements the Consistent Overhead Byte Stuffing framer
// described by Cheshire & Baker (IEEE/ACM ToN 1999): a byte stream is split
// into variable-length packets delimited by a configurable sentinel byte,
// with automatic resynchronization at the next sentinel after any framing
// error.
package cobs

import (
	"github.com/orbuculum-go/itmtrace/internal/bytestream"
	"github.com/orbuculum-go/itmtrace/internal/logging"
)

// DefaultSentinel is the byte value used to delimit packets when none is
// configured explicitly.
const DefaultSentinel byte = 0x00

// MaxPacketLen bounds the decoded (unencoded) payload of a single packet.
const MaxPacketLen = 8192

// MaxEncPacketLen bounds a single encoded packet: leading placeholder byte,
// worst-case run overhead of the payload, and the trailing sentinel.
const MaxEncPacketLen = 1 + MaxPacketLen + (MaxPacketLen+253)/254 + 1

// State is the decoder's position in the Cheshire & Baker state machine.
type State int

const (
	StateIdle State = iota
	StateReceiving
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateReceiving:
		return "Receiving"
	case StateFlushing:
		return "Flushing"
	default:
		return "Unknown"
	}
}

// FeedResult reports what a single byte did to the decoder.
type FeedResult int

const (
	// Incomplete means the packet is still being assembled.
	Incomplete FeedResult = iota
	// Complete means out now holds one fully assembled packet.
	Complete
	// FrameError means the partial packet was dropped: either a sentinel
	// arrived mid-run, or restoring a stuffed sentinel at a run boundary
	// overflowed out's capacity. The decoder has already moved to
	// StateFlushing.
	// This is non-fatal: the decoder recovers at the next sentinel.
	FrameError
)

// Decoder is a resynchronizing COBS packetizer. Its lifetime spans a
// transport connection; a fresh Decoder starts in StateIdle.
type Decoder struct {
	state        State
	sentinel     byte
	runRemaining byte
	atMaxRun     bool
	stats        Stats
	log          logging.Logger
}

// NewDecoder creates a Decoder using DefaultSentinel. log may be nil, in
// which case decode-layer events are not logged.
func NewDecoder(log logging.Logger) *Decoder {
	if log == nil {
		log = logging.NoOp{}
	}
	return &Decoder{sentinel: DefaultSentinel, log: log}
}

// State reports the decoder's current state machine position.
func (d *Decoder) State() State { return d.state }

// Stats returns a snapshot of the decoder's lifetime counters.
func (d *Decoder) Stats() Stats { return d.stats }

// SetSentinel changes the delimiter byte. It fails with ErrBusy if the
// decoder is mid-packet (StateReceiving) unless force is set.
func (d *Decoder) SetSentinel(value byte, force bool) error {
	if d.state == StateReceiving && !force {
		return ErrBusy
	}
	d.sentinel = value
	return nil
}

// FeedByte advances the state machine by one byte. out is owned by the
// caller and must survive across calls for a single in-progress packet;
// on Complete the caller takes ownership of *out and must supply a fresh
// buffer (with spare capacity) for the next packet.
func (d *Decoder) FeedByte(b byte, out *[]byte) FeedResult {
	d.stats.InBytes++

	switch d.state {
	case StateIdle:
		if b != d.sentinel {
			d.runRemaining = b
			d.atMaxRun = b == 0xFF
			d.state = StateReceiving
		}
		return Incomplete

	case StateReceiving:
		d.runRemaining--
		if d.runRemaining == 0 {
			if b == d.sentinel {
				d.state = StateIdle
				d.stats.Packets++
				d.stats.GoodBytes += uint64(len(*out))
				return Complete
			}
			// Run ended without an explicit sentinel in the stream: the
			// byte that was stuffed out is restored now, unless this run
			// was a maximal (0xFF) run with nothing to restore.
			if !d.atMaxRun {
				if !d.appendByte(d.sentinel, out) {
					d.runRemaining = b
					d.atMaxRun = b == 0xFF
					return FrameError
				}
			}
			d.runRemaining = b
			d.atMaxRun = b == 0xFF
			return Incomplete
		}
		if b == d.sentinel {
			// Sentinel arrived before the run's declared length was used
			// up: a framing error. Drop what we have and resync.
			dropped := len(*out)
			d.stats.BadBytes += uint64(dropped)
			*out = (*out)[:0]
			d.state = StateFlushing
			d.log.Warningf("cobs: sentinel mid-run, resyncing (dropped %d bytes)", dropped)
			return FrameError
		}
		d.appendByte(b, out)
		return Incomplete

	case StateFlushing:
		if b == d.sentinel {
			d.state = StateIdle
		} else {
			d.stats.BadBytes++
		}
		return Incomplete
	}
	return Incomplete
}

// appendByte appends b to out, respecting out's capacity as the packet size
// bound. On overflow it clears out, counts the loss, and moves the decoder
// to StateFlushing; it returns false in that case.
func (d *Decoder) appendByte(b byte, out *[]byte) bool {
	if len(*out) < cap(*out) {
		*out = append(*out, b)
		return true
	}
	d.stats.BadBytes += uint64(len(*out))
	d.stats.TooLong++
	*out = (*out)[:0]
	d.state = StateFlushing
	d.log.Warningf("cobs: packet exceeds %d bytes, dropping", cap(*out))
	return false
}

// GetFrame pulls bytes from src, feeding the state machine, until either a
// packet completes (nil returned, *out holds the packet) or src is
// exhausted (ErrShortData returned; call again with the same out once more
// bytes are available — *out retains whatever partial run was in flight).
func (d *Decoder) GetFrame(src bytestream.Source, out *[]byte) error {
	for {
		b, ok := src.Next()
		if !ok {
			return ErrShortData
		}
		if d.FeedByte(b, out) == Complete {
			return nil
		}
	}
}
