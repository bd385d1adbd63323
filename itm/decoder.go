package itm

import (
	"github.com/orbuculum-go/itmtrace/internal/bytestream"
	"github.com/orbuculum-go/itmtrace/internal/logging"
)

// decodeState tracks which packet family, if any, is mid-accumulation.
type decodeState int

const (
	stUnsynced decodeState = iota
	stIdle
	stInstrumentation
	stLts
	stGts1
	stGts2
	stXtnMulti
	stException
	stDataTrace
	stPCSample
	stEvent
	stPMUOverflow
)

type dtKind int

const (
	dtMatch dtKind = iota
	dtPCMatch
	dtDataAddrMatch
	dtDataValMatch
)

const (
	dtFamilyPC = iota
	dtFamilyValue
)

// Decoder parses an ITM byte stream per Appendix F of DDI0553B (v8-M). It
// is a table-driven state machine: sticky cross-packet state
// (page_register, global_timestamp, context_id_len) persists across frame
// emissions. The ITM sync sequence resets page_register to 0; it does not
// reset global_timestamp or context_id_len.
type Decoder struct {
	lastBytes       uint64
	pageRegister    uint8
	contextIDLen    uint8
	globalTimestamp uint64
	state           decodeState
	stats           Stats
	log             logging.Logger

	// Instrumentation accumulator
	instrTargetLen int
	instrAddr      uint8
	instrData      uint32
	instrIdx       int

	// Local timestamp accumulator
	ltsTtypen int
	ltsTS     uint64
	ltsShift  uint
	ltsCount  int

	// Global timestamp accumulator (shared shape for Gts1 and Gts2)
	gtsVal  uint64
	gtsIdx  int
	gtsWrap bool

	// Extension accumulator (multi-byte form)
	xtnEx     uint32
	xtnSource bool
	xtnShift  uint
	xtnCount  int

	// Exception accumulator
	exceptionByte0      byte
	exceptionHaveByte0  bool

	// Data-trace accumulator
	dtKind  dtKind
	dtIndex int
	dtLen   int
	dtWnr   bool
	dtData  uint32
	dtIdx   int

	// PC sample accumulator
	pcLen  int
	pcData uint32
	pcIdx  int
}

// NewDecoder creates an ITM decoder. It starts Unsynced: frames are not
// dispatched until the sync sequence is seen, matching a freshly-attached
// probe with no guarantee about byte alignment. log may be nil.
func NewDecoder(log logging.Logger) *Decoder {
	if log == nil {
		log = logging.NoOp{}
	}
	return &Decoder{state: stUnsynced, log: log}
}

// Stats returns a snapshot of lifetime per-family counters.
func (d *Decoder) Stats() Stats { return d.stats }

// SetContextIDLen sets the externally-configured context-ID length used by
// hardware variants that tag instrumentation with a context identifier.
func (d *Decoder) SetContextIDLen(n uint8) { d.contextIDLen = n }

// ContextIDLen returns the configured context-ID length.
func (d *Decoder) ContextIDLen() uint8 { return d.contextIDLen }

// GetFrame pulls bytes from src until one complete Frame is produced or src
// is exhausted (ErrShortData, resumable on the next call — the decoder's
// in-progress accumulator and sticky state survive the call boundary).
func (d *Decoder) GetFrame(src bytestream.Source) (Frame, error) {
	for {
		tok, ok := src.Next()
		if !ok {
			return Frame{}, ErrShortData
		}
		if frame, done := d.processToken(tok); done {
			return *frame, nil
		}
	}
}

// processToken applies the global sync checks to every byte before
// dispatching to the current state's handler.
func (d *Decoder) processToken(tok byte) (*Frame, bool) {
	d.stats.InBytesTotal++
	d.lastBytes = (d.lastBytes << 8) | uint64(tok)

	// TPIU sync is anomalous inside an ITM stream and only ever signals
	// loss of framing; it is detected but not de-framed here.
	if d.lastBytes&0xFFFFFFFF == 0xFFFFFF7F {
		d.stats.TPIUSync++
		d.state = stUnsynced
		d.log.Warning("itm: TPIU sync marker seen in ITM stream, desyncing")
		f := &Frame{Type: FrameTPIUSync, Count: d.stats.TPIUSync}
		d.stats.InPackets++
		return f, true
	}

	// Five zero bytes followed by 0x80, byte-aligned in the rolling
	// 8-byte window.
	if d.lastBytes&0xFFFFFFFFFFFF == 0x000000000080 {
		d.stats.ITMSync++
		d.pageRegister = 0
		d.state = stIdle
		f := &Frame{Type: FrameSync, Count: d.stats.ITMSync}
		d.stats.InPackets++
		return f, true
	}

	var frame *Frame
	var done bool

	switch d.state {
	case stUnsynced:
		return nil, false
	case stIdle:
		frame, done = d.dispatchIdle(tok)
	case stInstrumentation:
		frame, done = d.feedInstrumentation(tok)
	case stLts:
		frame, done = d.feedLts(tok)
	case stGts1:
		frame, done = d.feedGts1(tok)
	case stGts2:
		frame, done = d.feedGts2(tok)
	case stXtnMulti:
		frame, done = d.feedXtnMulti(tok)
	case stException:
		frame, done = d.feedException(tok)
	case stDataTrace:
		frame, done = d.feedDataTrace(tok)
	case stPCSample:
		frame, done = d.feedPCSample(tok)
	case stEvent:
		frame, done = d.feedEvent(tok)
	case stPMUOverflow:
		frame, done = d.feedPMUOverflow(tok)
	default:
		d.stats.Noise++
	}

	if done {
		d.state = stIdle
		d.stats.InPackets++
	}
	return frame, done
}

// instrLen maps a 2-bit length field to a byte count, with 3 meaning 4.
func instrLen(raw byte) int {
	if raw == 3 {
		return 4
	}
	return int(raw)
}

// dispatchIdle evaluates the Idle bit-pattern table from Appendix F
// §F1.1.2 in the specified order; later, broader-masked rows only apply if
// no earlier row matched.
func (d *Decoder) dispatchIdle(tok byte) (*Frame, bool) {
	switch {
	case tok == 0x00:
		// Padding.
		return nil, false

	case tok == 0x70:
		d.stats.Overflow++
		return &Frame{Type: FrameOverflow, Count: d.stats.Overflow}, true

	case tok == 0x94:
		d.gtsVal = d.globalTimestamp
		d.gtsIdx = 0
		d.gtsWrap = false
		d.state = stGts1
		return nil, false

	case tok == 0xB4:
		d.gtsVal = 0
		d.gtsIdx = 0
		d.state = stGts2
		return nil, false

	case (tok&0x0F) == 0 && ((tok&0x80) == 0 || (tok&0xC0) == 0xC0):
		if tok&0x80 == 0 {
			// Type-2 form: single byte, immediate emit.
			d.stats.Timestamps++
			return &Frame{Type: FrameTimestamp, TSType: TSSync, TS: uint64((tok >> 4) & 7)}, true
		}
		d.ltsTtypen = int((tok >> 4) & 3)
		d.ltsTS = 0
		d.ltsShift = 0
		d.ltsCount = 0
		d.state = stLts
		return nil, false

	case (tok & 0x0B) == 0x08:
		if tok&0x80 == 0 {
			if tok&0x04 != 0 {
				// Page register update; no frame emitted.
				d.pageRegister = 32 * ((tok >> 4) & 7)
				return nil, false
			}
			return &Frame{Type: FrameXtn, Source: false, Len: 0, Ex: uint32((tok >> 4) & 7)}, true
		}
		d.xtnEx = uint32((tok >> 4) & 7)
		d.xtnSource = (tok & 4) != 0
		d.xtnShift = 3
		d.xtnCount = 0
		d.state = stXtnMulti
		return nil, false

	case tok == 0x05:
		d.state = stEvent
		return nil, false

	case (tok & 0xC4) == 0x44:
		d.beginDataTrace(tok, dtFamilyPC)
		return d.continueOrCompleteDataTrace()

	case (tok & 0xC4) == 0x84:
		d.beginDataTrace(tok, dtFamilyValue)
		return d.continueOrCompleteDataTrace()

	case tok == 0x0E:
		d.state = stException
		d.exceptionHaveByte0 = false
		return nil, false

	case (tok&0x04) == 0 && (tok&0x03) != 0:
		d.instrTargetLen = instrLen(tok & 3)
		d.instrAddr = (tok >> 3) & 0x1F
		d.instrData = 0
		d.instrIdx = 0
		d.state = stInstrumentation
		return nil, false

	case (tok & 0xFD) == 0x15:
		d.pcLen = instrLen(tok & 3)
		d.pcIdx = 0
		d.pcData = 0
		d.state = stPCSample
		return nil, false

	case tok == 0x1D:
		d.state = stPMUOverflow
		return nil, false

	default:
		d.stats.Noise++
		d.log.Warningf("itm: reserved header 0x%02x, counted as noise", tok)
		return nil, false
	}
}
