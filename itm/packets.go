package itm

// feedInstrumentation accumulates target_len little-endian data bytes for
// an Instrumentation (SWIT) packet.
func (d *Decoder) feedInstrumentation(tok byte) (*Frame, bool) {
	d.instrData |= uint32(tok) << (8 * uint(d.instrIdx))
	d.instrIdx++
	if d.instrIdx >= d.instrTargetLen {
		d.stats.Instrumentation++
		addr := d.instrAddr + d.pageRegister
		return &Frame{Type: FrameInstrumentation, Addr: addr, Data: d.instrData, Len: uint8(d.instrTargetLen)}, true
	}
	return nil, false
}

// feedLts accumulates the multi-byte Local Timestamp form: 7 LSBs per
// byte, stride 7, up to 4 bytes, terminating on a byte with the high bit
// clear.
func (d *Decoder) feedLts(tok byte) (*Frame, bool) {
	d.ltsTS |= uint64(tok&0x7F) << d.ltsShift
	d.ltsShift += 7
	d.ltsCount++
	if tok&0x80 == 0 || d.ltsCount >= 4 {
		types := [4]TimestampType{TSSync, TSDelayed, TSDataDelayed, TSBothDelayed}
		return &Frame{Type: FrameTimestamp, TSType: types[d.ltsTtypen], TS: d.ltsTS}, true
	}
	return nil, false
}

// feedGts1 patches the sticky global timestamp in place: the first three
// bytes replace 7 bits each, the fourth replaces its low 5 bits and
// carries the wrap flag in bit 6. Higher bits not covered by the update
// are preserved from the prior value.
func (d *Decoder) feedGts1(tok byte) (*Frame, bool) {
	if d.gtsIdx < 3 {
		shift := uint(7 * d.gtsIdx)
		const mask = uint64(0x7F)
		d.gtsVal = (d.gtsVal &^ (mask << shift)) | (uint64(tok&0x7F) << shift)
		d.gtsIdx++
		if tok&0x80 == 0 {
			return d.completeGts1()
		}
		return nil, false
	}
	const shift = uint(21)
	const mask = uint64(0x1F)
	d.gtsVal = (d.gtsVal &^ (mask << shift)) | (uint64(tok&0x1F) << shift)
	d.gtsWrap = tok&0x40 != 0
	return d.completeGts1()
}

func (d *Decoder) completeGts1() (*Frame, bool) {
	d.globalTimestamp = d.gtsVal
	d.stats.Timestamps++
	return &Frame{Type: FrameGlobalTimestamp, HasWrapped: d.gtsWrap, TS: d.gtsVal}, true
}

// feedGts2 is a full-replace accumulator: up to seven bytes, 7 bits each,
// has_wrapped is always false.
func (d *Decoder) feedGts2(tok byte) (*Frame, bool) {
	shift := uint(7 * d.gtsIdx)
	d.gtsVal |= uint64(tok&0x7F) << shift
	d.gtsIdx++
	if tok&0x80 == 0 || d.gtsIdx >= 7 {
		d.globalTimestamp = d.gtsVal
		d.stats.Timestamps++
		return &Frame{Type: FrameGlobalTimestamp, HasWrapped: false, TS: d.gtsVal}, true
	}
	return nil, false
}

// feedXtnMulti accumulates the multi-byte Extension form: three 7-bit
// continuation chunks followed by one full 8-bit byte.
func (d *Decoder) feedXtnMulti(tok byte) (*Frame, bool) {
	if d.xtnCount < 3 {
		d.xtnEx |= uint32(tok&0x7F) << d.xtnShift
		d.xtnShift += 7
		d.xtnCount++
		if tok&0x80 == 0 {
			return &Frame{Type: FrameXtn, Source: d.xtnSource, Len: uint8(d.xtnCount), Ex: d.xtnEx}, true
		}
		return nil, false
	}
	d.xtnEx |= uint32(tok) << d.xtnShift
	return &Frame{Type: FrameXtn, Source: d.xtnSource, Len: uint8(d.xtnCount + 1), Ex: d.xtnEx}, true
}

// feedException accumulates the two Exception payload bytes.
func (d *Decoder) feedException(tok byte) (*Frame, bool) {
	if !d.exceptionHaveByte0 {
		d.exceptionByte0 = tok
		d.exceptionHaveByte0 = true
		return nil, false
	}
	noLow := uint16(d.exceptionByte0)
	noHighBit := uint16(tok & 1)
	no := (noHighBit << 8) | noLow
	var event ExceptionEvent
	switch (tok >> 4) & 3 {
	case 1:
		event = ExceptionEntry
	case 2:
		event = ExceptionExit
	case 3:
		event = ExceptionReturned
	default:
		event = ExceptionUnknown
	}
	return &Frame{Type: FrameException, ExceptionNo: no, Event: event}, true
}

// beginDataTrace resolves the data-trace subkind directly from the header
// byte: every subkind is fully determined by a single byte, so no further
// dispatch is needed before accumulating its data bytes.
func (d *Decoder) beginDataTrace(tok byte, family int) {
	d.dtIndex = int((tok >> 4) & 3)
	d.dtLen = instrLen(tok & 3)
	d.dtWnr = tok&8 != 0
	d.dtData = 0
	d.dtIdx = 0
	d.state = stDataTrace

	if family == dtFamilyValue {
		d.dtKind = dtDataValMatch
		return
	}
	switch {
	case tok&0x0F == 0x05:
		d.dtKind = dtMatch
		d.dtLen = 1
	case tok&0x0C == 0x04:
		d.dtKind = dtPCMatch
	default: // tok&0x0C == 0x0C
		d.dtKind = dtDataAddrMatch
	}
}

// continueOrCompleteDataTrace handles the len==0 edge case, where a
// data-trace packet carries no further bytes at all.
func (d *Decoder) continueOrCompleteDataTrace() (*Frame, bool) {
	if d.dtLen == 0 {
		return d.completeDataTrace(0)
	}
	return nil, false
}

func (d *Decoder) feedDataTrace(tok byte) (*Frame, bool) {
	if d.dtKind == dtMatch {
		// Short-circuit: a Match packet's single byte signals a bare
		// comparator hit via bit 0 rather than carrying a data value.
		if tok&1 != 0 {
			return &Frame{Type: FrameDataTraceMatch, Index: d.dtIndex}, true
		}
		return d.completeDataTrace(uint32(tok))
	}
	d.dtData |= uint32(tok) << (8 * uint(d.dtIdx))
	d.dtIdx++
	if d.dtIdx >= d.dtLen {
		return d.completeDataTrace(d.dtData)
	}
	return nil, false
}

func (d *Decoder) completeDataTrace(val uint32) (*Frame, bool) {
	switch d.dtKind {
	case dtMatch, dtPCMatch:
		return &Frame{Type: FrameDataTracePC, Index: d.dtIndex, Data: val, Len: uint8(d.dtLen)}, true
	case dtDataAddrMatch:
		return &Frame{Type: FrameDataTraceAddr, Index: d.dtIndex, DAddr: val, Len: uint8(d.dtLen)}, true
	default: // dtDataValMatch
		return &Frame{Type: FrameDataTraceValue, Index: d.dtIndex, Data: val, Len: uint8(d.dtLen), WNR: d.dtWnr}, true
	}
}

// feedPCSample implements the PCSample/PCSleep split: a length-1 packet is
// always a sleep indication (0xFF meaning entry into a prohibited sleep
// state), anything else accumulates an address.
func (d *Decoder) feedPCSample(tok byte) (*Frame, bool) {
	if d.pcLen == 1 {
		return &Frame{Type: FramePCSleep, Prohibited: tok == 0xFF}, true
	}
	d.pcData |= uint32(tok) << (8 * uint(d.pcIdx))
	d.pcIdx++
	if d.pcIdx >= d.pcLen {
		return &Frame{Type: FramePCSample, PCAddr: d.pcData}, true
	}
	return nil, false
}

// feedEvent decodes the six wrap-flag bits of an Event Counter packet.
func (d *Decoder) feedEvent(tok byte) (*Frame, bool) {
	return &Frame{
		Type:            FrameEventCounter,
		CPICntWrapped:   tok&0x01 != 0,
		ExcCntWrapped:   tok&0x02 != 0,
		SleepCntWrapped: tok&0x04 != 0,
		LSUCntWrapped:   tok&0x08 != 0,
		FoldCntWrapped:  tok&0x10 != 0,
		PostCntWrapped:  tok&0x20 != 0,
	}, true
}

// feedPMUOverflow decodes the single PMU overflow bitmap byte.
func (d *Decoder) feedPMUOverflow(tok byte) (*Frame, bool) {
	return &Frame{Type: FramePMUOverflow, PMUOvf: tok}, true
}
