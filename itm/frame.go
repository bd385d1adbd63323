// Package itm decodes the ARM Cortex-M Instrumentation Trace Macrocell
// byte stream described in Appendix F of the Armv8-M Architecture
// Reference Manual (DDI0553B) into a stream of typed Frame values.
package itm

import "fmt"

// FrameType tags which variant of Frame is populated. Go has no native
// tagged unions; a flat struct gated by Type keeps the finite, bounded set
// of ITM packet families visible without per-transition heap churn.
type FrameType int

const (
	FrameEmpty FrameType = iota
	FrameSync
	FrameTPIUSync
	FrameOverflow
	FrameTimestamp
	FrameGlobalTimestamp
	FrameInstrumentation
	FrameException
	FrameDataTracePC
	FrameDataTraceAddr
	FrameDataTraceValue
	FrameDataTraceMatch
	FramePCSample
	FramePCSleep
	FrameXtn
	FrameEventCounter
	FramePMUOverflow
)

func (t FrameType) String() string {
	switch t {
	case FrameEmpty:
		return "Empty"
	case FrameSync:
		return "Sync"
	case FrameTPIUSync:
		return "TPIUSync"
	case FrameOverflow:
		return "Overflow"
	case FrameTimestamp:
		return "Timestamp"
	case FrameGlobalTimestamp:
		return "GlobalTimestamp"
	case FrameInstrumentation:
		return "Instrumentation"
	case FrameException:
		return "Exception"
	case FrameDataTracePC:
		return "DataTracePC"
	case FrameDataTraceAddr:
		return "DataTraceAddr"
	case FrameDataTraceValue:
		return "DataTraceValue"
	case FrameDataTraceMatch:
		return "DataTraceMatch"
	case FramePCSample:
		return "PCSample"
	case FramePCSleep:
		return "PCSleep"
	case FrameXtn:
		return "Xtn"
	case FrameEventCounter:
		return "EventCounter"
	case FramePMUOverflow:
		return "PMUOverflow"
	default:
		return "Unknown"
	}
}

// TimestampType classifies a local Timestamp frame.
type TimestampType int

const (
	TSSync TimestampType = iota
	TSDelayed
	TSDataDelayed
	TSBothDelayed
)

func (t TimestampType) String() string {
	switch t {
	case TSSync:
		return "Sync"
	case TSDelayed:
		return "TSDelayed"
	case TSDataDelayed:
		return "DataDelayed"
	case TSBothDelayed:
		return "BothDelayed"
	default:
		return "Unknown"
	}
}

// ExceptionEvent classifies an Exception frame.
type ExceptionEvent int

const (
	ExceptionUnknown ExceptionEvent = iota
	ExceptionEntry
	ExceptionExit
	ExceptionReturned
)

func (e ExceptionEvent) String() string {
	switch e {
	case ExceptionEntry:
		return "Entry"
	case ExceptionExit:
		return "Exit"
	case ExceptionReturned:
		return "Returned"
	default:
		return "Unknown"
	}
}

// Frame is one decoded ITM event. Which fields are meaningful is
// determined by Type; see the FrameXxx constants.
type Frame struct {
	Type FrameType

	// Sync, TPIUSync, Overflow
	Count uint64

	// Timestamp
	TSType TimestampType
	TS     uint64

	// GlobalTimestamp
	HasWrapped bool

	// Instrumentation
	Addr uint8
	Data uint32
	Len  uint8

	// Exception
	ExceptionNo uint16
	Event       ExceptionEvent

	// DataTracePC / DataTraceAddr / DataTraceValue / DataTraceMatch
	Index int
	DAddr uint32
	WNR   bool

	// PCSample
	PCAddr uint32

	// PCSleep
	Prohibited bool

	// Xtn
	Source bool
	Ex     uint32

	// EventCounter
	CPICntWrapped    bool
	ExcCntWrapped    bool
	SleepCntWrapped  bool
	LSUCntWrapped    bool
	FoldCntWrapped   bool
	PostCntWrapped   bool

	// PMUOverflow
	PMUOvf uint8
}

func (f Frame) String() string {
	switch f.Type {
	case FrameSync, FrameTPIUSync, FrameOverflow:
		return fmt.Sprintf("%s{count:%d}", f.Type, f.Count)
	case FrameTimestamp:
		return fmt.Sprintf("Timestamp{ttype:%s, ts:0x%x}", f.TSType, f.TS)
	case FrameGlobalTimestamp:
		return fmt.Sprintf("GlobalTimestamp{has_wrapped:%v, ts:0x%x}", f.HasWrapped, f.TS)
	case FrameInstrumentation:
		return fmt.Sprintf("Instrumentation{addr:%d, data:0x%x, len:%d}", f.Addr, f.Data, f.Len)
	case FrameException:
		return fmt.Sprintf("Exception{no:0x%x, event:%s}", f.ExceptionNo, f.Event)
	case FrameDataTracePC:
		return fmt.Sprintf("DataTracePC{index:%d, addr:0x%x, len:%d}", f.Index, f.Data, f.Len)
	case FrameDataTraceAddr:
		return fmt.Sprintf("DataTraceAddr{index:%d, daddr:0x%x, len:%d}", f.Index, f.DAddr, f.Len)
	case FrameDataTraceValue:
		return fmt.Sprintf("DataTraceValue{index:%d, addr:0x%x, len:%d, wnr:%v}", f.Index, f.Data, f.Len, f.WNR)
	case FrameDataTraceMatch:
		return fmt.Sprintf("DataTraceMatch{index:%d}", f.Index)
	case FramePCSample:
		return fmt.Sprintf("PCSample{addr:0x%x}", f.PCAddr)
	case FramePCSleep:
		return fmt.Sprintf("PCSleep{prohibited:%v}", f.Prohibited)
	case FrameXtn:
		return fmt.Sprintf("Xtn{source:%v, len:%d, ex:0x%x}", f.Source, f.Len, f.Ex)
	case FrameEventCounter:
		return fmt.Sprintf("EventCounter{cpi:%v, exc:%v, sleep:%v, lsu:%v, fold:%v, post:%v}",
			f.CPICntWrapped, f.ExcCntWrapped, f.SleepCntWrapped, f.LSUCntWrapped, f.FoldCntWrapped, f.PostCntWrapped)
	case FramePMUOverflow:
		return fmt.Sprintf("PMUOverflow{ovf:0x%x}", f.PMUOvf)
	default:
		return "Empty"
	}
}
