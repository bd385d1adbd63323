package oflow

// Stats accumulates lifetime counters for a Decoder.
type Stats struct {
	InBytesTotal uint64
	InPackets    uint64
	InErrPackets uint64
}
