package itm

// Stats tracks per-packet-family counters across the lifetime of a
// Decoder, mirroring the individual counters the original ITM decoder
// keeps (rather than one generic tally).
type Stats struct {
	InBytesTotal uint64
	InPackets    uint64
	Overflow     uint64
	ITMSync      uint64
	TPIUSync     uint64
	Timestamps   uint64
	Instrumentation uint64
	Noise        uint64
}
