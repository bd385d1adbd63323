package cobs

// Stats accumulates lifetime counters for a Decoder. good_bytes + bad_bytes
// never exceeds in_bytes (bytes still sitting in an open, incomplete packet
// are neither).
type Stats struct {
	InBytes   uint64
	GoodBytes uint64
	BadBytes  uint64
	Packets   uint64
	TooLong   uint64
}
