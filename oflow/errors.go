package oflow

import "errors"

var (
	// ErrZeroLength is returned by EncodeToSlice for an empty payload.
	ErrZeroLength = errors.New("oflow: zero length payload")
	// ErrOverlong is returned when a payload/packet exceeds MaxPacketLen
	// or MaxEncPacketLen respectively.
	ErrOverlong = errors.New("oflow: packet too long")
	// ErrShortData is returned by Decode when the packet is too small to
	// contain a stream byte, at least one payload byte, and a checksum.
	ErrShortData = errors.New("oflow: short data")
	// ErrBadChecksum is returned by Decode when the packet's byte sum is
	// not zero mod 256.
	ErrBadChecksum = errors.New("oflow: bad checksum")
)
