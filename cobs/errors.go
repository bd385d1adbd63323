package cobs

import "errors"

// Sentinel errors for the small, well-known COBS error taxonomy. ShortData
// is resumable (feed more bytes on the next call with the same output
// buffer); the rest are caller mistakes or framing events the decoder has
// already recovered from by the time it returns.
var (
	// ErrShortData means the byte source was exhausted before a packet
	// completed. Call GetFrame again with the same out buffer once more
	// bytes are available.
	ErrShortData = errors.New("cobs: short data")

	// ErrZeroLength is returned by Encode for an empty payload.
	ErrZeroLength = errors.New("cobs: zero length payload")

	// ErrOverlong is returned by Encode when the payload cannot possibly
	// fit within MaxEncPacketLen once COBS overhead is added.
	ErrOverlong = errors.New("cobs: payload too long to encode")

	// ErrBusy is returned by SetSentinel when the decoder is mid-packet
	// and force was not requested.
	ErrBusy = errors.New("cobs: decoder busy, mid-packet")
)
