package itm

import "errors"

// ErrShortData is the only recoverable failure GetFrame surfaces: the byte
// source was exhausted mid-packet. Call GetFrame again once more bytes are
// available; the decoder's in-progress accumulator is preserved.
var ErrShortData = errors.New("itm: short data")
