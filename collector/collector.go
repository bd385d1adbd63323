// Package collector glues the transport, COBS framing, OrbFlow
// multiplexing, and ITM decoding layers together into one pull loop that
// feeds a caller-supplied FrameHandler.
package collector

import (
	"errors"
	"io"

	"github.com/orbuculum-go/itmtrace/cobs"
	"github.com/orbuculum-go/itmtrace/internal/bytestream"
	"github.com/orbuculum-go/itmtrace/internal/logging"
	"github.com/orbuculum-go/itmtrace/internal/transport"
	"github.com/orbuculum-go/itmtrace/itm"
	"github.com/orbuculum-go/itmtrace/oflow"
)

// CalculateURL is re-exported from internal/transport for callers that want
// to build a connection string from the same --file/--server/--protocol
// triple the command-line tool accepts.
func CalculateURL(inputFile, server, protocol *string) string {
	return transport.CalculateURL(inputFile, server, protocol)
}

// Collector reads a framed trace stream, decodes it down to ITM frames, and
// dispatches each to a FrameHandler. One Collector instance owns one open
// stream and its decoders' sticky state.
type Collector struct {
	streamNumber byte
	cobsDecoder  *cobs.Decoder
	oflowDecoder *oflow.Decoder
	itmDecoder   *itm.Decoder
	isITM        bool
	stream       transport.ReadCloser
	log          logging.Logger
}

// New opens addr (a file://, oflow://, or itm:// URL) and constructs a
// Collector ready for CollectData. tag selects which OrbFlow stream number
// this Collector dispatches frames from; it is ignored when addr carries
// raw ITM (isITM).
func New(addr string, tag byte, log logging.Logger) (*Collector, error) {
	if log == nil {
		log = logging.NoOp{}
	}
	stream, isITM, err := transport.Open(addr)
	if err != nil {
		if errors.Is(err, transport.ErrNoSource) {
			return nil, newErr(NoSource, err)
		}
		return nil, newErr(IoError, err)
	}
	return newWithStream(stream, isITM, tag, log), nil
}

// newWithStream builds a Collector around an already-opened stream,
// bypassing URL resolution. Used directly by tests that supply an in-memory
// stream.
func newWithStream(stream transport.ReadCloser, isITM bool, tag byte, log logging.Logger) *Collector {
	if log == nil {
		log = logging.NoOp{}
	}
	return &Collector{
		streamNumber: tag,
		cobsDecoder:  cobs.NewDecoder(log),
		oflowDecoder: oflow.NewDecoder(log),
		itmDecoder:   itm.NewDecoder(log),
		isITM:        isITM,
		stream:       stream,
		log:          log,
	}
}

// Close releases the underlying stream.
func (c *Collector) Close() error { return c.stream.Close() }

// CollectData reads from the stream until it's exhausted or an
// unrecoverable error occurs, decoding and dispatching frames to cb along
// the way. It returns the terminal Error (NoSource is never returned here;
// Reset means the stream reached EOF cleanly).
func (c *Collector) CollectData(cb FrameHandler) Error {
	tokens := make([]byte, cobs.MaxEncPacketLen)
	pending := make([]byte, 0, cobs.MaxPacketLen)

	cb.StateInd(Error{Kind: NoError})

	for {
		n, err := c.stream.Read(tokens)
		if err != nil {
			if errors.Is(err, io.EOF) {
				e := newErr(Reset, nil)
				cb.StateInd(e)
				return e
			}
			if errors.Is(err, transport.ErrTimeout) {
				// 100ms read deadline elapsed with nothing to show for it;
				// retry without disturbing any decoder or pending-packet
				// state.
				continue
			}
			e := newErr(IoError, err)
			cb.StateInd(e)
			return e
		}
		if n == 0 {
			e := newErr(Reset, nil)
			cb.StateInd(e)
			return e
		}

		src := bytestream.NewCursor(tokens[:n])

		if !c.isITM {
			if err := c.drainFramed(src, &pending, cb); err != nil {
				var ce Error
				errors.As(err, &ce)
				return ce
			}
		} else {
			if err := c.itmProcess(src, cb); err != nil {
				var ce Error
				errors.As(err, &ce)
				return ce
			}
		}

		cb.StateInd(Error{Kind: NoError})
	}
}

// drainFramed pulls as many complete COBS/OrbFlow-wrapped ITM packets as
// src currently holds, dispatching each to cb. It returns a non-nil error
// only when the handler rejected a frame (ProcessingFailed); OrbFlow decode
// errors (short, overlong, bad checksum) are reported through cb.StateInd
// and otherwise don't stop the drain, and frames for other stream numbers
// are skipped without any report.
func (c *Collector) drainFramed(src *bytestream.Cursor, pending *[]byte, cb FrameHandler) error {
	for src.Remaining() > 0 {
		// GetFrame's own resync logic absorbs mid-stream framing errors;
		// the only error it ever surfaces here is running out of input.
		if err := c.cobsDecoder.GetFrame(src, pending); err != nil {
			return nil
		}

		packet := *pending
		*pending = make([]byte, 0, cobs.MaxPacketLen)

		frame, err := c.oflowDecoder.Decode(packet)
		if err != nil {
			cb.StateInd(fromOflowErr(err))
			continue
		}
		if frame.StreamNumber() != c.streamNumber {
			continue
		}

		payloadSrc := bytestream.NewCursor(frame.Content())
		if err := c.itmProcess(payloadSrc, cb); err != nil {
			return err
		}
	}
	return nil
}

// itmProcess pulls ITM frames from src until it runs dry, dispatching each
// to cb. It returns a non-nil error only when cb rejects a frame
// (ProcessingFailed); itm.Decoder.GetFrame never surfaces anything but
// ErrShortData (resumable) in practice, but a hypothetical future decode
// error is still reported through cb.StateInd rather than treated as
// terminal, matching the "decode errors are data, not control flow"
// philosophy that governs every other layer.
func (c *Collector) itmProcess(src bytestream.Source, cb FrameHandler) error {
	for {
		frame, err := c.itmDecoder.GetFrame(src)
		if err != nil {
			if errors.Is(err, itm.ErrShortData) {
				return nil
			}
			cb.StateInd(fromItmErr(err))
			continue
		}
		if !cb.Process(frame) {
			e := newErr(ProcessingFailed, nil)
			cb.StateInd(e)
			return e
		}
	}
}
