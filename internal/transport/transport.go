// Package transport opens the byte stream a Collector reads from, given a
// URL of the form scheme://address. Three schemes are recognized: file,
// oflow (TCP, OrbFlow-framed), and itm (TCP or a local serial device,
// depending on the address shape).
package transport

import (
	"errors"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"go.bug.st/serial"
)

const (
	OFlowPrefix       = "oflow"
	ITMPrefix         = "itm"
	FilePrefix        = "file"
	URLSeparator      = "://"
	DefaultConnectAddr = "localhost"
	DefaultPort       = "3402"
	portSep           = ":"

	// readTimeout bounds every blocking Read on a network or serial stream
	// so CollectData's loop can retry instead of stalling forever.
	readTimeout = 100 * time.Millisecond
)

// ErrNoSource is returned when addr carries none of the recognized
// url schemes.
var ErrNoSource = errors.New("transport: no source")

// ErrTimeout is returned by a Read that hit the readTimeout deadline with
// no data available. It is not a failure: the caller retries.
var ErrTimeout = errors.New("transport: read timeout")

// CalculateURL reconstructs the address Open should be given from the
// mutually-exclusive --file/--server/--protocol CLI inputs a caller
// collected, applying the same defaulting rules as the command-line tool
// this package was built for: a file path always wins; otherwise default to
// oflow unless a server was named (then itm), unless protocol overrides
// either; and always append the default port if the server address didn't
// specify one.
func CalculateURL(inputFile, server, protocol *string) string {
	if inputFile != nil {
		return FilePrefix + URLSeparator + *inputFile
	}

	prot := OFlowPrefix
	if server != nil {
		prot = ITMPrefix
	}
	if protocol != nil {
		prot = *protocol
	}

	addr := DefaultConnectAddr
	if server != nil {
		addr = *server
	}
	if !strings.Contains(addr, portSep) {
		addr = addr + portSep + DefaultPort
	}

	return prot + URLSeparator + addr
}

// Open dials or opens the stream named by addr. isITM reports whether the
// stream carries raw ITM (bypassing COBS/OrbFlow framing) rather than an
// OrbFlow-multiplexed stream.
func Open(addr string) (stream ReadCloser, isITM bool, err error) {
	if rest, ok := strings.CutPrefix(addr, OFlowPrefix+URLSeparator); ok {
		conn, err := net.Dial("tcp", rest)
		if err != nil {
			return nil, false, err
		}
		return deadlineConn{conn}, false, nil
	}
	if rest, ok := strings.CutPrefix(addr, ITMPrefix+URLSeparator); ok {
		if looksLikeHostPort(rest) {
			conn, err := net.Dial("tcp", rest)
			if err != nil {
				return nil, true, err
			}
			return deadlineConn{conn}, true, nil
		}
		port, err := serial.Open(rest, &serial.Mode{BaudRate: 115200})
		if err != nil {
			return nil, true, err
		}
		if err := port.SetReadTimeout(readTimeout); err != nil {
			port.Close()
			return nil, true, err
		}
		return timeoutSerialPort{port}, true, nil
	}
	if rest, ok := strings.CutPrefix(addr, FilePrefix+URLSeparator); ok {
		f, err := os.Open(rest)
		if err != nil {
			return nil, false, err
		}
		return f, false, nil
	}
	return nil, false, ErrNoSource
}

// deadlineConn wraps a net.Conn so every Read is bounded by readTimeout,
// surfacing the resulting timeout as ErrTimeout rather than the raw
// *net.OpError, so callers can tell "retry" apart from "connection lost".
type deadlineConn struct {
	net.Conn
}

func (c deadlineConn) Read(p []byte) (int, error) {
	if err := c.Conn.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
		return 0, err
	}
	n, err := c.Conn.Read(p)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return n, ErrTimeout
		}
	}
	return n, err
}

// timeoutSerialPort wraps a serial.Port configured with SetReadTimeout so a
// timed-out Read (which the library reports as 0 bytes, no error) is
// surfaced as ErrTimeout instead of being mistaken for a zero-byte Reset.
type timeoutSerialPort struct {
	serial.Port
}

func (p timeoutSerialPort) Read(b []byte) (int, error) {
	n, err := p.Port.Read(b)
	if err == nil && n == 0 {
		return 0, ErrTimeout
	}
	return n, err
}

// looksLikeHostPort reports whether addr is "host:port" (a bare serial
// device path like /dev/ttyUSB0 or COM3 never contains a colon followed by
// an all-digit port).
func looksLikeHostPort(addr string) bool {
	i := strings.LastIndex(addr, portSep)
	if i < 0 || i == len(addr)-1 {
		return false
	}
	_, err := strconv.Atoi(addr[i+1:])
	return err == nil
}

// ReadCloser is the minimal surface a Collector needs from an opened
// stream.
type ReadCloser interface {
	Read(p []byte) (n int, err error)
	Close() error
}
