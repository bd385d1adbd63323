package collector

import (
	"bytes"
	"io"
	"testing"

	"github.com/orbuculum-go/itmtrace/cobs"
	"github.com/orbuculum-go/itmtrace/internal/transport"
	"github.com/orbuculum-go/itmtrace/itm"
	"github.com/orbuculum-go/itmtrace/oflow"
)

// fakeStream adapts a bytes.Reader to transport.ReadCloser for tests.
type fakeStream struct {
	*bytes.Reader
}

func (fakeStream) Close() error { return nil }

// recordingHandler is a FrameHandler test double that records every frame
// and state transition it's told about.
type recordingHandler struct {
	frames []itm.Frame
	states []Error
	reject bool
}

func (h *recordingHandler) Process(f itm.Frame) bool {
	h.frames = append(h.frames, f)
	return !h.reject
}

func (h *recordingHandler) StateInd(e Error) {
	h.states = append(h.states, e)
}

// buildFramedPacket OrbFlow-encodes payload under streamNumber and then
// COBS-encodes the result, producing one on-wire packet as CollectData
// expects to read it from a COBS+OrbFlow transport.
func buildFramedPacket(t *testing.T, streamNumber byte, payload []byte) []byte {
	t.Helper()
	oflowPacket, err := oflow.EncodeToSlice(streamNumber, payload)
	if err != nil {
		t.Fatalf("oflow encode: %v", err)
	}
	d := cobs.NewDecoder(nil)
	var out []byte
	if err := d.Encode(oflowPacket, &out); err != nil {
		t.Fatalf("cobs encode: %v", err)
	}
	return out
}

func TestCollectDataFramedStream(t *testing.T) {
	const streamNumber = 3
	sync := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80}
	instrumentation := []byte{0x01, 0x22}
	payload := append(append([]byte{}, sync...), instrumentation...)

	wire := buildFramedPacket(t, streamNumber, payload)

	c := newWithStream(fakeStream{bytes.NewReader(wire)}, false, streamNumber, nil)
	h := &recordingHandler{}

	result := c.CollectData(h)

	if result.Kind != Reset {
		t.Fatalf("CollectData terminal error = %v, want Reset", result.Kind)
	}
	if len(h.frames) != 2 {
		t.Fatalf("got %d frames, want 2: %v", len(h.frames), h.frames)
	}
	if h.frames[0].Type != itm.FrameSync {
		t.Errorf("frame[0].Type = %v, want Sync", h.frames[0].Type)
	}
	want := itm.Frame{Type: itm.FrameInstrumentation, Addr: 0, Data: 0x22, Len: 1}
	if h.frames[1] != want {
		t.Errorf("frame[1] = %+v, want %+v", h.frames[1], want)
	}
}

func TestCollectDataIgnoresOtherStreamNumbers(t *testing.T) {
	const ourStream = 3
	sync := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80}

	wire := buildFramedPacket(t, ourStream+1, sync)

	c := newWithStream(fakeStream{bytes.NewReader(wire)}, false, ourStream, nil)
	h := &recordingHandler{}

	c.CollectData(h)

	if len(h.frames) != 0 {
		t.Errorf("got %d frames, want 0 (stream number mismatch)", len(h.frames))
	}
}

func TestCollectDataRawITMStream(t *testing.T) {
	sync := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80}
	instrumentation := []byte{0x01, 0x22}
	raw := append(append([]byte{}, sync...), instrumentation...)

	c := newWithStream(fakeStream{bytes.NewReader(raw)}, true, 0, nil)
	h := &recordingHandler{}

	result := c.CollectData(h)

	if result.Kind != Reset {
		t.Fatalf("CollectData terminal error = %v, want Reset", result.Kind)
	}
	if len(h.frames) != 2 {
		t.Fatalf("got %d frames, want 2: %v", len(h.frames), h.frames)
	}
}

func TestCollectDataStopsWhenHandlerRejects(t *testing.T) {
	const streamNumber = 1
	sync := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80}
	// A second frame after the rejected one: CollectData must never reach
	// it, since the handler's false return terminates the whole loop, not
	// just the packet it arrived in.
	instrumentation := []byte{0x01, 0x22}
	payload := append(append([]byte{}, sync...), instrumentation...)
	wire := buildFramedPacket(t, streamNumber, payload)

	c := newWithStream(fakeStream{bytes.NewReader(wire)}, false, streamNumber, nil)
	h := &recordingHandler{reject: true}

	result := c.CollectData(h)

	if result.Kind != ProcessingFailed {
		t.Fatalf("CollectData terminal error = %v, want ProcessingFailed", result.Kind)
	}
	if len(h.frames) != 1 {
		t.Fatalf("got %d frames, want 1 (loop must stop at the rejection)", len(h.frames))
	}
}

func TestCollectDataRawITMStopsWhenHandlerRejects(t *testing.T) {
	sync := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80}
	instrumentation := []byte{0x01, 0x22}
	raw := append(append([]byte{}, sync...), instrumentation...)

	c := newWithStream(fakeStream{bytes.NewReader(raw)}, true, 0, nil)
	h := &recordingHandler{reject: true}

	result := c.CollectData(h)

	if result.Kind != ProcessingFailed {
		t.Fatalf("CollectData terminal error = %v, want ProcessingFailed", result.Kind)
	}
	if len(h.frames) != 1 {
		t.Fatalf("got %d frames, want 1 (loop must stop at the rejection)", len(h.frames))
	}
}

// timeoutThenEOFStream returns transport.ErrTimeout once before yielding
// the real data, exercising CollectData's retry-on-timeout branch.
type timeoutThenEOFStream struct {
	*bytes.Reader
	timedOut bool
}

func (s *timeoutThenEOFStream) Read(p []byte) (int, error) {
	if !s.timedOut {
		s.timedOut = true
		return 0, transport.ErrTimeout
	}
	return s.Reader.Read(p)
}

func (*timeoutThenEOFStream) Close() error { return nil }

func TestCollectDataRetriesOnTimeout(t *testing.T) {
	sync := []byte{0x00, 0x00, 0x00, 0x00, 0x00, 0x80}

	c := newWithStream(&timeoutThenEOFStream{Reader: bytes.NewReader(sync)}, true, 0, nil)
	h := &recordingHandler{}

	result := c.CollectData(h)

	if result.Kind != Reset {
		t.Fatalf("CollectData terminal error = %v, want Reset", result.Kind)
	}
	if len(h.frames) != 1 || h.frames[0].Type != itm.FrameSync {
		t.Fatalf("got %v, want one Sync frame surviving the timeout retry", h.frames)
	}
}

func TestCollectDataEmptyStreamIsReset(t *testing.T) {
	c := newWithStream(fakeStream{bytes.NewReader(nil)}, false, 0, nil)
	h := &recordingHandler{}

	result := c.CollectData(h)
	if result.Kind != Reset {
		t.Fatalf("got %v, want Reset", result.Kind)
	}
}

var _ io.ReadCloser = fakeStream{}
