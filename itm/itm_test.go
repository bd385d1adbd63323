package itm

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/orbuculum-go/itmtrace/internal/bytestream"
)

// streamBuilder assembles a raw ITM byte stream for feeding into a
// Decoder in tests, following the teacher's stream-builder test idiom.
type streamBuilder struct {
	bytes []byte
}

func (b *streamBuilder) AddBytes(bs ...byte) *streamBuilder {
	b.bytes = append(b.bytes, bs...)
	return b
}

func (b *streamBuilder) AddSync() *streamBuilder {
	return b.AddBytes(0x00, 0x00, 0x00, 0x00, 0x00, 0x80)
}

func (b *streamBuilder) Bytes() []byte { return b.bytes }

// decodeFrames feeds in through a fresh Decoder and returns every emitted
// frame until the source is exhausted.
func decodeFrames(t *testing.T, in []byte) []Frame {
	t.Helper()
	d := NewDecoder(nil)
	src := bytestream.NewCursor(in)
	var frames []Frame
	for {
		f, err := d.GetFrame(src)
		if err == ErrShortData {
			return frames
		}
		if err != nil {
			t.Fatalf("GetFrame: %v", err)
		}
		frames = append(frames, f)
	}
}

func TestSeedScenario1_Sync(t *testing.T) {
	b := (&streamBuilder{}).AddSync()
	frames := decodeFrames(t, b.Bytes())
	want := []Frame{{Type: FrameSync, Count: 1}}
	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedScenario2_SyncThenInstrumentation(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0x01, 0x22)
	frames := decodeFrames(t, b.Bytes())
	want := []Frame{
		{Type: FrameSync, Count: 1},
		{Type: FrameInstrumentation, Addr: 0, Data: 0x22, Len: 1},
	}
	if diff := cmp.Diff(want, frames); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedScenario3_Instrumentation4Byte(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0x93, 0x11, 0x22, 0x33, 0x44)
	frames := decodeFrames(t, b.Bytes())
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %v", len(frames), frames)
	}
	got := frames[1]
	want := Frame{Type: FrameInstrumentation, Addr: 18, Data: 0x44332211, Len: 4}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedScenario4_PageRegisterViaXtnShortForm(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0x1C, 0x01, 0x22)
	frames := decodeFrames(t, b.Bytes())
	// The Xtn short form updating the page register emits no frame; only
	// Sync and the subsequent Instrumentation should appear.
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %v", len(frames), frames)
	}
	want := Frame{Type: FrameInstrumentation, Addr: 32, Data: 0x22, Len: 1}
	if diff := cmp.Diff(want, frames[1]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedScenario5_Exception(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0x0e, 0x42, 0x11)
	frames := decodeFrames(t, b.Bytes())
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %v", len(frames), frames)
	}
	want := Frame{Type: FrameException, ExceptionNo: 0x142, Event: ExceptionEntry}
	if diff := cmp.Diff(want, frames[1]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestSeedScenario6_GlobalTimestampWrap(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0x94, 0xf3, 0x92, 0xd0, 0x4f)
	frames := decodeFrames(t, b.Bytes())
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %v", len(frames), frames)
	}
	want := Frame{Type: FrameGlobalTimestamp, HasWrapped: true, TS: 0x1f40973}
	if diff := cmp.Diff(want, frames[1]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestTPIUSyncDesyncsStream(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0xFF, 0xFF, 0xFF, 0x7F)
	frames := decodeFrames(t, b.Bytes())
	if len(frames) != 2 {
		t.Fatalf("expected 2 frames, got %d: %v", len(frames), frames)
	}
	if frames[1].Type != FrameTPIUSync {
		t.Errorf("got %v, want TPIUSync", frames[1].Type)
	}
}

func TestInstrumentationAddrStaysWithinByte(t *testing.T) {
	// Page register at its maximum (32*7=224) plus the maximum raw
	// instrumentation address (31) must stay within a byte (255).
	d := NewDecoder(nil)
	src := bytestream.NewCursor((&streamBuilder{}).AddSync().Bytes())
	if _, err := d.GetFrame(src); err != nil {
		t.Fatalf("sync: %v", err)
	}
	// Xtn short form with ex=7 (bits[6:4]=111) sets page_register=32*7=224;
	// it produces no frame, so GetFrame runs dry on this single byte.
	pageSrc := bytestream.NewCursor([]byte{0x7C})
	if _, err := d.GetFrame(pageSrc); err != ErrShortData {
		t.Fatalf("xtn page update: got %v, want ErrShortData", err)
	}
	// 0xF9: len bits=01 (len 1), addr bits[7:3]=11111 (31), bit2=0.
	instrSrc := bytestream.NewCursor([]byte{0xF9, 0x22})
	frame, err := d.GetFrame(instrSrc)
	if err != nil {
		t.Fatalf("instrumentation: %v", err)
	}
	if frame.Addr != 255 {
		t.Errorf("addr = %d, want 255", frame.Addr)
	}
}

func TestDataTraceMatchShortCircuit(t *testing.T) {
	d := NewDecoder(nil)
	src := bytestream.NewCursor((&streamBuilder{}).AddSync().Bytes())
	if _, err := d.GetFrame(src); err != nil {
		t.Fatalf("sync: %v", err)
	}
	// header 0100_0101 = 0x45: family PC, index=0, bits3:0=0101 -> Match.
	src2 := bytestream.NewCursor([]byte{0x45, 0x01})
	frame, err := d.GetFrame(src2)
	if err != nil {
		t.Fatalf("GetFrame: %v", err)
	}
	if frame.Type != FrameDataTraceMatch || frame.Index != 0 {
		t.Errorf("got %v, want DataTraceMatch{index:0}", frame)
	}
}

func TestShortDataIsResumable(t *testing.T) {
	d := NewDecoder(nil)
	b := (&streamBuilder{}).AddSync().AddBytes(0x93, 0x11)
	src := bytestream.NewCursor(b.Bytes())
	if _, err := d.GetFrame(src); err != nil {
		t.Fatalf("sync: %v", err)
	}
	if _, err := d.GetFrame(src); err != ErrShortData {
		t.Fatalf("got %v, want ErrShortData", err)
	}
	src2 := bytestream.NewCursor([]byte{0x22, 0x33, 0x44})
	frame, err := d.GetFrame(src2)
	if err != nil {
		t.Fatalf("resumed GetFrame: %v", err)
	}
	want := Frame{Type: FrameInstrumentation, Addr: 18, Data: 0x44332211, Len: 4}
	if diff := cmp.Diff(want, frame); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestOverflowPacket(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0x70)
	frames := decodeFrames(t, b.Bytes())
	if len(frames) != 2 || frames[1].Type != FrameOverflow {
		t.Fatalf("got %v", frames)
	}
}

func TestPCSleepProhibited(t *testing.T) {
	// header 0001_0101 = 0x15: len=1 -> PCSleep.
	b := (&streamBuilder{}).AddSync().AddBytes(0x15, 0xFF)
	frames := decodeFrames(t, b.Bytes())
	if len(frames) != 2 {
		t.Fatalf("got %v", frames)
	}
	want := Frame{Type: FramePCSleep, Prohibited: true}
	if diff := cmp.Diff(want, frames[1]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}

func TestEventCounterBits(t *testing.T) {
	b := (&streamBuilder{}).AddSync().AddBytes(0x05, 0x2B) // 0b101011
	frames := decodeFrames(t, b.Bytes())
	if len(frames) != 2 {
		t.Fatalf("got %v", frames)
	}
	want := Frame{
		Type:            FrameEventCounter,
		CPICntWrapped:   true,
		ExcCntWrapped:   true,
		SleepCntWrapped: false,
		LSUCntWrapped:   true,
		FoldCntWrapped:  false,
		PostCntWrapped:  true,
	}
	if diff := cmp.Diff(want, frames[1]); diff != "" {
		t.Errorf("mismatch (-want +got):\n%s", diff)
	}
}
