package transport

import "testing"

func strp(s string) *string { return &s }

func TestCalculateURLFile(t *testing.T) {
	got := CalculateURL(strp("/tmp/capture.bin"), nil, nil)
	want := "file:///tmp/capture.bin"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCalculateURLDefaults(t *testing.T) {
	got := CalculateURL(nil, nil, nil)
	want := "oflow://localhost:3402"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCalculateURLProtocolOverrideOnly(t *testing.T) {
	got := CalculateURL(nil, nil, strp("itm"))
	want := "itm://localhost:3402"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCalculateURLServerOnly(t *testing.T) {
	got := CalculateURL(nil, strp("192.168.1.5"), nil)
	want := "itm://192.168.1.5:3402"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCalculateURLServerWithExplicitPort(t *testing.T) {
	got := CalculateURL(nil, strp("192.168.1.5:1234"), nil)
	want := "itm://192.168.1.5:1234"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCalculateURLServerAndProtocolOverride(t *testing.T) {
	got := CalculateURL(nil, strp("192.168.1.5"), strp("oflow"))
	want := "oflow://192.168.1.5:3402"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCalculateURLFileWinsOverServerAndProtocol(t *testing.T) {
	got := CalculateURL(strp("/tmp/capture.bin"), strp("192.168.1.5"), strp("itm"))
	want := "file:///tmp/capture.bin"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLooksLikeHostPort(t *testing.T) {
	cases := map[string]bool{
		"localhost:3402":  true,
		"192.168.1.5:80":  true,
		"/dev/ttyUSB0":    false,
		"COM3":            false,
		"localhost:":      false,
	}
	for addr, want := range cases {
		if got := looksLikeHostPort(addr); got != want {
			t.Errorf("looksLikeHostPort(%q) = %v, want %v", addr, got, want)
		}
	}
}
