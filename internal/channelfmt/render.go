package channelfmt

import (
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Render expands format against data, consuming bytes from data left to
// right as each token needs them. It returns the rendered text and the
// number of data bytes consumed; unconsumed trailing bytes are the
// caller's concern (typically logged as a length mismatch).
//
// Recognized tokens: the escapes \n \t \a, and the field substitutions
// {x08} (1-byte hex), {x04} (2-byte hex), {x02} (1-byte hex, zero-padded to
// 2 digits, identical width to {x08} but kept distinct for format-string
// compatibility with the source this was ported from), {i32} (4-byte signed
// decimal), {u32} (4-byte unsigned decimal), {unic} (one UTF-8 rune), and
// {char} (one raw byte, written as-is).
func Render(format string, data []byte) (string, int) {
	var out strings.Builder
	pos := 0

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '\\' && i+1 < len(format) {
			switch format[i+1] {
			case 'n':
				out.WriteByte('\n')
				i++
				continue
			case 't':
				out.WriteByte('\t')
				i++
				continue
			case 'a':
				out.WriteByte('\a')
				i++
				continue
			}
		}
		if c == '{' {
			if end := strings.IndexByte(format[i:], '}'); end >= 0 {
				token := format[i+1 : i+end]
				n := writeToken(&out, token, data[pos:])
				if n >= 0 {
					pos += n
					i += end
					continue
				}
			}
		}
		out.WriteByte(c)
	}

	return out.String(), pos
}

// writeToken renders one {token} against the front of remaining, returning
// how many bytes of remaining it consumed, or -1 if token is unrecognized
// (in which case the caller falls back to passing the brace through
// literally).
func writeToken(out *strings.Builder, token string, remaining []byte) int {
	switch token {
	case "x08", "x02":
		if len(remaining) < 1 {
			return 0
		}
		fmt.Fprintf(out, "%02x", remaining[0])
		return 1
	case "x04":
		if len(remaining) < 2 {
			return 0
		}
		fmt.Fprintf(out, "%04x", binary.LittleEndian.Uint16(remaining))
		return 2
	case "i32":
		if len(remaining) < 4 {
			return 0
		}
		fmt.Fprintf(out, "%d", int32(binary.LittleEndian.Uint32(remaining)))
		return 4
	case "u32":
		if len(remaining) < 4 {
			return 0
		}
		fmt.Fprintf(out, "%d", binary.LittleEndian.Uint32(remaining))
		return 4
	case "unic":
		r, size := utf8.DecodeRune(remaining)
		if r == utf8.RuneError && size <= 1 {
			return 0
		}
		out.WriteRune(r)
		return size
	case "char":
		if len(remaining) < 1 {
			return 0
		}
		out.WriteByte(remaining[0])
		return 1
	default:
		return -1
	}
}
