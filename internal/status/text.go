package status

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/roach88/romtest/internal/cpu"
)

// readCString reads a NUL-terminated byte string starting at from.
// At most limit bytes are read and the scan never wraps past 0xFFFF.
func readCString(mem cpu.Memory, from uint16, limit int) []byte {
	var raw []byte
	for i := 0; i < limit; i++ {
		addr := uint32(from) + uint32(i)
		if addr > 0xFFFF {
			break
		}
		b := mem.ReadMemory(uint16(addr))
		if b == 0 {
			break
		}
		raw = append(raw, b)
	}
	return raw
}

// decodeText converts raw ROM output to a string. Valid UTF-8 passes through
// byte for byte; invalid sequences become U+FFFD instead of aborting the
// decode.
func decodeText(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	s, _, err := transform.String(unicode.UTF8.NewDecoder(), string(raw))
	if err != nil {
		// the UTF-8 decoder substitutes rather than fails; keep the bytes
		// we have if it ever does
		s = strings.ToValidUTF8(string(raw), "�")
	}
	return s
}

// firstLine returns the first line of s with surrounding whitespace removed.
func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
