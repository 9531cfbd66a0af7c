package status

import (
	"fmt"
	"strings"

	"github.com/roach88/romtest/internal/cpu"
)

// Layout of the magic-prefixed status record.
const (
	// DefaultBase is where blargg-style test ROMs place their status record.
	DefaultBase uint16 = 0x6000

	// DefaultFailureMarker appears in the status text once a ROM has failed.
	DefaultFailureMarker = "Failed"

	textOffset = 4
	textLimit  = 0x1000 - textOffset + 1 // B+4 through B+4096 inclusive
)

// Magic is the signature stored at B+1..B+3 by a ROM whose status record is valid.
var Magic = [3]byte{0xde, 0xb0, 0x61}

// MagicProtocol decodes a status record at Base:
//
//	B+0      exit status, 0 is a pass
//	B+1..B+3 Magic
//	B+4..    NUL-terminated diagnostic text
type MagicProtocol struct {
	Base   uint16
	Marker string // failure marker used by Probe; DefaultFailureMarker if empty
}

// NewMagicProtocol returns a protocol reading the record at base.
func NewMagicProtocol(base uint16) MagicProtocol {
	return MagicProtocol{Base: base, Marker: DefaultFailureMarker}
}

// Decode reads the record. A magic mismatch is reported as corruption
// regardless of the exit status because the report channel itself cannot be
// trusted.
func (p MagicProtocol) Decode(mem cpu.Memory) Outcome {
	code := mem.ReadMemory(p.Base)
	m1 := mem.ReadMemory(p.Base + 1)
	m2 := mem.ReadMemory(p.Base + 2)
	m3 := mem.ReadMemory(p.Base + 3)

	if m1 != Magic[0] || m2 != Magic[1] || m3 != Magic[2] {
		return Errored(CodeCorrupted, fmt.Sprintf(
			"invalid magic sequence: %02x%02x%02x. the test output was corrupted", m1, m2, m3))
	}

	if code == 0 {
		return Passed()
	}
	return Failed(fmt.Sprintf("exited with status %d:\n %s", code, p.Text(mem)))
}

// Text returns the diagnostic text of the record. It does not validate the magic.
func (p MagicProtocol) Text(mem cpu.Memory) string {
	return decodeText(readCString(mem, p.Base+textOffset, textLimit))
}

// Probe reports the first line of the status text, and done once the text
// contains the failure marker.
func (p MagicProtocol) Probe(mem cpu.Memory) (string, bool) {
	marker := p.Marker
	if marker == "" {
		marker = DefaultFailureMarker
	}
	text := p.Text(mem)
	return firstLine(text), strings.Contains(text, marker)
}
