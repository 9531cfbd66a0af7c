package status

import (
	"fmt"

	"github.com/roach88/romtest/internal/cpu"
)

// Addresses nestest uses for its result code.
const (
	NestestLow  uint16 = 0x0002
	NestestHigh uint16 = 0x0003
)

// ResultCodeProtocol reads a 16-bit result code from two bytes. Only Success
// is known to mean a pass; no attempt is made to name other values.
type ResultCodeProtocol struct {
	Low     uint16
	High    uint16
	Success uint16
}

// Code returns the 16-bit value currently in memory.
func (p ResultCodeProtocol) Code(mem cpu.Memory) uint16 {
	return uint16(mem.ReadMemory(p.Low)) | uint16(mem.ReadMemory(p.High))<<8
}

// Decode maps the success value to Pass and everything else to Fail.
func (p ResultCodeProtocol) Decode(mem cpu.Memory) Outcome {
	code := p.Code(mem)
	if code == p.Success {
		return Passed()
	}
	return Failed(fmt.Sprintf("result code 0x%04X does not correspond to a known success code (expected 0x%04X)", code, p.Success))
}
