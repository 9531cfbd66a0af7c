package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/romtest/internal/testutil"
)

func nestest(lo, hi uint8) testutil.Memory {
	return testutil.Memory{NestestLow: lo, NestestHigh: hi}
}

func TestResultCodeProtocol_Success(t *testing.T) {
	p := ResultCodeProtocol{Low: NestestLow, High: NestestHigh}

	out := p.Decode(nestest(0, 0))
	assert.Equal(t, Pass, out.Verdict)
}

func TestResultCodeProtocol_OtherValuesFail(t *testing.T) {
	p := ResultCodeProtocol{Low: NestestLow, High: NestestHigh}

	tests := []struct {
		lo, hi uint8
		want   string
	}{
		{0x01, 0x00, "0x0001"},
		{0x00, 0x01, "0x0100"},
		{0x8A, 0x00, "0x008A"},
		{0xFF, 0xFF, "0xFFFF"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			out := p.Decode(nestest(tt.lo, tt.hi))
			assert.Equal(t, Fail, out.Verdict)
			assert.Equal(t, CodeTestFailed, out.Code)
			assert.Contains(t, out.Message, tt.want)
			assert.Contains(t, out.Message, "does not correspond to a known success code")
		})
	}
}

func TestResultCodeProtocol_CustomSuccess(t *testing.T) {
	p := ResultCodeProtocol{Low: 0x10, High: 0x11, Success: 0x3469}

	assert.Equal(t, Pass, p.Decode(testutil.Memory{0x10: 0x69, 0x11: 0x34}).Verdict)
	assert.Equal(t, Fail, p.Decode(testutil.Memory{}).Verdict)
	assert.Equal(t, uint16(0x3469), p.Code(testutil.Memory{0x10: 0x69, 0x11: 0x34}))
}

func TestResultCodeProtocol_Idempotent(t *testing.T) {
	p := ResultCodeProtocol{Low: NestestLow, High: NestestHigh}
	mem := nestest(0x22, 0x01)

	assert.Equal(t, p.Decode(mem), p.Decode(mem))
}
