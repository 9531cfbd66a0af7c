package runner

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/status"
	"github.com/roach88/romtest/internal/suite"
	"github.com/roach88/romtest/internal/testutil"
)

var magic = status.NewMagicProtocol(status.DefaultBase)

func fixedCase(cycles uint64, rule status.Rule) suite.TestCase {
	return suite.TestCase{
		Name:   "fixed",
		ROM:    suite.Bytes([]byte{0x4e, 0x45, 0x53, 0x1a, 0x01}),
		Policy: suite.FixedBudget{Cycles: cycles},
		Rule:   rule,
	}
}

func pollingCase(chunks int) suite.TestCase {
	return suite.TestCase{
		Name:   "polling",
		ROM:    suite.Bytes([]byte{0x4e, 0x45, 0x53, 0x1a}),
		Policy: suite.PollingBudget{ChunkCycles: 100, MaxChunks: chunks, Probe: magic},
		Rule:   magic,
	}
}

func TestRun_EndToEndPass(t *testing.T) {
	factory := &testutil.Factory{Setup: func(c *testutil.FakeCPU) {
		c.WriteStatus(0x6000, 0, "Passed")
	}}
	stepper := &testutil.FakeStepper{}

	res := New(factory.New, stepper).Run(fixedCase(1000, magic))

	assert.Equal(t, status.Pass, res.Outcome.Verdict)
	assert.Equal(t, "fixed", res.Test)
	assert.Equal(t, uint64(1000), res.Cycles)
	assert.Zero(t, res.Chunks)
	assert.Equal(t, []uint64{1000}, stepper.Requests())
}

func TestRun_FixedBudgetFailureDecoded(t *testing.T) {
	factory := &testutil.Factory{}
	stepper := &testutil.FakeStepper{Hook: func(_ int, c *testutil.FakeCPU) error {
		c.Write(0x42, 0x43, 0x00)
		return nil
	}}
	rule := status.MemoryRule{Test: "nrom_test", Expect: []status.Expectation{
		{Addr: 0x42, Value: 0x43},
		{Addr: 0x43, Value: 0x6A},
	}}

	res := New(factory.New, stepper).Run(fixedCase(10, rule))

	assert.Equal(t, status.Fail, res.Outcome.Verdict)
	assert.Contains(t, res.Outcome.Message, "0x43")
}

func TestRun_ConstructionFailure(t *testing.T) {
	factory := &testutil.Factory{Err: errors.New("unsupported mapper 4")}
	stepper := &testutil.FakeStepper{}

	res := New(factory.New, stepper).Run(fixedCase(10, magic))

	assert.Equal(t, status.HarnessError, res.Outcome.Verdict)
	assert.Equal(t, status.CodeConstructFailed, res.Outcome.Code)
	assert.Equal(t, "unsupported mapper 4", res.Outcome.Message)
	assert.Zero(t, stepper.Calls(), "nothing is stepped without a processor")
}

func TestRun_NilProcessor(t *testing.T) {
	factory := func([]byte) (cpu.Testable, error) { return nil, nil }

	res := New(factory, &testutil.FakeStepper{}).Run(fixedCase(10, magic))

	assert.Equal(t, status.CodeConstructFailed, res.Outcome.Code)
}

func TestRun_FixtureMissing(t *testing.T) {
	factory := &testutil.Factory{}
	tc := fixedCase(10, magic)
	tc.ROM = func() ([]byte, error) { return nil, errors.New("rom fixture x.nes is not available") }

	res := New(factory.New, &testutil.FakeStepper{}).Run(tc)

	assert.Equal(t, status.HarnessError, res.Outcome.Verdict)
	assert.Equal(t, status.CodeFixtureMissing, res.Outcome.Code)
	assert.Empty(t, factory.Built())
}

func TestRun_InvalidCase(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(tc *suite.TestCase)
		want   string
	}{
		{"no policy", func(tc *suite.TestCase) { tc.Policy = nil }, "execution policy is required"},
		{"zero cycles", func(tc *suite.TestCase) { tc.Policy = suite.FixedBudget{} }, "positive cycle count"},
		{"polling without probe", func(tc *suite.TestCase) {
			tc.Policy = suite.PollingBudget{ChunkCycles: 100, MaxChunks: 2}
		}, "needs a probe"},
		{"no rule", func(tc *suite.TestCase) { tc.Rule = nil }, "verdict rule is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &testutil.Factory{}
			stepper := &testutil.FakeStepper{}
			tc := fixedCase(10, magic)
			tt.mutate(&tc)

			res := New(factory.New, stepper).Run(tc)

			assert.Equal(t, status.HarnessError, res.Outcome.Verdict)
			assert.Equal(t, status.CodeInvalidCase, res.Outcome.Code)
			assert.Contains(t, res.Outcome.Message, tt.want)
			assert.Empty(t, factory.Built(), "no processor is built")
			assert.Zero(t, stepper.Calls(), "no stepping happens")
		})
	}
}

func TestRun_PanicAfterNSteps(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"string", "index out of range", "index out of range"},
		{"error", errors.New("bad opcode 0x02"), "bad opcode 0x02"},
		{"stringer", stringer("illegal state"), "illegal state"},
		{"other", 42, NoPanicInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &testutil.Factory{}
			stepper := &testutil.FakeStepper{Hook: testutil.PanicOn(3, tt.value)}

			res := New(factory.New, stepper).Run(pollingCase(10))

			assert.Equal(t, status.HarnessError, res.Outcome.Verdict)
			assert.Equal(t, status.CodePanicked, res.Outcome.Code)
			assert.Equal(t, tt.want, res.Outcome.Message)
			assert.Equal(t, 3, stepper.Calls())
			assert.Equal(t, 3, res.Chunks)
			assert.Equal(t, uint64(300), res.Cycles)
		})
	}
}

func TestRun_Goexit(t *testing.T) {
	stepper := cpu.StepperFunc(func(cpu.Testable, cpu.Mirroring, uint64) error {
		runtime.Goexit()
		return nil
	})

	res := New((&testutil.Factory{}).New, stepper).Run(fixedCase(10, magic))

	assert.Equal(t, status.CodePanicked, res.Outcome.Code)
	assert.Equal(t, NoPanicInfo, res.Outcome.Message)
}

func TestRun_RunnerSurvivesPanic(t *testing.T) {
	factory := &testutil.Factory{Setup: func(c *testutil.FakeCPU) {
		c.WriteStatus(0x6000, 0, "Passed")
	}}
	r := New(factory.New, &testutil.FakeStepper{Hook: testutil.PanicOn(1, "boom")})

	first := r.Run(fixedCase(10, magic))
	require.Equal(t, status.CodePanicked, first.Outcome.Code)

	r = New(factory.New, &testutil.FakeStepper{})
	second := r.Run(fixedCase(10, magic))
	assert.True(t, second.Outcome.OK())
	assert.Len(t, factory.Built(), 2, "each run builds a fresh processor")
}

func TestRun_PollingEarlyExit(t *testing.T) {
	factory := &testutil.Factory{Setup: func(c *testutil.FakeCPU) {
		c.WriteStatus(0x6000, 0x80, "\n02-immediate\n\nRunning\n")
	}}
	stepper := &testutil.FakeStepper{Hook: func(call int, c *testutil.FakeCPU) error {
		if call == 2 {
			c.WriteStatus(0x6000, 1, "\n02-immediate\n\nFailed\n")
		}
		return nil
	}}

	res := New(factory.New, stepper).Run(pollingCase(10))

	assert.Equal(t, 2, stepper.Calls(), "chunks 3..10 never run")
	assert.Equal(t, 2, res.Chunks)
	assert.Equal(t, uint64(200), res.Cycles)
	assert.Equal(t, status.Fail, res.Outcome.Verdict)
	assert.Contains(t, res.Outcome.Message, "exited with status 1")
	assert.Contains(t, res.Outcome.Message, "Failed")
}

func TestRun_PollingExhaustsBudget(t *testing.T) {
	factory := &testutil.Factory{Setup: func(c *testutil.FakeCPU) {
		c.WriteStatus(0x6000, 0, "\nall_instrs\n\nPassed\n")
	}}
	stepper := &testutil.FakeStepper{}

	res := New(factory.New, stepper).Run(pollingCase(5))

	assert.Equal(t, 5, stepper.Calls())
	assert.Equal(t, []uint64{100, 100, 100, 100, 100}, stepper.Requests())
	assert.True(t, res.Outcome.OK())
}

func TestRun_PollingLogsProgressOnChange(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	factory := &testutil.Factory{}
	stepper := &testutil.FakeStepper{Hook: func(call int, c *testutil.FakeCPU) error {
		switch call {
		case 1:
			c.WriteStatus(0x6000, 0x80, "01-basics\n")
		case 3:
			c.WriteStatus(0x6000, 0x80, "02-implied\n")
		case 4:
			c.WriteStatus(0x6000, 0, "02-implied\nPassed\n")
		}
		return nil
	}}

	New(factory.New, stepper, WithLogger(logger)).Run(pollingCase(4))

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "test progress"), out)
	assert.Contains(t, out, "status=01-basics")
	assert.Contains(t, out, "status=02-implied")
}

func TestRun_SteppingFailureHint(t *testing.T) {
	factory := &testutil.Factory{Setup: func(c *testutil.FakeCPU) {
		c.WriteStatus(0x6000, 3, "\n03-dummy\n\nFailed\n")
	}}
	stepper := &testutil.FakeStepper{Hook: testutil.FailOn(1, errors.New("cpu jammed at $C123"))}

	res := New(factory.New, stepper).Run(fixedCase(10, magic))

	assert.Equal(t, status.HarnessError, res.Outcome.Verdict)
	assert.Equal(t, status.CodeSteppingFailed, res.Outcome.Code)
	assert.Equal(t, "cpu jammed at $C123", res.Outcome.Message)
	assert.Contains(t, res.Outcome.Hint, "exited with status 3")
	assert.Contains(t, res.Outcome.String(), "possibly due to a test that didn't pass")
}

func TestRun_SteppingFailureWithoutHint(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*testutil.FakeCPU)
	}{
		{"corrupted record", func(*testutil.FakeCPU) {}},
		{"passing record", func(c *testutil.FakeCPU) { c.WriteStatus(0x6000, 0, "Passed") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := &testutil.Factory{Setup: tt.setup}
			stepper := &testutil.FakeStepper{Hook: testutil.FailOn(2, errors.New("timeout"))}

			res := New(factory.New, stepper).Run(pollingCase(10))

			assert.Equal(t, status.CodeSteppingFailed, res.Outcome.Code)
			assert.Empty(t, res.Outcome.Hint)
			assert.Equal(t, 2, stepper.Calls())
		})
	}
}

func TestRun_EntryPointApplied(t *testing.T) {
	factory := &testutil.Factory{}
	tc := fixedCase(10, status.ResultCodeProtocol{Low: status.NestestLow, High: status.NestestHigh})
	tc.Entry = 0xC000
	tc.ForceEntry = true

	res := New(factory.New, &testutil.FakeStepper{}).Run(tc)

	assert.True(t, res.Outcome.OK())
	c := factory.Last()
	assert.Equal(t, uint16(0xC000), c.PC())
	assert.Equal(t, 1, c.PCWrites())
}

func TestRun_EntryPointNotForced(t *testing.T) {
	factory := &testutil.Factory{}

	New(factory.New, &testutil.FakeStepper{}).Run(fixedCase(10, magic))

	assert.Zero(t, factory.Last().PCWrites())
}

func TestRun_ROMIsCopied(t *testing.T) {
	image := []byte{0x4e, 0x45, 0x53, 0x1a, 0x01}
	tc := fixedCase(10, magic)
	tc.ROM = func() ([]byte, error) { return image, nil }

	factory := func(rom []byte) (cpu.Testable, error) {
		rom[4] = 0xFF
		return testutil.NewFakeCPU(rom), nil
	}

	New(factory, &testutil.FakeStepper{}).Run(tc)

	assert.Equal(t, uint8(0x01), image[4])
}

func TestRun_ForwardsMirroring(t *testing.T) {
	stepper := &testutil.FakeStepper{}
	tc := fixedCase(10, magic)
	tc.Mirroring = cpu.MirroringVertical

	New((&testutil.Factory{}).New, stepper).Run(tc)

	assert.Equal(t, []cpu.Mirroring{cpu.MirroringVertical}, stepper.Mirrorings())
}

type stringer string

func (s stringer) String() string { return string(s) }

func TestPanicMessage(t *testing.T) {
	assert.Equal(t, NoPanicInfo, panicMessage(nil))
	assert.Equal(t, "x", panicMessage("x"))
	assert.Equal(t, "y", panicMessage(fmt.Errorf("y")))
	assert.Equal(t, NoPanicInfo, panicMessage(struct{}{}))
}
