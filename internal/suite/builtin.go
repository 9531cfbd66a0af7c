package suite

import (
	"embed"
	"io/fs"
	"sync"

	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/status"
)

// roms holds the bundled test images, one per built-in case. Builtin accepts
// another filesystem to run the same cases against different images.
//
//go:embed roms
var roms embed.FS

// Budgets and addresses of the built-in suites.
const (
	instrChunkCycles     = 200_000
	allInstrsChunks      = 500
	officialInstrsChunks = 350

	nestestCycles        = 1_000_000
	nestestEntry  uint16 = 0xC000

	nromCycles = 10
)

// Fixture file names inside the fixture filesystem.
const (
	AllInstrsROM      = "all_instrs.nes"
	OfficialInstrsROM = "official_only.nes"
	NESTestROM        = "nestest.nes"
	NROMTestROM       = "nrom-test.nes"
)

// Fixtures returns the embedded fixture filesystem.
func Fixtures() fs.FS {
	sub, err := fs.Sub(roms, "roms")
	if err != nil {
		panic(err) // "roms" is a valid path, fs.Sub cannot fail
	}
	return sub
}

// Builtin returns the standard catalog with ROMs read from fixtures:
//
//	all_instrs       all instructions incl. unofficial (blargg instr_test-v5)
//	official_instrs  official instructions only (blargg instr_test-v5)
//	nestest          nestest started at 0xC000, result code at 0x02/0x03
//	nrom_test        NROM smoke test, expects 0x42=0x43 and 0x43=0x6A
//
// official_instrs and nrom_test form the default selection. official_instrs
// is a subset of all_instrs and is not part of the "all" preset.
func Builtin(fixtures fs.FS) *Catalog {
	instrs := status.NewMagicProtocol(status.DefaultBase)

	c := NewCatalog()
	c.MustAdd(Entry{
		Bit: AllInstrs,
		Case: TestCase{
			Name:      "all_instrs",
			Mirroring: cpu.MirroringHorizontal,
			ROM:       Fixture(fixtures, AllInstrsROM),
			Policy:    PollingBudget{ChunkCycles: instrChunkCycles, MaxChunks: allInstrsChunks, Probe: instrs},
			Rule:      instrs,
		},
	})
	c.MustAdd(Entry{
		Bit:      OfficialInstrs,
		Default:  true,
		Subsumed: true,
		Case: TestCase{
			Name:      "official_instrs",
			Mirroring: cpu.MirroringHorizontal,
			ROM:       Fixture(fixtures, OfficialInstrsROM),
			Policy:    PollingBudget{ChunkCycles: instrChunkCycles, MaxChunks: officialInstrsChunks, Probe: instrs},
			Rule:      instrs,
		},
	})
	c.MustAdd(Entry{
		Bit: NESTest,
		Case: TestCase{
			Name:       "nestest",
			Mirroring:  cpu.MirroringHorizontal,
			ROM:        Fixture(fixtures, NESTestROM),
			Entry:      nestestEntry,
			ForceEntry: true,
			Policy:     FixedBudget{Cycles: nestestCycles},
			Rule:       status.ResultCodeProtocol{Low: status.NestestLow, High: status.NestestHigh},
		},
	})
	c.MustAdd(Entry{
		Bit:     NROMTest,
		Default: true,
		Case: TestCase{
			Name:      "nrom_test",
			Mirroring: cpu.MirroringHorizontal,
			ROM:       Fixture(fixtures, NROMTestROM),
			Policy:    FixedBudget{Cycles: nromCycles},
			Rule: status.MemoryRule{
				Test: "nrom_test",
				Expect: []status.Expectation{
					{Addr: 0x42, Value: 0x43},
					{Addr: 0x43, Value: 0x6A},
				},
			},
		},
	})
	return c
}

var standard = sync.OnceValue(func() *Catalog {
	return Builtin(Fixtures())
})

// Standard returns the process-wide built-in catalog backed by the embedded
// fixtures. Callers that want to add entries must Clone it first.
func Standard() *Catalog {
	return standard()
}
