package suite

import (
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/status"
	"github.com/roach88/romtest/internal/testutil"
)

func TestBuiltin_Bits(t *testing.T) {
	assert.Equal(t, Selector(1), NESTest)
	assert.Equal(t, Selector(2), AllInstrs)
	assert.Equal(t, Selector(4), OfficialInstrs)
	assert.Equal(t, Selector(8), NROMTest)
}

func TestBuiltin_Order(t *testing.T) {
	c := Standard()
	assert.Equal(t, []string{"all_instrs", "official_instrs", "nestest", "nrom_test"}, c.Names(^Selector(0)))
}

func TestBuiltin_Presets(t *testing.T) {
	c := Standard()
	assert.Equal(t, NESTest|AllInstrs|NROMTest, c.All())
	assert.Equal(t, OfficialInstrs|NROMTest, c.Default())
	assert.Equal(t, []string{"official_instrs", "nrom_test"}, c.Names(0))
	assert.Equal(t, []string{"all_instrs", "nestest", "nrom_test"}, c.Names(c.All()))
}

func TestBuiltin_Cases(t *testing.T) {
	c := Standard()

	all, ok := c.Lookup("all_instrs")
	require.True(t, ok)
	assert.Equal(t, PollingBudget{ChunkCycles: 200_000, MaxChunks: 500, Probe: status.NewMagicProtocol(0x6000)}, all.Case.Policy)
	assert.False(t, all.Case.ForceEntry)

	official, ok := c.Lookup("official_instrs")
	require.True(t, ok)
	assert.Equal(t, 350, official.Case.Policy.(PollingBudget).MaxChunks)

	nestest, ok := c.Lookup("nestest")
	require.True(t, ok)
	assert.True(t, nestest.Case.ForceEntry)
	assert.Equal(t, uint16(0xC000), nestest.Case.Entry)
	assert.Equal(t, FixedBudget{Cycles: 1_000_000}, nestest.Case.Policy)

	nrom, ok := c.Lookup("nrom_test")
	require.True(t, ok)
	assert.Equal(t, FixedBudget{Cycles: 10}, nrom.Case.Policy)

	for _, e := range c.Entries() {
		assert.Equal(t, cpu.MirroringHorizontal, e.Case.Mirroring, e.Case.Name)
	}
}

func TestBuiltin_NROMImageIsEmbedded(t *testing.T) {
	e, ok := Standard().Lookup("nrom_test")
	require.True(t, ok)

	rom, err := e.Case.ROM()
	require.NoError(t, err)
	require.Len(t, rom, 16+16*1024+8*1024)
	assert.Equal(t, []byte("NES\x1a"), rom[:4])
	assert.Equal(t, []byte{0xA9, 0x43, 0x85, 0x42, 0xA9, 0x6A, 0x85, 0x43}, rom[16:24])
}

func TestBuiltin_EveryFixtureIsEmbedded(t *testing.T) {
	for _, e := range Standard().Entries() {
		t.Run(e.Case.Name, func(t *testing.T) {
			rom, err := e.Case.ROM()
			require.NoError(t, err)
			require.Len(t, rom, 16+16*1024+8*1024)
			assert.Equal(t, []byte("NES\x1a"), rom[:4])
			assert.Equal(t, byte(1), rom[4], "one 16K PRG bank")
			assert.Equal(t, byte(1), rom[5], "one 8K CHR bank")
			assert.Zero(t, rom[6]>>4|rom[7]&0xF0, "mapper 0")
		})
	}
}

// resetVector reads $FFFC from a one-bank NROM image, where PRG is mirrored
// into $C000-$FFFF.
func resetVector(rom []byte) uint16 {
	const prg = 16
	return uint16(rom[prg+0x3FFC]) | uint16(rom[prg+0x3FFD])<<8
}

func TestBuiltin_EntryPoints(t *testing.T) {
	c := Standard()

	for _, name := range []string{"all_instrs", "official_instrs", "nrom_test"} {
		e, _ := c.Lookup(name)
		rom, err := e.Case.ROM()
		require.NoError(t, err)
		assert.Equal(t, uint16(0xC000), resetVector(rom), name)
	}

	// nestest only reports through $02/$03 when started at its automation
	// entry; its reset vector leads elsewhere.
	e, _ := c.Lookup("nestest")
	rom, err := e.Case.ROM()
	require.NoError(t, err)
	assert.NotEqual(t, e.Case.Entry, resetVector(rom))
	assert.Equal(t, byte(0x78), rom[16], "SEI at the automation entry")
}

func TestBuiltin_NROMRule(t *testing.T) {
	e, _ := Standard().Lookup("nrom_test")

	ok := testutil.Memory{0x42: 0x43, 0x43: 0x6A}
	assert.True(t, e.Case.Rule.Decode(ok).OK())

	bad := testutil.Memory{0x42: 0x43, 0x43: 0x00}
	out := e.Case.Rule.Decode(bad)
	assert.Equal(t, status.Fail, out.Verdict)
	assert.Contains(t, out.Message, "0x43")
}

func TestBuiltin_FixtureOverride(t *testing.T) {
	fsys := fstest.MapFS{NESTestROM: {Data: []byte("custom")}}
	c := Builtin(fsys)

	e, _ := c.Lookup("nestest")
	rom, err := e.Case.ROM()
	require.NoError(t, err)
	assert.Equal(t, []byte("custom"), rom)

	e, _ = c.Lookup("all_instrs")
	_, err = e.Case.ROM()
	assert.Error(t, err)
}
