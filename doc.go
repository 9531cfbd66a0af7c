// Package romtest checks a NES 6502 processor implementation against
// well-known test ROMs.
//
// The processor is a black box. The harness needs three things from it: a
// Factory that builds a fresh processor from a ROM image, a way to force the
// program counter, and read access to memory. A separate Stepper advances
// the processor for a bounded number of cycles.
//
// Built-in tests:
//
//	all_instrs       bit 0x02  every instruction, status record at 0x6000
//	official_instrs  bit 0x04  official instructions, status record at 0x6000
//	nestest          bit 0x01  started at 0xC000, result code at 0x02/0x03
//	nrom_test        bit 0x08  small NROM program writing 0x42 and 0x43
//
// The images are embedded. Tests run one at a time in the order listed, each in its own goroutine
// so a panicking processor cannot take the caller down. The first test that
// does not pass ends the run:
//
//	err := romtest.RunTests(newCPU, stepper, romtest.All)
//
// A consumer can also ship a small binary with the full command line:
//
//	func main() {
//	    os.Exit(romtest.Main(newCPU, stepper))
//	}
package romtest
