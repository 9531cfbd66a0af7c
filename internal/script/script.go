// Package script evaluates verdict rules written in Starlark.
//
// A script defines a function verdict(mem). mem exposes:
//
//	mem.read(addr)          one byte
//	mem.word(lo, hi)        16-bit value from a low and a high byte address
//	mem.text(addr, limit)   NUL-terminated ASCII string, limit defaults to 256
//
// verdict returns None or True for a pass, a string describing the failure,
// or False for a failure without detail. For example:
//
//	def verdict(mem):
//	    if mem.read(0x42) != 0x43:
//	        return "memory location 0x42 is wrong"
package script

import (
	"fmt"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/roach88/romtest/internal/cpu"
	"github.com/roach88/romtest/internal/status"
)

// maxSteps bounds a single verdict evaluation.
const maxSteps = 1_000_000

// Rule is a compiled Starlark verdict. It is safe for concurrent use: the
// module globals are frozen after compilation.
type Rule struct {
	name string
	fn   starlark.Callable
}

// Compile executes src once and looks up its verdict function.
func Compile(name, src string) (*Rule, error) {
	thread := &starlark.Thread{Name: name}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, name, src, nil)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", name, err)
	}
	globals.Freeze()

	v, ok := globals["verdict"]
	if !ok {
		return nil, fmt.Errorf("compile %s: no verdict function defined", name)
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("compile %s: verdict is a %s, not a function", name, v.Type())
	}
	return &Rule{name: name, fn: fn}, nil
}

// Decode implements status.Rule.
func (r *Rule) Decode(mem cpu.Memory) status.Outcome {
	thread := &starlark.Thread{Name: r.name}
	thread.SetMaxExecutionSteps(maxSteps)

	v, err := starlark.Call(thread, r.fn, starlark.Tuple{&memory{mem: mem}}, nil)
	if err != nil {
		return status.Errored(status.CodeScriptFailed, fmt.Sprintf("%s: %v", r.name, err))
	}

	switch v := v.(type) {
	case starlark.NoneType:
		return status.Passed()
	case starlark.Bool:
		if v {
			return status.Passed()
		}
		return status.Failed(fmt.Sprintf("%s: verdict returned False", r.name))
	case starlark.String:
		return status.Failed(string(v))
	default:
		return status.Errored(status.CodeScriptFailed,
			fmt.Sprintf("%s: verdict returned %s, want None, bool or string", r.name, v.Type()))
	}
}

// memory is the mem argument handed to verdict.
type memory struct {
	mem cpu.Memory
}

var (
	_ starlark.Value    = (*memory)(nil)
	_ starlark.HasAttrs = (*memory)(nil)
)

func (m *memory) String() string        { return "<memory>" }
func (m *memory) Type() string          { return "memory" }
func (m *memory) Freeze()               {}
func (m *memory) Truth() starlark.Bool  { return starlark.True }
func (m *memory) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: memory") }

func (m *memory) AttrNames() []string {
	return []string{"read", "text", "word"}
}

func (m *memory) Attr(name string) (starlark.Value, error) {
	switch name {
	case "read":
		return starlark.NewBuiltin("read", m.read), nil
	case "word":
		return starlark.NewBuiltin("word", m.word), nil
	case "text":
		return starlark.NewBuiltin("text", m.text), nil
	}
	return nil, nil
}

func (m *memory) read(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr); err != nil {
		return nil, err
	}
	a, err := address(b.Name(), addr)
	if err != nil {
		return nil, err
	}
	return starlark.MakeInt(int(m.mem.ReadMemory(a))), nil
}

func (m *memory) word(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var lo, hi int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 2, &lo, &hi); err != nil {
		return nil, err
	}
	loAddr, err := address(b.Name(), lo)
	if err != nil {
		return nil, err
	}
	hiAddr, err := address(b.Name(), hi)
	if err != nil {
		return nil, err
	}
	w := int(m.mem.ReadMemory(loAddr)) | int(m.mem.ReadMemory(hiAddr))<<8
	return starlark.MakeInt(w), nil
}

func (m *memory) text(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var addr int
	limit := 256
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &addr, &limit); err != nil {
		return nil, err
	}
	a, err := address(b.Name(), addr)
	if err != nil {
		return nil, err
	}

	var sb strings.Builder
	for i := 0; i < limit && int(a)+i <= 0xFFFF; i++ {
		c := m.mem.ReadMemory(a + uint16(i))
		if c == 0 {
			break
		}
		if c >= 0x80 {
			sb.WriteRune('�')
			continue
		}
		sb.WriteByte(c)
	}
	return starlark.String(sb.String()), nil
}

func address(fn string, v int) (uint16, error) {
	if v < 0 || v > 0xFFFF {
		return 0, fmt.Errorf("%s: address %d out of range", fn, v)
	}
	return uint16(v), nil
}
