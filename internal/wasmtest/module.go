// Package wasmtest assembles small WebAssembly binaries for tests.
//
// Only the pieces lens guests need are supported: i32-only function types,
// function imports, one memory, one mutable i32 global, active data
// segments and function exports.
package wasmtest

// FuncType is a function signature whose params and results are all i32.
type FuncType struct {
	Params  int
	Results int
}

// Import is an imported host function.
type Import struct {
	Module string
	Name   string
	Type   FuncType
}

// Func is a function defined by the module. Body holds the instructions
// without the trailing end opcode.
type Func struct {
	Export string
	Type   FuncType
	Locals int
	Body   []byte
}

// Data is an active data segment for memory 0.
type Data struct {
	Offset uint32
	Bytes  []byte
}

// Module describes a module to encode. Unless NoMemory is set the memory is
// exported as "memory". Global 0 is a mutable i32 initialised to Global.
type Module struct {
	Imports     []Import
	MemoryPages uint32
	NoMemory    bool
	Global      int32
	Funcs       []Func
	Data        []Data
}

const (
	sectionType     = 1
	sectionImport   = 2
	sectionFunction = 3
	sectionMemory   = 5
	sectionGlobal   = 6
	sectionExport   = 7
	sectionCode     = 10
	sectionData     = 11

	valI32 = 0x7f
)

// Encode returns the binary encoding of m.
func (m *Module) Encode() []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	// Types, deduplicated in first-use order.
	var types []FuncType
	typeIndex := func(ft FuncType) uint32 {
		for i, t := range types {
			if t == ft {
				return uint32(i)
			}
		}
		types = append(types, ft)
		return uint32(len(types) - 1)
	}
	importTypes := make([]uint32, len(m.Imports))
	for i, imp := range m.Imports {
		importTypes[i] = typeIndex(imp.Type)
	}
	funcTypes := make([]uint32, len(m.Funcs))
	for i, fn := range m.Funcs {
		funcTypes[i] = typeIndex(fn.Type)
	}

	var sec []byte
	sec = uleb(nil, uint32(len(types)))
	for _, t := range types {
		sec = append(sec, 0x60)
		sec = uleb(sec, uint32(t.Params))
		for i := 0; i < t.Params; i++ {
			sec = append(sec, valI32)
		}
		sec = uleb(sec, uint32(t.Results))
		for i := 0; i < t.Results; i++ {
			sec = append(sec, valI32)
		}
	}
	out = section(out, sectionType, sec)

	if len(m.Imports) > 0 {
		sec = uleb(nil, uint32(len(m.Imports)))
		for i, imp := range m.Imports {
			sec = name(sec, imp.Module)
			sec = name(sec, imp.Name)
			sec = append(sec, 0x00) // func
			sec = uleb(sec, importTypes[i])
		}
		out = section(out, sectionImport, sec)
	}

	sec = uleb(nil, uint32(len(m.Funcs)))
	for _, idx := range funcTypes {
		sec = uleb(sec, idx)
	}
	out = section(out, sectionFunction, sec)

	if !m.NoMemory {
		sec = []byte{0x01, 0x00} // one memory, no max
		sec = uleb(sec, m.MemoryPages)
		out = section(out, sectionMemory, sec)
	}

	sec = []byte{0x01, valI32, 0x01}
	sec = append(sec, I32Const(m.Global)...)
	sec = append(sec, opEnd)
	out = section(out, sectionGlobal, sec)

	exports := 0
	if !m.NoMemory {
		exports++
	}
	for _, fn := range m.Funcs {
		if fn.Export != "" {
			exports++
		}
	}
	sec = uleb(nil, uint32(exports))
	if !m.NoMemory {
		sec = name(sec, "memory")
		sec = append(sec, 0x02, 0x00)
	}
	for i, fn := range m.Funcs {
		if fn.Export == "" {
			continue
		}
		sec = name(sec, fn.Export)
		sec = append(sec, 0x00)
		sec = uleb(sec, uint32(len(m.Imports)+i))
	}
	out = section(out, sectionExport, sec)

	sec = uleb(nil, uint32(len(m.Funcs)))
	for _, fn := range m.Funcs {
		var body []byte
		if fn.Locals > 0 {
			body = append(body, 0x01)
			body = uleb(body, uint32(fn.Locals))
			body = append(body, valI32)
		} else {
			body = append(body, 0x00)
		}
		body = append(body, fn.Body...)
		body = append(body, opEnd)

		sec = uleb(sec, uint32(len(body)))
		sec = append(sec, body...)
	}
	out = section(out, sectionCode, sec)

	if len(m.Data) > 0 {
		sec = uleb(nil, uint32(len(m.Data)))
		for _, d := range m.Data {
			sec = append(sec, 0x00)
			sec = append(sec, I32Const(int32(d.Offset))...)
			sec = append(sec, opEnd)
			sec = uleb(sec, uint32(len(d.Bytes)))
			sec = append(sec, d.Bytes...)
		}
		out = section(out, sectionData, sec)
	}

	return out
}

func section(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = uleb(out, uint32(len(content)))
	return append(out, content...)
}

func name(out []byte, s string) []byte {
	out = uleb(out, uint32(len(s)))
	return append(out, s...)
}

func uleb(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(out []byte, v int64) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

const opEnd = 0x0b

// Instruction encoders.

func I32Const(v int32) []byte     { return sleb([]byte{0x41}, int64(v)) }
func LocalGet(idx uint32) []byte  { return uleb([]byte{0x20}, idx) }
func GlobalGet(idx uint32) []byte { return uleb([]byte{0x23}, idx) }
func GlobalSet(idx uint32) []byte { return uleb([]byte{0x24}, idx) }
func Call(idx uint32) []byte      { return uleb([]byte{0x10}, idx) }
func I32Add() []byte              { return []byte{0x6a} }
func Drop() []byte                { return []byte{0x1a} }
func Unreachable() []byte         { return []byte{0x00} }
func MemoryGrow() []byte          { return []byte{0x40, 0x00} }

// I32Store stores the i32 on top of the stack at (address operand + offset).
func I32Store(offset uint32) []byte { return uleb([]byte{0x36, 0x02}, offset) }

// Store32 stores a constant address/value pair.
func Store32(addr uint32, value []byte) []byte {
	out := I32Const(int32(addr))
	out = append(out, value...)
	return append(out, I32Store(0)...)
}

// Concat joins instruction sequences.
func Concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
