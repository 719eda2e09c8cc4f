package canon

import (
	"context"
	"errors"
	"testing"

	"github.com/woxQAQ/lensbridge/pkg/protocol"
)

const pageSize = 65536

// testMemory is a growable linear memory. Growing always moves the buffer.
type testMemory struct {
	buf []byte
}

func newTestMemory(size int) *testMemory {
	return &testMemory{buf: make([]byte, size)}
}

func (m *testMemory) Buffer() []byte {
	return m.buf
}

func (m *testMemory) grow(delta int) {
	next := make([]byte, len(m.buf)+delta)
	copy(next, m.buf)
	m.buf = next
}

// bumpAllocator hands out increasing addresses and records every call.
type bumpAllocator struct {
	mem   *testMemory
	next  uint32
	calls [][4]uint32

	// growBy, when set, grows memory on every call before returning.
	growBy int
	err    error
	ptr    *uint32
}

func (a *bumpAllocator) Realloc(_ context.Context, oldPtr, oldAlign, newAlign, newSize uint32) (uint32, error) {
	a.calls = append(a.calls, [4]uint32{oldPtr, oldAlign, newAlign, newSize})
	if a.err != nil {
		return 0, a.err
	}
	if a.ptr != nil {
		return *a.ptr, nil
	}
	if a.growBy > 0 {
		a.mem.grow(a.growBy)
	}
	ptr := a.next
	a.next += newSize
	return ptr, nil
}

var errTrap = errors.New("wasm error: unreachable")

// fixture lays out encoded lenses in a test memory.
type fixture struct {
	t    *testing.T
	view *View
	heap uint32
}

func newFixture(t *testing.T, mem *testMemory, heap uint32) *fixture {
	return &fixture{t: t, view: NewView(mem.Buffer()), heap: heap}
}

func (f *fixture) putString(s string) StringRef {
	f.t.Helper()
	ref := StringRef{Ptr: f.heap, Len: uint32(len(s))}
	if err := f.view.Write(f.heap, []byte(s)); err != nil {
		f.t.Fatalf("write string %q: %v", s, err)
	}
	f.heap += uint32(len(s))
	return ref
}

func (f *fixture) putU32(addr, v uint32) {
	f.t.Helper()
	if err := f.view.PutUint32(addr, v); err != nil {
		f.t.Fatalf("write u32 at %d: %v", addr, err)
	}
}

func (f *fixture) putRecord(addr uint32, lens protocol.CodeLens) {
	f.t.Helper()
	title := f.putString(lens.Command.Title)
	command := f.putString(lens.Command.Command)
	f.putRecordRefs(addr, lens.Range, title, command)
}

func (f *fixture) putRecordRefs(addr uint32, r protocol.Range, title, command StringRef) {
	f.t.Helper()
	f.putU32(addr+0, r.Start.Line)
	f.putU32(addr+4, r.Start.Character)
	f.putU32(addr+8, r.End.Line)
	f.putU32(addr+12, r.End.Character)
	f.putU32(addr+16, title.Ptr)
	f.putU32(addr+20, title.Len)
	f.putU32(addr+24, command.Ptr)
	f.putU32(addr+28, command.Len)
}

func (f *fixture) putHeader(addr, base, count uint32) {
	f.t.Helper()
	f.putU32(addr, base)
	f.putU32(addr+4, count)
}

func lensAt(startLine, startChar, endLine, endChar uint32, title, command string) protocol.CodeLens {
	return protocol.CodeLens{
		Range: protocol.Range{
			Start: protocol.Position{Line: startLine, Character: startChar},
			End:   protocol.Position{Line: endLine, Character: endChar},
		},
		Command: protocol.Command{Title: title, Command: command},
	}
}
