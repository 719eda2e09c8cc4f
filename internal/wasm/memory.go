package wasm

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/lensbridge/internal/canon"
)

// Memory exposes a guest's linear memory to the canonical ABI codec.
//
// wazero hands out slices that alias the guest's memory. Those slices are
// replaced when the guest grows its memory, so Buffer must be called again
// after every guest call rather than holding on to a previous result.
type Memory struct {
	mem api.Memory
}

// NewMemory creates a memory helper.
func NewMemory(module api.Module) *Memory {
	return &Memory{mem: module.Memory()}
}

// hasMemory reports whether module exports a linear memory. A module without
// one still returns a non-nil api.Memory from Memory(), wrapping a nil
// instance, so that result cannot be compared against nil.
func hasMemory(module api.Module) bool {
	return len(module.ExportedMemoryDefinitions()) > 0
}

// Buffer returns the guest's current memory bytes.
func (m *Memory) Buffer() []byte {
	buf, ok := m.mem.Read(0, m.mem.Size())
	if !ok {
		return nil
	}
	return buf
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.mem.Size()
}

// ReadBytes copies raw bytes out of Wasm memory.
func (m *Memory) ReadBytes(ptr uint32, length uint32) ([]byte, error) {
	buf, ok := m.mem.Read(ptr, length)
	if !ok {
		return nil, &MemoryAccessError{
			Operation: "read",
			Address:   ptr,
			Length:    length,
			Err:       canon.ErrOutOfBounds,
		}
	}
	out := make([]byte, len(buf))
	copy(out, buf)
	return out, nil
}

var _ canon.LinearMemory = (*Memory)(nil)

// guestAllocator calls a guest's realloc export.
type guestAllocator struct {
	module string
	name   string
	fn     api.Function
}

// Realloc implements canon.Allocator.
func (a *guestAllocator) Realloc(ctx context.Context, oldPtr, oldAlign, newAlign, newSize uint32) (uint32, error) {
	if a.fn == nil {
		return 0, &FunctionNotFoundError{ModuleName: a.module, FunctionName: a.name}
	}
	results, err := a.fn.Call(ctx,
		api.EncodeU32(oldPtr),
		api.EncodeU32(oldAlign),
		api.EncodeU32(newAlign),
		api.EncodeU32(newSize),
	)
	if err != nil {
		return 0, err
	}
	if len(results) != 1 {
		return 0, &SignatureError{FunctionName: a.name, Params: 4, Results: len(results), Want: "(i32, i32, i32, i32) -> i32"}
	}
	return api.DecodeU32(results[0]), nil
}
