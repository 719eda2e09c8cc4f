//go:build wasip1

package wasm

import (
	"unsafe"

	"github.com/woxQAQ/lensbridge/internal/canon"
	"github.com/woxQAQ/lensbridge/pkg/protocol"
)

// pinned keeps buffers handed to the host reachable until Release.
var pinned [][]byte

// alloc returns a pinned, align-aligned block of size bytes.
func alloc(size, align uint32) uint32 {
	if align == 0 {
		align = 1
	}
	buf := make([]byte, size+align)
	pinned = append(pinned, buf)
	addr := uint32(uintptr(unsafe.Pointer(&buf[0])))
	return (addr + align - 1) &^ (align - 1)
}

//go:wasmexport cabi_realloc
func cabiRealloc(oldPtr, oldSize, align, newSize uint32) uint32 {
	ptr := alloc(newSize, align)
	if oldPtr != 0 && oldSize > 0 {
		copy(bytesAt(ptr, min(oldSize, newSize)), bytesAt(oldPtr, oldSize))
	}
	return ptr
}

func bytesAt(ptr, length uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(ptr))), length)
}

// Text returns a copy of the string the host passed as (ptr, length).
func Text(ptr, length uint32) string {
	if length == 0 {
		return ""
	}
	return string(bytesAt(ptr, length))
}

// Return encodes lenses into pinned memory and returns the pointer a lens
// export hands back to the host. It panics (trapping the call) if a title
// or command is not valid UTF-8.
func Return(lenses []protocol.CodeLens) uint32 {
	size := uint32(canon.EncodedLensesSize(lenses))
	base := alloc(size, 4)
	image, err := canon.EncodeLenses(base, lenses)
	if err != nil {
		panic(err)
	}
	copy(bytesAt(base, size), image)
	return base
}

// Release drops every buffer handed to the host so far. Call it at the
// start of a lens export, once the host has consumed the previous result.
func Release() {
	clear(pinned)
	pinned = pinned[:0]
}
