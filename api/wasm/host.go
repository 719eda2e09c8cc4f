//go:build wasip1

package wasm

import "unsafe"

//go:wasmimport host log_message
func logMessage(level, ptr, length uint32)

// Log sends msg to the host's logger at level.
func Log(level uint32, msg string) {
	if len(msg) == 0 {
		return
	}
	logMessage(level, uint32(uintptr(unsafe.Pointer(unsafe.StringData(msg)))), uint32(len(msg)))
}
