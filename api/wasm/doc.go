// Package wasm is the guest side of the lens add-on contract.
//
// An add-on is a WASI preview1 reactor built with
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o lenses.wasm
//
// that imports this package and exports one or both lens functions:
//
//	//go:wasmexport leno:lsp/lenses#getlenses
//	func getLenses() uint32 {
//		return wasm.Return(lenses(""))
//	}
//
//	//go:wasmexport leno:lsp/lenses#getlenses-for
//	func getLensesFor(ptr, length uint32) uint32 {
//		return wasm.Return(lenses(wasm.Text(ptr, length)))
//	}
//
// Importing the package also exports the cabi_realloc allocator the host
// uses to pass the document text.
package wasm

// Export names the host looks for by default.
const (
	ExportLenses    = "leno:lsp/lenses#getlenses"
	ExportLensesFor = "leno:lsp/lenses#getlenses-for"
	ExportRealloc   = "cabi_realloc"
)

// Log levels understood by the host's log_message import.
const (
	LevelDebug uint32 = iota
	LevelInfo
	LevelWarn
	LevelError
)
