package wasmtest

import "encoding/binary"

// Exports of the lens guest.
const (
	ExportLenses      = "leno:lsp/lenses#getlenses"
	ExportLensesFor   = "leno:lsp/lenses#getlenses-for"
	ExportEcho        = "echo"
	ExportEmpty       = "empty"
	ExportOutOfBounds = "out-of-bounds"
	ExportInvalidUTF8 = "invalid-utf8"
	ExportGrow        = "grow"
	ExportHello       = "hello"
	ExportRealloc     = "cabi_realloc"
)

// Fixed addresses inside the lens guest's memory.
const (
	HeapBase   = 4096
	LensHeader = 64
	EchoHeader = 512
	EchoRecord = 544

	titleAddr         = 200
	commandAddr       = 208
	lensRecord        = 100
	emptyHeader       = 72
	outOfBoundsHeader = 80
	invalidUTF8Header = 88
	invalidUTF8Record = 300
	invalidUTF8Bytes  = 400
	outOfBoundsBase   = 0xFFF0
	emptyBase         = 0xFFFFFFF0
)

// GuestOptions tweaks the lens guest.
type GuestOptions struct {
	// TrapAllocator makes cabi_realloc trap.
	TrapAllocator bool

	// GrowingAllocator makes cabi_realloc grow memory by one page on every call.
	GrowingAllocator bool

	// NoAllocator omits the cabi_realloc export.
	NoAllocator bool
}

// LensGuest returns a guest that behaves like a lens add-on:
//
//   - ExportLenses returns one lens (0:0-0:5, "Run", "demo.run");
//   - ExportLensesFor takes (ptr, len) and returns the same list;
//   - ExportEcho takes (ptr, len) and returns one lens whose command is the
//     input text and whose end character is its byte length;
//   - ExportEmpty returns an empty list with a garbage base;
//   - ExportOutOfBounds returns a list running past the end of memory;
//   - ExportInvalidUTF8 returns a lens whose command is not UTF-8;
//   - ExportGrow grows memory by one page;
//   - ExportHello calls host.log_message(1, "Run").
//
// cabi_realloc is a bump allocator starting at HeapBase.
func LensGuest(opts GuestOptions) []byte {
	const logMessage = 0 // imported function index

	realloc := Concat(
		GlobalGet(0),
		GlobalGet(0), LocalGet(3), I32Add(), GlobalSet(0),
	)
	if opts.GrowingAllocator {
		realloc = Concat(I32Const(1), MemoryGrow(), Drop(), realloc)
	}
	if opts.TrapAllocator {
		realloc = Unreachable()
	}

	echo := Concat(
		Store32(EchoHeader, I32Const(EchoRecord)),
		Store32(EchoHeader+4, I32Const(1)),
		Store32(EchoRecord+12, LocalGet(1)),
		Store32(EchoRecord+16, I32Const(titleAddr)),
		Store32(EchoRecord+20, I32Const(3)),
		Store32(EchoRecord+24, LocalGet(0)),
		Store32(EchoRecord+28, LocalGet(1)),
		I32Const(EchoHeader),
	)

	funcs := []Func{
		{Export: ExportLenses, Type: FuncType{0, 1}, Body: I32Const(LensHeader)},
		{Export: ExportLensesFor, Type: FuncType{2, 1}, Body: I32Const(LensHeader)},
		{Export: ExportEcho, Type: FuncType{2, 1}, Body: echo},
		{Export: ExportEmpty, Type: FuncType{0, 1}, Body: I32Const(emptyHeader)},
		{Export: ExportOutOfBounds, Type: FuncType{0, 1}, Body: I32Const(outOfBoundsHeader)},
		{Export: ExportInvalidUTF8, Type: FuncType{0, 1}, Body: I32Const(invalidUTF8Header)},
		{Export: ExportGrow, Type: FuncType{0, 1}, Body: Concat(I32Const(1), MemoryGrow())},
		{Export: ExportHello, Type: FuncType{0, 0}, Body: Concat(
			I32Const(1), I32Const(titleAddr), I32Const(3), Call(logMessage),
		)},
	}
	if !opts.NoAllocator {
		funcs = append(funcs, Func{Export: ExportRealloc, Type: FuncType{4, 1}, Body: realloc})
	}

	m := &Module{
		Imports: []Import{
			{Module: "host", Name: "log_message", Type: FuncType{3, 0}},
		},
		MemoryPages: 1,
		Global:      HeapBase,
		Funcs:       funcs,
		Data: []Data{
			{Offset: LensHeader, Bytes: words(lensRecord, 1)},
			{Offset: emptyHeader, Bytes: words(emptyBase, 0)},
			{Offset: outOfBoundsHeader, Bytes: words(outOfBoundsBase, 2)},
			{Offset: invalidUTF8Header, Bytes: words(invalidUTF8Record, 1)},
			{Offset: lensRecord, Bytes: words(0, 0, 0, 5, titleAddr, 3, commandAddr, 8)},
			{Offset: titleAddr, Bytes: []byte("Run")},
			{Offset: commandAddr, Bytes: []byte("demo.run")},
			{Offset: invalidUTF8Record, Bytes: words(0, 0, 0, 1, titleAddr, 3, invalidUTF8Bytes, 2)},
			{Offset: invalidUTF8Bytes, Bytes: []byte{0xc3, 0x28}},
		},
	}
	return m.Encode()
}

// MemorylessGuest returns a guest that exports ExportLenses and
// cabi_realloc but defines no linear memory.
func MemorylessGuest() []byte {
	m := &Module{
		NoMemory: true,
		Global:   HeapBase,
		Funcs: []Func{
			{Export: ExportLenses, Type: FuncType{0, 1}, Body: I32Const(LensHeader)},
			{Export: ExportRealloc, Type: FuncType{4, 1}, Body: GlobalGet(0)},
		},
	}
	return m.Encode()
}

func words(vs ...uint32) []byte {
	out := make([]byte, 4*len(vs))
	for i, v := range vs {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}
