package canon

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/woxQAQ/lensbridge/pkg/protocol"
)

// EncodedLensesSize returns the number of bytes EncodeLenses produces.
func EncodedLensesSize(lenses []protocol.CodeLens) int {
	size := 8 + len(lenses)*int(lensLayout.stride)
	for _, l := range lenses {
		size += len(l.Command.Title) + len(l.Command.Command)
	}
	return size
}

// EncodeLenses lays lenses out the way a guest returns them, as an image
// meant to be copied to address base: the list header at base, the records
// right after it and the string bytes after the records. LiftLenses(base, v)
// over a memory holding the image yields lenses again.
func EncodeLenses(base uint32, lenses []protocol.CodeLens) ([]byte, error) {
	size := EncodedLensesSize(lenses)
	if uint64(base)+uint64(size) > math.MaxUint32 {
		return nil, &OutOfBoundsError{Offset: base, Length: uint32(size), Size: math.MaxUint32}
	}

	buf := make([]byte, size)
	put := func(off, v uint32) {
		binary.LittleEndian.PutUint32(buf[off:], v)
	}

	records := uint32(8)
	next := records + uint32(len(lenses))*lensLayout.stride

	if len(lenses) > 0 {
		put(0, base+records)
	}
	put(4, uint32(len(lenses)))

	writeString := func(field uint32, s string) error {
		if !utf8.ValidString(s) {
			return &InvalidUTF8Error{Ref: StringRef{Ptr: base + next, Len: uint32(len(s))}}
		}
		ptr := base + next
		if len(s) == 0 {
			ptr = EmptyStringPtr
		}
		put(field, ptr)
		put(field+4, uint32(len(s)))
		next += uint32(copy(buf[next:], s))
		return nil
	}

	for i, l := range lenses {
		rec := records + uint32(i)*lensLayout.stride
		put(rec+lensLayout.startLine, l.Range.Start.Line)
		put(rec+lensLayout.startCharacter, l.Range.Start.Character)
		put(rec+lensLayout.endLine, l.Range.End.Line)
		put(rec+lensLayout.endCharacter, l.Range.End.Character)
		if err := writeString(rec+lensLayout.title, l.Command.Title); err != nil {
			return nil, fmt.Errorf("lens %d title: %w", i, err)
		}
		if err := writeString(rec+lensLayout.command, l.Command.Command); err != nil {
			return nil, fmt.Errorf("lens %d command: %w", i, err)
		}
	}

	return buf, nil
}
