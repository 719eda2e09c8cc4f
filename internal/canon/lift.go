package canon

import (
	"fmt"

	"github.com/woxQAQ/lensbridge/pkg/protocol"
)

// LensStride is the size of one encoded lens record.
const LensStride = 32

// ListHeader is the (base, count) pair describing a list in linear memory.
type ListHeader struct {
	Base  uint32
	Count uint32
}

// ReadListHeader reads the list header stored at ptr.
func ReadListHeader(view *View, ptr uint32) (ListHeader, error) {
	if err := view.Check(ptr, 8); err != nil {
		return ListHeader{}, fmt.Errorf("list header: %w", err)
	}
	base, err := view.Uint32(ptr)
	if err != nil {
		return ListHeader{}, fmt.Errorf("list header base: %w", err)
	}
	count, err := view.Uint32(ptr + 4)
	if err != nil {
		return ListHeader{}, fmt.Errorf("list header count: %w", err)
	}
	return ListHeader{Base: base, Count: count}, nil
}

// LiftList decodes the list whose header is stored at ptr. decode is called
// once per element with the element's address, in order.
func LiftList[T any](view *View, ptr, stride uint32, decode func(view *View, addr uint32) (T, error)) ([]T, error) {
	header, err := ReadListHeader(view, ptr)
	if err != nil {
		return nil, err
	}
	if header.Count == 0 {
		return []T{}, nil
	}

	// Validate the whole element range before allocating for it.
	total := uint64(header.Count) * uint64(stride)
	if uint64(header.Base)+total > view.Size() {
		length := ^uint32(0)
		if total < uint64(length) {
			length = uint32(total)
		}
		return nil, &OutOfBoundsError{Offset: header.Base, Length: length, Size: view.Size()}
	}

	items := make([]T, 0, header.Count)
	for i := uint32(0); i < header.Count; i++ {
		item, err := decode(view, header.Base+i*stride)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, item)
	}
	return items, nil
}

// LiftLenses decodes the list<lens> returned by a lens export. Strings are
// copied, so the result stays valid after the guest reuses its memory.
func LiftLenses(resultPtr uint32, view *View) ([]protocol.CodeLens, error) {
	return LiftList(view, resultPtr, lensLayout.stride, decodeLens)
}

func decodeLens(view *View, addr uint32) (protocol.CodeLens, error) {
	var lens protocol.CodeLens

	fields := []struct {
		name string
		off  uint32
		dst  *uint32
	}{
		{"range.start.line", lensLayout.startLine, &lens.Range.Start.Line},
		{"range.start.character", lensLayout.startCharacter, &lens.Range.Start.Character},
		{"range.end.line", lensLayout.endLine, &lens.Range.End.Line},
		{"range.end.character", lensLayout.endCharacter, &lens.Range.End.Character},
	}
	for _, f := range fields {
		v, err := view.Uint32(addr + f.off)
		if err != nil {
			return protocol.CodeLens{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}

	title, err := liftString(view, addr+lensLayout.title)
	if err != nil {
		return protocol.CodeLens{}, fmt.Errorf("command.title: %w", err)
	}
	command, err := liftString(view, addr+lensLayout.command)
	if err != nil {
		return protocol.CodeLens{}, fmt.Errorf("command.command: %w", err)
	}
	lens.Command = protocol.Command{Title: title, Command: command}

	return lens, nil
}

// liftString reads the string whose (ptr, len) pair is stored at addr.
func liftString(view *View, addr uint32) (string, error) {
	ref, err := view.StringRef(addr)
	if err != nil {
		return "", err
	}
	return view.String(ref)
}
