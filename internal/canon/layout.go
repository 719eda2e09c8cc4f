package canon

import (
	"fmt"

	"go.bytecodealliance.org/wit"
)

// Layout is the canonical ABI memory layout of a type.
type Layout struct {
	Size  uint32
	Align uint32

	// Offsets maps dotted field paths (e.g. "range.start.line") to byte
	// offsets from the start of the value. Nested records contribute both
	// their own path and the paths of their fields.
	Offsets map[string]uint32
}

// Offset returns the offset of a field path.
func (l Layout) Offset(path string) (uint32, bool) {
	off, ok := l.Offsets[path]
	return off, ok
}

// ComputeLayout computes the canonical ABI layout of t.
// Only the shapes lens records are built from are supported: integers,
// floats, chars, strings, lists and records.
func ComputeLayout(t wit.Type) (Layout, error) {
	l := Layout{Offsets: make(map[string]uint32)}
	size, align, err := layoutOf(t, "", 0, l.Offsets)
	if err != nil {
		return Layout{}, err
	}
	l.Size, l.Align = size, align
	return l, nil
}

func layoutOf(t wit.Type, path string, base uint32, offsets map[string]uint32) (uint32, uint32, error) {
	switch typ := t.(type) {
	case wit.U8, wit.S8, wit.Bool:
		return 1, 1, nil
	case wit.U16, wit.S16:
		return 2, 2, nil
	case wit.U32, wit.S32, wit.F32, wit.Char:
		return 4, 4, nil
	case wit.U64, wit.S64, wit.F64:
		return 8, 8, nil
	case wit.String:
		return 8, 4, nil // ptr + len
	case *wit.TypeDef:
		switch kind := typ.Kind.(type) {
		case *wit.Record:
			return recordLayout(kind, path, base, offsets)
		case *wit.List:
			return 8, 4, nil // base + count
		case wit.Type:
			return layoutOf(kind, path, base, offsets)
		default:
			return 0, 0, fmt.Errorf("unsupported type definition %T at %q", kind, path)
		}
	default:
		return 0, 0, fmt.Errorf("unsupported type %T at %q", t, path)
	}
}

func recordLayout(r *wit.Record, path string, base uint32, offsets map[string]uint32) (uint32, uint32, error) {
	var offset uint32
	maxAlign := uint32(1)

	for _, field := range r.Fields {
		fieldPath := field.Name
		if path != "" {
			fieldPath = path + "." + field.Name
		}

		// Alignment is known before the nested offsets are, so compute it on
		// a scratch map first.
		_, align, err := layoutOf(field.Type, fieldPath, 0, map[string]uint32{})
		if err != nil {
			return 0, 0, err
		}
		offset = alignTo(offset, align)

		size, _, err := layoutOf(field.Type, fieldPath, base+offset, offsets)
		if err != nil {
			return 0, 0, err
		}
		offsets[fieldPath] = base + offset

		offset += size
		if align > maxAlign {
			maxAlign = align
		}
	}

	return alignTo(offset, maxAlign), maxAlign, nil
}

func alignTo(offset, align uint32) uint32 {
	return (offset + align - 1) &^ (align - 1)
}

// LensType returns the WIT definition of the lens record:
//
//	record position { line: u32, character: u32 }
//	record range { start: position, end: position }
//	record command { title: string, command: string }
//	record lens { range: range, command: command }
func LensType() *wit.TypeDef {
	position := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "line", Type: wit.U32{}},
		{Name: "character", Type: wit.U32{}},
	}}}
	rng := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "start", Type: position},
		{Name: "end", Type: position},
	}}}
	command := &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "title", Type: wit.String{}},
		{Name: "command", Type: wit.String{}},
	}}}
	return &wit.TypeDef{Kind: &wit.Record{Fields: []wit.Field{
		{Name: "range", Type: rng},
		{Name: "command", Type: command},
	}}}
}

// lensOffsets are the field offsets the decoder reads, relative to a record.
type lensOffsets struct {
	stride         uint32
	startLine      uint32
	startCharacter uint32
	endLine        uint32
	endCharacter   uint32
	title          uint32
	command        uint32
}

var lensLayout = mustLensOffsets()

func mustLensOffsets() lensOffsets {
	l, err := ComputeLayout(LensType())
	if err != nil {
		panic(fmt.Sprintf("canon: lens layout: %v", err))
	}
	get := func(path string) uint32 {
		off, ok := l.Offset(path)
		if !ok {
			panic(fmt.Sprintf("canon: lens layout has no field %q", path))
		}
		return off
	}
	return lensOffsets{
		stride:         l.Size,
		startLine:      get("range.start.line"),
		startCharacter: get("range.start.character"),
		endLine:        get("range.end.line"),
		endCharacter:   get("range.end.character"),
		title:          get("command.title"),
		command:        get("command.command"),
	}
}
