package canon

import (
	"encoding/binary"
	"unicode/utf8"
)

// LinearMemory is a guest's linear memory as seen by the host.
//
// Buffer returns the current backing bytes. The returned slice aliases guest
// memory and is only valid until the guest next grows its memory.
type LinearMemory interface {
	Buffer() []byte
}

// StringRef is a (pointer, length) pair addressing UTF-8 bytes in linear memory.
type StringRef struct {
	Ptr uint32
	Len uint32
}

// End returns the first offset after the referenced bytes.
func (r StringRef) End() uint64 {
	return uint64(r.Ptr) + uint64(r.Len)
}

// View is a bounds-checked, little-endian accessor over one linear memory buffer.
type View struct {
	buf []byte
}

// NewView creates a view over buf.
func NewView(buf []byte) *View {
	return &View{buf: buf}
}

// Size returns the number of addressable bytes.
func (v *View) Size() uint64 {
	return uint64(len(v.buf))
}

// Check verifies that [offset, offset+length) lies inside the buffer.
func (v *View) Check(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(v.buf)) {
		return &OutOfBoundsError{Offset: offset, Length: length, Size: uint64(len(v.buf))}
	}
	return nil
}

// Uint32 reads a little-endian u32 at offset.
func (v *View) Uint32(offset uint32) (uint32, error) {
	if err := v.Check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(v.buf[offset:]), nil
}

// PutUint32 writes a little-endian u32 at offset.
func (v *View) PutUint32(offset, value uint32) error {
	if err := v.Check(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(v.buf[offset:], value)
	return nil
}

// Bytes returns the bytes in [offset, offset+length). The slice aliases guest memory.
func (v *View) Bytes(offset, length uint32) ([]byte, error) {
	if err := v.Check(offset, length); err != nil {
		return nil, err
	}
	end := int(offset) + int(length)
	return v.buf[offset:end:end], nil
}

// Write copies data into the buffer at offset.
func (v *View) Write(offset uint32, data []byte) error {
	if err := v.Check(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(v.buf[offset:], data)
	return nil
}

// StringRef reads a (pointer, length) pair at offset.
func (v *View) StringRef(offset uint32) (StringRef, error) {
	ptr, err := v.Uint32(offset)
	if err != nil {
		return StringRef{}, err
	}
	n, err := v.Uint32(offset + 4)
	if err != nil {
		return StringRef{}, err
	}
	return StringRef{Ptr: ptr, Len: n}, nil
}

// String copies the referenced bytes out of guest memory.
// Empty strings are bounds checked too, so the pointer must lie within memory.
func (v *View) String(ref StringRef) (string, error) {
	b, err := v.Bytes(ref.Ptr, ref.Len)
	if err != nil {
		return "", err
	}
	if len(b) == 0 {
		return "", nil
	}
	if !utf8.Valid(b) {
		return "", &InvalidUTF8Error{Ref: ref}
	}
	return string(b), nil
}

// sameBuffer reports whether a and b share backing storage and length.
func (v *View) sameBuffer(buf []byte) bool {
	if len(v.buf) != len(buf) {
		return false
	}
	return len(buf) == 0 || &v.buf[0] == &buf[0]
}

// ViewCache holds the most recently built View. It is not safe for
// concurrent use; each guest instance gets its own cache.
type ViewCache struct {
	view *View
}

// Acquire returns a View over buf, reusing the cached one when buf is the
// same buffer it was built from.
func (c *ViewCache) Acquire(buf []byte) *View {
	if c.view != nil && c.view.sameBuffer(buf) {
		return c.view
	}
	c.view = NewView(buf)
	return c.view
}

// AcquireFrom returns a View over the current buffer of mem.
func (c *ViewCache) AcquireFrom(mem LinearMemory) *View {
	return c.Acquire(mem.Buffer())
}

// Reset drops the cached view.
func (c *ViewCache) Reset() {
	c.view = nil
}
