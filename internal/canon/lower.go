package canon

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// EmptyStringPtr is the pointer used for empty strings. It is non-null and
// never dereferenced, so no allocation is needed.
const EmptyStringPtr = 1

// Allocator is a guest's realloc-shaped allocation export:
// (oldPtr, oldAlign, newAlign, newSize) -> ptr.
type Allocator interface {
	Realloc(ctx context.Context, oldPtr, oldAlign, newAlign, newSize uint32) (uint32, error)
}

// ReallocFunc adapts a function to the Allocator interface.
type ReallocFunc func(ctx context.Context, oldPtr, oldAlign, newAlign, newSize uint32) (uint32, error)

// Realloc calls f.
func (f ReallocFunc) Realloc(ctx context.Context, oldPtr, oldAlign, newAlign, newSize uint32) (uint32, error) {
	return f(ctx, oldPtr, oldAlign, newAlign, newSize)
}

// Lower lowers value, which must be a string, into guest memory.
func Lower(ctx context.Context, value any, alloc Allocator, mem LinearMemory, cache *ViewCache) (StringRef, error) {
	s, ok := value.(string)
	if !ok {
		return StringRef{}, &InvalidArgumentTypeError{Got: fmt.Sprintf("%T", value), Want: "string"}
	}
	return LowerString(ctx, s, alloc, mem, cache)
}

// LowerString copies s into freshly allocated guest memory and returns its
// location. The range belongs to the call it is passed to.
func LowerString(ctx context.Context, s string, alloc Allocator, mem LinearMemory, cache *ViewCache) (StringRef, error) {
	if len(s) == 0 {
		return StringRef{Ptr: EmptyStringPtr, Len: 0}, nil
	}
	if !utf8.ValidString(s) {
		return StringRef{}, &InvalidUTF8Error{Ref: StringRef{Len: uint32(len(s))}}
	}
	if uint64(len(s)) > uint64(^uint32(0)) {
		return StringRef{}, &OutOfBoundsError{Length: ^uint32(0), Size: cache.AcquireFrom(mem).Size()}
	}

	size := uint32(len(s))
	ptr, err := alloc.Realloc(ctx, 0, 0, 1, size)
	if err != nil {
		return StringRef{}, &AllocationError{Size: size, Align: 1, Err: err}
	}
	if ptr == 0 {
		return StringRef{}, &AllocationError{Size: size, Align: 1}
	}

	// The allocator may have grown memory; never reuse a view taken before it ran.
	view := cache.AcquireFrom(mem)
	if err := view.Write(ptr, []byte(s)); err != nil {
		return StringRef{}, err
	}

	return StringRef{Ptr: ptr, Len: size}, nil
}
