package canon

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgumentType is matched by errors for values that cannot be lowered.
	ErrInvalidArgumentType = errors.New("invalid argument type")

	// ErrOutOfBounds is matched by errors for accesses past the end of linear memory.
	ErrOutOfBounds = errors.New("out of bounds memory access")

	// ErrInvalidUTF8 is matched by errors for strings that are not valid UTF-8.
	ErrInvalidUTF8 = errors.New("invalid UTF-8")

	// ErrAllocationFailure is matched by errors raised when the guest allocator fails.
	ErrAllocationFailure = errors.New("guest allocation failed")
)

// InvalidArgumentTypeError occurs when a non-string value is passed where text is expected.
type InvalidArgumentTypeError struct {
	Got  string
	Want string
}

func (e *InvalidArgumentTypeError) Error() string {
	return fmt.Sprintf("invalid argument type: got %s, want %s", e.Got, e.Want)
}

func (e *InvalidArgumentTypeError) Is(target error) bool {
	return target == ErrInvalidArgumentType
}

// OutOfBoundsError occurs when an offset computed from guest data falls
// outside the current linear memory. It usually means the guest was built
// against a different ABI.
type OutOfBoundsError struct {
	Offset uint32
	Length uint32
	Size   uint64
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("out of bounds memory access (addr=%d, len=%d, memory size=%d)",
		e.Offset, e.Length, e.Size)
}

func (e *OutOfBoundsError) Is(target error) bool {
	return target == ErrOutOfBounds
}

// InvalidUTF8Error occurs when string bytes are not valid UTF-8.
type InvalidUTF8Error struct {
	Ref StringRef
}

func (e *InvalidUTF8Error) Error() string {
	return fmt.Sprintf("invalid UTF-8 in string (ptr=%d, len=%d)", e.Ref.Ptr, e.Ref.Len)
}

func (e *InvalidUTF8Error) Is(target error) bool {
	return target == ErrInvalidUTF8
}

// AllocationError occurs when the guest allocator traps or returns a null pointer.
type AllocationError struct {
	Size  uint32
	Align uint32
	Err   error
}

func (e *AllocationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("guest allocation of %d bytes (align %d) failed: %v", e.Size, e.Align, e.Err)
	}
	return fmt.Sprintf("guest allocation of %d bytes (align %d) returned a null pointer", e.Size, e.Align)
}

func (e *AllocationError) Unwrap() error {
	return e.Err
}

func (e *AllocationError) Is(target error) bool {
	return target == ErrAllocationFailure
}
