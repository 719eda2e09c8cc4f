package canon

import (
	"context"
	"errors"
	"testing"
)

func TestLowerStringRoundTrip(t *testing.T) {
	ctx := context.Background()

	for _, s := range []string{"a", "let x = 10;", "café", "日本語", "🦀 lenses"} {
		t.Run(s, func(t *testing.T) {
			mem := newTestMemory(pageSize)
			alloc := &bumpAllocator{mem: mem, next: 1024}
			var cache ViewCache

			ref, err := LowerString(ctx, s, alloc, mem, &cache)
			if err != nil {
				t.Fatalf("LowerString failed: %v", err)
			}

			got, err := cache.AcquireFrom(mem).String(ref)
			if err != nil {
				t.Fatalf("String failed: %v", err)
			}
			if got != s {
				t.Errorf("round trip = %q, want %q", got, s)
			}
		})
	}
}

func TestLowerStringAllocatorArguments(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, next: 2048}
	var cache ViewCache

	ref, err := LowerString(context.Background(), "let x = 10;", alloc, mem, &cache)
	if err != nil {
		t.Fatal(err)
	}

	if len(alloc.calls) != 1 {
		t.Fatalf("allocator called %d times, want 1", len(alloc.calls))
	}
	if want := [4]uint32{0, 0, 1, 11}; alloc.calls[0] != want {
		t.Errorf("allocator args = %v, want %v", alloc.calls[0], want)
	}
	if ref.Ptr != 2048 || ref.Len != 11 {
		t.Errorf("ref = %+v, want {Ptr:2048 Len:11}", ref)
	}
}

func TestLowerEmptyString(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, next: 1024}
	var cache ViewCache

	ref, err := LowerString(context.Background(), "", alloc, mem, &cache)
	if err != nil {
		t.Fatal(err)
	}

	if ref != (StringRef{Ptr: 1, Len: 0}) {
		t.Errorf("ref = %+v, want {Ptr:1 Len:0}", ref)
	}
	if len(alloc.calls) != 0 {
		t.Errorf("allocator should not be called for empty strings, got %d calls", len(alloc.calls))
	}
}

func TestLowerMultiByteLength(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, next: 1024}
	var cache ViewCache

	ref, err := LowerString(context.Background(), "café", alloc, mem, &cache)
	if err != nil {
		t.Fatal(err)
	}

	if ref.Len != 5 {
		t.Errorf("Len = %d, want 5 (UTF-8 bytes, not characters)", ref.Len)
	}
	if alloc.calls[0][3] != 5 {
		t.Errorf("allocation size = %d, want 5", alloc.calls[0][3])
	}
}

func TestLowerInvalidArgumentType(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, next: 1024}
	var cache ViewCache

	_, err := Lower(context.Background(), 42, alloc, mem, &cache)
	if !errors.Is(err, ErrInvalidArgumentType) {
		t.Fatalf("expected ErrInvalidArgumentType, got %v", err)
	}

	var typeErr *InvalidArgumentTypeError
	if !errors.As(err, &typeErr) {
		t.Fatalf("expected *InvalidArgumentTypeError, got %T", err)
	}
	if typeErr.Got != "int" {
		t.Errorf("Got = %s, want int", typeErr.Got)
	}
	if len(alloc.calls) != 0 {
		t.Error("allocator should not be called for rejected arguments")
	}
}

func TestLowerAcceptsString(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, next: 1024}
	var cache ViewCache

	ref, err := Lower(context.Background(), "Run", alloc, mem, &cache)
	if err != nil {
		t.Fatal(err)
	}
	if ref.Len != 3 {
		t.Errorf("Len = %d, want 3", ref.Len)
	}
}

func TestLowerAllocationFailure(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, err: errTrap}
	var cache ViewCache

	_, err := LowerString(context.Background(), "x", alloc, mem, &cache)
	if !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("expected ErrAllocationFailure, got %v", err)
	}
	if !errors.Is(err, errTrap) {
		t.Errorf("allocation error should wrap the guest error, got %v", err)
	}
}

func TestLowerNullPointer(t *testing.T) {
	mem := newTestMemory(pageSize)
	zero := uint32(0)
	alloc := &bumpAllocator{mem: mem, ptr: &zero}
	var cache ViewCache

	_, err := LowerString(context.Background(), "x", alloc, mem, &cache)
	if !errors.Is(err, ErrAllocationFailure) {
		t.Fatalf("expected ErrAllocationFailure, got %v", err)
	}
}

func TestLowerAllocationOutOfBounds(t *testing.T) {
	mem := newTestMemory(pageSize)
	ptr := uint32(pageSize - 2)
	alloc := &bumpAllocator{mem: mem, ptr: &ptr}
	var cache ViewCache

	_, err := LowerString(context.Background(), "four", alloc, mem, &cache)
	if !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
}

func TestLowerReacquiresViewAfterGrowth(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, next: pageSize + 16, growBy: pageSize}
	var cache ViewCache

	stale := cache.AcquireFrom(mem)

	ref, err := LowerString(context.Background(), "grown", alloc, mem, &cache)
	if err != nil {
		t.Fatalf("LowerString failed: %v", err)
	}

	fresh := cache.AcquireFrom(mem)
	if fresh == stale {
		t.Fatal("view should have been rebuilt after the allocator grew memory")
	}
	got, err := fresh.String(ref)
	if err != nil {
		t.Fatal(err)
	}
	if got != "grown" {
		t.Errorf("String = %q, want grown", got)
	}
}

func TestLowerInvalidUTF8(t *testing.T) {
	mem := newTestMemory(pageSize)
	alloc := &bumpAllocator{mem: mem, next: 1024}
	var cache ViewCache

	_, err := LowerString(context.Background(), "bad\xff", alloc, mem, &cache)
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Fatalf("expected ErrInvalidUTF8, got %v", err)
	}
	if len(alloc.calls) != 0 {
		t.Error("allocator should not be called for invalid text")
	}
}

func TestReallocFunc(t *testing.T) {
	var got [4]uint32
	fn := ReallocFunc(func(_ context.Context, a, b, c, d uint32) (uint32, error) {
		got = [4]uint32{a, b, c, d}
		return 64, nil
	})

	ptr, err := fn.Realloc(context.Background(), 1, 2, 3, 4)
	if err != nil {
		t.Fatal(err)
	}
	if ptr != 64 || got != [4]uint32{1, 2, 3, 4} {
		t.Errorf("Realloc = %d with %v", ptr, got)
	}
}
