// Package lens invokes a guest's code-lens exports and decodes the results.
package lens

import (
	"context"

	"github.com/woxQAQ/lensbridge/internal/canon"
)

// Guest is an instantiated module that exports lens functions.
//
// Memory and Allocator are read on every call, so a Guest may hand out new
// values after the underlying instance has been recreated.
type Guest interface {
	Call(ctx context.Context, name string, params ...uint64) ([]uint64, error)
	Memory() canon.LinearMemory
	Allocator() canon.Allocator
}
