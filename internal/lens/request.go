package lens

import (
	"context"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/lensbridge/internal/canon"
)

// Default export names.
const (
	DefaultLensesExport    = "leno:lsp/lenses#getlenses"
	DefaultLensesForExport = "leno:lsp/lenses#getlenses-for"
)

// Request describes one call into a guest's lens export.
type Request interface {
	// ExportName returns the export to call.
	ExportName() string

	// params lowers the request's arguments into guest memory.
	params(ctx context.Context, guest Guest, cache *canon.ViewCache) ([]uint64, error)
}

// NoArgRequest calls an export that takes no arguments.
type NoArgRequest struct {
	Export string
}

func (r NoArgRequest) ExportName() string {
	if r.Export == "" {
		return DefaultLensesExport
	}
	return r.Export
}

func (r NoArgRequest) params(context.Context, Guest, *canon.ViewCache) ([]uint64, error) {
	return nil, nil
}

// TextRequest calls an export that takes the source text as a string.
type TextRequest struct {
	Export string
	Text   string
}

func (r TextRequest) ExportName() string {
	if r.Export == "" {
		return DefaultLensesForExport
	}
	return r.Export
}

func (r TextRequest) params(ctx context.Context, guest Guest, cache *canon.ViewCache) ([]uint64, error) {
	ref, err := canon.LowerString(ctx, r.Text, guest.Allocator(), guest.Memory(), cache)
	if err != nil {
		return nil, err
	}
	return []uint64{api.EncodeU32(ref.Ptr), api.EncodeU32(ref.Len)}, nil
}
