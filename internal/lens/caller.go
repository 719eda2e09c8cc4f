package lens

import (
	"context"
	"sync"

	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/lensbridge/internal/canon"
	"github.com/woxQAQ/lensbridge/pkg/protocol"
	"go.uber.org/zap"
)

// Caller runs lens requests against one guest.
// Calls are serialised so lowering, the guest call and lifting never
// interleave on the same linear memory.
type Caller struct {
	mu     sync.Mutex
	guest  Guest
	cache  canon.ViewCache
	logger *zap.Logger
}

// NewCaller creates a caller for guest.
func NewCaller(guest Guest, logger *zap.Logger) *Caller {
	return &Caller{
		guest:  guest,
		logger: logger.With(zap.String("component", "lens-caller")),
	}
}

// Lenses calls the export named by req and decodes the returned lens list.
func (c *Caller) Lenses(ctx context.Context, req Request) ([]protocol.CodeLens, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	export := req.ExportName()

	lenses, err := c.call(ctx, req)
	if err != nil {
		c.logger.Warn("Lens call failed",
			zap.String("export", export),
			zap.Error(err),
		)
		return nil, &CallError{Export: export, Err: err}
	}
	return lenses, nil
}

func (c *Caller) call(ctx context.Context, req Request) ([]protocol.CodeLens, error) {
	params, err := req.params(ctx, c.guest, &c.cache)
	if err != nil {
		return nil, err
	}

	results, err := c.guest.Call(ctx, req.ExportName(), params...)
	if err != nil {
		return nil, err
	}
	if len(results) != 1 {
		return nil, &ResultCountError{Got: len(results)}
	}
	ptr := api.DecodeU32(results[0])

	// The call may have grown memory.
	view := c.cache.AcquireFrom(c.guest.Memory())
	lenses, err := canon.LiftLenses(ptr, view)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("Lens call completed",
		zap.String("export", req.ExportName()),
		zap.Uint32("result_ptr", ptr),
		zap.Int("count", len(lenses)),
	)
	return lenses, nil
}
