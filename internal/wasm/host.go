package wasm

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/lensbridge/internal/canon"
	"go.uber.org/zap"
)

// hostModuleName is the import module guests use for host functions.
const hostModuleName = "host"

// HostFunctionsImpl implements host functions for Wasm modules.
type HostFunctionsImpl struct {
	logger *zap.Logger
}

// NewHostFunctions creates a new host functions implementation.
func NewHostFunctions(logger *zap.Logger) *HostFunctionsImpl {
	return &HostFunctionsImpl{
		logger: logger.With(zap.String("component", "wasm-host")),
	}
}

// export registers the host functions on builder.
func (h *HostFunctionsImpl) export(builder wazero.HostModuleBuilder) wazero.HostModuleBuilder {
	// Wasm modules can call this to log messages.
	return builder.NewFunctionBuilder().
		WithFunc(h.logMessage).
		WithParameterNames("level", "ptr", "length").
		Export("log_message")
}

// logMessage is called by Wasm modules to log messages.
// Signature: log_message(level, ptr, length)
// level: 0 = debug, 1 = info, 2 = warn, 3 = error
func (h *HostFunctionsImpl) logMessage(ctx context.Context, mod api.Module, level uint32, ptr uint32, length uint32) {
	if !hasMemory(mod) {
		h.logger.Error("log_message called by a module without memory",
			zap.String("module", mod.Name()),
		)
		return
	}

	// Read message from Wasm memory.
	view := canon.NewView(NewMemory(mod).Buffer())
	msg, err := view.String(canon.StringRef{Ptr: ptr, Len: length})
	if err != nil {
		h.logger.Error("Failed to read log message from Wasm memory",
			zap.String("module", mod.Name()),
			zap.Uint32("ptr", ptr),
			zap.Uint32("length", length),
			zap.Error(err),
		)
		return
	}

	logger := h.logger.With(zap.String("module", mod.Name()))
	switch level {
	case 0:
		logger.Debug(msg)
	case 1:
		logger.Info(msg)
	case 2:
		logger.Warn(msg)
	case 3:
		logger.Error(msg)
	default:
		logger.Info(msg)
	}
}
