package wasm

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Runtime manages the wazero runtime lifecycle.
// A single Runtime is shared by every add-on in the process.
type Runtime struct {
	// wazero runtime (singleton)
	runtime wazero.Runtime

	// Compiled module cache (key: module name/path -> value: compiled module)
	// This avoids recompiling the same Wasm binary multiple times
	modules sync.Map // map[string]*CompiledModule

	// Active module instances (for cleanup on shutdown)
	// key: instance ID -> value: api.Module
	instances     sync.Map // map[string]interface{}(wazero API module)
	instanceCount atomic.Int64

	// Guards instantiation of the shared "host" import module.
	hostMu sync.Mutex

	// Configuration
	config *RuntimeConfig

	// Logger
	logger *zap.Logger

	// Shutdown management
	closeOnce sync.Once
	closed    chan struct{}
}

// RuntimeConfig holds runtime configuration.
type RuntimeConfig struct {
	// Memory limits for Wasm modules (in pages, 64KB each)
	// Default: 256 pages = 16MB max memory per module
	MemoryPages uint32

	// Enable debug logging for Wasm execution
	DebugEnabled bool

	// Compilation cache directory (for persistent caching)
	// If empty, uses in-memory caching only
	CacheDir string

	// Maximum number of concurrent instances
	MaxInstances int

	// Upper bound for a single guest call. Zero disables the limit.
	ExecutionTimeout time.Duration

	// Destinations for guest stdout/stderr. Both default to os.Stderr so
	// that guest output never mixes with the host's own stdout.
	Stdout io.Writer
	Stderr io.Writer
}

// CompiledModule wraps a wazero.CompiledModule with metadata.
type CompiledModule struct {
	// wazero compiled module
	Module wazero.CompiledModule

	// Module metadata
	Name      string
	Source    string // File path or identifier
	SizeBytes int64

	// BLAKE3-256 digest of the (decompressed) Wasm bytes, hex encoded
	Digest string

	// Compilation timestamp
	CompiledAt int64
}

// NewRuntime creates and initializes a new wazero runtime.
// This should be called once during application startup.
func NewRuntime(ctx context.Context, logger *zap.Logger, config *RuntimeConfig) (*Runtime, error) {
	// Validate config
	if config == nil {
		config = DefaultRuntimeConfig()
	}
	if config.Stdout == nil {
		config.Stdout = os.Stderr
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}

	rc := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(config.ExecutionTimeout > 0)
	if config.MemoryPages > 0 {
		rc = rc.WithMemoryLimitPages(config.MemoryPages)
	}
	if config.CacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(config.CacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache '%s': %w", config.CacheDir, err)
		}
		rc = rc.WithCompilationCache(cache)
	}

	r := wazero.NewRuntimeWithConfig(ctx, rc)

	// Guests are built against WASI preview1.
	if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
		_ = r.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate WASI: %w", err)
	}

	runtime := &Runtime{
		runtime: r,
		config:  config,
		logger:  logger.With(zap.String("component", "wasm-runtime")),
		closed:  make(chan struct{}),
	}

	logger.Info("Wasm runtime initialized",
		zap.Uint32("memory_pages", config.MemoryPages),
		zap.Bool("debug_enabled", config.DebugEnabled),
		zap.String("cache_dir", config.CacheDir),
		zap.Int("max_instances", config.MaxInstances),
		zap.Duration("execution_timeout", config.ExecutionTimeout),
	)

	return runtime, nil
}

// DefaultRuntimeConfig returns sensible defaults.
func DefaultRuntimeConfig() *RuntimeConfig {
	return &RuntimeConfig{
		MemoryPages:      256, // 16MB
		DebugEnabled:     false,
		CacheDir:         "",
		MaxInstances:     100,
		ExecutionTimeout: 30 * time.Second,
	}
}

// Close gracefully shuts down the runtime.
// Safe to call multiple times (idempotent).
func (r *Runtime) Close(ctx context.Context) error {
	var err error
	r.closeOnce.Do(func() {
		r.logger.Info("Shutting down Wasm runtime")

		// Close all active instances first
		r.instances.Range(func(key, value interface{}) bool {
			if inst, ok := value.(interface{ Close(context.Context) error }); ok {
				if closeErr := inst.Close(ctx); closeErr != nil {
					r.logger.Warn("Failed to close instance",
						zap.String("instance_id", key.(string)),
						zap.Error(closeErr),
					)
				}
			}
			r.DeleteInstance(key.(string))
			return true
		})

		// Close the runtime (closes compiled modules)
		err = r.runtime.Close(ctx)

		close(r.closed)
		r.logger.Info("Wasm runtime shutdown complete")
	})

	return err
}

// GetCompiledModule retrieves a compiled module from cache.
func (r *Runtime) GetCompiledModule(name string) (*CompiledModule, bool) {
	if val, ok := r.modules.Load(name); ok {
		if mod, ok := val.(*CompiledModule); ok {
			return mod, true
		}
	}
	return nil, false
}

// StoreCompiledModule stores a compiled module in cache.
func (r *Runtime) StoreCompiledModule(module *CompiledModule) {
	r.modules.Store(module.Name, module)
}

// GetInstance retrieves an active instance.
func (r *Runtime) GetInstance(instanceID string) (interface{}, bool) {
	return r.instances.Load(instanceID)
}

// StoreInstance stores an active instance.
func (r *Runtime) StoreInstance(instanceID string, instance interface{}) {
	if _, loaded := r.instances.Swap(instanceID, instance); !loaded {
		r.instanceCount.Add(1)
	}
}

// DeleteInstance removes an instance from tracking.
func (r *Runtime) DeleteInstance(instanceID string) {
	if _, loaded := r.instances.LoadAndDelete(instanceID); loaded {
		r.instanceCount.Add(-1)
	}
}

// reserveInstance claims a slot for an instance that is about to be created.
// It fails once limit slots are tracked or reserved; a limit of zero or less
// never fails. A successful reservation is either handed to storeReserved or
// returned with releaseInstance.
func (r *Runtime) reserveInstance(limit int) bool {
	for {
		n := r.instanceCount.Load()
		if limit > 0 && n >= int64(limit) {
			return false
		}
		if r.instanceCount.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// releaseInstance returns a slot claimed by reserveInstance.
func (r *Runtime) releaseInstance() {
	r.instanceCount.Add(-1)
}

// storeReserved tracks an instance whose slot is already counted.
func (r *Runtime) storeReserved(instanceID string, instance interface{}) {
	if _, loaded := r.instances.Swap(instanceID, instance); loaded {
		r.instanceCount.Add(-1)
	}
}

// InstanceCount returns the number of tracked instances, including those
// still being instantiated.
func (r *Runtime) InstanceCount() int {
	return int(r.instanceCount.Load())
}

// Config returns the runtime configuration.
func (r *Runtime) Config() *RuntimeConfig {
	return r.config
}

// IsClosed returns whether the runtime has been closed.
func (r *Runtime) IsClosed() bool {
	select {
	case <-r.closed:
		return true
	default:
		return false
	}
}
