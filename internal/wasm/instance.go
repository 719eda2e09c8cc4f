package wasm

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/woxQAQ/lensbridge/internal/canon"
	"go.uber.org/zap"
)

// DefaultRealloc is the canonical ABI allocator export.
const DefaultRealloc = "cabi_realloc"

// InstanceManager creates and manages module instances.
type InstanceManager struct {
	runtime   *Runtime
	logger    *zap.Logger
	hostFuncs *HostFunctionsImpl
}

// NewInstanceManager creates a new instance manager.
func NewInstanceManager(runtime *Runtime, hostFuncs *HostFunctionsImpl, logger *zap.Logger) *InstanceManager {
	return &InstanceManager{
		runtime:   runtime,
		hostFuncs: hostFuncs,
		logger:    logger.With(zap.String("component", "wasm-instance")),
	}
}

// InstanceConfig holds configuration for creating instances.
type InstanceConfig struct {
	// Module name to instantiate.
	ModuleName string

	// Instance ID (if empty, one is generated).
	InstanceID string

	// Functions run once after instantiation. Nil keeps wazero's default
	// ("_start"); an empty slice runs nothing.
	StartFunctions []string

	// Name of the realloc export (default "cabi_realloc").
	Realloc string

	// WASI arguments and environment.
	Args []string
	Env  map[string]string
}

// Instance represents an instantiated Wasm module.
type Instance struct {
	// wazero module instance.
	module  api.Module
	runtime *Runtime

	// Instance metadata.
	ID        string
	Name      string
	CreatedAt int64

	memory    *Memory
	allocator *guestAllocator
	timeout   time.Duration

	// Exported functions (cached for performance).
	exports map[string]api.Function
}

// Instantiate creates a new instance from a compiled module and runs its
// start functions. Host functions are exported to the Wasm module.
func (m *InstanceManager) Instantiate(ctx context.Context, config *InstanceConfig) (*Instance, error) {
	// Get compiled module from cache.
	compiled, ok := m.runtime.GetCompiledModule(config.ModuleName)
	if !ok {
		return nil, &ModuleNotFoundError{ModuleName: config.ModuleName}
	}

	limit := m.runtime.config.MaxInstances
	if !m.runtime.reserveInstance(limit) {
		return nil, &InstanceLimitError{Limit: limit}
	}
	reserved := true
	defer func() {
		if reserved {
			m.runtime.releaseInstance()
		}
	}()

	// Generate instance ID if not provided.
	instanceID := config.InstanceID
	if instanceID == "" {
		instanceID = generateInstanceID()
	}

	m.logger.Info("Instantiating Wasm module",
		zap.String("module", config.ModuleName),
		zap.String("instance_id", instanceID),
	)

	if err := m.ensureHostModule(ctx); err != nil {
		return nil, fmt.Errorf("failed to export host functions: %w", err)
	}

	args := config.Args
	if len(args) == 0 {
		args = []string{config.ModuleName}
	}

	moduleConfig := wazero.NewModuleConfig().
		WithName(instanceID).
		WithArgs(args...).
		WithStdout(m.runtime.config.Stdout).
		WithStderr(m.runtime.config.Stderr).
		WithSysWalltime().
		WithSysNanotime().
		WithRandSource(rand.Reader)
	for k, v := range config.Env {
		moduleConfig = moduleConfig.WithEnv(k, v)
	}
	if config.StartFunctions != nil {
		moduleConfig = moduleConfig.WithStartFunctions(config.StartFunctions...)
	}

	// Instantiation runs the start functions.
	module, err := m.runtime.runtime.InstantiateModule(ctx, compiled.Module, moduleConfig)
	if err != nil {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        err,
		}
	}

	// A start function that calls proc_exit(0) leaves a closed module behind.
	if module.IsClosed() {
		return nil, &InstantiationError{
			ModuleName: config.ModuleName,
			InstanceID: instanceID,
			Err:        errors.New("module exited during start"),
		}
	}

	if !hasMemory(module) {
		_ = module.Close(ctx)
		return nil, &MemoryNotFoundError{ModuleName: config.ModuleName}
	}

	exports := m.cacheExportedFunctions(module)

	reallocName := config.Realloc
	if reallocName == "" {
		reallocName = DefaultRealloc
	}

	instance := &Instance{
		module:    module,
		runtime:   m.runtime,
		ID:        instanceID,
		Name:      config.ModuleName,
		CreatedAt: time.Now().Unix(),
		memory:    NewMemory(module),
		allocator: &guestAllocator{
			module: config.ModuleName,
			name:   reallocName,
			fn:     exports[reallocName],
		},
		timeout: m.runtime.config.ExecutionTimeout,
		exports: exports,
	}

	// Track active instance.
	m.runtime.storeReserved(instanceID, instance)
	reserved = false

	m.logger.Info("Module instantiated successfully",
		zap.String("instance_id", instanceID),
		zap.Int("exported_functions", len(exports)),
		zap.Bool("has_allocator", instance.allocator.fn != nil),
	)

	return instance, nil
}

// Call invokes an exported function.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	fn, ok := i.exports[name]
	if !ok {
		return nil, &FunctionNotFoundError{ModuleName: i.Name, FunctionName: name}
	}

	def := fn.Definition()
	if len(def.ParamTypes()) != len(params) {
		return nil, &SignatureError{
			FunctionName: name,
			Params:       len(def.ParamTypes()),
			Results:      len(def.ResultTypes()),
			Want:         fmt.Sprintf("%d params", len(params)),
		}
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	results, err := fn.Call(ctx, params...)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, &TimeoutError{FunctionName: name, Duration: i.timeout}
		}
		return nil, err
	}
	return results, nil
}

// HasExport reports whether the instance exports a function called name.
func (i *Instance) HasExport(name string) bool {
	_, ok := i.exports[name]
	return ok
}

// Memory returns the instance's linear memory.
func (i *Instance) Memory() canon.LinearMemory {
	return i.memory
}

// Allocator returns the instance's realloc export as a canonical ABI allocator.
func (i *Instance) Allocator() canon.Allocator {
	return i.allocator
}

// Close closes the instance and releases resources.
func (i *Instance) Close(ctx context.Context) error {
	i.runtime.DeleteInstance(i.ID)
	return i.module.Close(ctx)
}

// cacheExportedFunctions caches references to exported functions.
// This improves performance by avoiding repeated lookups.
func (m *InstanceManager) cacheExportedFunctions(module api.Module) map[string]api.Function {
	defs := module.ExportedFunctionDefinitions()
	exports := make(map[string]api.Function, len(defs))

	for name := range defs {
		if fn := module.ExportedFunction(name); fn != nil {
			exports[name] = fn
		}
	}

	return exports
}

// ensureHostModule instantiates the "host" import module once per runtime.
func (m *InstanceManager) ensureHostModule(ctx context.Context) error {
	m.runtime.hostMu.Lock()
	defer m.runtime.hostMu.Unlock()

	if m.runtime.runtime.Module(hostModuleName) != nil {
		return nil
	}

	builder := m.hostFuncs.export(m.runtime.runtime.NewHostModuleBuilder(hostModuleName))
	if _, err := builder.Instantiate(ctx); err != nil {
		return err
	}
	return nil
}

var instanceSeq atomic.Uint64

// generateInstanceID generates a unique instance ID.
func generateInstanceID() string {
	return fmt.Sprintf("inst-%d-%d", time.Now().UnixNano(), instanceSeq.Add(1))
}
