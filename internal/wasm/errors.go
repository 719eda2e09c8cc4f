package wasm

import (
	"fmt"
	"time"
)

// CompilationError occurs when Wasm module compilation fails
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when module instantiation fails
type InstantiationError struct {
	ModuleName string
	InstanceID string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s' (instance: %s): %v",
		e.ModuleName, e.InstanceID, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}

// ModuleNotFoundError occurs when a module is not in cache
type ModuleNotFoundError struct {
	ModuleName string
}

func (e *ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' not found in cache", e.ModuleName)
}

// FunctionNotFoundError occurs when an exported function is missing
type FunctionNotFoundError struct {
	ModuleName   string
	FunctionName string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function '%s' not found in module '%s'",
		e.FunctionName, e.ModuleName)
}

// MemoryNotFoundError occurs when a guest does not export its linear memory
type MemoryNotFoundError struct {
	ModuleName string
}

func (e *MemoryNotFoundError) Error() string {
	return fmt.Sprintf("module '%s' does not export a memory", e.ModuleName)
}

// SignatureError occurs when an export is called with the wrong number of
// parameters or has an unexpected signature
type SignatureError struct {
	FunctionName string
	Params       int
	Results      int
	Want         string
}

func (e *SignatureError) Error() string {
	return fmt.Sprintf("function '%s' has %d params and %d results, want %s",
		e.FunctionName, e.Params, e.Results, e.Want)
}

// MemoryAccessError occurs when memory operations fail
type MemoryAccessError struct {
	Operation string
	Address   uint32
	Length    uint32
	Err       error
}

func (e *MemoryAccessError) Error() string {
	return fmt.Sprintf("memory access failed (op=%s, addr=%d, len=%d): %v",
		e.Operation, e.Address, e.Length, e.Err)
}

func (e *MemoryAccessError) Unwrap() error {
	return e.Err
}

// InstanceLimitError occurs when the configured instance limit is reached
type InstanceLimitError struct {
	Limit int
}

func (e *InstanceLimitError) Error() string {
	return fmt.Sprintf("instance limit reached (%d active)", e.Limit)
}

// TimeoutError occurs when Wasm execution times out
type TimeoutError struct {
	FunctionName string
	Duration     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("Wasm function '%s' timed out after %v", e.FunctionName, e.Duration)
}
