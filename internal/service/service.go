// Package service wires configuration, the Wasm runtime and the add-on
// manager into one entry point for computing code lenses.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/woxQAQ/lensbridge/internal/addon"
	"github.com/woxQAQ/lensbridge/internal/config"
	"github.com/woxQAQ/lensbridge/internal/wasm"
	"github.com/woxQAQ/lensbridge/pkg/protocol"
	"go.uber.org/zap"
)

// Service owns the Wasm runtime and the loaded add-ons, and answers lens
// requests for files.
type Service struct {
	cfg         *config.Config
	logger      *zap.Logger
	wasmRuntime *wasm.Runtime
	addons      *addon.Manager
}

// New initializes the Wasm runtime and loads every add-on under
// cfg.AddonPaths.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	// Initialize Wasm runtime.
	wasmConfig := &wasm.RuntimeConfig{
		MemoryPages:      cfg.Wasm.MemoryPages,
		DebugEnabled:     cfg.Wasm.Debug,
		CacheDir:         cfg.Wasm.CacheDir,
		MaxInstances:     cfg.Wasm.MaxInstances,
		ExecutionTimeout: cfg.Wasm.Timeout(),
	}

	wasmRuntime, err := wasm.NewRuntime(ctx, logger, wasmConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Wasm runtime: %w", err)
	}

	addons := addon.NewManager(cfg, wasmRuntime, wasm.NewHostFunctions(logger), logger)
	if err := addons.LoadAll(ctx); err != nil {
		_ = wasmRuntime.Close(ctx)
		return nil, fmt.Errorf("failed to load add-ons: %w", err)
	}

	logger.Info("Lens service initialized",
		zap.Uint32("wasm_memory_pages", cfg.Wasm.MemoryPages),
		zap.String("wasm_cache_dir", cfg.Wasm.CacheDir),
		zap.Int("addons", addons.Registry().Count()),
	)

	return &Service{
		cfg:         cfg,
		logger:      logger,
		wasmRuntime: wasmRuntime,
		addons:      addons,
	}, nil
}

// LoadWasm registers a bare Wasm module and returns the name to use with
// Lenses and LensesForFile.
func (s *Service) LoadWasm(ctx context.Context, path string) (string, error) {
	a, err := s.addons.LoadWasm(ctx, path)
	if err != nil {
		return "", err
	}
	return a.Name(), nil
}

// Addons lists the registered add-ons.
func (s *Service) Addons() []*addon.Addon {
	return s.addons.Registry().List()
}

// Resolve finds an add-on by name, falling back to the add-ons registered
// for a language of that name.
func (s *Service) Resolve(nameOrLanguage string) (*addon.Addon, error) {
	a, err := s.addons.GetAddon(nameOrLanguage)
	if err == nil {
		return a, nil
	}

	var notFound *addon.AddonNotFoundError
	if !errors.As(err, &notFound) {
		return nil, err
	}

	a, langErr := s.addons.FindAddonForLanguage(nameOrLanguage)
	if langErr != nil {
		return nil, err
	}
	return a, nil
}

// Lenses computes the lenses for text with the named add-on (or language).
func (s *Service) Lenses(ctx context.Context, nameOrLanguage, text string) ([]protocol.CodeLens, error) {
	a, err := s.Resolve(nameOrLanguage)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Computing lenses",
		zap.String("addon", a.Name()),
		zap.Int("text_bytes", len(text)),
	)

	return s.addons.Lenses(ctx, a.Name(), text)
}

// LensesForFile computes the lenses for a file's contents. An empty path
// calls the add-on without text.
func (s *Service) LensesForFile(ctx context.Context, nameOrLanguage, path string) ([]protocol.CodeLens, error) {
	var text string
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read '%s': %w", path, err)
		}
		text = string(data)
	}

	return s.Lenses(ctx, nameOrLanguage, text)
}

// Close gracefully shuts down the service.
func (s *Service) Close(ctx context.Context) error {
	s.logger.Info("Shutting down lens service")

	// Shutdown add-on instances and the Wasm runtime.
	if err := s.addons.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown add-ons", zap.Error(err))
		return err
	}

	s.logger.Info("Lens service shutdown complete")
	return nil
}
