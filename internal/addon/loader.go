package addon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/woxQAQ/lensbridge/internal/wasm"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Loader handles loading add-ons from disk.
type Loader struct {
	runtime      *wasm.Runtime
	moduleLoader *wasm.ModuleLoader
	logger       *zap.Logger
}

// NewLoader creates a new add-on loader.
func NewLoader(runtime *wasm.Runtime, logger *zap.Logger) *Loader {
	return &Loader{
		runtime:      runtime,
		moduleLoader: wasm.NewModuleLoader(runtime, logger),
		logger:       logger.With(zap.String("component", "addon-loader")),
	}
}

// LoadAddon loads a single add-on from a directory.
// The module is compiled under the add-on's name.
func (l *Loader) LoadAddon(ctx context.Context, dir string) (*Addon, error) {
	l.logger.Debug("Loading add-on", zap.String("dir", dir))

	// Parse manifest
	manifest, err := ParseManifest(dir)
	if err != nil {
		return nil, err
	}

	l.logger.Info("Loading add-on",
		zap.String("name", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Strings("languages", manifest.Languages),
	)

	// Read (and decompress) the module before compiling so the digest can
	// be checked first.
	source := &wasm.FileModuleSource{Path: manifest.WasmPath()}
	data, err := source.Bytes()
	if err != nil {
		return nil, &AddonLoadError{
			AddonName: manifest.Name,
			Err:       err,
		}
	}

	if manifest.Wasm.BLAKE3 != "" {
		if digest := wasm.Digest(data); digest != manifest.Wasm.BLAKE3 {
			return nil, &ChecksumMismatchError{
				AddonName: manifest.Name,
				Expected:  manifest.Wasm.BLAKE3,
				Actual:    digest,
			}
		}
	}

	// Compile Wasm module (uses internal caching)
	compiled, err := l.moduleLoader.LoadModuleFromMemory(ctx, manifest.Name, data)
	if err != nil {
		return nil, &AddonLoadError{
			AddonName: manifest.Name,
			Err:       err,
		}
	}

	addon := &Addon{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}

	l.logger.Info("Add-on loaded successfully",
		zap.String("name", manifest.Name),
		zap.Int64("size_bytes", compiled.SizeBytes),
		zap.String("blake3", compiled.Digest),
	)

	return addon, nil
}

// LoadWasm loads a module that has no manifest. The add-on is named after
// the file, serves no particular language and declares both lens
// capabilities with the default export names.
func (l *Loader) LoadWasm(ctx context.Context, path string) (*Addon, error) {
	name := strings.TrimSuffix(strings.TrimSuffix(filepath.Base(path), ".zst"), ".wasm")

	manifest := &Manifest{
		Name:         name,
		Version:      "0.0.0",
		Wasm:         WasmConfig{File: filepath.Base(path)},
		Capabilities: []string{CapabilityCodeLens, CapabilityCodeLensSource},
		dir:          filepath.Dir(path),
	}

	compiled, err := l.moduleLoader.LoadModuleFromFile(ctx, path)
	if err != nil {
		return nil, &AddonLoadError{
			AddonName: name,
			Err:       err,
		}
	}

	l.logger.Info("Loaded bare Wasm module as add-on",
		zap.String("name", name),
		zap.String("path", path),
	)

	return &Addon{
		Manifest: manifest,
		Compiled: compiled,
		LoadedAt: time.Now(),
	}, nil
}

// DiscoverAddons scans directories for add-ons.
//
// Every subdirectory is tried. Failures are combined into the returned
// error, which may be non-nil alongside a partial result. When nothing loads
// the error is a *NoAddonsFoundError.
func (l *Loader) DiscoverAddons(ctx context.Context, paths []string) ([]*Addon, error) {
	var addons []*Addon
	var errs error

	for _, basePath := range paths {
		l.logger.Debug("Scanning add-on directory", zap.String("path", basePath))

		// Read subdirectories
		entries, err := os.ReadDir(basePath)
		if err != nil {
			if os.IsNotExist(err) {
				l.logger.Warn("Add-on path does not exist", zap.String("path", basePath))
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("failed to read directory '%s': %w", basePath, err))
			continue
		}

		// Try to load each subdirectory as an add-on
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			addonDir := filepath.Join(basePath, entry.Name())

			addon, err := l.LoadAddon(ctx, addonDir)
			if err != nil {
				l.logger.Error("Failed to load add-on",
					zap.String("dir", addonDir),
					zap.Error(err),
				)
				errs = multierr.Append(errs, err)
				continue
			}

			addons = append(addons, addon)
		}
	}

	// If no add-ons loaded, return error
	if len(addons) == 0 {
		return nil, &NoAddonsFoundError{Paths: paths, Err: errs}
	}

	// If we found some add-ons but had errors, log warning but continue
	if errs != nil {
		l.logger.Warn("Some add-ons failed to load",
			zap.Int("loaded", len(addons)),
			zap.Int("failed", len(multierr.Errors(errs))),
		)
	}

	return addons, errs
}
