package addon

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/woxQAQ/lensbridge/internal/config"
	"github.com/woxQAQ/lensbridge/internal/lens"
	"github.com/woxQAQ/lensbridge/internal/wasm"
	"github.com/woxQAQ/lensbridge/pkg/protocol"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Manager manages add-on lifecycle.
type Manager struct {
	cfg         *config.Config
	runtime     *wasm.Runtime
	loader      *Loader
	registry    *Registry
	instanceMgr *wasm.InstanceManager
	logger      *zap.Logger

	mu     sync.RWMutex
	loaded bool

	// One live instance per add-on, created on first use.
	instMu  sync.Mutex
	callers map[string]*liveAddon
}

type liveAddon struct {
	instance *wasm.Instance
	caller   *lens.Caller
}

// NewManager creates a new add-on manager.
func NewManager(
	cfg *config.Config,
	runtime *wasm.Runtime,
	hostFuncs *wasm.HostFunctionsImpl,
	logger *zap.Logger,
) *Manager {
	return &Manager{
		cfg:         cfg,
		runtime:     runtime,
		loader:      NewLoader(runtime, logger),
		registry:    NewRegistry(logger),
		instanceMgr: wasm.NewInstanceManager(runtime, hostFuncs, logger),
		logger:      logger.With(zap.String("component", "addon-manager")),
		callers:     make(map[string]*liveAddon),
	}
}

// LoadAll discovers and loads all add-ons from configured paths.
// Add-ons that fail to load are logged and skipped.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.loaded {
		return fmt.Errorf("add-ons already loaded")
	}

	m.logger.Info("Loading add-ons",
		zap.Strings("paths", m.cfg.AddonPaths),
	)

	// Discover add-ons
	addons, err := m.loader.DiscoverAddons(ctx, m.cfg.AddonPaths)
	if err != nil {
		var notFound *NoAddonsFoundError
		if errors.As(err, &notFound) && notFound.Err == nil {
			m.logger.Warn("No add-ons found in configured paths",
				zap.Strings("paths", m.cfg.AddonPaths),
			)
			m.loaded = true
			return nil
		}
		if len(addons) == 0 {
			return err
		}
		m.logger.Warn("Continuing with partially loaded add-ons", zap.Error(err))
	}

	// Register all add-ons
	registered := 0
	for _, addon := range addons {
		if err := m.registry.Register(addon); err != nil {
			m.logger.Error("Failed to register add-on",
				zap.String("name", addon.Manifest.Name),
				zap.Error(err),
			)
			continue
		}
		registered++
	}

	m.loaded = true

	m.logger.Info("Add-ons loaded successfully",
		zap.Int("count", registered),
	)

	return nil
}

// LoadWasm loads a bare .wasm (or .wasm.zst) file as an add-on and registers it.
func (m *Manager) LoadWasm(ctx context.Context, path string) (*Addon, error) {
	addon, err := m.loader.LoadWasm(ctx, path)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.registry.Register(addon); err != nil {
		return nil, err
	}
	return addon, nil
}

// GetAddon retrieves an add-on by name.
func (m *Manager) GetAddon(name string) (*Addon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addon, ok := m.registry.Get(name)
	if !ok {
		return nil, &AddonNotFoundError{AddonName: name}
	}

	return addon, nil
}

// FindAddonForLanguage finds an add-on for a language.
func (m *Manager) FindAddonForLanguage(language string) (*Addon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	addons := m.registry.LookupByLanguage(language)
	if len(addons) == 0 {
		return nil, &NoAddonForLanguageError{Language: language}
	}

	// First registered add-on wins.
	return addons[0], nil
}

// Instantiate creates a new instance of an add-on.
// The caller owns the instance and must close it.
func (m *Manager) Instantiate(ctx context.Context, addonName string) (*wasm.Instance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Get add-on
	addon, ok := m.registry.Get(addonName)
	if !ok {
		return nil, &AddonNotFoundError{AddonName: addonName}
	}

	return m.instantiate(ctx, addon)
}

func (m *Manager) instantiate(ctx context.Context, addon *Addon) (*wasm.Instance, error) {
	config := &wasm.InstanceConfig{
		ModuleName:     addon.Compiled.Name,
		StartFunctions: addon.Manifest.Wasm.StartFunctions,
		Realloc:        addon.Manifest.ReallocExport(),
		// InstanceID will be auto-generated
	}

	return m.instanceMgr.Instantiate(ctx, config)
}

// Lenses returns the code lenses an add-on computes for text.
//
// Non-empty text goes to the add-on's text export when it declares
// code_lens_source; otherwise the no-argument export is called. An add-on
// that only declares code_lens_source is called with the text as given.
//
// The add-on's instance is reused across calls and discarded after a failed
// call, since a trapped guest may have left its memory inconsistent.
func (m *Manager) Lenses(ctx context.Context, addonName, text string) ([]protocol.CodeLens, error) {
	addon, err := m.GetAddon(addonName)
	if err != nil {
		return nil, err
	}

	req, err := lensRequest(addon.Manifest, text)
	if err != nil {
		return nil, err
	}

	m.instMu.Lock()
	defer m.instMu.Unlock()

	live, ok := m.callers[addonName]
	if !ok {
		instance, err := m.instantiate(ctx, addon)
		if err != nil {
			return nil, err
		}
		live = &liveAddon{
			instance: instance,
			caller:   lens.NewCaller(instance, m.logger.With(zap.String("addon", addonName))),
		}
		m.callers[addonName] = live
	}

	lenses, err := live.caller.Lenses(ctx, req)
	if err != nil {
		delete(m.callers, addonName)
		if closeErr := live.instance.Close(ctx); closeErr != nil {
			m.logger.Debug("Failed to close failed instance",
				zap.String("addon", addonName),
				zap.Error(closeErr),
			)
		}
		return nil, err
	}

	return lenses, nil
}

func lensRequest(manifest *Manifest, text string) (lens.Request, error) {
	hasSource := manifest.HasCapability(CapabilityCodeLensSource)
	switch {
	case text != "" && hasSource:
		return lens.TextRequest{Export: manifest.LensesForExport(), Text: text}, nil
	case manifest.HasCapability(CapabilityCodeLens):
		return lens.NoArgRequest{Export: manifest.LensesExport()}, nil
	case hasSource:
		return lens.TextRequest{Export: manifest.LensesForExport(), Text: text}, nil
	default:
		return nil, &CapabilityError{AddonName: manifest.Name, Capability: CapabilityCodeLens}
	}
}

// Shutdown gracefully shuts down all add-ons.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.logger.Info("Shutting down add-on manager")

	var errs error

	m.instMu.Lock()
	for name, live := range m.callers {
		errs = multierr.Append(errs, live.instance.Close(ctx))
		delete(m.callers, name)
	}
	m.instMu.Unlock()

	// Runtime close handles any remaining instances.
	errs = multierr.Append(errs, m.runtime.Close(ctx))
	if errs != nil {
		m.logger.Error("Failed to shutdown runtime", zap.Error(errs))
		return errs
	}

	m.logger.Info("Add-on manager shutdown complete")
	return nil
}

// Registry returns the add-on registry (for testing/inspection).
func (m *Manager) Registry() *Registry {
	return m.registry
}

// IsLoaded returns whether add-ons have been loaded.
func (m *Manager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}
