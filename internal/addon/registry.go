package addon

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// Registry manages loaded add-ons.
type Registry struct {
	sync.RWMutex
	addons     map[string]*Addon   // name -> addon
	byLanguage map[string][]*Addon // lower-cased language -> addons
	logger     *zap.Logger
}

// NewRegistry creates a new add-on registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		addons:     make(map[string]*Addon),
		byLanguage: make(map[string][]*Addon),
		logger:     logger.With(zap.String("component", "addon-registry")),
	}
}

func languageKey(language string) string {
	return strings.ToLower(language)
}

// Register adds an add-on to the registry.
func (r *Registry) Register(addon *Addon) error {
	r.Lock()
	defer r.Unlock()

	name := addon.Manifest.Name

	// Check for duplicates
	if _, exists := r.addons[name]; exists {
		return &AddonAlreadyRegisteredError{AddonName: name}
	}

	r.addons[name] = addon

	// Index by language
	for _, language := range addon.Manifest.Languages {
		key := languageKey(language)
		r.byLanguage[key] = append(r.byLanguage[key], addon)
	}

	r.logger.Info("Add-on registered",
		zap.String("name", name),
		zap.Strings("languages", addon.Manifest.Languages),
	)

	return nil
}

// Get retrieves an add-on by name.
func (r *Registry) Get(name string) (*Addon, bool) {
	r.RLock()
	defer r.RUnlock()

	addon, ok := r.addons[name]
	return addon, ok
}

// LookupByLanguage finds add-ons for a language, in registration order.
func (r *Registry) LookupByLanguage(language string) []*Addon {
	r.RLock()
	defer r.RUnlock()

	addons, ok := r.byLanguage[languageKey(language)]
	if !ok || len(addons) == 0 {
		return []*Addon{}
	}
	// Return copy to avoid race conditions
	result := make([]*Addon, len(addons))
	copy(result, addons)
	return result
}

// List returns all registered add-ons sorted by name.
func (r *Registry) List() []*Addon {
	r.RLock()
	defer r.RUnlock()

	result := make([]*Addon, 0, len(r.addons))
	for _, addon := range r.addons {
		result = append(result, addon)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Manifest.Name < result[j].Manifest.Name
	})
	return result
}

// Unregister removes an add-on from the registry.
func (r *Registry) Unregister(name string) {
	r.Lock()
	defer r.Unlock()

	addon, ok := r.addons[name]
	if !ok {
		return
	}

	// Remove from language index
	for _, language := range addon.Manifest.Languages {
		key := languageKey(language)
		addons := r.byLanguage[key]
		for i, a := range addons {
			if a.Manifest.Name == name {
				r.byLanguage[key] = append(addons[:i], addons[i+1:]...)
				break
			}
		}
		if len(r.byLanguage[key]) == 0 {
			delete(r.byLanguage, key)
		}
	}

	// Remove from main map
	delete(r.addons, name)

	r.logger.Info("Add-on unregistered", zap.String("name", name))
}

// Count returns the number of registered add-ons.
func (r *Registry) Count() int {
	r.RLock()
	defer r.RUnlock()

	return len(r.addons)
}
