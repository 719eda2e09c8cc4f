package addon

import (
	"time"

	"github.com/woxQAQ/lensbridge/internal/wasm"
)

// Addon represents a loaded add-on with its manifest and compiled Wasm module.
type Addon struct {
	// Manifest is the parsed add-on metadata
	Manifest *Manifest

	// Compiled is the compiled Wasm module
	Compiled *wasm.CompiledModule

	// LoadedAt is the timestamp when the add-on was loaded
	LoadedAt time.Time
}

// Name returns the add-on name.
func (a *Addon) Name() string {
	return a.Manifest.Name
}

// Languages returns the languages this add-on provides lenses for.
func (a *Addon) Languages() []string {
	return a.Manifest.Languages
}

// Version returns the add-on version.
func (a *Addon) Version() string {
	return a.Manifest.Version
}

// Capabilities returns the list of capabilities provided by this add-on.
func (a *Addon) Capabilities() []string {
	return a.Manifest.Capabilities
}

// Digest returns the BLAKE3 digest of the compiled module.
func (a *Addon) Digest() string {
	return a.Compiled.Digest
}
