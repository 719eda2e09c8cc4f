package addon

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/woxQAQ/lensbridge/internal/lens"
	"github.com/woxQAQ/lensbridge/internal/wasm"
	"gopkg.in/yaml.v3"
)

// Capabilities an add-on can declare.
const (
	// CapabilityCodeLens means the add-on exports a no-argument lens function.
	CapabilityCodeLens = "code_lens"

	// CapabilityCodeLensSource means the add-on exports a lens function that
	// takes the document text.
	CapabilityCodeLensSource = "code_lens_source"
)

// Manifest represents the add-on manifest.yaml structure.
type Manifest struct {
	Name         string        `yaml:"name"`
	Version      string        `yaml:"version"`
	Languages    []string      `yaml:"languages"`
	Wasm         WasmConfig    `yaml:"wasm"`
	Exports      ExportsConfig `yaml:"exports"`
	Capabilities []string      `yaml:"capabilities"`
	Author       string        `yaml:"author"`
	License      string        `yaml:"license"`

	// Internal fields
	dir string // Directory containing manifest
}

// WasmConfig holds Wasm module configuration.
type WasmConfig struct {
	File string `yaml:"file"`

	// BLAKE3 is the expected hex digest of the (decompressed) module.
	BLAKE3 string `yaml:"blake3"`

	// StartFunctions run after instantiation. Omitted means "_start".
	StartFunctions []string `yaml:"start_functions"`
}

// ExportsConfig names the guest exports. Empty fields use the defaults.
type ExportsConfig struct {
	Lenses    string `yaml:"lenses"`
	LensesFor string `yaml:"lenses_for"`
	Realloc   string `yaml:"realloc"`
}

// ParseManifest reads and parses manifest.yaml from a directory.
func ParseManifest(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, "manifest.yaml")

	data, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, &ManifestNotFoundError{
			Path: manifestPath,
			Err:  err,
		}
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{
			Path: manifestPath,
			Err:  err,
		}
	}

	m.dir = dir

	// Validate manifest
	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest fields.
func (m *Manifest) Validate() error {
	// Check required fields
	if m.Name == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "name",
			Message: "name is required",
		}
	}

	if m.Version == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "version",
			Message: "version is required",
		}
	}

	if len(m.Languages) == 0 {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "languages",
			Message: "at least one language is required",
		}
	}

	if m.Wasm.File == "" {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "wasm.file",
			Message: "wasm.file is required",
		}
	}

	if m.Wasm.BLAKE3 != "" {
		if b, err := hex.DecodeString(m.Wasm.BLAKE3); err != nil || len(b) != 32 {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "wasm.blake3",
				Message: "wasm.blake3 must be a 64-character hex digest",
			}
		}
	}

	// Validate capabilities
	if len(m.Capabilities) == 0 {
		return &ManifestValidationError{
			Path:    m.Path(),
			Field:   "capabilities",
			Message: "at least one capability is required",
		}
	}

	validCaps := map[string]bool{
		CapabilityCodeLens:       true,
		CapabilityCodeLensSource: true,
	}
	for _, cap := range m.Capabilities {
		if !validCaps[cap] {
			return &ManifestValidationError{
				Path:    m.Path(),
				Field:   "capabilities",
				Message: fmt.Sprintf("unknown capability: %s (must be one of: %s, %s)", cap, CapabilityCodeLens, CapabilityCodeLensSource),
			}
		}
	}

	// Validate Wasm file exists
	wasmPath := m.WasmPath()
	if _, err := os.Stat(wasmPath); os.IsNotExist(err) {
		return &WasmNotFoundError{
			ManifestPath: m.Path(),
			WasmFile:     m.Wasm.File,
		}
	}

	return nil
}

// HasCapability reports whether the manifest declares capability.
func (m *Manifest) HasCapability(capability string) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// HandlesLanguage reports whether the add-on serves language (case-insensitive).
func (m *Manifest) HandlesLanguage(language string) bool {
	for _, l := range m.Languages {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

// LensesExport returns the no-argument lens export name.
func (m *Manifest) LensesExport() string {
	if m.Exports.Lenses == "" {
		return lens.DefaultLensesExport
	}
	return m.Exports.Lenses
}

// LensesForExport returns the lens export that takes the document text.
func (m *Manifest) LensesForExport() string {
	if m.Exports.LensesFor == "" {
		return lens.DefaultLensesForExport
	}
	return m.Exports.LensesFor
}

// ReallocExport returns the allocator export name.
func (m *Manifest) ReallocExport() string {
	if m.Exports.Realloc == "" {
		return wasm.DefaultRealloc
	}
	return m.Exports.Realloc
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return filepath.Join(m.dir, "manifest.yaml")
}

// WasmPath returns the absolute path to the Wasm file.
func (m *Manifest) WasmPath() string {
	return filepath.Join(m.dir, m.Wasm.File)
}

// Dir returns the directory containing the manifest.
func (m *Manifest) Dir() string {
	return m.dir
}
