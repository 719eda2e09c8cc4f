package addon

import (
	"path/filepath"
	"testing"

	"github.com/woxQAQ/lensbridge/internal/lens"
	"github.com/woxQAQ/lensbridge/internal/wasm"
)

func TestParseManifest_Valid(t *testing.T) {
	dir := filepath.Join("testdata", "addons", "valid-lenses")

	manifest, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	if manifest.Name != "demo-lenses" {
		t.Errorf("expected Name 'demo-lenses', got '%s'", manifest.Name)
	}

	if manifest.Version != "1.0.0" {
		t.Errorf("expected Version '1.0.0', got '%s'", manifest.Version)
	}

	if len(manifest.Languages) != 2 {
		t.Errorf("expected 2 languages, got %d", len(manifest.Languages))
	}

	if manifest.Wasm.File != "lenses.wasm" {
		t.Errorf("expected Wasm.File 'lenses.wasm', got '%s'", manifest.Wasm.File)
	}

	if manifest.Wasm.StartFunctions == nil || len(manifest.Wasm.StartFunctions) != 0 {
		t.Errorf("expected empty, non-nil start functions, got %#v", manifest.Wasm.StartFunctions)
	}

	if len(manifest.Capabilities) != 2 {
		t.Errorf("expected 2 capabilities, got %d", len(manifest.Capabilities))
	}

	if manifest.License != "MIT" {
		t.Errorf("expected License 'MIT', got '%s'", manifest.License)
	}
}

func TestParseManifest_NotFound(t *testing.T) {
	dir := filepath.Join("testdata", "addons", "nonexistent")

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("ParseManifest() should fail for nonexistent directory")
	}

	_, ok := err.(*ManifestNotFoundError)
	if !ok {
		t.Errorf("expected ManifestNotFoundError, got %T", err)
	}
}

func TestParseManifest_InvalidYAML(t *testing.T) {
	dir := filepath.Join("testdata", "addons", "invalid-yaml")

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("ParseManifest() should fail for invalid YAML")
	}

	if _, ok := err.(*ManifestParseError); !ok {
		t.Errorf("expected ManifestParseError, got %T", err)
	}
}

func TestParseManifest_ValidationErrors(t *testing.T) {
	tests := []struct {
		dir   string
		field string
	}{
		{dir: "missing-fields", field: "name"},
		{dir: "missing-languages", field: "languages"},
		{dir: "bad-capability", field: "capabilities"},
		{dir: "bad-digest", field: "wasm.blake3"},
	}

	for _, tt := range tests {
		t.Run(tt.dir, func(t *testing.T) {
			_, err := ParseManifest(filepath.Join("testdata", "addons", tt.dir))
			if err == nil {
				t.Fatal("ParseManifest() should fail")
			}

			validationErr, ok := err.(*ManifestValidationError)
			if !ok {
				t.Fatalf("expected ManifestValidationError, got %T", err)
			}

			if validationErr.Field != tt.field {
				t.Errorf("expected Field '%s', got '%s'", tt.field, validationErr.Field)
			}
		})
	}
}

func TestParseManifest_WasmNotFound(t *testing.T) {
	dir := filepath.Join("testdata", "addons", "missing-wasm")

	_, err := ParseManifest(dir)
	if err == nil {
		t.Fatal("ParseManifest() should fail for missing Wasm file")
	}

	_, ok := err.(*WasmNotFoundError)
	if !ok {
		t.Errorf("expected WasmNotFoundError, got %T", err)
	}
}

func TestManifest_Paths(t *testing.T) {
	dir := filepath.Join("testdata", "addons", "valid-lenses")

	manifest, err := ParseManifest(dir)
	if err != nil {
		t.Fatalf("ParseManifest() failed: %v", err)
	}

	if expected := filepath.Join(dir, "manifest.yaml"); manifest.Path() != expected {
		t.Errorf("expected Path '%s', got '%s'", expected, manifest.Path())
	}

	if expected := filepath.Join(dir, "lenses.wasm"); manifest.WasmPath() != expected {
		t.Errorf("expected WasmPath '%s', got '%s'", expected, manifest.WasmPath())
	}

	if manifest.Dir() != dir {
		t.Errorf("expected Dir '%s', got '%s'", dir, manifest.Dir())
	}
}

func TestManifest_Capabilities(t *testing.T) {
	manifest := &Manifest{
		Languages:    []string{"Demo"},
		Capabilities: []string{CapabilityCodeLens},
	}

	if !manifest.HasCapability(CapabilityCodeLens) {
		t.Error("expected code_lens capability")
	}
	if manifest.HasCapability(CapabilityCodeLensSource) {
		t.Error("unexpected code_lens_source capability")
	}

	if !manifest.HandlesLanguage("demo") {
		t.Error("language match should be case-insensitive")
	}
	if manifest.HandlesLanguage("sql") {
		t.Error("unexpected language match")
	}
}

func TestManifest_ExportDefaults(t *testing.T) {
	manifest := &Manifest{}

	if manifest.LensesExport() != lens.DefaultLensesExport {
		t.Errorf("LensesExport() = %s", manifest.LensesExport())
	}
	if manifest.LensesForExport() != lens.DefaultLensesForExport {
		t.Errorf("LensesForExport() = %s", manifest.LensesForExport())
	}
	if manifest.ReallocExport() != wasm.DefaultRealloc {
		t.Errorf("ReallocExport() = %s", manifest.ReallocExport())
	}

	manifest.Exports = ExportsConfig{Lenses: "a", LensesFor: "b", Realloc: "c"}
	if manifest.LensesExport() != "a" || manifest.LensesForExport() != "b" || manifest.ReallocExport() != "c" {
		t.Errorf("explicit exports not used: %+v", manifest.Exports)
	}
}
