package addon

import (
	"testing"

	"go.uber.org/zap"
)

func testAddon(name string, languages ...string) *Addon {
	return &Addon{
		Manifest: &Manifest{
			Name:      name,
			Languages: languages,
			dir:       "/tmp/" + name,
		},
	}
}

func TestRegistry_Register(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(logger)

	err := registry.Register(testAddon("test-addon", "demo"))
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	// Check count
	if registry.Count() != 1 {
		t.Errorf("expected count 1, got %d", registry.Count())
	}
}

func TestRegistry_Duplicate(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(logger)

	// Register first addon
	err := registry.Register(testAddon("test-addon", "demo"))
	if err != nil {
		t.Fatalf("First Register() failed: %v", err)
	}

	// Try to register duplicate
	err = registry.Register(testAddon("test-addon", "other"))
	if err == nil {
		t.Fatal("Register() should fail for duplicate add-on")
	}

	_, ok := err.(*AddonAlreadyRegisteredError)
	if !ok {
		t.Errorf("expected AddonAlreadyRegisteredError, got %T", err)
	}

	// The rejected add-on must not leak into the language index.
	if got := registry.LookupByLanguage("other"); len(got) != 0 {
		t.Errorf("expected no add-ons for 'other', got %d", len(got))
	}
}

func TestRegistry_Get(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(logger)

	// Try to get before registering
	_, ok := registry.Get("test-addon")
	if ok {
		t.Error("Get() should return false for non-existent add-on")
	}

	registry.Register(testAddon("test-addon", "demo"))

	// Get after registering
	retrieved, ok := registry.Get("test-addon")
	if !ok {
		t.Fatal("Get() should return true for existing add-on")
	}

	if retrieved.Name() != "test-addon" {
		t.Errorf("expected name 'test-addon', got '%s'", retrieved.Name())
	}
}

func TestRegistry_LookupByLanguage(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(logger)

	registry.Register(testAddon("rust-lenses", "rust"))
	registry.Register(testAddon("polyglot", "Rust", "go"))

	// Registration order is kept and matching ignores case.
	rustAddons := registry.LookupByLanguage("RUST")
	if len(rustAddons) != 2 {
		t.Fatalf("expected 2 rust add-ons, got %d", len(rustAddons))
	}
	if rustAddons[0].Name() != "rust-lenses" || rustAddons[1].Name() != "polyglot" {
		t.Errorf("unexpected order: %s, %s", rustAddons[0].Name(), rustAddons[1].Name())
	}

	goAddons := registry.LookupByLanguage("go")
	if len(goAddons) != 1 {
		t.Errorf("expected 1 go add-on, got %d", len(goAddons))
	}

	// Lookup non-existent language
	if got := registry.LookupByLanguage("cobol"); len(got) != 0 {
		t.Errorf("expected 0 cobol add-ons, got %d", len(got))
	}

	// The result is a copy.
	rustAddons[0] = nil
	if registry.LookupByLanguage("rust")[0] == nil {
		t.Error("LookupByLanguage() must return a copy")
	}
}

func TestRegistry_List(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(logger)

	// Initially empty
	list := registry.List()
	if len(list) != 0 {
		t.Errorf("expected 0 add-ons, got %d", len(list))
	}

	registry.Register(testAddon("b-addon", "demo"))
	registry.Register(testAddon("a-addon", "demo"))

	// List should return both, sorted by name
	list = registry.List()
	if len(list) != 2 {
		t.Fatalf("expected 2 add-ons, got %d", len(list))
	}
	if list[0].Name() != "a-addon" || list[1].Name() != "b-addon" {
		t.Errorf("expected sorted list, got %s, %s", list[0].Name(), list[1].Name())
	}
}

func TestRegistry_Unregister(t *testing.T) {
	logger := zap.NewNop()
	registry := NewRegistry(logger)

	registry.Register(testAddon("test-addon", "demo", "other"))
	registry.Register(testAddon("keep", "demo"))

	// Verify it's registered
	if registry.Count() != 2 {
		t.Errorf("expected count 2, got %d", registry.Count())
	}

	// Unregister
	registry.Unregister("test-addon")

	// Verify it's gone
	if registry.Count() != 1 {
		t.Errorf("expected count 1, got %d", registry.Count())
	}

	_, ok := registry.Get("test-addon")
	if ok {
		t.Error("Get() should return false after unregister")
	}

	if got := registry.LookupByLanguage("other"); len(got) != 0 {
		t.Errorf("expected 0 add-ons for 'other', got %d", len(got))
	}
	if got := registry.LookupByLanguage("demo"); len(got) != 1 || got[0].Name() != "keep" {
		t.Errorf("expected only 'keep' for 'demo', got %v", got)
	}

	// Unregistering twice is a no-op.
	registry.Unregister("test-addon")
}
