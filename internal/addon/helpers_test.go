package addon

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/woxQAQ/lensbridge/internal/config"
	"github.com/woxQAQ/lensbridge/internal/wasm"
	"github.com/woxQAQ/lensbridge/internal/wasmtest"
	"go.uber.org/zap/zaptest"
)

// addonSpec describes an add-on directory written by writeAddon.
type addonSpec struct {
	name         string
	languages    []string
	capabilities []string
	lenses       string
	lensesFor    string
	digest       string
	guest        []byte
}

// writeAddon writes manifest.yaml and guest.wasm into base/<name>.
func writeAddon(t *testing.T, base string, spec addonSpec) string {
	t.Helper()

	dir := filepath.Join(base, spec.name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}

	guest := spec.guest
	if guest == nil {
		guest = wasmtest.LensGuest(wasmtest.GuestOptions{})
	}
	if err := os.WriteFile(filepath.Join(dir, "guest.wasm"), guest, 0644); err != nil {
		t.Fatal(err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "name: %s\nversion: 0.1.0\n", spec.name)
	fmt.Fprintf(&b, "languages: [%s]\n", strings.Join(spec.languages, ", "))
	fmt.Fprintf(&b, "wasm:\n  file: guest.wasm\n")
	if spec.digest != "" {
		fmt.Fprintf(&b, "  blake3: %s\n", spec.digest)
	}
	fmt.Fprintf(&b, "exports:\n  lenses: %q\n  lenses_for: %q\n", spec.lenses, spec.lensesFor)
	fmt.Fprintf(&b, "capabilities: [%s]\n", strings.Join(spec.capabilities, ", "))

	if err := os.WriteFile(filepath.Join(dir, "manifest.yaml"), []byte(b.String()), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

// newTestManager creates a manager over paths with its own runtime.
func newTestManager(t *testing.T, paths ...string) (*Manager, *wasm.Runtime) {
	t.Helper()
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	runtime, err := wasm.NewRuntime(ctx, logger, wasm.DefaultRuntimeConfig())
	if err != nil {
		t.Fatalf("Failed to create runtime: %v", err)
	}
	t.Cleanup(func() { runtime.Close(ctx) })

	cfg := &config.Config{AddonPaths: paths}
	return NewManager(cfg, runtime, wasm.NewHostFunctions(logger), logger), runtime
}
