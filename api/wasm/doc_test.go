package wasm

import (
	"testing"

	"github.com/woxQAQ/lensbridge/internal/lens"
	hostwasm "github.com/woxQAQ/lensbridge/internal/wasm"
)

func TestContractMatchesHost(t *testing.T) {
	if ExportLenses != lens.DefaultLensesExport {
		t.Errorf("ExportLenses = %s, host expects %s", ExportLenses, lens.DefaultLensesExport)
	}
	if ExportLensesFor != lens.DefaultLensesForExport {
		t.Errorf("ExportLensesFor = %s, host expects %s", ExportLensesFor, lens.DefaultLensesForExport)
	}
	if ExportRealloc != hostwasm.DefaultRealloc {
		t.Errorf("ExportRealloc = %s, host expects %s", ExportRealloc, hostwasm.DefaultRealloc)
	}
	if LevelInfo != 1 || LevelError != 3 {
		t.Errorf("log levels out of sync with host: info=%d error=%d", LevelInfo, LevelError)
	}
}
