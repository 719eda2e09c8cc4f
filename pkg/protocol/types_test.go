package protocol

import (
	"encoding/json"
	"testing"
)

func TestPosition(t *testing.T) {
	pos := Position{Line: 1, Character: 5}
	if pos.Line != 1 {
		t.Errorf("Line mismatch: got %d, want %d", pos.Line, 1)
	}
	if pos.Character != 5 {
		t.Errorf("Character mismatch: got %d, want %d", pos.Character, 5)
	}
}

func TestRange(t *testing.T) {
	r := Range{
		Start: Position{Line: 0, Character: 0},
		End:   Position{Line: 1, Character: 5},
	}

	if r.Start.Line != 0 {
		t.Errorf("Start line mismatch: got %d, want %d", r.Start.Line, 0)
	}
	if r.End.Character != 5 {
		t.Errorf("End character mismatch: got %d, want %d", r.End.Character, 5)
	}
	if r.IsEmpty() {
		t.Error("Range should not be empty")
	}
	if !(Range{}).IsEmpty() {
		t.Error("Zero range should be empty")
	}
}

func TestCodeLensJSONShape(t *testing.T) {
	lens := CodeLens{
		Range: Range{
			Start: Position{Line: 0, Character: 0},
			End:   Position{Line: 0, Character: 5},
		},
		Command: Command{Title: "Run", Command: "demo.run"},
	}

	data, err := json.Marshal(lens)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	expected := `{"range":{"start":{"line":0,"character":0},"end":{"line":0,"character":5}},"command":{"title":"Run","command":"demo.run"}}`
	if string(data) != expected {
		t.Errorf("JSON = %s, want %s", data, expected)
	}
}
