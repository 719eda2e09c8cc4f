package protocol

// Core LSP types shared between the host and lens add-ons.
// Only the CodeLens shape is modelled; everything else in LSP is out of scope.

// Position represents a zero-based position in a text document.
type Position struct {
	Line      uint32 `json:"line" yaml:"line"`
	Character uint32 `json:"character" yaml:"character"`
}

// Range represents a range in a text document.
type Range struct {
	Start Position `json:"start" yaml:"start"`
	End   Position `json:"end" yaml:"end"`
}

// Command is the action attached to a code lens.
type Command struct {
	Title   string `json:"title" yaml:"title"`
	Command string `json:"command" yaml:"command"`
}

// CodeLens is a command shown inline at a range of a document.
type CodeLens struct {
	Range   Range   `json:"range" yaml:"range"`
	Command Command `json:"command" yaml:"command"`
}

// IsEmpty reports whether the range covers no characters.
func (r Range) IsEmpty() bool {
	return r.Start == r.End
}
